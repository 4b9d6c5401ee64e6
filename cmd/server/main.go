package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"marketplace_system/internal/api"        // Custom package for API handlers
	"marketplace_system/internal/config"     // Custom package for configuration
	"marketplace_system/internal/domain"     // Domain models (role constants)
	"marketplace_system/internal/middleware" // Custom package for middleware
	"marketplace_system/internal/paystack"   // Payment gateway client

	// For loading .env files
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Payment gateway client, bearer-authenticated with the server secret
	gateway := paystack.NewClient(cfg.PaystackSecret, cfg.PaystackBaseURL)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Uploaded images are served straight from disk
	r.Static("/uploads", "./uploads")

	jwtAuth := middleware.JWTAuthMiddleware(cfg.JWTSecret)    // Bearer-only routes
	principal := middleware.PrincipalMiddleware(cfg.JWTSecret) // Bearer XOR guest session routes

	apiGroup := r.Group("/api")

	// Auth routes
	apiGroup.POST("/auth/register", api.RegisterHandler(db))               // Customer registration
	apiGroup.POST("/auth/login", api.LoginHandler(db, cfg.JWTSecret))      // Login endpoint
	apiGroup.POST("/auth/refresh", api.RefreshHandler(db, cfg.JWTSecret))  // Token refresh endpoint
	apiGroup.POST("/auth/logout", jwtAuth, api.LogoutHandler(db))          // Logout endpoint
	// Privileged account creation
	adminUsers := apiGroup.Group("/users", jwtAuth, middleware.AdminOnlyMiddleware(db))
	adminUsers.POST("/admin", api.RegisterAdminHandler(db))                // Create admin account
	adminUsers.POST("/vendor", api.RegisterVendorHandler(db))              // Create vendor account
	adminUsers.GET("/customers", api.FetchFilteredCustomersHandler(db, redisClient)) // List customers
	adminUsers.GET("/:id", api.FetchUserHandler(db))                       // Fetch user endpoint
	adminUsers.PUT("/:id", api.UpdateUserHandler(db, redisClient))         // Update user endpoint
	adminUsers.DELETE("/:id", api.DeleteUserHandler(db, redisClient))      // Delete user endpoint

	// Cart routes: authenticated users or guest sessions
	cartGroup := apiGroup.Group("/cart", principal)
	cartGroup.POST("", api.AddToCartHandler(db, redisClient))         // Add items endpoint
	cartGroup.GET("", api.GetCartHandler(db, redisClient))            // Fetch cart endpoint
	cartGroup.PUT("/:id", api.UpdateCartHandler(db, redisClient))     // Update cart endpoint
	cartGroup.DELETE("/:id", api.DeleteCartHandler(db, redisClient))  // Delete cart endpoint

	// Order routes (protected by JWT)
	orderGroup := apiGroup.Group("/orders", jwtAuth)
	orderGroup.POST("", api.CreateOrderHandler(db, redisClient))          // Create order endpoint
	orderGroup.GET("", api.FetchFilteredOrdersHandler(db, redisClient))   // Filtered listing endpoint
	orderGroup.GET("/:id", api.FetchSingleOrderHandler(db))               // Fetch order endpoint
	orderGroup.PUT("/:id", api.UpdateOrderHandler(db, redisClient))       // Update order endpoint
	orderGroup.DELETE("/:id", api.DeleteOrderHandler(db, redisClient))    // Delete order endpoint

	// Payment routes (protected by JWT)
	paymentGroup := apiGroup.Group("/payment", jwtAuth)
	paymentGroup.POST("/initialise", api.InitialisePaymentHandler(db, redisClient, gateway, cfg.CallbackURL)) // Create gateway intent
	paymentGroup.GET("/verify/:reference", api.VerifyPaymentHandler(db, redisClient, gateway))                // Poll-verify endpoint
	paymentGroup.GET("/admin/verify/:reference", middleware.AdminOnlyMiddleware(db), api.AdminVerifyPaymentHandler(gateway)) // Gateway-only verify
	paymentGroup.GET("", api.ListPaymentsHandler(db))                          // List payments endpoint
	paymentGroup.GET("/user/:id", api.FetchPaymentsByUserHandler(db, redisClient))   // Payments by user
	paymentGroup.GET("/store/:id", api.FetchPaymentsByStoreHandler(db, redisClient)) // Payments by store
	paymentGroup.GET("/order/:id", api.FetchPaymentsByOrderHandler(db))              // Payments by order
	paymentGroup.GET("/:id", api.FetchPaymentByIDHandler(db))                        // Payment with mirror

	// Store routes
	storeGroup := apiGroup.Group("/stores")
	storeGroup.GET("", api.FetchFilteredStoresHandler(db, redisClient)) // Filtered listing endpoint
	storeGroup.GET("/:id", api.FetchSingleStoreHandler(db))             // Fetch store endpoint
	storeGroup.POST("", jwtAuth, middleware.RequireRole(db, domain.RoleVendor, domain.RoleAdmin), api.RegisterStoreHandler(db, redisClient))      // Register store
	storeGroup.PUT("/:id", jwtAuth, middleware.RequireRole(db, domain.RoleVendor, domain.RoleAdmin), api.UpdateStoreHandler(db, redisClient))     // Update store
	storeGroup.DELETE("/:id", jwtAuth, middleware.RequireRole(db, domain.RoleVendor, domain.RoleAdmin), api.DeleteStoreHandler(db, redisClient))  // Delete store

	// Product routes
	productGroup := apiGroup.Group("/products")
	productGroup.GET("", api.FetchFilteredProductsHandler(db, redisClient)) // Filtered listing endpoint
	productGroup.GET("/store/:id", api.FetchProductsByStoreHandler(db))     // Products by store
	productGroup.GET("/:id", api.FetchSingleProductHandler(db))             // Fetch product endpoint
	productGroup.POST("", jwtAuth, middleware.RequireRole(db, domain.RoleVendor, domain.RoleAdmin), api.CreateProductHandler(db, redisClient))      // Create product
	productGroup.PUT("/:id", jwtAuth, middleware.RequireRole(db, domain.RoleVendor, domain.RoleAdmin), api.UpdateProductHandler(db, redisClient))   // Update product
	productGroup.DELETE("/:id", jwtAuth, middleware.RequireRole(db, domain.RoleVendor, domain.RoleAdmin), api.DeleteProductHandler(db, redisClient)) // Delete product

	// Gateway webhook: authenticated by signature, not by bearer token
	r.POST("/webhook/paystack", api.PaystackWebhookHandler(db, cfg.PaystackSecret))

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
