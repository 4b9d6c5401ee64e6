package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"marketplace_system/internal/domain"     // Importing domain models
	"marketplace_system/internal/middleware" // Session cookie access
	"marketplace_system/internal/utils"      // Token utilities

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`  // Email must be provided and valid
	Password string `json:"password" binding:"required,min=8"` // Password must be at least 8 characters
	Name     string `json:"name" binding:"required"`         // Display name must be provided
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// RefreshRequest carries a refresh token to exchange for a new access token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"` // Refresh token must be provided
}

// registerWithRole creates a user with a fixed role; the role is decided by
// the endpoint, never by the request body.
func registerWithRole(db *gorm.DB, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// Missing email/password is a validation error
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		// Hash the password before storing
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Create user with a lowercase email to ensure uniqueness
		user := domain.User{
			Email:    strings.ToLower(req.Email), // Normalized email
			Password: string(hash),               // Hashed password
			Name:     req.Name,                   // Display name
			Role:     role,                       // Fixed per creation endpoint
		}
		if err := db.Create(&user).Error; err != nil {
			// Duplicate email is the common failure here
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID, // New user ID
			"role":    role,    // Assigned role
		}).Info("User registered") // Log registration
		c.JSON(http.StatusCreated, user) // Return the created user (password omitted)
	}
}

// RegisterHandler registers an ordinary customer
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return registerWithRole(db, domain.RoleUser)
}

// RegisterAdminHandler registers a platform administrator
func RegisterAdminHandler(db *gorm.DB) gin.HandlerFunc {
	return registerWithRole(db, domain.RoleAdmin)
}

// RegisterVendorHandler registers a vendor account
func RegisterVendorHandler(db *gorm.DB) gin.HandlerFunc {
	return registerWithRole(db, domain.RoleVendor)
}

// LoginHandler authenticates a user, returns an access/refresh token pair,
// and opportunistically transfers a guest cart to the user.
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
			// If user not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Reconcile a guest cart into the customer's account. Best-effort:
		// a failure here never fails the login itself.
		if user.Role == domain.RoleUser {
			if sessionID, err := c.Cookie(middleware.CartSessionCookie); err == nil && sessionID != "" {
				if err := ReconcileGuestCart(db, user.ID, sessionID); err != nil {
					logrus.WithFields(logrus.Fields{
						"user_id":    user.ID,     // Authenticated user
						"session_id": sessionID,   // Guest session
						"error":      err.Error(), // Error message
					}).Error("Guest cart reconciliation failed") // Log and continue
				}
			}
		}
		// Generate and persist the token pair
		tokens, err := utils.GenerateTokenPair(db, user.ID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return tokens plus basic user info
		c.JSON(http.StatusOK, gin.H{
			"accessToken":  tokens.AccessToken,  // Short-lived access token
			"refreshToken": tokens.RefreshToken, // Long-lived refresh token
			"userInfo": gin.H{
				"id":    user.ID,    // User ID
				"name":  user.Name,  // Display name
				"email": user.Email, // Email address
				"role":  user.Role,  // Role
			},
		})
	}
}

// LogoutHandler revokes every refresh token stored for the user
func LogoutHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Delete all refresh tokens for this user
		if err := utils.RevokeTokens(db, userID.(uint)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// RefreshHandler exchanges a stored, unexpired refresh token for a new
// access token.
func RefreshHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// The token itself must verify
		claims, err := utils.ParseJWT(req.RefreshToken, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		// And it must still be on record (not revoked by logout)
		var record domain.Token
		if err := db.Where("token = ?", req.RefreshToken).First(&record).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token not found"})
			return
		}
		// Issue a fresh access token
		accessToken, err := utils.GenerateAccessToken(claims.UserID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
	}
}
