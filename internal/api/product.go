package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // Form field parsing
	"strings"  // Category matching
	"time"     // Cache TTL

	"marketplace_system/internal/domain" // Importing domain models
	"marketplace_system/internal/utils"  // Cache, filter and upload helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// productSortColumns whitelists the sortable product columns
var productSortColumns = map[string]bool{
	"created_at": true,
	"name":       true,
	"price":      true,
	"stock":      true,
	"id":         true,
}

// CategoryFromSearch maps a search term onto the product category enum,
// case-insensitively. Used so searching "drinks" also matches by category.
func CategoryFromSearch(search string) (string, bool) {
	term := strings.ToUpper(strings.TrimSpace(search))
	switch term {
	case domain.CategoryFood, domain.CategoryDrinks, domain.CategoryGroceries, domain.CategoryDesserts:
		return term, true
	}
	return "", false
}

// CreateProductHandler creates a product under a store. Multipart form data
// so the image can ride along.
func CreateProductHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := strconv.Atoi(c.PostForm("storeId")) // Owning store
		if err != nil || storeID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A valid storeId is required"})
			return
		}
		// The store must exist
		var store domain.Store
		if err := db.First(&store, storeID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		name := c.PostForm("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product name is required"})
			return
		}
		// Price and stock are numeric invariants: both must be non-negative
		price, err := strconv.ParseFloat(c.PostForm("price"), 64)
		if err != nil || price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be a non-negative number"})
			return
		}
		stock, err := strconv.Atoi(c.DefaultPostForm("stock", "0"))
		if err != nil || stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stock must be a non-negative number"})
			return
		}
		product := domain.Product{
			StoreID:     uint(storeID),             // Owning store
			Name:        name,                      // Product name
			Description: c.PostForm("description"), // Description
			Price:       price,                     // Unit price
			Stock:       stock,                     // Units in stock
			Category:    strings.ToUpper(c.PostForm("category")),
			IsAvailable: c.DefaultPostForm("isAvailable", "true") == "true",
			IsFeatured:  c.PostForm("isFeatured") == "true",
		}
		// Optional image upload
		if file, err := c.FormFile("image"); err == nil {
			src, err := file.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read image"})
				return
			}
			defer src.Close()
			url, err := utils.SaveImageFile(src, "products", file.Filename)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to store image"})
				return
			}
			product.Image = url
		}
		if err := db.Create(&product).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to create product"})
			return
		}
		_ = utils.InvalidatePrefix(context.Background(), rdb, "products:") // Drop cached listings
		c.JSON(http.StatusCreated, product)
	}
}

// applyProductSearch builds the search clause: substring match on name, OR
// exact category enum match when the term names a category.
func applyProductSearch(query *gorm.DB, search string) *gorm.DB {
	term := "%" + search + "%"
	if category, ok := CategoryFromSearch(search); ok {
		return query.Where("name LIKE ? OR category = ?", term, category)
	}
	return query.Where("name LIKE ?", term)
}

// FetchFilteredProductsHandler lists products with search, featured/store
// filters, date range, pagination and sorting.
func FetchFilteredProductsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := utils.ParseListFilters(c) // Common listing filters
		ctx := context.Background()
		cacheKey := "products:" + c.Request.URL.RawQuery
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		query := db.Model(&domain.Product{})
		if filters.Search != "" {
			query = applyProductSearch(query, filters.Search)
		}
		if v := c.Query("isFeatured"); v != "" {
			query = query.Where("is_featured = ?", v == "true")
		}
		if v := c.Query("storeId"); v != "" {
			query = query.Where("store_id = ?", v)
		}
		query = filters.ApplyDateRange(query)
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch products"})
			return
		}
		var products []domain.Product
		err := query.
			Order(filters.SortClause(productSortColumns)).
			Offset(filters.Offset).
			Limit(filters.Limit).
			Find(&products).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch products"})
			return
		}
		resp := gin.H{
			"products": products,               // Page of products
			"limit":    filters.Limit,          // Page size
			"offset":   filters.Offset,         // Row offset
			"total":    total,                  // Total matching rows
			"next":     filters.HasNext(total), // offset+limit < total
			"previous": filters.HasPrevious(),  // offset > 0
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// FetchProductsByStoreHandler lists one store's products
func FetchProductsByStoreHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store id"})
			return
		}
		var products []domain.Product
		if err := db.Where("store_id = ?", storeID).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch products"})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// FetchSingleProductHandler returns one product
func FetchSingleProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
			return
		}
		var product domain.Product
		if err := db.First(&product, productID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// UpdateProductRequest is the product patch payload
type UpdateProductRequest struct {
	Name        *string  `json:"name"`        // Optional name patch
	Description *string  `json:"description"` // Optional description patch
	Price       *float64 `json:"price"`       // Optional price patch, must stay >= 0
	Stock       *int     `json:"stock"`       // Optional stock patch, must stay >= 0
	Category    *string  `json:"category"`    // Optional category patch
	IsAvailable *bool    `json:"isAvailable"` // Optional availability patch
	IsFeatured  *bool    `json:"isFeatured"`  // Optional featured patch
}

// UpdateProductHandler patches product scalars, enforcing the numeric
// invariants the schema requires.
func UpdateProductHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
			return
		}
		var product domain.Product
		if err := db.First(&product, productID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		var req UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Numeric invariants: price >= 0, stock >= 0
		if req.Price != nil && *req.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be a non-negative number"})
			return
		}
		if req.Stock != nil && *req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stock must be a non-negative number"})
			return
		}
		patch := map[string]any{}
		if req.Name != nil {
			patch["name"] = *req.Name
		}
		if req.Description != nil {
			patch["description"] = *req.Description
		}
		if req.Price != nil {
			patch["price"] = *req.Price
		}
		if req.Stock != nil {
			patch["stock"] = *req.Stock
		}
		if req.Category != nil {
			patch["category"] = strings.ToUpper(*req.Category)
		}
		if req.IsAvailable != nil {
			patch["is_available"] = *req.IsAvailable
		}
		if req.IsFeatured != nil {
			patch["is_featured"] = *req.IsFeatured
		}
		if len(patch) > 0 {
			if err := db.Model(&product).Updates(patch).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to update product"})
				return
			}
		}
		_ = utils.InvalidatePrefix(context.Background(), rdb, "products:")
		c.JSON(http.StatusOK, product)
	}
}

// DeleteProductHandler removes a product
func DeleteProductHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
			return
		}
		var product domain.Product
		if err := db.First(&product, productID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if err := db.Delete(&domain.Product{}, product.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to delete product"})
			return
		}
		_ = utils.InvalidatePrefix(context.Background(), rdb, "products:")
		c.Status(http.StatusNoContent)
	}
}
