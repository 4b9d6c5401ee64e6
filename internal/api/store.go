package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // ID parsing
	"time"     // Cache TTL

	"marketplace_system/internal/domain" // Importing domain models
	"marketplace_system/internal/utils"  // Cache, filter and upload helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// storeSortColumns whitelists the sortable store columns
var storeSortColumns = map[string]bool{
	"created_at": true,
	"name":       true,
	"id":         true,
}

// RegisterStoreHandler creates a store for the authenticated vendor. Sent as
// multipart form data so the logo can ride along.
func RegisterStoreHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Owning vendor from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		name := c.PostForm("name") // Store name is required
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Store name is required"})
			return
		}
		store := domain.Store{
			UserID:   userID.(uint),          // Owning vendor
			Name:     name,                   // Store name
			Address:  c.PostForm("address"),  // Physical address
			Category: c.PostForm("category"), // Category tag
		}
		// Optional logo upload
		if file, err := c.FormFile("logo"); err == nil {
			src, err := file.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read logo"})
				return
			}
			defer src.Close()
			url, err := utils.SaveImageFile(src, "stores", file.Filename)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to store logo"})
				return
			}
			store.Logo = url
		}
		if err := db.Create(&store).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // Owning vendor
				"error":   err.Error(), // Error message
			}).Error("Failed to register store")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to register store"})
			return
		}
		_ = utils.InvalidatePrefix(context.Background(), rdb, "stores:") // Drop cached listings
		c.JSON(http.StatusCreated, store)
	}
}

// FetchFilteredStoresHandler lists stores with name/address search,
// date range, pagination and sorting.
func FetchFilteredStoresHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := utils.ParseListFilters(c) // Common listing filters
		ctx := context.Background()
		cacheKey := "stores:" + c.Request.URL.RawQuery
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		query := db.Model(&domain.Store{})
		if filters.Search != "" {
			term := "%" + filters.Search + "%" // Substring match on name or address
			query = query.Where("name LIKE ? OR address LIKE ?", term, term)
		}
		query = filters.ApplyDateRange(query)
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch stores"})
			return
		}
		var stores []domain.Store
		err := query.
			Preload("Products").
			Order(filters.SortClause(storeSortColumns)).
			Offset(filters.Offset).
			Limit(filters.Limit).
			Find(&stores).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch stores"})
			return
		}
		resp := gin.H{
			"stores":   stores,                 // Page of stores
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

// FetchSingleStoreHandler returns one store with its products
func FetchSingleStoreHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store id"})
			return
		}
		var store domain.Store
		if err := db.Preload("Products").First(&store, storeID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		c.JSON(http.StatusOK, store)
	}
}

// UpdateStoreRequest is the store patch payload
type UpdateStoreRequest struct {
	Name      *string `json:"name"`      // Optional name patch
	Address   *string `json:"address"`   // Optional address patch
	Category  *string `json:"category"`  // Optional category patch
	Billboard *string `json:"billboard"` // Optional billboard URL patch
}

// UpdateStoreHandler patches store scalars
func UpdateStoreHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store id"})
			return
		}
		var store domain.Store
		if err := db.First(&store, storeID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		var req UpdateStoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		patch := map[string]any{}
		if req.Name != nil {
			patch["name"] = *req.Name
		}
		if req.Address != nil {
			patch["address"] = *req.Address
		}
		if req.Category != nil {
			patch["category"] = *req.Category
		}
		if req.Billboard != nil {
			patch["billboard"] = *req.Billboard
		}
		if len(patch) > 0 {
			if err := db.Model(&store).Updates(patch).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to update store"})
				return
			}
		}
		_ = utils.InvalidatePrefix(context.Background(), rdb, "stores:")
		c.JSON(http.StatusOK, store)
	}
}

// DeleteStoreHandler removes a store and its products, in order
func DeleteStoreHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store id"})
			return
		}
		var store domain.Store
		if err := db.First(&store, storeID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		// Explicit ordered delete: products first, then the store row
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("store_id = ?", store.ID).Delete(&domain.Product{}).Error; err != nil {
				return err
			}
			return tx.Delete(&domain.Store{}, store.ID).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"store_id": store.ID,    // Store being deleted
				"error":    err.Error(), // Error message
			}).Error("Failed to delete store")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to delete store"})
			return
		}
		_ = utils.InvalidatePrefix(context.Background(), rdb, "stores:")
		c.Status(http.StatusNoContent)
	}
}
