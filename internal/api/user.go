package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // ID parsing
	"time"     // Cache TTL

	"marketplace_system/internal/domain" // Importing domain models
	"marketplace_system/internal/utils"  // Cache and filter helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// userSortColumns whitelists the sortable user columns
var userSortColumns = map[string]bool{
	"created_at": true,
	"name":       true,
	"email":      true,
	"id":         true,
}

// FetchFilteredCustomersHandler lists customer accounts with name/email
// search, date range, pagination and sorting. Admin only.
func FetchFilteredCustomersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := utils.ParseListFilters(c) // Common listing filters
		ctx := context.Background()
		cacheKey := "users:customers:" + c.Request.URL.RawQuery // One cache entry per query variant
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		query := db.Model(&domain.User{}).Where("role = ?", domain.RoleUser)
		if filters.Search != "" {
			term := "%" + filters.Search + "%" // Substring match on name or email
			query = query.Where("name LIKE ? OR email LIKE ?", term, term)
		}
		query = filters.ApplyDateRange(query)
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch users"})
			return
		}
		var users []domain.User
		err := query.
			Order(filters.SortClause(userSortColumns)).
			Offset(filters.Offset).
			Limit(filters.Limit).
			Find(&users).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch users"})
			return
		}
		resp := gin.H{
			"users":    users,                  // Page of customers
			"limit":    filters.Limit,          // Page size
			"offset":   filters.Offset,         // Row offset
			"total":    total,                  // Total matching rows
			"next":     filters.HasNext(total), // offset+limit < total
			"previous": filters.HasPrevious(),  // offset > 0
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, resp)
	}
}

// FetchUserHandler returns one user
func FetchUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateUserRequest is the user patch payload
type UpdateUserRequest struct {
	Name   *string `json:"name"`   // Optional name patch
	Avatar *string `json:"avatar"` // Optional avatar URL patch
}

// UpdateUserHandler patches user profile scalars
func UpdateUserHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		patch := map[string]any{}
		if req.Name != nil {
			patch["name"] = *req.Name
		}
		if req.Avatar != nil {
			patch["avatar"] = *req.Avatar
		}
		if len(patch) > 0 {
			if err := db.Model(&user).Updates(patch).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to update user"})
				return
			}
		}
		_ = utils.InvalidatePrefix(context.Background(), rdb, "users:")
		c.JSON(http.StatusOK, user)
	}
}

// DeleteUserHandler removes a user together with their refresh tokens.
// Admin only. Carts, orders and payments are removed through their own
// endpoints; this delete is explicit about what it owns.
func DeleteUserHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		// Ordered transactional delete: tokens first, then the user row
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", user.ID).Delete(&domain.Token{}).Error; err != nil {
				return err
			}
			return tx.Delete(&domain.User{}, user.ID).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,     // User being deleted
				"error":   err.Error(), // Error message
			}).Error("Failed to delete user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to delete user"})
			return
		}
		_ = utils.InvalidatePrefix(context.Background(), rdb, "users:")
		c.Status(http.StatusNoContent)
	}
}
