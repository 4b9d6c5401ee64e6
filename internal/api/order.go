package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // ID parsing
	"strings"  // Status matching
	"time"     // Cache TTL

	"marketplace_system/internal/domain" // Importing domain models
	"marketplace_system/internal/utils"  // Cache and filter helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// orderSortColumns whitelists the sortable order columns
var orderSortColumns = map[string]bool{
	"created_at":  true,
	"status":      true,
	"total_price": true,
	"id":          true,
}

// OrderItemInput is one incoming order line item
type OrderItemInput struct {
	ProductID uint `json:"productId" binding:"required"`      // Referenced product
	StoreID   uint `json:"storeId" binding:"required"`        // Store that owns the product
	Quantity  int  `json:"quantity" binding:"required,min=1"` // Quantity, at least 1
}

// CreateOrderRequest is the POST /api/orders payload
type CreateOrderRequest struct {
	Items []OrderItemInput `json:"items" binding:"required,min=1,dive"` // Order line items
}

// UpdateOrderRequest is the PUT /api/orders/:id payload. Item replacement
// mirrors cart semantics: an omitted or empty list clears every item.
type UpdateOrderRequest struct {
	Status     *string          `json:"status"`     // Optional status patch
	TotalPrice *float64         `json:"totalPrice"` // Optional total patch
	Items      []OrderItemInput `json:"items"`      // Replacement item set
}

// OrderStatusFromSearch maps a free-text search term onto the closed order
// status enum. Matching is case-insensitive and exact, never substring.
func OrderStatusFromSearch(search string) (string, bool) {
	term := strings.ToLower(strings.TrimSpace(search))
	switch term {
	case domain.OrderStatusPending, domain.OrderStatusDelivered, domain.OrderStatusCancelled:
		return term, true
	}
	return "", false
}

// validOrderStatus reports whether a status patch value is in the enum
func validOrderStatus(status string) bool {
	_, ok := OrderStatusFromSearch(status)
	return ok
}

// buildOrderItems snapshots the current product price into each order item
// so later product price changes cannot drift historical orders. The rows
// already carry the parent order ID slot; gorm fills it on the associated
// insert, in the same transaction as the order row.
func buildOrderItems(tx *gorm.DB, items []OrderItemInput) ([]domain.OrderItem, float64, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	var products []domain.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	prices := make(map[uint]float64, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}
	rows := make([]domain.OrderItem, len(items))
	var total float64
	for i, item := range items {
		price, ok := prices[item.ProductID]
		if !ok {
			return nil, 0, gorm.ErrRecordNotFound // Referenced product missing
		}
		rows[i] = domain.OrderItem{
			ProductID: item.ProductID, // Referenced product
			StoreID:   item.StoreID,   // Owning store
			Quantity:  item.Quantity,  // Quantity ordered
			Price:     price,          // Snapshot at order-creation time
		}
		total += price * float64(item.Quantity)
	}
	return rows, total, nil
}

// CreateOrderHandler persists an order plus its items as one transactional
// insert: either the order and all of its items exist, or none do.
func CreateOrderHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CreateOrderRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		var order domain.Order
		err := db.Transaction(func(tx *gorm.DB) error {
			items, total, err := buildOrderItems(tx, req.Items)
			if err != nil {
				return err
			}
			order = domain.Order{
				UserID:     userID.(uint),             // Ordering user
				Status:     domain.OrderStatusPending, // Orders start pending
				TotalPrice: total,                     // Sum of snapshotted item prices
				Items:      items,                     // Items inserted with the order, carrying its ID
			}
			return tx.Create(&order).Error // Single insert for order and items
		})
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // Ordering user
				"error":   err.Error(), // Error message
			}).Error("Failed to create order") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
			return
		}
		// Drop all cached order listings
		_ = utils.InvalidatePrefix(context.Background(), rdb, "orders:")
		c.JSON(http.StatusCreated, gin.H{"order": order})
	}
}

// FetchFilteredOrdersHandler lists orders with status search, date range,
// pagination and sorting. Search maps onto the closed status enum only.
func FetchFilteredOrdersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := utils.ParseListFilters(c) // Common listing filters
		ctx := context.Background()
		cacheKey := "orders:" + c.Request.URL.RawQuery // One cache entry per query variant
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		query := db.Model(&domain.Order{})
		if filters.Search != "" {
			// A search term is an exact status match; anything else matches nothing
			status, _ := OrderStatusFromSearch(filters.Search)
			query = query.Where("status = ?", status)
		}
		query = filters.ApplyDateRange(query) // created_at bounds
		var total int64                       // Total matching rows
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
			return
		}
		var orders []domain.Order // Page of orders
		err := query.
			Preload("Items").
			Order(filters.SortClause(orderSortColumns)).
			Offset(filters.Offset).
			Limit(filters.Limit).
			Find(&orders).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		resp := gin.H{
			"orders":   orders,                   // Page of orders
			"limit":    filters.Limit,            // Page size
			"offset":   filters.Offset,           // Row offset
			"total":    total,                    // Total matching rows
			"next":     filters.HasNext(total),   // offset+limit < total
			"previous": filters.HasPrevious(),    // offset > 0
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, resp)
	}
}

// FetchSingleOrderHandler returns one order with its items
func FetchSingleOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("id")) // Order ID from the URL
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}
		var order domain.Order
		if err := db.Preload("Items").First(&order, orderID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// UpdateOrderHandler patches order scalars and full-replaces the item list
func UpdateOrderHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("id")) // Order ID from the URL
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}
		var req UpdateOrderRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		// A status patch must stay inside the enum
		if req.Status != nil && !validOrderStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
			return
		}
		var order domain.Order // The order being updated
		if err := db.First(&order, orderID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			// Apply scalar patches
			patch := map[string]any{}
			if req.Status != nil {
				patch["status"] = strings.ToLower(*req.Status)
			}
			if req.TotalPrice != nil {
				patch["total_price"] = *req.TotalPrice
			}
			if len(patch) > 0 {
				if err := tx.Model(&order).Updates(patch).Error; err != nil {
					return err
				}
			}
			// Full item replacement: delete all, recreate
			if err := tx.Where("order_id = ?", order.ID).Delete(&domain.OrderItem{}).Error; err != nil {
				return err
			}
			if len(req.Items) == 0 {
				return nil // Mirrors cart semantics: no items clears the list
			}
			items, _, err := buildOrderItems(tx, req.Items)
			if err != nil {
				return err
			}
			for i := range items {
				items[i].OrderID = order.ID // Children carry the parent ID up front
			}
			return tx.Create(&items).Error
		})
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"order_id": order.ID,    // Order being updated
				"error":    err.Error(), // Error message
			}).Error("Failed to update order") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
			return
		}
		// Drop all cached order listings
		_ = utils.InvalidatePrefix(context.Background(), rdb, "orders:")
		var updated domain.Order // Reload with items
		if err := db.Preload("Items").First(&updated, order.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteOrderHandler hard-deletes an order and its items
func DeleteOrderHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("id")) // Order ID from the URL
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}
		var order domain.Order // The order being deleted
		if err := db.First(&order, orderID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		// Ordered transactional delete: items first, then the order row
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("order_id = ?", order.ID).Delete(&domain.OrderItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&domain.Order{}, order.ID).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id": order.ID,    // Order being deleted
				"error":    err.Error(), // Error message
			}).Error("Failed to delete order") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete order"})
			return
		}
		// Drop all cached order listings
		_ = utils.InvalidatePrefix(context.Background(), rdb, "orders:")
		c.Status(http.StatusNoContent) // Nothing to return
	}
}
