package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // Cache key formatting
	"time"     // Cache TTL

	"marketplace_system/internal/domain"     // Importing domain models
	"marketplace_system/internal/middleware" // Principal resolution
	"marketplace_system/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/clause"          // Upsert clauses
)

// CartItemInput is one incoming cart line item
type CartItemInput struct {
	ProductID uint `json:"productId" binding:"required"`    // Referenced product
	StoreID   uint `json:"storeId"`                         // Owning store, validated explicitly below
	Quantity  int  `json:"quantity" binding:"required,min=1"` // Quantity, at least 1
}

// AddToCartRequest is the POST /api/cart payload
type AddToCartRequest struct {
	Items      []CartItemInput `json:"items" binding:"required,min=1,dive"` // Line items to place in the cart
	TotalPrice float64         `json:"totalPrice"`                          // Caller-supplied cart total
}

// UpdateCartRequest is the PUT /api/cart/:id payload. Omitting items (or
// sending an empty list) clears every store group from the cart.
type UpdateCartRequest struct {
	TotalPrice *float64        `json:"totalPrice"` // Optional scalar patch
	Items      []CartItemInput `json:"items"`      // Replacement item set, may be empty
}

// GroupItemsByStore partitions incoming items by the store that owns each
// product. The grouping key is always the store ID; every group holds only
// its own store's items and is never empty.
func GroupItemsByStore(items []CartItemInput) map[uint][]CartItemInput {
	groups := make(map[uint][]CartItemInput)
	for _, item := range items {
		groups[item.StoreID] = append(groups[item.StoreID], item)
	}
	return groups
}

// validateStoreIDs rejects any item without a store ID. An item with no
// store cannot be partitioned and is a hard input error, never dropped.
func validateStoreIDs(items []CartItemInput) bool {
	for _, item := range items {
		if item.StoreID == 0 {
			return false
		}
	}
	return true
}

// cartCacheKey builds the redis key for a cart's owner
func cartCacheKey(cart *domain.Cart) string {
	if cart.UserID != nil {
		return "cart:user:" + strconv.Itoa(int(*cart.UserID))
	}
	if cart.SessionID != nil {
		return "cart:session:" + *cart.SessionID
	}
	return "cart:id:" + strconv.Itoa(int(cart.ID))
}

// loadCart fetches a cart with groups, stores, items and products preloaded
func loadCart(db *gorm.DB, cartID uint) (*domain.Cart, error) {
	var cart domain.Cart
	err := db.
		Preload("StoreGroups.Store").
		Preload("StoreGroups.Items.Product").
		First(&cart, cartID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// upsertCart atomically finds-or-creates the cart for a principal, keyed on
// the unique user_id or session_id column, and patches the total price.
func upsertCart(tx *gorm.DB, userID uint, sessionID string, totalPrice float64) (*domain.Cart, error) {
	cart := domain.Cart{TotalPrice: totalPrice}
	conflictColumn := "session_id" // Guest carts conflict on the session key
	if userID != 0 {
		cart.UserID = &userID // Authenticated principal owns the cart
		conflictColumn = "user_id"
	} else {
		cart.SessionID = &sessionID // Guest session owns the cart
	}
	// Atomic upsert keyed on the unique ownership column, never find-then-create
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: conflictColumn}},
		DoUpdates: clause.Assignments(map[string]any{"total_price": totalPrice}),
	}).Create(&cart).Error
	if err != nil {
		return nil, err
	}
	// Re-fetch by the ownership key: the upsert does not reliably report the
	// surviving row's ID on the conflict path.
	var out domain.Cart
	if userID != 0 {
		err = tx.Where("user_id = ?", userID).First(&out).Error
	} else {
		err = tx.Where("session_id = ?", sessionID).First(&out).Error
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// replaceGroupItems finds-or-creates the store group for (cart, store) and
// wholesale-replaces its items: delete all, recreate from the incoming set.
func replaceGroupItems(tx *gorm.DB, cartID, storeID uint, items []CartItemInput, prices map[uint]float64) error {
	group := domain.CartStoreGroup{CartID: cartID, StoreID: storeID}
	// Atomic find-or-create on the unique (cart_id, store_id) pair
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "store_id"}},
		DoNothing: true,
	}).Create(&group).Error
	if err != nil {
		return err
	}
	// Re-fetch to get the surviving group's ID
	if err := tx.Where("cart_id = ? AND store_id = ?", cartID, storeID).First(&group).Error; err != nil {
		return err
	}
	// Full-replace semantics: the previous items for this store are discarded
	if err := tx.Where("group_id = ?", group.ID).Delete(&domain.CartItem{}).Error; err != nil {
		return err
	}
	rows := make([]domain.CartItem, len(items))
	for i, item := range items {
		rows[i] = domain.CartItem{
			GroupID:   group.ID,               // Parent group
			ProductID: item.ProductID,         // Referenced product
			Quantity:  item.Quantity,          // Requested quantity
			Price:     prices[item.ProductID], // Unit price at add time
		}
	}
	return tx.Create(&rows).Error
}

// fetchProductPrices loads the current unit price for every referenced
// product, failing when a product does not exist.
func fetchProductPrices(tx *gorm.DB, items []CartItemInput) (map[uint]float64, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	var products []domain.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	prices := make(map[uint]float64, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}
	for _, item := range items {
		if _, ok := prices[item.ProductID]; !ok {
			return nil, gorm.ErrRecordNotFound // Referenced product missing
		}
	}
	return prices, nil
}

// AddToCartHandler creates or replaces the principal's cart contents,
// partitioned into per-store groups.
func AddToCartHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, authenticated := middleware.Principal(c) // Resolve the acting principal
		// A principal is required for any cart access
		if !authenticated && sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req AddToCartRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		// Every item must carry the store that owns its product
		if !validateStoreIDs(req.Items) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Each cart item must have a storeId"})
			return
		}
		var cartID uint
		// One logical operation: upsert cart, then replace each store group
		err := db.Transaction(func(tx *gorm.DB) error {
			cart, err := upsertCart(tx, userID, sessionID, req.TotalPrice)
			if err != nil {
				return err
			}
			cartID = cart.ID
			prices, err := fetchProductPrices(tx, req.Items)
			if err != nil {
				return err
			}
			// Partition incoming items by store and full-replace per group
			for storeID, items := range GroupItemsByStore(req.Items) {
				if err := replaceGroupItems(tx, cart.ID, storeID, items, prices); err != nil {
					return err
				}
			}
			return nil // Commit transaction
		})
		if err != nil {
			// A missing product is the caller's error
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"user_id":    userID,      // Acting user, 0 for guests
				"session_id": sessionID,   // Guest session, empty for users
				"error":      err.Error(), // Error message
			}).Error("Failed to add to cart") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to cart"})
			return
		}
		cart, err := loadCart(db, cartID) // Reload with nested relations
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		// Invalidate the cached cart for this principal
		_ = utils.DeleteCache(context.Background(), rdb, cartCacheKey(cart))
		c.JSON(http.StatusCreated, cart) // Return the cart with nested groups
	}
}

// GetCartHandler returns the principal's cart with nested groups and items
func GetCartHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, authenticated := middleware.Principal(c) // Resolve the acting principal
		if !authenticated && sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()
		cacheKey := "cart:session:" + sessionID
		if authenticated {
			cacheKey = "cart:user:" + strconv.Itoa(int(userID))
		}
		var cached domain.Cart
		// Try the cache first
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		// Not cached: fetch the cart keyed by the principal
		var cart domain.Cart
		query := db.Preload("StoreGroups.Store").Preload("StoreGroups.Items.Product")
		var err error
		if authenticated {
			err = query.Where("user_id = ?", userID).First(&cart).Error
		} else {
			err = query.Where("session_id = ?", sessionID).First(&cart).Error
		}
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, cart, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, cart)
	}
}

// UpdateCartHandler patches cart scalars and reconciles the store groups
// against the incoming item set. An omitted or empty item list clears every
// group from the cart; this destructive semantics is intentional.
func UpdateCartHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartID, err := strconv.Atoi(c.Param("id")) // Cart ID from the URL
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart id"})
			return
		}
		var req UpdateCartRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		// Items present: each must carry a store ID
		if len(req.Items) > 0 && !validateStoreIDs(req.Items) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Each cart item must have a storeId"})
			return
		}
		var cart domain.Cart // The cart being updated
		if err := db.First(&cart, cartID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			// Apply the scalar patch
			if req.TotalPrice != nil {
				if err := tx.Model(&cart).Update("total_price", *req.TotalPrice).Error; err != nil {
					return err
				}
			}
			if len(req.Items) == 0 {
				// Destructive clear: no items means drop every group and item
				return clearCartGroups(tx, cart.ID)
			}
			// Drop groups whose store is no longer represented
			incoming := GroupItemsByStore(req.Items)
			var groups []domain.CartStoreGroup
			if err := tx.Where("cart_id = ?", cart.ID).Find(&groups).Error; err != nil {
				return err
			}
			for _, group := range groups {
				if _, keep := incoming[group.StoreID]; !keep {
					// Cascade: items first, then the group row
					if err := tx.Where("group_id = ?", group.ID).Delete(&domain.CartItem{}).Error; err != nil {
						return err
					}
					if err := tx.Delete(&domain.CartStoreGroup{}, group.ID).Error; err != nil {
						return err
					}
				}
			}
			prices, err := fetchProductPrices(tx, req.Items)
			if err != nil {
				return err
			}
			// Full-replace the represented groups
			for storeID, items := range incoming {
				if err := replaceGroupItems(tx, cart.ID, storeID, items, prices); err != nil {
					return err
				}
			}
			return nil // Commit transaction
		})
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"cart_id": cart.ID,     // Cart being updated
				"error":   err.Error(), // Error message
			}).Error("Failed to update cart") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}
		updated, err := loadCart(db, cart.ID) // Reload with nested relations
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, cartCacheKey(updated)) // Invalidate cache
		c.JSON(http.StatusOK, updated)
	}
}

// clearCartGroups deletes all of a cart's items and store groups, in order
func clearCartGroups(tx *gorm.DB, cartID uint) error {
	// Items first: children before parents, explicit ordered deletes
	err := tx.Where("group_id IN (?)",
		tx.Model(&domain.CartStoreGroup{}).Select("id").Where("cart_id = ?", cartID),
	).Delete(&domain.CartItem{}).Error
	if err != nil {
		return err
	}
	return tx.Where("cart_id = ?", cartID).Delete(&domain.CartStoreGroup{}).Error
}

// DeleteCartHandler removes a cart with all of its groups and items
func DeleteCartHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartID, err := strconv.Atoi(c.Param("id")) // Cart ID from the URL
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart id"})
			return
		}
		var cart domain.Cart // The cart being deleted
		if err := db.First(&cart, cartID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		// Ordered transactional delete: items, groups, then the cart row
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := clearCartGroups(tx, cart.ID); err != nil {
				return err
			}
			return tx.Delete(&domain.Cart{}, cart.ID).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"cart_id": cart.ID,     // Cart being deleted
				"error":   err.Error(), // Error message
			}).Error("Failed to delete cart") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete cart"})
			return
		}
		_ = utils.DeleteCache(context.Background(), rdb, cartCacheKey(&cart)) // Invalidate cache
		c.Status(http.StatusNoContent)                                        // Nothing to return
	}
}

// ReconcileGuestCart transfers ownership of a guest-session cart to a newly
// authenticated user: set userId, clear sessionId. It is a single ownership
// transfer, not a merge. When the user already owns a cart the guest cart is
// left untouched, since silently merging would hide price conflicts.
func ReconcileGuestCart(db *gorm.DB, userID uint, sessionID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var guestCart domain.Cart // The guest cart, if any
		if err := tx.Where("session_id = ?", sessionID).First(&guestCart).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil // No guest cart, nothing to reconcile
			}
			return err
		}
		// If the user already owns a cart, keep both as they are
		var existing int64
		if err := tx.Model(&domain.Cart{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			logrus.WithFields(logrus.Fields{
				"user_id":    userID,    // Authenticated user
				"session_id": sessionID, // Guest session left in place
			}).Warn("User already owns a cart, skipping guest cart transfer")
			return nil
		}
		// Ownership transfer: user XOR session, never both
		return tx.Model(&guestCart).Updates(map[string]any{
			"user_id":    userID, // Assign cart to the user
			"session_id": nil,    // No cart with this session ID remains
		}).Error
	})
}
