package domain

import "time"

// Cart Model. A cart is owned by a user XOR a guest session: exactly one of
// UserID and SessionID is set, never both.
type Cart struct {
	ID          uint             `gorm:"primaryKey" json:"id"`          // Primary key
	UserID      *uint            `gorm:"uniqueIndex" json:"user_id"`    // Enforces ONE cart per user
	SessionID   *string          `gorm:"uniqueIndex;size:64" json:"session_id"` // Enforces ONE cart per guest session
	TotalPrice  float64          `json:"total_price"`                   // Caller-supplied cart total
	StoreGroups []CartStoreGroup `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"store_groups"` // Per-store partitions
	CreatedAt   time.Time        `json:"created_at"`                    // Timestamp of creation
	UpdatedAt   time.Time        `json:"updated_at"`                    // Timestamp of last update
}

// CartStoreGroup Model. At most one group per (cart, store) pair.
type CartStoreGroup struct {
	ID        uint       `gorm:"primaryKey" json:"id"`                                // Primary key
	CartID    uint       `gorm:"index;uniqueIndex:idx_cart_store" json:"cart_id"`     // Foreign key to Cart
	StoreID   uint       `gorm:"uniqueIndex:idx_cart_store" json:"store_id"`          // Foreign key to Store
	Store     Store      `gorm:"foreignKey:StoreID" json:"store"`                     // Store the group belongs to
	Items     []CartItem `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"items"` // Line items for this store
	CreatedAt time.Time  `json:"created_at"`                                          // Timestamp of creation
}

// CartItem Model
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`      // Primary key
	GroupID   uint      `gorm:"index" json:"group_id"`     // Foreign key to CartStoreGroup
	ProductID uint      `gorm:"not null" json:"product_id"` // Foreign key to Product
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"` // Referenced product
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`  // Quantity, must be >= 1
	Price     float64   `json:"price"`                     // Unit price at the time the item was added
	CreatedAt time.Time `json:"created_at"`                // Timestamp of creation
}
