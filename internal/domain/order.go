package domain

import "time"

// Order statuses
const (
	OrderStatusPending   = "pending"   // Order placed, awaiting fulfilment
	OrderStatusDelivered = "delivered" // Customer received the order
	OrderStatusCancelled = "cancelled" // Order cancelled
)

// Order Model (snapshot of a completed cart)
type Order struct {
	ID         uint        `gorm:"primaryKey" json:"id"`   // Primary key
	UserID     uint        `gorm:"index" json:"user_id"`   // Foreign key to the ordering User
	Status     string      `gorm:"type:VARCHAR(20);default:'pending'" json:"status"` // pending, delivered or cancelled
	TotalPrice float64     `json:"total_price"`            // Order total in major currency units
	Items      []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"` // Order line items
	CreatedAt  time.Time   `json:"created_at"`             // Timestamp of creation
}

// OrderItem Model. Price is snapshotted from the product at order-creation
// time so later product price changes cannot drift historical orders.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`       // Primary key
	OrderID   uint    `gorm:"index" json:"order_id"`      // Foreign key to Order
	ProductID uint    `gorm:"not null" json:"product_id"` // Foreign key to Product
	StoreID   uint    `gorm:"index" json:"store_id"`      // Store that owns the product
	Quantity  int     `gorm:"not null;default:1" json:"quantity"` // Quantity ordered
	Price     float64 `json:"price"`                      // Unit price frozen at order creation
}
