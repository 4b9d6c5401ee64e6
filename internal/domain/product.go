package domain

import "time"

// Product categories
const (
	CategoryFood     = "FOOD"
	CategoryDrinks   = "DRINKS"
	CategoryGroceries = "GROCERIES"
	CategoryDesserts = "DESSERTS"
)

// Product Model
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`         // Primary key
	StoreID     uint      `gorm:"index;not null" json:"store_id"` // Foreign key to the owning Store
	Name        string    `gorm:"not null" json:"name"`         // Product name
	Description string    `json:"description"`                  // Product description
	Price       float64   `gorm:"not null" json:"price"`        // Unit price in major currency units, must be >= 0
	Stock       int       `gorm:"not null;default:0" json:"stock"` // Units in stock, must be >= 0
	Category    string    `json:"category"`                     // Category enum value
	Image       string    `json:"image"`                        // Image URL
	IsAvailable bool      `gorm:"default:true" json:"is_available"` // Availability flag
	IsFeatured  bool      `gorm:"default:false" json:"is_featured"` // Featured flag
	CreatedAt   time.Time `json:"created_at"`                   // Timestamp of creation
}
