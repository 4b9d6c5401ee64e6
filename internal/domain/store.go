package domain

import "time"

// Store Model
type Store struct {
	ID        uint      `gorm:"primaryKey" json:"id"`       // Primary key
	UserID    uint      `gorm:"index" json:"user_id"`       // Foreign key to the owning vendor
	Name      string    `gorm:"not null" json:"name"`       // Store name
	Address   string    `json:"address"`                    // Physical address
	Logo      string    `json:"logo"`                       // Logo image URL
	Billboard string    `json:"billboard"`                  // Billboard image URL
	Category  string    `json:"category"`                   // Category tag
	Products  []Product `gorm:"foreignKey:StoreID" json:"products,omitempty"` // Products sold by the store
	CreatedAt time.Time `json:"created_at"`                 // Timestamp of creation
}
