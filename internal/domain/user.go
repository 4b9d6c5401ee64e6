package domain

import "time"

// User roles
const (
	RoleUser   = "USER"   // Ordinary customer
	RoleAdmin  = "ADMIN"  // Platform administrator
	RoleVendor = "VENDOR" // Store owner
)

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`         // Primary key
	Email     string    `gorm:"unique;not null" json:"email"` // Unique email address
	Password  string    `gorm:"not null" json:"-"`            // Hashed password, never serialized
	Name      string    `json:"name"`                         // Display name
	Avatar    string    `json:"avatar"`                       // Avatar image URL
	Role      string    `gorm:"default:USER" json:"role"`     // Role: USER, ADMIN or VENDOR
	Stores    []Store   `gorm:"foreignKey:UserID" json:"-"`   // Stores owned by a vendor
	Orders    []Order   `gorm:"foreignKey:UserID" json:"-"`   // Orders placed by the user
	Payments  []Payment `gorm:"foreignKey:UserID" json:"-"`   // Payments made by the user
	Tokens    []Token   `gorm:"foreignKey:UserID" json:"-"`   // Refresh tokens issued to the user
	CreatedAt time.Time `json:"created_at"`                   // Timestamp of creation
}
