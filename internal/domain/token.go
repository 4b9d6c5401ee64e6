package domain

import "time"

// Token Model (refresh token record)
type Token struct {
	ID        uint      `gorm:"primaryKey" json:"id"`  // Primary key
	UserID    uint      `gorm:"index" json:"user_id"`  // Foreign key to User
	Token     string    `gorm:"unique" json:"token"`   // Signed refresh token string
	ExpiresIn int64     `json:"expires_in"`            // Lifetime in seconds
	CreatedAt time.Time `json:"created_at"`            // Timestamp of creation
}
