package domain

import "time"

// Payment statuses
const (
	PaymentStatusPending = "pending" // Created locally, not yet settled
	PaymentStatusSuccess = "success" // Settlement confirmed by the gateway
	PaymentStatusFailed  = "failed"  // Gateway reported a failed charge
)

// Payment Model. Amount is stored in major currency units; the gateway is
// always called with integer minor units (amount * 100).
type Payment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`       // Primary key
	OrderID       uint       `gorm:"index" json:"order_id"`      // Foreign key to Order
	UserID        uint       `gorm:"index" json:"user_id"`       // Foreign key to the paying User
	StoreID       uint       `gorm:"index" json:"store_id"`      // Foreign key to the receiving Store
	Amount        float64    `json:"amount"`                     // Amount in major currency units
	Currency      string     `json:"currency"`                   // ISO currency code, e.g. NGN
	Reference     string     `gorm:"unique;not null" json:"reference"` // Gateway-assigned unique reference
	Status        string     `gorm:"type:VARCHAR(20);default:'pending'" json:"status"` // pending, success or failed
	PaidAt        *time.Time `json:"paid_at"`                    // Settlement timestamp, nil until settled
	PaymentMethod string     `json:"payment_method"`             // Gateway channel, e.g. card, bank_transfer
	Description   string     `json:"description"`                // Gateway message for the settlement
	CreatedAt     time.Time  `json:"created_at"`                 // Timestamp of creation
}

// PaystackTransaction Model (gateway-mirror record, 1:1 with Payment via
// Reference). Keeps the gateway's view auditable independently of Payment.
type PaystackTransaction struct {
	ID                uint       `gorm:"primaryKey" json:"id"`             // Primary key
	PaymentID         uint       `gorm:"index" json:"payment_id"`          // Foreign key to the linked Payment
	TransactionID     int64      `json:"transaction_id"`                   // Gateway's numeric transaction ID
	Reference         string     `gorm:"unique;not null" json:"reference"` // Gateway-assigned reference
	Status            string     `json:"status"`                           // Gateway transaction status
	Amount            int64      `json:"amount"`                           // Amount in minor currency units, as the gateway reports it
	Channel           string     `json:"channel"`                          // Payment channel reported by the gateway
	PaidAt            *time.Time `json:"paid_at"`                          // Gateway settlement timestamp
	GatewayResponse   string     `gorm:"type:TEXT" json:"gateway_response"` // Full raw gateway payload (JSON)
	WebhookVerified   bool       `gorm:"default:false" json:"webhook_verified"` // Set once a signed webhook confirmed the charge
	WebhookSignature  string     `json:"webhook_signature"`                // Signature header of the confirming webhook
	WebhookReceivedAt *time.Time `json:"webhook_received_at"`              // When the confirming webhook arrived
	CreatedAt         time.Time  `json:"created_at"`                       // Timestamp of creation
}
