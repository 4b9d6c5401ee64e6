package api

import (
	"encoding/json" // Event parsing
	"net/http"      // HTTP status codes
	"time"          // Webhook receipt timestamp

	"marketplace_system/internal/domain"   // Importing domain models
	"marketplace_system/internal/paystack" // Signature verification

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// SignatureHeader carries the gateway's hex HMAC-SHA512 of the raw body
const SignatureHeader = "x-paystack-signature"

// webhookEvent is the envelope of a gateway callback
type webhookEvent struct {
	Event string `json:"event"` // Event type, e.g. charge.success
	Data  struct {
		ID        int64      `json:"id"`        // Gateway transaction ID
		Reference string     `json:"reference"` // Gateway reference
		Status    string     `json:"status"`    // Gateway status
		Amount    int64      `json:"amount"`    // Minor units
		Channel   string     `json:"channel"`   // Payment channel
		PaidAt    *time.Time `json:"paid_at"`   // Settlement timestamp
		Message   string     `json:"message"`   // Gateway message
	} `json:"data"`
}

// PaystackWebhookHandler authenticates and applies inbound gateway callbacks.
// The HMAC check runs over the raw, unparsed body bytes: re-serializing a
// parsed payload can alter the byte content and break verification. The
// state transition is idempotent, so gateway retries and duplicate delivery
// cannot double-apply side effects.
func PaystackWebhookHandler(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData() // Raw body bytes, before any parsing
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read body"})
			return
		}
		signature := c.GetHeader(SignatureHeader) // Gateway's signature header
		// Reject on any mismatch, with no state mutation
		if !paystack.ValidSignature(secret, body, signature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid signature"})
			return
		}
		var event webhookEvent // Parse only after the signature checked out
		if err := json.Unmarshal(body, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}
		switch event.Event {
		case "charge.success":
			reference := event.Data.Reference // Settlement is keyed by reference
			var mirror domain.PaystackTransaction
			if err := db.Where("reference = ?", reference).First(&mirror).Error; err != nil {
				// Unknown reference: log and acknowledge with 404, never crash
				logrus.WithFields(logrus.Fields{
					"reference": reference, // Unmatched gateway reference
				}).Error("No matching transaction found for webhook")
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
			now := time.Now() // Webhook receipt time
			// Apply the settlement to the mirror and the linked payment as
			// one transaction. Replays overwrite the same fields with the
			// same values; only the receipt timestamp moves.
			err := db.Transaction(func(tx *gorm.DB) error {
				err := tx.Model(&mirror).Updates(map[string]any{
					"transaction_id":      event.Data.ID,      // Gateway's numeric ID
					"status":              event.Data.Status,  // Gateway status
					"amount":              event.Data.Amount,  // Minor units
					"channel":             event.Data.Channel, // Payment channel
					"paid_at":             event.Data.PaidAt,  // Settlement timestamp
					"gateway_response":    string(body),       // Full raw payload for audit
					"webhook_verified":    true,               // Confirmed by signed webhook
					"webhook_signature":   signature,          // Signature that verified
					"webhook_received_at": now,                // When this webhook arrived
				}).Error
				if err != nil {
					return err
				}
				// Settle the linked payment
				return tx.Model(&domain.Payment{}).Where("id = ?", mirror.PaymentID).Updates(map[string]any{
					"paid_at":        event.Data.PaidAt,           // Settlement timestamp
					"status":         domain.PaymentStatusSuccess, // Settled
					"payment_method": event.Data.Channel,          // Gateway channel
					"description":    event.Data.Message,          // Gateway message
				}).Error
			})
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"reference": reference,   // Gateway reference
					"error":     err.Error(), // Error message
				}).Error("Webhook handling error") // Log failure
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"reference":  reference,        // Gateway reference
				"payment_id": mirror.PaymentID, // Settled payment
			}).Info("Webhook settlement applied") // Log settlement
			c.JSON(http.StatusOK, gin.H{"status": "success"})
		case "charge.failed":
			// Acknowledge the failure; no Payment mutation
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction failed. Try again"})
		default:
			// Unknown event types are acknowledged, never rejected, to stay
			// forward-compatible with new gateway events.
			c.JSON(http.StatusOK, gin.H{"received": true})
		}
	}
}
