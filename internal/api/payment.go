package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // Amount and ID parsing
	"time"     // Cache TTL

	"marketplace_system/internal/domain"   // Importing domain models
	"marketplace_system/internal/paystack" // Gateway client
	"marketplace_system/internal/utils"    // Cache and filter helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/clause"          // Upsert clauses
)

// paymentSortColumns whitelists the sortable payment columns
var paymentSortColumns = map[string]bool{
	"created_at": true,
	"amount":     true,
	"status":     true,
	"id":         true,
}

// PaymentDataInput carries the gateway-facing fields of an initialisation.
// Amount is a string of integer minor currency units, exactly what the
// gateway expects.
type PaymentDataInput struct {
	Email    string   `json:"email" binding:"required,email"` // Payer email
	Amount   string   `json:"amount" binding:"required"`      // Amount in minor units
	Currency string   `json:"currency"`                       // ISO currency code
	Channels []string `json:"channels"`                       // Allowed payment channels
}

// InitialisePaymentRequest is the POST /api/payment/initialise payload
type InitialisePaymentRequest struct {
	PaymentData PaymentDataInput `json:"paymentData" binding:"required"` // Gateway-facing fields
	UserID      uint             `json:"userId" binding:"required"`      // Paying user
	StoreID     uint             `json:"storeId" binding:"required"`     // Receiving store
	OrderID     uint             `json:"orderId" binding:"required"`     // Order being paid
}

// InitialisePaymentHandler creates a transaction intent with the gateway and
// persists a pending Payment plus its gateway-mirror record. The gateway is
// called with minor units; the local Payment stores major units (amount/100).
// Preserving that boundary exactly avoids 100x accounting errors.
func InitialisePaymentHandler(db *gorm.DB, rdb *redis.Client, gateway *paystack.Client, callbackURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitialisePaymentRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		// The minor-unit amount must be a number
		minorUnits, err := strconv.ParseFloat(req.PaymentData.Amount, 64)
		if err != nil || minorUnits <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Create the transaction intent with the gateway, in minor units
		intent, err := gateway.InitializeTransaction(paystack.InitializeRequest{
			Email:       req.PaymentData.Email,    // Payer email
			Amount:      req.PaymentData.Amount,   // Minor units, untouched
			Currency:    req.PaymentData.Currency, // ISO currency code
			Channels:    req.PaymentData.Channels, // Allowed channels
			CallbackURL: callbackURL,              // Post-checkout redirect
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id": req.OrderID, // Order being paid
				"error":    err.Error(), // Gateway message
			}).Error("Failed to initialise payment") // Log gateway failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var payment domain.Payment
		// Persist the pending payment plus its mirror in one transaction
		err = db.Transaction(func(tx *gorm.DB) error {
			payment = domain.Payment{
				OrderID:   req.OrderID,                 // Order being paid
				UserID:    req.UserID,                  // Paying user
				StoreID:   req.StoreID,                 // Receiving store
				Amount:    minorUnits / 100,            // Stored in major units
				Currency:  req.PaymentData.Currency,    // ISO currency code
				Reference: intent.Reference,            // Gateway-assigned reference
				Status:    domain.PaymentStatusPending, // Pending until settled
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			// Mirror record keyed by the gateway reference
			mirror := domain.PaystackTransaction{
				PaymentID: payment.ID,                  // Link to the payment
				Reference: intent.Reference,            // Gateway reference
				Status:    domain.PaymentStatusPending, // Not yet settled
				Amount:    int64(minorUnits),           // Gateway's minor units
			}
			return tx.Create(&mirror).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id":  req.OrderID,      // Order being paid
				"reference": intent.Reference, // Gateway reference
				"error":     err.Error(),      // Error message
			}).Error("Failed to persist payment") // Log persistence failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to initialise payment"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"payment_id": payment.ID,       // New payment
			"reference":  intent.Reference, // Gateway reference
			"amount":     payment.Amount,   // Major units
		}).Info("Payment initialised") // Log success
		// The client redirects the payer to the gateway's hosted checkout
		c.JSON(http.StatusCreated, gin.H{
			"payment":     payment,                // Pending payment row
			"redirectUrl": intent.AuthorizationURL, // Hosted checkout URL
			"accessCode":  intent.AccessCode,      // Checkout access code
		})
	}
}

// applyGatewayState upserts the mirror record with the gateway's payload,
// keyed on the unique reference so replays cannot create duplicate rows.
func applyGatewayState(tx *gorm.DB, payment *domain.Payment, gatewayTx *paystack.Transaction, rawPayload []byte) error {
	mirror := domain.PaystackTransaction{
		PaymentID:       payment.ID,                // Link to the payment
		TransactionID:   gatewayTx.ID,              // Gateway's numeric ID
		Reference:       gatewayTx.Reference,       // Gateway reference
		Status:          gatewayTx.Status,          // Gateway-reported status
		Amount:          gatewayTx.Amount,          // Minor units
		Channel:         gatewayTx.Channel,         // Payment channel
		PaidAt:          gatewayTx.PaidAt,          // Settlement time, may be nil
		GatewayResponse: string(rawPayload),        // Full raw payload for audit
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "reference"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"transaction_id", "status", "amount", "channel", "paid_at", "gateway_response",
		}),
	}).Create(&mirror).Error
}

// VerifyPaymentHandler actively polls the gateway for a transaction's state.
// The mirror is always refreshed; the Payment row is only mutated once the
// gateway reports a settlement timestamp.
func VerifyPaymentHandler(db *gorm.DB, rdb *redis.Client, gateway *paystack.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Param("reference") // Gateway reference from the URL
		var payment domain.Payment        // The local payment for this reference
		if err := db.Where("reference = ?", reference).First(&payment).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		// Poll the gateway for the transaction's current state
		gatewayTx, rawPayload, err := gateway.VerifyTransaction(reference)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// Refresh the mirror regardless of settlement state
		if err := db.Transaction(func(tx *gorm.DB) error {
			return applyGatewayState(tx, &payment, gatewayTx, rawPayload)
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to verify payment"})
			return
		}
		if gatewayTx.PaidAt == nil {
			// Not settled yet: report without touching the Payment row
			c.JSON(http.StatusOK, gin.H{
				"success": false,                     // Not settled
				"message": "Transaction not yet paid", // Gateway has no paid_at
				"data":    gatewayTx,                 // Current gateway view
			})
			return
		}
		// Settled: mark the payment paid
		err = db.Model(&payment).Updates(map[string]any{
			"paid_at":        gatewayTx.PaidAt,            // Settlement timestamp
			"status":         domain.PaymentStatusSuccess, // Settled
			"payment_method": gatewayTx.Channel,           // Gateway channel
		}).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to verify payment"})
			return
		}
		// Invalidate cached payment listings
		_ = utils.InvalidatePrefix(context.Background(), rdb, "payments:")
		var updated domain.Payment // Reload the settled payment
		if err := db.First(&updated, payment.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to verify payment"})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// AdminVerifyPaymentHandler reports the gateway's view of a transaction
// without mutating any local state.
func AdminVerifyPaymentHandler(gateway *paystack.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Param("reference") // Gateway reference from the URL
		gatewayTx, _, err := gateway.VerifyTransaction(reference)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if gatewayTx.PaidAt == nil {
			c.JSON(http.StatusOK, gin.H{
				"success": false,                      // Not settled
				"message": "Transaction not yet paid", // Gateway has no paid_at
				"data":    gatewayTx,                  // Current gateway view
			})
			return
		}
		c.JSON(http.StatusOK, gatewayTx)
	}
}

// ListPaymentsHandler returns every local payment row
func ListPaymentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payments []domain.Payment
		if err := db.Order("created_at desc").Find(&payments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch payment details"})
			return
		}
		c.JSON(http.StatusOK, payments)
	}
}

// fetchPaymentsBy lists payments filtered by one foreign-key column with the
// shared pagination envelope.
func fetchPaymentsBy(db *gorm.DB, rdb *redis.Client, column string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id")) // Key value from the URL
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
			return
		}
		filters := utils.ParseListFilters(c) // Common listing filters
		ctx := context.Background()
		cacheKey := "payments:" + column + ":" + strconv.Itoa(id) + ":" + c.Request.URL.RawQuery
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		query := filters.ApplyDateRange(db.Model(&domain.Payment{}).Where(column+" = ?", id))
		var total int64 // Total matching rows
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch payment details"})
			return
		}
		var payments []domain.Payment // Page of payments
		err = query.
			Order(filters.SortClause(paymentSortColumns)).
			Offset(filters.Offset).
			Limit(filters.Limit).
			Find(&payments).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch payment details"})
			return
		}
		resp := gin.H{
			"payments": payments,               // Page of payments
			"limit":    filters.Limit,          // Page size
			"offset":   filters.Offset,         // Row offset
			"total":    total,                  // Total matching rows
			"next":     filters.HasNext(total), // offset+limit < total
			"previous": filters.HasPrevious(),  // offset > 0
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache for 60 seconds
		c.JSON(http.StatusOK, resp)
	}
}

// FetchPaymentsByUserHandler lists a user's payments, paginated
func FetchPaymentsByUserHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return fetchPaymentsBy(db, rdb, "user_id")
}

// FetchPaymentsByStoreHandler lists a store's payments, paginated
func FetchPaymentsByStoreHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return fetchPaymentsBy(db, rdb, "store_id")
}

// FetchPaymentsByOrderHandler lists the payments linked to an order
func FetchPaymentsByOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("id")) // Order ID from the URL
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}
		var payments []domain.Payment
		if err := db.Where("order_id = ?", orderID).Find(&payments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to fetch payment details"})
			return
		}
		c.JSON(http.StatusOK, payments)
	}
}

// FetchPaymentByIDHandler returns one payment with its gateway mirror
func FetchPaymentByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID, err := strconv.Atoi(c.Param("id")) // Payment ID from the URL
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment id"})
			return
		}
		var payment domain.Payment
		if err := db.First(&payment, paymentID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		// The mirror is keyed 1:1 by the gateway reference
		var mirror domain.PaystackTransaction
		if err := db.Where("reference = ?", payment.Reference).First(&mirror).Error; err != nil {
			// A payment without a mirror is still reportable
			c.JSON(http.StatusOK, gin.H{"payment": payment})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"payment":             payment, // Local payment row
			"paystackTransaction": mirror,  // Gateway mirror record
		})
	}
}
