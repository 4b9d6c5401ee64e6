package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace_system/internal/domain"
	"marketplace_system/internal/paystack"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "sk_webhook_test"

func webhookRouter(conn *gorm.DB) *gin.Engine {
	r := gin.New()
	r.POST("/webhook/paystack", PaystackWebhookHandler(conn, webhookSecret))
	return r
}

// postWebhook delivers a signed (or deliberately mis-signed) raw payload
func postWebhook(t *testing.T, r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/paystack", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// seedPendingPayment creates a pending payment with its gateway mirror
func seedPendingPayment(t *testing.T, conn *gorm.DB, reference string) domain.Payment {
	t.Helper()
	payment := domain.Payment{
		OrderID:   1,
		UserID:    1,
		StoreID:   1,
		Amount:    500,
		Currency:  "NGN",
		Reference: reference,
		Status:    domain.PaymentStatusPending,
	}
	require.NoError(t, conn.Create(&payment).Error)
	mirror := domain.PaystackTransaction{
		PaymentID: payment.ID,
		Reference: reference,
		Status:    domain.PaymentStatusPending,
		Amount:    50000,
	}
	require.NoError(t, conn.Create(&mirror).Error)
	return payment
}

func chargeSuccessBody(reference string, paidAt time.Time) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"id":77,"reference":%q,"status":"success","amount":50000,"channel":"card","paid_at":%q,"message":"Approved"}}`,
		reference, paidAt.Format(time.RFC3339)))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	conn := testDB(t)
	payment := seedPendingPayment(t, conn, "ref-sig")
	r := webhookRouter(conn)

	body := chargeSuccessBody("ref-sig", time.Now())
	valid := paystack.Signature(webhookSecret, body)

	// Flipping a single signature byte must reject the whole delivery
	mutated := []byte(valid)
	if mutated[0] == 'a' {
		mutated[0] = 'b'
	} else {
		mutated[0] = 'a'
	}
	w := postWebhook(t, r, body, string(mutated))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A valid signature over different bytes must also reject
	w = postWebhook(t, r, append(body, ' '), valid)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// No state was mutated on either rejection
	var stored domain.Payment
	require.NoError(t, conn.First(&stored, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
	var mirror domain.PaystackTransaction
	require.NoError(t, conn.Where("reference = ?", "ref-sig").First(&mirror).Error)
	assert.False(t, mirror.WebhookVerified)
}

func TestWebhookChargeSuccessSettles(t *testing.T) {
	conn := testDB(t)
	payment := seedPendingPayment(t, conn, "ref-ok")
	r := webhookRouter(conn)

	paidAt := time.Now().UTC().Truncate(time.Second)
	body := chargeSuccessBody("ref-ok", paidAt)
	signature := paystack.Signature(webhookSecret, body)

	w := postWebhook(t, r, body, signature)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored domain.Payment
	require.NoError(t, conn.First(&stored, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Status)
	assert.Equal(t, "card", stored.PaymentMethod)
	assert.Equal(t, "Approved", stored.Description)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.PaidAt.Equal(paidAt))

	var mirror domain.PaystackTransaction
	require.NoError(t, conn.Where("reference = ?", "ref-ok").First(&mirror).Error)
	assert.True(t, mirror.WebhookVerified)
	assert.Equal(t, signature, mirror.WebhookSignature)
	assert.Equal(t, int64(77), mirror.TransactionID)
	assert.NotNil(t, mirror.WebhookReceivedAt)
	assert.JSONEq(t, string(body), mirror.GatewayResponse)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	conn := testDB(t)
	payment := seedPendingPayment(t, conn, "ref-replay")
	r := webhookRouter(conn)

	paidAt := time.Now().UTC().Truncate(time.Second)
	body := chargeSuccessBody("ref-replay", paidAt)
	signature := paystack.Signature(webhookSecret, body)

	// Deliver the same event twice, as gateway retries do
	w := postWebhook(t, r, body, signature)
	require.Equal(t, http.StatusOK, w.Code)
	w = postWebhook(t, r, body, signature)
	require.Equal(t, http.StatusOK, w.Code)

	// Still exactly one payment and one mirror, settled once
	var payments, mirrors int64
	require.NoError(t, conn.Model(&domain.Payment{}).Count(&payments).Error)
	require.NoError(t, conn.Model(&domain.PaystackTransaction{}).Count(&mirrors).Error)
	assert.Equal(t, int64(1), payments)
	assert.Equal(t, int64(1), mirrors)

	var stored domain.Payment
	require.NoError(t, conn.First(&stored, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Status)
}

func TestWebhookUnknownReference(t *testing.T) {
	conn := testDB(t)
	r := webhookRouter(conn)

	body := chargeSuccessBody("ref-missing", time.Now())
	w := postWebhook(t, r, body, paystack.Signature(webhookSecret, body))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookChargeFailed(t *testing.T) {
	conn := testDB(t)
	payment := seedPendingPayment(t, conn, "ref-fail")
	r := webhookRouter(conn)

	body := []byte(`{"event":"charge.failed","data":{"reference":"ref-fail","status":"failed"}}`)
	w := postWebhook(t, r, body, paystack.Signature(webhookSecret, body))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The failure is acknowledged without mutating the payment
	var stored domain.Payment
	require.NoError(t, conn.First(&stored, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	conn := testDB(t)
	r := webhookRouter(conn)

	body := []byte(`{"event":"transfer.success","data":{}}`)
	w := postWebhook(t, r, body, paystack.Signature(webhookSecret, body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}
