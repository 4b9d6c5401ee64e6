package api

import (
	"encoding/json"
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

// fakeGateway is a scripted Paystack endpoint. Each handler answers with the
// standard response envelope.
type fakeGateway struct {
	t             *testing.T
	initAmount    string // Last amount received by initialize
	verifyPayload string // The data payload verify responds with
}

func (f *fakeGateway) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/transaction/initialize", func(w http.ResponseWriter, r *http.Request) {
		var req paystack.InitializeRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.initAmount = req.Amount
		fmt.Fprint(w, `{"status":true,"message":"Authorization URL created","data":{"reference":"ref-abc","access_code":"code-1","authorization_url":"https://checkout.example/ref-abc"}}`)
	})
	mux.HandleFunc("/transaction/verify/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":true,"message":"Verification successful","data":%s}`, f.verifyPayload)
	})
	return httptest.NewServer(mux)
}

// paymentRouter wires the payment routes with a gateway pointed at the fake
func paymentRouter(conn *gorm.DB, gateway *paystack.Client) *gin.Engine {
	r := gin.New()
	rdb := testRedis()
	group := r.Group("/api/payment", authAs(1))
	group.POST("/initialise", InitialisePaymentHandler(conn, rdb, gateway, "https://app.example/callback"))
	group.GET("/verify/:reference", VerifyPaymentHandler(conn, rdb, gateway))
	group.GET("", ListPaymentsHandler(conn))
	group.GET("/user/:id", FetchPaymentsByUserHandler(conn, rdb))
	group.GET("/store/:id", FetchPaymentsByStoreHandler(conn, rdb))
	group.GET("/order/:id", FetchPaymentsByOrderHandler(conn))
	group.GET("/:id", FetchPaymentByIDHandler(conn))
	return r
}

func initialisePayment(t *testing.T, r *gin.Engine) domain.Payment {
	t.Helper()
	body := InitialisePaymentRequest{
		PaymentData: PaymentDataInput{
			Email:    "payer@example.com",
			Amount:   "50000", // Minor units: 500.00 in major units
			Currency: "NGN",
			Channels: []string{"card"},
		},
		UserID:  1,
		StoreID: 2,
		OrderID: 3,
	}
	w := doJSON(t, r, http.MethodPost, "/api/payment/initialise", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Payment     domain.Payment `json:"payment"`
		RedirectURL string         `json:"redirectUrl"`
		AccessCode  string         `json:"accessCode"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.example/ref-abc", resp.RedirectURL)
	assert.Equal(t, "code-1", resp.AccessCode)
	return resp.Payment
}

func TestInitialisePaymentUnitBoundary(t *testing.T) {
	conn := testDB(t)
	fake := &fakeGateway{t: t}
	srv := fake.server()
	defer srv.Close()
	r := paymentRouter(conn, paystack.NewClient("sk_test", srv.URL))

	payment := initialisePayment(t, r)

	// The gateway saw the untouched minor units; the local row holds major units
	assert.Equal(t, "50000", fake.initAmount)
	assert.Equal(t, float64(500), payment.Amount)
	assert.Equal(t, "ref-abc", payment.Reference)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)

	// The mirror record was created alongside, in minor units
	var mirror domain.PaystackTransaction
	require.NoError(t, conn.Where("reference = ?", "ref-abc").First(&mirror).Error)
	assert.Equal(t, payment.ID, mirror.PaymentID)
	assert.Equal(t, int64(50000), mirror.Amount)
	assert.Equal(t, domain.PaymentStatusPending, mirror.Status)
}

func TestInitialisePaymentRejectsBadAmount(t *testing.T) {
	conn := testDB(t)
	fake := &fakeGateway{t: t}
	srv := fake.server()
	defer srv.Close()
	r := paymentRouter(conn, paystack.NewClient("sk_test", srv.URL))

	body := InitialisePaymentRequest{
		PaymentData: PaymentDataInput{Email: "payer@example.com", Amount: "not-a-number"},
		UserID:      1,
		StoreID:     2,
		OrderID:     3,
	}
	w := doJSON(t, r, http.MethodPost, "/api/payment/initialise", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, conn.Model(&domain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestVerifyPaymentUnsettled(t *testing.T) {
	conn := testDB(t)
	fake := &fakeGateway{t: t}
	srv := fake.server()
	defer srv.Close()
	r := paymentRouter(conn, paystack.NewClient("sk_test", srv.URL))

	payment := initialisePayment(t, r)

	// The gateway has no paid_at yet
	fake.verifyPayload = `{"id":77,"reference":"ref-abc","status":"abandoned","amount":50000,"channel":"","paid_at":null}`
	w := doJSON(t, r, http.MethodGet, "/api/payment/verify/ref-abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Transaction not yet paid", resp.Message)

	// The mirror reflects the gateway view, the Payment stays pending
	var mirror domain.PaystackTransaction
	require.NoError(t, conn.Where("reference = ?", "ref-abc").First(&mirror).Error)
	assert.Equal(t, "abandoned", mirror.Status)
	assert.Equal(t, int64(77), mirror.TransactionID)

	var stored domain.Payment
	require.NoError(t, conn.First(&stored, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
	assert.Nil(t, stored.PaidAt)
}

func TestVerifyPaymentSettled(t *testing.T) {
	conn := testDB(t)
	fake := &fakeGateway{t: t}
	srv := fake.server()
	defer srv.Close()
	r := paymentRouter(conn, paystack.NewClient("sk_test", srv.URL))

	payment := initialisePayment(t, r)

	paidAt := time.Now().UTC().Truncate(time.Second)
	fake.verifyPayload = fmt.Sprintf(
		`{"id":77,"reference":"ref-abc","status":"success","amount":50000,"channel":"card","paid_at":%q}`,
		paidAt.Format(time.RFC3339))
	w := doJSON(t, r, http.MethodGet, "/api/payment/verify/ref-abc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored domain.Payment
	require.NoError(t, conn.First(&stored, payment.ID).Error)
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Status)
	assert.Equal(t, "card", stored.PaymentMethod)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, stored.PaidAt.Equal(paidAt))
}

func TestVerifyPaymentUnknownReference(t *testing.T) {
	conn := testDB(t)
	fake := &fakeGateway{t: t}
	srv := fake.server()
	defer srv.Close()
	r := paymentRouter(conn, paystack.NewClient("sk_test", srv.URL))

	w := doJSON(t, r, http.MethodGet, "/api/payment/verify/ref-none", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFetchPaymentByIDIncludesMirror(t *testing.T) {
	conn := testDB(t)
	fake := &fakeGateway{t: t}
	srv := fake.server()
	defer srv.Close()
	r := paymentRouter(conn, paystack.NewClient("sk_test", srv.URL))

	payment := initialisePayment(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/payment/"+itoa(payment.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Payment domain.Payment              `json:"payment"`
		Mirror  *domain.PaystackTransaction `json:"paystackTransaction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, payment.ID, resp.Payment.ID)
	require.NotNil(t, resp.Mirror)
	assert.Equal(t, "ref-abc", resp.Mirror.Reference)
}

func TestFetchPaymentsByForeignKeys(t *testing.T) {
	conn := testDB(t)
	fake := &fakeGateway{t: t}
	srv := fake.server()
	defer srv.Close()
	r := paymentRouter(conn, paystack.NewClient("sk_test", srv.URL))

	initialisePayment(t, r) // user 1, store 2, order 3

	type envelope struct {
		Payments []domain.Payment `json:"payments"`
		Total    int64            `json:"total"`
	}

	w := doJSON(t, r, http.MethodGet, "/api/payment/user/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	w = doJSON(t, r, http.MethodGet, "/api/payment/store/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	// A key with no payments yields an empty page, not an error
	w = doJSON(t, r, http.MethodGet, "/api/payment/user/42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(0), page.Total)
	assert.Empty(t, page.Payments)

	w = doJSON(t, r, http.MethodGet, "/api/payment/order/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payments []domain.Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payments))
	assert.Len(t, payments, 1)
}
