package paystack

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	sig := Signature("secret", body)

	assert.True(t, ValidSignature("secret", body, sig))
	assert.False(t, ValidSignature("other", body, sig))
	assert.False(t, ValidSignature("secret", append(body, ' '), sig))
	assert.False(t, ValidSignature("secret", body, ""))
}

func TestInitializeTransaction(t *testing.T) {
	var gotAuth string
	var gotBody InitializeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"status":true,"message":"Authorization URL created","data":{"reference":"ref-1","access_code":"code-1","authorization_url":"https://checkout.example/ref-1"}}`)
	}))
	defer srv.Close()

	client := NewClient("sk_test_abc", srv.URL)
	intent, err := client.InitializeTransaction(InitializeRequest{
		Email:       "payer@example.com",
		Amount:      "50000",
		Currency:    "NGN",
		CallbackURL: "https://app.example/callback",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_abc", gotAuth)
	assert.Equal(t, "50000", gotBody.Amount)
	assert.Equal(t, "payer@example.com", gotBody.Email)
	assert.Equal(t, "ref-1", intent.Reference)
	assert.Equal(t, "code-1", intent.AccessCode)
	assert.Equal(t, "https://checkout.example/ref-1", intent.AuthorizationURL)
}

func TestVerifyTransactionReturnsRawPayload(t *testing.T) {
	payload := `{"id":77,"reference":"ref-1","status":"success","amount":50000,"channel":"card","paid_at":"2026-08-28T12:00:00Z"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/verify/ref-1", r.URL.Path)
		fmt.Fprintf(w, `{"status":true,"message":"Verification successful","data":%s}`, payload)
	}))
	defer srv.Close()

	client := NewClient("sk_test_abc", srv.URL)
	tx, raw, err := client.VerifyTransaction("ref-1")
	require.NoError(t, err)

	assert.Equal(t, int64(77), tx.ID)
	assert.Equal(t, "success", tx.Status)
	assert.Equal(t, int64(50000), tx.Amount)
	require.NotNil(t, tx.PaidAt)
	// The raw payload comes back untouched so it can be mirrored verbatim
	assert.JSONEq(t, payload, string(raw))
}

func TestCallSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":false,"message":"Invalid key"}`)
	}))
	defer srv.Close()

	client := NewClient("sk_bad", srv.URL)
	_, err := client.InitializeTransaction(InitializeRequest{Email: "x@example.com", Amount: "100"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid key")
	assert.Contains(t, err.Error(), "400")
}

func TestCallRejectsFalseStatusOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Some gateway failures arrive as HTTP 200 with status:false
		fmt.Fprint(w, `{"status":false,"message":"Transaction not found"}`)
	}))
	defer srv.Close()

	client := NewClient("sk_test", srv.URL)
	_, _, err := client.VerifyTransaction("ref-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transaction not found")
}
