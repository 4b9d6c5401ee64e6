package paystack

import (
	"bytes"         // Request body buffer
	"encoding/json" // JSON encoding/decoding
	"fmt"           // Error formatting
	"io"            // Response body reading
	"net/http"      // HTTP client
	"strconv"       // ID formatting
	"time"          // Timestamps and client timeout
)

// DefaultBaseURL is the live Paystack API endpoint
const DefaultBaseURL = "https://api.paystack.co"

// Client is a thin REST client for the Paystack transaction API. All calls
// are bearer-authenticated with the server's secret key.
type Client struct {
	secret  string       // Server secret key, also the webhook HMAC key
	baseURL string       // API base URL, overridable for tests
	http    *http.Client // Underlying HTTP client
}

// NewClient creates a Paystack client for the given secret key
func NewClient(secret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL // Fall back to the live endpoint
	}
	return &Client{
		secret:  secret,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second}, // One gateway call is the longest block in the system
	}
}

// InitializeRequest is the payload for creating a transaction intent.
// Amount is a string of integer minor currency units, per the gateway API.
type InitializeRequest struct {
	Email       string   `json:"email"`                  // Payer email
	Amount      string   `json:"amount"`                 // Amount in minor units
	Currency    string   `json:"currency,omitempty"`     // ISO currency code
	Reference   string   `json:"reference,omitempty"`    // Optional caller-chosen reference
	CallbackURL string   `json:"callback_url,omitempty"` // Redirect after checkout
	Channels    []string `json:"channels,omitempty"`     // Allowed payment channels
}

// InitializeResponse carries the fields needed to redirect the payer
type InitializeResponse struct {
	Reference        string `json:"reference"`         // Gateway-assigned reference
	AccessCode       string `json:"access_code"`       // Checkout access code
	AuthorizationURL string `json:"authorization_url"` // Hosted checkout URL
}

// Transaction is the gateway's view of a transaction
type Transaction struct {
	ID              int64      `json:"id"`               // Gateway transaction ID
	Reference       string     `json:"reference"`        // Gateway reference
	Status          string     `json:"status"`           // e.g. success, failed, abandoned
	Amount          int64      `json:"amount"`           // Amount in minor units
	Currency        string     `json:"currency"`         // ISO currency code
	Channel         string     `json:"channel"`          // e.g. card, bank_transfer
	PaidAt          *time.Time `json:"paid_at"`          // Settlement time, nil until paid
	Message         string     `json:"message"`          // Gateway message
	GatewayResponse string     `json:"gateway_response"` // Processor response text
}

// envelope is the standard Paystack response wrapper
type envelope struct {
	Status  bool            `json:"status"`  // Call-level success flag
	Message string          `json:"message"` // Human-readable message
	Data    json.RawMessage `json:"data"`    // Endpoint-specific payload
}

// call performs one authenticated request and decodes the response envelope
func (c *Client) call(method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body) // Encode the request body
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader) // Build the request
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret) // Bearer auth with the secret key
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req) // Execute the call
	if err != nil {
		return nil, fmt.Errorf("failed to reach paystack: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body) // Read the full response
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to parse paystack response: %w", err)
	}
	// Surface the gateway's message on any failure
	if resp.StatusCode != http.StatusOK || !env.Status {
		return nil, fmt.Errorf("paystack error (%d): %s", resp.StatusCode, env.Message)
	}
	return &env, nil
}

// InitializeTransaction creates a transaction intent with the gateway
func (c *Client) InitializeTransaction(data InitializeRequest) (*InitializeResponse, error) {
	env, err := c.call(http.MethodPost, "/transaction/initialize", data)
	if err != nil {
		return nil, err
	}
	var out InitializeResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTransaction polls the gateway for the current state of a transaction.
// The raw data payload is returned alongside so it can be mirrored verbatim.
func (c *Client) VerifyTransaction(reference string) (*Transaction, []byte, error) {
	env, err := c.call(http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, nil, err
	}
	return &tx, env.Data, nil
}

// ListTransactions fetches the gateway's transaction list
func (c *Client) ListTransactions() ([]Transaction, error) {
	env, err := c.call(http.MethodGet, "/transaction", nil)
	if err != nil {
		return nil, err
	}
	var txs []Transaction
	if err := json.Unmarshal(env.Data, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// FetchTransactionByID fetches a single transaction by its gateway ID
func (c *Client) FetchTransactionByID(id int64) (*Transaction, error) {
	env, err := c.call(http.MethodGet, "/transaction/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
