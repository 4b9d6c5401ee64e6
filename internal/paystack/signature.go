package paystack

import (
	"crypto/hmac"   // HMAC computation and comparison
	"crypto/sha512" // SHA-512 hash
	"encoding/hex"  // Hex digest encoding
)

// Signature computes the hex HMAC-SHA512 of a webhook body using the secret
// key. It must be fed the raw request bytes: re-serializing a parsed payload
// can change the byte content and break verification.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret)) // HMAC-SHA512 with the shared secret
	mac.Write(body)                             // Over the raw body bytes
	return hex.EncodeToString(mac.Sum(nil))     // Hex digest, as Paystack sends it
}

// ValidSignature reports whether the x-paystack-signature header matches the
// HMAC of the raw body. Comparison is constant-time.
func ValidSignature(secret string, body []byte, signature string) bool {
	expected := Signature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
