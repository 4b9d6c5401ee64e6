package middleware

import (
	"net/http"                          // HTTP status codes
	"strings"                           // String manipulation
	"marketplace_system/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/google/uuid"   // Guest session identifiers
)

// CartSessionCookie is the cookie carrying a guest's cart session identifier
const CartSessionCookie = "cart_session"

// cartSessionMaxAge is the guest session cookie lifetime in seconds (30 days)
const cartSessionMaxAge = 30 * 24 * 60 * 60

// PrincipalMiddleware resolves the acting principal for session-bound routes.
// A request operates as exactly one of authenticated user or guest session:
// a present bearer token must be valid (no guest fallback on a bad token),
// and a guest without a session cookie gets a fresh one before proceeding.
func PrincipalMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		if authHeader != "" {
			// A bearer token is present: it must be valid, never fall back to guest
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
			claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
			if err != nil {
				// Invalid or expired token is a hard failure
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			c.Set("userID", claims.UserID) // Authenticated principal
			c.Next()                       // Proceed to the next handler
			return
		}
		// No bearer token: operate as a guest session
		sessionID, err := c.Cookie(CartSessionCookie)
		if err != nil || sessionID == "" {
			// Establish a fresh session identifier before proceeding
			sessionID = uuid.NewString()
			c.SetCookie(CartSessionCookie, sessionID, cartSessionMaxAge, "/", "", false, true)
		}
		c.Set("sessionID", sessionID) // Guest principal
		c.Next()                      // Proceed to the next handler
	}
}

// Principal returns the resolved identity for the current request: the
// authenticated user ID, or the guest session ID when unauthenticated.
func Principal(c *gin.Context) (userID uint, sessionID string, authenticated bool) {
	if v, exists := c.Get("userID"); exists {
		return v.(uint), "", true // Authenticated user
	}
	if v, exists := c.Get("sessionID"); exists {
		return 0, v.(string), false // Guest session
	}
	return 0, "", false // No principal resolved
}
