package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/merchantgate/server/internal/utils/requestctx"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// APIKeyHeader is the header key for API key authentication.
	APIKeyHeader = "X-API-Key"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// MerchantKey is the context key for the authenticated merchant.
	MerchantKey = "merchant"
)

// Claims carries the identity extracted from a validated token.
type Claims struct {
	Merchant string
}

// TokenValidator validates bearer tokens issued by the token endpoint.
type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

// AuthEvents receives auth outcome notifications, normally backed by the
// metrics registry. Nil is allowed.
type AuthEvents interface {
	RecordAuthEvent(event string)
}

// APIKeyAuth returns a middleware that checks the X-API-Key header against a
// bcrypt hash of the accepted key. An empty hash disables the check so local
// development works without credentials.
func APIKeyAuth(keyHash string, events AuthEvents) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.Next()
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			record(events, "api_key_missing")
			abortUnauthorized(c, "UNAUTHORIZED", "API key required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			record(events, "api_key_rejected")
			abortUnauthorized(c, "INVALID_API_KEY", "Invalid API key")
			return
		}

		record(events, "api_key_accepted")
		c.Next()
	}
}

// BearerAuth returns a middleware that validates JWT bearer tokens. If
// optional is true, requests without a valid token pass through without an
// identity in the context.
func BearerAuth(validator TokenValidator, events AuthEvents, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			if !optional {
				record(events, "token_missing")
				abortUnauthorized(c, "UNAUTHORIZED", "Authorization header required")
				return
			}
			c.Next()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			if !optional {
				record(events, "token_rejected")
				abortUnauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
				return
			}
			c.Next()
			return
		}

		record(events, "token_accepted")
		c.Set(MerchantKey, claims.Merchant)
		c.Request = c.Request.WithContext(requestctx.WithMerchant(c.Request.Context(), claims.Merchant))
		c.Next()
	}
}

// RequireBearer returns a middleware that requires a valid bearer token.
func RequireBearer(validator TokenValidator, events AuthEvents) gin.HandlerFunc {
	return BearerAuth(validator, events, false)
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func record(events AuthEvents, event string) {
	if events != nil {
		events.RecordAuthEvent(event)
	}
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if strings.HasPrefix(authHeader, BearerPrefix) {
		return strings.TrimPrefix(authHeader, BearerPrefix)
	}
	return ""
}

// GetMerchant returns the authenticated merchant from context, or empty.
func GetMerchant(c *gin.Context) string {
	if val, exists := c.Get(MerchantKey); exists {
		if merchant, ok := val.(string); ok {
			return merchant
		}
	}
	return ""
}
