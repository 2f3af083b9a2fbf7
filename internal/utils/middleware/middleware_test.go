package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/merchantgate/server/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			requestID := GetRequestID(c)
			c.String(http.StatusOK, requestID)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		// Check response header
		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		// Check body matches header
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			requestID := GetRequestID(c)
			c.String(http.StatusOK, requestID)
		})

		existingID := "existing-request-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, existingID, w.Header().Get(RequestIDHeader))
		assert.Equal(t, existingID, w.Body.String())
	})
}

func TestGetRequestID(t *testing.T) {
	t.Run("returns empty string when not set", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		id := GetRequestID(c)
		assert.Empty(t, id)
	})

	t.Run("returns request ID when set", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(RequestIDKey, "test-id")
		id := GetRequestID(c)
		assert.Equal(t, "test-id", id)
	})
}

func TestLogging(t *testing.T) {
	t.Run("logs successful requests", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "info",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(RequestID())
		router.Use(Logging(log))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		logOutput := buf.String()
		assert.Contains(t, logOutput, "HTTP Request")
		assert.Contains(t, logOutput, "GET")
		assert.Contains(t, logOutput, "/test")
		assert.Contains(t, logOutput, "200")
	})

	t.Run("logs 4xx requests as warnings", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "warn",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(Logging(log))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusNotFound, "not found")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		logOutput := buf.String()
		assert.Contains(t, logOutput, "WARN")
		assert.Contains(t, logOutput, "404")
	})

	t.Run("logs 5xx requests as errors", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "error",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(Logging(log))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusInternalServerError, "error")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		logOutput := buf.String()
		assert.Contains(t, logOutput, "ERROR")
		assert.Contains(t, logOutput, "500")
	})

	t.Run("includes query parameters", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "info",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(Logging(log))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/test?foo=bar", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Contains(t, buf.String(), "foo=bar")
	})

	t.Run("includes user agent", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "info",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(Logging(log))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("User-Agent", "TestAgent/1.0")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Contains(t, buf.String(), "TestAgent/1.0")
	})
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{
			Level:  "error",
			Format: "json",
			Output: buf,
		})

		router := gin.New()
		router.Use(Recovery(log))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req := httptest.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		// Should not panic
		require.NotPanics(t, func() {
			router.ServeHTTP(w, req)
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")

		// Check logging
		logOutput := buf.String()
		assert.Contains(t, logOutput, "Panic recovered")
		assert.Contains(t, logOutput, "test panic")
	})

	t.Run("uses default logger when nil", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req := httptest.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		require.NotPanics(t, func() {
			router.ServeHTTP(w, req)
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCORS(t *testing.T) {
	t.Run("creates cors middleware without error", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		middleware := CORS(cfg)
		assert.NotNil(t, middleware)
	})

	t.Run("custom config creates middleware", func(t *testing.T) {
		cfg := CORSConfig{
			AllowOrigins: []string{"http://allowed.com"},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Content-Type"},
		}
		middleware := CORS(cfg)
		assert.NotNil(t, middleware)
	})
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "GET")
	assert.Contains(t, cfg.AllowMethods, "POST")
	assert.Contains(t, cfg.AllowMethods, "PUT")
	assert.Contains(t, cfg.AllowMethods, "DELETE")
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.Contains(t, cfg.AllowHeaders, "Content-Type")
	assert.False(t, cfg.AllowCredentials)
}

type fakeLimiter struct {
	allowed   bool
	remaining int
	err       error
}

func (f *fakeLimiter) Allow(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	return f.allowed, f.err
}

func (f *fakeLimiter) GetRemaining(_ context.Context, _ string, _ int, _ time.Duration) (int, error) {
	return f.remaining, nil
}

func TestRateLimit(t *testing.T) {
	newRouter := func(limiter RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(RateLimit(limiter, RateLimitConfig{Limit: 5, Window: time.Minute}))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("allows requests under the limit", func(t *testing.T) {
		router := newRouter(&fakeLimiter{allowed: true, remaining: 4})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get(RateLimitLimit))
		assert.Equal(t, "4", w.Header().Get(RateLimitRemaining))
	})

	t.Run("rejects requests over the limit", func(t *testing.T) {
		router := newRouter(&fakeLimiter{allowed: false, remaining: 0})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
		assert.Equal(t, "60", w.Header().Get(RetryAfter))
	})

	t.Run("fails open on limiter error", func(t *testing.T) {
		router := newRouter(&fakeLimiter{err: errors.New("redis down")})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("nil limiter disables the check", func(t *testing.T) {
		router := newRouter(nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

type authEventRecorder struct {
	events []string
}

func (r *authEventRecorder) RecordAuthEvent(event string) {
	r.events = append(r.events, event)
}

func TestAPIKeyAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	require.NoError(t, err)

	newRouter := func(keyHash string, events AuthEvents) *gin.Engine {
		router := gin.New()
		router.Use(APIKeyAuth(keyHash, events))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("accepts matching key", func(t *testing.T) {
		rec := &authEventRecorder{}
		router := newRouter(string(hash), rec)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(APIKeyHeader, "sekrit")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"api_key_accepted"}, rec.events)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		rec := &authEventRecorder{}
		router := newRouter(string(hash), rec)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(APIKeyHeader, "wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_API_KEY")
		assert.Equal(t, []string{"api_key_rejected"}, rec.events)
	})

	t.Run("rejects missing key", func(t *testing.T) {
		router := newRouter(string(hash), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("empty hash disables auth", func(t *testing.T) {
		router := newRouter("", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

type staticValidator struct {
	claims *Claims
	err    error
}

func (v *staticValidator) ValidateToken(string) (*Claims, error) {
	return v.claims, v.err
}

func TestBearerAuth(t *testing.T) {
	newRouter := func(validator TokenValidator, optional bool) *gin.Engine {
		router := gin.New()
		router.Use(BearerAuth(validator, nil, optional))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetMerchant(c))
		})
		return router
	}

	t.Run("valid token sets merchant", func(t *testing.T) {
		router := newRouter(&staticValidator{claims: &Claims{Merchant: "acme"}}, false)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(AuthorizationHeader, BearerPrefix+"token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "acme", w.Body.String())
	})

	t.Run("missing token rejected when required", func(t *testing.T) {
		router := newRouter(&staticValidator{}, false)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token rejected when required", func(t *testing.T) {
		router := newRouter(&staticValidator{err: errors.New("bad token")}, false)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(AuthorizationHeader, BearerPrefix+"token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("missing token passes when optional", func(t *testing.T) {
		router := newRouter(&staticValidator{}, true)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestIdempotencyRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(IdempotencyRequired())
	router.POST("/pay", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/list", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("post without key is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/pay", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "IDEMPOTENCY_KEY_REQUIRED")
	})

	t.Run("post with key passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/pay", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get needs no key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/list", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
