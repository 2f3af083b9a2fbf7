package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _ := newTestService(t, nil)
	handler := NewHandler(svc)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, svc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Purchase(t *testing.T) {
	router, _ := setupRouter(t)

	t.Run("approved purchase returns 200", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/purchase", validCardRequest(1000))
		require.Equal(t, http.StatusOK, w.Code)

		var result Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Response.Success)
		assert.NotEqual(t, uuid.Nil, result.TransactionID)
	})

	t.Run("decline still returns 200", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/purchase", validCardRequest(1010))
		require.Equal(t, http.StatusOK, w.Code)

		var result Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.False(t, result.Response.Success)
		assert.Equal(t, "insufficient_funds", string(result.Response.ErrorCode))
	})

	t.Run("unknown gateway returns 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/missing/purchase", validCardRequest(1000))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/gateways/bogus/purchase", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("zero amount reaches the gateway", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/authorize", validCardRequest(0))
		require.Equal(t, http.StatusOK, w.Code)

		var result Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Response.Success)
	})

	t.Run("negative amount returns 400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/purchase", validCardRequest(-100))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing amount returns 400", func(t *testing.T) {
		body := map[string]any{"source": validCardRequest(0).Source}
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/purchase", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_CaptureRefundVoid(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/authorize", validCardRequest(3000))
	require.Equal(t, http.StatusOK, w.Code)

	var auth Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	require.True(t, auth.Response.Success)

	t.Run("capture requires an authorization", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/capture", map[string]any{"amount": 3000})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("capture then refund", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/capture", map[string]any{
			"amount":        3000,
			"authorization": auth.Response.Authorization,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var capture Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &capture))
		assert.True(t, capture.Response.Success)

		w = doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/refund", map[string]any{
			"amount":        3000,
			"authorization": auth.Response.Authorization,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var refund Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refund))
		assert.True(t, refund.Response.Success)
	})

	t.Run("void of a refunded authorization declines", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/void", map[string]any{
			"authorization": auth.Response.Authorization,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var void Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &void))
		assert.False(t, void.Response.Success)
	})
}

func TestHandler_StoreAndVerify(t *testing.T) {
	router, _ := setupRouter(t)

	body := map[string]any{"source": validCardRequest(0).Source}

	w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/store", body)
	require.Equal(t, http.StatusOK, w.Code)

	var stored Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.True(t, stored.Response.Success)

	w = doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/verify", body)
	require.Equal(t, http.StatusOK, w.Code)

	var verified Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	assert.True(t, verified.Response.Success)
	assert.Len(t, verified.Response.Responses, 2)
}

func TestHandler_GetTransaction(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/purchase", validCardRequest(1000))
	require.Equal(t, http.StatusOK, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	t.Run("returns recorded transaction", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/transactions/"+result.TransactionID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var txn Transaction
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txn))
		assert.Equal(t, "bogus", txn.Gateway)
		assert.Equal(t, OperationPurchase, txn.Operation)
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/transactions/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/transactions/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_ListGateways(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/gateways", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Gateways []string `json:"gateways"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"bogus"}, body.Gateways)
}

func TestHandler_ListTransactions(t *testing.T) {
	router, _ := setupRouter(t)

	// Seed a few transactions through the API.
	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/purchase", validCardRequest(1000))
		require.Equal(t, http.StatusOK, w.Code)
	}

	t.Run("lists recorded transactions with pagination info", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/transactions", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Transactions []*Transaction `json:"transactions"`
			Pagination   struct {
				Page     int   `json:"page"`
				PageSize int   `json:"page_size"`
				Total    int64 `json:"total"`
			} `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Transactions, 3)
		assert.Equal(t, int64(3), resp.Pagination.Total)
		assert.Equal(t, 1, resp.Pagination.Page)
	})

	t.Run("page size limits results", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/transactions?page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Transactions []*Transaction `json:"transactions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Transactions, 2)
	})

	t.Run("filters by gateway", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/transactions?gateway=stripe", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Transactions []*Transaction `json:"transactions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Transactions)
	})
}

func TestHandler_GetTranscript(t *testing.T) {
	gin.SetMode(gin.TestMode)

	archive := newFakeArchive()
	svc, _ := newTestService(t, archive)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))

	w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/purchase", validCardRequest(900))
	require.Equal(t, http.StatusOK, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	t.Run("returns archived transcript", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/transactions/"+result.TransactionID.String()+"/transcript", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "bogus")
		assert.NotContains(t, w.Body.String(), "4242424242424242")
	})

	t.Run("unknown transaction returns 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/transactions/"+uuid.NewString()+"/transcript", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_GetTranscriptWithoutArchive(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/gateways/bogus/purchase", validCardRequest(900))
	require.Equal(t, http.StatusOK, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	w = doJSON(t, router, http.MethodGet, "/api/v1/transactions/"+result.TransactionID.String()+"/transcript", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
