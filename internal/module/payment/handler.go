package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/merchantgate/server/internal/gateway"
	apperrors "github.com/merchantgate/server/internal/shared/errors"
	"github.com/merchantgate/server/internal/utils/pagination"
)

// Handler handles HTTP requests for gateway operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the gateway operation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	gateways := r.Group("/gateways")
	{
		gateways.GET("", h.ListGateways)
		gateways.POST("/:gateway/purchase", h.Purchase)
		gateways.POST("/:gateway/authorize", h.Authorize)
		gateways.POST("/:gateway/capture", h.Capture)
		gateways.POST("/:gateway/refund", h.Refund)
		gateways.POST("/:gateway/void", h.Void)
		gateways.POST("/:gateway/credit", h.Credit)
		gateways.POST("/:gateway/store", h.Store)
		gateways.POST("/:gateway/verify", h.Verify)
	}

	transactions := r.Group("/transactions")
	{
		transactions.GET("", h.ListTransactions)
		transactions.GET("/:id", h.GetTransaction)
		transactions.GET("/:id/transcript", h.GetTranscript)
	}
}

// ListGateways returns the registered gateway names.
func (h *Handler) ListGateways(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"gateways": h.service.ListGateways()})
}

// Purchase authorizes and captures in one step.
func (h *Handler) Purchase(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Purchase(c.Request.Context(), c.Param("gateway"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Authorize places a hold without capturing.
func (h *Handler) Authorize(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Authorize(c.Request.Context(), c.Param("gateway"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Capture settles a prior authorization.
func (h *Handler) Capture(c *gin.Context) {
	var req ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Capture(c.Request.Context(), c.Param("gateway"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Refund returns captured funds.
func (h *Handler) Refund(c *gin.Context) {
	var req ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Refund(c.Request.Context(), c.Param("gateway"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Void cancels a prior authorization.
func (h *Handler) Void(c *gin.Context) {
	var req ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Void(c.Request.Context(), c.Param("gateway"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Credit pushes funds to a payment source.
func (h *Handler) Credit(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Credit(c.Request.Context(), c.Param("gateway"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Store saves a payment source for later reuse.
func (h *Handler) Store(c *gin.Context) {
	var req SourceOnlyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Store(c.Request.Context(), c.Param("gateway"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Verify checks a payment source without moving funds.
func (h *Handler) Verify(c *gin.Context) {
	var req SourceOnlyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Verify(c.Request.Context(), c.Param("gateway"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTransaction returns a recorded transaction by ID.
func (h *Handler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	txn, err := h.service.GetTransaction(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// GetTranscript returns the scrubbed transcript archived for a transaction.
func (h *Handler) GetTranscript(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	transcript, err := h.service.GetTranscript(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(transcript))
}

// ListTransactions returns recorded transactions, newest first. Results can
// be narrowed by gateway and order_id query parameters.
func (h *Handler) ListTransactions(c *gin.Context) {
	page := pagination.New()
	if err := c.ShouldBindQuery(page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txns, total, err := h.service.ListTransactions(c.Request.Context(), TransactionFilter{
		Gateway: c.Query("gateway"),
		OrderID: c.Query("order_id"),
		Offset:  page.Offset(),
		Limit:   page.Limit(),
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"pagination":   page.Info(total),
	})
}

// --- Helpers ---

// handleServiceError maps service errors onto HTTP status codes. Declines
// never arrive here; they travel inside a Result.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gateway.ErrGatewayNotFound):
		appErr := apperrors.NotFound("gateway")
		c.JSON(appErr.StatusCode, apperrors.ErrorResponse{
			Error: apperrors.ErrorDetail{Code: appErr.Code, Message: appErr.Message},
		})
	case errors.Is(err, ErrTransactionNotFound):
		appErr := apperrors.NotFound("transaction")
		c.JSON(appErr.StatusCode, apperrors.ErrorResponse{
			Error: apperrors.ErrorDetail{Code: appErr.Code, Message: appErr.Message},
		})
	case errors.Is(err, ErrNoTranscript):
		appErr := apperrors.NotFound("transcript")
		c.JSON(appErr.StatusCode, apperrors.ErrorResponse{
			Error: apperrors.ErrorDetail{Code: appErr.Code, Message: appErr.Message},
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request cancelled"})
	default:
		// source/request construction problems are caller errors
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
