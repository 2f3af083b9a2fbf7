package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchantgate/server/internal/gateway"
	"github.com/merchantgate/server/internal/shared/events"
	"github.com/merchantgate/server/internal/utils/metrics"
	"github.com/merchantgate/server/internal/utils/requestctx"
)

// TranscriptArchiver persists scrubbed operation transcripts. Implementations
// must not be handed unscrubbed material.
type TranscriptArchiver interface {
	Store(ctx context.Context, gatewayName, transactionID, transcript string) error
	Fetch(ctx context.Context, gatewayName, transactionID string) (string, error)
}

// ErrNoTranscript reports that a transaction has no archived transcript.
var ErrNoTranscript = errors.New("no transcript archived for transaction")

// Service executes gateway operations and records their outcomes.
type Service struct {
	repo     Repository
	registry *gateway.Registry
	archive  TranscriptArchiver // optional
	metrics  *metrics.Metrics   // optional
	bus      *events.Bus        // optional
	logger   *zap.Logger
}

// NewService creates a new payment service. archive, m and bus may be nil.
func NewService(repo Repository, registry *gateway.Registry, archive TranscriptArchiver, m *metrics.Metrics, bus *events.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		registry: registry,
		archive:  archive,
		metrics:  m,
		bus:      bus,
		logger:   logger,
	}
}

// Purchase authorizes and captures in one step.
func (s *Service) Purchase(ctx context.Context, gatewayName string, req *PaymentRequest) (*Result, error) {
	source, err := req.Source.ToSource()
	if err != nil {
		return nil, err
	}
	opts := req.Options.ToOptions()
	amount := req.amount()
	return s.execute(ctx, gatewayName, OperationPurchase, amount, opts, func(g gateway.Gateway) (*gateway.Response, error) {
		return g.Purchase(ctx, amount, source, opts)
	})
}

// Authorize places a hold without capturing.
func (s *Service) Authorize(ctx context.Context, gatewayName string, req *PaymentRequest) (*Result, error) {
	source, err := req.Source.ToSource()
	if err != nil {
		return nil, err
	}
	opts := req.Options.ToOptions()
	amount := req.amount()
	return s.execute(ctx, gatewayName, OperationAuthorize, amount, opts, func(g gateway.Gateway) (*gateway.Response, error) {
		return g.Authorize(ctx, amount, source, opts)
	})
}

// Capture settles a prior authorization.
func (s *Service) Capture(ctx context.Context, gatewayName string, req *ReferenceRequest) (*Result, error) {
	opts := req.Options.ToOptions()
	return s.execute(ctx, gatewayName, OperationCapture, req.Amount, opts, func(g gateway.Gateway) (*gateway.Response, error) {
		return g.Capture(ctx, req.Amount, req.Authorization, opts)
	})
}

// Refund returns captured funds.
func (s *Service) Refund(ctx context.Context, gatewayName string, req *ReferenceRequest) (*Result, error) {
	opts := req.Options.ToOptions()
	return s.execute(ctx, gatewayName, OperationRefund, req.Amount, opts, func(g gateway.Gateway) (*gateway.Response, error) {
		return g.Refund(ctx, req.Amount, req.Authorization, opts)
	})
}

// Void cancels a prior authorization before settlement.
func (s *Service) Void(ctx context.Context, gatewayName string, req *ReferenceRequest) (*Result, error) {
	opts := req.Options.ToOptions()
	return s.execute(ctx, gatewayName, OperationVoid, 0, opts, func(g gateway.Gateway) (*gateway.Response, error) {
		return g.Void(ctx, req.Authorization, opts)
	})
}

// Credit pushes funds to a payment source with no prior transaction.
func (s *Service) Credit(ctx context.Context, gatewayName string, req *PaymentRequest) (*Result, error) {
	source, err := req.Source.ToSource()
	if err != nil {
		return nil, err
	}
	opts := req.Options.ToOptions()
	amount := req.amount()
	return s.execute(ctx, gatewayName, OperationCredit, amount, opts, func(g gateway.Gateway) (*gateway.Response, error) {
		return g.Credit(ctx, amount, source, opts)
	})
}

// Store saves a payment source with the gateway for later reuse.
func (s *Service) Store(ctx context.Context, gatewayName string, req *SourceOnlyRequest) (*Result, error) {
	source, err := req.Source.ToSource()
	if err != nil {
		return nil, err
	}
	opts := req.Options.ToOptions()
	return s.execute(ctx, gatewayName, OperationStore, 0, opts, func(g gateway.Gateway) (*gateway.Response, error) {
		return g.Store(ctx, source, opts)
	})
}

// Verify checks a payment source without moving funds.
func (s *Service) Verify(ctx context.Context, gatewayName string, req *SourceOnlyRequest) (*Result, error) {
	source, err := req.Source.ToSource()
	if err != nil {
		return nil, err
	}
	opts := req.Options.ToOptions()
	return s.execute(ctx, gatewayName, OperationVerify, 0, opts, func(g gateway.Gateway) (*gateway.Response, error) {
		return g.Verify(ctx, source, opts)
	})
}

// GetTransaction returns a recorded transaction.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// GetTranscript returns the archived transcript of a recorded transaction.
func (s *Service) GetTranscript(ctx context.Context, id uuid.UUID) (string, error) {
	txn, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return "", err
	}
	if s.archive == nil || txn.TranscriptKey == "" {
		return "", ErrNoTranscript
	}
	return s.archive.Fetch(ctx, txn.Gateway, txn.ID.String())
}

// ListTransactions returns recorded transactions matching the filter, newest
// first, with the total count before paging.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// ListGateways returns registered gateway names, sorted.
func (s *Service) ListGateways() []string {
	return s.registry.List()
}

// execute runs one gateway operation and records its outcome. A non-nil
// error means the call never reached a normal outcome (unknown gateway,
// malformed request, cancelled context); declines come back as Results.
func (s *Service) execute(ctx context.Context, gatewayName string, op Operation, amount int64, opts gateway.Options, call func(gateway.Gateway) (*gateway.Response, error)) (*Result, error) {
	g, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := call(g)
	duration := time.Since(start)

	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordGatewayRequest(gatewayName, string(op), "error", duration)
		}
		s.logger.Error("gateway operation failed",
			zap.String("gateway", gatewayName),
			zap.String("operation", string(op)),
			zap.Error(err),
		)
		return nil, err
	}

	txn := s.record(ctx, g, op, amount, opts, resp)

	if s.bus != nil {
		s.bus.Publish(events.NewTransactionRecordedEvent(
			txn.ID, txn.Gateway, string(op), txn.Amount, txn.Currency, txn.OrderID, txn.Success, txn.ErrorCode,
		))
	}

	status := "approved"
	if !resp.Success {
		status = "declined"
		if s.metrics != nil {
			s.metrics.RecordGatewayDecline(gatewayName, string(resp.ErrorCode))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordGatewayRequest(gatewayName, string(op), status, duration)
	}

	fields := []zap.Field{
		zap.String("gateway", gatewayName),
		zap.String("operation", string(op)),
		zap.String("transaction_id", txn.ID.String()),
		zap.Bool("success", resp.Success),
		zap.String("error_code", string(resp.ErrorCode)),
		zap.Duration("duration", duration),
	}
	if merchant := requestctx.Merchant(ctx); merchant != "" {
		fields = append(fields, zap.String("merchant", merchant))
	}
	s.logger.Info("gateway operation", fields...)

	return &Result{
		TransactionID: txn.ID,
		Gateway:       gatewayName,
		Operation:     op,
		Response:      resp,
	}, nil
}

// record persists the transaction and archives its scrubbed transcript.
// Persistence failures are logged, not surfaced; the money already moved.
func (s *Service) record(ctx context.Context, g gateway.Gateway, op Operation, amount int64, opts gateway.Options, resp *gateway.Response) *Transaction {
	txn := &Transaction{
		ID:            uuid.New(),
		Gateway:       g.Name(),
		Operation:     op,
		Amount:        amount,
		Currency:      opts.CurrencyOr(""),
		OrderID:       opts.OrderID,
		Success:       resp.Success,
		Message:       resp.Message,
		Authorization: resp.Authorization,
		ErrorCode:     string(resp.ErrorCode),
		TestMode:      resp.TestMode,
		CreatedAt:     time.Now().UTC(),
	}

	if params, err := json.Marshal(resp.Params); err == nil {
		txn.Params = g.Scrub(string(params))
	}

	if s.archive != nil {
		transcript := g.Scrub(buildTranscript(txn, resp))
		txn.TranscriptKey = fmt.Sprintf("transcripts/%s/%s.log", txn.Gateway, txn.ID)
		if err := s.archive.Store(ctx, txn.Gateway, txn.ID.String(), transcript); err != nil {
			s.logger.Warn("failed to archive transcript",
				zap.String("transaction_id", txn.ID.String()),
				zap.Error(err),
			)
			txn.TranscriptKey = ""
		}
	}

	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		s.logger.Error("failed to record transaction",
			zap.String("gateway", txn.Gateway),
			zap.String("operation", string(op)),
			zap.Error(err),
		)
	}
	return txn
}

func buildTranscript(txn *Transaction, resp *gateway.Response) string {
	body, _ := json.MarshalIndent(resp, "", "  ")
	return fmt.Sprintf("%s %s\namount=%d currency=%s order_id=%s\n-- response\n%s\n",
		txn.Operation, txn.Gateway, txn.Amount, txn.Currency, txn.OrderID, body)
}
