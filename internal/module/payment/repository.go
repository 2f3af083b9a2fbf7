package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionFilter narrows a transaction listing. Zero-value fields are
// ignored.
type TransactionFilter struct {
	Gateway string
	OrderID string
	Offset  int
	Limit   int
}

// Repository defines the interface for transaction data access.
type Repository interface {
	CreateTransaction(ctx context.Context, txn *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new transaction repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTransaction(ctx context.Context, txn *Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *repository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var txn Transaction
	err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &txn, nil
}

func (r *repository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&Transaction{})
	if filter.Gateway != "" {
		query = query.Where("gateway = ?", filter.Gateway)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var txns []*Transaction
	err := query.
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txns, total, nil
}
