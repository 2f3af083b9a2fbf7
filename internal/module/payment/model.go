package payment

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the gateway operations a transaction can record.
type Operation string

const (
	OperationPurchase  Operation = "purchase"
	OperationAuthorize Operation = "authorize"
	OperationCapture   Operation = "capture"
	OperationRefund    Operation = "refund"
	OperationVoid      Operation = "void"
	OperationCredit    Operation = "credit"
	OperationStore     Operation = "store"
	OperationVerify    Operation = "verify"
)

// Transaction is the write-once record of a single gateway operation.
type Transaction struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Gateway       string    `json:"gateway" gorm:"not null;index"`
	Operation     Operation `json:"operation" gorm:"not null"`
	Amount        int64     `json:"amount"` // minor units
	Currency      string    `json:"currency"`
	OrderID       string    `json:"order_id,omitempty" gorm:"index"`
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	Authorization string    `json:"authorization,omitempty" gorm:"index"`
	ErrorCode     string    `json:"error_code,omitempty"`
	TestMode      bool      `json:"test_mode"`
	Params        string    `json:"-" gorm:"type:jsonb"` // scrubbed response params
	TranscriptKey string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (Transaction) TableName() string {
	return "transactions"
}
