package payment

import "errors"

var (
	// ErrTransactionNotFound indicates no transaction exists for the ID.
	ErrTransactionNotFound = errors.New("transaction not found")
)
