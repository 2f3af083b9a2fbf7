package gateway

// ErrorCode is the standardized failure classification shared by all
// adapters. Vendor failure codes map onto it on a best-effort basis; an
// unmapped vendor failure keeps ErrorCodeNone and carries only the vendor's
// own message.
type ErrorCode string

const (
	ErrorCodeNone ErrorCode = ""

	ErrCardDeclined         ErrorCode = "card_declined"
	ErrExpiredCard          ErrorCode = "expired_card"
	ErrInvalidAccount       ErrorCode = "invalid_account"
	ErrProcessingError      ErrorCode = "processing_error"
	ErrFraudulent           ErrorCode = "fraudulent"
	ErrInvalidCVC           ErrorCode = "invalid_cvc"
	ErrPickupCard           ErrorCode = "pickup_card"
	ErrAuthenticationFailed ErrorCode = "authentication_failed"
	ErrInsufficientFunds    ErrorCode = "insufficient_funds"
	ErrIncorrectNumber      ErrorCode = "incorrect_number"
	ErrInvalidExpiryDate    ErrorCode = "invalid_expiry_date"
	ErrUnsupported          ErrorCode = "unsupported"
)

// Valid reports whether the code is part of the fixed taxonomy.
func (c ErrorCode) Valid() bool {
	switch c {
	case ErrorCodeNone,
		ErrCardDeclined,
		ErrExpiredCard,
		ErrInvalidAccount,
		ErrProcessingError,
		ErrFraudulent,
		ErrInvalidCVC,
		ErrPickupCard,
		ErrAuthenticationFailed,
		ErrInsufficientFunds,
		ErrIncorrectNumber,
		ErrInvalidExpiryDate,
		ErrUnsupported:
		return true
	}
	return false
}
