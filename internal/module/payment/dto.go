package payment

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/merchantgate/server/internal/gateway"
)

// SourceRequest is the wire form of a payment source. Type selects the
// variant; only the matching fields are read.
type SourceRequest struct {
	Type string `json:"type" binding:"required,oneof=card token bank_account"`

	// card
	Number            string `json:"number,omitempty"`
	Month             int    `json:"month,omitempty"`
	Year              int    `json:"year,omitempty"`
	VerificationValue string `json:"verification_value,omitempty"`
	Name              string `json:"name,omitempty"`

	// token
	Token string `json:"token,omitempty"`

	// bank_account
	RoutingNumber string `json:"routing_number,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	AccountHolder string `json:"account_holder,omitempty"`
	AccountType   string `json:"account_type,omitempty"`
}

// ToSource builds the payment source variant.
func (r *SourceRequest) ToSource() (gateway.PaymentSource, error) {
	switch r.Type {
	case "card":
		if r.Number == "" {
			return nil, fmt.Errorf("card source requires a number")
		}
		return &gateway.CreditCard{
			Number:            r.Number,
			Month:             r.Month,
			Year:              r.Year,
			VerificationValue: r.VerificationValue,
			Name:              r.Name,
		}, nil
	case "token":
		if r.Token == "" {
			return nil, fmt.Errorf("token source requires a token")
		}
		return &gateway.Reference{Token: r.Token}, nil
	case "bank_account":
		if r.RoutingNumber == "" || r.AccountNumber == "" {
			return nil, fmt.Errorf("bank_account source requires routing and account numbers")
		}
		return &gateway.BankAccount{
			RoutingNumber: r.RoutingNumber,
			AccountNumber: r.AccountNumber,
			AccountHolder: r.AccountHolder,
			AccountType:   r.AccountType,
		}, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", r.Type)
	}
}

// OptionsRequest carries per-call options shared by all operations.
type OptionsRequest struct {
	OrderID     string            `json:"order_id,omitempty"`
	Description string            `json:"description,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Email       string            `json:"email,omitempty"`
	IP          string            `json:"ip,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ToOptions builds gateway options.
func (r *OptionsRequest) ToOptions() gateway.Options {
	return gateway.Options{
		OrderID:     r.OrderID,
		Description: r.Description,
		Currency:    r.Currency,
		Email:       r.Email,
		IP:          r.IP,
		Metadata:    r.Metadata,
	}
}

// PaymentRequest starts a purchase, authorize, or credit. Amount is in minor
// units; zero is a valid amount for card-validation style authorizations.
type PaymentRequest struct {
	Amount  *int64        `json:"amount" binding:"required,gte=0"`
	Source  SourceRequest `json:"source" binding:"required"`
	Options OptionsRequest `json:"options"`
}

func (r *PaymentRequest) amount() int64 {
	if r.Amount == nil {
		return 0
	}
	return *r.Amount
}

// ReferenceRequest continues an earlier operation via its authorization.
// Amount is optional; zero means the full amount where the gateway allows it.
type ReferenceRequest struct {
	Amount        int64          `json:"amount"`
	Authorization string         `json:"authorization" binding:"required"`
	Options       OptionsRequest `json:"options"`
}

// SourceOnlyRequest carries a source without an amount (store, verify).
type SourceOnlyRequest struct {
	Source  SourceRequest  `json:"source" binding:"required"`
	Options OptionsRequest `json:"options"`
}

// Result pairs the recorded transaction ID with the normalized response.
type Result struct {
	TransactionID uuid.UUID         `json:"transaction_id"`
	Gateway       string            `json:"gateway"`
	Operation     Operation         `json:"operation"`
	Response      *gateway.Response `json:"response"`
}
