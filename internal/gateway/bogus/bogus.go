// Package bogus implements an in-process sandbox gateway with no network
// dependency. It honors the full authorization lifecycle and produces
// deterministic declines from trigger amounts, which makes it the gateway of
// choice for tests and local development.
package bogus

import (
	"context"
	"strings"
	"sync"

	"github.com/merchantgate/server/internal/gateway"
	"github.com/merchantgate/server/internal/utils/random"
)

// DeclineCard always declines regardless of amount.
const DeclineCard = "4000000000000002"

// Trigger amounts: any amount whose last two digits match one of these
// produces the corresponding failure.
var triggerCodes = map[int64]struct {
	message string
	code    gateway.ErrorCode
}{
	5:  {"Do Not Honor", gateway.ErrCardDeclined},
	10: {"Insufficient Funds", gateway.ErrInsufficientFunds},
	15: {"Invalid CVC", gateway.ErrInvalidCVC},
	20: {"Expired Card", gateway.ErrExpiredCard},
	25: {"Suspected Fraud", gateway.ErrFraudulent},
	30: {"Processor Unavailable", gateway.ErrProcessingError},
}

type txnState string

const (
	stateAuthorized txnState = "authorized"
	stateCaptured   txnState = "captured"
	stateVoided     txnState = "voided"
	stateRefunded   txnState = "refunded"
)

type transaction struct {
	state    txnState
	amount   int64
	refunded int64
}

// Gateway is the bogus sandbox gateway.
type Gateway struct {
	mu       sync.Mutex
	txns     map[string]*transaction
	stored   map[string]*gateway.CreditCard
	scrubber *gateway.Scrubber
}

// New creates a bogus gateway with an empty transaction table.
func New() *Gateway {
	return &Gateway{
		txns:     make(map[string]*transaction),
		stored:   make(map[string]*gateway.CreditCard),
		scrubber: gateway.NewScrubber(),
	}
}

// Name returns the registry name.
func (g *Gateway) Name() string { return "bogus" }

// Purchase authorizes and captures atomically.
func (g *Gateway) Purchase(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.screen(amount, source); resp != nil {
		return resp, nil
	}

	token := random.Ref("ch")
	g.mu.Lock()
	g.txns[token] = &transaction{state: stateCaptured, amount: amount}
	g.mu.Unlock()

	return gateway.Succeeded("Transaction approved", token, g.params(amount, opts)).InTestMode(true), nil
}

// Authorize places a hold.
func (g *Gateway) Authorize(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.screen(amount, source); resp != nil {
		return resp, nil
	}

	token := random.Ref("auth")
	g.mu.Lock()
	g.txns[token] = &transaction{state: stateAuthorized, amount: amount}
	g.mu.Unlock()

	return gateway.Succeeded("Authorization approved", token, g.params(amount, opts)).InTestMode(true), nil
}

// Capture settles an authorization. Partial capture is allowed; over-capture
// is declined.
func (g *Gateway) Capture(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	txn, ok := g.txns[authorization]
	if !ok {
		return gateway.Failed("Transaction not found", gateway.ErrInvalidAccount, nil).InTestMode(true), nil
	}
	if txn.state != stateAuthorized {
		return gateway.Failed("Transaction is not authorized", gateway.ErrProcessingError, nil).InTestMode(true), nil
	}
	if amount > txn.amount {
		return gateway.Failed("Capture amount exceeds authorization", gateway.ErrProcessingError, nil).InTestMode(true), nil
	}
	if amount > 0 {
		txn.amount = amount
	}
	txn.state = stateCaptured

	return gateway.Succeeded("Capture approved", authorization, map[string]any{
		"amount": gateway.MajorUnits(txn.amount, opts.CurrencyOr("USD")),
	}).InTestMode(true), nil
}

// Void cancels an authorized or captured-but-unsettled transaction.
func (g *Gateway) Void(ctx context.Context, authorization string, opts gateway.Options) (*gateway.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	txn, ok := g.txns[authorization]
	if !ok {
		return gateway.Failed("Transaction not found", gateway.ErrInvalidAccount, nil).InTestMode(true), nil
	}
	switch txn.state {
	case stateVoided:
		return gateway.Failed("Transaction already voided", gateway.ErrProcessingError, nil).InTestMode(true), nil
	case stateRefunded:
		return gateway.Failed("Transaction already refunded", gateway.ErrProcessingError, nil).InTestMode(true), nil
	}
	txn.state = stateVoided

	return gateway.Succeeded("Void approved", authorization, nil).InTestMode(true), nil
}

// Refund reverses funds on a captured transaction. An amount <= 0 refunds the
// remaining balance.
func (g *Gateway) Refund(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	txn, ok := g.txns[authorization]
	if !ok {
		return gateway.Failed("Transaction not found", gateway.ErrInvalidAccount, nil).InTestMode(true), nil
	}
	if txn.state != stateCaptured && txn.state != stateRefunded {
		return gateway.Failed("Transaction is not settled", gateway.ErrProcessingError, nil).InTestMode(true), nil
	}

	remaining := txn.amount - txn.refunded
	if remaining <= 0 {
		return gateway.Failed("Transaction already refunded", gateway.ErrProcessingError, nil).InTestMode(true), nil
	}
	if amount <= 0 {
		amount = remaining
	}
	if amount > remaining {
		return gateway.Failed("Refund amount exceeds remaining balance", gateway.ErrProcessingError, nil).InTestMode(true), nil
	}

	txn.refunded += amount
	if txn.refunded >= txn.amount {
		txn.state = stateRefunded
	}

	return gateway.Succeeded("Refund approved", authorization, map[string]any{
		"refunded": gateway.MajorUnits(txn.refunded, opts.CurrencyOr("USD")),
	}).InTestMode(true), nil
}

// Credit moves funds to the payer without a prior reference.
func (g *Gateway) Credit(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	if resp := g.screen(amount, source); resp != nil {
		return resp, nil
	}
	return gateway.Succeeded("Credit approved", random.Ref("cr"), g.params(amount, opts)).InTestMode(true), nil
}

// Store registers a card for later reference use.
func (g *Gateway) Store(ctx context.Context, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	card, ok := source.(*gateway.CreditCard)
	if !ok {
		return gateway.Unsupported("store for this payment source", g.Name()).InTestMode(true), nil
	}
	if card.Number == DeclineCard {
		return gateway.Failed("Card cannot be stored", gateway.ErrCardDeclined, nil).InTestMode(true), nil
	}
	g.observe(card)

	token := random.Ref("ref")
	g.mu.Lock()
	stored := *card
	g.stored[token] = &stored
	g.mu.Unlock()

	return gateway.Succeeded("Card stored", token, map[string]any{
		"last4": lastFour(card.Number),
		"brand": string(card.DetectedBrand()),
	}).InTestMode(true), nil
}

// Verify runs a minimal authorize followed by a void.
func (g *Gateway) Verify(ctx context.Context, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.VerifyViaAuthVoid(ctx, g, gateway.VerifyAmount, source, opts)
}

// Scrub redacts every card number and verification value this instance has
// seen.
func (g *Gateway) Scrub(transcript string) string {
	return g.scrubber.Scrub(transcript)
}

// screen applies source resolution and trigger-amount declines shared by the
// source-based operations. A nil return means the transaction is approved.
func (g *Gateway) screen(amount int64, source gateway.PaymentSource) *gateway.Response {
	var card *gateway.CreditCard

	switch src := source.(type) {
	case *gateway.CreditCard:
		card = src
	case *gateway.Reference:
		g.mu.Lock()
		stored, ok := g.stored[src.Token]
		g.mu.Unlock()
		if !ok {
			return gateway.Failed("Unknown reference", gateway.ErrInvalidAccount, nil).InTestMode(true)
		}
		card = stored
	case *gateway.BankAccount:
		// Bank accounts are accepted without screening.
		return nil
	default:
		return gateway.Failed("Unsupported payment source", gateway.ErrInvalidAccount, nil).InTestMode(true)
	}

	g.observe(card)

	if card.Number == DeclineCard {
		return gateway.Failed("Do Not Honor", gateway.ErrCardDeclined, nil).InTestMode(true)
	}
	if !gateway.ValidLuhn(card.Number) {
		return gateway.Failed("Invalid card number", gateway.ErrIncorrectNumber, nil).InTestMode(true)
	}
	if trigger, ok := triggerCodes[amount%100]; ok {
		return gateway.Failed(trigger.message, trigger.code, nil).InTestMode(true)
	}
	return nil
}

// observe feeds card secrets into the scrubber.
func (g *Gateway) observe(card *gateway.CreditCard) {
	g.scrubber.Add(card.Number, card.VerificationValue)
}

func (g *Gateway) params(amount int64, opts gateway.Options) map[string]any {
	currency := opts.CurrencyOr("USD")
	p := map[string]any{
		"amount":   gateway.MajorUnits(amount, currency),
		"currency": strings.ToUpper(currency),
	}
	if opts.OrderID != "" {
		p["order_id"] = opts.OrderID
	}
	return p
}

func lastFour(number string) string {
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}
