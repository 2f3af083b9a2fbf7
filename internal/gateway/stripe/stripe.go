// Package stripe adapts the Stripe charges API to the uniform gateway
// surface.
package stripe

import (
	"context"
	"errors"
	"strconv"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/merchantgate/server/internal/gateway"
	"github.com/merchantgate/server/internal/gateway/transport"
)

// Config holds Stripe credentials.
type Config struct {
	APIKey string

	// Transcripts, when set, receives the scrubbed request/response pair of
	// every exchange with the processor.
	Transcripts func(transcript string)
}

// Gateway is the Stripe adapter. Each instance carries its own API client;
// nothing global is mutated.
type Gateway struct {
	api      *client.API
	test     bool
	scrubber *gateway.Scrubber
}

// New creates a Stripe gateway. Test mode follows the key prefix. SDK calls
// go through the shared transport so the per-host breaker and transcript
// capture cover every exchange.
func New(cfg Config) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, gateway.MissingCredential("stripe", "api_key")
	}

	g := &Gateway{
		test:     strings.HasPrefix(cfg.APIKey, "sk_test"),
		scrubber: gateway.NewScrubber(cfg.APIKey),
	}

	tcfg := transport.Config{}
	if cfg.Transcripts != nil {
		sink := cfg.Transcripts
		tcfg.OnTranscript = func(t string) { sink(g.scrubber.Scrub(t)) }
	}

	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		HTTPClient: transport.New(tcfg).HTTPClient(),
	})
	api := &client.API{}
	api.Init(cfg.APIKey, &stripeapi.Backends{API: backend, Connect: backend, Uploads: backend})
	g.api = api

	return g, nil
}

// Name returns the registry name.
func (g *Gateway) Name() string { return "stripe" }

// Purchase creates a captured charge.
func (g *Gateway) Purchase(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return g.charge(ctx, amount, source, opts, true)
}

// Authorize creates an uncaptured charge.
func (g *Gateway) Authorize(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return g.charge(ctx, amount, source, opts, false)
}

// Capture settles an uncaptured charge. An amount <= 0 captures the full
// authorized amount.
func (g *Gateway) Capture(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	params := &stripeapi.ChargeCaptureParams{}
	params.Context = ctx
	if amount > 0 {
		params.Amount = stripeapi.Int64(amount)
	}

	ch, err := g.api.Charges.Capture(authorization, params)
	if err != nil {
		return g.failure(err), nil
	}
	return g.success(chargeMessage(ch), ch.ID, chargeParams(ch)), nil
}

// Refund reverses a captured charge. An amount <= 0 refunds in full.
func (g *Gateway) Refund(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	params := &stripeapi.RefundParams{Charge: stripeapi.String(authorization)}
	params.Context = ctx
	if amount > 0 {
		params.Amount = stripeapi.Int64(amount)
	}

	ref, err := g.api.Refunds.New(params)
	if err != nil {
		return g.failure(err), nil
	}
	return g.success("Refund "+string(ref.Status), ref.ID, map[string]any{
		"id":     ref.ID,
		"charge": authorization,
		"amount": ref.Amount,
		"status": string(ref.Status),
	}), nil
}

// Void cancels an uncaptured or unsettled charge. Stripe models this as a
// full refund of the charge.
func (g *Gateway) Void(ctx context.Context, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return g.Refund(ctx, 0, authorization, opts)
}

// Credit is not offered by the charges API.
func (g *Gateway) Credit(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("credit", g.Name()).InTestMode(g.test), nil
}

// Store registers the card with a new customer and returns the customer ID
// as the reusable reference.
func (g *Gateway) Store(ctx context.Context, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	card, ok := source.(*gateway.CreditCard)
	if !ok {
		return gateway.Unsupported("store for this payment source", g.Name()).InTestMode(g.test), nil
	}

	token, resp := g.cardToken(ctx, card)
	if resp != nil {
		return resp, nil
	}

	params := &stripeapi.CustomerParams{Source: stripeapi.String(token)}
	params.Context = ctx
	if opts.Email != "" {
		params.Email = stripeapi.String(opts.Email)
	}
	if opts.Description != "" {
		params.Description = stripeapi.String(opts.Description)
	}

	cus, err := g.api.Customers.New(params)
	if err != nil {
		return g.failure(err), nil
	}
	return g.success("Customer created", cus.ID, map[string]any{"id": cus.ID}), nil
}

// Verify runs a minimal authorize followed by a void.
func (g *Gateway) Verify(ctx context.Context, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.VerifyViaAuthVoid(ctx, g, gateway.VerifyAmount, source, opts)
}

// Scrub redacts the API key and every card this instance has charged.
func (g *Gateway) Scrub(transcript string) string {
	return g.scrubber.Scrub(transcript)
}

func (g *Gateway) charge(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options, capture bool) (*gateway.Response, error) {
	params := &stripeapi.ChargeParams{
		Amount:   stripeapi.Int64(amount),
		Currency: stripeapi.String(strings.ToLower(opts.CurrencyOr("usd"))),
		Capture:  stripeapi.Bool(capture),
	}
	params.Context = ctx
	if opts.Description != "" {
		params.Description = stripeapi.String(opts.Description)
	}
	if opts.Email != "" {
		params.ReceiptEmail = stripeapi.String(opts.Email)
	}
	if opts.OrderID != "" {
		params.AddMetadata("order_id", opts.OrderID)
	}
	for k, v := range opts.Metadata {
		params.AddMetadata(k, v)
	}

	switch src := source.(type) {
	case *gateway.CreditCard:
		token, resp := g.cardToken(ctx, src)
		if resp != nil {
			return resp, nil
		}
		if err := params.SetSource(token); err != nil {
			return g.failure(err), nil
		}
	case *gateway.Reference:
		// Store returns customer IDs; raw card tokens also pass through.
		if strings.HasPrefix(src.Token, "cus_") {
			params.Customer = stripeapi.String(src.Token)
		} else if err := params.SetSource(src.Token); err != nil {
			return g.failure(err), nil
		}
	default:
		return gateway.Unsupported("bank account charges", g.Name()).InTestMode(g.test), nil
	}

	ch, err := g.api.Charges.New(params)
	if err != nil {
		return g.failure(err), nil
	}
	return g.success(chargeMessage(ch), ch.ID, chargeParams(ch)), nil
}

// cardToken tokenizes a raw card. A non-nil Response reports the failure.
func (g *Gateway) cardToken(ctx context.Context, card *gateway.CreditCard) (string, *gateway.Response) {
	g.scrubber.Add(card.Number, card.VerificationValue)

	params := &stripeapi.TokenParams{
		Card: &stripeapi.CardParams{
			Number:   stripeapi.String(card.Number),
			ExpMonth: stripeapi.String(strconv.Itoa(card.Month)),
			ExpYear:  stripeapi.String(strconv.Itoa(card.Year)),
		},
	}
	params.Context = ctx
	if card.VerificationValue != "" {
		params.Card.CVC = stripeapi.String(card.VerificationValue)
	}
	if card.Name != "" {
		params.Card.Name = stripeapi.String(card.Name)
	}

	tok, err := g.api.Tokens.New(params)
	if err != nil {
		return "", g.failure(err)
	}
	return tok.ID, nil
}

func (g *Gateway) success(message, authorization string, params map[string]any) *gateway.Response {
	return gateway.Succeeded(message, authorization, params).InTestMode(g.test)
}

// failure normalizes a stripe-go error into a failed Response. Declines come
// back as *stripe.Error; anything else is a transport-level failure.
func (g *Gateway) failure(err error) *gateway.Response {
	var stripeErr *stripeapi.Error
	if !errors.As(err, &stripeErr) {
		return gateway.TransportFailure(err).InTestMode(g.test)
	}

	message := stripeErr.Msg
	if message == "" {
		message = string(stripeErr.Code)
	}

	params := map[string]any{
		"error_type": string(stripeErr.Type),
		"error_code": string(stripeErr.Code),
	}
	if stripeErr.DeclineCode != "" {
		params["decline_code"] = string(stripeErr.DeclineCode)
	}
	if stripeErr.ChargeID != "" {
		params["charge"] = stripeErr.ChargeID
	}

	return gateway.Failed(message, mapErrorCode(stripeErr), params).InTestMode(g.test)
}

// mapErrorCode translates Stripe error and decline codes into the shared
// taxonomy. Unmapped codes stay unclassified with the vendor message intact.
func mapErrorCode(e *stripeapi.Error) gateway.ErrorCode {
	switch string(e.Code) {
	case "expired_card":
		return gateway.ErrExpiredCard
	case "incorrect_cvc", "invalid_cvc":
		return gateway.ErrInvalidCVC
	case "incorrect_number", "invalid_number":
		return gateway.ErrIncorrectNumber
	case "invalid_expiry_month", "invalid_expiry_year":
		return gateway.ErrInvalidExpiryDate
	case "processing_error":
		return gateway.ErrProcessingError
	case "resource_missing", "missing":
		return gateway.ErrInvalidAccount
	case "authentication_required":
		return gateway.ErrAuthenticationFailed
	case "card_declined":
		switch string(e.DeclineCode) {
		case "insufficient_funds":
			return gateway.ErrInsufficientFunds
		case "fraudulent", "merchant_blacklist":
			return gateway.ErrFraudulent
		case "pickup_card", "lost_card", "stolen_card", "restricted_card":
			return gateway.ErrPickupCard
		case "expired_card":
			return gateway.ErrExpiredCard
		case "incorrect_cvc":
			return gateway.ErrInvalidCVC
		default:
			return gateway.ErrCardDeclined
		}
	}
	if string(e.Type) == "authentication_error" {
		return gateway.ErrAuthenticationFailed
	}
	return gateway.ErrorCodeNone
}

func chargeMessage(ch *stripeapi.Charge) string {
	if ch.Outcome != nil && ch.Outcome.SellerMessage != "" {
		return ch.Outcome.SellerMessage
	}
	return "Transaction approved"
}

func chargeParams(ch *stripeapi.Charge) map[string]any {
	p := map[string]any{
		"id":       ch.ID,
		"amount":   ch.Amount,
		"currency": string(ch.Currency),
		"status":   string(ch.Status),
		"captured": ch.Captured,
		"paid":     ch.Paid,
	}
	if ch.BalanceTransaction != nil {
		p["balance_transaction"] = ch.BalanceTransaction.ID
	}
	if ch.Outcome != nil {
		p["network_status"] = ch.Outcome.NetworkStatus
		p["risk_level"] = ch.Outcome.RiskLevel
	}
	return p
}
