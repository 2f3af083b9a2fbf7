// Package mercadopago adapts the Mercado Pago payments API to the uniform
// gateway surface.
package mercadopago

import (
	"context"
	"strconv"
	"strings"

	"github.com/mercadopago/sdk-go/pkg/cardtoken"
	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/refund"

	"github.com/merchantgate/server/internal/gateway"
)

// Config holds Mercado Pago credentials.
type Config struct {
	AccessToken string
}

// Gateway is the Mercado Pago adapter.
type Gateway struct {
	payments payment.Client
	refunds  refund.Client
	tokens   cardtoken.Client
	test     bool
	scrubber *gateway.Scrubber
}

// New creates a Mercado Pago gateway. Test mode follows the token prefix.
func New(cfg Config) (*Gateway, error) {
	if cfg.AccessToken == "" {
		return nil, gateway.MissingCredential("mercadopago", "access_token")
	}

	sdkCfg, err := mpconfig.New(cfg.AccessToken)
	if err != nil {
		return nil, &gateway.ConfigError{Gateway: "mercadopago", Field: "access_token", Reason: err.Error()}
	}

	return &Gateway{
		payments: payment.NewClient(sdkCfg),
		refunds:  refund.NewClient(sdkCfg),
		tokens:   cardtoken.NewClient(sdkCfg),
		test:     strings.HasPrefix(cfg.AccessToken, "TEST-"),
		scrubber: gateway.NewScrubber(cfg.AccessToken),
	}, nil
}

// Name returns the registry name.
func (g *Gateway) Name() string { return "mercadopago" }

// Purchase creates a captured payment.
func (g *Gateway) Purchase(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return g.pay(ctx, amount, source, opts, true)
}

// Authorize creates a payment with capture deferred.
func (g *Gateway) Authorize(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return g.pay(ctx, amount, source, opts, false)
}

// Capture settles an authorized payment. An amount <= 0 captures the full
// authorized amount.
func (g *Gateway) Capture(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	id, err := parseAuthorization(authorization)
	if err != nil {
		return gateway.Failed(err.Error(), gateway.ErrInvalidAccount, nil).InTestMode(g.test), nil
	}

	var resp *payment.Response
	if amount > 0 {
		resp, err = g.payments.CaptureAmount(ctx, id, majorFloat(amount, opts.CurrencyOr("BRL")))
	} else {
		resp, err = g.payments.Capture(ctx, id)
	}
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	return g.result(resp, "approved"), nil
}

// Refund reverses a captured payment, in full or in part.
func (g *Gateway) Refund(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	id, err := parseAuthorization(authorization)
	if err != nil {
		return gateway.Failed(err.Error(), gateway.ErrInvalidAccount, nil).InTestMode(g.test), nil
	}

	var resp *refund.Response
	if amount > 0 {
		resp, err = g.refunds.CreatePartialRefund(ctx, id, majorFloat(amount, opts.CurrencyOr("BRL")))
	} else {
		resp, err = g.refunds.Create(ctx, id)
	}
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}

	return gateway.Succeeded("Refund "+resp.Status, authorization, map[string]any{
		"refund_id":  resp.ID,
		"payment_id": resp.PaymentID,
		"amount":     resp.Amount,
		"status":     resp.Status,
	}).InTestMode(g.test), nil
}

// Void cancels an authorized or pending payment.
func (g *Gateway) Void(ctx context.Context, authorization string, opts gateway.Options) (*gateway.Response, error) {
	id, err := parseAuthorization(authorization)
	if err != nil {
		return gateway.Failed(err.Error(), gateway.ErrInvalidAccount, nil).InTestMode(g.test), nil
	}

	resp, err := g.payments.Cancel(ctx, id)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	return g.result(resp, "cancelled"), nil
}

// Credit is not offered by the payments API.
func (g *Gateway) Credit(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("credit", g.Name()).InTestMode(g.test), nil
}

// Store tokenizes the card. Card tokens are single use; the caller should
// charge the reference promptly.
func (g *Gateway) Store(ctx context.Context, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	card, ok := source.(*gateway.CreditCard)
	if !ok {
		return gateway.Unsupported("store for this payment source", g.Name()).InTestMode(g.test), nil
	}

	token, resp := g.cardToken(ctx, card)
	if resp != nil {
		return resp, nil
	}
	return gateway.Succeeded("Card tokenized", token, map[string]any{"token": token}).InTestMode(g.test), nil
}

// Verify runs a minimal authorize followed by a void.
func (g *Gateway) Verify(ctx context.Context, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.VerifyViaAuthVoid(ctx, g, gateway.VerifyAmount, source, opts)
}

// Scrub redacts the access token and observed card secrets.
func (g *Gateway) Scrub(transcript string) string {
	return g.scrubber.Scrub(transcript)
}

func (g *Gateway) pay(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options, capture bool) (*gateway.Response, error) {
	req := payment.Request{
		TransactionAmount: majorFloat(amount, opts.CurrencyOr("BRL")),
		Installments:      1,
		Capture:           capture,
		Description:       opts.Description,
	}
	if opts.Email != "" {
		req.Payer = &payment.PayerRequest{Email: opts.Email}
	}
	if opts.OrderID != "" {
		req.ExternalReference = opts.OrderID
	}

	switch src := source.(type) {
	case *gateway.CreditCard:
		token, resp := g.cardToken(ctx, src)
		if resp != nil {
			return resp, nil
		}
		req.Token = token
		req.PaymentMethodID = methodID(src)
	case *gateway.Reference:
		req.Token = src.Token
	default:
		return gateway.Unsupported("bank account payments", g.Name()).InTestMode(g.test), nil
	}

	resp, err := g.payments.Create(ctx, req)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}

	want := "approved"
	if !capture {
		want = "authorized"
	}
	return g.result(resp, want), nil
}

// cardToken tokenizes a raw card. A non-nil Response reports the failure.
func (g *Gateway) cardToken(ctx context.Context, card *gateway.CreditCard) (string, *gateway.Response) {
	g.scrubber.Add(card.Number, card.VerificationValue)

	req := cardtoken.Request{
		CardNumber:      card.Number,
		ExpirationMonth: strconv.Itoa(card.Month),
		ExpirationYear:  strconv.Itoa(card.Year),
		SecurityCode:    card.VerificationValue,
	}
	if card.Name != "" {
		req.Cardholder = &cardtoken.CardholderRequest{Name: card.Name}
	}

	tok, err := g.tokens.Create(ctx, req)
	if err != nil {
		return "", gateway.TransportFailure(err).InTestMode(g.test)
	}
	return tok.ID, nil
}

// result normalizes a payment response. Any status other than the expected
// one is a decline with the status detail mapped onto the taxonomy.
func (g *Gateway) result(resp *payment.Response, want string) *gateway.Response {
	auth := strconv.Itoa(resp.ID)
	params := map[string]any{
		"id":            resp.ID,
		"status":        resp.Status,
		"status_detail": resp.StatusDetail,
	}

	if resp.Status == want {
		return gateway.Succeeded("Payment "+resp.Status, auth, params).InTestMode(g.test)
	}

	message := resp.StatusDetail
	if message == "" {
		message = "payment " + resp.Status
	}
	return gateway.Failed(message, mapStatusDetail(resp.StatusDetail), params).InTestMode(g.test)
}

// mapStatusDetail translates cc_rejected_* details into the shared taxonomy.
func mapStatusDetail(detail string) gateway.ErrorCode {
	switch detail {
	case "cc_rejected_insufficient_amount":
		return gateway.ErrInsufficientFunds
	case "cc_rejected_bad_filled_security_code":
		return gateway.ErrInvalidCVC
	case "cc_rejected_bad_filled_date":
		return gateway.ErrInvalidExpiryDate
	case "cc_rejected_bad_filled_card_number":
		return gateway.ErrIncorrectNumber
	case "cc_rejected_card_disabled", "cc_rejected_invalid_installments":
		return gateway.ErrInvalidAccount
	case "cc_rejected_high_risk":
		return gateway.ErrFraudulent
	case "cc_rejected_blacklist":
		return gateway.ErrPickupCard
	case "cc_rejected_card_expired":
		return gateway.ErrExpiredCard
	case "cc_rejected_duplicated_payment":
		return gateway.ErrProcessingError
	case "cc_rejected_call_for_authorize", "cc_rejected_other_reason", "cc_rejected_max_attempts":
		return gateway.ErrCardDeclined
	}
	return gateway.ErrCardDeclined
}

func methodID(card *gateway.CreditCard) string {
	switch card.DetectedBrand() {
	case gateway.BrandVisa:
		return "visa"
	case gateway.BrandMastercard:
		return "master"
	case gateway.BrandAmex:
		return "amex"
	default:
		return ""
	}
}

func parseAuthorization(authorization string) (int, error) {
	return strconv.Atoi(authorization)
}

func majorFloat(amount int64, currency string) float64 {
	f, err := strconv.ParseFloat(gateway.MajorUnits(amount, currency), 64)
	if err != nil {
		return float64(amount) / 100
	}
	return f
}
