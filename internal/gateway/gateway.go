// Package gateway defines the uniform call surface every payment processor
// adapter implements, and the normalized types shared by all of them:
// payment sources, per-call options, the canonical Response, the standardized
// error-code taxonomy, amount conversion and transcript scrubbing.
package gateway

import (
	"context"
)

// Gateway is the uniform surface a processor adapter exposes.
//
// Amounts are non-negative integers in the smallest currency unit (cents);
// adapters convert to whatever representation the processor requires. An
// authorization is the opaque string a previous Purchase, Authorize or Store
// call returned on the same gateway; adapters may encode composites in it but
// callers never parse it.
//
// A declined or rejected transaction is a normal outcome: it comes back as a
// well-formed *Response with Success=false, never as a non-nil error.
// Transport-level failures are folded into a failed Response as well. The
// error return is reserved for caller misuse (nil source, unknown operation)
// and context cancellation.
type Gateway interface {
	// Name returns the registry name of the gateway.
	Name() string

	// Purchase authorizes and captures in one step.
	Purchase(ctx context.Context, amount int64, source PaymentSource, opts Options) (*Response, error)

	// Authorize places a hold without moving funds.
	Authorize(ctx context.Context, amount int64, source PaymentSource, opts Options) (*Response, error)

	// Capture settles a previously authorized transaction. An amount <= 0
	// captures the full authorized amount where the processor allows it.
	Capture(ctx context.Context, amount int64, authorization string, opts Options) (*Response, error)

	// Refund returns funds on a captured transaction. An amount <= 0 requests
	// a full refund where the processor allows it.
	Refund(ctx context.Context, amount int64, authorization string, opts Options) (*Response, error)

	// Void cancels an authorized or not-yet-settled transaction.
	Void(ctx context.Context, authorization string, opts Options) (*Response, error)

	// Credit moves funds to the payer without a prior transaction reference.
	Credit(ctx context.Context, amount int64, source PaymentSource, opts Options) (*Response, error)

	// Store registers a card or bank account for later reference use. The
	// returned Response carries the reusable reference in Authorization.
	Store(ctx context.Context, source PaymentSource, opts Options) (*Response, error)

	// Verify validates a card without completing a sale, typically a minimal
	// authorize followed by a void. Composite results nest the individual
	// responses in Response.Responses.
	Verify(ctx context.Context, source PaymentSource, opts Options) (*Response, error)

	// Scrub redacts card numbers, verification values and configured secrets
	// from a captured request/response transcript.
	Scrub(transcript string) string
}

// VerifyAmount is the minimal amount adapters use for Verify when the
// processor rejects zero-amount authorizations.
const VerifyAmount int64 = 100

// VerifyViaAuthVoid implements Verify as an authorize-then-void round trip.
// The void result is nested so callers can confirm the release also
// succeeded; a failed void does not flip the verify outcome.
func VerifyViaAuthVoid(ctx context.Context, g Gateway, amount int64, source PaymentSource, opts Options) (*Response, error) {
	auth, err := g.Authorize(ctx, amount, source, opts)
	if err != nil {
		return nil, err
	}
	if !auth.Success {
		return auth, nil
	}

	void, err := g.Void(ctx, auth.Authorization, opts)
	if err != nil {
		return nil, err
	}

	result := *auth
	result.Responses = []*Response{auth, void}
	return &result, nil
}
