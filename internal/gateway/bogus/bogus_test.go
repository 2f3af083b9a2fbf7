package bogus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantgate/server/internal/gateway"
)

func validCard() *gateway.CreditCard {
	return &gateway.CreditCard{
		Number:            "4242424242424242",
		Month:             12,
		Year:              2030,
		VerificationValue: "123",
		Name:              "Jane Doe",
	}
}

func TestPurchase_Success(t *testing.T) {
	g := New()
	resp, err := g.Purchase(context.Background(), 100, validCard(), gateway.Options{OrderID: "ord-1"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Authorization)
	assert.Equal(t, gateway.ErrorCodeNone, resp.ErrorCode)
	assert.True(t, resp.TestMode)
	assert.Equal(t, "1.00", resp.Params["amount"])
	assert.Equal(t, "ord-1", resp.Params["order_id"])
}

func TestPurchase_TriggerAmounts(t *testing.T) {
	tests := []struct {
		amount int64
		code   gateway.ErrorCode
	}{
		{105, gateway.ErrCardDeclined},
		{110, gateway.ErrInsufficientFunds},
		{115, gateway.ErrInvalidCVC},
		{120, gateway.ErrExpiredCard},
		{125, gateway.ErrFraudulent},
		{130, gateway.ErrProcessingError},
	}

	g := New()
	for _, tt := range tests {
		resp, err := g.Purchase(context.Background(), tt.amount, validCard(), gateway.Options{})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, tt.code, resp.ErrorCode)
		assert.NotEmpty(t, resp.Message)
	}
}

func TestPurchase_DeclineCard(t *testing.T) {
	g := New()
	card := validCard()
	card.Number = DeclineCard

	resp, err := g.Purchase(context.Background(), 100, card, gateway.Options{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, gateway.ErrCardDeclined, resp.ErrorCode)
}

func TestPurchase_InvalidNumber(t *testing.T) {
	g := New()
	card := validCard()
	card.Number = "4242424242424241"

	resp, err := g.Purchase(context.Background(), 100, card, gateway.Options{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, gateway.ErrIncorrectNumber, resp.ErrorCode)
}

func TestAuthorizeCaptureFlow(t *testing.T) {
	g := New()
	ctx := context.Background()

	auth, err := g.Authorize(ctx, 1000, validCard(), gateway.Options{})
	require.NoError(t, err)
	require.True(t, auth.Success)

	capture, err := g.Capture(ctx, 1000, auth.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.True(t, capture.Success)

	// A second capture on the same authorization fails cleanly.
	again, err := g.Capture(ctx, 1000, auth.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.False(t, again.Success)
}

func TestCapture_Partial(t *testing.T) {
	g := New()
	ctx := context.Background()

	auth, err := g.Authorize(ctx, 1000, validCard(), gateway.Options{})
	require.NoError(t, err)

	capture, err := g.Capture(ctx, 400, auth.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.True(t, capture.Success)
	assert.Equal(t, "4.00", capture.Params["amount"])
}

func TestCapture_OverAuthorizedAmount(t *testing.T) {
	g := New()
	ctx := context.Background()

	auth, err := g.Authorize(ctx, 1000, validCard(), gateway.Options{})
	require.NoError(t, err)

	capture, err := g.Capture(ctx, 2000, auth.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.False(t, capture.Success)
	assert.Contains(t, capture.Message, "exceeds")
}

func TestVoid(t *testing.T) {
	g := New()
	ctx := context.Background()

	auth, err := g.Authorize(ctx, 1000, validCard(), gateway.Options{})
	require.NoError(t, err)

	void, err := g.Void(ctx, auth.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.True(t, void.Success)

	// Voiding twice is rejected, not a fault.
	again, err := g.Void(ctx, auth.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Contains(t, again.Message, "already voided")
}

func TestVoid_EmptyAuthorization(t *testing.T) {
	g := New()
	resp, err := g.Void(context.Background(), "", gateway.Options{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestRefund(t *testing.T) {
	g := New()
	ctx := context.Background()

	purchase, err := g.Purchase(ctx, 1000, validCard(), gateway.Options{})
	require.NoError(t, err)

	refund, err := g.Refund(ctx, 0, purchase.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.True(t, refund.Success)
	assert.Equal(t, "10.00", refund.Params["refunded"])

	// Second full refund is rejected cleanly.
	again, err := g.Refund(ctx, 0, purchase.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.False(t, again.Success)
}

func TestRefund_Partial(t *testing.T) {
	g := New()
	ctx := context.Background()

	purchase, err := g.Purchase(ctx, 1000, validCard(), gateway.Options{})
	require.NoError(t, err)

	first, err := g.Refund(ctx, 300, purchase.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := g.Refund(ctx, 700, purchase.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.True(t, second.Success)

	third, err := g.Refund(ctx, 1, purchase.Authorization, gateway.Options{})
	require.NoError(t, err)
	assert.False(t, third.Success)
}

func TestRefund_BogusReference(t *testing.T) {
	g := New()
	resp, err := g.Refund(context.Background(), 100, "ch_doesnotexist", gateway.Options{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "not found")
}

func TestStoreThenPurchaseWithReference(t *testing.T) {
	g := New()
	ctx := context.Background()

	store, err := g.Store(ctx, validCard(), gateway.Options{})
	require.NoError(t, err)
	require.True(t, store.Success)
	require.NotEmpty(t, store.Authorization)
	assert.Equal(t, "4242", store.Params["last4"])

	purchase, err := g.Purchase(ctx, 500, &gateway.Reference{Token: store.Authorization}, gateway.Options{})
	require.NoError(t, err)
	assert.True(t, purchase.Success)
}

func TestPurchase_UnknownReference(t *testing.T) {
	g := New()
	resp, err := g.Purchase(context.Background(), 500, &gateway.Reference{Token: "ref_missing"}, gateway.Options{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, gateway.ErrInvalidAccount, resp.ErrorCode)
}

func TestVerify(t *testing.T) {
	g := New()

	resp, err := g.Verify(context.Background(), validCard(), gateway.Options{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Responses, 2)
	assert.True(t, resp.Responses[1].Success, "void leg should succeed")
}

func TestCredit(t *testing.T) {
	g := New()
	resp, err := g.Credit(context.Background(), 250, validCard(), gateway.Options{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Authorization)
}

func TestScrub(t *testing.T) {
	g := New()
	_, err := g.Purchase(context.Background(), 100, validCard(), gateway.Options{})
	require.NoError(t, err)

	out := g.Scrub(`number=4242424242424242&cvc=123`)
	assert.NotContains(t, out, "4242424242424242")
	assert.Contains(t, out, gateway.FilteredMarker)
}
