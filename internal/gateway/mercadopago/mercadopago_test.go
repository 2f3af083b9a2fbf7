package mercadopago

import (
	"context"
	"testing"

	"github.com/mercadopago/sdk-go/pkg/refund"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantgate/server/internal/gateway"
)

func TestNew(t *testing.T) {
	t.Run("requires access token", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)

		var cfgErr *gateway.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "access_token", cfgErr.Field)
	})

	t.Run("test mode from token prefix", func(t *testing.T) {
		g, err := New(Config{AccessToken: "TEST-123456"})
		require.NoError(t, err)
		assert.True(t, g.test)

		g, err = New(Config{AccessToken: "APP_USR-123456"})
		require.NoError(t, err)
		assert.False(t, g.test)
	})
}

func TestMapStatusDetail(t *testing.T) {
	tests := []struct {
		detail string
		want   gateway.ErrorCode
	}{
		{"cc_rejected_insufficient_amount", gateway.ErrInsufficientFunds},
		{"cc_rejected_bad_filled_security_code", gateway.ErrInvalidCVC},
		{"cc_rejected_bad_filled_date", gateway.ErrInvalidExpiryDate},
		{"cc_rejected_bad_filled_card_number", gateway.ErrIncorrectNumber},
		{"cc_rejected_card_disabled", gateway.ErrInvalidAccount},
		{"cc_rejected_high_risk", gateway.ErrFraudulent},
		{"cc_rejected_blacklist", gateway.ErrPickupCard},
		{"cc_rejected_card_expired", gateway.ErrExpiredCard},
		{"cc_rejected_call_for_authorize", gateway.ErrCardDeclined},
		{"cc_rejected_other_reason", gateway.ErrCardDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.detail, func(t *testing.T) {
			assert.Equal(t, tt.want, mapStatusDetail(tt.detail))
		})
	}
}

func TestMethodID(t *testing.T) {
	assert.Equal(t, "visa", methodID(&gateway.CreditCard{Number: "4242424242424242"}))
	assert.Equal(t, "master", methodID(&gateway.CreditCard{Number: "5555555555554444"}))
	assert.Equal(t, "amex", methodID(&gateway.CreditCard{Number: "378282246310005"}))
	assert.Empty(t, methodID(&gateway.CreditCard{Number: "6011111111111117"}))
}

func TestParseAuthorization(t *testing.T) {
	id, err := parseAuthorization("12345678")
	require.NoError(t, err)
	assert.Equal(t, 12345678, id)

	_, err = parseAuthorization("not-a-payment-id")
	assert.Error(t, err)
}

type recordingRefunds struct {
	paymentID int
	amount    float64
	partial   bool
	full      bool
}

func (r *recordingRefunds) Get(ctx context.Context, paymentID, refundID int) (*refund.Response, error) {
	return nil, nil
}

func (r *recordingRefunds) List(ctx context.Context, paymentID int) ([]refund.Response, error) {
	return nil, nil
}

func (r *recordingRefunds) Create(ctx context.Context, paymentID int) (*refund.Response, error) {
	r.full = true
	r.paymentID = paymentID
	return &refund.Response{ID: 9, PaymentID: paymentID, Status: "approved"}, nil
}

func (r *recordingRefunds) CreatePartialRefund(ctx context.Context, paymentID int, amount float64) (*refund.Response, error) {
	r.partial = true
	r.paymentID = paymentID
	r.amount = amount
	return &refund.Response{ID: 9, PaymentID: paymentID, Amount: amount, Status: "approved"}, nil
}

func TestRefund(t *testing.T) {
	newRefundGateway := func(rec *recordingRefunds) *Gateway {
		return &Gateway{
			refunds:  rec,
			test:     true,
			scrubber: gateway.NewScrubber("TEST-token"),
		}
	}

	t.Run("partial refund sends payment id and major units", func(t *testing.T) {
		rec := &recordingRefunds{}
		g := newRefundGateway(rec)

		resp, err := g.Refund(context.Background(), 2550, "123", gateway.Options{Currency: "BRL"})
		require.NoError(t, err)
		require.True(t, resp.Success)
		assert.True(t, rec.partial)
		assert.Equal(t, 123, rec.paymentID)
		assert.Equal(t, 25.50, rec.amount)
	})

	t.Run("zero amount refunds in full", func(t *testing.T) {
		rec := &recordingRefunds{}
		g := newRefundGateway(rec)

		resp, err := g.Refund(context.Background(), 0, "123", gateway.Options{})
		require.NoError(t, err)
		require.True(t, resp.Success)
		assert.True(t, rec.full)
		assert.False(t, rec.partial)
	})

	t.Run("bad authorization declines without a call", func(t *testing.T) {
		rec := &recordingRefunds{}
		g := newRefundGateway(rec)

		resp, err := g.Refund(context.Background(), 100, "not-an-id", gateway.Options{})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, gateway.ErrInvalidAccount, resp.ErrorCode)
		assert.False(t, rec.partial)
		assert.False(t, rec.full)
	})
}
