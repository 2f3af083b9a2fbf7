// Package wechat adapts the WeChat Pay v3 API to the uniform gateway
// surface. Like Alipay it is a wallet: Purchase creates a native QR order
// the buyer scans, and the auth/capture split is not offered.
package wechat

import (
	"fmt"
	"strconv"
	"strings"

	"context"

	"github.com/go-pay/gopay"
	wxapi "github.com/go-pay/gopay/wechat/v3"

	"github.com/merchantgate/server/internal/gateway"
	"github.com/merchantgate/server/internal/utils/random"
)

// Config holds WeChat Pay merchant credentials.
type Config struct {
	AppID      string
	MchID      string
	APIKeyV3   string
	SerialNo   string
	PrivateKey string // merchant private key, PEM
	IsProd     bool
}

// Gateway is the WeChat Pay adapter.
type Gateway struct {
	client   *wxapi.ClientV3
	appID    string
	mchID    string
	test     bool
	scrubber *gateway.Scrubber
}

// New creates a WeChat Pay gateway.
func New(cfg Config) (*Gateway, error) {
	for field, v := range map[string]string{
		"app_id":      cfg.AppID,
		"mch_id":      cfg.MchID,
		"api_key_v3":  cfg.APIKeyV3,
		"serial_no":   cfg.SerialNo,
		"private_key": cfg.PrivateKey,
	} {
		if v == "" {
			return nil, gateway.MissingCredential("wechat", field)
		}
	}

	client, err := wxapi.NewClientV3(cfg.MchID, cfg.SerialNo, cfg.APIKeyV3, cfg.PrivateKey)
	if err != nil {
		return nil, &gateway.ConfigError{Gateway: "wechat", Field: "private_key", Reason: err.Error()}
	}

	return &Gateway{
		client:   client,
		appID:    cfg.AppID,
		mchID:    cfg.MchID,
		test:     !cfg.IsProd,
		scrubber: gateway.NewScrubber(cfg.APIKeyV3, cfg.PrivateKey),
	}, nil
}

// Name returns the registry name.
func (g *Gateway) Name() string { return "wechat" }

// Purchase creates a native QR order. The buyer completes payment by
// scanning the code_url returned in Params.
func (g *Gateway) Purchase(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	if _, ok := source.(*gateway.Reference); !ok {
		return gateway.Unsupported("card payments", g.Name()).InTestMode(g.test), nil
	}

	orderID := opts.OrderID
	if orderID == "" {
		orderID = random.Ref("mg")
	}

	bm := make(gopay.BodyMap)
	bm.Set("appid", g.appID)
	bm.Set("mchid", g.mchID)
	bm.Set("description", descriptionOr(opts, "Purchase"))
	bm.Set("out_trade_no", orderID)
	bm.SetBodyMap("amount", func(am gopay.BodyMap) {
		am.Set("total", amount)
		am.Set("currency", opts.CurrencyOr("CNY"))
	})

	resp, err := g.client.V3TransactionNative(ctx, bm)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	if resp.Code != wxapi.Success {
		return g.declined(resp.Code, resp.Error), nil
	}

	return gateway.Succeeded("Order created", composeAuthorization(orderID, amount), map[string]any{
		"out_trade_no": orderID,
		"code_url":     resp.Response.CodeUrl,
	}).InTestMode(g.test), nil
}

// Authorize is not offered; the wallet settles on scan.
func (g *Gateway) Authorize(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("authorize", g.Name()).InTestMode(g.test), nil
}

// Capture is not offered; see Authorize.
func (g *Gateway) Capture(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("capture", g.Name()).InTestMode(g.test), nil
}

// Refund reverses a settled order. The original total travels in the
// authorization because the v3 refund call requires it.
func (g *Gateway) Refund(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	outTradeNo, total, err := splitAuthorization(authorization)
	if err != nil {
		return gateway.Failed(err.Error(), gateway.ErrInvalidAccount, nil).InTestMode(g.test), nil
	}
	if amount <= 0 {
		amount = total
	}

	bm := make(gopay.BodyMap)
	bm.Set("out_trade_no", outTradeNo)
	bm.Set("out_refund_no", random.Ref("rf"))
	if opts.Description != "" {
		bm.Set("reason", opts.Description)
	}
	bm.SetBodyMap("amount", func(am gopay.BodyMap) {
		am.Set("refund", amount)
		am.Set("total", total)
		am.Set("currency", opts.CurrencyOr("CNY"))
	})

	resp, err := g.client.V3Refund(ctx, bm)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	if resp.Code != wxapi.Success {
		return g.declined(resp.Code, resp.Error), nil
	}

	return gateway.Succeeded("Refund accepted", authorization, map[string]any{
		"refund_id":     resp.Response.RefundId,
		"out_refund_no": resp.Response.OutRefundNo,
		"status":        resp.Response.Status,
	}).InTestMode(g.test), nil
}

// Void closes an unpaid order.
func (g *Gateway) Void(ctx context.Context, authorization string, opts gateway.Options) (*gateway.Response, error) {
	outTradeNo, _, err := splitAuthorization(authorization)
	if err != nil {
		return gateway.Failed(err.Error(), gateway.ErrInvalidAccount, nil).InTestMode(g.test), nil
	}

	resp, err := g.client.V3TransactionCloseOrder(ctx, outTradeNo)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	if resp.Code != wxapi.Success {
		return g.declined(resp.Code, resp.Error), nil
	}

	return gateway.Succeeded("Order closed", authorization, map[string]any{
		"out_trade_no": outTradeNo,
	}).InTestMode(g.test), nil
}

// Credit is not offered through the transaction API.
func (g *Gateway) Credit(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("credit", g.Name()).InTestMode(g.test), nil
}

// Store is not offered; the wallet holds the payment instrument.
func (g *Gateway) Store(ctx context.Context, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("store", g.Name()).InTestMode(g.test), nil
}

// Verify is not offered without the auth/capture split.
func (g *Gateway) Verify(ctx context.Context, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("verify", g.Name()).InTestMode(g.test), nil
}

// Scrub redacts the configured keys.
func (g *Gateway) Scrub(transcript string) string {
	return g.scrubber.Scrub(transcript)
}

func (g *Gateway) declined(code int, message string) *gateway.Response {
	if message == "" {
		message = fmt.Sprintf("wechat error %d", code)
	}
	errorCode := gateway.ErrProcessingError
	switch code {
	case 401, 403:
		errorCode = gateway.ErrAuthenticationFailed
	case 404:
		errorCode = gateway.ErrInvalidAccount
	}
	if strings.Contains(message, "NOTENOUGH") {
		errorCode = gateway.ErrInsufficientFunds
	}
	return gateway.Failed(message, errorCode, map[string]any{
		"status_code": code,
	}).InTestMode(g.test)
}

func composeAuthorization(outTradeNo string, total int64) string {
	return outTradeNo + ";" + strconv.FormatInt(total, 10)
}

func splitAuthorization(authorization string) (outTradeNo string, total int64, err error) {
	parts := strings.SplitN(authorization, ";", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed authorization %q", authorization)
	}
	total, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed authorization %q", authorization)
	}
	return parts[0], total, nil
}

func descriptionOr(opts gateway.Options, def string) string {
	if opts.Description != "" {
		return opts.Description
	}
	return def
}
