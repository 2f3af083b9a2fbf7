// Package alipay adapts the Alipay trade API to the uniform gateway
// surface. Alipay is a wallet: the payment source is a buyer auth code
// presented as a Reference, and the auth/capture split is not offered.
package alipay

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-pay/gopay"
	aliapi "github.com/go-pay/gopay/alipay"

	"github.com/merchantgate/server/internal/gateway"
	"github.com/merchantgate/server/internal/utils/random"
)

// Config holds Alipay credentials.
type Config struct {
	AppID           string
	PrivateKey      string // RSA2 private key, PEM
	AlipayPublicKey string // platform public key for signature verification, PEM
	IsProd          bool
}

// Gateway is the Alipay adapter.
type Gateway struct {
	client   *aliapi.Client
	test     bool
	scrubber *gateway.Scrubber
}

// New creates an Alipay gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.AppID == "" {
		return nil, gateway.MissingCredential("alipay", "app_id")
	}
	if cfg.PrivateKey == "" {
		return nil, gateway.MissingCredential("alipay", "private_key")
	}

	client, err := aliapi.NewClient(cfg.AppID, cfg.PrivateKey, cfg.IsProd)
	if err != nil {
		return nil, &gateway.ConfigError{Gateway: "alipay", Field: "private_key", Reason: err.Error()}
	}
	if cfg.AlipayPublicKey != "" {
		client.AutoVerifySign([]byte(cfg.AlipayPublicKey))
	}

	return &Gateway{
		client:   client,
		test:     !cfg.IsProd,
		scrubber: gateway.NewScrubber(cfg.PrivateKey, cfg.AlipayPublicKey),
	}, nil
}

// Name returns the registry name.
func (g *Gateway) Name() string { return "alipay" }

// Purchase pays immediately with the buyer's barcode auth code.
func (g *Gateway) Purchase(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	ref, ok := source.(*gateway.Reference)
	if !ok {
		return gateway.Unsupported("card payments", g.Name()).InTestMode(g.test), nil
	}

	orderID := opts.OrderID
	if orderID == "" {
		orderID = random.Ref("mg")
	}

	bm := make(gopay.BodyMap)
	bm.Set("out_trade_no", orderID)
	bm.Set("scene", "bar_code")
	bm.Set("auth_code", ref.Token)
	bm.Set("total_amount", gateway.MajorUnits(amount, opts.CurrencyOr("CNY")))
	bm.Set("subject", subjectOr(opts, "Purchase"))

	resp, err := g.client.TradePay(ctx, bm)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	if resp.Response.Code != successCode {
		return g.declined(resp.Response.Code, resp.Response.SubCode, resp.Response.SubMsg), nil
	}

	return gateway.Succeeded("Transaction approved", composeAuthorization(resp.Response.OutTradeNo, resp.Response.TradeNo), map[string]any{
		"out_trade_no": resp.Response.OutTradeNo,
		"trade_no":     resp.Response.TradeNo,
		"buyer_id":     resp.Response.BuyerUserId,
		"total_amount": resp.Response.TotalAmount,
	}).InTestMode(g.test), nil
}

// Authorize is not offered; the wallet settles immediately.
func (g *Gateway) Authorize(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("authorize", g.Name()).InTestMode(g.test), nil
}

// Capture is not offered; see Authorize.
func (g *Gateway) Capture(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return gateway.Unsupported("capture", g.Name()).InTestMode(g.test), nil
}

// Refund reverses a settled trade, in full or in part.
func (g *Gateway) Refund(ctx context.Context, amount int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	outTradeNo, tradeNo := splitAuthorization(authorization)

	bm := make(gopay.BodyMap)
	if tradeNo != "" {
		bm.Set("trade_no", tradeNo)
	} else {
		bm.Set("out_trade_no", outTradeNo)
	}
	bm.Set("out_request_no", random.Ref("rf"))
	bm.Set("refund_amount", gateway.MajorUnits(amount, opts.CurrencyOr("CNY")))
	if opts.Description != "" {
		bm.Set("refund_reason", opts.Description)
	}

	resp, err := g.client.TradeRefund(ctx, bm)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	if resp.Response.Code != successCode {
		return g.declined(resp.Response.Code, resp.Response.SubCode, resp.Response.SubMsg), nil
	}

	return gateway.Succeeded("Refund accepted", authorization, map[string]any{
		"trade_no":   resp.Response.TradeNo,
		"refund_fee": resp.Response.RefundFee,
		"buyer_id":   resp.Response.BuyerUserId,
	}).InTestMode(g.test), nil
}

// Void closes an unpaid trade.
func (g *Gateway) Void(ctx context.Context, authorization string, opts gateway.Options) (*gateway.Response, error) {
	outTradeNo, tradeNo := splitAuthorization(authorization)

	bm := make(gopay.BodyMap)
	if tradeNo != "" {
		bm.Set("trade_no", tradeNo)
	} else {
		bm.Set("out_trade_no", outTradeNo)
	}

	resp, err := g.client.TradeClose(ctx, bm)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	if resp.Response.Code != successCode {
		return g.declined(resp.Response.Code, resp.Response.SubCode, resp.Response.SubMsg), nil
	}

	return gateway.Succeeded("Trade closed", authorization, map[string]any{
		"trade_no": resp.Response.TradeNo,
	}).InTestMode(g.test), nil
}

// Credit transfers funds to an Alipay account identified by a Reference
// carrying the payee's logon ID.
func (g *Gateway) Credit(ctx context.Context, amount int64, source gateway.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	ref, ok := source.(*gateway.Reference)
	if !ok {
		return gateway.Unsupported("credit to this payment source", g.Name()).InTestMode(g.test), nil
	}

	outBizNo := random.Ref("tr")
	bm := make(gopay.BodyMap)
	bm.Set("out_biz_no", outBizNo)
	bm.Set("trans_amount", gateway.MajorUnits(amount, opts.CurrencyOr("CNY")))
	bm.Set("product_code", "TRANS_ACCOUNT_NO_PWD")
	bm.Set("biz_scene", "DIRECT_TRANSFER")
	bm.SetBodyMap("payee_info", func(sub gopay.BodyMap) {
		sub.Set("identity", ref.Token)
		sub.Set("identity_type", "ALIPAY_LOGON_ID")
	})
	if opts.Description != "" {
		bm.Set("order_title", opts.Description)
	}

	resp, err := g.client.FundTransUniTransfer(ctx, bm)
	if err != nil {
		return gateway.TransportFailure(err).InTestMode(g.test), nil
	}
	if resp.Response.Code != successCode {
		return g.declined(resp.Response.Code, resp.Response.SubCode, resp.Response.SubMsg), nil
	}

	return gateway.Succeeded("Transfer accepted", outBizNo, map[string]any{
		"out_biz_no": resp.Response.OutBizNo,
		"order_id":   resp.Response.OrderId,
		"status":     resp.Response.Status,
	}).InTestMode(g.test), nil
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

const successCode = "10000"

func (g *Gateway) declined(code, subCode, subMsg string) *gateway.Response {
	message := subMsg
	if message == "" {
		message = fmt.Sprintf("alipay error %s", code)
	}
	return gateway.Failed(message, mapSubCode(subCode), map[string]any{
		"code":     code,
		"sub_code": subCode,
		"sub_msg":  subMsg,
	}).InTestMode(g.test)
}

// mapSubCode translates Alipay sub codes into the shared taxonomy.
func mapSubCode(subCode string) gateway.ErrorCode {
	switch subCode {
	case "ACQ.BUYER_BALANCE_NOT_ENOUGH", "ACQ.BUYER_BANKCARD_BALANCE_NOT_ENOUGH":
		return gateway.ErrInsufficientFunds
	case "ACQ.TRADE_NOT_EXIST", "ACQ.TRADE_HAS_CLOSE", "ACQ.TRADE_STATUS_ERROR":
		return gateway.ErrInvalidAccount
	case "ACQ.PAYMENT_AUTH_CODE_INVALID", "ACQ.AUTH_CODE_EXPIRE":
		return gateway.ErrInvalidAccount
	case "ACQ.RISK_MERCHANT_IP_NOT_EXIST", "ACQ.SELLER_BEEN_BLOCKED", "ACQ.BUYER_BEEN_BLOCKED":
		return gateway.ErrFraudulent
	case "ACQ.SYSTEM_ERROR", "aop.ACQ.SYSTEM_ERROR":
		return gateway.ErrProcessingError
	case "isv.invalid-signature", "isv.missing-signature", "ACQ.ACCESS_FORBIDDEN":
		return gateway.ErrAuthenticationFailed
	}
	if strings.Contains(subCode, "BALANCE_NOT_ENOUGH") {
		return gateway.ErrInsufficientFunds
	}
	return gateway.ErrCardDeclined
}

// The authorization joins the merchant and platform trade numbers so either
// side of a follow-up call can be addressed.
func composeAuthorization(outTradeNo, tradeNo string) string {
	return outTradeNo + ";" + tradeNo
}

func splitAuthorization(authorization string) (outTradeNo, tradeNo string) {
	parts := strings.SplitN(authorization, ";", 2)
	outTradeNo = parts[0]
	if len(parts) == 2 {
		tradeNo = parts[1]
	}
	return outTradeNo, tradeNo
}

func subjectOr(opts gateway.Options, def string) string {
	if opts.Description != "" {
		return opts.Description
	}
	return def
}
