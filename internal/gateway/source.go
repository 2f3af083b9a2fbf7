package gateway

import (
	"strings"
	"time"
)

// CardBrand identifies a card network.
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "american_express"
	BrandDiscover   CardBrand = "discover"
	BrandJCB        CardBrand = "jcb"
	BrandUnionPay   CardBrand = "unionpay"
	BrandUnknown    CardBrand = ""
)

// PaymentSource is the payment instrument for an operation. Exactly one
// concrete variant is active per call: *CreditCard, *Reference or
// *BankAccount. The interface is sealed so adapters can switch on the
// variant instead of probing fields.
type PaymentSource interface {
	sourceVariant() string
}

// CreditCard is a raw card.
type CreditCard struct {
	Number            string
	Month             int
	Year              int
	VerificationValue string
	Name              string
	Brand             CardBrand // detected from Number when unset
}

func (*CreditCard) sourceVariant() string { return "credit_card" }

// Reference is an opaque token previously returned by Store on the same
// gateway. Adapters substitute it for raw card fields wherever the processor
// supports tokenized charges.
type Reference struct {
	Token string
}

func (*Reference) sourceVariant() string { return "reference" }

// BankAccount is a bank account / check payment source.
type BankAccount struct {
	RoutingNumber string
	AccountNumber string
	AccountHolder string
	AccountType   string // checking, savings
}

func (*BankAccount) sourceVariant() string { return "bank_account" }

// DisplayNumber returns the card number masked to its last four digits.
func (c *CreditCard) DisplayNumber() string {
	if len(c.Number) < 4 {
		return "XXXX"
	}
	return "XXXX-XXXX-XXXX-" + c.Number[len(c.Number)-4:]
}

// Expired reports whether the card expiry lies before the current month.
func (c *CreditCard) Expired(now time.Time) bool {
	if c.Year == 0 {
		return true
	}
	if c.Year > now.Year() {
		return false
	}
	if c.Year < now.Year() {
		return true
	}
	return c.Month < int(now.Month())
}

// DetectedBrand returns the explicit brand when set, otherwise the brand
// inferred from the number prefix.
func (c *CreditCard) DetectedBrand() CardBrand {
	if c.Brand != BrandUnknown {
		return c.Brand
	}
	return DetectBrand(c.Number)
}

// DetectBrand infers the card network from the leading digits.
func DetectBrand(number string) CardBrand {
	n := strings.TrimSpace(number)
	switch {
	case n == "":
		return BrandUnknown
	case n[0] == '4':
		return BrandVisa
	case strings.HasPrefix(n, "34"), strings.HasPrefix(n, "37"):
		return BrandAmex
	case strings.HasPrefix(n, "62"):
		return BrandUnionPay
	case strings.HasPrefix(n, "6011"), strings.HasPrefix(n, "65"):
		return BrandDiscover
	case strings.HasPrefix(n, "35"):
		return BrandJCB
	case len(n) >= 2 && n[0] == '5' && n[1] >= '1' && n[1] <= '5':
		return BrandMastercard
	case strings.HasPrefix(n, "22"), strings.HasPrefix(n, "27"):
		return BrandMastercard
	default:
		return BrandUnknown
	}
}

// ValidLuhn reports whether the number passes the Luhn checksum.
func ValidLuhn(number string) bool {
	if number == "" {
		return false
	}
	sum, dbl := 0, false
	for i := len(number) - 1; i >= 0; i-- {
		ch := number[i]
		if ch < '0' || ch > '9' {
			return false
		}
		d := int(ch - '0')
		if dbl {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		dbl = !dbl
	}
	return sum%10 == 0
}
