package gateway

// Address holds billing or shipping address fields. Absent fields are simply
// omitted from the processor request.
type Address struct {
	Name     string
	Company  string
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
	Phone    string
}

// StoredCredentialInitiator identifies who initiated a stored-credential
// transaction.
type StoredCredentialInitiator string

const (
	InitiatorCardholder StoredCredentialInitiator = "cardholder"
	InitiatorMerchant   StoredCredentialInitiator = "merchant"
)

// StoredCredentialReason classifies a merchant-initiated charge.
type StoredCredentialReason string

const (
	ReasonUnscheduled StoredCredentialReason = "unscheduled"
	ReasonRecurring   StoredCredentialReason = "recurring"
	ReasonInstallment StoredCredentialReason = "installment"
)

// StoredCredential frames a transaction that reuses a stored instrument.
type StoredCredential struct {
	Initiator  StoredCredentialInitiator
	Reason     StoredCredentialReason
	NetworkTxn string // network transaction id from the initial charge
}

// Options is the per-call options bag. Unset fields fall back to
// gateway-specific defaults; fields a processor does not support are ignored,
// never an error.
type Options struct {
	OrderID          string
	Description      string
	Currency         string
	Email            string
	IP               string
	BillingAddress   *Address
	ShippingAddress  *Address
	StoredCredential *StoredCredential

	// Metadata is passed through to processors that accept free-form
	// key/value pairs.
	Metadata map[string]string

	// Extra carries vendor-specific extensions keyed by the adapter's own
	// field names. Adapters ignore keys they do not recognize.
	Extra map[string]any
}

// CurrencyOr returns the configured currency or the given default.
func (o Options) CurrencyOr(def string) string {
	if o.Currency != "" {
		return o.Currency
	}
	return def
}
