package gateway

import "fmt"

// ConfigError reports invalid or incomplete gateway credentials at
// construction time. It is the only failure channel besides per-call
// Responses: once a gateway is built, operations do not fail for
// configuration reasons.
type ConfigError struct {
	Gateway string
	Field   string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s configuration: %s %s", e.Gateway, e.Field, e.Reason)
}

// MissingCredential builds a ConfigError for a required credential key that
// was not supplied.
func MissingCredential(gatewayName, field string) *ConfigError {
	return &ConfigError{Gateway: gatewayName, Field: field, Reason: "is required"}
}
