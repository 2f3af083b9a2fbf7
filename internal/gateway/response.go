package gateway

import "fmt"

// Response is the canonical result of any gateway operation.
//
// Params preserves the processor's response fields verbatim so integrators
// can inspect vendor detail beyond the normalized fields. Authorization is
// opaque to callers; adapters that encode composites (for processors whose
// capture/void API needs replayed state) split them back out themselves, the
// same field order every time. The adapter never mutates a Response after
// returning it.
type Response struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	Authorization string         `json:"authorization,omitempty"`
	Params        map[string]any `json:"params,omitempty"`
	ErrorCode     ErrorCode      `json:"error_code,omitempty"`
	TestMode      bool           `json:"test_mode,omitempty"`

	// Responses holds the individual results of composite operations such as
	// verify (authorize + void).
	Responses []*Response `json:"responses,omitempty"`
}

// Succeeded creates a successful Response. Success implies an empty error
// code, so none is accepted here.
func Succeeded(message, authorization string, params map[string]any) *Response {
	return &Response{
		Success:       true,
		Message:       message,
		Authorization: authorization,
		Params:        params,
	}
}

// Failed creates a declined or rejected Response. The message is the vendor's
// own text, or a fixed fallback when the vendor returned none.
func Failed(message string, code ErrorCode, params map[string]any) *Response {
	if message == "" {
		message = "transaction failed"
	}
	return &Response{
		Success:   false,
		Message:   message,
		Params:    params,
		ErrorCode: code,
	}
}

// TransportFailure folds a network-level failure (timeout, malformed
// response) into a failed Response so batch callers can always branch on
// Success.
func TransportFailure(err error) *Response {
	return &Response{
		Success:   false,
		Message:   fmt.Sprintf("gateway unreachable: %v", err),
		ErrorCode: ErrProcessingError,
	}
}

// Unsupported reports an operation the processor does not offer.
func Unsupported(operation, gatewayName string) *Response {
	return &Response{
		Success:   false,
		Message:   fmt.Sprintf("%s is not supported by %s", operation, gatewayName),
		ErrorCode: ErrUnsupported,
	}
}

// InTestMode marks the response as produced against a sandbox endpoint and
// returns it for chaining.
func (r *Response) InTestMode(test bool) *Response {
	r.TestMode = test
	return r
}
