package misp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies the outcome of a single REST call.
type Kind int

const (
	// KindOK is a 2xx response.
	KindOK Kind = iota
	// KindDuplicate is the server refusing an attribute that already exists
	// on the event. Callers treat it as a no-op.
	KindDuplicate
	// KindTransport means no usable response was received: the request could
	// not be built, sent or read.
	KindTransport
	// KindUnknown is any other non-2xx response.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindDuplicate:
		return "duplicate"
	case KindTransport:
		return "transport"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DuplicateAttributeReason is the error MISP reports when an attribute with
// the same value already exists on the event.
const DuplicateAttributeReason = "A similar attribute already exists for this event"

var (
	// ErrDuplicate is wrapped by Result.Err for KindDuplicate.
	ErrDuplicate = errors.New("attribute already exists")
	// ErrTransport is wrapped by Result.Err for KindTransport.
	ErrTransport = errors.New("transport failure")
	// ErrUnknown is wrapped by Result.Err for KindUnknown.
	ErrUnknown = errors.New("request failed")
)

// Response is the raw HTTP result of a call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Result is what every call returns. Response is nil for transport failures.
type Result struct {
	Response *Response
	Kind     Kind
	Err      error
}

// OK reports whether the call succeeded with a 2xx response.
func (r *Result) OK() bool {
	return r != nil && r.Kind == KindOK && r.Response != nil
}

// Benign reports whether the outcome needs no attention: success or a
// duplicate attribute.
func (r *Result) Benign() bool {
	return r.OK() || (r != nil && r.Kind == KindDuplicate)
}

// Body returns the raw response body, or nil when there is none.
func (r *Result) Body() []byte {
	if r == nil || r.Response == nil {
		return nil
	}
	return r.Response.Body
}

// StatusCode returns the HTTP status, or 0 when no response was received.
func (r *Result) StatusCode() int {
	if r == nil || r.Response == nil {
		return 0
	}
	return r.Response.StatusCode
}

// Decode unmarshals a successful response body into v.
func (r *Result) Decode(v interface{}) error {
	if !r.OK() {
		if r != nil && r.Err != nil {
			return r.Err
		}
		return fmt.Errorf("no response to decode")
	}
	if err := json.Unmarshal(r.Response.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
