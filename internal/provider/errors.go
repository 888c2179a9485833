package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind classifies a provider failure
type Kind int

const (
	MissingCredential Kind = iota + 1
	Unauthorized
	RateLimited
	Overloaded
	NetworkFailure
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case MissingCredential:
		return "missing_credential"
	case Unauthorized:
		return "unauthorized"
	case RateLimited:
		return "rate_limited"
	case Overloaded:
		return "overloaded"
	case NetworkFailure:
		return "network_failure"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error is the failure type returned by every remote generator
type Error struct {
	Kind     Kind
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a provider error of kind k.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// classifyResponse maps a non-2xx response to an Error. Body markers take
// precedence over the status code because some APIs report bad keys as 400.
func classifyResponse(provider string, status int, body []byte) *Error {
	msg := gjson.GetBytes(body, "error.message").String()
	code := gjson.GetBytes(body, "error.status").String()
	raw := string(body)

	e := &Error{Provider: provider, Status: status, Message: msg}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	switch {
	case strings.Contains(raw, "API_KEY_INVALID"),
		status == http.StatusUnauthorized,
		status == http.StatusForbidden:
		e.Kind = Unauthorized
	case status == http.StatusTooManyRequests,
		code == "RESOURCE_EXHAUSTED",
		strings.Contains(raw, "QUOTA_EXCEEDED"):
		e.Kind = RateLimited
	case status == http.StatusServiceUnavailable,
		code == "UNAVAILABLE",
		strings.Contains(strings.ToLower(msg), "overloaded"):
		e.Kind = Overloaded
	default:
		e.Kind = MalformedResponse
	}
	return e
}
