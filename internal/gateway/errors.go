// Package gateway - errors.go maps failures to the caller-facing taxonomy.
//
// DESIGN: Callers see a small, stable set of errors. Classify is the only
// place that decides which one a failure becomes:
//   - ProviderNotConfigured   500  missing endpoint or credential
//   - QuotaExceeded           429  admission denied, with a quota snapshot
//   - UpstreamRateLimit       429  provider 429
//   - UpstreamBillingRequired 402  provider 402
//   - UpstreamGatewayError    500  any other provider or network failure
//   - InternalError           500  everything else, including quota store
//     outages (admission fails closed)
//
// Messages are fixed strings. Provider bodies and internal error text only
// reach the log.
package gateway

import (
	"errors"
	"net/http"

	"github.com/munilab/ai-gateway/internal/provider"
)

// Kind names an error class.
type Kind string

const (
	KindProviderNotConfigured   Kind = "ProviderNotConfigured"
	KindQuotaExceeded           Kind = "QuotaExceeded"
	KindUpstreamRateLimit       Kind = "UpstreamRateLimit"
	KindUpstreamBillingRequired Kind = "UpstreamBillingRequired"
	KindUpstreamGatewayError    Kind = "UpstreamGatewayError"
	KindInternalError           Kind = "InternalError"
	KindTooManyRequests         Kind = "TooManyRequests"
)

var kindStatus = map[Kind]int{
	KindProviderNotConfigured:   http.StatusInternalServerError,
	KindQuotaExceeded:           http.StatusTooManyRequests,
	KindUpstreamRateLimit:       http.StatusTooManyRequests,
	KindUpstreamBillingRequired: http.StatusPaymentRequired,
	KindUpstreamGatewayError:    http.StatusInternalServerError,
	KindInternalError:           http.StatusInternalServerError,
	KindTooManyRequests:         http.StatusTooManyRequests,
}

var kindMessage = map[Kind]string{
	KindProviderNotConfigured:   "AI provider is not configured",
	KindQuotaExceeded:           "Daily AI request limit reached. Please try again tomorrow.",
	KindUpstreamRateLimit:       "The AI provider is receiving too many requests. Please retry shortly.",
	KindUpstreamBillingRequired: "AI credits are exhausted. Please contact an administrator.",
	KindUpstreamGatewayError:    "The AI provider request failed",
	KindInternalError:           "Internal error",
	KindTooManyRequests:         "Too many requests",
}

// Error is a classified gateway failure.
type Error struct {
	Kind Kind
	// UpstreamStatus is the provider's HTTP status, when there was one.
	UpstreamStatus int
	Err            error
}

// NewError creates a classified error wrapping err.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status for the error.
func (e *Error) Status() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Message is the caller-safe message.
func (e *Error) Message() string {
	if m, ok := kindMessage[e.Kind]; ok {
		return m
	}
	return kindMessage[KindInternalError]
}

// Classify maps any error to the taxonomy.
func Classify(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, provider.ErrNotConfigured) {
		return NewError(KindProviderNotConfigured, err)
	}

	var se *provider.StatusError
	if errors.As(err, &se) {
		e := &Error{UpstreamStatus: se.StatusCode, Err: err}
		switch se.StatusCode {
		case http.StatusTooManyRequests:
			e.Kind = KindUpstreamRateLimit
		case http.StatusPaymentRequired:
			e.Kind = KindUpstreamBillingRequired
		default:
			e.Kind = KindUpstreamGatewayError
		}
		return e
	}

	var te *provider.TransportError
	if errors.As(err, &te) || errors.Is(err, provider.ErrInvalidResponse) {
		return NewError(KindUpstreamGatewayError, err)
	}
	return NewError(KindInternalError, err)
}
