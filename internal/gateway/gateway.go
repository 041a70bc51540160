// Package gateway defines the uniform model-invocation capability the
// orchestration core depends on. Provider quirks (endpoints, auth, token
// limits) stay entirely behind this boundary; the core never branches on
// provider identity.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// Tier selects a cost/capability class, not a vendor. Quick-think serves the
// high-volume analyst and debate turns; deep-think serves judge and
// portfolio-manager steps.
type Tier int

const (
	TierQuick Tier = iota
	TierDeep
)

func (t Tier) String() string {
	if t == TierDeep {
		return "deep"
	}
	return "quick"
}

type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindRateLimited
	KindInvalidResponse
	KindAuth
	KindDataUnavailable
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "gateway_timeout"
	case KindRateLimited:
		return "gateway_rate_limited"
	case KindInvalidResponse:
		return "gateway_invalid_response"
	case KindAuth:
		return "gateway_auth_error"
	case KindDataUnavailable:
		return "data_unavailable"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the structured failure every gateway call resolves to.
type Error struct {
	Kind ErrorKind
	Role string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Role != "" {
		msg += " (" + e.Role + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a bounded backoff retry is worthwhile. Auth
// errors never are; invalid responses get a repair prompt instead (handled
// by the stage runner, not here).
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}

// Wrap builds an *Error, preserving an existing one's kind when present.
func Wrap(kind ErrorKind, role string, err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return &Error{Kind: ge.Kind, Role: role, Err: ge.Err}
	}
	return &Error{Kind: kind, Role: role, Err: err}
}

// KindOf extracts the error kind, defaulting to timeout for unclassified
// transport failures.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTimeout
}

// ModelGateway is the single capability the core needs from a provider: a
// role-scoped completion at a thinking tier. Implementations must be safe to
// call repeatedly with identical arguments.
type ModelGateway interface {
	Complete(ctx context.Context, role string, tier Tier, messages []*schema.Message) (string, error)
}

// InvalidResponse builds the validation-failure error a stage runner surfaces
// when a completion fails shape validation.
func InvalidResponse(role string, reason string) *Error {
	return &Error{Kind: KindInvalidResponse, Role: role, Err: fmt.Errorf("%s", reason)}
}
