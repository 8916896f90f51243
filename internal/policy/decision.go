package policy

import (
	"net/http"

	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
)

// Kind classifies a denial by the HTTP status class it maps to.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindUnauthenticated
	KindForbidden
	KindNotFound
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Status is the HTTP status code of the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusForbidden
	}
}

// Decision is the outcome of a single policy. The zero value is a forbidden
// denial without a reason, so a policy must opt in to Allow explicitly.
type Decision struct {
	Allowed bool
	Kind    Kind
	Reason  string
}

// Allow grants the request.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny refuses the request with the given class and a user-safe reason.
func Deny(kind Kind, reason string) Decision {
	return Decision{Kind: kind, Reason: reason}
}

// Forbidden is shorthand for Deny(KindForbidden, reason).
func Forbidden(reason string) Decision {
	return Deny(KindForbidden, reason)
}

// Invalid is shorthand for Deny(KindValidation, reason).
func Invalid(reason string) Decision {
	return Deny(KindValidation, reason)
}

// Missing is shorthand for Deny(KindNotFound, reason).
func Missing(reason string) Decision {
	return Deny(KindNotFound, reason)
}

// Outcome is the metric label of the decision.
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allow"
	}
	return "deny_" + d.Kind.String()
}

// Err converts a denial into the typed API error. It returns nil for Allow.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	var base *appErrors.Error
	switch d.Kind {
	case KindValidation:
		base = appErrors.ErrValidation
	case KindUnauthenticated:
		base = appErrors.ErrUnauthorized
	case KindNotFound:
		base = appErrors.ErrNotFound
	default:
		base = appErrors.ErrForbidden
	}
	return appErrors.Clone(base, d.Reason)
}
