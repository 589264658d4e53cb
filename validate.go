package rsessions

import (
	"fmt"
	"regexp"

	"github.com/rsessions/rsessions/session"
)

var (
	validApp   = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	validToken = regexp.MustCompile(`^[a-zA-Z0-9]{64,65}$`)
)

func validateApp(app string) error {
	if app == "" {
		return fmt.Errorf("%w: no app supplied", ErrMissingParameter)
	}
	if !validApp.MatchString(app) {
		return fmt.Errorf("%w: invalid app format", ErrInvalidFormat)
	}
	return nil
}

func validateToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: no token supplied", ErrMissingParameter)
	}
	if !validToken.MatchString(token) {
		return fmt.Errorf("%w: invalid token format", ErrInvalidFormat)
	}
	return nil
}

// id is effectively free-form, only length-bounded to 1–128 chars.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: no id supplied", ErrMissingParameter)
	}
	if len(id) > 128 {
		return fmt.Errorf("%w: invalid id format", ErrInvalidFormat)
	}
	return nil
}

// ip is storage only: length-bounded, not parsed as an address.
func validateIP(ip string) error {
	if ip == "" {
		return fmt.Errorf("%w: no ip supplied", ErrMissingParameter)
	}
	if len(ip) > 39 {
		return fmt.Errorf("%w: invalid ip format", ErrInvalidFormat)
	}
	return nil
}

// validateTTL applies the default and the range check. ttl 0 means
// unspecified.
func validateTTL(ttl int64) (int64, error) {
	if ttl == 0 {
		return DefaultTTL, nil
	}
	if ttl < 10 || ttl > MaxTTL {
		return 0, fmt.Errorf("%w: ttl must be a positive integer >= 10", ErrInvalidValue)
	}
	return ttl, nil
}

func validateDT(dt int64) error {
	if dt < 10 {
		return fmt.Errorf("%w: dt must be a positive integer >= 10", ErrInvalidValue)
	}
	return nil
}

// validatePayload enforces the payload shape rules. When required is false
// a nil payload passes (create's optional d); a non-nil empty payload is
// always rejected. Scalar-or-null is guaranteed by the Value union itself.
func validatePayload(d session.Payload, required bool) error {
	if d == nil {
		if required {
			return fmt.Errorf("%w: no d supplied", ErrMissingParameter)
		}
		return nil
	}
	if len(d) == 0 {
		return fmt.Errorf("%w: d must contain at least one key", ErrInvalidValue)
	}
	return nil
}
