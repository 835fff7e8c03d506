package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateOrigin validates an Origin header against allowedOrigins. An
// entry matches on the full origin or on host[:port] alone.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		allowed = strings.TrimSuffix(allowed, "/")
		if allowed == "*" || origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}

// OriginValidator decides which browser origins may call the API and open
// the live-update socket.
type OriginValidator struct {
	allowed     []string
	development bool
}

// NewOriginValidator creates a validator. In development, localhost and
// 127.0.0.1 origins on any port are accepted as well.
func NewOriginValidator(allowed []string, development bool) *OriginValidator {
	list := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if a = strings.TrimSpace(a); a != "" {
			list = append(list, a)
		}
	}
	return &OriginValidator{allowed: list, development: development}
}

// IsAllowedOrigin reports whether origin may be served. An empty origin
// is a same-origin or non-browser request and is allowed.
func (v *OriginValidator) IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	if ValidateOrigin(origin, v.allowed) == nil {
		return true
	}
	if !v.development {
		return false
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return (u.Scheme == "http" || u.Scheme == "https") && (host == "localhost" || host == "127.0.0.1")
}

// Development reports whether the validator was built for development.
func (v *OriginValidator) Development() bool {
	return v.development
}
