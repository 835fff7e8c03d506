// Package middleware provides the HTTP middleware stack: request ids,
// access logging, panic recovery, CORS and security headers.
package middleware

import (
	"net/http"

	siteerrors "github.com/conneroisu/devlog/internal/errors"
)

// Middleware represents a single middleware function
type Middleware func(http.Handler) http.Handler

// OriginValidator decides which cross-origin callers get CORS headers.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// Dependencies contains everything the standard stack needs.
type Dependencies struct {
	Logger          Logger
	OriginValidator OriginValidator
	Development     bool
}

// MiddlewareChain composes middlewares. The first added middleware is the
// outermost wrapper.
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewMiddlewareChain builds the standard stack, outermost first: request
// id, logging, recovery, CORS, security headers.
func NewMiddlewareChain(deps Dependencies) *MiddlewareChain {
	if deps.OriginValidator == nil {
		panic("MiddlewareChain: originValidator cannot be nil (required for CORS)")
	}

	chain := &MiddlewareChain{middlewares: make([]Middleware, 0, 5)}
	chain.AddMiddleware(RequestID())
	if deps.Logger != nil {
		chain.AddMiddleware(Logging(deps.Logger))
	}
	chain.AddMiddleware(Recovery(deps.Logger))
	chain.AddMiddleware(CORS(deps.OriginValidator, deps.Development))
	chain.AddMiddleware(SecurityHeaders())
	return chain
}

// AddMiddleware adds a middleware inside the ones already added.
func (mc *MiddlewareChain) AddMiddleware(middleware Middleware) {
	mc.middlewares = append(mc.middlewares, middleware)
}

// Apply wraps handler with every middleware in the chain.
func (mc *MiddlewareChain) Apply(handler http.Handler) http.Handler {
	if handler == nil {
		panic("MiddlewareChain.Apply: handler cannot be nil")
	}

	wrapped := handler
	for i := len(mc.middlewares) - 1; i >= 0; i-- {
		wrapped = mc.middlewares[i](wrapped)
	}
	return wrapped
}

// Len returns the number of middlewares in the chain
func (mc *MiddlewareChain) Len() int {
	return len(mc.middlewares)
}

// CORS sets Access-Control headers for allowed origins. In development,
// unknown origins get a wildcard instead of nothing; otherwise their
// preflight requests are refused with 403.
func CORS(validator OriginValidator, development bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && validator.IsAllowedOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			} else if development {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				if origin != "" && !development && !validator.IsAllowedOrigin(origin) {
					writeError(w, siteerrors.NewResponse(siteerrors.ErrInvalidOrigin(origin)), http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets conservative browser security headers.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
