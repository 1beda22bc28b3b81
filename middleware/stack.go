package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// DefaultStack returns the standard middleware stack: RequestID, RealIP,
// Logger, and Recoverer.
func DefaultStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	}
}
