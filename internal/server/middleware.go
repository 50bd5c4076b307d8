package server

import (
	"net/http"
	"time"

	"github.com/khronos/khronos/pkg/logger"
)

// Middleware chains the status server's cross-cutting concerns.
type Middleware struct{}

// NewMiddleware creates a Middleware instance.
func NewMiddleware() *Middleware {
	return &Middleware{}
}

// Apply wraps next with recovery and request logging: logging outermost
// (so it times and logs even a request the recovery middleware catches),
// recovery innermost.
func (m *Middleware) Apply(next http.Handler) http.Handler {
	handler := next
	handler = m.recoveryMiddleware(handler)
	handler = m.loggingMiddleware(handler)
	return handler
}

func (m *Middleware) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.HTTP(r.Method, r.URL.Path, rw.statusCode, time.Since(start), r.RemoteAddr)
	})
}

func (m *Middleware) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.SafeError("server", "panic recovered", nil, map[string]interface{}{
					"panic":  err,
					"method": r.Method,
					"path":   r.URL.Path,
				})
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code for
// loggingMiddleware.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
