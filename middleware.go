// middleware.go contains middleware for request ID, logging, recovery for all functions.
package main

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

const requestIDKey ctxKey = "request_id"

// GetRequestID safely extracts the request ID from context.
// Returns empty string if missing (shouldn't happen once middleware is wired).
func GetRequestID(ctx context.Context) string {
	v := ctx.Value(requestIDKey)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}

		// Put it into context so handlers/loggers can access it.
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", rid)

		next.ServeHTTP(w, r)
	})
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one line per request once the handler returns.
func loggingMiddleware(logger Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sr := &statusRecorder{
			ResponseWriter: w,
			status:         http.StatusOK, // default if handler never calls WriteHeader
		}

		next.ServeHTTP(sr, r)

		logger.Info(r.Context(), "request",
			"request_id", GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"duration", time.Since(start),
		)
	})
}

// recoverMiddleware recovers from panics and logs the panic.
func recoverMiddleware(logger Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Catch panics from downstream middleware/handlers.
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context(), "panic recovered",
					"request_id", GetRequestID(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()),
				)

				// If headers/body already started, we can't reliably send a new response.
				writeErrorBody(w, http.StatusInternalServerError, internalServerErrorMsg)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
