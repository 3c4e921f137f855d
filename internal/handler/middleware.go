package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// SchedulerTokenHeader carries the shared secret for /internal routes.
const SchedulerTokenHeader = "X-Scheduler-Token"

// LoggingMiddleware logs every request once it completes.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		evt := log.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			evt = log.Warn()
		}
		evt.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

// RecoveryMiddleware turns a panic in a handler into a 500 response.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Recovered from panic in handler")
				errorResponse(w, http.StatusInternalServerError, "internal",
					"the server encountered a problem and could not process your request")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SchedulerAuthMiddleware requires the scheduler token header when token is
// set. An empty token leaves the routes open.
func SchedulerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := r.Header.Get(SchedulerTokenHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
					log.Warn().
						Str("path", r.URL.Path).
						Str("remote_addr", r.RemoteAddr).
						Msg("Rejected internal request with bad scheduler token")
					errorResponse(w, http.StatusUnauthorized, "unauthorized", "invalid scheduler token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
