package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// HTTPResponseTraceInjection exposes the request's trace id on the response
// so clients can quote it in support tickets.
func HTTPResponseTraceInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := trace.SpanContextFromContext(r.Context())
		if sc.HasTraceID() {
			w.Header().Set("X-Trace-ID", sc.TraceID().String())
		}

		next.ServeHTTP(w, r)
	})
}
