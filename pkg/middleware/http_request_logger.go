package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPRequestLogger logs every request once it finished. Requests are logged
// at info level; anything at or above errorStatusCode is logged at error
// level. In debug mode the request path of every call is logged, otherwise
// only non-2xx responses are.
type HTTPRequestLogger struct {
	logger          *logrus.Logger
	debug           bool
	errorStatusCode int
}

func NewHTTPRequestLogger(logger *logrus.Logger, debug bool, errorStatusCode int) *HTTPRequestLogger {
	return &HTTPRequestLogger{
		logger:          logger,
		debug:           debug,
		errorStatusCode: errorStatusCode,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (l *HTTPRequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		entry := l.logger.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.statusCode,
			"duration": time.Since(start).String(),
		})

		switch {
		case rec.statusCode >= l.errorStatusCode:
			entry.Error("http request")
		case l.debug || rec.statusCode >= http.StatusBadRequest:
			entry.Info("http request")
		}
	})
}
