// Package audit logs API requests and prunes the activity log.
package audit

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/partnershiphub/hub/pkg/authz"
	"github.com/partnershiphub/hub/pkg/tenancy"
)

// responseCapture records the status code written by the wrapped handler.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// AccessLog logs one structured line per API request. Mutations log at
// info, reads at debug, and server errors at error. Health probes are not
// logged.
//
// Identity and project are read after the handler runs, so AccessLog must
// wrap the routers that attach them.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("access")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			tracked := r.WithContext(withTrace(r.Context()))
			next.ServeHTTP(capture, tracked)

			tr := traceFrom(tracked.Context())
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", capture.statusCode),
				zap.String("outcome", outcomeFromStatus(capture.statusCode)),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("actor", tr.actor),
			}
			if tr.projectID != "" {
				fields = append(fields, zap.String("projectID", tr.projectID))
			}
			if resource, id := resourceFromPath(r.URL.Path); resource != "" {
				fields = append(fields, zap.String("resource", resource))
				if id != "" {
					fields = append(fields, zap.String("resourceID", id))
				}
			}
			fields = append(fields, zap.String("action", actionVerb(r.Method, r.URL.Path)))

			switch {
			case capture.statusCode >= 500:
				logger.Error("request failed", fields...)
			case isMutation(r.Method):
				logger.Info("request", fields...)
			default:
				logger.Debug("request", fields...)
			}
		})
	}
}

// Track copies the identity and project resolved by inner middleware into
// the trace started by AccessLog. Mount it after identity and tenancy.
func Track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tr := traceFrom(r.Context()); tr != nil {
			if id, ok := authz.IdentityFromContext(r.Context()); ok {
				tr.actor = id.UserID
			}
			if project := tenancy.ProjectFromContext(r.Context()); project != "" {
				tr.projectID = project
			}
		}
		next.ServeHTTP(w, r)
	})
}

// outcomeFromStatus maps HTTP status codes to log outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 400:
		return "success"
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "denied"
	case code >= 500:
		return "error"
	default:
		return "failure"
	}
}
