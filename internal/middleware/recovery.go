package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"knowledgestack/internal/httputil"
)

// headerTracker remembers whether a response has started
type headerTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *headerTracker) WriteHeader(status int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(status)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}

// Recovery turns a handler panic into a logged 500. A response that has
// already started is left as is.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracker := &headerTracker{ResponseWriter: w}
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"host", r.Host,
						"org_header", r.Header.Get(OrgHeader),
						"stack", string(debug.Stack()),
					)

					if !tracker.wroteHeader {
						httputil.RespondError(tracker, http.StatusInternalServerError, "internal server error")
					}
				}
			}()

			next.ServeHTTP(tracker, r)
		})
	}
}
