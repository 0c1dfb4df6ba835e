package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warikan-app/warikan-api/internal/platform/logger"
	"github.com/warikan-app/warikan-api/internal/platform/metrics"
)

const unmatchedRoute = "unmatched"

// instrument records request metrics and writes one access log line per
// request. It also puts a request-scoped logger into the context.
func instrument(base *zap.Logger, m *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			if m != nil {
				defer m.Track()()
			}

			rid := middleware.GetReqID(r.Context())
			if rid != "" {
				w.Header().Set(middleware.RequestIDHeader, rid)
			}
			reqLog := base.With(logger.RequestID(rid))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.ToContext(r.Context(), reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := unmatchedRoute
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			elapsed := time.Since(start)
			if m != nil {
				m.Observe(r.Method, route, status, elapsed)
			}

			fields := []zap.Field{
				logger.Method(r.Method),
				logger.Route(route),
				logger.Path(r.URL.Path),
				logger.Status(status),
				logger.Duration(elapsed),
				logger.Bytes(ww.BytesWritten()),
				logger.ClientIP(r.RemoteAddr),
			}
			if status >= http.StatusInternalServerError {
				reqLog.Error("request", fields...)
				return
			}
			reqLog.Info("request", fields...)
		})
	}
}
