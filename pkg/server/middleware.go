package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/baukit/gaebconv/pkg/metrics"
)

// RequestLogger logs one line per request and records latency metrics.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			metrics.RequestDuration.WithLabelValues(r.URL.Path, r.Method).Observe(elapsed.Seconds())
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
