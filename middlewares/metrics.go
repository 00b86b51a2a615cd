package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Arletteportilla/vivero-alerts/metrics"
)

type responseWriterWithStatus struct {
	http.ResponseWriter
	StatusCode int
}

func (w *responseWriterWithStatus) WriteHeader(code int) {
	w.StatusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments a plain mux, used by the worker's
// health/metrics server.
func MetricsMiddleware(next http.Handler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriterWithStatus{ResponseWriter: w, StatusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		endpoint := r.URL.Path
		method := r.Method
		status := fmt.Sprintf("%d", wrapped.StatusCode)

		metrics.HttpRequestsTotal.WithLabelValues(endpoint, status, method).Inc()
		metrics.HttpRequestDuration.WithLabelValues(endpoint, method).Observe(duration)
		if wrapped.StatusCode >= 400 && wrapped.StatusCode < 600 {
			metrics.HttpErrorsTotal.WithLabelValues(endpoint, status, method).Inc()
		}
	})
}

func GinMetricsMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		duration := time.Since(start).Seconds()
		endpoint := ctx.FullPath()
		method := ctx.Request.Method
		statusCode := ctx.Writer.Status()
		status := fmt.Sprintf("%d", statusCode)
		metrics.HttpRequestsTotal.WithLabelValues(endpoint, status, method).Inc()
		metrics.HttpRequestDuration.WithLabelValues(endpoint, method).Observe(duration)
		if statusCode >= 400 && statusCode < 600 {
			metrics.HttpErrorsTotal.WithLabelValues(endpoint, status, method).Inc()
		}
	}
}
