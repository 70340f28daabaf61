package services

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datakeep_http_requests_total",
		Help: "Number of HTTP requests handled, by method.",
	}, []string{"method"})
	uploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datakeep_uploaded_bytes_total",
		Help: "Number of file bytes accepted into the bytes store.",
	})
)

// countRequests is mux middleware that counts every request handled.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.WithLabelValues(r.Method).Inc()
		next.ServeHTTP(w, r)
	})
}

// countUpload records the size of a completed upload.
func countUpload(size int64) {
	uploadedBytes.Add(float64(size))
}

func addMetricsRoute(router *mux.Router) {
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
