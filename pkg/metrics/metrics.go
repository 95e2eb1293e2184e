// Package metrics provides Prometheus metrics for the conversion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsParsed counts parsed documents by detected dialect.
	DocumentsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaebconv_documents_parsed_total",
			Help: "Total number of documents parsed",
		},
		[]string{"dialect"},
	)

	// ParseFallbacks counts structured-markup inputs that fell back to the
	// heuristic line parser.
	ParseFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gaebconv_parse_fallbacks_total",
			Help: "Total number of structured parses that fell back to the heuristic path",
		},
	)

	// ExportsTotal counts generated export artifacts by format.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaebconv_exports_total",
			Help: "Total number of export artifacts generated",
		},
		[]string{"format"},
	)

	// ExportErrors counts failed export attempts by format.
	ExportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaebconv_export_errors_total",
			Help: "Total number of failed export attempts",
		},
		[]string{"format"},
	)

	// RequestDuration observes HTTP handler latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gaebconv_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
