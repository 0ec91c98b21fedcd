package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	conversions *prometheus.CounterVec
	triples     prometheus.Histogram
	uploads     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ontocloud_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ontocloud_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ontocloud_conversions_total",
			Help: "JSON to RDF conversions by output format and result",
		}, []string{"format", "result"}),
		triples: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ontocloud_conversion_triples",
			Help:    "Triples produced per successful conversion",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ontocloud_fuseki_uploads_total",
			Help: "Turtle loads into Fuseki by result",
		}, []string{"result"}),
	}
}
