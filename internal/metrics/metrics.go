// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts HTTP requests by endpoint and status code.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "Total API requests",
	}, []string{"endpoint", "status"})

	// ScrapeTotal counts scrape outcomes by status and country.
	ScrapeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_total",
		Help: "Total scrape attempts",
	}, []string{"status", "country"})

	// CaptchaTotal counts CAPTCHA challenge detections per country.
	CaptchaTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captcha_total",
		Help: "Captcha detections",
	}, []string{"country"})

	// ScrapeDuration observes end-to-end scrape latency per country.
	ScrapeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scrape_duration_seconds",
		Help:    "Scrape duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"country"})

	// QueueDepth tracks the dispatcher's pending task count.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scrape_queue_depth",
		Help: "Current scrape queue depth",
	})

	// CacheSize tracks the number of live cache entries.
	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cache_size",
		Help: "Current cache size",
	})
)
