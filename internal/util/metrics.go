package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_events_published_total",
		Help: "Total number of product events published by the catalog",
	}, []string{"event_type"})

	ProductEventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_events_publish_failed_total",
		Help: "Total number of catalog mutations whose event could not be published",
	}, []string{"event_type"})

	ProductEventsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_events_received_total",
		Help: "Total number of product events delivered to the projector",
	}, []string{"event_type"})

	ProductEventsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_events_failed_total",
		Help: "Total number of deliveries that could not be handled",
	}, []string{"reason"})

	ProductEventsDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_events_duplicate_total",
		Help: "Total number of redelivered events skipped by deduplication",
	})

	ProjectedProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "projected_products",
		Help: "Number of products currently held in the projection",
	})

	EventProjectionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "event_projection_latency_seconds",
		Help:    "Latency of projecting a single product event",
		Buckets: prometheus.DefBuckets,
	})

	OrdersRepricedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_repriced_total",
		Help: "Total number of pending orders repriced after a product update",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of pending orders cancelled after a product deletion",
	})

	CascadeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_failures_total",
		Help: "Total number of order writes that failed during a cascade",
	}, []string{"event_type"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order creations",
	}, []string{"reason"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
