// Package telemetry exposes prometheus metrics for the headless watch mode.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mmcdole/libdesk/internal/feed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "libdesk"

// Recorder collects feed, refresh and API metrics on its own registry.
// It satisfies refresh.Recorder; Request matches api.RequestObserver.
type Recorder struct {
	registry *prometheus.Registry

	feedEvents    *prometheus.CounterVec
	feedLive      prometheus.Gauge
	notifications prometheus.Counter
	refreshes     *prometheus.CounterVec
	refreshTime   prometheus.Histogram
	inFlight      prometheus.Gauge
	requests      *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
}

// New creates a recorder with all metrics registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_total",
			Help:      "Row-change events received, by collection.",
		}, []string{"collection"}),
		feedLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_live",
			Help:      "1 while the change feed is subscribed.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_notifications_total",
			Help:      "Change notifications handed to the refresh coordinator.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Completed refresh cycles, by result.",
		}, []string{"result"}),
		refreshTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time spent fetching one refresh cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_in_flight",
			Help:      "1 while a refresh cycle is running.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Library API requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Library API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		r.feedEvents, r.feedLive, r.notifications,
		r.refreshes, r.refreshTime, r.inFlight,
		r.requests, r.requestTime,
		collectors.NewGoCollector(),
	)
	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Notified implements refresh.Recorder
func (r *Recorder) Notified() { r.notifications.Inc() }

// RefreshStarted implements refresh.Recorder
func (r *Recorder) RefreshStarted() { r.inFlight.Set(1) }

// RefreshFinished implements refresh.Recorder
func (r *Recorder) RefreshFinished(elapsed time.Duration, err error) {
	r.inFlight.Set(0)
	r.refreshTime.Observe(elapsed.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.refreshes.WithLabelValues(result).Inc()
}

// Request records one API call; pass it to api.Client.SetObserver
func (r *Recorder) Request(method, route string, status int, elapsed time.Duration) {
	code := "none"
	if status != 0 {
		code = strconv.Itoa(status)
	}
	r.requests.WithLabelValues(method, route, code).Inc()
	r.requestTime.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// FeedEvent counts a change event
func (r *Recorder) FeedEvent(e feed.Event) {
	r.feedEvents.WithLabelValues(string(e.Collection)).Inc()
}

// FeedStatus tracks subscription state
func (r *Recorder) FeedStatus(s feed.Status) {
	if s == feed.Live {
		r.feedLive.Set(1)
		return
	}
	r.feedLive.Set(0)
}

// Handler serves the metrics in the prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
