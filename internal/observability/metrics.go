// Package observability exposes Prometheus counters for location sampling,
// run sessions and persistence.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Rejection reasons used as label values.
const (
	ReasonAccuracy = "accuracy"
	ReasonOutlier  = "outlier"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	samplesAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stride",
		Subsystem: "location",
		Name:      "samples_accepted_total",
		Help:      "Location samples that contributed distance to a run.",
	})

	samplesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stride",
		Subsystem: "location",
		Name:      "samples_rejected_total",
		Help:      "Location samples dropped by the accuracy or outlier filter.",
	}, []string{"reason"})

	locationErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stride",
		Subsystem: "location",
		Name:      "errors_total",
		Help:      "Transient errors reported by the location source.",
	})

	persistErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stride",
		Subsystem: "store",
		Name:      "write_errors_total",
		Help:      "Failed durable writes, labeled by operation.",
	}, []string{"op"})

	runsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stride",
		Subsystem: "session",
		Name:      "runs_completed_total",
		Help:      "Runs finalized into history.",
	})

	runDistance = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stride",
		Subsystem: "session",
		Name:      "run_distance_miles",
		Help:      "Distance of finalized runs.",
		Buckets:   []float64{0.5, 1, 2, 3.1, 5, 6.2, 10, 13.1, 20, 26.2},
	})
)

func init() {
	Registry.MustRegister(samplesAccepted, samplesRejected, locationErrors, persistErrors, runsCompleted, runDistance)
}

// SampleAccepted counts a sample that contributed distance.
func SampleAccepted() {
	samplesAccepted.Inc()
}

// SampleRejected counts a filtered sample.
func SampleRejected(reason string) {
	samplesRejected.WithLabelValues(reason).Inc()
}

// LocationError counts a transient location source error.
func LocationError() {
	locationErrors.Inc()
}

// PersistFailed counts a failed durable write for op.
func PersistFailed(op string) {
	persistErrors.WithLabelValues(op).Inc()
}

// RunCompleted records a finalized run.
func RunCompleted(distanceMi float64) {
	runsCompleted.Inc()
	runDistance.Observe(distanceMi)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. An empty addr
// disables the endpoint.
func Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("metrics endpoint listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
