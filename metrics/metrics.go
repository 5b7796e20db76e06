// Package metrics holds the Prometheus collectors for discovery and topic operations.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "topicdisc"

var (
	once sync.Once

	Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "lookups_total",
		Help:      "Random-target lookups performed by the discovery loop",
	}, []string{"result"})

	DiscoveredNodes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "discovered_nodes_total",
		Help:      "Nodes returned by discovery lookups",
	})

	ConnectedPeers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "connected_peers",
		Help:      "Peers in the local table, as last reported by the engine",
	})

	FanOutOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fanout",
		Name:      "outcomes_total",
		Help:      "Per-node outcomes of fan-out batches",
	}, []string{"op", "result"})

	FanOutDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "fanout",
		Name:      "op_duration_seconds",
		Help:      "Duration of individual fan-out operations",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"op"})

	ActiveAdvertisements = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "topic",
		Name:      "active_advertisements",
		Help:      "Nodes currently holding an advertisement of a local topic",
	}, []string{"topic"})

	AdsFound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "topic",
		Name:      "ads_found_total",
		Help:      "Distinct advertisements merged from topic queries",
	}, []string{"digest"})

	Polls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "topic",
		Name:      "polls_total",
		Help:      "Active topic polls",
	}, []string{"result"})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(Lookups)
		prometheus.MustRegister(DiscoveredNodes)
		prometheus.MustRegister(ConnectedPeers)
		prometheus.MustRegister(FanOutOutcomes)
		prometheus.MustRegister(FanOutDuration)
		prometheus.MustRegister(ActiveAdvertisements)
		prometheus.MustRegister(AdsFound)
		prometheus.MustRegister(Polls)
	})
}

// Result returns the label value for err.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler registers the collectors and returns a mux serving them at /metrics.
func Handler() http.Handler {
	Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes the default registry on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serving metrics")
	}
	return nil
}
