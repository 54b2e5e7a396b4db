package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pathstore-dev/pathstore/pkg/pathstore"
)

// MetricsConfig configures store instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "pathstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures store instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the update-duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "pathstore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// storeMetrics holds the Prometheus metrics for one instrumented store.
type storeMetrics struct {
	updatesTotal       *prometheus.CounterVec
	resetsTotal        prometheus.Counter
	notificationsTotal prometheus.Counter
	updateDuration     prometheus.Histogram
}

func initMetrics(config MetricsConfig, store *pathstore.Store) *storeMetrics {
	factory := promauto.With(config.Registry)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "subscriptions_active",
		Help:        "Number of live (path, listener) registrations",
		ConstLabels: config.ConstLabels,
	}, func() float64 {
		return float64(store.Registry().Active())
	})

	return &storeMetrics{
		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of field and whole-store writes by top-level key",
			ConstLabels: config.ConstLabels,
		}, []string{"key"}),

		resetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resets_total",
			Help:        "Total number of field and whole-store resets",
			ConstLabels: config.ConstLabels,
		}),

		notificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of listener deliveries",
			ConstLabels: config.ConstLabels,
		}),

		updateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "Write latency including synchronous notification delivery",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// Instrumented wraps a store with Prometheus metrics. Writes that go
// through the wrapper are counted and timed; notification deliveries are
// counted through the registry's NotifyHook, so they are recorded no
// matter which surface triggered them.
type Instrumented struct {
	store *pathstore.Store
	m     *storeMetrics
}

// Instrument registers metrics for the store and returns the wrapper.
// It claims the registry's NotifyHook. Instrument a given store at most
// once per Prometheus registry; duplicate registration panics inside
// promauto, as usual.
func Instrument(store *pathstore.Store, opts ...MetricsOption) *Instrumented {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	m := initMetrics(config, store)
	store.Registry().NotifyHook = func(_ string, delivered int) {
		m.notificationsTotal.Add(float64(delivered))
	}

	return &Instrumented{store: store, m: m}
}

// Store returns the wrapped store.
func (i *Instrumented) Store() *pathstore.Store {
	return i.store
}

// Get resolves path in the current tree.
func (i *Instrumented) Get(path string) (any, bool) {
	return i.store.Get(path)
}

// State returns the current whole tree.
func (i *Instrumented) State() pathstore.Tree {
	return i.store.State()
}

// UpdateAll merges the patch and records one write per patched key.
func (i *Instrumented) UpdateAll(patch pathstore.Patch) {
	start := time.Now()
	i.store.UpdateAll(patch)
	i.m.updateDuration.Observe(time.Since(start).Seconds())
	for key := range patch {
		i.m.updatesTotal.WithLabelValues(key).Inc()
	}
}

// Updater returns a bound updater that records each call against the
// path's top-level key.
func (i *Instrumented) Updater(path string) pathstore.UpdateFunc {
	update := i.store.Updater(path)
	key := topKey(path)
	return func(value any) {
		start := time.Now()
		update(value)
		i.m.updateDuration.Observe(time.Since(start).Seconds())
		i.m.updatesTotal.WithLabelValues(key).Inc()
	}
}

// Reset restores path to its initial-snapshot value.
func (i *Instrumented) Reset(path string) {
	i.store.Reset(path)
	i.m.resetsTotal.Inc()
}

// ResetAll restores every initial-snapshot key.
func (i *Instrumented) ResetAll() {
	i.store.ResetAll()
	i.m.resetsTotal.Inc()
}

func topKey(path string) string {
	keys := pathstore.SplitPath(path)
	if len(keys) == 0 {
		return pathstore.WholeStore
	}
	return keys[0]
}
