package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pathstore-dev/pathstore/pkg/pathstore"
)

// Default tracer name for instrumented stores.
const defaultTracerName = "pathstore"

// OTelConfig configures store tracing.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "pathstore").
	TracerName string

	// Filter determines which paths to trace. Return true to trace the
	// operation, false to skip. If nil, all operations are traced.
	Filter func(path string) bool

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures store tracing.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithFilter sets a path filter for traced operations.
func WithFilter(filter func(path string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// Traced wraps a store so every write and reset opens a span. The tracer
// comes from the global OpenTelemetry tracer provider; configure that in
// main() before constructing the wrapper.
type Traced struct {
	store  *pathstore.Store
	config OTelConfig
}

// Trace wraps store with span instrumentation.
func Trace(store *pathstore.Store, opts ...OTelOption) *Traced {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return &Traced{store: store, config: config}
}

// Store returns the wrapped store.
func (t *Traced) Store() *pathstore.Store {
	return t.store
}

// UpdateAll merges the patch inside a span carrying the patched keys.
func (t *Traced) UpdateAll(ctx context.Context, patch pathstore.Patch) {
	if t.skip(pathstore.WholeStore) {
		t.store.UpdateAll(patch)
		return
	}

	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}

	_, span := t.config.tracer.Start(ctx, "pathstore.update_all",
		trace.WithAttributes(attribute.StringSlice("pathstore.keys", keys)))
	defer span.End()

	t.store.UpdateAll(patch)
}

// Update writes value to path through a bound updater, inside a span.
func (t *Traced) Update(ctx context.Context, path string, value any) {
	update := t.store.Updater(path)
	if t.skip(path) {
		update(value)
		return
	}

	_, span := t.config.tracer.Start(ctx, "pathstore.update",
		trace.WithAttributes(attribute.String("pathstore.path", path)))
	defer span.End()

	update(value)
}

// Reset restores path to its initial-snapshot value, inside a span.
func (t *Traced) Reset(ctx context.Context, path string) {
	if t.skip(path) {
		t.store.Reset(path)
		return
	}

	_, span := t.config.tracer.Start(ctx, "pathstore.reset",
		trace.WithAttributes(attribute.String("pathstore.path", path)))
	defer span.End()

	t.store.Reset(path)
}

func (t *Traced) skip(path string) bool {
	return t.config.Filter != nil && !t.config.Filter(path)
}
