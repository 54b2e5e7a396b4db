package observe

import (
	"context"
	"testing"

	"github.com/pathstore-dev/pathstore/pkg/pathstore"
)

// The global tracer provider defaults to a no-op in tests; these exercise
// the wrapper's delegation and filtering, not span export.

func TestTracedDelegates(t *testing.T) {
	store := pathstore.New(pathstore.Tree{"cart": pathstore.Tree{"price": 10}}, nil)
	tr := Trace(store, WithTracerName("test"))
	ctx := context.Background()

	tr.Update(ctx, "cart.price", 15)
	if v, _ := store.Get("cart.price"); v != 15 {
		t.Errorf("cart.price = %v, want 15", v)
	}

	tr.UpdateAll(ctx, pathstore.Patch{"user": pathstore.Tree{"name": "ada"}})
	if v, _ := store.Get("user.name"); v != "ada" {
		t.Errorf("user.name = %v, want ada", v)
	}

	tr.Reset(ctx, "cart.price")
	if v, _ := store.Get("cart.price"); v != 10 {
		t.Errorf("after reset = %v, want 10", v)
	}

	if tr.Store() != store {
		t.Error("Store() should return the wrapped store")
	}
}

func TestTracedFilter(t *testing.T) {
	store := pathstore.New(pathstore.Tree{"cart": pathstore.Tree{"price": 10}}, nil)
	tr := Trace(store, WithFilter(func(path string) bool { return false }))

	// Filtered operations still apply; only the span is skipped.
	tr.Update(context.Background(), "cart.price", 15)
	if v, _ := store.Get("cart.price"); v != 15 {
		t.Errorf("filtered update lost: %v, want 15", v)
	}
}
