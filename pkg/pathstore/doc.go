// Package pathstore provides a reactive, path-addressable state container.
//
// A Store holds a single nested state tree. Callers read and write fields
// of that tree by dotted path, and only listeners whose observed path
// overlaps the written path are notified.
//
// # Core Types
//
// Store owns the current tree, the initial snapshot used as the reset
// target, and the per-top-level-key callback table:
//
//	s := pathstore.New(pathstore.Tree{"cart": pathstore.Tree{"price": 10}}, nil)
//	v, _ := s.Get("cart.price")      // 10
//	update := s.Updater("cart.price")
//	update(15)                       // notifies listeners on cart, cart.price, ...
//	s.Reset("cart.price")            // back to 10
//
// Listener is the observer token: Notify simply calls MarkDirty, and the
// host environment decides what that means (schedule a redraw, push to a
// channel, set a flag). Observer wraps a plain function as a Listener.
//
// # Access Builder
//
// The Accessor is an immutable path builder with three modes. Access
// resolves without side effects, Observe additionally subscribes the given
// listener, and Bind defers resolution until a consumer is supplied:
//
//	value, update, reset := s.Observe(l).Field("cart").Field("price").Get()
//	bind := s.Observe(l).Field("cart").Bind()
//	bind(func(v any, update pathstore.UpdateFunc, reset pathstore.ResetFunc) {
//	    // runs once a consumer is supplied
//	})
//
// # Notification Overlap
//
// A write to cart.price wakes listeners on cart.price, on cart (ancestor
// interest), and on the whole store; a write to cart wakes listeners on
// cart.price (descendant interest). Matching is boundary-aware: cartX and
// cart do not overlap.
//
// # Thread Safety
//
// All Store and Registry operations are safe for concurrent use. Listener
// sets are snapshotted before delivery, so a listener may mutate the store
// or change subscriptions from inside MarkDirty without deadlocking.
package pathstore
