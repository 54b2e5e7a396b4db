package pathstore

import "strconv"

// accessMode selects what a terminal Get does with the accumulated path.
type accessMode int

const (
	// modeRead resolves without side effects.
	modeRead accessMode = iota

	// modeObserve resolves and registers the accessor's listener on the
	// accumulated path.
	modeObserve
)

// Accessor is an immutable path builder over a store. Each Field or Index
// call returns a new builder with one more key; the original is unchanged
// and can be reused for further chains. A terminal Get (or a Binder built
// with Bind) consumes the accumulated path and dispatches on the mode the
// chain was started with.
type Accessor struct {
	store    *Store
	mode     accessMode
	listener Listener
	keys     []string
}

// Consumer receives a resolved store slice from a Binder.
type Consumer func(value any, update UpdateFunc, reset ResetFunc)

// Binder is a deferred accessor: calling it performs the resolution (and
// subscription, for observe-mode chains) that Bind postponed, then hands
// the result to the consumer.
type Binder func(consume Consumer, fallback ...any)

// Access starts a read-mode chain: terminal operations resolve the
// accumulated path with no subscription side effect.
func (s *Store) Access() Accessor {
	return Accessor{store: s, mode: modeRead}
}

// Observe starts a read-and-subscribe chain: terminal operations
// additionally register l on the accumulated path (or on the whole store
// when no path was accumulated). Use Unsubscribe with the same path and
// listener on teardown.
func (s *Store) Observe(l Listener) Accessor {
	return Accessor{store: s, mode: modeObserve, listener: l}
}

// Field appends one key and returns the extended builder.
func (a Accessor) Field(name string) Accessor {
	keys := make([]string, len(a.keys), len(a.keys)+1)
	copy(keys, a.keys)
	a.keys = append(keys, name)
	return a
}

// Index appends one sequence index and returns the extended builder.
func (a Accessor) Index(i int) Accessor {
	return a.Field(strconv.Itoa(i))
}

// Path returns the accumulated path in canonical form.
func (a Accessor) Path() string {
	return JoinPath(a.keys)
}

// Get consumes the accumulated path and returns the value at it together
// with an updater and a resetter bound to the same path.
//
// With no accumulated path this is a whole-store access: the value is the
// current tree, the updater behaves as UpdateAll, and the resetter as
// ResetAll. Otherwise the path is resolved in the current tree; when a
// fallback is supplied and the field is undefined in both the current
// tree and the initial snapshot, the fallback is installed in both first
// (see Store.Init).
//
// Observe-mode chains additionally subscribe the chain's listener to the
// accumulated path before returning.
func (a Accessor) Get(fallback ...any) (any, UpdateFunc, ResetFunc) {
	path := JoinPath(a.keys)

	if a.mode == modeObserve {
		a.store.registry.Subscribe(path, a.listener)
	}

	if len(a.keys) == 0 {
		return a.store.State(), a.store.wholeUpdater(), a.store.ResetAll
	}

	var value any
	if len(fallback) > 0 {
		value = a.store.Init(path, fallback[0])
	} else {
		value, _ = a.store.Get(path)
	}

	return value, a.store.Updater(path), func() { a.store.Reset(path) }
}

// Bind consumes the accumulated path into a Binder without reading or
// subscribing yet. The Binder performs a Get-equivalent resolution each
// time it is called, so an observe-mode chain subscribes its listener at
// bind-call time, not at Bind time.
func (a Accessor) Bind() Binder {
	return func(consume Consumer, fallback ...any) {
		value, update, reset := a.Get(fallback...)
		consume(value, update, reset)
	}
}
