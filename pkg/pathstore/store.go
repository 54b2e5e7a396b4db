package pathstore

import "sync"

// Tree is a nested state tree. Interior nodes are map[string]any or []any;
// everything else is a leaf. Trees are immutable by replacement: every
// mutation installs a structurally-shared copy and never writes through an
// already-published node.
type Tree = map[string]any

// Patch is a set of top-level replacements for UpdateAll.
type Patch = map[string]any

// UpdateFunc writes a new value to the path it was bound to. The argument
// may be a plain value or a func(any) any transform of the current value.
// The whole-store update function additionally accepts a Patch or a
// transform producing one; any other argument shape there is a caller
// contract violation.
type UpdateFunc func(value any)

// ResetFunc restores the bound path to its initial-snapshot value.
type ResetFunc func()

// Change describes one field write to a top-level callback.
type Change struct {
	// Path is the written path in canonical form.
	Path string

	// Value is the value just written.
	Value any

	// PreviousValue is the value at Path when the triggering updater was
	// bound, not when it was called.
	PreviousValue any

	// Update writes to the same path again without re-triggering the
	// callback for that one call.
	Update UpdateFunc
}

// Callback is a per-top-level-key hook invoked after that key's subtree
// changes through a bound updater.
type Callback func(Change)

// Callbacks maps top-level keys to their change hooks.
type Callbacks = map[string]Callback

// Store is a path-addressable reactive state container. It owns the
// current tree, the initial snapshot used as the reset target, the
// callback table, and the subscription registry. Construct one with New;
// the zero value is not usable.
type Store struct {
	mu        sync.RWMutex
	state     Tree
	initial   Tree
	callbacks Callbacks
	hydrated  bool

	registry *Registry
}

// New creates a store holding a copy of initial as both the current tree
// and the reset snapshot. Both arguments may be nil.
func New(initial Tree, callbacks Callbacks) *Store {
	return &Store{
		state:     copyTree(initial),
		initial:   copyTree(initial),
		callbacks: copyCallbacks(callbacks),
		registry:  NewRegistry(),
	}
}

// Registry returns the store's subscription registry.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Subscribe registers l as a listener on path (canonicalized).
func (s *Store) Subscribe(path string, l Listener) {
	s.registry.Subscribe(JoinPath(SplitPath(path)), l)
}

// Unsubscribe removes l as a listener on path (canonicalized).
func (s *Store) Unsubscribe(path string, l Listener) {
	s.registry.Unsubscribe(JoinPath(SplitPath(path)), l)
}

// State returns the current whole tree. The returned map is the live
// top-level node; treat it as read-only.
func (s *Store) State() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Initial returns the reset snapshot's top-level node; treat it as
// read-only.
func (s *Store) Initial() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initial
}

// Get resolves path in the current tree. Missing paths yield (nil, false),
// never an error.
func (s *Store) Get(path string) (any, bool) {
	keys := SplitPath(path)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(keys) == 0 {
		return s.state, true
	}
	return resolvePath(s.state, keys)
}

// UpdateAll merges the patch's top-level keys into the tree (shallow merge
// at the top level only) and issues one notification per patched key.
// Keys absent from the patch are untouched and not notified.
func (s *Store) UpdateAll(patch Patch) {
	if len(patch) == 0 {
		return
	}

	s.mu.Lock()
	next := make(Tree, len(s.state)+len(patch))
	for k, v := range s.state {
		next[k] = v
	}
	for k, v := range patch {
		next[k] = v
	}
	s.state = next
	s.mu.Unlock()

	for key := range patch {
		s.registry.Notify(JoinPath([]string{key}))
	}
}

// UpdateAllFn calls fn with the current whole tree and applies the
// returned patch via UpdateAll.
func (s *Store) UpdateAllFn(fn func(Tree) Patch) {
	s.UpdateAll(fn(s.State()))
}

// ResetAll restores every initial-snapshot key via UpdateAll.
func (s *Store) ResetAll() {
	s.UpdateAll(s.Initial())
}

// Updater returns an update function bound to path. The previous value
// reported to the path's top-level callback is captured now, at bind
// time, even if the updater runs much later. An empty or whole-store path
// binds to the whole store and behaves as UpdateAll.
func (s *Store) Updater(path string) UpdateFunc {
	return s.updater(path, false)
}

func (s *Store) updater(path string, suppressCallback bool) UpdateFunc {
	keys := SplitPath(path)
	if len(keys) == 0 {
		return s.wholeUpdater()
	}
	canonical := JoinPath(keys)

	s.mu.RLock()
	prev, _ := resolvePath(s.state, keys)
	s.mu.RUnlock()

	return func(value any) {
		s.mu.Lock()
		if fn, ok := value.(func(any) any); ok {
			cur, _ := resolvePath(s.state, keys)
			value = fn(cur)
		}
		s.state = replacePath(s.state, keys, value).(Tree)
		s.mu.Unlock()

		s.registry.Notify(canonical)

		if suppressCallback {
			return
		}
		if cb := s.callbackFor(keys[0]); cb != nil {
			cb(Change{
				Path:          canonical,
				Value:         value,
				PreviousValue: prev,
				Update:        s.updater(canonical, true),
			})
		}
	}
}

// wholeUpdater is the whole-store update function: it accepts a Patch, a
// func(Tree) Patch, or a func(any) any producing a Patch.
func (s *Store) wholeUpdater() UpdateFunc {
	return func(value any) {
		switch v := value.(type) {
		case func(Tree) Patch:
			s.UpdateAllFn(v)
		case func(any) any:
			patch, _ := v(s.State()).(Patch)
			s.UpdateAll(patch)
		case Patch:
			s.UpdateAll(v)
		}
	}
}

// Reset restores path to its initial-snapshot value, applying it through
// a bound updater so listeners and the top-level callback both fire. An
// empty or whole-store path resets everything.
func (s *Store) Reset(path string) {
	keys := SplitPath(path)
	if len(keys) == 0 {
		s.ResetAll()
		return
	}

	s.mu.RLock()
	v, _ := resolvePath(s.initial, keys)
	s.mu.RUnlock()

	s.updater(JoinPath(keys), false)(v)
}

// Init applies the initialization-on-first-access rule: when path is
// undefined in both the current tree and the initial snapshot, fallback
// becomes the field's value in both, so a later Reset restores fallback.
// The write is synchronous and silent (no notification, no callback), and
// it fires at most once per path: an already-initialized field is never
// overwritten by a different fallback. Returns the value at path after
// the rule is applied.
func (s *Store) Init(path string, fallback any) any {
	keys := SplitPath(path)
	if len(keys) == 0 {
		return s.State()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, curOK := resolvePath(s.state, keys)
	_, initOK := resolvePath(s.initial, keys)
	if curOK || initOK {
		return cur
	}

	s.state = replacePath(s.state, keys, fallback).(Tree)
	s.initial = replacePath(s.initial, keys, fallback).(Tree)
	return fallback
}

// Hydrate merges mount-time overrides into the store. Callbacks are
// shallow-merged on every call; defaults widen both the current tree and
// the initial snapshot, but only on the first call that supplies any, so
// repeated mounts do not re-apply them.
func (s *Store) Hydrate(defaults Tree, callbacks Callbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(callbacks) > 0 {
		merged := make(Callbacks, len(s.callbacks)+len(callbacks))
		for k, v := range s.callbacks {
			merged[k] = v
		}
		for k, v := range callbacks {
			merged[k] = v
		}
		s.callbacks = merged
	}

	if s.hydrated || len(defaults) == 0 {
		return
	}
	s.hydrated = true

	state := make(Tree, len(s.state)+len(defaults))
	initial := make(Tree, len(s.initial)+len(defaults))
	for k, v := range s.state {
		state[k] = v
	}
	for k, v := range s.initial {
		initial[k] = v
	}
	for k, v := range defaults {
		state[k] = v
		initial[k] = v
	}
	s.state = state
	s.initial = initial
}

func (s *Store) callbackFor(key string) Callback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.callbacks[key]
}

func copyTree(t Tree) Tree {
	next := make(Tree, len(t))
	for k, v := range t {
		next[k] = v
	}
	return next
}

func copyCallbacks(c Callbacks) Callbacks {
	next := make(Callbacks, len(c))
	for k, v := range c {
		next[k] = v
	}
	return next
}
