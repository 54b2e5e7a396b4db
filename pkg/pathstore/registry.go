package pathstore

import "sync"

// Registry maps observed canonical paths to sets of listeners and decides
// who gets notified on a write. Listener sets have set semantics keyed by
// listener ID: double subscription is a no-op, as is removing a listener
// that was never added. A path whose set becomes empty is pruned
// immediately.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]map[uint64]Listener

	// NotifyHook, when set, observes every Notify call with the number of
	// listeners delivered to. Set it before any Notify traffic; it is read
	// without synchronization.
	NotifyHook func(path string, delivered int)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[string]map[uint64]Listener),
	}
}

// Subscribe adds l to the set observing path. Subscribing the same
// listener to the same path twice is a no-op. A nil listener is ignored.
func (r *Registry) Subscribe(path string, l Listener) {
	if l == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subs[path]
	if !ok {
		set = make(map[uint64]Listener)
		r.subs[path] = set
	}
	set[l.ID()] = l
}

// Unsubscribe removes l from the set observing path and prunes the path
// once its set is empty. Removing an absent listener is a silent no-op.
// After Unsubscribe returns, l receives no further deliveries for path.
func (r *Registry) Unsubscribe(path string, l Listener) {
	if l == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subs[path]
	if !ok {
		return
	}
	delete(set, l.ID())
	if len(set) == 0 {
		delete(r.subs, path)
	}
}

// Notify delivers MarkDirty to every listener whose registered path
// overlaps path in either direction (see PathsOverlap). Each eligible
// listener fires exactly once per call, even when it is registered on
// several overlapping paths. The eligible set is snapshotted before
// delivery, so listeners may subscribe, unsubscribe, or trigger further
// Notify calls from inside MarkDirty.
func (r *Registry) Notify(path string) {
	r.mu.RLock()
	var targets []Listener
	seen := make(map[uint64]struct{})
	for registered, set := range r.subs {
		if !PathsOverlap(registered, path) {
			continue
		}
		for id, l := range set {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			targets = append(targets, l)
		}
	}
	r.mu.RUnlock()

	if r.NotifyHook != nil {
		r.NotifyHook(path, len(targets))
	}

	for _, l := range targets {
		l.MarkDirty()
	}
}

// Active returns the number of live (path, listener) registrations.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.subs {
		n += len(set)
	}
	return n
}
