package pathstore

// Listener is anything that can be notified when an observed path changes.
// It is the opaque observer token of the store: delivery is a bare
// MarkDirty call, and the host decides what that does (re-render, push to
// a channel, set a flag).
type Listener interface {
	// MarkDirty notifies the listener that a path it observes has changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for set semantics and for deduplication within one Notify call.
	ID() uint64
}

// observer adapts a zero-argument function to the Listener interface.
type observer struct {
	id uint64
	fn func()
}

// Observer wraps fn as a Listener with a fresh identity.
// Each call returns a distinct token, even for the same function.
func Observer(fn func()) Listener {
	return &observer{id: nextID(), fn: fn}
}

func (o *observer) MarkDirty() {
	if o.fn != nil {
		o.fn()
	}
}

func (o *observer) ID() uint64 {
	return o.id
}
