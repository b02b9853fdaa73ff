package eventbus

import "sync"

// Event is one buffered occurrence: a name plus an arbitrary payload.
type Event struct {
	Name    Name
	Payload any
}

// Listener receives delivered events.
type Listener func(Event)

// Bus is a queued emitter (§4.3): events produced during a tick are
// buffered and flushed once, in enqueue order, after all systems have run.
// Flush hands buffered events to a pending-dispatch queue rather than
// calling listeners inline, so a caller can defer actual delivery to the
// next cooperative slot (after the current synchronous stack unwinds) by
// calling Dispatch once the tick's system calls have returned.
type Bus struct {
	mu              sync.Mutex
	listeners       map[Name][]Listener
	buffer          []Event
	pendingDispatch []Event
	batching        bool
}

// New creates a bus with batching enabled by default.
func New() *Bus {
	return &Bus{
		listeners: make(map[Name][]Listener),
		batching:  true,
	}
}

// On registers a listener for a named event.
func (b *Bus) On(name Name, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// Off removes all listeners for a named event. The runner's public surface
// exposes a per-listener Off via a returned handle where needed; the bus
// itself only needs bulk removal for subsystem teardown.
func (b *Bus) Off(name Name) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, name)
}

// Emit enqueues an event when batching is enabled, otherwise dispatches
// inline immediately.
func (b *Bus) Emit(name Name, payload any) {
	b.mu.Lock()
	batching := b.batching
	if batching {
		b.buffer = append(b.buffer, Event{Name: name, Payload: payload})
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.deliver(Event{Name: name, Payload: payload})
}

// SetBatchingEnabled toggles batching; disabling also flushes and
// dispatches immediately so no buffered events are stranded.
func (b *Bus) SetBatchingEnabled(enabled bool) {
	b.mu.Lock()
	b.batching = enabled
	b.mu.Unlock()
	if !enabled {
		b.Flush()
		b.Dispatch()
	}
}

// Flush drains the buffer into the pending-dispatch queue, preserving
// enqueue order. It does not itself call listeners — see Dispatch.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingDispatch = append(b.pendingDispatch, b.buffer...)
	b.buffer = b.buffer[:0]
}

// Dispatch delivers every event moved to the pending-dispatch queue by the
// most recent Flush, each buffered event going to every listener registered
// for its name. The runner calls this once its tick's synchronous system
// calls have returned, modeling "after the current synchronous stack
// unwinds" (§4.3).
func (b *Bus) Dispatch() {
	b.mu.Lock()
	pending := b.pendingDispatch
	b.pendingDispatch = nil
	b.mu.Unlock()

	for _, ev := range pending {
		b.deliver(ev)
	}
}

func (b *Bus) deliver(ev Event) {
	b.mu.Lock()
	ls := append([]Listener(nil), b.listeners[ev.Name]...)
	b.mu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}

// ClearQueue drops all buffered (not yet flushed) events, for instrumentation.
func (b *Bus) ClearQueue() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = b.buffer[:0]
}

// GetQueueSize returns the number of buffered, not-yet-flushed events.
func (b *Bus) GetQueueSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
