package command

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/simkernel/internal/config"
)

// DropListener is notified when a command is dropped for capacity (the
// runner wires this to eventbus's commandDropped event).
type DropListener func(dropped Command)

// Queue is a bounded FIFO with drop-oldest overflow: once full, enqueuing a
// new command evicts the oldest queued command rather than rejecting the
// new one, so the queue always reflects the most recent intent (§4.2).
type Queue struct {
	mu       sync.Mutex
	items    []Command
	capacity int
	onDrop   DropListener
}

// NewQueue creates a queue with the given capacity, or the kernel default
// when capacity <= 0.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = config.DefaultCommandQueueSize
	}
	return &Queue{capacity: capacity}
}

// OnDrop registers the callback invoked when an enqueue evicts an item.
func (q *Queue) OnDrop(l DropListener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onDrop = l
}

// Enqueue appends a command, assigning it an id if it has none. When the
// queue is already at capacity the oldest entry is dropped first.
func (q *Queue) Enqueue(c Command) Command {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	q.mu.Lock()
	var dropped Command
	hadDrop := false
	if len(q.items) >= q.capacity {
		dropped = q.items[0]
		q.items = q.items[1:]
		hadDrop = true
	}
	q.items = append(q.items, c)
	listener := q.onDrop
	q.mu.Unlock()

	if hadDrop {
		slog.Warn("command queue full, dropping oldest", "dropped_kind", dropped.Kind, "dropped_id", dropped.ID)
		if listener != nil {
			listener(dropped)
		}
	}
	return c
}

// DrainAll removes and returns every queued command, in FIFO order.
func (q *Queue) DrainAll() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len reports the number of currently queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
