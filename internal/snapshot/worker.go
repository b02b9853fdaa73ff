package snapshot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/transport"
)

type publishJob struct {
	subject string
	payload any
}

// Worker serializes and publishes snapshots off the tick goroutine. The
// runner hands it built Full/Tick/Delta values; encoding to JSON and the
// broker round-trip happen on the worker's own goroutine so a slow
// observer never adds latency to the scheduler loop.
type Worker struct {
	client *transport.Client
	jobs   chan publishJob

	mu          sync.Mutex
	lastTickPub time.Time
	throttle    time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a worker bound to client, with the default tick
// publish throttle.
func NewWorker(client *transport.Client) *Worker {
	return &Worker{
		client:   client,
		jobs:     make(chan publishJob, 64),
		throttle: config.TickSnapshotThrottle,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the worker's drain loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case job := <-w.jobs:
				w.publish(job)
			case <-w.stopCh:
				for {
					select {
					case job := <-w.jobs:
						w.publish(job)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop drains remaining jobs and halts the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Worker) publish(job publishJob) {
	if w.client == nil {
		return
	}
	if err := w.client.PublishJSON(job.subject, job.payload); err != nil {
		slog.Warn("snapshot worker: publish failed", "subject", job.subject, "error", err)
	}
}

func (w *Worker) enqueue(job publishJob) {
	select {
	case w.jobs <- job:
	default:
		slog.Warn("snapshot worker: job queue full, dropping snapshot", "subject", job.subject)
	}
}

// PublishFull enqueues a full snapshot, unconditionally.
func (w *Worker) PublishFull(f *Full) {
	w.enqueue(publishJob{subject: transport.SubjectSnapshotFull, payload: f})
	logSnapshotSize("full", f.Tick, len(f.Agents)+len(f.Entities)+len(f.Zones))
}

// PublishTickThrottled enqueues a per-tick snapshot only if the throttle
// interval has elapsed since the last one.
func (w *Worker) PublishTickThrottled(t *Tick) bool {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastTickPub) < w.throttle {
		w.mu.Unlock()
		return false
	}
	w.lastTickPub = now
	w.mu.Unlock()

	w.enqueue(publishJob{subject: transport.SubjectSnapshotTick, payload: t})
	return true
}

// PublishDelta enqueues a delta snapshot, unconditionally — the caller
// decides cadence (typically every tick, since deltas are cheap).
func (w *Worker) PublishDelta(d *Delta) {
	w.enqueue(publishJob{subject: transport.SubjectSnapshotDelta, payload: d})
}

func logSnapshotSize(kind string, tick uint64, entries int) {
	slog.Debug("snapshot published", "kind", kind, "tick", tick, "entries", humanize.Comma(int64(entries)))
}
