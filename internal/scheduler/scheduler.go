// Package scheduler drives the tick loop and runs registered systems at
// their declared cadence (§4.1): FAST every tick, MEDIUM every five ticks,
// SLOW every twenty ticks, relative to the fast tick interval.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/simkernel/internal/config"
)

// Rate is a system's run cadence, expressed as a multiple of the fast tick.
type Rate int

const (
	RateFast Rate = iota
	RateMedium
	RateSlow
)

var rateEveryFastTicks = map[Rate]uint64{
	RateFast:   1,
	RateMedium: uint64(config.MediumRate / config.FastRate),
	RateSlow:   uint64(config.SlowRate / config.FastRate),
}

// SystemFunc is one unit of per-tick work. tick is the global fast-tick
// counter at the moment the system runs; dt is the simulated wall-clock
// time the update covers, already scaled by the scheduler's current speed.
type SystemFunc func(tick uint64, dt time.Duration)

// SystemOption configures optional gating on a registered system.
type SystemOption func(*registeredSystem)

// WithEnabled gates a system behind a predicate checked every time its
// rate bucket is due; the system is skipped (not even counted toward
// duration stats) on a tick where enabled returns false.
func WithEnabled(enabled func() bool) SystemOption {
	return func(rs *registeredSystem) { rs.enabled = enabled }
}

// WithMinEntities skips the system on any tick where getEntityCount
// (installed via SetHooks) reports fewer than n — used by systems not
// worth running over an empty or near-empty population.
func WithMinEntities(n int) SystemOption {
	return func(rs *registeredSystem) { rs.minEntities = n }
}

type registeredSystem struct {
	name        string
	rate        Rate
	fn          SystemFunc
	enabled     func() bool
	minEntities int
}

// Stats reports scheduler health for diagnostics and the snapshot pipeline.
type Stats struct {
	Tick             uint64
	Running          bool
	LastTickDuration time.Duration
	SystemDurations  map[string]time.Duration
}

// Scheduler owns the fast tick loop and the ordered list of registered
// systems. Systems run in registration order within their rate bucket; a
// panicking system is recovered and logged so one failing system never
// takes down the tick loop (§4.1 failure isolation).
type Scheduler struct {
	mu       sync.Mutex
	systems  []registeredSystem
	tick     uint64
	interval time.Duration
	speed    float64
	running  bool
	stopCh   chan struct{}

	preTick        func(tick uint64)
	postTick       func(tick uint64)
	getEntityCount func() int

	stats Stats
}

// New creates a scheduler with the default fast interval and speed 1.0.
func New() *Scheduler {
	return &Scheduler{
		interval: config.FastRate,
		speed:    1.0,
		stopCh:   make(chan struct{}),
		stats:    Stats{SystemDurations: make(map[string]time.Duration)},
	}
}

// RegisterSystem adds a system to run at the given rate, in registration
// order relative to others at the same rate. Options add an enabled gate
// and/or a minimum live-entity-count gate (§4.1's registerSystem contract).
func (s *Scheduler) RegisterSystem(name string, rate Rate, fn SystemFunc, opts ...SystemOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := registeredSystem{name: name, rate: rate, fn: fn}
	for _, opt := range opts {
		opt(&rs)
	}
	s.systems = append(s.systems, rs)
}

// SetHooks installs the pre-tick hook (run before any system, typically
// command dispatch), the post-tick hook (run after every due system has
// returned, typically event flush and snapshot publication), and the
// entity-count accessor WithMinEntities gates read against. Any may be nil.
func (s *Scheduler) SetHooks(preTick, postTick func(tick uint64), getEntityCount func() int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preTick = preTick
	s.postTick = postTick
	s.getEntityCount = getEntityCount
}

// dtFor returns the simulated wall-clock duration one update at rate
// covers, scaled by the scheduler's current speed.
func (s *Scheduler) dtFor(rate Rate) time.Duration {
	base := s.interval * time.Duration(rateEveryFastTicks[rate])
	if s.speed <= 0 {
		return base
	}
	return time.Duration(float64(base) / s.speed)
}

// SetSpeed scales the fast tick interval; 1.0 is real-time, values below
// 1.0 slow the kernel down, above speed it up. Bounds are enforced by the
// caller against config.MinTimeScale/MaxTimeScale.
func (s *Scheduler) SetSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = speed
}

// Start runs the tick loop until Stop is called. Blocks the calling
// goroutine; callers typically invoke it via `go scheduler.Start()`.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	slog.Info("scheduler started", "fast_interval", s.interval)

	for {
		select {
		case <-s.stopCh:
			slog.Info("scheduler stopped", "tick", s.tick)
			return
		default:
		}

		start := time.Now()
		s.step()
		elapsed := time.Since(start)

		s.mu.Lock()
		target := s.interval
		if s.speed > 0 {
			target = time.Duration(float64(s.interval) / s.speed)
		}
		s.mu.Unlock()

		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}
}

// Stop halts the tick loop; safe to call even if not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// step advances the tick counter and runs every due system in rate-bucket
// order (fast, then medium, then slow), bracketed by the pre/post hooks.
func (s *Scheduler) step() {
	start := time.Now()

	s.mu.Lock()
	s.tick++
	tick := s.tick
	pre := s.preTick
	post := s.postTick
	s.mu.Unlock()

	if pre != nil {
		s.runSafely("__preTick", func() { pre(tick) })
	}

	for _, rate := range []Rate{RateFast, RateMedium, RateSlow} {
		if tick%rateEveryFastTicks[rate] != 0 {
			continue
		}
		s.mu.Lock()
		due := make([]registeredSystem, 0, len(s.systems))
		for _, sys := range s.systems {
			if sys.rate == rate {
				due = append(due, sys)
			}
		}
		dt := s.dtFor(rate)
		getEntityCount := s.getEntityCount
		s.mu.Unlock()

		for _, sys := range due {
			if sys.enabled != nil && !sys.enabled() {
				continue
			}
			if sys.minEntities > 0 && getEntityCount != nil && getEntityCount() < sys.minEntities {
				continue
			}
			sysStart := time.Now()
			s.runSafely(sys.name, func() { sys.fn(tick, dt) })
			s.mu.Lock()
			s.stats.SystemDurations[sys.name] = time.Since(sysStart)
			s.mu.Unlock()
		}
	}

	if post != nil {
		s.runSafely("__postTick", func() { post(tick) })
	}

	s.mu.Lock()
	s.stats.Tick = tick
	s.stats.Running = s.running
	s.stats.LastTickDuration = time.Since(start)
	s.mu.Unlock()
}

func (s *Scheduler) runSafely(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler: system panicked, recovered", "system", name, "panic", r)
		}
	}()
	fn()
}

// GetStats returns a snapshot of scheduler health.
func (s *Scheduler) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	durations := make(map[string]time.Duration, len(s.stats.SystemDurations))
	for k, v := range s.stats.SystemDurations {
		durations[k] = v
	}
	return Stats{
		Tick:             s.stats.Tick,
		Running:          s.stats.Running,
		LastTickDuration: s.stats.LastTickDuration,
		SystemDurations:  durations,
	}
}

// CurrentTick returns the current tick counter without a full stats copy.
func (s *Scheduler) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}
