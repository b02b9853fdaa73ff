// Package runner wires every subsystem collaborator behind the kernel's
// external surface (§6): initialize, start/stop, command intake, snapshot
// getters, entity detail lookups and observer registration. It owns the
// authoritative state.State and the scheduler driving it; every other
// package borrows state mutably for the duration of one call.
package runner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/simkernel/internal/ai"
	"github.com/talgya/simkernel/internal/building"
	"github.com/talgya/simkernel/internal/combat"
	"github.com/talgya/simkernel/internal/command"
	"github.com/talgya/simkernel/internal/config"
	"github.com/talgya/simkernel/internal/eventbus"
	"github.com/talgya/simkernel/internal/governance"
	"github.com/talgya/simkernel/internal/household"
	"github.com/talgya/simkernel/internal/index"
	"github.com/talgya/simkernel/internal/inventory"
	"github.com/talgya/simkernel/internal/persistence"
	"github.com/talgya/simkernel/internal/scheduler"
	"github.com/talgya/simkernel/internal/snapshot"
	"github.com/talgya/simkernel/internal/socialgraph"
	"github.com/talgya/simkernel/internal/state"
	"github.com/talgya/simkernel/internal/transport"
	"github.com/talgya/simkernel/internal/worldgen"
)

// Config holds the one-time setup parameters for Initialize.
type Config struct {
	DBPath            string
	InitialPopulation int

	EnableTransport bool
	TransportPort   int // 0 picks an ephemeral loopback port
}

// Runner owns the world and every collaborator operating on it. Exactly
// one Runner serves one world; it is not safe to share a Runner's state
// across two schedulers.
type Runner struct {
	mu    sync.Mutex
	state *state.State

	sched    *scheduler.Scheduler
	bus      *eventbus.Bus
	cmdQueue *command.Queue
	handlers command.Handlers

	idx     *index.EntityIndex
	spatial *index.SharedSpatialIndex

	planner  *ai.Planner
	resolver *combat.Resolver
	buildMgr *building.Manager
	social   *socialgraph.Graph
	gov      *governance.Governor

	db              *persistence.DB
	transportServer *transport.Server
	transportClient *transport.Client
	snapWorker      *snapshot.Worker
	dirty           *snapshot.DirtyCache
	lastFull        *snapshot.Full
	lastAutoSave    time.Time

	playerID     state.EntityID
	subBatch     int
	listeners    map[eventbus.Name]map[int]func(eventbus.Event)
	listenerSeq  int
	wiredBusName map[eventbus.Name]bool
}

// New creates an unwired Runner; call Initialize before Start.
func New() *Runner {
	return &Runner{
		listeners:    make(map[eventbus.Name]map[int]func(eventbus.Event)),
		wiredBusName: make(map[eventbus.Name]bool),
	}
}

// Initialize performs one-time setup: collaborator construction, index
// wiring, scheduler registration, internal cross-system event listeners,
// and initial population. Safe to call exactly once.
func (r *Runner) Initialize(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = state.NewState()
	r.bus = eventbus.New()
	r.idx = index.NewEntityIndex()
	r.spatial = index.NewSharedSpatialIndex()
	r.cmdQueue = command.NewQueue(config.DefaultCommandQueueSize)
	r.cmdQueue.OnDrop(func(dropped command.Command) {
		r.bus.Emit(eventbus.EventCommandDropped, map[string]any{"id": dropped.ID, "kind": dropped.Kind})
	})

	r.planner = ai.NewPlanner()
	r.resolver = combat.NewResolver()
	r.buildMgr = building.NewManager()
	r.social = socialgraph.New()
	r.gov = governance.NewGovernor()
	r.dirty = snapshot.NewDirtyCache()

	if cfg.DBPath != "" {
		db, err := persistence.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("initialize: open persistence: %w", err)
		}
		r.db = db
	}

	if cfg.EnableTransport {
		if err := r.enableTransport(cfg.TransportPort); err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
	}

	r.handlers = r.buildHandlers()
	r.sched = scheduler.New()
	r.registerSystems()
	r.wireInternalListeners()

	n := cfg.InitialPopulation
	if n <= 0 {
		n = 10
	}
	for i := 0; i < n; i++ {
		a := r.spawnAgentLocked(state.Point{X: rand.Float64() * 200, Y: rand.Float64() * 200})
		if i == 0 {
			r.playerID = a.ID
		}
	}

	r.idx.Rebuild(r.state)
	r.spatial.RebuildIfNeeded(r.idx.AllEntities())
	r.lastAutoSave = time.Time{}

	slog.Info("runner initialized", "population", n, "db", cfg.DBPath != "", "transport", cfg.EnableTransport)
	return nil
}

// enableTransport starts the embedded broker and connects a publishing
// client plus the snapshot worker that serializes off the tick goroutine.
func (r *Runner) enableTransport(port int) error {
	r.transportServer = transport.NewServer(transport.ServerConfig{Port: port})
	if err := r.transportServer.Start(); err != nil {
		return fmt.Errorf("start transport broker: %w", err)
	}
	client, err := transport.Dial(r.transportServer.URL())
	if err != nil {
		return fmt.Errorf("dial transport broker: %w", err)
	}
	r.transportClient = client
	r.snapWorker = snapshot.NewWorker(client)
	r.snapWorker.Start()
	return nil
}

// InitializeWorldResources runs the one-shot terrain/resource/animal
// seeding pass. Must be called once, after Initialize and before Start.
func (r *Runner) InitializeWorldResources(cfg worldgen.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := worldgen.Generate(cfg)
	worldgen.Seed(r.state, m)
	r.dirty.MarkAll()

	slog.Info("world resources initialized", "width", cfg.Width, "height", cfg.Height, "zones", len(r.state.Zones))
}

// registerSystems wires every subsystem tick into the scheduler at its
// declared rate (§4.1) and installs the pre/post hooks that bracket
// command dispatch and event/snapshot flushing around each tick.
func (r *Runner) registerSystems() {
	r.sched.SetHooks(r.preTick, r.postTick, r.liveEntityCount)

	r.sched.RegisterSystem("ai.decide", scheduler.RateFast, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.planner.DecideBatch(r.state, r.idx, r.spatial, r.social, r.bus, tick)
		for _, a := range r.state.LivingAgents() {
			ai.ApplyAction(a, r.state.Entities[a.ID], r.state.AIStates[a.ID], r.state, r.bus)
		}
	}, scheduler.WithMinEntities(1))
	r.sched.RegisterSystem("combat.tick", scheduler.RateFast, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.resolver.Tick(r.state, r.idx, r.spatial, r.social, r.bus, tick)
	}, scheduler.WithMinEntities(1))
	r.sched.RegisterSystem("social.tick", scheduler.RateFast, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.subBatch++
		r.social.Tick(r.state, r.idx, r.spatial, r.bus, tick, r.subBatch)
	}, scheduler.WithMinEntities(2))
	r.sched.RegisterSystem("index.rebuild", scheduler.RateFast, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if tick%config.IndexRebuildEveryFastTicks == 0 {
			r.idx.SyncAgentsToEntities(r.state)
			r.idx.Rebuild(r.state)
			r.spatial.MarkDirty()
		}
		r.spatial.RebuildIfNeeded(r.idx.AllEntities())
	})

	r.sched.RegisterSystem("building.production", scheduler.RateMedium, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.buildMgr.RunCycle(r.state, r.bus, tick)
		building.AdvanceConstruction(r.state, r.bus, tick)
	})
	r.sched.RegisterSystem("building.maintenance", scheduler.RateMedium, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		building.ApplyMaintenance(r.state, r.bus, tick)
	})
	r.sched.RegisterSystem("household.homeless", scheduler.RateMedium, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		household.CheckHomeless(r.state, r.bus)
	})
	r.sched.RegisterSystem("inventory.cleanup", scheduler.RateMedium, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		inventory.CleanupStale(r.state, tick)
	})
	r.sched.RegisterSystem("tasks.stall", scheduler.RateMedium, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		sweepStalledTasks(r.state, r.bus, tick)
	})

	r.sched.RegisterSystem("governance.poll", scheduler.RateSlow, func(tick uint64, dt time.Duration) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.gov.Poll(r.state, r.bus, tick)
	}, scheduler.WithMinEntities(1))
}

// liveEntityCount backs the scheduler's minEntities gate — it takes r.mu
// itself since the scheduler calls it outside any tick's locked section.
func (r *Runner) liveEntityCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.LivingAgents())
}

// wireInternalListeners registers the kernel's own cross-system reactions
// — the things that must happen in response to a domain event regardless
// of whether any external observer is attached.
func (r *Runner) wireInternalListeners() {
	r.bus.On(eventbus.EventAgentDied, func(ev eventbus.Event) {
		payload, ok := ev.Payload.(map[string]any)
		if !ok {
			return
		}
		id, _ := payload["agent_id"].(state.EntityID)
		if id == "" {
			return
		}
		// Dispatch runs outside the tick's locked section (§4.3 defers
		// delivery past the synchronous system pass), so this reaction
		// takes r.mu itself rather than assuming the caller holds it.
		r.mu.Lock()
		defer r.mu.Unlock()
		for zoneID := range r.state.Households {
			household.RemoveFromHouse(r.state, zoneID, id)
		}
		socialgraph.InitiateDivorce(r.state, id)
	})
}

// preTick drains and dispatches every queued command ahead of the tick's
// systems, per §5 ordering.
func (r *Runner) preTick(tick uint64) {
	r.mu.Lock()
	cmds := r.cmdQueue.DrainAll()
	handlers := r.handlers
	r.mu.Unlock()

	command.DispatchAll(handlers, cmds)
}

// postTick flushes buffered events, publishes snapshots when a transport
// is attached, and checks the auto-save cadence.
func (r *Runner) postTick(tick uint64) {
	r.mu.Lock()
	r.state.Tick = tick
	r.bus.Flush()
	r.mu.Unlock()

	r.bus.Dispatch()
	r.publishSnapshots()
	r.maybeAutoSave(tick)
}

func (r *Runner) publishSnapshots() {
	if r.snapWorker == nil {
		return
	}
	r.mu.Lock()
	full := snapshot.BuildFull(r.state)
	t := snapshot.BuildTick(r.state)
	prev := r.lastFull
	r.lastFull = full
	r.mu.Unlock()

	r.snapWorker.PublishTickThrottled(t)
	delta := snapshot.BuildDelta(prev, r.state)
	r.snapWorker.PublishDelta(delta)
}

// Start runs the tick loop in the background.
func (r *Runner) Start() {
	go r.sched.Start()
}

// Stop halts the tick loop and any attached transport/snapshot worker.
func (r *Runner) Stop() {
	r.sched.Stop()
	if r.snapWorker != nil {
		r.snapWorker.Stop()
	}
	if r.transportClient != nil {
		r.transportClient.Close()
	}
	if r.transportServer != nil {
		r.transportServer.Shutdown()
	}
	if r.db != nil {
		r.db.Close()
	}
}

// EnqueueCommand admits a command into the bounded inbound queue. The
// queue never rejects a command outright — on overflow it evicts the
// oldest entry instead (§4.2) — so this always returns true; the bool
// return matches the external contract for callers that may later want a
// rejecting variant.
func (r *Runner) EnqueueCommand(c command.Command) bool {
	r.mu.Lock()
	q := r.cmdQueue
	r.mu.Unlock()
	q.Enqueue(c)
	return true
}

// GetPlayerId returns the id of the first spawned agent, used as the
// default observed entity.
func (r *Runner) GetPlayerId() state.EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerID
}

// GetInitialSnapshot returns a complete snapshot, for an observer's first
// connect.
func (r *Runner) GetInitialSnapshot() *snapshot.Full {
	r.mu.Lock()
	defer r.mu.Unlock()
	full := snapshot.BuildFull(r.state)
	r.lastFull = full
	return full
}

// GetTickSnapshot returns the lightweight per-tick view.
func (r *Runner) GetTickSnapshot() *snapshot.Tick {
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshot.BuildTick(r.state)
}

// GetDeltaSnapshot returns the changes since the last call, or a full
// snapshot when forceFull is set or no prior snapshot exists.
func (r *Runner) GetDeltaSnapshot(forceFull bool) (*snapshot.Full, *snapshot.Delta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if forceFull || r.lastFull == nil {
		full := snapshot.BuildFull(r.state)
		r.lastFull = full
		return full, nil
	}
	delta := snapshot.BuildDelta(r.lastFull, r.state)
	r.lastFull = snapshot.BuildFull(r.state)
	return nil, delta
}

// EntityDetails is the full detail bundle for one entity (§6).
type EntityDetails struct {
	Entity    *state.Entity
	Needs     map[string]float64
	Role      string
	Inventory *state.Inventory
	Social    map[state.EntityID]float64
	AI        *state.AIState
}

// GetEntityDetails assembles the detail bundle for id, false if it names
// no entity.
func (r *Runner) GetEntityDetails(id state.EntityID) (*EntityDetails, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.state.Entities[id]
	if !ok {
		return nil, false
	}

	details := &EntityDetails{
		Entity:    e,
		Needs:     e.Stats,
		Role:      r.gov.RoleOf(id),
		Inventory: r.state.AgentInventories[id],
		AI:        r.state.AIStates[id],
	}

	social := make(map[state.EntityID]float64)
	for other := range r.state.Entities {
		if other == id {
			continue
		}
		if a := r.social.Affinity(id, other); a != 0 {
			social[other] = a
		}
	}
	details.Social = social
	return details, true
}

// On registers an observer listener for name, returning an unsubscribe
// function equivalent to Off. The underlying eventbus only supports bulk
// removal per name, so the Runner keeps its own per-listener registry and
// installs a single fan-out listener with the bus the first time a name is
// observed.
func (r *Runner) On(name eventbus.Name, listener func(eventbus.Event)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listeners[name] == nil {
		r.listeners[name] = make(map[int]func(eventbus.Event))
	}
	r.listenerSeq++
	id := r.listenerSeq
	r.listeners[name][id] = listener

	if !r.wiredBusName[name] {
		r.wiredBusName[name] = true
		r.bus.On(name, func(ev eventbus.Event) {
			r.mu.Lock()
			fanout := make([]func(eventbus.Event), 0, len(r.listeners[name]))
			for _, l := range r.listeners[name] {
				fanout = append(fanout, l)
			}
			r.mu.Unlock()
			for _, l := range fanout {
				l(ev)
			}
		})
	}

	return func() { r.Off(name, id) }
}

// Off removes the listener registered under handle, the id On assigned to
// it; the unsubscribe function On returns calls Off with that id.
func (r *Runner) Off(name eventbus.Name, handle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners[name], handle)
}

func (r *Runner) maybeAutoSave(tick uint64) {
	if r.db == nil {
		return
	}
	if time.Since(r.lastAutoSave) < config.AutoSaveInterval {
		return
	}
	r.lastAutoSave = time.Now()
	if _, _, err := r.SaveGame(tick); err != nil {
		slog.Warn("runner: autosave failed", "error", err)
	}
}

// savedState is the deep-cloned payload persisted per save (§6).
type savedState struct {
	Timestamp time.Time  `json:"timestamp"`
	GameTime  uint64     `json:"gameTime"`
	Stats     saveStats  `json:"stats"`
	State     *snapshot.Full `json:"state"`
}

type saveStats struct {
	Population    int `json:"population"`
	ResourceCount int `json:"resourceCount"`
	Cycles        int `json:"cycles"`
}

// SaveGame serializes the current world into the persisted save format and
// writes it through the persistence collaborator, returning the new save's
// id and size.
func (r *Runner) SaveGame(tick uint64) (string, int, error) {
	if r.db == nil {
		return "", 0, fmt.Errorf("save game: no persistence configured")
	}

	r.mu.Lock()
	full := snapshot.BuildFull(r.state)
	saved := savedState{
		Timestamp: time.Now(),
		GameTime:  r.state.Tick,
		Stats: saveStats{
			Population:    len(r.state.LivingAgents()),
			ResourceCount: len(r.state.GlobalMaterials),
			Cycles:        int(r.state.Tick),
		},
		State: full,
	}
	r.mu.Unlock()

	blob, err := json.Marshal(saved)
	if err != nil {
		return "", 0, fmt.Errorf("save game: %w", err)
	}
	return r.db.Save(tick, blob)
}

// spawnAgentLocked creates a new living agent with randomized traits and
// skills. Caller must hold r.mu.
func (r *Runner) spawnAgentLocked(pos state.Point) *state.Agent {
	a := &state.Agent{
		ID:       state.EntityID(uuid.NewString()),
		Name:     randomName(),
		Sex:      randomSex(),
		AgeYears: 18 + rand.Float64()*40,
		LifeStage: state.StageAdult,
		Position: pos,
		Traits: state.Traits{
			Cooperation: rand.Float64(),
			Aggression:  rand.Float64(),
			Diligence:   rand.Float64(),
			Curiosity:   rand.Float64(),
			Neuroticism: rand.Float64(),
		},
		Skills: state.Skills{
			Farming:  rand.Float64(),
			Crafting: rand.Float64(),
			Combat:   rand.Float64(),
			Trade:    rand.Float64(),
		},
		BornTick: r.state.Tick,
	}
	r.state.AddAgent(a)
	if r.bus != nil {
		r.bus.Emit(eventbus.EventAgentBorn, map[string]any{"agent_id": a.ID})
	}
	return a
}

var namePool = []string{"Aila", "Bran", "Coda", "Dray", "Elin", "Finn", "Greta", "Hollis", "Ira", "Juno"}

func randomName() string {
	return namePool[rand.Intn(len(namePool))]
}

func randomSex() string {
	if rand.Intn(2) == 0 {
		return "female"
	}
	return "male"
}
