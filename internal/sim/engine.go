// Package sim runs the crowd simulation: agents spawned on a nav.World,
// steered every tick by shared flow fields, with events and snapshots for
// the API layer.
package sim

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"crowdflow/internal/config"
	"crowdflow/internal/nav"
)

// spawnTries bounds the random search for an open spawn cell.
const spawnTries = 10000

// EngineConfig wires an engine to a loaded world.
type EngineConfig struct {
	World    *nav.World
	TickRate int
	Crowd    config.CrowdConfig
	Nav      config.NavConfig
	Seed     int64 // 0 = derive from clock
}

// GoalResult reports how a goal order was distributed.
type GoalResult struct {
	Goal     nav.Vec2 `json:"goal"`
	Assigned []string `json:"assigned"`
	Rejected []string `json:"rejected"` // cannot reach the goal
	Missing  []string `json:"missing"`  // unknown IDs
}

// Stats is a point-in-time summary of the simulation.
type Stats struct {
	Tick         uint64        `json:"tick"`
	Agents       int           `json:"agents"`
	Moving       int           `json:"moving"`
	Arrived      int           `json:"arrived"`
	ActiveFields int           `json:"activeFields"`
	DensityTotal float64       `json:"densityTotal"`
	SearchCaps   uint64        `json:"searchCaps"`
	Events       EventLogStats `json:"events"`
	Index        IndexStats    `json:"index"`
}

// Engine is the simulation loop. All agent state is guarded by mu; flow
// fields and the density field carry their own synchronisation, so API
// queries against them do not need the engine lock.
type Engine struct {
	mu     sync.RWMutex
	world  *nav.World
	fields *nav.FlowFieldManager
	active *nav.FlowField // most recent goal, held by its own reference

	agents map[string]*Agent
	order  []*Agent // insertion order, for deterministic stepping
	index  *AgentIndex
	dirty  bool // index out of date with order

	crowd    config.CrowdConfig
	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount  uint64
	searchCaps atomic.Uint64

	snapshotPool *SnapshotPool
	eventLog     *EventLog
	rng          *rand.Rand

	// Hooks for metrics; set before Start.
	OnTick      func(d time.Duration)
	OnSearchCap func(goalX, goalZ int)
}

// NewEngine creates an engine over a world. No agents are spawned.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = config.DefaultSim().TickRate
	}
	if cfg.Crowd.MaxAgents <= 0 {
		cfg.Crowd.MaxAgents = config.DefaultCrowd().MaxAgents
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := cfg.World.Grid
	worldW := float64(g.Width()) * g.CellSize()
	worldH := float64(g.Height()) * g.CellSize()

	e := &Engine{
		world:        cfg.World,
		agents:       make(map[string]*Agent),
		order:        make([]*Agent, 0, cfg.Crowd.UnitCount),
		index:        NewAgentIndex(worldW, worldH, 4*g.CellSize(), cfg.Crowd.MaxAgents),
		crowd:        cfg.Crowd,
		tickRate:     cfg.TickRate,
		stopChan:     make(chan struct{}),
		snapshotPool: NewSnapshotPool(cfg.Crowd.MaxAgents),
		eventLog:     NewEventLog(),
		rng:          rand.New(rand.NewSource(seed)),
	}

	step := cfg.Nav.GradientStep
	if step <= 0 {
		step = nav.DefaultGradientStep
	}
	e.fields = nav.NewFlowFieldManager(cfg.World,
		nav.WithGradientStep(step),
		nav.WithCapHook(e.handleSearchCap),
	)

	e.produceSnapshot()
	return e
}

// Start begins the simulation loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Simulation started at %d TPS", e.tickRate)
}

// Stop stops the simulation loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Simulation stopped")
}

// tick advances every moving agent by one fixed step
func (e *Engine) tick() {
	start := time.Now()

	e.mu.Lock()
	atomic.AddUint64(&e.tickCount, 1) // read lock-free by handleSearchCap
	dt := 1.0 / float64(e.tickRate)

	moving := 0
	for _, a := range e.order {
		if a.Moving() {
			e.stepAgent(a, dt)
			moving++
		}
	}

	e.eventLog.EmitSimple(EventTypeTick, e.tickCount, "", TickPayload{
		AgentCount:  len(e.order),
		MovingCount: moving,
		DeltaTimeNs: int64(dt * 1e9),
	})

	e.rebuildIndex()
	e.produceSnapshot()
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(time.Since(start))
	}
}

// stepAgent moves one agent down its field's gradient.
//
// The agent's own density is lifted before sampling so it does not push
// itself around, and is put back at the new position afterwards.
func (e *Engine) stepAgent(a *Agent, dt float64) {
	g := e.world.Grid
	density := e.world.Density
	r, m := e.crowd.DensityRadius, e.crowd.DensityMagnitude

	density.RemoveContribution(a.Pos, r, m)

	dir := a.field.GetDirection(g.WorldToFine(a.Pos)).Normalize()
	next := e.constrainMove(a.field, a.Pos, dir.Scale(e.crowd.UnitSpeed*dt))
	a.Vel = next.Sub(a.Pos).Scale(1 / dt)
	a.Pos = next

	density.AddContribution(a.Pos, r, m)

	if a.Pos.Sub(a.Goal).Len() <= e.crowd.ArriveRadius {
		a.Arrived = true
		a.Vel = nav.Vec2{}
		e.fields.Release(a.field)
		a.field = nil

		e.eventLog.EmitSimple(EventTypeAgentArrived, e.tickCount, a.ID, ArrivalPayload{
			AgentID: a.ID,
			X:       a.Pos.X,
			Z:       a.Pos.Z,
			Ticks:   e.tickCount - a.goalTick,
		})
	}
}

// constrainMove keeps agents on cells the field can reach. A blocked
// diagonal step falls back to whichever single axis is still open.
func (e *Engine) constrainMove(ff *nav.FlowField, from, delta nav.Vec2) nav.Vec2 {
	if delta.IsZero() {
		return from
	}
	g := e.world.Grid
	open := func(p nav.Vec2) bool {
		x, z := nav.FineCellOf(g.WorldToFine(p))
		return ff.IsAccessible(x, z)
	}

	candidates := [3]nav.Vec2{
		from.Add(delta),
		{X: from.X + delta.X, Z: from.Z},
		{X: from.X, Z: from.Z + delta.Z},
	}
	for _, c := range candidates {
		if open(c) {
			return c
		}
	}
	return from
}

func (e *Engine) rebuildIndex() {
	e.index.Clear()
	for i, a := range e.order {
		e.index.Insert(uint32(i), a.Pos)
	}
	e.dirty = false
}

// handleSearchCap is installed on every flow field the engine creates.
func (e *Engine) handleSearchCap(goalX, goalZ int) {
	e.searchCaps.Add(1)
	e.eventLog.EmitSimple(EventTypeSearchCap, atomic.LoadUint64(&e.tickCount), "",
		SearchCapPayload{GoalX: goalX, GoalZ: goalZ})
	if e.OnSearchCap != nil {
		e.OnSearchCap(goalX, goalZ)
	}
}

// =============================================================================
// AGENT MANAGEMENT
// =============================================================================

// AddAgent places an agent at a world position on open terrain.
func (e *Engine) AddAgent(pos nav.Vec2) (AgentSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, err := e.addAgentLocked(pos)
	if err != nil {
		return AgentSnapshot{}, err
	}
	return a.Snapshot(), nil
}

func (e *Engine) addAgentLocked(pos nav.Vec2) (*Agent, error) {
	if len(e.order) >= e.crowd.MaxAgents {
		log.Printf("⚠️ Agent limit reached (%d), rejecting spawn", e.crowd.MaxAgents)
		return nil, ErrAgentLimit
	}
	g := e.world.Grid
	fx, fz := nav.FineCellOf(g.WorldToFine(pos))
	cx, cz := g.FineToCoarse(fx, fz)
	if math.IsNaN(pos.X) || math.IsNaN(pos.Z) || !g.IsOpen(cx, cz) {
		return nil, fmt.Errorf("spawn at (%.2f, %.2f): %w", pos.X, pos.Z, ErrPositionBlocked)
	}

	a := newAgent(pos)
	e.agents[a.ID] = a
	e.order = append(e.order, a)
	e.dirty = true
	e.world.Density.AddContribution(a.Pos, e.crowd.DensityRadius, e.crowd.DensityMagnitude)

	e.eventLog.EmitSimple(EventTypeAgentSpawn, e.tickCount, a.ID,
		AgentPayload{AgentID: a.ID, X: a.Pos.X, Z: a.Pos.Z})
	return a, nil
}

// SpawnAgents places n agents at the centres of random open cells in the
// largest connected region. It stops early at the agent cap.
func (e *Engine) SpawnAgents(n int) ([]AgentSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.world.Grid
	groups := e.world.Groups
	region := groups.LargestGroup()
	if region == 0 {
		return nil, fmt.Errorf("spawn %d agents: %w", n, ErrPositionBlocked)
	}

	out := make([]AgentSnapshot, 0, n)
	for i := 0; i < n; i++ {
		var x, z int
		found := false
		for try := 0; try < spawnTries && !found; try++ {
			cx, cz, ok := g.RandomOpenCell(e.rng, 1)
			if ok && groups.GroupOf(cx, cz) == region {
				x, z, found = cx, cz, true
			}
		}
		if !found {
			return out, fmt.Errorf("spawn agent %d of %d: %w", i+1, n, ErrPositionBlocked)
		}

		a, err := e.addAgentLocked(g.CoarseCenterWorld(x, z))
		if err != nil {
			return out, err
		}
		out = append(out, a.Snapshot())
	}

	log.Printf("👥 Spawned %d agents", len(out))
	return out, nil
}

// RemoveAgent deletes an agent and withdraws its density and field reference.
func (e *Engine) RemoveAgent(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.agents[id]
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrAgentNotFound)
	}

	e.world.Density.RemoveContribution(a.Pos, e.crowd.DensityRadius, e.crowd.DensityMagnitude)
	e.fields.Release(a.field)
	a.field = nil

	delete(e.agents, id)
	for i, o := range e.order {
		if o == a {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.dirty = true

	e.eventLog.EmitSimple(EventTypeAgentRemove, e.tickCount, id,
		AgentPayload{AgentID: id, X: a.Pos.X, Z: a.Pos.Z})
	return nil
}

// Agent returns a copy of one agent.
func (e *Engine) Agent(id string) (AgentSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[id]
	if !ok {
		return AgentSnapshot{}, false
	}
	return a.Snapshot(), true
}

// Agents returns copies of every agent in insertion order.
func (e *Engine) Agents() []AgentSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]AgentSnapshot, len(e.order))
	for i, a := range e.order {
		out[i] = a.Snapshot()
	}
	return out
}

// AgentsNear returns agents within radius world units of center.
func (e *Engine) AgentsNear(center nav.Vec2, radius float64) []AgentSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dirty {
		e.rebuildIndex()
	}

	var out []AgentSnapshot
	for _, i := range e.index.QueryRadius(center, radius) {
		a := e.order[i]
		if a.Pos.Sub(center).Len() <= radius {
			out = append(out, a.Snapshot())
		}
	}
	return out
}

// =============================================================================
// GOALS
// =============================================================================

// IssueGoal points agents at a world position. An empty ids slice selects
// every agent. Agents that cannot reach the goal keep their current orders.
// ErrGoalUnreachable is returned when no agent was assigned.
func (e *Engine) IssueGoal(ids []string, goal nav.Vec2) (GoalResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := GoalResult{Goal: goal, Assigned: []string{}, Rejected: []string{}, Missing: []string{}}

	targets := e.order
	if len(ids) > 0 {
		targets = make([]*Agent, 0, len(ids))
		for _, id := range ids {
			if a, ok := e.agents[id]; ok {
				targets = append(targets, a)
			} else {
				res.Missing = append(res.Missing, id)
			}
		}
	}
	if len(targets) == 0 {
		return res, fmt.Errorf("issue goal: %w", ErrAgentNotFound)
	}

	for _, a := range targets {
		if !e.world.IsReachable(a.Pos, goal) {
			res.Rejected = append(res.Rejected, a.ID)
			continue
		}
		ff := e.fields.Acquire(goal)
		e.fields.Release(a.field)
		a.field = ff
		a.Goal = goal
		a.HasGoal = true
		a.Arrived = false
		a.goalTick = e.tickCount
		res.Assigned = append(res.Assigned, a.ID)
	}

	payload := GoalPayload{X: goal.X, Z: goal.Z, Assigned: len(res.Assigned), Rejected: len(res.Rejected)}
	if len(res.Assigned) == 0 {
		e.eventLog.EmitSimple(EventTypeGoalRejected, e.tickCount, "", payload)
		return res, fmt.Errorf("goal (%.2f, %.2f): %w", goal.X, goal.Z, ErrGoalUnreachable)
	}

	// The active field keeps its own reference so debug queries outlive arrivals.
	next := e.fields.Acquire(goal)
	e.fields.Release(e.active)
	e.active = next

	e.eventLog.EmitSimple(EventTypeGoalIssued, e.tickCount, "", payload)
	log.Printf("🎯 Goal (%.2f, %.2f): %d assigned, %d rejected",
		goal.X, goal.Z, len(res.Assigned), len(res.Rejected))
	return res, nil
}

// ActiveField returns the field of the most recently issued goal.
func (e *Engine) ActiveField() (*nav.FlowField, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.active == nil {
		return nil, ErrNoActiveField
	}
	return e.active, nil
}

// =============================================================================
// SNAPSHOTS & STATS
// =============================================================================

// produceSnapshot publishes the current state. Caller holds e.mu.
func (e *Engine) produceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	snap.TickNumber = e.tickCount
	snap.AgentCount = len(e.order)

	limit := e.snapshotPool.MaxAgents()
	for _, a := range e.order {
		if a.Moving() {
			snap.MovingCount++
		}
		if a.Arrived {
			snap.ArrivedCount++
		}
		if len(snap.Agents) < limit {
			snap.Agents = append(snap.Agents, a.Snapshot())
		}
	}

	snap.ActiveFields = e.fields.Active()
	if e.active != nil {
		snap.VisitedCells = e.active.VisitedCount()
	}
	snap.DensityTotal = e.world.Density.Total()

	e.snapshotPool.PublishWrite()
}

// GetSnapshot returns a copy of the latest published snapshot.
func (e *Engine) GetSnapshot() WorldSnapshot {
	return e.snapshotPool.Latest()
}

// Stats returns live counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Stats{
		Tick:         e.tickCount,
		Agents:       len(e.order),
		ActiveFields: e.fields.Active(),
		DensityTotal: e.world.Density.Total(),
		SearchCaps:   e.searchCaps.Load(),
		Events:       e.eventLog.Stats(),
		Index:        e.index.Stats(),
	}
	for _, a := range e.order {
		if a.Moving() {
			s.Moving++
		}
		if a.Arrived {
			s.Arrived++
		}
	}
	return s
}

// World returns the navigation layers the engine runs on.
func (e *Engine) World() *nav.World { return e.world }

// Fields returns the flow field manager.
func (e *Engine) Fields() *nav.FlowFieldManager { return e.fields }

// TickRate returns the configured ticks per second.
func (e *Engine) TickRate() int { return e.tickRate }

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// RecentEvents returns the latest logged events, oldest first.
func (e *Engine) RecentEvents(n int) []Event {
	return e.eventLog.Recent(n)
}
