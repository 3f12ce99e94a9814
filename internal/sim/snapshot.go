package sim

import (
	"sync"
	"sync/atomic"
	"time"
)

// AgentSnapshot is an immutable copy of agent state
type AgentSnapshot struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Z       float64 `json:"z"`
	VX      float64 `json:"vx"`
	VZ      float64 `json:"vz"`
	GoalX   float64 `json:"goalX"`
	GoalZ   float64 `json:"goalZ"`
	HasGoal bool    `json:"hasGoal"`
	Moving  bool    `json:"moving"`
	Arrived bool    `json:"arrived"`
}

// WorldSnapshot is a complete immutable simulation state for API readers
type WorldSnapshot struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	TickNumber uint64    `json:"tick"`

	Agents []AgentSnapshot `json:"agents"` // capped at the pool limit

	AgentCount   int     `json:"agentCount"` // all agents, including any past the cap
	MovingCount  int     `json:"movingCount"`
	ArrivedCount int     `json:"arrivedCount"`
	ActiveFields int     `json:"activeFields"`
	VisitedCells int     `json:"visitedCells"` // settled cells of the active field
	DensityTotal float64 `json:"densityTotal"`
}

type snapshotSlot struct {
	mu   sync.RWMutex
	snap WorldSnapshot
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Uses triple buffering: the tick writes one slot while readers copy the
// last published one. Each slot carries its own lock so a slow reader can
// never observe a slot being rewritten.
type SnapshotPool struct {
	slots     [3]snapshotSlot
	maxAgents int
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated agent slices
func NewSnapshotPool(maxAgents int) *SnapshotPool {
	pool := &SnapshotPool{maxAgents: maxAgents}
	for i := range pool.slots {
		pool.slots[i].snap.Agents = make([]AgentSnapshot, 0, maxAgents)
	}
	return pool
}

// AcquireWrite locks and resets the next write slot (producer only, called from tick).
// Must be paired with PublishWrite.
func (p *SnapshotPool) AcquireWrite() *WorldSnapshot {
	// always the slot after the published one
	idx := (atomic.LoadUint32(&p.readIdx) + 1) % 3
	atomic.StoreUint32(&p.writeIdx, idx)

	slot := &p.slots[idx]
	slot.mu.Lock()

	agents := slot.snap.Agents[:0]
	slot.snap = WorldSnapshot{
		Sequence:  atomic.AddUint64(&p.sequence, 1),
		Timestamp: time.Now(),
		Agents:    agents,
	}
	return &slot.snap
}

// PublishWrite unlocks the write slot and makes it the latest snapshot
func (p *SnapshotPool) PublishWrite() {
	idx := atomic.LoadUint32(&p.writeIdx)
	p.slots[idx].mu.Unlock()
	atomic.StoreUint32(&p.readIdx, idx)
}

// Latest returns a deep copy of the most recently published snapshot
func (p *SnapshotPool) Latest() WorldSnapshot {
	slot := &p.slots[atomic.LoadUint32(&p.readIdx)%3]
	slot.mu.RLock()
	defer slot.mu.RUnlock()

	out := slot.snap
	out.Agents = append([]AgentSnapshot(nil), slot.snap.Agents...)
	return out
}

// MaxAgents returns the per-snapshot agent cap
func (p *SnapshotPool) MaxAgents() int {
	return p.maxAgents
}
