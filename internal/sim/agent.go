package sim

import (
	"github.com/google/uuid"

	"crowdflow/internal/nav"
)

// Agent is a unit steered by a shared flow field.
// All fields are owned by the engine and only touched under its lock.
type Agent struct {
	ID      string
	Pos     nav.Vec2 // World units
	Vel     nav.Vec2 // World units per second
	Goal    nav.Vec2
	HasGoal bool
	Arrived bool

	goalTick uint64 // tick the current goal was issued
	field    *nav.FlowField
}

func newAgent(pos nav.Vec2) *Agent {
	return &Agent{
		ID:  uuid.NewString(),
		Pos: pos,
	}
}

// Moving reports whether the agent is following a field.
func (a *Agent) Moving() bool {
	return a.field != nil && !a.Arrived
}

// Snapshot returns an immutable copy of the agent.
func (a *Agent) Snapshot() AgentSnapshot {
	return AgentSnapshot{
		ID:      a.ID,
		X:       a.Pos.X,
		Z:       a.Pos.Z,
		VX:      a.Vel.X,
		VZ:      a.Vel.Z,
		GoalX:   a.Goal.X,
		GoalZ:   a.Goal.Z,
		HasGoal: a.HasGoal,
		Moving:  a.Moving(),
		Arrived: a.Arrived,
	}
}
