package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crowdflow/internal/nav"
)

func TestAgentIndexQueryRadius(t *testing.T) {
	ix := NewAgentIndex(100, 100, 10, 64)

	ix.Insert(0, nav.Vec2{X: 5, Z: 5})
	ix.Insert(1, nav.Vec2{X: 15, Z: 5})
	ix.Insert(2, nav.Vec2{X: 95, Z: 95})
	ix.Insert(3, nav.Vec2{X: -20, Z: 500}) // clamped into a border cell

	got := ix.QueryRadius(nav.Vec2{X: 6, Z: 6}, 3)
	assert.ElementsMatch(t, []uint32{0}, got)

	got = ix.QueryRadius(nav.Vec2{X: 10, Z: 5}, 6)
	assert.ElementsMatch(t, []uint32{0, 1}, got)

	got = ix.QueryRadius(nav.Vec2{X: 0, Z: 99}, 1)
	assert.ElementsMatch(t, []uint32{3}, got)

	assert.Empty(t, ix.QueryRadius(nav.Vec2{X: 50, Z: 50}, -1))

	stats := ix.Stats()
	assert.Equal(t, 100, stats.TotalCells)
	assert.Equal(t, 4, stats.TotalEntries)
	assert.Equal(t, 4, stats.NonEmptyCells)
	assert.Equal(t, 1, stats.MaxInCell)

	ix.Clear()
	assert.Equal(t, 0, ix.Stats().TotalEntries)
}

func TestSnapshotPoolLatestIsACopy(t *testing.T) {
	p := NewSnapshotPool(4)

	snap := p.AcquireWrite()
	snap.TickNumber = 1
	snap.Agents = append(snap.Agents, AgentSnapshot{ID: "a"})
	p.PublishWrite()

	got := p.Latest()
	assert.Equal(t, uint64(1), got.TickNumber)
	assert.Len(t, got.Agents, 1)

	// later writes never alter a copy already handed out
	for i := 0; i < 5; i++ {
		s := p.AcquireWrite()
		s.TickNumber = uint64(i + 2)
		s.Agents = append(s.Agents, AgentSnapshot{ID: "b"}, AgentSnapshot{ID: "c"})
		p.PublishWrite()
	}
	assert.Equal(t, "a", got.Agents[0].ID)
	assert.Equal(t, uint64(6), p.Latest().TickNumber)
	assert.Len(t, p.Latest().Agents, 2)
	assert.Greater(t, p.Latest().Sequence, got.Sequence)
}

func TestEventLogRequiresStart(t *testing.T) {
	el := NewEventLog()
	assert.False(t, el.EmitSimple(EventTypeTick, 1, "", TickPayload{}))

	assert.NoError(t, el.Start(""))
	assert.True(t, el.EmitSimple(EventTypeTick, 1, "", TickPayload{AgentCount: 3}))
	assert.Len(t, el.Recent(10), 1)
	el.Stop()

	stats := el.Stats()
	assert.Equal(t, uint64(1), stats.Total)
	assert.Equal(t, uint64(0), stats.Pending)
	assert.False(t, stats.Running)
}

func TestEventLogPerSourceLimit(t *testing.T) {
	el := NewEventLog()
	assert.NoError(t, el.Start(""))
	defer el.Stop()

	accepted := 0
	for i := 0; i < 50; i++ {
		if el.EmitSimple(EventTypeAgentSpawn, 0, "noisy", AgentPayload{AgentID: "noisy"}) {
			accepted++
		}
	}
	// burst is MaxEventsPerSource/10
	assert.LessOrEqual(t, accepted, MaxEventsPerSource/10+1)
	assert.Greater(t, el.Stats().Dropped, uint64(0))
}

func TestEventTypeNames(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EventTypeTick, "tick"},
		{EventTypeAgentSpawn, "agent_spawn"},
		{EventTypeAgentRemove, "agent_remove"},
		{EventTypeGoalIssued, "goal_issued"},
		{EventTypeGoalRejected, "goal_rejected"},
		{EventTypeAgentArrived, "agent_arrived"},
		{EventTypeSearchCap, "search_cap"},
		{EventTypeUnknown, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.t.String())
	}
}
