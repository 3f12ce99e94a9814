package sim

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdflow/internal/config"
	"crowdflow/internal/nav"
	"crowdflow/internal/terrain"
)

func openRows(w, h int) []string {
	rows := make([]string, h)
	for i := range rows {
		rows[i] = strings.Repeat(".", w)
	}
	return rows
}

func newTestEngine(t testing.TB, rows []string, density int) *Engine {
	t.Helper()
	g, err := terrain.ParseMap(strings.NewReader(strings.Join(rows, "\n")), 1, density)
	require.NoError(t, err)

	return NewEngine(EngineConfig{
		World:    nav.NewWorld(g, 2, 1),
		TickRate: 30,
		Crowd:    config.DefaultCrowd(),
		Nav:      config.DefaultNav(),
		Seed:     7,
	})
}

var splitRows = []string{
	"....#....",
	"....#....",
	"....#....",
	"....#....",
	"....#....",
}

// TestEngineStartStop verifies the loop can start and stop without panics
func TestEngineStartStop(t *testing.T) {
	e := newTestEngine(t, openRows(10, 10), 1)

	e.Start()
	e.Start() // no-op
	time.Sleep(50 * time.Millisecond)
	e.Stop()

	// Should not panic on double stop
	e.Stop()
}

func TestSpawnAgents(t *testing.T) {
	e := newTestEngine(t, openRows(20, 20), 2)

	agents, err := e.SpawnAgents(25)
	require.NoError(t, err)
	require.Len(t, agents, 25)

	g := e.World().Grid
	ids := make(map[string]bool)
	for _, a := range agents {
		assert.False(t, ids[a.ID], "duplicate id %s", a.ID)
		ids[a.ID] = true

		fx, fz := nav.FineCellOf(g.WorldToFine(nav.Vec2{X: a.X, Z: a.Z}))
		cx, cz := g.FineToCoarse(fx, fz)
		assert.True(t, g.IsOpen(cx, cz), "agent spawned on a blocked cell")
		assert.False(t, a.HasGoal)
	}

	assert.Len(t, e.Agents(), 25)
	assert.Greater(t, e.World().Density.Total(), 0.0)
}

func TestSpawnAgentsUsesLargestRegion(t *testing.T) {
	e := newTestEngine(t, []string{
		".#......",
		"##......",
		"........",
	}, 1)

	agents, err := e.SpawnAgents(30)
	require.NoError(t, err)
	for _, a := range agents {
		assert.False(t, a.X < 1 && a.Z < 1, "agent spawned in the isolated pocket")
	}
}

func TestAddAgentValidation(t *testing.T) {
	e := newTestEngine(t, splitRows, 1)

	tests := []struct {
		name string
		pos  nav.Vec2
		err  error
	}{
		{"open cell", nav.Vec2{X: 1.5, Z: 1.5}, nil},
		{"obstacle", nav.Vec2{X: 4.5, Z: 2.5}, ErrPositionBlocked},
		{"outside", nav.Vec2{X: -3, Z: 2}, ErrPositionBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AddAgent(tt.pos)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestAgentLimit(t *testing.T) {
	g := nav.NewGrid(5, 5, 1, 1)
	crowd := config.DefaultCrowd()
	crowd.MaxAgents = 2
	e := NewEngine(EngineConfig{World: nav.NewWorld(g, 1, 1), Crowd: crowd, Seed: 1})

	_, err := e.SpawnAgents(3)
	assert.ErrorIs(t, err, ErrAgentLimit)
	assert.Len(t, e.Agents(), 2)
}

func TestRemoveAgentRestoresDensity(t *testing.T) {
	e := newTestEngine(t, openRows(10, 10), 3)

	a, err := e.AddAgent(nav.Vec2{X: 4.2, Z: 6.7})
	require.NoError(t, err)
	require.Greater(t, e.World().Density.Total(), 0.0)

	require.NoError(t, e.RemoveAgent(a.ID))
	assert.InDelta(t, 0, e.World().Density.Total(), 1e-9)

	_, ok := e.Agent(a.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, e.RemoveAgent(a.ID), ErrAgentNotFound)
}

func TestIssueGoalAndArrive(t *testing.T) {
	e := newTestEngine(t, openRows(20, 20), 2)

	a, err := e.AddAgent(nav.Vec2{X: 2.5, Z: 2.5})
	require.NoError(t, err)

	goal := nav.Vec2{X: 15, Z: 15}
	res, err := e.IssueGoal(nil, goal)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, res.Assigned)
	assert.Empty(t, res.Rejected)

	ff, err := e.ActiveField()
	require.NoError(t, err)
	assert.NotNil(t, ff)
	// one reference for the agent, one for the active field
	assert.Equal(t, 2, e.Fields().Refs(ff))

	arrived := false
	for i := 0; i < 2000 && !arrived; i++ {
		e.tick()
		got, _ := e.Agent(a.ID)
		arrived = got.Arrived
	}
	require.True(t, arrived, "agent never reached the goal")

	got, _ := e.Agent(a.ID)
	assert.LessOrEqual(t, nav.Vec2{X: got.X, Z: got.Z}.Sub(goal).Len(), config.DefaultCrowd().ArriveRadius)
	assert.False(t, got.Moving)
	assert.Equal(t, 1, e.Fields().Refs(ff), "arrived agent should release its field")

	snap := e.GetSnapshot()
	assert.Equal(t, 1, snap.AgentCount)
	assert.Equal(t, 1, snap.ArrivedCount)
	assert.Equal(t, 0, snap.MovingCount)
	assert.Greater(t, snap.VisitedCells, 0)
}

func TestAgentsMoveTowardGoal(t *testing.T) {
	e := newTestEngine(t, openRows(30, 30), 2)

	_, err := e.SpawnAgents(20)
	require.NoError(t, err)

	goal := nav.Vec2{X: 15, Z: 15}
	_, err = e.IssueGoal(nil, goal)
	require.NoError(t, err)

	dist := func() float64 {
		total := 0.0
		for _, a := range e.Agents() {
			total += nav.Vec2{X: a.X, Z: a.Z}.Sub(goal).Len()
		}
		return total
	}

	before := dist()
	for i := 0; i < 60; i++ {
		e.tick()
	}
	assert.Less(t, dist(), before, "agents should close in on the goal")

	g := e.World().Grid
	for _, a := range e.Agents() {
		fx, fz := nav.FineCellOf(g.WorldToFine(nav.Vec2{X: a.X, Z: a.Z}))
		cx, cz := g.FineToCoarse(fx, fz)
		assert.True(t, g.IsOpen(cx, cz), "agent %s walked into a wall", a.ID)
	}
}

func TestIssueGoalUnreachable(t *testing.T) {
	e := newTestEngine(t, splitRows, 1)

	left, err := e.AddAgent(nav.Vec2{X: 1.5, Z: 2.5})
	require.NoError(t, err)

	res, err := e.IssueGoal([]string{left.ID}, nav.Vec2{X: 7.5, Z: 2.5})
	assert.ErrorIs(t, err, ErrGoalUnreachable)
	assert.Equal(t, []string{left.ID}, res.Rejected)
	assert.Empty(t, res.Assigned)
	assert.Equal(t, 0, e.Fields().Active(), "rejected goals must not leave fields behind")

	_, err = e.ActiveField()
	assert.ErrorIs(t, err, ErrNoActiveField)

	// goal on the wall itself
	_, err = e.IssueGoal(nil, nav.Vec2{X: 4.5, Z: 2.5})
	assert.ErrorIs(t, err, ErrGoalUnreachable)
}

func TestIssueGoalPartial(t *testing.T) {
	e := newTestEngine(t, splitRows, 1)

	left, err := e.AddAgent(nav.Vec2{X: 1.5, Z: 2.5})
	require.NoError(t, err)
	right, err := e.AddAgent(nav.Vec2{X: 7.5, Z: 2.5})
	require.NoError(t, err)

	res, err := e.IssueGoal([]string{left.ID, right.ID, "ghost"}, nav.Vec2{X: 0.5, Z: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{left.ID}, res.Assigned)
	assert.Equal(t, []string{right.ID}, res.Rejected)
	assert.Equal(t, []string{"ghost"}, res.Missing)

	_, err = e.IssueGoal([]string{"ghost"}, nav.Vec2{X: 0.5, Z: 0.5})
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestGoalsShareFields(t *testing.T) {
	e := newTestEngine(t, openRows(12, 12), 2)
	_, err := e.SpawnAgents(6)
	require.NoError(t, err)

	_, err = e.IssueGoal(nil, nav.Vec2{X: 6, Z: 6})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Fields().Active())

	// a new goal for everyone supersedes the old field entirely
	_, err = e.IssueGoal(nil, nav.Vec2{X: 2, Z: 9})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Fields().Active())

	ff, err := e.ActiveField()
	require.NoError(t, err)
	assert.Equal(t, 7, e.Fields().Refs(ff))
}

func TestRemoveMovingAgentReleasesField(t *testing.T) {
	e := newTestEngine(t, openRows(10, 10), 1)
	a, err := e.AddAgent(nav.Vec2{X: 1.5, Z: 1.5})
	require.NoError(t, err)
	_, err = e.IssueGoal(nil, nav.Vec2{X: 8, Z: 8})
	require.NoError(t, err)

	ff, _ := e.ActiveField()
	require.Equal(t, 2, e.Fields().Refs(ff))
	require.NoError(t, e.RemoveAgent(a.ID))
	assert.Equal(t, 1, e.Fields().Refs(ff))
}

func TestAgentsNear(t *testing.T) {
	e := newTestEngine(t, openRows(40, 40), 1)

	near, err := e.AddAgent(nav.Vec2{X: 10.5, Z: 10.5})
	require.NoError(t, err)
	_, err = e.AddAgent(nav.Vec2{X: 30.5, Z: 30.5})
	require.NoError(t, err)

	got := e.AgentsNear(nav.Vec2{X: 11, Z: 11}, 2)
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].ID)

	assert.Empty(t, e.AgentsNear(nav.Vec2{X: 20, Z: 20}, 1))
	assert.Len(t, e.AgentsNear(nav.Vec2{X: 20, Z: 20}, 100), 2)
}

func TestSearchCapHook(t *testing.T) {
	e := newTestEngine(t, openRows(5, 5), 1)

	var gotX, gotZ int
	e.OnSearchCap = func(x, z int) { gotX, gotZ = x, z }
	e.handleSearchCap(3, 4)

	assert.Equal(t, uint64(1), e.Stats().SearchCaps)
	assert.Equal(t, 3, gotX)
	assert.Equal(t, 4, gotZ)
}

func TestOnTickHook(t *testing.T) {
	e := newTestEngine(t, openRows(5, 5), 1)
	calls := 0
	e.OnTick = func(time.Duration) { calls++ }

	e.tick()
	e.tick()
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(2), e.Stats().Tick)
	assert.Equal(t, uint64(2), e.GetSnapshot().TickNumber)
}

func TestEventLogFile(t *testing.T) {
	e := newTestEngine(t, openRows(10, 10), 1)
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, e.StartEventLog(path))

	a, err := e.AddAgent(nav.Vec2{X: 1.5, Z: 1.5})
	require.NoError(t, err)
	_, err = e.IssueGoal(nil, nav.Vec2{X: 5, Z: 5})
	require.NoError(t, err)
	e.tick()
	require.NoError(t, e.RemoveAgent(a.ID))

	recent := e.RecentEvents(0)
	types := make([]EventType, 0, len(recent))
	for _, ev := range recent {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventTypeAgentSpawn, EventTypeGoalIssued, EventTypeTick, EventTypeAgentRemove}, types)

	e.StopEventLog()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"type":"agent_spawn"`)
	assert.Contains(t, lines[3], `"type":"agent_remove"`)
}
