package nav

import "testing"

func TestFlowFieldManagerSharesByGoalCell(t *testing.T) {
	world := openWorld(10, 10, 2)
	m := NewFlowFieldManager(world)

	// both positions fall in fine cell (4,4)
	a := m.Acquire(Vec2{X: 2.1, Z: 2.1})
	b := m.Acquire(Vec2{X: 2.4, Z: 2.4})
	if a != b {
		t.Fatal("goals in the same fine cell should share a field")
	}
	if m.Refs(a) != 2 {
		t.Errorf("expected 2 refs, got %d", m.Refs(a))
	}

	c := m.Acquire(Vec2{X: 7, Z: 7})
	if c == a {
		t.Fatal("different goal cells must not share a field")
	}
	if m.Active() != 2 {
		t.Errorf("expected 2 active fields, got %d", m.Active())
	}

	m.Release(a)
	if m.Active() != 2 || m.Refs(a) != 1 {
		t.Errorf("field dropped too early: active=%d refs=%d", m.Active(), m.Refs(a))
	}
	m.Release(b)
	if m.Active() != 1 {
		t.Errorf("expected the shared field to be dropped, active=%d", m.Active())
	}

	// released fields are not resurrected by a stale Release
	m.Release(a)
	m.Release(nil)
	if m.Active() != 1 {
		t.Errorf("stale release changed the manager, active=%d", m.Active())
	}

	d := m.Acquire(Vec2{X: 2.2, Z: 2.2})
	if d == a {
		t.Error("a fresh Acquire after release should build a new field")
	}
	if len(m.Fields()) != 2 {
		t.Errorf("expected 2 fields, got %d", len(m.Fields()))
	}

	m.Clear()
	if m.Active() != 0 {
		t.Errorf("Clear left %d fields", m.Active())
	}
}

func TestFlowFieldManagerAppliesOptions(t *testing.T) {
	world := openWorld(6, 6, 1)
	hits := 0
	m := NewFlowFieldManager(world, WithIterationCap(1), WithCapHook(func(int, int) { hits++ }))

	ff := m.Acquire(Vec2{X: 3, Z: 3})
	ff.Complete()
	if hits != 1 {
		t.Errorf("manager options not applied, hook fired %d times", hits)
	}
}
