package nav

import "sync"

type fieldKey struct{ x, z int }

type managedField struct {
	field *FlowField
	refs  int
}

// FlowFieldManager shares flow fields between agents heading to the same goal.
// Fields are keyed by goal fine cell and reference counted; a field is
// dropped once the last agent releases it.
type FlowFieldManager struct {
	world *World
	opts  []Option

	mu     sync.Mutex
	fields map[fieldKey]*managedField
}

// NewFlowFieldManager creates a manager whose fields read the given world.
// opts are applied to every field it creates.
func NewFlowFieldManager(w *World, opts ...Option) *FlowFieldManager {
	return &FlowFieldManager{
		world:  w,
		opts:   opts,
		fields: make(map[fieldKey]*managedField),
	}
}

// Acquire returns the field for the goal's fine cell, creating it if needed,
// and takes a reference on it.
func (m *FlowFieldManager) Acquire(goal Vec2) *FlowField {
	gx, gz := FineCellOf(m.world.Grid.WorldToFine(goal))
	key := fieldKey{gx, gz}

	m.mu.Lock()
	defer m.mu.Unlock()

	if mf, ok := m.fields[key]; ok {
		mf.refs++
		return mf.field
	}

	mf := &managedField{field: NewFlowField(m.world, goal, m.opts...), refs: 1}
	m.fields[key] = mf
	return mf.field
}

// Release drops one reference. Releasing nil or an unknown field is a no-op.
func (m *FlowFieldManager) Release(f *FlowField) {
	if f == nil {
		return
	}
	key := fieldKey{f.goalX, f.goalZ}

	m.mu.Lock()
	defer m.mu.Unlock()

	mf, ok := m.fields[key]
	if !ok || mf.field != f {
		return
	}
	mf.refs--
	if mf.refs <= 0 {
		delete(m.fields, key)
	}
}

// Refs returns the reference count held on a field, 0 if it is not managed.
func (m *FlowFieldManager) Refs(f *FlowField) int {
	if f == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mf, ok := m.fields[fieldKey{f.goalX, f.goalZ}]; ok && mf.field == f {
		return mf.refs
	}
	return 0
}

// Active returns the number of live fields.
func (m *FlowFieldManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fields)
}

// Fields returns a snapshot of the live fields.
func (m *FlowFieldManager) Fields() []*FlowField {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*FlowField, 0, len(m.fields))
	for _, mf := range m.fields {
		out = append(out, mf.field)
	}
	return out
}

// Clear drops every field regardless of references.
func (m *FlowFieldManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields = make(map[fieldKey]*managedField)
}
