package nav

import (
	"log"
	"math"
	"sync"
)

// MaxCost is returned where no cost is defined: out of bounds, or every
// surrounding cell unreachable. It is finite so gradients never turn into NaN.
const MaxCost = float64(math.MaxFloat32)

// DefaultGradientStep is the sampling offset, in fine units, used by GetDirection.
const DefaultGradientStep = 0.1

// Per-neighbour offsets and step lengths for 8-way expansion.
// Order: E, W, S, N, SE, SW, NE, NW
var (
	neighborDX   = [8]int{1, -1, 0, 0, 1, -1, 1, -1}
	neighborDZ   = [8]int{0, 0, 1, -1, 1, 1, -1, -1}
	neighborStep = [8]float64{1, 1, 1, 1, math.Sqrt2, math.Sqrt2, math.Sqrt2, math.Sqrt2}
)

// FlowField is a lazily grown cost field toward one goal.
//
// Construction only seeds the search. Queries call EnsureVisited on the cells
// they need and the Dijkstra frontier expands just far enough to settle them;
// settled cells keep their cost for the lifetime of the field. The crowd
// density is blended in at query time only, so the search order does not
// depend on agent motion.
//
// All search state is guarded by mu. The reachable bitmap is written once in
// NewFlowField and read without locking.
type FlowField struct {
	world        *World
	fineW, fineH int
	goalX, goalZ int

	reachable []bool

	mu         sync.Mutex
	integrator []float64 // +Inf until visited
	tentative  []float64 // best queued cost, prunes redundant pushes
	visited    []bool
	open       frontier
	visitCount int
	pops       int
	popCap     int
	capHit     bool

	gradientStep float64
	onCapHit     func(goalX, goalZ int)
}

// Option configures a FlowField.
type Option func(*FlowField)

// WithGradientStep overrides the finite-difference offset of GetDirection.
func WithGradientStep(d float64) Option {
	return func(f *FlowField) {
		if d > 0 {
			f.gradientStep = d
		}
	}
}

// WithIterationCap overrides the runaway-search safety valve.
func WithIterationCap(n int) Option {
	return func(f *FlowField) {
		if n > 0 {
			f.popCap = n
		}
	}
}

// WithCapHook registers a callback fired once if the safety valve trips.
func WithCapHook(fn func(goalX, goalZ int)) Option {
	return func(f *FlowField) { f.onCapHit = fn }
}

// NewFlowField seeds a search at a world-space goal.
//
// Every fine cell whose coarse cell is not connected to the goal's coarse
// cell is marked unreachable up front. A goal on an obstacle, or outside the
// grid, therefore yields a field in which nothing is reachable.
func NewFlowField(w *World, goal Vec2, opts ...Option) *FlowField {
	g := w.Grid
	fineW, fineH := g.FineWidth(), g.FineHeight()
	size := fineW * fineH

	gx, gz := FineCellOf(g.WorldToFine(goal))

	f := &FlowField{
		world:        w,
		fineW:        fineW,
		fineH:        fineH,
		goalX:        gx,
		goalZ:        gz,
		reachable:    make([]bool, size),
		integrator:   make([]float64, size),
		tentative:    make([]float64, size),
		visited:      make([]bool, size),
		open:         make(frontier, 0, size/8+1),
		popCap:       8*size + 1,
		gradientStep: DefaultGradientStep,
	}
	for _, opt := range opts {
		opt(f)
	}

	inf := math.Inf(1)
	for i := range f.integrator {
		f.integrator[i] = inf
		f.tentative[i] = inf
	}

	// Connectivity is resolved per coarse cell, then broadcast to its fine cells.
	gcx, gcz := g.FineToCoarse(gx, gz)
	density := g.Density()
	for cz := 0; cz < g.Height(); cz++ {
		for cx := 0; cx < g.Width(); cx++ {
			if !w.Groups.AreConnected(gcx, gcz, cx, cz) {
				continue
			}
			for dz := 0; dz < density; dz++ {
				row := (cz*density + dz) * fineW
				for dx := 0; dx < density; dx++ {
					f.reachable[row+cx*density+dx] = true
				}
			}
		}
	}

	if g.InFineBounds(gx, gz) {
		goalIdx := gz*fineW + gx
		f.tentative[goalIdx] = 0
		f.open.push(frontierNode{idx: goalIdx, cost: 0})
	}

	return f
}

// Goal returns the goal fine cell.
func (f *FlowField) Goal() (int, int) { return f.goalX, f.goalZ }

// World returns the shared layers this field reads.
func (f *FlowField) World() *World { return f.world }

// IsAccessible reports whether a fine cell is connected to the goal.
// It relies on the connectivity pre-check, so it is correct before the
// search reaches that region.
func (f *FlowField) IsAccessible(x, z int) bool {
	if x < 0 || x >= f.fineW || z < 0 || z >= f.fineH {
		return false
	}
	return f.reachable[z*f.fineW+x]
}

// EnsureVisited grows the search until the fine cell is settled or the
// frontier runs dry. It reports whether the cell now holds a final cost.
func (f *FlowField) EnsureVisited(x, z int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensureVisitedLocked(x, z)
}

func (f *FlowField) ensureVisitedLocked(x, z int) bool {
	if !f.IsAccessible(x, z) {
		// Unreachable cells are never settled; do not drain the frontier for them.
		return false
	}
	target := z*f.fineW + x

	for !f.visited[target] && len(f.open) > 0 {
		f.step()
	}
	return f.visited[target]
}

// step pops one frontier node and settles it if it is still current.
func (f *FlowField) step() {
	f.pops++
	if f.pops > f.popCap {
		f.tripCap()
		return
	}

	node := f.open.pop()
	if f.visited[node.idx] || !f.reachable[node.idx] {
		return
	}

	f.visited[node.idx] = true
	f.integrator[node.idx] = node.cost
	f.visitCount++

	cx, cz := node.idx%f.fineW, node.idx/f.fineW
	walls := f.world.Walls

	for i := 0; i < 8; i++ {
		nx, nz := cx+neighborDX[i], cz+neighborDZ[i]
		if nx < 0 || nx >= f.fineW || nz < 0 || nz >= f.fineH {
			continue
		}
		n := nz*f.fineW + nx
		if f.visited[n] || !f.reachable[n] {
			continue
		}
		cost := node.cost + neighborStep[i] + walls.Cost(nx, nz)
		if cost < f.tentative[n] {
			f.tentative[n] = cost
			f.open.push(frontierNode{idx: n, cost: cost})
		}
	}
}

// tripCap handles the runaway-search safety valve. Reaching it means the
// frontier bookkeeping is broken; the frontier is dropped so every later
// query falls back to its sentinel instead of spinning.
func (f *FlowField) tripCap() {
	if !f.capHit {
		f.capHit = true
		log.Printf("❌ flow field search exceeded %d iterations (goal %d,%d, %d visited): frontier bookkeeping bug",
			f.popCap, f.goalX, f.goalZ, f.visitCount)
		if f.onCapHit != nil {
			f.onCapHit(f.goalX, f.goalZ)
		}
	}
	f.open = f.open[:0]
}

// Complete runs the search to exhaustion.
// Use it to precompute a field that will be queried from many goroutines.
func (f *FlowField) Complete() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.open) > 0 {
		f.step()
	}
}

// Exhausted reports whether the whole reachable region has been settled.
func (f *FlowField) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open) == 0
}

// Visited reports whether a fine cell already holds its final cost.
// It never advances the search.
func (f *FlowField) Visited(x, z int) bool {
	if x < 0 || x >= f.fineW || z < 0 || z >= f.fineH {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[z*f.fineW+x]
}

// Integrator returns the settled cost of a fine cell without advancing the search.
func (f *FlowField) Integrator(x, z int) (float64, bool) {
	if x < 0 || x >= f.fineW || z < 0 || z >= f.fineH {
		return math.Inf(1), false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := z*f.fineW + x
	return f.integrator[i], f.visited[i]
}

// VisitedCount returns the number of settled cells.
func (f *FlowField) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visitCount
}

// Expansions returns the number of frontier pops so far.
func (f *FlowField) Expansions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pops
}

// GetCost samples the cost field at a fine-unit position.
//
// The four fine cells around the position are settled on demand and
// bilinearly interpolated. Unreachable corners take the highest reachable
// corner's value, which pulls the result up near walls without producing
// +Inf. With includeDensity, each corner's crowd density is added before
// interpolation. The result is clamped to ≥ 0; MaxCost is returned off the
// fine grid or when no corner is reachable.
func (f *FlowField) GetCost(pos Vec2, includeDensity bool) float64 {
	if !f.inFineGrid(pos) {
		return MaxCost
	}
	fx, fz := pos.X-0.5, pos.Z-0.5

	ix, iz := int(math.Floor(fx)), int(math.Floor(fz))
	u, v := fx-float64(ix), fz-float64(iz)

	corners := [4][2]int{{ix, iz}, {ix + 1, iz}, {ix + 1, iz + 1}, {ix, iz + 1}}
	var values [4]float64
	var ok [4]bool
	high := math.Inf(-1)

	density := f.world.Density

	f.mu.Lock()
	for i, c := range corners {
		if !f.ensureVisitedLocked(c[0], c[1]) {
			continue
		}
		val := f.integrator[c[1]*f.fineW+c[0]]
		if includeDensity {
			val += density.At(c[0], c[1])
		}
		values[i] = val
		ok[i] = true
		if val > high {
			high = val
		}
	}
	f.mu.Unlock()

	if math.IsInf(high, -1) {
		return MaxCost
	}
	for i := range values {
		if !ok[i] {
			values[i] = high
		}
	}

	cost := quadLerp(values[0], values[1], values[2], values[3], u, v)
	if cost < 0 {
		return 0
	}
	return cost
}

// inFineGrid reports whether a fine-unit position lies on the grid.
// NaN and values too large to convert to int fail the check.
func (f *FlowField) inFineGrid(pos Vec2) bool {
	return pos.X >= 0 && pos.Z >= 0 && pos.X < float64(f.fineW) && pos.Z < float64(f.fineH)
}

// GetDirection returns the negative cost gradient at a fine-unit position:
// steepest descent toward the goal, bent away from walls and crowds.
// The vector is not normalised. Positions on inaccessible cells get zero.
func (f *FlowField) GetDirection(pos Vec2) Vec2 {
	cx, cz := FineCellOf(pos)
	if !f.IsAccessible(cx, cz) {
		return Vec2{}
	}

	d := f.gradientStep
	left := f.GetCost(Vec2{pos.X - d, pos.Z}, true)
	right := f.GetCost(Vec2{pos.X + d, pos.Z}, true)
	bottom := f.GetCost(Vec2{pos.X, pos.Z - d}, true)
	top := f.GetCost(Vec2{pos.X, pos.Z + d}, true)

	return Vec2{(left - right) / d, (bottom - top) / d}
}

// WallCost samples the interpolated wall penalty at a fine-unit position.
func (f *FlowField) WallCost(pos Vec2) float64 {
	if !f.inFineGrid(pos) {
		return 0
	}
	fx, fz := pos.X-0.5, pos.Z-0.5
	ix, iz := int(math.Floor(fx)), int(math.Floor(fz))
	u, v := fx-float64(ix), fz-float64(iz)
	w := f.world.Walls
	return quadLerp(w.Cost(ix, iz), w.Cost(ix+1, iz), w.Cost(ix+1, iz+1), w.Cost(ix, iz+1), u, v)
}
