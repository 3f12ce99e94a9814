// Package nav implements crowd navigation over a 2D obstacle grid: a coarse
// obstacle map, a connectivity index, a static wall-proximity cost, a shared
// crowd-density field and lazily grown flow fields seeded at a goal.
//
// Two resolutions are used throughout. Coarse cells carry obstacle
// occupancy. Fine cells subdivide every coarse cell Density times per axis
// and carry all cost fields. Positions passed to FlowField queries are in
// fine units (one unit per fine cell); positions passed to constructors and
// the density field are in world units.
package nav

import (
	"math"
	"math/rand"
)

// Grid is the static world: obstacle occupancy at coarse resolution.
// Cells are stored in row-major order (cells[z*Width+x]).
type Grid struct {
	width, height int
	cellSize      float64
	density       int
	obstacles     []bool
}

// NewGrid allocates an obstacle-free grid.
// Non-positive dimensions are clamped to 1, cellSize defaults to 1 and
// density to 1.
func NewGrid(width, height int, cellSize float64, density int) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	if density < 1 {
		density = 1
	}
	return &Grid{
		width:     width,
		height:    height,
		cellSize:  cellSize,
		density:   density,
		obstacles: make([]bool, width*height),
	}
}

// Width returns the coarse width in cells.
func (g *Grid) Width() int { return g.width }

// Height returns the coarse height in cells.
func (g *Grid) Height() int { return g.height }

// CellSize returns the world size of one coarse cell.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Density returns the number of fine cells per coarse cell along each axis.
func (g *Grid) Density() int { return g.density }

// FineWidth returns Width*Density.
func (g *Grid) FineWidth() int { return g.width * g.density }

// FineHeight returns Height*Density.
func (g *Grid) FineHeight() int { return g.height * g.density }

// InBounds reports whether a coarse cell exists.
func (g *Grid) InBounds(x, z int) bool {
	return x >= 0 && x < g.width && z >= 0 && z < g.height
}

// InFineBounds reports whether a fine cell exists.
func (g *Grid) InFineBounds(fx, fz int) bool {
	return fx >= 0 && fx < g.FineWidth() && fz >= 0 && fz < g.FineHeight()
}

// SetObstacle marks a coarse cell. Out-of-bounds writes are ignored.
// Grids are treated as immutable once handed to BuildConnectivity.
func (g *Grid) SetObstacle(x, z int, blocked bool) {
	if !g.InBounds(x, z) {
		return
	}
	g.obstacles[z*g.width+x] = blocked
}

// IsObstacle reports whether a coarse cell blocks movement.
// Cells outside the grid count as obstacles.
func (g *Grid) IsObstacle(x, z int) bool {
	if !g.InBounds(x, z) {
		return true
	}
	return g.obstacles[z*g.width+x]
}

// IsOpen reports whether a coarse cell is inside the grid and free.
func (g *Grid) IsOpen(x, z int) bool {
	return g.InBounds(x, z) && !g.obstacles[z*g.width+x]
}

// ObstacleCount returns the number of blocked coarse cells.
func (g *Grid) ObstacleCount() int {
	n := 0
	for _, b := range g.obstacles {
		if b {
			n++
		}
	}
	return n
}

// WorldToFine converts a world position to continuous fine units.
func (g *Grid) WorldToFine(p Vec2) Vec2 {
	s := float64(g.density) / g.cellSize
	return Vec2{p.X * s, p.Z * s}
}

// FineToWorld converts continuous fine units back to world units.
func (g *Grid) FineToWorld(p Vec2) Vec2 {
	s := g.cellSize / float64(g.density)
	return Vec2{p.X * s, p.Z * s}
}

// FineCellOf returns the integer fine cell containing a fine-unit position.
func FineCellOf(p Vec2) (int, int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Z))
}

// FineToCoarse maps a fine cell to the coarse cell containing it.
// Negative inputs map to negative (out of bounds) coarse cells.
func (g *Grid) FineToCoarse(fx, fz int) (int, int) {
	return floorDiv(fx, g.density), floorDiv(fz, g.density)
}

// CoarseCenterWorld returns the world position of a coarse cell centre.
func (g *Grid) CoarseCenterWorld(x, z int) Vec2 {
	return Vec2{(float64(x) + 0.5) * g.cellSize, (float64(z) + 0.5) * g.cellSize}
}

// RandomOpenCell samples random coarse cells until an open one is found.
// ok is false when every attempt hit an obstacle.
func (g *Grid) RandomOpenCell(rng *rand.Rand, tries int) (x, z int, ok bool) {
	for i := 0; i < tries; i++ {
		x = rng.Intn(g.width)
		z = rng.Intn(g.height)
		if g.IsOpen(x, z) {
			return x, z, true
		}
	}
	return 0, 0, false
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
