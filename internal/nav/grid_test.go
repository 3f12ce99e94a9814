package nav

import (
	"math"
	"math/rand"
	"testing"
)

// gridFromRows builds a grid from '#'/'.' rows, row 0 at z=0.
func gridFromRows(rows []string, cellSize float64, density int) *Grid {
	g := NewGrid(len(rows[0]), len(rows), cellSize, density)
	for z, row := range rows {
		for x, c := range row {
			g.SetObstacle(x, z, c == '#')
		}
	}
	return g
}

// randomGrid scatters obstacles with the given fill ratio.
func randomGrid(seed int64, w, h int, fill float64, density int) *Grid {
	rng := rand.New(rand.NewSource(seed))
	g := NewGrid(w, h, 1, density)
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			g.SetObstacle(x, z, rng.Float64() < fill)
		}
	}
	return g
}

func TestNewGridClampsInputs(t *testing.T) {
	g := NewGrid(0, -3, 0, 0)
	if g.Width() != 1 || g.Height() != 1 {
		t.Errorf("expected 1x1 grid, got %dx%d", g.Width(), g.Height())
	}
	if g.CellSize() != 1 {
		t.Errorf("expected cell size 1, got %f", g.CellSize())
	}
	if g.Density() != 1 {
		t.Errorf("expected density 1, got %d", g.Density())
	}
}

func TestGridObstacles(t *testing.T) {
	g := gridFromRows([]string{
		"..#",
		"...",
	}, 1, 2)

	if !g.IsObstacle(2, 0) {
		t.Error("(2,0) should be an obstacle")
	}
	if g.IsObstacle(0, 0) {
		t.Error("(0,0) should be open")
	}
	if !g.IsObstacle(-1, 0) || !g.IsObstacle(3, 1) || !g.IsObstacle(0, 2) {
		t.Error("out-of-bounds cells must read as obstacles")
	}
	if g.IsOpen(5, 5) {
		t.Error("out-of-bounds cells must not be open")
	}
	if got := g.ObstacleCount(); got != 1 {
		t.Errorf("expected 1 obstacle, got %d", got)
	}

	// ignored
	g.SetObstacle(10, 10, true)
	if got := g.ObstacleCount(); got != 1 {
		t.Errorf("out-of-bounds write changed the grid: %d obstacles", got)
	}

	if g.FineWidth() != 6 || g.FineHeight() != 4 {
		t.Errorf("expected fine size 6x4, got %dx%d", g.FineWidth(), g.FineHeight())
	}
}

func TestGridConversions(t *testing.T) {
	g := NewGrid(10, 10, 2, 3)

	fine := g.WorldToFine(Vec2{X: 4, Z: 1})
	if fine.X != 6 || fine.Z != 1.5 {
		t.Errorf("WorldToFine: got %+v", fine)
	}
	back := g.FineToWorld(fine)
	if math.Abs(back.X-4) > 1e-12 || math.Abs(back.Z-1) > 1e-12 {
		t.Errorf("FineToWorld: got %+v", back)
	}

	tests := []struct {
		fx, fz int
		cx, cz int
	}{
		{0, 0, 0, 0},
		{2, 3, 0, 1},
		{29, 29, 9, 9},
		{-1, -3, -1, -1},
		{-4, 0, -2, 0},
	}
	for _, tt := range tests {
		cx, cz := g.FineToCoarse(tt.fx, tt.fz)
		if cx != tt.cx || cz != tt.cz {
			t.Errorf("FineToCoarse(%d,%d) = (%d,%d), want (%d,%d)", tt.fx, tt.fz, cx, cz, tt.cx, tt.cz)
		}
	}

	if x, z := FineCellOf(Vec2{X: -0.5, Z: 2.99}); x != -1 || z != 2 {
		t.Errorf("FineCellOf floors: got (%d,%d)", x, z)
	}

	c := g.CoarseCenterWorld(1, 2)
	if c.X != 3 || c.Z != 5 {
		t.Errorf("CoarseCenterWorld(1,2) = %+v", c)
	}
}

func TestRandomOpenCell(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	blocked := gridFromRows([]string{"##", "##"}, 1, 1)
	if _, _, ok := blocked.RandomOpenCell(rng, 100); ok {
		t.Error("fully blocked grid must not yield an open cell")
	}

	g := gridFromRows([]string{"#.", "##"}, 1, 1)
	x, z, ok := g.RandomOpenCell(rng, 10000)
	if !ok || x != 1 || z != 0 {
		t.Errorf("expected (1,0), got (%d,%d) ok=%v", x, z, ok)
	}
}
