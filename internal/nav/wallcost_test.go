package nav

import (
	"math"
	"testing"
)

func TestWallProximitySingleObstacle(t *testing.T) {
	g := NewGrid(5, 5, 1, 2)
	g.SetObstacle(2, 2, true)

	w := BuildWallProximity(g, 3, 5)

	// obstacle centre sits at fine (5,5); cell (4,4) centre is at (4.5,4.5)
	want := 5 * math.Exp(-0.5/4)
	if got := w.Cost(4, 4); math.Abs(got-want) > 1e-12 {
		t.Errorf("Cost(4,4) = %g, want %g", got, want)
	}
	if got := w.Cost(0, 0); got != 0 {
		t.Errorf("cells beyond the radius must be 0, got %g", got)
	}
	if w.Cost(-1, 3) != 0 || w.Cost(3, 10) != 0 {
		t.Error("out-of-bounds cost must be 0")
	}
	if math.Abs(w.Max()-want) > 1e-12 {
		t.Errorf("Max() = %g, want %g", w.Max(), want)
	}
}

func TestWallProximityCombinesWithMax(t *testing.T) {
	g := randomGrid(11, 12, 12, 0.4, 2)
	const factor = 2.5
	w := BuildWallProximity(g, 4, factor)

	for fz := 0; fz < g.FineHeight(); fz++ {
		for fx := 0; fx < g.FineWidth(); fx++ {
			if c := w.Cost(fx, fz); c > factor+1e-12 || c < 0 {
				t.Fatalf("Cost(%d,%d) = %g outside [0,%g]", fx, fz, c, factor)
			}
		}
	}
}

func TestWallProximityDisabled(t *testing.T) {
	g := gridFromRows([]string{"#.#", "..."}, 1, 3)
	if w := BuildWallProximity(g, 0, 5); w.Max() != 0 {
		t.Errorf("zero radius should disable the field, max=%g", w.Max())
	}
	if w := BuildWallProximity(g, 3, 0); w.Max() != 0 {
		t.Errorf("zero factor should disable the field, max=%g", w.Max())
	}
}
