package nav

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// WallProximityField is a static fine-resolution cost that rises near obstacles.
// It biases the search away from tight corridors even where cells are open.
type WallProximityField struct {
	fineW, fineH int
	cost         []float64
}

// BuildWallProximity splats a Gaussian bump factor*exp(-d²/4) around every
// obstacle coarse cell onto fine cells within radius fine units of the
// obstacle's fine-resolution centre.
//
// Overlapping bumps combine with max, so clusters of walls never push the
// cost above factor.
func BuildWallProximity(g *Grid, radius, factor float64) *WallProximityField {
	f := &WallProximityField{
		fineW: g.FineWidth(),
		fineH: g.FineHeight(),
		cost:  make([]float64, g.FineWidth()*g.FineHeight()),
	}
	if radius <= 0 || factor <= 0 {
		return f
	}

	density := float64(g.Density())
	r2 := radius * radius

	for z := 0; z < g.Height(); z++ {
		for x := 0; x < g.Width(); x++ {
			if !g.IsObstacle(x, z) {
				continue
			}

			cx := (float64(x) + 0.5) * density
			cz := (float64(z) + 0.5) * density

			minX := max(0, int(math.Floor(cx-radius)))
			maxX := min(f.fineW-1, int(math.Ceil(cx+radius)))
			minZ := max(0, int(math.Floor(cz-radius)))
			maxZ := min(f.fineH-1, int(math.Ceil(cz+radius)))

			for fz := minZ; fz <= maxZ; fz++ {
				dz := float64(fz) + 0.5 - cz
				for fx := minX; fx <= maxX; fx++ {
					dx := float64(fx) + 0.5 - cx
					d2 := dx*dx + dz*dz
					if d2 > r2 {
						continue
					}
					v := factor * math.Exp(-d2/4)
					i := fz*f.fineW + fx
					if v > f.cost[i] {
						f.cost[i] = v
					}
				}
			}
		}
	}

	return f
}

// Cost returns the wall penalty of a fine cell, 0 outside the grid.
func (f *WallProximityField) Cost(fx, fz int) float64 {
	if fx < 0 || fx >= f.fineW || fz < 0 || fz >= f.fineH {
		return 0
	}
	return f.cost[fz*f.fineW+fx]
}

// Max returns the largest penalty in the field.
func (f *WallProximityField) Max() float64 {
	if len(f.cost) == 0 {
		return 0
	}
	return floats.Max(f.cost)
}
