// Package terrain produces obstacle grids: procedural noise maps and
// hand-written ASCII maps.
package terrain

import (
	"math"

	"crowdflow/internal/nav"
)

// Params controls procedural map generation.
type Params struct {
	Size      int     // Coarse cells per side
	CellSize  float64 // World units per coarse cell
	Density   int     // Fine cells per coarse cell per axis
	Seed      int64
	Scale     float64 // Noise wavelength in cells
	Border    int     // Width of the raised rim, in cells
	Falloff   float64 // Rim height divisor; smaller values steepen the rim
	Threshold float64 // Height above which a cell becomes an obstacle
}

// DefaultParams returns the stock 100×100 map settings.
func DefaultParams() Params {
	return Params{
		Size:      100,
		CellSize:  1,
		Density:   3,
		Seed:      1,
		Scale:     10,
		Border:    4,
		Falloff:   6,
		Threshold: 0.5,
	}
}

// Height returns the terrain height of a coarse cell.
//
// Noise is raised toward the map edge by a rim ramp, then squashed through
// atan around the 0.5 midpoint so tall rims level off.
func (p Params) Height(x, z int) float64 {
	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}
	h := valueNoise2D(p.Seed, float64(x)/scale, float64(z)/scale)

	half := p.Size / 2
	rim := max(
		max(0, abs(x-half)-half+p.Border),
		max(0, abs(z-half)-half+p.Border),
	)
	if p.Falloff > 0 {
		h += float64(rim) / p.Falloff
	}

	return math.Atan((h-0.5)*2)/2 + 0.5
}

// Generate builds a Size×Size grid, marking every cell whose height exceeds
// Threshold as an obstacle. The same Params always yield the same grid.
func Generate(p Params) *nav.Grid {
	g := nav.NewGrid(p.Size, p.Size, p.CellSize, p.Density)
	for z := 0; z < g.Height(); z++ {
		for x := 0; x < g.Width(); x++ {
			if p.Height(x, z) > p.Threshold {
				g.SetObstacle(x, z, true)
			}
		}
	}
	return g
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
