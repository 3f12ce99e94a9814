package nav

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// densityFalloff is the denominator of the splat exponent: exp(-(d/r)²/densityFalloff).
const densityFalloff = 0.1

// DensityField holds the dynamic crowd cost shared by every active FlowField.
//
// Each cell is the sum of all contributions currently applied. Cells are
// float64 bit patterns updated with compare-and-swap, so agents updated from
// different goroutines never lose each other's writes.
type DensityField struct {
	grid  *Grid
	fineW int
	fineH int
	cells []uint64
}

// NewDensityField allocates a zeroed field at the grid's fine resolution.
func NewDensityField(g *Grid) *DensityField {
	return &DensityField{
		grid:  g,
		fineW: g.FineWidth(),
		fineH: g.FineHeight(),
		cells: make([]uint64, g.FineWidth()*g.FineHeight()),
	}
}

// AddContribution splats magnitude*exp(-(d/r)²/0.1) around a world position.
// radius is in world units; d and r are measured in fine units from the
// position to each fine cell centre. Only cells within ceil(r) of the nearest
// cell centre are touched; cells outside the grid are skipped.
func (f *DensityField) AddContribution(pos Vec2, radius, magnitude float64) {
	if radius <= 0 || magnitude == 0 {
		return
	}

	p := f.grid.WorldToFine(pos)
	r := radius * float64(f.grid.Density()) / f.grid.CellSize()
	reach := int(math.Ceil(r))

	// nearest fine cell centre (centres sit at +0.5)
	cx := int(math.Round(p.X - 0.5))
	cz := int(math.Round(p.Z - 0.5))

	for z := cz - reach; z <= cz+reach; z++ {
		if z < 0 || z >= f.fineH {
			continue
		}
		dz := float64(z) + 0.5 - p.Z
		for x := cx - reach; x <= cx+reach; x++ {
			if x < 0 || x >= f.fineW {
				continue
			}
			// only cells within reach of the centre cell
			ox, oz := x-cx, z-cz
			if ox*ox+oz*oz > reach*reach {
				continue
			}
			dx := float64(x) + 0.5 - p.X
			d := math.Sqrt(dx*dx+dz*dz) / r
			f.add(z*f.fineW+x, magnitude*math.Exp(-(d*d)/densityFalloff))
		}
	}
}

// RemoveContribution undoes an AddContribution made with the same arguments.
func (f *DensityField) RemoveContribution(pos Vec2, radius, magnitude float64) {
	f.AddContribution(pos, radius, -magnitude)
}

func (f *DensityField) add(i int, delta float64) {
	for {
		old := atomic.LoadUint64(&f.cells[i])
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(&f.cells[i], old, next) {
			return
		}
	}
}

// At returns the density of a fine cell, 0 outside the grid.
func (f *DensityField) At(fx, fz int) float64 {
	if fx < 0 || fx >= f.fineW || fz < 0 || fz >= f.fineH {
		return 0
	}
	return math.Float64frombits(atomic.LoadUint64(&f.cells[fz*f.fineW+fx]))
}

// Total returns the sum over all cells.
func (f *DensityField) Total() float64 {
	return floats.Sum(f.Values())
}

// Values copies the field into a row-major slice.
func (f *DensityField) Values() []float64 {
	out := make([]float64, len(f.cells))
	for i := range f.cells {
		out[i] = math.Float64frombits(atomic.LoadUint64(&f.cells[i]))
	}
	return out
}
