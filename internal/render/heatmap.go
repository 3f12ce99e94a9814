// Package render draws debug heatmaps of flow field layers.
//
// Cell colours are written straight into an RGBA buffer; gg is only used for
// the overlays (goal marker, agents) and PNG encoding.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/floats"

	"crowdflow/internal/nav"
)

// Mode selects which layer of a flow field is drawn.
type Mode int

const (
	ModeCost    Mode = iota // Integrated cost including crowd density
	ModeDensity             // Density share of the cost
	ModeWall                // Wall proximity penalty
)

// String returns the query-string name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeCost:
		return "cost"
	case ModeDensity:
		return "density"
	case ModeWall:
		return "wall"
	default:
		return "unknown"
	}
}

// ParseMode maps a mode name to a Mode. An empty name selects ModeCost.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cost":
		return ModeCost, nil
	case "density":
		return ModeDensity, nil
	case "wall", "walls":
		return ModeWall, nil
	}
	return ModeCost, fmt.Errorf("unknown heatmap mode %q", s)
}

// Options controls heatmap rendering.
type Options struct {
	Scale  int        // Pixels per fine cell
	Agents []nav.Vec2 // World positions drawn as dots
	NoGoal bool       // Skip the goal marker
}

// DefaultScale is used when Options.Scale is not positive.
const DefaultScale = 4

var (
	blockedColor     = color.RGBA{20, 20, 24, 255}
	unreachableColor = color.RGBA{60, 40, 60, 255}
	goalColor        = color.RGBA{255, 255, 255, 255}
	agentColor       = color.RGBA{255, 80, 80, 255}
)

// Sample evaluates one layer at every fine cell centre, row-major by fine z.
// Cells the field cannot reach are NaN. Sampling settles the whole field.
func Sample(f *nav.FlowField, mode Mode) []float64 {
	g := f.World().Grid
	w, h := g.FineWidth(), g.FineHeight()
	out := make([]float64, w*h)

	f.Complete()
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			i := z*w + x
			if !f.IsAccessible(x, z) {
				out[i] = math.NaN()
				continue
			}
			p := nav.Vec2{X: float64(x) + 0.5, Z: float64(z) + 0.5}
			switch mode {
			case ModeDensity:
				out[i] = f.GetCost(p, true) - f.GetCost(p, false)
			case ModeWall:
				out[i] = f.WallCost(p)
			default:
				out[i] = f.GetCost(p, true)
			}
		}
	}
	return out
}

// Normalize rescales the finite values of vals into [0, 1] in place.
// A flat layer maps to 0. NaN entries are left untouched.
func Normalize(vals []float64) {
	finite := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return
	}

	lo, hi := floats.Min(finite), floats.Max(finite)
	span := hi - lo
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if span <= 0 {
			vals[i] = 0
			continue
		}
		vals[i] = (v - lo) / span
	}
}

// Heatmap renders one layer of the field. Fine z grows upward in the image.
func Heatmap(f *nav.FlowField, mode Mode, opts Options) image.Image {
	return draw(f, mode, opts).Image()
}

// WritePNG renders one layer of the field as PNG.
func WritePNG(w io.Writer, f *nav.FlowField, mode Mode, opts Options) error {
	return draw(f, mode, opts).EncodePNG(w)
}

func draw(f *nav.FlowField, mode Mode, opts Options) *gg.Context {
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	g := f.World().Grid
	fw, fh := g.FineWidth(), g.FineHeight()
	vals := Sample(f, mode)
	Normalize(vals)

	img := image.NewRGBA(image.Rect(0, 0, fw*scale, fh*scale))
	for z := 0; z < fh; z++ {
		for x := 0; x < fw; x++ {
			v := vals[z*fw+x]
			var c color.RGBA
			switch {
			case !math.IsNaN(v):
				c = Ramp(v)
			case g.IsObstacle(g.FineToCoarse(x, z)):
				c = blockedColor
			default:
				c = unreachableColor
			}
			fillCell(img, x*scale, (fh-1-z)*scale, scale, c)
		}
	}

	dc := gg.NewContextForRGBA(img)
	toPixel := func(fine nav.Vec2) (float64, float64) {
		return fine.X * float64(scale), (float64(fh) - fine.Z) * float64(scale)
	}

	if !opts.NoGoal {
		gx, gz := f.Goal()
		px, py := toPixel(nav.Vec2{X: float64(gx) + 0.5, Z: float64(gz) + 0.5})
		dc.SetColor(goalColor)
		dc.SetLineWidth(2)
		dc.DrawCircle(px, py, float64(scale)*1.5)
		dc.Stroke()
	}

	dc.SetColor(agentColor)
	radius := math.Max(1, float64(scale)/2)
	for _, a := range opts.Agents {
		px, py := toPixel(g.WorldToFine(a))
		dc.DrawCircle(px, py, radius)
		dc.Fill()
	}
	return dc
}

func fillCell(img *image.RGBA, x0, y0, size int, c color.RGBA) {
	for y := y0; y < y0+size; y++ {
		row := img.Pix[y*img.Stride:]
		for x := x0; x < x0+size; x++ {
			i := x * 4
			row[i] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = c.A
		}
	}
}
