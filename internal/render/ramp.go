package render

import (
	"image/color"
	"math"
)

// rampStops run from low (deep blue) through green to high (yellow-white).
var rampStops = [...]color.RGBA{
	{12, 12, 80, 255},
	{20, 90, 160, 255},
	{40, 170, 110, 255},
	{230, 210, 60, 255},
	{255, 250, 220, 255},
}

// Ramp maps t in [0, 1] to a heatmap colour. Values outside are clamped.
func Ramp(t float64) color.RGBA {
	if math.IsNaN(t) || t <= 0 {
		return rampStops[0]
	}
	if t >= 1 {
		return rampStops[len(rampStops)-1]
	}

	pos := t * float64(len(rampStops)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := rampStops[i], rampStops[i+1]
	return color.RGBA{
		R: mix(a.R, b.R, frac),
		G: mix(a.G, b.G, frac),
		B: mix(a.B, b.B, frac),
		A: 255,
	}
}

func mix(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
