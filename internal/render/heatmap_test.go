package render

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdflow/internal/nav"
)

// 6×4 world with a wall column at x=3 leaving a gap at z=3.
func testField(t *testing.T) *nav.FlowField {
	t.Helper()
	g := nav.NewGrid(6, 4, 1, 2)
	for z := 0; z < 3; z++ {
		g.SetObstacle(3, z, true)
	}
	w := nav.NewWorld(g, 2, 1)
	return nav.NewFlowField(w, nav.Vec2{X: 0.5, Z: 0.5})
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeCost, false},
		{"cost", ModeCost, false},
		{"Density", ModeDensity, false},
		{" wall ", ModeWall, false},
		{"walls", ModeWall, false},
		{"heat", ModeCost, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "density", ModeDensity.String())
}

func TestSampleCost(t *testing.T) {
	f := testField(t)
	vals := Sample(f, ModeCost)
	require.Len(t, vals, 12*8)

	// world (0.5, 0.5) lands in fine cell (1, 1) at density 2
	gx, gz := f.Goal()
	require.Equal(t, [2]int{1, 1}, [2]int{gx, gz})
	assert.Equal(t, 0.0, vals[1*12+1])
	assert.InDelta(t, math.Sqrt2, vals[0], 1e-9)

	// wall column is NaN, open cells are finite
	assert.True(t, math.IsNaN(vals[0*12+6]))
	assert.True(t, math.IsNaN(vals[5*12+7]))
	assert.False(t, math.IsNaN(vals[7*12+6]))
	assert.False(t, math.IsNaN(vals[0*12+11]))
	assert.Greater(t, vals[0*12+11], vals[0*12+2])
}

func TestSampleDensityLayer(t *testing.T) {
	f := testField(t)
	for _, v := range Sample(f, ModeDensity) {
		if !math.IsNaN(v) {
			assert.InDelta(t, 0, v, 1e-9)
		}
	}

	// world (1, 1) is fine point (2, 2); its splat centres on cell (2, 2)
	f.World().Density.AddContribution(nav.Vec2{X: 1, Z: 1}, 0.5, 2)
	vals := Sample(f, ModeDensity)
	assert.Greater(t, vals[2*12+2], 0.0)
}

func TestNormalize(t *testing.T) {
	vals := []float64{2, math.NaN(), 4, 6}
	Normalize(vals)
	assert.Equal(t, 0.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.Equal(t, 0.5, vals[2])
	assert.Equal(t, 1.0, vals[3])

	flat := []float64{3, 3}
	Normalize(flat)
	assert.Equal(t, []float64{0, 0}, flat)

	Normalize(nil)
}

func TestRamp(t *testing.T) {
	assert.Equal(t, rampStops[0], Ramp(-1))
	assert.Equal(t, rampStops[0], Ramp(math.NaN()))
	assert.Equal(t, rampStops[len(rampStops)-1], Ramp(2))
	assert.Equal(t, rampStops[2], Ramp(0.5))
}

func TestWritePNG(t *testing.T) {
	f := testField(t)
	var buf bytes.Buffer
	err := WritePNG(&buf, f, ModeCost, Options{
		Scale:  3,
		Agents: []nav.Vec2{{X: 1.5, Z: 2.5}},
	})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 36, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())

	// image row 7 is fine z=0; fine x=6 lies in the wall column
	r, g, b, _ := Heatmap(f, ModeWall, Options{Scale: 1, NoGoal: true}).At(6, 7).RGBA()
	br, bg, bb, _ := blockedColor.RGBA()
	assert.Equal(t, []uint32{br, bg, bb}, []uint32{r, g, b})
}
