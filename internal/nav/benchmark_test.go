package nav

import (
	"math/rand"
	"testing"
)

// =============================================================================
// BENCHMARK SUITE: FLOW FIELD HOT PATHS
// Run with: go test -bench=. -benchmem ./internal/nav/...
// =============================================================================

func BenchmarkFlowFieldComplete_50(b *testing.B)  { benchmarkComplete(b, 50) }
func BenchmarkFlowFieldComplete_100(b *testing.B) { benchmarkComplete(b, 100) }

func benchmarkComplete(b *testing.B, size int) {
	world := NewWorld(randomGrid(1, size, size, 0.2, 3), 3, 2)
	goal := Vec2{X: float64(size) / 2, Z: float64(size) / 2}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ff := NewFlowField(world, goal)
		ff.Complete()
	}
}

func BenchmarkGetDirection(b *testing.B) {
	world := NewWorld(randomGrid(2, 100, 100, 0.2, 3), 3, 2)
	ff := NewFlowField(world, Vec2{X: 50, Z: 50})
	ff.Complete()

	rng := rand.New(rand.NewSource(3))
	points := make([]Vec2, 1024)
	for i := range points {
		points[i] = Vec2{X: rng.Float64() * 300, Z: rng.Float64() * 300}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ff.GetDirection(points[i%len(points)])
	}
}

func BenchmarkDensityMove(b *testing.B) {
	g := NewGrid(100, 100, 1, 3)
	d := NewDensityField(g)
	from, to := Vec2{X: 50, Z: 50}, Vec2{X: 50.1, Z: 50.1}
	d.AddContribution(from, 1, 1)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		d.RemoveContribution(from, 1, 1)
		d.AddContribution(to, 1, 1)
		from, to = to, from
	}
}

func BenchmarkBuildConnectivity(b *testing.B) {
	g := randomGrid(4, 200, 200, 0.3, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildConnectivity(g)
	}
}
