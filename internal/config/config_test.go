package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := AppConfig{
		World:         DefaultWorld(),
		Nav:           DefaultNav(),
		Crowd:         DefaultCrowd(),
		Sim:           DefaultSim(),
		Server:        DefaultServer(),
		Observability: DefaultObservability(),
	}

	assert.Equal(t, 100, cfg.World.GridSize)
	assert.Equal(t, 3, cfg.World.CellDensity)
	assert.Equal(t, 0.5, cfg.World.TerrainThreshold)
	assert.Equal(t, 0.1, cfg.Nav.GradientStep)
	assert.Equal(t, 100, cfg.Crowd.UnitCount)
	assert.Equal(t, 30, cfg.Sim.TickRate)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Less(t, cfg.Server.SolveLimit, cfg.Server.SampleLimit)
	assert.Less(t, cfg.Server.SampleLimit, cfg.Server.RateLimit)
	assert.Equal(t, "localhost:6060", cfg.Observability.DebugAddr)
	assert.False(t, cfg.Observability.DebugDisabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GRID_SIZE", "64")
	t.Setenv("CELL_SIZE", "0.5")
	t.Setenv("CELL_DENSITY", "4")
	t.Setenv("WORLD_SEED", "12345678901")
	t.Setenv("WORLD_MAP_PATH", "maps/arena.txt")
	t.Setenv("TERRAIN_BORDER", "0")
	t.Setenv("WALL_FACTOR", "0")
	t.Setenv("UNIT_COUNT", "0")
	t.Setenv("UNIT_SPEED", "3.5")
	t.Setenv("TICK_RATE", "60")
	t.Setenv("EVENT_LOG_PATH", "/tmp/events.jsonl")
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("API_TOKEN", "s3cret")
	t.Setenv("SOLVE_RATE_LIMIT", "0.5")
	t.Setenv("SOLVE_RATE_BURST", "2")
	t.Setenv("DEBUG_ADDR", "127.0.0.1:7070")
	t.Setenv("DISABLE_DEBUG_SERVER", "true")

	cfg := Load()

	assert.Equal(t, 64, cfg.World.GridSize)
	assert.Equal(t, 0.5, cfg.World.CellSize)
	assert.Equal(t, 4, cfg.World.CellDensity)
	assert.Equal(t, int64(12345678901), cfg.World.Seed)
	assert.Equal(t, "maps/arena.txt", cfg.World.MapPath)
	assert.Equal(t, 0, cfg.World.TerrainBorder)
	assert.Equal(t, 0.0, cfg.Nav.WallFactor)
	assert.Equal(t, 0, cfg.Crowd.UnitCount)
	assert.Equal(t, 3.5, cfg.Crowd.UnitSpeed)
	assert.Equal(t, 60, cfg.Sim.TickRate)
	assert.Equal(t, "/tmp/events.jsonl", cfg.Sim.EventLogPath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Server.APIToken)
	assert.Equal(t, 0.5, cfg.Server.SolveLimit)
	assert.Equal(t, 2, cfg.Server.SolveBurst)
	assert.Equal(t, DefaultServer().SampleLimit, cfg.Server.SampleLimit)
	assert.Equal(t, "127.0.0.1:7070", cfg.Observability.DebugAddr)
	assert.True(t, cfg.Observability.DebugDisabled)
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("GRID_SIZE", "lots")
	t.Setenv("CELL_DENSITY", "-2")
	t.Setenv("GRADIENT_STEP", "0")

	cfg := Load()
	assert.Equal(t, DefaultWorld().GridSize, cfg.World.GridSize)
	assert.Equal(t, DefaultWorld().CellDensity, cfg.World.CellDensity)
	assert.Equal(t, DefaultNav().GradientStep, cfg.Nav.GradientStep)
}

func TestTickInterval(t *testing.T) {
	assert.Equal(t, time.Second/60, SimConfig{TickRate: 60}.TickInterval())
	assert.Equal(t, time.Second/30, SimConfig{}.TickInterval())
}
