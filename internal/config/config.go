// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for world, navigation and crowd settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// WorldConfig describes the obstacle map loaded at startup.
type WorldConfig struct {
	GridSize    int     // Coarse cells per side
	CellSize    float64 // World units per coarse cell
	CellDensity int     // Fine cells per coarse cell per axis
	Seed        int64   // Terrain seed (0 = derive from clock)
	MapPath     string  // ASCII map file; overrides terrain generation when set

	TerrainScale     float64 // Noise wavelength in cells
	TerrainBorder    int     // Raised rim width in cells
	TerrainFalloff   float64 // Rim height divisor
	TerrainThreshold float64 // Heights above this become obstacles
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		GridSize:    100,
		CellSize:    1,
		CellDensity: 3, // 300×300 fine cells

		TerrainScale:     10,
		TerrainBorder:    4,
		TerrainFalloff:   6,
		TerrainThreshold: 0.5,
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if v := getEnvInt("GRID_SIZE", 0); v > 0 {
		cfg.GridSize = v
	}
	if v := getEnvFloat("CELL_SIZE", 0); v > 0 {
		cfg.CellSize = v
	}
	if v := getEnvInt("CELL_DENSITY", 0); v > 0 {
		cfg.CellDensity = v
	}
	cfg.Seed = getEnvInt64("WORLD_SEED", cfg.Seed)
	cfg.MapPath = getEnvString("WORLD_MAP_PATH", cfg.MapPath)

	if v := getEnvFloat("TERRAIN_SCALE", 0); v > 0 {
		cfg.TerrainScale = v
	}
	if v := getEnvInt("TERRAIN_BORDER", -1); v >= 0 {
		cfg.TerrainBorder = v
	}
	if v := getEnvFloat("TERRAIN_FALLOFF", 0); v > 0 {
		cfg.TerrainFalloff = v
	}
	if v := getEnvFloat("TERRAIN_THRESHOLD", -1); v >= 0 {
		cfg.TerrainThreshold = v
	}

	return cfg
}

// =============================================================================
// NAVIGATION CONFIGURATION
// =============================================================================

// NavConfig holds flow field tuning.
type NavConfig struct {
	WallRadius   float64 // Wall proximity reach in fine units
	WallFactor   float64 // Peak wall proximity cost
	GradientStep float64 // Finite-difference offset in fine units
}

// DefaultNav returns the default navigation configuration.
func DefaultNav() NavConfig {
	return NavConfig{
		WallRadius:   4,
		WallFactor:   2,
		GradientStep: 0.1,
	}
}

// NavFromEnv returns navigation configuration with environment variable overrides.
func NavFromEnv() NavConfig {
	cfg := DefaultNav()

	if v := getEnvFloat("WALL_RADIUS", -1); v >= 0 {
		cfg.WallRadius = v
	}
	if v := getEnvFloat("WALL_FACTOR", -1); v >= 0 {
		cfg.WallFactor = v
	}
	if v := getEnvFloat("GRADIENT_STEP", 0); v > 0 {
		cfg.GradientStep = v
	}

	return cfg
}

// =============================================================================
// CROWD CONFIGURATION
// =============================================================================

// CrowdConfig controls the simulated agents.
type CrowdConfig struct {
	UnitCount        int     // Agents spawned at startup
	UnitSpeed        float64 // World units per second
	DensityRadius    float64 // Crowd cost splat radius in world units
	DensityMagnitude float64 // Crowd cost at the splat centre
	ArriveRadius     float64 // Distance to goal counted as arrival, world units
	MaxAgents        int     // Hard cap on live agents
}

// DefaultCrowd returns the default crowd configuration.
func DefaultCrowd() CrowdConfig {
	return CrowdConfig{
		UnitCount:        100,
		UnitSpeed:        2,
		DensityRadius:    0.6,
		DensityMagnitude: 1,
		ArriveRadius:     0.5,
		MaxAgents:        5000,
	}
}

// CrowdFromEnv returns crowd configuration with environment variable overrides.
func CrowdFromEnv() CrowdConfig {
	cfg := DefaultCrowd()

	if v := getEnvInt("UNIT_COUNT", -1); v >= 0 {
		cfg.UnitCount = v
	}
	if v := getEnvFloat("UNIT_SPEED", 0); v > 0 {
		cfg.UnitSpeed = v
	}
	if v := getEnvFloat("UNIT_DENSITY_RADIUS", -1); v >= 0 {
		cfg.DensityRadius = v
	}
	if v := getEnvFloat("UNIT_DENSITY_MAGNITUDE", -1); v >= 0 {
		cfg.DensityMagnitude = v
	}
	if v := getEnvFloat("ARRIVE_RADIUS", 0); v > 0 {
		cfg.ArriveRadius = v
	}
	if v := getEnvInt("MAX_AGENTS", 0); v > 0 {
		cfg.MaxAgents = v
	}

	return cfg
}

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig controls the fixed-rate simulation loop.
type SimConfig struct {
	TickRate     int    // Ticks per second
	EventLogPath string // JSONL event log; empty disables file output
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate: 30,
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	cfg.EventLogPath = getEnvString("EVENT_LOG_PATH", cfg.EventLogPath)

	return cfg
}

// TickInterval returns the duration of one tick.
func (c SimConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.TickRate)
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
	RateLimit      float64 // Read requests per second per IP
	RateBurst      int
	SampleLimit    float64 // Field point queries per second per IP
	SampleBurst    int
	SolveLimit     float64 // Goal orders, spawns and heatmaps per second per IP
	SolveBurst     int
	APIToken       string // Bearer token for mutating routes; empty disables the check
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		RateLimit:      20,
		RateBurst:      40,
		SampleLimit:    10,
		SampleBurst:    20,
		SolveLimit:     1,
		SolveBurst:     3,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if v := getEnvString("ALLOWED_ORIGINS", ""); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := getEnvFloat("RATE_LIMIT", 0); v > 0 {
		cfg.RateLimit = v
	}
	if v := getEnvInt("RATE_BURST", 0); v > 0 {
		cfg.RateBurst = v
	}
	if v := getEnvFloat("SAMPLE_RATE_LIMIT", 0); v > 0 {
		cfg.SampleLimit = v
	}
	if v := getEnvInt("SAMPLE_RATE_BURST", 0); v > 0 {
		cfg.SampleBurst = v
	}
	if v := getEnvFloat("SOLVE_RATE_LIMIT", 0); v > 0 {
		cfg.SolveLimit = v
	}
	if v := getEnvInt("SOLVE_RATE_BURST", 0); v > 0 {
		cfg.SolveBurst = v
	}
	cfg.APIToken = getEnvString("API_TOKEN", "")

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig controls the pprof/metrics debug server.
type ObservabilityConfig struct {
	DebugAddr     string
	DebugDisabled bool
}

// DefaultObservability returns the default observability configuration.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugAddr: "localhost:6060", // localhost only
	}
}

// ObservabilityFromEnv returns observability configuration with environment variable overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	cfg.DebugAddr = getEnvString("DEBUG_ADDR", cfg.DebugAddr)
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DebugDisabled = true
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World         WorldConfig
	Nav           NavConfig
	Crowd         CrowdConfig
	Sim           SimConfig
	Server        ServerConfig
	Observability ObservabilityConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:         WorldFromEnv(),
		Nav:           NavFromEnv(),
		Crowd:         CrowdFromEnv(),
		Sim:           SimFromEnv(),
		Server:        ServerFromEnv(),
		Observability: ObservabilityFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
