package terrain

import (
	"fmt"
	"log"
	"time"

	"crowdflow/internal/config"
	"crowdflow/internal/nav"
)

// ParamsFromConfig maps world settings onto generation parameters.
// A zero seed is replaced with one derived from the clock.
func ParamsFromConfig(cfg config.WorldConfig) Params {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return Params{
		Size:      cfg.GridSize,
		CellSize:  cfg.CellSize,
		Density:   cfg.CellDensity,
		Seed:      seed,
		Scale:     cfg.TerrainScale,
		Border:    cfg.TerrainBorder,
		Falloff:   cfg.TerrainFalloff,
		Threshold: cfg.TerrainThreshold,
	}
}

// Build loads the configured ASCII map, or generates terrain when no map
// path is set.
func Build(cfg config.WorldConfig) (*nav.Grid, error) {
	if cfg.MapPath != "" {
		g, err := LoadMap(cfg.MapPath, cfg.CellSize, cfg.CellDensity)
		if err != nil {
			return nil, fmt.Errorf("build world: %w", err)
		}
		log.Printf("🗺️ Loaded map %s (%dx%d, %d obstacles)", cfg.MapPath, g.Width(), g.Height(), g.ObstacleCount())
		return g, nil
	}

	p := ParamsFromConfig(cfg)
	g := Generate(p)
	log.Printf("🗺️ Generated %dx%d terrain (seed %d, %d obstacles)", p.Size, p.Size, p.Seed, g.ObstacleCount())
	return g, nil
}
