// =============================================================================
// CROWDFLOW - FIELD VISUALIZER
// =============================================================================
// Builds a world from the usual environment configuration, solves one flow
// field and writes a PNG heatmap of it. Handy for tuning terrain and wall
// settings without running the server.
//
// USAGE:
//
//	go run ./cmd/fieldviz -goal-x 50 -goal-z 50 -mode cost -out cost.png
//	go run ./cmd/fieldviz -map maps/arena.txt -mode wall -agents 200
//
// =============================================================================
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"crowdflow/internal/config"
	"crowdflow/internal/nav"
	"crowdflow/internal/render"
	"crowdflow/internal/terrain"
)

var (
	outPath = flag.String("out", "field.png", "Output PNG path")
	mode    = flag.String("mode", "cost", "Layer to draw: cost, density or wall")
	goalX   = flag.Float64("goal-x", -1, "Goal X in world units (default: map centre)")
	goalZ   = flag.Float64("goal-z", -1, "Goal Z in world units (default: map centre)")
	seed    = flag.Int64("seed", 0, "Terrain seed (overrides WORLD_SEED)")
	mapPath = flag.String("map", "", "ASCII map file (overrides WORLD_MAP_PATH)")
	scale   = flag.Int("scale", render.DefaultScale, "Pixels per fine cell")
	agents  = flag.Int("agents", 0, "Random agents splatted into the density field")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	m, err := render.ParseMode(*mode)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	appConfig := config.Load()
	worldCfg := appConfig.World
	if *seed != 0 {
		worldCfg.Seed = *seed
	}
	if *mapPath != "" {
		worldCfg.MapPath = *mapPath
	}

	grid, err := terrain.Build(worldCfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	world := nav.NewWorld(grid, appConfig.Nav.WallRadius, appConfig.Nav.WallFactor)

	crowdCfg := appConfig.Crowd
	rng := rand.New(rand.NewSource(worldCfg.Seed))
	var positions []nav.Vec2
	for i := 0; i < *agents; i++ {
		x, z, ok := grid.RandomOpenCell(rng, 100)
		if !ok {
			break
		}
		p := grid.CoarseCenterWorld(x, z)
		world.Density.AddContribution(p, crowdCfg.DensityRadius, crowdCfg.DensityMagnitude)
		positions = append(positions, p)
	}

	goal := nav.Vec2{X: *goalX, Z: *goalZ}
	if goal.X < 0 || goal.Z < 0 {
		goal = nav.Vec2{
			X: float64(grid.Width()) * grid.CellSize() / 2,
			Z: float64(grid.Height()) * grid.CellSize() / 2,
		}
	}

	field := nav.NewFlowField(world, goal,
		nav.WithGradientStep(appConfig.Nav.GradientStep),
		nav.WithCapHook(func(x, z int) { log.Printf("⚠️ Search cap hit for goal (%d, %d)", x, z) }),
	)

	start := time.Now()
	field.Complete()
	gx, gz := field.Goal()
	log.Printf("🧭 Goal fine cell (%d, %d): %d cells settled in %v",
		gx, gz, field.VisitedCount(), time.Since(start).Round(time.Microsecond))
	if field.VisitedCount() == 0 {
		log.Println("⚠️ Goal is blocked or outside the map; the heatmap will be empty")
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := render.WritePNG(f, field, m, render.Options{Scale: *scale, Agents: positions}); err != nil {
		f.Close()
		log.Fatalf("❌ Render failed: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("🖼️ Wrote %s heatmap to %s", m, *outPath)
}
