package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"crowdflow/internal/api"
	"crowdflow/internal/config"
	"crowdflow/internal/nav"
	"crowdflow/internal/sim"
	"crowdflow/internal/terrain"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🧭 ================================")
	log.Println("🧭  CROWDFLOW - FLOW FIELD SERVER")
	log.Println("🧭 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	worldCfg := appConfig.World
	navCfg := appConfig.Nav
	crowdCfg := appConfig.Crowd

	grid, err := terrain.Build(worldCfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	start := time.Now()
	world := nav.NewWorld(grid, navCfg.WallRadius, navCfg.WallFactor)
	log.Printf("🧱 World ready in %v: %dx%d cells (%dx%d fine), %d regions, wall max %.2f",
		time.Since(start).Round(time.Millisecond),
		grid.Width(), grid.Height(), grid.FineWidth(), grid.FineHeight(),
		world.Groups.GroupCount(), world.Walls.Max())

	engine := sim.NewEngine(sim.EngineConfig{
		World:    world,
		TickRate: appConfig.Sim.TickRate,
		Crowd:    crowdCfg,
		Nav:      navCfg,
		Seed:     worldCfg.Seed,
	})
	engine.OnTick = api.RecordTick
	engine.OnSearchCap = func(goalX, goalZ int) { api.RecordSearchCap() }
	log.Printf("🎮 Config: %d TPS, speed %.2f, density radius %.2f, max %d agents",
		engine.TickRate(), crowdCfg.UnitSpeed, crowdCfg.DensityRadius, crowdCfg.MaxAgents)

	if eventLogPath := appConfig.Sim.EventLogPath; eventLogPath != "" {
		if err := engine.StartEventLog(eventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", eventLogPath)
		}
	}

	if crowdCfg.UnitCount > 0 {
		if _, err := engine.SpawnAgents(crowdCfg.UnitCount); err != nil {
			log.Printf("⚠️ Spawn incomplete: %v", err)
		}
	}

	obsCfg := appConfig.Observability
	debugServer := api.StartDebugServer(api.DebugServerConfig{
		Enabled:       !obsCfg.DebugDisabled,
		ListenAddr:    obsCfg.DebugAddr,
		BasicAuthUser: os.Getenv("DEBUG_USER"),
		BasicAuthPass: os.Getenv("DEBUG_PASS"),
	})

	serverCfg := appConfig.Server
	if serverCfg.APIToken == "" {
		log.Println("⚠️ API_TOKEN not set - mutating routes are open")
	}
	server := api.NewServer(engine, api.ServerConfig{
		AllowedOrigins: serverCfg.AllowedOrigins,
		RateLimit: api.RateLimitConfig{
			Read:   api.Rate{PerSecond: serverCfg.RateLimit, Burst: serverCfg.RateBurst},
			Sample: api.Rate{PerSecond: serverCfg.SampleLimit, Burst: serverCfg.SampleBurst},
			Solve:  api.Rate{PerSecond: serverCfg.SolveLimit, Burst: serverCfg.SolveBurst},
		},
		APIToken: serverCfg.APIToken,
	})

	engine.Start()

	addr := ":" + strconv.Itoa(serverCfg.Port)
	go func() {
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("📡 Snapshots: ws://localhost%s/ws", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
