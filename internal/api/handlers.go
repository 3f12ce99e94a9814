package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"crowdflow/internal/nav"
	"crowdflow/internal/sim"
)

const (
	defaultSpawnCount = 10
	maxSpawnCount     = 500
	maxNearRadius     = 1000
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetWorld(w http.ResponseWriter, r *http.Request) {
	world := h.engine.World()
	g := world.Grid
	writeJSON(w, map[string]interface{}{
		"width":      g.Width(),
		"height":     g.Height(),
		"cellSize":   g.CellSize(),
		"density":    g.Density(),
		"fineWidth":  g.FineWidth(),
		"fineHeight": g.FineHeight(),
		"obstacles":  g.ObstacleCount(),
		"groups":     world.Groups.GroupCount(),
		"wallMax":    world.Walls.Max(),
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Stats())
}

func (h *routerHandlers) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, "n must be a non-negative integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	writeJSON(w, h.engine.RecentEvents(n))
}

func (h *routerHandlers) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Agents())
}

func (h *routerHandlers) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := h.engine.Agent(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, sim.ErrAgentNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, a)
}

func (h *routerHandlers) handleAgentsNear(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	z, err := queryFloat(r, "z")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	radius, err := queryFloat(r, "r")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if radius < 0 || radius > maxNearRadius {
		writeError(w, fmt.Sprintf("r must be within [0, %d]", maxNearRadius), http.StatusBadRequest)
		return
	}

	agents := h.engine.AgentsNear(nav.Vec2{X: x, Z: z}, radius)
	if agents == nil {
		agents = []sim.AgentSnapshot{}
	}
	writeJSON(w, agents)
}

// createAgentsRequest either places one agent at (x, z) or spawns count
// agents at random open cells.
type createAgentsRequest struct {
	Count int      `json:"count"`
	X     *float64 `json:"x"`
	Z     *float64 `json:"z"`
}

func (h *routerHandlers) handleCreateAgents(w http.ResponseWriter, r *http.Request) {
	var req createAgentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.X != nil || req.Z != nil {
		if req.X == nil || req.Z == nil {
			writeError(w, "x and z must be given together", http.StatusBadRequest)
			return
		}
		if !finite(*req.X) || !finite(*req.Z) {
			writeError(w, "x and z must be finite", http.StatusBadRequest)
			return
		}
		a, err := h.engine.AddAgent(nav.Vec2{X: *req.X, Z: *req.Z})
		if err != nil {
			writeError(w, err.Error(), agentErrorStatus(err))
			return
		}
		writeJSONStatus(w, http.StatusCreated, []sim.AgentSnapshot{a})
		return
	}

	if req.Count <= 0 {
		req.Count = defaultSpawnCount
	}
	if req.Count > maxSpawnCount {
		req.Count = maxSpawnCount
	}

	agents, err := h.engine.SpawnAgents(req.Count)
	if err != nil && len(agents) == 0 {
		writeError(w, err.Error(), agentErrorStatus(err))
		return
	}
	if err != nil {
		log.Printf("⚠️ Spawned %d of %d agents: %v", len(agents), req.Count, err)
	}
	writeJSONStatus(w, http.StatusCreated, agents)
}

func (h *routerHandlers) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RemoveAgent(chi.URLParam(r, "id")); err != nil {
		writeError(w, err.Error(), agentErrorStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type goalRequest struct {
	Agents []string `json:"agents"` // empty = all agents
	X      *float64 `json:"x"`
	Z      *float64 `json:"z"`
}

func (h *routerHandlers) handleIssueGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.X == nil || req.Z == nil {
		writeError(w, "x and z are required", http.StatusBadRequest)
		return
	}
	if !finite(*req.X) || !finite(*req.Z) {
		writeError(w, "x and z must be finite", http.StatusBadRequest)
		return
	}

	res, err := h.engine.IssueGoal(req.Agents, nav.Vec2{X: *req.X, Z: *req.Z})
	switch {
	case errors.Is(err, sim.ErrGoalUnreachable):
		writeJSONStatus(w, http.StatusUnprocessableEntity, goalResponse{GoalResult: res, Error: err.Error()})
	case err != nil:
		writeError(w, err.Error(), agentErrorStatus(err))
	default:
		writeJSON(w, goalResponse{GoalResult: res})
	}
}

type goalResponse struct {
	sim.GoalResult
	Error string `json:"error,omitempty"`
}

// agentErrorStatus maps engine errors to HTTP status codes.
func agentErrorStatus(err error) int {
	switch {
	case errors.Is(err, sim.ErrAgentNotFound), errors.Is(err, sim.ErrNoActiveField):
		return http.StatusNotFound
	case errors.Is(err, sim.ErrPositionBlocked):
		return http.StatusBadRequest
	case errors.Is(err, sim.ErrGoalUnreachable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sim.ErrAgentLimit):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions (package-level for reuse)

func queryFloat(r *http.Request, key string) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !finite(f) {
		return 0, fmt.Errorf("%s must be a finite number", key)
	}
	return f, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}
