package api

import (
	"bytes"
	"log"
	"net/http"
	"strconv"

	"crowdflow/internal/nav"
	"crowdflow/internal/render"
)

const maxHeatmapScale = 16

// Field queries run against the engine's active field. Positions are in fine
// grid units, matching the field's own coordinate space.

func (h *routerHandlers) activeField(w http.ResponseWriter) (*nav.FlowField, bool) {
	f, err := h.engine.ActiveField()
	if err != nil {
		writeError(w, err.Error(), agentErrorStatus(err))
		return nil, false
	}
	return f, true
}

func fineQuery(w http.ResponseWriter, r *http.Request) (nav.Vec2, bool) {
	x, err := queryFloat(r, "x")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return nav.Vec2{}, false
	}
	z, err := queryFloat(r, "z")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return nav.Vec2{}, false
	}
	return nav.Vec2{X: x, Z: z}, true
}

func (h *routerHandlers) handleFieldCost(w http.ResponseWriter, r *http.Request) {
	f, ok := h.activeField(w)
	if !ok {
		return
	}
	pos, ok := fineQuery(w, r)
	if !ok {
		return
	}

	withDensity := true
	if v := r.URL.Query().Get("density"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, "density must be a boolean", http.StatusBadRequest)
			return
		}
		withDensity = b
	}

	cost := f.GetCost(pos, withDensity)
	writeJSON(w, map[string]interface{}{
		"x":         pos.X,
		"z":         pos.Z,
		"cost":      cost,
		"density":   withDensity,
		"reachable": cost < nav.MaxCost,
	})
}

func (h *routerHandlers) handleFieldDirection(w http.ResponseWriter, r *http.Request) {
	f, ok := h.activeField(w)
	if !ok {
		return
	}
	pos, ok := fineQuery(w, r)
	if !ok {
		return
	}

	dir := f.GetDirection(pos)
	writeJSON(w, map[string]interface{}{
		"x":    pos.X,
		"z":    pos.Z,
		"dirX": dir.X,
		"dirZ": dir.Z,
	})
}

func (h *routerHandlers) handleFieldAccessible(w http.ResponseWriter, r *http.Request) {
	f, ok := h.activeField(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	x, errX := strconv.Atoi(q.Get("x"))
	z, errZ := strconv.Atoi(q.Get("z"))
	if errX != nil || errZ != nil {
		writeError(w, "x and z must be integer fine cells", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]interface{}{
		"x":          x,
		"z":          z,
		"accessible": f.IsAccessible(x, z),
	})
}

func (h *routerHandlers) handleFieldHeatmap(w http.ResponseWriter, r *http.Request) {
	f, ok := h.activeField(w)
	if !ok {
		return
	}
	q := r.URL.Query()

	mode, err := render.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	scale := render.DefaultScale
	if v := q.Get("scale"); v != "" {
		scale, err = strconv.Atoi(v)
		if err != nil || scale < 1 || scale > maxHeatmapScale {
			writeError(w, "scale must be an integer in [1, 16]", http.StatusBadRequest)
			return
		}
	}

	opts := render.Options{Scale: scale}
	if q.Get("agents") != "false" {
		for _, a := range h.engine.GetSnapshot().Agents {
			opts.Agents = append(opts.Agents, nav.Vec2{X: a.X, Z: a.Z})
		}
	}

	var buf bytes.Buffer
	if err := render.WritePNG(&buf, f, mode, opts); err != nil {
		log.Printf("❌ Heatmap render failed: %v", err)
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}
