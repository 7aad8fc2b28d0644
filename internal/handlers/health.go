package handlers

import (
	"context"
	"net/http"
	"time"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type check struct {
	name     string
	critical bool
	probe    Check
}

// AddCheck registers a dependency probe for /api/health. Critical probes
// also gate /readyz.
func (h *APIHandlers) AddCheck(name string, critical bool, probe Check) {
	h.checks = append(h.checks, check{name: name, critical: critical, probe: probe})
}

// Health reports every registered dependency.
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]any, len(h.checks)+1)

	for _, c := range h.checks {
		if err := c.probe(ctx); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks[c.name] = map[string]any{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			continue
		}
		checks[c.name] = map[string]any{"status": "healthy"}
	}

	rosterStatus := "loaded"
	if !h.session.State().RosterLoaded {
		rosterStatus = "not_loaded"
	}
	checks["roster"] = map[string]any{"status": rosterStatus}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Liveness handles Kubernetes liveness probes. It never checks dependencies.
func (h *APIHandlers) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness handles Kubernetes readiness probes
func (h *APIHandlers) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	for _, c := range h.checks {
		if !c.critical {
			continue
		}
		if err := c.probe(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    "not_ready",
				"reason":    c.name + "_unavailable",
				"timestamp": time.Now().Unix(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
