package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldplan/allocator/internal/utils/cache"
	"github.com/fieldplan/allocator/internal/utils/database"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandlers holds the dependencies the health routes probe.
type HealthHandlers struct {
	ResultCache *cache.ResultClient
}

// RegisterHealthRoutes mounts /health and /metrics on router.
func RegisterHealthRoutes(router chi.Router, h *HealthHandlers) {
	router.Get("/health", h.health)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)
}

func (h *HealthHandlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]string{"database": "ok", "cache": "ok"}
	healthy := true

	if err := database.Ping(); err != nil {
		status["database"] = "unavailable"
		healthy = false
	}

	if h.ResultCache != nil {
		if err := h.ResultCache.Health(ctx); err != nil {
			status["cache"] = "unavailable"
			healthy = false
		}
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
