package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/fieldplan/allocator/internal/apigateway/routes"
)

func TestHealth_ReportsUnavailableWithoutADatabaseConnection(t *testing.T) {
	router := chi.NewRouter()
	routes.RegisterHealthRoutes(router, &routes.HealthHandlers{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// No database connection is established in this test process, so the
	// handler must report the service as unavailable rather than panic.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics_ServesPrometheusFormat(t *testing.T) {
	router := chi.NewRouter()
	routes.RegisterHealthRoutes(router, &routes.HealthHandlers{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
