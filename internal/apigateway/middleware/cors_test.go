package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldplan/allocator/internal/apigateway/middleware"
	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

func TestCORS_DisabledFallsBackToRestrictiveDefaults(t *testing.T) {
	cfg := &cfgtypes.APIConfig{EnableCORS: false}
	handler := middleware.CORS(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_EnabledAllowsConfiguredOrigin(t *testing.T) {
	cfg := &cfgtypes.APIConfig{
		EnableCORS:     true,
		AllowedOrigins: []string{"app.example.com"},
		AllowedMethods: []string{"get", "post"},
	}
	handler := middleware.CORS(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_EnabledRejectsUnlistedOrigin(t *testing.T) {
	cfg := &cfgtypes.APIConfig{
		EnableCORS:     true,
		AllowedOrigins: []string{"app.example.com"},
	}
	handler := middleware.CORS(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req.Header.Set("Origin", "https://malicious.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
