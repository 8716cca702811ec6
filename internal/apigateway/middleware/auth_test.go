package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldplan/allocator/internal/apigateway/middleware"
	"github.com/fieldplan/allocator/internal/utils/auth"
	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

func testServiceConfig() *cfgtypes.ServiceConfig {
	return &cfgtypes.ServiceConfig{Environment: "development"}
}

func TestAuth_RejectsMissingHeader(t *testing.T) {
	cfg := testServiceConfig()
	handler := middleware.Auth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RejectsMalformedHeader(t *testing.T) {
	cfg := testServiceConfig()
	handler := middleware.Auth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req.Header.Set("Authorization", "Basic somevalue")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_AcceptsValidTokenAndSetsClaims(t *testing.T) {
	cfg := testServiceConfig()
	token, err := auth.GenerateToken("client-1", "admin", cfg)
	require.NoError(t, err)

	var gotClaims *auth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		require.True(t, ok)
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	middleware.Auth(cfg)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "client-1", gotClaims.ClientID)
}

func TestAuth_RejectsRevokedToken(t *testing.T) {
	cfg := testServiceConfig()
	token, err := auth.GenerateToken("client-2", "admin", cfg)
	require.NoError(t, err)
	auth.RevokeToken(token)

	handler := middleware.Auth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
