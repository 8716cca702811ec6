package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fieldplan/allocator/internal/apigateway/middleware"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestRequestLogger_SkipsExcludedPaths(t *testing.T) {
	log, logs := observedLogger()
	called := false
	handler := middleware.RequestLogger(log, middleware.LogConfig{
		SampleRate:   1.0,
		ExcludePaths: []string{"/health"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, 0, logs.Len())
}

func TestRequestLogger_LogsCompletedRequest(t *testing.T) {
	log, logs := observedLogger()
	handler := middleware.RequestLogger(log, middleware.LogConfig{
		SampleRate: 1.0,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request completed with client error", entry.Message)
	assert.Equal(t, int64(http.StatusTeapot), entry.ContextMap()["status"])
}

func TestRequestLogger_MasksSensitiveHeaders(t *testing.T) {
	log, logs := observedLogger()
	handler := middleware.RequestLogger(log, middleware.LogConfig{
		SampleRate:  1.0,
		MaskHeaders: []string{"Authorization"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, 1, logs.Len())
	var headers http.Header
	for _, f := range logs.All()[0].Context {
		if f.Key == "headers" {
			headers, _ = f.Interface.(http.Header)
		}
	}
	require.NotNil(t, headers)
	require.Contains(t, headers, "Authorization")
	assert.Equal(t, []string{"********"}, headers["Authorization"])
}

func TestRequestLogger_RecoversFromPanic(t *testing.T) {
	log, logs := observedLogger()
	handler := middleware.RequestLogger(log, middleware.LogConfig{
		SampleRate: 1.0,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, req)
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var sawPanicLog bool
	for _, entry := range logs.All() {
		if entry.Message == "request panic recovered" {
			sawPanicLog = true
		}
	}
	assert.True(t, sawPanicLog)
}
