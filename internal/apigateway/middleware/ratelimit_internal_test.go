package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIP(t *testing.T) {
	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
		req.RemoteAddr = "192.0.2.1:5555"
		assert.Equal(t, "203.0.113.5", extractIP(req))
	})

	t.Run("falls back to RemoteAddr without a port", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		assert.Equal(t, "192.0.2.1", extractIP(req))
	})

	t.Run("falls back to raw RemoteAddr when it has no port", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.0.2.1"
		assert.Equal(t, "192.0.2.1", extractIP(req))
	})
}
