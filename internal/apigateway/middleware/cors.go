package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

const (
	defaultMaxAge  = 300
	xFrameOptions  = "X-Frame-Options"
	xFrameValue    = "DENY"
	xContentType   = "X-Content-Type-Options"
	xContentValue  = "nosniff"
	xXSSProtection = "X-XSS-Protection"
	xXSSValue      = "1; mode=block"
)

// CORS builds a CORS middleware from the API config, falling back to a
// restrictive default when CORS is disabled, and adds standard security
// response headers regardless.
func CORS(cfg *cfgtypes.APIConfig, log *zap.Logger) func(http.Handler) http.Handler {
	if !cfg.EnableCORS {
		return withSecurityHeaders(cors.Handler(cors.Options{
			AllowedOrigins: []string{},
			AllowOriginFunc: func(r *http.Request, origin string) bool {
				return false
			},
			AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         defaultMaxAge,
		}))
	}

	allowedOrigins := sanitizeOrigins(cfg.AllowedOrigins)
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	allowedMethods := sanitizeMethods(cfg.AllowedMethods)
	if len(allowedMethods) == 0 {
		allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	}

	allowedHeaders := []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}
	allowedHeaders = append(allowedHeaders, cfg.AllowedHeaders...)

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           defaultMaxAge,
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			ok := validateOrigin(origin, allowedOrigins)
			if !ok && log != nil {
				log.Debug("cors origin rejected", zap.String("origin", origin))
			}
			return ok
		},
	})

	return withSecurityHeaders(handler)
}

func withSecurityHeaders(corsHandler func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := corsHandler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(xFrameOptions, xFrameValue)
			w.Header().Set(xContentType, xContentValue)
			w.Header().Set(xXSSProtection, xXSSValue)
			wrapped.ServeHTTP(w, r)
		})
	}
}

func validateOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" {
			return true
		}
		if strings.Contains(a, "*") {
			pattern := strings.ReplaceAll(regexp.QuoteMeta(a), "\\*", ".*")
			if matched, err := regexp.MatchString("^"+pattern+"$", origin); err == nil && matched {
				return true
			}
		} else if origin == a {
			return true
		}
	}
	return false
}

func sanitizeOrigins(origins []string) []string {
	sanitized := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" || strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://") {
			sanitized = append(sanitized, origin)
			continue
		}
		sanitized = append(sanitized, "https://"+origin)
	}
	return sanitized
}

func sanitizeMethods(methods []string) []string {
	valid := map[string]bool{
		http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
		http.MethodDelete: true, http.MethodPatch: true, http.MethodOptions: true, http.MethodHead: true,
	}
	sanitized := make([]string, 0, len(methods))
	for _, m := range methods {
		upper := strings.ToUpper(m)
		if valid[upper] {
			sanitized = append(sanitized, upper)
		}
	}
	return sanitized
}
