package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldplan/allocator/internal/utils/logger"
)

// LogConfig configures the request logging middleware.
type LogConfig struct {
	// SampleRate is the fraction of requests to log (0.0-1.0); a value of
	// 0 or below logs every request.
	SampleRate float64
	// ExcludePaths lists URL paths to exclude from logging (e.g. health checks).
	ExcludePaths []string
	// MaskHeaders lists header names whose values are redacted in logs.
	MaskHeaders []string
	// MaxBodySize caps how many request body bytes are captured for logging.
	MaxBodySize int64
}

type responseWriter struct {
	http.ResponseWriter
	status    int
	size      int64
	headerMap http.Header
}

var writerPool = sync.Pool{
	New: func() interface{} {
		return &responseWriter{headerMap: make(http.Header)}
	},
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
		for k, v := range w.headerMap {
			w.ResponseWriter.Header()[k] = v
		}
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *responseWriter) Write(data []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(data)
	w.size += int64(n)
	return n, err
}

func (w *responseWriter) Header() http.Header {
	return w.headerMap
}

// RequestLogger builds a request-logging middleware with sampling, path
// exclusion, header masking, and panic recovery.
func RequestLogger(log *zap.Logger, config LogConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkipLogging(r.URL.Path, config.ExcludePaths) {
				next.ServeHTTP(w, r)
				return
			}
			if !shouldSampleRequest(config.SampleRate) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			requestID := chi.RequestID(r.Context())
			if requestID == "" {
				requestID = generateRequestID()
			}

			rw := writerPool.Get().(*responseWriter)
			rw.ResponseWriter = w
			rw.status = 0
			rw.size = 0
			rw.headerMap = make(http.Header)
			defer writerPool.Put(rw)

			var reqBody []byte
			if r.Body != nil && r.Header.Get("Content-Type") != "multipart/form-data" {
				maxBody := config.MaxBodySize
				if maxBody <= 0 {
					maxBody = 4096
				}
				reqBody, _ = io.ReadAll(io.LimitReader(r.Body, maxBody))
				r.Body = io.NopCloser(bytes.NewBuffer(reqBody))
			}

			defer func() {
				if err := recover(); err != nil {
					stack := debug.Stack()
					logger.Error(log, "request panic recovered",
						fmt.Errorf("%v", err),
						zap.String("request_id", requestID),
						zap.String("stack_trace", string(stack)),
					)
					http.Error(rw, "internal server error", http.StatusInternalServerError)
				}

				duration := time.Since(start)
				fields := []zap.Field{
					zap.String("request_id", requestID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("status", rw.status),
					zap.Int64("response_size", rw.size),
					zap.Duration("duration", duration),
					zap.String("user_agent", r.UserAgent()),
				}

				headers := maskSensitiveHeaders(r.Header, config.MaskHeaders)
				fields = append(fields, zap.Any("headers", headers))
				if len(reqBody) > 0 {
					fields = append(fields, zap.String("request_body", string(reqBody)))
				}

				switch {
				case rw.status >= 500:
					logger.Error(log, "request completed with server error", nil, fields...)
				case rw.status >= 400:
					logger.Error(log, "request completed with client error", nil, fields...)
				default:
					logger.Info(log, "request completed", fields...)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

func shouldSkipLogging(path string, excludePaths []string) bool {
	for _, excluded := range excludePaths {
		if path == excluded {
			return true
		}
	}
	return false
}

func shouldSampleRequest(rate float64) bool {
	if rate <= 0 {
		return true
	}
	if rate >= 1.0 {
		return true
	}
	return time.Now().UnixNano()%100 < int64(rate*100)
}

func generateRequestID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func maskSensitiveHeaders(headers http.Header, maskList []string) http.Header {
	masked := make(http.Header)
	for k, v := range headers {
		values := make([]string, len(v))
		copy(values, v)
		for _, maskHeader := range maskList {
			if http.CanonicalHeaderKey(k) == http.CanonicalHeaderKey(maskHeader) {
				for i := range values {
					values[i] = "********"
				}
				break
			}
		}
		masked[k] = values
	}
	return masked
}
