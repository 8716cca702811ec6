// Package errors provides enhanced error handling with error codes, metadata,
// and stack traces for the planning service's ambient layers.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/fieldplan/allocator/pkg/constants"
)

type customError struct {
	originalError error
	code          string
	metadata      map[string]interface{}
	stackTrace    []string
}

func (e *customError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %v", e.code, e.originalError))
	if len(e.metadata) > 0 {
		b.WriteString(fmt.Sprintf("\nMetadata: %+v", e.metadata))
	}
	if len(e.stackTrace) > 0 {
		b.WriteString("\nStack Trace:\n\t")
		b.WriteString(strings.Join(e.stackTrace, "\n\t"))
	}
	return b.String()
}

func (e *customError) Unwrap() error { return e.originalError }

func generateStackTrace(skip int) []string {
	var trace []string
	for i := skip; i < skip+5; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		trace = append(trace, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
	}
	return trace
}

// NewError creates a coded error with a fresh stack trace and optional
// metadata.
func NewError(code string, message string, metadata map[string]interface{}) error {
	if code == "" || message == "" {
		return &customError{originalError: errors.New("error code and message are required"), code: constants.ErrInternalServer}
	}
	return &customError{
		originalError: errors.New(message),
		code:          code,
		metadata:      metadata,
		stackTrace:    generateStackTrace(2),
	}
}

// WrapError wraps err with additional context, preserving its code and
// stack trace when it is already a coded error.
func WrapError(err error, message string, additionalMetadata map[string]interface{}) error {
	if err == nil {
		return nil
	}

	var custom *customError
	code := constants.ErrInternalServer
	existingMetadata := make(map[string]interface{})
	var existingStack []string

	if errors.As(err, &custom) {
		code = custom.code
		existingMetadata = custom.metadata
		existingStack = custom.stackTrace
	}

	merged := make(map[string]interface{}, len(existingMetadata)+len(additionalMetadata))
	for k, v := range existingMetadata {
		merged[k] = v
	}
	for k, v := range additionalMetadata {
		merged[k] = v
	}

	newStack := generateStackTrace(2)
	if len(existingStack) > 0 {
		newStack = append(newStack, existingStack...)
	}

	return &customError{
		originalError: fmt.Errorf("%s: %w", message, err),
		code:          code,
		metadata:      merged,
		stackTrace:    newStack,
	}
}

// GetCode extracts the error code carried by err, defaulting to
// ErrInternalServer when err isn't a coded error.
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	var custom *customError
	if errors.As(err, &custom) {
		return custom.code
	}
	errStr := err.Error()
	if strings.HasPrefix(errStr, "[") {
		if idx := strings.Index(errStr, "]"); idx > 0 {
			return errStr[1:idx]
		}
	}
	return constants.ErrInternalServer
}

// Is reports whether err carries the given error code.
func Is(err error, code string) bool {
	if err == nil || code == "" {
		return false
	}
	return GetCode(err) == code
}

// IsSystemError reports whether err represents an internal/system failure
// (as opposed to a caller/validation error) for logging-severity routing.
func IsSystemError(err error) bool {
	switch GetCode(err) {
	case constants.ErrInternalServer, constants.ErrDatabaseOperation, constants.ErrInternalInconsistency:
		return true
	default:
		return false
	}
}
