// Package constants provides standardized error codes shared across the
// planning service's layers.
package constants

// Standard error codes for common failure scenarios.
const (
	ErrInvalidInput      = "INVALID_INPUT"
	ErrInternalServer    = "INTERNAL_SERVER_ERROR"
	ErrUnauthorized      = "UNAUTHORIZED"
	ErrNotFound          = "NOT_FOUND"
	ErrDatabaseOperation = "DATABASE_ERROR"
	ErrValidation        = "VALIDATION_ERROR"
	ErrRateLimited       = "RATE_LIMITED"
)

// Domain-specific error codes for the allocation engine (spec.md §7).
const (
	ErrInvalidRequest         = "INVALID_REQUEST"
	ErrNoViableCandidates     = "NO_VIABLE_CANDIDATES"
	ErrWeatherGap             = "WEATHER_GAP"
	ErrDeadlineExceeded       = "DEADLINE_EXCEEDED"
	ErrInternalInconsistency  = "INTERNAL_INCONSISTENCY"
	ErrCropProfileUnavailable = "CROP_PROFILE_UNAVAILABLE"
)

var validErrorCodes = map[string]bool{
	ErrInvalidInput:           true,
	ErrInternalServer:         true,
	ErrUnauthorized:           true,
	ErrNotFound:               true,
	ErrDatabaseOperation:      true,
	ErrValidation:             true,
	ErrRateLimited:            true,
	ErrInvalidRequest:         true,
	ErrNoViableCandidates:     true,
	ErrWeatherGap:             true,
	ErrDeadlineExceeded:       true,
	ErrInternalInconsistency:  true,
	ErrCropProfileUnavailable: true,
}

// IsKnownCode reports whether code is one of the codes declared above.
func IsKnownCode(code string) bool {
	return validErrorCodes[code]
}
