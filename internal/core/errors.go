package core

import "fmt"

// DiagnosticError is the fatal-error form of a Diagnostic (spec.md §7):
// InvalidRequest and InternalInconsistency are returned this way by
// Orchestrate, while NoViableCandidates, WeatherGap, and Deadline are
// reported as part of a successful OptimizationResult instead.
type DiagnosticError struct {
	Code    DiagnosticCode
	Message string
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func newDiagnosticError(code DiagnosticCode, message string) *DiagnosticError {
	return &DiagnosticError{Code: code, Message: message}
}

// CodeOf extracts the diagnostic code from err, if it is a *DiagnosticError.
func CodeOf(err error) (DiagnosticCode, bool) {
	de, ok := err.(*DiagnosticError)
	if !ok {
		return "", false
	}
	return de.Code, true
}
