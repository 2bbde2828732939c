// Package apperror defines the error kinds a compilation can fail with.
//
// Every failure is an *AppError wrapping one of the sentinel errors below.
// Callers classify with errors.Is (which kind?) and read the client-facing
// text with errors.As (what do we tell the user?). The transport layer is the
// only place that turns these into a response body.
package apperror

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation = errors.New("validation error")

	// ErrArtifact means the transient source file could not be written or removed.
	ErrArtifact = errors.New("artifact error")

	// ErrSpawn means the compiler process could not be started at all.
	ErrSpawn = errors.New("spawn error")

	// ErrCompilerDiagnostic means the compiler ran and rejected the source.
	// This is the expected failure for bad user input, not a system fault.
	ErrCompilerDiagnostic = errors.New("compiler diagnostic")

	ErrOutputOverflow = errors.New("output overflow")
	ErrProcessTimeout = errors.New("process timeout")

	// ErrBusy means every compiler slot stayed occupied for the whole queue wait.
	ErrBusy = errors.New("busy")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message, safe to show the client
	Field   string // Optional: request field causing the error
	cause   error  // underlying error, kept for logs only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Cause returns the lower-level error that triggered this one, if any.
func (e *AppError) Cause() error {
	return e.cause
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// ArtifactFailed reports a failed artifact operation such as "write" or "remove".
// The underlying error is kept for logging; the client only sees a generic message
// because it may contain host file paths.
func ArtifactFailed(op string, err error) *AppError {
	return &AppError{
		Err:     ErrArtifact,
		Message: "could not prepare source file",
		Field:   op,
		cause:   err,
	}
}

func SpawnFailed(message string) *AppError {
	if message == "" {
		message = "compiler could not be started"
	}
	return &AppError{
		Err:     ErrSpawn,
		Message: message,
	}
}

// Diagnostic wraps the compiler's own error stream. The text is passed through
// verbatim; when the compiler failed silently (blank stderr) we fall back to
// its exit status.
func Diagnostic(stderr string, exitCode int) *AppError {
	msg := stderr
	if strings.TrimSpace(msg) == "" {
		msg = fmt.Sprintf("compiler exited with status %d", exitCode)
	}
	return &AppError{
		Err:     ErrCompilerDiagnostic,
		Message: msg,
	}
}

func OutputOverflow(limit int) *AppError {
	return &AppError{
		Err:     ErrOutputOverflow,
		Message: fmt.Sprintf("compiler output exceeded %d bytes and was truncated", limit),
	}
}

func Timeout(d time.Duration) *AppError {
	return &AppError{
		Err:     ErrProcessTimeout,
		Message: fmt.Sprintf("compilation timed out after %s", d),
	}
}

func Busy() *AppError {
	return &AppError{
		Err:     ErrBusy,
		Message: "too many compilations in progress, try again later",
	}
}
