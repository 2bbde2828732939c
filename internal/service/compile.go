// Package service contains the business logic layer of the application.
//
// THE COMPILE PIPELINE:
//
//	source ─▶ ArtifactStore.Acquire ─▶ Invoker.Run ─▶ segment.Phases(stderr)
//	                 │                                        │
//	                 └────────── Artifact.Release ◀───────────┘ (always)
//
// CompileService knows nothing about HTTP. It returns either a PhaseOutput or
// an *apperror.AppError describing why there is none; the handler decides how
// that looks on the wire.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sakif/gran-playground/internal/apperror"
	"github.com/sakif/gran-playground/internal/artifact"
	"github.com/sakif/gran-playground/internal/executor"
	"github.com/sakif/gran-playground/internal/model"
	"github.com/sakif/gran-playground/internal/segment"
)

// ErrPanic marks a compilation that panicked. It is not an *apperror.AppError:
// clients only see the generic internal error message.
var ErrPanic = errors.New("compilation panicked")

// DefaultMaxSourceBytes bounds submitted source (~100KB of code).
const DefaultMaxSourceBytes = 100000

// ArtifactStore hands out one source file per compilation.
// FileStore wraps *artifact.Store to satisfy it; tests substitute fakes to inject faults.
type ArtifactStore interface {
	Acquire(content string) (Artifact, error)
}

// Artifact is a file the compiler can read, released exactly once by the caller.
type Artifact interface {
	Location() string
	Release() error
}

// CompileConfig is the read-only, process-wide part of every compilation.
type CompileConfig struct {
	CompilerPath   string
	WorkDir        string
	MaxSourceBytes int
	// MaxOutputBytes and Timeout are enforced by the invoker; here they only
	// word the error messages.
	MaxOutputBytes int
	Timeout        time.Duration
	Boundaries     []segment.Boundary
}

// CompileService runs one compilation per call. It holds no per-request state
// and is safe for concurrent use.
type CompileService struct {
	store   ArtifactStore
	invoker executor.Invoker
	config  CompileConfig
	logger  *slog.Logger
}

// NewCompileService creates a CompileService. Zero-valued config fields fall
// back to defaults (gran marker protocol, DefaultMaxSourceBytes).
func NewCompileService(store ArtifactStore, invoker executor.Invoker, cfg CompileConfig, logger *slog.Logger) *CompileService {
	if cfg.Boundaries == nil {
		cfg.Boundaries = segment.GranProtocol
	}
	if cfg.MaxSourceBytes == 0 {
		cfg.MaxSourceBytes = DefaultMaxSourceBytes
	}
	return &CompileService{
		store:   store,
		invoker: invoker,
		config:  cfg,
		logger:  logger,
	}
}

// Compile runs the compiler over source and splits its output into phases.
//
// Empty source is accepted and compiled like any other input. The artifact is
// released on every path out of this method. A panic below this point is
// logged and returned as an unclassified error, so callers always get a result.
func (s *CompileService) Compile(ctx context.Context, source string) (out *model.PhaseOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("compilation panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			out, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if s.config.MaxSourceBytes > 0 && len(source) > s.config.MaxSourceBytes {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d bytes or less", s.config.MaxSourceBytes))
	}

	// === Received → ArtifactAcquired ===
	art, err := s.store.Acquire(source)
	if err != nil {
		s.logFault("failed to write artifact", err)
		return nil, err
	}
	defer func() {
		if relErr := art.Release(); relErr != nil {
			// Best effort: the response is already decided.
			s.logger.Warn("failed to release artifact",
				slog.String("path", art.Location()),
				slog.String("error", relErr.Error()),
			)
		}
	}()

	// === ArtifactAcquired → ProcessRan ===
	res, err := s.invoker.Run(ctx, executor.Invocation{
		Executable: s.config.CompilerPath,
		Args:       []string{art.Location()},
		Dir:        s.config.WorkDir,
	})
	if err != nil {
		return nil, s.invokerError(err)
	}

	if failure := s.classify(res); failure != nil {
		return nil, failure
	}

	// === ProcessRan → Segmented ===
	phases := segment.Phases(res.Stderr, s.config.Boundaries)

	s.logger.Info("compilation succeeded",
		slog.Int("sourceBytes", len(source)),
		slog.Duration("duration", res.Duration),
	)

	return &model.PhaseOutput{
		Lexer:  phases[segment.PhaseLexer],
		Parser: phases[segment.PhaseParser],
		IR:     phases[segment.PhaseIR],
		Final:  strings.TrimSpace(res.Stdout),
	}, nil
}

// classify turns a finished run into an error, or nil when the run succeeded.
// Order matters: a process that never started has no exit status worth reading,
// and a killed or truncated run must not be reported as a compiler verdict.
func (s *CompileService) classify(res *executor.Result) *apperror.AppError {
	switch {
	case !res.Spawned():
		s.logger.Error("compiler could not be started",
			slog.String("compiler", s.config.CompilerPath),
			slog.String("error", res.SpawnError),
		)
		return apperror.SpawnFailed(res.SpawnError)

	case res.TimedOut:
		s.logger.Warn("compilation timed out", slog.Duration("duration", res.Duration))
		limit := s.config.Timeout
		if limit <= 0 {
			limit = res.Duration.Round(time.Millisecond)
		}
		return apperror.Timeout(limit)

	case res.Truncated:
		s.logger.Warn("compiler output truncated", slog.Int("limit", s.config.MaxOutputBytes))
		return apperror.OutputOverflow(s.config.MaxOutputBytes)

	case res.ExitCode != 0:
		// User error in the submitted source: expected, not a system fault.
		s.logger.Info("compiler rejected source", slog.Int("exitCode", res.ExitCode))
		return apperror.Diagnostic(res.Stderr, res.ExitCode)
	}
	return nil
}

// invokerError maps a failure of the invoker itself.
func (s *CompileService) invokerError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, apperror.ErrBusy):
		s.logger.Warn("compiler slots exhausted")
		return err
	}
	s.logFault("compiler invocation failed", err)
	return fmt.Errorf("running compiler: %w", apperror.SpawnFailed("compiler unavailable"))
}

func (s *CompileService) logFault(msg string, err error) {
	attrs := []any{slog.String("error", err.Error())}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Cause() != nil {
		attrs = append(attrs, slog.String("cause", appErr.Cause().Error()))
	}
	s.logger.Error(msg, attrs...)
}

// FileStore adapts *artifact.Store to the ArtifactStore interface.
type FileStore struct {
	*artifact.Store
}

func (f FileStore) Acquire(content string) (Artifact, error) {
	a, err := f.Store.Acquire(content)
	if err != nil {
		return nil, err
	}
	return a, nil
}
