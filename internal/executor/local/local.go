// Package local runs the compiler as a child process of the server.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/sakif/gran-playground/internal/executor"
)

// Config holds the limits applied to every run.
type Config struct {
	// Timeout bounds one run. Zero or negative disables the deadline.
	Timeout time.Duration
	// MaxOutputBytes caps each of stdout and stderr. Zero or negative is unlimited.
	MaxOutputBytes int
	// KillGrace is how long Wait may take to collect output after the process is killed.
	KillGrace time.Duration
}

// DefaultConfig mirrors the defaults of the configuration layer.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MaxOutputBytes: 1 << 20,
		KillGrace:      2 * time.Second,
	}
}

// Invoker implements executor.Invoker with os/exec.
type Invoker struct {
	config Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Invoker {
	return &Invoker{
		config: cfg,
		logger: logger,
	}
}

// Run starts the process, waits for it and captures both streams.
func (i *Invoker) Run(ctx context.Context, inv executor.Invocation) (*executor.Result, error) {
	start := time.Now()

	runCtx := ctx
	if i.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, i.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Executable, inv.Args...) //#nosec G204 -- executable comes from server config
	cmd.Dir = inv.Dir
	// A grandchild holding the pipes open must not keep us waiting forever.
	cmd.WaitDelay = i.config.KillGrace

	stdout := &executor.CappedBuffer{Limit: i.config.MaxOutputBytes}
	stderr := &executor.CappedBuffer{Limit: i.config.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		// Never started: missing binary, no permission, bad working dir.
		i.logger.Warn("compiler failed to start",
			slog.String("executable", inv.Executable),
			slog.String("error", err.Error()),
		)
		return &executor.Result{
			ExitCode:   -1,
			SpawnError: err.Error(),
			Duration:   time.Since(start),
		}, nil
	}

	waitErr := cmd.Wait()

	res := &executor.Result{
		ExitCode:  cmd.ProcessState.ExitCode(),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Overflowed() || stderr.Overflowed(),
		Duration:  time.Since(start),
	}

	// Check who ended the run before looking at the exit status:
	// a killed process exits with -1 and that is not the compiler's verdict.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if runCtx.Err() != nil {
		res.TimedOut = true
		res.ExitCode = executor.TimeoutExitCode
		i.logger.Warn("compiler timed out",
			slog.String("executable", inv.Executable),
			slog.Duration("timeout", i.config.Timeout),
		)
		return res, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
			return nil, fmt.Errorf("waiting for compiler: %w", waitErr)
		}
	}

	return res, nil
}

var _ executor.Invoker = (*Invoker)(nil)
