// Package docker runs the compiler inside throwaway Docker containers.
//
// Each compilation takes a pre-warmed container from the pool, streams the
// source file in over stdin, runs the compiler against it and then destroys
// the container. Containers have no network, a read-only root filesystem and
// a small tmpfs for the source file.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/gran-playground/internal/executor"
)

// commandNotFoundExit is what /bin/sh returns when the compiler binary is missing.
const commandNotFoundExit = 127

// Executor implements the executor.Invoker interface using Docker.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

// New creates a new Docker Executor and initializes the connection.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	// Make sure the image is available
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		// Locally built compiler images are usually not in any registry.
		if _, inspectErr := cli.ImageInspect(ctx, cfg.Image); inspectErr != nil {
			cli.Close()
			return nil, fmt.Errorf("failed to pull image: %w", err)
		}
		logger.Info("using local docker image", slog.String("image", cfg.Image))
	} else {
		defer reader.Close()
		// Read everything to block until the pull is complete
		io.Copy(io.Discard, reader)
	}
	logger.Info("docker image is ready")

	exec := &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
	}

	exec.pool = newPool(&sandbox{cli: cli, config: cfg}, cfg.PoolSize, logger)

	return exec, nil
}

// Close shuts down the executor pool and docker client.
func (e *Executor) Close() error {
	e.pool.Close()
	return e.cli.Close()
}

// Run compiles inv inside a sandbox container.
//
// Every argument of inv is a host file; it is uploaded into the container's
// WorkDir and the compiler receives the in-container path instead.
// inv.Executable is the compiler path inside the image. inv.Dir is ignored:
// the compiler always runs from WorkDir.
func (e *Executor) Run(ctx context.Context, inv executor.Invocation) (*executor.Result, error) {
	start := time.Now()

	if len(inv.Args) != 1 {
		return nil, fmt.Errorf("docker executor expects exactly one source file, got %d", len(inv.Args))
	}
	source, err := os.ReadFile(inv.Args[0])
	if err != nil {
		return nil, fmt.Errorf("reading source file: %w", err)
	}
	target := path.Join(e.config.WorkDir, path.Base(inv.Args[0]))

	containerID, err := e.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for a sandbox: %w", err)
	}
	defer e.pool.Discard(containerID)

	// We apply a timeout context purely for the compilation
	executeCtx, executeCancel := context.WithTimeout(ctx, e.config.Timeout)
	defer executeCancel()

	// The root filesystem is read-only, so the source goes through stdin into the
	// tmpfs, then the shell replaces itself with the compiler.
	execConfig := container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   e.config.WorkDir,
		Cmd:          []string{"sh", "-c", `cat > "$1" && exec "$0" "$1"`, inv.Executable, target},
	}

	execResp, err := e.cli.ContainerExecCreate(executeCtx, containerID, execConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(executeCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	if err := sendSource(executeCtx, attachResp.Conn, source); err != nil {
		if executeCtx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return &executor.Result{
				ExitCode: executor.TimeoutExitCode,
				TimedOut: true,
				Duration: time.Since(start),
			}, nil
		}
		return nil, fmt.Errorf("failed to send source: %w", err)
	}
	if err := attachResp.CloseWrite(); err != nil {
		return nil, fmt.Errorf("failed to close stdin: %w", err)
	}

	stdout := &executor.CappedBuffer{Limit: e.config.MaxOutputBytes}
	stderr := &executor.CappedBuffer{Limit: e.config.MaxOutputBytes}

	// Channels to manage sync and timeout
	done := make(chan struct{})
	go func() {
		// Use stdcopy to demultiplex stdout from stderr
		_, _ = stdcopy.StdCopy(stdout, stderr, attachResp.Reader)
		close(done)
	}()

	res := &executor.Result{}

	select {
	case <-done:
		// Completed normally
		inspectResp, err := e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect exec: %w", err)
		}
		res.ExitCode = inspectResp.ExitCode
	case <-executeCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.TimedOut = true
		res.ExitCode = executor.TimeoutExitCode
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Truncated = stdout.Overflowed() || stderr.Overflowed()
	res.Duration = time.Since(start)

	if res.ExitCode == commandNotFoundExit {
		res.SpawnError = res.Stderr
		if res.SpawnError == "" {
			res.SpawnError = fmt.Sprintf("compiler %s not found in image %s", inv.Executable, e.config.Image)
		}
		res.ExitCode = -1
	}

	return res, nil
}

// sendSource writes source to the exec's stdin. A sandbox that stops reading
// must not hold the request past ctx's deadline.
func sendSource(ctx context.Context, conn net.Conn, source []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	_, err := conn.Write(source)
	return err
}

var _ executor.Invoker = (*Executor)(nil)
