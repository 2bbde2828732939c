package docker_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gran-playground/internal/executor"
	"github.com/sakif/gran-playground/internal/executor/docker"
)

// These tests need a Docker daemon and a compiler image, so they only run when
// GRAN_DOCKER_TESTS is set. GRAN_DOCKER_IMAGE overrides the image under test.
func TestDockerExecutor(t *testing.T) {
	if os.Getenv("GRAN_DOCKER_TESTS") == "" {
		t.Skip("set GRAN_DOCKER_TESTS=1 to run docker sandbox tests")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := docker.DefaultConfig()
	// alpine has /bin/sh and /bin/cat, which stand in for the compiler
	cfg.Image = "alpine:3.20"
	if img := os.Getenv("GRAN_DOCKER_IMAGE"); img != "" {
		cfg.Image = img
	}
	cfg.PoolSize = 1

	exec, err := docker.New(cfg, logger)
	require.NoError(t, err, "Should initialize docker executor without error")
	defer exec.Close()

	// Give the pool a moment to warm a sandbox
	time.Sleep(2 * time.Second)

	src := filepath.Join(t.TempDir(), "input.gran")
	require.NoError(t, os.WriteFile(src, []byte("print(1+1)"), 0o600))

	t.Run("source reaches the compiler", func(t *testing.T) {
		// cat stands in for the compiler: it echoes the uploaded file.
		res, err := exec.Run(context.Background(), executor.Invocation{
			Executable: "/bin/cat",
			Args:       []string{src},
		})

		require.NoError(t, err)
		assert.True(t, res.Spawned())
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "print(1+1)", res.Stdout)
	})

	t.Run("missing compiler is a spawn error", func(t *testing.T) {
		res, err := exec.Run(context.Background(), executor.Invocation{
			Executable: "/usr/local/bin/does-not-exist",
			Args:       []string{src},
		})

		require.NoError(t, err)
		assert.False(t, res.Spawned())
		assert.Equal(t, -1, res.ExitCode)
	})

	t.Run("timeout", func(t *testing.T) {
		fastCfg := cfg
		fastCfg.Timeout = 2 * time.Second
		fastExec, err := docker.New(fastCfg, logger)
		require.NoError(t, err)
		defer fastExec.Close()
		time.Sleep(1 * time.Second) // Wait for pool

		// The uploaded file is a shell script that never finishes in time.
		slow := filepath.Join(t.TempDir(), "slow.gran")
		require.NoError(t, os.WriteFile(slow, []byte("sleep 30\n"), 0o600))

		res, err := fastExec.Run(context.Background(), executor.Invocation{
			Executable: "/bin/sh",
			Args:       []string{slow},
		})

		require.NoError(t, err)
		assert.True(t, res.TimedOut)
		assert.Equal(t, executor.TimeoutExitCode, res.ExitCode)
	})

	t.Run("requires exactly one source file", func(t *testing.T) {
		_, err := exec.Run(context.Background(), executor.Invocation{Executable: "/bin/cat"})
		assert.Error(t, err)
	})
}
