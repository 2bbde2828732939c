package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/gran-playground/internal/artifact"
	"github.com/sakif/gran-playground/internal/config"
	"github.com/sakif/gran-playground/internal/executor"
	"github.com/sakif/gran-playground/internal/executor/docker"
	"github.com/sakif/gran-playground/internal/executor/local"
	"github.com/sakif/gran-playground/internal/server"
	"github.com/sakif/gran-playground/internal/service"
)

// run builds the dependency chain and serves until ctx is cancelled:
//
//	artifact.Store → FileStore ┐
//	local / docker invoker → Limit ┴→ CompileService → server
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := artifact.NewStore(cfg.Artifact.Dir, cfg.Artifact.Ext, logger)
	if err != nil {
		return fmt.Errorf("creating artifact store: %w", err)
	}

	invoker, closer, err := newInvoker(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	compiler := service.NewCompileService(
		service.FileStore{Store: store},
		executor.Limit(invoker, cfg.Compiler.MaxConcurrent, cfg.Compiler.QueueTimeout),
		service.CompileConfig{
			CompilerPath:   cfg.Compiler.Path,
			WorkDir:        cfg.Compiler.WorkDir,
			MaxSourceBytes: cfg.Compiler.MaxSourceBytes,
			MaxOutputBytes: cfg.Compiler.MaxOutputBytes,
			Timeout:        cfg.Compiler.Timeout,
		},
		logger,
	)

	srv, err := server.New(server.Config{
		Port:           cfg.Port,
		TemplateDir:    cfg.Server.TemplateDir,
		StaticDir:      cfg.Server.StaticDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger, compiler)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("compiler configured",
		slog.String("executor", cfg.Executor),
		slog.String("compiler", cfg.Compiler.Path),
		slog.String("workdir", cfg.Compiler.WorkDir),
		slog.String("artifactDir", store.Dir()),
		slog.Duration("timeout", cfg.Compiler.Timeout),
		slog.Int("maxConcurrent", cfg.Compiler.MaxConcurrent),
	)

	return srv.Start(ctx)
}

// newInvoker returns the configured backend and a closer for its resources.
func newInvoker(cfg *config.Config, logger *slog.Logger) (executor.Invoker, io.Closer, error) {
	switch cfg.Executor {
	case config.ExecutorDocker:
		dcfg := docker.Config{
			Image:          cfg.Docker.Image,
			MemoryLimit:    cfg.Docker.MemoryLimit,
			CPULimit:       cfg.Docker.CPULimit,
			Timeout:        cfg.Compiler.Timeout,
			PoolSize:       cfg.Docker.PoolSize,
			WorkDir:        cfg.Docker.WorkDir,
			MaxOutputBytes: cfg.Compiler.MaxOutputBytes,
		}
		if dcfg.PoolSize == 0 {
			// Warm sandboxes match the slots Limit hands out.
			dcfg.PoolSize = cfg.Compiler.MaxConcurrent
		}
		if dcfg.Timeout <= 0 {
			// The sandbox always needs a deadline.
			dcfg.Timeout = docker.DefaultConfig().Timeout
		}
		exec, err := docker.New(dcfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("starting docker executor: %w", err)
		}
		return exec, exec, nil

	default:
		lcfg := local.DefaultConfig()
		lcfg.Timeout = cfg.Compiler.Timeout
		lcfg.MaxOutputBytes = cfg.Compiler.MaxOutputBytes
		return local.New(lcfg, logger), closerFunc(func() error { return nil }), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
