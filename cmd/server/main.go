// Package main is the entry point for the gran playground server.
//
// main only parses flags and configuration, builds the dependencies in
// wire.go and starts the server. Everything else lives under internal/.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sakif/gran-playground/internal/config"
	"github.com/sakif/gran-playground/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command. Flags are bound onto a fresh viper instance
// so they override environment variables and the config file.
func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "gran-playground",
		Short: "Serve the gran compiler playground",
		Long: `gran-playground serves a browser playground and a POST /compile endpoint.

Each request writes the submitted program to a private temporary file, runs the
gran compiler on it and returns the lexer, parser and IR dumps plus the program
output as JSON.

Every setting can also be given as an environment variable with the GRAN_
prefix, e.g. GRAN_COMPILER_PATH or GRAN_LOG_LEVEL.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd.Flags(), configFile)
			if err != nil {
				return err
			}

			logger, closer := logging.New(cfg.Log)
			defer closer.Close()

			return run(cmd.Context(), cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
	f.IntP("port", "p", config.DefaultPort, "HTTP listen port")
	f.String("executor", config.ExecutorLocal, "how to run the compiler: local or docker")
	f.String("compiler", config.DefaultCompilerPath, "path to the gran compiler executable")
	f.String("workdir", ".", "directory the compiler runs in")
	f.Duration("timeout", config.DefaultTimeout, "maximum run time of one compilation")
	f.Int("max-concurrent", config.DefaultMaxConcurrent, "compilations allowed to run at once (0 = unlimited)")
	f.String("artifact-dir", config.DefaultArtifactDir(), "directory for per-request source files")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", "text", "log format: text or json")
	f.String("log-file", "", "also write logs to this file, rotated by size")

	return cmd
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"port":           "port",
	"executor":       "executor",
	"compiler":       "compiler.path",
	"workdir":        "compiler.workdir",
	"timeout":        "compiler.timeout",
	"max-concurrent": "compiler.max_concurrent",
	"artifact-dir":   "artifact.dir",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"log-file":       "log.file",
}

// loadConfig binds flags onto v and loads the merged configuration.
// Only flags that were set on the command line override other sources.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet, configFile string) (*config.Config, error) {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return config.Load(v, configFile)
}
