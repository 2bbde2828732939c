package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sakif/gran-playground/internal/executor/docker"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "GRAN"

// New returns a viper instance with defaults and environment binding applied.
// cmd/server binds its flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	dockerDefaults := docker.DefaultConfig()

	v.SetDefault("port", DefaultPort)
	v.SetDefault("executor", ExecutorLocal)

	v.SetDefault("compiler.path", DefaultCompilerPath)
	v.SetDefault("compiler.workdir", ".")
	v.SetDefault("compiler.timeout", DefaultTimeout)
	v.SetDefault("compiler.max_output_bytes", DefaultMaxOutputBytes)
	v.SetDefault("compiler.max_source_bytes", DefaultMaxSourceBytes)
	v.SetDefault("compiler.max_concurrent", DefaultMaxConcurrent)
	v.SetDefault("compiler.queue_timeout", DefaultQueueTimeout)

	v.SetDefault("artifact.dir", DefaultArtifactDir())
	v.SetDefault("artifact.ext", DefaultArtifactExt)

	v.SetDefault("docker.image", dockerDefaults.Image)
	v.SetDefault("docker.memory_limit", dockerDefaults.MemoryLimit)
	v.SetDefault("docker.cpu_limit", dockerDefaults.CPULimit)
	// 0: one warm sandbox per compiler slot (compiler.max_concurrent)
	v.SetDefault("docker.pool_size", 0)
	v.SetDefault("docker.workdir", dockerDefaults.WorkDir)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.template_dir", "web/templates")
	v.SetDefault("server.static_dir", "web/static")
}

// Load reads the optional config file into v, decodes and validates the result.
// A missing file is an error only when a path was given explicitly.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decoderOption()); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// decoderOption accepts "10s" style durations and comma-separated lists,
// which is what environment variables can express.
func decoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// Validation errors.
var (
	ErrInvalidPort     = errors.New("port must be between 1 and 65535")
	ErrMissingCompiler = errors.New("compiler.path is required")
	ErrNegativeLimit   = errors.New("limits must not be negative")
	ErrUnknownExecutor = errors.New("unknown executor")
	ErrUnknownLogLevel = errors.New("unknown log level")
	ErrUnknownLogFmt   = errors.New("unknown log format")
)

// Validate checks cfg for values the server cannot run with.
func Validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Port)
	}
	if strings.TrimSpace(cfg.Compiler.Path) == "" {
		return ErrMissingCompiler
	}

	c := cfg.Compiler
	if c.Timeout < 0 || c.MaxOutputBytes < 0 || c.MaxSourceBytes < 0 || c.MaxConcurrent < 0 || c.QueueTimeout < 0 || cfg.Docker.PoolSize < 0 {
		return ErrNegativeLimit
	}

	switch cfg.Executor {
	case ExecutorLocal, ExecutorDocker:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownExecutor, cfg.Executor, ExecutorLocal, ExecutorDocker)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogFmt, cfg.Log.Format)
	}

	return nil
}
