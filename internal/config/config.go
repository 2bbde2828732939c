// Package config loads the server configuration.
//
// Sources, highest precedence first:
//  1. Command-line flags (bound by cmd/server)
//  2. Environment variables with the GRAN_ prefix (compiler.path → GRAN_COMPILER_PATH)
//  3. An optional YAML config file (--config)
//  4. Built-in defaults (setDefaults)
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Port     int            `mapstructure:"port"`
	Executor string         `mapstructure:"executor"`
	Compiler CompilerConfig `mapstructure:"compiler"`
	Artifact ArtifactConfig `mapstructure:"artifact"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
}

// CompilerConfig describes how the compiler is run.
type CompilerConfig struct {
	// Path to the compiler executable. Relative paths resolve against WorkDir.
	Path    string        `mapstructure:"path"`
	WorkDir string        `mapstructure:"workdir"`
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxOutputBytes caps each captured stream.
	MaxOutputBytes int `mapstructure:"max_output_bytes"`
	MaxSourceBytes int `mapstructure:"max_source_bytes"`
	// MaxConcurrent caps in-flight compiler processes; 0 means unlimited.
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout"`
}

// ArtifactConfig controls where per-request source files are written.
type ArtifactConfig struct {
	Dir string `mapstructure:"dir"`
	Ext string `mapstructure:"ext"`
}

// DockerConfig is used when Executor is "docker".
type DockerConfig struct {
	Image       string  `mapstructure:"image"`
	MemoryLimit int64   `mapstructure:"memory_limit"`
	CPULimit    float64 `mapstructure:"cpu_limit"`
	// PoolSize is the number of warm sandboxes; 0 matches Compiler.MaxConcurrent.
	PoolSize    int     `mapstructure:"pool_size"`
	WorkDir     string  `mapstructure:"workdir"`
}

// LogConfig controls the slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File, when set, also writes logs to a rotating file.
	File string `mapstructure:"file"`
}

// ServerConfig holds HTTP-level settings.
type ServerConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TemplateDir    string   `mapstructure:"template_dir"`
	StaticDir      string   `mapstructure:"static_dir"`
}

// Executor backends.
const (
	ExecutorLocal  = "local"
	ExecutorDocker = "docker"
)

// Defaults. Port 5000 is where the bundled client expects the API.
const (
	DefaultPort           = 5000
	DefaultCompilerPath   = "./gran"
	DefaultTimeout        = 10 * time.Second
	DefaultMaxOutputBytes = 1 << 20
	DefaultMaxSourceBytes = 100000
	DefaultMaxConcurrent  = 4
	DefaultQueueTimeout   = 5 * time.Second
	DefaultArtifactExt    = ".gran"
)

// DefaultArtifactDir is a private subdirectory of the system temp dir.
func DefaultArtifactDir() string {
	return filepath.Join(os.TempDir(), "gran-artifacts")
}
