package docker

import (
	"time"
)

// Config holds the configuration for sandboxed compiler runs.
type Config struct {
	// Image is the Docker image to run. It must contain the compiler and /bin/sh.
	Image string
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// Timeout is the maximum amount of time one compilation can take.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
	// WorkDir is the writable tmpfs inside the container that receives the source file.
	WorkDir string
	// MaxOutputBytes caps each of stdout and stderr.
	MaxOutputBytes int
}

// DefaultConfig provides sensible defaults for a compiler sandbox.
func DefaultConfig() Config {
	return Config{
		Image: "gran:latest",
		// 256 MB: the compiler JITs the program with LLVM
		MemoryLimit:    256 * 1024 * 1024,
		CPULimit:       0.5,
		Timeout:        10 * time.Second,
		PoolSize:       3,
		WorkDir:        "/sandbox",
		MaxOutputBytes: 1 << 20,
	}
}
