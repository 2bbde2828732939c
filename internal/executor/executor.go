// Package executor runs the compiler as an external process.
//
// The compiler is a black box: we give it a path, it gives us an exit status
// and two text streams. Implementations live in sub-packages:
//
//	local  → child process on this host (os/exec)
//	docker → process inside a pre-warmed sandbox container
package executor

import (
	"context"
	"time"
)

// TimeoutExitCode is reported when a run is killed for exceeding its deadline
// (same convention as the unix timeout command).
const TimeoutExitCode = 124

// Invocation describes one compiler run.
type Invocation struct {
	Executable string
	Args       []string
	Dir        string // working directory
}

// Result is a snapshot of one finished run. It is never modified after Run returns.
//
// A non-zero ExitCode is not an error: the compiler reports bad source that way.
// SpawnError is only set when the process never started (missing binary,
// permission denied, bad working directory); ExitCode is -1 in that case.
type Result struct {
	ExitCode   int
	Stdout     string
	Stderr     string
	SpawnError string
	TimedOut   bool
	Truncated  bool // stdout or stderr hit the capture limit
	Duration   time.Duration
}

// Spawned reports whether the process actually started.
func (r *Result) Spawned() bool {
	return r.SpawnError == ""
}

// Invoker runs a compiler invocation to completion.
//
// The returned error is reserved for failures of the invoker itself (the
// caller's context was cancelled, the sandbox is unavailable). Everything the
// process did, including failing to start, is described by the Result.
type Invoker interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}
