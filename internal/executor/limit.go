package executor

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sakif/gran-playground/internal/apperror"
)

// limited caps the number of compiler processes running at once.
type limited struct {
	next Invoker
	sem  *semaphore.Weighted
	wait time.Duration
}

// Limit wraps inv so that at most max runs are in flight. Extra callers queue
// for up to wait (forever when wait <= 0) and then fail with apperror.ErrBusy.
// max <= 0 disables the limit and returns inv unchanged.
func Limit(inv Invoker, max int, wait time.Duration) Invoker {
	if max <= 0 {
		return inv
	}
	return &limited{
		next: inv,
		sem:  semaphore.NewWeighted(int64(max)),
		wait: wait,
	}
}

func (l *limited) Run(ctx context.Context, inv Invocation) (*Result, error) {
	acquireCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	if err := l.sem.Acquire(acquireCtx, 1); err != nil {
		// Caller gave up: report that, not a busy server.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.Busy()
		}
		return nil, err
	}
	defer l.sem.Release(1)

	return l.next.Run(ctx, inv)
}
