package docker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refill backoff after a failed launch.
const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// launchTimeout bounds a single container launch.
const launchTimeout = 30 * time.Second

// Pool keeps size sandboxes warm. Each sandbox serves exactly one compilation:
// Take hands it out and immediately schedules a replacement, so refills track
// demand instead of polling.
//
// Slots are conserved: there are always size tokens split between warm
// sandboxes in ready and pending launches in refill.
type Pool struct {
	launcher launcher
	size     int
	logger   *slog.Logger

	ready  chan string
	refill chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// newPool creates a pool of size sandboxes (at least one) and starts filling it.
func newPool(l launcher, size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		launcher: l,
		size:     size,
		logger:   logger,
		ready:    make(chan string, size),
		refill:   make(chan struct{}, size),
		ctx:      ctx,
		cancel:   cancel,
	}
	for range size {
		p.refill <- struct{}{}
	}

	logger.Info("starting sandbox pool", slog.Int("size", size))
	p.wg.Add(1)
	go p.fill()
	return p
}

// Take returns a warm sandbox, waiting until one is ready or ctx is done.
// The caller owns the sandbox and must destroy it with Discard.
func (p *Pool) Take(ctx context.Context) (string, error) {
	select {
	case id := <-p.ready:
		p.refill <- struct{}{}
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.ctx.Done():
		return "", context.Canceled
	}
}

// Discard destroys a sandbox handed out by Take.
func (p *Pool) Discard(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.launcher.Remove(ctx, id); err != nil {
		p.logger.Error("failed to remove sandbox", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Warm reports how many sandboxes are ready right now.
func (p *Pool) Warm() int {
	return len(p.ready)
}

// Close stops refilling and destroys every warm sandbox. Safe to call more than once.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.logger.Info("shutting down sandbox pool")
		p.cancel()
		p.wg.Wait()

		for {
			select {
			case id := <-p.ready:
				p.Discard(id)
			default:
				return
			}
		}
	})
}

// fill launches one sandbox per refill token, backing off while launches fail.
func (p *Pool) fill() {
	defer p.wg.Done()

	backoff := minBackoff
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.refill:
		}

		for {
			launchCtx, cancel := context.WithTimeout(p.ctx, launchTimeout)
			id, err := p.launcher.Launch(launchCtx)
			cancel()
			if err == nil {
				backoff = minBackoff
				// ready has room: tokens never exceed size.
				p.ready <- id
				break
			}

			if p.ctx.Err() != nil {
				return
			}
			p.logger.Error("failed to launch sandbox",
				slog.String("error", err.Error()),
				slog.Duration("retryIn", backoff),
			)
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}
}
