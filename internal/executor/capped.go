package executor

import (
	"bytes"
	"sync"
)

// CappedBuffer collects at most Limit bytes and silently drops the rest.
//
// Write always reports the full length so the child process keeps draining
// its pipe instead of dying with EPIPE; Overflowed tells the caller that data
// was lost. A Limit <= 0 means unlimited.
type CappedBuffer struct {
	Limit int

	mu       sync.Mutex
	buf      bytes.Buffer
	overflow bool
}

func (b *CappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if b.Limit > 0 {
		room := b.Limit - b.buf.Len()
		if room <= 0 {
			b.overflow = true
			return n, nil
		}
		if len(p) > room {
			p = p[:room]
			b.overflow = true
		}
	}
	b.buf.Write(p)
	return n, nil
}

func (b *CappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *CappedBuffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow
}
