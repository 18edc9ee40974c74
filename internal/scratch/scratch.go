// Package scratch hands out in-memory buffers for intermediate rasters and
// pages. An Arena scopes every buffer acquired during one generation call;
// releasing the arena returns them all to the pool.
//
//	arena := scratch.NewArena(pool)
//	defer arena.Release()
package scratch

import (
	"bytes"
	"sync"
)

// Pool recycles byte buffers across generation calls.
type Pool struct {
	p sync.Pool
}

// NewPool returns an empty buffer pool.
func NewPool() *Pool {
	return &Pool{p: sync.Pool{New: func() any { return new(bytes.Buffer) }}}
}

func (p *Pool) get() *bytes.Buffer {
	buf := p.p.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (p *Pool) put(buf *bytes.Buffer) {
	buf.Reset()
	p.p.Put(buf)
}

// Arena tracks buffers acquired for one scope. Safe for concurrent use.
type Arena struct {
	pool *Pool

	mu       sync.Mutex
	bufs     []*bytes.Buffer
	released bool
	peak     int
}

// NewArena opens a scope backed by pool. A nil pool gets a private one.
func NewArena(pool *Pool) *Arena {
	if pool == nil {
		pool = NewPool()
	}
	return &Arena{pool: pool}
}

// Acquire returns an empty buffer owned by the arena. Acquiring from a
// released arena still works but the buffer is not pooled.
func (a *Arena) Acquire() *bytes.Buffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return new(bytes.Buffer)
	}
	buf := a.pool.get()
	a.bufs = append(a.bufs, buf)
	if len(a.bufs) > a.peak {
		a.peak = len(a.bufs)
	}
	return buf
}

// Live is the number of buffers currently held.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.bufs)
}

// Peak is the largest number of buffers held at once.
func (a *Arena) Peak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}

// Release returns every buffer to the pool. It is idempotent.
func (a *Arena) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return
	}
	for _, buf := range a.bufs {
		a.pool.put(buf)
	}
	a.bufs = nil
	a.released = true
}

// Released reports whether Release has been called.
func (a *Arena) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}
