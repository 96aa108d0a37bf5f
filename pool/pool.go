/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package pool is a process-local, hard-capped free list, used by a
// worker to reuse connection and header-node blocks across requests
// instead of allocating one per request. It is not safe for concurrent
// use: each worker owns its own Pool instances, one per block kind.
package pool

// DefaultMaxFree is the free-list cap used when a caller does not need
// a different limit. It matches the R-block freelist cap of the
// original server.
const DefaultMaxFree = 65536

// Stats is a point-in-time snapshot of a Pool's counters, exposed for
// diagnostics in the same spirit as the original cache's dump-stats
// call.
type Stats struct {
	GetCalls  uint64
	GetHits   uint64
	GetAllocs uint64
	PutCalls  uint64
	PutFrees  uint64
	FreeNow   int
	FreeMax   int
	MaxFree   int
}

// Pool is a free list of *T, capped at MaxFree entries. Get reuses a
// free entry if one is available, else calls New. Put returns v to the
// free list, or drops it (letting the garbage collector reclaim it) if
// the list is already at capacity.
type Pool[T any] struct {
	free []*T
	New  func() *T
	max  int

	stats Stats
}

// NewPool returns a Pool with the given cap. newFn must not be nil; it
// is called whenever Get finds the free list empty. A maxFree of 0 or
// less selects DefaultMaxFree.
func NewPool[T any](maxFree int, newFn func() *T) *Pool[T] {
	if maxFree <= 0 {
		maxFree = DefaultMaxFree
	}
	return &Pool[T]{
		New:   newFn,
		max:   maxFree,
		stats: Stats{MaxFree: maxFree},
	}
}

// Get pops an entry from the free list if one is available, else
// allocates a fresh one via New. The returned value carries whatever
// state it had when it was Put; callers must reinitialize the fields
// they care about before use, exactly as the caller of the pool must
// reinitialize a reused connection's request state.
func (p *Pool[T]) Get() *T {
	p.stats.GetCalls++

	n := len(p.free)
	if n > 0 {
		v := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.stats.GetHits++
		return v
	}

	p.stats.GetAllocs++
	return p.New()
}

// Put returns v to the free list, unless the list is already at
// capacity, in which case v is dropped. A nil v is a no-op.
func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	p.stats.PutCalls++

	if len(p.free) >= p.max {
		p.stats.PutFrees++
		return
	}

	p.free = append(p.free, v)
	if len(p.free) > p.stats.FreeMax {
		p.stats.FreeMax = len(p.free)
	}
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool[T]) Stats() Stats {
	s := p.stats
	s.FreeNow = len(p.free)
	return s
}

// Deferred is a same-turn holding queue for entries that must not be
// returned to pool yet: a handler closing a connection may still have
// later events for it pending in the current readiness batch, so the
// entry goes here instead of straight back to pool. Flush, called once
// per event-loop turn after the batch has fully drained, moves every
// held entry into pool.
type Deferred[T any] struct {
	pool *Pool[T]
	held []*T
}

// NewDeferred returns a Deferred queue that flushes into pool.
func NewDeferred[T any](pool *Pool[T]) *Deferred[T] {
	return &Deferred[T]{pool: pool}
}

// Defer holds v for release on the next Flush. A nil v is a no-op.
func (d *Deferred[T]) Defer(v *T) {
	if v == nil {
		return
	}
	d.held = append(d.held, v)
}

// Flush returns every held entry to the backing pool and empties the
// queue.
func (d *Deferred[T]) Flush() {
	for _, v := range d.held {
		d.pool.Put(v)
	}
	d.held = d.held[:0]
}

// Len reports the number of entries currently held for deferred
// release.
func (d *Deferred[T]) Len() int {
	return len(d.held)
}
