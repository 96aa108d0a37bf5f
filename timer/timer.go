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

// Package timer is a single-threaded min-heap of deadlines, used by a
// worker's event loop to compute how long to block in the poller and to
// fire per-connection timeout handlers. Deletion is lazy: a canceled or
// superseded entry is left in the heap, marked deleted, and reaped the
// next time it would otherwise be inspected.
package timer

import (
	"container/heap"
	"time"
)

// Infinite is returned by NextTimeout when no live entry remains.
const Infinite = -1

// Handler is invoked by RunExpired for an entry whose deadline has
// passed. payload is whatever was passed to Arm.
type Handler func(payload interface{})

type node struct {
	deadline int64
	deleted  bool
	handler  Handler
	payload  interface{}
}

// Handle is an opaque reference to a live or deleted heap entry, held by
// the caller (typically embedded in a connection) so it can be canceled
// or superseded in O(1) without a heap search.
type Handle struct {
	n *node
}

type minHeap []*node

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(*node)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Wheel is the timer heap for one worker. It is not safe for concurrent
// use: a worker's event loop is single-threaded, and Wheel is only ever
// touched from that loop.
type Wheel struct {
	h   minHeap
	now func() int64
}

// New returns an empty Wheel.
func New() *Wheel {
	w := &Wheel{now: monotonicMillis}
	heap.Init(&w.h)
	return w
}

func monotonicMillis() int64 {
	return time.Now().UnixMilli()
}

// Arm schedules handler(payload) to run after ms milliseconds. If old is
// a live handle (as returned by a previous Arm for the same owner), it
// is marked deleted before the new entry is inserted, so a connection
// rearming its read or keep-alive timeout never leaves two live entries
// pointing at itself. Arm returns the new handle; the caller stores it
// in place of old.
func (w *Wheel) Arm(old *Handle, ms int, handler Handler, payload interface{}) *Handle {
	if old != nil && old.n != nil {
		old.n.deleted = true
	}

	if ms < 0 {
		ms = 0
	}

	n := &node{
		deadline: w.now() + int64(ms),
		handler:  handler,
		payload:  payload,
	}
	heap.Push(&w.h, n)

	return &Handle{n: n}
}

// Cancel marks h's entry deleted, if h is live. A nil or already-deleted
// handle is a no-op.
func (w *Wheel) Cancel(h *Handle) {
	if h == nil || h.n == nil {
		return
	}
	h.n.deleted = true
}

// NextTimeout pops and discards deleted entries from the top of the
// heap, then returns the milliseconds until the earliest live deadline,
// clamped to zero if it has already passed. It returns Infinite if no
// live entry remains, telling the caller's poller wait to block
// indefinitely.
func (w *Wheel) NextTimeout() int {
	now := w.now()

	for w.h.Len() > 0 {
		top := w.h[0]
		if top.deleted {
			heap.Pop(&w.h)
			continue
		}

		d := top.deadline - now
		if d < 0 {
			d = 0
		}
		return int(d)
	}

	return Infinite
}

// RunExpired fires every live entry whose deadline has passed, in
// non-decreasing deadline order, then returns. The clock is read once
// per call. Entries are popped as they are handled or discarded, so a
// handler that re-arms its own timer with a positive delay is safe: the
// fresh entry sorts after the current pass's cutoff and is left for the
// next call.
func (w *Wheel) RunExpired() {
	now := w.now()
	for w.h.Len() > 0 {
		top := w.h[0]

		if top.deleted {
			heap.Pop(&w.h)
			continue
		}

		if top.deadline > now {
			return
		}

		heap.Pop(&w.h)
		if top.handler != nil {
			top.handler(top.payload)
		}
	}
}

// Len reports the number of entries still in the heap, live or deleted.
// It exists for tests and diagnostics; callers should use NextTimeout to
// decide whether any live work remains.
func (w *Wheel) Len() int {
	return w.h.Len()
}
