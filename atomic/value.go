/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

// Package atomic is a single-purpose flag wrapper for the worker's
// run/stop state (spec.md §5: "the signal stop flag is process-local ...
// require no synchronization"). Nothing in this repo needs a generic atomic
// map or a default-value/Swap/CompareAndSwap surface, so this package only
// keeps Load/Store on one value instead of carrying the rest of a larger
// atomic-container toolkit forward unused.
package atomic

import "sync/atomic"

// Value is a type-safe wrapper over sync/atomic.Value for one process-local
// flag, shared read/write across the goroutine running a Worker's event
// loop and the goroutine delivering its signal handler.
type Value[T any] interface {
	Load() T
	Store(v T)
}

type val[T any] struct {
	av atomic.Value
}

// NewValue returns a Value[T] reading as the zero value of T until the
// first Store.
func NewValue[T any]() Value[T] {
	return &val[T]{}
}

func (o *val[T]) Load() T {
	v, _ := o.av.Load().(T)
	return v
}

func (o *val[T]) Store(v T) {
	o.av.Store(v)
}
