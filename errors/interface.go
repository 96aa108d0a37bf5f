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

// Package errors gives every other package in this repo a small, shared way
// to return a failure that carries a package-scoped numeric CodeError
// alongside the standard error string, with an optional chain of parent
// causes (spec.md §7's error taxonomy, propagated as a return code that
// unwinds the handler into a close). A package declares its own CodeError
// range (see modules.go) and registers a Message function for it from an
// init(); every exported function that can fail returns an Error built from
// one of those codes.
package errors

import "fmt"

// Error is a standard error annotated with a numeric CodeError and an
// optional chain of parent causes.
type Error interface {
	error

	// IsCode reports whether this Error's own code equals code.
	IsCode(code CodeError) bool
	// HasCode reports whether this Error or any parent in its chain
	// carries code.
	HasCode(code CodeError) bool
	// GetCode returns this Error's own code.
	GetCode() CodeError
	// Code returns this Error's own code as a plain uint16.
	Code() uint16

	// Add appends one or more causes to this Error's parent chain.
	Add(parent ...error)
	// HasParent reports whether any cause has been added.
	HasParent() bool

	// StringError returns this Error's own message, ignoring parents.
	StringError() string
	// Unwrap exposes the parent chain for errors.Is/errors.As.
	Unwrap() []error
}

// New builds an Error with the given code, message and parent causes.
func New(code uint16, message string, parent ...error) Error {
	e := &ers{c: code, e: message}
	e.Add(parent...)
	return e
}

// Newf builds an Error whose message is produced by fmt.Sprintf(pattern, args...).
func Newf(code uint16, pattern string, args ...any) Error {
	return &ers{c: code, e: fmt.Sprintf(pattern, args...)}
}
