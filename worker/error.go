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

package worker

import "github.com/nabbar/zaver/errors"

// These cross the worker/listen-socket boundary (spec.md §10.1); once
// a connection is accepted, any further failure is handled locally by
// the conn state machine and never needs to be wrapped here.
const (
	ErrorSocketCreate errors.CodeError = iota + errors.MinPkgWorker
	ErrorSocketOpt
	ErrorSocketBind
	ErrorSocketListen
	ErrorAccept
	ErrorSchedAffinity
	ErrorSignalInstall
)

func init() {
	errors.RegisterIdFctMessage(ErrorSocketCreate, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorSocketCreate:
		return "cannot create listening socket"
	case ErrorSocketOpt:
		return "cannot set listening socket option"
	case ErrorSocketBind:
		return "cannot bind listening socket"
	case ErrorSocketListen:
		return "cannot listen on socket"
	case ErrorAccept:
		return "accept4 failed"
	case ErrorSchedAffinity:
		return "cannot set CPU affinity"
	case ErrorSignalInstall:
		return "cannot install signal handler"
	}

	return ""
}
