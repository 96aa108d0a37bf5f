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

package conn

import "github.com/nabbar/zaver/errors"

// These cross the accept-path/poller boundary (spec.md §10.1): every
// other failure inside the connection state machine is local
// (EAGAIN/EINTR retried, terminal errors unwind into Close) and never
// needs to be wrapped as an errors.Error.
const (
	ErrorSetNonblock errors.CodeError = iota + errors.MinPkgConn
	ErrorSetNodelay
	ErrorPollerRegister
)

func init() {
	errors.RegisterIdFctMessage(ErrorSetNonblock, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorSetNonblock:
		return "cannot set accepted socket non-blocking"
	case ErrorSetNodelay:
		return "cannot disable Nagle on accepted socket"
	case ErrorPollerRegister:
		return "cannot register accepted socket with poller"
	}

	return ""
}
