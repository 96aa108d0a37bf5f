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

// Package rlimit raises the process's open-file-descriptor limit so a
// multi-worker, many-connection server doesn't run into EMFILE under load.
package rlimit

import (
	"golang.org/x/sys/unix"

	"github.com/nabbar/zaver/errors"
)

// PerConnFD is the number of file descriptors one live connection can hold
// at once: the client socket, plus CGI stdin/stdout pipe ends.
const PerConnFD = 3

// Raise ensures the process's RLIMIT_NOFILE soft (and, if needed, hard)
// limit is at least newValue. Passing 0 only reads the current limit.
// Returns the resulting (current, max) limit.
func Raise(newValue int) (current int, max int, err errors.Error) {
	var lim unix.Rlimit

	if e := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); e != nil {
		return 0, 0, ErrorSyscallRLimitGet.Error(e)
	}

	if newValue < 1 || uint64(newValue) <= lim.Cur {
		return int(lim.Cur), int(lim.Max), nil
	}

	if uint64(newValue) > lim.Max {
		lim.Max = uint64(newValue)
	}
	lim.Cur = uint64(newValue)

	if e := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); e != nil {
		return 0, 0, ErrorSyscallRLimitSet.Error(e)
	}

	return Raise(0)
}

// ForWorkers estimates the file descriptor budget for the given worker
// count and expected live connections per worker, plus a fixed overhead for
// the listening socket and standard streams.
func ForWorkers(workers, connsPerWorker int) int {
	if workers < 1 {
		workers = 1
	}
	if connsPerWorker < 1 {
		connsPerWorker = 1
	}

	return workers*(connsPerWorker*PerConnFD+1) + 16
}
