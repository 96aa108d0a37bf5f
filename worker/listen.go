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

import (
	"golang.org/x/sys/unix"

	"github.com/nabbar/zaver/conn"
	"github.com/nabbar/zaver/errors"
	"github.com/nabbar/zaver/logger"
)

// ListenBacklog is the listen(2) backlog, taken from the original
// server's LISTENQ constant (spec.md §4.7 doesn't itself name a
// value).
const ListenBacklog = 1024

// openListener binds a non-blocking IPv4 listening socket on port with
// both SO_REUSEADDR and SO_REUSEPORT set, so every worker can bind the
// same port independently and let the kernel balance accept() across
// them (spec.md §4.7/§5 "the only shared resource is the listening
// socket; the kernel balances accept using port-reuse").
func openListener(port int) (int, errors.Error) {
	fd, e := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if e != nil {
		return -1, ErrorSocketCreate.Error(e)
	}

	if e := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
		_ = unix.Close(fd)
		return -1, ErrorSocketOpt.Error(e)
	}
	if e := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); e != nil {
		_ = unix.Close(fd)
		return -1, ErrorSocketOpt.Error(e)
	}

	addr := &unix.SockaddrInet4{Port: port}
	if e := unix.Bind(fd, addr); e != nil {
		_ = unix.Close(fd)
		return -1, ErrorSocketBind.Error(e)
	}

	if e := unix.Listen(fd, ListenBacklog); e != nil {
		_ = unix.Close(fd)
		return -1, ErrorSocketListen.Error(e)
	}

	if e := unix.SetNonblock(fd, true); e != nil {
		_ = unix.Close(fd)
		return -1, ErrorSocketOpt.Error(e)
	}

	return fd, nil
}

// acceptLoop drains every connection currently pending on the
// listening socket (spec.md §4.4 "Accept path": "Loop accept() until
// EAGAIN"). Each accepted fd is prepared and handed to a pooled *conn.Conn.
func (w *Worker) acceptLoop() {
	for {
		fd, _, e := unix.Accept4(w.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case e == unix.EINTR:
			continue
		case e == unix.EAGAIN || e == unix.EWOULDBLOCK:
			return
		case e != nil:
			if w.cfg.Log != nil {
				w.cfg.Log.Warn("accept4 failed", logger.Fields{"err": e.Error()})
			}
			return
		}

		if err := conn.PrepareSocket(fd); err != nil {
			_ = unix.Close(fd)
			continue
		}

		c := w.connPool.Get()
		if err := c.Open(w.deps, fd); err != nil {
			_ = unix.Close(fd)
			w.connPool.Put(c)
			continue
		}
	}
}
