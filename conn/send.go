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

import "golang.org/x/sys/unix"

// sendResult is try_send's tri-state outcome (spec.md §4.4 "Write
// path"): done (everything staged has drained), wouldBlock (the
// socket buffer is full; the caller re-arms for write), or sendErr (a
// terminal write error; the caller closes).
type sendResult int

const (
	sendDone sendResult = iota
	sendWouldBlock
	sendErr
)

// trySend drains, in order, the header buffer, the in-memory body
// buffer and finally a file-descriptor-backed payload via a zero-copy
// sendfile(2), exactly as spec.md §4.4's write path describes.
// EINTR is retried locally; EAGAIN/EWOULDBLOCK surfaces as
// sendWouldBlock; a clean 0-byte write is treated as the peer having
// closed its read side.
func (c *Conn) trySend() sendResult {
	for c.headerSent < len(c.headerBuf) {
		n, e := unix.Write(c.Fd, c.headerBuf[c.headerSent:])
		switch {
		case e == unix.EINTR:
			continue
		case e == unix.EAGAIN || e == unix.EWOULDBLOCK:
			return sendWouldBlock
		case e != nil:
			return sendErr
		case n == 0:
			return sendErr
		}
		c.headerSent += n
	}

	for c.bodySent < len(c.body) {
		n, e := unix.Write(c.Fd, c.body[c.bodySent:])
		switch {
		case e == unix.EINTR:
			continue
		case e == unix.EAGAIN || e == unix.EWOULDBLOCK:
			return sendWouldBlock
		case e != nil:
			return sendErr
		case n == 0:
			return sendErr
		}
		c.bodySent += n
	}

	if c.hasFile {
		for c.file.offset < c.file.size {
			off := c.file.offset
			n, e := unix.Sendfile(c.Fd, c.file.fd, &off, int(c.file.size-c.file.offset))
			switch {
			case e == unix.EINTR:
				continue
			case e == unix.EAGAIN || e == unix.EWOULDBLOCK:
				return sendWouldBlock
			case e != nil:
				return sendErr
			case n == 0:
				return sendErr
			}
			c.file.offset = off
		}
	}

	return sendDone
}

// isExpectedDisconnect reports whether err is one of the disconnect
// errnos spec.md §7 says to log at warn instead of error, and close
// silently either way.
func isExpectedDisconnect(err error) bool {
	return err == unix.EPIPE || err == unix.ECONNRESET
}
