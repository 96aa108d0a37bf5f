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

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/nabbar/zaver/poller"
	"github.com/nabbar/zaver/uri"
	"github.com/nabbar/zaver/wire"
)

// OnReadable drives the read/parse path of spec.md §4.4. It reads
// whatever is available, advances the request parser, and either
// loops for more pipelined requests, stages a response and hands off
// to trySend, or parks the connection waiting for more bytes or a
// write-ready event.
func (c *Conn) OnReadable() {
	c.cancelTimer()

	for {
		if c.parsePos == c.last {
			n, e := unix.Read(c.Fd, c.rbuf[c.last:len(c.rbuf)-1])
			switch {
			case e == unix.EINTR:
				continue
			case e == unix.EAGAIN || e == unix.EWOULDBLOCK:
				c.parkForMoreInput()
				return
			case e != nil:
				c.Close(ReasonIOError)
				return
			case n == 0:
				c.Close(ReasonPeerClosed)
				return
			}
			c.last += n
		}

		result, headEnd := c.parser.Parse(c.rbuf, c.last)

		switch result {
		case wire.Again:
			if c.last >= len(c.rbuf)-1 {
				c.stageError(500)
				c.keepAlive = false
				c.finishResponse()
				return
			}
			c.parsePos = c.last
			continue

		case wire.Error:
			c.parsePos = c.last
			c.stageError(400)
			c.finishResponse()
			return

		case wire.OK:
			c.parsePos = headEnd
			c.processHeaders()
			c.dispatchRequest(c.parser.Method, c.parser.URI)

			if c.cgi.active {
				return
			}
			if !c.finishResponse() {
				return
			}
			continue
		}
	}
}

// parkForMoreInput is reached when a read would block with no
// complete request buffered: re-arm for read, picking the timeout
// class described in spec.md §5 (idle between requests vs. mid-parse
// with bytes already buffered).
func (c *Conn) parkForMoreInput() {
	ms := c.deps.RequestTimeoutMs
	if c.parsePos == 0 && c.last == 0 {
		ms = c.deps.KeepAliveTimeoutMs
	}
	c.armTimer(ms, handleTimeout)

	if err := c.deps.Poller.Rearm(c.Fd, poller.Read); err != nil {
		c.Close(ReasonIOError)
	}
}

// processHeaders applies spec.md §4.4 step 3: keep-alive default by
// version, Connection: override, and If-Modified-Since parsing. Every
// other header is tokenized but otherwise ignored.
func (c *Conn) processHeaders() {
	headers := c.parser.Headers()

	def := wire.KeepAliveDefault(c.parser.Version)
	conn, present := wire.Find(headers, "Connection")
	c.keepAlive = wire.KeepAliveOverride(def, conn, present)

	if v, ok := wire.Find(headers, "If-Modified-Since"); ok {
		if t, ok := wire.ParseIfModifiedSince(v); ok {
			c.ifModSet = true
			c.ifModSince = t.Unix()
		}
	}
}

// dispatchRequest routes on URI prefix (spec.md §4.4 step 4): CGI
// scripts under /cgi-bin/, everything else through the static path.
func (c *Conn) dispatchRequest(method, target string) {
	rawPath, _ := uri.Split(target)

	if strings.HasPrefix(rawPath, "/cgi-bin/") {
		if method != "GET" {
			c.stageError(405)
			return
		}
		c.startCGI(target)
		return
	}

	c.prepareStatic(target)
}

// finishResponse drains the staged response via trySend and applies
// the post-response transition of spec.md §4.4 step 6. It returns
// true when the caller's read loop should continue parsing the next
// pipelined request, false once it has fully disposed of the
// connection for this turn (closed it, or parked it on a write
// event).
func (c *Conn) finishResponse() bool {
	switch c.trySend() {
	case sendDone:
		if c.keepAlive {
			c.compactAndResetForNextRequest()
			return true
		}
		c.Close(ReasonNormal)
		return false

	case sendWouldBlock:
		c.writing = true
		c.armTimer(c.deps.RequestTimeoutMs, handleTimeout)
		if err := c.deps.Poller.Rearm(c.Fd, poller.Write); err != nil {
			c.Close(ReasonIOError)
		}
		return false

	default:
		c.Close(ReasonIOError)
		return false
	}
}
