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

import "github.com/nabbar/zaver/poller"

// OnWritable drives the write path of spec.md §4.4: if a CGI response
// is in flight it defers to the CGI writable handler, otherwise it
// resumes trySend where the previous attempt would have blocked.
func (c *Conn) OnWritable() {
	c.cancelTimer()

	if c.cgi.active {
		c.onCGIWritable()
		return
	}

	switch c.trySend() {
	case sendDone:
		c.writing = false
		if c.keepAlive {
			c.compactAndResetForNextRequest()
			// Bytes from a pipelined next request may already sit in
			// the receive buffer; resume the read/parse loop directly
			// rather than only re-arming for read, since a fully
			// buffered next request would otherwise wait for an edge
			// that may never come.
			c.OnReadable()
			return
		}
		c.Close(ReasonNormal)

	case sendWouldBlock:
		c.armTimer(c.deps.RequestTimeoutMs, handleTimeout)
		if err := c.deps.Poller.Rearm(c.Fd, poller.Write); err != nil {
			c.Close(ReasonIOError)
		}

	default:
		c.Close(ReasonIOError)
	}
}
