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

// Reason records why a connection was closed, purely for logging: it
// never changes teardown behavior, which is identical for every
// reason (spec.md §4.4 "Close").
type Reason int

const (
	ReasonNormal Reason = iota
	ReasonPeerClosed
	ReasonIOError
	ReasonTimeout
	ReasonProtocolError
)

func (r Reason) String() string {
	switch r {
	case ReasonPeerClosed:
		return "peer-closed"
	case ReasonIOError:
		return "io-error"
	case ReasonTimeout:
		return "timeout"
	case ReasonProtocolError:
		return "protocol-error"
	default:
		return "normal"
	}
}

// Closed reports whether Close has already torn this connection down.
// The worker checks this before dispatching an event to a Conn, so that
// one already closed by an earlier event in the same batch is skipped,
// and after a handler returns, to decide whether to queue the Conn for
// deferred release.
func (c *Conn) Closed() bool {
	return c.closed
}

// Close tears c down: cancels its timer, releases header nodes, closes
// the open file (if any) and the CGI child (if active, forcibly), then
// closes the client fd. It does not release the in-memory body and does
// not queue c for deferred release: the worker queues a Conn it finds
// closed after dispatching an event to it, so a Conn closed by its
// timeout handler is not queued. It is idempotent: a second Close is a
// no-op, since a connection can be observed failed from more than one
// event in the same readiness batch (spec.md §3 invariant: "R appears
// in the deferred-release queue at most once").
func (c *Conn) Close(reason Reason) {
	if c.closed {
		return
	}
	c.closed = true

	c.cancelTimer()
	c.parser.Reset()
	c.closeFileIfOpen()

	if c.cgi.active {
		c.killCGI()
	}

	if c.deps != nil && c.deps.Log != nil {
		c.deps.Log.Debug("closing connection", loggerFields(c, reason))
	}

	_ = unix.Close(c.Fd)
}

func loggerFields(c *Conn, reason Reason) map[string]interface{} {
	return map[string]interface{}{"fd": c.Fd, "reason": reason.String()}
}
