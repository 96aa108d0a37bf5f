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
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/nabbar/zaver/cgi"
	"github.com/nabbar/zaver/poller"
	"github.com/nabbar/zaver/uri"
)

// startCGI implements spec.md §4.5 "Start": validate the script path,
// fork the child, and register its stdout for read. Method has
// already been checked GET by the caller.
func (c *Conn) startCGI(target string) {
	mapped, err := uri.MapScript(c.deps.Docroot, target)
	if err != nil {
		c.stageError(403)
		c.finishResponse()
		return
	}

	// A '..' in the raw target could normalize to something outside
	// /cgi-bin/ even though the raw prefix matched.
	if !strings.HasPrefix(mapped.Path, "/cgi-bin/") {
		c.stageError(403)
		c.finishResponse()
		return
	}

	if err := uri.CheckContainment(c.deps.Docroot, mapped.FullPath); err != nil {
		c.stageError(403)
		c.finishResponse()
		return
	}

	info, e := os.Stat(mapped.FullPath)
	if e != nil || !info.Mode().IsRegular() || info.Mode()&0111 == 0 {
		c.stageError(404)
		c.finishResponse()
		return
	}

	proc, procErr := cgi.Start(mapped.FullPath, mapped.Path, mapped.Query)
	if procErr != nil {
		if c.deps.Log != nil {
			c.deps.Log.Error("cgi start failed", procErr)
		}
		c.stageError(500)
		c.finishResponse()
		return
	}

	c.keepAlive = false
	c.cgi = cgiState{
		active: true,
		proc:   proc,
		acc:    cgi.NewHeaderAccumulator(cgi.DefaultHeaderBufferSize),
		limit:  cgi.DefaultOutputLimit,
		body:   make([]byte, DefaultCGIBodyChunk),
	}

	if err := c.deps.Poller.Register(int(proc.Stdout.Fd()), KindCGIOut, c, poller.Read); err != nil {
		proc.Kill()
		_ = proc.Close()
		c.cgi = cgiState{}
		c.stageError(500)
		c.finishResponse()
		return
	}

	c.armTimer(c.deps.RequestTimeoutMs, handleTimeout)
}

// OnCGIOut implements spec.md §4.5 "CGI stdout readable". The worker
// loop dispatches here for a ready event whose Kind is KindCGIOut.
func (c *Conn) OnCGIOut() {
	c.cancelTimer()

	if c.cgi.bodySent < c.cgi.bodyLen {
		// Backpressure still held; the client-writable handler is
		// responsible for re-arming this fd once it drains the
		// current chunk, so this shouldn't normally fire armed.
		c.armTimer(c.deps.RequestTimeoutMs, handleTimeout)
		if err := c.deps.Poller.Rearm(int(c.cgi.proc.Stdout.Fd()), poller.Read); err != nil {
			c.abortCGI(ReasonIOError)
		}
		return
	}

readLoop:
	for {
		n, e := unix.Read(int(c.cgi.proc.Stdout.Fd()), c.cgi.body)
		switch {
		case e == unix.EINTR:
			continue readLoop
		case e == unix.EAGAIN || e == unix.EWOULDBLOCK:
			c.armTimer(c.deps.RequestTimeoutMs, handleTimeout)
			if err := c.deps.Poller.Rearm(int(c.cgi.proc.Stdout.Fd()), poller.Read); err != nil {
				c.abortCGI(ReasonIOError)
			}
			return
		case e != nil:
			c.abortCGI(ReasonIOError)
			return
		case n == 0:
			c.cgi.eof = true
			_ = c.cgi.proc.Close()
		}

		if n > 0 {
			c.cgi.cumulative += n
			if c.cgi.cumulative > c.cgi.limit {
				c.abortCGI(ReasonProtocolError)
				return
			}
		}

		if !c.cgi.headersDone {
			if c.cgi.eof {
				// Child exited before emitting a terminator: no
				// well-formed response was ever produced.
				c.abortCGI(ReasonProtocolError)
				return
			}

			done, header, trailing, ferr := c.cgi.acc.Feed(c.cgi.body[:n])
			if ferr != nil {
				c.abortCGI(ReasonProtocolError)
				return
			}
			if !done {
				continue readLoop
			}

			status, contentType := cgi.ParseHeaderBlock(header)
			c.cgi.respHeader = cgi.BuildResponseHeader(status, contentType)
			c.cgi.respSent = 0
			c.cgi.headersDone = true
			c.cgi.bodyLen = copy(c.cgi.body, trailing)
			c.cgi.bodySent = 0
		} else {
			c.cgi.bodyLen = n
			c.cgi.bodySent = 0
		}

		break readLoop
	}

	c.armTimer(c.deps.RequestTimeoutMs, handleTimeout)
	if err := c.deps.Poller.Rearm(c.Fd, poller.Write); err != nil {
		c.abortCGI(ReasonIOError)
	}
}

// trySendCGI writes (response header [sent..], body [sent..]) to the
// client, mirroring trySend's EINTR/EAGAIN semantics. It returns -1 on
// a terminal error, 0 once everything drained and the CGI child is at
// EOF, 1 on would-block, 2 when the current chunk drained but the CGI
// child has not yet reached EOF.
func (c *Conn) trySendCGI() (int, error) {
	for c.cgi.respSent < len(c.cgi.respHeader) {
		n, e := unix.Write(c.Fd, c.cgi.respHeader[c.cgi.respSent:])
		switch {
		case e == unix.EINTR:
			continue
		case e == unix.EAGAIN || e == unix.EWOULDBLOCK:
			return 1, nil
		case e != nil:
			return -1, e
		case n == 0:
			return -1, nil
		}
		c.cgi.respSent += n
	}

	for c.cgi.bodySent < c.cgi.bodyLen {
		n, e := unix.Write(c.Fd, c.cgi.body[c.cgi.bodySent:c.cgi.bodyLen])
		switch {
		case e == unix.EINTR:
			continue
		case e == unix.EAGAIN || e == unix.EWOULDBLOCK:
			return 1, nil
		case e != nil:
			return -1, e
		case n == 0:
			return -1, nil
		}
		c.cgi.bodySent += n
	}

	if c.cgi.eof {
		return 0, nil
	}
	return 2, nil
}

// onCGIWritable implements spec.md §4.5 "CGI client writable".
func (c *Conn) onCGIWritable() {
	c.cancelTimer()

	code, err := c.trySendCGI()
	switch code {
	case 0:
		c.killCGI()
		c.Close(ReasonNormal)

	case 1:
		c.armTimer(c.deps.RequestTimeoutMs, handleTimeout)
		if rerr := c.deps.Poller.Rearm(c.Fd, poller.Write); rerr != nil {
			c.abortCGI(ReasonIOError)
		}

	case 2:
		c.cgi.bodyLen = 0
		c.cgi.bodySent = 0
		c.armTimer(c.deps.RequestTimeoutMs, handleTimeout)
		if rerr := c.deps.Poller.Rearm(int(c.cgi.proc.Stdout.Fd()), poller.Read); rerr != nil {
			c.abortCGI(ReasonIOError)
		}

	default:
		reason := ReasonIOError
		if isExpectedDisconnect(err) {
			reason = ReasonPeerClosed
		}
		c.abortCGI(reason)
	}
}

// abortCGI tears down the CGI child and pipes. If no response bytes
// have reached the client yet, it substitutes a 500 error response
// instead of a bare close; otherwise the client has already received
// a partial response and the connection is simply closed.
func (c *Conn) abortCGI(reason Reason) {
	committed := c.cgi.respSent > 0
	c.killCGI()

	if !committed {
		c.stageError(500)
		c.finishResponse()
		return
	}
	c.Close(reason)
}

// killCGI forcibly kills and reaps the CGI child, unregisters and
// closes its stdout pipe, and clears the connection's CGI sub-state,
// matching spec.md §4.5 "CGI child reap and cleanup".
func (c *Conn) killCGI() {
	if c.cgi.proc == nil {
		return
	}

	fd := int(c.cgi.proc.Stdout.Fd())
	c.cgi.proc.Kill()
	if c.deps != nil {
		_ = c.deps.Poller.Unregister(fd)
	}
	_ = c.cgi.proc.Close()
	c.cgi = cgiState{}
}
