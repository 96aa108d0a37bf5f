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

// Package conn is the per-connection state machine: request parsing
// progress, response output staging, keep-alive policy and CGI
// sub-state for one client socket (spec.md §3/§4.4). One *Conn is
// created per accept() and reused, via pool, across successive
// keep-alive requests on the same socket and across successive
// connections after close.
package conn

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/nabbar/zaver/cgi"
	"github.com/nabbar/zaver/errors"
	"github.com/nabbar/zaver/logger"
	"github.com/nabbar/zaver/pool"
	"github.com/nabbar/zaver/poller"
	"github.com/nabbar/zaver/timer"
	"github.com/nabbar/zaver/wire"
)

// Kind distinguishes which of a connection's fds an event belongs to,
// so the worker's dispatcher in the poller batch knows which handler
// to invoke (spec.md §3 "Event item").
type Kind int

const (
	KindListen Kind = iota
	KindConn
	KindCGIOut
	KindCGIIn
)

// DefaultBufferSize is the fixed capacity of a connection's receive
// buffer.
const DefaultBufferSize = 8192

// DefaultCGIBodyChunk bounds both the CGI stdout read chunk and the
// client-write chunk drawn from it, matching the backpressure gate in
// spec.md §4.5.
const DefaultCGIBodyChunk = 8192

// Deps bundles the collaborators one worker shares, read-only, across
// every Conn it owns: the poller, timer wheel, header-node pool and
// worker-wide settings. Passing it explicitly (rather than package
// globals) keeps per-worker state out of shared mutable variables, per
// spec.md §9 "Global mutable state".
type Deps struct {
	Poller             *poller.Poller
	Timers             *timer.Wheel
	Headers            *pool.Pool[wire.Header]
	Log                logger.Logger
	Docroot            string
	KeepAliveTimeoutMs int
	RequestTimeoutMs   int
}

type fileStage struct {
	handle *os.File
	fd     int
	offset int64
	size   int64
}

type cgiState struct {
	active      bool
	proc        *cgi.Process
	acc         *cgi.HeaderAccumulator
	headersDone bool

	respHeader []byte
	respSent   int

	body     []byte
	bodyLen  int
	bodySent int

	cumulative int
	limit      int
	eof        bool
}

// Conn is one live (or pooled-but-idle) client connection.
type Conn struct {
	deps *Deps

	Fd int

	rbuf     []byte
	last     int
	parsePos int

	parser *wire.Parser

	keepAlive  bool
	ifModSet   bool
	ifModSince int64 // Unix seconds, UTC

	headerBuf  []byte
	headerSent int

	body     []byte
	bodySent int

	file    fileStage
	hasFile bool

	writing bool

	cgi cgiState

	timerHandle *timer.Handle

	closed bool
}

// NewPool returns the process-local free list a worker draws Conn
// blocks from, capped at maxFree (0 selects pool.DefaultMaxFree).
// headerPool backs every Conn's request parser.
func NewPool(maxFree int, headerPool *pool.Pool[wire.Header]) *pool.Pool[Conn] {
	return pool.NewPool(maxFree, func() *Conn {
		return &Conn{
			rbuf:   make([]byte, DefaultBufferSize),
			parser: wire.NewParser(headerPool),
		}
	})
}

// PrepareSocket sets an accepted socket non-blocking and disables
// Nagle's algorithm, matching the accept path's first two steps in
// spec.md §4.4.
func PrepareSocket(fd int) errors.Error {
	if e := unix.SetNonblock(fd, true); e != nil {
		return ErrorSetNonblock.Error(e)
	}
	if e := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); e != nil {
		return ErrorSetNodelay.Error(e)
	}
	return nil
}

// Open initializes c for a freshly accepted fd, registers it with the
// poller for read and arms the initial keep-alive idle timer,
// completing the accept path of spec.md §4.4.
func (c *Conn) Open(deps *Deps, fd int) errors.Error {
	c.resetForAccept(deps, fd)

	if err := deps.Poller.Register(fd, KindConn, c, poller.Read); err != nil {
		return ErrorPollerRegister.Error(err)
	}

	c.armTimer(deps.KeepAliveTimeoutMs, handleTimeout)
	return nil
}

func (c *Conn) resetForAccept(deps *Deps, fd int) {
	c.deps = deps
	c.Fd = fd
	c.last = 0
	c.parsePos = 0
	c.parser.Reset()
	c.resetRequestState()
	c.timerHandle = nil
	c.closed = false
}

// resetRequestState clears everything scoped to one request/response
// cycle, shared by the fresh-accept path and by keep-alive reuse
// between pipelined/successive requests on the same socket.
func (c *Conn) resetRequestState() {
	c.keepAlive = false
	c.ifModSet = false
	c.ifModSince = 0
	c.headerBuf = c.headerBuf[:0]
	c.headerSent = 0
	c.body = c.body[:0]
	c.bodySent = 0
	c.closeFileIfOpen()
	c.hasFile = false
	c.file = fileStage{}
	c.writing = false
	c.cgi = cgiState{}
}

func (c *Conn) closeFileIfOpen() {
	if c.hasFile && c.file.handle != nil {
		_ = c.file.handle.Close()
	}
}

// compactAndResetForNextRequest implements spec.md §3's pipelining
// invariant: receive-buffer bytes [parsePos, last) are moved to
// [0, last-parsePos) and parser state is reset for the next request
// on the same keep-alive socket.
func (c *Conn) compactAndResetForNextRequest() {
	remaining := c.last - c.parsePos
	copy(c.rbuf[0:remaining], c.rbuf[c.parsePos:c.last])
	c.last = remaining
	c.parsePos = 0
	c.parser.Reset()
	c.resetRequestState()
}

func (c *Conn) cancelTimer() {
	if c.deps != nil {
		c.deps.Timers.Cancel(c.timerHandle)
	}
}

func (c *Conn) armTimer(ms int, handler timer.Handler) {
	c.timerHandle = c.deps.Timers.Arm(c.timerHandle, ms, handler, c)
}

func handleTimeout(payload interface{}) {
	c := payload.(*Conn)
	c.Close(ReasonTimeout)
}
