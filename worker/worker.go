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

// Package worker runs one worker process's event loop: it owns a
// listening socket bound with SO_REUSEPORT, accepts connections onto
// it, and drives every accepted *conn.Conn and its CGI children
// through a single-threaded, edge-triggered epoll loop (spec.md §4.7).
// One Worker corresponds to one OS process; a worker never shares
// state with another worker except through the kernel's port-reuse
// accept balancing.
package worker

import (
	"runtime"

	"golang.org/x/sys/unix"

	atom "github.com/nabbar/zaver/atomic"
	"github.com/nabbar/zaver/conn"
	"github.com/nabbar/zaver/errors"
	"github.com/nabbar/zaver/logger"
	"github.com/nabbar/zaver/pool"
	"github.com/nabbar/zaver/poller"
	"github.com/nabbar/zaver/procsig"
	"github.com/nabbar/zaver/timer"
	"github.com/nabbar/zaver/wire"
)

// DefaultMaxEvents bounds epoll's per-Wait batch size.
const DefaultMaxEvents = poller.DefaultMaxEvents

// Config is everything one worker needs to bind its own listening
// socket and run, resolved by the caller (master.Master when it runs a
// single worker in-process, or cmd/zaver in a re-exec'd worker process)
// from the process-wide config.Config.
type Config struct {
	ID                 int
	Port               int
	Docroot            string
	CPUAffinity        bool
	CPUIndex           int // used only when CPUAffinity is set
	KeepAliveTimeoutMs int
	RequestTimeoutMs   int
	MaxFreeConns       int
	MaxFreeHeaders     int
	Log                logger.Logger
}

// Worker is one worker process's event loop state.
type Worker struct {
	cfg      Config
	listenFd int

	poller   *poller.Poller
	timers   *timer.Wheel
	deps     *conn.Deps
	connPool *pool.Pool[conn.Conn]
	deferred *pool.Deferred[conn.Conn]

	running atom.Value[bool]
	stop    atom.Value[bool]
}

// New builds a Worker bound to its listening socket but does not yet
// run its event loop; call Run to start it.
func New(cfg Config) (*Worker, errors.Error) {
	fd, err := openListener(cfg.Port)
	if err != nil {
		return nil, err
	}

	p, err := poller.New(DefaultMaxEvents)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	headerPool := wire.NewHeaderPool(cfg.MaxFreeHeaders)
	connPool := conn.NewPool(cfg.MaxFreeConns, headerPool)

	w := &Worker{
		cfg:      cfg,
		listenFd: fd,
		poller:   p,
		timers:   timer.New(),
		connPool: connPool,
		deferred: pool.NewDeferred(connPool),
		running:  atom.NewValue[bool](),
		stop:     atom.NewValue[bool](),
	}

	w.deps = &conn.Deps{
		Poller:             p,
		Timers:             w.timers,
		Headers:            headerPool,
		Log:                cfg.Log,
		Docroot:            cfg.Docroot,
		KeepAliveTimeoutMs: cfg.KeepAliveTimeoutMs,
		RequestTimeoutMs:   cfg.RequestTimeoutMs,
	}

	return w, nil
}

// IsRunning reports whether Run's loop is currently executing.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// Stop requests the loop started by Run to exit at its next iteration
// (spec.md §5 "the stop flag is checked at loop top; in-flight
// handlers finish their current syscall").
func (w *Worker) Stop() {
	w.stop.Store(true)
}

// Run installs the shared SIGINT/SIGTERM/SIGPIPE handling, optionally
// pins the process to a CPU, registers the listening socket, and
// drives the event loop until Stop is called or a signal arrives. It
// returns once the loop has exited and every resource it owns has
// been released.
func (w *Worker) Run() errors.Error {
	cancel := procsig.Install(w.Stop)
	defer cancel()

	if w.cfg.CPUAffinity {
		runtime.LockOSThread()
		if err := pinToCPU(w.cfg.CPUIndex); err != nil {
			if w.cfg.Log != nil {
				w.cfg.Log.Warn("cpu affinity not applied", logger.Fields{"err": err.Error()})
			}
		}
	}

	if err := w.poller.Register(w.listenFd, conn.KindListen, nil, poller.Read); err != nil {
		_ = unix.Close(w.listenFd)
		return err
	}

	w.running.Store(true)
	defer w.running.Store(false)

	for !w.stop.Load() {
		timeout := w.timers.NextTimeout()

		batch, err := w.poller.Wait(timeout)
		if err != nil {
			if w.cfg.Log != nil {
				w.cfg.Log.Error("poller wait failed", err)
			}
			break
		}

		for _, r := range batch {
			w.dispatch(r)
		}

		w.timers.RunExpired()
		w.deferred.Flush()
	}

	_ = unix.Close(w.listenFd)
	return nil
}

// dispatch routes one ready event to its handler by Kind, matching
// spec.md §4.7 step 3.
func (w *Worker) dispatch(r poller.Ready) {
	switch r.Kind {
	case conn.KindListen:
		w.acceptLoop()

	case conn.KindConn:
		c, ok := r.Owner.(*conn.Conn)
		if !ok || c.Closed() {
			return
		}
		w.dispatchConn(c, r)

	case conn.KindCGIOut:
		c, ok := r.Owner.(*conn.Conn)
		if !ok || c.Closed() {
			return
		}
		c.OnCGIOut()
		if c.Closed() {
			w.deferred.Defer(c)
		}

	case conn.KindCGIIn:
		// Reserved but unused by the GET-only core (spec.md §3); the
		// parent never registers this fd with the poller.
	}
}

// dispatchConn handles one conn-kind event: hangup/error first (spec.md
// §4.7 "Error event handling"), then readable, then writable. A
// connection that Close()s itself mid-dispatch is deferred for release
// rather than returned to the pool immediately, since it may still
// appear again later in the same batch (spec.md §3 invariant).
func (w *Worker) dispatchConn(c *conn.Conn, r poller.Ready) {
	if r.Err {
		w.logSocketError(c)
		c.Close(conn.ReasonIOError)
		w.deferred.Defer(c)
		return
	}

	if r.Readable {
		c.OnReadable()
	}
	if !c.Closed() && r.Writable {
		c.OnWritable()
	}
	if c.Closed() {
		w.deferred.Defer(c)
	}
}

// logSocketError reads SO_ERROR off the connection's fd and logs at
// debug for an expected disconnect errno, else at error (spec.md
// §4.7's "Error event handling").
func (w *Worker) logSocketError(c *conn.Conn) {
	if w.cfg.Log == nil {
		return
	}

	errno, e := unix.GetsockoptInt(c.Fd, unix.SOL_SOCKET, unix.SO_ERROR)
	fields := logger.Fields{"fd": c.Fd}

	if e != nil || errno == 0 || unix.Errno(errno) == unix.EPIPE || unix.Errno(errno) == unix.ECONNRESET {
		w.cfg.Log.Debug("connection error event", fields)
		return
	}

	w.cfg.Log.Error("connection error event", unix.Errno(errno), fields)
}

// pinToCPU pins the calling OS thread (and, for a single-threaded
// worker process, the whole process) to one CPU, chosen as
// index % runtime.NumCPU(), matching the original's
// "worker_id % available_cpus" placement (spec.md §4.7).
func pinToCPU(index int) errors.Error {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(((index % n) + n) % n)

	if e := unix.SchedSetaffinity(0, &set); e != nil {
		return ErrorSchedAffinity.Error(e)
	}
	return nil
}
