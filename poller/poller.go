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

// Package poller wraps the Linux epoll(7) API as a single-threaded,
// edge-triggered, one-shot readiness multiplexer: one Poller per worker,
// never touched from more than one goroutine.
package poller

import (
	"golang.org/x/sys/unix"

	"github.com/nabbar/zaver/errors"
)

// Direction selects which readiness a registration or rearm cares
// about. A connection waiting on a CGI child's stdout, for instance,
// rearms for Read on that fd while leaving the client fd unarmed.
type Direction int

const (
	// Read arms EPOLLIN.
	Read Direction = 1 << iota
	// Write arms EPOLLOUT.
	Write
)

// DefaultMaxEvents bounds how many ready events Wait returns per call.
const DefaultMaxEvents = 256

// Registration is the caller-supplied context associated with a fd:
// Kind distinguishes what the fd is (client socket, CGI stdout, ...) so
// the dispatcher knows how to interpret Ready.Fd, and Owner is the
// connection or request object that fd belongs to.
type Registration struct {
	Kind  interface{}
	Owner interface{}
}

// Ready is one readiness notification returned by Wait.
type Ready struct {
	Fd       int
	Kind     interface{}
	Owner    interface{}
	Readable bool
	Writable bool
	// Err is set on EPOLLERR or EPOLLHUP; the caller should treat the
	// fd as failed regardless of Readable/Writable.
	Err bool
}

// Poller is one epoll instance. It is not safe for concurrent use.
type Poller struct {
	epfd int
	regs map[int]*Registration
	buf  []unix.EpollEvent
}

// New creates an epoll instance. maxEvents bounds the batch size Wait
// requests from the kernel per call; 0 or less selects
// DefaultMaxEvents.
func New(maxEvents int) (*Poller, errors.Error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}

	fd, e := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if e != nil {
		return nil, ErrorEpollCreate.Error(e)
	}

	return &Poller{
		epfd: fd,
		regs: make(map[int]*Registration),
		buf:  make([]unix.EpollEvent, maxEvents),
	}, nil
}

// Close releases the underlying epoll fd. Registered fds are not
// themselves closed; that remains the caller's responsibility.
func (p *Poller) Close() errors.Error {
	if e := unix.Close(p.epfd); e != nil {
		return ErrorEpollCtlDel.Error(e)
	}
	return nil
}

func eventsFor(dir Direction) uint32 {
	var ev uint32 = unix.EPOLLET | unix.EPOLLONESHOT
	if dir&Read != 0 {
		ev |= unix.EPOLLIN
	}
	if dir&Write != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Register associates fd with kind and owner and arms it,
// edge-triggered and one-shot, for dir. A fd already registered must
// go through Rearm, not a second Register.
func (p *Poller) Register(fd int, kind interface{}, owner interface{}, dir Direction) errors.Error {
	ev := &unix.EpollEvent{Events: eventsFor(dir)}
	ev.Fd = int32(fd)

	if e := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); e != nil {
		return ErrorEpollCtlAdd.Error(e)
	}

	p.regs[fd] = &Registration{Kind: kind, Owner: owner}
	return nil
}

// Rearm re-arms an already-registered fd for dir. Since registrations
// are one-shot, a handler must call Rearm exactly once after each
// delivered event for a fd it intends to keep open, for the direction
// it next cares about. Rearming an untouched fd, or rearming twice for
// one event, is a caller bug; Rearm does not detect either.
func (p *Poller) Rearm(fd int, dir Direction) errors.Error {
	if _, ok := p.regs[fd]; !ok {
		return ErrorUnknownFd.Error()
	}

	ev := &unix.EpollEvent{Events: eventsFor(dir)}
	ev.Fd = int32(fd)

	if e := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev); e != nil {
		return ErrorEpollCtlMod.Error(e)
	}
	return nil
}

// Unregister removes fd from the epoll set. It is called implicitly by
// closing fd (the kernel drops the registration on close), so callers
// normally only need this to drop a fd from the set before closing it
// themselves, e.g. when swapping which fd a connection is armed on.
func (p *Poller) Unregister(fd int) errors.Error {
	delete(p.regs, fd)

	if e := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); e != nil {
		return ErrorEpollCtlDel.Error(e)
	}
	return nil
}

// Wait blocks for up to timeoutMs milliseconds (-1 blocks indefinitely,
// 0 polls without blocking) and returns the batch of ready events. A
// signal interrupting the underlying epoll_wait is reported as an empty
// batch, not an error, matching the original server's EINTR handling.
func (p *Poller) Wait(timeoutMs int) ([]Ready, errors.Error) {
	n, e := unix.EpollWait(p.epfd, p.buf, timeoutMs)
	if e != nil {
		if e == unix.EINTR {
			return nil, nil
		}
		return nil, ErrorEpollWait.Error(e)
	}

	out := make([]Ready, 0, n)
	for i := 0; i < n; i++ {
		raw := p.buf[i]
		fd := int(raw.Fd)

		reg := p.regs[fd]
		r := Ready{
			Fd:       fd,
			Readable: raw.Events&unix.EPOLLIN != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
			Err:      raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
		if reg != nil {
			r.Kind = reg.Kind
			r.Owner = reg.Owner
		}
		out = append(out, r)
	}

	return out, nil
}
