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

// Package cgi runs a CGI/1.1 script as a child process and streams its
// stdout back to the caller. It does not itself drive an event loop or
// own response buffers; conn wires a Process's stdout fd into the
// poller and owns the backpressure/body-staging state described in
// spec.md's connection state machine.
package cgi

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nabbar/zaver/errors"
)

// Process is one running (or exited) CGI child.
type Process struct {
	Pid int

	// Stdout is the read end of the child's stdout pipe, set
	// non-blocking and close-on-exec in the parent. The caller
	// registers it with a poller.
	Stdout *os.File

	reaped bool
}

// Env builds the fixed CGI/1.1 environment described in spec.md §4.5.
// scriptName is the URI path (before the query string); scriptFilename
// is the script's absolute filesystem path; queryString is passed
// through verbatim.
func Env(scriptName, scriptFilename, queryString string) []string {
	return []string{
		"GATEWAY_INTERFACE=CGI/1.1",
		"SERVER_PROTOCOL=HTTP/1.1",
		"SERVER_SOFTWARE=Zaver",
		"REQUEST_METHOD=GET",
		"QUERY_STRING=" + queryString,
		"SCRIPT_NAME=" + scriptName,
		"SCRIPT_FILENAME=" + scriptFilename,
	}
}

// Start forks scriptFilename as a CGI child. It creates the stdin and
// stdout pipes, starts the process with the child's fd 0 and 1 dup'd
// onto the pipe ends (os.StartProcess does the fork+dup2+execve), then
// in the parent closes the pipe ends the child owns and immediately
// closes the stdin pipe's write end, signaling EOF to the child, since
// the GET-only core never writes a request body to CGI stdin.
//
// Unlike the original implementation, a failed execve in the child
// does not need an explicit `exit(127)`: os.StartProcess's own exec
// error pipe reports the failure back to the caller as an error, and
// no half-started child is left behind.
func Start(scriptFilename, scriptName, queryString string) (*Process, errors.Error) {
	stdinR, stdinW, e := os.Pipe()
	if e != nil {
		return nil, ErrorPipeCreate.Error(e)
	}
	stdoutR, stdoutW, e := os.Pipe()
	if e != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()
		return nil, ErrorPipeCreate.Error(e)
	}

	proc, e := os.StartProcess(scriptFilename, []string{scriptFilename}, &os.ProcAttr{
		Env:   Env(scriptName, scriptFilename, queryString),
		Files: []*os.File{stdinR, stdoutW, os.Stderr},
	})

	_ = stdinR.Close()
	_ = stdoutW.Close()

	if e != nil {
		_ = stdinW.Close()
		_ = stdoutR.Close()
		return nil, ErrorStartProcess.Error(e)
	}

	_ = stdinW.Close()

	if err := setNonblockingCloexec(stdoutR); err != nil {
		_ = stdoutR.Close()
		_ = proc.Kill()
		_, _ = proc.Wait()
		return nil, err
	}

	return &Process{Pid: proc.Pid, Stdout: stdoutR}, nil
}

func setNonblockingCloexec(f *os.File) errors.Error {
	fd := int(f.Fd())
	if e := unix.SetNonblock(fd, true); e != nil {
		return ErrorNonblockingStdout.Error(e)
	}
	if _, e := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); e != nil {
		return ErrorNonblockingStdout.Error(e)
	}
	return nil
}

// Kill sends SIGKILL to the child and reaps it without blocking. It is
// used on every abnormal cleanup path (timeout, client error, header
// overflow, output-limit exceeded): the caller is not waiting for the
// child's natural exit. A child that has already exited is a silent
// no-op.
func (p *Process) Kill() {
	if p.reaped {
		return
	}
	_ = syscall.Kill(p.Pid, syscall.SIGKILL)
	p.Reap()
}

// Reap performs a non-blocking waitpid for the child. It returns true
// once the child has been collected (this call or a previous one).
func (p *Process) Reap() bool {
	if p.reaped {
		return true
	}

	var ws syscall.WaitStatus
	pid, e := syscall.Wait4(p.Pid, &ws, syscall.WNOHANG, nil)
	if pid == p.Pid || e != nil {
		p.reaped = true
	}
	return p.reaped
}

// Close closes the stdout pipe fd. The caller is responsible for
// unregistering it from any poller first.
func (p *Process) Close() error {
	return p.Stdout.Close()
}

func (p *Process) String() string {
	return fmt.Sprintf("cgi[pid=%d]", p.Pid)
}
