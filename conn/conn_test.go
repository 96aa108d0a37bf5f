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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/nabbar/zaver/poller"
	"github.com/nabbar/zaver/timer"
	"github.com/nabbar/zaver/wire"
)

func newTestDeps(t *testing.T, docroot string) *Deps {
	t.Helper()

	p, err := poller.New(16)
	require.Nil(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return &Deps{
		Poller:             p,
		Timers:             timer.New(),
		Headers:            wire.NewHeaderPool(64),
		Log:                nil,
		Docroot:            docroot,
		KeepAliveTimeoutMs: 5000,
		RequestTimeoutMs:   5000,
	}
}

// socketpair returns a connected pair of blocking Unix-domain stream
// sockets: sv[0] plays the accepted server fd handed to Conn.Open,
// sv[1] plays the remote client the test drives directly.
func socketpair(t *testing.T) (serverFd int, clientFd int) {
	t.Helper()

	fds, e := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, e)

	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})

	return fds[0], fds[1]
}

func writeAll(t *testing.T, fd int, data []byte) {
	t.Helper()
	for len(data) > 0 {
		n, e := unix.Write(fd, data)
		require.NoError(t, e)
		data = data[n:]
	}
}

// readAvailable reads whatever is immediately available on fd, waiting
// up to 2s for at least one byte, and returns once a read would block.
func readAvailable(t *testing.T, fd int) []byte {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	var out []byte
	buf := make([]byte, 4096)

	for {
		n, e := unix.Read(fd, buf)
		if e == unix.EAGAIN || e == unix.EWOULDBLOCK {
			if len(out) > 0 || time.Now().After(deadline) {
				return out
			}
			time.Sleep(5 * time.Millisecond)
			continue
		}
		require.NoError(t, e)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func openTestConn(t *testing.T, deps *Deps, serverFd int) *Conn {
	t.Helper()
	require.NoError(t, unix.SetNonblock(serverFd, true))

	c := &Conn{rbuf: make([]byte, DefaultBufferSize), parser: wire.NewParser(deps.Headers)}
	require.Nil(t, c.Open(deps, serverFd))
	return c
}

func TestStaticGET_200KeepAlive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello world"), 0644))

	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n"))
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 200 OK")
	require.Contains(t, resp, "Connection: keep-alive")
	require.Contains(t, resp, "Content-length: 11")
	require.Contains(t, resp, "hello world")
	require.False(t, c.Closed())
}

func TestStaticGET_404(t *testing.T) {
	dir := t.TempDir()
	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("GET /missing.html HTTP/1.1\r\n\r\n"))
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 404 Not Found")
	require.Contains(t, resp, "404: Not Found")
}

func TestStaticGET_403OnUnreadableMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.html")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0200))

	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("GET /secret.html HTTP/1.1\r\n\r\n"))
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 403 Forbidden")
}

func TestStaticGET_304OnIfModifiedSinceMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	info, e := os.Stat(path)
	require.NoError(t, e)
	lastMod := info.ModTime().UTC().Truncate(time.Second).Format(wire.TimeFormat)

	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	req := "GET /index.html HTTP/1.1\r\nIf-Modified-Since: " + lastMod + "\r\n\r\n"
	writeAll(t, clientFd, []byte(req))
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 304 Not Modified")
	require.NotContains(t, resp, "Content-length")
}

func TestPipeliningTwoRequestsInOneRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte("AAA"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.html"), []byte("BB"), 0644))

	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte(
		"GET /a.html HTTP/1.1\r\n\r\nGET /b.html HTTP/1.1\r\n\r\n",
	))
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "AAA")
	require.Contains(t, resp, "BB")
	require.Equal(t, 2, countSubstr(resp, "HTTP/1.1 200 OK"))
}

func countSubstr(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
			i += len(sub) - 1
		}
	}
	return count
}

func TestOversizedRequestLine_500AndClose(t *testing.T) {
	dir := t.TempDir()
	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	// A request line with no newline, larger than the receive buffer:
	// the parser can never leave PhaseRequestLine.
	oversized := make([]byte, DefaultBufferSize)
	for i := range oversized {
		oversized[i] = 'a'
	}
	writeAll(t, clientFd, oversized)
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 500 Internal Server Error")
	require.True(t, c.Closed())
}

func TestMalformedRequestLine_400(t *testing.T) {
	dir := t.TempDir()
	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("not a valid request line\r\n\r\n"))
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 400 Bad Request")
}

func TestConnectionCloseOverridesKeepAliveDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0644))

	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("GET /index.html HTTP/1.1\r\nConnection: close\r\n\r\n"))
	c.OnReadable()

	_ = readAvailable(t, clientFd)
	require.True(t, c.Closed())
}

func TestHTTP10DefaultsToClose(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0644))

	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("GET /index.html HTTP/1.0\r\n\r\n"))
	c.OnReadable()

	_ = readAvailable(t, clientFd)
	require.True(t, c.Closed())
}

func TestCGIDispatch_StreamsStatusAndBody(t *testing.T) {
	dir := t.TempDir()
	cgiDir := filepath.Join(dir, "cgi-bin")
	require.NoError(t, os.Mkdir(cgiDir, 0755))

	script := filepath.Join(cgiDir, "hello.cgi")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\nprintf 'Status: 200\\nContent-Type: text/plain\\n\\nhello-cgi'\n"), 0755))

	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("GET /cgi-bin/hello.cgi HTTP/1.1\r\n\r\n"))
	c.OnReadable()
	require.True(t, c.cgi.active)

	// Drive the CGI stdout and client-write handlers directly, as the
	// worker event loop would after observing poller readiness, until
	// the CGI child has been reaped and the connection closed.
	deadline := time.Now().Add(2 * time.Second)
	for !c.Closed() && time.Now().Before(deadline) {
		ready, err := deps.Poller.Wait(50)
		require.Nil(t, err)
		for _, r := range ready {
			switch r.Kind {
			case KindCGIOut:
				c.OnCGIOut()
			case KindConn:
				if r.Writable {
					c.OnWritable()
				}
			}
		}
	}

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 200 OK")
	require.Contains(t, resp, "Connection: close")
	require.Contains(t, resp, "hello-cgi")
	require.True(t, c.Closed())
}

func TestCGIDispatch_NonGetMethodRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "cgi-bin"), 0755))

	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("POST /cgi-bin/hello.cgi HTTP/1.1\r\n\r\n"))
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 405 Method Not Allowed")
}

func TestDotDotEscapeOutsideDocroot_403(t *testing.T) {
	dir := t.TempDir()
	deps := newTestDeps(t, dir)
	serverFd, clientFd := socketpair(t)
	require.NoError(t, unix.SetNonblock(clientFd, true))

	c := openTestConn(t, deps, serverFd)

	writeAll(t, clientFd, []byte("GET /../../../../etc/passwd HTTP/1.1\r\n\r\n"))
	c.OnReadable()

	resp := string(readAvailable(t, clientFd))
	require.Contains(t, resp, "HTTP/1.1 403 Forbidden")
}
