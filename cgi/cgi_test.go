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

package cgi_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/zaver/cgi"
)

func TestEnv(t *testing.T) {
	env := cgi.Env("/cgi-bin/hello.cgi", "/srv/cgi-bin/hello.cgi", "a=1")
	require.Contains(t, env, "GATEWAY_INTERFACE=CGI/1.1")
	require.Contains(t, env, "SERVER_PROTOCOL=HTTP/1.1")
	require.Contains(t, env, "SERVER_SOFTWARE=Zaver")
	require.Contains(t, env, "REQUEST_METHOD=GET")
	require.Contains(t, env, "QUERY_STRING=a=1")
	require.Contains(t, env, "SCRIPT_NAME=/cgi-bin/hello.cgi")
	require.Contains(t, env, "SCRIPT_FILENAME=/srv/cgi-bin/hello.cgi")
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "script.cgi")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestStart_StreamsStdout(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "printf 'Status: 200\\nContent-Type: text/plain\\n\\nhello'\n")

	p, err := cgi.Start(path, "/cgi-bin/script.cgi", "")
	require.Nil(t, err)
	defer p.Close()

	buf := make([]byte, 256)
	var got []byte
	for {
		n, e := p.Stdout.Read(buf)
		got = append(got, buf[:n]...)
		if e != nil {
			break
		}
		if n == 0 {
			break
		}
	}

	require.Contains(t, string(got), "hello")
	p.Reap()
}

func TestStart_MissingScriptFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notfound.cgi")

	_, err := cgi.Start(path, "/cgi-bin/notfound.cgi", "")
	require.NotNil(t, err)
}

func TestKill_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "sleep 5\n")

	p, err := cgi.Start(path, "/cgi-bin/script.cgi", "")
	require.Nil(t, err)
	defer p.Close()

	p.Kill()
	p.Kill()
}

func TestHeaderAccumulator_FindsLFLFTerminator(t *testing.T) {
	h := cgi.NewHeaderAccumulator(64)
	done, header, trailing, err := h.Feed([]byte("Status: 200\nContent-Type: text/plain\n\nbody-start"))
	require.Nil(t, err)
	require.True(t, done)
	require.Equal(t, "Status: 200\nContent-Type: text/plain", string(header))
	require.Equal(t, "body-start", string(trailing))
}

func TestHeaderAccumulator_FindsCRLFCRLFTerminator(t *testing.T) {
	h := cgi.NewHeaderAccumulator(64)
	done, header, trailing, err := h.Feed([]byte("Status: 404\r\n\r\nbody"))
	require.Nil(t, err)
	require.True(t, done)
	require.Equal(t, "Status: 404", string(header))
	require.Equal(t, "body", string(trailing))
}

func TestHeaderAccumulator_IncompleteAcrossCalls(t *testing.T) {
	h := cgi.NewHeaderAccumulator(64)
	done, _, _, err := h.Feed([]byte("Status: 200\n"))
	require.Nil(t, err)
	require.False(t, done)

	done, header, trailing, err := h.Feed([]byte("\nhi"))
	require.Nil(t, err)
	require.True(t, done)
	require.Equal(t, "Status: 200", string(header))
	require.Equal(t, "hi", string(trailing))
}

func TestHeaderAccumulator_OverflowsWithoutTerminator(t *testing.T) {
	h := cgi.NewHeaderAccumulator(8)
	_, _, _, err := h.Feed([]byte("0123456789"))
	require.NotNil(t, err)
}

func TestParseHeaderBlock_Defaults(t *testing.T) {
	status, ct := cgi.ParseHeaderBlock([]byte(""))
	require.Equal(t, 200, status)
	require.Equal(t, "text/plain", ct)
}

func TestParseHeaderBlock_StatusAndContentType(t *testing.T) {
	status, ct := cgi.ParseHeaderBlock([]byte("Status: 404 Not Found\r\nContent-Type: application/json\r\n"))
	require.Equal(t, 404, status)
	require.Equal(t, "application/json", ct)
}

func TestParseHeaderBlock_OutOfRangeStatusIgnored(t *testing.T) {
	status, _ := cgi.ParseHeaderBlock([]byte("Status: 999\n"))
	require.Equal(t, 200, status)
}

func TestBuildResponseHeader(t *testing.T) {
	out := string(cgi.BuildResponseHeader(404, ""))
	require.Contains(t, out, "HTTP/1.1 404 Not Found\r\n")
	require.Contains(t, out, "Server: Zaver\r\n")
	require.Contains(t, out, "Connection: close\r\n")
	require.Contains(t, out, "Content-Type: text/plain\r\n")
	require.True(t, len(out) > 4 && out[len(out)-4:] == "\r\n\r\n")
}
