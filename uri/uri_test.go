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

package uri_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/zaver/uri"
)

func TestSplit(t *testing.T) {
	p, q := uri.Split("/foo/bar?a=1&b=2")
	require.Equal(t, "/foo/bar", p)
	require.Equal(t, "a=1&b=2", q)

	p, q = uri.Split("/foo/bar")
	require.Equal(t, "/foo/bar", p)
	require.Equal(t, "", q)
}

func TestDecode_Plain(t *testing.T) {
	s, err := uri.Decode("/foo/bar")
	require.Nil(t, err)
	require.Equal(t, "/foo/bar", s)
}

func TestDecode_PercentEscape(t *testing.T) {
	s, err := uri.Decode("/foo%20bar")
	require.Nil(t, err)
	require.Equal(t, "/foo bar", s)
}

func TestDecode_RejectsForbiddenBytes(t *testing.T) {
	cases := []string{"/foo%00bar", "/foo\\bar", "/foo%5Cbar", "/foo\rbar", "/foo%0Abar"}
	for _, c := range cases {
		_, err := uri.Decode(c)
		require.NotNil(t, err, c)
	}
}

func TestDecode_MalformedEscape(t *testing.T) {
	_, err := uri.Decode("/foo%2")
	require.NotNil(t, err)

	_, err = uri.Decode("/foo%zz")
	require.NotNil(t, err)
}

func TestNormalize_CollapsesSlashesAndDots(t *testing.T) {
	out, err := uri.Normalize("/foo//bar/./baz")
	require.Nil(t, err)
	require.Equal(t, "/foo/bar/baz", out)
}

func TestNormalize_DotDotPopsSegment(t *testing.T) {
	out, err := uri.Normalize("/foo/bar/../baz")
	require.Nil(t, err)
	require.Equal(t, "/foo/baz", out)
}

func TestNormalize_DotDotAtRootFails(t *testing.T) {
	_, err := uri.Normalize("/../etc/passwd")
	require.NotNil(t, err)
}

func TestNormalize_RequiresAbsolute(t *testing.T) {
	_, err := uri.Normalize("foo/bar")
	require.NotNil(t, err)
}

func TestNormalize_PreservesTrailingSlash(t *testing.T) {
	out, err := uri.Normalize("/foo/bar/")
	require.Nil(t, err)
	require.Equal(t, "/foo/bar/", out)
}

func TestApplyIndexHeuristic(t *testing.T) {
	require.Equal(t, "/index.html", uri.ApplyIndexHeuristic("/"))
	require.Equal(t, "/docs/index.html", uri.ApplyIndexHeuristic("/docs"))
	require.Equal(t, "/app.cgi", uri.ApplyIndexHeuristic("/app.cgi"))
	require.Equal(t, "/docs/index.html", uri.ApplyIndexHeuristic("/docs/"))
}

func TestMap_EndToEnd(t *testing.T) {
	m, err := uri.Map("/srv", "/docs/../index.html?x=1")
	require.Nil(t, err)
	require.Equal(t, "/index.html", m.Path)
	require.Equal(t, "x=1", m.Query)
	require.Equal(t, "/srv/index.html", m.FullPath)
}

func TestCheckContainment(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("hi"), 0644))

	require.Nil(t, uri.CheckContainment(root, filepath.Join(root, "index.html")))
	require.NotNil(t, uri.CheckContainment(root, filepath.Join(root, "..", "etc", "passwd")))
}

func TestMapScript_NoIndexHeuristic(t *testing.T) {
	m, err := uri.MapScript("/srv", "/cgi-bin/hello?name=world")
	require.Nil(t, err)
	require.Equal(t, "/cgi-bin/hello", m.Path)
	require.Equal(t, "name=world", m.Query)
	require.Equal(t, "/srv/cgi-bin/hello", m.FullPath)
}

func TestCheckContainment_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("s"), 0644))
	link := filepath.Join(root, "escape")
	require.NoError(t, os.Symlink(outside, link))

	require.NotNil(t, uri.CheckContainment(root, filepath.Join(link, "secret")))
}
