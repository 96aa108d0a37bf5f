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

// Package uri maps a raw request-target into a filesystem path confined
// to a docroot: split query string, percent-decode, normalize dot
// segments, apply the index.html heuristic, then verify containment
// against the docroot's real (symlink-resolved) path.
package uri

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nabbar/zaver/errors"
)

// Mapped is the result of mapping a request-target to a filesystem
// path.
type Mapped struct {
	// Path is the normalized, absolute URI path (no query string),
	// after the index.html heuristic has been applied.
	Path string
	// Query is everything after the '?', unescaped exactly as
	// received (CGI QUERY_STRING is passed through verbatim).
	Query string
	// FullPath is Docroot joined with Path.
	FullPath string
}

// Split separates the raw request-target into its path and query
// parts at the first '?'.
func Split(target string) (path string, query string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// Decode percent-decodes s and rejects NUL, backslash, CR and LF in
// the result, matching the original server's forbidden-byte check on
// the decoded path (not the raw, still-escaped one).
func Decode(s string) (string, errors.Error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			if err := checkByte(c); err != nil {
				return "", err
			}
			b.WriteByte(c)
			continue
		}

		if i+2 >= len(s) {
			return "", ErrorBadEscape.Error()
		}
		v, e := strconv.ParseUint(s[i+1:i+3], 16, 8)
		if e != nil {
			return "", ErrorBadEscape.Error(e)
		}
		i += 2

		if err := checkByte(byte(v)); err != nil {
			return "", err
		}
		b.WriteByte(byte(v))
	}

	return b.String(), nil
}

func checkByte(c byte) errors.Error {
	switch c {
	case 0, '\\', '\r', '\n':
		return ErrorForbiddenByte.Error()
	}
	return nil
}

// Normalize collapses a decoded absolute path: runs of '/' collapse to
// one, '.' segments are dropped, and '..' pops the previous segment,
// failing if there is nothing to pop. A trailing '/' on the input is
// preserved on the output.
func Normalize(path string) (string, errors.Error) {
	if len(path) == 0 || path[0] != '/' {
		return "", ErrorNotAbsolute.Error()
	}

	trailingSlash := path[len(path)-1] == '/'

	var stack []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", ErrorDotDotAtRoot.Error()
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}

	out := "/" + strings.Join(stack, "/")
	if trailingSlash && out != "/" {
		out += "/"
	}
	return out, nil
}

// hasDotInLastSegment reports whether path's final path segment
// contains a '.', used by the index.html heuristic below.
func hasDotInLastSegment(path string) bool {
	i := strings.LastIndexByte(path, '/')
	return strings.IndexByte(path[i+1:], '.') >= 0
}

// ApplyIndexHeuristic appends "index.html" to a normalized path that
// ends in '/', or whose last segment has no '.', exactly as the
// original mapping does. This is a deliberate heuristic, not a
// filesystem check: it rewrites "/foo" to "/foo/index.html" even when
// "/foo" is itself a regular file.
func ApplyIndexHeuristic(path string) string {
	if path == "" {
		path = "/"
	}

	if path[len(path)-1] == '/' {
		return path + "index.html"
	}
	if !hasDotInLastSegment(path) {
		return path + "/index.html"
	}
	return path
}

// Map runs the full pipeline described in Split/Decode/Normalize/
// ApplyIndexHeuristic against a raw request-target, then resolves
// FullPath against docroot. It does not itself verify containment;
// call CheckContainment with the result once the target is known to
// exist, since containment requires a real filesystem resolution.
func Map(docroot string, target string) (Mapped, errors.Error) {
	rawPath, query := Split(target)

	decoded, err := Decode(rawPath)
	if err != nil {
		return Mapped{}, err
	}

	normalized, err := Normalize(decoded)
	if err != nil {
		return Mapped{}, err
	}

	final := ApplyIndexHeuristic(normalized)

	full := strings.TrimRight(docroot, "/") + final

	return Mapped{Path: final, Query: query, FullPath: full}, nil
}

// MapScript runs Split/Decode/Normalize against a raw request-target
// the same way Map does, but without the index.html heuristic: a CGI
// script name like "/cgi-bin/hello" has no '.' in its last segment,
// and the heuristic would otherwise rewrite it to
// "/cgi-bin/hello/index.html", which is never what spec.md §4.5's CGI
// dispatch wants. Containment still needs a separate CheckContainment
// call once the target's existence is known.
func MapScript(docroot string, target string) (Mapped, errors.Error) {
	rawPath, query := Split(target)

	decoded, err := Decode(rawPath)
	if err != nil {
		return Mapped{}, err
	}

	normalized, err := Normalize(decoded)
	if err != nil {
		return Mapped{}, err
	}

	full := strings.TrimRight(docroot, "/") + normalized

	return Mapped{Path: normalized, Query: query, FullPath: full}, nil
}

// CheckContainment resolves both docroot and fullPath to their real,
// symlink-free filesystem paths and requires the target's real path to
// equal docroot's real path or be nested under it. Any failure to
// resolve either path, or an escape, reports ErrorOutsideDocroot: the
// caller maps that uniformly to 403, matching the original server's
// realpath-based check.
func CheckContainment(docroot string, fullPath string) errors.Error {
	rootReal, e := filepath.EvalSymlinks(docroot)
	if e != nil {
		return ErrorOutsideDocroot.Error(e)
	}

	targetReal, e := filepath.EvalSymlinks(fullPath)
	if e != nil {
		return ErrorOutsideDocroot.Error(e)
	}

	if targetReal == rootReal {
		return nil
	}
	if strings.HasPrefix(targetReal, rootReal+string(filepath.Separator)) {
		return nil
	}

	return ErrorOutsideDocroot.Error()
}
