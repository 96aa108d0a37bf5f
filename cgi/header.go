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

package cgi

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/nabbar/zaver/errors"
)

// DefaultHeaderBufferSize bounds how many bytes of CGI output HeaderAccumulator
// will buffer while looking for the blank-line terminator between the
// CGI header block and its body.
const DefaultHeaderBufferSize = 8192

// DefaultOutputLimit bounds total CGI stdout bytes across the whole
// response, matching spec.md §4.5's cumulative output check.
const DefaultOutputLimit = 1 << 20

// HeaderAccumulator buffers CGI stdout until the header/body terminator
// is found, bounded at a fixed capacity: a CGI script that emits a
// header block larger than the buffer terminates the connection rather
// than growing without limit.
type HeaderAccumulator struct {
	buf []byte
}

// NewHeaderAccumulator returns an accumulator capped at size bytes; 0
// or less selects DefaultHeaderBufferSize.
func NewHeaderAccumulator(size int) *HeaderAccumulator {
	if size <= 0 {
		size = DefaultHeaderBufferSize
	}
	return &HeaderAccumulator{buf: make([]byte, 0, size)}
}

// Feed appends as much of data as still fits in the accumulator and
// reports whether the header/body terminator ("\n\n" or "\r\n\r\n") has
// now been seen. When found, header is the accumulated bytes before the
// terminator, and trailing is whatever bytes followed the terminator,
// including any part of data that did not fit (to be treated as the
// start of the response body). Feed fails once the accumulator is full
// without having found a terminator.
func (h *HeaderAccumulator) Feed(data []byte) (done bool, header []byte, trailing []byte, err errors.Error) {
	n := cap(h.buf) - len(h.buf)
	if n > len(data) {
		n = len(data)
	}
	h.buf = append(h.buf, data[:n]...)
	rest := data[n:]

	if i := bytes.Index(h.buf, []byte("\r\n\r\n")); i >= 0 {
		return true, h.buf[:i], append(h.buf[i+4:len(h.buf):len(h.buf)], rest...), nil
	}
	if i := bytes.Index(h.buf, []byte("\n\n")); i >= 0 {
		return true, h.buf[:i], append(h.buf[i+2:len(h.buf):len(h.buf)], rest...), nil
	}

	if len(h.buf) == cap(h.buf) {
		return false, nil, nil, ErrorHeaderBufferFull.Error()
	}
	return false, nil, nil, nil
}

// ParseHeaderBlock extracts the Status and Content-Type values from a
// raw CGI header block (CRLF- or LF-separated lines). Status defaults
// to 200 if absent or out of the 100-599 range; Content-Type defaults
// to "text/plain" if absent.
func ParseHeaderBlock(block []byte) (status int, contentType string) {
	status = 200
	contentType = "text/plain"

	for _, raw := range bytes.Split(block, []byte("\n")) {
		line := strings.TrimRight(string(raw), "\r")
		if line == "" {
			continue
		}

		if v, ok := fieldValue(line, "Status:"); ok {
			if f := strings.Fields(v); len(f) > 0 {
				if n, e := strconv.Atoi(f[0]); e == nil && n >= 100 && n <= 599 {
					status = n
				}
			}
			continue
		}
		if v, ok := fieldValue(line, "Content-Type:"); ok && v != "" {
			contentType = v
		}
	}

	return status, contentType
}

func fieldValue(line, prefix string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(prefix):]), true
}

var reasonPhrase = map[int]string{
	200: "OK",
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}

// reason returns the short reason phrase for status, falling back to a
// class-based default: "Bad Request" for 4xx, "Internal Server Error"
// for 5xx and above, and "OK" for anything else.
func reason(status int) string {
	if r, ok := reasonPhrase[status]; ok {
		return r
	}
	switch {
	case status >= 400 && status < 500:
		return "Bad Request"
	case status >= 500:
		return "Internal Server Error"
	default:
		return "OK"
	}
}

// BuildResponseHeader renders the real HTTP/1.x response header sent to
// the client in place of the CGI header block: status line, Server,
// Connection: close (CGI responses are always streamed without a known
// Content-Length, so keep-alive is never offered), the resolved
// Content-Type, and the terminating blank line.
func BuildResponseHeader(status int, contentType string) []byte {
	if contentType == "" {
		contentType = "text/plain"
	}

	var b strings.Builder
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(status))
	b.WriteByte(' ')
	b.WriteString(reason(status))
	b.WriteString("\r\n")
	b.WriteString("Server: Zaver\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("Content-Type: ")
	b.WriteString(contentType)
	b.WriteString("\r\n\r\n")

	return []byte(b.String())
}
