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

package wire

import (
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the RFC-1123 GMT layout used by Last-Modified and
// If-Modified-Since, spelled out locally rather than importing
// net/http for its TimeFormat constant: this server never touches
// net/http, since its transport is a raw epoll socket, not net/http's
// listener model.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// ParseIfModifiedSince parses an If-Modified-Since header value. The
// zero Time and false are returned for anything that doesn't parse,
// which the caller treats as "no conditional request" rather than an
// error.
func ParseIfModifiedSince(v string) (time.Time, bool) {
	t, e := time.Parse(TimeFormat, v)
	if e != nil {
		return time.Time{}, false
	}
	return t, true
}

// connectionHeader renders the Connection (and, for keep-alive, the
// paired Keep-Alive: timeout=) header lines shared by every response
// kind.
func connectionHeader(b *strings.Builder, keepAlive bool, keepAliveTimeoutMs int) {
	if keepAlive {
		b.WriteString("Connection: keep-alive\r\n")
		secs := (keepAliveTimeoutMs + 999) / 1000
		b.WriteString("Keep-Alive: timeout=")
		b.WriteString(strconv.Itoa(secs))
		b.WriteString("\r\n")
	} else {
		b.WriteString("Connection: close\r\n")
	}
}

// BuildStaticHeader renders the header block for a 200 static-file
// response (spec.md §6 "Wire: HTTP response (static 200)").
func BuildStaticHeader(contentType string, length int64, lastModified time.Time, keepAlive bool, keepAliveTimeoutMs int) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	connectionHeader(&b, keepAlive, keepAliveTimeoutMs)
	b.WriteString("Content-type: ")
	b.WriteString(contentType)
	b.WriteString("\r\n")
	b.WriteString("Content-length: ")
	b.WriteString(strconv.FormatInt(length, 10))
	b.WriteString("\r\n")
	b.WriteString("Last-Modified: ")
	b.WriteString(lastModified.UTC().Format(TimeFormat))
	b.WriteString("\r\n")
	b.WriteString("Server: Zaver\r\n\r\n")
	return []byte(b.String())
}

// BuildNotModifiedHeader renders the header block for a 304 response:
// no Content-type, Content-length or Last-Modified, and no body.
func BuildNotModifiedHeader(keepAlive bool, keepAliveTimeoutMs int) []byte {
	var b strings.Builder
	b.WriteString("HTTP/1.1 304 Not Modified\r\n")
	connectionHeader(&b, keepAlive, keepAliveTimeoutMs)
	b.WriteString("Server: Zaver\r\n\r\n")
	return []byte(b.String())
}

var errorReason = map[int]string{
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}

// BuildErrorResponse renders both the header block and the tiny HTML
// body of an error response (spec.md §6 "Wire: HTTP error response").
func BuildErrorResponse(status int, keepAlive bool, keepAliveTimeoutMs int) (header []byte, body []byte) {
	reason, ok := errorReason[status]
	if !ok {
		reason = "Error"
	}

	body = []byte("<html><title>Zaver Error</title><body bgcolor=\"ffffff\">\r\n" +
		strconv.Itoa(status) + ": " + reason +
		"\r\n<hr><em>Zaver web server</em>\r\n</body></html>\r\n")

	var b strings.Builder
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(status))
	b.WriteByte(' ')
	b.WriteString(reason)
	b.WriteString("\r\n")
	b.WriteString("Server: Zaver\r\n")
	b.WriteString("Content-type: text/html\r\n")
	connectionHeader(&b, keepAlive, keepAliveTimeoutMs)
	b.WriteString("Content-length: ")
	b.WriteString(strconv.Itoa(len(body)))
	b.WriteString("\r\n\r\n")

	return []byte(b.String()), body
}
