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

// Package wire is the reference request-line/header tokenizer and the
// HTTP/1.x response formatter the connection state machine consumes.
// The parser is the {again, ok, error} collaborator described in
// spec.md §1: it is fed the connection's receive buffer from offset 0
// each call and tracks internally how much of it has already been
// scanned, so repeated calls as more bytes arrive never rescan a line
// twice.
package wire

import (
	"bytes"
	"strings"

	"github.com/nabbar/zaver/pool"
)

// Phase is the parser's position in the request grammar.
type Phase int

const (
	PhaseRequestLine Phase = iota
	PhaseHeaders
	PhaseDone
)

// Result is the tri-state outcome of a Parse call.
type Result int

const (
	// Again means the buffer so far doesn't contain a full line; the
	// caller should read more bytes and call Parse again.
	Again Result = iota
	// OK means the header block is complete.
	OK
	// Error means the buffer contains bytes that cannot be a valid
	// request-line or header line.
	Error
)

// MaxHeaders bounds how many header lines one request may carry.
// Beyond this, Parse reports Error rather than growing the header
// chain without limit.
const MaxHeaders = 100

// Header is one parsed header line, allocated from a pool so a
// keep-alive connection's successive requests don't allocate a fresh
// node per header. Next chains the nodes belonging to one request;
// the chain is unlinked and returned to the pool as a unit.
type Header struct {
	Key   string
	Value string
	Next  *Header
}

// NewHeaderPool returns the process-local free list worker loops draw
// Header nodes from, capped at maxFree (0 selects pool.DefaultMaxFree).
func NewHeaderPool(maxFree int) *pool.Pool[Header] {
	return pool.NewPool(maxFree, func() *Header { return &Header{} })
}

// Parser tokenizes one request's request-line and header block out of
// a connection's receive buffer. It is reset and reused across
// keep-alive requests and across pooled connections, never
// reallocated per request.
type Parser struct {
	phase   Phase
	scanned int

	Method  string
	URI     string
	Version string

	head, tail *Header
	headerPool *pool.Pool[Header]
	count      int
}

// NewParser returns a Parser that draws header nodes from headerPool.
func NewParser(headerPool *pool.Pool[Header]) *Parser {
	return &Parser{headerPool: headerPool}
}

// Reset releases any header nodes still held by this parser back to
// its pool and clears all parse state, in preparation for the next
// request on the same connection (pipelined or a fresh accept).
func (p *Parser) Reset() {
	for n := p.head; n != nil; {
		next := n.Next
		n.Key, n.Value, n.Next = "", "", nil
		p.headerPool.Put(n)
		n = next
	}
	p.phase = PhaseRequestLine
	p.scanned = 0
	p.Method, p.URI, p.Version = "", "", ""
	p.head, p.tail = nil, nil
	p.count = 0
}

// Headers returns the head of the parsed header chain, or nil if
// headers haven't completed yet or none were sent.
func (p *Parser) Headers() *Header {
	return p.head
}

func (p *Parser) addHeader(key, val string) bool {
	if p.count >= MaxHeaders {
		return false
	}
	p.count++

	n := p.headerPool.Get()
	n.Key, n.Value, n.Next = key, val, nil

	if p.tail == nil {
		p.head = n
	} else {
		p.tail.Next = n
	}
	p.tail = n
	return true
}

// Parse scans buf[0:last] for progress. On OK, headEnd is the offset
// of the first byte following the blank line that terminates the
// header block — where a pipelined request, if any, begins.
func (p *Parser) Parse(buf []byte, last int) (result Result, headEnd int) {
	view := buf[:last]

	for {
		switch p.phase {
		case PhaseRequestLine:
			i := bytes.IndexByte(view[p.scanned:], '\n')
			if i < 0 {
				return Again, 0
			}
			lineEnd := p.scanned + i
			line := bytes.TrimSuffix(view[p.scanned:lineEnd], []byte("\r"))

			parts := bytes.Fields(line)
			if len(parts) != 3 {
				return Error, 0
			}

			p.Method = string(parts[0])
			p.URI = string(parts[1])
			p.Version = string(parts[2])
			p.scanned = lineEnd + 1
			p.phase = PhaseHeaders

		case PhaseHeaders:
			i := bytes.IndexByte(view[p.scanned:], '\n')
			if i < 0 {
				return Again, 0
			}
			lineEnd := p.scanned + i
			line := bytes.TrimSuffix(view[p.scanned:lineEnd], []byte("\r"))
			next := lineEnd + 1

			if len(line) == 0 {
				p.phase = PhaseDone
				p.scanned = next
				return OK, next
			}

			ci := bytes.IndexByte(line, ':')
			if ci < 0 {
				return Error, 0
			}

			key := strings.TrimSpace(string(line[:ci]))
			val := strings.TrimSpace(string(line[ci+1:]))
			if !p.addHeader(key, val) {
				return Error, 0
			}
			p.scanned = next

		default:
			return OK, p.scanned
		}
	}
}
