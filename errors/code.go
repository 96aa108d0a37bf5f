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

package errors

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// idMsgFct maps each package's registered minimum CodeError to the message
// function it supplies for every code in its range.
var idMsgFct = make(map[CodeError]Message)

// Message renders a CodeError's human-readable text.
type Message func(code CodeError) (message string)

// CodeError is a package-scoped numeric error code, analogous to an HTTP
// status code but namespaced per package via the MinPkg* offsets in
// modules.go.
type CodeError uint16

const (
	// UnknownError is the fallback code for an error with no registered range.
	UnknownError CodeError = 0

	UnknownMessage = "unknown error"
	NullMessage    = ""
)

// ParseCodeError clamps an int64 into the CodeError range, used when a code
// arrives from outside Go's type system (e.g. decoded off the wire).
func ParseCodeError(i int64) CodeError {
	if i < 0 {
		return UnknownError
	} else if i >= int64(math.MaxUint16) {
		return math.MaxUint16
	}
	return CodeError(i)
}

func NewCodeError(code uint16) CodeError {
	return CodeError(code)
}

func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

func (c CodeError) Int() int {
	return int(c)
}

func (c CodeError) String() string {
	return strconv.Itoa(c.Int())
}

// Message returns the registered text for c, or UnknownMessage if no package
// has claimed the range c falls in.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}

	if f, ok := idMsgFct[findCodeErrorInMapMessage(c)]; ok {
		if m := f(c); m != "" {
			return m
		}
	}

	return UnknownMessage
}

// Error builds an Error from c, optionally chaining parent causes.
func (c CodeError) Error(p ...error) Error {
	return New(c.Uint16(), c.Message(), p...)
}

// Errorf builds an Error from c, formatting its registered message with
// args via fmt.Sprintf when the message contains '%' verbs.
func (c CodeError) Errorf(args ...interface{}) Error {
	m := c.Message()

	if !strings.Contains(m, "%") {
		return New(c.Uint16(), m)
	}

	if n := strings.Count(m, "%"); n < len(args) {
		return Newf(c.Uint16(), m, args[:n]...)
	}
	return Newf(c.Uint16(), m, args...)
}

// RegisterIdFctMessage associates fct with every CodeError starting at
// minCode, called from a package's error.go init().
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	if idMsgFct == nil {
		idMsgFct = make(map[CodeError]Message)
	}

	idMsgFct[minCode] = fct
	orderMapMessage()
}

// ExistInMapMessage reports whether code resolves to a non-empty registered
// message.
func ExistInMapMessage(code CodeError) bool {
	if f, ok := idMsgFct[findCodeErrorInMapMessage(code)]; ok {
		return f(code) != NullMessage
	}
	return false
}

func getMapMessageKey() []CodeError {
	keys := make([]int, 0, len(idMsgFct))
	for k := range idMsgFct {
		keys = append(keys, int(k.Uint16()))
	}
	sort.Ints(keys)

	res := make([]CodeError, 0, len(keys))
	for _, k := range keys {
		res = append(res, ParseCodeError(int64(k)))
	}
	return res
}

func orderMapMessage() {
	res := make(map[CodeError]Message, len(idMsgFct))
	for _, k := range getMapMessageKey() {
		res[k] = idMsgFct[k]
	}
	idMsgFct = res
}

// findCodeErrorInMapMessage finds the largest registered range key <= code,
// i.e. which package's message function owns code.
func findCodeErrorInMapMessage(code CodeError) CodeError {
	var res CodeError = 0

	for _, k := range getMapMessageKey() {
		if k <= code && k > res {
			res = k
		}
	}

	return res
}
