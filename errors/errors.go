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

// ers is the concrete Error: a code, a message, and the parent causes it
// was wrapped around (spec.md §7's causal chain across a component
// boundary, e.g. an os.StartProcess failure wrapped by cgi.ErrorStartProcess).
type ers struct {
	c uint16
	e string
	p []Error
}

// Add appends parent to e's causal chain. Each parent is kept as-is if it
// is already an Error, otherwise wrapped at code 0 with its plain message.
func (e *ers) Add(parent ...error) {
	for _, v := range parent {
		if v == nil {
			continue
		}

		if er, ok := v.(Error); ok {
			e.p = append(e.p, er)
		} else {
			e.p = append(e.p, &ers{e: v.Error()})
		}
	}
}

func (e *ers) IsCode(code CodeError) bool {
	return e.c == code.Uint16()
}

// HasCode reports whether e or any ancestor in its causal chain carries code.
func (e *ers) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}

	for _, p := range e.p {
		if p.HasCode(code) {
			return true
		}
	}

	return false
}

func (e *ers) GetCode() CodeError {
	return CodeError(e.c)
}

func (e *ers) Code() uint16 {
	return e.c
}

func (e *ers) HasParent() bool {
	return len(e.p) > 0
}

// Error satisfies the standard error interface with e's own message; it
// does not flatten parent messages into the string (callers that need the
// full chain use Unwrap, compatible with errors.Is/errors.As).
func (e *ers) Error() string {
	return e.e
}

func (e *ers) StringError() string {
	return e.e
}

func (e *ers) Unwrap() []error {
	if len(e.p) == 0 {
		return nil
	}

	r := make([]error, 0, len(e.p))
	for _, v := range e.p {
		if v != nil {
			r = append(r, v)
		}
	}

	return r
}
