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

package uri

import "github.com/nabbar/zaver/errors"

// All errors here map to a 403 response; callers are not expected to
// branch on which one occurred, only that mapping failed.
const (
	ErrorNotAbsolute errors.CodeError = iota + errors.MinPkgURI
	ErrorBadEscape
	ErrorForbiddenByte
	ErrorDotDotAtRoot
	ErrorOutsideDocroot
)

func init() {
	errors.RegisterIdFctMessage(ErrorNotAbsolute, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorNotAbsolute:
		return "uri path is not absolute"
	case ErrorBadEscape:
		return "uri has a malformed percent-escape"
	case ErrorForbiddenByte:
		return "uri decodes to a forbidden byte (NUL, backslash, CR or LF)"
	case ErrorDotDotAtRoot:
		return "uri '..' segment pops above root"
	case ErrorOutsideDocroot:
		return "resolved path escapes the docroot"
	}

	return ""
}
