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

import "github.com/nabbar/zaver/errors"

const (
	ErrorPipeCreate errors.CodeError = iota + errors.MinPkgCGI
	ErrorNonblockingStdout
	ErrorStartProcess
	ErrorHeaderBufferFull
	ErrorOutputLimitExceeded
)

func init() {
	errors.RegisterIdFctMessage(ErrorPipeCreate, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case ErrorPipeCreate:
		return "cannot create cgi pipe"
	case ErrorNonblockingStdout:
		return "cannot set cgi stdout non-blocking"
	case ErrorStartProcess:
		return "cannot start cgi process"
	case ErrorHeaderBufferFull:
		return "cgi header block exceeds buffer before a terminator was found"
	case ErrorOutputLimitExceeded:
		return "cgi output exceeded configured limit"
	}

	return ""
}
