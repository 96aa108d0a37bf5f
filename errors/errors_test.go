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

package errors_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	liberr "github.com/nabbar/zaver/errors"
)

const testMinCode = liberr.MinPkgRLimit

const (
	codeTestFoo liberr.CodeError = testMinCode + iota + 1
	codeTestBar
)

func init() {
	liberr.RegisterIdFctMessage(testMinCode, func(code liberr.CodeError) string {
		switch code {
		case codeTestFoo:
			return "test foo failure"
		case codeTestBar:
			return "test bar failure: %s"
		default:
			return liberr.NullMessage
		}
	})
}

func TestCodeError_Message(t *testing.T) {
	require.Equal(t, "test foo failure", codeTestFoo.Message())
}

func TestCodeError_Error(t *testing.T) {
	e := codeTestFoo.Error()
	require.NotNil(t, e)
	require.Equal(t, codeTestFoo, e.GetCode())
}

func TestCodeError_Errorf(t *testing.T) {
	e := codeTestBar.Errorf("disk full")
	require.NotNil(t, e)
	require.Contains(t, e.Error(), "disk full")
}

func TestError_AddParent(t *testing.T) {
	parent := codeTestFoo.Error()
	child := codeTestBar.Error(parent)

	require.True(t, child.HasParent())
	require.True(t, child.HasCode(codeTestFoo))
}

func TestExistInMapMessage(t *testing.T) {
	require.True(t, liberr.ExistInMapMessage(codeTestFoo))
	require.True(t, liberr.ExistInMapMessage(codeTestBar))
}

func TestUnknownError(t *testing.T) {
	require.Equal(t, liberr.UnknownMessage, liberr.UnknownError.Message())
}
