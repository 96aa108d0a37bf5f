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

package rlimit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/zaver/rlimit"
)

func TestRaise_ReadOnly(t *testing.T) {
	cur, max, err := rlimit.Raise(0)
	require.Nil(t, err)
	require.Greater(t, cur, 0)
	require.GreaterOrEqual(t, max, cur)
}

func TestForWorkers(t *testing.T) {
	require.Equal(t, 1*(1*rlimit.PerConnFD+1)+16, rlimit.ForWorkers(0, 0))
	require.Equal(t, 4*(1024*rlimit.PerConnFD+1)+16, rlimit.ForWorkers(4, 1024))
}
