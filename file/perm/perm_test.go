/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package perm_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/zaver/file/perm"
)

func TestParse_Octal(t *testing.T) {
	p, err := perm.Parse("0644")
	require.NoError(t, err)
	require.Equal(t, "0644", p.String())
	require.True(t, p.OwnerReadable())
}

func TestParse_Symbolic(t *testing.T) {
	p, err := perm.Parse("rwxr-xr-x")
	require.NoError(t, err)
	require.Equal(t, uint64(0755), p.Uint64())
}

func TestParse_Invalid(t *testing.T) {
	_, err := perm.Parse("not-a-perm")
	require.Error(t, err)
}

func TestOwnerReadable(t *testing.T) {
	p, err := perm.Parse("0200")
	require.NoError(t, err)
	require.False(t, p.OwnerReadable())
}

func TestJSONRoundTrip(t *testing.T) {
	p, err := perm.Parse("0644")
	require.NoError(t, err)

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var got perm.Perm
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, p, got)
}

func TestParse_SymbolicWithType(t *testing.T) {
	p, err := perm.Parse("-rw-r--r--")
	require.NoError(t, err)
	require.Equal(t, "0644", p.String())
}

func TestParse_BadType(t *testing.T) {
	_, err := perm.Parse("Zrwxr-xr-x")
	require.Error(t, err)
}
