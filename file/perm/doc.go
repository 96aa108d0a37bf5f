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

// Package perm files:
//
//	interface.go - Perm type, Parse, ParseFileMode
//	parse.go     - octal and ls-style rwx string parsing
//	format.go    - String/Int*/Uint*/FileMode conversions, OwnerReadable
//	encode.go    - JSON and text marshaling
//
// Two input shapes:
//
//	"0644"         octal, optionally quoted
//	"rwxr-xr-x"    9 rwx characters, or 10 with a leading type letter
//	               (-, d, l, c, b, p, s, D) that is validated and dropped
//
// OwnerReadable reports whether the owner-read bit (0400) is set; it is
// the only predicate conn/static.go needs before serving a docroot file.
package perm
