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

import "strings"

// Find returns the value of the first header in the chain matching
// key case-insensitively, and whether it was present. Only a handful
// of headers matter to this server (spec.md §4.4 step 3: Connection,
// If-Modified-Since); everything else is parsed but otherwise ignored,
// so a linear scan over a short chain needs no lookup table.
func Find(chain *Header, key string) (string, bool) {
	for n := chain; n != nil; n = n.Next {
		if strings.EqualFold(n.Key, key) {
			return n.Value, true
		}
	}
	return "", false
}

// KeepAliveDefault reports the protocol-version default for
// Connection persistence: HTTP/1.1 defaults to keep-alive, anything
// else (effectively HTTP/1.0) defaults to close.
func KeepAliveDefault(version string) bool {
	return version == "HTTP/1.1"
}

// KeepAliveOverride applies an explicit Connection: header over the
// version default, per spec.md §4.4 step 3: case-insensitive
// "keep-alive" forces it on, "close" forces it off, anything else
// leaves def untouched.
func KeepAliveOverride(def bool, connectionHeader string, present bool) bool {
	if !present {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(connectionHeader)) {
	case "keep-alive":
		return true
	case "close":
		return false
	default:
		return def
	}
}
