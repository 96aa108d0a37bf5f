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

package perm

import (
	"fmt"
	"strconv"
	"strings"
)

// parseString accepts either an octal string ("0644") or an ls-style rwx
// triplet ("rw-r--r--"). conn/static.go only ever feeds ParseFileMode an
// os.FileMode taken straight off os.Stat, so this is reached only from
// Parse and from the JSON and text decoders.
func parseString(s string) (Perm, error) {
	s = unquote(s)

	if v, e := strconv.ParseUint(s, 8, 32); e == nil {
		return Perm(v), nil
	}

	return parseTriplets(s)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	return strings.Trim(s, `"'`)
}

// parseTriplets reads the 9 (or 10, with a leading file-type letter) rwx
// characters ls -l prints and folds them into the matching octal bits.
// The leading type letter, if present, is only validated: this package
// models a plain file's permission bits, never its type.
func parseTriplets(s string) (Perm, error) {
	switch len(s) {
	case 9, 10:
	default:
		return 0, fmt.Errorf("perm: %q is neither an octal number nor a 9-10 char rwx string", s)
	}

	start := 0
	if len(s) == 10 {
		if !strings.ContainsRune("-dlcbpsD", rune(s[0])) {
			return 0, fmt.Errorf("perm: unrecognized file type %q", s[0])
		}
		start = 1
	}

	var bits uint32
	for group := 0; group < 3; group++ {
		chunk := s[start+group*3 : start+group*3+3]
		v, e := parseTriplet(chunk)
		if e != nil {
			return 0, e
		}
		bits |= uint32(v) << uint(6-group*3)
	}

	return Perm(bits), nil
}

// parseTriplet decodes one "rwx"-shaped group into its 3-bit octal value.
func parseTriplet(chunk string) (uint8, error) {
	var v uint8

	for i, want := range [3]byte{'r', 'w', 'x'} {
		switch chunk[i] {
		case want:
			v |= 1 << uint(2-i)
		case '-':
		default:
			return 0, fmt.Errorf("perm: expected %q or '-' at position %d, got %q", want, i, chunk[i])
		}
	}

	return v, nil
}

func (p *Perm) parseString(s string) error {
	v, e := parseString(s)
	if e != nil {
		return e
	}
	*p = v
	return nil
}
