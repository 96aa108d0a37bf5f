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

// Package mime maps file extensions to content types for the static file
// path, per the fixed table the server recognizes (no mime.types parsing,
// no os-provided registry).
package mime

import "strings"

const DefaultType = "text/plain"

var byExt = map[string]string{
	".html":  "text/html",
	".xml":   "text/xml",
	".xhtml": "application/xhtml+xml",
	".txt":   "text/plain",
	".rtf":   "application/rtf",
	".pdf":   "application/pdf",
	".word":  "application/msword",
	".png":   "image/png",
	".gif":   "image/gif",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".au":    "audio/basic",
	".mpeg":  "video/mpeg",
	".mpg":   "video/mpeg",
	".avi":   "video/x-msvideo",
	".gz":    "application/x-gzip",
	".tar":   "application/x-tar",
	".css":   "text/css",
}

// TypeByPath returns the content type for path based on its extension
// (everything from the last '.' in its final segment onward), or
// DefaultType if the extension is unrecognized or absent.
func TypeByPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	name := path[i+1:]

	j := strings.LastIndexByte(name, '.')
	if j < 0 {
		return DefaultType
	}

	if t, ok := byExt[strings.ToLower(name[j:])]; ok {
		return t
	}

	return DefaultType
}
