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

package conn

import (
	"os"
	"time"

	"github.com/nabbar/zaver/file/perm"
	"github.com/nabbar/zaver/mime"
	"github.com/nabbar/zaver/uri"
	"github.com/nabbar/zaver/wire"
)

// prepareStatic maps target to a file under the docroot and stages
// either a 200, a 304, or an error response, implementing spec.md
// §4.4 step 5 and §4.6.
func (c *Conn) prepareStatic(target string) {
	mapped, err := uri.Map(c.deps.Docroot, target)
	if err != nil {
		c.stageError(403)
		return
	}

	info, e := os.Stat(mapped.FullPath)
	if e != nil {
		c.stageError(404)
		return
	}

	if err := uri.CheckContainment(c.deps.Docroot, mapped.FullPath); err != nil {
		c.stageError(403)
		return
	}

	if !info.Mode().IsRegular() || !perm.ParseFileMode(info.Mode()).OwnerReadable() {
		c.stageError(403)
		return
	}

	if c.ifModSet && c.ifModSince == info.ModTime().UTC().Truncate(time.Second).Unix() {
		c.stageNotModified()
		return
	}

	f, e := os.Open(mapped.FullPath)
	if e != nil {
		c.stageError(404)
		return
	}

	c.headerBuf = append(c.headerBuf[:0], wire.BuildStaticHeader(
		mime.TypeByPath(mapped.FullPath), info.Size(), info.ModTime(),
		c.keepAlive, c.deps.KeepAliveTimeoutMs,
	)...)
	c.headerSent = 0

	c.hasFile = true
	c.file = fileStage{handle: f, fd: int(f.Fd()), offset: 0, size: info.Size()}
	c.writing = true
}

// stageError resets output staging and stages an error response,
// forcing the connection closed for the status classes spec.md §7
// says always terminate the connection.
func (c *Conn) stageError(status int) {
	switch status {
	case 400, 405, 500:
		c.keepAlive = false
	}

	h, b := wire.BuildErrorResponse(status, c.keepAlive, c.deps.KeepAliveTimeoutMs)
	c.headerBuf = append(c.headerBuf[:0], h...)
	c.headerSent = 0
	c.body = append(c.body[:0], b...)
	c.bodySent = 0
	c.writing = true
}

func (c *Conn) stageNotModified() {
	c.headerBuf = append(c.headerBuf[:0], wire.BuildNotModifiedHeader(c.keepAlive, c.deps.KeepAliveTimeoutMs)...)
	c.headerSent = 0
	c.writing = true
}
