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

package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/zaver/logger"
	loglvl "github.com/nabbar/zaver/logger/level"
)

func TestNew_TagsProc(t *testing.T) {
	var buf bytes.Buffer

	l := logger.New(loglvl.DebugLevel, "worker-0")
	l.SetOutput(&buf)
	l.Info("listening")

	require.Contains(t, buf.String(), "proc=worker-0")
	require.Contains(t, buf.String(), "listening")
}

func TestSetGetLevel(t *testing.T) {
	l := logger.New(loglvl.InfoLevel, "master")
	require.Equal(t, loglvl.InfoLevel, l.GetLevel())

	l.SetLevel(loglvl.DebugLevel)
	require.Equal(t, loglvl.DebugLevel, l.GetLevel())
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer

	l := logger.New(loglvl.DebugLevel, "worker-1")
	l.SetOutput(&buf)
	l.WithField("fd", 7).Warn("would-block")

	require.Contains(t, buf.String(), "fd=7")
}

func TestErrorAttachesErr(t *testing.T) {
	var buf bytes.Buffer

	l := logger.New(loglvl.DebugLevel, "worker-2")
	l.SetOutput(&buf)
	l.Error("accept failed", errTest("econnreset"))

	require.Contains(t, buf.String(), "econnreset")
}

type errTest string

func (e errTest) Error() string { return string(e) }
