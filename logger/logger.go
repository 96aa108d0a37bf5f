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

// Package logger provides the leveled, structured logging used across the
// worker and master processes. It wraps logrus with the process/worker id
// attached to every entry, since every child process shares stdout/stderr
// with the master and log lines must stay attributable.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	loglvl "github.com/nabbar/zaver/logger/level"
)

type Logger interface {
	SetLevel(lvl loglvl.Level)
	GetLevel() loglvl.Level
	SetOutput(w io.Writer)

	WithField(key string, val interface{}) Logger
	WithFields(fields Fields) Logger

	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(msg string, err error, fields ...Fields)
	Fatal(msg string, err error, fields ...Fields)
}

// Fields is a free-form set of structured attributes attached to a log entry.
type Fields map[string]interface{}

type logger struct {
	log *logrus.Logger
	ent *logrus.Entry
}

// New returns a Logger writing to stderr at the given level, tagging every
// entry with the worker/master identity so interleaved process output stays
// attributable (each worker owns its listening socket independently, see
// the accept-loop's port-reuse model).
func New(lvl loglvl.Level, who string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(lvl.Logrus())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &logger{
		log: l,
		ent: l.WithField("proc", who),
	}
}

func (l *logger) SetLevel(lvl loglvl.Level) {
	l.log.SetLevel(lvl.Logrus())
}

func (l *logger) GetLevel() loglvl.Level {
	return loglvl.ParseFromUint32(uint32(l.log.GetLevel()))
}

func (l *logger) SetOutput(w io.Writer) {
	l.log.SetOutput(w)
}

func (l *logger) WithField(key string, val interface{}) Logger {
	return &logger{log: l.log, ent: l.ent.WithField(key, val)}
}

func (l *logger) WithFields(fields Fields) Logger {
	return &logger{log: l.log, ent: l.ent.WithFields(logrus.Fields(fields))}
}

func (l *logger) entry(fields []Fields) *logrus.Entry {
	e := l.ent
	for _, f := range fields {
		e = e.WithFields(logrus.Fields(f))
	}
	return e
}

func (l *logger) Debug(msg string, fields ...Fields) {
	l.entry(fields).Debug(msg)
}

func (l *logger) Info(msg string, fields ...Fields) {
	l.entry(fields).Info(msg)
}

func (l *logger) Warn(msg string, fields ...Fields) {
	l.entry(fields).Warn(msg)
}

func (l *logger) Error(msg string, err error, fields ...Fields) {
	e := l.entry(fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

func (l *logger) Fatal(msg string, err error, fields ...Fields) {
	e := l.entry(fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Fatal(msg)
}
