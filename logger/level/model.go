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

package level

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Logrus converts l to the logrus.Level logger.New and Logger.SetLevel
// hand to the underlying *logrus.Logger. NilLevel and anything out of
// range map to math.MaxInt32, which is above every logrus level, so
// logrus enables all of them.
func (l Level) Logrus() logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	case PanicLevel:
		return logrus.PanicLevel
	default:
		return math.MaxInt32
	}
}

// ParseFromInt is the inverse of Int, used by ParseFromUint32 to recover
// a Level from the logrus.Level Logger.GetLevel reads back.
func ParseFromInt(i int) Level {
	switch i {
	case PanicLevel.Int():
		return PanicLevel
	case FatalLevel.Int():
		return FatalLevel
	case ErrorLevel.Int():
		return ErrorLevel
	case WarnLevel.Int():
		return WarnLevel
	case InfoLevel.Int():
		return InfoLevel
	case DebugLevel.Int():
		return DebugLevel
	case NilLevel.Int():
		return NilLevel
	default:
		return InfoLevel
	}
}

// ParseFromUint32 backs Logger.GetLevel, which reads logrus's uint32
// level back into our Level enum.
func ParseFromUint32(i uint32) Level {
	if uint64(i) < uint64(math.MaxInt) {
		return ParseFromInt(int(i))
	}
	return ParseFromInt(math.MaxInt)
}
