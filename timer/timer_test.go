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

package timer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeClock gives tests a deterministic, manually-advanced monotonic
// clock instead of racing against time.Now.
func fakeClock(start int64) (*int64, func() int64) {
	t := start
	return &t, func() int64 { return t }
}

func TestNextTimeout_EmptyIsInfinite(t *testing.T) {
	w := New()
	require.Equal(t, Infinite, w.NextTimeout())
}

func TestArm_NextTimeoutReflectsDeadline(t *testing.T) {
	clock, fn := fakeClock(1000)
	w := New()
	w.now = fn

	w.Arm(nil, 500, func(interface{}) {}, nil)
	require.Equal(t, 500, w.NextTimeout())

	*clock = 1300
	require.Equal(t, 200, w.NextTimeout())

	*clock = 1600
	require.Equal(t, 0, w.NextTimeout())
}

func TestArm_RearmDeletesOldEntry(t *testing.T) {
	clock, fn := fakeClock(0)
	w := New()
	w.now = fn

	fired := make([]string, 0, 2)
	h := w.Arm(nil, 100, func(p interface{}) { fired = append(fired, p.(string)) }, "first")
	h = w.Arm(h, 100, func(p interface{}) { fired = append(fired, p.(string)) }, "second")
	require.NotNil(t, h)

	require.Equal(t, 2, w.Len())

	*clock = 100
	w.RunExpired()
	require.Equal(t, []string{"second"}, fired)
}

func TestCancel_RemovesFromConsideration(t *testing.T) {
	clock, fn := fakeClock(0)
	w := New()
	w.now = fn

	fired := false
	h := w.Arm(nil, 50, func(interface{}) { fired = true }, nil)
	w.Cancel(h)

	*clock = 100
	require.Equal(t, Infinite, w.NextTimeout())

	w.RunExpired()
	require.False(t, fired)
}

func TestCancel_Nil(t *testing.T) {
	w := New()
	w.Cancel(nil)
	w.Cancel(&Handle{})
}

func TestRunExpired_FiresInDeadlineOrder(t *testing.T) {
	clock, fn := fakeClock(0)
	w := New()
	w.now = fn

	var order []string
	w.Arm(nil, 300, func(p interface{}) { order = append(order, p.(string)) }, "c")
	w.Arm(nil, 100, func(p interface{}) { order = append(order, p.(string)) }, "a")
	w.Arm(nil, 200, func(p interface{}) { order = append(order, p.(string)) }, "b")

	*clock = 1000
	w.RunExpired()

	require.Equal(t, []string{"a", "b", "c"}, order)
	require.Equal(t, 0, w.Len())
}

func TestRunExpired_StopsAtFirstUnexpired(t *testing.T) {
	clock, fn := fakeClock(0)
	w := New()
	w.now = fn

	var order []string
	w.Arm(nil, 100, func(p interface{}) { order = append(order, p.(string)) }, "a")
	w.Arm(nil, 500, func(p interface{}) { order = append(order, p.(string)) }, "b")

	*clock = 150
	w.RunExpired()

	require.Equal(t, []string{"a"}, order)
	require.Equal(t, 1, w.Len())
}

func TestRunExpired_RearmFromHandlerLeftForNextPass(t *testing.T) {
	clock, fn := fakeClock(0)
	w := New()
	w.now = fn

	var rearmed *Handle
	w.Arm(nil, 100, func(interface{}) {
		rearmed = w.Arm(nil, 50, func(interface{}) {}, "next")
	}, nil)

	*clock = 200
	w.RunExpired()

	require.NotNil(t, rearmed)
	require.Equal(t, 1, w.Len())
}
