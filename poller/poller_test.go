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

package poller_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/zaver/poller"
)

type kind int

const kindPipe kind = 1

func TestRegisterWait_FiresOnWrite(t *testing.T) {
	r, w, e := os.Pipe()
	require.NoError(t, e)
	defer r.Close()
	defer w.Close()

	p, err := poller.New(8)
	require.Nil(t, err)
	defer p.Close()

	owner := "conn-1"
	require.Nil(t, p.Register(int(r.Fd()), kindPipe, owner, poller.Read))

	_, e = w.Write([]byte("x"))
	require.NoError(t, e)

	ready, err := p.Wait(1000)
	require.Nil(t, err)
	require.Len(t, ready, 1)
	require.Equal(t, int(r.Fd()), ready[0].Fd)
	require.True(t, ready[0].Readable)
	require.Equal(t, kindPipe, ready[0].Kind)
	require.Equal(t, owner, ready[0].Owner)
}

func TestOneShot_DoesNotRefireUntilRearm(t *testing.T) {
	r, w, e := os.Pipe()
	require.NoError(t, e)
	defer r.Close()
	defer w.Close()

	p, err := poller.New(8)
	require.Nil(t, err)
	defer p.Close()

	require.Nil(t, p.Register(int(r.Fd()), kindPipe, nil, poller.Read))
	_, _ = w.Write([]byte("x"))

	ready, err := p.Wait(1000)
	require.Nil(t, err)
	require.Len(t, ready, 1)

	ready, err = p.Wait(50)
	require.Nil(t, err)
	require.Len(t, ready, 0)

	require.Nil(t, p.Rearm(int(r.Fd()), poller.Read))
	ready, err = p.Wait(1000)
	require.Nil(t, err)
	require.Len(t, ready, 1)
}

func TestRearm_UnknownFd(t *testing.T) {
	p, err := poller.New(8)
	require.Nil(t, err)
	defer p.Close()

	require.NotNil(t, p.Rearm(999, poller.Read))
}

func TestUnregister_StopsDelivery(t *testing.T) {
	r, w, e := os.Pipe()
	require.NoError(t, e)
	defer r.Close()
	defer w.Close()

	p, err := poller.New(8)
	require.Nil(t, err)
	defer p.Close()

	require.Nil(t, p.Register(int(r.Fd()), kindPipe, nil, poller.Read))
	require.Nil(t, p.Unregister(int(r.Fd())))

	_, _ = w.Write([]byte("x"))
	ready, err := p.Wait(50)
	require.Nil(t, err)
	require.Len(t, ready, 0)
}
