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

package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/zaver/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("root=/srv\n"))
	require.Nil(t, err)
	require.Equal(t, "/srv", cfg.Root)
	require.Equal(t, 3000, cfg.Port)
	require.Equal(t, 1, cfg.Workers)
	require.Equal(t, 5000, cfg.KeepAliveTimeoutMs)
	require.Equal(t, 5000, cfg.RequestTimeoutMs)
}

func TestParse_WhitespaceTolerant(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("root = /srv \nport  =  8080\r\n"))
	require.Nil(t, err)
	require.Equal(t, "/srv", cfg.Root)
	require.Equal(t, 8080, cfg.Port)
}

func TestParse_TimeoutAliasOverridesBoth(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("root=/srv\nkeep_alive_timeout_ms=1000\ntimeout_ms=9000\n"))
	require.Nil(t, err)
	require.Equal(t, 9000, cfg.KeepAliveTimeoutMs)
	require.Equal(t, 9000, cfg.RequestTimeoutMs)
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("root=/srv\nsome_future_key=xyz\n"))
	require.Nil(t, err)
	require.Equal(t, "/srv", cfg.Root)
}

func TestParse_MissingRoot(t *testing.T) {
	_, err := config.Parse(strings.NewReader("port=8080\n"))
	require.NotNil(t, err)
}

func TestParse_CPUAffinity(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("root=/srv\ncpu_affinity=1\n"))
	require.Nil(t, err)
	require.True(t, cfg.CPUAffinity)
}
