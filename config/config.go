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

// Package config loads the server's line-oriented key=value configuration
// file. The grammar has no comment syntax; unknown keys are silently
// ignored, and whitespace around '=' is tolerated.
package config

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/nabbar/zaver/errors"
)

// Config holds the resolved server configuration, after defaults and the
// timeout_ms alias have been applied.
type Config struct {
	Root               string
	Port               int
	Workers            int
	CPUAffinity        bool
	KeepAliveTimeoutMs int
	RequestTimeoutMs   int
	ThreadNum          int // legacy, ignored
}

func defaults() Config {
	return Config{
		Port:               3000,
		Workers:            1,
		KeepAliveTimeoutMs: 5000,
		RequestTimeoutMs:   5000,
		ThreadNum:          4,
	}
}

// Load reads and parses the config file at path.
func Load(path string) (Config, errors.Error) {
	f, e := os.Open(path)
	if e != nil {
		return Config{}, ErrorFileOpen.Error(e)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads key=value pairs from r and returns the resolved Config.
// root is the only required key; its absence is an error once reading
// completes, matching the original config loader's all-or-nothing defaults.
func Parse(r io.Reader) (Config, errors.Error) {
	cfg := defaults()
	haveRoot := false

	var timeoutAlias *int

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}

		i := strings.IndexByte(line, '=')
		if i < 0 {
			continue
		}

		key := strings.TrimSpace(line[:i])
		val := strings.TrimSpace(line[i+1:])

		switch key {
		case "root":
			cfg.Root = val
			haveRoot = true
		case "port":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.Port = n
			}
		case "workers":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.Workers = n
			}
		case "cpu_affinity":
			cfg.CPUAffinity = val != "" && val != "0"
		case "keep_alive_timeout_ms":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.KeepAliveTimeoutMs = n
			}
		case "request_timeout_ms":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.RequestTimeoutMs = n
			}
		case "timeout_ms":
			if n, err := strconv.Atoi(val); err == nil {
				timeoutAlias = &n
			}
		case "threadnum":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.ThreadNum = n
			}
		}
	}

	if e := sc.Err(); e != nil {
		return Config{}, ErrorFileRead.Error(e)
	}

	if timeoutAlias != nil {
		cfg.KeepAliveTimeoutMs = *timeoutAlias
		cfg.RequestTimeoutMs = *timeoutAlias
	}

	if !haveRoot || cfg.Root == "" {
		return Config{}, ErrorMissingRoot.Error()
	}

	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
		if cfg.Workers < 1 {
			cfg.Workers = 1
		}
	}

	return cfg, nil
}
