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

// Package master supervises the worker processes (spec.md §4.8). Go
// has no fork-and-continue-in-place primitive, so where the original
// server's parent calls fork() once per worker, this one re-execs its
// own binary once per worker instead, telling each child its worker
// index through WorkerIDEnv. Every worker then binds the same
// listening port independently via SO_REUSEPORT.
package master

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/nabbar/zaver/config"
	"github.com/nabbar/zaver/errors"
	"github.com/nabbar/zaver/logger"
	"github.com/nabbar/zaver/procsig"
	"github.com/nabbar/zaver/worker"
)

// WorkerIDEnv is the environment variable a re-exec'd worker process
// checks on startup to learn it should run as a worker (carrying its
// index) rather than as a fresh master invocation.
const WorkerIDEnv = "ZAVER_WORKER_ID"

// Config is the subset of the resolved server configuration the
// master needs to decide how many workers to run and what to pass
// each one.
type Config struct {
	Workers            int
	Port               int
	Docroot            string
	CPUAffinity        bool
	KeepAliveTimeoutMs int
	RequestTimeoutMs   int
}

// FromServerConfig adapts a loaded config.Config into a master.Config.
func FromServerConfig(cfg config.Config) Config {
	return Config{
		Workers:            cfg.Workers,
		Port:               cfg.Port,
		Docroot:            cfg.Root,
		CPUAffinity:        cfg.CPUAffinity,
		KeepAliveTimeoutMs: cfg.KeepAliveTimeoutMs,
		RequestTimeoutMs:   cfg.RequestTimeoutMs,
	}
}

// Master owns the worker process pool.
type Master struct {
	cfg Config
	log logger.Logger
}

// New returns a Master for cfg, logging through log (may be nil).
func New(cfg Config, log logger.Logger) *Master {
	return &Master{cfg: cfg, log: log}
}

// Run implements spec.md §4.8. Workers <= 1 runs a single worker
// directly in this process (no fork needed for one process). Workers
// > 1 spawns that many worker processes, installs the shared
// SIGINT/SIGTERM handling, and blocks until either a child exits or
// the master itself receives a stop signal, at which point every
// remaining child is sent SIGTERM and waited for before returning.
func (m *Master) Run() errors.Error {
	if m.cfg.Workers <= 1 {
		return m.runSingle()
	}
	return m.runMulti()
}

func (m *Master) runSingle() errors.Error {
	w, err := worker.New(worker.Config{
		ID:                 0,
		Port:               m.cfg.Port,
		Docroot:            m.cfg.Docroot,
		CPUAffinity:        m.cfg.CPUAffinity,
		CPUIndex:           0,
		KeepAliveTimeoutMs: m.cfg.KeepAliveTimeoutMs,
		RequestTimeoutMs:   m.cfg.RequestTimeoutMs,
		Log:                m.log,
	})
	if err != nil {
		return err
	}
	return w.Run()
}

func (m *Master) runMulti() errors.Error {
	exe, e := os.Executable()
	if e != nil {
		return ErrorExecutableLookup.Error(e)
	}

	procs := make([]*os.Process, 0, m.cfg.Workers)
	for i := 0; i < m.cfg.Workers; i++ {
		p, err := m.spawn(exe, i)
		if err != nil {
			m.terminateAll(procs)
			m.waitAll(procs)
			return err
		}
		procs = append(procs, p)
	}

	var stopOnce sync.Once
	stopCh := make(chan struct{})
	cancel := procsig.Install(func() { stopOnce.Do(func() { close(stopCh) }) })
	defer cancel()

	exited := make(chan int, len(procs))
	var wg sync.WaitGroup
	for idx, p := range procs {
		wg.Add(1)
		go func(i int, proc *os.Process) {
			defer wg.Done()
			_, _ = proc.Wait()
			exited <- i
		}(idx, p)
	}

	select {
	case i := <-exited:
		if m.log != nil {
			m.log.Warn("worker exited, stopping remaining workers", logger.Fields{"worker": i})
		}
	case <-stopCh:
		if m.log != nil {
			m.log.Info("master received stop signal, stopping workers")
		}
	}

	m.terminateAll(procs)
	wg.Wait()
	return nil
}

func (m *Master) spawn(exe string, id int) (*os.Process, errors.Error) {
	env := append(os.Environ(), fmt.Sprintf("%s=%d", WorkerIDEnv, id))

	p, e := os.StartProcess(exe, os.Args, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	})
	if e != nil {
		return nil, ErrorSpawnWorker.Error(e)
	}
	return p, nil
}

func (m *Master) terminateAll(procs []*os.Process) {
	for _, p := range procs {
		_ = p.Signal(syscall.SIGTERM)
	}
}

func (m *Master) waitAll(procs []*os.Process) {
	for _, p := range procs {
		_, _ = p.Wait()
	}
}
