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

// Command zaver is the server's entry point (spec.md §10.4), mirroring
// the original's "-c <config> | -V | -h/-?" surface with spf13/cobra.
// A process started with ZAVER_WORKER_ID set in its environment is a
// worker re-exec'd by master.Master and runs a single worker loop
// directly instead of going through Master.Run again.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nabbar/zaver/config"
	"github.com/nabbar/zaver/errors"
	"github.com/nabbar/zaver/logger"
	loglvl "github.com/nabbar/zaver/logger/level"
	"github.com/nabbar/zaver/master"
	"github.com/nabbar/zaver/rlimit"
	"github.com/nabbar/zaver/worker"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const defaultConfigPath = "/etc/zaver/zaver.conf"

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:     "zaver",
		Short:   "zaver is a minimal static file and CGI/1.1 HTTP server",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath)
		},
	}

	root.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "path to the configuration file")
	root.Flags().BoolP("version", "V", false, "print the version and exit")
	root.Flags().BoolP("help", "h", false, "print this help and exit")

	root.SetVersionTemplate("zaver {{.Version}}\n")

	// -? is an alias of -h.
	for i, a := range os.Args[1:] {
		if a == "--" {
			break
		}
		if a == "-?" {
			os.Args[i+1] = "-h"
		}
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	if id, ok := os.LookupEnv(master.WorkerIDEnv); ok {
		return runWorker(cfgPath, id)
	}
	return runMaster(cfgPath)
}

// runMaster loads the configuration, raises RLIMIT_NOFILE for the
// configured worker count, and hands off to master.Master.
func runMaster(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fail(err)
	}

	log := logger.New(loglvl.InfoLevel, "master")

	if _, _, err := rlimit.Raise(rlimit.ForWorkers(cfg.Workers, rlimit.PerConnFD)); err != nil {
		log.Warn("could not raise RLIMIT_NOFILE", logger.Fields{"err": err.Error()})
	}

	m := master.New(master.FromServerConfig(cfg), log)
	if err := m.Run(); err != nil {
		return fail(err)
	}
	return nil
}

// runWorker is the re-exec'd child path: ZAVER_WORKER_ID carries the
// worker index master.Master.spawn assigned this process.
func runWorker(cfgPath, idStr string) error {
	id, e := strconv.Atoi(idStr)
	if e != nil {
		return fmt.Errorf("invalid %s: %q", master.WorkerIDEnv, idStr)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fail(err)
	}

	log := logger.New(loglvl.InfoLevel, "worker").WithField("worker", id)

	w, err := worker.New(worker.Config{
		ID:                 id,
		Port:               cfg.Port,
		Docroot:            cfg.Root,
		CPUAffinity:        cfg.CPUAffinity,
		CPUIndex:           id,
		KeepAliveTimeoutMs: cfg.KeepAliveTimeoutMs,
		RequestTimeoutMs:   cfg.RequestTimeoutMs,
		Log:                log,
	})
	if err != nil {
		return fail(err)
	}

	if err := w.Run(); err != nil {
		return fail(err)
	}
	return nil
}

func fail(err errors.Error) error {
	return fmt.Errorf("%s", err.Error())
}
