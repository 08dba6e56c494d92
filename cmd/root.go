// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd is the replayer's cobra-based command-line entry point.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/googlecloudplatform/nfstrace-replay/internal/cfg"
	"github.com/googlecloudplatform/nfstrace-replay/internal/logger"
	"github.com/googlecloudplatform/nfstrace-replay/internal/monitor"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/driver"
)

var bindErr error

var rootCmd = &cobra.Command{
	Use:   "nfstrace-replay [flags] trace-file",
	Short: "Replay a captured NFS trace against a real directory tree",
	Long: `nfstrace-replay reads a captured NFS request/response trace and
reproduces the file-system operations it describes against a real
directory tree, so storage systems can be load-tested with traffic shaped
like production.`,
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		return run(c)
	},
}

func init() {
	bindErr = cfg.BindFlags(rootCmd.Flags())
	rootCmd.Flags().String("config-file", "", "path to a YAML config file")
}

// Execute is the process entry point, called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cobra.Command) error {
	config, err := cfg.Resolve(c.Flags())
	if err != nil {
		return err
	}

	if err := logger.InitLogFile(config.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.SetLogFormat(config.Logging.Format)
	defer logger.Close()

	metricsServer, instruments, err := monitor.NewServer(config.Monitoring.ListenAddr)
	if err != nil {
		return fmt.Errorf("starting metrics server: %w", err)
	}
	errs := make(chan error, 1)
	metricsServer.ServeBackground(errs)
	defer metricsServer.Shutdown(context.Background())

	traceFile := os.Stdin
	if config.TraceFile != "-" {
		f, err := os.Open(config.TraceFile)
		if err != nil {
			return fmt.Errorf("opening trace file: %w", err)
		}
		defer f.Close()
		traceFile = f
	}

	d, err := driver.New(config, instruments)
	if err != nil {
		return fmt.Errorf("initializing driver: %w", err)
	}

	installCrashHandler()

	return d.Run(traceFile)
}
