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

// Package cfg defines the replayer's settings struct and the cobra/viper
// wiring that populates it from flags, a YAML config file, and defaults.
package cfg

import (
	"time"

	"github.com/spf13/pflag"
)

// Config is the fully resolved configuration for a single replay run.
type Config struct {
	// TraceFile is the positional argument: path to the trace, "-" for
	// stdin. The file is read as plain text; compressed (.gz/.bz2) input is
	// not decoded, so it has to be decompressed before it reaches the
	// replayer (for example piped in on stdin).
	TraceFile string

	Replay     ReplayConfig     `yaml:"replay"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ReplayConfig controls the windowing and fidelity of the replay itself.
type ReplayConfig struct {
	// Begin and End hold the -b/-l window bounds as given (a YYYY-MM-DD
	// date or a "+N" day offset). They are stored unparsed and the driver
	// does not filter frames by them: every frame of the trace is replayed
	// whatever they hold.
	Begin string `yaml:"begin"`
	End   string `yaml:"end"`

	// SyncIntervalMinutes is how often, in trace minutes, the driver issues
	// a filesystem sync against the sentinel file. Zero with DisableSync
	// unset falls back to DefaultSyncIntervalMinutes.
	SyncIntervalMinutes int  `yaml:"sync-interval-minutes"`
	DisableSync         bool `yaml:"no-sync"`

	// DataSync calls fdatasync after every write instead of relying on the
	// periodic sync.
	DataSync bool `yaml:"datasync"`

	// ZeroFill writes zeros instead of reading from /dev/urandom when
	// manufacturing write payloads.
	ZeroFill bool `yaml:"zero-fill"`

	// GCEnabled runs the periodic garbage collection of the replay tree and
	// of the transaction table. Defaults to true; -G clears it.
	GCEnabled bool `yaml:"gc"`

	// InodeTest runs in truncate-only mode: writes only resize the target,
	// they never touch payload bytes.
	InodeTest bool `yaml:"inode-test"`

	// ReportPath, if non-empty, names a file to receive the final
	// statistics report.
	ReportPath ResolvedPath `yaml:"report"`

	// MaxOpsPerSecond throttles the rate at which the driver admits frames
	// into the replay engine via a token bucket. Zero disables throttling.
	MaxOpsPerSecond float64 `yaml:"max-ops-per-sec"`
}

// DefaultSyncIntervalMinutes is used when SyncIntervalMinutes is left at
// its zero value and syncing hasn't been disabled.
const DefaultSyncIntervalMinutes = 10

// LogRotateConfig configures lumberjack-backed log file rotation.
type LogRotateConfig struct {
	MaxFileSizeMB   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// DefaultLogRotateConfig returns the rotation policy used when a run
// doesn't override it.
func DefaultLogRotateConfig() LogRotateConfig {
	return LogRotateConfig{
		MaxFileSizeMB:   512,
		BackupFileCount: 10,
		Compress:        true,
	}
}

// LoggingConfig controls where and how the replayer logs.
type LoggingConfig struct {
	FilePath  ResolvedPath    `yaml:"file-path"`
	Format    string          `yaml:"format"`
	Severity  string          `yaml:"severity"`
	LogRotate LogRotateConfig `yaml:"log-rotate"`
}

// MonitoringConfig controls the OpenTelemetry/Prometheus metrics surface.
type MonitoringConfig struct {
	// ListenAddr, if non-empty, serves Prometheus-format metrics at
	// /metrics on this address.
	ListenAddr string `yaml:"metrics-addr"`

	MetricsExportInterval time.Duration `yaml:"metrics-export-interval"`
}

// DefaultConfig returns the configuration used when no flags or config
// file override it.
func DefaultConfig() Config {
	return Config{
		Replay: ReplayConfig{
			SyncIntervalMinutes: DefaultSyncIntervalMinutes,
			GCEnabled:           true,
		},
		Logging: LoggingConfig{
			Severity:  string(INFO),
			Format:    string(LogFormatJSON),
			LogRotate: DefaultLogRotateConfig(),
		},
		Monitoring: MonitoringConfig{
			MetricsExportInterval: 30 * time.Second,
		},
	}
}

// BindFlags registers every replay flag on flagSet, mirroring the table in
// the driver CLI design: short forms for the options the original trace
// driver exposed, long forms for the ones this reimplementation adds.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.StringP("replay.begin", "b", "", "start of the replay window: YYYY-MM-DD or +N days (stored, not applied to the replay)")
	flagSet.StringP("replay.end", "l", "", "end of the replay window: YYYY-MM-DD or +N days (stored, not applied to the replay)")
	flagSet.IntP("replay.sync-interval-minutes", "s", DefaultSyncIntervalMinutes, "trace-minutes between periodic syncs")
	flagSet.BoolP("replay.no-sync", "S", false, "disable periodic syncing")
	flagSet.BoolP("replay.datasync", "D", false, "fdatasync after every write")
	flagSet.BoolP("replay.zero-fill", "z", false, "write zeros instead of random payload bytes")
	flagSet.BoolP("replay.gc", "g", true, "run the replay-tree and transaction-table garbage collector")
	flagSet.BoolP("no-gc", "G", false, "disable the replay-tree and transaction-table garbage collector")
	flagSet.BoolP("replay.inode-test", "i", false, "truncate-only mode: skip payload writes")
	flagSet.StringP("replay.report", "r", "", "path to write the final statistics report")
	flagSet.String("monitoring.metrics-addr", "", "address to serve Prometheus metrics on, empty disables")
	flagSet.Float64("replay.max-ops-per-sec", 0, "throttle frame admission to this many ops/sec, 0 disables")

	flagSet.String("logging.file-path", "", "log file path, empty logs to stderr")
	flagSet.String("logging.format", string(LogFormatJSON), "log format: text or json")
	flagSet.String("logging.severity", string(INFO), "minimum severity logged")
	flagSet.Int("logging.log-rotate.max-file-size-mb", 512, "log file size before rotation")
	flagSet.Int("logging.log-rotate.backup-file-count", 10, "rotated log files to retain")
	flagSet.Bool("logging.log-rotate.compress", true, "gzip rotated log files")

	flagSet.Duration("monitoring.metrics-export-interval", 30*time.Second, "interval between metrics exports")

	return nil
}
