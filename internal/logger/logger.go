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

// Package logger provides the replayer's structured logging, built on
// log/slog with a gcsfuse-style severity ladder (TRACE/DEBUG/INFO/WARNING/
// ERROR/OFF), optional log-file rotation via lumberjack, and a choice of
// text or JSON output.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/googlecloudplatform/nfstrace-replay/internal/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

// asyncLogBufferSize bounds how many pending log lines AsyncLogger will
// queue before it starts dropping them rather than blocking the replay
// loop on a slow disk.
const asyncLogBufferSize = 4096

// loggerFactory owns the sink that defaultLogger's handler writes to, so
// that SetLogFormat and InitLogFile can rebuild the handler in place.
type loggerFactory struct {
	file            *os.File
	async           *AsyncLogger
	sysWriter       io.Writer
	level           string
	format          string
	logRotateConfig cfg.LogRotateConfig
}

var (
	programLevel         = new(slog.LevelVar)
	defaultLoggerFactory = &loggerFactory{
		level:           string(cfg.INFO),
		format:          string(cfg.LogFormatJSON),
		logRotateConfig: cfg.DefaultLogRotateConfig(),
	}
	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, programLevel, ""))
)

func init() {
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
}

// InitLogFile points the default logger at a rotating log file described by
// logConfig, replacing the stderr sink used until now.
func InitLogFile(logConfig cfg.LoggingConfig) error {
	factory := &loggerFactory{
		level:           logConfig.Severity,
		format:          logConfig.Format,
		logRotateConfig: logConfig.LogRotate,
	}

	var sink io.Writer = os.Stderr
	if logConfig.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   string(logConfig.FilePath),
			MaxSize:    logConfig.LogRotate.MaxFileSizeMB,
			MaxBackups: logConfig.LogRotate.BackupFileCount,
			Compress:   logConfig.LogRotate.Compress,
		}

		f, err := os.OpenFile(string(logConfig.FilePath), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		factory.file = f
		factory.async = NewAsyncLogger(lj, asyncLogBufferSize)
		sink = factory.async
	}

	if defaultLoggerFactory.async != nil {
		defaultLoggerFactory.async.Close()
	}
	defaultLoggerFactory = factory
	setLoggingLevel(factory.level, programLevel)
	defaultLogger = slog.New(factory.createJsonOrTextHandler(sink, programLevel, ""))
	return nil
}

// SetLogFormat changes the output format ("text" or anything else, which
// means json) of the default logger in place.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format

	var sink io.Writer = os.Stderr
	if defaultLoggerFactory.async != nil {
		sink = defaultLoggerFactory.async
	} else if defaultLoggerFactory.file != nil {
		sink = defaultLoggerFactory.file
	}

	defaultLogger = slog.New(
		defaultLoggerFactory.createJsonOrTextHandler(sink, programLevel, ""))
}

func Tracef(format string, v ...any) {
	defaultLogger.Log(context.Background(), LevelTrace, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) {
	defaultLogger.Log(context.Background(), LevelDebug, fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	defaultLogger.Log(context.Background(), LevelInfo, fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	defaultLogger.Log(context.Background(), LevelWarn, fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	defaultLogger.Log(context.Background(), LevelError, fmt.Sprintf(format, v...))
}

// Close drains and stops the async log writer (if InitLogFile started one),
// flushing buffered lines before the process exits.
func Close() error {
	if defaultLoggerFactory.async != nil {
		return defaultLoggerFactory.async.Close()
	}
	return nil
}
