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

// Package monitor wires the replay engine's counters to OpenTelemetry, and
// optionally exposes them to Prometheus over HTTP, so a long replay run can
// be watched the way an online gcsfuse mount is watched.
package monitor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Instruments holds the counters the replay engine and driver increment.
// All of them are monotonic; Prometheus scrapes the running totals.
type Instruments struct {
	LinesRead     metric.Int64Counter
	FramesMatched metric.Int64Counter
	OpsApplied    metric.Int64Counter // labeled by "op"
	GCRuns        metric.Int64Counter
	TxnsExpired   metric.Int64Counter
	ENOSPCRetries metric.Int64Counter
}

// NewInstruments registers the replayer's counters against meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	var err error
	in := &Instruments{}

	if in.LinesRead, err = meter.Int64Counter("nfstrace_replay_lines_read_total",
		metric.WithDescription("trace lines consumed by the tokenizer")); err != nil {
		return nil, err
	}
	if in.FramesMatched, err = meter.Int64Counter("nfstrace_replay_frames_matched_total",
		metric.WithDescription("request/response pairs admitted by the transaction table")); err != nil {
		return nil, err
	}
	if in.OpsApplied, err = meter.Int64Counter("nfstrace_replay_ops_applied_total",
		metric.WithDescription("operations applied to the replay tree, labeled by op")); err != nil {
		return nil, err
	}
	if in.GCRuns, err = meter.Int64Counter("nfstrace_replay_gc_runs_total",
		metric.WithDescription("replay-tree and transaction-table garbage collection sweeps")); err != nil {
		return nil, err
	}
	if in.TxnsExpired, err = meter.Int64Counter("nfstrace_replay_transactions_expired_total",
		metric.WithDescription("pending transactions dropped after exceeding TRANS_TTL")); err != nil {
		return nil, err
	}
	if in.ENOSPCRetries, err = meter.Int64Counter("nfstrace_replay_enospc_retries_total",
		metric.WithDescription("ENOSPC retry attempts on write-path syscalls")); err != nil {
		return nil, err
	}

	return in, nil
}

// Server owns the Prometheus HTTP listener and the OpenTelemetry meter
// provider backing it. Serve returns immediately; call Shutdown to stop.
type Server struct {
	provider *sdkmetric.MeterProvider
	http     *http.Server
}

// NewServer builds an OpenTelemetry meter provider bridged to a Prometheus
// exporter. If addr is empty, metrics are collected in-process but never
// served — ServeBackground becomes a no-op.
func NewServer(addr string) (*Server, *Instruments, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("nfstrace-replay")

	instruments, err := NewInstruments(meter)
	if err != nil {
		return nil, nil, err
	}

	s := &Server{provider: provider}
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.http = &http.Server{Addr: addr, Handler: mux}
	}

	return s, instruments, nil
}

// ServeBackground starts the Prometheus HTTP listener in a goroutine if one
// was configured, and reports listener errors on errs.
func (s *Server) ServeBackground(errs chan<- error) {
	if s.http == nil {
		return
	}

	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()
}

// Shutdown tears down the HTTP listener (if any) and flushes the meter
// provider.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.provider.Shutdown(ctx)
}
