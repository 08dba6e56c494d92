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

// Package driver wires the frame tokenizer, transaction table, and replay
// engine into the single-threaded, synchronous replay loop described by
// the concurrency model: one line in, at most one engine mutation out, no
// parallelism anywhere. The only concurrency the driver itself introduces
// is a SIGINT listener that asks the loop to stop between frames.
package driver

import (
	"bufio"
	"context"
	"crypto/rand"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jacobsa/syncutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sys/unix"

	"github.com/googlecloudplatform/nfstrace-replay/internal/cfg"
	"github.com/googlecloudplatform/nfstrace-replay/internal/logger"
	"github.com/googlecloudplatform/nfstrace-replay/internal/monitor"
	"github.com/googlecloudplatform/nfstrace-replay/internal/ratelimit"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/engine"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/frame"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/stats"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/txn"
)

// throttleWindow is the smoothing window ChooseLimiterCapacity uses to size
// the token bucket backing --max-ops-per-sec.
const throttleWindow = 10 * time.Second

// sentinelName is the on-disk file used to drive periodic syncfs calls.
const sentinelName = ".sync_file_handle"

// Driver owns the replay loop's mutable state: the transaction table, the
// engine, the counters, and the sync sentinel.
type Driver struct {
	cfg         cfg.Config
	table       *txn.Table
	engine      *engine.Engine
	stats       *stats.Stats
	instruments *monitor.Instruments
	throttle    ratelimit.Throttle
	sentinel    *os.File

	seq      int64
	lastGC   int64
	lastSync int64
	paused   atomic.Bool
}

// instrumentedCounters satisfies engine.Counters by recording to the plain
// stats totals (always) and, when present, to the OpenTelemetry instruments
// the Prometheus endpoint scrapes. ENOSPC retries are the only per-syscall
// counter the engine itself drives; everything else the driver increments
// around the call sites it already has context at.
type instrumentedCounters struct {
	*stats.Stats
	instruments *monitor.Instruments
}

func (c *instrumentedCounters) IncENOSPCRetry() {
	c.Stats.IncENOSPCRetry()
	if c.instruments != nil {
		c.instruments.ENOSPCRetries.Add(context.Background(), 1)
	}
}

// New builds a Driver from a resolved configuration. It allocates the
// shared random (or zero) payload buffer once, per the concurrency model.
// instruments may be nil, in which case metrics are tracked only in the
// plain-text stats report.
func New(config cfg.Config, instruments *monitor.Instruments) (*Driver, error) {
	buf := make([]byte, engine.RandbufSize)
	if !config.Replay.ZeroFill {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
	}

	s := &stats.Stats{}
	counters := &instrumentedCounters{Stats: s, instruments: instruments}
	eng := engine.New(engine.Config{
		BaseDir:   ".",
		DataSync:  config.Replay.DataSync,
		ZeroFill:  config.Replay.ZeroFill,
		InodeTest: config.Replay.InodeTest,
	}, buf, counters)

	var throttle ratelimit.Throttle
	if config.Replay.MaxOpsPerSecond > 0 {
		capacity, err := ratelimit.ChooseLimiterCapacity(config.Replay.MaxOpsPerSecond, throttleWindow)
		if err != nil {
			return nil, err
		}
		throttle = ratelimit.NewThrottle(config.Replay.MaxOpsPerSecond, capacity)
	}

	return &Driver{
		cfg:         config,
		table:       txn.New(),
		engine:      eng,
		stats:       s,
		instruments: instruments,
		throttle:    throttle,
	}, nil
}

// Run consumes trace lines from r until EOF, SIGINT, a line longer than
// 1 MiB, or a structural invariant error. It returns the structural error, if any; transient I/O
// and malformed-trace conditions are never returned, per the error
// handling design.
func (d *Driver) Run(r io.Reader) error {
	if !d.cfg.Replay.DisableSync {
		if err := d.openSentinel(); err != nil {
			return err
		}
		defer d.closeSentinel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := syncutil.NewBundle(ctx)

	b.Add(func(ctx context.Context) error {
		return d.runSignalListener(ctx)
	})

	var loopErr error
	b.Add(func(ctx context.Context) error {
		loopErr = d.runLoop(r)
		cancel()
		return nil
	})

	b.Join()

	return loopErr
}

// runSignalListener sets the pause flag on SIGINT/SIGTERM and returns once
// either fires or ctx is cancelled by the main loop finishing on its own.
func (d *Driver) runSignalListener(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		d.paused.Store(true)
	case <-ctx.Done():
	}
	return nil
}

func (d *Driver) runLoop(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	// The scanner accepts lines well past frame.MaxLineLength so that an
	// overlong line still reaches Tokenize, which skips it; only a line
	// over 1 MiB ends the scan (reported below as a scan error).
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	ctx := context.Background()

	for scanner.Scan() {
		if d.paused.Load() {
			break
		}

		d.seq++
		d.stats.IncLinesRead()
		if d.instruments != nil {
			d.instruments.LinesRead.Add(ctx, 1)
		}

		f, ok := frame.Tokenize(scanner.Text())
		if !ok {
			continue
		}
		f.Seq = d.seq

		if d.throttle != nil {
			if err := d.throttle.Wait(ctx, 1); err != nil {
				return err
			}
		}

		if err := d.handleFrame(f); err != nil {
			return err
		}

		d.maybeSync(f.Time)
		d.maybeGC(f.Time)
	}

	if err := scanner.Err(); err != nil {
		logger.Errorf("trace scan error: %v", err)
	}

	if d.cfg.Replay.ReportPath != "" {
		if err := d.writeReport(); err != nil {
			logger.Warnf("writing stats report: %v", err)
		}
	}

	return nil
}

func (d *Driver) handleFrame(f *frame.Frame) error {
	if f.IsCall() {
		if d.table.AdmitRequest(f) {
			d.stats.IncRequestsProcessed()
		}
		return nil
	}
	if !f.IsReply() {
		return nil
	}

	pair, ok := d.table.AdmitResponse(f)
	if !ok {
		return nil
	}

	d.stats.IncResponsesProcessed()
	if d.instruments != nil {
		d.instruments.FramesMatched.Add(context.Background(), 1)
	}

	if err := d.engine.Apply(pair.Request, pair.Response); err != nil {
		if _, isInvariant := err.(*engine.InvariantError); isInvariant {
			return err
		}
		logger.Warnf("applying %v (line %d): %v", f.Op, f.Seq, err)
		return nil
	}

	if d.instruments != nil {
		d.instruments.OpsApplied.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("op", f.Op.String())))
	}
	return nil
}

func (d *Driver) maybeSync(now int64) {
	if d.cfg.Replay.DisableSync || d.sentinel == nil {
		return
	}
	interval := int64(d.cfg.Replay.SyncIntervalMinutes) * 60
	if interval <= 0 {
		interval = int64(cfg.DefaultSyncIntervalMinutes) * 60
	}
	if now-d.lastSync < interval {
		return
	}
	d.lastSync = now
	if err := unix.Syncfs(int(d.sentinel.Fd())); err != nil {
		logger.Warnf("syncfs: %v", err)
	}
}

func (d *Driver) maybeGC(now int64) {
	if !d.cfg.Replay.GCEnabled {
		return
	}

	n := d.engine.Handles().Len()
	hard := n > engine.HardThreshold
	soft := n > engine.SoftThreshold && now-d.lastGC > engine.SoftGCInterval

	if !hard && !soft {
		return
	}

	ko := engine.Cutoff(now, hard)
	removed := d.engine.GC(now, ko)
	d.stats.IncGCRun()
	d.lastGC = now

	expired := d.table.GC(now)
	d.stats.AddTransactionsExpired(expired)

	if d.instruments != nil {
		ctx := context.Background()
		d.instruments.GCRuns.Add(ctx, 1)
		if expired > 0 {
			d.instruments.TxnsExpired.Add(ctx, int64(expired))
		}
	}

	logger.Infof("gc: removed %d nodes, %d expired transactions", removed, expired)
}

func (d *Driver) openSentinel() error {
	f, err := os.OpenFile(sentinelName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	d.sentinel = f
	return nil
}

func (d *Driver) closeSentinel() {
	if d.sentinel == nil {
		return
	}
	d.sentinel.Close()
	os.Remove(sentinelName)
}

func (d *Driver) writeReport() error {
	f, err := os.Create(string(d.cfg.Replay.ReportPath))
	if err != nil {
		return err
	}
	defer f.Close()
	return d.stats.WriteReport(f)
}
