/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mfreeman451/wrtmon/pkg/config"
	"github.com/mfreeman451/wrtmon/pkg/metrics"
	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

// Poller runs one collect and normalise cycle at a time, on an interval and
// on request, and publishes each result.
type Poller struct {
	collector  Collector
	normalizer Normalizer
	history    metrics.HistoryStore
	logger     *slog.Logger
	config     Config
	limiter    *rate.Limiter
	now        func() time.Time
	newID      func() string

	mu       sync.RWMutex
	current  *snapshot.Snapshot
	lastGood *snapshot.Snapshot
	status   Status

	subMu   sync.Mutex
	subs    map[uint64]chan *snapshot.Snapshot
	nextSub uint64

	runMu   sync.Mutex
	running bool
	refresh chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

type Option func(*Poller)

// WithHistory records every cycle in h.
func WithHistory(h metrics.HistoryStore) Option {
	return func(p *Poller) {
		p.history = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// WithIDGenerator overrides the cycle ID source.
func WithIDGenerator(fn func() string) Option {
	return func(p *Poller) {
		p.newID = fn
	}
}

// New validates cfg and builds an idle poller.
func New(cfg Config, collector Collector, normalizer Normalizer, opts ...Option) (*Poller, error) {
	if err := config.ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	p := &Poller{
		collector:  collector,
		normalizer: normalizer,
		history:    metrics.NewBuffer(config.DefaultHistorySize),
		logger:     slog.Default(),
		config:     cfg,
		limiter:    rate.NewLimiter(rate.Every(cfg.RefreshEvery), 1),
		now:        time.Now,
		newID:      uuid.NewString,
		current:    snapshot.Empty(),
		subs:       make(map[uint64]chan *snapshot.Snapshot),
		refresh:    make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger = p.logger.With("component", "poller")
	p.status.Interval = cfg.Interval
	p.status.FailurePolicy = cfg.FailurePolicy

	return p, nil
}

// Start runs the loop until ctx is done or Stop is called. The first cycle
// runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.runMu.Lock()
	if p.running {
		p.runMu.Unlock()

		return ErrAlreadyRunning
	}

	p.running = true
	p.done = make(chan struct{})
	p.stopped = make(chan struct{})
	done, stopped := p.done, p.stopped
	p.runMu.Unlock()

	p.setRunning(true)

	defer func() {
		p.setRunning(false)

		p.runMu.Lock()
		p.running = false
		p.runMu.Unlock()

		close(stopped)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	p.logger.Info("Starting poller", "interval", p.config.Interval, "failure_policy", p.config.FailurePolicy)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			select {
			case <-done:
				return nil
			default:
				return ctx.Err()
			}
		case <-ticker.C:
			p.runCycle(ctx)
		case <-p.refresh:
			p.runCycle(ctx)
			ticker.Reset(p.config.Interval)
		}
	}
}

// Stop ends the loop and waits for the in-flight cycle to unwind.
func (p *Poller) Stop(ctx context.Context) error {
	p.runMu.Lock()
	if !p.running {
		p.runMu.Unlock()

		return nil
	}

	done, stopped := p.done, p.stopped

	select {
	case <-done:
	default:
		close(done)
	}
	p.runMu.Unlock()

	select {
	case <-stopped:
		p.logger.Info("Poller stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh asks for an out-of-cycle poll. Requests made while one is already
// pending are merged; requests faster than the configured spacing are refused.
func (p *Poller) Refresh() error {
	p.runMu.Lock()
	running := p.running
	p.runMu.Unlock()

	if !running {
		return ErrNotRunning
	}

	if !p.limiter.Allow() {
		return ErrRefreshLimited
	}

	p.queueRefresh()

	return nil
}

// RequestRefresh schedules an out-of-cycle poll without consulting the rate
// limiter. It is meant for callers that just changed router state; the
// request still merges with one already pending.
func (p *Poller) RequestRefresh() error {
	p.runMu.Lock()
	running := p.running
	p.runMu.Unlock()

	if !running {
		return ErrNotRunning
	}

	p.queueRefresh()

	return nil
}

func (p *Poller) queueRefresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Current returns the latest published snapshot; it is never nil. Callers
// must treat it as read-only.
func (p *Poller) Current() *snapshot.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.current
}

// Status returns a copy of the loop status.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status
}

// History returns the recorded cycles, oldest first.
func (p *Poller) History() []metrics.CyclePoint {
	return p.history.GetPoints()
}

// HistoryStore exposes the cycle store.
func (p *Poller) HistoryStore() metrics.HistoryStore {
	return p.history
}

type cycleOutcome struct {
	snap  *snapshot.Snapshot
	calls int
	err   error
}

func (p *Poller) runCycle(ctx context.Context) {
	id := p.newID()
	started := p.now()
	logger := p.logger.With("cycle_id", id)

	p.mu.Lock()
	p.status.State = StateFetching
	p.status.LastCycleID = id
	p.status.LastStarted = started
	prev := p.lastGood
	p.mu.Unlock()

	out := p.cycle(ctx, prev)
	elapsed := p.now().Sub(started)

	if ctx.Err() != nil {
		p.setState(StateIdle)
		logger.Debug("Cycle abandoned", "error", ctx.Err())

		return
	}

	published := p.publish(id, out, elapsed)

	point := metrics.CyclePoint{
		CycleID:   id,
		Started:   started,
		Duration:  elapsed,
		Calls:     out.calls,
		SessionOK: out.snap != nil && out.snap.SessionOK,
		Failed:    out.err != nil,
	}

	if out.snap != nil {
		point.AbsentCalls = len(out.snap.AbsentCalls)
	}

	if out.err != nil {
		point.Error = out.err.Error()
		logger.Warn("Poll cycle failed", "error", out.err, "duration", elapsed, "stale", published.Stale)
	} else {
		logger.Debug("Poll cycle completed", "duration", elapsed,
			"absent", point.AbsentCalls, "degraded", len(out.snap.Degraded))
	}

	p.history.Add(point)
	p.notify(published)
}

// cycle collects and normalises, converting panics into ErrCyclePanic.
func (p *Poller) cycle(ctx context.Context, prev *snapshot.Snapshot) (out cycleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = cycleOutcome{err: fmt.Errorf("%w: %v", ErrCyclePanic, r)}
		}
	}()

	raw := p.collector.Collect(ctx)

	p.setState(StateNormalizing)

	out.snap = p.normalizer.Normalize(raw, prev)
	if raw != nil {
		out.calls = len(raw.Results)
	}

	switch {
	case raw == nil || !raw.SessionOK:
		out.err = ErrNoSession
	case answered(raw) == 0:
		out.err = ErrNothingAnswered
	}

	return out
}

// publish applies the failure policy and swaps the current snapshot.
func (p *Poller) publish(id string, out cycleOutcome, elapsed time.Duration) *snapshot.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	fresh := out.snap
	if fresh == nil {
		fresh = snapshot.Empty()
		fresh.CollectedAt = p.status.LastStarted
	}

	fresh.CycleID = id

	var next *snapshot.Snapshot

	switch {
	case out.err == nil:
		next = fresh
		p.lastGood = fresh
		p.status.ConsecutiveFailures = 0
		p.status.LastSuccess = fresh.CollectedAt
		p.status.LastError = ""
	case p.config.FailurePolicy == config.FailurePolicyRetain && p.lastGood != nil:
		retained := *p.lastGood
		retained.Stale = true
		next = &retained
	default:
		next = fresh
	}

	if out.err != nil {
		p.status.ConsecutiveFailures++
		p.status.LastError = out.err.Error()
	}

	p.current = next
	p.status.State = StateIdle
	p.status.Stale = next.Stale
	p.status.SessionOK = fresh.SessionOK
	p.status.LastDuration = elapsed
	p.status.Cycles++

	return next
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.status.State = s
	p.mu.Unlock()
}

func (p *Poller) setRunning(running bool) {
	p.mu.Lock()
	p.status.Running = running
	p.mu.Unlock()
}

func answered(raw *snapshot.Raw) int {
	n := 0

	for _, r := range raw.Results {
		if r.OK {
			n++
		}
	}

	return n
}
