// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package control hosts the supervised background producers of spec.md
// §4.4: workers that sample memory pressure, watch mod descriptors,
// schedule prefetch, and sync with peers, feeding QueuedIntent values into
// a bounded channel the reducer drains once per frame. Workers never
// touch graph state directly; grounded on
// services/trace/cancel/controller.go's shared-cancellation-token
// supervision model, adapted from that package's session/activity/
// algorithm hierarchy down to a flat worker set (this domain has no
// nested cancellation scopes to track).
package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mark-ik/graphshell-sub001/internal/reducer"
)

// DefaultCapacity is the bounded intent channel's default size (spec.md
// §4.4 "new() -> ControlPanel").
const DefaultCapacity = 256

// Worker is a supervised background producer. Run must return promptly
// when ctx is cancelled; it is the worker's sole cancellation signal
// (spec.md §4.4 "Cancellation and shutdown": "a single cancellation token
// fans out").
type Worker interface {
	Name() string
	Run(ctx context.Context, send *Sender)
}

// Config configures a ControlPanel.
type Config struct {
	// Capacity is the bounded channel size. Zero uses DefaultCapacity.
	Capacity int
	Logger   *slog.Logger
	Diag     Diag
}

// ControlPanel is the supervised set of async background workers feeding
// intents into the reducer (spec.md §4.4). It holds no graph state.
type ControlPanel struct {
	ch     chan reducer.QueuedIntent
	logger *slog.Logger
	diag   Diag

	cancel context.CancelFunc
	ctx    context.Context
	// group supervises every spawned worker goroutine: it shares ctx's
	// cancellation the same way sync.WaitGroup did, and additionally
	// cancels the rest of the group the moment one worker's goroutine
	// returns an error, so a panicking worker no longer just vanishes
	// silently from Shutdown's point of view.
	group *errgroup.Group

	mu      sync.Mutex
	workers []Worker
	started bool
}

// New constructs a ControlPanel (spec.md §4.4 "new()").
func New(cfg Config) *ControlPanel {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	diag := cfg.Diag
	if diag == nil {
		diag = noopDiag{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	return &ControlPanel{
		ch:     make(chan reducer.QueuedIntent, capacity),
		logger: logger.With(slog.String("component", "control_panel")),
		diag:   diag,
		ctx:    gctx,
		cancel: cancel,
		group:  group,
	}
}

// Spawn supervises a background task sharing the cancellation token and
// the intent-channel sender (spec.md §4.4 "spawn(worker)"). Safe to call
// both before and after the panel has started draining. A panicking
// worker's recovered error cancels p.ctx for every other worker via
// errgroup's first-error propagation, rather than leaving the rest of
// the panel running against a silently-dead producer.
func (p *ControlPanel) Spawn(w Worker) {
	p.mu.Lock()
	p.workers = append(p.workers, w)
	p.mu.Unlock()

	p.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker panicked", slog.String("worker", w.Name()), slog.Any("recover", r))
				p.diag.Emit("control."+w.Name(), Error, "worker panicked and was not restarted", map[string]any{"recover": r})
				err = fmt.Errorf("control: worker %s panicked: %v", w.Name(), r)
			}
		}()
		p.logger.Info("worker starting", slog.String("worker", w.Name()))
		w.Run(p.ctx, &Sender{panel: p, worker: w.Name()})
		p.logger.Info("worker stopped", slog.String("worker", w.Name()))
		return nil
	})
}

// TryDrain pulls up to max intents without blocking (spec.md §4.4
// "try_drain(max)"), used once per frame by the reducer. max <= 0 means
// unbounded (spec.md §4.6 step 3, "unbounded_until_empty").
func (p *ControlPanel) TryDrain(max int) []reducer.QueuedIntent {
	var out []reducer.QueuedIntent
	for max <= 0 || len(out) < max {
		select {
		case qi := <-p.ch:
			out = append(out, qi)
		default:
			return out
		}
	}
	return out
}

// Shutdown cancels the supervisor and waits for every worker to return
// (spec.md §4.4 "shutdown()"). Idempotent.
func (p *ControlPanel) Shutdown() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.cancel()
	if err := p.group.Wait(); err != nil {
		p.logger.Error("worker group stopped with error", slog.Any("error", err))
	}
}

// Sender is the narrow, worker-facing handle for pushing intents onto the
// panel's bounded channel (spec.md §4.4 "Backpressure").
type Sender struct {
	panel  *ControlPanel
	worker string
}

// TrySend is a non-blocking send for non-critical producers (e.g.
// background prefetch): on a full channel it drops the intent and emits
// a diagnostic rather than silently discarding it (spec.md §4.4
// "Backpressure": "never drops an intent silently").
func (s *Sender) TrySend(qi reducer.QueuedIntent) bool {
	qi.QueuedAt = time.Now()
	select {
	case s.panel.ch <- qi:
		return true
	default:
		s.panel.diag.Emit("control."+s.worker, Warn, "intent dropped: channel full", map[string]any{
			"source": qi.Source.String(),
		})
		return false
	}
}

// SendCritical blocks with exponential backoff (capped) until the send
// succeeds or ctx is cancelled, for producers that must never drop an
// intent (e.g. peer sync's inbound ApplyRemoteDelta). Backoff starts at
// 10ms and doubles up to a 2s cap, matching spec.md §5 "Cancellation and
// timeouts": "backoff caps at a configured maximum".
func (s *Sender) SendCritical(ctx context.Context, qi reducer.QueuedIntent) error {
	qi.QueuedAt = time.Now()
	backoff := 10 * time.Millisecond
	const maxBackoff = 2 * time.Second
	for {
		select {
		case s.panel.ch <- qi:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		select {
		case s.panel.ch <- qi:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			s.panel.diag.Emit("control."+s.worker, Warn, "critical send backing off: channel full", map[string]any{
				"backoff_ms": backoff.Milliseconds(),
			})
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}
