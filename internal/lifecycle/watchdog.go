// Copyright 2025 Tom Barlow
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

package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/metrics"
)

// DefaultWatchdogInterval is the parent liveness poll period.
const DefaultWatchdogInterval = time.Second

// pollWarnEvery limits repeated poll-failure warnings; the rest log at debug.
const pollWarnEvery = 30 * time.Second

// WatchdogState is the state of a Watchdog.
type WatchdogState int32

const (
	// WatchdogDisabled means no parent PID was supplied; nothing is ever polled.
	WatchdogDisabled WatchdogState = iota
	// WatchdogArmed means the parent identity is captured and the first tick is pending.
	WatchdogArmed
	// WatchdogPolling means at least one poll found the parent alive.
	WatchdogPolling
	// WatchdogTriggered means the parent was found dead and shutdown was requested.
	WatchdogTriggered
	// WatchdogStopped means the poll loop has exited.
	WatchdogStopped
)

func (s WatchdogState) String() string {
	switch s {
	case WatchdogDisabled:
		return "disabled"
	case WatchdogArmed:
		return "armed"
	case WatchdogPolling:
		return "polling"
	case WatchdogTriggered:
		return "triggered"
	case WatchdogStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// WatchdogConfig configures a Watchdog.
type WatchdogConfig struct {
	// ParentPID is the supervising process. Nil disables the watchdog.
	ParentPID *int32

	// Interval between polls. Default: DefaultWatchdogInterval.
	Interval time.Duration

	// Checker answers liveness queries. Default: OSProcessChecker.
	Checker ProcessChecker

	// OnParentExit is called once from the poll goroutine when the parent is
	// gone. It must not block and must not call Stop.
	OnParentExit func(parent ProcessIdentity)

	Logger *slog.Logger
}

// Watchdog polls the parent process and reports its death exactly once.
type Watchdog struct {
	cfg WatchdogConfig

	state      atomic.Int32
	polls      atomic.Int64
	pollErrors atomic.Int64
	warnLimit  *rate.Limiter

	mu      sync.Mutex
	started bool
	ident   ProcessIdentity
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatchdog creates a Watchdog in the Disabled or Armed-pending state.
func NewWatchdog(cfg WatchdogConfig) *Watchdog {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWatchdogInterval
	}
	if cfg.Checker == nil {
		cfg.Checker = OSProcessChecker{}
	}
	if cfg.OnParentExit == nil {
		cfg.OnParentExit = func(ProcessIdentity) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Watchdog{
		cfg:       cfg,
		warnLimit: rate.NewLimiter(rate.Every(pollWarnEvery), 1),
	}
}

// Start captures the parent identity and begins polling in a background
// goroutine. It does nothing when disabled or already started.
func (w *Watchdog) Start(ctx context.Context) {
	if w.cfg.ParentPID == nil {
		w.setState(WatchdogDisabled)
		w.cfg.Logger.Debug("parent watchdog disabled, no parent PID")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	pid := *w.cfg.ParentPID
	ident, err := w.cfg.Checker.Identify(ctx, pid)
	if err != nil {
		w.cfg.Logger.Warn("cannot read parent creation time, checking existence only",
			log.PID(int(pid)), log.Error(err))
		ident = ProcessIdentity{PID: pid}
	}
	w.ident = ident

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.setState(WatchdogArmed)

	w.cfg.Logger.Info("parent watchdog armed",
		log.PID(int(pid)), log.Duration("interval", w.cfg.Interval.Milliseconds()))

	go w.loop(loopCtx, ident, w.done)
}

func (w *Watchdog) loop(ctx context.Context, ident ProcessIdentity, done chan struct{}) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer func() {
		ticker.Stop()
		w.setState(WatchdogStopped)
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		w.polls.Add(1)
		alive, err := w.cfg.Checker.Alive(ctx, ident)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.pollErrors.Add(1)
			metrics.RecordPoll(metrics.PollError)
			level := slog.LevelDebug
			if w.warnLimit.Allow() {
				level = slog.LevelWarn
			}
			w.cfg.Logger.Log(ctx, level, "parent liveness check failed, assuming alive",
				log.PID(int(ident.PID)), log.Error(err),
				slog.Int64("poll_errors", w.pollErrors.Load()))
			continue
		}
		if alive {
			metrics.RecordPoll(metrics.PollAlive)
			w.state.CompareAndSwap(int32(WatchdogArmed), int32(WatchdogPolling))
			metrics.SetWatchdogState(int(w.State()))
			continue
		}

		metrics.RecordPoll(metrics.PollExited)
		w.setState(WatchdogTriggered)
		w.cfg.Logger.Info("parent process exited, shutting down", log.PID(int(ident.PID)))
		w.cfg.OnParentExit(ident)
		return
	}
}

// Stop cancels polling and waits for the loop to exit. It is idempotent and
// must not be called from OnParentExit.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	if !w.started && w.cfg.ParentPID != nil {
		w.started = true
		w.setState(WatchdogStopped)
	}
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watchdog) setState(s WatchdogState) {
	w.state.Store(int32(s))
	metrics.SetWatchdogState(int(s))
}

// State returns the current state.
func (w *Watchdog) State() WatchdogState {
	return WatchdogState(w.state.Load())
}

// ParentPID returns the supervised PID, or nil when disabled.
func (w *Watchdog) ParentPID() *int32 {
	if w.cfg.ParentPID == nil {
		return nil
	}
	pid := *w.cfg.ParentPID
	return &pid
}

// Parent returns the identity captured by Start.
func (w *Watchdog) Parent() ProcessIdentity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ident
}

// Polls returns the number of liveness polls performed.
func (w *Watchdog) Polls() int64 {
	return w.polls.Load()
}

// PollErrors returns the number of polls whose query failed.
func (w *Watchdog) PollErrors() int64 {
	return w.pollErrors.Load()
}
