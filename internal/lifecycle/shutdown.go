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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/metrics"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitAlreadyRunning = 2
)

// DefaultHookTimeout bounds the time all shutdown hooks may take together.
const DefaultHookTimeout = 10 * time.Second

// Cause classifies why the backend is shutting down.
type Cause string

const (
	CauseSignal        Cause = "signal"
	CauseParentExited  Cause = "parent_exited"
	CauseWindowClosed  Cause = "window_closed"
	CauseServerError   Cause = "server_error"
	CauseStartupFailed Cause = "startup_failed"
)

// Reason is the cause of a shutdown plus free-form detail.
type Reason struct {
	Cause  Cause
	Detail string
}

func (r Reason) String() string {
	if r.Detail == "" {
		return string(r.Cause)
	}
	return fmt.Sprintf("%s: %s", r.Cause, r.Detail)
}

// ExitCode maps the cause to the process exit code.
func (r Reason) ExitCode() int {
	switch r.Cause {
	case CauseServerError, CauseStartupFailed:
		return ExitFailure
	default:
		return ExitOK
	}
}

// Hook is a named cleanup step run during shutdown.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Stopper is satisfied by *Watchdog.
type Stopper interface {
	Stop()
}

// Releaser is satisfied by *InstanceLock.
type Releaser interface {
	Release() error
}

// CoordinatorConfig wires the resources the shutdown sequence tears down.
// Every field is optional.
type CoordinatorConfig struct {
	Watchdog Stopper
	Lock     Releaser
	Journal  *Journal

	// FlushLogs closes buffered log sinks. It runs after everything else has logged.
	FlushLogs func() error

	// Exit terminates the process with the computed code. Nil leaves exiting
	// to the caller of Shutdown.
	Exit func(code int)

	// HookTimeout bounds all hooks together. Default: DefaultHookTimeout.
	HookTimeout time.Duration

	Logger *slog.Logger
}

// Coordinator runs the shutdown sequence exactly once no matter how many
// producers request it.
type Coordinator struct {
	cfg CoordinatorConfig

	gate      atomic.Bool
	reason    atomic.Pointer[Reason]
	triggered chan struct{}
	done      chan Reason

	mu    sync.Mutex
	hooks []namedHook

	runOnce  sync.Once
	finished chan struct{}
	code     int
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = DefaultHookTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Coordinator{
		cfg:       cfg,
		triggered: make(chan struct{}),
		done:      make(chan Reason, 1),
		finished:  make(chan struct{}),
	}
}

// OnShutdown registers a hook. Hooks run in registration order.
func (c *Coordinator) OnShutdown(name string, fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, namedHook{name: name, fn: fn})
}

// Trigger requests shutdown. Only the first call wins; it returns whether
// this call did. Trigger never blocks and is safe from any goroutine.
func (c *Coordinator) Trigger(reason Reason) bool {
	if !c.gate.CompareAndSwap(false, true) {
		c.cfg.Logger.Debug("shutdown already requested, ignoring", slog.String("cause", string(reason.Cause)))
		return false
	}
	c.reason.Store(&reason)
	close(c.triggered)
	c.done <- reason
	c.cfg.Logger.Info("shutdown requested", slog.String("cause", string(reason.Cause)), slog.String("detail", reason.Detail))
	return true
}

// Done delivers the winning reason once.
func (c *Coordinator) Done() <-chan Reason {
	return c.done
}

// Triggered is closed once a shutdown reason has won.
func (c *Coordinator) Triggered() <-chan struct{} {
	return c.triggered
}

// Requested reports whether shutdown has been triggered.
func (c *Coordinator) Requested() bool {
	return c.gate.Load()
}

// Reason returns the winning reason, if any.
func (c *Coordinator) Reason() (Reason, bool) {
	r := c.reason.Load()
	if r == nil {
		return Reason{}, false
	}
	return *r, true
}

// Shutdown triggers with reason (ignored if another reason already won), runs
// the sequence once, and returns its exit code. Concurrent callers block until
// the sequence has finished.
func (c *Coordinator) Shutdown(reason Reason) int {
	c.Trigger(reason)
	<-c.triggered

	c.runOnce.Do(func() {
		c.code = c.run(*c.reason.Load())
		close(c.finished)
	})
	<-c.finished
	return c.code
}

func (c *Coordinator) run(reason Reason) int {
	logger := c.cfg.Logger.With(slog.String("cause", string(reason.Cause)))
	logger.Info("shutdown sequence starting", slog.String("detail", reason.Detail))
	metrics.RecordShutdown(string(reason.Cause))
	start := time.Now()

	var errs []error

	if c.cfg.Watchdog != nil {
		c.cfg.Watchdog.Stop()
		logger.Debug("watchdog stopped")
	}

	c.mu.Lock()
	hooks := append([]namedHook(nil), c.hooks...)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HookTimeout)
	for _, h := range hooks {
		if err := runHook(ctx, h); err != nil {
			logger.Error("shutdown hook failed", slog.String("hook", h.name), log.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		logger.Debug("shutdown hook completed", slog.String("hook", h.name))
	}
	cancel()

	if c.cfg.Lock != nil {
		if err := c.cfg.Lock.Release(); err != nil {
			logger.Warn("failed to release instance lock", log.Error(err))
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
	}

	code := reason.ExitCode()
	err := errors.Join(errs...)
	if jerr := c.cfg.Journal.Shutdown(reason, code, err); jerr != nil {
		logger.Warn("failed to write lifecycle journal", log.Error(jerr))
	}

	logger.Info("shutdown sequence complete",
		slog.Int("exit_code", code),
		log.Duration("duration", time.Since(start).Milliseconds()))

	if c.cfg.FlushLogs != nil {
		if ferr := c.cfg.FlushLogs(); ferr != nil {
			logger.Warn("failed to flush logs", log.Error(ferr))
		}
	}

	if c.cfg.Exit != nil {
		c.cfg.Exit(code)
	}
	return code
}

// runHook converts a panicking hook into an error.
func runHook(ctx context.Context, h namedHook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.fn(ctx)
}
