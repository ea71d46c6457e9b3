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

// Package backend wires the lifecycle components into the startup sequence:
// resolve identity, take the instance lock, bind the HTTP server, advertise
// the port, watch the parent, and shut down once.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/appdata"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/config"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/controller"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
	internallog "github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
)

// LogFileName is the rotating log inside the logs directory.
const LogFileName = "app.log"

// Options configures Run.
type Options struct {
	// Version, Commit and BuildDate are reported by /api/version.
	Version   string
	Commit    string
	BuildDate string

	// DescriptorPath is the --config flag value.
	DescriptorPath string

	// Configure applies command-line overrides after the environment.
	Configure func(cfg *config.Config)

	// Stdout carries the port handshake. Default: os.Stdout
	Stdout io.Writer

	// Stderr receives logs. Default: os.Stderr
	Stderr io.Writer

	// Platform resolves the data directory. Default: appdata.HostPlatform()
	Platform *appdata.Platform

	// Checker answers parent liveness queries. Default: lifecycle.OSProcessChecker
	Checker lifecycle.ProcessChecker
}

// Run executes the backend until a shutdown cause arrives and returns the
// process exit code. Cancelling ctx counts as a signal.
func Run(ctx context.Context, opts Options) int {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	platform := appdata.HostPlatform()
	if opts.Platform != nil {
		platform = *opts.Platform
	}

	logCfg := internallog.FromEnv()
	logCfg.Output = stderr
	runID := uuid.NewString()
	logger := internallog.WithRunID(internallog.New(logCfg), runID)

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Error("invalid configuration", internallog.Error(err))
		return lifecycle.ExitFailure
	}

	ident, err := cfg.Identity(platform)
	if err != nil {
		logger.Error("cannot resolve application data directory", internallog.Error(err))
		return lifecycle.ExitFailure
	}

	journal := lifecycle.NewJournal(filepath.Join(ident.LogsDir(), lifecycle.JournalFileName), runID)

	// Only the lock file is touched in dataDir before Acquire succeeds. A losing
	// instance logs to stderr and appends one journal line.
	lock := lifecycle.NewInstanceLock(lifecycle.LockConfig{
		Enabled: cfg.Lifecycle.SingleInstance,
		Dir:     ident.DataDir,
		AppID:   ident.ID,
		Logger:  internallog.WithComponent(logger, "lock"),
	})
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyRunning) {
			logger.Error("another instance is already running",
				internallog.Path(lock.Path()),
				slog.String("holder", lock.HolderInfo()))
			_ = journal.AlreadyRunning(lock.Path(), lock.HolderInfo())
			return lifecycle.ExitAlreadyRunning
		}
		logger.Error("failed to acquire instance lock", internallog.Error(err))
		return lifecycle.ExitFailure
	}

	var sink *internallog.Sink
	if cfg.LogFile.Enabled {
		if err := appdata.EnsureDir(ident.LogsDir()); err != nil {
			logger.Warn("log file disabled", internallog.Path(ident.LogsDir()), internallog.Error(err))
		} else {
			sink = internallog.NewSink(filepath.Join(ident.LogsDir(), LogFileName), internallog.FileOptions{
				MaxSizeMB:  cfg.LogFile.MaxSizeMB,
				MaxBackups: cfg.LogFile.MaxBackups,
				MaxAgeDays: cfg.LogFile.MaxAgeDays,
			})
			logger = internallog.WithRunID(internallog.NewWithSink(logCfg, sink), runID)
		}
	}
	flushLogs := func() error {
		if sink == nil {
			return nil
		}
		return sink.Close()
	}

	for _, note := range cfg.Notes {
		logger.Info(note)
	}
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}
	logger.Info("backend starting",
		slog.String("app_id", ident.ID),
		slog.String("data_dir", ident.DataDir),
		slog.String("version", opts.Version),
		internallog.PID(os.Getpid()))
	if lock.Held() {
		_ = journal.LockAcquired(lock.Path())
	}

	parentPID, err := lifecycle.ParseParentPID(cfg.Lifecycle.ParentPID)
	if err != nil {
		logger.Warn("ignoring parent pid, watchdog disabled", internallog.Error(err))
		parentPID = nil
	}

	var coord *lifecycle.Coordinator
	watchdog := lifecycle.NewWatchdog(lifecycle.WatchdogConfig{
		ParentPID: parentPID,
		Interval:  cfg.Lifecycle.WatchdogInterval,
		Checker:   opts.Checker,
		Logger:    internallog.WithComponent(logger, "watchdog"),
		OnParentExit: func(parent lifecycle.ProcessIdentity) {
			_ = journal.ParentExited(parent)
			coord.Trigger(lifecycle.Reason{
				Cause:  lifecycle.CauseParentExited,
				Detail: "parent " + parent.String() + " exited",
			})
		},
	})
	coord = lifecycle.NewCoordinator(lifecycle.CoordinatorConfig{
		Watchdog:  watchdog,
		Lock:      lock,
		Journal:   journal,
		FlushLogs: flushLogs,
		Logger:    internallog.WithComponent(logger, "shutdown"),
	})

	srv := controller.New(cfg, controller.Options{
		Version:   opts.Version,
		Commit:    opts.Commit,
		BuildDate: opts.BuildDate,
	}, controller.Deps{
		LogsDir: ident.LogsDir(),
		RunID:   runID,
		Trigger: coord,
		Status:  &status{lock: lock, watchdog: watchdog},
		Logger:  logger,
	})
	coord.OnShutdown("http", srv.Shutdown)

	port, err := srv.Start(ctx)
	if err != nil {
		logger.Error("failed to start http server", internallog.Error(err))
		return coord.Shutdown(lifecycle.Reason{Cause: lifecycle.CauseStartupFailed, Detail: err.Error()})
	}

	channels, _ := cfg.Channels()
	advertiser := lifecycle.NewAdvertiser(lifecycle.AdvertiserConfig{
		Channels: channels,
		Stdout:   stdout,
		Dir:      ident.DataDir,
		Logger:   internallog.WithComponent(logger, "advertiser"),
	})
	if err := advertiser.Advertise(port); err != nil {
		_ = journal.AdvertiseFailed(port, err)
	}
	if published := advertiser.Published(); len(published) > 0 {
		chs := make([]lifecycle.Channel, len(published))
		for i, a := range published {
			chs[i] = a.Channel
		}
		_ = journal.PortAdvertised(port, chs)
	}

	watchdog.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", slog.String("signal", sig.String()))
			coord.Trigger(lifecycle.Reason{Cause: lifecycle.CauseSignal, Detail: sig.String()})
		case <-ctx.Done():
			coord.Trigger(lifecycle.Reason{Cause: lifecycle.CauseSignal, Detail: "context cancelled"})
		case err, ok := <-srv.Errors():
			if ok {
				logger.Error("http server failed", internallog.Error(err))
				coord.Trigger(lifecycle.Reason{Cause: lifecycle.CauseServerError, Detail: err.Error()})
			}
		case <-coord.Triggered():
		}
	}()

	logger.Info("backend ready", internallog.Port(port))
	reason := <-coord.Done()
	return coord.Shutdown(reason)
}

func loadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.Load(opts.DescriptorPath)
	if err != nil {
		return nil, err
	}
	if opts.Configure != nil {
		opts.Configure(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid command-line override: %w", err)
		}
	}
	return cfg, nil
}
