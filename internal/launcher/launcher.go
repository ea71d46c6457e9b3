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

package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
	internallog "github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
	apperrors "github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/errors"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/httpclient"
)

const (
	// DefaultHandshakeTimeout bounds the wait for the port line.
	DefaultHandshakeTimeout = 30 * time.Second

	// DefaultStopTimeout is how long Stop waits after SIGTERM before killing.
	DefaultStopTimeout = 10 * time.Second
)

// ErrBackendAlreadyRunning is returned when the backend exits with the
// already-running code before advertising a port.
var ErrBackendAlreadyRunning = errors.New("another backend instance is already running")

// LaunchConfig describes how to spawn the backend.
type LaunchConfig struct {
	// Binary is the backend executable.
	Binary string

	// Args are passed to the backend.
	Args []string

	// Port is exported as BACKEND_PORT when non-zero.
	Port int

	// Env is appended to the current environment.
	Env []string

	// HandshakeTimeout bounds the wait for the port. Default: 30s
	HandshakeTimeout time.Duration

	// HealthTimeout bounds the readiness probe. Default: lifecycle.DefaultHealthTimeout
	HealthTimeout time.Duration

	// Stderr receives the backend's log output. Default: discarded
	Stderr io.Writer

	Logger *slog.Logger
}

// Backend is a running backend child process.
type Backend struct {
	// Port is the advertised port.
	Port int

	cmd    *exec.Cmd
	logger *slog.Logger

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

// Launch spawns the backend with TAURI_PARENT_PID set to this process,
// reads the port handshake from its stdout and waits until POST /api/hello
// answers.
func Launch(ctx context.Context, cfg LaunchConfig) (*Backend, error) {
	if cfg.Binary == "" {
		return nil, &apperrors.ValidationError{
			Field:      "binary",
			Message:    "backend binary is required",
			Suggestion: "pass the path of the desktop-backend executable",
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = internallog.Discard()
	}
	logger = internallog.WithComponent(logger, "launcher")

	handshakeTimeout := cfg.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	healthTimeout := cfg.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = lifecycle.DefaultHealthTimeout
	}

	cmd := exec.Command(cfg.Binary, cfg.Args...)
	cmd.Env = append(os.Environ(), "TAURI_PARENT_PID="+strconv.Itoa(os.Getpid()))
	if cfg.Port != 0 {
		cmd.Env = append(cmd.Env, "BACKEND_PORT="+strconv.Itoa(cfg.Port))
	}
	cmd.Env = append(cmd.Env, cfg.Env...)
	cmd.Stderr = cfg.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open backend stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start backend: %w", err)
	}

	b := &Backend{
		cmd:    cmd,
		logger: logger,
		done:   make(chan struct{}),
	}
	logger.Info("backend started", internallog.PID(cmd.Process.Pid))

	hsCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	port, err := WaitForHandshake(hsCtx, stdout)
	cancel()
	if err != nil {
		if errors.Is(err, ErrNoHandshake) {
			waitErr := cmd.Wait()
			close(b.done)
			if exitCode(waitErr) == lifecycle.ExitAlreadyRunning {
				return nil, ErrBackendAlreadyRunning
			}
			return nil, fmt.Errorf("%w: %v", ErrNoHandshake, waitErr)
		}
		go b.wait()
		_ = b.kill()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &apperrors.TimeoutError{
				Operation: "backend port handshake",
				Duration:  handshakeTimeout,
				Cause:     err,
			}
		}
		return nil, err
	}

	b.Port = port
	go func() { _, _ = io.Copy(io.Discard, stdout) }()
	go b.wait()
	logger.Info("backend advertised port", internallog.Port(port))

	checker := lifecycle.NewHealthChecker(b.URL("/api/hello")).WithMethod("POST")
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Logger = logger
	if client, err := httpclient.New(clientCfg); err == nil {
		checker.WithHTTPClient(client)
	}
	err = checker.WaitUntilHealthy(ctx, healthTimeout, func(r *lifecycle.HealthCheckResult, attempt int) {
		if !r.Success {
			logger.Debug("backend not ready", slog.Int("attempt", attempt), internallog.Error(r.Error))
		}
	})
	if err != nil {
		_ = b.kill()
		if errors.Is(err, lifecycle.ErrHealthCheckTimeout) {
			return nil, &apperrors.TimeoutError{
				Operation: "backend readiness probe",
				Duration:  healthTimeout,
				Cause:     err,
			}
		}
		return nil, err
	}

	logger.Info("backend ready", internallog.Port(port))
	return b, nil
}

func (b *Backend) wait() {
	b.waitErr = b.cmd.Wait()
	close(b.done)
}

func (b *Backend) kill() error {
	err := b.cmd.Process.Kill()
	<-b.done
	return err
}

// URL returns the backend URL for path.
func (b *Backend) URL(path string) string {
	return "http://127.0.0.1:" + strconv.Itoa(b.Port) + path
}

// PID returns the backend process ID.
func (b *Backend) PID() int {
	return b.cmd.Process.Pid
}

// Done is closed when the backend process exits.
func (b *Backend) Done() <-chan struct{} {
	return b.done
}

// ExitCode returns the backend exit status, or -1 while it is running.
func (b *Backend) ExitCode() int {
	select {
	case <-b.done:
		return exitCode(b.waitErr)
	default:
		return -1
	}
}

// Stop sends SIGTERM and waits up to timeout for the backend to exit,
// killing it afterwards. Safe to call multiple times.
func (b *Backend) Stop(timeout time.Duration) error {
	b.stopOnce.Do(func() {
		if timeout <= 0 {
			timeout = DefaultStopTimeout
		}
		select {
		case <-b.done:
			return
		default:
		}

		if err := b.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			b.stopErr = b.kill()
			return
		}

		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-b.done:
			b.logger.Info("backend stopped", slog.Int("exit_code", exitCode(b.waitErr)))
		case <-timer.C:
			b.logger.Warn("backend ignored SIGTERM, killing", internallog.PID(b.PID()))
			b.stopErr = b.kill()
		}
	})
	return b.stopErr
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
