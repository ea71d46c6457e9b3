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

// Package launch implements the launch command, a stand-in for the desktop
// shell during development: it spawns the backend as its child, waits for the
// handshake and supervises it until interrupted.
package launch

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/shared"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/launcher"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
	internallog "github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
)

// NewCommand creates the launch command.
func NewCommand() *cobra.Command {
	var (
		binary           string
		port             int
		handshakeTimeout time.Duration
		healthTimeout    time.Duration
		stopTimeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "launch [-- backend args...]",
		Short: "Spawn and supervise a backend like the desktop shell does",
		Long: `Spawn the backend with TAURI_PARENT_PID set to this process, read its
port handshake, and wait until it answers. The backend is stopped on
interrupt. Killing this process instead exercises the backend's parent
watchdog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if binary == "" {
				exe, err := os.Executable()
				if err != nil {
					return shared.NewFailure("cannot locate own executable", err)
				}
				binary = exe
				if len(args) == 0 {
					args = []string{"serve"}
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := internallog.New(internallog.FromEnv())
			b, err := launcher.Launch(ctx, launcher.LaunchConfig{
				Binary:           binary,
				Args:             args,
				Port:             port,
				HandshakeTimeout: handshakeTimeout,
				HealthTimeout:    healthTimeout,
				Stderr:           cmd.ErrOrStderr(),
				Logger:           logger,
			})
			if errors.Is(err, launcher.ErrBackendAlreadyRunning) {
				return &shared.ExitError{Code: shared.ExitAlreadyRunning, Message: "backend already running", Cause: err}
			}
			if err != nil {
				return shared.NewFailure("launch failed", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "backend ready at %s (pid %d)\n", b.URL(""), b.PID())

			select {
			case <-ctx.Done():
				return b.Stop(stopTimeout)
			case <-b.Done():
				if code := b.ExitCode(); code != lifecycle.ExitOK {
					return &shared.ExitError{Code: shared.ExitFailure, Message: fmt.Sprintf("backend exited with code %d", code)}
				}
				return nil
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&binary, "binary", "", "Backend executable (default: this binary with 'serve')")
	f.IntVar(&port, "port", 0, "Fixed port passed as BACKEND_PORT")
	f.DurationVar(&handshakeTimeout, "handshake-timeout", launcher.DefaultHandshakeTimeout, "How long to wait for BACKEND_PORT")
	f.DurationVar(&healthTimeout, "health-timeout", lifecycle.DefaultHealthTimeout, "How long to wait for the backend to answer")
	f.DurationVar(&stopTimeout, "stop-timeout", launcher.DefaultStopTimeout, "Grace period after SIGTERM")

	return cmd
}
