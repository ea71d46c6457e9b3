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

// Package waitport implements the wait-port command.
package waitport

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/appdata"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/shared"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/config"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/launcher"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
	apperrors "github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/errors"
)

// NewCommand creates the wait-port command.
func NewCommand() *cobra.Command {
	var (
		file    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait-port",
		Short: "Wait for a backend to write its port file and print the port",
		Long: `Block until <dataDir>/backend.port holds a valid port, then print it.
The backend must advertise on the file channel (--port-channel=file).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				resolved, err := defaultPortFile()
				if err != nil {
					return shared.NewFailure("cannot resolve port file", err)
				}
				path = resolved
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			port, err := launcher.WaitForPortFile(ctx, path)
			if errors.Is(err, context.DeadlineExceeded) {
				return shared.NewFailure("no port advertised", &apperrors.TimeoutError{
					Operation: "waiting for " + path,
					Duration:  timeout,
					Cause:     err,
				})
			}
			if err != nil {
				return shared.NewFailure("cannot read port file", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), strconv.Itoa(port))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Port file to watch (default: <dataDir>/backend.port)")
	cmd.Flags().DurationVar(&timeout, "timeout", lifecycle.DefaultHealthTimeout, "How long to wait")

	return cmd
}

func defaultPortFile() (string, error) {
	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return "", err
	}
	ident, err := cfg.Identity(appdata.HostPlatform())
	if err != nil {
		return "", err
	}
	return filepath.Join(ident.DataDir, lifecycle.PortFileName), nil
}
