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

// Package serve implements the serve command, which runs the backend.
package serve

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/backend"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/shared"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/config"
)

type serveFlags struct {
	parentPID      string
	port           int
	host           string
	singleInstance bool
	portChannels   []string
	dataDir        string
	allowRemote    bool
}

// NewCommand creates the serve command.
func NewCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend",
		Long: `Run the backend HTTP server under the desktop shell.

The bound port is advertised on stdout as BACKEND_PORT:<port> and/or written to
<dataDir>/backend.port. When a parent PID is given the backend exits once that
process is gone. A second instance exits with code 2.

Flags override the matching environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, c, b := shared.GetVersion()
			code := backend.Run(cmd.Context(), backend.Options{
				Version:        v,
				Commit:         c,
				BuildDate:      b,
				DescriptorPath: shared.GetConfigPath(),
				Configure:      func(cfg *config.Config) { flags.apply(cmd, cfg) },
			})
			return shared.NewExitCode(code)
		},
	}

	addFlags(cmd.Flags(), flags)
	return cmd
}

func addFlags(f *pflag.FlagSet, flags *serveFlags) {
	f.StringVar(&flags.parentPID, "parent-pid", "", "PID of the supervising process (env: TAURI_PARENT_PID)")
	f.IntVar(&flags.port, "port", 0, "Fixed port to bind, 0 for ephemeral (env: BACKEND_PORT)")
	f.StringVar(&flags.host, "host", "127.0.0.1", "Interface to bind (env: BACKEND_HOST)")
	f.BoolVar(&flags.singleInstance, "single-instance", true, "Refuse to start when another instance runs (env: SINGLE_INSTANCE_ENABLED)")
	f.StringSliceVar(&flags.portChannels, "port-channel", []string{"stdout"}, "Where to advertise the port: stdout, file (env: BACKEND_PORT_CHANNELS)")
	f.StringVar(&flags.dataDir, "data-dir", "", "Override the application data directory (env: BACKEND_DATA_DIR)")
	f.BoolVar(&flags.allowRemote, "allow-remote", false, "Allow binding a non-loopback host")
}

// apply copies explicitly set flags onto cfg.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("parent-pid") {
		cfg.Lifecycle.ParentPID = f.parentPID
	}
	if set("port") {
		cfg.Server.Port = f.port
	}
	if set("host") {
		cfg.Server.Host = f.host
	}
	if set("single-instance") {
		cfg.Lifecycle.SingleInstance = f.singleInstance
	}
	if set("port-channel") {
		cfg.Lifecycle.PortChannels = f.portChannels
	}
	if set("data-dir") {
		cfg.DataDir = f.dataDir
	}
	if set("allow-remote") {
		cfg.Server.AllowRemote = f.allowRemote
	}
}
