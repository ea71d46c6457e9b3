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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for desktop-backend
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "desktop-backend",
		Short: "desktop-backend - headless backend for a webview desktop shell",
		Long: `desktop-backend serves the HTTP API of a desktop application whose UI runs
in a separate webview shell. It advertises its port to the shell, exits
when the shell dies, and refuses to run twice on the same machine.

Without a subcommand it behaves like 'desktop-backend serve'.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	json, config := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to app-config.json (env: APP_CONFIG)")

	return cmd
}

// WithDefaultCommand prepends name to args when they would otherwise select
// the root command itself, so flags like --port reach the default command.
func WithDefaultCommand(root *cobra.Command, name string, args []string) []string {
	for _, a := range args {
		if a == "-h" || a == "--help" || a == "help" || a == "completion" {
			return args
		}
	}
	found, _, err := root.Find(args)
	if err != nil || found != root {
		return args
	}
	return append([]string{name}, args...)
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
