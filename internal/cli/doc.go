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

/*
Package cli provides the root command of the desktop-backend binary.

This package creates the Cobra root and handles global concerns like version
information, persistent flags and exit codes. Individual commands live in the
internal/commands subpackages.

# Command Tree

	desktop-backend
	├── serve        Run the backend (default)
	├── launch       Spawn and supervise a backend like the desktop shell
	├── wait-port    Wait for the port file and print the port
	└── version      Show version

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	// ... add commands ...
	rootCmd.SetArgs(cli.WithDefaultCommand(rootCmd, "serve", os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Exit Codes

  - Exit 0: Success, including shutdown after the parent exited
  - Exit 1: Startup failure or server error
  - Exit 2: Another instance already holds the lock

Stdout carries only the port handshake while serving; diagnostics go to stderr.
*/
package cli
