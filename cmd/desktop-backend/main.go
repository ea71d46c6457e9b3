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

package main

import (
	"os"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/cli"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/launch"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/serve"
	versioncmd "github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/version"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/waitport"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	rootCmd.AddCommand(serve.NewCommand())
	rootCmd.AddCommand(launch.NewCommand())
	rootCmd.AddCommand(waitport.NewCommand())
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	rootCmd.SetArgs(cli.WithDefaultCommand(rootCmd, "serve", os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
