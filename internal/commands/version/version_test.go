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

package version

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/commands/shared"
)

func runVersionCmd(t *testing.T, args ...string) string {
	t.Helper()
	shared.SetVersion("1.0.0", "test123", "2026-01-15")
	t.Cleanup(func() {
		shared.SetVersion("dev", "unknown", "unknown")
		shared.SetJSONForTest(false)
	})

	root := &cobra.Command{Use: "desktop-backend"}
	jsonPtr, _ := shared.RegisterFlagPointers()
	root.PersistentFlags().BoolVar(jsonPtr, "json", false, "JSON output")
	root.AddCommand(NewVersionCommand())

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs(append([]string{"version"}, args...))
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return buf.String()
}

func TestVersionText(t *testing.T) {
	out := runVersionCmd(t)

	for _, want := range []string{"desktop-backend version 1.0.0", "commit:     test123", "build date: 2026-01-15"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "BACKEND_PORT:") {
		t.Errorf("version output must not look like a port handshake: %s", out)
	}
}

func TestVersionJSON(t *testing.T) {
	out := runVersionCmd(t, "--json")

	var info VersionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("json.Unmarshal() error = %v\noutput: %s", err, out)
	}
	want := VersionInfo{Version: "1.0.0", Commit: "test123", BuildDate: "2026-01-15"}
	if info.Version != want.Version || info.Commit != want.Commit || info.BuildDate != want.BuildDate {
		t.Errorf("VersionInfo = %+v, want %+v", info, want)
	}
	if info.GoVersion == "" || info.Platform == "" {
		t.Errorf("runtime fields not set: %+v", info)
	}
}

func TestVersionRejectsArgs(t *testing.T) {
	cmd := NewVersionCommand()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Error("Execute() with an argument should fail")
	}
}
