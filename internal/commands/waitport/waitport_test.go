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

package waitport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
	apperrors "github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/errors"
)

func TestWaitPortPrintsPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), lifecycle.PortFileName)
	require.NoError(t, os.WriteFile(path, []byte("48123"), 0o600))

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--file", path, "--timeout", "2s"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Equal(t, "48123", strings.TrimSpace(out.String()))
}

func TestWaitPortTimeout(t *testing.T) {
	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--file", filepath.Join(t.TempDir(), lifecycle.PortFileName), "--timeout", "50ms"})

	err := cmd.ExecuteContext(context.Background())
	var timeoutErr *apperrors.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Execute() error = %v, want TimeoutError", err)
	}
}
