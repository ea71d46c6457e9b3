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

package shared

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	pkgerrors "github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/errors"
)

func TestExitErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{name: "message only", err: &ExitError{Code: 1, Message: "failed"}, want: "failed"},
		{name: "message and cause", err: NewFailure("launch failed", errors.New("boom")), want: "launch failed: boom"},
		{name: "cause only", err: &ExitError{Code: 1, Cause: errors.New("boom")}, want: "boom"},
		{name: "code only", err: &ExitError{Code: 2}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewExitCode(t *testing.T) {
	if err := NewExitCode(ExitSuccess); err != nil {
		t.Errorf("NewExitCode(0) = %v, want nil", err)
	}

	err := NewExitCode(ExitAlreadyRunning)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("NewExitCode(2) = %T, want *ExitError", err)
	}
	if exitErr.Code != ExitAlreadyRunning {
		t.Errorf("Code = %d, want %d", exitErr.Code, ExitAlreadyRunning)
	}
}

func TestReport(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		var buf bytes.Buffer
		if code := Report(&buf, nil); code != ExitSuccess {
			t.Errorf("Report(nil) = %d, want 0", code)
		}
		if buf.Len() != 0 {
			t.Errorf("Report(nil) wrote %q", buf.String())
		}
	})

	t.Run("silent exit code", func(t *testing.T) {
		var buf bytes.Buffer
		if code := Report(&buf, NewExitCode(ExitAlreadyRunning)); code != ExitAlreadyRunning {
			t.Errorf("Report() = %d, want %d", code, ExitAlreadyRunning)
		}
		if buf.Len() != 0 {
			t.Errorf("Report() wrote %q for a pre-reported code", buf.String())
		}
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		if code := Report(&buf, errors.New("unexpected")); code != ExitFailure {
			t.Errorf("Report() = %d, want %d", code, ExitFailure)
		}
		if !strings.Contains(buf.String(), "Error: unexpected") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("wrapped validation error", func(t *testing.T) {
		var buf bytes.Buffer
		err := fmt.Errorf("launch: %w", &pkgerrors.ValidationError{
			Field:      "binary",
			Message:    "backend binary is required",
			Suggestion: "pass --binary",
		})
		Report(&buf, err)
		if !strings.Contains(buf.String(), "Suggestion: pass --binary") {
			t.Errorf("output = %q, want suggestion", buf.String())
		}
	})
}
