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

package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *apperrors.ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &apperrors.ValidationError{Field: "port-channel", Message: "unknown channel \"socket\""},
			wantMsg: "validation failed on port-channel: unknown channel \"socket\"",
		},
		{
			name:    "without field",
			err:     &apperrors.ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	tests := []struct {
		name    string
		err     *apperrors.ConfigError
		wantMsg string
	}{
		{
			name:    "with key",
			err:     &apperrors.ConfigError{Key: "BACKEND_PORT", Reason: "must be between 0 and 65535"},
			wantMsg: "config error at BACKEND_PORT: must be between 0 and 65535",
		},
		{
			name:    "without key",
			err:     &apperrors.ConfigError{Reason: "no data directory"},
			wantMsg: "config error: no data directory",
		},
		{
			name:    "with cause",
			err:     &apperrors.ConfigError{Key: "app-config.json", Reason: "cannot parse", Cause: cause},
			wantMsg: "config error at app-config.json: cannot parse: unexpected end of JSON input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ConfigError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := fmt.Errorf("loading: %w", &apperrors.ConfigError{Key: "k", Reason: "r", Cause: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is() = false, want true for wrapped cause")
	}

	var cfgErr *apperrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatal("errors.As() = false, want true")
	}
	if cfgErr.Key != "k" {
		t.Errorf("Key = %q, want k", cfgErr.Key)
	}
}

func TestTimeoutError(t *testing.T) {
	err := &apperrors.TimeoutError{Operation: "port handshake", Duration: 30 * time.Second, Cause: context.DeadlineExceeded}

	if got, want := err.Error(), "port handshake timed out after 30s"; got != want {
		t.Errorf("TimeoutError.Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is() = false, want true for DeadlineExceeded")
	}
}
