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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
	pkgerrors "github.com/Shawiizz/poc-desktop-app-angular-springboot/pkg/errors"
)

// Exit codes of the desktop-backend binary.
const (
	ExitSuccess        = lifecycle.ExitOK
	ExitFailure        = lifecycle.ExitFailure
	ExitAlreadyRunning = lifecycle.ExitAlreadyRunning
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExitCode wraps a process exit code that has already been reported,
// usually by the logger. Code 0 yields nil.
func NewExitCode(code int) error {
	if code == ExitSuccess {
		return nil
	}
	return &ExitError{Code: code}
}

// NewFailure creates an error for a failed command
func NewFailure(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitFailure,
		Message: msg,
		Cause:   cause,
	}
}

// Report prints err to w and returns the exit code it maps to.
func Report(w io.Writer, err error) int {
	if err == nil {
		return ExitSuccess
	}

	code := ExitFailure
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}

	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, "Error:", msg)
	}

	var validationErr *pkgerrors.ValidationError
	if errors.As(err, &validationErr) && validationErr.Suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", validationErr.Suggestion)
	}
	return code
}

// HandleExitError checks if an error is an ExitError and exits with the appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	os.Exit(Report(os.Stderr, err))
}
