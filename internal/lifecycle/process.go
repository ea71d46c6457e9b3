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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrInvalidPID is returned when a parent PID value cannot be used.
var ErrInvalidPID = errors.New("invalid parent PID")

// newProcess is replaced in tests to simulate failing process table reads.
var newProcess = process.NewProcessWithContext

// ProcessIdentity pins a process across PID reuse.
// CreateTime is milliseconds since the epoch, 0 when it could not be read.
type ProcessIdentity struct {
	PID        int32
	CreateTime int64
}

func (p ProcessIdentity) String() string {
	if p.CreateTime == 0 {
		return strconv.Itoa(int(p.PID))
	}
	return fmt.Sprintf("%d@%d", p.PID, p.CreateTime)
}

// ProcessChecker answers liveness queries about other processes.
type ProcessChecker interface {
	// Identify captures the identity of a running process.
	Identify(ctx context.Context, pid int32) (ProcessIdentity, error)

	// Alive reports whether the identified process still exists. An error
	// means the query itself failed and says nothing about the process.
	Alive(ctx context.Context, ident ProcessIdentity) (bool, error)
}

// OSProcessChecker queries the operating system process table.
type OSProcessChecker struct{}

// Identify records pid and its creation time. A missing creation time is not an error.
func (OSProcessChecker) Identify(ctx context.Context, pid int32) (ProcessIdentity, error) {
	ident := ProcessIdentity{PID: pid}
	p, err := newProcess(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return ident, nil
		}
		return ident, fmt.Errorf("failed to inspect process %d: %w", pid, err)
	}
	if ct, err := p.CreateTimeWithContext(ctx); err == nil {
		ident.CreateTime = ct
	}
	return ident, nil
}

// Alive reports whether ident is still running. A different creation time
// means the PID now belongs to another process.
func (OSProcessChecker) Alive(ctx context.Context, ident ProcessIdentity) (bool, error) {
	exists, err := process.PidExistsWithContext(ctx, ident.PID)
	if err != nil {
		return false, fmt.Errorf("failed to query process %d: %w", ident.PID, err)
	}
	if !exists {
		return false, nil
	}
	if ident.CreateTime == 0 {
		return true, nil
	}

	p, err := newProcess(ctx, ident.PID)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return false, nil
		}
		return true, fmt.Errorf("failed to inspect process %d: %w", ident.PID, err)
	}
	ct, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to read create time of process %d: %w", ident.PID, err)
	}
	return ct == ident.CreateTime, nil
}

// ParseParentPID parses a parent PID from an environment variable or flag.
// An empty value yields (nil, nil), meaning no parent is supervising.
func ParseParentPID(raw string) (*int32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPID, raw)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidPID, n)
	}
	pid := int32(n)
	return &pid, nil
}
