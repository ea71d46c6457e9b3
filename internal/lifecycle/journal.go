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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JournalFileName is the lifecycle journal inside the logs directory.
const JournalFileName = "lifecycle.log"

// Journal event names.
const (
	EventLockAcquired    = "lock_acquired"
	EventAlreadyRunning  = "already_running"
	EventPortAdvertised  = "port_advertised"
	EventAdvertiseFailed = "advertise_failed"
	EventParentExited    = "parent_exited"
	EventShutdown        = "shutdown"
)

// JournalEvent is one line of the lifecycle journal.
type JournalEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	RunID     string    `json:"run_id,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Port      int       `json:"port,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Journal appends lifecycle events as JSON lines. A nil *Journal discards events.
type Journal struct {
	path  string
	runID string
	pid   int
	now   func() time.Time

	mu sync.Mutex
}

// NewJournal creates a journal writing to path, tagging events with runID.
func NewJournal(path, runID string) *Journal {
	return &Journal{
		path:  path,
		runID: runID,
		pid:   os.Getpid(),
		now:   time.Now,
	}
}

// Path returns the journal file.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// LockAcquired records a successful instance lock.
func (j *Journal) LockAcquired(lockPath string) error {
	return j.write(JournalEvent{
		Event:   EventLockAcquired,
		Success: true,
		Message: fmt.Sprintf("Instance lock acquired: %s", lockPath),
	})
}

// AlreadyRunning records lock contention.
func (j *Journal) AlreadyRunning(lockPath, holder string) error {
	msg := fmt.Sprintf("Another instance holds %s", lockPath)
	if holder != "" {
		msg += " (" + holder + ")"
	}
	return j.write(JournalEvent{
		Event:    EventAlreadyRunning,
		ExitCode: ExitAlreadyRunning,
		Message:  msg,
	})
}

// PortAdvertised records a published port.
func (j *Journal) PortAdvertised(port int, channels []Channel) error {
	return j.write(JournalEvent{
		Event:   EventPortAdvertised,
		Port:    port,
		Success: true,
		Message: fmt.Sprintf("Port advertised on %v", channels),
	})
}

// AdvertiseFailed records a port publication failure.
func (j *Journal) AdvertiseFailed(port int, err error) error {
	return j.write(JournalEvent{
		Event: EventAdvertiseFailed,
		Port:  port,
		Error: errString(err),
	})
}

// ParentExited records the watchdog detecting parent death.
func (j *Journal) ParentExited(parent ProcessIdentity) error {
	return j.write(JournalEvent{
		Event:   EventParentExited,
		Success: true,
		Message: fmt.Sprintf("Parent process %s exited", parent),
	})
}

// Shutdown records the completed shutdown sequence.
func (j *Journal) Shutdown(reason Reason, exitCode int, err error) error {
	return j.write(JournalEvent{
		Event:    EventShutdown,
		Reason:   reason.String(),
		ExitCode: exitCode,
		Success:  err == nil,
		Message:  "Shutdown sequence completed",
		Error:    errString(err),
	})
}

func (j *Journal) write(event JournalEvent) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	event.Timestamp = j.now().UTC()
	event.RunID = j.runID
	event.PID = j.pid

	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lifecycle journal: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
