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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/appdata"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/log"
	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/metrics"
)

// LockFileName is the name of the single-instance lock file inside the data directory.
const LockFileName = "instance.lock"

var (
	// ErrAlreadyRunning is returned when another process holds the instance lock.
	ErrAlreadyRunning = errors.New("another instance is already running")

	// errLockHeld is the platform-neutral contention result of tryLock.
	errLockHeld = errors.New("lock held by another process")
)

// LockConfig configures an InstanceLock.
type LockConfig struct {
	// Enabled turns the lock on. A disabled lock never touches the filesystem.
	Enabled bool

	// Dir is the application data directory holding the lock file.
	Dir string

	// AppID names the fallback directory under the system temp dir.
	AppID string

	// Logger receives warnings about degraded directory handling.
	Logger *slog.Logger

	// PID and Now are recorded in the lock file. Defaults: os.Getpid, time.Now.
	PID int
	Now func() time.Time

	// TempDir is the root of the fallback directory. Default: os.TempDir.
	TempDir func() string
}

// InstanceLock is an exclusive advisory lock on dataDir/instance.lock.
// The OS drops the lock when the process dies, so a stale file never blocks startup.
type InstanceLock struct {
	cfg LockConfig

	mu         sync.Mutex
	path       string
	file       *os.File
	heldSince  time.Time
	holderInfo string
}

// NewInstanceLock creates a lock for cfg.Dir. Nothing is touched until Acquire.
func NewInstanceLock(cfg LockConfig) *InstanceLock {
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if cfg.PID == 0 {
		cfg.PID = os.Getpid()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TempDir == nil {
		cfg.TempDir = os.TempDir
	}
	if cfg.AppID == "" {
		cfg.AppID = appdata.DefaultID
	}
	return &InstanceLock{
		cfg:  cfg,
		path: filepath.Join(cfg.Dir, LockFileName),
	}
}

// Acquire takes the lock without blocking. It returns ErrAlreadyRunning (wrapped
// with the lock path) when another live process holds it.
func (l *InstanceLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.cfg.Enabled {
		metrics.RecordLock(metrics.LockDisabled)
		return nil
	}
	if l.file != nil {
		return nil
	}

	dir, err := l.ensureDir()
	if err != nil {
		metrics.RecordLock(metrics.LockError)
		return err
	}
	l.path = filepath.Join(dir, LockFileName)

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		metrics.RecordLock(metrics.LockError)
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := tryLock(f); err != nil {
		f.Close()
		if errors.Is(err, errLockHeld) {
			l.holderInfo = readHolder(l.path)
			metrics.RecordLock(metrics.LockAlreadyRunning)
			return fmt.Errorf("%w: lock file %s", ErrAlreadyRunning, l.path)
		}
		metrics.RecordLock(metrics.LockError)
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}

	now := l.cfg.Now().UTC()
	info := fmt.Sprintf("PID=%d START=%s", l.cfg.PID, now.Format(time.RFC3339Nano))
	if err := writeHolder(f, info); err != nil {
		unlock(f)
		f.Close()
		metrics.RecordLock(metrics.LockError)
		return fmt.Errorf("failed to write lock file: %w", err)
	}

	l.file = f
	l.heldSince = now
	l.holderInfo = info
	metrics.RecordLock(metrics.LockAcquired)
	return nil
}

// ensureDir creates the data directory, falling back to TempDir/<id>.
func (l *InstanceLock) ensureDir() (string, error) {
	err := appdata.EnsureDir(l.cfg.Dir)
	if err == nil {
		return l.cfg.Dir, nil
	}

	fallback := filepath.Join(l.cfg.TempDir(), l.cfg.AppID)
	l.cfg.Logger.Warn("cannot create data directory, using temp directory for instance lock",
		log.Path(l.cfg.Dir), slog.String("fallback", fallback), log.Error(err))

	if ferr := appdata.EnsureDir(fallback); ferr != nil {
		return "", fmt.Errorf("failed to create lock directory %s: %w", fallback, errors.Join(err, ferr))
	}
	return fallback, nil
}

func writeHolder(f *os.File, info string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(info), 0); err != nil {
		return err
	}
	return f.Sync()
}

// readHolder returns the holder description, or "" when it cannot be read.
func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Release unlocks and closes the lock file. The file itself is left on disk.
// Release is idempotent.
func (l *InstanceLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	uerr := unlock(l.file)
	cerr := l.file.Close()
	l.file = nil
	l.heldSince = time.Time{}
	return errors.Join(uerr, cerr)
}

// Path returns the lock file path. After a fallback it points into the temp dir.
func (l *InstanceLock) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Held reports whether this process currently holds the lock.
func (l *InstanceLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file != nil
}

// HeldSince returns when the lock was acquired, or the zero time.
func (l *InstanceLock) HeldSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heldSince
}

// HolderInfo returns the lock file contents written by the holder. After a
// failed Acquire it describes the competing process when readable.
func (l *InstanceLock) HolderInfo() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holderInfo
}
