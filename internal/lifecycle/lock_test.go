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
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceLock_Disabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	lock := NewInstanceLock(LockConfig{Enabled: false, Dir: dir})

	require.NoError(t, lock.Acquire())
	assert.False(t, lock.Held())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "disabled lock must not create %s", dir)
	require.NoError(t, lock.Release())
}

func TestInstanceLock_AcquireWritesHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	start := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	lock := NewInstanceLock(LockConfig{
		Enabled: true,
		Dir:     dir,
		PID:     4242,
		Now:     func() time.Time { return start },
	})

	require.NoError(t, lock.Acquire())
	t.Cleanup(func() { _ = lock.Release() })

	assert.True(t, lock.Held())
	assert.Equal(t, filepath.Join(dir, LockFileName), lock.Path())
	assert.Equal(t, start, lock.HeldSince())

	want := "PID=4242 START=2026-03-01T12:00:00.0000005Z"
	assert.Equal(t, want, lock.HolderInfo())

	if runtime.GOOS != "windows" {
		data, err := os.ReadFile(lock.Path())
		require.NoError(t, err)
		assert.Equal(t, want, string(data))

		info, err := os.Stat(lock.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestInstanceLock_Contention(t *testing.T) {
	dir := t.TempDir()
	first := NewInstanceLock(LockConfig{Enabled: true, Dir: dir, PID: 100})
	second := NewInstanceLock(LockConfig{Enabled: true, Dir: dir, PID: 200})

	require.NoError(t, first.Acquire())

	err := second.Acquire()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyRunning), "Acquire() error = %v, want ErrAlreadyRunning", err)
	assert.Contains(t, err.Error(), filepath.Join(dir, LockFileName))
	assert.False(t, second.Held())
	if runtime.GOOS != "windows" {
		assert.True(t, strings.HasPrefix(second.HolderInfo(), "PID=100 "), "HolderInfo() = %q", second.HolderInfo())
	}

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire(), "lock must be free after Release")
	require.NoError(t, second.Release())
}

func TestInstanceLock_ReleaseIdempotent(t *testing.T) {
	lock := NewInstanceLock(LockConfig{Enabled: true, Dir: t.TempDir()})
	require.NoError(t, lock.Release(), "Release before Acquire")

	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Acquire(), "second Acquire by the holder")
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())

	assert.False(t, lock.Held())
	assert.True(t, lock.HeldSince().IsZero())
	_, err := os.Stat(lock.Path())
	assert.NoError(t, err, "lock file stays on disk after Release")
}

func TestInstanceLock_FallbackDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a file blocking directory creation")
	}
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	tmp := t.TempDir()
	lock := NewInstanceLock(LockConfig{
		Enabled: true,
		Dir:     filepath.Join(blocker, "data"),
		AppID:   "myapp",
		TempDir: func() string { return tmp },
	})

	require.NoError(t, lock.Acquire())
	t.Cleanup(func() { _ = lock.Release() })
	assert.Equal(t, filepath.Join(tmp, "myapp", LockFileName), lock.Path())
}

func TestInstanceLock_FallbackFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a file blocking directory creation")
	}
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	lock := NewInstanceLock(LockConfig{
		Enabled: true,
		Dir:     filepath.Join(blocker, "data"),
		TempDir: func() string { return blocker },
	})

	err := lock.Acquire()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyRunning))
	assert.False(t, lock.Held())
}

// TestHelperLockHolder is not a real test. It is re-executed by
// TestInstanceLock_CrossProcess to hold the lock from another process.
func TestHelperLockHolder(t *testing.T) {
	dir := os.Getenv("LIFECYCLE_HELPER_LOCK_DIR")
	if dir == "" {
		t.Skip("helper process")
	}
	lock := NewInstanceLock(LockConfig{Enabled: true, Dir: dir})
	if err := lock.Acquire(); err != nil {
		fmt.Println("error", err)
		os.Exit(3)
	}
	fmt.Println("locked")
	time.Sleep(time.Minute)
	os.Exit(0)
}

func TestInstanceLock_CrossProcess(t *testing.T) {
	dir := t.TempDir()

	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperLockHolder$")
	cmd.Env = append(os.Environ(), "LIFECYCLE_HELPER_LOCK_DIR="+dir)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "locked", strings.TrimSpace(line))

	lock := NewInstanceLock(LockConfig{Enabled: true, Dir: dir})
	err = lock.Acquire()
	require.ErrorIs(t, err, ErrAlreadyRunning)

	// A killed holder leaves the file behind but the OS drops the lock.
	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()

	require.NoError(t, lock.Acquire(), "stale lock file must not block startup")
	require.NoError(t, lock.Release())
}
