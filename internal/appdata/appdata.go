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

// Package appdata resolves the per-user application data directory shared by
// the instance lock, the port file and the log files.
package appdata

import (
	"errors"
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"
)

// DefaultID is used when the app descriptor carries no id.
const DefaultID = "desktop-app"

// ErrNoHomeDir is returned when no base directory can be determined.
var ErrNoHomeDir = errors.New("cannot resolve user home directory")

// Family is a coarse operating system family.
type Family int

const (
	FamilyUnix Family = iota
	FamilyMacOS
	FamilyWindows
)

func (f Family) String() string {
	switch f {
	case FamilyWindows:
		return "windows"
	case FamilyMacOS:
		return "macos"
	default:
		return "unix"
	}
}

// DetectFamily maps an OS name ("windows", "Windows 11", "darwin", "Mac OS X",
// "linux") to its family. Matching is case-insensitive.
func DetectFamily(osName string) Family {
	name := strings.ToLower(osName)
	switch {
	case strings.Contains(name, "darwin"), strings.Contains(name, "mac"):
		return FamilyMacOS
	case strings.HasPrefix(name, "win"):
		return FamilyWindows
	default:
		return FamilyUnix
	}
}

// Platform is the slice of the host environment the resolver looks at.
type Platform struct {
	OS      string
	Getenv  func(string) string
	HomeDir func() (string, error)
}

// HostPlatform returns the Platform of the running process.
func HostPlatform() Platform {
	return Platform{
		OS:      runtime.GOOS,
		Getenv:  os.Getenv,
		HomeDir: os.UserHomeDir,
	}
}

// Identity is the resolved application identity. It is immutable.
type Identity struct {
	ID      string
	DataDir string

	family Family
}

// LogsDir returns the directory holding app.log and lifecycle.log.
func (i Identity) LogsDir() string {
	return i.Join("logs")
}

// Join joins elem onto DataDir using the separator of the identity's OS family.
func (i Identity) Join(elem ...string) string {
	return join(i.family, append([]string{i.DataDir}, elem...)...)
}

// Resolve derives the data directory for id on platform p.
// An empty id falls back to DefaultID. Resolve has no side effects.
func Resolve(id string, p Platform) (Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultID
	}

	family := DetectFamily(p.OS)
	getenv := p.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	home := func() (string, error) {
		if p.HomeDir == nil {
			return "", ErrNoHomeDir
		}
		h, err := p.HomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoHomeDir, err)
		}
		if h == "" {
			return "", ErrNoHomeDir
		}
		return h, nil
	}

	var dir string
	switch family {
	case FamilyWindows:
		if local := getenv("LOCALAPPDATA"); local != "" {
			dir = join(family, local, id)
			break
		}
		h, err := home()
		if err != nil {
			return Identity{}, err
		}
		dir = join(family, h, "AppData", "Local", id)
	case FamilyMacOS:
		h, err := home()
		if err != nil {
			return Identity{}, err
		}
		dir = join(family, h, "Library", "Application Support", id)
	default:
		h, err := home()
		if err != nil {
			return Identity{}, err
		}
		dir = join(family, h, ".local", "share", id)
	}

	return Identity{ID: id, DataDir: dir, family: family}, nil
}

// WithDataDir returns an Identity rooted at an explicit directory on the host.
func WithDataDir(id, dir string) Identity {
	if strings.TrimSpace(id) == "" {
		id = DefaultID
	}
	return Identity{ID: id, DataDir: dir, family: DetectFamily(runtime.GOOS)}
}

// EnsureDir creates dir and its parents if missing. An existing directory is not an error.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// join builds a path for the given family without consulting the host's
// separator, so Windows layouts can be resolved on any OS.
func join(family Family, elem ...string) string {
	if family != FamilyWindows {
		return path.Join(elem...)
	}

	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		e = strings.ReplaceAll(e, "/", `\`)
		if i > 0 {
			e = strings.Trim(e, `\`)
		} else {
			e = strings.TrimRight(e, `\`)
		}
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, `\`)
}
