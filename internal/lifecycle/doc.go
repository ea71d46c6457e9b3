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

/*
Package lifecycle coordinates the backend process with the desktop launcher
that supervises it.

# Single-Instance Lock

An exclusive advisory lock on dataDir/instance.lock keeps a second backend from
starting. The OS releases the lock when the holder dies, so a leftover file
never blocks a restart:

	lock := lifecycle.NewInstanceLock(lifecycle.LockConfig{Enabled: true, Dir: dataDir})
	if err := lock.Acquire(); errors.Is(err, lifecycle.ErrAlreadyRunning) {
	    os.Exit(lifecycle.ExitAlreadyRunning)
	}
	defer lock.Release()

# Port Advertisement

Once the HTTP listener is bound, the port is published on stdout as
BACKEND_PORT:<port> and/or written to dataDir/backend.port:

	adv := lifecycle.NewAdvertiser(lifecycle.AdvertiserConfig{Dir: dataDir})
	if err := adv.Advertise(port); err != nil {
	    // logged, keep serving
	}

# Parent Watchdog

The watchdog polls the launcher PID once per second and requests shutdown
when it disappears. A failing liveness query counts as alive:

	wd := lifecycle.NewWatchdog(lifecycle.WatchdogConfig{
	    ParentPID:    parentPID,
	    OnParentExit: func(p lifecycle.ProcessIdentity) { coord.Trigger(reason) },
	})
	wd.Start(ctx)

# Shutdown

Every shutdown source calls Coordinator.Trigger. The first reason wins and
the startup goroutine runs the sequence once:

	reason := <-coord.Done()
	os.Exit(coord.Shutdown(reason))

# Lifecycle Journal

Lifecycle events are appended as JSON lines to dataDir/logs/lifecycle.log.
*/
package lifecycle
