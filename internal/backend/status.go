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

package backend

import (
	"strconv"

	"github.com/Shawiizz/poc-desktop-app-angular-springboot/internal/lifecycle"
)

// status reports lifecycle state on /api/health.
type status struct {
	lock     *lifecycle.InstanceLock
	watchdog *lifecycle.Watchdog
}

func (s *status) Checks() map[string]string {
	checks := map[string]string{
		"watchdog": s.watchdog.State().String(),
	}
	if s.lock.Held() {
		checks["instance_lock"] = "held"
	} else {
		checks["instance_lock"] = "disabled"
	}
	if pid := s.watchdog.ParentPID(); pid != nil {
		checks["parent_pid"] = strconv.Itoa(int(*pid))
	}
	return checks
}
