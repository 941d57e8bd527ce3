// Copyright 2026 The periodic-pmu-prober Authors
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

//go:build linux
// +build linux

package sys

import (
	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// LockMemory pins the process's current and future pages in RAM so that
// page faults do not land inside a counting window. The returned function
// undoes the lock.
func LockMemory() (func() error, error) {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return nil, err
	}
	glog.V(1).Info("Locked process memory")

	return unix.Munlockall, nil
}
