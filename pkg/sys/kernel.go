// Copyright 2017 Capsule8, Inc.
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

// Package sys holds host helpers: kernel version, perf_event access level
// and memory pinning.
package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// KernelVersion returns the version of the currently running kernel in major,
// minor, patchlevel form.
func KernelVersion() (int, int, int) {
	release, err := kernelRelease()
	if err != nil {
		return 0, 0, 0
	}
	return ParseKernelRelease(release)
}

// ParseKernelRelease extracts major, minor and patchlevel from a uname
// release string such as "5.15.0-91-generic". Parsing stops at the first
// character that is neither a digit nor a dot.
func ParseKernelRelease(release string) (int, int, int) {
	var (
		b    int
		bits [3]int
	)
	for i := 0; i < len(release) && b < len(bits); i++ {
		switch release[i] {
		case '.':
			b++
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			bits[b] = bits[b]*10 + int(release[i]) - '0'
		default:
			b = len(bits)
		}
	}

	return bits[0], bits[1], bits[2]
}

// PerfEventParanoid returns the value of kernel.perf_event_paranoid as
// seen under procRoot (normally /proc).
func PerfEventParanoid(procRoot string) (int, error) {
	path := filepath.Join(procRoot, "sys", "kernel", "perf_event_paranoid")
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	level, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return level, nil
}

// DescribeParanoid explains what a perf_event_paranoid level permits an
// unprivileged user.
func DescribeParanoid(level int) string {
	switch {
	case level >= 3:
		return "perf_event_open is denied to unprivileged users"
	case level == 2:
		return "unprivileged users may only count user-space events"
	case level == 1:
		return "unprivileged users may count user and kernel events"
	case level == 0:
		return "unprivileged users may count CPU-wide user and kernel events"
	}
	return "no restrictions"
}
