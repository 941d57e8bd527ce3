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

package perf

import "fmt"

// ControlOp is a perf event control operation issued through ioctl(2).
type ControlOp int

const (
	// ControlReset zeroes the counter value.
	ControlReset ControlOp = iota
	// ControlEnable starts counting.
	ControlEnable
	// ControlDisable stops counting.
	ControlDisable
)

func (op ControlOp) String() string {
	switch op {
	case ControlReset:
		return "reset"
	case ControlEnable:
		return "enable"
	case ControlDisable:
		return "disable"
	}
	return fmt.Sprintf("ControlOp(%d)", int(op))
}

func (op ControlOp) request() uintptr {
	switch op {
	case ControlReset:
		return PERF_EVENT_IOC_RESET
	case ControlEnable:
		return PERF_EVENT_IOC_ENABLE
	case ControlDisable:
		return PERF_EVENT_IOC_DISABLE
	}
	panic(fmt.Sprintf("invalid ControlOp %d", int(op)))
}

// ControlScope selects whether a control operation applies to a single
// counter or to the whole group of the counter it is issued against.
type ControlScope int

const (
	// ScopeSelf applies the operation to the addressed counter only.
	ScopeSelf ControlScope = iota
	// ScopeGroup applies the operation to every counter in the group
	// (PERF_IOC_FLAG_GROUP).
	ScopeGroup
)

func (s ControlScope) String() string {
	if s == ScopeGroup {
		return "group"
	}
	return "self"
}

func (s ControlScope) flag() uintptr {
	if s == ScopeGroup {
		return PERF_IOC_FLAG_GROUP
	}
	return 0
}

// Kernel is the interface to the kernel's perf_event subsystem used by a
// CounterGroup. SystemKernel is the real implementation; tests substitute a
// fake.
type Kernel interface {
	// Open creates a counter for attr and returns its file descriptor.
	// A groupFd of -1 creates a new group with the counter as leader.
	Open(attr *EventAttr, pid, cpu, groupFd int, flags uintptr) (int, error)

	// ID returns the kernel-assigned identifier of the counter.
	ID(fd int) (uint64, error)

	// Control issues a reset, enable, or disable against fd.
	Control(fd int, op ControlOp, scope ControlScope) error

	// Read reads the counter's current read_format buffer into p.
	Read(fd int, p []byte) (int, error)

	// Close releases the counter.
	Close(fd int) error
}

// SystemKernel implements Kernel with the perf_event_open(2) system call.
type SystemKernel struct{}

// Open implements Kernel.
func (SystemKernel) Open(attr *EventAttr, pid, cpu, groupFd int, flags uintptr) (int, error) {
	return open(attr, pid, cpu, groupFd, flags)
}

// ID implements Kernel.
func (SystemKernel) ID(fd int) (uint64, error) {
	return id(fd)
}

// Control implements Kernel.
func (SystemKernel) Control(fd int, op ControlOp, scope ControlScope) error {
	return ioctl(fd, op.request(), scope.flag())
}

// Read implements Kernel.
func (SystemKernel) Read(fd int, p []byte) (int, error) {
	return read(fd, p)
}

// Close implements Kernel.
func (SystemKernel) Close(fd int) error {
	return closeFd(fd)
}
