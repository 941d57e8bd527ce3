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

// Package perftest provides an in-memory implementation of perf.Kernel that
// simulates grouped hardware counters and records every call made to it.
package perftest

import (
	"encoding/binary"
	"fmt"
	"syscall"

	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
)

// Call records one invocation of the fake kernel.
type Call struct {
	Op      string // "open", "id", "control", "read" or "close"
	FD      int
	GroupFD int
	Control perf.ControlOp
	Scope   perf.ControlScope
}

func (c Call) String() string {
	switch c.Op {
	case "control":
		return fmt.Sprintf("%s(%d,%s)", c.Control, c.FD, c.Scope)
	case "open":
		return fmt.Sprintf("open(group=%d)=%d", c.GroupFD, c.FD)
	}
	return fmt.Sprintf("%s(%d)", c.Op, c.FD)
}

type counter struct {
	fd      int
	id      uint64
	attr    perf.EventAttr
	pid     int
	leader  int
	enabled bool
	value   uint64
	open    bool
}

// Kernel is a fake perf.Kernel. Counters accumulate the deltas passed to
// Accumulate while enabled and are only zeroed by a reset, like real
// hardware counters. The group's enabled and running times are never
// reset; they only stop advancing while the group is disabled.
type Kernel struct {
	// OpenErrors maps the zero-based index of an Open call to the error
	// that call fails with.
	OpenErrors map[int]error

	// IDErrors maps a file descriptor to the error ID fails with.
	IDErrors map[int]error

	// ControlError, if set, is consulted before every Control call.
	ControlError func(op perf.ControlOp, nth int) error

	// ReadError, if set, is consulted before every Read call.
	ReadError func(nth int) error

	// Permute, if set, reorders the (value, id) entries of every read.
	Permute func(values []perf.CounterValue)

	// ExtraEntries are appended to every read reply.
	ExtraEntries []perf.CounterValue

	// Multiplexed makes the reported running time half the enabled time.
	Multiplexed bool

	// Calls lists every call in order.
	Calls []Call

	counters    []*counter
	opens       int
	controls    int
	reads       int
	timeEnabled uint64
	timeRunning uint64
}

// NewKernel returns an empty fake kernel.
func NewKernel() *Kernel {
	return &Kernel{}
}

func (k *Kernel) lookup(fd int) (*counter, error) {
	for _, c := range k.counters {
		if c.fd == fd && c.open {
			return c, nil
		}
	}
	return nil, syscall.EBADF
}

// Open implements perf.Kernel.
func (k *Kernel) Open(attr *perf.EventAttr, pid, cpu, groupFd int, flags uintptr) (int, error) {
	nth := k.opens
	k.opens++

	if err, ok := k.OpenErrors[nth]; ok {
		k.Calls = append(k.Calls, Call{Op: "open", FD: -1, GroupFD: groupFd})
		return -1, err
	}

	leader := -1
	if groupFd != -1 {
		l, err := k.lookup(groupFd)
		if err != nil || l.leader != l.fd {
			return -1, syscall.EINVAL
		}
		leader = l.fd
	}

	fd := 100 + len(k.counters)
	if leader == -1 {
		leader = fd
	}
	c := &counter{
		fd:      fd,
		id:      uint64(5000 + 7*len(k.counters)),
		attr:    *attr,
		pid:     pid,
		leader:  leader,
		enabled: !attr.Disabled,
		open:    true,
	}
	k.counters = append(k.counters, c)
	k.Calls = append(k.Calls, Call{Op: "open", FD: fd, GroupFD: groupFd})

	return fd, nil
}

// ID implements perf.Kernel.
func (k *Kernel) ID(fd int) (uint64, error) {
	k.Calls = append(k.Calls, Call{Op: "id", FD: fd})
	if err, ok := k.IDErrors[fd]; ok {
		return 0, err
	}
	c, err := k.lookup(fd)
	if err != nil {
		return 0, err
	}
	return c.id, nil
}

func (k *Kernel) members(c *counter) []*counter {
	var group []*counter
	for _, m := range k.counters {
		if m.open && m.leader == c.leader {
			group = append(group, m)
		}
	}
	return group
}

// Control implements perf.Kernel.
func (k *Kernel) Control(fd int, op perf.ControlOp, scope perf.ControlScope) error {
	nth := k.controls
	k.controls++
	k.Calls = append(k.Calls, Call{Op: "control", FD: fd, Control: op, Scope: scope})

	if k.ControlError != nil {
		if err := k.ControlError(op, nth); err != nil {
			return err
		}
	}

	c, err := k.lookup(fd)
	if err != nil {
		return err
	}

	targets := []*counter{c}
	if scope == perf.ScopeGroup {
		targets = k.members(c)
	}

	for _, t := range targets {
		switch op {
		case perf.ControlReset:
			t.value = 0
		case perf.ControlEnable:
			t.enabled = true
		case perf.ControlDisable:
			t.enabled = false
		}
	}
	return nil
}

// Read implements perf.Kernel. The reply uses the group read format with
// total times and ids.
func (k *Kernel) Read(fd int, p []byte) (int, error) {
	nth := k.reads
	k.reads++
	k.Calls = append(k.Calls, Call{Op: "read", FD: fd})

	if k.ReadError != nil {
		if err := k.ReadError(nth); err != nil {
			return 0, err
		}
	}

	c, err := k.lookup(fd)
	if err != nil {
		return 0, err
	}

	var values []perf.CounterValue
	for _, m := range k.members(c) {
		values = append(values, perf.CounterValue{ID: m.id, Value: m.value})
	}
	values = append(values, k.ExtraEntries...)
	if k.Permute != nil {
		k.Permute(values)
	}

	size := 8 * (3 + 2*len(values))
	if len(p) < size {
		return 0, syscall.ENOSPC
	}

	binary.LittleEndian.PutUint64(p[0:], uint64(len(values)))
	binary.LittleEndian.PutUint64(p[8:], k.timeEnabled)
	binary.LittleEndian.PutUint64(p[16:], k.timeRunning)
	off := 24
	for _, v := range values {
		binary.LittleEndian.PutUint64(p[off:], v.Value)
		binary.LittleEndian.PutUint64(p[off+8:], v.ID)
		off += 16
	}

	return size, nil
}

// Close implements perf.Kernel.
func (k *Kernel) Close(fd int) error {
	k.Calls = append(k.Calls, Call{Op: "close", FD: fd})
	c, err := k.lookup(fd)
	if err != nil {
		return err
	}
	c.open = false
	c.enabled = false
	return nil
}

// Accumulate adds deltas[i] to the i-th opened counter if it is enabled,
// and advances the enabled and running times by one microsecond per call.
func (k *Kernel) Accumulate(deltas ...uint64) {
	anyEnabled := false
	for i, d := range deltas {
		if i >= len(k.counters) {
			break
		}
		c := k.counters[i]
		if c.open && c.enabled {
			c.value += d
			anyEnabled = true
		}
	}
	if anyEnabled {
		k.timeEnabled += 1000
		if k.Multiplexed {
			k.timeRunning += 500
		} else {
			k.timeRunning += 1000
		}
	}
}

// OpenFDs returns the descriptors that have been opened and not closed.
func (k *Kernel) OpenFDs() []int {
	var fds []int
	for _, c := range k.counters {
		if c.open {
			fds = append(fds, c.fd)
		}
	}
	return fds
}

// Attr returns the attributes the counter fd was opened with.
func (k *Kernel) Attr(fd int) (perf.EventAttr, bool) {
	for _, c := range k.counters {
		if c.fd == fd {
			return c.attr, true
		}
	}
	return perf.EventAttr{}, false
}

// Enabled reports whether the counter fd is currently counting.
func (k *Kernel) Enabled(fd int) bool {
	for _, c := range k.counters {
		if c.fd == fd {
			return c.open && c.enabled
		}
	}
	return false
}

// ControlCalls returns only the control calls, in order.
func (k *Kernel) ControlCalls() []Call {
	var calls []Call
	for _, c := range k.Calls {
		if c.Op == "control" {
			calls = append(calls, c)
		}
	}
	return calls
}
