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

package perf

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"
)

// groupReadFormat is the read format every counter in a CounterGroup is
// opened with. A single read(2) against the leader returns the value and
// id of every member plus the group's enabled and running times.
const groupReadFormat = PERF_FORMAT_TOTAL_TIME_ENABLED |
	PERF_FORMAT_TOTAL_TIME_RUNNING |
	PERF_FORMAT_ID |
	PERF_FORMAT_GROUP

// Extra (value, id) slots reserved in the read buffer for entries the kernel
// may report beyond the configured counters.
const readSlack = 4

// OpenError is returned when the kernel refuses to create one of the
// counters of a group.
type OpenError struct {
	Event  string
	Leader bool
	Err    error
}

func (e *OpenError) Error() string {
	role := "member"
	if e.Leader {
		role = "leader"
	}
	return fmt.Sprintf("cannot open counter %q (group %s): %v", e.Event, role, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Counter is one open kernel counter in a CounterGroup.
type Counter struct {
	Name       string
	Descriptor Descriptor

	// ID is the kernel-assigned identifier used to match read values to
	// this counter.
	ID uint64

	// Leader is true for the first counter of the group, through which
	// the whole group is controlled.
	Leader bool

	// Value is the count observed by the most recent CounterGroup.Read.
	Value uint64

	fd int
}

// FD returns the counter's file descriptor, or -1 once it is closed.
func (c *Counter) FD() int {
	return c.fd
}

type groupOptions struct {
	cpu   int
	flags uintptr
}

// GroupOption is used to implement optional arguments for
// OpenCounterGroup.
type GroupOption func(*groupOptions)

// WithCPU restricts the group to counting on a single CPU. The default of
// -1 counts the target on whatever CPU it runs.
func WithCPU(cpu int) GroupOption {
	return func(o *groupOptions) {
		o.cpu = cpu
	}
}

// WithFlags is used to set optional flags passed to perf_event_open() in
// addition to PERF_FLAG_FD_CLOEXEC.
func WithFlags(flags uintptr) GroupOption {
	return func(o *groupOptions) {
		o.flags |= flags
	}
}

// CounterGroup is a set of counters scheduled together on the PMU. The
// first counter is the group leader; reset, enable, disable and read are
// always issued against it with group scope so that every member starts and
// stops at the same instant.
type CounterGroup struct {
	kernel   Kernel
	counters []*Counter
	byID     map[uint64]*Counter
	buf      []byte
}

func newCounterAttr(d Descriptor) EventAttr {
	return EventAttr{
		Type:          d.Type,
		Config:        d.Config,
		Config1:       d.Config1,
		Config2:       d.Config2,
		ReadFormat:    groupReadFormat,
		Disabled:      true,
		ExcludeKernel: true,
		ExcludeHV:     true,
	}
}

// OpenCounterGroup opens one counter per spec for the process pid. The first
// spec becomes the group leader and every following spec joins its group.
// If any counter cannot be opened, the counters opened so far are closed and
// an *OpenError is returned.
func OpenCounterGroup(
	kernel Kernel,
	specs []EventSpec,
	pid int,
	options ...GroupOption,
) (*CounterGroup, error) {
	if len(specs) == 0 {
		return nil, errors.New("counter group needs at least one event")
	}

	opts := groupOptions{
		cpu:   -1,
		flags: PERF_FLAG_FD_CLOEXEC,
	}
	for _, o := range options {
		o(&opts)
	}

	cg := &CounterGroup{
		kernel:   kernel,
		counters: make([]*Counter, 0, len(specs)),
		byID:     make(map[uint64]*Counter, len(specs)),
	}

	groupFd := -1
	for i, spec := range specs {
		leader := i == 0
		attr := newCounterAttr(spec.Descriptor)

		glog.V(2).Infof("Opening counter %s (%s) pid %d cpu %d group fd %d",
			spec.Name, spec.Descriptor, pid, opts.cpu, groupFd)

		fd, err := kernel.Open(&attr, pid, opts.cpu, groupFd, opts.flags)
		if err != nil {
			cg.Close()
			return nil, &OpenError{Event: spec.Name, Leader: leader, Err: err}
		}

		c := &Counter{
			Name:       spec.Name,
			Descriptor: spec.Descriptor,
			Leader:     leader,
			fd:         fd,
		}
		cg.counters = append(cg.counters, c)

		streamID, err := kernel.ID(fd)
		if err != nil {
			cg.Close()
			return nil, &OpenError{
				Event:  spec.Name,
				Leader: leader,
				Err:    fmt.Errorf("PERF_EVENT_IOC_ID: %w", err),
			}
		}
		if other, ok := cg.byID[streamID]; ok {
			cg.Close()
			return nil, &OpenError{
				Event:  spec.Name,
				Leader: leader,
				Err:    fmt.Errorf("kernel id %d already assigned to %q", streamID, other.Name),
			}
		}
		c.ID = streamID
		cg.byID[streamID] = c

		if leader {
			groupFd = fd
		}
	}

	// nr, time_enabled, time_running, then (value, id) pairs
	cg.buf = make([]byte, 8*(3+2*(len(specs)+readSlack)))

	return cg, nil
}

// Leader returns the group leader.
func (cg *CounterGroup) Leader() *Counter {
	return cg.counters[0]
}

// Counters returns every counter in configuration order, leader first.
func (cg *CounterGroup) Counters() []*Counter {
	return cg.counters
}

func (cg *CounterGroup) control(op ControlOp) error {
	leader := cg.Leader()
	if leader.fd < 0 {
		return fmt.Errorf("%s: counter group is closed", op)
	}
	if err := cg.kernel.Control(leader.fd, op, ScopeGroup); err != nil {
		return fmt.Errorf("%s group (leader fd %d): %w", op, leader.fd, err)
	}
	return nil
}

// Reset zeroes every counter in the group.
func (cg *CounterGroup) Reset() error {
	return cg.control(ControlReset)
}

// Enable starts every counter in the group.
func (cg *CounterGroup) Enable() error {
	return cg.control(ControlEnable)
}

// Disable stops every counter in the group.
func (cg *CounterGroup) Disable() error {
	return cg.control(ControlDisable)
}

// Read reads the whole group with one read(2) against the leader. Each
// counter's Value is replaced by the value reported for its ID; counters
// missing from the reply read as zero and values for unknown IDs are
// ignored.
func (cg *CounterGroup) Read() (GroupRead, error) {
	leader := cg.Leader()
	if leader.fd < 0 {
		return GroupRead{}, errors.New("read: counter group is closed")
	}

	n, err := cg.kernel.Read(leader.fd, cg.buf)
	if err != nil {
		return GroupRead{}, fmt.Errorf("read group (leader fd %d): %w", leader.fd, err)
	}
	if n <= 0 {
		return GroupRead{}, fmt.Errorf("read group (leader fd %d): %w",
			leader.fd, io.ErrUnexpectedEOF)
	}

	gr, err := decodeGroupRead(cg.buf[:n], groupReadFormat)
	if err != nil {
		return GroupRead{}, fmt.Errorf("decode group read: %w", err)
	}

	for _, c := range cg.counters {
		c.Value = 0
	}
	for _, v := range gr.Values {
		c, ok := cg.byID[v.ID]
		if !ok {
			glog.V(2).Infof("Ignoring value %d for unknown counter id %d",
				v.Value, v.ID)
			continue
		}
		c.Value = v.Value
	}

	return gr, nil
}

// Close releases every counter, members first and the leader last. It is
// safe to call more than once.
func (cg *CounterGroup) Close() error {
	var firstErr error
	for i := len(cg.counters) - 1; i >= 0; i-- {
		c := cg.counters[i]
		if c.fd < 0 {
			continue
		}
		if err := cg.kernel.Close(c.fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close counter %q: %w", c.Name, err)
		}
		c.fd = -1
	}
	return firstErr
}
