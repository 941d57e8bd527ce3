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

// Package sampler drives a counter group through fixed-length windows,
// producing one Window of counter deltas per period.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
)

// State is the position of a Sampler in its lifecycle.
type State int

const (
	// StateIdle is the state before Run.
	StateIdle State = iota
	// StateRunning means the group is counting a window.
	StateRunning
	// StateStopped means the group was disabled at the end of a window.
	StateStopped
	// StateDraining means the group's values are being read.
	StateDraining
	// StateReset means the group is being zeroed and re-enabled.
	StateReset
	// StateFinished is the terminal state.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateDraining:
		return "draining"
	case StateReset:
		return "reset"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInterrupted is returned by Run when its context is cancelled. The
// window in flight at the time is discarded.
var ErrInterrupted = errors.New("sampling interrupted")

// IOError is returned when controlling or reading the counter group fails.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("sampling %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// CounterGroup is the part of perf.CounterGroup the sampler drives.
type CounterGroup interface {
	Reset() error
	Enable() error
	Disable() error
	Read() (perf.GroupRead, error)
	Counters() []*perf.Counter
}

const (
	// DefaultPeriod is the window length used unless WithPeriod is given.
	DefaultPeriod = 10 * time.Millisecond

	// DefaultDuration is the run length used unless WithDuration is given.
	DefaultDuration = 10 * time.Second
)

type samplerOptions struct {
	period   time.Duration
	duration time.Duration
	buffered bool
	clock    Clock
}

// Option configures a Sampler.
type Option func(*samplerOptions)

// WithPeriod sets the window length.
func WithPeriod(d time.Duration) Option {
	return func(o *samplerOptions) {
		o.period = d
	}
}

// WithDuration sets the total run length. The sampler records
// floor(duration / period) windows.
func WithDuration(d time.Duration) Option {
	return func(o *samplerOptions) {
		o.duration = d
	}
}

// WithBuffering holds windows in memory and hands them to the sink only
// once sampling has finished.
func WithBuffering() Option {
	return func(o *samplerOptions) {
		o.buffered = true
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(o *samplerOptions) {
		o.clock = c
	}
}

// Sampler records windows from one counter group into one sink. A Sampler
// runs once.
type Sampler struct {
	group CounterGroup
	sink  Sink
	opts  samplerOptions
	names []string

	state     State
	recorded  int
	pending   []*Window
	warnedMux bool

	// Group times at the end of the previous window. The kernel's
	// enabled and running times survive a reset.
	lastEnabled uint64
	lastRunning uint64
}

// New creates a Sampler for group writing to sink.
func New(group CounterGroup, sink Sink, options ...Option) *Sampler {
	opts := samplerOptions{
		period:   DefaultPeriod,
		duration: DefaultDuration,
		clock:    SystemClock(),
	}
	for _, o := range options {
		o(&opts)
	}

	counters := group.Counters()
	names := make([]string, len(counters))
	for i, c := range counters {
		names[i] = c.Name
	}

	return &Sampler{
		group: group,
		sink:  sink,
		opts:  opts,
		names: names,
	}
}

// Periods returns the number of windows a full run records.
func (s *Sampler) Periods() int {
	if s.opts.period <= 0 || s.opts.duration <= 0 {
		return 0
	}
	return int(s.opts.duration / s.opts.period)
}

// State returns the sampler's current state.
func (s *Sampler) State() State {
	return s.state
}

// Recorded returns the number of windows handed to the sink so far.
func (s *Sampler) Recorded() int {
	return s.recorded
}

// Run records Periods() windows and returns once the last one has reached
// the sink. The group is left disabled on every return path.
func (s *Sampler) Run(ctx context.Context) error {
	if s.state != StateIdle {
		return fmt.Errorf("sampler already %s", s.state)
	}

	n := s.Periods()
	if n == 0 {
		glog.Warningf("Duration %s is shorter than period %s; nothing to sample",
			s.opts.duration, s.opts.period)
		s.state = StateFinished
		return nil
	}
	glog.V(1).Infof("Sampling %d windows of %s", n, s.opts.period)

	s.state = StateReset
	if err := s.restart(); err != nil {
		return err
	}
	start := s.opts.clock.Now()

	for i := 0; i < n; i++ {
		s.state = StateRunning
		if err := s.opts.clock.Sleep(ctx, s.opts.period); err != nil {
			glog.V(1).Infof("Sampling interrupted during window %d: %v", i, err)
			s.abort()
			if ferr := s.flush(); ferr != nil {
				glog.Errorf("Flushing %d buffered windows: %v", len(s.pending), ferr)
			}
			return ErrInterrupted
		}

		s.state = StateStopped
		if err := s.group.Disable(); err != nil {
			return s.fail("disable", err)
		}
		end := s.opts.clock.Now()

		s.state = StateDraining
		gr, err := s.group.Read()
		if err != nil {
			return s.fail("read", err)
		}
		w := s.window(start, end, gr)

		if err = s.deliver(w); err != nil {
			s.state = StateFinished
			return err
		}

		if i == n-1 {
			break
		}

		s.state = StateReset
		if err = s.restart(); err != nil {
			return err
		}
		start = end
	}

	s.state = StateFinished
	return s.flush()
}

func (s *Sampler) restart() error {
	if err := s.group.Reset(); err != nil {
		return s.fail("reset", err)
	}
	if err := s.group.Enable(); err != nil {
		return s.fail("enable", err)
	}
	return nil
}

func (s *Sampler) window(start, end uint64, gr perf.GroupRead) *Window {
	counters := s.group.Counters()
	w := &Window{
		Start:       start,
		End:         end,
		Values:      make([]uint64, len(counters)),
		Names:       s.names,
		TimeEnabled: since(gr.TimeEnabled, s.lastEnabled),
		TimeRunning: since(gr.TimeRunning, s.lastRunning),
	}
	s.lastEnabled, s.lastRunning = gr.TimeEnabled, gr.TimeRunning
	for i, c := range counters {
		w.Values[i] = c.Value
	}

	if w.Multiplexed() && !s.warnedMux {
		glog.Warningf("Counter group was multiplexed (running %dns of %dns enabled); "+
			"values are not scaled", w.TimeRunning, w.TimeEnabled)
		s.warnedMux = true
	}
	glog.V(2).Infof("Window [%d, %d): %v", start, end, w.Values)

	return w
}

// since returns the growth of a cumulative kernel time. A total that went
// backwards is taken as counting from zero.
func since(total, last uint64) uint64 {
	if total < last {
		return total
	}
	return total - last
}

func (s *Sampler) deliver(w *Window) error {
	if s.opts.buffered {
		s.pending = append(s.pending, w)
		return nil
	}
	if err := s.sink.Append(w); err != nil {
		return err
	}
	s.recorded++
	return nil
}

func (s *Sampler) flush() error {
	for len(s.pending) > 0 {
		if err := s.sink.Append(s.pending[0]); err != nil {
			return err
		}
		s.pending = s.pending[1:]
		s.recorded++
	}
	return nil
}

// abort disables the group on a failure path; a second failure is only
// logged.
func (s *Sampler) abort() {
	if err := s.group.Disable(); err != nil {
		glog.Warningf("Disabling counter group after failure: %v", err)
	}
	s.state = StateFinished
}

func (s *Sampler) fail(op string, err error) error {
	glog.Errorf("Counter group %s failed after %d windows: %v", op, s.recorded+len(s.pending), err)
	s.abort()
	if ferr := s.flush(); ferr != nil {
		glog.Errorf("Flushing %d buffered windows: %v", len(s.pending), ferr)
	}
	return &IOError{Op: op, Err: err}
}
