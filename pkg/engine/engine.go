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

// Package engine runs one probe: it resolves the configured events, opens
// them as a counter group on the target, and samples the group into the
// log until the configured duration has elapsed.
package engine

import (
	"context"
	"errors"
	"runtime"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"

	"github.com/sykwer/periodic-pmu-prober/pkg/config"
	"github.com/sykwer/periodic-pmu-prober/pkg/events"
	"github.com/sykwer/periodic-pmu-prober/pkg/samplelog"
	"github.com/sykwer/periodic-pmu-prober/pkg/sampler"
	"github.com/sykwer/periodic-pmu-prober/pkg/sys"
	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
	"github.com/sykwer/periodic-pmu-prober/pkg/target"
)

// Resolver turns event names into counter specifications.
type Resolver interface {
	ResolveAll(names []string) ([]perf.EventSpec, error)
}

// Sink is a sample log that is closed when the run ends.
type Sink interface {
	sampler.Sink
	Close() error
}

// SinkOpener opens the sample log at path.
type SinkOpener func(path string) (Sink, error)

// MemoryLocker pins process memory and returns the function that unpins it.
type MemoryLocker func() (func() error, error)

func openLog(path string) (Sink, error) {
	w, err := samplelog.Open(path)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Engine holds everything one run needs.
type Engine struct {
	cfg        config.Config
	resolver   Resolver
	kernel     perf.Kernel
	clock      sampler.Clock
	openSink   SinkOpener
	lockMemory MemoryLocker

	recorded int
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernel replaces the perf_event system call interface.
func WithKernel(k perf.Kernel) Option {
	return func(e *Engine) {
		e.kernel = k
	}
}

// WithClock replaces the sampling clock.
func WithClock(c sampler.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithResolver replaces the event database loaded from the host.
func WithResolver(r Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithSink replaces the function that opens the sample log.
func WithSink(open SinkOpener) Option {
	return func(e *Engine) {
		e.openSink = open
	}
}

// WithMemoryLocker replaces mlockall-based memory pinning.
func WithMemoryLocker(lock MemoryLocker) Option {
	return func(e *Engine) {
		e.lockMemory = lock
	}
}

// New validates cfg and builds an Engine. Unless WithResolver is given, the
// host's event database is loaded from cfg.PMUDir.
func New(cfg config.Config, options ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		kernel:     perf.SystemKernel{},
		clock:      sampler.SystemClock(),
		openSink:   openLog,
		lockMemory: sys.LockMemory,
	}
	for _, o := range options {
		o(e)
	}

	if e.resolver == nil {
		r, err := events.NewDefaultResolver(cfg.PMUDir)
		if err != nil {
			return nil, err
		}
		e.resolver = r
	}

	return e, nil
}

// Recorded returns the number of windows written by the last Run.
func (e *Engine) Recorded() int {
	return e.recorded
}

// Run performs the probe. Resources are acquired in the order counter
// group, memory lock, sample log and released in reverse on every return.
func (e *Engine) Run(ctx context.Context) error {
	e.recorded = 0

	specs, err := e.resolver.ResolveAll(e.cfg.Events)
	if err != nil {
		glog.Errorf("Event resolution failed: %v", err)
		return err
	}

	if e.cfg.Pid == 0 {
		// pid 0 counts the calling thread, which must stay the one
		// this goroutine runs on.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	} else if p, err := target.Describe(e.cfg.ProcFS, e.cfg.Pid); err != nil {
		glog.Warningf("Unable to inspect target: %v", err)
	} else {
		target.Log(p)
	}

	group, err := perf.OpenCounterGroup(e.kernel, specs, e.cfg.Pid, perf.WithCPU(e.cfg.CPU))
	if err != nil {
		e.diagnoseOpen(err)
		return err
	}
	defer func() {
		if err := group.Close(); err != nil {
			glog.Warningf("Closing counter group: %v", err)
		}
	}()
	for _, c := range group.Counters() {
		glog.V(1).Infof("Counter %s: %s id=%d leader=%t", c.Name, c.Descriptor, c.ID, c.Leader)
	}

	if e.cfg.LockMemory {
		unlock, err := e.lockMemory()
		if err != nil {
			glog.Warningf("Unable to lock memory, page faults may be counted: %v", err)
		} else {
			defer func() {
				if err := unlock(); err != nil {
					glog.Warningf("Unlocking memory: %v", err)
				}
			}()
		}
	}

	sink, err := e.openSink(e.cfg.LogPath)
	if err != nil {
		glog.Errorf("Unable to open sample log: %v", err)
		return err
	}

	options := []sampler.Option{
		sampler.WithPeriod(e.cfg.Period),
		sampler.WithDuration(e.cfg.Duration),
		sampler.WithClock(e.clock),
	}
	if e.cfg.Buffered {
		options = append(options, sampler.WithBuffering())
	}
	s := sampler.New(group, sink, options...)

	glog.Infof("Sampling %d events on pid %d every %s for %s into %s",
		len(specs), e.cfg.Pid, e.cfg.Period, e.cfg.Duration, e.cfg.LogPath)

	err = s.Run(ctx)
	e.recorded = s.Recorded()

	if cerr := sink.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		glog.Errorf("Run incomplete after %s windows: %v", humanize.Comma(int64(e.recorded)), err)
		return err
	}

	glog.Infof("Recorded %s windows to %s", humanize.Comma(int64(e.recorded)), e.cfg.LogPath)
	return nil
}

func (e *Engine) diagnoseOpen(err error) {
	var openErr *perf.OpenError
	if !errors.As(err, &openErr) {
		glog.Errorf("Unable to open counters: %v", err)
		return
	}

	role := "member"
	if openErr.Leader {
		role = "leader"
	}
	glog.Errorf("Unable to open %s counter for event %s: %v", role, openErr.Event, openErr.Err)

	major, minor, patch := sys.KernelVersion()
	glog.Errorf("Kernel version %d.%d.%d", major, minor, patch)

	if level, perr := sys.PerfEventParanoid(e.cfg.ProcFS); perr != nil {
		glog.Errorf("Unable to read perf_event_paranoid: %v", perr)
	} else {
		glog.Errorf("perf_event_paranoid is %d: %s", level, sys.DescribeParanoid(level))
	}

	switch {
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		glog.Error("Run as root, grant CAP_PERFMON, or lower kernel.perf_event_paranoid")
	case errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.EOPNOTSUPP):
		glog.Error("The event is not supported by this CPU's PMU")
	case errors.Is(err, syscall.EINVAL):
		glog.Error("The group may hold more events than the PMU has counters")
	}
}
