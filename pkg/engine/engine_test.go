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

package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sykwer/periodic-pmu-prober/pkg/config"
	"github.com/sykwer/periodic-pmu-prober/pkg/engine"
	"github.com/sykwer/periodic-pmu-prober/pkg/events"
	"github.com/sykwer/periodic-pmu-prober/pkg/samplelog"
	"github.com/sykwer/periodic-pmu-prober/pkg/sampler"
	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf/perftest"
)

const t0 = 1700000000000000

type fakeClock struct {
	now     uint64
	sleeps  int
	onSleep func(nth int)
}

func (c *fakeClock) Now() uint64 {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now += uint64(d / time.Microsecond)
	nth := c.sleeps
	c.sleeps++
	if c.onSleep != nil {
		c.onSleep(nth)
	}
	return ctx.Err()
}

var testResolver = events.NewResolver(events.StaticEncoder{
	"a": {Type: perf.PERF_TYPE_RAW, Config: 0x148},
	"b": {Type: perf.PERF_TYPE_RAW, Config: 0x8d1},
	"c": {Type: perf.PERF_TYPE_RAW, Config: 0x40d1},
})

func testConfig(t *testing.T, names ...string) config.Config {
	return config.Config{
		Duration: 20 * time.Millisecond,
		Period:   10 * time.Millisecond,
		Events:   names,
		LogPath:  filepath.Join(t.TempDir(), "samples.log"),
		CPU:      -1,
		ProcFS:   t.TempDir(),
	}
}

func readLog(t *testing.T, path string) string {
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunEndToEnd(t *testing.T) {
	k := perftest.NewKernel()
	deltas := [][]uint64{{5, 7}, {3, 2}}
	clock := &fakeClock{now: t0, onSleep: func(nth int) {
		k.Accumulate(deltas[nth]...)
	}}
	cfg := testConfig(t, "A", "B")

	e, err := engine.New(cfg,
		engine.WithKernel(k),
		engine.WithClock(clock),
		engine.WithResolver(testResolver))
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, 2, e.Recorded())
	assert.Equal(t, "5 7 1700000000000000 1700000000010000\n"+
		"3 2 1700000000010000 1700000000020000\n", readLog(t, cfg.LogPath))

	// Every counter was released.
	assert.Empty(t, k.OpenFDs())

	attr, ok := k.Attr(100)
	require.True(t, ok)
	assert.Equal(t, uint64(0x148), attr.Config)
}

func TestRunBufferedEndToEnd(t *testing.T) {
	k := perftest.NewKernel()
	clock := &fakeClock{now: t0, onSleep: func(int) { k.Accumulate(1, 2, 3) }}
	cfg := testConfig(t, "a", "b", "c")
	cfg.Buffered = true

	e, err := engine.New(cfg,
		engine.WithKernel(k),
		engine.WithClock(clock),
		engine.WithResolver(testResolver))
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, "1 2 3 1700000000000000 1700000000010000\n"+
		"1 2 3 1700000000010000 1700000000020000\n", readLog(t, cfg.LogPath))
}

func TestRunOpenFailureWritesNothing(t *testing.T) {
	k := perftest.NewKernel()
	k.OpenErrors = map[int]error{1: syscall.EACCES}
	cfg := testConfig(t, "a", "b", "c")

	e, err := engine.New(cfg,
		engine.WithKernel(k),
		engine.WithClock(&fakeClock{now: t0}),
		engine.WithResolver(testResolver))
	require.NoError(t, err)

	err = e.Run(context.Background())
	var openErr *perf.OpenError
	require.True(t, errors.As(err, &openErr))
	assert.Equal(t, "b", openErr.Event)
	assert.False(t, openErr.Leader)
	assert.True(t, errors.Is(err, syscall.EACCES))

	assert.Empty(t, k.OpenFDs())
	assert.Empty(t, k.ControlCalls())
	_, err = os.Stat(cfg.LogPath)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, e.Recorded())
}

func TestRunResolutionFailure(t *testing.T) {
	k := perftest.NewKernel()
	cfg := testConfig(t, "a", "nope")

	e, err := engine.New(cfg,
		engine.WithKernel(k),
		engine.WithResolver(testResolver))
	require.NoError(t, err)

	err = e.Run(context.Background())
	var rerr *events.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "nope", rerr.Event)
	assert.Empty(t, k.Calls)
}

func TestRunInterrupted(t *testing.T) {
	k := perftest.NewKernel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &fakeClock{now: t0, onSleep: func(nth int) {
		k.Accumulate(9)
		if nth == 1 {
			cancel()
		}
	}}
	cfg := testConfig(t, "a")
	cfg.Duration = time.Second

	e, err := engine.New(cfg,
		engine.WithKernel(k),
		engine.WithClock(clock),
		engine.WithResolver(testResolver))
	require.NoError(t, err)

	err = e.Run(ctx)
	assert.True(t, errors.Is(err, sampler.ErrInterrupted))
	assert.Equal(t, 1, e.Recorded())
	assert.Equal(t, "9 1700000000000000 1700000000010000\n", readLog(t, cfg.LogPath))
	assert.Empty(t, k.OpenFDs())
}

func TestRunSinkOpenFailure(t *testing.T) {
	k := perftest.NewKernel()
	cfg := testConfig(t, "a")
	cfg.LogPath = filepath.Join(t.TempDir(), "missing", "samples.log")

	e, err := engine.New(cfg,
		engine.WithKernel(k),
		engine.WithClock(&fakeClock{now: t0}),
		engine.WithResolver(testResolver))
	require.NoError(t, err)

	err = e.Run(context.Background())
	var werr *samplelog.WriteError
	require.True(t, errors.As(err, &werr))
	assert.Empty(t, k.OpenFDs())
	assert.Empty(t, k.ControlCalls())
}

type failingSink struct{ closed bool }

func (s *failingSink) Append(*sampler.Window) error {
	return &samplelog.WriteError{Path: "fake", Err: syscall.ENOSPC}
}

func (s *failingSink) Close() error {
	s.closed = true
	return nil
}

func TestRunSinkWriteFailure(t *testing.T) {
	k := perftest.NewKernel()
	sink := &failingSink{}

	e, err := engine.New(testConfig(t, "a"),
		engine.WithKernel(k),
		engine.WithClock(&fakeClock{now: t0}),
		engine.WithResolver(testResolver),
		engine.WithSink(func(string) (engine.Sink, error) { return sink, nil }))
	require.NoError(t, err)

	err = e.Run(context.Background())
	assert.True(t, errors.Is(err, syscall.ENOSPC))
	assert.True(t, sink.closed)
	assert.Empty(t, k.OpenFDs())
}

func TestRunMemoryLock(t *testing.T) {
	var locked, unlocked bool
	cfg := testConfig(t, "a")
	cfg.LockMemory = true

	e, err := engine.New(cfg,
		engine.WithKernel(perftest.NewKernel()),
		engine.WithClock(&fakeClock{now: t0}),
		engine.WithResolver(testResolver),
		engine.WithMemoryLocker(func() (func() error, error) {
			locked = true
			return func() error {
				unlocked = true
				return nil
			}, nil
		}))
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))

	assert.True(t, locked)
	assert.True(t, unlocked)
}

func TestRunMemoryLockFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t, "a")
	cfg.LockMemory = true

	e, err := engine.New(cfg,
		engine.WithKernel(perftest.NewKernel()),
		engine.WithClock(&fakeClock{now: t0}),
		engine.WithResolver(testResolver),
		engine.WithMemoryLocker(func() (func() error, error) {
			return nil, syscall.EPERM
		}))
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 2, e.Recorded())
}

func TestRunOtherTarget(t *testing.T) {
	cfg := testConfig(t, "a")
	cfg.Pid = 4242

	e, err := engine.New(cfg,
		engine.WithKernel(perftest.NewKernel()),
		engine.WithClock(&fakeClock{now: t0}),
		engine.WithResolver(testResolver))
	require.NoError(t, err)

	// The target cannot be inspected under the empty ProcFS; that only
	// costs the startup description.
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 2, e.Recorded())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "a")
	cfg.Period = 0

	_, err := engine.New(cfg, engine.WithResolver(testResolver))
	assert.Error(t, err)
}

func TestNewLoadsDefaultResolver(t *testing.T) {
	cfg := testConfig(t, "l1d_pend_miss.pending", "mem_load_retired.fb_hit")
	cfg.PMUDir = "../events/testdata/devices"
	k := perftest.NewKernel()

	e, err := engine.New(cfg,
		engine.WithKernel(k),
		engine.WithClock(&fakeClock{now: t0}))
	require.NoError(t, err)
	require.NoError(t, e.Run(context.Background()))

	attr, ok := k.Attr(101)
	require.True(t, ok)
	assert.Equal(t, perf.PERF_TYPE_RAW, attr.Type)
	assert.Equal(t, uint64(0x40d1), attr.Config)
}

func TestNewDefaultResolverOnForeignCPU(t *testing.T) {
	cfg := testConfig(t, "l1d_pend_miss.pending", "mem_load_retired.fb_hit")
	cfg.PMUDir = "../events/testdata/amd"
	k := perftest.NewKernel()

	e, err := engine.New(cfg,
		engine.WithKernel(k),
		engine.WithClock(&fakeClock{now: t0}))
	require.NoError(t, err)

	err = e.Run(context.Background())
	var rerr *events.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "l1d_pend_miss.pending", rerr.Event)
	assert.True(t, errors.Is(err, events.ErrUnknownEvent))
	assert.Empty(t, k.Calls)
	assert.NoFileExists(t, cfg.LogPath)
}
