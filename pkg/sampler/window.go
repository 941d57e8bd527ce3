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

package sampler

import (
	"context"
	"time"
)

// Window is the counts of one sampling period. Values are deltas over
// [Start, End) in configuration order; Names is shared between windows of
// the same run.
type Window struct {
	// Start and End are wall-clock microseconds.
	Start uint64
	End   uint64

	Values []uint64
	Names  []string

	// TimeEnabled and TimeRunning are the nanoseconds the group spent
	// enabled and running during the window, taken as the difference of
	// the kernel's cumulative totals at this and the previous read.
	TimeEnabled uint64
	TimeRunning uint64
}

// Lookup returns the value recorded for the named event.
func (w *Window) Lookup(name string) (uint64, bool) {
	for i, n := range w.Names {
		if n == name {
			return w.Values[i], true
		}
	}
	return 0, false
}

// Multiplexed reports whether the group was descheduled for part of the
// window.
func (w *Window) Multiplexed() bool {
	return w.TimeRunning < w.TimeEnabled
}

// Sink receives completed windows in order.
type Sink interface {
	Append(w *Window) error
}

// Clock supplies window timestamps and the pause between reads.
type Clock interface {
	// Now returns the current time in microseconds.
	Now() uint64

	// Sleep pauses for d or until ctx is done, returning ctx.Err() in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() uint64 {
	return uint64(time.Now().UnixMicro())
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
