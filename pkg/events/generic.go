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

package events

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
)

type genericEvent struct {
	name   string
	typ    uint32
	config uint64
}

var genericHardware = []genericEvent{
	{"cpu-cycles", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_CPU_CYCLES},
	{"cycles", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_CPU_CYCLES},
	{"instructions", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_INSTRUCTIONS},
	{"cache-references", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_CACHE_REFERENCES},
	{"cache-misses", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_CACHE_MISSES},
	{"branch-instructions", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_BRANCH_INSTRUCTIONS},
	{"branches", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_BRANCH_INSTRUCTIONS},
	{"branch-misses", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_BRANCH_MISSES},
	{"bus-cycles", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_BUS_CYCLES},
	{"stalled-cycles-frontend", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_STALLED_CYCLES_FRONTEND},
	{"stalled-cycles-backend", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_STALLED_CYCLES_BACKEND},
	{"ref-cycles", perf.PERF_TYPE_HARDWARE, perf.PERF_COUNT_HW_REF_CPU_CYCLES},

	{"cpu-clock", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_CPU_CLOCK},
	{"task-clock", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_TASK_CLOCK},
	{"page-faults", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_PAGE_FAULTS},
	{"faults", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_PAGE_FAULTS},
	{"context-switches", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_CONTEXT_SWITCHES},
	{"cs", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_CONTEXT_SWITCHES},
	{"cpu-migrations", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_CPU_MIGRATIONS},
	{"migrations", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_CPU_MIGRATIONS},
	{"minor-faults", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_PAGE_FAULTS_MIN},
	{"major-faults", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_PAGE_FAULTS_MAJ},
	{"alignment-faults", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_ALIGNMENT_FAULTS},
	{"emulation-faults", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_EMULATION_FAULTS},
	{"dummy", perf.PERF_TYPE_SOFTWARE, perf.PERF_COUNT_SW_DUMMY},
}

var hwCaches = []struct {
	name string
	id   uint64
}{
	{"L1-dcache", perf.PERF_COUNT_HW_CACHE_L1D},
	{"L1-icache", perf.PERF_COUNT_HW_CACHE_L1I},
	{"LLC", perf.PERF_COUNT_HW_CACHE_LL},
	{"dTLB", perf.PERF_COUNT_HW_CACHE_DTLB},
	{"iTLB", perf.PERF_COUNT_HW_CACHE_ITLB},
	{"branch", perf.PERF_COUNT_HW_CACHE_BPU},
	{"node", perf.PERF_COUNT_HW_CACHE_NODE},
}

var hwCacheOps = []struct {
	access, miss string
	op           uint64
}{
	{"loads", "load-misses", perf.PERF_COUNT_HW_CACHE_OP_READ},
	{"stores", "store-misses", perf.PERF_COUNT_HW_CACHE_OP_WRITE},
	{"prefetches", "prefetch-misses", perf.PERF_COUNT_HW_CACHE_OP_PREFETCH},
}

// GenericEncoder resolves the kernel's generalized hardware, software and
// hardware cache events, and raw events written as r<hex>.
type GenericEncoder struct {
	events map[string]genericEvent
}

// NewGenericEncoder builds the generic event table.
func NewGenericEncoder() *GenericEncoder {
	e := &GenericEncoder{events: make(map[string]genericEvent)}
	add := func(ev genericEvent) {
		e.events[strings.ToLower(ev.name)] = ev
	}

	for _, ev := range genericHardware {
		add(ev)
	}
	for _, c := range hwCaches {
		for _, op := range hwCacheOps {
			add(genericEvent{
				name:   c.name + "-" + op.access,
				typ:    perf.PERF_TYPE_HW_CACHE,
				config: c.id | op.op<<8 | perf.PERF_COUNT_HW_CACHE_RESULT_ACCESS<<16,
			})
			add(genericEvent{
				name:   c.name + "-" + op.miss,
				typ:    perf.PERF_TYPE_HW_CACHE,
				config: c.id | op.op<<8 | perf.PERF_COUNT_HW_CACHE_RESULT_MISS<<16,
			})
		}
	}
	return e
}

func parseRaw(event string) (uint64, bool) {
	if len(event) < 2 || len(event) > 17 || (event[0] != 'r' && event[0] != 'R') {
		return 0, false
	}
	config, err := strconv.ParseUint(event[1:], 16, 64)
	if err != nil {
		return 0, false
	}
	return config, true
}

// Encode implements Encoder.
func (e *GenericEncoder) Encode(n Name) (perf.Descriptor, error) {
	if n.PMU != "" {
		return perf.Descriptor{}, ErrUnknownEvent
	}

	var d perf.Descriptor
	if ev, ok := e.events[strings.ToLower(n.Event)]; ok {
		d = perf.Descriptor{Type: ev.typ, Config: ev.config}
	} else if config, ok := parseRaw(n.Event); ok {
		d = perf.Descriptor{Type: perf.PERF_TYPE_RAW, Config: config}
	} else {
		return perf.Descriptor{}, ErrUnknownEvent
	}

	if n.UnitMask != "" {
		return perf.Descriptor{}, fmt.Errorf("event %s takes no unit mask", n.Event)
	}
	for _, m := range n.Modifiers {
		if !isPrivilegeModifier(m.Key) {
			return perf.Descriptor{}, fmt.Errorf("event %s takes no modifier %q", n.Event, m.Key)
		}
	}
	return d, nil
}

// Names implements Encoder.
func (e *GenericEncoder) Names() []string {
	names := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		names = append(names, ev.name)
	}
	return names
}
