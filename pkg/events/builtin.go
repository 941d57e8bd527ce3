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
	"os"
	"path/filepath"
	"strings"

	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
)

// Intel core PMU format, as exported by the kernel in
// /sys/bus/event_source/devices/cpu/format.
var intelCoreFormat = map[string]string{
	"event": "config:0-7",
	"umask": "config:8-15",
	"edge":  "config:18",
	"pc":    "config:19",
	"any":   "config:21",
	"inv":   "config:23",
	"cmask": "config:24-31",
}

// Skylake core events covering the L1D and fill buffer behavior the prober
// is usually pointed at. Names follow the Intel SDM.
var skylakeEvents = map[string]string{
	"l1d_pend_miss.pending":          "event=0x48,umask=0x01",
	"l1d_pend_miss.pending_cycles":   "event=0x48,umask=0x01,cmask=1",
	"l1d.replacement":                "event=0x51,umask=0x01",
	"mem_load_retired.l1_hit":        "event=0xd1,umask=0x01",
	"mem_load_retired.l2_hit":        "event=0xd1,umask=0x02",
	"mem_load_retired.l3_hit":        "event=0xd1,umask=0x04",
	"mem_load_retired.l1_miss":       "event=0xd1,umask=0x08",
	"mem_load_retired.l2_miss":       "event=0xd1,umask=0x10",
	"mem_load_retired.l3_miss":       "event=0xd1,umask=0x20",
	"mem_load_retired.fb_hit":        "event=0xd1,umask=0x40",
	"mem_inst_retired.all_loads":     "event=0xd0,umask=0x81",
	"cycle_activity.stalls_l1d_miss": "event=0xa3,umask=0x0c,cmask=12",
	"cycle_activity.cycles_l1d_miss": "event=0xa3,umask=0x08,cmask=8",
	"longest_lat_cache.miss":         "event=0x2e,umask=0x41",
	"longest_lat_cache.reference":    "event=0x2e,umask=0x4f",
}

// Core PMU names, as reported in cpu/caps/pmu_name, whose event encodings
// match the built-in table.
var builtinCoreNames = map[string]bool{
	"skylake": true,
}

// builtinMatchesHost reports whether the core PMU under pmuDir identifies
// itself as one the built-in table was written for. Hosts that do not
// expose caps/pmu_name never match.
func builtinMatchesHost(pmuDir string) (bool, string, error) {
	name, err := readTrimmed(filepath.Join(pmuDir, "cpu", "caps", "pmu_name"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, "", nil
		}
		return false, "", err
	}
	name = strings.ToLower(name)
	return builtinCoreNames[name], name, nil
}

// NewBuiltinEncoder returns an encoder for the compiled-in Skylake core
// event table. It answers to the PMU names "skl" and "cpu".
func NewBuiltinEncoder() *PMUEncoder {
	p := &pmu{
		name:    "skl",
		typ:     perf.PERF_TYPE_RAW,
		formats: make(map[string]formatField, len(intelCoreFormat)),
		events:  make(map[string]string, len(skylakeEvents)),
	}
	for term, s := range intelCoreFormat {
		f, err := parseFormat(s)
		if err != nil {
			panic(fmt.Sprintf("bad built-in format %s: %v", term, err))
		}
		p.formats[term] = f
	}
	for name, terms := range skylakeEvents {
		p.events[name] = terms
	}

	return &PMUEncoder{
		pmus:    []*pmu{p},
		aliases: map[string]string{"cpu": "skl"},
	}
}
