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
	"sort"
	"strconv"
	"strings"

	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
)

// Short modifier spellings accepted for the usual core PMU format terms.
var modifierAliases = map[string]string{
	"e": "edge",
	"i": "inv",
	"c": "cmask",
	"t": "any",
}

type bitRange struct {
	lo, hi uint
}

func (r bitRange) width() uint {
	return r.hi - r.lo + 1
}

// formatField describes where a format term lives in the config words,
// e.g. "config:0-7,32-35" or "config1:0-15".
type formatField struct {
	word   int
	ranges []bitRange
}

func parseFormat(s string) (formatField, error) {
	var f formatField

	s = strings.TrimSpace(s)
	word, spec, ok := strings.Cut(s, ":")
	if !ok {
		return f, fmt.Errorf("format %q: missing ':'", s)
	}

	switch word {
	case "config":
		f.word = 0
	case "config1":
		f.word = 1
	case "config2":
		f.word = 2
	default:
		return f, fmt.Errorf("format %q: unknown config word %q", s, word)
	}

	for _, part := range strings.Split(spec, ",") {
		loStr, hiStr, isRange := strings.Cut(part, "-")
		lo, err := strconv.ParseUint(loStr, 10, 8)
		if err != nil {
			return f, fmt.Errorf("format %q: %w", s, err)
		}
		hi := lo
		if isRange {
			hi, err = strconv.ParseUint(hiStr, 10, 8)
			if err != nil {
				return f, fmt.Errorf("format %q: %w", s, err)
			}
		}
		if hi < lo || hi > 63 {
			return f, fmt.Errorf("format %q: bad bit range %s", s, part)
		}
		f.ranges = append(f.ranges, bitRange{lo: uint(lo), hi: uint(hi)})
	}

	return f, nil
}

func fieldMask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// apply stores value into the bits of the field, lowest range first,
// replacing whatever was there.
func (f formatField) apply(d *perf.Descriptor, value uint64) error {
	var total uint
	for _, r := range f.ranges {
		total += r.width()
	}
	if total < 64 && value > fieldMask(total) {
		return fmt.Errorf("value %#x does not fit in %d bits", value, total)
	}

	w := configWord(d, f.word)
	for _, r := range f.ranges {
		m := fieldMask(r.width())
		*w &^= m << r.lo
		*w |= (value & m) << r.lo
		value >>= r.width()
	}
	return nil
}

func configWord(d *perf.Descriptor, word int) *uint64 {
	switch word {
	case 1:
		return &d.Config1
	case 2:
		return &d.Config2
	}
	return &d.Config
}

// pmu is one performance monitoring unit: its perf type, the layout of its
// format terms and its named events as term strings ("event=0x3c,umask=0x1").
type pmu struct {
	name    string
	typ     uint32
	formats map[string]formatField
	events  map[string]string
}

func (p *pmu) setTerm(d *perf.Descriptor, term string, value uint64) error {
	switch term {
	case "config":
		d.Config = value
		return nil
	case "config1":
		d.Config1 = value
		return nil
	case "config2":
		d.Config2 = value
		return nil
	}

	f, ok := p.formats[term]
	if !ok {
		return fmt.Errorf("PMU %s has no format term %q", p.name, term)
	}
	if err := f.apply(d, value); err != nil {
		return fmt.Errorf("term %s: %w", term, err)
	}
	return nil
}

func (p *pmu) encode(n Name) (perf.Descriptor, error) {
	terms, ok := p.events[n.key()]
	if !ok {
		return perf.Descriptor{}, ErrUnknownEvent
	}

	d := perf.Descriptor{Type: p.typ}
	pending := make(map[string]struct{})

	for _, term := range strings.Split(terms, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		k, v, ok := strings.Cut(term, "=")
		if !ok {
			v = "1"
		}
		if v == "?" {
			pending[k] = struct{}{}
			continue
		}
		value, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return perf.Descriptor{}, fmt.Errorf("event %s: bad term %q: %w", n.Event, term, err)
		}
		if err = p.setTerm(&d, k, value); err != nil {
			return perf.Descriptor{}, fmt.Errorf("event %s: %w", n.Event, err)
		}
	}

	for _, m := range n.Modifiers {
		if isPrivilegeModifier(m.Key) {
			continue
		}
		key := m.Key
		if alias, ok := modifierAliases[key]; ok {
			key = alias
		}
		if err := p.setTerm(&d, key, m.Value); err != nil {
			return perf.Descriptor{}, fmt.Errorf("modifier %s: %w", m.Key, err)
		}
		delete(pending, key)
	}

	if len(pending) > 0 {
		missing := make([]string, 0, len(pending))
		for k := range pending {
			missing = append(missing, k)
		}
		sort.Strings(missing)
		return perf.Descriptor{}, fmt.Errorf("event %s requires a value for %s",
			n.Event, strings.Join(missing, ", "))
	}

	return d, nil
}

// PMUEncoder resolves events against a set of PMU descriptions. Events
// without a PMU prefix are looked up in each PMU in turn.
type PMUEncoder struct {
	pmus    []*pmu
	aliases map[string]string
}

func (e *PMUEncoder) lookup(name string) *pmu {
	if alias, ok := e.aliases[name]; ok {
		name = alias
	}
	for _, p := range e.pmus {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Encode implements Encoder.
func (e *PMUEncoder) Encode(n Name) (perf.Descriptor, error) {
	if n.PMU != "" {
		p := e.lookup(n.PMU)
		if p == nil {
			return perf.Descriptor{}, ErrUnknownEvent
		}
		return p.encode(n)
	}

	for _, p := range e.pmus {
		d, err := p.encode(n)
		if err != ErrUnknownEvent {
			return d, err
		}
	}
	return perf.Descriptor{}, ErrUnknownEvent
}

// Names implements Encoder. Events are listed as pmu::event.
func (e *PMUEncoder) Names() []string {
	var names []string
	for _, p := range e.pmus {
		for ev := range p.events {
			names = append(names, p.name+"::"+ev)
		}
	}
	sort.Strings(names)
	return names
}

// pmuOrder sorts core PMUs ahead of the rest so that unprefixed names
// resolve against the CPU first.
func pmuOrder(name string) int {
	switch name {
	case "cpu":
		return 0
	case "cpu_core":
		return 1
	case "cpu_atom":
		return 2
	}
	return 3
}

func sortPMUs(pmus []*pmu) {
	sort.Slice(pmus, func(i, j int) bool {
		oi, oj := pmuOrder(pmus[i].name), pmuOrder(pmus[j].name)
		if oi != oj {
			return oi < oj
		}
		return pmus[i].name < pmus[j].name
	})
}
