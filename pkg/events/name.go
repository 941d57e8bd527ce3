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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Modifier is a `:key` or `:key=value` suffix of an event string. A bare
// key has the value 1.
type Modifier struct {
	Key   string
	Value uint64
}

// Name is a parsed event string of the form
// [pmu::]event[:unit_mask][:modifier|:modifier=value]...
type Name struct {
	// Raw is the string the Name was parsed from.
	Raw string

	PMU       string
	Event     string
	UnitMask  string
	Modifiers []Modifier
}

// ParseName parses an event string.
func ParseName(s string) (Name, error) {
	n := Name{Raw: s}

	rest := strings.TrimSpace(s)
	if i := strings.Index(rest, "::"); i >= 0 {
		n.PMU = strings.ToLower(rest[:i])
		rest = rest[i+2:]
		if n.PMU == "" {
			return n, errors.New("empty PMU name before '::'")
		}
	}

	parts := strings.Split(rest, ":")
	n.Event = parts[0]
	if n.Event == "" {
		return n, errors.New("empty event name")
	}

	for _, p := range parts[1:] {
		if p == "" {
			return n, errors.New("empty unit mask or modifier")
		}

		if k, v, ok := strings.Cut(p, "="); ok {
			if k == "" {
				return n, fmt.Errorf("modifier %q has no name", p)
			}
			value, err := strconv.ParseUint(v, 0, 64)
			if err != nil {
				return n, fmt.Errorf("modifier %q: %w", p, err)
			}
			n.Modifiers = append(n.Modifiers, Modifier{Key: strings.ToLower(k), Value: value})
			continue
		}

		// Single letters are flags like :u or :k; anything longer is
		// the unit mask.
		if len(p) == 1 {
			n.Modifiers = append(n.Modifiers, Modifier{Key: strings.ToLower(p), Value: 1})
			continue
		}
		if n.UnitMask != "" {
			return n, fmt.Errorf("more than one unit mask (%q, %q)", n.UnitMask, p)
		}
		n.UnitMask = p
	}

	return n, nil
}

// key returns the case-folded lookup key of the event, with the unit mask
// joined by a dot so that EVENT:UMASK and event.umask are equivalent.
func (n Name) key() string {
	k := strings.ToLower(n.Event)
	if n.UnitMask != "" {
		k += "." + strings.ToLower(n.UnitMask)
	}
	return k
}

func (n Name) String() string {
	return n.Raw
}

// privilege modifiers select user/kernel/hypervisor counting. The counter
// group always counts user space only, so they are accepted and ignored.
func isPrivilegeModifier(key string) bool {
	switch key {
	case "u", "k", "h":
		return true
	}
	return false
}
