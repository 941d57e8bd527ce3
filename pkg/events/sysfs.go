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
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// DefaultPMUDir is where the kernel describes its PMUs.
const DefaultPMUDir = "/sys/bus/event_source/devices"

// Files in a PMU's events directory that annotate an event rather than
// define one.
var eventAnnotationSuffixes = []string{".scale", ".unit", ".per-pkg", ".snapshot"}

// LoadSysfs reads every PMU described under dir. A PMU whose description
// cannot be read is skipped with a warning.
func LoadSysfs(dir string) (*PMUEncoder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	e := &PMUEncoder{}
	for _, entry := range entries {
		p, err := loadPMU(filepath.Join(dir, entry.Name()))
		if err != nil {
			glog.Warningf("Skipping PMU %s: %v", entry.Name(), err)
			continue
		}
		e.pmus = append(e.pmus, p)
	}
	sortPMUs(e.pmus)

	glog.V(1).Infof("Loaded %d PMUs from %s", len(e.pmus), dir)
	return e, nil
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func loadPMU(dir string) (*pmu, error) {
	p := &pmu{
		name:    strings.ToLower(filepath.Base(dir)),
		formats: make(map[string]formatField),
		events:  make(map[string]string),
	}

	s, err := readTrimmed(filepath.Join(dir, "type"))
	if err != nil {
		return nil, err
	}
	typ, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad type %q: %w", s, err)
	}
	p.typ = uint32(typ)

	formats, err := os.ReadDir(filepath.Join(dir, "format"))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, f := range formats {
		s, err := readTrimmed(filepath.Join(dir, "format", f.Name()))
		if err != nil {
			return nil, err
		}
		field, err := parseFormat(s)
		if err != nil {
			glog.V(1).Infof("PMU %s: ignoring format %s: %v", p.name, f.Name(), err)
			continue
		}
		p.formats[f.Name()] = field
	}

	events, err := os.ReadDir(filepath.Join(dir, "events"))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
events:
	for _, ev := range events {
		for _, suffix := range eventAnnotationSuffixes {
			if strings.HasSuffix(ev.Name(), suffix) {
				continue events
			}
		}
		s, err := readTrimmed(filepath.Join(dir, "events", ev.Name()))
		if err != nil {
			return nil, err
		}
		p.events[strings.ToLower(ev.Name())] = s
	}

	return p, nil
}
