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

// Package events translates symbolic hardware event names into the perf
// descriptors needed to open counters for them.
package events

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/golang/glog"

	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
)

// ErrUnknownEvent is returned by an Encoder that does not know an event.
// The Resolver moves on to the next encoder when it sees it.
var ErrUnknownEvent = errors.New("unknown event")

// ResolutionError is returned when an event string cannot be turned into a
// descriptor on the running system.
type ResolutionError struct {
	Event string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve event %q: %v", e.Event, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Encoder is one source of event encodings.
type Encoder interface {
	// Encode returns the descriptor for n, or ErrUnknownEvent.
	Encode(n Name) (perf.Descriptor, error)

	// Names lists the event strings the encoder can resolve. An encoder
	// that cannot enumerate its events returns nil.
	Names() []string
}

// Resolver resolves event strings by asking a chain of encoders in order.
type Resolver struct {
	encoders []Encoder
}

// NewResolver creates a Resolver consulting encoders in the order given.
func NewResolver(encoders ...Encoder) *Resolver {
	return &Resolver{encoders: encoders}
}

// NewDefaultResolver loads the event database of the running system: libpfm
// when built in, the generic perf events, the PMUs described under pmuDir,
// and, on Skylake hosts only, the built-in core PMU table.
func NewDefaultResolver(pmuDir string) (*Resolver, error) {
	var encoders []Encoder

	pfm, err := newLibpfmEncoder()
	switch {
	case err == nil:
		glog.V(1).Info("Using libpfm4 event database")
		encoders = append(encoders, pfm)
	case errors.Is(err, errLibpfmUnavailable):
		glog.V(1).Info("libpfm4 support not built in")
	default:
		return nil, err
	}

	encoders = append(encoders, NewGenericEncoder())

	sysfs, err := LoadSysfs(pmuDir)
	switch {
	case err == nil:
		encoders = append(encoders, sysfs)
	case errors.Is(err, os.ErrNotExist):
		glog.V(1).Infof("No PMU database at %s", pmuDir)
	default:
		return nil, err
	}

	ok, coreName, err := builtinMatchesHost(pmuDir)
	switch {
	case err != nil:
		return nil, err
	case ok:
		encoders = append(encoders, NewBuiltinEncoder())
	case coreName != "":
		glog.V(1).Infof("Built-in event table not used on %s core PMU", coreName)
	default:
		glog.V(1).Info("Core PMU not identified; built-in event table not used")
	}

	return NewResolver(encoders...), nil
}

// Resolve returns the descriptor for event.
func (r *Resolver) Resolve(event string) (perf.Descriptor, error) {
	n, err := ParseName(event)
	if err != nil {
		return perf.Descriptor{}, &ResolutionError{Event: event, Err: err}
	}

	for _, e := range r.encoders {
		d, err := e.Encode(n)
		if err == nil {
			glog.V(1).Infof("Resolved event %s to %s", event, d)
			return d, nil
		}
		if !errors.Is(err, ErrUnknownEvent) {
			return perf.Descriptor{}, &ResolutionError{Event: event, Err: err}
		}
	}

	return perf.Descriptor{}, &ResolutionError{Event: event, Err: ErrUnknownEvent}
}

// ResolveAll resolves every event in order. It stops at the first event
// that cannot be resolved.
func (r *Resolver) ResolveAll(events []string) ([]perf.EventSpec, error) {
	specs := make([]perf.EventSpec, 0, len(events))
	for _, event := range events {
		d, err := r.Resolve(event)
		if err != nil {
			return nil, err
		}
		specs = append(specs, perf.EventSpec{Name: event, Descriptor: d})
	}
	return specs, nil
}

// Names returns the sorted, de-duplicated event strings known to every
// encoder.
func (r *Resolver) Names() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range r.encoders {
		for _, n := range e.Names() {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// StaticEncoder resolves events from a fixed map of lower-case event names
// to descriptors.
type StaticEncoder map[string]perf.Descriptor

// Encode implements Encoder.
func (s StaticEncoder) Encode(n Name) (perf.Descriptor, error) {
	if n.PMU != "" || len(n.Modifiers) > 0 {
		return perf.Descriptor{}, ErrUnknownEvent
	}
	d, ok := s[n.key()]
	if !ok {
		return perf.Descriptor{}, ErrUnknownEvent
	}
	return d, nil
}

// Names implements Encoder.
func (s StaticEncoder) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	return names
}

var errLibpfmUnavailable = errors.New("built without libpfm support")
