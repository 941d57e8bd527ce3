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

// Package target inspects the process whose counters are sampled. The
// information is only used for diagnostics; sampling never depends on it.
package target

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/prometheus/procfs"
)

// Process describes a target process.
type Process struct {
	PID     int
	Comm    string
	State   string
	Threads int
	CmdLine []string
}

func (p Process) String() string {
	s := fmt.Sprintf("pid %d (%s)", p.PID, p.Comm)
	if len(p.CmdLine) > 0 {
		s += " " + strings.Join(p.CmdLine, " ")
	}
	return s
}

// Describe reads the description of pid from the proc filesystem mounted at
// procRoot.
func Describe(procRoot string, pid int) (Process, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return Process{}, err
	}

	p, err := fs.Proc(pid)
	if err != nil {
		return Process{}, fmt.Errorf("process %d: %w", pid, err)
	}

	comm, err := p.Comm()
	if err != nil {
		return Process{}, fmt.Errorf("process %d comm: %w", pid, err)
	}

	stat, err := p.Stat()
	if err != nil {
		return Process{}, fmt.Errorf("process %d stat: %w", pid, err)
	}

	// A process can exit between reads; the command line is optional.
	cmdline, err := p.CmdLine()
	if err != nil {
		glog.V(2).Infof("No command line for process %d: %v", pid, err)
	}

	return Process{
		PID:     pid,
		Comm:    comm,
		State:   stat.State,
		Threads: stat.NumThreads,
		CmdLine: cmdline,
	}, nil
}

// Log writes the startup description of p, warning when counters on the
// named thread will miss the work of its siblings.
func Log(p Process) {
	glog.Infof("Target %s, state %s, %d threads", p, p.State, p.Threads)
	if p.Threads > 1 {
		glog.Warningf("Target pid %d has %d threads; only thread %d is counted",
			p.PID, p.Threads, p.PID)
	}
}
