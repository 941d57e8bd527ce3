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

// Package config holds the prober's startup configuration, read from
// PMUPROBER_* environment variables and overridden by command-line flags.
package config

import (
	"time"

	"github.com/golang/glog"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PMUPROBER"

// Config is the configuration of one probe run.
type Config struct {
	// Pid is the thread to count. 0 is the prober itself.
	Pid int `envconfig:"PID" default:"0"`

	// Duration is the total sampling time.
	Duration time.Duration `envconfig:"DURATION" default:"10s"`

	// Period is the length of one window.
	Period time.Duration `envconfig:"PERIOD" default:"10ms"`

	// Events are counted in this order; the first is the group leader.
	Events []string `envconfig:"EVENTS" default:"l1d_pend_miss.pending,mem_load_retired.l1_miss,mem_load_retired.fb_hit"`

	LogPath    string `envconfig:"LOG_PATH" default:"pmu_samples.log"`
	LockMemory bool   `envconfig:"LOCK_MEMORY" default:"true"`
	Buffered   bool   `envconfig:"BUFFERED" default:"false"`

	// CPU restricts counting to one CPU; -1 counts on any CPU.
	CPU int `envconfig:"CPU" default:"-1"`

	PMUDir string `envconfig:"PMU_DIR" default:"/sys/bus/event_source/devices"`
	ProcFS string `envconfig:"PROCFS" default:"/proc"`
}

// Load reads the configuration from the environment, applying defaults
// for unset variables.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return Config{}, err
	}
	glog.V(1).Infof("Loaded configuration: %+v", c)
	return c, nil
}

// Periods returns the number of windows a run records.
func (c Config) Periods() int {
	if c.Period <= 0 || c.Duration <= 0 {
		return 0
	}
	return int(c.Duration / c.Period)
}
