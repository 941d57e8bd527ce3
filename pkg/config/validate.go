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

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that c describes a run that can be attempted.
func (c Config) Validate() error {
	if c.Pid < 0 {
		return fmt.Errorf("invalid pid %d", c.Pid)
	}
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %s", c.Period)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if len(c.Events) == 0 {
		return errors.New("no events configured")
	}
	for i, e := range c.Events {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("event %d is empty", i)
		}
	}
	if c.CPU < -1 {
		return fmt.Errorf("invalid cpu %d", c.CPU)
	}
	if c.LogPath == "" {
		return errors.New("no log path configured")
	}
	return nil
}
