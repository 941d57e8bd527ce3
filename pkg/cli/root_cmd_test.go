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

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sykwer/periodic-pmu-prober/pkg/config"
)

func execute(t *testing.T, args ...string) (*config.Config, string, error) {
	var got *config.Config
	run := func(_ context.Context, cfg config.Config) error {
		got = &cfg
		return nil
	}

	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut, run)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return got, out.String(), err
}

func TestRootDefaults(t *testing.T) {
	cfg, _, err := execute(t)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 0, cfg.Pid)
	assert.Equal(t, 10*time.Second, cfg.Duration)
	assert.Equal(t, 10*time.Millisecond, cfg.Period)
	assert.Equal(t, []string{"l1d_pend_miss.pending", "mem_load_retired.l1_miss", "mem_load_retired.fb_hit"}, cfg.Events)
	assert.Equal(t, "pmu_samples.log", cfg.LogPath)
	assert.True(t, cfg.LockMemory)
	assert.Equal(t, -1, cfg.CPU)
}

func TestRootFlags(t *testing.T) {
	cfg, _, err := execute(t,
		"-p", "4242",
		"-t", "1.5",
		"--period", "5ms",
		"-e", "cycles,instructions",
		"-o", "/tmp/probe.log",
		"--lock-memory=false",
		"--buffered",
		"--cpu", "2",
		"--pmu-dir", "/nonexistent")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 4242, cfg.Pid)
	assert.Equal(t, 1500*time.Millisecond, cfg.Duration)
	assert.Equal(t, 5*time.Millisecond, cfg.Period)
	assert.Equal(t, []string{"cycles", "instructions"}, cfg.Events)
	assert.Equal(t, "/tmp/probe.log", cfg.LogPath)
	assert.False(t, cfg.LockMemory)
	assert.True(t, cfg.Buffered)
	assert.Equal(t, 2, cfg.CPU)
	assert.Equal(t, "/nonexistent", cfg.PMUDir)
	assert.Equal(t, 300, cfg.Periods())
}

func TestRootEnvironment(t *testing.T) {
	t.Setenv("PMUPROBER_EVENTS", "task-clock")
	t.Setenv("PMUPROBER_PERIOD", "1ms")

	cfg, _, err := execute(t, "-t", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-clock"}, cfg.Events)
	assert.Equal(t, 1000, cfg.Periods())
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	for _, args := range [][]string{
		{"-t", "0"},
		{"--period", "0s"},
		{"-p", "-3"},
		{"extra-argument"},
	} {
		cfg, _, err := execute(t, args...)
		assert.Error(t, err, strings.Join(args, " "))
		assert.Nil(t, cfg)
	}
}

func TestRootLogsToStderrByDefault(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut, func(context.Context, config.Config) error { return nil })

	f := cmd.PersistentFlags().Lookup("logtostderr")
	require.NotNil(t, f)
	assert.Equal(t, "true", f.DefValue)
	assert.Equal(t, "true", f.Value.String())
}

func TestVersionFlag(t *testing.T) {
	cfg, out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, out, "pmuprober version")
}

func TestListCommand(t *testing.T) {
	_, out, err := execute(t, "list", "--pmu-dir", "../events/testdata/devices", "uncore*")
	require.NoError(t, err)
	assert.Equal(t, "uncore_imc_0::cas_count_read\n", out)

	_, out, err = execute(t, "list", "--pmu-dir", "../events/testdata/devices", "MEM_LOAD_RETIRED.L1_*")
	require.NoError(t, err)
	assert.Equal(t, "skl::mem_load_retired.l1_hit\nskl::mem_load_retired.l1_miss\n", out)

	_, out, err = execute(t, "list", "--pmu-dir", "../events/testdata/devices")
	require.NoError(t, err)
	assert.Contains(t, out, "LLC-load-misses\n")
	assert.Contains(t, out, "cpu::mem-loads\n")
}

func TestListCommandForeignCPU(t *testing.T) {
	_, out, err := execute(t, "list", "--pmu-dir", "../events/testdata/amd", "*mem_load_retired*")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, out, err = execute(t, "list", "--pmu-dir", "../events/testdata/amd")
	require.NoError(t, err)
	assert.NotContains(t, out, "skl::")
	assert.Contains(t, out, "cycles\n")
}

func TestListCommandBadPattern(t *testing.T) {
	_, _, err := execute(t, "list", "[")
	assert.Error(t, err)
}
