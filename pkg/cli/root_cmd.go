// Copyright 2017 Capsule8, Inc.
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

// Package cli implements the pmuprober command line.
package cli

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sykwer/periodic-pmu-prober/pkg/config"
	"github.com/sykwer/periodic-pmu-prober/pkg/engine"
	"github.com/sykwer/periodic-pmu-prober/pkg/version"
)

const componentName = "pmuprober"

type runFunc func(ctx context.Context, cfg config.Config) error

type options struct {
	cfg     config.Config
	loadErr error
	seconds float64
}

// NewRootCommand creates the root command of the prober and returns it to be executed
func NewRootCommand(out, errorOut io.Writer) *cobra.Command {
	return newRootCommand(out, errorOut, runProbe)
}

func newRootCommand(out, errorOut io.Writer, run runFunc) *cobra.Command {
	opts := &options{}
	opts.cfg, opts.loadErr = config.Load()

	rootCommand := &cobra.Command{
		Use:   componentName,
		Short: "Sample grouped hardware performance counters at a fixed period",
		Long: `pmuprober counts a group of hardware events on one thread and appends
one line per period to a log: the counter deltas in event order followed by
the window's start and end time in microseconds.`,
		Version:      version.String(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.loadErr != nil {
				return opts.loadErr
			}
			if cmd.Flags().Changed("time") {
				opts.cfg.Duration = time.Duration(opts.seconds * float64(time.Second))
			}
			if err := opts.cfg.Validate(); err != nil {
				return err
			}

			version.InitialBuildLog(componentName)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, opts.cfg)
		},
	}
	rootCommand.SetOut(out)
	rootCommand.SetErr(errorOut)

	addRunFlags(rootCommand.Flags(), opts)

	rootCommand.PersistentFlags().StringVar(&opts.cfg.PMUDir, "pmu-dir", opts.cfg.PMUDir, "sysfs PMU database")

	// glog registers its flags on the standard flag set.
	if f := flag.CommandLine.Lookup("logtostderr"); f != nil {
		f.DefValue = "true"
		if err := f.Value.Set("true"); err != nil {
			glog.V(1).Infof("Unable to log to stderr by default: %v", err)
		}
	}
	rootCommand.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCommand.AddCommand(newListCommand(opts))

	return rootCommand
}

// addRunFlags binds the probe flags to opts. Defaults come from the
// environment-derived configuration so that flags override PMUPROBER_*.
func addRunFlags(flags *pflag.FlagSet, opts *options) {
	flags.IntVarP(&opts.cfg.Pid, "pid", "p", opts.cfg.Pid, "thread to count (0 counts the prober itself)")
	flags.Float64VarP(&opts.seconds, "time", "t", opts.cfg.Duration.Seconds(), "sampling duration in seconds")
	flags.DurationVar(&opts.cfg.Period, "period", opts.cfg.Period, "length of one sampling window")
	flags.StringSliceVarP(&opts.cfg.Events, "events", "e", opts.cfg.Events, "events to count, group leader first")
	flags.StringVarP(&opts.cfg.LogPath, "output", "o", opts.cfg.LogPath, "sample log to append to")
	flags.BoolVar(&opts.cfg.LockMemory, "lock-memory", opts.cfg.LockMemory, "pin process memory while sampling")
	flags.BoolVar(&opts.cfg.Buffered, "buffered", opts.cfg.Buffered, "hold samples in memory until the run ends")
	flags.IntVar(&opts.cfg.CPU, "cpu", opts.cfg.CPU, "CPU to count on (-1 for any)")
}

func runProbe(ctx context.Context, cfg config.Config) error {
	e, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer glog.Flush()

	return e.Run(ctx)
}
