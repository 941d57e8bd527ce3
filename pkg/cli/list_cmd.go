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
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/sykwer/periodic-pmu-prober/pkg/events"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list [glob]",
		Short: "List the events this host can resolve",
		Long: `List the event names known to the generic, sysfs and built-in event
databases. An optional glob (for example 'mem_load_retired.*') filters the
list; it is matched with and without the pmu:: prefix, ignoring case.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var g glob.Glob
			if len(args) == 1 {
				var err error
				if g, err = glob.Compile(strings.ToLower(args[0])); err != nil {
					return fmt.Errorf("invalid pattern %q: %w", args[0], err)
				}
			}

			r, err := events.NewDefaultResolver(opts.cfg.PMUDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range r.Names() {
				if g != nil && !matches(g, name) {
					continue
				}
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func matches(g glob.Glob, name string) bool {
	name = strings.ToLower(name)
	if g.Match(name) {
		return true
	}
	if i := strings.Index(name, "::"); i >= 0 {
		return g.Match(name[i+2:])
	}
	return false
}
