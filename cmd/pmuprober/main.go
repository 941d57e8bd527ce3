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

package main

import (
	"os"

	"github.com/golang/glog"

	"github.com/sykwer/periodic-pmu-prober/pkg/cli"
)

func main() {
	rootCommand := cli.NewRootCommand(os.Stdout, os.Stderr)
	err := rootCommand.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
