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

// Package version defines globals containing version metadata set at build-time
package version

import (
	"fmt"
	"runtime"

	"github.com/golang/glog"
)

var (
	// Version is a SemVer 2.0 formatted version string
	Version = "0.0.0-dev"

	// Build is an opaque string identifying the automated build job
	Build string
)

// String returns the version followed by the build identifier, if any.
func String() string {
	if Build != "" {
		return fmt.Sprintf("%s [%s]", Version, Build)
	}
	return Version
}

// InitialBuildLog uses glog.Info to log version information
// On startup every component announces its name, version and build information
func InitialBuildLog(componentName string) {
	glog.Infof("Starting %s (%s) %s/%s %s", componentName, String(),
		runtime.GOOS, runtime.GOARCH, runtime.Version())
}
