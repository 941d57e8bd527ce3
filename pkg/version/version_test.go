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

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldVersion, oldBuild := Version, Build
	defer func() { Version, Build = oldVersion, oldBuild }()

	Version, Build = "1.2.3", ""
	assert.Equal(t, "1.2.3", String())

	Build = "ci-42"
	assert.Equal(t, "1.2.3 [ci-42]", String())

	InitialBuildLog("pmuprober")
}
