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

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	n, err := ParseName("CPU::MEM_LOAD_RETIRED:L1_MISS:c=0x2:u")
	require.NoError(t, err)

	assert.Equal(t, "CPU::MEM_LOAD_RETIRED:L1_MISS:c=0x2:u", n.Raw)
	assert.Equal(t, "cpu", n.PMU)
	assert.Equal(t, "MEM_LOAD_RETIRED", n.Event)
	assert.Equal(t, "L1_MISS", n.UnitMask)
	assert.Equal(t, []Modifier{{Key: "c", Value: 2}, {Key: "u", Value: 1}}, n.Modifiers)
	assert.Equal(t, "mem_load_retired.l1_miss", n.key())
}

func TestParseNamePlain(t *testing.T) {
	n, err := ParseName("l1d_pend_miss.pending")
	require.NoError(t, err)

	assert.Empty(t, n.PMU)
	assert.Equal(t, "l1d_pend_miss.pending", n.Event)
	assert.Empty(t, n.UnitMask)
	assert.Empty(t, n.Modifiers)
	assert.Equal(t, "l1d_pend_miss.pending", n.key())
}

func TestParseNameErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"::cycles",
		"cpu::",
		"cycles:",
		"event:one:two",
		"cycles:c=zz",
		"cycles:=1",
	} {
		_, err := ParseName(s)
		assert.Error(t, err, "%q", s)
	}
}
