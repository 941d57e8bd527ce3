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

package perf

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (bf *eventAttrBitfield) testBit(bit uint64) bool {
	return *bf&eventAttrBitfield(bit) == eventAttrBitfield(bit)
}

func TestEventAttrMarshal(t *testing.T) {
	ea := newCounterAttr(Descriptor{Type: PERF_TYPE_RAW, Config: 0x0148, Config1: 0x7})

	buf, err := ea.marshal()
	require.NoError(t, err)
	require.Len(t, buf, sizeofPerfEventAttrVer0)

	le := binary.LittleEndian
	assert.Equal(t, PERF_TYPE_RAW, le.Uint32(buf[0:]))
	assert.Equal(t, uint32(sizeofPerfEventAttrVer0), le.Uint32(buf[4:]))
	assert.Equal(t, uint64(0x0148), le.Uint64(buf[8:]))
	assert.Equal(t, groupReadFormat, le.Uint64(buf[32:]))

	bf := eventAttrBitfield(le.Uint64(buf[40:]))
	assert.True(t, bf.testBit(eaDisabled))
	assert.True(t, bf.testBit(eaExcludeKernel))
	assert.True(t, bf.testBit(eaExcludeHV))
	assert.False(t, bf.testBit(eaExcludeUser))
	assert.False(t, bf.testBit(eaInherit))

	assert.Equal(t, uint64(0x7), le.Uint64(buf[56:]))
}

func TestEventAttrMarshalConfig2(t *testing.T) {
	ea := EventAttr{Type: PERF_TYPE_RAW, Config2: 0xff}

	buf, err := ea.marshal()
	require.NoError(t, err)
	require.Len(t, buf, sizeofPerfEventAttrVer1)
	assert.Equal(t, uint64(0xff), binary.LittleEndian.Uint64(buf[64:]))
}

func TestEventAttrMarshalBreakpoint(t *testing.T) {
	ea := EventAttr{Type: PERF_TYPE_BREAKPOINT}
	_, err := ea.marshal()
	assert.Error(t, err)
}

func encodeGroupRead(enabled, running uint64, values ...CounterValue) []byte {
	buf := make([]byte, 8*(3+2*len(values)))
	binary.LittleEndian.PutUint64(buf[0:], uint64(len(values)))
	binary.LittleEndian.PutUint64(buf[8:], enabled)
	binary.LittleEndian.PutUint64(buf[16:], running)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[24+16*i:], v.Value)
		binary.LittleEndian.PutUint64(buf[32+16*i:], v.ID)
	}
	return buf
}

func TestDecodeGroupRead(t *testing.T) {
	data := encodeGroupRead(2000, 1500,
		CounterValue{ID: 11, Value: 5},
		CounterValue{ID: 12, Value: 7})

	gr, err := decodeGroupRead(data, groupReadFormat)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), gr.TimeEnabled)
	assert.Equal(t, uint64(1500), gr.TimeRunning)
	assert.Equal(t, []CounterValue{{ID: 11, Value: 5}, {ID: 12, Value: 7}}, gr.Values)
}

func TestDecodeGroupReadWithoutTimes(t *testing.T) {
	data := make([]byte, 8*3)
	binary.LittleEndian.PutUint64(data[0:], 1)
	binary.LittleEndian.PutUint64(data[8:], 42)
	binary.LittleEndian.PutUint64(data[16:], 9)

	gr, err := decodeGroupRead(data, PERF_FORMAT_GROUP|PERF_FORMAT_ID)
	require.NoError(t, err)
	assert.Equal(t, []CounterValue{{ID: 9, Value: 42}}, gr.Values)
}

func TestDecodeGroupReadErrors(t *testing.T) {
	good := encodeGroupRead(1, 1, CounterValue{ID: 1, Value: 1}, CounterValue{ID: 2, Value: 2})

	tests := []struct {
		name   string
		data   []byte
		format uint64
	}{
		{"empty", nil, groupReadFormat},
		{"short header", good[:12], groupReadFormat},
		{"truncated entries", good[:len(good)-8], groupReadFormat},
		{"not a group format", good, PERF_FORMAT_ID},
	}

	for _, tc := range tests {
		_, err := decodeGroupRead(tc.data, tc.format)
		assert.Error(t, err, tc.name)
	}

	// A count far larger than the buffer must not be trusted.
	huge := encodeGroupRead(0, 0, CounterValue{ID: 1, Value: 1})
	binary.LittleEndian.PutUint64(huge[0:], 1<<40)
	_, err := decodeGroupRead(huge, groupReadFormat)
	assert.Error(t, err)
}
