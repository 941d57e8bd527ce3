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

package perf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type readError struct{ error }

func readOrPanic(buf io.Reader, i interface{}) {
	if err := binary.Read(buf, binary.LittleEndian, i); err != nil {
		panic(readError{err})
	}
}

// Descriptor is the kernel-level encoding of a counter: the perf event type
// and its config words. It is produced by an event resolver and is opaque to
// everything but the counter group.
type Descriptor struct {
	Type    uint32
	Config  uint64
	Config1 uint64
	Config2 uint64
}

func (d Descriptor) String() string {
	s := fmt.Sprintf("type=%d config=%#x", d.Type, d.Config)
	if d.Config1 != 0 {
		s += fmt.Sprintf(" config1=%#x", d.Config1)
	}
	if d.Config2 != 0 {
		s += fmt.Sprintf(" config2=%#x", d.Config2)
	}
	return s
}

// EventSpec pairs a symbolic event name with its resolved descriptor.
type EventSpec struct {
	Name       string
	Descriptor Descriptor
}

/*
   struct perf_event_attr {
       __u32 type;
       __u32 size;
       __u64 config;
       union { __u64 sample_period; __u64 sample_freq; };
       __u64 sample_type;
       __u64 read_format;
       __u64 disabled : 1, inherit : 1, pinned : 1, exclusive : 1,
             exclude_user : 1, exclude_kernel : 1, exclude_hv : 1,
             exclude_idle : 1, mmap : 1, comm : 1, freq : 1,
             inherit_stat : 1, enable_on_exec : 1, ...;
       union { __u32 wakeup_events; __u32 wakeup_watermark; };
       __u32 bp_type;
       union { __u64 bp_addr; __u64 config1; };
       union { __u64 bp_len; __u64 config2; };      // PERF_ATTR_SIZE_VER1
       ...
   };
*/

// EventAttr is a translation of the leading part of the Linux kernel's
// struct perf_event_attr into Go. Only the fields a counting (non-sampling)
// event needs are represented.
type EventAttr struct {
	Type          uint32
	Size          uint32
	Config        uint64
	SamplePeriod  uint64
	SampleType    uint64
	ReadFormat    uint64
	Disabled      bool
	Inherit       bool
	Pinned        bool
	Exclusive     bool
	ExcludeUser   bool
	ExcludeKernel bool
	ExcludeHV     bool
	ExcludeIdle   bool
	InheritStat   bool
	EnableOnExec  bool
	WakeupEvents  uint32
	BPType        uint32
	Config1       uint64
	Config2       uint64
}

type eventAttrBitfield uint64

func (bf *eventAttrBitfield) setBit(b bool, bit uint64) {
	if b {
		*bf |= eventAttrBitfield(bit)
	}
}

// write serializes the EventAttr as a perf_event_attr struct compatible
// with the kernel.
func (ea *EventAttr) write(buf io.Writer) error {
	// Automatically figure out ea.Size; ignore whatever is passed in.
	if ea.Config2 != 0 {
		ea.Size = sizeofPerfEventAttrVer1
	} else {
		ea.Size = sizeofPerfEventAttrVer0
	}

	if ea.Type == PERF_TYPE_BREAKPOINT {
		return errors.New("Encoding error: breakpoint events cannot be counted in a group")
	}

	var bitfield eventAttrBitfield
	bitfield.setBit(ea.Disabled, eaDisabled)
	bitfield.setBit(ea.Inherit, eaInherit)
	bitfield.setBit(ea.Pinned, eaPinned)
	bitfield.setBit(ea.Exclusive, eaExclusive)
	bitfield.setBit(ea.ExcludeUser, eaExcludeUser)
	bitfield.setBit(ea.ExcludeKernel, eaExcludeKernel)
	bitfield.setBit(ea.ExcludeHV, eaExcludeHV)
	bitfield.setBit(ea.ExcludeIdle, eaExcludeIdle)
	bitfield.setBit(ea.InheritStat, eaInheritStat)
	bitfield.setBit(ea.EnableOnExec, eaEnableOnExec)

	fields := []interface{}{
		ea.Type,
		ea.Size,
		ea.Config,
		ea.SamplePeriod,
		ea.SampleType,
		ea.ReadFormat,
		uint64(bitfield),
		ea.WakeupEvents,
		ea.BPType,
		ea.Config1,
	}
	if ea.Size >= sizeofPerfEventAttrVer1 {
		fields = append(fields, ea.Config2)
	}

	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return err
		}
	}

	return nil
}

// marshal returns the kernel representation of the EventAttr.
func (ea *EventAttr) marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := ea.write(&buf); err != nil {
		return nil, err
	}
	if buf.Len() != int(ea.Size) {
		return nil, fmt.Errorf("Encoding error: wrote %d bytes for a %d byte perf_event_attr",
			buf.Len(), ea.Size)
	}
	return buf.Bytes(), nil
}

// CounterValue resepresents the read value of a counter event
type CounterValue struct {
	// Globally unique identifier for this counter event. Only
	// present if PERF_FORMAT_ID was specified.
	ID uint64

	// The counter result
	Value uint64
}

/*
   struct read_format {       // with PERF_FORMAT_GROUP
       u64 nr;
       u64 time_enabled;      // if PERF_FORMAT_TOTAL_TIME_ENABLED
       u64 time_running;      // if PERF_FORMAT_TOTAL_TIME_RUNNING
       struct {
           u64 value;
           u64 id;            // if PERF_FORMAT_ID
       } values[nr];
   };
*/

// GroupRead represents the read values of a group of counter events
type GroupRead struct {
	TimeEnabled uint64
	TimeRunning uint64
	Values      []CounterValue
}

func (gr *GroupRead) read(reader *bytes.Reader, format uint64) {
	if (format & PERF_FORMAT_GROUP) == 0 {
		panic(readError{errors.New("read format does not include PERF_FORMAT_GROUP")})
	}

	var nr uint64
	readOrPanic(reader, &nr)

	if (format & PERF_FORMAT_TOTAL_TIME_ENABLED) != 0 {
		readOrPanic(reader, &gr.TimeEnabled)
	}

	if (format & PERF_FORMAT_TOTAL_TIME_RUNNING) != 0 {
		readOrPanic(reader, &gr.TimeRunning)
	}

	entrySize := uint64(8)
	if (format & PERF_FORMAT_ID) != 0 {
		entrySize += 8
	}
	if nr > uint64(reader.Len())/entrySize {
		panic(readError{fmt.Errorf("group read claims %d entries but only %d bytes follow",
			nr, reader.Len())})
	}

	gr.Values = make([]CounterValue, 0, nr)
	for i := uint64(0); i < nr; i++ {
		value := CounterValue{}

		readOrPanic(reader, &value.Value)

		if (format & PERF_FORMAT_ID) != 0 {
			readOrPanic(reader, &value.ID)
		}

		gr.Values = append(gr.Values, value)
	}
}

// decodeGroupRead decodes the buffer returned by read(2) on a group leader
// that was opened with the given read format.
func decodeGroupRead(data []byte, format uint64) (gr GroupRead, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(readError); ok {
				err = e.error
			} else {
				panic(r)
			}
		}
	}()

	gr.read(bytes.NewReader(data), format)
	return
}
