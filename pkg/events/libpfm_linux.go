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

//go:build linux && cgo && libpfm
// +build linux,cgo,libpfm

package events

// #cgo LDFLAGS: -lpfm
// #include <perfmon/pfmlib.h>
// #include <perfmon/pfmlib_perf_event.h>
// #include <stdlib.h>
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/sykwer/periodic-pmu-prober/pkg/sys/perf"
)

// libpfm keeps process-wide tables; pfm_initialize must run exactly once.
var (
	libpfmOnce sync.Once
	libpfmErr  error
)

func initializeLibpfm() error {
	libpfmOnce.Do(func() {
		if rc := C.pfm_initialize(); rc != C.PFM_SUCCESS {
			libpfmErr = fmt.Errorf("unable to initialize libpfm: %s", C.GoString(C.pfm_strerror(rc)))
		}
	})
	return libpfmErr
}

type libpfmEncoder struct{}

func newLibpfmEncoder() (Encoder, error) {
	if err := initializeLibpfm(); err != nil {
		return nil, err
	}
	return libpfmEncoder{}, nil
}

// Encode implements Encoder. libpfm parses the full event string itself,
// including its unit masks and modifiers.
func (libpfmEncoder) Encode(n Name) (perf.Descriptor, error) {
	cname := C.CString(n.Raw)
	defer C.free(unsafe.Pointer(cname))

	attr := (*C.struct_perf_event_attr)(C.calloc(1, C.size_t(C.sizeof_struct_perf_event_attr)))
	defer C.free(unsafe.Pointer(attr))

	arg := (*C.pfm_perf_encode_arg_t)(C.calloc(1, C.size_t(C.sizeof_pfm_perf_encode_arg_t)))
	defer C.free(unsafe.Pointer(arg))
	arg.attr = attr
	arg.size = C.size_t(C.sizeof_pfm_perf_encode_arg_t)

	rc := C.pfm_get_os_event_encoding(cname, C.PFM_PLM3, C.PFM_OS_PERF_EVENT_EXT, unsafe.Pointer(arg))
	switch rc {
	case C.PFM_SUCCESS:
	case C.PFM_ERR_NOTFOUND:
		return perf.Descriptor{}, ErrUnknownEvent
	default:
		return perf.Descriptor{}, fmt.Errorf("libpfm: %s", C.GoString(C.pfm_strerror(rc)))
	}

	// config1 and config2 sit in anonymous unions cgo cannot name; the
	// core events libpfm encodes only use config.
	return perf.Descriptor{
		Type:   uint32(attr._type),
		Config: uint64(attr.config),
	}, nil
}

// Names implements Encoder. libpfm's tables are not enumerated.
func (libpfmEncoder) Names() []string {
	return nil
}
