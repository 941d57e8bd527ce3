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

//go:build linux
// +build linux

package perf

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

func ioctl(fd int, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func id(fd int) (uint64, error) {
	var streamID uint64
	err := ioctl(fd, PERF_EVENT_IOC_ID, uintptr(unsafe.Pointer(&streamID)))
	return streamID, err
}

func open(attr *EventAttr, pid int, cpu int, groupFd int, flags uintptr) (int, error) {
	buf, err := attr.marshal()
	if err != nil {
		return -1, err
	}

	r1, _, errno := unix.Syscall6(unix.SYS_PERF_EVENT_OPEN,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(pid), uintptr(cpu),
		uintptr(groupFd), flags, 0)
	runtime.KeepAlive(buf)
	if errno != 0 {
		return -1, errno
	}

	return int(r1), nil
}

func read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func closeFd(fd int) error {
	return unix.Close(fd)
}
