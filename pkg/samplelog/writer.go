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

// Package samplelog writes sampling windows to an append-only text log,
// one line per window: the counter values in configuration order followed
// by the window's start and end in microseconds.
package samplelog

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang/glog"

	"github.com/sykwer/periodic-pmu-prober/pkg/sampler"
)

// WriteError is returned when a window cannot be written to the log.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write sample log %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer appends windows to a log.
type Writer struct {
	path   string
	w      io.Writer
	closer io.Closer
	buf    []byte
	lines  int
}

// Open opens path for appending, creating it if needed.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	glog.V(1).Infof("Appending samples to %s", path)

	return &Writer{
		path:   path,
		w:      f,
		closer: f,
	}, nil
}

// NewWriter returns a Writer writing to w. Close does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		path: "<writer>",
		w:    w,
	}
}

// Path returns the log's path.
func (lw *Writer) Path() string {
	return lw.path
}

// Lines returns the number of lines written.
func (lw *Writer) Lines() int {
	return lw.lines
}

// formatLine appends the log line for w to buf.
func formatLine(buf []byte, w *sampler.Window) []byte {
	for _, v := range w.Values {
		buf = strconv.AppendUint(buf, v, 10)
		buf = append(buf, ' ')
	}
	buf = strconv.AppendUint(buf, w.Start, 10)
	buf = append(buf, ' ')
	buf = strconv.AppendUint(buf, w.End, 10)
	return append(buf, '\n')
}

// Append writes one line for w with a single Write call.
func (lw *Writer) Append(w *sampler.Window) error {
	lw.buf = formatLine(lw.buf[:0], w)

	n, err := lw.w.Write(lw.buf)
	if err == nil && n != len(lw.buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &WriteError{Path: lw.path, Err: err}
	}

	lw.lines++
	return nil
}

// Close closes the underlying file if the Writer opened it.
func (lw *Writer) Close() error {
	if lw.closer == nil {
		return nil
	}
	err := lw.closer.Close()
	lw.closer = nil
	if err != nil {
		return &WriteError{Path: lw.path, Err: err}
	}
	return nil
}
