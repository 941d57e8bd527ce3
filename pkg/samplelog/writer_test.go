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

package samplelog

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sykwer/periodic-pmu-prober/pkg/sampler"
)

func TestAppendFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	names := []string{"a", "b"}
	require.NoError(t, w.Append(&sampler.Window{Start: 100, End: 10100, Values: []uint64{5, 7}, Names: names}))
	require.NoError(t, w.Append(&sampler.Window{Start: 10100, End: 20100, Values: []uint64{3, 2}, Names: names}))
	require.NoError(t, w.Append(&sampler.Window{Start: 1, End: 2, Values: []uint64{18446744073709551615, 0}, Names: names}))

	assert.Equal(t, "5 7 100 10100\n3 2 10100 20100\n18446744073709551615 0 1 2\n", buf.String())
	assert.Equal(t, 3, w.Lines())
	assert.NoError(t, w.Close())
}

type countingWriter struct {
	writes [][]byte
	short  bool
	err    error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	if c.short {
		return len(p) - 1, nil
	}
	return len(p), nil
}

func TestAppendSingleWritePerLine(t *testing.T) {
	cw := &countingWriter{}
	w := NewWriter(cw)

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Append(&sampler.Window{Start: 1, End: 2, Values: []uint64{1, 2, 3}}))
	}
	require.Len(t, cw.writes, 3)
	for _, p := range cw.writes {
		assert.Equal(t, "1 2 3 1 2\n", string(p))
	}
}

func TestAppendErrors(t *testing.T) {
	w := NewWriter(&countingWriter{short: true})
	err := w.Append(&sampler.Window{Values: []uint64{1}})
	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.True(t, errors.Is(err, io.ErrShortWrite))

	boom := errors.New("boom")
	w = NewWriter(&countingWriter{err: boom})
	err = w.Append(&sampler.Window{Values: []uint64{1}})
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 0, w.Lines())
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.log")
	require.NoError(t, os.WriteFile(path, []byte("1 2 3\n"), 0644))

	w, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())
	require.NoError(t, w.Append(&sampler.Window{Start: 10, End: 20, Values: []uint64{4}}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3\n4 10 20\n", string(b))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm()&0644)
}

func TestOpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "samples.log")
	_, err := Open(path)

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, path, werr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
