// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte("%20 = OpIAdd %5 %10 %14\n"), 100)
	for _, name := range []string{"seq.json", "seq.json.xz"} {
		file := filepath.Join(dir, name)
		require.NoError(t, WriteFile(file, data))
		res, err := ReadFile(file)
		require.NoError(t, err)
		assert.Equal(t, data, res)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "seq.json.xz"))
	require.NoError(t, err)
	assert.Less(t, len(raw), len(data))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.xz"), data, 0644))
	_, err = ReadFile(filepath.Join(dir, "bad.xz"))
	assert.Error(t, err)
	_, err = ReadFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	text := []byte("a\nb\nc\nd\ne\nf\ng\n")
	assert.Equal(t, "...\n", Diff(text, text, 1))
	diff := Diff(text, []byte("a\nb\nc\nx\ne\nf\ng\n"), 1)
	assert.Contains(t, diff, "-d\n")
	assert.Contains(t, diff, "+x\n")
	assert.NotContains(t, diff, " a\n")
	assert.NotContains(t, diff, " g\n")
	assert.Contains(t, diff, " c\n")
	assert.Contains(t, diff, " e\n")
}
