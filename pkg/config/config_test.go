// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Aaa int    `json:"aaa"`
	Bbb string `json:"bbb"`
}

type testConfig struct {
	Foo int               `json:"foo"`
	Bar string            `json:"bar"`
	Qux []string          `json:"qux"`
	Box nested            `json:"box"`
	Map map[string]uint32 `json:"map"`
}

func TestLoadData(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input  string
		output testConfig
		err    string
	}{
		{
			input:  `{"foo": 42}`,
			output: testConfig{Foo: 42},
		},
		{
			input: `
# comment
{
	"foo": 1,
	# another comment
	"box": {"aaa": 12, "bbb": "bbb"}
}`,
			output: testConfig{Foo: 1, Box: nested{Aaa: 12, Bbb: "bbb"}},
		},
		{
			input:  `{"qux": ["aaa", "bbb"], "map": {"x": 3}}`,
			output: testConfig{Qux: []string{"aaa", "bbb"}, Map: map[string]uint32{"x": 3}},
		},
		{
			input: `{"foobar": 42}`,
			err:   `unknown field "foobar"`,
		},
		{
			input: `{"foo": "str"}`,
			err:   "failed to parse config file",
		},
	}
	for i, test := range tests {
		var cfg testConfig
		err := LoadData([]byte(test.input), &cfg)
		if test.err != "" {
			assert.ErrorContains(t, err, test.err, "test #%v", i)
			continue
		}
		require.NoError(t, err, "test #%v", i)
		assert.Equal(t, test.output, cfg, "test #%v", i)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	var cfg testConfig
	require.NoError(t, LoadYAML([]byte(`
foo: 7
qux: [a]
box:
  aaa: 1
`), &cfg))
	assert.Equal(t, testConfig{Foo: 7, Qux: []string{"a"}, Box: nested{Aaa: 1}}, cfg)
	assert.ErrorContains(t, LoadYAML([]byte("unknown: 1\n"), &cfg), `unknown field "unknown"`)
}

func TestSaveLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := testConfig{Foo: 3, Bar: "bar", Map: map[string]uint32{"y": 5}}
	for _, name := range []string{"cfg.json", "cfg.yaml"} {
		file := filepath.Join(dir, name)
		require.NoError(t, SaveFile(file, cfg))
		var cfg1 testConfig
		require.NoError(t, LoadFile(file, &cfg1))
		assert.Equal(t, cfg, cfg1, name)
	}
	assert.Error(t, LoadFile("", &cfg))
	assert.Error(t, LoadFile(filepath.Join(dir, "missing.json"), &cfg))
}
