// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func init() {
	EnableLogCaching(4, 20)
}

func TestCaching(t *testing.T) {
	tests := []struct{ str, want string }{
		{"", ""},
		{"a", "a\n"},
		{"bb", "a\nbb\n"},
		{"ccc", "a\nbb\nccc\n"},
		{"dddd", "a\nbb\nccc\ndddd\n"},
		{"eeeee", "bb\nccc\ndddd\neeeee\n"},
		{"ffffff", "ccc\ndddd\neeeee\nffffff\n"},
		{"ggggggg", "eeeee\nffffff\nggggggg\n"},
		{"hhhhhhhh", "ggggggg\nhhhhhhhh\n"},
		{"jjjjjjjjjjjjjjjjjjjjjjjjj", "jjjjjjjjjjjjjjjjjjjjjjjjj\n"},
	}
	prependTime = false
	for _, test := range tests {
		Logf(1, "%s", test.str)
		assert.Equal(t, test.want, CachedLogOutput(), "wrote: %v", test.str)
	}
	// Verbose messages are not cached.
	Logf(2, "%s", "zz")
	assert.Equal(t, "jjjjjjjjjjjjjjjjjjjjjjjjj\n", CachedLogOutput())
	Logf(0, "pass %v", "k")
	assert.Equal(t, "bad module\n\nrecent log:\npass k\n", CrashReport("bad %v", "module"))
}

func TestVerbosity(t *testing.T) {
	SetVerbosity(1)
	defer SetVerbosity(0)
	assert.True(t, V(0))
	assert.True(t, V(1))
	assert.False(t, V(2))
}
