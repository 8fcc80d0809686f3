// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	t.Parallel()
	sig := Hash([]byte("ab"), []byte("c"))
	assert.Equal(t, Hash([]byte("abc")), sig)
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", sig.String())
	assert.Equal(t, sig.String(), String([]byte("abc")))
	assert.NotEqual(t, Hash([]byte("abd")), sig)

}
