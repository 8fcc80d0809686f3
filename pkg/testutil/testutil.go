// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

func IterCount() int {
	iters := 1000
	if testing.Short() {
		iters /= 10
	}
	return iters
}

// RandSource returns a random source for randomized tests.
// The seed is taken from SFZ_SEED if set, and is fixed to 0 in CI.
func RandSource(t *testing.T) rand.Source {
	return rand.NewSource(RandSeed(t))
}

func RandSeed(t *testing.T) int64 {
	seed := time.Now().UnixNano()
	if fixed := os.Getenv("SFZ_SEED"); fixed != "" {
		seed, _ = strconv.ParseInt(fixed, 0, 64)
	}
	if os.Getenv("CI") != "" {
		seed = 0
	}
	t.Logf("seed=%v", seed)
	return seed
}

// Writer is an io.Writer that forwards everything to the test log.
type Writer struct {
	testing.TB
}

func (w *Writer) Write(data []byte) (int, error) {
	w.TB.Logf("%s", data)
	return len(data), nil
}
