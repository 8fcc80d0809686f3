// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"math/rand"
)

// RandomSource is the only source of randomness of a fuzzing run.
// Identical seeds produce identical outputs for identical call sequences.
type RandomSource interface {
	RandomBool() bool
	// RandomUint32 returns a value in [0, bound), bound must be positive.
	RandomUint32(bound uint32) uint32
	// RandomDouble returns a value in [0, 1).
	RandomDouble() float64
	// RandomPercentage returns a value in [0, 100].
	RandomPercentage() uint32
}

type Random struct {
	rnd *rand.Rand
}

func NewRandomSource(seed int64) *Random {
	return NewRandomSourceFrom(rand.NewSource(seed))
}

func NewRandomSourceFrom(src rand.Source) *Random {
	return &Random{rnd: rand.New(src)}
}

func (r *Random) RandomBool() bool {
	return r.rnd.Intn(2) == 0
}

func (r *Random) RandomUint32(bound uint32) uint32 {
	if bound == 0 {
		panic("random bound is zero")
	}
	return uint32(r.rnd.Int63n(int64(bound)))
}

func (r *Random) RandomDouble() float64 {
	return r.rnd.Float64()
}

func (r *Random) RandomPercentage() uint32 {
	return r.RandomUint32(101)
}
