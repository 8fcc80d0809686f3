// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"fmt"
	"math"

	"github.com/google/shaderfuzz/ir"
)

// Chance identifies a probability that is fixed for the lifetime of a Context.
type Chance int

const (
	ChanceConstructingComposite Chance = iota
	ChanceAddingCompositeExtract
	ChanceGoingDeeperToExtractComposite
	ChancePushingIdThroughVariable
	ChanceOutliningFunction
	ChanceSplittingBlock
	ChanceMergingBlocks
	ChanceChoosingPrivateStorage
	numChances
)

// Percentages are drawn from these ranges in this order.
var chanceRanges = [numChances]struct {
	name     string
	min, max uint32
}{
	ChanceConstructingComposite:         {"constructing_composite", 20, 50},
	ChanceAddingCompositeExtract:        {"adding_composite_extract", 20, 50},
	ChanceGoingDeeperToExtractComposite: {"going_deeper_to_extract_composite", 30, 70},
	ChancePushingIdThroughVariable:      {"pushing_id_through_variable", 5, 50},
	ChanceOutliningFunction:             {"outlining_function", 10, 90},
	ChanceSplittingBlock:                {"splitting_block", 40, 95},
	ChanceMergingBlocks:                 {"merging_blocks", 20, 95},
	ChanceChoosingPrivateStorage:        {"choosing_private_storage", 30, 70},
}

func (c Chance) String() string {
	if c >= 0 && c < numChances {
		return chanceRanges[c].name
	}
	return fmt.Sprintf("Chance(%d)", int(c))
}

func ParseChance(name string) (Chance, error) {
	for c := Chance(0); c < numChances; c++ {
		if chanceRanges[c].name == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown chance %q", name)
}

// Context holds all random decisions of a fuzzing run and the fresh id counter.
type Context struct {
	rs          RandomSource
	nextFreshID ir.ID
	chances     [numChances]uint32
}

func NewContext(rs RandomSource, minFreshID ir.ID) *Context {
	ctx := &Context{
		rs:          rs,
		nextFreshID: minFreshID,
	}
	for c := Chance(0); c < numChances; c++ {
		r := chanceRanges[c]
		ctx.chances[c] = r.min + rs.RandomUint32(r.max-r.min+1)
	}
	return ctx
}

// GetFreshID returns ids that are strictly increasing and not below minFreshID.
func (ctx *Context) GetFreshID() ir.ID {
	id := ctx.nextFreshID
	ctx.nextFreshID++
	return id
}

func (ctx *Context) ChooseEven() bool {
	return ctx.rs.RandomBool()
}

// ChoosePercentage returns true with probability p/100.
func (ctx *Context) ChoosePercentage(p uint32) bool {
	if p > 100 {
		panic(fmt.Sprintf("bad percentage %v", p))
	}
	return ctx.rs.RandomUint32(100) < p
}

// RandomIndex returns a uniformly chosen index into a sequence of length n.
func (ctx *Context) RandomIndex(n int) int {
	if n <= 0 {
		panic("random index into an empty sequence")
	}
	return int(ctx.rs.RandomUint32(uint32(n)))
}

func (ctx *Context) RandomUint32(bound uint32) uint32 {
	return ctx.rs.RandomUint32(bound)
}

func (ctx *Context) RandomDouble() float64 {
	return ctx.rs.RandomDouble()
}

// Shuffle permutes n elements with Fisher-Yates.
func (ctx *Context) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, int(ctx.rs.RandomUint32(uint32(i+1))))
	}
}

func (ctx *Context) Chance(c Chance) uint32 {
	return ctx.chances[c]
}

// OverrideChance replaces a drawn percentage, used by configs and tests.
func (ctx *Context) OverrideChance(c Chance, p uint32) {
	if p > 100 {
		panic(fmt.Sprintf("bad percentage %v for %v", p, c))
	}
	ctx.chances[c] = p
}

func (ctx *Context) ChanceOfConstructingComposite() uint32 {
	return ctx.chances[ChanceConstructingComposite]
}

func (ctx *Context) ChanceOfAddingCompositeExtract() uint32 {
	return ctx.chances[ChanceAddingCompositeExtract]
}

func (ctx *Context) ChanceOfGoingDeeperToExtractComposite() uint32 {
	return ctx.chances[ChanceGoingDeeperToExtractComposite]
}

func (ctx *Context) ChanceOfPushingIdThroughVariable() uint32 {
	return ctx.chances[ChancePushingIdThroughVariable]
}

func (ctx *Context) ChanceOfOutliningFunction() uint32 {
	return ctx.chances[ChanceOutliningFunction]
}

func (ctx *Context) ChanceOfSplittingBlock() uint32 {
	return ctx.chances[ChanceSplittingBlock]
}

func (ctx *Context) ChanceOfMergingBlocks() uint32 {
	return ctx.chances[ChanceMergingBlocks]
}

func (ctx *Context) ChanceOfChoosingPrivateStorage() uint32 {
	return ctx.chances[ChanceChoosingPrivateStorage]
}

// GoDeeperInConstantObfuscation returns true with probability (1/3)^(depth+1).
// No pass obfuscates constants yet; it is meant for generators that build a
// constant out of recursively obfuscated parts.
func (ctx *Context) GoDeeperInConstantObfuscation(depth uint32) bool {
	return ctx.rs.RandomDouble() < math.Pow(1.0/3, float64(depth+1))
}

// GoDeeperToExtractComposite decides whether an extraction index path gets
// one more level. Depth 0 is decided by the chance alone, every further
// level divides the probability by 3.
func (ctx *Context) GoDeeperToExtractComposite(depth uint32) bool {
	p := float64(ctx.ChanceOfGoingDeeperToExtractComposite()) / 100 * math.Pow(1.0/3, float64(depth))
	return ctx.rs.RandomDouble() < p
}
