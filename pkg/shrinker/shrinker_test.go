// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package shrinker

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/fuzzer"
	"github.com/google/shaderfuzz/pkg/testutil"
	"github.com/google/shaderfuzz/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSequence(t *testing.T) (*ir.Module, *transform.Sequence) {
	orig := ir.MustDeserialize(ir.TestModule)
	m := orig.Clone()
	ctx := transform.NewContext(fact.NewManager(), ir.ValidatorOptions{})
	_, b18 := m.BlockFunction(18)
	_, b23 := m.BlockFunction(23)
	at := ir.MakeInstructionDescriptor(b18, 4)
	seq := new(transform.Sequence)
	for _, tr := range []transform.Transformation{
		&transform.SplitBlock{SplitBefore: ir.MakeInstructionDescriptor(b23, 2), FreshID: 50},
		&transform.MergeBlocks{BlockID: 50},
		&transform.AddConstant{FreshID: 51, TypeID: 5, Opcode: ir.OpConstant, Value: 7},
		&transform.CompositeConstruct{CompositeTypeID: 13, Components: []ir.ID{21, 51}, InsertBefore: at, FreshID: 52},
		&transform.CompositeExtract{FreshID: 53, InsertBefore: at, CompositeID: 52, Index: []uint32{1}},
	} {
		require.True(t, tr.IsApplicable(m, ctx), "%v", tr.ToRecord())
		tr.Apply(m, ctx)
		seq.Append(tr)
	}
	return orig, seq
}

func hasOpcode(m *ir.Module, op ir.Opcode) bool {
	found := false
	m.ForEachInst(func(inst *ir.Instruction) {
		found = found || inst.Opcode == op
	})
	return found
}

func kinds(seq *transform.Sequence) []string {
	var res []string
	for _, rec := range seq.Records {
		res = append(res, rec.Kind)
	}
	return res
}

func TestShrink(t *testing.T) {
	t.Parallel()
	m, seq := buildSequence(t)
	res, err := Shrink(m, nil, seq, func(m *ir.Module, facts *fact.Manager) bool {
		return hasOpcode(m, ir.OpCompositeExtract)
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"add_constant", "composite_construct", "composite_extract"}, kinds(res.Sequence))
	assert.Equal(t, 8, res.Steps)
	assert.False(t, res.Exhausted)
	assert.True(t, res.Facts.IsSynonymous(fact.MakeDataDescriptor(53), fact.MakeDataDescriptor(52, 1)))

	// The shrunk sequence reproduces the shrunk module.
	rep, err := transform.Replay(m, nil, res.Sequence, ir.ValidatorOptions{})
	require.NoError(t, err)
	assert.Empty(t, rep.Skipped)
	assert.Equal(t, string(res.Module.Serialize()), string(rep.Module.Serialize()))
}

func TestShrinkStepLimit(t *testing.T) {
	t.Parallel()
	m, seq := buildSequence(t)
	res, err := Shrink(m, nil, seq, func(m *ir.Module, facts *fact.Manager) bool {
		return hasOpcode(m, ir.OpCompositeExtract)
	}, Options{StepLimit: 3})
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, seq.Records, res.Sequence.Records)
}

func TestShrinkNotInteresting(t *testing.T) {
	t.Parallel()
	m, seq := buildSequence(t)
	_, err := Shrink(m, nil, seq, func(m *ir.Module, facts *fact.Manager) bool {
		return false
	}, Options{})
	assert.ErrorIs(t, err, ErrNotInteresting)

	bad := &transform.Sequence{Records: []transform.Record{{Kind: "no_such_kind"}}}
	_, err = Shrink(m, nil, bad, func(m *ir.Module, facts *fact.Manager) bool {
		return true
	}, Options{})
	assert.Error(t, err)
}

func TestShrinkFuzzed(t *testing.T) {
	t.Parallel()
	seed := testutil.RandSeed(t)
	m := ir.MustDeserialize(ir.TestModule)
	for i := 0; i < 3; i++ {
		cfg := fuzzer.DefaultConfig()
		cfg.Seed = seed + int64(i)
		cfg.MaxSteps = 50
		f, err := fuzzer.NewFuzzer(m, nil, cfg)
		require.NoError(t, err)
		fuzzed, err := f.Run(context.Background())
		require.NoError(t, err)
		t.Run(fmt.Sprint(cfg.Seed), func(t *testing.T) {
			// Everything is removed if everything is interesting.
			res, err := Shrink(m, nil, fuzzed.Sequence, func(m *ir.Module, facts *fact.Manager) bool {
				return true
			}, Options{})
			require.NoError(t, err)
			assert.Equal(t, 0, res.Sequence.Len())
			assert.Equal(t, string(m.Serialize()), string(res.Module.Serialize()))

			// Keeping the function count keeps every applied outlining.
			functions := len(fuzzed.Module.Functions)
			res, err = Shrink(m, nil, fuzzed.Sequence, func(m *ir.Module, facts *fact.Manager) bool {
				return len(m.Functions) == functions
			}, Options{})
			require.NoError(t, err)
			assert.Len(t, res.Module.Functions, functions)
			assert.LessOrEqual(t, res.Sequence.Len(), fuzzed.Sequence.Len())
			require.NoError(t, ir.Validate(res.Module, ir.ValidatorOptions{}))
		})
	}
}
