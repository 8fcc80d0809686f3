// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package transform

import (
	"testing"

	"github.com/google/shaderfuzz/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outline(entry, exit ir.ID, inputs, outputs map[ir.ID]ir.ID) *OutlineFunction {
	return &OutlineFunction{
		EntryBlock:                    entry,
		ExitBlock:                     exit,
		NewFunctionStructReturnTypeID: 50,
		NewFunctionTypeID:             51,
		NewFunctionID:                 52,
		NewCallerResultID:             53,
		NewFunctionRegionEntryBlock:   54,
		NewCalleeResultID:             55,
		InputIDToFreshID:              inputs,
		OutputIDToFreshID:             outputs,
	}
}

func instStrings(b *ir.BasicBlock) []string {
	var res []string
	for _, inst := range b.Insts {
		res = append(res, inst.String())
	}
	return res
}

func TestOutlineSingleBlock(t *testing.T) {
	t.Parallel()
	m := ir.MustDeserialize(ir.TestModule)
	ctx := newContext()
	a := ir.Analyze(m)
	fn := m.Function(17)
	region := OutlineRegion(a, fn, 24, 24)
	require.Len(t, region, 1)
	assert.Equal(t, []ir.ID{20}, OutlineInputIDs(a, fn, region, 24))
	assert.Equal(t, []ir.ID{27}, OutlineOutputIDs(a, fn, region, 24))

	mustApply(t, m, ctx, outline(24, 24, map[ir.ID]ir.ID{20: 56}, map[ir.ID]ir.ID{27: 57}))
	assert.Equal(t, []string{
		"%53 = OpFunctionCall %50 %52 %20",
		"%27 = OpCompositeExtract %5 %53 0",
		"OpBranch %25",
	}, instStrings(m.Function(17).Block(24)))
	callee := m.Function(52)
	require.NotNil(t, callee)
	require.Len(t, callee.Params, 1)
	assert.Equal(t, ir.ID(56), callee.Params[0].ResultID)
	require.Len(t, callee.Blocks, 1)
	assert.Equal(t, []string{
		"%57 = OpIMul %5 %56 %56",
		"%55 = OpCompositeConstruct %50 %57",
		"OpReturnValue %55",
	}, instStrings(callee.Block(54)))
	assert.Equal(t, "%50 = OpTypeStruct %5", m.GlobalDef(50).String())
	assert.Equal(t, "%51 = OpTypeFunction %50 %5", m.GlobalDef(51).String())
	assert.Equal(t, ir.ID(58), m.Bound)
}

func TestOutlinePointerInput(t *testing.T) {
	t.Parallel()
	m := ir.MustDeserialize(ir.TestModule)
	ctx := newContext()
	a := ir.Analyze(m)
	fn := m.Function(17)
	region := OutlineRegion(a, fn, 23, 23)
	assert.Equal(t, []ir.ID{20, 19}, OutlineInputIDs(a, fn, region, 23))
	assert.Equal(t, []ir.ID{26}, OutlineOutputIDs(a, fn, region, 23))

	mustApply(t, m, ctx, outline(23, 23, map[ir.ID]ir.ID{20: 56, 19: 57}, map[ir.ID]ir.ID{26: 58}))
	assert.Equal(t, []string{
		"%53 = OpFunctionCall %50 %52 %20 %19",
		"%26 = OpCompositeExtract %5 %53 0",
		"OpBranch %25",
	}, instStrings(m.Function(17).Block(23)))
	assert.Equal(t, []string{
		"%58 = OpFunctionCall %5 %30 %56",
		"OpStore %57 %58",
		"%55 = OpCompositeConstruct %50 %58",
		"OpReturnValue %55",
	}, instStrings(m.Function(52).Block(54)))
}

func TestOutlineVoid(t *testing.T) {
	t.Parallel()
	m := ir.MustDeserialize(ir.TestModule)
	ctx := newContext()
	mustApply(t, m, ctx, outline(43, 43, nil, nil))
	assert.Equal(t, []string{
		"%53 = OpFunctionCall %1 %52",
		"OpBranch %44",
	}, instStrings(m.Function(40).Block(43)))
	callee := m.Function(52)
	// The existing void function type is reused.
	assert.Equal(t, ir.ID(2), callee.Def.IDOperand(1))
	assert.Nil(t, m.GlobalDef(50))
	assert.Nil(t, m.GlobalDef(51))
	assert.Equal(t, []string{"OpReturn"}, instStrings(callee.Block(54)))
}

func TestOutlineLoop(t *testing.T) {
	t.Parallel()
	m := ir.MustDeserialize(ir.TestModule)
	ctx := newContext()
	a := ir.Analyze(m)
	fn := m.Function(40)
	assert.Equal(t, []ir.ID{41, 42, 45}, OutlineExitCandidates(a, fn, 41))
	assert.Len(t, OutlineRegion(a, fn, 41, 45), 5)

	mustApply(t, m, ctx, outline(41, 45, nil, nil))
	assert.Equal(t, []ir.ID{41}, blockIDs(m.Function(40)))
	assert.Equal(t, []string{
		"%53 = OpFunctionCall %1 %52",
		"OpReturn",
	}, instStrings(m.Function(40).Block(41)))
	callee := m.Function(52)
	assert.Equal(t, []ir.ID{54, 42, 43, 44, 45}, blockIDs(callee))
	assert.Equal(t, "%46 = OpPhi %5 %9 %54 %47 %44", callee.Block(42).Insts[0].String())
}

func TestOutlineInapplicable(t *testing.T) {
	t.Parallel()
	m := ir.MustDeserialize(ir.TestModule)
	ctx := newContext()
	bad := map[string]*OutlineFunction{
		"entry starts with a variable": outline(18, 25, nil, nil),
		"loop header":                  outline(42, 42, nil, nil),
		"not a region":                 outline(23, 25, nil, nil),
		"different functions":          outline(24, 43, nil, nil),
		"missing output":               outline(24, 24, map[ir.ID]ir.ID{20: 56}, nil),
		"extra input":                  outline(24, 24, map[ir.ID]ir.ID{20: 56, 21: 58}, map[ir.ID]ir.ID{27: 57}),
		"duplicate fresh ids":          outline(24, 24, map[ir.ID]ir.ID{20: 56}, map[ir.ID]ir.ID{27: 56}),
		"used id":                      outline(24, 24, map[ir.ID]ir.ID{20: 56}, map[ir.ID]ir.ID{27: 21}),
		"continue target in region":    outline(43, 44, nil, nil),
	}
	for name, tr := range bad {
		assert.False(t, tr.IsApplicable(m, ctx), name)
	}
	assert.True(t, outline(24, 24, map[ir.ID]ir.ID{20: 56}, map[ir.ID]ir.ID{27: 57}).IsApplicable(m, ctx))
}
