// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAvailableBefore(t *testing.T) {
	t.Parallel()
	m := MustDeserialize(TestModule)
	a := Analyze(m)
	main, callee := m.Function(17), m.Function(30)
	tests := []struct {
		fn    *Function
		block ID
		idx   int
		id    ID
		ok    bool
	}{
		{main, 25, 0, 20, true},
		{main, 25, 0, 26, false},
		{main, 23, 1, 26, true},
		{main, 23, 0, 26, false},
		{main, 25, 0, 9, true},
		{main, 25, 0, 23, false},
		{main, 25, 0, 30, false},
		{main, 25, 0, 31, false},
		{callee, 32, 0, 31, true},
		{callee, 32, 0, 20, false},
	}
	for _, test := range tests {
		b := test.fn.Block(test.block)
		assert.Equal(t, test.ok, a.IsAvailableBefore(test.fn, b, test.idx, test.id),
			"%%%v before %%%v[%v]", test.id, test.block, test.idx)
	}
}

func TestFindAvailableInstructions(t *testing.T) {
	t.Parallel()
	m := MustDeserialize(TestModule)
	a := Analyze(m)
	fn := m.Function(17)
	ids := func(insts []*Instruction) []ID {
		var res []ID
		for _, inst := range insts {
			res = append(res, inst.ResultID)
		}
		return res
	}
	all := a.FindAvailableInstructions(fn, fn.Block(25), 0, nil)
	assert.Equal(t, []ID{7, 8, 9, 10, 11, 14, 19, 20, 21, 22}, ids(all))
	ints := a.FindAvailableInstructions(fn, fn.Block(25), 0, func(inst *Instruction) bool {
		return inst.TypeID == 5
	})
	assert.Equal(t, []ID{9, 10, 14, 20}, ids(ints))
	atEnd := a.FindAvailableInstructions(fn, fn.Block(23), 2, func(inst *Instruction) bool {
		return inst.TypeID == 5
	})
	assert.Equal(t, []ID{9, 10, 14, 20, 26}, ids(atEnd))
}

func TestCanInsertOpcodeBeforeInstruction(t *testing.T) {
	t.Parallel()
	m := MustDeserialize(TestModule)
	fn := m.Function(17)
	tests := []struct {
		op    Opcode
		block ID
		idx   int
		ok    bool
	}{
		{OpIAdd, 18, 0, false},
		{OpVariable, 18, 0, true},
		{OpVariable, 18, 1, true},
		{OpIAdd, 18, 1, true},
		{OpIAdd, 18, 4, true},
		{OpIAdd, 18, 5, false},
		{OpIAdd, 25, 0, false},
		{OpPhi, 25, 0, true},
		{OpPhi, 25, 1, true},
		{OpPhi, 25, 2, false},
		{OpIAdd, 25, 1, true},
		{OpStore, 25, 2, true},
		{OpReturn, 25, 2, false},
		{OpIAdd, 25, 3, false},
		{OpIAdd, 25, -1, false},
	}
	for _, test := range tests {
		assert.Equal(t, test.ok, CanInsertOpcodeBeforeInstruction(test.op, fn.Block(test.block), test.idx),
			"%v before %%%v[%v]", test.op, test.block, test.idx)
	}
}

func TestInstructionDescriptors(t *testing.T) {
	t.Parallel()
	m := MustDeserialize(TestModule)
	for _, fn := range m.Functions {
		for _, b := range fn.Blocks {
			for i := range b.Insts {
				d := MakeInstructionDescriptor(b, i)
				fn1, b1, i1, ok := FindInstruction(m, d)
				require.True(t, ok, "descriptor %v", d)
				assert.Equal(t, fn, fn1)
				assert.Equal(t, b, b1)
				assert.Equal(t, i, i1, "descriptor %v", d)
			}
		}
	}
	b18 := m.Function(17).Block(18)
	assert.Equal(t, InstructionDescriptor{22, OpSelectionMerge, 0}, MakeInstructionDescriptor(b18, 4))
	assert.Equal(t, InstructionDescriptor{22, OpBranchConditional, 0}, MakeInstructionDescriptor(b18, 5))
	assert.Equal(t, InstructionDescriptor{41, OpBranch, 0}, MakeInstructionDescriptor(m.Function(40).Block(41), 0))

	_, _, _, ok := FindInstruction(m, InstructionDescriptor{22, OpBranch, 0})
	assert.False(t, ok)
	_, _, _, ok = FindInstruction(m, InstructionDescriptor{7, OpIAdd, 0})
	assert.False(t, ok)

	data, err := json.Marshal(MakeInstructionDescriptor(b18, 4))
	require.NoError(t, err)
	assert.Equal(t, `{"base":22,"target":"OpSelectionMerge","skip":0}`, string(data))
	var d InstructionDescriptor
	require.NoError(t, json.Unmarshal(data, &d))
	assert.Equal(t, InstructionDescriptor{22, OpSelectionMerge, 0}, d)
}

func TestInstructionDescriptorStability(t *testing.T) {
	t.Parallel()
	m := MustDeserialize(TestModule)
	b := m.Function(17).Block(23)
	store := MakeInstructionDescriptor(b, 1)
	branch := MakeInstructionDescriptor(b, 2)
	b.InsertBefore(0, NewInstruction(OpCopyObject, 5, 49, IDOperand(20)))
	m.UpdateBound(49)
	for want, d := range map[int]InstructionDescriptor{2: store, 3: branch} {
		_, b1, idx, ok := FindInstruction(m, d)
		require.True(t, ok)
		assert.Equal(t, b, b1)
		assert.Equal(t, want, idx)
	}
	assert.NoError(t, Validate(m, ValidatorOptions{}))
}

func TestModuleEdits(t *testing.T) {
	t.Parallel()
	m := MustDeserialize(TestModule)
	assert.False(t, m.IsFreshID(20))
	assert.False(t, m.IsFreshID(0))
	assert.True(t, m.IsFreshID(34))
	m.ReplaceAllUses(20, 10)
	b := m.Function(17).Block(24)
	assert.Equal(t, "%27 = OpIMul %5 %10 %10", b.Insts[0].String())
	assert.NoError(t, Validate(m, ValidatorOptions{}))
	m.UpdateBound(60)
	assert.Equal(t, ID(61), m.Bound)
}
