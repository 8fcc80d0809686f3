// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()
	m := MustDeserialize(TestModule)
	assert.Equal(t, ID(50), m.Bound)
	assert.Len(t, m.Functions, 3)
	data := m.Serialize()
	m1, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(m1.Serialize()))
	if diff := cmp.Diff(m, m1); diff != "" {
		t.Fatal(diff)
	}
	m2 := m.Clone()
	if diff := cmp.Diff(m, m2, cmpopts.EquateEmpty()); diff != "" {
		t.Fatal(diff)
	}
	// The clone must not share operand storage with the original.
	m2.Functions[0].Blocks[0].Insts[1].Operands[0] = IDOperand(14)
	assert.Equal(t, ID(10), m.Functions[0].Blocks[0].Insts[1].IDOperand(0))
}

func TestDeserializeComputesBound(t *testing.T) {
	t.Parallel()
	m, err := Deserialize([]byte(`
%1 = OpTypeVoid
%7 = OpTypeBool
`))
	require.NoError(t, err)
	assert.Equal(t, ID(8), m.Bound)
	assert.Equal(t, "; bound 8\n%1 = OpTypeVoid\n%7 = OpTypeBool\n", string(m.Serialize()))
}

func TestDeserializeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		err  string
	}{
		{"%1 = OpTypeFoo", `unknown opcode "OpTypeFoo"`},
		{"OpTypeVoid", "result id mismatch"},
		{"%0 = OpTypeVoid", `bad id "%0"`},
		{"%1 = OpTypeInt x 1", `bad literal "x"`},
		{"%1 = OpLabel", "OpLabel outside of a function"},
		{"%1 = OpTypeInt 32 1\n%2 = OpIAdd %1 %1 %1", "OpIAdd is not allowed at module scope"},
		{"%1 = OpTypeVoid\n%2 = OpTypeFunction %1\n%3 = OpFunction %1 0 %2\n%4 = OpLabel\nOpReturn",
			"missing OpFunctionEnd"},
		{"%1 = OpTypeVoid\n%2 = OpTypeFunction %1\n%3 = OpFunction %1 0 %2\nOpReturn\nOpFunctionEnd",
			"OpReturn outside of a block"},
	}
	for _, test := range tests {
		_, err := Deserialize([]byte(test.text))
		assert.ErrorContains(t, err, test.err, "text: %q", test.text)
	}
}

func TestInstructionString(t *testing.T) {
	t.Parallel()
	m := MustDeserialize(TestModule)
	b := m.Function(17).Block(23)
	assert.Equal(t, "%26 = OpFunctionCall %5 %30 %20", b.Insts[0].String())
	assert.Equal(t, "OpStore %19 %26", b.Insts[1].String())
	assert.Equal(t, "module{bound=50 globals=16 fn%17/4 fn%30/1 fn%40/5}", m.String())
}
