// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

import (
	"fmt"
)

type Opcode int

const (
	OpNop Opcode = iota

	OpTypeVoid
	OpTypeBool
	OpTypeInt
	OpTypeFloat
	OpTypeVector
	OpTypeMatrix
	OpTypeArray
	OpTypeRuntimeArray
	OpTypeStruct
	OpTypePointer
	OpTypeFunction
	OpTypeSampler

	OpConstantTrue
	OpConstantFalse
	OpConstant
	OpConstantComposite
	OpConstantNull

	OpVariable
	OpUndef

	OpFunction
	OpFunctionParameter
	OpFunctionEnd
	OpLabel

	OpPhi
	OpCopyObject
	OpLoad
	OpStore
	OpCompositeConstruct
	OpCompositeExtract
	OpIAdd
	OpISub
	OpIMul
	OpFAdd
	OpFMul
	OpIEqual
	OpSLessThan
	OpLogicalNot
	OpFunctionCall

	OpSelectionMerge
	OpLoopMerge
	OpBranch
	OpBranchConditional
	OpReturn
	OpReturnValue
	OpUnreachable
	OpKill

	opcodeCount
)

type opcodeInfo struct {
	name      string
	hasType   bool
	hasResult bool
}

var opcodes = [opcodeCount]opcodeInfo{
	OpNop:                {"OpNop", false, false},
	OpTypeVoid:           {"OpTypeVoid", false, true},
	OpTypeBool:           {"OpTypeBool", false, true},
	OpTypeInt:            {"OpTypeInt", false, true},
	OpTypeFloat:          {"OpTypeFloat", false, true},
	OpTypeVector:         {"OpTypeVector", false, true},
	OpTypeMatrix:         {"OpTypeMatrix", false, true},
	OpTypeArray:          {"OpTypeArray", false, true},
	OpTypeRuntimeArray:   {"OpTypeRuntimeArray", false, true},
	OpTypeStruct:         {"OpTypeStruct", false, true},
	OpTypePointer:        {"OpTypePointer", false, true},
	OpTypeFunction:       {"OpTypeFunction", false, true},
	OpTypeSampler:        {"OpTypeSampler", false, true},
	OpConstantTrue:       {"OpConstantTrue", true, true},
	OpConstantFalse:      {"OpConstantFalse", true, true},
	OpConstant:           {"OpConstant", true, true},
	OpConstantComposite:  {"OpConstantComposite", true, true},
	OpConstantNull:       {"OpConstantNull", true, true},
	OpVariable:           {"OpVariable", true, true},
	OpUndef:              {"OpUndef", true, true},
	OpFunction:           {"OpFunction", true, true},
	OpFunctionParameter:  {"OpFunctionParameter", true, true},
	OpFunctionEnd:        {"OpFunctionEnd", false, false},
	OpLabel:              {"OpLabel", false, true},
	OpPhi:                {"OpPhi", true, true},
	OpCopyObject:         {"OpCopyObject", true, true},
	OpLoad:               {"OpLoad", true, true},
	OpStore:              {"OpStore", false, false},
	OpCompositeConstruct: {"OpCompositeConstruct", true, true},
	OpCompositeExtract:   {"OpCompositeExtract", true, true},
	OpIAdd:               {"OpIAdd", true, true},
	OpISub:               {"OpISub", true, true},
	OpIMul:               {"OpIMul", true, true},
	OpFAdd:               {"OpFAdd", true, true},
	OpFMul:               {"OpFMul", true, true},
	OpIEqual:             {"OpIEqual", true, true},
	OpSLessThan:          {"OpSLessThan", true, true},
	OpLogicalNot:         {"OpLogicalNot", true, true},
	OpFunctionCall:       {"OpFunctionCall", true, true},
	OpSelectionMerge:     {"OpSelectionMerge", false, false},
	OpLoopMerge:          {"OpLoopMerge", false, false},
	OpBranch:             {"OpBranch", false, false},
	OpBranchConditional:  {"OpBranchConditional", false, false},
	OpReturn:             {"OpReturn", false, false},
	OpReturnValue:        {"OpReturnValue", false, false},
	OpUnreachable:        {"OpUnreachable", false, false},
	OpKill:               {"OpKill", false, false},
}

var opcodeByName = func() map[string]Opcode {
	res := make(map[string]Opcode)
	for op := Opcode(0); op < opcodeCount; op++ {
		res[opcodes[op].name] = op
	}
	return res
}()

func (op Opcode) String() string {
	if op >= 0 && op < opcodeCount {
		return opcodes[op].name
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

func (op Opcode) HasType() bool {
	return opcodes[op].hasType
}

func (op Opcode) HasResult() bool {
	return opcodes[op].hasResult
}

func (op Opcode) IsType() bool {
	return op >= OpTypeVoid && op <= OpTypeSampler
}

func (op Opcode) IsConstant() bool {
	return op >= OpConstantTrue && op <= OpConstantNull
}

func (op Opcode) IsTerminator() bool {
	switch op {
	case OpBranch, OpBranchConditional, OpReturn, OpReturnValue, OpUnreachable, OpKill:
		return true
	}
	return false
}

// IsFunctionExit says if the terminator leaves the function.
func (op Opcode) IsFunctionExit() bool {
	switch op {
	case OpReturn, OpReturnValue, OpUnreachable, OpKill:
		return true
	}
	return false
}

func (op Opcode) IsMerge() bool {
	return op == OpSelectionMerge || op == OpLoopMerge
}

// IsGlobal says if the opcode may appear at module scope.
func (op Opcode) IsGlobal() bool {
	return op.IsType() || op.IsConstant() || op == OpVariable || op == OpUndef
}

// IsBody says if the opcode may appear in a block body.
func (op Opcode) IsBody() bool {
	return op >= OpPhi && op <= OpKill || op == OpVariable || op == OpUndef
}

func (op Opcode) MarshalText() ([]byte, error) {
	if op < 0 || op >= opcodeCount {
		return nil, fmt.Errorf("bad opcode %d", int(op))
	}
	return []byte(opcodes[op].name), nil
}

func (op *Opcode) UnmarshalText(data []byte) error {
	v, ok := opcodeByName[string(data)]
	if !ok {
		return fmt.Errorf("unknown opcode %q", data)
	}
	*op = v
	return nil
}
