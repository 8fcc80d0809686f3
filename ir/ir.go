// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package ir contains a small SPIR-V-like intermediate representation
// together with the analyses (def/use, dominance, availability) and the
// validator that the fuzzer relies on.
package ir

import (
	"fmt"
)

// ID is a module-wide unique result id. Zero means "no id".
type ID uint32

type OperandKind int

const (
	OperandID OperandKind = iota
	OperandLiteral
)

type Operand struct {
	Kind  OperandKind `json:"kind"`
	Value uint32      `json:"value"`
}

func IDOperand(id ID) Operand {
	return Operand{Kind: OperandID, Value: uint32(id)}
}

func LiteralOperand(v uint32) Operand {
	return Operand{Kind: OperandLiteral, Value: v}
}

func (op Operand) ID() ID {
	if op.Kind != OperandID {
		panic(fmt.Sprintf("operand %v is not an id", op))
	}
	return ID(op.Value)
}

type Instruction struct {
	Opcode   Opcode
	TypeID   ID
	ResultID ID
	Operands []Operand
}

type BasicBlock struct {
	Label *Instruction
	Insts []*Instruction
}

type Function struct {
	Def    *Instruction
	Params []*Instruction
	Blocks []*BasicBlock
}

type Module struct {
	Bound     ID
	Globals   []*Instruction
	Functions []*Function
}

type StorageClass uint32

const (
	StorageFunction StorageClass = iota
	StoragePrivate
	StorageUniform
	StorageInput
	StorageOutput
)

var storageClassNames = map[StorageClass]string{
	StorageFunction: "Function",
	StoragePrivate:  "Private",
	StorageUniform:  "Uniform",
	StorageInput:    "Input",
	StorageOutput:   "Output",
}

func (sc StorageClass) String() string {
	if name, ok := storageClassNames[sc]; ok {
		return name
	}
	return fmt.Sprintf("StorageClass(%d)", uint32(sc))
}

func NewInstruction(op Opcode, typ, res ID, operands ...Operand) *Instruction {
	return &Instruction{
		Opcode:   op,
		TypeID:   typ,
		ResultID: res,
		Operands: operands,
	}
}

func NewLabel(id ID) *Instruction {
	return NewInstruction(OpLabel, 0, id)
}

func (inst *Instruction) IDOperand(i int) ID {
	return inst.Operands[i].ID()
}

func (inst *Instruction) Literal(i int) uint32 {
	op := inst.Operands[i]
	if op.Kind != OperandLiteral {
		panic(fmt.Sprintf("operand %v of %v is not a literal", i, inst.Opcode))
	}
	return op.Value
}

// ForEachInID calls fn for every id the instruction references,
// including its type id.
func (inst *Instruction) ForEachInID(fn func(id ID)) {
	if inst.TypeID != 0 {
		fn(inst.TypeID)
	}
	for _, op := range inst.Operands {
		if op.Kind == OperandID {
			fn(ID(op.Value))
		}
	}
}

// ForEachInOperand calls fn for every id operand (not the type id) and
// allows the callback to replace it.
func (inst *Instruction) ForEachInOperand(fn func(id *ID)) {
	for i := range inst.Operands {
		op := &inst.Operands[i]
		if op.Kind != OperandID {
			continue
		}
		id := ID(op.Value)
		fn(&id)
		op.Value = uint32(id)
	}
}

func (inst *Instruction) String() string {
	return string(inst.serialize())
}

func (b *BasicBlock) ID() ID {
	return b.Label.ResultID
}

// Terminator returns the last instruction of the block.
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.Insts) == 0 {
		return nil
	}
	return b.Insts[len(b.Insts)-1]
}

// MergeInst returns the OpSelectionMerge/OpLoopMerge of a header block.
func (b *BasicBlock) MergeInst() *Instruction {
	if len(b.Insts) < 2 {
		return nil
	}
	inst := b.Insts[len(b.Insts)-2]
	if inst.Opcode == OpSelectionMerge || inst.Opcode == OpLoopMerge {
		return inst
	}
	return nil
}

func (b *BasicBlock) IsLoopHeader() bool {
	merge := b.MergeInst()
	return merge != nil && merge.Opcode == OpLoopMerge
}

// MergeBlock returns the merge target of a header block, or 0.
func (b *BasicBlock) MergeBlock() ID {
	if merge := b.MergeInst(); merge != nil {
		return merge.IDOperand(0)
	}
	return 0
}

// ContinueTarget returns the continue target of a loop header, or 0.
func (b *BasicBlock) ContinueTarget() ID {
	if merge := b.MergeInst(); merge != nil && merge.Opcode == OpLoopMerge {
		return merge.IDOperand(1)
	}
	return 0
}

func (b *BasicBlock) IndexOf(inst *Instruction) int {
	for i, inst1 := range b.Insts {
		if inst1 == inst {
			return i
		}
	}
	return -1
}

func (b *BasicBlock) InsertBefore(idx int, insts ...*Instruction) {
	var res []*Instruction
	res = append(res, b.Insts[:idx]...)
	res = append(res, insts...)
	res = append(res, b.Insts[idx:]...)
	b.Insts = res
}

func (fn *Function) ID() ID {
	return fn.Def.ResultID
}

func (fn *Function) Entry() *BasicBlock {
	if len(fn.Blocks) == 0 {
		return nil
	}
	return fn.Blocks[0]
}

func (fn *Function) Block(id ID) *BasicBlock {
	for _, b := range fn.Blocks {
		if b.ID() == id {
			return b
		}
	}
	return nil
}

func (fn *Function) BlockIndex(id ID) int {
	for i, b := range fn.Blocks {
		if b.ID() == id {
			return i
		}
	}
	return -1
}

func (fn *Function) ForEachInst(cb func(b *BasicBlock, idx int, inst *Instruction)) {
	for _, b := range fn.Blocks {
		for i, inst := range b.Insts {
			cb(b, i, inst)
		}
	}
}

func (m *Module) UpdateBound(id ID) {
	if id >= m.Bound {
		m.Bound = id + 1
	}
}

func (m *Module) Function(id ID) *Function {
	for _, fn := range m.Functions {
		if fn.ID() == id {
			return fn
		}
	}
	return nil
}

// BlockFunction returns the block with the given label and its function.
func (m *Module) BlockFunction(id ID) (*Function, *BasicBlock) {
	for _, fn := range m.Functions {
		if b := fn.Block(id); b != nil {
			return fn, b
		}
	}
	return nil, nil
}

func (m *Module) GlobalDef(id ID) *Instruction {
	for _, inst := range m.Globals {
		if inst.ResultID == id {
			return inst
		}
	}
	return nil
}

func (m *Module) AddGlobal(inst *Instruction) {
	m.Globals = append(m.Globals, inst)
	m.UpdateBound(inst.ResultID)
}

// ForEachInst walks every instruction in the module in declaration order.
func (m *Module) ForEachInst(cb func(inst *Instruction)) {
	for _, inst := range m.Globals {
		cb(inst)
	}
	for _, fn := range m.Functions {
		cb(fn.Def)
		for _, p := range fn.Params {
			cb(p)
		}
		for _, b := range fn.Blocks {
			cb(b.Label)
			for _, inst := range b.Insts {
				cb(inst)
			}
		}
	}
}

// IsFreshID says if id can be used for a new entity: it is non-zero and not
// defined anywhere in the module.
func (m *Module) IsFreshID(id ID) bool {
	if id == 0 {
		return false
	}
	fresh := true
	m.ForEachInst(func(inst *Instruction) {
		if inst.ResultID == id {
			fresh = false
		}
	})
	return fresh
}

// ReplaceAllUses rewrites every id operand equal to from into to.
// Type ids are not touched.
func (m *Module) ReplaceAllUses(from, to ID) {
	m.ForEachInst(func(inst *Instruction) {
		inst.ForEachInOperand(func(id *ID) {
			if *id == from {
				*id = to
			}
		})
	})
}

func (sc StorageClass) MarshalText() ([]byte, error) {
	return []byte(sc.String()), nil
}

func (sc *StorageClass) UnmarshalText(data []byte) error {
	for v, name := range storageClassNames {
		if name == string(data) {
			*sc = v
			return nil
		}
	}
	return fmt.Errorf("unknown storage class %q", data)
}
