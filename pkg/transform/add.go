// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package transform

import (
	"github.com/google/shaderfuzz/ir"
)

// AddType declares a new type. Fuzzer passes use it to create types they need
// but the module lacks.
type AddType struct {
	FreshID  ir.ID        `json:"fresh_id"`
	Opcode   ir.Opcode    `json:"opcode"`
	Operands []ir.Operand `json:"operands,omitempty"`
}

func init() {
	register("add_type", func() Transformation { return new(AddType) })
	register("add_constant", func() Transformation { return new(AddConstant) })
}

func (t *AddType) IsApplicable(m *ir.Module, ctx *Context) bool {
	if !m.IsFreshID(t.FreshID) || !t.wellFormed(m) {
		return false
	}
	// Non-aggregate types are unique.
	return m.FindType(t.Opcode, t.Operands...) == 0
}

func (t *AddType) wellFormed(m *ir.Module) bool {
	ops := t.Operands
	lit := func(i int) (uint32, bool) {
		if i >= len(ops) || ops[i].Kind != ir.OperandLiteral {
			return 0, false
		}
		return ops[i].Value, true
	}
	id := func(i int) (ir.ID, bool) {
		if i >= len(ops) || ops[i].Kind != ir.OperandID {
			return 0, false
		}
		return ir.ID(ops[i].Value), true
	}
	switch t.Opcode {
	case ir.OpTypeVoid, ir.OpTypeBool:
		return len(ops) == 0
	case ir.OpTypeInt:
		width, ok1 := lit(0)
		sign, ok2 := lit(1)
		return ok1 && ok2 && len(ops) == 2 && validWidth(width, 8) && sign <= 1
	case ir.OpTypeFloat:
		width, ok := lit(0)
		return ok && len(ops) == 1 && validWidth(width, 16)
	case ir.OpTypeVector:
		elem, ok1 := id(0)
		n, ok2 := lit(1)
		return ok1 && ok2 && len(ops) == 2 && m.IsScalarType(elem) && n >= 2 && n <= 4
	case ir.OpTypePointer:
		sc, ok1 := lit(0)
		pointee, ok2 := id(1)
		if !ok1 || !ok2 || len(ops) != 2 || sc > uint32(ir.StorageOutput) {
			return false
		}
		switch m.TypeOpcode(pointee) {
		case ir.OpNop, ir.OpTypeVoid, ir.OpTypeFunction:
			return false
		}
		return true
	}
	return false
}

func validWidth(width, min uint32) bool {
	for w := min; w <= 64; w *= 2 {
		if width == w {
			return true
		}
	}
	return false
}

func (t *AddType) Apply(m *ir.Module, ctx *Context) {
	m.AddGlobal(ir.NewInstruction(t.Opcode, 0, t.FreshID, append([]ir.Operand(nil), t.Operands...)...))
}

func (t *AddType) ToRecord() Record {
	return makeRecord("add_type", t)
}

// AddConstant declares a new scalar or null constant.
// Constants marked irrelevant may be used by later transformations
// in places where their value does not matter.
type AddConstant struct {
	FreshID      ir.ID     `json:"fresh_id"`
	TypeID       ir.ID     `json:"type_id"`
	Opcode       ir.Opcode `json:"opcode"`
	Value        uint32    `json:"value,omitempty"`
	IsIrrelevant bool      `json:"is_irrelevant,omitempty"`
}

func (t *AddConstant) IsApplicable(m *ir.Module, ctx *Context) bool {
	if !m.IsFreshID(t.FreshID) {
		return false
	}
	typ := m.TypeOpcode(t.TypeID)
	switch t.Opcode {
	case ir.OpConstantTrue, ir.OpConstantFalse:
		return typ == ir.OpTypeBool && t.Value == 0
	case ir.OpConstant:
		return typ == ir.OpTypeInt || typ == ir.OpTypeFloat
	case ir.OpConstantNull:
		return t.Value == 0 && m.IsStorableType(t.TypeID)
	}
	return false
}

func (t *AddConstant) Apply(m *ir.Module, ctx *Context) {
	var ops []ir.Operand
	if t.Opcode == ir.OpConstant {
		ops = append(ops, ir.LiteralOperand(t.Value))
	}
	m.AddGlobal(ir.NewInstruction(t.Opcode, t.TypeID, t.FreshID, ops...))
	if t.IsIrrelevant {
		ctx.Facts.AddFactIDIsIrrelevant(t.FreshID)
	}
}

func (t *AddConstant) ToRecord() Record {
	return makeRecord("add_constant", t)
}
