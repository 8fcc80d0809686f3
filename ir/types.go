// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

// Def returns the instruction defining id anywhere in the module.
func (m *Module) Def(id ID) *Instruction {
	if id == 0 {
		return nil
	}
	if inst := m.GlobalDef(id); inst != nil {
		return inst
	}
	for _, fn := range m.Functions {
		if fn.Def.ResultID == id {
			return fn.Def
		}
		for _, p := range fn.Params {
			if p.ResultID == id {
				return p
			}
		}
		for _, b := range fn.Blocks {
			if b.Label.ResultID == id {
				return b.Label
			}
			for _, inst := range b.Insts {
				if inst.ResultID == id {
					return inst
				}
			}
		}
	}
	return nil
}

// TypeInst returns the type declaration for typ, or nil if typ is not a type.
func (m *Module) TypeInst(typ ID) *Instruction {
	inst := m.GlobalDef(typ)
	if inst == nil || !inst.Opcode.IsType() {
		return nil
	}
	return inst
}

// TypeOf returns the result type of the value id, or 0.
func (m *Module) TypeOf(id ID) ID {
	inst := m.Def(id)
	if inst == nil {
		return 0
	}
	return inst.TypeID
}

func (m *Module) TypeOpcode(typ ID) Opcode {
	if inst := m.TypeInst(typ); inst != nil {
		return inst.Opcode
	}
	return OpNop
}

func (m *Module) IsScalarType(typ ID) bool {
	switch m.TypeOpcode(typ) {
	case OpTypeBool, OpTypeInt, OpTypeFloat:
		return true
	}
	return false
}

// IsCompositeType says if typ is a vector, matrix, fixed-size array or struct.
func (m *Module) IsCompositeType(typ ID) bool {
	switch m.TypeOpcode(typ) {
	case OpTypeVector, OpTypeMatrix, OpTypeArray, OpTypeStruct:
		return true
	}
	return false
}

// CompositeComponentCount returns the number of direct components of a composite type.
func (m *Module) CompositeComponentCount(typ ID) (uint32, bool) {
	inst := m.TypeInst(typ)
	if inst == nil {
		return 0, false
	}
	switch inst.Opcode {
	case OpTypeVector, OpTypeMatrix:
		return inst.Literal(1), true
	case OpTypeArray:
		return m.ConstantValue(inst.IDOperand(1))
	case OpTypeStruct:
		return uint32(len(inst.Operands)), true
	}
	return 0, false
}

// CompositeComponentType returns the type of the idx-th component of a composite type.
func (m *Module) CompositeComponentType(typ ID, idx uint32) ID {
	inst := m.TypeInst(typ)
	if inst == nil {
		return 0
	}
	n, ok := m.CompositeComponentCount(typ)
	if !ok || idx >= n {
		return 0
	}
	switch inst.Opcode {
	case OpTypeVector, OpTypeMatrix, OpTypeArray:
		return inst.IDOperand(0)
	case OpTypeStruct:
		return inst.IDOperand(int(idx))
	}
	return 0
}

// WalkIndices returns the type reached by following indices into typ, or 0.
func (m *Module) WalkIndices(typ ID, indices []uint32) ID {
	for _, idx := range indices {
		if !m.IsCompositeType(typ) {
			return 0
		}
		typ = m.CompositeComponentType(typ, idx)
		if typ == 0 {
			return 0
		}
	}
	return typ
}

// IsStorableType says if values of typ can be stored to and loaded from a variable.
// Opaque, pointer, function and runtime-array types (and aggregates containing
// them) are not storable.
func (m *Module) IsStorableType(typ ID) bool {
	inst := m.TypeInst(typ)
	if inst == nil {
		return false
	}
	switch inst.Opcode {
	case OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypeMatrix:
		return true
	case OpTypeArray:
		return m.IsStorableType(inst.IDOperand(0))
	case OpTypeStruct:
		for i := range inst.Operands {
			if !m.IsStorableType(inst.IDOperand(i)) {
				return false
			}
		}
		return true
	}
	return false
}

// PointerInfo returns storage class and pointee type of a pointer type.
func (m *Module) PointerInfo(typ ID) (StorageClass, ID, bool) {
	inst := m.TypeInst(typ)
	if inst == nil || inst.Opcode != OpTypePointer {
		return 0, 0, false
	}
	return StorageClass(inst.Literal(0)), inst.IDOperand(1), true
}

// FindType returns an existing type with exactly the given opcode and operands.
func (m *Module) FindType(op Opcode, operands ...Operand) ID {
	for _, inst := range m.Globals {
		if inst.Opcode == op && operandsEqual(inst.Operands, operands) {
			return inst.ResultID
		}
	}
	return 0
}

func (m *Module) FindPointerType(sc StorageClass, pointee ID) ID {
	return m.FindType(OpTypePointer, LiteralOperand(uint32(sc)), IDOperand(pointee))
}

// FindConstant returns an existing scalar constant with the given type and value.
func (m *Module) FindConstant(typ ID, op Opcode, value uint32) ID {
	for _, inst := range m.Globals {
		if inst.Opcode != op || inst.TypeID != typ {
			continue
		}
		if op == OpConstant && inst.Literal(0) != value {
			continue
		}
		return inst.ResultID
	}
	return 0
}

// FindZeroConstant returns a constant of type typ whose value is all zeros.
func (m *Module) FindZeroConstant(typ ID) ID {
	for _, inst := range m.Globals {
		if inst.TypeID != typ {
			continue
		}
		switch inst.Opcode {
		case OpConstantNull, OpConstantFalse:
			return inst.ResultID
		case OpConstant:
			if inst.Literal(0) == 0 {
				return inst.ResultID
			}
		}
	}
	return 0
}

// ConstantValue returns the literal value of a scalar OpConstant.
func (m *Module) ConstantValue(id ID) (uint32, bool) {
	inst := m.GlobalDef(id)
	if inst == nil || inst.Opcode != OpConstant || len(inst.Operands) != 1 {
		return 0, false
	}
	return inst.Literal(0), true
}

func operandsEqual(a, b []Operand) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
