// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package transform

import (
	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/fact"
)

// PushIdThroughVariable stores a value into a fresh variable and loads it
// back into a fresh id that is synonymous with the value.
type PushIdThroughVariable struct {
	ValueID        ir.ID                    `json:"value_id"`
	ValueSynonymID ir.ID                    `json:"value_synonym_id"`
	VariableID     ir.ID                    `json:"variable_id"`
	StorageClass   ir.StorageClass          `json:"storage_class"`
	InitializerID  ir.ID                    `json:"initializer_id"`
	InsertBefore   ir.InstructionDescriptor `json:"insert_before"`
}

func init() {
	register("push_id_through_variable", func() Transformation { return new(PushIdThroughVariable) })
}

func (t *PushIdThroughVariable) IsApplicable(m *ir.Module, ctx *Context) bool {
	if !freshIDs(m, t.ValueSynonymID, t.VariableID) {
		return false
	}
	if t.StorageClass != ir.StorageFunction && t.StorageClass != ir.StoragePrivate {
		return false
	}
	fn, b, idx, ok := insertionPoint(m, t.InsertBefore, ir.OpStore, ir.OpLoad)
	if !ok {
		return false
	}
	a := ir.Analyze(m)
	// The variable must be available at the store, which does not hold
	// for unreachable blocks.
	if !a.Dominators(fn).Contains(b.ID()) {
		return false
	}
	if !a.IsAvailableBefore(fn, b, idx, t.ValueID) {
		return false
	}
	typ := a.TypeOf(t.ValueID)
	if !m.IsStorableType(typ) || m.FindPointerType(t.StorageClass, typ) == 0 {
		return false
	}
	init := m.GlobalDef(t.InitializerID)
	return init != nil && init.Opcode.IsConstant() && init.TypeID == typ
}

func (t *PushIdThroughVariable) Apply(m *ir.Module, ctx *Context) {
	fn, b, idx := mustFind(m, t.InsertBefore)
	typ := m.TypeOf(t.ValueID)
	ptr := m.FindPointerType(t.StorageClass, typ)
	b.InsertBefore(idx,
		ir.NewInstruction(ir.OpStore, 0, 0, ir.IDOperand(t.VariableID), ir.IDOperand(t.ValueID)),
		ir.NewInstruction(ir.OpLoad, typ, t.ValueSynonymID, ir.IDOperand(t.VariableID)),
	)
	variable := ir.NewInstruction(ir.OpVariable, ptr, t.VariableID,
		ir.LiteralOperand(uint32(t.StorageClass)), ir.IDOperand(t.InitializerID))
	if t.StorageClass == ir.StorageFunction {
		fn.Entry().InsertBefore(0, variable)
	} else {
		m.AddGlobal(variable)
	}
	m.UpdateBound(t.VariableID)
	m.UpdateBound(t.ValueSynonymID)
	if !ctx.Facts.IDIsIrrelevant(t.ValueID) {
		ctx.Facts.AddFactDataSynonym(fact.MakeDataDescriptor(t.ValueSynonymID), fact.MakeDataDescriptor(t.ValueID))
	}
}

func (t *PushIdThroughVariable) ToRecord() Record {
	return makeRecord("push_id_through_variable", t)
}
