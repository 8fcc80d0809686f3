// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package transform

import (
	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/fact"
)

// CompositeConstruct builds a value of a composite type out of available
// component values. Vectors may be built from smaller vectors of the same
// element type.
type CompositeConstruct struct {
	CompositeTypeID ir.ID                    `json:"composite_type_id"`
	Components      []ir.ID                  `json:"components"`
	InsertBefore    ir.InstructionDescriptor `json:"insert_before"`
	FreshID         ir.ID                    `json:"fresh_id"`
}

func init() {
	register("composite_construct", func() Transformation { return new(CompositeConstruct) })
	register("composite_extract", func() Transformation { return new(CompositeExtract) })
}

func (t *CompositeConstruct) IsApplicable(m *ir.Module, ctx *Context) bool {
	if !m.IsFreshID(t.FreshID) || !m.IsCompositeType(t.CompositeTypeID) {
		return false
	}
	fn, b, idx, ok := insertionPoint(m, t.InsertBefore, ir.OpCompositeConstruct)
	if !ok {
		return false
	}
	a := ir.Analyze(m)
	for _, c := range t.Components {
		if !a.IsAvailableBefore(fn, b, idx, c) {
			return false
		}
	}
	return ComponentsMatchType(m, a, t.CompositeTypeID, t.Components)
}

// ComponentsMatchType says if comps have exactly the types needed to construct typ.
func ComponentsMatchType(m *ir.Module, a *ir.Analysis, typ ir.ID, comps []ir.ID) bool {
	n, ok := m.CompositeComponentCount(typ)
	if !ok {
		return false
	}
	if m.TypeOpcode(typ) == ir.OpTypeVector {
		elem := m.CompositeComponentType(typ, 0)
		total := uint32(0)
		for _, c := range comps {
			ct := a.TypeOf(c)
			switch {
			case ct == elem:
				total++
			case m.TypeOpcode(ct) == ir.OpTypeVector && m.CompositeComponentType(ct, 0) == elem:
				cnt, _ := m.CompositeComponentCount(ct)
				total += cnt
			default:
				return false
			}
		}
		return total == n && len(comps) >= 2
	}
	if uint32(len(comps)) != n {
		return false
	}
	for i, c := range comps {
		if a.TypeOf(c) != m.CompositeComponentType(typ, uint32(i)) {
			return false
		}
	}
	return true
}

func (t *CompositeConstruct) Apply(m *ir.Module, ctx *Context) {
	_, b, idx := mustFind(m, t.InsertBefore)
	var ops []ir.Operand
	for _, c := range t.Components {
		ops = append(ops, ir.IDOperand(c))
	}
	b.InsertBefore(idx, ir.NewInstruction(ir.OpCompositeConstruct, t.CompositeTypeID, t.FreshID, ops...))
	m.UpdateBound(t.FreshID)
}

func (t *CompositeConstruct) ToRecord() Record {
	return makeRecord("composite_construct", t)
}

// CompositeExtract extracts a (possibly nested) component of an available
// composite into a fresh id and records that both are synonymous.
type CompositeExtract struct {
	FreshID      ir.ID                    `json:"fresh_id"`
	InsertBefore ir.InstructionDescriptor `json:"insert_before"`
	CompositeID  ir.ID                    `json:"composite_id"`
	Index        []uint32                 `json:"index"`
}

func (t *CompositeExtract) IsApplicable(m *ir.Module, ctx *Context) bool {
	if !m.IsFreshID(t.FreshID) || len(t.Index) == 0 {
		return false
	}
	fn, b, idx, ok := insertionPoint(m, t.InsertBefore, ir.OpCompositeExtract)
	if !ok {
		return false
	}
	a := ir.Analyze(m)
	if !a.IsAvailableBefore(fn, b, idx, t.CompositeID) {
		return false
	}
	return m.WalkIndices(a.TypeOf(t.CompositeID), t.Index) != 0
}

func (t *CompositeExtract) Apply(m *ir.Module, ctx *Context) {
	_, b, idx := mustFind(m, t.InsertBefore)
	typ := m.WalkIndices(m.TypeOf(t.CompositeID), t.Index)
	ops := []ir.Operand{ir.IDOperand(t.CompositeID)}
	for _, i := range t.Index {
		ops = append(ops, ir.LiteralOperand(i))
	}
	b.InsertBefore(idx, ir.NewInstruction(ir.OpCompositeExtract, typ, t.FreshID, ops...))
	m.UpdateBound(t.FreshID)
	if ctx.Facts.IDIsIrrelevant(t.CompositeID) {
		ctx.Facts.AddFactIDIsIrrelevant(t.FreshID)
		return
	}
	ctx.Facts.AddFactDataSynonym(fact.MakeDataDescriptor(t.FreshID),
		fact.MakeDataDescriptor(t.CompositeID, t.Index...))
}

func (t *CompositeExtract) ToRecord() Record {
	return makeRecord("composite_extract", t)
}
