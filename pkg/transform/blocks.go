// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package transform

import (
	"github.com/google/shaderfuzz/ir"
)

// SplitBlock splits a block so that the described instruction starts a new
// block labelled FreshID. The first half ends with a branch to the second.
type SplitBlock struct {
	SplitBefore ir.InstructionDescriptor `json:"split_before"`
	FreshID     ir.ID                    `json:"fresh_id"`
}

func init() {
	register("split_block", func() Transformation { return new(SplitBlock) })
	register("merge_blocks", func() Transformation { return new(MergeBlocks) })
}

func (t *SplitBlock) IsApplicable(m *ir.Module, ctx *Context) bool {
	if !m.IsFreshID(t.FreshID) {
		return false
	}
	_, b, idx, ok := ir.FindInstruction(m, t.SplitBefore)
	if !ok {
		return false
	}
	switch b.Insts[idx].Opcode {
	case ir.OpPhi, ir.OpVariable:
		return false
	}
	if idx > 0 && b.Insts[idx-1].Opcode.IsMerge() {
		return false
	}
	// The header would lose its back edges to the new block.
	return !b.IsLoopHeader()
}

func (t *SplitBlock) Apply(m *ir.Module, ctx *Context) {
	fn, b, idx := mustFind(m, t.SplitBefore)
	tail := &ir.BasicBlock{
		Label: ir.NewLabel(t.FreshID),
		Insts: append([]*ir.Instruction(nil), b.Insts[idx:]...),
	}
	b.Insts = append(b.Insts[:idx:idx], ir.NewInstruction(ir.OpBranch, 0, 0, ir.IDOperand(t.FreshID)))
	pos := fn.BlockIndex(b.ID())
	fn.Blocks = append(fn.Blocks[:pos+1], append([]*ir.BasicBlock{tail}, fn.Blocks[pos+1:]...)...)
	for _, succ := range tail.Successors() {
		replacePhiPredecessor(fn.Block(succ), b.ID(), t.FreshID)
	}
	m.UpdateBound(t.FreshID)
}

func (t *SplitBlock) ToRecord() Record {
	return makeRecord("split_block", t)
}

// replacePhiPredecessor rewrites incoming block from into to in phis of b.
func replacePhiPredecessor(b *ir.BasicBlock, from, to ir.ID) {
	if b == nil {
		return
	}
	for _, inst := range b.Insts {
		if inst.Opcode != ir.OpPhi {
			break
		}
		for i := 1; i < len(inst.Operands); i += 2 {
			if inst.IDOperand(i) == from {
				inst.Operands[i] = ir.IDOperand(to)
			}
		}
	}
}

// MergeBlocks merges a block into its unique predecessor that branches to it
// unconditionally.
type MergeBlocks struct {
	BlockID ir.ID `json:"block_id"`
}

func (t *MergeBlocks) IsApplicable(m *ir.Module, ctx *Context) bool {
	fn, b := m.BlockFunction(t.BlockID)
	if fn == nil || b == fn.Entry() || b.IsLoopHeader() {
		return false
	}
	preds := fn.Predecessors()[b.ID()]
	if len(preds) != 1 || preds[0] == b.ID() {
		return false
	}
	pred := fn.Block(preds[0])
	if term := pred.Terminator(); term == nil || term.Opcode != ir.OpBranch {
		return false
	}
	if !fn.Dominators().Contains(pred.ID()) {
		return false
	}
	if pred.MergeInst() != nil && b.MergeInst() != nil {
		return false
	}
	if pred.IsLoopHeader() {
		if op := b.Terminator().Opcode; op != ir.OpBranch && op != ir.OpBranchConditional {
			return false
		}
	}
	for _, b1 := range fn.Blocks {
		if b1.MergeBlock() == b.ID() || b1.ContinueTarget() == b.ID() {
			return false
		}
	}
	return true
}

func (t *MergeBlocks) Apply(m *ir.Module, ctx *Context) {
	fn, b := m.BlockFunction(t.BlockID)
	pred := fn.Block(fn.Predecessors()[b.ID()][0])
	var body []*ir.Instruction
	for _, inst := range b.Insts {
		if inst.Opcode == ir.OpPhi {
			// A single predecessor means a single incoming value.
			m.ReplaceAllUses(inst.ResultID, inst.IDOperand(0))
			continue
		}
		body = append(body, inst)
	}
	// pred either ends with OpBranch or with OpLoopMerge+OpBranch,
	// the merge instruction must stay right before the new terminator.
	merge := pred.MergeInst()
	keep := len(pred.Insts) - 1
	if merge != nil {
		keep--
	}
	insts := append([]*ir.Instruction(nil), pred.Insts[:keep]...)
	insts = append(insts, body[:len(body)-1]...)
	if merge != nil {
		insts = append(insts, merge)
	}
	insts = append(insts, body[len(body)-1])
	pred.Insts = insts
	fn.Blocks = append(fn.Blocks[:fn.BlockIndex(b.ID())], fn.Blocks[fn.BlockIndex(b.ID())+1:]...)
	for _, succ := range pred.Successors() {
		replacePhiPredecessor(fn.Block(succ), b.ID(), pred.ID())
	}
}

func (t *MergeBlocks) ToRecord() Record {
	return makeRecord("merge_blocks", t)
}
