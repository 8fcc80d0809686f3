// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

// IsAvailableBefore says if the value id can be used as an operand of an
// instruction inserted before b.Insts[idx] (idx == len(b.Insts) means the end
// of the block, after the terminator, which is used for phi operands).
// Values defined in unreachable blocks are only available later in the same block.
func (a *Analysis) IsAvailableBefore(fn *Function, b *BasicBlock, idx int, id ID) bool {
	if !a.IsValue(id) {
		return false
	}
	loc := a.locs[id]
	if loc.Function == nil {
		return true
	}
	if loc.Function != fn {
		return false
	}
	if loc.Block == nil {
		// Function parameter.
		return true
	}
	if loc.Block == b {
		return loc.Index < idx
	}
	return a.Dominators(fn).StrictlyDominates(loc.Block.ID(), b.ID())
}

// FindAvailableInstructions returns all value-producing instructions that are
// available before b.Insts[idx] and satisfy pred (if not nil).
// The result is in module order: globals, parameters, then function blocks.
func (a *Analysis) FindAvailableInstructions(fn *Function, b *BasicBlock, idx int,
	pred func(inst *Instruction) bool) []*Instruction {
	var res []*Instruction
	add := func(inst *Instruction) {
		if inst.ResultID == 0 || !a.IsValue(inst.ResultID) || a.defs[inst.ResultID] != inst {
			return
		}
		if pred == nil || pred(inst) {
			res = append(res, inst)
		}
	}
	for _, inst := range a.Module.Globals {
		add(inst)
	}
	for _, p := range fn.Params {
		add(p)
	}
	dom := a.Dominators(fn)
	for _, b1 := range fn.Blocks {
		switch {
		case b1 == b:
			for i := 0; i < idx && i < len(b.Insts); i++ {
				add(b.Insts[i])
			}
		case dom.StrictlyDominates(b1.ID(), b.ID()):
			for _, inst := range b1.Insts {
				add(inst)
			}
		}
	}
	return res
}

// CanInsertOpcodeBeforeInstruction says if an instruction with opcode op can be
// inserted right before b.Insts[idx] without breaking block structure rules:
// phis stay at the block start, variables stay at the start of the entry block
// and nothing goes between a merge instruction and its terminator.
func CanInsertOpcodeBeforeInstruction(op Opcode, b *BasicBlock, idx int) bool {
	if idx < 0 || idx >= len(b.Insts) {
		return false
	}
	target := b.Insts[idx]
	if op == OpPhi {
		return idx == 0 || b.Insts[idx-1].Opcode == OpPhi
	}
	if target.Opcode == OpPhi {
		return false
	}
	if op == OpVariable {
		return idx == 0 || b.Insts[idx-1].Opcode == OpVariable
	}
	if target.Opcode == OpVariable {
		return false
	}
	if idx > 0 && b.Insts[idx-1].Opcode.IsMerge() {
		return false
	}
	return op.IsBody() && !op.IsTerminator() && !op.IsMerge()
}
