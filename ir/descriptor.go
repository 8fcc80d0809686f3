// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

import (
	"fmt"
)

// InstructionDescriptor names an instruction position in a way that survives
// insertion of other instructions: the position is the NumOpcodesToIgnore+1-th
// instruction with opcode TargetInstructionOpcode found by scanning forward
// from the instruction with result id BaseInstructionResultID (or from the start
// of the block if the base is a block label).
type InstructionDescriptor struct {
	BaseInstructionResultID ID     `json:"base"`
	TargetInstructionOpcode Opcode `json:"target"`
	NumOpcodesToIgnore      uint32 `json:"skip"`
}

func (d InstructionDescriptor) String() string {
	return fmt.Sprintf("%v+%v#%v", d.BaseInstructionResultID, d.TargetInstructionOpcode, d.NumOpcodesToIgnore)
}

// MakeInstructionDescriptor describes b.Insts[idx] relative to the closest
// preceding instruction with a result id (the instruction itself included).
func MakeInstructionDescriptor(b *BasicBlock, idx int) InstructionDescriptor {
	target := b.Insts[idx]
	skip := uint32(0)
	for i := idx; i >= 0; i-- {
		inst := b.Insts[i]
		if inst.ResultID != 0 {
			return InstructionDescriptor{
				BaseInstructionResultID: inst.ResultID,
				TargetInstructionOpcode: target.Opcode,
				NumOpcodesToIgnore:      skip,
			}
		}
		if i != idx && inst.Opcode == target.Opcode {
			skip++
		}
	}
	return InstructionDescriptor{
		BaseInstructionResultID: b.ID(),
		TargetInstructionOpcode: target.Opcode,
		NumOpcodesToIgnore:      skip,
	}
}

// FindInstruction resolves a descriptor to a function, block and instruction index.
func FindInstruction(m *Module, d InstructionDescriptor) (*Function, *BasicBlock, int, bool) {
	if d.BaseInstructionResultID == 0 {
		return nil, nil, 0, false
	}
	for _, fn := range m.Functions {
		for _, b := range fn.Blocks {
			start := -1
			if b.ID() == d.BaseInstructionResultID {
				start = 0
			} else {
				for i, inst := range b.Insts {
					if inst.ResultID == d.BaseInstructionResultID {
						start = i
						break
					}
				}
			}
			if start == -1 {
				continue
			}
			skipped := uint32(0)
			for i := start; i < len(b.Insts); i++ {
				if b.Insts[i].Opcode != d.TargetInstructionOpcode {
					continue
				}
				if skipped == d.NumOpcodesToIgnore {
					return fn, b, i, true
				}
				skipped++
			}
			return nil, nil, 0, false
		}
	}
	return nil, nil, 0, false
}
