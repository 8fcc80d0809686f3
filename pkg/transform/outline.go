// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package transform

import (
	"github.com/google/shaderfuzz/ir"
)

// OutlineFunction moves a single-entry single-exit region of a function into
// a new function and replaces the region with a call.
//
// The caller keeps a block labelled EntryBlock holding the call, extraction
// of the outputs from the returned struct (under their original ids) and the
// merge instruction and terminator of ExitBlock. Inside the new function the
// region entry is relabelled, inputs become parameters and outputs are
// defined under fresh ids. A region without outputs yields a void function.
type OutlineFunction struct {
	EntryBlock                    ir.ID           `json:"entry_block"`
	ExitBlock                     ir.ID           `json:"exit_block"`
	NewFunctionStructReturnTypeID ir.ID           `json:"new_function_struct_return_type_id"`
	NewFunctionTypeID             ir.ID           `json:"new_function_type_id"`
	NewFunctionID                 ir.ID           `json:"new_function_id"`
	NewFunctionRegionEntryBlock   ir.ID           `json:"new_function_region_entry_block"`
	NewCallerResultID             ir.ID           `json:"new_caller_result_id"`
	NewCalleeResultID             ir.ID           `json:"new_callee_result_id"`
	InputIDToFreshID              map[ir.ID]ir.ID `json:"input_id_to_fresh_id,omitempty"`
	OutputIDToFreshID             map[ir.ID]ir.ID `json:"output_id_to_fresh_id,omitempty"`
}

func init() {
	register("outline_function", func() Transformation { return new(OutlineFunction) })
}

// OutlineRegion returns blocks of fn dominated by entry and post-dominated by
// exit in function order, or nil if exit does not close a region started at entry.
func OutlineRegion(a *ir.Analysis, fn *ir.Function, entry, exit ir.ID) []*ir.BasicBlock {
	dom, pdom := a.Dominators(fn), a.PostDominators(fn)
	if !dom.Dominates(entry, exit) || !pdom.Dominates(exit, entry) {
		return nil
	}
	var region []*ir.BasicBlock
	for _, b := range fn.Blocks {
		if dom.Dominates(entry, b.ID()) && pdom.Dominates(exit, b.ID()) {
			region = append(region, b)
		}
	}
	return region
}

// OutlineExitCandidates returns blocks that can close a region started at
// entry: blocks on the immediate post-dominator chain of entry that entry
// dominates, entry itself included.
func OutlineExitCandidates(a *ir.Analysis, fn *ir.Function, entry ir.ID) []ir.ID {
	dom, pdom := a.Dominators(fn), a.PostDominators(fn)
	var res []ir.ID
	for b := entry; b != 0 && pdom.Contains(b); b = pdom.ImmediateDominator(b) {
		if dom.Dominates(entry, b) {
			res = append(res, b)
		}
	}
	return res
}

// regionInsts calls cb for every instruction of the region.
// The merge instruction and terminator of the exit block stay in the caller
// and are not part of the region.
func regionInsts(region []*ir.BasicBlock, exit ir.ID, cb func(b *ir.BasicBlock, inst *ir.Instruction)) {
	for _, b := range region {
		insts := b.Insts
		if b.ID() == exit {
			insts = insts[:len(insts)-exitTailLen(b)]
		}
		for _, inst := range insts {
			cb(b, inst)
		}
	}
}

func exitTailLen(b *ir.BasicBlock) int {
	if b.MergeInst() != nil {
		return 2
	}
	return 1
}

func forEachValueOperand(inst *ir.Instruction, cb func(id ir.ID)) {
	for i, op := range inst.Operands {
		if op.Kind != ir.OperandID {
			continue
		}
		switch {
		case inst.Opcode == ir.OpPhi && i%2 == 1,
			inst.Opcode == ir.OpFunctionCall && i == 0,
			inst.Opcode.IsMerge(),
			inst.Opcode == ir.OpBranch,
			inst.Opcode == ir.OpBranchConditional && i != 0:
			continue
		}
		cb(op.ID())
	}
}

// OutlineInputIDs returns ids used in the region but defined in fn outside
// of it, in the order of first use.
func OutlineInputIDs(a *ir.Analysis, fn *ir.Function, region []*ir.BasicBlock, exit ir.ID) []ir.ID {
	inRegion := blockSet(region)
	seen := make(map[ir.ID]bool)
	var res []ir.ID
	regionInsts(region, exit, func(_ *ir.BasicBlock, inst *ir.Instruction) {
		forEachValueOperand(inst, func(id ir.ID) {
			loc, ok := a.Location(id)
			if !ok || seen[id] || loc.Function != fn || inRegion[loc.Block] {
				return
			}
			seen[id] = true
			res = append(res, id)
		})
	})
	return res
}

// OutlineOutputIDs returns ids defined in the region that are used outside
// of it (including the exit block terminator), in definition order.
func OutlineOutputIDs(a *ir.Analysis, fn *ir.Function, region []*ir.BasicBlock, exit ir.ID) []ir.ID {
	inRegion := blockSet(region)
	exitBlock := fn.Block(exit)
	tail := make(map[*ir.Instruction]bool)
	if exitBlock != nil {
		for _, inst := range exitBlock.Insts[len(exitBlock.Insts)-exitTailLen(exitBlock):] {
			tail[inst] = true
		}
	}
	var res []ir.ID
	regionInsts(region, exit, func(_ *ir.BasicBlock, inst *ir.Instruction) {
		if inst.ResultID == 0 {
			return
		}
		for _, use := range a.Uses(inst.ResultID) {
			if use.Operand == -1 {
				continue
			}
			if !inRegion[use.Block] || tail[use.Inst] {
				res = append(res, inst.ResultID)
				return
			}
		}
	})
	return res
}

func blockSet(blocks []*ir.BasicBlock) map[*ir.BasicBlock]bool {
	res := make(map[*ir.BasicBlock]bool)
	for _, b := range blocks {
		res[b] = true
	}
	return res
}

// outlineInfo is the region analysis shared by IsApplicable and Apply.
type outlineInfo struct {
	fn      *ir.Function
	region  []*ir.BasicBlock
	inputs  []ir.ID
	outputs []ir.ID
}

func (t *OutlineFunction) analyze(m *ir.Module, ctx *Context) *outlineInfo {
	fn, entry := m.BlockFunction(t.EntryBlock)
	fn1, exit := m.BlockFunction(t.ExitBlock)
	if fn == nil || fn != fn1 {
		return nil
	}
	a := ir.Analyze(m)
	region := OutlineRegion(a, fn, entry.ID(), exit.ID())
	if region == nil || entry.IsLoopHeader() || exit.IsLoopHeader() {
		return nil
	}
	switch entry.Insts[0].Opcode {
	case ir.OpPhi, ir.OpVariable:
		return nil
	}
	inRegion := blockSet(region)
	preds := fn.Predecessors()
	for _, b := range region {
		for _, p := range preds[b.ID()] {
			if inRegion[fn.Block(p)] == (b == entry) {
				// Edges into the region must target the entry,
				// and the entry can't be reached from inside.
				return nil
			}
		}
		if b != exit {
			for _, s := range b.Successors() {
				if !inRegion[fn.Block(s)] {
					return nil
				}
			}
			if b.Terminator().Opcode.IsFunctionExit() {
				return nil
			}
		} else {
			for _, s := range b.Successors() {
				if inRegion[fn.Block(s)] {
					return nil
				}
			}
		}
		for _, inst := range b.Insts {
			if inst.Opcode == ir.OpVariable {
				return nil
			}
		}
	}
	for _, b := range fn.Blocks {
		merge := b.MergeInst()
		if merge == nil || b == exit {
			continue
		}
		for _, target := range []ir.ID{b.MergeBlock(), b.ContinueTarget()} {
			if target == 0 {
				continue
			}
			targetIn := inRegion[fn.Block(target)]
			if inRegion[b] && !targetIn {
				return nil
			}
			if !inRegion[b] && targetIn && target != entry.ID() {
				return nil
			}
		}
	}
	info := &outlineInfo{
		fn:      fn,
		region:  region,
		inputs:  OutlineInputIDs(a, fn, region, exit.ID()),
		outputs: OutlineOutputIDs(a, fn, region, exit.ID()),
	}
	for _, id := range info.inputs {
		if !a.IsAvailableBefore(fn, entry, 0, id) {
			return nil
		}
		if sc, _, ok := m.PointerInfo(a.TypeOf(id)); ok && !ctx.ValidatorOptions.RelaxLogicalPointer &&
			sc != ir.StorageFunction && sc != ir.StoragePrivate {
			return nil
		}
	}
	for _, id := range info.outputs {
		if _, _, ok := m.PointerInfo(a.TypeOf(id)); ok {
			return nil
		}
	}
	return info
}

func (t *OutlineFunction) IsApplicable(m *ir.Module, ctx *Context) bool {
	fresh := []ir.ID{t.NewFunctionStructReturnTypeID, t.NewFunctionTypeID, t.NewFunctionID,
		t.NewFunctionRegionEntryBlock, t.NewCallerResultID, t.NewCalleeResultID}
	for _, id := range t.InputIDToFreshID {
		fresh = append(fresh, id)
	}
	for _, id := range t.OutputIDToFreshID {
		fresh = append(fresh, id)
	}
	if !freshIDs(m, fresh...) {
		return false
	}
	info := t.analyze(m, ctx)
	if info == nil || !matchesIDs(t.InputIDToFreshID, info.inputs) || !matchesIDs(t.OutputIDToFreshID, info.outputs) {
		return false
	}
	return len(info.outputs) != 0 || m.FindType(ir.OpTypeVoid) != 0
}

func matchesIDs(mapping map[ir.ID]ir.ID, ids []ir.ID) bool {
	if len(mapping) != len(ids) {
		return false
	}
	for _, id := range ids {
		if _, ok := mapping[id]; !ok {
			return false
		}
	}
	return true
}

func (t *OutlineFunction) Apply(m *ir.Module, ctx *Context) {
	info := t.analyze(m, ctx)
	fn := info.fn
	typeOf := make(map[ir.ID]ir.ID)
	for _, id := range append(append([]ir.ID(nil), info.inputs...), info.outputs...) {
		typeOf[id] = m.TypeOf(id)
	}

	retType := m.FindType(ir.OpTypeVoid)
	if len(info.outputs) != 0 {
		var members []ir.Operand
		for _, id := range info.outputs {
			members = append(members, ir.IDOperand(typeOf[id]))
		}
		retType = t.NewFunctionStructReturnTypeID
		m.AddGlobal(ir.NewInstruction(ir.OpTypeStruct, 0, retType, members...))
	}
	fnTypeOps := []ir.Operand{ir.IDOperand(retType)}
	for _, id := range info.inputs {
		fnTypeOps = append(fnTypeOps, ir.IDOperand(typeOf[id]))
	}
	fnType := m.FindType(ir.OpTypeFunction, fnTypeOps...)
	if fnType == 0 {
		fnType = t.NewFunctionTypeID
		m.AddGlobal(ir.NewInstruction(ir.OpTypeFunction, 0, fnType, fnTypeOps...))
	}

	callee := &ir.Function{
		Def: ir.NewInstruction(ir.OpFunction, retType, t.NewFunctionID,
			ir.LiteralOperand(0), ir.IDOperand(fnType)),
	}
	remap := make(map[ir.ID]ir.ID)
	for _, id := range info.inputs {
		remap[id] = t.InputIDToFreshID[id]
		callee.Params = append(callee.Params, ir.NewInstruction(ir.OpFunctionParameter, typeOf[id], remap[id]))
	}
	for _, id := range info.outputs {
		remap[id] = t.OutputIDToFreshID[id]
	}

	entry, exit := fn.Block(t.EntryBlock), fn.Block(t.ExitBlock)
	tail := exit.Insts[len(exit.Insts)-exitTailLen(exit):]
	exit.Insts = exit.Insts[:len(exit.Insts)-len(tail)]

	caller := &ir.BasicBlock{Label: ir.NewLabel(entry.ID())}
	callOps := []ir.Operand{ir.IDOperand(t.NewFunctionID)}
	for _, id := range info.inputs {
		callOps = append(callOps, ir.IDOperand(id))
	}
	caller.Insts = append(caller.Insts, ir.NewInstruction(ir.OpFunctionCall, retType, t.NewCallerResultID, callOps...))
	for i, id := range info.outputs {
		caller.Insts = append(caller.Insts, ir.NewInstruction(ir.OpCompositeExtract, typeOf[id], id,
			ir.IDOperand(t.NewCallerResultID), ir.LiteralOperand(uint32(i))))
	}
	caller.Insts = append(caller.Insts, tail...)

	if len(info.outputs) != 0 {
		var members []ir.Operand
		for _, id := range info.outputs {
			members = append(members, ir.IDOperand(id))
		}
		exit.Insts = append(exit.Insts,
			ir.NewInstruction(ir.OpCompositeConstruct, retType, t.NewCalleeResultID, members...),
			ir.NewInstruction(ir.OpReturnValue, 0, 0, ir.IDOperand(t.NewCalleeResultID)))
	} else {
		exit.Insts = append(exit.Insts, ir.NewInstruction(ir.OpReturn, 0, 0))
	}
	entry.Label = ir.NewLabel(t.NewFunctionRegionEntryBlock)
	if entry != exit {
		for _, succ := range entry.Successors() {
			replacePhiPredecessor(fn.Block(succ), t.EntryBlock, t.NewFunctionRegionEntryBlock)
		}
	}
	for _, b := range info.region {
		for _, inst := range b.Insts {
			if to, ok := remap[inst.ResultID]; ok {
				inst.ResultID = to
			}
			inst.ForEachInOperand(func(id *ir.ID) {
				if to, ok := remap[*id]; ok {
					*id = to
				}
			})
		}
	}
	callee.Blocks = []*ir.BasicBlock{entry}
	for _, b := range info.region {
		if b != entry {
			callee.Blocks = append(callee.Blocks, b)
		}
	}

	inRegion := blockSet(info.region)
	var blocks []*ir.BasicBlock
	for _, b := range fn.Blocks {
		switch {
		case b == entry:
			blocks = append(blocks, caller)
		case !inRegion[b]:
			blocks = append(blocks, b)
		}
	}
	fn.Blocks = blocks
	for _, succ := range caller.Successors() {
		replacePhiPredecessor(fn.Block(succ), t.ExitBlock, caller.ID())
	}
	m.Functions = append(m.Functions, callee)
	for _, id := range []ir.ID{t.NewFunctionStructReturnTypeID, t.NewFunctionTypeID, t.NewFunctionID,
		t.NewFunctionRegionEntryBlock, t.NewCallerResultID, t.NewCalleeResultID} {
		m.UpdateBound(id)
	}
	for _, id := range remap {
		m.UpdateBound(id)
	}
}

func (t *OutlineFunction) ToRecord() Record {
	return makeRecord("outline_function", t)
}
