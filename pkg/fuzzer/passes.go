// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/transform"
)

// Composite types with more components are not constructed.
const maxCompositeComponents = 64

type constructComposites struct {
	*passBase
}

func (p *constructComposites) Apply() {
	var compositeTypes []ir.ID
	for _, inst := range p.m.Globals {
		if inst.Opcode.IsType() && p.m.IsCompositeType(inst.ResultID) {
			compositeTypes = append(compositeTypes, inst.ResultID)
		}
	}
	if len(compositeTypes) == 0 {
		return
	}
	p.ForEachInstructionWithInsertionPoint(func(fn *ir.Function, b *ir.BasicBlock, idx int,
		desc ir.InstructionDescriptor) {
		if !ir.CanInsertOpcodeBeforeInstruction(ir.OpCompositeConstruct, b, idx) ||
			!p.fctx.ChoosePercentage(p.fctx.ChanceOfConstructingComposite()) {
			return
		}
		byType := make(map[ir.ID][]ir.ID)
		for _, inst := range p.FindAvailableInstructions(fn, b, idx, nil) {
			byType[inst.TypeID] = append(byType[inst.TypeID], inst.ResultID)
		}
		types := append([]ir.ID(nil), compositeTypes...)
		p.fctx.Shuffle(len(types), func(i, j int) { types[i], types[j] = types[j], types[i] })
		for _, typ := range types {
			comps := p.findComponents(typ, byType)
			if comps == nil {
				continue
			}
			p.MaybeApplyTransformation(&transform.CompositeConstruct{
				CompositeTypeID: typ,
				Components:      comps,
				InsertBefore:    desc,
				FreshID:         p.fctx.GetFreshID(),
			})
			return
		}
	})
}

// findComponents picks available values to construct typ, or returns nil.
func (p *constructComposites) findComponents(typ ir.ID, byType map[ir.ID][]ir.ID) []ir.ID {
	n, ok := p.m.CompositeComponentCount(typ)
	if !ok || n == 0 || n > maxCompositeComponents {
		return nil
	}
	if p.m.TypeOpcode(typ) == ir.OpTypeVector {
		return p.findVectorComponents(typ, n, byType)
	}
	var comps []ir.ID
	for i := uint32(0); i < n; i++ {
		cands := byType[p.m.CompositeComponentType(typ, i)]
		if len(cands) == 0 {
			return nil
		}
		comps = append(comps, cands[p.fctx.RandomIndex(len(cands))])
	}
	return comps
}

// findVectorComponents fills the n slots of a vector with scalars and smaller
// vectors of the same element type, then shuffles the result so that wide
// pieces do not end up on the left.
func (p *constructComposites) findVectorComponents(typ ir.ID, n uint32, byType map[ir.ID][]ir.ID) []ir.ID {
	type piece struct {
		id    ir.ID
		width uint32
	}
	elem := p.m.CompositeComponentType(typ, 0)
	var pieces []piece
	for _, id := range byType[elem] {
		pieces = append(pieces, piece{id, 1})
	}
	for _, inst := range p.m.Globals {
		if inst.Opcode != ir.OpTypeVector || inst.IDOperand(0) != elem || inst.Literal(1) >= n {
			continue
		}
		for _, id := range byType[inst.ResultID] {
			pieces = append(pieces, piece{id, inst.Literal(1)})
		}
	}
	var comps []ir.ID
	for remaining := n; remaining > 0; {
		var fit []piece
		for _, pc := range pieces {
			if pc.width <= remaining {
				fit = append(fit, pc)
			}
		}
		if len(fit) == 0 {
			return nil
		}
		pc := fit[p.fctx.RandomIndex(len(fit))]
		comps = append(comps, pc.id)
		remaining -= pc.width
	}
	p.fctx.Shuffle(len(comps), func(i, j int) { comps[i], comps[j] = comps[j], comps[i] })
	return comps
}

type addCompositeExtract struct {
	*passBase
}

func (p *addCompositeExtract) Apply() {
	p.ForEachInstructionWithInsertionPoint(func(fn *ir.Function, b *ir.BasicBlock, idx int,
		desc ir.InstructionDescriptor) {
		if !ir.CanInsertOpcodeBeforeInstruction(ir.OpCompositeExtract, b, idx) ||
			!p.fctx.ChoosePercentage(p.fctx.ChanceOfAddingCompositeExtract()) {
			return
		}
		a := p.analyze()
		composites := a.FindAvailableInstructions(fn, b, idx, func(inst *ir.Instruction) bool {
			return p.m.IsCompositeType(inst.TypeID)
		})
		// Components of composites that are known to be synonymous with something.
		var synonyms []fact.DataDescriptor
		for _, d := range p.tctx.Facts.GetAllSynonyms() {
			if len(d.Index) != 0 && a.IsAvailableBefore(fn, b, idx, d.Object) &&
				p.m.WalkIndices(a.TypeOf(d.Object), d.Index) != 0 {
				synonyms = append(synonyms, d)
			}
		}
		if len(composites) == 0 && len(synonyms) == 0 {
			return
		}
		t := &transform.CompositeExtract{InsertBefore: desc}
		if len(synonyms) != 0 && (len(composites) == 0 || p.fctx.ChooseEven()) {
			d := synonyms[p.fctx.RandomIndex(len(synonyms))]
			t.CompositeID = d.Object
			t.Index = append([]uint32(nil), d.Index...)
		} else {
			c := composites[p.fctx.RandomIndex(len(composites))]
			t.CompositeID = c.ResultID
			t.Index = p.randomIndexPath(c.TypeID)
			if t.Index == nil {
				return
			}
		}
		t.FreshID = p.fctx.GetFreshID()
		p.MaybeApplyTransformation(t)
	})
}

// randomIndexPath descends into typ, going one level deeper with decaying probability.
func (p *addCompositeExtract) randomIndexPath(typ ir.ID) []uint32 {
	var path []uint32
	for depth := uint32(0); ; depth++ {
		n, ok := p.m.CompositeComponentCount(typ)
		if !ok || n == 0 {
			return path
		}
		i := p.fctx.RandomUint32(n)
		path = append(path, i)
		typ = p.m.CompositeComponentType(typ, i)
		if !p.m.IsCompositeType(typ) || !p.fctx.GoDeeperToExtractComposite(depth) {
			return path
		}
	}
}

type pushIdsThroughVariables struct {
	*passBase
}

func (p *pushIdsThroughVariables) Apply() {
	p.ForEachInstructionWithInsertionPoint(func(fn *ir.Function, b *ir.BasicBlock, idx int,
		desc ir.InstructionDescriptor) {
		if !ir.CanInsertOpcodeBeforeInstruction(ir.OpStore, b, idx) ||
			!ir.CanInsertOpcodeBeforeInstruction(ir.OpLoad, b, idx) ||
			!p.fctx.ChoosePercentage(p.fctx.ChanceOfPushingIdThroughVariable()) {
			return
		}
		a := p.analyze()
		if !a.Dominators(fn).Contains(b.ID()) {
			return
		}
		var types []ir.ID
		byType := make(map[ir.ID][]ir.ID)
		for _, inst := range a.FindAvailableInstructions(fn, b, idx, func(inst *ir.Instruction) bool {
			return p.m.IsStorableType(inst.TypeID)
		}) {
			if byType[inst.TypeID] == nil {
				types = append(types, inst.TypeID)
			}
			byType[inst.TypeID] = append(byType[inst.TypeID], inst.ResultID)
		}
		if len(types) == 0 {
			return
		}
		typ := types[p.fctx.RandomIndex(len(types))]
		value := byType[typ][p.fctx.RandomIndex(len(byType[typ]))]
		sc := ir.StorageFunction
		if p.fctx.ChoosePercentage(p.fctx.ChanceOfChoosingPrivateStorage()) {
			sc = ir.StoragePrivate
		}
		if p.FindOrCreatePointerType(sc, typ) == 0 {
			return
		}
		init := p.FindOrCreateZeroConstant(typ)
		if init == 0 {
			return
		}
		p.MaybeApplyTransformation(&transform.PushIdThroughVariable{
			ValueID:        value,
			ValueSynonymID: p.fctx.GetFreshID(),
			VariableID:     p.fctx.GetFreshID(),
			StorageClass:   sc,
			InitializerID:  init,
			InsertBefore:   desc,
		})
	})
}

type outlineFunctions struct {
	*passBase
}

func (p *outlineFunctions) Apply() {
	for _, fn := range append([]*ir.Function(nil), p.m.Functions...) {
		if p.exhausted() {
			return
		}
		if !p.fctx.ChoosePercentage(p.fctx.ChanceOfOutliningFunction()) {
			continue
		}
		b := fn.Blocks[p.fctx.RandomIndex(len(fn.Blocks))]
		if b.IsLoopHeader() {
			if b = p.loopEntry(fn, b); b == nil {
				continue
			}
		}
		entry := p.prepareEntry(b)
		if entry == 0 {
			continue
		}
		a := p.analyze()
		exits := transform.OutlineExitCandidates(a, fn, entry)
		if len(exits) == 0 {
			continue
		}
		exit := exits[p.fctx.RandomIndex(len(exits))]
		region := transform.OutlineRegion(a, fn, entry, exit)
		if region == nil {
			continue
		}
		inputs := transform.OutlineInputIDs(a, fn, region, exit)
		outputs := transform.OutlineOutputIDs(a, fn, region, exit)
		if len(outputs) == 0 && p.FindOrCreateVoidType() == 0 {
			continue
		}
		t := &transform.OutlineFunction{
			EntryBlock:                    entry,
			ExitBlock:                     exit,
			NewFunctionStructReturnTypeID: p.fctx.GetFreshID(),
			NewFunctionTypeID:             p.fctx.GetFreshID(),
			NewFunctionID:                 p.fctx.GetFreshID(),
			NewFunctionRegionEntryBlock:   p.fctx.GetFreshID(),
			NewCallerResultID:             p.fctx.GetFreshID(),
			NewCalleeResultID:             p.fctx.GetFreshID(),
		}
		if len(inputs) != 0 {
			t.InputIDToFreshID = make(map[ir.ID]ir.ID)
			for _, id := range inputs {
				t.InputIDToFreshID[id] = p.fctx.GetFreshID()
			}
		}
		if len(outputs) != 0 {
			t.OutputIDToFreshID = make(map[ir.ID]ir.ID)
			for _, id := range outputs {
				t.OutputIDToFreshID[id] = p.fctx.GetFreshID()
			}
		}
		p.MaybeApplyTransformation(t)
	}
}

// loopEntry returns a block that can start a region containing the loop
// headed by header. That is the preheader if it ends in an unconditional
// branch. Otherwise the merge instruction and terminator of the immediate
// dominator of header are split off into a fresh block. Returns nil on failure.
func (p *outlineFunctions) loopEntry(fn *ir.Function, header *ir.BasicBlock) *ir.BasicBlock {
	dom := p.analyze().Dominators(fn)
	var preds []ir.ID
	for _, pred := range fn.Predecessors()[header.ID()] {
		// Back edges come from blocks dominated by the header.
		if !dom.Dominates(header.ID(), pred) {
			preds = append(preds, pred)
		}
	}
	if len(preds) == 1 {
		pre := fn.Block(preds[0])
		if !pre.IsLoopHeader() && pre.Terminator().Opcode == ir.OpBranch {
			return pre
		}
	}
	idom := fn.Block(dom.ImmediateDominator(header.ID()))
	if idom == nil || idom.IsLoopHeader() || p.exhausted() {
		return nil
	}
	idx := len(idom.Insts) - 1
	if idom.MergeInst() != nil {
		idx--
	}
	split := &transform.SplitBlock{
		SplitBefore: ir.MakeInstructionDescriptor(idom, idx),
		FreshID:     p.fctx.GetFreshID(),
	}
	if !p.MaybeApplyTransformation(split) {
		return nil
	}
	return fn.Block(split.FreshID)
}

// prepareEntry returns a block that starts with b's first instruction that is
// neither a phi nor a variable, splitting b if necessary. Returns 0 on failure.
func (p *outlineFunctions) prepareEntry(b *ir.BasicBlock) ir.ID {
	idx := 0
	for idx < len(b.Insts) && (b.Insts[idx].Opcode == ir.OpPhi || b.Insts[idx].Opcode == ir.OpVariable) {
		idx++
	}
	if idx == 0 {
		return b.ID()
	}
	split := &transform.SplitBlock{
		SplitBefore: ir.MakeInstructionDescriptor(b, idx),
		FreshID:     p.fctx.GetFreshID(),
	}
	if !p.MaybeApplyTransformation(split) {
		return 0
	}
	return split.FreshID
}

type splitBlocks struct {
	*passBase
}

// Apply chooses split points first and applies them afterwards.
// Descriptors stay valid because a split never moves the other split points
// to a different base instruction.
func (p *splitBlocks) Apply() {
	var splits []*transform.SplitBlock
	for _, fn := range p.m.Functions {
		for _, b := range fn.Blocks {
			if b.IsLoopHeader() || !p.fctx.ChoosePercentage(p.fctx.ChanceOfSplittingBlock()) {
				continue
			}
			var cands []int
			for idx, inst := range b.Insts {
				if inst.Opcode == ir.OpPhi || inst.Opcode == ir.OpVariable ||
					idx > 0 && b.Insts[idx-1].Opcode.IsMerge() {
					continue
				}
				cands = append(cands, idx)
			}
			if len(cands) == 0 {
				continue
			}
			splits = append(splits, &transform.SplitBlock{
				SplitBefore: ir.MakeInstructionDescriptor(b, cands[p.fctx.RandomIndex(len(cands))]),
				FreshID:     p.fctx.GetFreshID(),
			})
		}
	}
	for _, t := range splits {
		p.MaybeApplyTransformation(t)
	}
}

type mergeBlocks struct {
	*passBase
}

func (p *mergeBlocks) Apply() {
	var merges []*transform.MergeBlocks
	for _, fn := range p.m.Functions {
		for _, b := range fn.Blocks {
			t := &transform.MergeBlocks{BlockID: b.ID()}
			if t.IsApplicable(p.m, p.tctx) && p.fctx.ChoosePercentage(p.fctx.ChanceOfMergingBlocks()) {
				merges = append(merges, t)
			}
		}
	}
	for _, t := range merges {
		p.MaybeApplyTransformation(t)
	}
}
