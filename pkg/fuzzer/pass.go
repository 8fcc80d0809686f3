// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"fmt"
	"sort"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/log"
	"github.com/google/shaderfuzz/pkg/transform"
)

// Pass scans the module and applies transformations of one kind at randomly
// chosen sites. A pass that finds no opportunities is not an error.
type Pass interface {
	Name() string
	Apply()
}

var debug = false // enabled in tests

var passCtors = map[string]func(base *passBase) Pass{
	"construct_composites":       func(base *passBase) Pass { return &constructComposites{base} },
	"add_composite_extract":      func(base *passBase) Pass { return &addCompositeExtract{base} },
	"push_ids_through_variables": func(base *passBase) Pass { return &pushIdsThroughVariables{base} },
	"outline_functions":          func(base *passBase) Pass { return &outlineFunctions{base} },
	"split_blocks":               func(base *passBase) Pass { return &splitBlocks{base} },
	"merge_blocks":               func(base *passBase) Pass { return &mergeBlocks{base} },
}

// defaultPasses is the pipeline order.
var defaultPasses = []string{
	"split_blocks",
	"construct_composites",
	"add_composite_extract",
	"push_ids_through_variables",
	"outline_functions",
	"merge_blocks",
}

func PassNames() []string {
	var res []string
	for name := range passCtors {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// NewPass creates the named pass. Transformations it applies are appended to seq.
func NewPass(name string, m *ir.Module, tctx *transform.Context, fctx *Context,
	seq *transform.Sequence) (Pass, error) {
	return newPass(name, m, tctx, fctx, seq, -1)
}

func newPass(name string, m *ir.Module, tctx *transform.Context, fctx *Context,
	seq *transform.Sequence, limit int) (Pass, error) {
	ctor := passCtors[name]
	if ctor == nil {
		return nil, fmt.Errorf("unknown pass %q", name)
	}
	return ctor(&passBase{
		name:  name,
		m:     m,
		tctx:  tctx,
		fctx:  fctx,
		seq:   seq,
		limit: limit,
	}), nil
}

type passBase struct {
	name  string
	m     *ir.Module
	tctx  *transform.Context
	fctx  *Context
	seq   *transform.Sequence
	limit int // max sequence length, -1 if unlimited

	// Analysis of the current module, reset by every applied transformation.
	analysis *ir.Analysis
}

func (p *passBase) Name() string {
	return p.name
}

func (p *passBase) analyze() *ir.Analysis {
	if p.analysis == nil {
		p.analysis = ir.Analyze(p.m)
	}
	return p.analysis
}

func (p *passBase) exhausted() bool {
	return p.limit >= 0 && p.seq.Len() >= p.limit
}

// ApplyTransformation applies t that is known to be applicable and records it.
func (p *passBase) ApplyTransformation(t transform.Transformation) {
	transform.ApplyChecked(t, p.m, p.tctx)
	p.analysis = nil
	p.seq.Append(t)
	if log.V(2) {
		log.Logf(2, "%v: applied %v", p.name, t.ToRecord())
	}
	if debug {
		if err := ir.Validate(p.m, p.tctx.ValidatorOptions); err != nil {
			panic(log.CrashReport("%v: module is invalid after %v: %v", p.name, t.ToRecord(), err))
		}
	}
}

// MaybeApplyTransformation applies t if the step budget allows it and t is applicable.
func (p *passBase) MaybeApplyTransformation(t transform.Transformation) bool {
	if p.exhausted() || !t.IsApplicable(p.m, p.tctx) {
		return false
	}
	p.ApplyTransformation(t)
	return true
}

// ForEachInstructionWithInsertionPoint calls cb for every instruction present
// when the scan starts, in module order. cb receives the current position of
// the instruction and its descriptor, and may insert instructions before it.
// The scan of a block stops if the instruction moved to another block.
func (p *passBase) ForEachInstructionWithInsertionPoint(
	cb func(fn *ir.Function, b *ir.BasicBlock, idx int, desc ir.InstructionDescriptor)) {
	for _, fn := range append([]*ir.Function(nil), p.m.Functions...) {
		for _, b := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
			for _, inst := range append([]*ir.Instruction(nil), b.Insts...) {
				if p.exhausted() {
					return
				}
				idx := b.IndexOf(inst)
				if idx < 0 {
					break
				}
				cb(fn, b, idx, ir.MakeInstructionDescriptor(b, idx))
			}
		}
	}
}

// FindAvailableInstructions returns values that can be used before b.Insts[idx].
func (p *passBase) FindAvailableInstructions(fn *ir.Function, b *ir.BasicBlock, idx int,
	pred func(inst *ir.Instruction) bool) []*ir.Instruction {
	return p.analyze().FindAvailableInstructions(fn, b, idx, pred)
}

// findOrCreateType returns an existing type or declares it with AddType.
// It returns 0 if the type has to be created but the step budget is exhausted.
func (p *passBase) findOrCreateType(op ir.Opcode, operands ...ir.Operand) ir.ID {
	if id := p.m.FindType(op, operands...); id != 0 {
		return id
	}
	if p.exhausted() {
		return 0
	}
	t := &transform.AddType{
		FreshID:  p.fctx.GetFreshID(),
		Opcode:   op,
		Operands: operands,
	}
	p.ApplyTransformation(t)
	return t.FreshID
}

func (p *passBase) FindOrCreateBoolType() ir.ID {
	return p.findOrCreateType(ir.OpTypeBool)
}

func (p *passBase) FindOrCreateVoidType() ir.ID {
	return p.findOrCreateType(ir.OpTypeVoid)
}

func (p *passBase) FindOrCreatePointerType(sc ir.StorageClass, pointee ir.ID) ir.ID {
	return p.findOrCreateType(ir.OpTypePointer, ir.LiteralOperand(uint32(sc)), ir.IDOperand(pointee))
}

// FindOrCreateZeroConstant returns a zero constant of a storable type typ.
func (p *passBase) FindOrCreateZeroConstant(typ ir.ID) ir.ID {
	if id := p.m.FindZeroConstant(typ); id != 0 {
		return id
	}
	if p.exhausted() {
		return 0
	}
	t := &transform.AddConstant{
		FreshID: p.fctx.GetFreshID(),
		TypeID:  typ,
	}
	switch p.m.TypeOpcode(typ) {
	case ir.OpTypeBool:
		t.Opcode = ir.OpConstantFalse
	case ir.OpTypeInt, ir.OpTypeFloat:
		t.Opcode = ir.OpConstant
	default:
		t.Opcode = ir.OpConstantNull
	}
	p.ApplyTransformation(t)
	return t.FreshID
}
