// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

// Location describes where an id is defined or used.
// Block is nil for module-scope instructions, function definitions and
// parameters. Index is -1 for block labels.
type Location struct {
	Function *Function
	Block    *BasicBlock
	Index    int
}

type Use struct {
	Inst    *Instruction
	Operand int // -1 for the result type
	Location
}

// Analysis is a def/use and dominance index over a module snapshot.
// It must be rebuilt after the module is modified.
type Analysis struct {
	Module *Module
	defs   map[ID]*Instruction
	locs   map[ID]Location
	uses   map[ID][]Use
	doms   map[*Function]*DominatorTree
	pdoms  map[*Function]*DominatorTree
}

func Analyze(m *Module) *Analysis {
	a := &Analysis{
		Module: m,
		defs:   make(map[ID]*Instruction),
		locs:   make(map[ID]Location),
		uses:   make(map[ID][]Use),
		doms:   make(map[*Function]*DominatorTree),
		pdoms:  make(map[*Function]*DominatorTree),
	}
	for _, inst := range m.Globals {
		a.record(inst, Location{Index: -1})
	}
	for _, fn := range m.Functions {
		a.record(fn.Def, Location{Index: -1})
		for _, p := range fn.Params {
			a.record(p, Location{Function: fn, Index: -1})
		}
		for _, b := range fn.Blocks {
			a.record(b.Label, Location{Function: fn, Block: b, Index: -1})
			for i, inst := range b.Insts {
				a.record(inst, Location{Function: fn, Block: b, Index: i})
			}
		}
	}
	return a
}

func (a *Analysis) record(inst *Instruction, loc Location) {
	if inst.ResultID != 0 {
		if _, dup := a.defs[inst.ResultID]; !dup {
			a.defs[inst.ResultID] = inst
			a.locs[inst.ResultID] = loc
		}
	}
	if inst.TypeID != 0 {
		a.uses[inst.TypeID] = append(a.uses[inst.TypeID], Use{inst, -1, loc})
	}
	for i, op := range inst.Operands {
		if op.Kind == OperandID {
			a.uses[ID(op.Value)] = append(a.uses[ID(op.Value)], Use{inst, i, loc})
		}
	}
}

func (a *Analysis) Def(id ID) *Instruction {
	return a.defs[id]
}

func (a *Analysis) Location(id ID) (Location, bool) {
	loc, ok := a.locs[id]
	return loc, ok
}

func (a *Analysis) Uses(id ID) []Use {
	return a.uses[id]
}

func (a *Analysis) TypeOf(id ID) ID {
	if inst := a.defs[id]; inst != nil {
		return inst.TypeID
	}
	return 0
}

// IsValue says if id names a value that can be used as an operand,
// i.e. it has a non-void result type and it is not a function.
func (a *Analysis) IsValue(id ID) bool {
	inst := a.defs[id]
	return inst != nil && inst.TypeID != 0 && inst.Opcode != OpFunction &&
		a.Module.TypeOpcode(inst.TypeID) != OpTypeVoid
}

func (a *Analysis) Dominators(fn *Function) *DominatorTree {
	t := a.doms[fn]
	if t == nil {
		t = fn.Dominators()
		a.doms[fn] = t
	}
	return t
}

func (a *Analysis) PostDominators(fn *Function) *DominatorTree {
	t := a.pdoms[fn]
	if t == nil {
		t = fn.PostDominators()
		a.pdoms[fn] = t
	}
	return t
}

// FunctionOf returns the function that contains the definition of id.
func (a *Analysis) FunctionOf(id ID) *Function {
	return a.locs[id].Function
}
