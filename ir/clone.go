// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

import (
	"bytes"
	"fmt"
)

func (m *Module) Clone() *Module {
	m1 := &Module{Bound: m.Bound}
	for _, inst := range m.Globals {
		m1.Globals = append(m1.Globals, inst.Clone())
	}
	for _, fn := range m.Functions {
		m1.Functions = append(m1.Functions, fn.Clone())
	}
	if debug && !bytes.Equal(m.Serialize(), m1.Serialize()) {
		panic(fmt.Sprintf("clone of %v differs from the original", m))
	}
	return m1
}

func (fn *Function) Clone() *Function {
	fn1 := &Function{Def: fn.Def.Clone()}
	for _, p := range fn.Params {
		fn1.Params = append(fn1.Params, p.Clone())
	}
	for _, b := range fn.Blocks {
		fn1.Blocks = append(fn1.Blocks, b.Clone())
	}
	return fn1
}

func (b *BasicBlock) Clone() *BasicBlock {
	b1 := &BasicBlock{Label: b.Label.Clone()}
	for _, inst := range b.Insts {
		b1.Insts = append(b1.Insts, inst.Clone())
	}
	return b1
}

func (inst *Instruction) Clone() *Instruction {
	inst1 := new(Instruction)
	*inst1 = *inst
	inst1.Operands = append([]Operand{}, inst.Operands...)
	return inst1
}
