// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

import (
	"fmt"
)

var debug = false // enabled in tests

type ValidatorOptions struct {
	// Allow pointer function parameters in any storage class,
	// otherwise only Function and Private pointers can be passed.
	RelaxLogicalPointer bool `json:"relax_logical_pointer"`
}

// Validate checks that the module is well-formed and returns a description
// of the first problem found.
func Validate(m *Module, opts ValidatorOptions) error {
	return m.validate(opts)
}

func IsValidAndWellFormed(m *Module, opts ValidatorOptions) bool {
	return m.validate(opts) == nil
}

type validator struct {
	m    *Module
	opts ValidatorOptions
	a    *Analysis
	// Global ids declared so far (globals must be declared before use).
	declared map[ID]bool
	fn       *Function
	preds    map[ID][]ID
}

func (m *Module) validate(opts ValidatorOptions) error {
	v := &validator{
		m:        m,
		opts:     opts,
		declared: make(map[ID]bool),
	}
	if err := v.checkIDs(); err != nil {
		return err
	}
	v.a = Analyze(m)
	for _, inst := range m.Globals {
		if err := v.checkGlobal(inst); err != nil {
			return fmt.Errorf("global %v: %w", inst, err)
		}
		v.declared[inst.ResultID] = true
	}
	for _, fn := range m.Functions {
		if err := v.checkFunction(fn); err != nil {
			return fmt.Errorf("function %%%v: %w", fn.ID(), err)
		}
	}
	return v.checkRecursion()
}

func (v *validator) checkIDs() error {
	seen := make(map[ID]bool)
	var err error
	v.m.ForEachInst(func(inst *Instruction) {
		if err != nil {
			return
		}
		if inst.Opcode <= OpNop || inst.Opcode >= opcodeCount {
			err = fmt.Errorf("bad opcode %d", int(inst.Opcode))
			return
		}
		if inst.Opcode.HasType() != (inst.TypeID != 0) {
			err = fmt.Errorf("%v: result type mismatch", inst)
			return
		}
		if inst.Opcode.HasResult() != (inst.ResultID != 0) {
			err = fmt.Errorf("%v: result id mismatch", inst)
			return
		}
		if inst.ResultID == 0 {
			return
		}
		if inst.ResultID >= v.m.Bound {
			err = fmt.Errorf("%v: id is not below the bound %v", inst, v.m.Bound)
			return
		}
		if seen[inst.ResultID] {
			err = fmt.Errorf("%v: id %%%v is defined twice", inst, inst.ResultID)
			return
		}
		seen[inst.ResultID] = true
	})
	return err
}

// operandLayouts describe operand kinds: 'I' is an id, 'L' a literal,
// a trailing '*' repeats the previous kind zero or more times,
// a trailing '?' makes the previous kind optional.
var operandLayouts = map[Opcode]string{
	OpTypeInt:            "LL",
	OpTypeFloat:          "L",
	OpTypeVector:         "IL",
	OpTypeMatrix:         "IL",
	OpTypeArray:          "II",
	OpTypeRuntimeArray:   "I",
	OpTypeStruct:         "I*",
	OpTypePointer:        "LI",
	OpTypeFunction:       "II*",
	OpConstant:           "L",
	OpConstantComposite:  "I*",
	OpVariable:           "LI?",
	OpFunction:           "LI",
	OpPhi:                "I*",
	OpCopyObject:         "I",
	OpLoad:               "I",
	OpStore:              "II",
	OpCompositeConstruct: "I*",
	OpCompositeExtract:   "ILL*",
	OpIAdd:               "II",
	OpISub:               "II",
	OpIMul:               "II",
	OpFAdd:               "II",
	OpFMul:               "II",
	OpIEqual:             "II",
	OpSLessThan:          "II",
	OpLogicalNot:         "I",
	OpFunctionCall:       "II*",
	OpSelectionMerge:     "IL",
	OpLoopMerge:          "IIL",
	OpBranch:             "I",
	OpBranchConditional:  "III",
	OpReturnValue:        "I",
}

func checkLayout(inst *Instruction) error {
	layout := operandLayouts[inst.Opcode]
	kinds := map[byte]OperandKind{'I': OperandID, 'L': OperandLiteral}
	pos := 0
	for i := 0; i < len(layout); i++ {
		kind := kinds[layout[i]]
		mod := byte(0)
		if i+1 < len(layout) && (layout[i+1] == '*' || layout[i+1] == '?') {
			mod = layout[i+1]
			i++
		}
		switch mod {
		case '*':
			for pos < len(inst.Operands) && inst.Operands[pos].Kind == kind {
				pos++
			}
		case '?':
			if pos < len(inst.Operands) && inst.Operands[pos].Kind == kind {
				pos++
			}
		default:
			if pos >= len(inst.Operands) || inst.Operands[pos].Kind != kind {
				return fmt.Errorf("bad operands")
			}
			pos++
		}
	}
	if pos != len(inst.Operands) {
		return fmt.Errorf("bad operands")
	}
	return nil
}

func (v *validator) isDeclaredType(typ ID) bool {
	return v.declared[typ] && v.m.TypeInst(typ) != nil
}

// isDataType says if typ can be the type of a value held in a variable or
// passed around (anything but void and function types).
func (v *validator) isDataType(typ ID) bool {
	op := v.m.TypeOpcode(typ)
	return v.isDeclaredType(typ) && op != OpTypeVoid && op != OpTypeFunction
}

func (v *validator) checkGlobal(inst *Instruction) error {
	if !inst.Opcode.IsGlobal() {
		return fmt.Errorf("not allowed at module scope")
	}
	if err := checkLayout(inst); err != nil {
		return err
	}
	if inst.TypeID != 0 && !v.isDataType(inst.TypeID) {
		return fmt.Errorf("result type %%%v is not a declared data type", inst.TypeID)
	}
	if inst.Opcode.IsType() {
		if err := v.checkTypeDecl(inst); err != nil {
			return err
		}
		if inst.Opcode != OpTypeStruct {
			for _, prev := range v.m.Globals {
				if prev == inst {
					break
				}
				if prev.Opcode == inst.Opcode && operandsEqual(prev.Operands, inst.Operands) {
					return fmt.Errorf("duplicate type declaration of %%%v", prev.ResultID)
				}
			}
		}
		return nil
	}
	switch inst.Opcode {
	case OpConstantTrue, OpConstantFalse:
		if v.m.TypeOpcode(inst.TypeID) != OpTypeBool {
			return fmt.Errorf("boolean constant of non-bool type")
		}
	case OpConstant:
		if op := v.m.TypeOpcode(inst.TypeID); op != OpTypeInt && op != OpTypeFloat {
			return fmt.Errorf("scalar constant of non-numeric type")
		}
	case OpConstantComposite:
		if !v.m.IsCompositeType(inst.TypeID) {
			return fmt.Errorf("composite constant of non-composite type")
		}
		n, _ := v.m.CompositeComponentCount(inst.TypeID)
		if uint32(len(inst.Operands)) != n {
			return fmt.Errorf("composite constant has %v components, want %v", len(inst.Operands), n)
		}
		for i := range inst.Operands {
			c := inst.IDOperand(i)
			def := v.m.GlobalDef(c)
			if !v.declared[c] || def == nil || !def.Opcode.IsConstant() {
				return fmt.Errorf("component %%%v is not a declared constant", c)
			}
			if def.TypeID != v.m.CompositeComponentType(inst.TypeID, uint32(i)) {
				return fmt.Errorf("component %%%v has wrong type", c)
			}
		}
	case OpVariable:
		sc := StorageClass(inst.Literal(0))
		if sc == StorageFunction {
			return fmt.Errorf("Function storage class variable at module scope")
		}
		return v.checkVariable(inst)
	}
	return nil
}

func (v *validator) checkTypeDecl(inst *Instruction) error {
	switch inst.Opcode {
	case OpTypeInt:
		switch inst.Literal(0) {
		case 8, 16, 32, 64:
		default:
			return fmt.Errorf("bad int width %v", inst.Literal(0))
		}
		if inst.Literal(1) > 1 {
			return fmt.Errorf("bad signedness %v", inst.Literal(1))
		}
	case OpTypeFloat:
		switch inst.Literal(0) {
		case 16, 32, 64:
		default:
			return fmt.Errorf("bad float width %v", inst.Literal(0))
		}
	case OpTypeVector:
		if !v.declared[inst.IDOperand(0)] || !v.m.IsScalarType(inst.IDOperand(0)) {
			return fmt.Errorf("vector component type is not a declared scalar")
		}
		if n := inst.Literal(1); n < 2 || n > 4 {
			return fmt.Errorf("bad vector size %v", n)
		}
	case OpTypeMatrix:
		col := inst.IDOperand(0)
		if !v.declared[col] || v.m.TypeOpcode(col) != OpTypeVector ||
			v.m.TypeOpcode(v.m.CompositeComponentType(col, 0)) != OpTypeFloat {
			return fmt.Errorf("matrix column type is not a declared float vector")
		}
		if n := inst.Literal(1); n < 2 || n > 4 {
			return fmt.Errorf("bad matrix column count %v", n)
		}
	case OpTypeArray:
		if !v.isDataType(inst.IDOperand(0)) {
			return fmt.Errorf("bad array element type")
		}
		length := inst.IDOperand(1)
		n, ok := v.m.ConstantValue(length)
		if !v.declared[length] || !ok || v.m.TypeOpcode(v.m.TypeOf(length)) != OpTypeInt || n == 0 {
			return fmt.Errorf("array length must be a positive integer constant")
		}
	case OpTypeRuntimeArray:
		if !v.isDataType(inst.IDOperand(0)) {
			return fmt.Errorf("bad runtime array element type")
		}
	case OpTypeStruct:
		for i := range inst.Operands {
			if !v.isDataType(inst.IDOperand(i)) {
				return fmt.Errorf("bad struct member type %%%v", inst.IDOperand(i))
			}
		}
	case OpTypePointer:
		if _, ok := storageClassNames[StorageClass(inst.Literal(0))]; !ok {
			return fmt.Errorf("bad storage class %v", inst.Literal(0))
		}
		if !v.isDataType(inst.IDOperand(1)) {
			return fmt.Errorf("bad pointee type")
		}
	case OpTypeFunction:
		if !v.isDeclaredType(inst.IDOperand(0)) || v.m.TypeOpcode(inst.IDOperand(0)) == OpTypeFunction {
			return fmt.Errorf("bad return type")
		}
		for i := 1; i < len(inst.Operands); i++ {
			if !v.isDataType(inst.IDOperand(i)) {
				return fmt.Errorf("bad parameter type %%%v", inst.IDOperand(i))
			}
		}
	}
	return nil
}

func (v *validator) checkVariable(inst *Instruction) error {
	sc, pointee, ok := v.m.PointerInfo(inst.TypeID)
	if !ok {
		return fmt.Errorf("variable type is not a pointer")
	}
	if sc != StorageClass(inst.Literal(0)) {
		return fmt.Errorf("variable storage class %v does not match pointer type %v",
			StorageClass(inst.Literal(0)), sc)
	}
	if len(inst.Operands) == 2 {
		init := inst.IDOperand(1)
		def := v.m.GlobalDef(init)
		if !v.declared[init] || def == nil || !def.Opcode.IsConstant() {
			return fmt.Errorf("initializer %%%v is not a declared constant", init)
		}
		if def.TypeID != pointee {
			return fmt.Errorf("initializer %%%v has wrong type", init)
		}
	}
	return nil
}

func (v *validator) checkFunction(fn *Function) error {
	v.fn = fn
	def := fn.Def
	if def.Opcode != OpFunction {
		return fmt.Errorf("bad function definition %v", def)
	}
	if err := checkLayout(def); err != nil {
		return err
	}
	if !v.isDeclaredType(def.TypeID) {
		return fmt.Errorf("return type %%%v is not declared", def.TypeID)
	}
	fnType := v.m.TypeInst(def.IDOperand(1))
	if fnType == nil || fnType.Opcode != OpTypeFunction {
		return fmt.Errorf("function type %%%v is not declared", def.IDOperand(1))
	}
	if fnType.IDOperand(0) != def.TypeID {
		return fmt.Errorf("return type does not match function type")
	}
	if len(fnType.Operands)-1 != len(fn.Params) {
		return fmt.Errorf("parameter count does not match function type")
	}
	for i, p := range fn.Params {
		if p.Opcode != OpFunctionParameter || len(p.Operands) != 0 {
			return fmt.Errorf("bad parameter %v", p)
		}
		if p.TypeID != fnType.IDOperand(i+1) {
			return fmt.Errorf("parameter %%%v type does not match function type", p.ResultID)
		}
		if sc, _, ok := v.m.PointerInfo(p.TypeID); ok && !v.opts.RelaxLogicalPointer &&
			sc != StorageFunction && sc != StoragePrivate {
			return fmt.Errorf("parameter %%%v is a %v pointer", p.ResultID, sc)
		}
	}
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("function has no blocks")
	}
	v.preds = fn.Predecessors()
	if len(v.preds[fn.Entry().ID()]) != 0 {
		return fmt.Errorf("entry block %%%v has predecessors", fn.Entry().ID())
	}
	for i, b := range fn.Blocks {
		if err := v.checkBlockStructure(b, i == 0); err != nil {
			return fmt.Errorf("block %%%v: %w", b.ID(), err)
		}
		for idx, inst := range b.Insts {
			if err := v.checkBodyInst(b, idx, inst); err != nil {
				return fmt.Errorf("block %%%v: %v: %w", b.ID(), inst, err)
			}
		}
	}
	return v.checkStructuredCFG(fn)
}

func (v *validator) checkBlockStructure(b *BasicBlock, entry bool) error {
	if b.Label == nil || b.Label.Opcode != OpLabel || len(b.Label.Operands) != 0 {
		return fmt.Errorf("bad label")
	}
	if len(b.Insts) == 0 || !b.Terminator().Opcode.IsTerminator() {
		return fmt.Errorf("block does not end with a terminator")
	}
	phis, vars := true, true
	for i, inst := range b.Insts {
		if inst.Opcode.IsTerminator() && i != len(b.Insts)-1 {
			return fmt.Errorf("%v in the middle of the block", inst.Opcode)
		}
		if inst.Opcode.IsMerge() && i != len(b.Insts)-2 {
			return fmt.Errorf("%v is not right before the terminator", inst.Opcode)
		}
		if inst.Opcode == OpPhi {
			if !phis {
				return fmt.Errorf("OpPhi after a non-phi instruction")
			}
		} else {
			phis = false
		}
		if inst.Opcode == OpVariable {
			if !entry || !vars {
				return fmt.Errorf("OpVariable outside of the start of the entry block")
			}
		} else {
			vars = false
		}
	}
	return nil
}

func (v *validator) isBlock(id ID) bool {
	return v.fn.Block(id) != nil
}

// checkValue checks that the id operand is a value available before b.Insts[idx].
func (v *validator) checkValue(b *BasicBlock, idx int, id ID) error {
	if !v.a.IsValue(id) {
		return fmt.Errorf("%%%v is not a value", id)
	}
	if !v.a.IsAvailableBefore(v.fn, b, idx, id) {
		return fmt.Errorf("%%%v is not available", id)
	}
	return nil
}

func (v *validator) checkBodyInst(b *BasicBlock, idx int, inst *Instruction) error {
	if !inst.Opcode.IsBody() {
		return fmt.Errorf("not allowed in a block")
	}
	if err := checkLayout(inst); err != nil {
		return err
	}
	if inst.TypeID != 0 && !v.isDataType(inst.TypeID) &&
		(inst.Opcode != OpFunctionCall || v.m.TypeOpcode(inst.TypeID) != OpTypeVoid) {
		return fmt.Errorf("result type %%%v is not a declared data type", inst.TypeID)
	}
	if inst.Opcode == OpPhi {
		return v.checkPhi(b, inst)
	}
	// Value operands.
	for i := range inst.Operands {
		if inst.Operands[i].Kind != OperandID {
			continue
		}
		switch {
		case inst.Opcode == OpVariable,
			inst.Opcode == OpFunctionCall && i == 0,
			inst.Opcode == OpSelectionMerge,
			inst.Opcode == OpLoopMerge,
			inst.Opcode == OpBranch,
			inst.Opcode == OpBranchConditional && i != 0:
			continue
		}
		if err := v.checkValue(b, idx, inst.IDOperand(i)); err != nil {
			return err
		}
	}
	typeOf := v.a.TypeOf
	switch inst.Opcode {
	case OpVariable:
		if StorageClass(inst.Literal(0)) != StorageFunction {
			return fmt.Errorf("variable in a function must have Function storage class")
		}
		return v.checkVariable(inst)
	case OpCopyObject:
		if typeOf(inst.IDOperand(0)) != inst.TypeID {
			return fmt.Errorf("operand type mismatch")
		}
	case OpLoad:
		_, pointee, ok := v.m.PointerInfo(typeOf(inst.IDOperand(0)))
		if !ok || pointee != inst.TypeID {
			return fmt.Errorf("load from a non-pointer or type mismatch")
		}
	case OpStore:
		sc, pointee, ok := v.m.PointerInfo(typeOf(inst.IDOperand(0)))
		if !ok || pointee != typeOf(inst.IDOperand(1)) {
			return fmt.Errorf("store to a non-pointer or type mismatch")
		}
		if sc == StorageInput || sc == StorageUniform {
			return fmt.Errorf("store to a read-only %v pointer", sc)
		}
	case OpCompositeConstruct:
		return v.checkCompositeConstruct(inst)
	case OpCompositeExtract:
		var indices []uint32
		for i := 1; i < len(inst.Operands); i++ {
			indices = append(indices, inst.Literal(i))
		}
		if res := v.m.WalkIndices(typeOf(inst.IDOperand(0)), indices); res == 0 || res != inst.TypeID {
			return fmt.Errorf("bad extract indices or result type")
		}
	case OpIAdd, OpISub, OpIMul, OpFAdd, OpFMul:
		want := OpTypeInt
		if inst.Opcode == OpFAdd || inst.Opcode == OpFMul {
			want = OpTypeFloat
		}
		if v.scalarOpcode(inst.TypeID) != want {
			return fmt.Errorf("bad result type")
		}
		if typeOf(inst.IDOperand(0)) != inst.TypeID || typeOf(inst.IDOperand(1)) != inst.TypeID {
			return fmt.Errorf("operand type mismatch")
		}
	case OpIEqual, OpSLessThan:
		if v.m.TypeOpcode(inst.TypeID) != OpTypeBool {
			return fmt.Errorf("comparison result must be bool")
		}
		t0 := typeOf(inst.IDOperand(0))
		if v.m.TypeOpcode(t0) != OpTypeInt || typeOf(inst.IDOperand(1)) != t0 {
			return fmt.Errorf("operands must be integers of the same type")
		}
	case OpLogicalNot:
		if v.m.TypeOpcode(inst.TypeID) != OpTypeBool || typeOf(inst.IDOperand(0)) != inst.TypeID {
			return fmt.Errorf("operand and result must be bool")
		}
	case OpFunctionCall:
		callee := v.m.Function(inst.IDOperand(0))
		if callee == nil {
			return fmt.Errorf("callee %%%v is not a function", inst.IDOperand(0))
		}
		if callee.Def.TypeID != inst.TypeID {
			return fmt.Errorf("result type does not match callee return type")
		}
		if len(callee.Params) != len(inst.Operands)-1 {
			return fmt.Errorf("argument count mismatch")
		}
		for i, p := range callee.Params {
			if typeOf(inst.IDOperand(i+1)) != p.TypeID {
				return fmt.Errorf("argument %v type mismatch", i)
			}
		}
	case OpSelectionMerge:
		if !v.isBlock(inst.IDOperand(0)) {
			return fmt.Errorf("merge target is not a block of the function")
		}
		if b.Terminator().Opcode != OpBranchConditional {
			return fmt.Errorf("selection header must end with OpBranchConditional")
		}
	case OpLoopMerge:
		if !v.isBlock(inst.IDOperand(0)) || !v.isBlock(inst.IDOperand(1)) {
			return fmt.Errorf("merge or continue target is not a block of the function")
		}
		if inst.IDOperand(0) == inst.IDOperand(1) || inst.IDOperand(0) == b.ID() {
			return fmt.Errorf("bad loop merge targets")
		}
	case OpBranch:
		if !v.isBlock(inst.IDOperand(0)) {
			return fmt.Errorf("branch target is not a block of the function")
		}
	case OpBranchConditional:
		if v.m.TypeOpcode(typeOf(inst.IDOperand(0))) != OpTypeBool {
			return fmt.Errorf("condition must be bool")
		}
		if !v.isBlock(inst.IDOperand(1)) || !v.isBlock(inst.IDOperand(2)) {
			return fmt.Errorf("branch target is not a block of the function")
		}
	case OpReturn:
		if v.m.TypeOpcode(v.fn.Def.TypeID) != OpTypeVoid {
			return fmt.Errorf("OpReturn in a non-void function")
		}
	case OpReturnValue:
		if v.m.TypeOpcode(v.fn.Def.TypeID) == OpTypeVoid || typeOf(inst.IDOperand(0)) != v.fn.Def.TypeID {
			return fmt.Errorf("return value type mismatch")
		}
	}
	return nil
}

// scalarOpcode returns the opcode of a scalar type or of a vector's component type.
func (v *validator) scalarOpcode(typ ID) Opcode {
	if v.m.TypeOpcode(typ) == OpTypeVector {
		typ = v.m.CompositeComponentType(typ, 0)
	}
	return v.m.TypeOpcode(typ)
}

func (v *validator) checkCompositeConstruct(inst *Instruction) error {
	typ := inst.TypeID
	if !v.m.IsCompositeType(typ) {
		return fmt.Errorf("result type is not a composite")
	}
	n, _ := v.m.CompositeComponentCount(typ)
	if v.m.TypeOpcode(typ) == OpTypeVector {
		elem := v.m.CompositeComponentType(typ, 0)
		total := uint32(0)
		for i := range inst.Operands {
			t := v.a.TypeOf(inst.IDOperand(i))
			switch {
			case t == elem:
				total++
			case v.m.TypeOpcode(t) == OpTypeVector && v.m.CompositeComponentType(t, 0) == elem:
				cnt, _ := v.m.CompositeComponentCount(t)
				total += cnt
			default:
				return fmt.Errorf("component %%%v has wrong type", inst.IDOperand(i))
			}
		}
		if total != n || len(inst.Operands) < 2 {
			return fmt.Errorf("vector components cover %v elements, want %v", total, n)
		}
		return nil
	}
	if uint32(len(inst.Operands)) != n {
		return fmt.Errorf("got %v components, want %v", len(inst.Operands), n)
	}
	for i := range inst.Operands {
		if v.a.TypeOf(inst.IDOperand(i)) != v.m.CompositeComponentType(typ, uint32(i)) {
			return fmt.Errorf("component %%%v has wrong type", inst.IDOperand(i))
		}
	}
	return nil
}

func (v *validator) checkPhi(b *BasicBlock, inst *Instruction) error {
	if len(inst.Operands)%2 != 0 || len(inst.Operands) == 0 {
		return fmt.Errorf("odd number of phi operands")
	}
	preds := v.preds[b.ID()]
	if len(inst.Operands)/2 != len(preds) {
		return fmt.Errorf("phi has %v incoming values, block has %v predecessors",
			len(inst.Operands)/2, len(preds))
	}
	seen := make(map[ID]bool)
	for i := 0; i < len(inst.Operands); i += 2 {
		value, label := inst.IDOperand(i), inst.IDOperand(i+1)
		isPred := false
		for _, p := range preds {
			isPred = isPred || p == label
		}
		if !isPred || seen[label] {
			return fmt.Errorf("%%%v is not a predecessor or repeats", label)
		}
		seen[label] = true
		if v.a.TypeOf(value) != inst.TypeID {
			return fmt.Errorf("incoming value %%%v has wrong type", value)
		}
		pred := v.fn.Block(label)
		if err := v.checkValue(pred, len(pred.Insts), value); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) checkStructuredCFG(fn *Function) error {
	dom := fn.Dominators()
	mergeOf := make(map[ID]ID)
	for _, b := range fn.Blocks {
		merge := b.MergeInst()
		if merge == nil {
			continue
		}
		target := merge.IDOperand(0)
		if prev, ok := mergeOf[target]; ok {
			return fmt.Errorf("block %%%v is the merge block of both %%%v and %%%v", target, prev, b.ID())
		}
		mergeOf[target] = b.ID()
		if merge.Opcode == OpLoopMerge {
			cont := merge.IDOperand(1)
			if dom.Contains(cont) && !dom.Dominates(b.ID(), cont) {
				return fmt.Errorf("loop header %%%v does not dominate its continue target %%%v", b.ID(), cont)
			}
		}
	}
	for _, b := range fn.Blocks {
		for _, succ := range b.Successors() {
			if !dom.Contains(b.ID()) || !dom.Dominates(succ, b.ID()) {
				continue
			}
			if !fn.Block(succ).IsLoopHeader() {
				return fmt.Errorf("back edge %%%v->%%%v does not target a loop header", b.ID(), succ)
			}
		}
	}
	return nil
}

func (v *validator) checkRecursion() error {
	callees := make(map[ID][]ID)
	for _, fn := range v.m.Functions {
		fn.ForEachInst(func(_ *BasicBlock, _ int, inst *Instruction) {
			if inst.Opcode == OpFunctionCall {
				callees[fn.ID()] = append(callees[fn.ID()], inst.IDOperand(0))
			}
		})
	}
	const (
		active = iota + 1
		done
	)
	state := make(map[ID]int)
	var visit func(id ID) error
	visit = func(id ID) error {
		switch state[id] {
		case active:
			return fmt.Errorf("function %%%v is recursive", id)
		case done:
			return nil
		}
		state[id] = active
		for _, callee := range callees[id] {
			if err := visit(callee); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for _, fn := range v.m.Functions {
		if err := visit(fn.ID()); err != nil {
			return err
		}
	}
	return nil
}
