// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// String generates a very compact module description (mostly for debug output).
func (m *Module) String() string {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "module{bound=%v globals=%v", m.Bound, len(m.Globals))
	for _, fn := range m.Functions {
		fmt.Fprintf(buf, " fn%%%v/%v", fn.ID(), len(fn.Blocks))
	}
	buf.WriteString("}")
	return buf.String()
}

// Serialize produces the textual form of the module.
// The output is deterministic: equal modules serialize to equal bytes.
func (m *Module) Serialize() []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "; bound %v\n", m.Bound)
	for _, inst := range m.Globals {
		buf.Write(inst.serialize())
		buf.WriteByte('\n')
	}
	for _, fn := range m.Functions {
		buf.Write(fn.Def.serialize())
		buf.WriteByte('\n')
		for _, p := range fn.Params {
			buf.Write(p.serialize())
			buf.WriteByte('\n')
		}
		for _, b := range fn.Blocks {
			buf.Write(b.Label.serialize())
			buf.WriteByte('\n')
			for _, inst := range b.Insts {
				buf.WriteString("  ")
				buf.Write(inst.serialize())
				buf.WriteByte('\n')
			}
		}
		buf.WriteString("OpFunctionEnd\n")
	}
	return buf.Bytes()
}

func (inst *Instruction) serialize() []byte {
	buf := new(bytes.Buffer)
	if inst.ResultID != 0 {
		fmt.Fprintf(buf, "%%%v = ", inst.ResultID)
	}
	buf.WriteString(inst.Opcode.String())
	if inst.Opcode.HasType() {
		fmt.Fprintf(buf, " %%%v", inst.TypeID)
	}
	for _, op := range inst.Operands {
		if op.Kind == OperandID {
			fmt.Fprintf(buf, " %%%v", op.Value)
		} else {
			fmt.Fprintf(buf, " %v", op.Value)
		}
	}
	return buf.Bytes()
}

// Deserialize parses the textual form produced by Serialize.
// Comment lines start with ';'. The "; bound N" comment is optional,
// if it is missing the bound is computed from the ids in use.
func Deserialize(data []byte) (*Module, error) {
	m := new(Module)
	var fn *Function
	var block *BasicBlock
	s := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; s.Scan(); line++ {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, ";") {
			var bound uint32
			if n, _ := fmt.Sscanf(text, "; bound %d", &bound); n == 1 {
				m.Bound = ID(bound)
			}
			continue
		}
		inst, err := parseInstruction(text)
		if err != nil {
			return nil, fmt.Errorf("line %v: %w", line, err)
		}
		switch {
		case inst.Opcode == OpFunction:
			if fn != nil {
				return nil, fmt.Errorf("line %v: nested OpFunction", line)
			}
			fn = &Function{Def: inst}
			block = nil
		case inst.Opcode == OpFunctionEnd:
			if fn == nil {
				return nil, fmt.Errorf("line %v: OpFunctionEnd outside of a function", line)
			}
			m.Functions = append(m.Functions, fn)
			fn, block = nil, nil
		case inst.Opcode == OpFunctionParameter:
			if fn == nil || len(fn.Blocks) != 0 {
				return nil, fmt.Errorf("line %v: misplaced OpFunctionParameter", line)
			}
			fn.Params = append(fn.Params, inst)
		case inst.Opcode == OpLabel:
			if fn == nil {
				return nil, fmt.Errorf("line %v: OpLabel outside of a function", line)
			}
			block = &BasicBlock{Label: inst}
			fn.Blocks = append(fn.Blocks, block)
		case fn == nil:
			if !inst.Opcode.IsGlobal() {
				return nil, fmt.Errorf("line %v: %v is not allowed at module scope", line, inst.Opcode)
			}
			m.Globals = append(m.Globals, inst)
		default:
			if block == nil {
				return nil, fmt.Errorf("line %v: %v outside of a block", line, inst.Opcode)
			}
			block.Insts = append(block.Insts, inst)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if fn != nil {
		return nil, fmt.Errorf("missing OpFunctionEnd for function %%%v", fn.ID())
	}
	m.ForEachInst(func(inst *Instruction) {
		if m.Bound <= inst.ResultID {
			m.Bound = inst.ResultID + 1
		}
	})
	if m.Bound == 0 {
		m.Bound = 1
	}
	return m, nil
}

func parseInstruction(text string) (*Instruction, error) {
	tokens := strings.Fields(text)
	inst := new(Instruction)
	if len(tokens) >= 2 && tokens[1] == "=" {
		id, err := parseID(tokens[0])
		if err != nil {
			return nil, err
		}
		inst.ResultID = id
		tokens = tokens[2:]
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("missing opcode in %q", text)
	}
	op, ok := opcodeByName[tokens[0]]
	if !ok || op == OpNop {
		return nil, fmt.Errorf("unknown opcode %q", tokens[0])
	}
	inst.Opcode = op
	tokens = tokens[1:]
	if op.HasResult() != (inst.ResultID != 0) {
		return nil, fmt.Errorf("%v: result id mismatch in %q", op, text)
	}
	if op.HasType() {
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%v: missing result type", op)
		}
		typ, err := parseID(tokens[0])
		if err != nil {
			return nil, err
		}
		inst.TypeID = typ
		tokens = tokens[1:]
	}
	for _, tok := range tokens {
		if strings.HasPrefix(tok, "%") {
			id, err := parseID(tok)
			if err != nil {
				return nil, err
			}
			inst.Operands = append(inst.Operands, IDOperand(id))
			continue
		}
		v, err := strconv.ParseUint(tok, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad literal %q: %w", tok, err)
		}
		inst.Operands = append(inst.Operands, LiteralOperand(uint32(v)))
	}
	return inst, nil
}

func parseID(tok string) (ID, error) {
	if !strings.HasPrefix(tok, "%") {
		return 0, fmt.Errorf("expected an id, got %q", tok)
	}
	v, err := strconv.ParseUint(tok[1:], 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("bad id %q", tok)
	}
	return ID(v), nil
}
