// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package transform contains semantics-preserving module transformations,
// their serializable records and the machinery to replay sequences of them.
package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/fact"
)

// Context is passed to every applicability check and application.
type Context struct {
	Facts            *fact.Manager
	ValidatorOptions ir.ValidatorOptions
}

func NewContext(facts *fact.Manager, opts ir.ValidatorOptions) *Context {
	if facts == nil {
		facts = fact.NewManager()
	}
	return &Context{
		Facts:            facts,
		ValidatorOptions: opts,
	}
}

// Transformation is a single module edit. All random choices are made before
// a transformation is created, so applying it is deterministic.
type Transformation interface {
	// IsApplicable says if Apply would keep the module valid.
	// It does not modify the module.
	IsApplicable(m *ir.Module, ctx *Context) bool
	// Apply performs the edit. IsApplicable must hold.
	Apply(m *ir.Module, ctx *Context)
	ToRecord() Record
}

// Record is the serialized form of a transformation.
type Record struct {
	Kind string          `json:"kind"`
	Args json.RawMessage `json:"args"`
}

func (rec Record) String() string {
	return fmt.Sprintf("%v%s", rec.Kind, rec.Args)
}

var kinds = make(map[string]func() Transformation)

func register(kind string, ctor func() Transformation) {
	if kinds[kind] != nil {
		panic(fmt.Sprintf("transformation %v registered twice", kind))
	}
	kinds[kind] = ctor
}

// Kinds returns names of all known transformation kinds.
func Kinds() []string {
	var res []string
	for kind := range kinds {
		res = append(res, kind)
	}
	sort.Strings(res)
	return res
}

func makeRecord(kind string, t Transformation) Record {
	args, err := json.Marshal(t)
	if err != nil {
		panic(fmt.Sprintf("failed to serialize %v: %v", kind, err))
	}
	return Record{Kind: kind, Args: args}
}

// FromRecord restores a transformation from its record.
func FromRecord(rec Record) (Transformation, error) {
	ctor := kinds[rec.Kind]
	if ctor == nil {
		return nil, fmt.Errorf("unknown transformation kind %q", rec.Kind)
	}
	t := ctor()
	dec := json.NewDecoder(bytes.NewReader(rec.Args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(t); err != nil {
		return nil, fmt.Errorf("failed to decode %v: %w", rec.Kind, err)
	}
	return t, nil
}

// ApplyChecked re-checks applicability and applies t.
// Applying an inapplicable transformation is a bug in the caller.
func ApplyChecked(t Transformation, m *ir.Module, ctx *Context) {
	if !t.IsApplicable(m, ctx) {
		panic(fmt.Sprintf("applying inapplicable transformation %v", t.ToRecord()))
	}
	t.Apply(m, ctx)
}

// insertionPoint resolves a descriptor and checks that op can be inserted there.
func insertionPoint(m *ir.Module, d ir.InstructionDescriptor, ops ...ir.Opcode) (
	*ir.Function, *ir.BasicBlock, int, bool) {
	fn, b, idx, ok := ir.FindInstruction(m, d)
	if !ok {
		return nil, nil, 0, false
	}
	for _, op := range ops {
		if !ir.CanInsertOpcodeBeforeInstruction(op, b, idx) {
			return nil, nil, 0, false
		}
	}
	return fn, b, idx, true
}

// freshIDs checks that all ids are fresh and pairwise distinct.
func freshIDs(m *ir.Module, ids ...ir.ID) bool {
	seen := make(map[ir.ID]bool)
	for _, id := range ids {
		if seen[id] || !m.IsFreshID(id) {
			return false
		}
		seen[id] = true
	}
	return true
}

func mustFind(m *ir.Module, d ir.InstructionDescriptor) (*ir.Function, *ir.BasicBlock, int) {
	fn, b, idx, ok := ir.FindInstruction(m, d)
	if !ok {
		panic(fmt.Sprintf("instruction %v is not found", d))
	}
	return fn, b, idx
}
