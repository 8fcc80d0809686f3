// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fact keeps facts established about a module during fuzzing:
// which pieces of data are known to be equal and which ids do not matter.
// Facts are only ever added.
package fact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/shaderfuzz/ir"
)

// DataDescriptor names a piece of data: the object itself or,
// with a non-empty Index, a component reached by walking the composite.
type DataDescriptor struct {
	Object ir.ID    `json:"object"`
	Index  []uint32 `json:"index,omitempty"`
}

func MakeDataDescriptor(object ir.ID, index ...uint32) DataDescriptor {
	return DataDescriptor{Object: object, Index: index}
}

func (d DataDescriptor) String() string {
	if len(d.Index) == 0 {
		return fmt.Sprintf("%%%v", d.Object)
	}
	return fmt.Sprintf("%%%v%v", d.Object, d.Index)
}

func (d DataDescriptor) Equal(d1 DataDescriptor) bool {
	if d.Object != d1.Object || len(d.Index) != len(d1.Index) {
		return false
	}
	for i := range d.Index {
		if d.Index[i] != d1.Index[i] {
			return false
		}
	}
	return true
}

func (d DataDescriptor) key() string {
	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%v", d.Object)
	for _, idx := range d.Index {
		fmt.Fprintf(buf, ".%v", idx)
	}
	return buf.String()
}

// DataSynonym says that two pieces of data always hold the same value.
type DataSynonym struct {
	Data1 DataDescriptor `json:"data1"`
	Data2 DataDescriptor `json:"data2"`
}

// IDIsIrrelevant says that the value of the id does not affect the semantics
// of the module, so it must not be used to derive synonyms.
type IDIsIrrelevant struct {
	ID ir.ID `json:"id"`
}

// Record is a serializable fact. Exactly one field is set.
type Record struct {
	DataSynonym    *DataSynonym    `json:"data_synonym,omitempty"`
	IDIsIrrelevant *IDIsIrrelevant `json:"id_is_irrelevant,omitempty"`
}

func (rec Record) String() string {
	switch {
	case rec.DataSynonym != nil:
		return fmt.Sprintf("synonym(%v, %v)", rec.DataSynonym.Data1, rec.DataSynonym.Data2)
	case rec.IDIsIrrelevant != nil:
		return fmt.Sprintf("irrelevant(%%%v)", rec.IDIsIrrelevant.ID)
	}
	return "empty"
}

type Manager struct {
	facts []Record

	// Data descriptors seen in synonym facts, in the order of first appearance,
	// with a union-find forest over them.
	descs  []DataDescriptor
	index  map[string]int
	parent []int

	irrelevant      map[ir.ID]bool
	irrelevantOrder []ir.ID
}

func NewManager() *Manager {
	return &Manager{
		index:      make(map[string]int),
		irrelevant: make(map[ir.ID]bool),
	}
}

// AddFact adds a fact from a record (initial facts, replay).
// Malformed records are rejected.
func (mgr *Manager) AddFact(rec Record) bool {
	switch {
	case rec.DataSynonym != nil && rec.IDIsIrrelevant == nil:
		return mgr.AddFactDataSynonym(rec.DataSynonym.Data1, rec.DataSynonym.Data2)
	case rec.IDIsIrrelevant != nil && rec.DataSynonym == nil:
		return mgr.AddFactIDIsIrrelevant(rec.IDIsIrrelevant.ID)
	}
	return false
}

// AddFactDataSynonym records that d1 and d2 hold the same value.
// Synonyms of irrelevant ids and of zero ids are not recorded.
func (mgr *Manager) AddFactDataSynonym(d1, d2 DataDescriptor) bool {
	if d1.Object == 0 || d2.Object == 0 || d1.Equal(d2) {
		return false
	}
	if mgr.irrelevant[d1.Object] || mgr.irrelevant[d2.Object] {
		return false
	}
	d1 = DataDescriptor{d1.Object, append([]uint32(nil), d1.Index...)}
	d2 = DataDescriptor{d2.Object, append([]uint32(nil), d2.Index...)}
	mgr.facts = append(mgr.facts, Record{DataSynonym: &DataSynonym{d1, d2}})
	mgr.union(mgr.add(d1), mgr.add(d2))
	return true
}

func (mgr *Manager) AddFactIDIsIrrelevant(id ir.ID) bool {
	if id == 0 || mgr.irrelevant[id] {
		return false
	}
	mgr.irrelevant[id] = true
	mgr.irrelevantOrder = append(mgr.irrelevantOrder, id)
	mgr.facts = append(mgr.facts, Record{IDIsIrrelevant: &IDIsIrrelevant{id}})
	return true
}

func (mgr *Manager) add(d DataDescriptor) int {
	key := d.key()
	if i, ok := mgr.index[key]; ok {
		return i
	}
	i := len(mgr.descs)
	mgr.descs = append(mgr.descs, d)
	mgr.parent = append(mgr.parent, i)
	mgr.index[key] = i
	return i
}

func (mgr *Manager) find(i int) int {
	for mgr.parent[i] != i {
		mgr.parent[i] = mgr.parent[mgr.parent[i]]
		i = mgr.parent[i]
	}
	return i
}

func (mgr *Manager) union(i, j int) {
	i, j = mgr.find(i), mgr.find(j)
	if i == j {
		return
	}
	// The smaller index becomes the root, which keeps class order stable.
	if j < i {
		i, j = j, i
	}
	mgr.parent[j] = i
}

// GetAllSynonyms returns every data descriptor that takes part in a synonym
// fact, in the order they were first mentioned.
func (mgr *Manager) GetAllSynonyms() []DataDescriptor {
	return append([]DataDescriptor(nil), mgr.descs...)
}

// GetSynonymsForDataDescriptor returns descriptors known to be equal to d
// (d itself excluded) in the order they were first mentioned.
func (mgr *Manager) GetSynonymsForDataDescriptor(d DataDescriptor) []DataDescriptor {
	i, ok := mgr.index[d.key()]
	if !ok {
		return nil
	}
	root := mgr.find(i)
	var res []DataDescriptor
	for j, d1 := range mgr.descs {
		if j != i && mgr.find(j) == root {
			res = append(res, d1)
		}
	}
	return res
}

func (mgr *Manager) GetSynonymsForID(id ir.ID) []DataDescriptor {
	return mgr.GetSynonymsForDataDescriptor(MakeDataDescriptor(id))
}

// IsSynonymous says if d1 and d2 are known to hold the same value.
// Besides the closure of the recorded facts, equal components of synonymous
// composites are synonymous: if a[0] == b then a[0, 2] == b[2].
func (mgr *Manager) IsSynonymous(d1, d2 DataDescriptor) bool {
	if d1.Equal(d2) {
		return true
	}
	for suffix := 0; suffix <= len(d1.Index) && suffix <= len(d2.Index); suffix++ {
		n1, n2 := len(d1.Index)-suffix, len(d2.Index)-suffix
		if suffix != 0 && d1.Index[n1] != d2.Index[n2] {
			break
		}
		i, ok1 := mgr.index[DataDescriptor{d1.Object, d1.Index[:n1]}.key()]
		j, ok2 := mgr.index[DataDescriptor{d2.Object, d2.Index[:n2]}.key()]
		if ok1 && ok2 && mgr.find(i) == mgr.find(j) {
			return true
		}
	}
	return false
}

func (mgr *Manager) IDIsIrrelevant(id ir.ID) bool {
	return mgr.irrelevant[id]
}

// GetIrrelevantIDs returns irrelevant ids in increasing order.
func (mgr *Manager) GetIrrelevantIDs() []ir.ID {
	res := append([]ir.ID(nil), mgr.irrelevantOrder...)
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Facts exports every added fact in the order it was added.
func (mgr *Manager) Facts() []Record {
	return append([]Record(nil), mgr.facts...)
}

// Clone returns an independent copy of the manager.
func (mgr *Manager) Clone() *Manager {
	mgr1 := NewManager()
	for _, rec := range mgr.facts {
		mgr1.AddFact(rec)
	}
	return mgr1
}
