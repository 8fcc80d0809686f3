// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fact

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/shaderfuzz/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynonyms(t *testing.T) {
	mgr := NewManager()
	assert.True(t, mgr.AddFactDataSynonym(MakeDataDescriptor(10), MakeDataDescriptor(20)))
	assert.True(t, mgr.AddFactDataSynonym(MakeDataDescriptor(30, 1), MakeDataDescriptor(20)))
	assert.True(t, mgr.AddFactDataSynonym(MakeDataDescriptor(40), MakeDataDescriptor(41)))

	want := []DataDescriptor{
		MakeDataDescriptor(10),
		MakeDataDescriptor(20),
		MakeDataDescriptor(30, 1),
		MakeDataDescriptor(40),
		MakeDataDescriptor(41),
	}
	if diff := cmp.Diff(want, mgr.GetAllSynonyms()); diff != "" {
		t.Fatal(diff)
	}
	assert.Equal(t, []DataDescriptor{MakeDataDescriptor(20), MakeDataDescriptor(30, 1)},
		mgr.GetSynonymsForID(10))
	assert.Equal(t, []DataDescriptor{MakeDataDescriptor(10), MakeDataDescriptor(20)},
		mgr.GetSynonymsForDataDescriptor(MakeDataDescriptor(30, 1)))
	assert.Empty(t, mgr.GetSynonymsForID(30))
	assert.Empty(t, mgr.GetSynonymsForID(99))

	assert.True(t, mgr.IsSynonymous(MakeDataDescriptor(10), MakeDataDescriptor(30, 1)))
	assert.True(t, mgr.IsSynonymous(MakeDataDescriptor(41), MakeDataDescriptor(40)))
	assert.True(t, mgr.IsSynonymous(MakeDataDescriptor(50), MakeDataDescriptor(50)))
	assert.False(t, mgr.IsSynonymous(MakeDataDescriptor(10), MakeDataDescriptor(40)))
	assert.False(t, mgr.IsSynonymous(MakeDataDescriptor(30), MakeDataDescriptor(20)))
}

func TestSynonymComponents(t *testing.T) {
	mgr := NewManager()
	mgr.AddFactDataSynonym(MakeDataDescriptor(1, 0), MakeDataDescriptor(2))
	assert.True(t, mgr.IsSynonymous(MakeDataDescriptor(1, 0, 2), MakeDataDescriptor(2, 2)))
	assert.True(t, mgr.IsSynonymous(MakeDataDescriptor(2, 3, 1), MakeDataDescriptor(1, 0, 3, 1)))
	assert.False(t, mgr.IsSynonymous(MakeDataDescriptor(1, 0, 2), MakeDataDescriptor(2, 1)))
	assert.False(t, mgr.IsSynonymous(MakeDataDescriptor(1, 1), MakeDataDescriptor(2)))
}

func TestIrrelevantIDs(t *testing.T) {
	mgr := NewManager()
	assert.True(t, mgr.AddFactIDIsIrrelevant(7))
	assert.True(t, mgr.AddFactIDIsIrrelevant(3))
	assert.False(t, mgr.AddFactIDIsIrrelevant(7))
	assert.False(t, mgr.AddFactIDIsIrrelevant(0))
	assert.True(t, mgr.IDIsIrrelevant(3))
	assert.False(t, mgr.IDIsIrrelevant(4))
	assert.Equal(t, []ir.ID{3, 7}, mgr.GetIrrelevantIDs())
	// Irrelevant values are not used as synonyms.
	assert.False(t, mgr.AddFactDataSynonym(MakeDataDescriptor(7), MakeDataDescriptor(8)))
	assert.Empty(t, mgr.GetAllSynonyms())
}

func TestAddFact(t *testing.T) {
	mgr := NewManager()
	assert.False(t, mgr.AddFact(Record{}))
	assert.False(t, mgr.AddFact(Record{
		DataSynonym:    &DataSynonym{MakeDataDescriptor(1), MakeDataDescriptor(2)},
		IDIsIrrelevant: &IDIsIrrelevant{3},
	}))
	assert.False(t, mgr.AddFact(Record{DataSynonym: &DataSynonym{MakeDataDescriptor(1), MakeDataDescriptor(1)}}))
	assert.False(t, mgr.AddFact(Record{DataSynonym: &DataSynonym{MakeDataDescriptor(0), MakeDataDescriptor(1)}}))
	assert.True(t, mgr.AddFact(Record{DataSynonym: &DataSynonym{MakeDataDescriptor(1), MakeDataDescriptor(2, 0)}}))
	assert.True(t, mgr.AddFact(Record{IDIsIrrelevant: &IDIsIrrelevant{5}}))
	assert.Len(t, mgr.Facts(), 2)
}

func TestFactsExport(t *testing.T) {
	mgr := NewManager()
	mgr.AddFactDataSynonym(MakeDataDescriptor(1), MakeDataDescriptor(2, 1, 0))
	mgr.AddFactIDIsIrrelevant(9)
	mgr.AddFactDataSynonym(MakeDataDescriptor(3), MakeDataDescriptor(1))
	facts := mgr.Facts()
	data, err := json.Marshal(facts)
	require.NoError(t, err)
	assert.Equal(t, `[{"data_synonym":{"data1":{"object":1},"data2":{"object":2,"index":[1,0]}}},`+
		`{"id_is_irrelevant":{"id":9}},`+
		`{"data_synonym":{"data1":{"object":3},"data2":{"object":1}}}]`, string(data))
	var decoded []Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	mgr1 := NewManager()
	for _, rec := range decoded {
		require.True(t, mgr1.AddFact(rec), "fact %v", rec)
	}
	if diff := cmp.Diff(facts, mgr1.Facts()); diff != "" {
		t.Fatal(diff)
	}
	clone := mgr.Clone()
	clone.AddFactIDIsIrrelevant(10)
	assert.False(t, mgr.IDIsIrrelevant(10))
	assert.True(t, clone.IsSynonymous(MakeDataDescriptor(3), MakeDataDescriptor(2, 1, 0)))
	assert.Equal(t, "synonym(%1, %2[1 0])", facts[0].String())
	assert.Equal(t, "irrelevant(%9)", facts[1].String())
}
