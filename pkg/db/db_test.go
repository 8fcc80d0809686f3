// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package db

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/osutil"
	"github.com/google/shaderfuzz/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveDelete(t *testing.T) {
	fn := tempFile(t)
	db, err := Open(fn, false)
	require.NoError(t, err)
	assert.Empty(t, db.Entries)
	db.save("1", Entry{Seed: 0, Data: []byte("ab")})
	db.save("23", Entry{Seed: 1})
	db.save("456", Entry{Seed: 1, Data: []byte("abcd")})
	db.save("7890", Entry{Seed: 0, Data: []byte("a")})
	db.delete("23")
	db.save("1", Entry{Seed: 5})
	db.save("456", Entry{Seed: 6, Data: []byte("ef")})
	db.delete("7890")
	db.delete("missing")
	db.save("456", Entry{Seed: 0, Data: []byte("efg")})
	db.save("7890", Entry{Seed: 0, Data: []byte("bc")})

	want := map[string]Entry{
		"1":    {Seed: 5},
		"456":  {Seed: 0, Data: []byte("efg")},
		"7890": {Seed: 0, Data: []byte("bc")},
	}
	assert.Equal(t, want, db.Entries)
	assert.Equal(t, []string{"1", "456", "7890"}, db.Keys())
	require.NoError(t, db.Flush())
	db, err = Open(fn, false)
	require.NoError(t, err)
	assert.Equal(t, want, db.Entries)
	assert.Equal(t, 10, db.records)
}

func TestCompaction(t *testing.T) {
	fn := tempFile(t)
	db, err := Open(fn, false)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		db.save("key", Entry{Seed: uint64(i), Data: []byte{byte(i)}})
	}
	require.NoError(t, db.Flush())
	assert.Equal(t, 1, db.records)
	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Less(t, len(data), 32)

	db, err = Open(fn, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]Entry{"key": {Seed: 99, Data: []byte{99}}}, db.Entries)
}

func TestLarge(t *testing.T) {
	fn := tempFile(t)
	db, err := Open(fn, false)
	require.NoError(t, err)
	const nrec = 1000
	val := make([]byte, 1000)
	for i := range val {
		val[i] = byte(rand.Intn(256))
	}
	for i := 0; i < nrec; i++ {
		db.save(fmt.Sprint(i), Entry{Seed: uint64(i), Data: val})
	}
	require.NoError(t, db.Flush())
	db, err = Open(fn, false)
	require.NoError(t, err)
	require.Len(t, db.Entries, nrec)
	assert.Equal(t, val, db.Entries["999"].Data)
}

func TestOpenInvalid(t *testing.T) {
	fn := tempFile(t)
	require.NoError(t, osutil.WriteFile(fn, []byte(`some invalid data`)))
	db, err := Open(fn, false)
	assert.Error(t, err)
	assert.Nil(t, db)
	db, err = Open(fn, true)
	assert.Error(t, err)
	require.NotNil(t, db)
	assert.Empty(t, db.Entries)
	// The repaired corpus opens cleanly.
	_, err = Open(fn, false)
	assert.NoError(t, err)
}

func TestOpenCorrupted(t *testing.T) {
	fn := tempFile(t)
	db, err := Open(fn, false)
	require.NoError(t, err)
	// Write 1000 records, then wipe the second half of the file:
	// the error is reported and about half of the records survive.
	for i := 0; i < 1000; i++ {
		db.save(fmt.Sprint(i), Entry{Data: []byte{byte(i)}})
	}
	require.NoError(t, db.Flush())
	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	for i := len(data) / 2; i < len(data); i++ {
		data[i] = 0
	}
	require.NoError(t, osutil.WriteFile(fn, data))
	_, err = Open(fn, false)
	require.Error(t, err)
	db, err = Open(fn, true)
	require.Error(t, err)
	t.Logf("records %v, error: %v", len(db.Entries), err)
	assert.GreaterOrEqual(t, len(db.Entries), 400)
	assert.LessOrEqual(t, len(db.Entries), 600)
	_, err = Open(fn, false)
	assert.NoError(t, err)
}

func TestSequences(t *testing.T) {
	fn := tempFile(t)
	m := ir.MustDeserialize(ir.TestModule)
	_, b := m.BlockFunction(23)
	seq1 := new(transform.Sequence)
	seq1.Append(&transform.SplitBlock{SplitBefore: ir.MakeInstructionDescriptor(b, 2), FreshID: 50})
	seq2 := new(transform.Sequence)
	seq2.Append(&transform.MergeBlocks{BlockID: 24})
	seq2.Append(&transform.AddConstant{FreshID: 50, TypeID: 5, Opcode: ir.OpConstant, Value: 3})

	db, err := Open(fn, false)
	require.NoError(t, err)
	key1 := db.SaveSequence(seq1, 1)
	key2 := db.SaveSequence(seq2, 2)
	assert.NotEqual(t, key1, key2)
	assert.Equal(t, key1, db.SaveSequence(seq1, 1))
	require.NoError(t, db.Flush())

	db, err = Open(fn, false)
	require.NoError(t, err)
	require.Len(t, db.Keys(), 2)
	got, err := db.Sequence(key2)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "merge_blocks", got.Records[0].Kind)
	assert.Equal(t, "add_constant", got.Records[1].Kind)
	_, err = db.Sequence("missing")
	assert.Error(t, err)

	// A reduction replaces the original and keeps its seed.
	key3, err := db.ReplaceSequence(key2, seq2.Prefix(1))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{key1, key3}, db.Keys())
	assert.Equal(t, uint64(2), db.Entries[key3].Seed)
	_, err = db.ReplaceSequence(key2, seq2)
	assert.Error(t, err)
	require.NoError(t, db.Flush())

	db, err = Open(fn, false)
	require.NoError(t, err)
	got, err = db.Sequence(key3)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, "merge_blocks", got.Records[0].Kind)
}

func tempFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "shaderfuzz.test.db")
}
