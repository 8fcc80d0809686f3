// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package db stores transformation sequences produced by fuzzing and shrinking.
//
// The corpus is kept in memory and mirrored to an append-only file:
// every save or delete appends one record, and the file is rewritten from
// the in-memory state once most of its records are superseded.
// Sequences are keyed by the hash of their serialization.
package db

import (
	"bufio"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/shaderfuzz/pkg/hash"
	"github.com/google/shaderfuzz/pkg/log"
	"github.com/google/shaderfuzz/pkg/osutil"
	"github.com/google/shaderfuzz/pkg/transform"
)

type DB struct {
	Entries map[string]Entry // must not be modified directly

	filename string
	records  int // records in the file, superseded ones included
	pending  []byte
}

type Entry struct {
	Seed uint64 // seed of the run that produced the sequence
	Data []byte // serialized transform.Sequence
}

const (
	fileMagic     = uint32(0x5fc0de)
	formatVersion = byte(1)
	opSave        = byte(1)
	opDelete      = byte(2)
	maxKeyLen     = 1 << 10
)

// Open loads the corpus from filename, creating the file if necessary.
// If repair is set, a corrupted file is rewritten with the records that
// could be read, and the error is returned along with the corpus.
func Open(filename string, repair bool) (*DB, error) {
	db := &DB{
		Entries:  make(map[string]Entry),
		filename: filename,
	}
	data, err := os.ReadFile(filename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if loadErr := db.load(bufio.NewReader(bytes.NewReader(data))); loadErr != nil {
		if !repair {
			return nil, loadErr
		}
		log.Logf(0, "repairing corpus %v: %v", filename, loadErr)
		if err := db.compact(); err != nil {
			return nil, err
		}
		return db, loadErr
	}
	if len(data) == 0 || db.stale() {
		if err := db.compact(); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// SaveSequence stores seq under the hash of its serialization and returns the key.
func (db *DB) SaveSequence(seq *transform.Sequence, seed uint64) string {
	data := seq.Marshal()
	key := hash.String(data)
	db.save(key, Entry{Seed: seed, Data: data})
	return key
}

// ReplaceSequence stores seq, a reduction of the sequence stored under key,
// in place of it. The seed is kept. Returns the new key.
func (db *DB) ReplaceSequence(key string, seq *transform.Sequence) (string, error) {
	old, ok := db.Entries[key]
	if !ok {
		return "", fmt.Errorf("no sequence %v in the corpus", key)
	}
	newKey := db.SaveSequence(seq, old.Seed)
	if newKey != key {
		db.delete(key)
	}
	return newKey, nil
}

// Keys returns keys of all stored sequences in sorted order.
func (db *DB) Keys() []string {
	var keys []string
	for key := range db.Entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (db *DB) Sequence(key string) (*transform.Sequence, error) {
	e, ok := db.Entries[key]
	if !ok {
		return nil, fmt.Errorf("no sequence %v in the corpus", key)
	}
	seq, err := transform.UnmarshalSequence(e.Data)
	if err != nil {
		return nil, fmt.Errorf("sequence %v: %w", key, err)
	}
	return seq, nil
}

// Flush writes pending changes to the file.
func (db *DB) Flush() error {
	if db.stale() {
		return db.compact()
	}
	if len(db.pending) == 0 {
		return nil
	}
	f, err := os.OpenFile(db.filename, os.O_WRONLY|os.O_APPEND|os.O_CREATE, osutil.DefaultFilePerm)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(db.pending); err != nil {
		return err
	}
	db.pending = nil
	return nil
}

func (db *DB) save(key string, e Entry) {
	if old, ok := db.Entries[key]; ok && old.Seed == e.Seed && bytes.Equal(old.Data, e.Data) {
		return
	}
	db.Entries[key] = e
	db.pending = appendRecord(db.pending, opSave, key, e)
	db.records++
}

func (db *DB) delete(key string) {
	if _, ok := db.Entries[key]; !ok {
		return
	}
	delete(db.Entries, key)
	db.pending = appendRecord(db.pending, opDelete, key, Entry{})
	db.records++
}

// stale says if most of the file consists of superseded records.
func (db *DB) stale() bool {
	return db.records > 2*len(db.Entries)+16
}

func (db *DB) compact() error {
	buf := binary.LittleEndian.AppendUint32(nil, fileMagic)
	buf = append(buf, formatVersion)
	for _, key := range db.Keys() {
		buf = appendRecord(buf, opSave, key, db.Entries[key])
	}
	if err := osutil.WriteFileAtomic(db.filename, buf); err != nil {
		return err
	}
	db.records = len(db.Entries)
	db.pending = nil
	return nil
}

func (db *DB) load(r *bufio.Reader) error {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to read corpus header: %w", err)
	}
	if magic != fileMagic {
		return fmt.Errorf("bad corpus magic 0x%x", magic)
	}
	ver, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read corpus header: %w", err)
	}
	if ver != formatVersion {
		return fmt.Errorf("unsupported corpus format %v", ver)
	}
	for {
		op, err := r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		key, e, err := readRecord(r, op)
		if err != nil {
			return fmt.Errorf("corpus record %v: %w", db.records, err)
		}
		db.records++
		if op == opDelete {
			delete(db.Entries, key)
		} else {
			db.Entries[key] = e
		}
	}
}

func appendRecord(buf []byte, op byte, key string, e Entry) []byte {
	buf = append(buf, op)
	buf = binary.AppendUvarint(buf, uint64(len(key)))
	buf = append(buf, key...)
	if op == opDelete {
		return buf
	}
	buf = binary.AppendUvarint(buf, e.Seed)
	data := compress(e.Data)
	buf = binary.AppendUvarint(buf, uint64(len(data)))
	return append(buf, data...)
}

func readRecord(r *bufio.Reader, op byte) (string, Entry, error) {
	var e Entry
	if op != opSave && op != opDelete {
		return "", e, fmt.Errorf("bad op %v", op)
	}
	keyLen, err := binary.ReadUvarint(r)
	if err != nil {
		return "", e, err
	}
	if keyLen > maxKeyLen {
		return "", e, fmt.Errorf("bad key length %v", keyLen)
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return "", e, err
	}
	if op == opDelete {
		return string(key), e, nil
	}
	if e.Seed, err = binary.ReadUvarint(r); err != nil {
		return "", e, err
	}
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return "", e, err
	}
	lr := &io.LimitedReader{R: r, N: int64(size)}
	fr := flate.NewReader(lr)
	data, err := io.ReadAll(fr)
	fr.Close()
	if err != nil {
		return "", e, err
	}
	// The decompressor may stop short of the padding of the last block.
	if _, err := io.Copy(io.Discard, lr); err != nil {
		return "", e, err
	}
	if len(data) != 0 {
		e.Data = data
	}
	return string(key), e, nil
}

func compress(data []byte) []byte {
	buf := new(bytes.Buffer)
	w, err := flate.NewWriter(buf, flate.BestCompression)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
