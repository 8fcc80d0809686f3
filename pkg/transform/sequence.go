// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package transform

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

// Sequence is the ordered log of applied transformations.
type Sequence struct {
	Records []Record `json:"transformations"`
}

func (seq *Sequence) Append(t Transformation) {
	seq.Records = append(seq.Records, t.ToRecord())
}

func (seq *Sequence) Len() int {
	if seq == nil {
		return 0
	}
	return len(seq.Records)
}

// Prefix returns the first k records.
func (seq *Sequence) Prefix(k int) *Sequence {
	if k > len(seq.Records) {
		k = len(seq.Records)
	}
	return &Sequence{Records: append([]Record(nil), seq.Records[:k]...)}
}

// Subset returns records with the given (increasing) indices.
func (seq *Sequence) Subset(indices []int) *Sequence {
	res := new(Sequence)
	prev := -1
	for _, idx := range indices {
		if idx <= prev || idx >= len(seq.Records) {
			panic(fmt.Sprintf("bad subset index %v (prev %v, len %v)", idx, prev, len(seq.Records)))
		}
		res.Records = append(res.Records, seq.Records[idx])
		prev = idx
	}
	return res
}

// Without returns the sequence with records [from, to) removed.
func (seq *Sequence) Without(from, to int) *Sequence {
	res := &Sequence{Records: append([]Record(nil), seq.Records[:from]...)}
	res.Records = append(res.Records, seq.Records[to:]...)
	return res
}

// Transformations decodes all records.
func (seq *Sequence) Transformations() ([]Transformation, error) {
	var res []Transformation
	for i, rec := range seq.Records {
		t, err := FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %v: %w", i, err)
		}
		res = append(res, t)
	}
	return res, nil
}

func (seq *Sequence) Marshal() []byte {
	data, err := json.MarshalIndent(seq, "", "\t")
	if err != nil {
		panic(err)
	}
	return append(data, '\n')
}

func UnmarshalSequence(data []byte) (*Sequence, error) {
	seq := new(Sequence)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(seq); err != nil {
		return nil, fmt.Errorf("failed to parse transformation sequence: %w", err)
	}
	if _, err := seq.Transformations(); err != nil {
		return nil, err
	}
	return seq, nil
}

// MarshalYAML returns a human readable dump of the sequence.
func (seq *Sequence) MarshalYAML() ([]byte, error) {
	return yaml.JSONToYAML(seq.Marshal())
}

func (seq *Sequence) String() string {
	buf := new(bytes.Buffer)
	for i, rec := range seq.Records {
		fmt.Fprintf(buf, "%v: %v\n", i, rec)
	}
	return buf.String()
}
