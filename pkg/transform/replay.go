// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package transform

import (
	"fmt"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/log"
)

type ReplayResult struct {
	Module *ir.Module
	Facts  *fact.Manager
	// Applied contains records that were applicable, in order.
	Applied *Sequence
	// Skipped contains indices of inapplicable records.
	Skipped []int
}

// Replay applies seq to a copy of m with a fresh fact manager seeded with
// facts. Inapplicable records are skipped. No randomness is involved,
// so the result is determined by the inputs.
func Replay(m *ir.Module, facts []fact.Record, seq *Sequence, opts ir.ValidatorOptions) (*ReplayResult, error) {
	ctx := NewContext(fact.NewManager(), opts)
	for _, rec := range facts {
		ctx.Facts.AddFact(rec)
	}
	res := &ReplayResult{
		Module:  m.Clone(),
		Facts:   ctx.Facts,
		Applied: new(Sequence),
	}
	for i, rec := range seq.Records {
		t, err := FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %v: %w", i, err)
		}
		if !t.IsApplicable(res.Module, ctx) {
			log.Logf(2, "replay: skipping inapplicable record %v: %v", i, rec)
			res.Skipped = append(res.Skipped, i)
			continue
		}
		t.Apply(res.Module, ctx)
		res.Applied.Records = append(res.Applied.Records, rec)
	}
	return res, nil
}
