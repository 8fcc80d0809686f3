// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package shrinker reduces a transformation sequence while an external
// predicate keeps accepting the module the sequence produces.
package shrinker

import (
	"errors"
	"fmt"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/hash"
	"github.com/google/shaderfuzz/pkg/log"
	"github.com/google/shaderfuzz/pkg/transform"
)

// Interesting says if a replayed module still exhibits the property of interest.
type Interesting func(m *ir.Module, facts *fact.Manager) bool

type Options struct {
	// StepLimit bounds the number of replays, 0 means unlimited.
	StepLimit        int                 `json:"step_limit"`
	ValidatorOptions ir.ValidatorOptions `json:"validator_options"`
}

type Result struct {
	Sequence *transform.Sequence
	Module   *ir.Module
	Facts    *fact.Manager
	// Steps is the number of replays done, including the initial one.
	Steps int
	// Exhausted is set if the step limit stopped the search.
	Exhausted bool
}

var debug = false // enabled in tests

var ErrNotInteresting = errors.New("the initial sequence is not interesting")

// Shrink replays seq on m and then tries to remove chunks of records, starting
// with the whole sequence and halving the chunk size down to single records.
// Within a chunk size, chunks are removed from the end towards the start.
// A candidate is kept if its replay is interesting; records that became
// inapplicable are dropped from it as well.
func Shrink(m *ir.Module, facts []fact.Record, seq *transform.Sequence, pred Interesting,
	opts Options) (*Result, error) {
	s := &shrinker{
		m:     m,
		facts: facts,
		pred:  pred,
		opts:  opts,
		tried: make(map[hash.Sig]bool),
	}
	best, err := s.replay(seq)
	if err != nil {
		return nil, err
	}
	if !pred(best.Module, best.Facts) {
		return nil, ErrNotInteresting
	}
	s.tried[hash.Hash(best.Applied.Marshal())] = true
	log.Logf(1, "shrinking %v transformations (%v inapplicable)", seq.Len(), len(best.Skipped))
	for chunk := best.Applied.Len(); chunk > 0; chunk /= 2 {
		for end := best.Applied.Len(); end > 0; {
			start := max(end-chunk, 0)
			cand := best.Applied.Without(start, end)
			end = start
			sig := hash.Hash(cand.Marshal())
			if s.tried[sig] {
				continue
			}
			s.tried[sig] = true
			if s.exhausted() {
				log.Logf(1, "shrinking stopped after %v replays", s.steps)
				return s.result(best, true), nil
			}
			res, err := s.replay(cand)
			if err != nil {
				return nil, err
			}
			if !pred(res.Module, res.Facts) {
				continue
			}
			log.Logf(1, "removed transformations [%v, %v): %v -> %v",
				start, start+chunk, best.Applied.Len(), res.Applied.Len())
			best = res
			end = min(end, best.Applied.Len())
		}
	}
	log.Logf(1, "shrinking done: %v transformations left after %v replays", best.Applied.Len(), s.steps)
	return s.result(best, false), nil
}

type shrinker struct {
	m     *ir.Module
	facts []fact.Record
	pred  Interesting
	opts  Options
	tried map[hash.Sig]bool
	steps int
}

func (s *shrinker) exhausted() bool {
	return s.opts.StepLimit > 0 && s.steps >= s.opts.StepLimit
}

func (s *shrinker) replay(seq *transform.Sequence) (*transform.ReplayResult, error) {
	s.steps++
	res, err := transform.Replay(s.m, s.facts, seq, s.opts.ValidatorOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to replay: %w", err)
	}
	if debug {
		if err := ir.Validate(res.Module, s.opts.ValidatorOptions); err != nil {
			panic(log.CrashReport("replayed module is invalid: %v\n%v", err, res.Applied))
		}
	}
	return res, nil
}

func (s *shrinker) result(best *transform.ReplayResult, exhausted bool) *Result {
	return &Result{
		Sequence:  best.Applied,
		Module:    best.Module,
		Facts:     best.Facts,
		Steps:     s.steps,
		Exhausted: exhausted,
	}
}
