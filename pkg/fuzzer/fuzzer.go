// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzer runs fuzzer passes over a module. All random decisions are
// drawn from a seeded Context, so a run is reproducible from its seed, and
// every applied transformation is recorded in a sequence that can be replayed.
package fuzzer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/config"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/learning"
	"github.com/google/shaderfuzz/pkg/log"
	"github.com/google/shaderfuzz/pkg/transform"
)

const (
	StrategyPipeline = "pipeline"
	StrategyBandit   = "bandit"
)

type Config struct {
	Seed     int64 `json:"seed"`
	MaxSteps int   `json:"max_steps"`
	// Strategy is either "pipeline" (passes round-robin) or "bandit"
	// (passes are picked by a multi-armed bandit rewarded by progress).
	Strategy string `json:"strategy"`
	// Passes to run. All passes if empty.
	Passes []string `json:"passes,omitempty"`
	// Chances overrides drawn percentages, e.g. {"splitting_block": 100}.
	Chances map[string]uint32 `json:"chances,omitempty"`
	// StallLimit stops the run after that many passes in a row did nothing.
	StallLimit       int                 `json:"stall_limit"`
	Debug            bool                `json:"debug"`
	ValidatorOptions ir.ValidatorOptions `json:"validator_options"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxSteps:   250,
		Strategy:   StrategyPipeline,
		StallLimit: 20,
	}
}

// LoadConfig loads a config on top of the defaults.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Check() error {
	if cfg.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %v", cfg.MaxSteps)
	}
	if cfg.StallLimit <= 0 {
		return fmt.Errorf("stall_limit must be positive, got %v", cfg.StallLimit)
	}
	switch cfg.Strategy {
	case StrategyPipeline, StrategyBandit:
	default:
		return fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
	for _, name := range cfg.Passes {
		if passCtors[name] == nil {
			return fmt.Errorf("unknown pass %q", name)
		}
	}
	for name, p := range cfg.Chances {
		if _, err := ParseChance(name); err != nil {
			return err
		}
		if p > 100 {
			return fmt.Errorf("chance %v: bad percentage %v", name, p)
		}
	}
	return nil
}

type Result struct {
	Module   *ir.Module
	Facts    *fact.Manager
	Sequence *transform.Sequence
	Passes   int
	// Productivity is the recent share of passes that applied something.
	Productivity float64
	// Yield is the recent mean number of transformations per pass.
	Yield float64
}

type Fuzzer struct {
	cfg          *Config
	m            *ir.Module
	tctx         *transform.Context
	fctx         *Context
	seq          *transform.Sequence
	passes       []string
	bandit       *learning.PlainMAB[string]
	recent       *learning.PassWindow
	stats        *Stats
}

// NewFuzzer prepares a run on a copy of m. facts are known facts about m.
func NewFuzzer(m *ir.Module, facts []fact.Record, cfg *Config) (*Fuzzer, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if err := ir.Validate(m, cfg.ValidatorOptions); err != nil {
		return nil, fmt.Errorf("input module is invalid: %w", err)
	}
	tctx := transform.NewContext(nil, cfg.ValidatorOptions)
	for _, rec := range facts {
		if !tctx.Facts.AddFact(rec) {
			log.Logf(1, "ignoring fact %v", rec)
		}
	}
	fctx := NewContext(NewRandomSource(cfg.Seed), m.Bound)
	for name, p := range cfg.Chances {
		c, _ := ParseChance(name)
		fctx.OverrideChance(c, p)
	}
	f := &Fuzzer{
		cfg:          cfg,
		m:            m.Clone(),
		tctx:         tctx,
		fctx:         fctx,
		seq:          new(transform.Sequence),
		passes:       cfg.Passes,
		recent:       learning.NewPassWindow(100),
		stats:        newStats(),
	}
	if len(f.passes) == 0 {
		f.passes = defaultPasses
	}
	if cfg.Strategy == StrategyBandit {
		f.bandit = &learning.PlainMAB[string]{
			ExplorationRate: 0.1,
			MinLearningRate: 0.05,
		}
		f.bandit.AddArms(f.passes...)
	}
	return f, nil
}

// banditRand feeds the bandit from the run's random source.
type banditRand struct {
	ctx *Context
}

func (r banditRand) Float64() float64 {
	return r.ctx.RandomDouble()
}

func (r banditRand) Intn(n int) int {
	return r.ctx.RandomIndex(n)
}

// Rewards saturate at this many transformations per pass.
const maxReward = 10

// Run applies passes until the step budget is spent, ctx is cancelled or
// the passes stop making progress. The module is valid whenever Run returns.
func (f *Fuzzer) Run(ctx context.Context) (*Result, error) {
	stall := 0
	passes := 0
	for ; f.seq.Len() < f.cfg.MaxSteps && stall < f.cfg.StallLimit; passes++ {
		if err := ctx.Err(); err != nil {
			log.Logf(1, "fuzzing interrupted after %v passes: %v", passes, err)
			break
		}
		var action learning.Action[string]
		name := f.passes[passes%len(f.passes)]
		if f.bandit != nil {
			action = f.bandit.Action(banditRand{f.fctx})
			name = action.Arm
		}
		added, err := f.runPass(name)
		if err != nil {
			return nil, err
		}
		if !action.Empty() {
			f.bandit.SaveReward(action, float64(min(added, maxReward))/maxReward)
		}
		if added != 0 {
			stall = 0
		} else {
			stall++
		}
		f.recent.Save(added)
	}
	log.Logf(1, "fuzzing done: %v passes, %v transformations, productivity %.2f, yield %.2f",
		passes, f.seq.Len(), f.recent.Productivity(), f.recent.Yield())
	return &Result{
		Module:       f.m,
		Facts:        f.tctx.Facts,
		Sequence:     f.seq,
		Passes:       passes,
		Productivity: f.recent.Productivity(),
		Yield:        f.recent.Yield(),
	}, nil
}

func (f *Fuzzer) runPass(name string) (int, error) {
	pass, err := newPass(name, f.m, f.tctx, f.fctx, f.seq, f.cfg.MaxSteps)
	if err != nil {
		return 0, err
	}
	before := f.seq.Len()
	start := time.Now()
	pass.Apply()
	added := f.seq.Len() - before
	f.stats.record(name, f.seq.Records[before:], time.Since(start))
	log.Logf(1, "pass %v: %v transformations", name, added)
	if debug || f.cfg.Debug {
		if err := ir.Validate(f.m, f.cfg.ValidatorOptions); err != nil {
			panic(log.CrashReport("module is invalid after pass %v: %v\n%s", name, err, f.m.Serialize()))
		}
	}
	return added, nil
}

// Weights returns bandit weights of the passes, nil for the pipeline strategy.
func (f *Fuzzer) Weights() map[string]float64 {
	if f.bandit == nil {
		return nil
	}
	res := make(map[string]float64)
	for i, w := range f.bandit.Weights() {
		res[f.passes[i]] = w
	}
	return res
}
