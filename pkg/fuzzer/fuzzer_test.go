// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/testutil"
	"github.com/google/shaderfuzz/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFuzzer(t *testing.T, m *ir.Module, facts []fact.Record, cfg *Config) *Result {
	t.Helper()
	f, err := NewFuzzer(m, facts, cfg)
	require.NoError(t, err)
	res, err := f.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestFuzz(t *testing.T) {
	t.Parallel()
	for _, strategy := range []string{StrategyPipeline, StrategyBandit} {
		strategy := strategy
		t.Run(strategy, func(t *testing.T) {
			t.Parallel()
			seed := testutil.RandSeed(t)
			m := ir.MustDeserialize(ir.TestModule)
			facts := []fact.Record{{IDIsIrrelevant: &fact.IDIsIrrelevant{ID: 21}}}
			for i := 0; i < 5; i++ {
				cfg := DefaultConfig()
				cfg.Seed = seed + int64(i)
				cfg.Strategy = strategy
				cfg.MaxSteps = 100
				res := runFuzzer(t, m, facts, cfg)
				require.NoError(t, ir.Validate(res.Module, cfg.ValidatorOptions))
				assert.LessOrEqual(t, res.Sequence.Len(), cfg.MaxSteps)

				// The same seed gives the same run.
				res1 := runFuzzer(t, m, facts, cfg)
				if diff := cmp.Diff(res.Sequence.Records, res1.Sequence.Records); diff != "" {
					t.Fatalf("sequences differ for seed %v:\n%s", cfg.Seed, diff)
				}
				require.Equal(t, string(res.Module.Serialize()), string(res1.Module.Serialize()))

				// The sequence replays to the same module and facts.
				rep, err := transform.Replay(m, facts, res.Sequence, cfg.ValidatorOptions)
				require.NoError(t, err)
				assert.Empty(t, rep.Skipped)
				assert.Equal(t, string(res.Module.Serialize()), string(rep.Module.Serialize()))
				if diff := cmp.Diff(res.Facts.Facts(), rep.Facts.Facts()); diff != "" {
					t.Fatalf("facts differ after replay:\n%s", diff)
				}
			}
			// The input is not modified.
			assert.Equal(t, string(ir.MustDeserialize(ir.TestModule).Serialize()), string(m.Serialize()))
		})
	}
}

func TestFuzzStall(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.StallLimit = 7
	cfg.Chances = make(map[string]uint32)
	for c := Chance(0); c < numChances; c++ {
		cfg.Chances[c.String()] = 0
	}
	res := runFuzzer(t, ir.MustDeserialize(ir.TestModule), nil, cfg)
	assert.Equal(t, 0, res.Sequence.Len())
	assert.Equal(t, 7, res.Passes)
	assert.Zero(t, res.Productivity)
	assert.Zero(t, res.Yield)
	assert.Equal(t, string(ir.MustDeserialize(ir.TestModule).Serialize()), string(res.Module.Serialize()))
}

func TestFuzzMaxSteps(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxSteps = 3
	cfg.Passes = []string{"split_blocks"}
	cfg.Chances = map[string]uint32{"splitting_block": 100}
	res := runFuzzer(t, ir.MustDeserialize(ir.TestModule), nil, cfg)
	assert.Equal(t, 3, res.Sequence.Len())
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 1.0, res.Productivity)
	assert.Equal(t, 3.0, res.Yield)
}

func TestFuzzCancelled(t *testing.T) {
	t.Parallel()
	f, err := NewFuzzer(ir.MustDeserialize(ir.TestModule), nil, DefaultConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Passes)
	assert.Equal(t, 0, res.Sequence.Len())
}

func TestFuzzBanditWeights(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Strategy = StrategyBandit
	f, err := NewFuzzer(ir.MustDeserialize(ir.TestModule), nil, cfg)
	require.NoError(t, err)
	_, err = f.Run(context.Background())
	require.NoError(t, err)
	weights := f.Weights()
	assert.Len(t, weights, len(defaultPasses))

	f, err = NewFuzzer(ir.MustDeserialize(ir.TestModule), nil, DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, f.Weights())
}

func TestNewFuzzerErrors(t *testing.T) {
	t.Parallel()
	m := ir.MustDeserialize(ir.TestModule)
	m.Bound = 10
	_, err := NewFuzzer(m, nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Passes = []string{"no_such_pass"}
	_, err = NewFuzzer(ir.MustDeserialize(ir.TestModule), nil, cfg)
	assert.Error(t, err)
}

func TestConfigCheck(t *testing.T) {
	t.Parallel()
	tests := map[string]func(cfg *Config){
		"max steps":   func(cfg *Config) { cfg.MaxSteps = 0 },
		"stall limit": func(cfg *Config) { cfg.StallLimit = -1 },
		"strategy":    func(cfg *Config) { cfg.Strategy = "random" },
		"pass":        func(cfg *Config) { cfg.Passes = []string{"merge_blocks", "permute"} },
		"chance name": func(cfg *Config) { cfg.Chances = map[string]uint32{"splitting": 10} },
		"percentage":  func(cfg *Config) { cfg.Chances = map[string]uint32{"splitting_block": 101} },
	}
	for name, mutate := range tests {
		cfg := DefaultConfig()
		require.NoError(t, cfg.Check())
		mutate(cfg)
		assert.Error(t, cfg.Check(), name)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "fuzz.cfg")
	require.NoError(t, os.WriteFile(file, []byte(`
# Only block passes.
{
	"seed": 42,
	"strategy": "bandit",
	"passes": ["split_blocks", "merge_blocks"],
	"chances": {"merging_blocks": 100}
}
`), 0644))
	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	want := DefaultConfig()
	want.Seed = 42
	want.Strategy = StrategyBandit
	want.Passes = []string{"split_blocks", "merge_blocks"}
	want.Chances = map[string]uint32{"merging_blocks": 100}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatal(diff)
	}

	yamlFile := filepath.Join(dir, "fuzz.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("max_steps: 10\nstall_limit: 2\n"), 0644))
	cfg, err = LoadConfig(yamlFile)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxSteps)
	assert.Equal(t, 2, cfg.StallLimit)
	assert.Equal(t, StrategyPipeline, cfg.Strategy)

	require.NoError(t, os.WriteFile(file, []byte(`{"max_steps": 10, "unknown": 1}`), 0644))
	_, err = LoadConfig(file)
	assert.Error(t, err)
	require.NoError(t, os.WriteFile(file, []byte(`{"strategy": "greedy"}`), 0644))
	_, err = LoadConfig(file)
	assert.Error(t, err)
}
