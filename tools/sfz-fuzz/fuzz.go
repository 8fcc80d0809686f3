// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// sfz-fuzz mutates a module with the fuzzer passes and saves the results.
// Each run gets its own output directory named with a random id:
//
//	sfz-fuzz -seed=1 -steps=100 -procs=4 -out=runs module.txt
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/config"
	"github.com/google/shaderfuzz/pkg/db"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/fuzzer"
	"github.com/google/shaderfuzz/pkg/log"
	"github.com/google/shaderfuzz/pkg/osutil"
	"github.com/google/shaderfuzz/pkg/stat"
	"github.com/google/shaderfuzz/pkg/tool"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

var (
	flagConfig   = flag.String("config", "", "fuzzer config file (JSON or YAML)")
	flagSeed     = flag.Int64("seed", -1, "prng seed of the first run (-1 for current time)")
	flagSteps    = flag.Int("steps", 0, "max transformations per run (overrides config)")
	flagStrategy = flag.String("strategy", "", "pass selection strategy: pipeline or bandit")
	flagProcs    = flag.Int("procs", 1, "number of parallel runs, run i uses seed+i")
	flagOut      = flag.String("out", ".", "output directory")
	flagFacts    = flag.String("facts", "", "JSON file with facts known about the input module")
	flagCorpus   = flag.String("corpus", "", "db file to save produced sequences to")
	flagXZ       = flag.Bool("xz", false, "compress saved sequences")
	flagYAML     = flag.Bool("yaml", false, "also save a YAML dump of each sequence")
	flagHTTP     = flag.String("http", "", "serve Prometheus metrics on this address")
	flagPasses   tool.ListFlag
	flagChances  tool.PercentFlag
)

func main() {
	flag.Var(&flagPasses, "passes", "comma-separated list of enabled passes")
	flag.Var(&flagChances, "chances", "chance overrides, e.g. splitting_block=100,merging_blocks=0")
	defer tool.Init()()
	// Debug checks attach recent output to their panics.
	log.EnableLogCaching(1000, 1<<20)
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: sfz-fuzz [flags] module.txt\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	cfg, err := loadConfig()
	if err != nil {
		tool.Fail(err)
	}
	m, facts, err := loadModule(flag.Arg(0), *flagFacts)
	if err != nil {
		tool.Fail(err)
	}
	if *flagHTTP != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Logf(0, "serving metrics on http://%v/metrics", *flagHTTP)
			if err := http.ListenAndServe(*flagHTTP, nil); err != nil {
				log.Errorf("metrics server failed: %v", err)
			}
		}()
	}
	var corpus *db.DB
	if *flagCorpus != "" {
		if corpus, err = db.Open(*flagCorpus, true); err != nil {
			if corpus == nil {
				tool.Failf("failed to open corpus: %v", err)
			}
			log.Logf(0, "corpus was repaired: %v", err)
		}
	}
	if err := osutil.MkdirAll(*flagOut); err != nil {
		tool.Fail(err)
	}
	shutdown := make(chan struct{})
	osutil.HandleInterrupts(shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-shutdown
		cancel()
	}()
	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *flagProcs; i++ {
		runCfg := *cfg
		runCfg.Seed = cfg.Seed + int64(i)
		eg.Go(func() error {
			res, err := fuzz(ctx, m, facts, &runCfg)
			if err != nil {
				return err
			}
			if corpus != nil {
				mu.Lock()
				key := corpus.SaveSequence(res.Sequence, uint64(runCfg.Seed))
				mu.Unlock()
				log.Logf(1, "seed %v: saved sequence %v", runCfg.Seed, key)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		tool.Fail(err)
	}
	if corpus != nil {
		if err := corpus.Flush(); err != nil {
			tool.Failf("failed to save corpus: %v", err)
		}
	}
	for _, s := range stat.Collect(stat.Console) {
		log.Logf(0, "%-24v: %v", s.Name, s.Value)
	}
}

func loadConfig() (*fuzzer.Config, error) {
	cfg := fuzzer.DefaultConfig()
	if *flagConfig != "" {
		var err error
		if cfg, err = fuzzer.LoadConfig(*flagConfig); err != nil {
			return nil, err
		}
	}
	if *flagSeed != -1 {
		cfg.Seed = *flagSeed
	} else if *flagConfig == "" {
		cfg.Seed = time.Now().UnixNano()
	}
	if *flagSteps != 0 {
		cfg.MaxSteps = *flagSteps
	}
	if *flagStrategy != "" {
		cfg.Strategy = *flagStrategy
	}
	if len(flagPasses) != 0 {
		cfg.Passes = flagPasses
	}
	if len(flagChances) != 0 {
		if cfg.Chances == nil {
			cfg.Chances = make(map[string]uint32)
		}
		for name, p := range flagChances {
			cfg.Chances[name] = p
		}
	}
	return cfg, cfg.Check()
}

func loadModule(moduleFile, factsFile string) (*ir.Module, []fact.Record, error) {
	data, err := tool.ReadFile(moduleFile)
	if err != nil {
		return nil, nil, err
	}
	m, err := ir.Deserialize(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %w", moduleFile, err)
	}
	var facts []fact.Record
	if factsFile != "" {
		data, err := tool.ReadFile(factsFile)
		if err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal(data, &facts); err != nil {
			return nil, nil, fmt.Errorf("%v: failed to parse facts: %w", factsFile, err)
		}
	}
	return m, facts, nil
}

func fuzz(ctx context.Context, m *ir.Module, facts []fact.Record, cfg *fuzzer.Config) (*fuzzer.Result, error) {
	f, err := fuzzer.NewFuzzer(m, facts, cfg)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := f.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed %v: %w", cfg.Seed, err)
	}
	dir := filepath.Join(*flagOut, uuid.NewString())
	if err := osutil.MkdirAll(dir); err != nil {
		return nil, err
	}
	seqFile := filepath.Join(dir, "sequence.json")
	if *flagXZ {
		seqFile += ".xz"
	}
	factsData, err := json.MarshalIndent(res.Facts.Facts(), "", "\t")
	if err != nil {
		return nil, err
	}
	files := map[string][]byte{
		filepath.Join(dir, "module.txt"):  res.Module.Serialize(),
		filepath.Join(dir, "facts.json"):  factsData,
		seqFile:                           res.Sequence.Marshal(),
	}
	if *flagYAML {
		yml, err := res.Sequence.MarshalYAML()
		if err != nil {
			return nil, err
		}
		files[filepath.Join(dir, "sequence.yaml")] = yml
	}
	for file, data := range files {
		if err := tool.WriteFile(file, data); err != nil {
			return nil, err
		}
	}
	if err := config.SaveFile(filepath.Join(dir, "config.json"), cfg); err != nil {
		return nil, err
	}
	// Replay needs the original module next to the sequence.
	if err := osutil.CopyFile(flag.Arg(0), filepath.Join(dir, "original.txt")); err != nil {
		return nil, err
	}
	log.Logf(0, "seed %v: %v transformations in %v passes (%v), saved to %v",
		cfg.Seed, res.Sequence.Len(), res.Passes, time.Since(start).Truncate(time.Millisecond), dir)
	if weights := f.Weights(); weights != nil {
		log.Logf(1, "seed %v: pass weights %v", cfg.Seed, weights)
	}
	return res, nil
}
