// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// sfz-shrink reduces a transformation sequence while the resulting module stays
// interesting. A module is interesting if the command given after the files
// exits with status 0 when fed the module on stdin:
//
//	sfz-shrink -out small.json module.txt sequence.json -- ./crashes-compiler.sh
//
// With -valid the shrinker instead keeps modules the validator rejects,
// which is useful to reduce sequences that exposed a transformation bug.
//
// With -corpus the sequence argument is a key in the corpus db, and the
// reduced sequence replaces the original in the corpus.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/config"
	"github.com/google/shaderfuzz/pkg/db"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/log"
	"github.com/google/shaderfuzz/pkg/osutil"
	"github.com/google/shaderfuzz/pkg/shrinker"
	"github.com/google/shaderfuzz/pkg/tool"
	"github.com/google/shaderfuzz/pkg/transform"
)

var (
	flagConfig  = flag.String("config", "", "shrinker options file (JSON or YAML)")
	flagOut     = flag.String("out", "", "output file for the reduced sequence (required)")
	flagFacts   = flag.String("facts", "", "JSON file with facts known about the input module")
	flagTimeout = flag.Duration("timeout", time.Minute, "timeout of a single interestingness check")
	flagValid   = flag.Bool("valid", false, "shrink while the module fails validation")
	flagSteps   = flag.Int("steps", 0, "max number of replays (overrides config)")
	flagDiff    = flag.Bool("diff", false, "print a diff of the reduced module against the input module")
	flagCorpus  = flag.String("corpus", "", "take the sequence from this corpus db and store the reduction there")
)

func main() {
	defer tool.Init()()
	// Debug checks attach recent output to their panics.
	log.EnableLogCaching(1000, 1<<20)
	args := flag.Args()
	if len(args) < 2 || *flagOut == "" || !*flagValid && len(args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: sfz-shrink [flags] -out file module.txt sequence.json [--] [command args...]\n")
		fmt.Fprintf(os.Stderr, "       sfz-shrink [flags] -out file -corpus corpus.db module.txt key [--] [command args...]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	var opts shrinker.Options
	if *flagConfig != "" {
		if err := config.LoadFile(*flagConfig, &opts); err != nil {
			tool.Fail(err)
		}
	}
	if *flagSteps != 0 {
		opts.StepLimit = *flagSteps
	}
	data, err := tool.ReadFile(args[0])
	if err != nil {
		tool.Fail(err)
	}
	m, err := ir.Deserialize(data)
	if err != nil {
		tool.Failf("%v: %v", args[0], err)
	}
	var corpus *db.DB
	var seq *transform.Sequence
	if *flagCorpus != "" {
		if corpus, err = db.Open(*flagCorpus, false); err != nil {
			tool.Failf("failed to open corpus: %v", err)
		}
		if seq, err = corpus.Sequence(args[1]); err != nil {
			tool.Fail(err)
		}
	} else {
		if data, err = tool.ReadFile(args[1]); err != nil {
			tool.Fail(err)
		}
		if seq, err = transform.UnmarshalSequence(data); err != nil {
			tool.Failf("%v: %v", args[1], err)
		}
	}
	var facts []fact.Record
	if *flagFacts != "" {
		data, err := tool.ReadFile(*flagFacts)
		if err != nil {
			tool.Fail(err)
		}
		if err := json.Unmarshal(data, &facts); err != nil {
			tool.Failf("%v: failed to parse facts: %v", *flagFacts, err)
		}
	}
	pred := commandOracle(args[2:])
	if *flagValid {
		pred = func(m *ir.Module, facts *fact.Manager) bool {
			return ir.Validate(m, opts.ValidatorOptions) != nil
		}
	}
	res, err := shrinker.Shrink(m, facts, seq, pred, opts)
	if err != nil {
		tool.Fail(err)
	}
	log.Logf(0, "reduced %v transformations to %v in %v replays",
		seq.Len(), res.Sequence.Len(), res.Steps)
	if res.Exhausted {
		log.Logf(0, "the step limit was reached, the result may be reduced further")
	}
	if err := tool.WriteFile(*flagOut, res.Sequence.Marshal()); err != nil {
		tool.Fail(err)
	}
	if corpus != nil {
		key, err := corpus.ReplaceSequence(args[1], res.Sequence)
		if err != nil {
			tool.Fail(err)
		}
		if err := corpus.Flush(); err != nil {
			tool.Failf("failed to save corpus: %v", err)
		}
		log.Logf(0, "corpus sequence %v replaced with %v", args[1], key)
	}
	if *flagDiff {
		os.Stdout.WriteString(tool.Diff(m.Serialize(), res.Module.Serialize(), 3))
	}
}

func commandOracle(cmd []string) shrinker.Interesting {
	if len(cmd) > 0 && cmd[0] == "--" {
		cmd = cmd[1:]
	}
	return func(m *ir.Module, facts *fact.Manager) bool {
		if len(cmd) == 0 {
			return false
		}
		output, err := osutil.RunWithInput(*flagTimeout, m.Serialize(), cmd[0], cmd[1:]...)
		if err != nil {
			log.Logf(2, "not interesting: %v\n%s", err, output)
			return false
		}
		return true
	}
}
