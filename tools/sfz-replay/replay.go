// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// sfz-replay applies a transformation sequence to a module and prints the result:
//
//	sfz-replay -prefix=10 -diff module.txt sequence.json.xz
//
// With -corpus every sequence stored in the corpus is replayed on the module
// and checked for validity instead:
//
//	sfz-replay -corpus=corpus.db module.txt
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/shaderfuzz/ir"
	"github.com/google/shaderfuzz/pkg/db"
	"github.com/google/shaderfuzz/pkg/fact"
	"github.com/google/shaderfuzz/pkg/tool"
	"github.com/google/shaderfuzz/pkg/transform"
)

var (
	flagPrefix  = flag.Int("prefix", -1, "replay only the first N transformations")
	flagDiff    = flag.Bool("diff", false, "print a diff against the input module")
	flagContext = flag.Int("context", 3, "unchanged lines around changes in the diff")
	flagFacts   = flag.String("facts", "", "JSON file with facts known about the input module")
	flagOut     = flag.String("out", "", "write the resulting module to this file instead of stdout")
	flagYAML    = flag.Bool("yaml", false, "print the replayed sequence as YAML")
	flagRelax   = flag.Bool("relax-logical-pointers", false, "allow pointer parameters of any storage class")
	flagCorpus  = flag.String("corpus", "", "replay all sequences from this corpus db")
)

func main() {
	defer tool.Init()()
	if flag.NArg() != 2 && (*flagCorpus == "" || flag.NArg() != 1) {
		fmt.Fprintf(os.Stderr, "usage: sfz-replay [flags] module.txt sequence.json\n")
		fmt.Fprintf(os.Stderr, "       sfz-replay [flags] -corpus=corpus.db module.txt\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	data, err := tool.ReadFile(flag.Arg(0))
	if err != nil {
		tool.Fail(err)
	}
	m, err := ir.Deserialize(data)
	if err != nil {
		tool.Failf("%v: %v", flag.Arg(0), err)
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
	opts := ir.ValidatorOptions{RelaxLogicalPointer: *flagRelax}
	if *flagCorpus != "" {
		replayCorpus(m, facts, opts)
		return
	}
	data, err = tool.ReadFile(flag.Arg(1))
	if err != nil {
		tool.Fail(err)
	}
	seq, err := transform.UnmarshalSequence(data)
	if err != nil {
		tool.Failf("%v: %v", flag.Arg(1), err)
	}
	if *flagPrefix >= 0 {
		seq = seq.Prefix(*flagPrefix)
	}
	res, err := transform.Replay(m, facts, seq, opts)
	if err != nil {
		tool.Fail(err)
	}
	if err := ir.Validate(res.Module, opts); err != nil {
		tool.Failf("replayed module is invalid: %v", err)
	}
	fmt.Fprintf(os.Stderr, "applied %v transformations, skipped %v %v\n",
		res.Applied.Len(), len(res.Skipped), res.Skipped)
	if *flagYAML {
		yml, err := res.Applied.MarshalYAML()
		if err != nil {
			tool.Fail(err)
		}
		os.Stdout.Write(yml)
	}
	out := res.Module.Serialize()
	if *flagDiff {
		out = []byte(tool.Diff(m.Serialize(), out, *flagContext))
	}
	if *flagOut != "" {
		if err := tool.WriteFile(*flagOut, out); err != nil {
			tool.Fail(err)
		}
		return
	}
	os.Stdout.Write(out)
}

func replayCorpus(m *ir.Module, facts []fact.Record, opts ir.ValidatorOptions) {
	corpus, err := db.Open(*flagCorpus, false)
	if err != nil {
		tool.Failf("failed to open corpus: %v", err)
	}
	failed := 0
	for _, key := range corpus.Keys() {
		seq, err := corpus.Sequence(key)
		if err != nil {
			tool.Fail(err)
		}
		if *flagPrefix >= 0 {
			seq = seq.Prefix(*flagPrefix)
		}
		res, err := transform.Replay(m, facts, seq, opts)
		if err == nil {
			err = ir.Validate(res.Module, opts)
		}
		if err != nil {
			fmt.Printf("%v: seed %v: %v\n", key, corpus.Entries[key].Seed, err)
			failed++
			continue
		}
		fmt.Printf("%v: seed %v: applied %v, skipped %v\n",
			key, corpus.Entries[key].Seed, res.Applied.Len(), len(res.Skipped))
	}
	if failed != 0 {
		tool.Failf("%v out of %v sequences failed", failed, len(corpus.Entries))
	}
}
