// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"time"

	"github.com/google/shaderfuzz/pkg/stat"
	"github.com/google/shaderfuzz/pkg/transform"
)

type Stats struct {
	statPasses          *stat.Val
	statUnproductive    *stat.Val
	statTransformations *stat.Val
	statPassTime        *stat.Val
	statPassSize        *stat.Val
	statKinds           map[string]*stat.Val
	statPassRuns        map[string]*stat.Val
}

func newStats() *Stats {
	s := &Stats{
		statPasses: stat.New("passes", "Number of fuzzer passes run",
			stat.Console, stat.Rate{}, stat.Prometheus("sfz_passes")),
		statUnproductive: stat.New("unproductive passes",
			"Number of passes that did not apply any transformation", stat.Console),
		statTransformations: stat.New("transformations", "Number of applied transformations",
			stat.Console, stat.Rate{}, stat.Prometheus("sfz_transformations")),
		statPassTime: stat.New("pass time", "Time of a single pass run (us)",
			stat.Distribution{}),
		statPassSize: stat.New("pass size", "Transformations applied by a single pass run",
			stat.Distribution{}),
		statKinds:    make(map[string]*stat.Val),
		statPassRuns: make(map[string]*stat.Val),
	}
	for _, kind := range transform.Kinds() {
		s.statKinds[kind] = stat.New("transformations "+kind,
			"Number of applied "+kind+" transformations")
	}
	for _, name := range PassNames() {
		s.statPassRuns[name] = stat.New("pass "+name, "Number of "+name+" pass runs")
	}
	return s
}

func (s *Stats) record(pass string, recs []transform.Record, elapsed time.Duration) {
	s.statPasses.Add(1)
	s.statPassRuns[pass].Add(1)
	if len(recs) == 0 {
		s.statUnproductive.Add(1)
	}
	s.statTransformations.Add(len(recs))
	s.statPassTime.Add(int(elapsed / time.Microsecond))
	s.statPassSize.Add(len(recs))
	for _, rec := range recs {
		s.statKinds[rec.Kind].Add(1)
	}
}
