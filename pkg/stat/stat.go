// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package stat provides counters and distributions for instrumenting fuzzing runs.
//
//	statFoo := stat.New("metric name", "metric description")
//	statFoo.Add(1)
//
// Values can be printed with Collect and exported to Prometheus.
package stat

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VividCortex/gohistogram"
	"github.com/prometheus/client_golang/prometheus"
)

type UI struct {
	Name  string
	Desc  string
	Level Level
	Value string
	V     int
}

// Level controls if the metric is printed in periodic console logs
// or only in full dumps.
type Level int

const (
	All Level = iota
	Console
)

// Prometheus exports the metric to Prometheus under the given name.
type Prometheus string

// Rate says to show the metric rate per unit of time rather than the total value.
type Rate struct{}

// Distribution says to collect a histogram of individual samples.
type Distribution struct{}

const histogramBuckets = 255

var global = NewSet(prometheus.DefaultRegisterer)

func New(name, desc string, opts ...any) *Val {
	return global.New(name, desc, opts...)
}

func Collect(level Level) []UI {
	return global.Collect(level)
}

// Set is a registry of metrics. Metrics with the Prometheus option
// are registered in reg (if not nil).
type Set struct {
	mu    sync.Mutex
	vals  map[string]*Val
	reg   prometheus.Registerer
	start time.Time
}

func NewSet(reg prometheus.Registerer) *Set {
	return &Set{
		vals:  make(map[string]*Val),
		reg:   reg,
		start: time.Now(),
	}
}

// New creates a metric. Creating a metric with an existing name returns the existing one.
// Additionally a custom 'func() int' can be passed to read the metric value from the function,
// and 'func(int, time.Duration) string' for custom formatting of the value.
func (s *Set) New(name, desc string, opts ...any) *Val {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.vals[name]; v != nil {
		return v
	}
	v := &Val{
		name: name,
		desc: desc,
		fmt:  func(v int, period time.Duration) string { return strconv.Itoa(v) },
	}
	for _, o := range opts {
		switch opt := o.(type) {
		case Level:
			v.level = opt
		case Rate:
			v.fmt = formatRate
		case Distribution:
			v.hist = gohistogram.NewHistogram(histogramBuckets)
			v.fmt = v.formatDistribution
		case func() int:
			v.ext = opt
		case func(int, time.Duration) string:
			v.fmt = opt
		case Prometheus:
			if s.reg == nil {
				continue
			}
			err := s.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: string(opt),
				Help: desc,
			},
				func() float64 { return float64(v.Val()) },
			))
			var already prometheus.AlreadyRegisteredError
			if err != nil && !errors.As(err, &already) {
				panic(fmt.Sprintf("failed to register %v: %v", opt, err))
			}
		default:
			panic(fmt.Sprintf("unknown stats option %#v", o))
		}
	}
	s.vals[name] = v
	return v
}

func (s *Set) Collect(level Level) []UI {
	s.mu.Lock()
	defer s.mu.Unlock()
	period := time.Since(s.start)
	if period < time.Second {
		period = time.Second
	}
	var res []UI
	for _, v := range s.vals {
		if v.level < level {
			continue
		}
		val := v.Val()
		res = append(res, UI{
			Name:  v.name,
			Desc:  v.desc,
			Level: v.level,
			Value: v.fmt(val, period),
			V:     val,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Level != res[j].Level {
			return res[i].Level > res[j].Level
		}
		return res[i].Name < res[j].Name
	})
	return res
}

// Get returns a metric by name, or nil.
func (s *Set) Get(name string) *Val {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vals[name]
}

type Val struct {
	name   string
	desc   string
	level  Level
	val    atomic.Uint64
	ext    func() int
	fmt    func(int, time.Duration) string
	histMu sync.Mutex
	hist   *gohistogram.NumericHistogram
	count  int
}

func (v *Val) Add(val int) {
	if v.ext != nil {
		panic(fmt.Sprintf("stat %v is in external mode", v.name))
	}
	if v.hist != nil {
		v.histMu.Lock()
		v.hist.Add(float64(val))
		v.count++
		v.histMu.Unlock()
		return
	}
	v.val.Add(uint64(val))
}

// Val returns the total value, or the mean for distributions.
func (v *Val) Val() int {
	if v.ext != nil {
		return v.ext()
	}
	if v.hist != nil {
		v.histMu.Lock()
		defer v.histMu.Unlock()
		if v.count == 0 {
			return 0
		}
		return int(v.hist.Mean())
	}
	return int(v.val.Load())
}

// Quantile returns an approximate quantile of a distribution.
func (v *Val) Quantile(q float64) float64 {
	if v.hist == nil {
		panic(fmt.Sprintf("stat %v is not a distribution", v.name))
	}
	v.histMu.Lock()
	defer v.histMu.Unlock()
	if v.count == 0 {
		return 0
	}
	return v.hist.Quantile(q)
}

func (v *Val) formatDistribution(mean int, period time.Duration) string {
	return fmt.Sprintf("%v (p50 %.0f, p90 %.0f)", mean, v.Quantile(0.5), v.Quantile(0.9))
}

func formatRate(v int, period time.Duration) string {
	secs := int(period.Seconds())
	if x := v / secs; x >= 10 {
		return fmt.Sprintf("%v (%v/sec)", v, x)
	}
	if x := v * 60 / secs; x >= 10 {
		return fmt.Sprintf("%v (%v/min)", v, x)
	}
	x := v * 60 * 60 / secs
	return fmt.Sprintf("%v (%v/hour)", v, x)
}
