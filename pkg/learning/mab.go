// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package learning contains online learning helpers used to steer fuzzing:
// a multi-armed bandit choosing between fuzzer passes and running averages.
package learning

import (
	"sync"
)

// Rand is the source of randomness for the bandit. *math/rand.Rand implements it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

type Action[T comparable] struct {
	Arm   T
	index int
}

func (a Action[T]) Empty() bool {
	return a == Action[T]{}
}

type countedValue struct {
	value float64
	count int64
}

func (cv *countedValue) update(value, minStep float64) {
	// Large steps at the beginning converge faster, minStep keeps
	// tracking non-stationary rewards.
	cv.count++
	step := max(1.0/float64(cv.count), minStep)
	cv.value += (value - cv.value) * step
}

// PlainMAB is an epsilon-greedy multi-armed bandit.
// Arms that were never tried are preferred over exploitation.
type PlainMAB[T comparable] struct {
	MinLearningRate float64
	ExplorationRate float64

	mu      sync.RWMutex
	arms    []T
	weights []countedValue
}

func (p *PlainMAB[T]) AddArms(arms ...T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, arm := range arms {
		p.arms = append(p.arms, arm)
		p.weights = append(p.weights, countedValue{})
	}
}

func (p *PlainMAB[T]) Action(r Rand) Action[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.arms) == 0 {
		panic("no arms in the bandit")
	}
	// The exploration draw is always made to keep the random stream
	// independent of the learned weights.
	explore := r.Float64() < p.ExplorationRate
	pos := 0
	switch {
	case explore:
		pos = r.Intn(len(p.arms))
	default:
		for i := 1; i < len(p.arms); i++ {
			wi, wpos := p.weights[i], p.weights[pos]
			if wpos.count != 0 && (wi.count == 0 || wi.value > wpos.value) {
				pos = i
			}
		}
	}
	return Action[T]{Arm: p.arms[pos], index: pos}
}

func (p *PlainMAB[T]) SaveReward(action Action[T], reward float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weights[action.index].update(reward, p.MinLearningRate)
}

// Weights returns the current estimated reward of each arm in AddArms order.
func (p *PlainMAB[T]) Weights() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var res []float64
	for _, w := range p.weights {
		res = append(res, w.value)
	}
	return res
}
