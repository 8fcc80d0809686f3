// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package learning

import "sync"

// PassWindow summarizes the most recent pass runs of a fuzzer. Every run
// saves the number of transformations it applied; the window reports the
// share of runs that applied anything and the mean number applied per run.
type PassWindow struct {
	mu         sync.Mutex
	added      []int
	pos        int
	runs       int // filled slots
	productive int
	total      int
}

func NewPassWindow(size int) *PassWindow {
	if size < 1 {
		panic("empty pass window")
	}
	return &PassWindow{added: make([]int, size)}
}

func (w *PassWindow) Save(added int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.runs == len(w.added) {
		prev := w.added[w.pos]
		w.total -= prev
		if prev != 0 {
			w.productive--
		}
	} else {
		w.runs++
	}
	w.added[w.pos] = added
	w.total += added
	if added != 0 {
		w.productive++
	}
	w.pos = (w.pos + 1) % len(w.added)
}

// Productivity is the share of runs in the window that applied something.
func (w *PassWindow) Productivity() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.runs == 0 {
		return 0
	}
	return float64(w.productive) / float64(w.runs)
}

// Yield is the mean number of transformations applied per run in the window.
func (w *PassWindow) Yield() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.runs == 0 {
		return 0
	}
	return float64(w.total) / float64(w.runs)
}
