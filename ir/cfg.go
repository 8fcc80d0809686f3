// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

// Successors returns the targets of the block terminator in operand order.
// Merge instructions do not contribute edges.
func (b *BasicBlock) Successors() []ID {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	switch term.Opcode {
	case OpBranch:
		return []ID{term.IDOperand(0)}
	case OpBranchConditional:
		if term.IDOperand(1) == term.IDOperand(2) {
			return []ID{term.IDOperand(1)}
		}
		return []ID{term.IDOperand(1), term.IDOperand(2)}
	}
	return nil
}

// Predecessors maps every block of fn to its predecessors in block order.
func (fn *Function) Predecessors() map[ID][]ID {
	preds := make(map[ID][]ID)
	for _, b := range fn.Blocks {
		preds[b.ID()] = preds[b.ID()]
	}
	for _, b := range fn.Blocks {
		for _, succ := range b.Successors() {
			preds[succ] = append(preds[succ], b.ID())
		}
	}
	return preds
}

// Reachable returns the set of blocks reachable from the entry block.
func (fn *Function) Reachable() map[ID]bool {
	res := make(map[ID]bool)
	if len(fn.Blocks) == 0 {
		return res
	}
	stack := []ID{fn.Blocks[0].ID()}
	for len(stack) != 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if res[id] {
			continue
		}
		res[id] = true
		if b := fn.Block(id); b != nil {
			stack = append(stack, b.Successors()...)
		}
	}
	return res
}

// DominatorTree is either a dominator or a post-dominator tree of a function.
// The post-dominator tree has a virtual exit node with id 0 that all
// returning blocks flow into.
type DominatorTree struct {
	ids   []ID
	index map[ID]int
	idom  []int
	root  int
}

// Dominators computes the dominator tree of fn.
// Unreachable blocks are not part of the tree.
func (fn *Function) Dominators() *DominatorTree {
	ids := make([]ID, len(fn.Blocks))
	index := make(map[ID]int)
	for i, b := range fn.Blocks {
		ids[i] = b.ID()
		index[b.ID()] = i
	}
	succs := make([][]int, len(ids))
	for i, b := range fn.Blocks {
		for _, s := range b.Successors() {
			if j, ok := index[s]; ok {
				succs[i] = append(succs[i], j)
			}
		}
	}
	return buildDominatorTree(ids, index, succs, 0)
}

// PostDominators computes the post-dominator tree of fn.
// Blocks that cannot reach a function exit are not part of the tree.
func (fn *Function) PostDominators() *DominatorTree {
	n := len(fn.Blocks)
	ids := make([]ID, n+1)
	index := make(map[ID]int)
	for i, b := range fn.Blocks {
		ids[i] = b.ID()
		index[b.ID()] = i
	}
	exit := n
	index[0] = exit
	// Edges of the reversed graph.
	succs := make([][]int, n+1)
	for i, b := range fn.Blocks {
		if term := b.Terminator(); term != nil && term.Opcode.IsFunctionExit() {
			succs[exit] = append(succs[exit], i)
		}
		for _, s := range b.Successors() {
			if j, ok := index[s]; ok && j != exit {
				succs[j] = append(succs[j], i)
			}
		}
	}
	return buildDominatorTree(ids, index, succs, exit)
}

func buildDominatorTree(ids []ID, index map[ID]int, succs [][]int, root int) *DominatorTree {
	n := len(ids)
	t := &DominatorTree{
		ids:   ids,
		index: index,
		idom:  make([]int, n),
		root:  root,
	}
	for i := range t.idom {
		t.idom[i] = -1
	}
	if n == 0 {
		return t
	}
	preds := make([][]int, n)
	for i, ss := range succs {
		for _, s := range ss {
			preds[s] = append(preds[s], i)
		}
	}
	postorder := make([]int, n)
	for i := range postorder {
		postorder[i] = -1
	}
	var rpo []int
	visited := make([]bool, n)
	var dfs func(v int)
	dfs = func(v int) {
		visited[v] = true
		for _, s := range succs[v] {
			if !visited[s] {
				dfs(s)
			}
		}
		postorder[v] = len(rpo)
		rpo = append(rpo, v)
	}
	dfs(root)
	for i, j := 0, len(rpo)-1; i < j; i, j = i+1, j-1 {
		rpo[i], rpo[j] = rpo[j], rpo[i]
	}
	intersect := func(a, b int) int {
		for a != b {
			for postorder[a] < postorder[b] {
				a = t.idom[a]
			}
			for postorder[b] < postorder[a] {
				b = t.idom[b]
			}
		}
		return a
	}
	t.idom[root] = root
	for changed := true; changed; {
		changed = false
		for _, v := range rpo[1:] {
			newIdom := -1
			for _, p := range preds[v] {
				if t.idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom != -1 && t.idom[v] != newIdom {
				t.idom[v] = newIdom
				changed = true
			}
		}
	}
	return t
}

// Contains says if the block is part of the tree (reachable from the root).
func (t *DominatorTree) Contains(id ID) bool {
	i, ok := t.index[id]
	return ok && t.idom[i] != -1
}

// Dominates says if a dominates b. Every block dominates itself.
func (t *DominatorTree) Dominates(a, b ID) bool {
	if !t.Contains(a) || !t.Contains(b) {
		return false
	}
	ai, bi := t.index[a], t.index[b]
	for {
		if bi == ai {
			return true
		}
		if bi == t.root {
			return false
		}
		bi = t.idom[bi]
	}
}

// StrictlyDominates says if a dominates b and a != b.
func (t *DominatorTree) StrictlyDominates(a, b ID) bool {
	return a != b && t.Dominates(a, b)
}

// ImmediateDominator returns the immediate dominator of b, or 0 for the root
// and for blocks outside of the tree. For post-dominator trees 0 also denotes
// the virtual exit.
func (t *DominatorTree) ImmediateDominator(b ID) ID {
	if !t.Contains(b) {
		return 0
	}
	bi := t.index[b]
	if bi == t.root {
		return 0
	}
	return t.ids[t.idom[bi]]
}
