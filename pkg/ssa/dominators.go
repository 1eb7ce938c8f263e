// Copyright 2025 OpenCIE
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ssa

import "github.com/opencie/cie/pkg/cfg"

// dominatorTree computes immediate dominators with the iterative
// Cooper-Harvey-Kennedy algorithm over g's reverse-postorder,
// then the dominance frontier of every block.
type dominatorTree struct {
	idom     map[string]string
	rpo      []string
	rpoIndex map[string]int
	children map[string][]string
	frontier map[string]map[string]bool
}

func buildDominatorTree(g *cfg.Graph) *dominatorTree {
	rpo := reversePostorder(g)
	idx := make(map[string]int, len(rpo))
	for i, id := range rpo {
		idx[id] = i
	}

	idom := map[string]string{g.Entry: g.Entry}
	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == g.Entry {
				continue
			}
			preds := g.Predecessors(b)
			var newIdom string
			first := true
			for _, p := range preds {
				if _, ok := idom[p]; !ok {
					continue
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = intersect(idom, idx, newIdom, p)
			}
			if newIdom != "" && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	children := make(map[string][]string)
	for b, p := range idom {
		if b == g.Entry {
			continue
		}
		children[p] = append(children[p], b)
	}

	dt := &dominatorTree{idom: idom, rpo: rpo, rpoIndex: idx, children: children}
	dt.computeFrontier(g)
	return dt
}

func intersect(idom map[string]string, idx map[string]int, a, b string) string {
	for a != b {
		for idx[a] > idx[b] {
			a = idom[a]
		}
		for idx[b] > idx[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder computes a reverse postorder over g reachable from
// g.Entry, which Cooper-Harvey-Kennedy requires for fast convergence.
func reversePostorder(g *cfg.Graph) []string {
	visited := make(map[string]bool)
	var post []string
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, s := range g.Successors(id) {
			visit(s)
		}
		post = append(post, id)
	}
	visit(g.Entry)
	// Reverse in place.
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// computeFrontier computes, for every block, the set of blocks at which
// its dominance ends but a successor is reached (the standard
// Cytron et al. dominance-frontier algorithm).
func (dt *dominatorTree) computeFrontier(g *cfg.Graph) {
	dt.frontier = make(map[string]map[string]bool)
	for _, b := range dt.rpo {
		preds := g.Predecessors(b)
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			runner := p
			for runner != dt.idom[b] {
				if dt.frontier[runner] == nil {
					dt.frontier[runner] = make(map[string]bool)
				}
				dt.frontier[runner][b] = true
				runner = dt.idom[runner]
			}
		}
	}
}

// Frontier returns the dominance frontier of block id.
func (dt *dominatorTree) Frontier(id string) map[string]bool {
	return dt.frontier[id]
}

// Preorder returns block ids in dominator-tree preorder starting at
// root, the order variable renaming must walk the dominator tree in so
// that a definition is renamed before any block it dominates.
func (dt *dominatorTree) Preorder(root string) []string {
	var out []string
	var walk func(id string)
	walk = func(id string) {
		out = append(out, id)
		for _, c := range dt.children[id] {
			walk(c)
		}
	}
	walk(root)
	return out
}
