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

package parser

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/opencie/cie/pkg/ir"
)

// Tree is an indexed concrete syntax tree produced by Parser.Parse. It
// owns the underlying tree-sitter tree and must be released with Close
// once the caller is done walking it.
type Tree struct {
	FilePath string
	Language Language
	Content  []byte

	raw  *sitter.Tree
	root *sitter.Node

	byType     map[string][]*sitter.Node
	byLine     map[int][]*sitter.Node
	spanCache  map[*sitter.Node]ir.Span
	deepestIdx []deepestEntry // sorted by start byte for position lookup
}

type deepestEntry struct {
	startByte uint32
	endByte   uint32
	node      *sitter.Node
}

func newTree(filePath string, lang Language, content []byte, raw *sitter.Tree, root *sitter.Node) *Tree {
	t := &Tree{
		FilePath:  filePath,
		Language:  lang,
		Content:   content,
		raw:       raw,
		root:      root,
		byType:    make(map[string][]*sitter.Node),
		byLine:    make(map[int][]*sitter.Node),
		spanCache: make(map[*sitter.Node]ir.Span),
	}
	t.buildIndices()
	return t
}

// Close releases the underlying tree-sitter tree. After Close, the Tree
// and any *sitter.Node obtained from it must not be used.
func (t *Tree) Close() {
	if t.raw != nil {
		t.raw.Close()
	}
}

// Root returns the root CST node.
func (t *Tree) Root() *sitter.Node { return t.root }

// buildIndices performs one iterative traversal of the tree, populating
// the by-type index, the by-starting-line index, and the deepest-node
// position index, and caching each node's Span.
func (t *Tree) buildIndices() {
	type frame struct {
		node *sitter.Node
	}
	stack := []frame{{t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.node
		if n == nil {
			continue
		}

		typ := n.Type()
		t.byType[typ] = append(t.byType[typ], n)

		start := n.StartPoint()
		line := int(start.Row) + 1
		t.byLine[line] = append(t.byLine[line], n)

		t.spanCache[n] = ir.Span{
			StartLine: line,
			StartCol:  int(start.Column),
			EndLine:   int(n.EndPoint().Row) + 1,
			EndCol:    int(n.EndPoint().Column),
		}

		t.deepestIdx = append(t.deepestIdx, deepestEntry{
			startByte: n.StartByte(),
			endByte:   n.EndByte(),
			node:      n,
		})

		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, frame{n.Child(i)})
		}
	}
	sort.Slice(t.deepestIdx, func(i, j int) bool {
		if t.deepestIdx[i].startByte != t.deepestIdx[j].startByte {
			return t.deepestIdx[i].startByte < t.deepestIdx[j].startByte
		}
		return t.deepestIdx[i].endByte > t.deepestIdx[j].endByte // wider first at same start
	})
}

// Span returns the cached Span for n, computing it if n was not visited
// during the initial index build (e.g. a synthetic node).
func (t *Tree) Span(n *sitter.Node) ir.Span {
	if s, ok := t.spanCache[n]; ok {
		return s
	}
	start, end := n.StartPoint(), n.EndPoint()
	return ir.Span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

// NodesOfType returns every node whose tree-sitter type exactly matches typ.
func (t *Tree) NodesOfType(typ string) []*sitter.Node {
	return t.byType[typ]
}

// NodesOnLine returns every node whose start point is on the given
// 1-indexed line.
func (t *Tree) NodesOnLine(line int) []*sitter.Node {
	return t.byLine[line]
}

// DeepestAt returns the smallest node whose byte range contains byteOffset,
// or nil if byteOffset falls outside the tree.
func (t *Tree) DeepestAt(byteOffset uint32) *sitter.Node {
	var best *sitter.Node
	var bestWidth uint32 = ^uint32(0)
	// Binary search the first candidate whose start <= byteOffset, then
	// scan backward; entries are sorted by start byte ascending.
	i := sort.Search(len(t.deepestIdx), func(i int) bool {
		return t.deepestIdx[i].startByte > byteOffset
	})
	for j := i - 1; j >= 0; j-- {
		e := t.deepestIdx[j]
		if e.startByte > byteOffset {
			continue
		}
		if e.endByte < byteOffset {
			continue
		}
		width := e.endByte - e.startByte
		if width < bestWidth {
			best = e.node
			bestWidth = width
		}
	}
	return best
}

// Text returns the source slice covered by n.
func (t *Tree) Text(n *sitter.Node) string {
	return n.Content(t.Content)
}

// Bytes returns the tree's full source content. Satisfies the minimal
// interface pkg/ssa needs without that package importing pkg/ir/parser.
func (t *Tree) Bytes() []byte {
	return t.Content
}

// Walk performs a bounded-recursion, explicit-stack preorder traversal,
// calling visit for every node including the root. visit returning false
// skips that node's children (used to prune into nested function bodies
// without double-walking them from an outer pass).
func (t *Tree) Walk(visit func(n *sitter.Node) bool) {
	stack := []*sitter.Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		if !visit(n) {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
}
