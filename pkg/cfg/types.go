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

package cfg

import "github.com/opencie/cie/pkg/ir"

// BlockKind classifies a ControlFlowBlock.
type BlockKind string

const (
	BlockEntry      BlockKind = "Entry"
	BlockPlain      BlockKind = "Block"
	BlockLoopHeader BlockKind = "LoopHeader"
	BlockExit       BlockKind = "Exit"
	BlockHandler    BlockKind = "Handler"
)

// EdgeKind classifies a ControlFlowEdge.
type EdgeKind string

const (
	EdgeNormal      EdgeKind = "Normal"
	EdgeTrueBranch  EdgeKind = "TrueBranch"
	EdgeFalseBranch EdgeKind = "FalseBranch"
	EdgeLoopBack    EdgeKind = "LoopBack"
	EdgeException   EdgeKind = "Exception"
)

// ControlFlowBlock is one basic block in a function's CFG.
type ControlFlowBlock struct {
	ID                 string
	Kind               BlockKind
	FunctionNodeID     string
	DefinedVariableIDs []string
	Span               ir.Span
	Statements         []Statement
}

// Statement is a minimal per-statement record kept on a block so SSA
// construction (pkg/ssa) can walk definitions/uses without re-parsing.
type Statement struct {
	Text string
	Span ir.Span
	Raw  any // *sitter.Node, kept as any to avoid importing the grammar package here
}

// ControlFlowEdge connects two blocks within the same function.
type ControlFlowEdge struct {
	SourceBlockID string
	TargetBlockID string
	Kind          EdgeKind
}

// Graph is one function's complete CFG.
type Graph struct {
	FunctionNodeID string
	Entry          string
	Exit           string
	Blocks         map[string]*ControlFlowBlock
	Edges          []ControlFlowEdge
	order          []string // block ids in creation order, for deterministic enumeration
}

func newGraph(functionNodeID string) *Graph {
	return &Graph{
		FunctionNodeID: functionNodeID,
		Blocks:         make(map[string]*ControlFlowBlock),
	}
}

func (g *Graph) addBlock(b *ControlFlowBlock) {
	g.Blocks[b.ID] = b
	g.order = append(g.order, b.ID)
}

func (g *Graph) addEdge(source, target string, kind EdgeKind) {
	g.Edges = append(g.Edges, ControlFlowEdge{SourceBlockID: source, TargetBlockID: target, Kind: kind})
}

// OrderedBlocks returns blocks in the order they were created: entry
// first, then exit, then the remaining blocks as the builder made them
// (an if's join block precedes its branches). This is not in general a
// reverse-postorder.
func (g *Graph) OrderedBlocks() []*ControlFlowBlock {
	out := make([]*ControlFlowBlock, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.Blocks[id])
	}
	return out
}

// Predecessors returns the block ids with an edge targeting id.
func (g *Graph) Predecessors(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.TargetBlockID == id {
			out = append(out, e.SourceBlockID)
		}
	}
	return out
}

// Successors returns the block ids targeted by an edge from id.
func (g *Graph) Successors(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.SourceBlockID == id {
			out = append(out, e.TargetBlockID)
		}
	}
	return out
}
