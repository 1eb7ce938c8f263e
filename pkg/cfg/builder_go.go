// Copyright 2025 OpenCIE
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@opencie.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cfg

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/opencie/cie/pkg/ir/parser"
)

// Builder constructs per-function CFGs for Go function/method bodies,
// walking statement nodes with the same tree-sitter node-type switch
// style used by the structural extractor, but driving control-flow
// construction instead of entity extraction.
type Builder struct {
	tree    *parser.Tree
	counter int
}

// NewBuilder returns a Builder bound to tree, which must outlive every
// Graph it produces (blocks reference tree.Content indirectly through
// cached Statement.Text).
func NewBuilder(tree *parser.Tree) *Builder {
	return &Builder{tree: tree}
}

// Build constructs the CFG for one function/method/lambda body. bodyNode
// is the tree-sitter "block" node of the function; functionNodeID is the
// owning ir.Node's id (from the structural IR).
func (b *Builder) Build(functionNodeID string, bodyNode *sitter.Node) *Graph {
	g := newGraph(functionNodeID)

	entry := b.newBlock(g, BlockEntry, functionNodeID, bodyNode)
	exit := b.newBlock(g, BlockExit, functionNodeID, bodyNode)
	g.Entry, g.Exit = entry.ID, exit.ID

	if bodyNode == nil {
		g.addEdge(entry.ID, exit.ID, EdgeNormal)
		return g
	}

	last := b.walkBlock(g, bodyNode, entry, exit, nil)
	if last != nil {
		g.addEdge(last.ID, exit.ID, EdgeNormal)
	}
	return g
}

// loopContext carries the blocks a `break`/`continue` would target;
// unused by this builder (break/continue are treated as Normal fallthrough
// rather than explicit jumps) but kept so nested-loop extraction can add
// them without changing walkBlock's signature.
type loopContext struct {
	header string
	after  string
}

func (b *Builder) newBlock(g *Graph, kind BlockKind, functionNodeID string, n *sitter.Node) *ControlFlowBlock {
	b.counter++
	blk := &ControlFlowBlock{
		ID:             fmt.Sprintf("cfg:%s:%d", functionNodeID, b.counter),
		Kind:           kind,
		FunctionNodeID: functionNodeID,
	}
	if n != nil {
		blk.Span = b.tree.Span(n)
	}
	g.addBlock(blk)
	return blk
}

// walkBlock threads straight-line statements into cur, splitting into new
// blocks at control structures, and returns the block execution falls
// through to after the last statement (nil if every path already
// terminated at exit, e.g. every branch returned).
func (b *Builder) walkBlock(g *Graph, block *sitter.Node, cur, exit *ControlFlowBlock, lc *loopContext) *ControlFlowBlock {
	for i := 0; i < int(block.ChildCount()); i++ {
		stmt := block.Child(i)
		switch stmt.Type() {
		case "{", "}":
			continue
		case "if_statement":
			cur = b.walkIf(g, stmt, cur, exit, lc)
			if cur == nil {
				return nil
			}
		case "for_statement":
			cur = b.walkFor(g, stmt, cur, exit)
		case "return_statement":
			cur.Statements = append(cur.Statements, b.statement(stmt))
			g.addEdge(cur.ID, exit.ID, EdgeNormal)
			return nil
		default:
			cur.Statements = append(cur.Statements, b.statement(stmt))
		}
	}
	return cur
}

func (b *Builder) walkIf(g *Graph, ifStmt *sitter.Node, cur, exit *ControlFlowBlock, lc *loopContext) *ControlFlowBlock {
	cond := ifStmt.ChildByFieldName("condition")
	if cond != nil {
		cur.Statements = append(cur.Statements, b.statement(cond))
	}

	join := b.newBlock(g, BlockPlain, cur.FunctionNodeID, ifStmt)

	thenNode := ifStmt.ChildByFieldName("consequence")
	thenEntry := b.newBlock(g, BlockPlain, cur.FunctionNodeID, thenNode)
	g.addEdge(cur.ID, thenEntry.ID, EdgeTrueBranch)
	thenExit := b.walkBlock(g, thenNode, thenEntry, exit, lc)
	if thenExit != nil {
		g.addEdge(thenExit.ID, join.ID, EdgeNormal)
	}

	elseNode := ifStmt.ChildByFieldName("alternative")
	if elseNode != nil {
		elseEntry := b.newBlock(g, BlockPlain, cur.FunctionNodeID, elseNode)
		g.addEdge(cur.ID, elseEntry.ID, EdgeFalseBranch)
		var elseExit *ControlFlowBlock
		if elseNode.Type() == "if_statement" {
			elseExit = b.walkIf(g, elseNode, elseEntry, exit, lc)
		} else {
			elseExit = b.walkBlock(g, elseNode, elseEntry, exit, lc)
		}
		if elseExit != nil {
			g.addEdge(elseExit.ID, join.ID, EdgeNormal)
		}
		if thenExit == nil && elseExit == nil {
			return nil
		}
	} else {
		g.addEdge(cur.ID, join.ID, EdgeFalseBranch)
	}

	return join
}

func (b *Builder) walkFor(g *Graph, forStmt *sitter.Node, cur, exit *ControlFlowBlock) *ControlFlowBlock {
	header := b.newBlock(g, BlockLoopHeader, cur.FunctionNodeID, forStmt)
	g.addEdge(cur.ID, header.ID, EdgeNormal)

	after := b.newBlock(g, BlockPlain, cur.FunctionNodeID, forStmt)

	bodyNode := forStmt.ChildByFieldName("body")
	bodyEntry := b.newBlock(g, BlockPlain, cur.FunctionNodeID, bodyNode)
	g.addEdge(header.ID, bodyEntry.ID, EdgeTrueBranch)
	g.addEdge(header.ID, after.ID, EdgeFalseBranch)

	lc := &loopContext{header: header.ID, after: after.ID}
	bodyExit := b.walkBlock(g, bodyNode, bodyEntry, exit, lc)
	if bodyExit != nil {
		g.addEdge(bodyExit.ID, header.ID, EdgeLoopBack)
	}

	return after
}

func (b *Builder) statement(n *sitter.Node) Statement {
	return Statement{
		Text: b.tree.Text(n),
		Span: b.tree.Span(n),
		Raw:  n,
	}
}
