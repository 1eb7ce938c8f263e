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

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/opencie/cie/pkg/ir/parser"
)

// firstFuncBody parses src and returns the "block" body of the first
// function_declaration it finds.
func firstFuncBody(t *testing.T, src string) (*parser.Tree, *sitter.Node) {
	t.Helper()
	p := parser.New()
	tree, err := p.Parse(context.Background(), "fixture.go", parser.LangGo, []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	decls := tree.NodesOfType("function_declaration")
	if len(decls) == 0 {
		t.Fatal("no function_declaration found in fixture")
	}
	body := decls[0].ChildByFieldName("body")
	if body == nil {
		t.Fatal("function has no body")
	}
	return tree, body
}

func TestBuilderStraightLine(t *testing.T) {
	tree, body := firstFuncBody(t, `package p

func F() {
	x := 1
	y := x + 1
	_ = y
}
`)
	g := NewBuilder(tree).Build("fn:F", body)

	if g.Entry == "" || g.Exit == "" {
		t.Fatal("graph missing Entry/Exit")
	}
	// Straight-line body: Entry -> Exit reachable via Successors chain.
	visited := map[string]bool{}
	cur := g.Entry
	for i := 0; i < len(g.Blocks)+1; i++ {
		visited[cur] = true
		succ := g.Successors(cur)
		if len(succ) == 0 {
			break
		}
		cur = succ[0]
	}
	if !visited[g.Exit] {
		t.Fatalf("Exit block %s not reached by walking successors from Entry; visited=%v", g.Exit, visited)
	}
}

func TestBuilderIfElseBothBranchesJoin(t *testing.T) {
	tree, body := firstFuncBody(t, `package p

func F(n int) int {
	if n > 0 {
		return 1
	} else {
		return -1
	}
}
`)
	g := NewBuilder(tree).Build("fn:F", body)

	// Both return statements feed the Exit block directly; the if's join
	// block is unreachable output-wise but still present in the graph.
	preds := g.Predecessors(g.Exit)
	if len(preds) != 2 {
		t.Fatalf("expected 2 predecessors of Exit (both returns), got %d: %v", len(preds), preds)
	}
}

func TestBuilderIfNoElseFallsThrough(t *testing.T) {
	tree, body := firstFuncBody(t, `package p

func F(n int) {
	if n > 0 {
		n = 0
	}
	n = n + 1
}
`)
	g := NewBuilder(tree).Build("fn:F", body)

	var trueEdges, falseEdges int
	for _, e := range g.Edges {
		switch e.Kind {
		case EdgeTrueBranch:
			trueEdges++
		case EdgeFalseBranch:
			falseEdges++
		}
	}
	if trueEdges != 1 || falseEdges != 1 {
		t.Fatalf("expected exactly one TrueBranch and one FalseBranch edge for an if with no else, got true=%d false=%d", trueEdges, falseEdges)
	}
}

func TestBuilderForLoopBackEdge(t *testing.T) {
	tree, body := firstFuncBody(t, `package p

func F() {
	for i := 0; i < 10; i++ {
		println(i)
	}
}
`)
	g := NewBuilder(tree).Build("fn:F", body)

	var loopBack, loopHeaders int
	for _, e := range g.Edges {
		if e.Kind == EdgeLoopBack {
			loopBack++
		}
	}
	for _, b := range g.Blocks {
		if b.Kind == BlockLoopHeader {
			loopHeaders++
		}
	}
	if loopHeaders != 1 {
		t.Fatalf("expected exactly one LoopHeader block, got %d", loopHeaders)
	}
	if loopBack != 1 {
		t.Fatalf("expected exactly one LoopBack edge closing the loop body to its header, got %d", loopBack)
	}
}

func TestBuilderNilBodyYieldsDirectEntryToExit(t *testing.T) {
	g := NewBuilder(nil).Build("fn:Extern", nil)

	succ := g.Successors(g.Entry)
	if len(succ) != 1 || succ[0] != g.Exit {
		t.Fatalf("expected Entry to connect directly to Exit for a nil body, got successors %v", succ)
	}
}
