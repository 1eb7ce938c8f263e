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

package incremental

import (
	"testing"

	"github.com/opencie/cie/pkg/ir"
)

func contains(set []string, want string) bool {
	for _, s := range set {
		if s == want {
			return true
		}
	}
	return false
}

func TestDependencyGraphImportEdge(t *testing.T) {
	doc := ir.NewDocument()

	doc.AddNode(ir.Node{ID: "file:pkg/a/a.go", Kind: ir.KindFile, FilePath: "pkg/a/a.go"})
	doc.AddNode(ir.Node{ID: "file:pkg/b/b.go", Kind: ir.KindFile, FilePath: "pkg/b/b.go"})
	doc.AddNode(ir.Node{ID: "import:1", Kind: ir.KindImport, FQN: "pkg/b", FilePath: "pkg/a/a.go"})

	g := NewDependencyGraph()
	g.Build(doc)

	affected := g.AffectedSet([]string{"pkg/b/b.go"}, 1)
	if !contains(affected, "pkg/a/a.go") {
		t.Fatalf("importer pkg/a/a.go not in affected set after pkg/b/b.go changed: %v", affected)
	}
}

func TestDependencyGraphReferenceEdge(t *testing.T) {
	doc := ir.NewDocument()

	caller := ir.Node{ID: "func:Caller", Kind: ir.KindFunction, FilePath: "pkg/a/a.go"}
	callee := ir.Node{ID: "func:Callee", Kind: ir.KindFunction, FilePath: "pkg/b/b.go"}
	doc.AddNode(caller)
	doc.AddNode(callee)
	doc.AddEdge(ir.Edge{ID: "e1", Kind: ir.EdgeCalls, SourceID: caller.ID, TargetID: callee.ID})

	g := NewDependencyGraph()
	g.Build(doc)

	affected := g.AffectedSet([]string{"pkg/b/b.go"}, 1)
	if !contains(affected, "pkg/a/a.go") {
		t.Fatalf("caller pkg/a/a.go not in affected set after callee's file changed: %v", affected)
	}
}

func TestDependencyGraphAffectedSetHopBound(t *testing.T) {
	doc := ir.NewDocument()

	// pkg/a -> pkg/b -> pkg/c (a imports b, b imports c)
	doc.AddNode(ir.Node{ID: "file:pkg/a/a.go", Kind: ir.KindFile, FilePath: "pkg/a/a.go"})
	doc.AddNode(ir.Node{ID: "file:pkg/b/b.go", Kind: ir.KindFile, FilePath: "pkg/b/b.go"})
	doc.AddNode(ir.Node{ID: "file:pkg/c/c.go", Kind: ir.KindFile, FilePath: "pkg/c/c.go"})
	doc.AddNode(ir.Node{ID: "import:a", Kind: ir.KindImport, FQN: "pkg/b", FilePath: "pkg/a/a.go"})
	doc.AddNode(ir.Node{ID: "import:b", Kind: ir.KindImport, FQN: "pkg/c", FilePath: "pkg/b/b.go"})

	g := NewDependencyGraph()
	g.Build(doc)

	oneHop := g.AffectedSet([]string{"pkg/c/c.go"}, 1)
	if contains(oneHop, "pkg/a/a.go") {
		t.Fatalf("one-hop affected set should not reach pkg/a/a.go (two hops away): %v", oneHop)
	}
	if !contains(oneHop, "pkg/b/b.go") {
		t.Fatalf("one-hop affected set should reach pkg/b/b.go: %v", oneHop)
	}

	twoHop := g.AffectedSet([]string{"pkg/c/c.go"}, 2)
	if !contains(twoHop, "pkg/a/a.go") {
		t.Fatalf("two-hop affected set should reach pkg/a/a.go: %v", twoHop)
	}
}

func TestDependencyGraphSelfImportIgnored(t *testing.T) {
	doc := ir.NewDocument()
	doc.AddNode(ir.Node{ID: "file:pkg/a/a.go", Kind: ir.KindFile, FilePath: "pkg/a/a.go"})
	doc.AddNode(ir.Node{ID: "import:a", Kind: ir.KindImport, FQN: "pkg/a", FilePath: "pkg/a/a.go"})

	g := NewDependencyGraph()
	g.Build(doc)

	// A file "importing" its own package directory must not create a
	// self-loop that would make every file trivially its own dependent.
	affected := g.AffectedSet([]string{"pkg/a/a.go"}, 3)
	if len(affected) != 1 {
		t.Fatalf("expected only the seed file itself, got %v", affected)
	}
}

func TestDependencyGraphRebuildDropsStaleEdges(t *testing.T) {
	doc := ir.NewDocument()
	doc.AddNode(ir.Node{ID: "file:pkg/a/a.go", Kind: ir.KindFile, FilePath: "pkg/a/a.go"})
	doc.AddNode(ir.Node{ID: "file:pkg/b/b.go", Kind: ir.KindFile, FilePath: "pkg/b/b.go"})
	doc.AddNode(ir.Node{ID: "import:a", Kind: ir.KindImport, FQN: "pkg/b", FilePath: "pkg/a/a.go"})

	g := NewDependencyGraph()
	g.Build(doc)
	if affected := g.AffectedSet([]string{"pkg/b/b.go"}, 1); !contains(affected, "pkg/a/a.go") {
		t.Fatalf("expected pkg/a/a.go to depend on pkg/b/b.go before rebuild: %v", affected)
	}

	doc.RemoveFile("pkg/b/b.go")
	doc.RemoveFile("pkg/a/a.go")
	g.Build(doc)

	affected := g.AffectedSet([]string{"pkg/b/b.go"}, 1)
	if contains(affected, "pkg/a/a.go") {
		t.Fatalf("stale import edge survived rebuild after both files were removed: %v", affected)
	}
}
