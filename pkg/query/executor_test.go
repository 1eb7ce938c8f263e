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

package query

import (
	"testing"

	"github.com/opencie/cie/pkg/ir"
)

func buildChainDoc() *ir.Document {
	doc := ir.NewDocument()
	doc.AddNode(ir.Node{ID: "f:main", Kind: ir.KindFunction, FQN: "main", Name: "main", FilePath: "main.go"})
	doc.AddNode(ir.Node{ID: "f:handler", Kind: ir.KindFunction, FQN: "handler", Name: "handler", FilePath: "main.go"})
	doc.AddNode(ir.Node{ID: "f:query", Kind: ir.KindFunction, FQN: "query", Name: "query", FilePath: "db.go"})
	doc.AddEdge(ir.Edge{ID: "e1", Kind: ir.EdgeCalls, SourceID: "f:main", TargetID: "f:handler"})
	doc.AddEdge(ir.Edge{ID: "e2", Kind: ir.EdgeCalls, SourceID: "f:handler", TargetID: "f:query"})
	return doc
}

func TestExecuteCallChainForward(t *testing.T) {
	doc := buildChainDoc()
	plan, err := New(KindCallChain, []Pattern{{NodeKind: "Function", FQN: "main"}}, DefaultBudget())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := Execute(doc, plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Nodes) != 3 {
		t.Fatalf("expected all 3 nodes reachable from main, got %d", len(result.Nodes))
	}
	if len(result.Edges) != 2 {
		t.Fatalf("expected 2 call edges, got %d", len(result.Edges))
	}
}

func TestExecuteCallChainRespectsMaxDepth(t *testing.T) {
	doc := buildChainDoc()
	budget := Budget{MaxNodes: 100, MaxEdges: 100, MaxDepth: 1, TimeoutMs: 1000}
	plan, err := New(KindCallChain, []Pattern{{NodeKind: "Function", FQN: "main"}}, budget)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := Execute(doc, plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Nodes) != 2 {
		t.Fatalf("expected main+handler only at depth 1, got %d", len(result.Nodes))
	}
}

func TestExecuteImpactAnalysisIsBackward(t *testing.T) {
	doc := buildChainDoc()
	plan, err := New(KindImpactAnalysis, []Pattern{{NodeKind: "Function", FQN: "query"}}, DefaultBudget())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := Execute(doc, plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var names []string
	for _, n := range result.Nodes {
		names = append(names, n.Name)
	}
	if len(names) != 3 {
		t.Fatalf("expected query's full reverse call chain (3 nodes), got %v", names)
	}
}

func TestExecuteRejectsTaintProof(t *testing.T) {
	doc := buildChainDoc()
	plan, err := New(KindTaintProof, nil, DefaultBudget())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := Execute(doc, plan); err == nil {
		t.Fatal("expected TaintProof to be rejected by query.Execute")
	}
}

func TestExecutePrimitiveReturnsSeedsOnly(t *testing.T) {
	doc := buildChainDoc()
	plan, err := New(KindPrimitive, []Pattern{{NodeKind: "Function"}}, DefaultBudget())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := Execute(doc, plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Nodes) != 3 || len(result.Edges) != 0 {
		t.Fatalf("expected 3 seed nodes and no edges, got %d nodes %d edges", len(result.Nodes), len(result.Edges))
	}
}
