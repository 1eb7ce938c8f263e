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

package trcr

import (
	"testing"

	"github.com/opencie/cie/pkg/ir"
)

func addCall(doc *ir.Document, from, to string) {
	doc.AddEdge(ir.Edge{ID: "call:" + from + ">" + to, Kind: ir.EdgeCalls, SourceID: from, TargetID: to})
}

func addWrite(doc *ir.Document, from, to string) {
	doc.AddEdge(ir.Edge{ID: "write:" + from + ">" + to, Kind: ir.EdgeWrites, SourceID: from, TargetID: to})
}

func addRead(doc *ir.Document, from, to string) {
	doc.AddEdge(ir.Edge{ID: "read:" + from + ">" + to, Kind: ir.EdgeReads, SourceID: from, TargetID: to})
}

func compiledRules(t *testing.T) []TaintRuleExecutableIR {
	t.Helper()
	c := NewCompilerDefault()
	var all []TaintRuleExecutableIR
	for _, spec := range []TaintRuleSpec{
		{RuleID: "src", Kind: KindSource, Match: []MatchClauseSpec{{Call: "net/http.Request.FormValue"}}},
		{RuleID: "sink", Kind: KindSink, Match: []MatchClauseSpec{{Call: "os/exec.Command"}}},
	} {
		executables, err := c.CompileSpec(spec)
		if err != nil {
			t.Fatalf("CompileSpec(%s): %v", spec.RuleID, err)
		}
		all = append(all, executables...)
	}
	return all
}

func TestExecutorFindsDirectFunctionLevelPath(t *testing.T) {
	doc := ir.NewDocument()
	doc.AddNode(ir.Node{ID: "fn:main", Kind: ir.KindFunction, Name: "main"})
	doc.AddNode(ir.Node{ID: "fn:helper", Kind: ir.KindFunction, Name: "helper"})
	doc.AddNode(ir.Node{ID: "ext:FormValue", Kind: ir.KindExternalFunction, FQN: "net/http.Request.FormValue", Name: "FormValue"})
	doc.AddNode(ir.Node{ID: "ext:Command", Kind: ir.KindExternalFunction, FQN: "os/exec.Command", Name: "Command"})

	addCall(doc, "fn:main", "ext:FormValue")
	addCall(doc, "fn:main", "fn:helper")
	addCall(doc, "fn:helper", "ext:Command")

	exec := NewExecutor(doc, compiledRules(t))
	paths, err := exec.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected exactly 1 taint path, got %d: %+v", len(paths), paths)
	}
	got := paths[0].Path
	want := []string{"main", "helper"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got path %v, want %v", got, want)
	}
	if paths[0].RuleID != "sink" {
		t.Fatalf("expected RuleID %q to be stamped from the matched sink rule, got %q", "sink", paths[0].RuleID)
	}
}

func TestExecutorNoPathWhenNoSinkReachable(t *testing.T) {
	doc := ir.NewDocument()
	doc.AddNode(ir.Node{ID: "fn:main", Kind: ir.KindFunction, Name: "main"})
	doc.AddNode(ir.Node{ID: "ext:FormValue", Kind: ir.KindExternalFunction, FQN: "net/http.Request.FormValue", Name: "FormValue"})
	addCall(doc, "fn:main", "ext:FormValue")

	exec := NewExecutor(doc, compiledRules(t))
	paths, err := exec.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no taint paths with no sink in the call graph, got %d", len(paths))
	}
}

func TestExecutorVariableLevelFallback(t *testing.T) {
	doc := ir.NewDocument()
	doc.AddNode(ir.Node{ID: "fn:main", Kind: ir.KindFunction, Name: "main"})
	doc.AddNode(ir.Node{ID: "fn:logger", Kind: ir.KindFunction, Name: "logger"})
	doc.AddNode(ir.Node{ID: "var:tainted", Kind: ir.KindVariable, Name: "tainted"})
	doc.AddNode(ir.Node{ID: "ext:FormValue", Kind: ir.KindExternalFunction, FQN: "net/http.Request.FormValue", Name: "FormValue"})
	doc.AddNode(ir.Node{ID: "ext:Command", Kind: ir.KindExternalFunction, FQN: "os/exec.Command", Name: "Command"})

	// No direct CALLS edge between main and logger: only reachable via
	// the shared variable, so the function-level BFS alone finds nothing.
	addCall(doc, "fn:main", "ext:FormValue")
	addWrite(doc, "fn:main", "var:tainted")
	addRead(doc, "fn:logger", "var:tainted")
	addCall(doc, "fn:logger", "ext:Command")

	exec := NewExecutor(doc, compiledRules(t))
	paths, err := exec.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected the variable-level fallback to find exactly 1 path, got %d: %+v", len(paths), paths)
	}
	if paths[0].Path[0] != "main" || paths[0].Path[len(paths[0].Path)-1] != "logger" {
		t.Fatalf("unexpected fallback path: %v", paths[0].Path)
	}
}

func TestParseConstraintsRejectsUnknownKey(t *testing.T) {
	_, err := ParseConstraints(map[string]any{"max_lenght": 5})
	if err == nil {
		t.Fatal("expected an error for an unrecognized constraint key")
	}
}

func TestParseConstraintsClampsToHardBounds(t *testing.T) {
	c, err := ParseConstraints(map[string]any{"max_paths": 999999, "max_depth": 999})
	if err != nil {
		t.Fatalf("ParseConstraints: %v", err)
	}
	if c.MaxPaths != HardMaxPaths {
		t.Fatalf("expected max_paths clamped to %d, got %d", HardMaxPaths, c.MaxPaths)
	}
	if c.MaxDepth != HardMaxDepth {
		t.Fatalf("expected max_depth clamped to %d, got %d", HardMaxDepth, c.MaxDepth)
	}
}

func TestExecutorSelfLoopCallIgnored(t *testing.T) {
	doc := ir.NewDocument()
	doc.AddNode(ir.Node{ID: "fn:recur", Kind: ir.KindFunction, Name: "recur"})
	doc.AddNode(ir.Node{ID: "ext:FormValue", Kind: ir.KindExternalFunction, FQN: "net/http.Request.FormValue", Name: "FormValue"})
	addCall(doc, "fn:recur", "ext:FormValue")
	addCall(doc, "fn:recur", "fn:recur") // self-loop

	exec := NewExecutor(doc, compiledRules(t))
	paths, err := exec.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected the self-loop to be ignored rather than looping forever, got %d paths", len(paths))
	}
}
