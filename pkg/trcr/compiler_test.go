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

import "testing"

func sourceSpec() TaintRuleSpec {
	return TaintRuleSpec{
		RuleID: "src.http.query",
		AtomID: "src.http.query",
		Kind:   KindSource,
		Match:  []MatchClauseSpec{{Call: "net/http.Request.FormValue"}},
		CWE:    []string{"cwe-20"},
		Severity: "high",
	}
}

func TestCompileSpecProducesStableCompiledID(t *testing.T) {
	c := NewCompilerDefault()
	executables, err := c.CompileSpec(sourceSpec())
	if err != nil {
		t.Fatalf("CompileSpec: %v", err)
	}
	if len(executables) != 1 {
		t.Fatalf("expected 1 executable for 1 match clause, got %d", len(executables))
	}
	want := "compiled:src.http.query:0"
	if executables[0].CompiledID != want {
		t.Fatalf("got compiled_id %q, want %q", executables[0].CompiledID, want)
	}
}

func TestCompileSpecRejectsEmptyMatch(t *testing.T) {
	c := NewCompilerDefault()
	_, err := c.CompileSpec(TaintRuleSpec{RuleID: "x", Kind: KindSource})
	if err == nil {
		t.Fatal("expected an error compiling a rule with no match clauses")
	}
}

func TestCompileSpecsContinueOnErrorCollectsFailures(t *testing.T) {
	c := NewCompiler(CompilerOptions{Optimizer: DefaultOptimizerConfig(), ContinueOnError: true})
	specs := []TaintRuleSpec{
		sourceSpec(),
		{RuleID: "broken", Kind: KindSource}, // no match clauses: fails
	}
	executables, err := c.CompileSpecs(specs)
	if len(executables) != 1 {
		t.Fatalf("expected the good rule's 1 executable to survive, got %d", len(executables))
	}
	ce, ok := err.(*CompileErrors)
	if !ok {
		t.Fatalf("expected *CompileErrors with ContinueOnError, got %T (%v)", err, err)
	}
	if len(ce.Errors) != 1 || ce.Errors[0].RuleID != "broken" {
		t.Fatalf("unexpected compile errors: %+v", ce.Errors)
	}
}

func TestCompileSpecsWithoutContinueOnErrorRefusesPartialSet(t *testing.T) {
	c := NewCompilerDefault()
	specs := []TaintRuleSpec{sourceSpec(), {RuleID: "broken", Kind: KindSource}}
	executables, err := c.CompileSpecs(specs)
	if err == nil {
		t.Fatal("expected an error for a batch containing one broken rule")
	}
	if executables != nil {
		t.Fatalf("expected no partial rule set without continue-on-error, got %d executables", len(executables))
	}
}

func TestOptimizerPruneDropsEmptyCandidateSet(t *testing.T) {
	spec := TaintRuleSpec{
		RuleID: "weird",
		Kind:   KindSink,
		Match: []MatchClauseSpec{
			{Call: "os/exec.Command"},
		},
	}
	// Force an empty candidate set by hand to exercise prune directly.
	execIRs := []TaintRuleExecIR{
		{RuleID: "weird", ClauseID: "0", CandidatePlan: CandidatePlan{Class: ClassCall}},
	}
	optimized, _ := optimize(execIRs, OptimizerConfig{Prune: true})
	if len(optimized) != 0 {
		t.Fatalf("expected prune to eliminate the empty-candidate-set clause, got %d survivors", len(optimized))
	}
	_ = spec
}

func TestOptimizerReorderSortsByEstimatedCost(t *testing.T) {
	execIR := TaintRuleExecIR{
		PredicateChain: []Predicate{
			{Kind: PredCallPattern, EstimatedCost: 5},
			{Kind: PredCallName, EstimatedCost: 1},
		},
	}
	reorderPredicates(&execIR)
	if execIR.PredicateChain[0].Kind != PredCallName {
		t.Fatalf("expected cheapest predicate first after reorder, got %+v", execIR.PredicateChain)
	}
}

func TestOptimizerMergeTagsSiblingClausesSharingPrefix(t *testing.T) {
	clauses := []TaintRuleExecIR{
		{RuleID: "r1", ClauseID: "0", CandidatePlan: CandidatePlan{Class: ClassCall, Literal: "a"}, PredicateChain: []Predicate{{Kind: PredCallName}}},
		{RuleID: "r2", ClauseID: "0", CandidatePlan: CandidatePlan{Class: ClassCall, Literal: "b"}, PredicateChain: []Predicate{{Kind: PredCallName}}},
	}
	passes := map[string][]string{"0": nil}
	mergeSharedPrefixes(clauses, passes)
	if len(passes["0"]) == 0 {
		t.Fatal("expected merge to tag sibling clauses sharing a (class, first-predicate-kind) prefix")
	}
}

func TestCompileSpecRecordsOptimizerPasses(t *testing.T) {
	c := NewCompilerDefault()
	executables, err := c.CompileSpec(sourceSpec())
	if err != nil {
		t.Fatalf("CompileSpec: %v", err)
	}
	passes := executables[0].OptimizerPasses
	found := map[string]bool{}
	for _, p := range passes {
		found[p] = true
	}
	if !found["normalize"] || !found["reorder"] {
		t.Fatalf("expected normalize and reorder to run by default, got %v", passes)
	}
}
