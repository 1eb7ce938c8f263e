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

package trcr

import (
	"fmt"
	"sort"
	"strings"
)

// CompileError is one rule that failed compilation, collected by
// rule_id so a batch compile can report every failure in one pass.
type CompileError struct {
	RuleID string
	Err    error
}

// CompileErrors is returned by CompileSpecs when one or more rules
// failed and ContinueOnError was not set.
type CompileErrors struct {
	Errors []CompileError
}

func (e *CompileErrors) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to compile %d rule(s):", len(e.Errors))
	for _, ce := range e.Errors {
		fmt.Fprintf(&b, "\n  %s: %v", ce.RuleID, ce.Err)
	}
	return b.String()
}

// OptimizerConfig toggles each pass of step 3 independently. All four
// default to enabled; a caller compiling for a one-shot interactive
// query might disable merge (no sibling clauses to share prefixes
// across) without losing prune/reorder's per-rule benefit.
type OptimizerConfig struct {
	Normalize bool
	Prune     bool
	Reorder   bool
	Merge     bool
}

// DefaultOptimizerConfig enables every pass, matching the compiler's
// default when no config is supplied.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{Normalize: true, Prune: true, Reorder: true, Merge: true}
}

// CompilerOptions configures one Compiler instance.
type CompilerOptions struct {
	Optimizer        OptimizerConfig
	ContinueOnError  bool
}

// Compiler lowers TaintRuleSpec documents to TaintRuleExecutableIR,
// tracking aggregate stats the way the originating compiler's
// get_stats() does.
type Compiler struct {
	opts  CompilerOptions
	stats CompilerStats
}

// CompilerStats mirrors the Python compiler's running counters.
type CompilerStats struct {
	TotalSpecs       int
	TotalClauses     int
	TotalExecutables int
}

// NewCompiler returns a Compiler with the given options. A zero-value
// CompilerOptions disables every optimizer pass and rejects a batch
// compile on the first failing rule; use NewCompilerDefault for the
// common case.
func NewCompiler(opts CompilerOptions) *Compiler {
	return &Compiler{opts: opts}
}

// NewCompilerDefault returns a Compiler with every optimizer pass
// enabled and ContinueOnError false.
func NewCompilerDefault() *Compiler {
	return NewCompiler(CompilerOptions{Optimizer: DefaultOptimizerConfig()})
}

// Stats returns a copy of the compiler's running counters.
func (c *Compiler) Stats() CompilerStats { return c.stats }

// CompileFile loads a rule document (file or directory) and compiles
// every spec found in it.
func (c *Compiler) CompileFile(path string) ([]TaintRuleExecutableIR, error) {
	specs, err := LoadAtomsYAML(path)
	if err != nil {
		if _, ok := err.(*LoadErrors); !ok {
			return nil, err
		}
		// Partial load: compile what parsed, the caller already has the
		// LoadErrors to inspect separately via LoadAtomsYAML if it cares.
	}
	return c.CompileSpecs(specs)
}

// CompileSpecs compiles every spec, collecting per-rule_id failures.
// Unless ContinueOnError is set, any failure aborts the whole batch and
// no partial rule set is returned - the compiler refuses to silently
// under-cover a ruleset.
func (c *Compiler) CompileSpecs(specs []TaintRuleSpec) ([]TaintRuleExecutableIR, error) {
	var out []TaintRuleExecutableIR
	var errs []CompileError

	for _, spec := range specs {
		c.stats.TotalSpecs++
		executables, err := c.CompileSpec(spec)
		if err != nil {
			errs = append(errs, CompileError{RuleID: spec.RuleID, Err: err})
			continue
		}
		out = append(out, executables...)
	}

	if len(errs) > 0 && !c.opts.ContinueOnError {
		return nil, &CompileErrors{Errors: errs}
	}
	if len(errs) > 0 {
		return out, &CompileErrors{Errors: errs}
	}
	return out, nil
}

// CompileSpec compiles one rule's match clauses to executable IR,
// running the step-3 optimization passes across the clause set so
// merge can see sibling clauses.
func (c *Compiler) CompileSpec(spec TaintRuleSpec) ([]TaintRuleExecutableIR, error) {
	if !spec.Kind.Valid() {
		return nil, fmt.Errorf("invalid kind %q", spec.Kind)
	}
	if len(spec.Match) == 0 {
		return nil, fmt.Errorf("rule has no match clauses")
	}

	execIRs := make([]TaintRuleExecIR, 0, len(spec.Match))
	for i, clause := range spec.Match {
		c.stats.TotalClauses++
		ir, err := buildExecIR(spec, clause, i)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		execIRs = append(execIRs, ir)
	}

	optimized, passes := optimize(execIRs, c.opts.Optimizer)

	executables := make([]TaintRuleExecutableIR, 0, len(optimized))
	for _, ir := range optimized {
		executables = append(executables, compileToExecutable(ir, passes[ir.ClauseID]))
		c.stats.TotalExecutables++
	}
	return executables, nil
}

// buildExecIR implements step 2: one TaintRuleExecIR per match clause,
// carrying a candidate-generation plan, an unordered predicate chain,
// and the rule's security/confidence metadata.
func buildExecIR(spec TaintRuleSpec, clause MatchClauseSpec, index int) (TaintRuleExecIR, error) {
	plan, predicates, err := planAndPredicates(clause)
	if err != nil {
		return TaintRuleExecIR{}, err
	}

	return TaintRuleExecIR{
		RuleID:         spec.RuleID,
		ClauseID:       fmt.Sprintf("%d", index),
		Kind:           spec.Kind,
		CandidatePlan:  plan,
		PredicateChain: predicates,
		Specificity:    specificity(clause),
		Confidence:     confidence(spec, clause),
		Effect:         effectFor(spec.Kind),
		CWE:            spec.CWE,
		OWASP:          spec.OWASP,
		Severity:       spec.Severity,
		Tags:           spec.Tags,
		Description:    spec.Description,
		Scope:          spec.Scope,
	}, nil
}

func planAndPredicates(clause MatchClauseSpec) (CandidatePlan, []Predicate, error) {
	var plan CandidatePlan
	var predicates []Predicate

	switch {
	case clause.Call != "":
		plan = CandidatePlan{Class: ClassCall, Literal: clause.Call}
		predicates = append(predicates, Predicate{Kind: PredCallName, Value: clause.Call, EstimatedCost: estimatedCost[PredCallName]})
	case clause.CallPattern != "":
		plan = CandidatePlan{Class: ClassCall, Pattern: clause.CallPattern}
		predicates = append(predicates, Predicate{Kind: PredCallPattern, Value: clause.CallPattern, EstimatedCost: estimatedCost[PredCallPattern]})
	case clause.BaseType != "":
		plan = CandidatePlan{Class: ClassExpression, BaseType: clause.BaseType}
		predicates = append(predicates, Predicate{Kind: PredBaseType, Value: clause.BaseType, EstimatedCost: estimatedCost[PredBaseType]})
	case clause.BaseTypePattern != "":
		plan = CandidatePlan{Class: ClassExpression, Pattern: clause.BaseTypePattern}
		predicates = append(predicates, Predicate{Kind: PredBaseTypePattern, Value: clause.BaseTypePattern, EstimatedCost: estimatedCost[PredBaseTypePattern]})
	case clause.Read != "":
		plan = CandidatePlan{Class: ClassRead, Literal: clause.Read}
		predicates = append(predicates, Predicate{Kind: PredReadName, Value: clause.Read, EstimatedCost: estimatedCost[PredReadName]})
	case clause.Type != "":
		plan = CandidatePlan{Class: ClassExpression, BaseType: clause.Type}
		predicates = append(predicates, Predicate{Kind: PredBaseType, Value: clause.Type, EstimatedCost: estimatedCost[PredBaseType]})
	default:
		return CandidatePlan{}, nil, fmt.Errorf("clause has no matcher field")
	}

	if clause.ArgIndex != nil {
		predicates = append(predicates, Predicate{Kind: PredArgIndex, Value: fmt.Sprintf("%d", *clause.ArgIndex), EstimatedCost: estimatedCost[PredArgIndex]})
	}
	if clause.ArgName != "" {
		predicates = append(predicates, Predicate{Kind: PredArgName, Value: clause.ArgName, EstimatedCost: estimatedCost[PredArgName]})
	}
	return plan, predicates, nil
}

// specificity scores how narrowly a clause matches: an exact call/read
// name is maximally specific; a pattern or bare-type match is broader
// and scores lower. It is the base of the compiled rule's Confidence
// (see confidence); the executor's TaintPath confidence does not use it.
func specificity(clause MatchClauseSpec) float64 {
	switch {
	case clause.Call != "" || clause.Read != "":
		return 1.0
	case clause.BaseType != "" || clause.Type != "":
		return 0.7
	case clause.CallPattern != "" || clause.BaseTypePattern != "":
		return 0.4
	default:
		return 0.5
	}
}

func confidence(spec TaintRuleSpec, clause MatchClauseSpec) float64 {
	base := specificity(clause)
	switch spec.AtomPriority {
	case "high":
		base = min1(base + 0.1)
	case "low":
		base = base - 0.1
	}
	if base < 0 {
		return 0
	}
	return base
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func effectFor(kind RuleKind) string {
	switch kind {
	case KindSource:
		return "taint"
	case KindSanitizer:
		return "sanitize"
	case KindPropagator:
		return "propagate"
	case KindPassthrough:
		return "passthrough"
	case KindSink:
		return "sink"
	default:
		return ""
	}
}

// optimize runs the four RFC-037 passes over a clause set, in
// normalize -> prune -> reorder -> merge order, and records for each
// surviving clause the passes that ran on it: normalize and reorder
// whenever enabled, merge when the clause shares a (class,
// first-predicate-kind) prefix with another; prune is not recorded,
// and no pass is checked for whether it changed the clause. A pruned clause is dropped from the result
// entirely - prune removes, it never just flags.
func optimize(clauses []TaintRuleExecIR, cfg OptimizerConfig) ([]TaintRuleExecIR, map[string][]string) {
	passes := make(map[string][]string, len(clauses))
	for _, c := range clauses {
		passes[c.ClauseID] = nil
	}

	if cfg.Normalize {
		for i := range clauses {
			normalizeClause(&clauses[i])
			passes[clauses[i].ClauseID] = append(passes[clauses[i].ClauseID], "normalize")
		}
	}

	if cfg.Prune {
		kept := clauses[:0:0]
		for _, c := range clauses {
			if isEmptyCandidateSet(c) {
				continue // provably-empty candidate set: drop the clause
			}
			kept = append(kept, c)
		}
		clauses = kept
	}

	if cfg.Reorder {
		for i := range clauses {
			reorderPredicates(&clauses[i])
			passes[clauses[i].ClauseID] = append(passes[clauses[i].ClauseID], "reorder")
		}
	}

	if cfg.Merge {
		mergeSharedPrefixes(clauses, passes)
	}

	return clauses, passes
}

// normalizeClause canonicalizes predicate order to a stable sort by
// (Kind, Value) so two semantically-identical clauses produced from
// different YAML key orders compile to byte-identical chains.
func normalizeClause(c *TaintRuleExecIR) {
	sort.SliceStable(c.PredicateChain, func(i, j int) bool {
		a, b := c.PredicateChain[i], c.PredicateChain[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Value < b.Value
	})
}

// isEmptyCandidateSet reports whether a clause's candidate plan can
// provably never match anything, e.g. an empty literal/pattern left
// over from a malformed document that slipped past loading.
func isEmptyCandidateSet(c TaintRuleExecIR) bool {
	return c.CandidatePlan.Literal == "" && c.CandidatePlan.Pattern == "" && c.CandidatePlan.BaseType == ""
}

// reorderPredicates stable-sorts the chain by estimated cost ascending
// so cheap checks run first and short-circuit expensive ones.
func reorderPredicates(c *TaintRuleExecIR) {
	sort.SliceStable(c.PredicateChain, func(i, j int) bool {
		return c.PredicateChain[i].EstimatedCost < c.PredicateChain[j].EstimatedCost
	})
}

// mergeSharedPrefixes tags sibling clauses (same candidate class and
// first predicate) as sharing a generator prefix; the executor uses
// this to enumerate the shared candidate set once per invocation
// instead of once per clause.
func mergeSharedPrefixes(clauses []TaintRuleExecIR, passes map[string][]string) {
	byPrefix := make(map[string][]string) // prefix key -> clause ids sharing it
	for _, c := range clauses {
		if len(c.PredicateChain) == 0 {
			continue
		}
		key := fmt.Sprintf("%s:%s", c.CandidatePlan.Class, c.PredicateChain[0].Kind)
		byPrefix[key] = append(byPrefix[key], c.ClauseID)
	}
	for _, ids := range byPrefix {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			passes[id] = append(passes[id], "merge")
		}
	}
}

// compileToExecutable implements step 4: emits the final
// TaintRuleExecutableIR with its stable compiled_id.
func compileToExecutable(ir TaintRuleExecIR, passesRun []string) TaintRuleExecutableIR {
	return TaintRuleExecutableIR{
		CompiledID: fmt.Sprintf("compiled:%s:%s", ir.RuleID, ir.ClauseID),
		RuleID:     ir.RuleID,
		AtomID:     ir.RuleID,
		ClauseID:   ir.ClauseID,
		Kind:       ir.Kind,
		GeneratorExec: GeneratorExecPlan{
			CandidatePlan:       ir.CandidatePlan,
			EstimatedCandidates: 0,
			CacheHitRate:        0,
		},
		PredicateExec: PredicateExecPlan{
			Predicates:   ir.PredicateChain,
			ShortCircuit: true,
		},
		Specificity:     ir.Specificity,
		Confidence:      ir.Confidence,
		Effect:          ir.Effect,
		CWE:             ir.CWE,
		OWASP:           ir.OWASP,
		Severity:        ir.Severity,
		Tags:            ir.Tags,
		Description:     ir.Description,
		Scope:           ir.Scope,
		OptimizerPasses: passesRun,
	}
}
