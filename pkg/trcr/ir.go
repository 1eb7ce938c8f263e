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

// CandidateClass names which ir.Document index a candidate-generation
// plan enumerates against.
type CandidateClass string

const (
	ClassCall       CandidateClass = "call"
	ClassRead       CandidateClass = "read"
	ClassWrite      CandidateClass = "write"
	ClassExpression CandidateClass = "expression"
)

// CandidatePlan describes which IR element class a compiled clause
// enumerates and, for call-shaped clauses, the literal or pattern used
// to narrow the enumeration before any predicate runs.
type CandidatePlan struct {
	Class       CandidateClass
	Literal     string // exact match, e.g. a call or read target name
	Pattern     string // regex alternative to Literal, mutually exclusive
	BaseType    string
}

// PredicateKind is the closed set of predicate shapes a compiled clause
// chain can carry.
type PredicateKind string

const (
	PredCallName       PredicateKind = "call_name"
	PredCallPattern    PredicateKind = "call_pattern"
	PredBaseType       PredicateKind = "base_type"
	PredBaseTypePattern PredicateKind = "base_type_pattern"
	PredReadName       PredicateKind = "read_name"
	PredArgIndex       PredicateKind = "arg_index"
	PredArgName        PredicateKind = "arg_name"
)

// estimatedCost is a fixed per-kind cost table used by the reorder
// pass: exact-match predicates are cheap (map/string compare), pattern
// predicates costlier (regex match), used only to order the chain for
// early short-circuit of expensive checks.
var estimatedCost = map[PredicateKind]int{
	PredCallName: 1, PredReadName: 1, PredArgIndex: 1, PredArgName: 1,
	PredBaseType: 2,
	PredCallPattern: 5, PredBaseTypePattern: 5,
}

// Predicate is one evaluated check in a compiled clause's predicate
// chain, annotated with its estimated cost so the reorder pass can
// stable-sort cheap checks first.
type Predicate struct {
	Kind          PredicateKind
	Value         string
	EstimatedCost int
}

// TaintRuleExecIR is the per-match-clause intermediate form produced by
// step 2 of compilation, before optimization passes run.
type TaintRuleExecIR struct {
	RuleID   string
	ClauseID string
	Kind     RuleKind

	CandidatePlan  CandidatePlan
	PredicateChain []Predicate

	Specificity float64
	Confidence  float64
	Effect      string // "taint", "sanitize", "propagate", "passthrough"

	CWE         []string
	OWASP       string
	Severity    string
	Tags        []string
	Description string

	Scope string
}

// GeneratorExecPlan is the compiled candidate-generation plan attached
// to an executable rule, carrying runtime statistics the executor
// updates as it runs (cache_hit_rate, estimated_candidates) alongside
// the static plan it was built from.
type GeneratorExecPlan struct {
	CandidatePlan      CandidatePlan
	EstimatedCandidates int
	CacheHitRate       float64
}

// PredicateExecPlan is the compiled predicate chain attached to an
// executable rule. ShortCircuit is always true: the executor rejects a
// candidate at the first false predicate.
type PredicateExecPlan struct {
	Predicates   []Predicate
	ShortCircuit bool
}

// TaintRuleExecutableIR is the final, directly-runnable form of one
// compiled rule clause. CompiledID is a stable identity
// ("compiled:{rule_id}:{clause_id}") independent of compile order, so
// two compiler runs over the same spec produce the same ids.
type TaintRuleExecutableIR struct {
	CompiledID string
	RuleID     string
	AtomID     string
	ClauseID   string
	Kind       RuleKind

	GeneratorExec GeneratorExecPlan
	PredicateExec PredicateExecPlan

	Specificity float64
	Confidence  float64
	Effect      string

	CWE         []string
	OWASP       string
	Severity    string
	Tags        []string
	Description string
	Scope       string

	// OptimizerPasses records, in run order, the optimizer passes that
	// ran on this rule (see optimize), whether or not they modified it.
	OptimizerPasses []string

	// CompilationTimestampUnix is set by the caller of Compile (the
	// compiler core never calls time.Now, matching this repo's rule
	// that timestamps are stamped by orchestration code, not library
	// internals, so the compiler stays deterministic and testable).
	CompilationTimestampUnix int64
}
