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

import "regexp"

// RuleKind is the closed enumeration of taint rule roles.
type RuleKind string

const (
	KindSource      RuleKind = "source"
	KindSink        RuleKind = "sink"
	KindSanitizer   RuleKind = "sanitizer"
	KindPropagator  RuleKind = "propagator"
	KindPassthrough RuleKind = "passthrough"
)

// validKinds mirrors the rule kind set checked by both the atoms loader
// and the LLM-output validator in the originating system: a rule
// document may only declare one of these five roles.
var validKinds = map[RuleKind]bool{
	KindSource: true, KindSink: true, KindSanitizer: true,
	KindPropagator: true, KindPassthrough: true,
}

// Valid reports whether k is one of the five taint rule roles.
func (k RuleKind) Valid() bool { return validKinds[k] }

// idPattern matches the recommended rule_id shape: lowercase, digits,
// dots, underscores, dashes, starting with a letter. A rule failing
// this pattern is still loaded — it is a warning-grade quality issue,
// never a load failure.
var idPattern = regexp.MustCompile(`^[a-z][a-z0-9._-]*$`)

// MatchClauseSpec is one candidate-matching clause of a rule. At least
// one of the matcher fields (Call, CallPattern, BaseType,
// BaseTypePattern, Read, Type) must be set; Type is an LLM-authoring alias
// for BaseType kept for compatibility with generated rule documents.
type MatchClauseSpec struct {
	Call            string `yaml:"call,omitempty"`
	CallPattern     string `yaml:"call_pattern,omitempty"`
	BaseType        string `yaml:"base_type,omitempty"`
	BaseTypePattern string `yaml:"base_type_pattern,omitempty"`
	Read            string `yaml:"read,omitempty"`
	Type            string `yaml:"type,omitempty"`

	// ArgIndex/ArgName narrow a call-shaped clause to a single tainted
	// argument; both are optional, used by sink/sanitizer/propagator
	// clauses that care which parameter carries the tainted value.
	ArgIndex *int   `yaml:"arg_index,omitempty"`
	ArgName  string `yaml:"arg_name,omitempty"`
}

// HasMatcher reports whether c names at least one matcher field, the
// same "at least one of call/base_type/read" rule the loader and
// validator both enforce.
func (c MatchClauseSpec) HasMatcher() bool {
	return c.Call != "" || c.CallPattern != "" || c.BaseType != "" ||
		c.BaseTypePattern != "" || c.Read != "" || c.Type != ""
}

// TaintRuleSpec is the validated, in-memory form of one rule document
// entry (one atom or policy), before compilation to executable IR.
type TaintRuleSpec struct {
	RuleID string   `yaml:"id"`
	AtomID string   `yaml:"-"` // equals RuleID for atoms.yaml entries
	Kind   RuleKind `yaml:"kind"`
	Match  []MatchClauseSpec `yaml:"match"`

	CWE       []string `yaml:"cwe,omitempty"`
	OWASP     string    `yaml:"owasp,omitempty"`
	Frameworks []string `yaml:"frameworks,omitempty"`
	Severity  string   `yaml:"severity,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	Description string `yaml:"description,omitempty"`

	// Scope narrows a sanitizer clause's effect (e.g. "arg:0",
	// "return"); empty means the whole call result is sanitized.
	Scope string `yaml:"scope,omitempty"`

	AtomPriority string            `yaml:"atom_priority,omitempty"`
	UserMetadata map[string]string `yaml:"user_metadata,omitempty"`
}

// validSeverities mirrors the validator's accepted severity values.
var validSeverities = map[string]bool{"critical": true, "high": true, "medium": true, "low": true}
