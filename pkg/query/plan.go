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

package query

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind is the closed set of high-level question shapes a Plan can encode.
type Kind string

const (
	KindSlice          Kind = "Slice"
	KindDataflow       Kind = "Dataflow"
	KindTaintProof     Kind = "TaintProof"
	KindCallChain      Kind = "CallChain"
	KindDataDependency Kind = "DataDependency"
	KindImpactAnalysis Kind = "ImpactAnalysis"
	KindTypeInference  Kind = "TypeInference"
	KindPrimitive      Kind = "Primitive"
)

var validKinds = map[Kind]bool{
	KindSlice: true, KindDataflow: true, KindTaintProof: true, KindCallChain: true,
	KindDataDependency: true, KindImpactAnalysis: true, KindTypeInference: true, KindPrimitive: true,
}

// Valid reports whether k is one of the closed Kind values.
func (k Kind) Valid() bool { return validKinds[k] }

// TraversalStrategy selects how a Plan's execution walks the IR graph.
type TraversalStrategy string

const (
	BFS           TraversalStrategy = "BFS"
	DFS           TraversalStrategy = "DFS"
	Bidirectional TraversalStrategy = "Bidirectional"
)

// SliceDirection narrows a Slice-kind Plan to forward or backward slicing.
type SliceDirection string

const (
	SliceForward  SliceDirection = "Forward"
	SliceBackward SliceDirection = "Backward"
)

// Pattern is one element of a Plan's pattern tuple: a constraint on which
// IR nodes the plan's execution should consider as seeds or targets.
type Pattern struct {
	NodeKind    string `json:"node_kind,omitempty"`
	FQN         string `json:"fqn,omitempty"`
	NamePattern string `json:"name_pattern,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
}

// Budget bounds one plan's execution cost.
type Budget struct {
	MaxNodes  int `json:"max_nodes"`
	MaxEdges  int `json:"max_edges"`
	MaxPaths  int `json:"max_paths"`
	MaxDepth  int `json:"max_depth"`
	TimeoutMs int `json:"timeout_ms"`
}

// LightBudget is for interactive, narrow-scope questions (a single
// function's local slice, a short call chain).
func LightBudget() Budget {
	return Budget{MaxNodes: 500, MaxEdges: 1000, MaxPaths: 50, MaxDepth: 10, TimeoutMs: 2000}
}

// DefaultBudget is the general-purpose budget used when a caller does not
// specify one; sized for a single-repository taint scan.
func DefaultBudget() Budget {
	return Budget{MaxNodes: 5000, MaxEdges: 10000, MaxPaths: 1000, MaxDepth: 50, TimeoutMs: 15000}
}

// HeavyBudget is for whole-repository impact analysis and batch scans
// where a longer wall-clock budget is acceptable.
func HeavyBudget() Budget {
	return Budget{MaxNodes: 50000, MaxEdges: 100000, MaxPaths: 10000, MaxDepth: 100, TimeoutMs: 120000}
}

// Plan is an immutable, canonicalized question. Two Plans built from the
// same logical pattern/scope/budget — regardless of slice order in the
// fields below — hash identically.
type Plan struct {
	Kind              Kind               `json:"kind"`
	Patterns          []Pattern          `json:"patterns"`
	Budget            Budget             `json:"budget"`
	FileScope         []string           `json:"file_scope,omitempty"`
	FunctionScope     []string           `json:"function_scope,omitempty"`
	EdgeTypes         []string           `json:"edge_types,omitempty"`
	SliceDirection    SliceDirection     `json:"slice_direction,omitempty"`
	PolicyID          string             `json:"policy_id,omitempty"`
	TraversalStrategy TraversalStrategy  `json:"traversal_strategy,omitempty"`
}

// New builds a Plan, validating kind and defaulting an empty Budget to
// DefaultBudget.
func New(kind Kind, patterns []Pattern, budget Budget) (Plan, error) {
	if !kind.Valid() {
		return Plan{}, fmt.Errorf("query: invalid plan kind %q", kind)
	}
	if budget == (Budget{}) {
		budget = DefaultBudget()
	}
	return Plan{Kind: kind, Patterns: patterns, Budget: budget}, nil
}

// canonical returns a copy of p with every order-insensitive slice field
// sorted, so Hash is independent of the caller's construction order.
func (p Plan) canonical() Plan {
	c := p
	c.Patterns = append([]Pattern(nil), p.Patterns...)
	sort.Slice(c.Patterns, func(i, j int) bool {
		return patternKey(c.Patterns[i]) < patternKey(c.Patterns[j])
	})
	c.FileScope = sortedCopy(p.FileScope)
	c.FunctionScope = sortedCopy(p.FunctionScope)
	c.EdgeTypes = sortedCopy(p.EdgeTypes)
	return c
}

func patternKey(p Pattern) string {
	return p.NodeKind + "\x00" + p.FQN + "\x00" + p.NamePattern + "\x00" + p.FilePath
}

func sortedCopy(in []string) []string {
	if in == nil {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// Hash returns the Plan's deterministic content hash: the hex-encoded
// SHA-256 of its canonical JSON encoding. Given the same input pattern,
// scope, and budget, Hash is identical across process restarts.
func (p Plan) Hash() string {
	canon := p.canonical()
	b, err := json.Marshal(canon)
	if err != nil {
		// Plan contains only marshalable scalar/slice/struct fields;
		// a marshal failure here indicates a programming error, not a
		// runtime condition callers should handle.
		panic(fmt.Sprintf("query: plan is not marshalable: %v", err))
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)
}
