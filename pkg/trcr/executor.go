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
	"regexp"
	"sort"

	"github.com/opencie/cie/pkg/ir"
)

// Hard and recommended bounds per spec: two tiers, hard caps never
// exceeded regardless of caller-supplied constraints, recommended caps
// used when the caller does not narrow a bound itself.
const (
	HardMaxPaths = 10000
	HardMaxDepth = 100

	RecommendedMaxPaths = 1000
	RecommendedMaxDepth = 50
)

// TaintPath is one witnessed source-to-sink flow.
type TaintPath struct {
	RuleID      string
	Path        []string // ordered node names traversed, source first
	IsSanitized bool
	Confidence  float64
}

// Constraints filters TaintPath results. Zero value means "use the
// recommended defaults": MaxLength unset (0) is unlimited within the
// hard depth bound, MinConfidence 0 accepts everything.
type Constraints struct {
	MaxLength        int
	MinConfidence    float64
	RequireSanitizer bool
	MaxPaths         int
	MaxDepth         int
}

// allowedConstraintKeys is the closed set accepted by ParseConstraints;
// anything else is a hard error per spec §4.9 point 5.
var allowedConstraintKeys = map[string]bool{
	"max_length": true, "min_confidence": true, "require_sanitizer": true,
	"max_paths": true, "max_depth": true,
}

// ParseConstraints validates a caller-supplied constraint map and
// converts it to a Constraints value, clamping to the hard bounds and
// rejecting any key outside the known set.
func ParseConstraints(raw map[string]any) (Constraints, error) {
	for k := range raw {
		if !allowedConstraintKeys[k] {
			return Constraints{}, fmt.Errorf("trcr: unknown constraint key %q", k)
		}
	}
	c := Constraints{MaxPaths: RecommendedMaxPaths, MaxDepth: RecommendedMaxDepth}
	if v, ok := raw["max_length"].(int); ok {
		c.MaxLength = v
	}
	if v, ok := raw["min_confidence"].(float64); ok {
		c.MinConfidence = v
	}
	if v, ok := raw["require_sanitizer"].(bool); ok {
		c.RequireSanitizer = v
	}
	if v, ok := raw["max_paths"].(int); ok {
		c.MaxPaths = v
	}
	if v, ok := raw["max_depth"].(int); ok {
		c.MaxDepth = v
	}
	if c.MaxPaths <= 0 || c.MaxPaths > HardMaxPaths {
		c.MaxPaths = HardMaxPaths
	}
	if c.MaxDepth <= 0 || c.MaxDepth > HardMaxDepth {
		c.MaxDepth = HardMaxDepth
	}
	return c, nil
}

// functionSummary is the inter-procedural abstraction computed once
// per function: whether it is directly tainted by a compiled source
// rule, whether it calls a compiled sink rule, and whether it calls a
// compiled sanitizer rule (cleared taint for every path through it).
type functionSummary struct {
	node        *ir.Node
	isSource    bool
	isSink      bool
	isSanitizer bool
	sinkRuleID  string // RuleID of the first compiled sink rule matched; empty if isSink is false
}

// Executor runs compiled rules against an analyzed ir.Document.
type Executor struct {
	Doc      *ir.Document
	Compiled []TaintRuleExecutableIR
}

// NewExecutor returns an Executor bound to doc and rules.
func NewExecutor(doc *ir.Document, rules []TaintRuleExecutableIR) *Executor {
	return &Executor{Doc: doc, Compiled: rules}
}

// Run performs candidate generation, predicate evaluation (folded into
// matchesCall/matchesRead since the compiled predicate chain is
// already reorder-optimized), and taint propagation, returning every
// TaintPath surviving constraints, path-length-sorted then
// confidence-descending for a stable result order.
func (e *Executor) Run(raw map[string]any) ([]TaintPath, error) {
	constraints, err := ParseConstraints(raw)
	if err != nil {
		return nil, err
	}

	summaries := e.buildFunctionSummaries()
	paths := e.findFunctionLevelPaths(summaries, constraints)
	if len(paths) == 0 {
		paths = e.findVariableLevelPaths(summaries, constraints)
	}

	var out []TaintPath
	for _, p := range paths {
		if constraints.MaxLength > 0 && len(p.Path) > constraints.MaxLength {
			continue
		}
		if p.Confidence < constraints.MinConfidence {
			continue
		}
		if constraints.RequireSanitizer && !p.IsSanitized {
			continue
		}
		out = append(out, p)
		if len(out) >= constraints.MaxPaths {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Path) != len(out[j].Path) {
			return len(out[i].Path) < len(out[j].Path)
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out, nil
}

// buildFunctionSummaries classifies every Function/Method/Lambda node
// by whether its outgoing CALLS edges hit a source, sink, or sanitizer
// rule. A function may be more than one at once (e.g. a helper that
// both reads a tainted env var and logs it is both source and sink).
func (e *Executor) buildFunctionSummaries() map[string]*functionSummary {
	summaries := make(map[string]*functionSummary)
	for _, kind := range []ir.NodeKind{ir.KindFunction, ir.KindMethod, ir.KindLambda} {
		for _, fn := range e.Doc.NodesByKind(kind) {
			summaries[fn.ID] = &functionSummary{node: fn}
		}
	}

	for _, fnID := range sortedKeys(summaries) {
		s := summaries[fnID]
		for _, edge := range e.Doc.EdgesFrom(fnID) {
			if edge.Kind != ir.EdgeCalls {
				continue
			}
			target, ok := e.Doc.Node(edge.TargetID)
			if !ok {
				continue
			}
			for _, rule := range e.Compiled {
				if !e.matchesCall(rule, target) {
					continue
				}
				switch rule.Kind {
				case KindSource:
					s.isSource = true
				case KindSink:
					s.isSink = true
					if s.sinkRuleID == "" {
						s.sinkRuleID = rule.RuleID
					}
				case KindSanitizer:
					s.isSanitizer = true
				}
			}
		}
		// A function also sources taint if it reads a variable matching a
		// compiled source's "read" clause (e.g. an ambient superglobal).
		for _, edge := range e.Doc.EdgesFrom(fnID) {
			if edge.Kind != ir.EdgeReads {
				continue
			}
			v, ok := e.Doc.Node(edge.TargetID)
			if !ok {
				continue
			}
			for _, rule := range e.Compiled {
				if rule.Kind == KindSource && e.matchesRead(rule, v) {
					s.isSource = true
				}
			}
		}
	}
	return summaries
}

func sortedKeys(m map[string]*functionSummary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Executor) matchesCall(rule TaintRuleExecutableIR, target *ir.Node) bool {
	for _, p := range rule.PredicateExec.Predicates {
		switch p.Kind {
		case PredCallName:
			if target.FQN != p.Value && target.Name != p.Value {
				return false
			}
		case PredCallPattern:
			ok, _ := regexp.MatchString(p.Value, target.FQN)
			if !ok {
				ok, _ = regexp.MatchString(p.Value, target.Name)
			}
			if !ok {
				return false
			}
		case PredBaseType, PredBaseTypePattern, PredReadName, PredArgIndex, PredArgName:
			// Not evaluable against a bare call-target node at this IR
			// granularity; absence of a contradicting field is treated
			// as a pass, matching the original's "missing data never
			// rejects, it just can't add specificity" posture.
		}
	}
	return rule.GeneratorExec.CandidatePlan.Class == ClassCall
}

func (e *Executor) matchesRead(rule TaintRuleExecutableIR, v *ir.Node) bool {
	if rule.GeneratorExec.CandidatePlan.Class != ClassRead {
		return false
	}
	for _, p := range rule.PredicateExec.Predicates {
		if p.Kind == PredReadName && v.Name != p.Value {
			return false
		}
	}
	return true
}

// findFunctionLevelPaths BFS-explores CALLS edges outward from every
// source function, recording the first path that reaches a sink
// function within MaxDepth hops. CallContext depth and the hard/soft
// bounds share the same constraints.MaxDepth knob: beyond it, the
// search simply stops extending that branch (the "summary only"
// degrade spec §4.9 describes, since a function already classified
// isSource/isSink by buildFunctionSummaries reflects its summary
// regardless of how far the BFS explores past it).
func (e *Executor) findFunctionLevelPaths(summaries map[string]*functionSummary, c Constraints) []TaintPath {
	var out []TaintPath
	visited := make(map[string]bool) // interned path-tuple keys, prevents cycle re-expansion

	var sourceIDs []string
	for id, s := range summaries {
		if s.isSource {
			sourceIDs = append(sourceIDs, id)
		}
	}
	sort.Strings(sourceIDs)

	for _, srcID := range sourceIDs {
		e.bfsFromSource(srcID, summaries, c, visited, &out)
		if len(out) >= c.MaxPaths {
			break
		}
	}
	return out
}

type bfsState struct {
	nodeID      string
	path        []string
	sanitized   bool
	depth       int
}

func (e *Executor) bfsFromSource(srcID string, summaries map[string]*functionSummary, c Constraints, visited map[string]bool, out *[]TaintPath) {
	src := summaries[srcID]
	queue := []bfsState{{nodeID: srcID, path: []string{src.node.Name}, sanitized: src.isSanitizer, depth: 0}}

	for len(queue) > 0 && len(*out) < c.MaxPaths {
		cur := queue[0]
		queue = queue[1:]

		key := pathKey(cur.path)
		if visited[key] {
			continue // interned path tuple already expanded: cycle, skip
		}
		visited[key] = true

		curSummary := summaries[cur.nodeID]
		if curSummary.isSink && cur.depth > 0 {
			*out = append(*out, TaintPath{
				RuleID:      curSummary.sinkRuleID,
				Path:        append([]string(nil), cur.path...),
				IsSanitized: cur.sanitized,
				Confidence:  pathConfidence(len(cur.path), cur.sanitized, false),
			})
			continue // a witnessed sink terminates this branch of the search
		}
		if cur.depth >= c.MaxDepth {
			continue
		}

		for _, edge := range e.Doc.EdgesFrom(cur.nodeID) {
			if edge.Kind != ir.EdgeCalls {
				continue
			}
			if edge.TargetID == cur.nodeID {
				continue // self-loop, ignored per spec §4.9
			}
			next, ok := summaries[edge.TargetID]
			if !ok {
				continue // target isn't a function summary (e.g. ExternalFunction stub) - no further expansion
			}
			queue = append(queue, bfsState{
				nodeID:    edge.TargetID,
				path:      append(append([]string(nil), cur.path...), next.node.Name),
				sanitized: cur.sanitized || next.isSanitizer,
				depth:     cur.depth + 1,
			})
		}
	}
}

// findVariableLevelPaths is the fallback described in SPEC_FULL.md's
// variable-level data-flow supplement: when no CALLS-edge chain
// connects a source function to a sink function, BFS directly over
// WRITES/READS edges to a tainted Variable node, expanding through
// "a reader of the tainted variable calls another function" and "the
// variable's writer's enclosing function" edges.
func (e *Executor) findVariableLevelPaths(summaries map[string]*functionSummary, c Constraints) []TaintPath {
	var out []TaintPath
	visited := make(map[string]bool)

	for _, srcID := range sortedSourceIDs(summaries) {
		for _, edge := range e.Doc.EdgesFrom(srcID) {
			if edge.Kind != ir.EdgeWrites {
				continue
			}
			v, ok := e.Doc.Node(edge.TargetID)
			if !ok {
				continue
			}
			src := summaries[srcID]
			e.bfsFromVariable(v, []string{src.node.Name, v.Name}, src.isSanitizer, 1, summaries, c, visited, &out)
			if len(out) >= c.MaxPaths {
				return out
			}
		}
	}
	return out
}

func sortedSourceIDs(summaries map[string]*functionSummary) []string {
	var ids []string
	for id, s := range summaries {
		if s.isSource {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (e *Executor) bfsFromVariable(v *ir.Node, path []string, sanitized bool, depth int, summaries map[string]*functionSummary, c Constraints, visited map[string]bool, out *[]TaintPath) {
	if depth >= c.MaxDepth || len(*out) >= c.MaxPaths {
		return
	}
	key := pathKey(path)
	if visited[key] {
		return
	}
	visited[key] = true

	for _, edge := range e.Doc.EdgesTo(v.ID) {
		if edge.Kind != ir.EdgeReads {
			continue
		}
		reader, ok := summaries[edge.SourceID]
		if !ok {
			continue
		}
		nextPath := append(append([]string(nil), path...), reader.node.Name)
		nextSanitized := sanitized || reader.isSanitizer
		if reader.isSink {
			*out = append(*out, TaintPath{
				RuleID:      reader.sinkRuleID,
				Path:        nextPath,
				IsSanitized: nextSanitized,
				Confidence:  pathConfidence(len(nextPath), nextSanitized, true),
			})
			if len(*out) >= c.MaxPaths {
				return
			}
			continue
		}
		// Fallback: the reader passes the tainted variable on to
		// whatever it calls next.
		for _, callEdge := range e.Doc.EdgesFrom(edge.SourceID) {
			if callEdge.Kind != ir.EdgeCalls || callEdge.TargetID == edge.SourceID {
				continue
			}
			callee, ok := summaries[callEdge.TargetID]
			if !ok {
				continue
			}
			calleePath := append(append([]string(nil), nextPath...), callee.node.Name)
			if callee.isSink {
				*out = append(*out, TaintPath{
					RuleID:      callee.sinkRuleID,
					Path:        calleePath,
					IsSanitized: nextSanitized || callee.isSanitizer,
					Confidence:  pathConfidence(len(calleePath), nextSanitized || callee.isSanitizer, true),
				})
			}
		}
		// Reader's-enclosing-function fallback: when the reader itself is
		// a nested function (CONTAINS edge from some enclosing
		// function), the variables its enclosing function writes are
		// also explored, covering the case where a sink check only sees
		// the outer function rather than the lambda passed into it.
		for _, contains := range e.Doc.EdgesTo(edge.SourceID) {
			if contains.Kind != ir.EdgeContains {
				continue
			}
			parent, ok := summaries[contains.SourceID]
			if !ok {
				continue
			}
			for _, writeEdge := range e.Doc.EdgesFrom(parent.node.ID) {
				if writeEdge.Kind != ir.EdgeWrites {
					continue
				}
				pv, ok := e.Doc.Node(writeEdge.TargetID)
				if !ok || pv.ID == v.ID {
					continue
				}
				e.bfsFromVariable(pv, append(append([]string(nil), nextPath...), pv.Name), nextSanitized, depth+1, summaries, c, visited, out)
			}
		}
	}
}

func pathKey(path []string) string {
	key := ""
	for _, p := range path {
		key += p + ">"
	}
	return key
}

// pathConfidence is a function of path length (shorter is more
// confident), whether the flow was witnessed via the direct call-graph
// or the variable-level fallback (the fallback requires more
// speculative edge-expansion, hence mayAlias=true lowers confidence),
// and whether the path was sanitized. Rule specificity does not enter
// the score.
func pathConfidence(length int, sanitized bool, mayAlias bool) float64 {
	conf := 1.0 - float64(length)*0.05
	if mayAlias {
		conf -= 0.2
	}
	if sanitized {
		conf -= 0.3
	}
	if conf < 0 {
		return 0
	}
	return conf
}
