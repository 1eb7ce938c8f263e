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
	"fmt"
	"regexp"
	"sort"

	"github.com/opencie/cie/pkg/ir"
)

// Result is what executing a Plan against a Document produces: the
// node/edge set the traversal actually visited, bounded by the Plan's
// Budget, plus whether a bound was hit before the traversal ran dry.
type Result struct {
	Nodes     []ir.Node
	Edges     []ir.Edge
	Truncated bool
}

// Execute runs plan against doc. TaintProof plans are not handled here:
// that kind's semantics (source/sink/sanitizer rule matching) belong to
// pkg/trcr.Executor, which already implements them; Execute rejects it
// so a caller does not silently get an empty, wrong-shaped answer.
func Execute(doc *ir.Document, plan Plan) (Result, error) {
	if !plan.Kind.Valid() {
		return Result{}, fmt.Errorf("query: invalid plan kind %q", plan.Kind)
	}
	if plan.Kind == KindTaintProof {
		return Result{}, fmt.Errorf("query: TaintProof plans execute via pkg/trcr.Executor, not query.Execute")
	}

	seeds, err := matchSeeds(doc, plan.Patterns)
	if err != nil {
		return Result{}, err
	}

	switch plan.Kind {
	case KindPrimitive, KindTypeInference:
		return seedsOnly(seeds, plan.Budget), nil
	case KindCallChain:
		return traverse(doc, seeds, plan.Budget, edgeKindsOrDefault(plan.EdgeTypes, ir.EdgeCalls), forward)
	case KindDataDependency, KindDataflow:
		kinds := edgeKindsOrDefault(plan.EdgeTypes, ir.EdgeReads, ir.EdgeWrites, ir.EdgeReferences)
		return traverse(doc, seeds, plan.Budget, kinds, forward)
	case KindImpactAnalysis:
		kinds := edgeKindsOrDefault(plan.EdgeTypes, ir.EdgeCalls, ir.EdgeReferences)
		return traverse(doc, seeds, plan.Budget, kinds, backward)
	case KindSlice:
		dir := forward
		if plan.SliceDirection == SliceBackward {
			dir = backward
		}
		kinds := edgeKindsOrDefault(plan.EdgeTypes, ir.EdgeReads, ir.EdgeWrites, ir.EdgeCalls, ir.EdgeCfgNext, ir.EdgeCfgBranch)
		return traverse(doc, seeds, plan.Budget, kinds, dir)
	default:
		return Result{}, fmt.Errorf("query: unhandled plan kind %q", plan.Kind)
	}
}

type direction int

const (
	forward direction = iota
	backward
)

// matchSeeds returns every node satisfying at least one Pattern; an
// empty Patterns list matches every node in the document.
func matchSeeds(doc *ir.Document, patterns []Pattern) ([]*ir.Node, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		if p.NamePattern == "" {
			continue
		}
		re, err := regexp.Compile(p.NamePattern)
		if err != nil {
			return nil, fmt.Errorf("query: invalid name_pattern %q: %w", p.NamePattern, err)
		}
		compiled[i] = re
	}

	all := doc.AllNodes()
	if len(patterns) == 0 {
		return all, nil
	}

	var out []*ir.Node
	for _, n := range all {
		for i, p := range patterns {
			if patternMatches(n, p, compiled[i]) {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}

func patternMatches(n *ir.Node, p Pattern, nameRe *regexp.Regexp) bool {
	if p.NodeKind != "" && string(n.Kind) != p.NodeKind {
		return false
	}
	if p.FQN != "" && n.FQN != p.FQN {
		return false
	}
	if p.FilePath != "" && n.FilePath != p.FilePath {
		return false
	}
	if nameRe != nil && !nameRe.MatchString(n.Name) {
		return false
	}
	return true
}

func edgeKindsOrDefault(configured []string, fallback ...ir.EdgeKind) []ir.EdgeKind {
	if len(configured) == 0 {
		return fallback
	}
	out := make([]ir.EdgeKind, len(configured))
	for i, k := range configured {
		out[i] = ir.EdgeKind(k)
	}
	return out
}

func seedsOnly(seeds []*ir.Node, budget Budget) Result {
	max := budget.MaxNodes
	truncated := false
	if max > 0 && len(seeds) > max {
		seeds = seeds[:max]
		truncated = true
	}
	out := make([]ir.Node, len(seeds))
	for i, n := range seeds {
		out[i] = *n
	}
	return Result{Nodes: out, Truncated: truncated}
}

// traverse runs a breadth-first walk from seeds along the given edge
// kinds, honoring the Budget's node/edge/depth caps. dir selects
// whether edges are followed source->target (forward) or target->source
// (backward, for impact/reverse-dependency analysis).
func traverse(doc *ir.Document, seeds []*ir.Node, budget Budget, kinds []ir.EdgeKind, dir direction) (Result, error) {
	allowed := make(map[ir.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}

	maxNodes := budget.MaxNodes
	maxEdges := budget.MaxEdges
	maxDepth := budget.MaxDepth

	visitedNodes := make(map[string]bool)
	visitedEdges := make(map[string]bool)
	var resultNodes []ir.Node
	var resultEdges []ir.Edge
	truncated := false

	type queued struct {
		id    string
		depth int
	}
	var queue []queued
	for _, s := range seeds {
		if !visitedNodes[s.ID] {
			visitedNodes[s.ID] = true
			resultNodes = append(resultNodes, *s)
			queue = append(queue, queued{id: s.ID, depth: 0})
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}

		var edges []*ir.Edge
		if dir == forward {
			edges = doc.EdgesFrom(cur.id)
		} else {
			edges = doc.EdgesTo(cur.id)
		}

		for _, e := range edges {
			if !allowed[e.Kind] {
				continue
			}
			if maxEdges > 0 && len(resultEdges) >= maxEdges {
				truncated = true
				break
			}
			if !visitedEdges[e.ID] {
				visitedEdges[e.ID] = true
				resultEdges = append(resultEdges, *e)
			}

			nextID := e.TargetID
			if dir == backward {
				nextID = e.SourceID
			}
			if visitedNodes[nextID] {
				continue
			}
			if maxNodes > 0 && len(resultNodes) >= maxNodes {
				truncated = true
				continue
			}
			if n, ok := doc.Node(nextID); ok {
				visitedNodes[nextID] = true
				resultNodes = append(resultNodes, *n)
				queue = append(queue, queued{id: nextID, depth: cur.depth + 1})
			}
		}
	}

	sort.Slice(resultNodes, func(i, j int) bool { return resultNodes[i].ID < resultNodes[j].ID })
	sort.Slice(resultEdges, func(i, j int) bool { return resultEdges[i].ID < resultEdges[j].ID })
	return Result{Nodes: resultNodes, Edges: resultEdges, Truncated: truncated}, nil
}
