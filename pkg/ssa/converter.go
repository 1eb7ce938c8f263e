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

package ssa

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/opencie/cie/pkg/cfg"
	"github.com/opencie/cie/pkg/ir"
)

// DataFlowEdgeKind is one of the four DFG propagation edge kinds.
type DataFlowEdgeKind string

const (
	DFAssign    DataFlowEdgeKind = "Assign"
	DFRead      DataFlowEdgeKind = "Read"
	DFWrite     DataFlowEdgeKind = "Write"
	DFPropagate DataFlowEdgeKind = "Propagate"
)

// DataFlowEdge connects two VariableEntity ids.
type DataFlowEdge struct {
	Kind DataFlowEdgeKind
	From string
	To   string
}

// Result is the output of converting one function's CFG to SSA.
type Result struct {
	FunctionNodeID string
	Dominators     *dominatorTree
	PhiNodes       map[string][]*PhiNode // block id -> phis at that block
	Variables      map[string]VariableEntity
	DataFlowEdges  []DataFlowEdge
	UndefSites     int // count of uses bound to a synthesized undef variable, never fatal
}

// Converter converts CFGs to SSA for one repository, materializing
// VariableEntity nodes and graph-level READS/WRITES edges into doc. The
// phi-placement and dominator-tree renaming follow the standard
// textbook construction, expressed with Go's explicit-error,
// no-exceptions idiom rather than a throw-on-unreachable style.
type Converter struct {
	Repo string
}

// Convert builds SSA for g. tree supplies source bytes for def/use
// extraction; functionFQN scopes VariableEntity identity; params lists
// the function's parameter names, which are treated as defined at Entry
// with version 0.
func (c *Converter) Convert(doc *ir.Document, functionNodeID string, g *cfg.Graph, tree content, functionFQN string, params []string) *Result {
	dt := buildDominatorTree(g)

	defsByBlock := make(map[string]map[string]bool)
	for _, b := range g.OrderedBlocks() {
		defsByBlock[b.ID] = make(map[string]bool)
	}
	if entry := g.Blocks[g.Entry]; entry != nil {
		for _, p := range params {
			defsByBlock[entry.ID][p] = true
		}
	}
	for _, b := range g.OrderedBlocks() {
		for _, stmt := range b.Statements {
			n, ok := stmt.Raw.(*sitter.Node)
			if !ok || n == nil {
				continue
			}
			writes, _ := defsAndUses(n, tree.Bytes())
			for _, w := range writes {
				defsByBlock[b.ID][w] = true
			}
		}
	}

	phiNodes := make(map[string][]*PhiNode)
	hasPhi := make(map[string]map[string]bool) // block -> var -> has phi

	allVars := make(map[string]bool)
	for _, defs := range defsByBlock {
		for v := range defs {
			allVars[v] = true
		}
	}

	for v := range allVars {
		worklist := make([]string, 0)
		inWorklist := make(map[string]bool)
		for blockID, defs := range defsByBlock {
			if defs[v] {
				worklist = append(worklist, blockID)
				inWorklist[blockID] = true
			}
		}
		for len(worklist) > 0 {
			b := worklist[0]
			worklist = worklist[1:]
			for f := range dt.Frontier(b) {
				if hasPhi[f] == nil {
					hasPhi[f] = make(map[string]bool)
				}
				if hasPhi[f][v] {
					continue
				}
				hasPhi[f][v] = true
				target := SSAVariable{Name: v, BlockID: f}
				phiNodes[f] = append(phiNodes[f], NewPhiNode(target, f))
				if !inWorklist[f] {
					inWorklist[f] = true
					worklist = append(worklist, f)
				}
			}
		}
	}

	r := &Result{
		FunctionNodeID: functionNodeID,
		Dominators:     dt,
		PhiNodes:       phiNodes,
		Variables:      make(map[string]VariableEntity),
	}

	versionCounters := make(map[string]int)
	stacks := make(map[string][]SSAVariable)
	nextVersion := func(name string) int {
		v := versionCounters[name]
		versionCounters[name]++
		return v
	}
	push := func(name string, ver SSAVariable) { stacks[name] = append(stacks[name], ver) }
	pop := func(name string) {
		if s := stacks[name]; len(s) > 0 {
			stacks[name] = s[:len(s)-1]
		}
	}
	top := func(name string) (SSAVariable, bool) {
		s := stacks[name]
		if len(s) == 0 {
			return SSAVariable{}, false
		}
		return s[len(s)-1], true
	}

	ensureEntity := func(name string, kind VarKind) VariableEntity {
		if e, ok := r.Variables[name]; ok {
			return e
		}
		e := VariableEntity{ID: entityID(c.Repo, functionFQN, name), FunctionFQN: functionFQN, Name: name, Kind: kind}
		r.Variables[name] = e
		doc.AddNode(ir.Node{ID: e.ID, Kind: ir.KindVariable, FQN: functionFQN + "." + name, Name: name, Language: "ssa"})
		return e
	}
	isParam := make(map[string]bool, len(params))
	for _, p := range params {
		isParam[p] = true
	}

	writeOcc := make(map[string]int)
	readOcc := make(map[string]int)
	emitWrite := func(e VariableEntity) {
		doc.AddEdge(ir.Edge{
			ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeWrites, SourceID: functionNodeID, TargetID: e.ID, Occurrence: writeOcc[e.ID]}),
			Kind:       ir.EdgeWrites, SourceID: functionNodeID, TargetID: e.ID, Occurrence: writeOcc[e.ID],
		})
		writeOcc[e.ID]++
	}
	emitRead := func(e VariableEntity) {
		doc.AddEdge(ir.Edge{
			ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeReads, SourceID: functionNodeID, TargetID: e.ID, Occurrence: readOcc[e.ID]}),
			Kind:       ir.EdgeReads, SourceID: functionNodeID, TargetID: e.ID, Occurrence: readOcc[e.ID],
		})
		readOcc[e.ID]++
	}

	var walk func(blockID string)
	walk = func(blockID string) {
		b := g.Blocks[blockID]
		pushedHere := make(map[string]int)

		for _, phi := range phiNodes[blockID] {
			kind := VarLocal
			if isParam[phi.Target.Name] {
				kind = VarParam
			}
			e := ensureEntity(phi.Target.Name, kind)
			ver := SSAVariable{Name: phi.Target.Name, Version: nextVersion(phi.Target.Name), BlockID: blockID}
			phi.Target = ver
			push(phi.Target.Name, ver)
			pushedHere[phi.Target.Name]++
			emitWrite(e)
		}

		if blockID == g.Entry {
			for _, p := range params {
				ver := SSAVariable{Name: p, Version: nextVersion(p), BlockID: blockID}
				push(p, ver)
				pushedHere[p]++
				emitWrite(ensureEntity(p, VarParam))
			}
		}

		for _, stmt := range b.Statements {
			n, ok := stmt.Raw.(*sitter.Node)
			if !ok || n == nil {
				continue
			}
			writes, uses := defsAndUses(n, tree.Bytes())
			for _, u := range uses {
				kind := VarLocal
				if isParam[u] {
					kind = VarParam
				}
				e := ensureEntity(u, kind)
				if _, ok := top(u); !ok {
					r.UndefSites++
					push(u, SSAVariable{Name: u, Version: -1, BlockID: blockID})
					pushedHere[u]++
				}
				emitRead(e)
				if len(writes) == 1 {
					r.DataFlowEdges = append(r.DataFlowEdges, DataFlowEdge{Kind: DFAssign, From: e.ID, To: ensureEntity(writes[0], VarLocal).ID})
				}
			}
			for _, w := range writes {
				kind := VarLocal
				if isParam[w] {
					kind = VarParam
				}
				e := ensureEntity(w, kind)
				ver := SSAVariable{Name: w, Version: nextVersion(w), BlockID: blockID}
				push(w, ver)
				pushedHere[w]++
				emitWrite(e)
			}
		}

		for _, succ := range g.Successors(blockID) {
			for _, phi := range phiNodes[succ] {
				if cur, ok := top(phi.Target.Name); ok {
					_ = phi.AddSource(blockID, cur)
				}
			}
		}

		for _, child := range dt.children[blockID] {
			walk(child)
		}

		for name, n := range pushedHere {
			for i := 0; i < n; i++ {
				pop(name)
			}
		}
	}
	walk(g.Entry)

	return r
}

// content is the minimal surface Converter needs from a *parser.Tree,
// kept as an interface so ssa does not import pkg/ir/parser directly
// and risk a future dependency cycle with pkg/structural.
type content interface {
	Bytes() []byte
}
