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

package ir

import "sort"

// Document is the per-snapshot IR graph. Nodes and edges are owned by the
// Document for the lifetime of a snapshot; everything downstream (CFG, SSA,
// taint, query planner) references them by id. A Document is built
// incrementally during a pipeline run and is treated as immutable once the
// run completes; concurrent readers never see a partially built graph.
type Document struct {
	nodes map[string]*Node
	edges map[string]*Edge

	// byKind indexes node ids by NodeKind for O(1) enumeration during
	// projection and query planning.
	byKind map[NodeKind][]string
	// byFile indexes node ids by FilePath for per-file incremental rebuild.
	byFile map[string][]string
}

// NewDocument returns an empty, ready-to-populate Document.
func NewDocument() *Document {
	return &Document{
		nodes:  make(map[string]*Node),
		edges:  make(map[string]*Edge),
		byKind: make(map[NodeKind][]string),
		byFile: make(map[string][]string),
	}
}

// AddNode inserts n, indexing it by kind and file. Re-adding a node with
// the same ID overwrites the previous value but does not duplicate index
// entries (index rebuild on overwrite would be needed for full mutation
// support; Documents are append-only within a build, matching the
// evidence store's own append-only contract).
func (d *Document) AddNode(n Node) {
	if !n.Kind.Valid() {
		panic(&UnhandledKindError{Site: "Document.AddNode", Kind: string(n.Kind)})
	}
	if _, exists := d.nodes[n.ID]; exists {
		d.nodes[n.ID] = &n
		return
	}
	d.nodes[n.ID] = &n
	d.byKind[n.Kind] = append(d.byKind[n.Kind], n.ID)
	if n.FilePath != "" {
		d.byFile[n.FilePath] = append(d.byFile[n.FilePath], n.ID)
	}
}

// AddEdge inserts e. Duplicate ids (same kind/source/target/occurrence)
// are idempotent inserts, matching the edge ID's definition as a pure
// function of those fields.
func (d *Document) AddEdge(e Edge) {
	if !e.Kind.Valid() {
		panic(&UnhandledKindError{Site: "Document.AddEdge", Kind: string(e.Kind)})
	}
	d.edges[e.ID] = &e
}

// Node looks up a node by id.
func (d *Document) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Edge looks up an edge by id.
func (d *Document) Edge(id string) (*Edge, bool) {
	e, ok := d.edges[id]
	return e, ok
}

// NodesByKind returns the nodes of the given kind, sorted by id so
// repeated enumeration of a finished snapshot is deterministic.
func (d *Document) NodesByKind(k NodeKind) []*Node {
	ids := append([]string(nil), d.byKind[k]...)
	sort.Strings(ids)
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.nodes[id])
	}
	return out
}

// NodesByFile returns the nodes declared in filePath, sorted by id.
func (d *Document) NodesByFile(filePath string) []*Node {
	ids := append([]string(nil), d.byFile[filePath]...)
	sort.Strings(ids)
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.nodes[id])
	}
	return out
}

// AllNodes returns every node sorted by id.
func (d *Document) AllNodes() []*Node {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.nodes[id])
	}
	return out
}

// AllEdges returns every edge sorted by id.
func (d *Document) AllEdges() []*Edge {
	ids := make([]string, 0, len(d.edges))
	for id := range d.edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.edges[id])
	}
	return out
}

// EdgesFrom returns edges whose source is id, in id order.
func (d *Document) EdgesFrom(id string) []*Edge {
	var out []*Edge
	for _, e := range d.edges {
		if e.SourceID == id {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EdgesTo returns edges whose target is id, in id order.
func (d *Document) EdgesTo(id string) []*Edge {
	var out []*Edge
	for _, e := range d.edges {
		if e.TargetID == id {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RemoveFile deletes every node declared in filePath and every edge
// touching one of those nodes. Used by the incremental driver when a
// file is deleted or about to be rebuilt.
func (d *Document) RemoveFile(filePath string) {
	ids := d.byFile[filePath]
	dead := make(map[string]bool, len(ids))
	for _, id := range ids {
		dead[id] = true
		delete(d.nodes, id)
	}
	delete(d.byFile, filePath)
	for k, list := range d.byKind {
		kept := list[:0:0]
		for _, id := range list {
			if !dead[id] {
				kept = append(kept, id)
			}
		}
		d.byKind[k] = kept
	}
	for eid, e := range d.edges {
		if dead[e.SourceID] || dead[e.TargetID] {
			delete(d.edges, eid)
		}
	}
}

// graphVisibleKind maps an IR-only kind to the kind exposed in the graph
// projection. Kinds not present in the map project unchanged.
// Control-only kinds (Block, Condition, Loop, TryCatch) never appear in
// the projection and are filtered by Project, not remapped here.
var graphVisibleKind = map[NodeKind]NodeKind{
	KindLambda:    KindFunction,
	KindEnum:      KindClass,
	KindTypeAlias: KindType,
}

// controlOnlyKinds never appear in the graph-visible projection; they
// exist only to let the CFG builder and structural generator reason about
// control structure while walking the IR.
var controlOnlyKinds = map[NodeKind]bool{
	KindBlock:     true,
	KindCondition: true,
	KindLoop:      true,
	KindTryCatch:  true,
}

// Project returns the graph-visible view of the document: every node not
// in controlOnlyKinds, with IR-only kinds remapped per graphVisibleKind.
// The returned nodes are copies; mutating them does not affect d.
func (d *Document) Project() []Node {
	all := d.AllNodes()
	out := make([]Node, 0, len(all))
	for _, n := range all {
		if controlOnlyKinds[n.Kind] {
			continue
		}
		if !n.Kind.Valid() {
			panic(&UnhandledKindError{Site: "Document.Project", Kind: string(n.Kind)})
		}
		proj := *n
		if mapped, ok := graphVisibleKind[n.Kind]; ok {
			proj.Kind = mapped
		}
		out = append(out, proj)
	}
	return out
}
