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

package incremental

import (
	"path/filepath"
	"sort"

	"github.com/opencie/cie/pkg/ir"
)

// DependencyGraph records, per file, which other files it imports and
// which exported symbols from those files it actually references. Both
// directions are kept so the affected-set BFS can walk the reverse edge
// without recomputing it.
type DependencyGraph struct {
	imports      map[string]map[string]bool // file -> set of files it imports
	dependents   map[string]map[string]bool // file -> set of files that import it
	references   map[string]map[string]bool // file -> set of files whose exported symbols it calls into
	referencedBy map[string]map[string]bool // file -> set of files that reference it
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		imports:      make(map[string]map[string]bool),
		dependents:   make(map[string]map[string]bool),
		references:   make(map[string]map[string]bool),
		referencedBy: make(map[string]map[string]bool),
	}
}

func addEdge(fwd, rev map[string]map[string]bool, from, to string) {
	if from == to {
		return
	}
	if fwd[from] == nil {
		fwd[from] = make(map[string]bool)
	}
	fwd[from][to] = true
	if rev[to] == nil {
		rev[to] = make(map[string]bool)
	}
	rev[to][from] = true
}

// Build derives the import edges from every ir.KindImport node's file,
// mapped to its resolved target package's member files, and the
// reference edges from every CALLS edge whose endpoints live in
// different files. It replaces any previously built state, so callers
// rebuild the whole graph from a finished Document each time — cheap
// relative to re-running the analysis stages, and the only way to keep
// it free of edges to since-deleted files.
func (g *DependencyGraph) Build(doc *ir.Document) {
	g.imports = make(map[string]map[string]bool)
	g.dependents = make(map[string]map[string]bool)
	g.references = make(map[string]map[string]bool)
	g.referencedBy = make(map[string]map[string]bool)

	packageFiles := make(map[string]map[string]bool) // package dir -> set of files
	for _, f := range doc.NodesByKind(ir.KindFile) {
		dir := filepath.Dir(f.FilePath)
		if packageFiles[dir] == nil {
			packageFiles[dir] = make(map[string]bool)
		}
		packageFiles[dir][f.FilePath] = true
	}

	for _, imp := range doc.NodesByKind(ir.KindImport) {
		target := resolveImportDir(imp.FQN, packageFiles)
		if target == "" {
			continue
		}
		for file := range packageFiles[target] {
			addEdge(g.imports, g.dependents, imp.FilePath, file)
		}
	}

	nodeFile := make(map[string]string, len(doc.AllNodes()))
	for _, n := range doc.AllNodes() {
		nodeFile[n.ID] = n.FilePath
	}
	for _, e := range doc.AllEdges() {
		if e.Kind != ir.EdgeCalls {
			continue
		}
		from, to := nodeFile[e.SourceID], nodeFile[e.TargetID]
		if from == "" || to == "" {
			continue
		}
		addEdge(g.references, g.referencedBy, from, to)
	}
}

// resolveImportDir maps an import path to a local package directory by
// exact match or path-suffix match, the same fallback order
// pkg/resolve's findPackageByImportPath uses for the analogous problem.
func resolveImportDir(importPath string, packageFiles map[string]map[string]bool) string {
	if _, ok := packageFiles[importPath]; ok {
		return importPath
	}
	for dir := range packageFiles {
		if len(importPath) >= len(dir) && importPath[len(importPath)-len(dir):] == dir {
			return dir
		}
	}
	return ""
}

// AffectedSet computes the files an incremental rebuild must reprocess:
// the changed files themselves, plus every file reachable by walking
// the reverse dependency and reverse reference edges, breadth-first, up
// to maxFanout hops. A hop counts once per BFS level regardless of how
// many files are discovered at that level, so maxFanout bounds blast
// radius (a widely-imported leaf file) rather than file count.
func (g *DependencyGraph) AffectedSet(changed []string, maxFanout int) []string {
	visited := make(map[string]bool, len(changed))
	frontier := make([]string, 0, len(changed))
	for _, f := range changed {
		if !visited[f] {
			visited[f] = true
			frontier = append(frontier, f)
		}
	}

	for hop := 0; hop < maxFanout && len(frontier) > 0; hop++ {
		var next []string
		for _, f := range frontier {
			for dep := range g.dependents[f] {
				if !visited[dep] {
					visited[dep] = true
					next = append(next, dep)
				}
			}
			for dep := range g.referencedBy[f] {
				if !visited[dep] {
					visited[dep] = true
					next = append(next, dep)
				}
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited))
	for f := range visited {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
