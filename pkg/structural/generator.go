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

package structural

import (
	"path/filepath"

	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/ir/parser"
)

// Generator walks one indexed Tree per call and emits structural IR into
// a shared Document. A Generator is scoped to one repository so that
// identity keys are salted consistently across the whole build.
type Generator struct {
	Repo string
	salt *ir.SaltResolver
}

// New returns a Generator for the given repository identifier.
func New(repo string) *Generator {
	return &Generator{Repo: repo, salt: ir.NewSaltResolver()}
}

// Generate walks tree and adds its structural IR to doc. Callers must
// invoke Generate for all files of a snapshot in a deterministic order
// (e.g. sorted by path) since salt assignment for colliding identities
// depends on call order.
func (g *Generator) Generate(doc *ir.Document, tree *parser.Tree) error {
	switch tree.Language {
	case parser.LangGo:
		return g.generateGo(doc, tree)
	case parser.LangPython:
		return g.generatePython(doc, tree)
	case parser.LangJavaScript, parser.LangTypeScript:
		return g.generateECMAScript(doc, tree)
	default:
		return &ir.UnhandledKindError{Site: "structural.Generate", Kind: string(tree.Language)}
	}
}

// fileNode builds (without adding) the File node for tree.
func (g *Generator) fileNode(tree *parser.Tree) ir.Node {
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo:     g.Repo,
		Kind:     ir.KindFile,
		FilePath: tree.FilePath,
		FQN:      tree.FilePath,
		Language: string(tree.Language),
	})
	return ir.Node{
		ID:       ir.NodeID(key),
		Kind:     ir.KindFile,
		FQN:      tree.FilePath,
		Name:     filepath.Base(tree.FilePath),
		FilePath: tree.FilePath,
		Span:     tree.Span(tree.Root()),
		Language: string(tree.Language),
	}
}

// moduleNode builds (without adding) the Module node for a package/
// namespace identified by fqn within tree's language.
func (g *Generator) moduleNode(tree *parser.Tree, fqn, name string) ir.Node {
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo:     g.Repo,
		Kind:     ir.KindModule,
		FilePath: filepath.Dir(tree.FilePath),
		FQN:      fqn,
		Language: string(tree.Language),
	})
	return ir.Node{
		ID:       ir.NodeID(key),
		Kind:     ir.KindModule,
		FQN:      fqn,
		Name:     name,
		FilePath: filepath.Dir(tree.FilePath),
		Language: string(tree.Language),
	}
}

func (g *Generator) containsEdge(doc *ir.Document, sourceID, targetID string, occurrence int) {
	doc.AddEdge(ir.Edge{
		ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeContains, SourceID: sourceID, TargetID: targetID, Occurrence: occurrence}),
		Kind:       ir.EdgeContains,
		SourceID:   sourceID,
		TargetID:   targetID,
		Occurrence: occurrence,
	})
}

func (g *Generator) definesEdge(doc *ir.Document, sourceID, targetID string, occurrence int) {
	doc.AddEdge(ir.Edge{
		ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeDefines, SourceID: sourceID, TargetID: targetID, Occurrence: occurrence}),
		Kind:       ir.EdgeDefines,
		SourceID:   sourceID,
		TargetID:   targetID,
		Occurrence: occurrence,
	})
}

func (g *Generator) importsEdge(doc *ir.Document, sourceID, targetID string, occurrence int) {
	doc.AddEdge(ir.Edge{
		ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeImports, SourceID: sourceID, TargetID: targetID, Occurrence: occurrence}),
		Kind:       ir.EdgeImports,
		SourceID:   sourceID,
		TargetID:   targetID,
		Occurrence: occurrence,
	})
}

func (g *Generator) inheritsEdge(doc *ir.Document, sourceID, targetID string, occurrence int) {
	doc.AddEdge(ir.Edge{
		ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeInherits, SourceID: sourceID, TargetID: targetID, Occurrence: occurrence}),
		Kind:       ir.EdgeInherits,
		SourceID:   sourceID,
		TargetID:   targetID,
		Occurrence: occurrence,
	})
}
