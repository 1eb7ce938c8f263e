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

package structural

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/ir/parser"
)

// generatePython extracts file, module, every function_definition and
// class_definition node at any depth (methods and nested classes
// included), and import statements. It does not attempt decorator or
// comprehension-scope extraction; those are
// left for a future pass, same as the Go path's func-literal-only lambda
// handling leaves closures over loop variables unmodeled.
func (g *Generator) generatePython(doc *ir.Document, tree *parser.Tree) error {
	file := g.fileNode(tree)
	doc.AddNode(file)

	modFQN := normalizeModuleFQN(tree.FilePath)
	module := g.moduleNode(tree, modFQN, modFQN)
	doc.AddNode(module)
	g.containsEdge(doc, module.ID, file.ID, 0)

	for _, imp := range tree.NodesOfType("import_statement") {
		g.pythonImportNode(doc, tree, file, imp)
	}
	for _, imp := range tree.NodesOfType("import_from_statement") {
		g.pythonImportNode(doc, tree, file, imp)
	}

	classByName := make(map[string]ir.Node)
	for _, cls := range tree.NodesOfType("class_definition") {
		n := g.pySimpleNode(tree, cls, ir.KindClass)
		if n == nil {
			continue
		}
		doc.AddNode(*n)
		g.containsEdge(doc, file.ID, n.ID, 0)
		g.definesEdge(doc, file.ID, n.ID, 0)
		classByName[n.Name] = *n

		if super := cls.ChildByFieldName("superclasses"); super != nil {
			for i := 0; i < int(super.ChildCount()); i++ {
				arg := super.Child(i)
				if arg.Type() != "identifier" {
					continue
				}
				if parent, ok := classByName[tree.Text(arg)]; ok {
					g.inheritsEdge(doc, n.ID, parent.ID, 0)
				}
			}
		}
	}
	for _, fn := range tree.NodesOfType("function_definition") {
		n := g.pySimpleNode(tree, fn, ir.KindFunction)
		if n == nil {
			continue
		}
		doc.AddNode(*n)
		g.containsEdge(doc, file.ID, n.ID, 0)
		g.definesEdge(doc, file.ID, n.ID, 0)
	}
	return nil
}

func (g *Generator) pySimpleNode(tree *parser.Tree, n *sitter.Node, kind ir.NodeKind) *ir.Node {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := tree.Text(nameNode)
	fqn := fmt.Sprintf("%s.%s", strings.TrimSuffix(tree.FilePath, ".py"), name)
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo: g.Repo, Kind: kind, FilePath: tree.FilePath, FQN: fqn, Language: string(tree.Language),
	})
	return &ir.Node{
		ID: ir.NodeID(key), Kind: kind, FQN: fqn, Name: name,
		FilePath: tree.FilePath, Span: tree.Span(n), Language: string(tree.Language),
	}
}

func (g *Generator) pythonImportNode(doc *ir.Document, tree *parser.Tree, file ir.Node, stmt *sitter.Node) {
	text := tree.Text(stmt)
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo: g.Repo, Kind: ir.KindImport, FilePath: tree.FilePath, FQN: text, Language: string(tree.Language),
	})
	n := ir.Node{
		ID: ir.NodeID(key), Kind: ir.KindImport, FQN: text, Name: text,
		FilePath: tree.FilePath, Span: tree.Span(stmt), Language: string(tree.Language),
	}
	doc.AddNode(n)
	g.importsEdge(doc, file.ID, n.ID, 0)
}

// generateECMAScript covers both JavaScript and TypeScript with the same
// shallow pass: file/module, import statements, and function and class
// declarations at any depth. Arrow functions and exported const-function
// bindings are intentionally not extracted in this pass.
func (g *Generator) generateECMAScript(doc *ir.Document, tree *parser.Tree) error {
	file := g.fileNode(tree)
	doc.AddNode(file)

	modFQN := normalizeModuleFQN(tree.FilePath)
	module := g.moduleNode(tree, modFQN, modFQN)
	doc.AddNode(module)
	g.containsEdge(doc, module.ID, file.ID, 0)

	for _, imp := range tree.NodesOfType("import_statement") {
		g.pythonImportNode(doc, tree, file, imp) // identical shape: whole-statement text as FQN
	}

	classByName := make(map[string]ir.Node)
	for _, cls := range tree.NodesOfType("class_declaration") {
		n := g.pySimpleNode(tree, cls, ir.KindClass)
		if n == nil {
			continue
		}
		doc.AddNode(*n)
		g.containsEdge(doc, file.ID, n.ID, 0)
		g.definesEdge(doc, file.ID, n.ID, 0)
		classByName[n.Name] = *n

		if heritage := cls.ChildByFieldName("heritage"); heritage != nil {
			for i := 0; i < int(heritage.ChildCount()); i++ {
				id := heritage.Child(i)
				if id.Type() != "identifier" {
					continue
				}
				if parent, ok := classByName[tree.Text(id)]; ok {
					g.inheritsEdge(doc, n.ID, parent.ID, 0)
				}
			}
		}
	}
	for _, fn := range tree.NodesOfType("function_declaration") {
		n := g.pySimpleNode(tree, fn, ir.KindFunction)
		if n == nil {
			continue
		}
		doc.AddNode(*n)
		g.containsEdge(doc, file.ID, n.ID, 0)
		g.definesEdge(doc, file.ID, n.ID, 0)
	}
	return nil
}
