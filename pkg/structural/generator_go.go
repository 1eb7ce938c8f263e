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

// generateGo is the fully-extracted Go path: package, imports, top-level
// functions and methods, func literals, and struct/interface/type-alias
// declarations with best-effort embedded-field inheritance, following
// the same child-by-field-name traversal style used throughout this
// package's extraction helpers.
func (g *Generator) generateGo(doc *ir.Document, tree *parser.Tree) error {
	file := g.fileNode(tree)
	doc.AddNode(file)

	pkgName := goPackageName(tree)
	modFQN := normalizeModuleFQN(tree.FilePath)
	module := g.moduleNode(tree, modFQN, pkgName)
	doc.AddNode(module)
	g.containsEdge(doc, module.ID, file.ID, 0)

	classByName := make(map[string]ir.Node)

	for _, imp := range tree.NodesOfType("import_spec") {
		node, ok := g.goImportNode(doc, tree, file, imp)
		if ok {
			_ = node
		}
	}

	for _, spec := range tree.NodesOfType("type_spec") {
		n, kind := g.goTypeSpecNode(doc, tree, pkgName, spec)
		if n == nil {
			continue
		}
		doc.AddNode(*n)
		g.containsEdge(doc, file.ID, n.ID, 0)
		g.definesEdge(doc, file.ID, n.ID, 0)
		if kind == ir.KindClass {
			classByName[n.Name] = *n
		}
	}
	// Second pass: embedded-field inheritance, now that every struct in
	// this file has a node to link against.
	for _, spec := range tree.NodesOfType("type_spec") {
		g.goEmbeddedInherits(doc, tree, spec, classByName)
	}

	occ := map[string]int{}
	for _, fn := range tree.NodesOfType("function_declaration") {
		n := g.goFunctionNode(tree, pkgName, fn, ir.KindFunction)
		if n == nil {
			continue
		}
		doc.AddNode(*n)
		g.containsEdge(doc, file.ID, n.ID, occ["c"])
		g.definesEdge(doc, file.ID, n.ID, occ["d"])
		occ["c"]++
		occ["d"]++
	}
	for _, m := range tree.NodesOfType("method_declaration") {
		n := g.goMethodNode(tree, pkgName, m)
		if n == nil {
			continue
		}
		doc.AddNode(*n)
		receiver := goReceiverTypeName(m, tree.Content)
		if owner, ok := classByName[receiver]; ok {
			g.containsEdge(doc, owner.ID, n.ID, 0)
		} else {
			g.containsEdge(doc, file.ID, n.ID, occ["c"])
			occ["c"]++
		}
		g.definesEdge(doc, file.ID, n.ID, occ["d"])
		occ["d"]++
	}
	for i, lit := range tree.NodesOfType("func_literal") {
		n := g.goLambdaNode(tree, pkgName, lit, i+1)
		if n == nil {
			continue
		}
		doc.AddNode(*n)
		g.containsEdge(doc, file.ID, n.ID, occ["c"])
		occ["c"]++
	}

	return nil
}

func goPackageName(tree *parser.Tree) string {
	for _, clause := range tree.NodesOfType("package_clause") {
		for i := 0; i < int(clause.ChildCount()); i++ {
			child := clause.Child(i)
			if child.Type() == "package_identifier" {
				return tree.Text(child)
			}
		}
	}
	return ""
}

// normalizeModuleFQN uses the containing directory as the package's
// identity-scoping FQN. The cross-file resolver (C6) maps import paths
// to directories internally and does not rewrite this FQN.
func normalizeModuleFQN(filePath string) string {
	idx := strings.LastIndexByte(filePath, '/')
	if idx < 0 {
		return "."
	}
	return filePath[:idx]
}

func (g *Generator) goImportNode(doc *ir.Document, tree *parser.Tree, file ir.Node, spec *sitter.Node) (*ir.Node, bool) {
	pathNode := spec.ChildByFieldName("path")
	if pathNode == nil {
		return nil, false
	}
	path := strings.Trim(tree.Text(pathNode), `"`)
	alias := ""
	if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
		alias = tree.Text(nameNode)
	}
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo: g.Repo, Kind: ir.KindImport, FilePath: tree.FilePath, FQN: path, Language: string(tree.Language),
	})
	n := ir.Node{
		ID: ir.NodeID(key), Kind: ir.KindImport, FQN: path, Name: path,
		FilePath: tree.FilePath, Span: tree.Span(spec), Language: string(tree.Language),
	}
	if alias != "" {
		n = n.WithAttr("alias", alias)
	}
	doc.AddNode(n)
	g.importsEdge(doc, file.ID, n.ID, 0)
	return &n, true
}

func (g *Generator) goTypeSpecNode(doc *ir.Document, tree *parser.Tree, pkgName string, spec *sitter.Node) (*ir.Node, ir.NodeKind) {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		return nil, ""
	}
	name := tree.Text(nameNode)
	fqn := fmt.Sprintf("%s.%s", pkgName, name)

	typeNode := spec.ChildByFieldName("type")
	kind := ir.KindTypeAlias
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			kind = ir.KindClass
		case "interface_type":
			kind = ir.KindInterface
		}
	}

	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo: g.Repo, Kind: kind, FilePath: tree.FilePath, FQN: fqn, Language: string(tree.Language),
	})
	n := ir.Node{
		ID: ir.NodeID(key), Kind: kind, FQN: fqn, Name: name,
		FilePath: tree.FilePath, Span: tree.Span(spec), Language: string(tree.Language),
	}

	if kind == ir.KindClass && typeNode != nil {
		for _, field := range fieldDeclarations(typeNode) {
			fn := g.goFieldNode(tree, fqn, field)
			if fn != nil {
				doc.AddNode(*fn)
				g.containsEdge(doc, n.ID, fn.ID, 0)
				g.definesEdge(doc, n.ID, fn.ID, 0)
			}
		}
	}
	if kind == ir.KindInterface && typeNode != nil {
		if methods := interfaceMethodNames(tree, typeNode); len(methods) > 0 {
			n = n.WithAttr("methods", strings.Join(methods, ","))
		}
	}
	return &n, kind
}

func fieldDeclarations(structType *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	list := structType.ChildByFieldName("body")
	if list == nil {
		return out
	}
	for i := 0; i < int(list.ChildCount()); i++ {
		child := list.Child(i)
		if child.Type() == "field_declaration" {
			out = append(out, child)
		}
	}
	return out
}

// interfaceMethodNames returns the declared method names of an
// interface_type body, skipping embedded-interface entries (which have
// no "name" field). Used by the cross-file resolver to check whether a
// class's method set satisfies an interface's contract.
func interfaceMethodNames(tree *parser.Tree, interfaceType *sitter.Node) []string {
	body := interfaceType.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child.Type() != "method_spec" {
			continue
		}
		if nameNode := child.ChildByFieldName("name"); nameNode != nil {
			out = append(out, tree.Text(nameNode))
		}
	}
	return out
}

func (g *Generator) goFieldNode(tree *parser.Tree, ownerFQN string, field *sitter.Node) *ir.Node {
	nameNode := field.ChildByFieldName("name")
	var name string
	if nameNode != nil {
		name = tree.Text(nameNode)
	} else {
		// Embedded field: the type itself is the name.
		if t := field.ChildByFieldName("type"); t != nil {
			name = tree.Text(t)
		}
	}
	if name == "" {
		return nil
	}
	fqn := fmt.Sprintf("%s.%s", ownerFQN, name)
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo: g.Repo, Kind: ir.KindField, FilePath: tree.FilePath, FQN: fqn, Language: string(tree.Language),
	})
	n := ir.Node{
		ID: ir.NodeID(key), Kind: ir.KindField, FQN: fqn, Name: name,
		FilePath: tree.FilePath, Span: tree.Span(field), Language: string(tree.Language),
	}
	return &n
}

// goEmbeddedInherits adds a best-effort INHERITS edge for each embedded
// (anonymous) struct field whose type resolves to a Class in the same
// file. Cross-file embedding is left to the cross-file resolver (C6).
func (g *Generator) goEmbeddedInherits(doc *ir.Document, tree *parser.Tree, spec *sitter.Node, classByName map[string]ir.Node) {
	nameNode := spec.ChildByFieldName("name")
	typeNode := spec.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil || typeNode.Type() != "struct_type" {
		return
	}
	self, ok := classByName[tree.Text(nameNode)]
	if !ok {
		return
	}
	for _, field := range fieldDeclarations(typeNode) {
		if field.ChildByFieldName("name") != nil {
			continue // not embedded
		}
		t := field.ChildByFieldName("type")
		if t == nil {
			continue
		}
		embeddedName := strings.TrimPrefix(tree.Text(t), "*")
		if parent, ok := classByName[embeddedName]; ok && parent.ID != self.ID {
			g.inheritsEdge(doc, self.ID, parent.ID, 0)
		}
	}
}

func (g *Generator) goFunctionNode(tree *parser.Tree, pkgName string, fn *sitter.Node, kind ir.NodeKind) *ir.Node {
	nameNode := fn.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := tree.Text(nameNode)
	fqn := fmt.Sprintf("%s.%s", pkgName, name)
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo: g.Repo, Kind: kind, FilePath: tree.FilePath, FQN: fqn, Language: string(tree.Language),
	})
	return &ir.Node{
		ID: ir.NodeID(key), Kind: kind, FQN: fqn, Name: name,
		FilePath: tree.FilePath, Span: tree.Span(fn), Language: string(tree.Language),
	}
}

func (g *Generator) goMethodNode(tree *parser.Tree, pkgName string, m *sitter.Node) *ir.Node {
	nameNode := m.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := tree.Text(nameNode)
	receiver := goReceiverTypeName(m, tree.Content)
	var fqn string
	if receiver != "" {
		fqn = fmt.Sprintf("%s.%s.%s", pkgName, receiver, name)
	} else {
		fqn = fmt.Sprintf("%s.%s", pkgName, name)
	}
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo: g.Repo, Kind: ir.KindMethod, FilePath: tree.FilePath, FQN: fqn, Language: string(tree.Language),
	})
	return &ir.Node{
		ID: ir.NodeID(key), Kind: ir.KindMethod, FQN: fqn, Name: name,
		FilePath: tree.FilePath, Span: tree.Span(m), Language: string(tree.Language),
	}
}

func (g *Generator) goLambdaNode(tree *parser.Tree, pkgName string, lit *sitter.Node, ordinal int) *ir.Node {
	name := fmt.Sprintf("$anon_%d", ordinal)
	fqn := fmt.Sprintf("%s.%s", pkgName, name)
	key := g.salt.Assign(ir.NodeIdentityKey{
		Repo: g.Repo, Kind: ir.KindLambda, FilePath: tree.FilePath, FQN: fqn, Language: string(tree.Language),
	})
	return &ir.Node{
		ID: ir.NodeID(key), Kind: ir.KindLambda, FQN: fqn, Name: name,
		FilePath: tree.FilePath, Span: tree.Span(lit), Language: string(tree.Language),
	}
}

// goReceiverTypeName extracts the bare type name from a method's
// receiver, stripping any pointer star and generic type parameters.
func goReceiverTypeName(m *sitter.Node, content []byte) string {
	receiver := m.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	for i := 0; i < int(receiver.ChildCount()); i++ {
		param := receiver.Child(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		t := param.ChildByFieldName("type")
		if t == nil {
			continue
		}
		name := string(content[t.StartByte():t.EndByte()])
		name = strings.TrimPrefix(name, "*")
		if idx := strings.IndexByte(name, '['); idx >= 0 {
			name = name[:idx]
		}
		return name
	}
	return ""
}
