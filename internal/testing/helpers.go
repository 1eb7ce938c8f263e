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

package testing

import (
	"testing"

	"github.com/opencie/cie/pkg/ir"
)

// NewTestDocument returns an empty ir.Document for seeding in a test.
func NewTestDocument(t *testing.T) *ir.Document {
	t.Helper()
	return ir.NewDocument()
}

// InsertTestFunction adds a Function node to doc and returns it.
//
// Example:
//
//	doc := testing.NewTestDocument(t)
//	fn := testing.InsertTestFunction(t, doc, "func_123", "HandleAuth", "auth.go", 10, 25)
func InsertTestFunction(t *testing.T, doc *ir.Document, id, name, filePath string, startLine, endLine int) ir.Node {
	t.Helper()
	n := ir.Node{
		ID: id, Kind: ir.KindFunction, Name: name, FQN: name,
		FilePath: filePath,
		Span:     ir.Span{StartLine: startLine, EndLine: endLine},
	}
	doc.AddNode(n)
	return n
}

// InsertTestFile adds a File node to doc and returns it.
func InsertTestFile(t *testing.T, doc *ir.Document, id, path, language string) ir.Node {
	t.Helper()
	n := ir.Node{ID: id, Kind: ir.KindFile, Name: path, FilePath: path, Language: language}
	doc.AddNode(n)
	return n
}

// InsertTestType adds a Class/Interface/etc. node to doc, keyed by the
// NodeKind named by kind (e.g. "Class", "Interface").
func InsertTestType(t *testing.T, doc *ir.Document, id, name, kind, filePath string, startLine, endLine int) ir.Node {
	t.Helper()
	n := ir.Node{
		ID: id, Kind: ir.NodeKind(kind), Name: name, FQN: name,
		FilePath: filePath,
		Span:     ir.Span{StartLine: startLine, EndLine: endLine},
	}
	doc.AddNode(n)
	return n
}

// InsertTestDefines adds a Defines edge (e.g. file -> function) to doc.
func InsertTestDefines(t *testing.T, doc *ir.Document, id, sourceID, targetID string) ir.Edge {
	t.Helper()
	e := ir.Edge{ID: id, Kind: ir.EdgeDefines, SourceID: sourceID, TargetID: targetID}
	doc.AddEdge(e)
	return e
}

// InsertTestCalls adds a Calls edge (caller -> callee) to doc.
func InsertTestCalls(t *testing.T, doc *ir.Document, id, callerID, calleeID string) ir.Edge {
	t.Helper()
	e := ir.Edge{ID: id, Kind: ir.EdgeCalls, SourceID: callerID, TargetID: calleeID}
	doc.AddEdge(e)
	return e
}

// InsertTestImport adds an Import node plus the Imports edge linking it
// to the importing file.
func InsertTestImport(t *testing.T, doc *ir.Document, id, fileID, importPath string, startLine int) ir.Node {
	t.Helper()
	n := ir.Node{ID: id, Kind: ir.KindImport, Name: importPath, FQN: importPath, Span: ir.Span{StartLine: startLine}}
	doc.AddNode(n)
	doc.AddEdge(ir.Edge{ID: id + ":edge", Kind: ir.EdgeImports, SourceID: fileID, TargetID: id})
	return n
}

// QueryFunctions returns every Function node in doc.
func QueryFunctions(t *testing.T, doc *ir.Document) []*ir.Node {
	t.Helper()
	return doc.NodesByKind(ir.KindFunction)
}

// QueryFiles returns every File node in doc.
func QueryFiles(t *testing.T, doc *ir.Document) []*ir.Node {
	t.Helper()
	return doc.NodesByKind(ir.KindFile)
}

// QueryTypes returns every node of the given type kind (e.g. "Class").
// kind must name one of ir's valid NodeKind constants.
func QueryTypes(t *testing.T, doc *ir.Document, kind string) []*ir.Node {
	t.Helper()
	return doc.NodesByKind(ir.NodeKind(kind))
}
