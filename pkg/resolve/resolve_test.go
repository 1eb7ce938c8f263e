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

package resolve

import (
	"testing"

	"github.com/opencie/cie/pkg/ir"
)

func TestResolveCrossFileInheritance(t *testing.T) {
	doc := ir.NewDocument()

	base := ir.Node{ID: "class:Base", Kind: ir.KindClass, Name: "Base", FilePath: "pkg/base/base.go"}
	doc.AddNode(base)

	derived := ir.Node{ID: "class:Derived", Kind: ir.KindClass, Name: "Derived", FilePath: "pkg/derived/derived.go"}
	doc.AddNode(derived)

	// An embedded field named "Base" on Derived, declared in a different
	// file than the Base class itself.
	field := ir.Node{ID: "field:Derived.Base", Kind: ir.KindField, Name: "Base", FilePath: "pkg/derived/derived.go"}
	doc.AddNode(field)
	doc.AddEdge(ir.Edge{ID: "e1", Kind: ir.EdgeContains, SourceID: derived.ID, TargetID: field.ID})

	r := New("test-repo")
	r.resolveCrossFileInheritance(doc)

	found := false
	for _, e := range doc.EdgesFrom(derived.ID) {
		if e.Kind == ir.EdgeInherits && e.TargetID == base.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an INHERITS edge from Derived to Base across files")
	}
}

func TestResolveCrossFileInheritanceSkipsSameFile(t *testing.T) {
	doc := ir.NewDocument()

	base := ir.Node{ID: "class:Base", Kind: ir.KindClass, Name: "Base", FilePath: "pkg/one/one.go"}
	doc.AddNode(base)
	derived := ir.Node{ID: "class:Derived", Kind: ir.KindClass, Name: "Derived", FilePath: "pkg/one/one.go"}
	doc.AddNode(derived)
	field := ir.Node{ID: "field:Derived.Base", Kind: ir.KindField, Name: "Base", FilePath: "pkg/one/one.go"}
	doc.AddNode(field)
	doc.AddEdge(ir.Edge{ID: "e1", Kind: ir.EdgeContains, SourceID: derived.ID, TargetID: field.ID})

	r := New("test-repo")
	r.resolveCrossFileInheritance(doc)

	for _, e := range doc.EdgesFrom(derived.ID) {
		if e.Kind == ir.EdgeInherits {
			t.Fatalf("same-file embedding should be left to the structural generator, found an extra INHERITS edge")
		}
	}
}

func TestResolveImplements(t *testing.T) {
	doc := ir.NewDocument()

	iface := ir.Node{ID: "iface:Reader", Kind: ir.KindInterface, Name: "Reader", FilePath: "pkg/io/io.go"}
	iface = iface.WithAttr("methods", "Read")
	doc.AddNode(iface)

	class := ir.Node{ID: "class:File", Kind: ir.KindClass, Name: "File", FilePath: "pkg/os/file.go"}
	doc.AddNode(class)

	method := ir.Node{ID: "method:File.Read", Kind: ir.KindMethod, Name: "os.File.Read", FilePath: "pkg/os/file.go"}
	doc.AddNode(method)
	doc.AddEdge(ir.Edge{ID: "e1", Kind: ir.EdgeContains, SourceID: class.ID, TargetID: method.ID})

	r := New("test-repo")
	r.resolveImplements(doc)

	found := false
	for _, e := range doc.EdgesFrom(class.ID) {
		if e.Kind == ir.EdgeImplements && e.TargetID == iface.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an IMPLEMENTS edge from File to Reader")
	}
}

func TestResolveImplementsRequiresFullCoverage(t *testing.T) {
	doc := ir.NewDocument()

	iface := ir.Node{ID: "iface:ReadWriter", Kind: ir.KindInterface, Name: "ReadWriter", FilePath: "pkg/io/io.go"}
	iface = iface.WithAttr("methods", "Read,Write")
	doc.AddNode(iface)

	class := ir.Node{ID: "class:File", Kind: ir.KindClass, Name: "File", FilePath: "pkg/os/file.go"}
	doc.AddNode(class)
	method := ir.Node{ID: "method:File.Read", Kind: ir.KindMethod, Name: "os.File.Read", FilePath: "pkg/os/file.go"}
	doc.AddNode(method)
	doc.AddEdge(ir.Edge{ID: "e1", Kind: ir.EdgeContains, SourceID: class.ID, TargetID: method.ID})

	r := New("test-repo")
	r.resolveImplements(doc)

	for _, e := range doc.EdgesFrom(class.ID) {
		if e.Kind == ir.EdgeImplements {
			t.Fatalf("File only implements Read, not Write; should not satisfy ReadWriter")
		}
	}
}
