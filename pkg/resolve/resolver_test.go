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

func buildTestDoc(t *testing.T) *ir.Document {
	t.Helper()
	doc := ir.NewDocument()

	doc.AddNode(ir.Node{ID: "file:handlers", Kind: ir.KindFile, FilePath: "internal/handlers/user.go", Language: "go"})
	doc.AddNode(ir.Node{ID: "file:routes", Kind: ir.KindFile, FilePath: "internal/routes/auth.go", Language: "go"})
	doc.AddNode(ir.Node{ID: "mod:handlers", Kind: ir.KindModule, FilePath: "internal/handlers", Name: "handlers", Language: "go"})
	doc.AddNode(ir.Node{ID: "mod:routes", Kind: ir.KindModule, FilePath: "internal/routes", Name: "routes", Language: "go"})

	doc.AddNode(ir.Node{ID: "fn:HandleUser", Kind: ir.KindFunction, Name: "HandleUser", FilePath: "internal/handlers/user.go", Language: "go"})
	doc.AddNode(ir.Node{ID: "fn:privateFunc", Kind: ir.KindFunction, Name: "privateFunc", FilePath: "internal/handlers/user.go", Language: "go"})
	doc.AddNode(ir.Node{ID: "fn:RegisterAuthRoutes", Kind: ir.KindFunction, Name: "RegisterAuthRoutes", FilePath: "internal/routes/auth.go", Language: "go"})

	return doc
}

func addImport(doc *ir.Document, filePath, fqn, alias string) {
	n := ir.Node{ID: "imp:" + filePath + ":" + fqn, Kind: ir.KindImport, FQN: fqn, Name: fqn, FilePath: filePath, Language: "go"}
	if alias != "" {
		n = n.WithAttr("alias", alias)
	}
	doc.AddNode(n)
}

func TestCallResolverBuildIndex(t *testing.T) {
	doc := buildTestDoc(t)
	addImport(doc, "internal/routes/auth.go", "project/internal/handlers", "")

	r := NewCallResolver()
	r.BuildIndex(doc)

	pkgs, funcs, imps := r.Stats()
	if pkgs != 2 {
		t.Errorf("expected 2 packages, got %d", pkgs)
	}
	if funcs != 3 {
		t.Errorf("expected 3 functions indexed, got %d", funcs)
	}
	if imps != 1 {
		t.Errorf("expected 1 import indexed, got %d", imps)
	}
}

func TestCallResolverResolveQualifiedCall(t *testing.T) {
	doc := buildTestDoc(t)
	addImport(doc, "internal/routes/auth.go", "project/internal/handlers", "")

	r := NewCallResolver()
	r.BuildIndex(doc)

	calls := []UnresolvedCall{
		{CallerID: "fn:RegisterAuthRoutes", CalleeName: "handlers.HandleUser", FilePath: "internal/routes/auth.go"},
	}
	resolved := r.ResolveCalls(calls)
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved call, got %d", len(resolved))
	}
	if resolved[0].CalleeID != "fn:HandleUser" {
		t.Errorf("expected callee fn:HandleUser, got %s", resolved[0].CalleeID)
	}
}

func TestCallResolverUnexportedNotResolved(t *testing.T) {
	doc := buildTestDoc(t)
	addImport(doc, "internal/routes/auth.go", "project/internal/handlers", "")

	r := NewCallResolver()
	r.BuildIndex(doc)

	calls := []UnresolvedCall{
		{CallerID: "fn:RegisterAuthRoutes", CalleeName: "handlers.privateFunc", FilePath: "internal/routes/auth.go"},
	}
	resolved := r.ResolveCalls(calls)
	if len(resolved) != 0 {
		t.Errorf("expected 0 resolved calls for an unexported callee, got %d", len(resolved))
	}
}

func TestCallResolverAliasedImport(t *testing.T) {
	doc := buildTestDoc(t)
	addImport(doc, "internal/routes/auth.go", "project/internal/handlers", "h")

	r := NewCallResolver()
	r.BuildIndex(doc)

	calls := []UnresolvedCall{
		{CallerID: "fn:RegisterAuthRoutes", CalleeName: "h.HandleUser", FilePath: "internal/routes/auth.go"},
	}
	resolved := r.ResolveCalls(calls)
	if len(resolved) != 1 || resolved[0].CalleeID != "fn:HandleUser" {
		t.Fatalf("expected the aliased call to resolve to fn:HandleUser, got %+v", resolved)
	}
}

func TestCallResolverDeduplicatesRepeatedCalls(t *testing.T) {
	doc := buildTestDoc(t)
	addImport(doc, "internal/routes/auth.go", "project/internal/handlers", "")

	r := NewCallResolver()
	r.BuildIndex(doc)

	calls := []UnresolvedCall{
		{CallerID: "fn:RegisterAuthRoutes", CalleeName: "handlers.HandleUser", FilePath: "internal/routes/auth.go"},
		{CallerID: "fn:RegisterAuthRoutes", CalleeName: "handlers.HandleUser", FilePath: "internal/routes/auth.go"},
	}
	resolved := r.ResolveCalls(calls)
	if len(resolved) != 1 {
		t.Errorf("expected 1 deduplicated call, got %d", len(resolved))
	}
}

func TestCallResolverSamePackageCall(t *testing.T) {
	doc := buildTestDoc(t)

	r := NewCallResolver()
	r.BuildIndex(doc)

	calls := []UnresolvedCall{
		{CallerID: "fn:HandleUser", CalleeName: "privateFunc", FilePath: "internal/handlers/user.go"},
	}
	resolved := r.ResolveCalls(calls)
	if len(resolved) != 1 || resolved[0].CalleeID != "fn:privateFunc" {
		t.Fatalf("expected the same-package call to resolve to fn:privateFunc, got %+v", resolved)
	}
}
