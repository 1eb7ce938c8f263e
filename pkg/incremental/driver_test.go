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

package incremental

import (
	"context"
	"testing"
	"time"

	"github.com/opencie/cie/pkg/ir/parser"
)

const fixtureA = `package greet

func Hello(name string) string {
	return "hello " + name
}
`

const fixtureB = `package greet

func Hello(name string) string {
	return "hi " + name
}
`

func zeroMTime(string) time.Time { return time.Time{} }

func TestDriverBuildBaseTierProducesStructuralNodes(t *testing.T) {
	d := NewDriver("test-repo", nil)
	sources := []Source{{Path: "greet.go", Content: []byte(fixtureA), Language: parser.LangGo}}

	result, err := d.Build(context.Background(), sources, TierBase, zeroMTime)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Changed) != 1 || result.Changed[0].Kind != ChangeAdded {
		t.Fatalf("expected one Added change, got %+v", result.Changed)
	}

	found := false
	for _, n := range d.Document().NodesByFile("greet.go") {
		if n.Name == "Hello" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a Hello function node after BASE-tier build")
	}
}

func TestDriverRebuildOnlyReprocessesChangedFile(t *testing.T) {
	d := NewDriver("test-repo", nil)
	ctx := context.Background()

	sources := []Source{
		{Path: "a.go", Content: []byte(fixtureA), Language: parser.LangGo},
	}
	if _, err := d.Build(ctx, sources, TierBase, zeroMTime); err != nil {
		t.Fatalf("first build: %v", err)
	}

	// Second build, same content: the file is unchanged, so the
	// structural stage has nothing in its affected set.
	result, err := d.Build(ctx, sources, TierBase, zeroMTime)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if len(result.AffectedSet) != 0 {
		t.Fatalf("expected no affected files on an unchanged rebuild, got %v", result.AffectedSet)
	}

	// Third build, modified content: a.go must reappear in the affected
	// set and its function node must reflect the new body.
	sources[0].Content = []byte(fixtureB)
	result, err = d.Build(ctx, sources, TierBase, zeroMTime)
	if err != nil {
		t.Fatalf("third build: %v", err)
	}
	if len(result.AffectedSet) != 1 || result.AffectedSet[0] != "a.go" {
		t.Fatalf("expected a.go alone in affected set after modification, got %v", result.AffectedSet)
	}
}

func TestDriverBuildIsDeterministicAcrossFreshDrivers(t *testing.T) {
	sources := []Source{{Path: "greet.go", Content: []byte(fixtureA), Language: parser.LangGo}}

	d1 := NewDriver("test-repo", nil)
	r1, err := d1.Build(context.Background(), sources, TierBase, zeroMTime)
	if err != nil {
		t.Fatalf("first driver build: %v", err)
	}

	d2 := NewDriver("test-repo", nil)
	r2, err := d2.Build(context.Background(), sources, TierBase, zeroMTime)
	if err != nil {
		t.Fatalf("second driver build: %v", err)
	}

	if !r1.Provenance.Equal(r2.Provenance) {
		t.Fatalf("identical inputs produced different provenance: %+v vs %+v", r1.Provenance, r2.Provenance)
	}

	n1 := d1.Document().AllNodes()
	n2 := d2.Document().AllNodes()
	if len(n1) != len(n2) {
		t.Fatalf("node count differs across identical builds: %d vs %d", len(n1), len(n2))
	}
	for i := range n1 {
		if n1[i].ID != n2[i].ID {
			t.Fatalf("node id at position %d differs: %s vs %s", i, n1[i].ID, n2[i].ID)
		}
	}
}

func TestDriverDeletedFileRemovedFromDocument(t *testing.T) {
	d := NewDriver("test-repo", nil)
	ctx := context.Background()

	sources := []Source{{Path: "a.go", Content: []byte(fixtureA), Language: parser.LangGo}}
	if _, err := d.Build(ctx, sources, TierBase, zeroMTime); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if len(d.Document().NodesByFile("a.go")) == 0 {
		t.Fatal("expected nodes for a.go after first build")
	}

	result, err := d.Build(ctx, nil, TierBase, zeroMTime)
	if err != nil {
		t.Fatalf("second build (file deleted): %v", err)
	}
	if len(result.Changed) != 1 || result.Changed[0].Kind != ChangeDeleted {
		t.Fatalf("expected one Deleted change, got %+v", result.Changed)
	}
	if len(d.Document().NodesByFile("a.go")) != 0 {
		t.Fatal("expected a.go's nodes to be gone after it was deleted")
	}
}
