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
	"testing"
	"time"
)

func TestChangeTrackerObserveAddedThenUnchanged(t *testing.T) {
	tr := NewChangeTracker()
	t0 := time.Unix(1000, 0)

	change := tr.Observe("a.go", t0, []byte("package a"))
	if change.Kind != ChangeAdded {
		t.Fatalf("first observe: got %s, want Added", change.Kind)
	}

	change = tr.Observe("a.go", t0, []byte("package a"))
	if change.Kind != ChangeUnchanged {
		t.Fatalf("second observe, same content: got %s, want Unchanged", change.Kind)
	}
}

func TestChangeTrackerMTimeIsOnlyAPreFilter(t *testing.T) {
	tr := NewChangeTracker()
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)

	tr.Observe("a.go", t0, []byte("package a"))

	// Content unchanged but mtime bumped (e.g. a touch): the content is
	// rehashed and the file classifies as unchanged, never as modified
	// from the mtime bump alone.
	change := tr.Observe("a.go", t1, []byte("package a"))
	if change.Kind != ChangeUnchanged {
		t.Fatalf("touched-but-unmodified file: got %s, want Unchanged", change.Kind)
	}

	// Equal mtime with no content supplied takes the pre-filter fast
	// path and trusts the prior hash without rehashing.
	change = tr.Observe("a.go", t1, nil)
	if change.Kind != ChangeUnchanged {
		t.Fatalf("equal-mtime pre-filter: got %s, want Unchanged", change.Kind)
	}
}

func TestChangeTrackerObserveModified(t *testing.T) {
	tr := NewChangeTracker()
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)

	tr.Observe("a.go", t0, []byte("package a"))
	change := tr.Observe("a.go", t1, []byte("package a\n\nfunc F() {}"))
	if change.Kind != ChangeModified {
		t.Fatalf("got %s, want Modified", change.Kind)
	}
}

func TestChangeTrackerRemove(t *testing.T) {
	tr := NewChangeTracker()
	tr.Observe("a.go", time.Unix(1000, 0), []byte("package a"))

	change := tr.Remove("a.go")
	if change.Kind != ChangeDeleted {
		t.Fatalf("got %s, want Deleted", change.Kind)
	}
	if _, ok := tr.Snapshot()["a.go"]; ok {
		t.Fatal("removed file still present in snapshot")
	}
}

func TestChangeTrackerReconcile(t *testing.T) {
	tr := NewChangeTracker()
	tr.Observe("a.go", time.Unix(1000, 0), []byte("package a"))
	tr.Observe("b.go", time.Unix(1000, 0), []byte("package b"))

	current := map[string][]byte{
		"a.go": []byte("package a"), // unchanged
		"c.go": []byte("package c"), // added
	}
	changes := tr.Reconcile(current, func(string) time.Time { return time.Unix(1000, 0) })

	byPath := make(map[string]ChangeKind)
	for _, c := range changes {
		byPath[c.Path] = c.Kind
	}

	if byPath["a.go"] != ChangeUnchanged {
		t.Errorf("a.go: got %s, want Unchanged", byPath["a.go"])
	}
	if byPath["b.go"] != ChangeDeleted {
		t.Errorf("b.go: got %s, want Deleted (absent from current)", byPath["b.go"])
	}
	if byPath["c.go"] != ChangeAdded {
		t.Errorf("c.go: got %s, want Added", byPath["c.go"])
	}

	// Sorted by path.
	for i := 1; i < len(changes); i++ {
		if changes[i-1].Path > changes[i].Path {
			t.Fatalf("Reconcile result not sorted by path: %v", changes)
		}
	}
}

func TestChangeTrackerLoadRehydratesFromPersistedRecords(t *testing.T) {
	records := map[string]FileRecord{
		"a.go": {Hash: hashContent([]byte("package a")), MTime: time.Unix(1000, 0)},
	}
	tr := Load(records)

	change := tr.Observe("a.go", time.Unix(1000, 0), []byte("package a"))
	if change.Kind != ChangeUnchanged {
		t.Fatalf("rehydrated tracker: got %s, want Unchanged", change.Kind)
	}
}
