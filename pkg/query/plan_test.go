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

package query

import "testing"

func TestPlanHashDeterministicAcrossConstruction(t *testing.T) {
	p1, err := New(KindTaintProof, []Pattern{{NodeKind: "Function", FQN: "a"}, {NodeKind: "Function", FQN: "b"}}, DefaultBudget())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p1.FileScope = []string{"b.py", "a.py"}

	p2, err := New(KindTaintProof, []Pattern{{NodeKind: "Function", FQN: "b"}, {NodeKind: "Function", FQN: "a"}}, DefaultBudget())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p2.FileScope = []string{"a.py", "b.py"}

	if p1.Hash() != p2.Hash() {
		t.Fatalf("expected Hash to be order-independent, got %s vs %s", p1.Hash(), p2.Hash())
	}
}

func TestPlanHashDiffersOnDifferentPattern(t *testing.T) {
	p1, _ := New(KindSlice, []Pattern{{FQN: "a"}}, LightBudget())
	p2, _ := New(KindSlice, []Pattern{{FQN: "c"}}, LightBudget())
	if p1.Hash() == p2.Hash() {
		t.Fatal("expected different patterns to hash differently")
	}
}

func TestNewRejectsInvalidKind(t *testing.T) {
	if _, err := New(Kind("bogus"), nil, Budget{}); err == nil {
		t.Fatal("expected an error for an unrecognized plan kind")
	}
}

func TestNewDefaultsEmptyBudget(t *testing.T) {
	p, err := New(KindPrimitive, nil, Budget{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Budget != DefaultBudget() {
		t.Fatalf("expected an empty Budget to default to DefaultBudget, got %+v", p.Budget)
	}
}

func TestBudgetPresetsAreDistinct(t *testing.T) {
	if LightBudget() == DefaultBudget() || DefaultBudget() == HeavyBudget() {
		t.Fatal("expected the three budget presets to be distinct")
	}
}
