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

package ssa

// LatticeLevel is one of the three levels of the sparse conditional
// constant-propagation lattice.
type LatticeLevel int

const (
	LevelTop        LatticeLevel = iota // unknown, not yet visited
	LevelConstant                       // a single known value
	LevelBottom                         // over-defined, no single value
)

// TrackedKind classifies what kind of value a TrackedValue carries,
// supplementing the bare constant lattice with a value-tracking
// distinction (literal vs. named constant vs. plain variable vs.
// unknown) rather than a bare two-valued lattice.
type TrackedKind string

const (
	TrackedLiteral  TrackedKind = "literal"
	TrackedConstant TrackedKind = "constant"
	TrackedVariable TrackedKind = "variable"
	TrackedUnknown  TrackedKind = "unknown"
)

// TrackedValue is one lattice cell: a variable's best-known value at a
// point in the SSA, with enough provenance to explain *why* it is
// unknown (Kind == TrackedUnknown) versus merely not-yet-visited.
type TrackedValue struct {
	Level LatticeLevel
	Kind  TrackedKind
	Value string // literal text when Level == LevelConstant
}

// widenThreshold bounds the number of lattice updates a single SSA
// variable may receive before the solver forces it to LevelBottom,
// guaranteeing termination on all programs including pathological
// loops with many reassignments.
const widenThreshold = 10

// ConstSolver runs the sparse conditional constant-propagation pass over
// one function's renamed SSA. A full SCCP implementation pairs an
// SSA-edge worklist with a CFG-edge reachability worklist; this
// single-function scope only needs the SSA worklist in practice since
// CFG reachability here is already fixed by the CFG builder.
type ConstSolver struct {
	values  map[string]TrackedValue // SSAVariable.String() -> value
	updates map[string]int
}

// NewConstSolver returns a solver with every tracked variable starting
// at LevelTop.
func NewConstSolver() *ConstSolver {
	return &ConstSolver{values: make(map[string]TrackedValue), updates: make(map[string]int)}
}

// Get returns the current tracked value for v, defaulting to LevelTop.
func (s *ConstSolver) Get(v SSAVariable) TrackedValue {
	if tv, ok := s.values[v.String()]; ok {
		return tv
	}
	return TrackedValue{Level: LevelTop, Kind: TrackedUnknown}
}

// Update merges a newly observed value for v into the lattice. A literal
// assignment moves Top->Constant; any value conflicting with an existing
// Constant moves to Bottom; once a variable crosses widenThreshold
// updates it is forced to Bottom regardless of whether the new value
// agrees, which is the termination guarantee, not an optimization.
func (s *ConstSolver) Update(v SSAVariable, observed TrackedValue) (changed bool) {
	key := v.String()
	s.updates[key]++
	if s.updates[key] > widenThreshold {
		if s.values[key].Level != LevelBottom {
			s.values[key] = TrackedValue{Level: LevelBottom, Kind: TrackedUnknown}
			return true
		}
		return false
	}

	cur, ok := s.values[key]
	if !ok || cur.Level == LevelTop {
		s.values[key] = observed
		return true
	}
	if cur.Level == LevelBottom {
		return false
	}
	if cur.Level == LevelConstant && observed.Level == LevelConstant && cur.Value == observed.Value {
		return false
	}
	s.values[key] = TrackedValue{Level: LevelBottom, Kind: TrackedUnknown}
	return true
}

// Widened reports whether v was forced to LevelBottom purely by hitting
// widenThreshold, for diagnostics: any variable updated more than 10
// times during propagation is widened to bottom rather than tracked
// indefinitely.
func (s *ConstSolver) Widened(v SSAVariable) bool {
	return s.updates[v.String()] > widenThreshold
}
