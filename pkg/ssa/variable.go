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

import (
	"fmt"

	"github.com/opencie/cie/pkg/ir"
)

// VarKind is one of the four DFG variable kinds.
type VarKind string

const (
	VarLocal  VarKind = "local"
	VarParam  VarKind = "param"
	VarField  VarKind = "field"
	VarGlobal VarKind = "global"
)

// VariableEntity is the DFG-level identity of a variable, stable across
// all of its SSA versions. Fields and globals are widened to one entity
// per function context rather than tracked per access site.
type VariableEntity struct {
	ID          string
	FunctionFQN string
	Name        string
	Kind        VarKind
}

func entityID(repo, functionFQN, name string) string {
	key := ir.NodeIdentityKey{Repo: repo, Kind: ir.KindVariable, FQN: functionFQN + "." + name, Language: "ssa"}
	return ir.NodeID(key)
}

// SSAVariable is one versioned occurrence of a variable at a block.
type SSAVariable struct {
	Name    string
	Version int
	BlockID string
}

func (v SSAVariable) String() string {
	return fmt.Sprintf("%s_%d", v.Name, v.Version)
}

// PhiNode merges versions of one variable arriving from each predecessor
// of BlockID. Invariant: every source's Name equals Target.Name.
type PhiNode struct {
	Target  SSAVariable
	Sources map[string]SSAVariable // predecessor block id -> source version
	BlockID string
}

// NewPhiNode returns an empty phi for target at blockID.
func NewPhiNode(target SSAVariable, blockID string) *PhiNode {
	return &PhiNode{Target: target, Sources: make(map[string]SSAVariable), BlockID: blockID}
}

// AddSource records predecessor predBlockID's incoming version. Returns an
// error if src's name doesn't match the phi's target name.
func (p *PhiNode) AddSource(predBlockID string, src SSAVariable) error {
	if src.Name != p.Target.Name {
		return fmt.Errorf("ssa: phi target %q cannot take source %q from block %s", p.Target.Name, src.Name, predBlockID)
	}
	p.Sources[predBlockID] = src
	return nil
}

func (p *PhiNode) String() string {
	s := fmt.Sprintf("%s = φ(", p.Target.String())
	first := true
	for block, src := range p.Sources {
		if !first {
			s += ", "
		}
		first = false
		s += fmt.Sprintf("%s from %s", src.String(), block)
	}
	return s + ")"
}
