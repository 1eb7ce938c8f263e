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

// Tier selects how much of the pipeline runs over the affected set.
type Tier string

const (
	// TierBase builds structural IR and cross-file resolution only. No
	// CFG, no SSA, no DFG: CFGs are built only by the dataflow stage,
	// which runs at EXTENDED and FULL.
	TierBase Tier = "BASE"
	// TierExtended adds SSA/DFG for functions under FuncLineThreshold.
	TierExtended Tier = "EXTENDED"
	// TierFull adds SSA/DFG for every function regardless of size. No
	// expression-level IR is built.
	TierFull Tier = "FULL"
)

// FuncLineThreshold is the line-count cutoff EXTENDED uses to decide
// whether a function is cheap enough to convert to SSA without FULL
// being requested.
const FuncLineThreshold = 400

// ChangeKind classifies how a file differs from the prior snapshot.
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "Added"
	ChangeModified  ChangeKind = "Modified"
	ChangeDeleted   ChangeKind = "Deleted"
	ChangeUnchanged ChangeKind = "Unchanged"
)

// FileChange is one file's classification against the prior build.
type FileChange struct {
	Path string
	Kind ChangeKind
	Hash string // content hash after this change; "" for ChangeDeleted
}

// StageName identifies one step of the staged pipeline.
type StageName string

const (
	StageCache      StageName = "Cache"
	StageStructural StageName = "StructuralIR"
	StageLspTypes   StageName = "LspTypes"
	StageCrossFile  StageName = "CrossFile"
	StageProvenance StageName = "Provenance"
)

// DefaultStageOrder is the fixed stage sequence a Pipeline runs.
// Skipping a stage is legal; later stages must degrade gracefully when
// a prerequisite did not run.
var DefaultStageOrder = []StageName{
	StageCache,
	StageStructural,
	StageLspTypes,
	StageCrossFile,
	StageProvenance,
}
