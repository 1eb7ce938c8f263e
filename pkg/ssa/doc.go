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

// Package ssa converts a pkg/cfg Graph to static single assignment form:
// dominator tree, dominance frontier, phi-node placement, and preorder
// variable renaming, then materializes the data-flow graph (READS/WRITES
// edges between VariableEntity nodes) into an ir.Document. A sparse
// conditional constant lattice rides on top of the renamed SSA.
package ssa
