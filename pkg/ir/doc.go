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

// Package ir defines the canonical node/edge intermediate representation
// shared by every layer of the analysis pipeline: the structural generator,
// the CFG builder, the SSA/DFG pass, the cross-file resolver, and TRCR.
//
// A Document is the per-snapshot graph: an immutable set of Nodes and Edges
// once a build completes, safely read by many concurrent queries. Identity
// (content-addressed IDs) is computed by identity.go in this package so that
// node and edge IDs survive reformatting of the underlying source.
package ir
