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

// Package testing provides IR-graph fixture helpers for CIE tests.
//
// Build an ir.Document directly rather than running the full parser/CFG/
// SSA pipeline when a test only needs a handful of nodes and edges wired
// up a specific way:
//
//	func TestMyFeature(t *testing.T) {
//	    doc := testing.NewTestDocument(t)
//	    fn := testing.InsertTestFunction(t, doc, "func1", "Handle", "h.go", 10, 20)
//	    testing.InsertTestCalls(t, doc, "call1", fn.ID, "func2")
//
//	    funcs := testing.QueryFunctions(t, doc)
//	    require.Len(t, funcs, 1)
//	}
//
// # Seeding Test Data
//
//   - InsertTestFunction: Add a Function node
//   - InsertTestFile: Add a File node
//   - InsertTestType: Add a node of an arbitrary type kind (Class, Interface, ...)
//   - InsertTestDefines: Add a Defines edge
//   - InsertTestCalls: Add a Calls edge
//   - InsertTestImport: Add an Import node plus its Imports edge
//
// # Querying Test Data
//
//   - QueryFunctions, QueryFiles, QueryTypes
package testing
