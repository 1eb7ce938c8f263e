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

package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestDocument(t *testing.T) {
	doc := NewTestDocument(t)
	require.NotNil(t, doc)
	assert.Empty(t, QueryFunctions(t, doc))
}

func TestInsertTestFunction(t *testing.T) {
	doc := NewTestDocument(t)

	InsertTestFunction(t, doc, "func_123", "HandleAuth", "auth.go", 10, 25)

	funcs := QueryFunctions(t, doc)
	require.Len(t, funcs, 1)
	assert.Equal(t, "func_123", funcs[0].ID)
	assert.Equal(t, "HandleAuth", funcs[0].Name)
}

func TestInsertTestFile(t *testing.T) {
	doc := NewTestDocument(t)

	InsertTestFile(t, doc, "file_123", "auth.go", "go")

	files := QueryFiles(t, doc)
	require.Len(t, files, 1)
	assert.Equal(t, "file_123", files[0].ID)
	assert.Equal(t, "auth.go", files[0].FilePath)
}

func TestInsertTestType(t *testing.T) {
	doc := NewTestDocument(t)

	InsertTestType(t, doc, "type_123", "UserService", "Class", "user.go", 10, 50)

	types := QueryTypes(t, doc, "Class")
	require.Len(t, types, 1)
	assert.Equal(t, "type_123", types[0].ID)
	assert.Equal(t, "UserService", types[0].Name)
}

func TestMultipleInserts(t *testing.T) {
	doc := NewTestDocument(t)

	InsertTestFunction(t, doc, "func1", "Main", "main.go", 5, 10)
	InsertTestFunction(t, doc, "func2", "Helper", "util.go", 15, 20)
	InsertTestFunction(t, doc, "func3", "Process", "processor.go", 25, 35)

	require.Len(t, QueryFunctions(t, doc), 3)
}

func TestEdgeInsertion(t *testing.T) {
	doc := NewTestDocument(t)

	InsertTestFile(t, doc, "file1", "main.go", "go")
	InsertTestFunction(t, doc, "func1", "main", "main.go", 1, 10)
	InsertTestFunction(t, doc, "func2", "helper", "main.go", 12, 15)

	InsertTestDefines(t, doc, "def1", "file1", "func1")
	InsertTestCalls(t, doc, "call1", "func1", "func2")

	require.Len(t, doc.EdgesFrom("func1"), 1)
	require.Len(t, doc.EdgesTo("func1"), 1)
}

func TestDocumentIsolation(t *testing.T) {
	doc1 := NewTestDocument(t)
	InsertTestFunction(t, doc1, "func1", "Test1", "file1.go", 1, 10)

	doc2 := NewTestDocument(t)
	assert.Empty(t, QueryFunctions(t, doc2), "second document should be isolated from first")

	assert.Len(t, QueryFunctions(t, doc1), 1)
}
