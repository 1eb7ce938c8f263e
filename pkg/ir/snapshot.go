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

package ir

import (
	"encoding/json"
	"fmt"
	"os"
)

// snapshotFile is the on-disk shape a Document serializes to: a flat
// node/edge list rather than the Document's indexed internal layout, so
// loading rebuilds the byKind/byFile indexes from scratch via AddNode/
// AddEdge the same way a live pipeline run would.
type snapshotFile struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// SaveSnapshot writes doc to path as JSON. Used by `cie index` to persist
// the structural/SSA IR a build produced so a later `cie query` or
// `cie scan` process can load it without re-parsing the repository.
func SaveSnapshot(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ir: create snapshot: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	snap := snapshotFile{Nodes: doc.Project(), Edges: doc.AllEdgesValue()}
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("ir: encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a Document previously written by SaveSnapshot.
func LoadSnapshot(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ir: open snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshotFile
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("ir: decode snapshot: %w", err)
	}

	doc := NewDocument()
	for _, n := range snap.Nodes {
		doc.AddNode(n)
	}
	for _, e := range snap.Edges {
		doc.AddEdge(e)
	}
	return doc, nil
}

// AllEdgesValue is AllEdges dereferenced to a value slice, for JSON
// encoding without exposing pointer identity in the snapshot.
func (d *Document) AllEdgesValue() []Edge {
	ptrs := d.AllEdges()
	out := make([]Edge, len(ptrs))
	for i, e := range ptrs {
		out[i] = *e
	}
	return out
}
