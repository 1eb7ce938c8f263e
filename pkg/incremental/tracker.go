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

package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// FileRecord is what ChangeTracker remembers about one file between
// builds. Callers that persist tracker state across process restarts
// (e.g. alongside a BuildProvenance record) serialize a
// map[string]FileRecord and pass it back to Load.
type FileRecord struct {
	Hash  string
	MTime time.Time
}

// ChangeTracker detects which files changed since the last snapshot. A
// content hash is the ground truth; the caller-supplied mtime is only a
// fast pre-filter to skip hashing files whose mtime is unchanged from
// the previous build. Two files can share an mtime granularity coarse
// enough to miss a real edit, so a changed mtime never skips hashing —
// only an unchanged one does, and even then the tracker still hashes on
// the very first observation of a path.
type ChangeTracker struct {
	files map[string]FileRecord
}

// NewChangeTracker returns a tracker with no prior observations. Restore
// a prior build's state with Load to get real pre-filtering.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{files: make(map[string]FileRecord)}
}

// Load seeds the tracker from a prior snapshot's recorded hashes/mtimes,
// e.g. ones persisted alongside a BuildProvenance record.
func Load(records map[string]FileRecord) *ChangeTracker {
	if records == nil {
		records = make(map[string]FileRecord)
	}
	return &ChangeTracker{files: records}
}

// hashContent returns the hex SHA-256 of content.
func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Observe classifies one currently-present file against the tracker's
// prior state and records its new hash/mtime for the next call. content
// may be nil when mtime is unchanged from the prior observation and the
// caller wants to skip a disk read; Observe then trusts the mtime
// pre-filter and reports ChangeUnchanged without hashing.
func (t *ChangeTracker) Observe(path string, mtime time.Time, content []byte) FileChange {
	prev, known := t.files[path]

	if known && content == nil && prev.MTime.Equal(mtime) {
		return FileChange{Path: path, Kind: ChangeUnchanged, Hash: prev.Hash}
	}

	hash := prev.Hash
	if content != nil {
		hash = hashContent(content)
	}

	switch {
	case !known:
		t.files[path] = FileRecord{Hash: hash, MTime: mtime}
		return FileChange{Path: path, Kind: ChangeAdded, Hash: hash}
	case hash == prev.Hash:
		t.files[path] = FileRecord{Hash: hash, MTime: mtime}
		return FileChange{Path: path, Kind: ChangeUnchanged, Hash: hash}
	default:
		t.files[path] = FileRecord{Hash: hash, MTime: mtime}
		return FileChange{Path: path, Kind: ChangeModified, Hash: hash}
	}
}

// Remove marks path as deleted, dropping it from the tracker's state and
// returning the corresponding FileChange.
func (t *ChangeTracker) Remove(path string) FileChange {
	delete(t.files, path)
	return FileChange{Path: path, Kind: ChangeDeleted}
}

// Reconcile walks the full current file set (path -> content) plus the
// paths known from the prior build, and returns every FileChange sorted
// by path for deterministic downstream processing. statMTime supplies
// each path's current mtime; a path absent from current but present in
// the tracker's prior state is reported as ChangeDeleted.
func (t *ChangeTracker) Reconcile(current map[string][]byte, statMTime func(path string) time.Time) []FileChange {
	seen := make(map[string]bool, len(current))
	var out []FileChange

	for path, content := range current {
		seen[path] = true
		out = append(out, t.Observe(path, statMTime(path), content))
	}
	for path := range t.files {
		if !seen[path] {
			out = append(out, t.Remove(path))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Snapshot returns the tracker's current path -> hash state, for
// persisting alongside a BuildProvenance record.
func (t *ChangeTracker) Snapshot() map[string]string {
	out := make(map[string]string, len(t.files))
	for path, rec := range t.files {
		out[path] = rec.Hash
	}
	return out
}
