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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// BuildProvenance identifies the exact inputs and configuration that
// produced one snapshot. Every field but BuildTimestamp is fixed by the
// inputs; two provenances with equal fingerprints (timestamp excluded)
// represent identical inputs and must therefore produce identical node
// and edge sets, up to the canonical sort keys below.
type BuildProvenance struct {
	InputFingerprint      string // SHA-256 over sorted "path:filehash" pairs
	BuilderVersion        string
	ConfigFingerprint     string // SHA-256 over every flag that affects output, canonicalized
	DependencyFingerprint string // SHA-256 over sorted "path:import_path" pairs
	BuildTimestamp        time.Time // audit-only, excluded from equality
	NodeSortKey           string    // always "id"; recorded for forward compatibility
	EdgeSortKey           string    // always "id"; recorded for forward compatibility
	ParallelSeed          int64     // seed handed to any worker-pool shuffling, for reproducing a run's scheduling
}

// Equal reports whether p and other represent identical inputs,
// ignoring BuildTimestamp.
func (p BuildProvenance) Equal(other BuildProvenance) bool {
	return p.InputFingerprint == other.InputFingerprint &&
		p.BuilderVersion == other.BuilderVersion &&
		p.ConfigFingerprint == other.ConfigFingerprint &&
		p.DependencyFingerprint == other.DependencyFingerprint &&
		p.NodeSortKey == other.NodeSortKey &&
		p.EdgeSortKey == other.EdgeSortKey &&
		p.ParallelSeed == other.ParallelSeed
}

// InputFingerprint computes the order-independent fingerprint over a
// snapshot's file set: sort by path, hash "path:filehash" lines joined
// by "\n".
func InputFingerprint(fileHashes map[string]string) string {
	return sortedPairFingerprint(fileHashes)
}

// DependencyFingerprint computes the order-independent fingerprint over
// a snapshot's import edges: path -> the import path text as written at
// the import site (not yet resolved to a package), so two snapshots
// agree on this fingerprint before cross-file resolution even runs.
func DependencyFingerprint(fileImports map[string]string) string {
	return sortedPairFingerprint(fileImports)
}

func sortedPairFingerprint(pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s:%s\n", k, pairs[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigFingerprint canonicalizes a flat set of config flag values (already
// stringified by the caller) into a single fingerprint, independent of
// the order flags were supplied in.
func ConfigFingerprint(flags map[string]string) string {
	return sortedPairFingerprint(flags)
}

// NewBuildProvenance stamps a BuildProvenance for the given fingerprints.
// NodeSortKey/EdgeSortKey are always "id": Document already enumerates
// both sorted by id, so this simply records that guarantee on the
// provenance object itself rather than inventing an alternate key.
func NewBuildProvenance(inputFP, builderVersion, configFP, depFP string, parallelSeed int64, now time.Time) BuildProvenance {
	return BuildProvenance{
		InputFingerprint:      inputFP,
		BuilderVersion:        builderVersion,
		ConfigFingerprint:     configFP,
		DependencyFingerprint: depFP,
		BuildTimestamp:        now,
		NodeSortKey:           "id",
		EdgeSortKey:           "id",
		ParallelSeed:          parallelSeed,
	}
}
