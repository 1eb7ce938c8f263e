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
	"path/filepath"
	"strings"
)

// NodeIdentityKey is the canonical tuple hashed to produce a node ID.
// Two keys that compare equal always produce the same ID; two keys that
// differ in any field produce different IDs with cryptographic
// probability.
type NodeIdentityKey struct {
	Repo     string
	Kind     NodeKind
	FilePath string
	FQN      string
	Language string
	Salt     string // resolves deterministic collisions; empty in the common case
}

// canonical renders the identity key as "{repo}|{Kind}|{file_path}|{fqn}|{language}|{salt}".
func (k NodeIdentityKey) canonical() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s", k.Repo, k.Kind, normalizePath(k.FilePath), k.FQN, k.Language, k.Salt)
}

// NodeID computes "node:{repo}:{kind_lower}:{h}" where h is the first 24
// hex digits (96 bits) of SHA-256 over the canonical identity key.
func NodeID(key NodeIdentityKey) string {
	sum := sha256.Sum256([]byte(key.canonical()))
	h := hex.EncodeToString(sum[:])[:24]
	return fmt.Sprintf("node:%s:%s:%s", key.Repo, strings.ToLower(string(key.Kind)), h)
}

// EdgeIdentityKey is the canonical tuple hashed to produce an edge ID.
type EdgeIdentityKey struct {
	Kind       EdgeKind
	SourceID   string
	TargetID   string
	Occurrence int
}

func (k EdgeIdentityKey) canonical() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.Kind, k.SourceID, k.TargetID, k.Occurrence)
}

// EdgeID computes "edge:{kind_lower}:{h}" where h is the first 20 hex
// digits (80 bits) of SHA-256 over the canonical identity key.
func EdgeID(key EdgeIdentityKey) string {
	sum := sha256.Sum256([]byte(key.canonical()))
	h := hex.EncodeToString(sum[:])[:20]
	return fmt.Sprintf("edge:%s:%s", strings.ToLower(string(key.Kind)), h)
}

// normalizePath canonicalizes a path for identity purposes: forward
// slashes, no leading "./", no leading "/", cleaned of redundant
// separators. This keeps IDs stable across platforms and callers that
// pass absolute vs. relative paths for the same logical file.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	path = filepath.ToSlash(filepath.Clean(path))
	path = strings.TrimPrefix(path, "/")
	return path
}

// SaltResolver deterministically assigns salts to identity keys that
// would otherwise collide, so that two nodes sharing every other field
// still get distinct IDs. Resolution order is the order Assign is
// called in, which callers must make deterministic (e.g. sorted by
// discovery order within a file) to satisfy the determinism contract.
type SaltResolver struct {
	seen map[string]int
}

// NewSaltResolver returns a resolver with no observed keys yet.
func NewSaltResolver() *SaltResolver {
	return &SaltResolver{seen: make(map[string]int)}
}

// Assign returns a key identical to base except Salt is set so that the
// resulting NodeID is guaranteed distinct from every key previously
// passed to Assign with the same unsalted canonical string.
func (r *SaltResolver) Assign(base NodeIdentityKey) NodeIdentityKey {
	base.Salt = ""
	unsalted := base.canonical()
	n := r.seen[unsalted]
	r.seen[unsalted] = n + 1
	if n == 0 {
		return base
	}
	base.Salt = fmt.Sprintf("dup%d", n)
	return base
}
