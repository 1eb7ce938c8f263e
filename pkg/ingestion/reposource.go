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

package ingestion

// RepoSource names where RepoLoader.LoadRepository reads a repository
// from: Type is "local_path" or "git_url", Value is the path or URL.
//
// SkipPathVerify disables validateLocalPath's checks (no ".." traversal,
// absolute path, not the filesystem root or a system directory) for a
// local_path source - the `cie scan --no-path-verify` escape hatch.
// Symlinks are not resolved by those checks. Ignored for git_url sources, which are always
// cloned to a fresh temp directory and need no such check.
type RepoSource struct {
	Type           string
	Value          string
	SkipPathVerify bool
}
