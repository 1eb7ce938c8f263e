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

// Package ingestion discovers the source files a repository offers up for
// indexing.
//
// RepoLoader walks a local path (or, for a git_url RepoSource, a shallow
// clone into a temp directory it cleans up on Close), applies exclude
// globs and a max file size, and returns the filtered file list tagged
// with a best-guess language per file:
//
//	loader := ingestion.NewRepoLoader(logger)
//	defer loader.Close()
//	result, err := loader.LoadRepository(ingestion.RepoSource{
//	    Type:  "local_path",
//	    Value: "/path/to/code",
//	}, excludeGlobs, maxFileSizeBytes)
//
// Parsing the discovered files into CIE's intermediate representation is
// pkg/ir/parser's job; building the CFG/SSA/data-flow graph over that IR
// is pkg/incremental's. This package's scope ends at "which files, how
// big, which language."
package ingestion
