// Copyright 2025 OpenCIE
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package parser dispatches source files to a per-language tree-sitter
// grammar and builds a queryable index over the resulting concrete syntax
// tree: by node type, by starting line, and a position-to-deepest-node
// map. Span extraction is cached per node identity for the lifetime of
// the tree. Downstream components (structural IR, CFG, SSA) walk the
// indexed tree rather than re-parsing.
package parser
