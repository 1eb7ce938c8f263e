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

// Package incremental drives a repository snapshot build: it detects
// which files changed since the last build, computes which other files
// are affected through the import/reference graph, and runs the
// analysis stages (parse, structural IR, CFG/DFG, cross-file
// resolution, provenance stamping) over exactly that set, at whichever
// tier the caller selected.
package incremental
