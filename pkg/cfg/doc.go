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

// Package cfg builds a per-function control-flow graph: one Entry block,
// one Exit block, one block per basic block, and typed edges (Normal,
// TrueBranch, FalseBranch, LoopBack, Exception) connecting them. The
// builder never links across functions; inter-procedural structure is
// the cross-file resolver's job (pkg/resolve).
package cfg
