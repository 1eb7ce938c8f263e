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

// Package trcr compiles declarative taint rule documents into executable
// IR and runs them against an analyzed repository's IR document.
//
// The pipeline has two stages living in one package because they share a
// type vocabulary (TaintRuleSpec, TaintRuleExecutableIR) and a compiled
// rule is useless without an executor to run it against:
//
//   - Compiler: rule YAML -> TaintRuleSpec -> TaintRuleExecIR (one per
//     match clause) -> optimization passes -> TaintRuleExecutableIR, with
//     a content-addressed compile cache.
//   - Executor: candidate generation against an ir.Document's indices,
//     short-circuit predicate evaluation, intra/inter-procedural taint
//     propagation over SSA READS/WRITES edges, TaintPath emission,
//     result-constraint filtering.
package trcr
