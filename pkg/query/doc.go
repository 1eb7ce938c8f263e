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

// Package query canonicalizes every high-level analysis question into a
// Plan before it is run. A Plan is immutable and hashes deterministically
// from its canonical JSON, so the same pattern/scope/budget always
// produces the same hash across process restarts; callers consult a
// plan-hash cache (pkg/cache) before paying for execution, and the
// executed result is recorded as one or more pkg/evidence records keyed
// by that hash.
package query
