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

// Package evidence persists the retrievable, TTL-bounded proof records that
// back every high-level answer the engine returns (a TaintPath, a slice, an
// impact set). Evidence is immutable once saved, owned by a snapshot, and
// deleted when that snapshot is deleted. The store is strictly append-only
// within a snapshot: a duplicate evidence_id is a hard EvidenceConflict
// error, and reads past expires_at behave as "not found".
package evidence
