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

// Package cache is the multi-tier substrate behind query planning and the
// incremental driver:
//
//   - PriorityCache: an in-memory cache whose entries are scored by
//     access_count * freshness / size, evicting the minimum-score entry
//     under an entry-count cap or a byte cap.
//   - the content-addressed on-disk compilation tier is pkg/trcr's
//     CompilationCache; this package does not duplicate it.
//   - ServiceGroup: background cooperative-loop services (stale-edge
//     cleanup, snapshot GC, embedding refresh) that wake on a fixed
//     interval or an external signal and never block the primary
//     pipeline.
//   - LockManager: an advisory, in-process lock primitive, acquire(lease)/
//     release(token), where release is authenticated by the acquirer's
//     token so one owner cannot release another's lease.
package cache
