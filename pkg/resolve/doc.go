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

// Package resolve is the cross-file resolver: it maps Go import aliases
// to in-repository package directories to bind call sites, and adds the
// CALLS, INHERITS and IMPLEMENTS edges that the per-file structural pass
// (pkg/structural) cannot see on its own. It emits no IMPORTS or
// REFERENCES edges, and extracts call sites from Go sources only.
package resolve
