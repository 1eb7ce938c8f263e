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

package resolve

// PackageInfo groups the files that belong to one Go package directory.
type PackageInfo struct {
	PackagePath string
	PackageName string
	Files       []string
}

// UnresolvedCall is a call site discovered during structural extraction
// whose callee has not yet been bound to a concrete function or method
// node.
type UnresolvedCall struct {
	CallerID   string
	CallerFQN  string
	CalleeName string // "Foo", "pkg.Foo", or "recv.Method" as written at the call site
	FilePath   string
}

// ResolvedCall is one call site bound to a concrete in-repository
// callee node id. Calls that cannot be bound are not represented here;
// see Resolver.resolveCalls for the ExternalFunction stub path.
type ResolvedCall struct {
	CallerID string
	CalleeID string
}
