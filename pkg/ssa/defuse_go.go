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

package ssa

import sitter "github.com/smacker/go-tree-sitter"

// defsAndUses returns the variable names written and read by a Go
// statement node. Writes come from the left-hand side of
// short_var_declaration/assignment_statement/var_spec; every other
// identifier in the statement is treated as a use. This is a syntactic
// approximation (it does not resolve field/index-expression targets to
// their base variable beyond the leading identifier) sufficient for
// intra-procedural READS/WRITES materialization.
func defsAndUses(n *sitter.Node, content []byte) (writes, uses []string) {
	writeSet := make(map[string]bool)

	switch n.Type() {
	case "short_var_declaration":
		left := n.ChildByFieldName("left")
		collectIdentifiers(left, content, func(s string) { writeSet[s] = true })
	case "assignment_statement":
		left := n.ChildByFieldName("left")
		collectIdentifiers(left, content, func(s string) { writeSet[s] = true })
	case "var_spec":
		name := n.ChildByFieldName("name")
		collectIdentifiers(name, content, func(s string) { writeSet[s] = true })
	}

	seen := make(map[string]bool)
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Type() == "identifier" {
			name := string(content[node.StartByte():node.EndByte()])
			if !seen[name] {
				seen[name] = true
				if !writeSet[name] {
					uses = append(uses, name)
				}
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(n)

	for name := range writeSet {
		writes = append(writes, name)
	}
	return writes, uses
}

func collectIdentifiers(n *sitter.Node, content []byte, emit func(string)) {
	if n == nil {
		return
	}
	if n.Type() == "identifier" {
		emit(string(content[n.StartByte():n.EndByte()]))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectIdentifiers(n.Child(i), content, emit)
	}
}
