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

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/ir/parser"
)

// extractGoCalls walks every call_expression in tree and attributes it to
// the smallest enclosing Function/Method node from fns, by line
// containment. Calls outside any known function (package-level var
// initializers, for instance) are skipped; they have no caller id to
// attach a CALLS edge to.
func extractGoCalls(tree *parser.Tree, fns []*ir.Node) []UnresolvedCall {
	var out []UnresolvedCall
	for _, call := range tree.NodesOfType("call_expression") {
		fn := call.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		name := calleeText(tree, fn)
		if name == "" {
			continue
		}
		line := call.StartPoint().Row + 1
		owner := enclosingFunction(fns, int(line))
		if owner == nil {
			continue
		}
		out = append(out, UnresolvedCall{
			CallerID:   owner.ID,
			CallerFQN:  owner.FQN,
			CalleeName: name,
			FilePath:   tree.FilePath,
		})
	}
	return out
}

// calleeText renders a call's callee expression as a dotted name,
// handling the plain-identifier and selector-expression ("pkg.Foo",
// "recv.Method") shapes; any other callee shape (e.g. an immediately
// invoked function literal) yields "".
func calleeText(tree *parser.Tree, fn *sitter.Node) string {
	switch fn.Type() {
	case "identifier":
		return tree.Text(fn)
	case "selector_expression":
		return tree.Text(fn)
	default:
		return ""
	}
}

func enclosingFunction(fns []*ir.Node, line int) *ir.Node {
	var best *ir.Node
	bestWidth := -1
	for _, f := range fns {
		if line < f.Span.StartLine || line > f.Span.EndLine {
			continue
		}
		width := f.Span.EndLine - f.Span.StartLine
		if best == nil || width < bestWidth {
			best = f
			bestWidth = width
		}
	}
	return best
}
