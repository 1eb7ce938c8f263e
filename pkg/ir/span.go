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

package ir

import "fmt"

// Span locates a node or edge witness in source text. Lines are 1-indexed;
// columns are 0-indexed and half-open on the end column, matching the
// convention tree-sitter itself uses for point ranges.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Contains reports whether s fully encloses other.
func (s Span) Contains(other Span) bool {
	if other.StartLine < s.StartLine || other.EndLine > s.EndLine {
		return false
	}
	if other.StartLine == s.StartLine && other.StartCol < s.StartCol {
		return false
	}
	if other.EndLine == s.EndLine && other.EndCol > s.EndCol {
		return false
	}
	return true
}

// String renders the span as "startLine:startCol-endLine:endCol".
func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// Zero reports whether the span carries no position information.
func (s Span) Zero() bool {
	return s == Span{}
}
