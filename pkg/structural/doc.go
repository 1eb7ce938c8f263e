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

// Package structural walks an indexed parse tree once per file and emits
// the structural IR: File/Module/Class/Interface/Function/Method/Field/
// Import/TypeAlias/Lambda nodes and CONTAINS/DEFINES/IMPORTS/INHERITS
// edges. Go is the primary, fully-extracted language; Python, JavaScript,
// and TypeScript get file/module/import/class/function extraction, with
// INHERITS edges only between classes of the same file,
// mirroring the relative depth of support in the reference corpus.
package structural
