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

// NodeKind is the closed enumeration of program-fact kinds a Node can carry.
// Every switch over NodeKind in this codebase must be exhaustive: an
// unhandled variant is a programming error, not a default branch.
type NodeKind string

const (
	KindFile              NodeKind = "File"
	KindModule            NodeKind = "Module"
	KindClass             NodeKind = "Class"
	KindInterface         NodeKind = "Interface"
	KindFunction          NodeKind = "Function"
	KindMethod            NodeKind = "Method"
	KindVariable          NodeKind = "Variable"
	KindField             NodeKind = "Field"
	KindImport            NodeKind = "Import"
	KindEnum              NodeKind = "Enum"
	KindTypeAlias         NodeKind = "TypeAlias"
	KindLambda            NodeKind = "Lambda"
	KindProperty          NodeKind = "Property"
	KindConstant          NodeKind = "Constant"
	KindExport            NodeKind = "Export"
	KindBlock             NodeKind = "Block"
	KindCondition         NodeKind = "Condition"
	KindLoop              NodeKind = "Loop"
	KindTryCatch          NodeKind = "TryCatch"
	KindExpression        NodeKind = "Expression"
	KindType              NodeKind = "Type"
	KindSignature         NodeKind = "Signature"
	KindCfgBlock          NodeKind = "CfgBlock"
	KindExternalModule    NodeKind = "ExternalModule"
	KindExternalFunction  NodeKind = "ExternalFunction"
	KindExternalType      NodeKind = "ExternalType"
	KindRoute             NodeKind = "Route"
	KindService           NodeKind = "Service"
	KindRepository        NodeKind = "Repository"
	KindConfig            NodeKind = "Config"
	KindJob               NodeKind = "Job"
	KindMiddleware        NodeKind = "Middleware"
	KindSummary           NodeKind = "Summary"
	KindDocument          NodeKind = "Document"
	KindTemplateDoc       NodeKind = "TemplateDoc"
	KindTemplateElement   NodeKind = "TemplateElement"
	KindTemplateDirective NodeKind = "TemplateDirective"
	KindTemplateSlot      NodeKind = "TemplateSlot"
)

// allNodeKinds is the exhaustive universe used by validation and tests.
var allNodeKinds = []NodeKind{
	KindFile, KindModule, KindClass, KindInterface, KindFunction, KindMethod,
	KindVariable, KindField, KindImport, KindEnum, KindTypeAlias, KindLambda,
	KindProperty, KindConstant, KindExport, KindBlock, KindCondition, KindLoop,
	KindTryCatch, KindExpression, KindType, KindSignature, KindCfgBlock,
	KindExternalModule, KindExternalFunction, KindExternalType, KindRoute,
	KindService, KindRepository, KindConfig, KindJob, KindMiddleware,
	KindSummary, KindDocument, KindTemplateDoc, KindTemplateElement,
	KindTemplateDirective, KindTemplateSlot,
}

// Valid reports whether k is a member of the closed NodeKind enumeration.
func (k NodeKind) Valid() bool {
	for _, v := range allNodeKinds {
		if v == k {
			return true
		}
	}
	return false
}

// EdgeKind is the closed enumeration of relationship kinds between Nodes.
type EdgeKind string

const (
	EdgeContains     EdgeKind = "CONTAINS"
	EdgeDefines      EdgeKind = "DEFINES"
	EdgeCalls        EdgeKind = "CALLS"
	EdgeReads        EdgeKind = "READS"
	EdgeWrites       EdgeKind = "WRITES"
	EdgeReferences   EdgeKind = "REFERENCES"
	EdgeImports      EdgeKind = "IMPORTS"
	EdgeInherits     EdgeKind = "INHERITS"
	EdgeImplements   EdgeKind = "IMPLEMENTS"
	EdgeOverrides    EdgeKind = "OVERRIDES"
	EdgeThrows       EdgeKind = "THROWS"
	EdgeDecorates    EdgeKind = "DECORATES"
	EdgeInstantiates EdgeKind = "INSTANTIATES"
	EdgeCfgNext      EdgeKind = "CFG_NEXT"
	EdgeCfgBranch    EdgeKind = "CFG_BRANCH"
	EdgeCfgLoop      EdgeKind = "CFG_LOOP"
	EdgeCfgHandler   EdgeKind = "CFG_HANDLER"
	EdgeCaptures     EdgeKind = "CAPTURES"
	EdgeDocuments    EdgeKind = "DOCUMENTS"
	EdgeTemplateChild EdgeKind = "TEMPLATE_CHILD"
	EdgeBinds        EdgeKind = "BINDS"
	EdgeRenders      EdgeKind = "RENDERS"
	EdgeEscapes      EdgeKind = "ESCAPES"
)

var allEdgeKinds = []EdgeKind{
	EdgeContains, EdgeDefines, EdgeCalls, EdgeReads, EdgeWrites, EdgeReferences,
	EdgeImports, EdgeInherits, EdgeImplements, EdgeOverrides, EdgeThrows,
	EdgeDecorates, EdgeInstantiates, EdgeCfgNext, EdgeCfgBranch, EdgeCfgLoop,
	EdgeCfgHandler, EdgeCaptures, EdgeDocuments, EdgeTemplateChild, EdgeBinds,
	EdgeRenders, EdgeEscapes,
}

// Valid reports whether k is a member of the closed EdgeKind enumeration.
func (k EdgeKind) Valid() bool {
	for _, v := range allEdgeKinds {
		if v == k {
			return true
		}
	}
	return false
}

// UnhandledKindError is raised by exhaustive switch sites (projection,
// planner, structural generator) when a kind outside the closed enum
// reaches them. Per spec design note: an unhandled variant is a hard
// error, never a silently-ignored default branch.
type UnhandledKindError struct {
	Site string
	Kind string
}

func (e *UnhandledKindError) Error() string {
	return fmt.Sprintf("%s: unhandled kind %q", e.Site, e.Kind)
}
