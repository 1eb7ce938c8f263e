// Copyright 2025 OpenCIE
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@opencie.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"sort"
	"strings"

	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/ir/parser"
)

// Resolver is the cross-file resolution pass: it consumes a finished
// structural Document plus the indexed trees it was built from, and adds
// CALLS, INHERITS, and IMPLEMENTS edges that no single-file pass can see.
type Resolver struct {
	Repo string
	salt *ir.SaltResolver
	calls *CallResolver
}

// New returns a Resolver for repo.
func New(repo string) *Resolver {
	return &Resolver{Repo: repo, salt: ir.NewSaltResolver(), calls: NewCallResolver()}
}

// Stats mirrors the underlying CallResolver's index sizes, for logging.
func (r *Resolver) Stats() (packages, functions, imports int) {
	return r.calls.Stats()
}

// Resolve runs the full cross-file pass. trees must contain every Go
// file's indexed Tree, keyed by file path, so call sites can be
// extracted; files already represented purely in doc (e.g. a file that
// failed to reparse on an incremental update) are skipped for call
// extraction but still participate in the by-name INHERITS/IMPLEMENTS
// passes, which only need doc.
func (r *Resolver) Resolve(doc *ir.Document, trees map[string]*parser.Tree) error {
	r.calls.BuildIndex(doc)

	if err := r.resolveCalls(doc, trees); err != nil {
		return err
	}
	r.resolveCrossFileInheritance(doc)
	r.resolveImplements(doc)
	return nil
}

func (r *Resolver) resolveCalls(doc *ir.Document, trees map[string]*parser.Tree) error {
	functionsByFile := make(map[string][]*ir.Node)
	for _, kind := range []ir.NodeKind{ir.KindFunction, ir.KindMethod, ir.KindLambda} {
		for _, fn := range doc.NodesByKind(kind) {
			functionsByFile[fn.FilePath] = append(functionsByFile[fn.FilePath], fn)
		}
	}

	var unresolved []UnresolvedCall
	for path, tree := range trees {
		if tree.Language != parser.LangGo {
			continue
		}
		unresolved = append(unresolved, extractGoCalls(tree, functionsByFile[path])...)
	}

	occ := make(map[string]int)
	addCallEdge := func(callerID, targetID string) {
		key := callerID + "->" + targetID
		doc.AddEdge(ir.Edge{
			ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeCalls, SourceID: callerID, TargetID: targetID, Occurrence: occ[key]}),
			Kind:       ir.EdgeCalls,
			SourceID:   callerID,
			TargetID:   targetID,
			Occurrence: occ[key],
		})
		occ[key]++
	}

	for _, rc := range r.calls.ResolveCalls(unresolved) {
		addCallEdge(rc.CallerID, rc.CalleeID)
	}

	// Unresolved calls become edges to a synthesized ExternalFunction node
	// keyed by callee name, so every call site still has a CALLS target.
	externalCache := make(map[string]string)
	for _, call := range unresolved {
		if _, external := r.calls.resolveCall(call); !external {
			continue
		}
		extID, ok := externalCache[call.CalleeName]
		if !ok {
			key := r.salt.Assign(ir.NodeIdentityKey{
				Repo: r.Repo, Kind: ir.KindExternalFunction, FQN: call.CalleeName, Language: "go",
			})
			extID = ir.NodeID(key)
			externalCache[call.CalleeName] = extID
			doc.AddNode(ir.Node{
				ID: extID, Kind: ir.KindExternalFunction, FQN: call.CalleeName, Name: call.CalleeName, Language: "go",
			})
		}
		addCallEdge(call.CallerID, extID)
	}
	return nil
}

// resolveCrossFileInheritance adds INHERITS edges for embedded-struct
// fields whose type name matches a Class defined in a different file
// than the field's own owner. structural.Generator only links embedded
// fields against classes in the same file; this pass covers the rest.
func (r *Resolver) resolveCrossFileInheritance(doc *ir.Document) {
	classByName := make(map[string][]*ir.Node)
	for _, c := range doc.NodesByKind(ir.KindClass) {
		classByName[c.Name] = append(classByName[c.Name], c)
	}

	occ := make(map[string]int)
	for _, field := range doc.NodesByKind(ir.KindField) {
		candidates, ok := classByName[field.Name]
		if !ok {
			continue
		}
		ownerID := ownerClassID(doc, field.ID)
		if ownerID == "" {
			continue
		}
		owner, ok := doc.Node(ownerID)
		if !ok || owner.FilePath == field.FilePath {
			continue // same-file embedding is already linked by structural.Generator
		}
		for _, parent := range candidates {
			if parent.ID == ownerID {
				continue
			}
			key := ownerID + "->" + parent.ID
			doc.AddEdge(ir.Edge{
				ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeInherits, SourceID: ownerID, TargetID: parent.ID, Occurrence: occ[key]}),
				Kind:       ir.EdgeInherits,
				SourceID:   ownerID,
				TargetID:   parent.ID,
				Occurrence: occ[key],
			})
			occ[key]++
			break // one best-effort match per embedded name is sufficient
		}
	}
}

func ownerClassID(doc *ir.Document, fieldID string) string {
	for _, e := range doc.EdgesTo(fieldID) {
		if e.Kind != ir.EdgeContains {
			continue
		}
		if owner, ok := doc.Node(e.SourceID); ok && owner.Kind == ir.KindClass {
			return owner.ID
		}
	}
	return ""
}

// resolveImplements adds an IMPLEMENTS edge from every Class to every
// Interface whose declared method set the class's own methods fully
// cover, by name (arity/signature matching is left to a future, more
// precise pass; this is the declared-interface-implementers tier).
func (r *Resolver) resolveImplements(doc *ir.Document) {
	methodsByClass := make(map[string]map[string]bool)
	for _, m := range doc.NodesByKind(ir.KindMethod) {
		ownerID := ownerClassID(doc, m.ID)
		if ownerID == "" {
			continue
		}
		if methodsByClass[ownerID] == nil {
			methodsByClass[ownerID] = make(map[string]bool)
		}
		methodsByClass[ownerID][simpleName(m.Name)] = true
	}

	occ := make(map[string]int)
	for _, iface := range doc.NodesByKind(ir.KindInterface) {
		methodsAttr, ok := iface.Attr("methods")
		if !ok || methodsAttr == "" {
			continue
		}
		required := strings.Split(methodsAttr, ",")
		sort.Strings(required)

		for classID, methods := range methodsByClass {
			if !coversAll(methods, required) {
				continue
			}
			class, ok := doc.Node(classID)
			if !ok {
				continue
			}
			key := classID + "->" + iface.ID
			doc.AddEdge(ir.Edge{
				ID:         ir.EdgeID(ir.EdgeIdentityKey{Kind: ir.EdgeImplements, SourceID: class.ID, TargetID: iface.ID, Occurrence: occ[key]}),
				Kind:       ir.EdgeImplements,
				SourceID:   class.ID,
				TargetID:   iface.ID,
				Occurrence: occ[key],
			})
			occ[key]++
		}
	}
}

func coversAll(have map[string]bool, want []string) bool {
	if len(want) == 0 {
		return false
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}
