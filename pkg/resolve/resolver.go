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
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/opencie/cie/pkg/ir"
)

// CallResolver resolves cross-package function calls for one Go
// repository snapshot. It builds an index of packages, exported
// functions/methods, and file-level import aliases, then binds
// unresolved call sites against that index.
type CallResolver struct {
	packageIndex            map[string]*PackageInfo      // directory path -> package
	globalFunctions         map[string]map[string]string // package path -> simple name -> node id
	fileImports             map[string]map[string]string // file path -> alias -> import path
	importPathToPackagePath map[string]string             // import path -> local package path
}

// NewCallResolver returns an empty resolver.
func NewCallResolver() *CallResolver {
	return &CallResolver{
		packageIndex:            make(map[string]*PackageInfo),
		globalFunctions:         make(map[string]map[string]string),
		fileImports:             make(map[string]map[string]string),
		importPathToPackagePath: make(map[string]string),
	}
}

// BuildIndex populates the resolver's indices from a finished structural
// IR. Call once after every file in the snapshot has been run through
// pkg/structural.
func (r *CallResolver) BuildIndex(doc *ir.Document) {
	for _, f := range doc.NodesByKind(ir.KindFile) {
		if f.Language != "go" {
			continue
		}
		pkgPath := filepath.Dir(f.FilePath)
		pkgName := ""
		for _, m := range doc.NodesByKind(ir.KindModule) {
			if m.FilePath == pkgPath {
				pkgName = m.Name
				break
			}
		}
		if _, ok := r.packageIndex[pkgPath]; !ok {
			r.packageIndex[pkgPath] = &PackageInfo{PackagePath: pkgPath, PackageName: pkgName}
		}
		r.packageIndex[pkgPath].Files = append(r.packageIndex[pkgPath].Files, f.FilePath)
	}

	for _, kind := range []ir.NodeKind{ir.KindFunction, ir.KindMethod} {
		for _, fn := range doc.NodesByKind(kind) {
			if !strings.HasSuffix(fn.FilePath, ".go") {
				continue
			}
			pkgPath := filepath.Dir(fn.FilePath)
			if _, ok := r.globalFunctions[pkgPath]; !ok {
				r.globalFunctions[pkgPath] = make(map[string]string)
			}
			r.globalFunctions[pkgPath][simpleName(fn.Name)] = fn.ID
		}
	}

	for _, imp := range doc.NodesByKind(ir.KindImport) {
		if _, ok := r.fileImports[imp.FilePath]; !ok {
			r.fileImports[imp.FilePath] = make(map[string]string)
		}
		alias, _ := imp.Attr("alias")
		if alias == "" {
			alias = filepath.Base(imp.FQN)
		}
		if alias == "_" {
			continue
		}
		r.fileImports[imp.FilePath][alias] = imp.FQN
	}

	r.buildImportPathMapping()
}

// simpleName strips a method's receiver-type qualifier ("pkg.Type.Method"
// -> "Method") so both functions and methods can be looked up by their
// bare call-site name.
func simpleName(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func (r *CallResolver) buildImportPathMapping() {
	for pkgPath, info := range r.packageIndex {
		r.importPathToPackagePath[pkgPath] = pkgPath
		if info.PackageName != "" {
			r.importPathToPackagePath[info.PackageName] = pkgPath
		}
	}
}

// ResolveCalls resolves every unresolved call site, returning one
// ResolvedCall per unique (caller, callee) pair. Sets of 1000+ calls are
// resolved concurrently since the indices are read-only at this point.
func (r *CallResolver) ResolveCalls(calls []UnresolvedCall) []ResolvedCall {
	if len(calls) < 1000 {
		return r.resolveSequential(calls)
	}
	return r.resolveParallel(calls)
}

func (r *CallResolver) resolveSequential(calls []UnresolvedCall) []ResolvedCall {
	seen := make(map[string]bool)
	var out []ResolvedCall
	for _, call := range calls {
		calleeID, _ := r.resolveCall(call)
		if calleeID == "" {
			continue
		}
		key := call.CallerID + "->" + calleeID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ResolvedCall{CallerID: call.CallerID, CalleeID: calleeID})
	}
	return out
}

func (r *CallResolver) resolveParallel(calls []UnresolvedCall) []ResolvedCall {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	jobs := make(chan int, len(calls))
	results := make(chan ResolvedCall, len(calls))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				call := calls[i]
				calleeID, _ := r.resolveCall(call)
				if calleeID != "" {
					results <- ResolvedCall{CallerID: call.CallerID, CalleeID: calleeID}
				}
			}
		}()
	}
	for i := range calls {
		jobs <- i
	}
	close(jobs)
	go func() { wg.Wait(); close(results) }()

	seen := make(map[string]bool)
	var out []ResolvedCall
	for res := range results {
		key := res.CallerID + "->" + res.CalleeID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, res)
	}
	return out
}

// resolveCall binds one call site to a node id. The second return value
// reports whether that id names a synthesized ExternalFunction rather
// than an in-repository definition; the caller decides whether and how
// to materialize that stub node.
func (r *CallResolver) resolveCall(call UnresolvedCall) (id string, external bool) {
	name := call.CalleeName
	if strings.Contains(name, ".") {
		parts := strings.SplitN(name, ".", 2)
		alias := parts[0]
		funcName := parts[1]
		if idx := strings.LastIndexByte(funcName, '.'); idx >= 0 {
			funcName = funcName[idx+1:]
		}
		if !isExported(funcName) {
			return "", true
		}
		imports, ok := r.fileImports[call.FilePath]
		if !ok {
			return "", true
		}
		importPath, ok := imports[alias]
		if !ok {
			return "", true
		}
		pkgPath := r.findPackageByImportPath(importPath)
		if pkgPath == "" {
			return "", true
		}
		if funcs, ok := r.globalFunctions[pkgPath]; ok {
			if funcID, ok := funcs[funcName]; ok {
				return funcID, false
			}
		}
		return "", true
	}

	// Same-package direct call.
	pkgPath := filepath.Dir(call.FilePath)
	if funcs, ok := r.globalFunctions[pkgPath]; ok {
		if funcID, ok := funcs[name]; ok {
			return funcID, false
		}
	}

	// Dot-imported call.
	if imports, ok := r.fileImports[call.FilePath]; ok {
		for alias, importPath := range imports {
			if alias != "." {
				continue
			}
			if pp := r.findPackageByImportPath(importPath); pp != "" {
				if funcs, ok := r.globalFunctions[pp]; ok {
					if funcID, ok := funcs[name]; ok {
						return funcID, false
					}
				}
			}
		}
	}
	return "", true
}

func isExported(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (r *CallResolver) findPackageByImportPath(importPath string) string {
	if pkgPath, ok := r.importPathToPackagePath[importPath]; ok {
		return pkgPath
	}
	for pkgPath := range r.packageIndex {
		if strings.HasSuffix(importPath, pkgPath) {
			r.importPathToPackagePath[importPath] = pkgPath
			return pkgPath
		}
	}
	base := filepath.Base(importPath)
	for pkgPath, info := range r.packageIndex {
		if info.PackageName == base {
			r.importPathToPackagePath[importPath] = pkgPath
			return pkgPath
		}
	}
	return ""
}

// Stats reports index sizes, for logging after BuildIndex.
func (r *CallResolver) Stats() (packages, functions, imports int) {
	packages = len(r.packageIndex)
	for _, fns := range r.globalFunctions {
		functions += len(fns)
	}
	for _, imps := range r.fileImports {
		imports += len(imps)
	}
	return
}
