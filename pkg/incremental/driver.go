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

package incremental

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/opencie/cie/pkg/cfg"
	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/ir/parser"
	"github.com/opencie/cie/pkg/resolve"
	"github.com/opencie/cie/pkg/ssa"
	"github.com/opencie/cie/pkg/structural"
)

// BuilderVersion is stamped onto every BuildProvenance this driver
// produces. Bump it whenever a change to this package or one of the
// analysis stages could change output for unchanged inputs.
const BuilderVersion = "cie-incremental/1"

// MaxFanout bounds how many BFS hops the affected-set computation walks
// through the reverse dependency graph before stopping, independent of
// how many files that reaches.
const MaxFanout = 6

// Source supplies one file's current content, for the driver to feed
// through ChangeTracker and the parser.
type Source struct {
	Path     string
	Content  []byte
	Language parser.Language
}

// Driver owns one repository's incremental build state across
// successive snapshots: the change tracker, dependency graph, and the
// Document it keeps accumulating nodes/edges into.
type Driver struct {
	Repo   string
	Logger *slog.Logger

	tracker  *ChangeTracker
	depGraph *DependencyGraph
	doc      *ir.Document
	trees    map[string]*parser.Tree
	parse    *parser.Parser
}

// NewDriver returns a Driver for repo, with an empty Document and a
// fresh ChangeTracker, so the first Build sees every file as added.
func NewDriver(repo string, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		Repo:     repo,
		Logger:   logger,
		tracker:  NewChangeTracker(),
		depGraph: NewDependencyGraph(),
		doc:      ir.NewDocument(),
		trees:    make(map[string]*parser.Tree),
		parse:    parser.New(),
	}
}

// Document returns the driver's accumulated snapshot. Callers must treat
// it as read-only between Build calls; the driver owns node/edge
// lifetime for the snapshot.
func (d *Driver) Document() *ir.Document { return d.doc }

// BuildResult summarizes one incremental Build call.
type BuildResult struct {
	Tier        Tier
	Changed     []FileChange
	AffectedSet []string
	Stages      []StageResult
	Provenance  ir.BuildProvenance
}

// Build reconciles sources against the tracker's prior state, computes
// the affected set, and runs the staged pipeline over it at tier.
// statMTime is threaded through to ChangeTracker.Reconcile as the fast
// mtime pre-filter; a caller with no cheap mtime source (e.g. reading
// from an in-memory fixture) can pass a function that always returns
// the zero time, which simply disables the pre-filter and falls back to
// hashing every file.
func (d *Driver) Build(ctx context.Context, sources []Source, tier Tier, statMTime func(path string) time.Time) (*BuildResult, error) {
	current := make(map[string][]byte, len(sources))
	byPath := make(map[string]Source, len(sources))
	for _, s := range sources {
		current[s.Path] = s.Content
		byPath[s.Path] = s
	}

	changed := d.tracker.Reconcile(current, statMTime)
	for _, c := range changed {
		metrics.filesChanged.WithLabelValues(string(c.Kind)).Inc()
	}

	for _, c := range changed {
		if c.Kind == ChangeDeleted {
			d.doc.RemoveFile(c.Path)
			delete(d.trees, c.Path)
		}
	}

	var changedPaths []string
	for _, c := range changed {
		if c.Kind != ChangeUnchanged {
			changedPaths = append(changedPaths, c.Path)
		}
	}

	d.depGraph.Build(d.doc)
	affected := d.depGraph.AffectedSet(changedPaths, MaxFanout)
	metrics.affectedSetSize.Observe(float64(len(affected)))
	metrics.tierSelected.WithLabelValues(string(tier)).Inc()

	pipeline := NewPipeline(d.Logger)
	pipeline.FailFast = false

	pipeline.Register(StageCache, func(ctx context.Context) error {
		return nil // cache-hit bookkeeping is handled entirely by ChangeTracker/AffectedSet above
	})

	gen := structural.New(d.Repo)
	pipeline.Register(StageStructural, func(ctx context.Context) error {
		return d.runStructural(ctx, gen, affected, byPath)
	})

	if tier == TierExtended || tier == TierFull {
		pipeline.Register(StageLspTypes, func(ctx context.Context) error {
			return d.runDataFlow(ctx, affected, tier)
		})
	}

	pipeline.Register(StageCrossFile, func(ctx context.Context) error {
		// A fresh Resolver per build, not one held across builds: its
		// SaltResolver must see the same call sequence every time the
		// same inputs are resolved, or repeated builds of unchanged
		// content could stamp different ExternalFunction stub ids.
		return resolve.New(d.Repo).Resolve(d.doc, d.trees)
	})

	var prov ir.BuildProvenance
	pipeline.Register(StageProvenance, func(ctx context.Context) error {
		prov = d.stampProvenance()
		return nil
	})

	results := pipeline.Run(ctx)
	for _, r := range results {
		if r.Err != nil {
			return &BuildResult{Tier: tier, Changed: changed, AffectedSet: affected, Stages: results}, fmt.Errorf("stage %s: %w", r.Stage, r.Err)
		}
	}

	return &BuildResult{Tier: tier, Changed: changed, AffectedSet: affected, Stages: results, Provenance: prov}, nil
}

func (d *Driver) runStructural(ctx context.Context, gen *structural.Generator, affected []string, byPath map[string]Source) error {
	sort.Strings(affected)
	for _, path := range affected {
		src, ok := byPath[path]
		if !ok {
			continue // deleted file already swept from doc; nothing to regenerate
		}
		d.doc.RemoveFile(path)
		delete(d.trees, path)

		tree, err := d.parse.Parse(ctx, path, src.Language, src.Content)
		if err != nil {
			d.Logger.Warn("incremental.parse.error", "path", path, "err", err)
			continue
		}
		d.trees[path] = tree

		if err := gen.Generate(d.doc, tree); err != nil {
			return fmt.Errorf("generate structural ir for %s: %w", path, err)
		}
	}
	return nil
}

// runDataFlow builds the CFG (and, depending on tier and a function's
// line count, SSA/DFG) for every Go function declared in one of the
// affected files.
func (d *Driver) runDataFlow(ctx context.Context, affected []string, tier Tier) error {
	conv := &ssa.Converter{Repo: d.Repo}

	for _, path := range affected {
		tree, ok := d.trees[path]
		if !ok || tree.Language != parser.LangGo {
			continue
		}

		builder := cfg.NewBuilder(tree)
		for _, fn := range d.doc.NodesByFile(path) {
			if fn.Kind != ir.KindFunction && fn.Kind != ir.KindMethod && fn.Kind != ir.KindLambda {
				continue
			}
			body := findGoFunctionBody(tree, fn.Span)
			if body == nil {
				continue
			}
			graph := builder.Build(fn.ID, body)

			lines := fn.Span.EndLine - fn.Span.StartLine
			if tier == TierExtended && lines > FuncLineThreshold {
				continue // EXTENDED only converts functions under the line-count threshold
			}
			params := goFunctionParamNames(tree, body)
			result := conv.Convert(d.doc, fn.ID, graph, tree, fn.FQN, params)
			if result.UndefSites > 0 {
				d.Logger.Debug("incremental.ssa.undef_sites", "function", fn.FQN, "count", result.UndefSites)
			}
		}
	}
	return nil
}

// findGoFunctionBody locates the tree-sitter "block" body whose
// enclosing declaration spans fnSpan, by exact span match against every
// function/method declaration's "body" field. A function with no body
// (an external/assembly declaration) yields nil, which the caller skips.
func findGoFunctionBody(tree *parser.Tree, fnSpan ir.Span) *sitter.Node {
	for _, kind := range []string{"function_declaration", "method_declaration", "func_literal"} {
		for _, decl := range tree.NodesOfType(kind) {
			if tree.Span(decl) != fnSpan {
				continue
			}
			if body := decl.ChildByFieldName("body"); body != nil {
				return body
			}
		}
	}
	return nil
}

// goFunctionParamNames reads the Go parameter-list identifiers sitting
// just before body in the source, so ssa.Converter can seed them as
// defined-at-Entry. body is the function's block node; its parent is
// the declaration node that owns the parameter list.
func goFunctionParamNames(tree *parser.Tree, body *sitter.Node) []string {
	decl := body.Parent()
	if decl == nil {
		return nil
	}
	paramsNode := decl.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			id := child.Child(j)
			if id.Type() == "identifier" {
				names = append(names, tree.Text(id))
			}
		}
	}
	return names
}

// stampProvenance computes a BuildProvenance over the driver's current
// tracker/dependency-graph state. BuildTimestamp is the only field a
// caller rebuilding from identical inputs should expect to differ.
func (d *Driver) stampProvenance() ir.BuildProvenance {
	inputFP := ir.InputFingerprint(d.tracker.Snapshot())

	imports := make(map[string]string)
	for _, n := range d.doc.NodesByKind(ir.KindImport) {
		imports[n.FilePath+"#"+n.FQN] = n.FQN
	}
	depFP := ir.DependencyFingerprint(imports)

	return ir.NewBuildProvenance(inputFP, BuilderVersion, "", depFP, 0, time.Now())
}
