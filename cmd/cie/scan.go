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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/internal/ui"
	"github.com/opencie/cie/pkg/cache"
	"github.com/opencie/cie/pkg/evidence"
	"github.com/opencie/cie/pkg/incremental"
	"github.com/opencie/cie/pkg/ingestion"
	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/ir/parser"
	"github.com/opencie/cie/pkg/llm"
	"github.com/opencie/cie/pkg/query"
	"github.com/opencie/cie/pkg/ratelimit"
	"github.com/opencie/cie/pkg/trcr"
)

// scanExit codes, distinct from the library-level errors.Exit* family:
// a scan's exit status reports what was FOUND, not just whether the
// process itself failed.
const (
	scanExitClean    = 0
	scanExitFindings = 1
	scanExitError    = 2
)

var severityRank = map[string]int{"low": 1, "medium": 2, "high": 3, "critical": 4}

// runScan executes `cie scan <path>`: builds the structural/SSA IR for
// path, compiles and runs the taint rules named by --policy against it,
// and reports every surviving TaintPath as text, JSON, or SARIF.
func runScan(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	outputFormat := fs.String("output", "text", "Output format: text, json, sarif")
	outputFile := fs.String("output-file", "", "Write output to this file instead of stdout")
	policyPath := fs.String("policy", "", "Path to a taint rule file or directory (required)")
	severity := fs.String("severity", "low", "Minimum severity to report: low, medium, high, critical")
	exclude := fs.String("exclude", "", "Comma-separated glob patterns to exclude")
	verbose := fs.Bool("verbose", false, "Enable verbose (info-level) logging")
	noCache := fs.Bool("no-cache", false, "Bypass the rule compilation cache and the plan-hash cache")
	noPathVerify := fs.Bool("no-path-verify", false, "Skip the local path safety check (traversal, root and system directories)")
	narrate := fs.Bool("narrate", false, "Generate a one-line LLM narrative for each finding (requires llm.enabled in .cie/project.yaml)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cie scan <path> [options]

Scans <path> for taint-style vulnerabilities using the rules in --policy.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(scanExitError)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(scanExitError)
	}
	if *policyPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --policy is required")
		os.Exit(scanExitError)
	}
	minRank, ok := severityRank[*severity]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: invalid --severity %q (want low, medium, high, or critical)\n", *severity)
		os.Exit(scanExitError)
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	repoPath, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: resolve path: %v\n", err)
		os.Exit(scanExitError)
	}

	var excludeGlobs []string
	if *exclude != "" {
		for _, g := range strings.Split(*exclude, ",") {
			if g = strings.TrimSpace(g); g != "" {
				excludeGlobs = append(excludeGlobs, g)
			}
		}
	}

	if *outputFormat != "text" {
		globals.JSON = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	doc, err := buildIR(ctx, logger, repoPath, excludeGlobs, *noPathVerify, globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(scanExitError)
	}

	rulesBar := NewProgressBar(NewProgressConfig(globals), 1, phaseDescription("rules"))
	compiled, err := compileRules(*policyPath, *noCache)
	if rulesBar != nil {
		_ = rulesBar.Finish()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(scanExitError)
	}

	executor := trcr.NewExecutor(doc, compiled)
	paths, err := executor.Run(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(scanExitError)
	}

	severityByRule := make(map[string]string, len(compiled))
	for _, r := range compiled {
		severityByRule[r.RuleID] = r.Severity
	}

	var findings []scanFinding
	planCache := cache.New(cache.DefaultConfig(), func() int64 { return time.Now().UnixNano() })
	for _, p := range paths {
		sev := severityByRule[p.RuleID]
		if sev == "" {
			sev = "medium"
		}
		if severityRank[sev] < minRank {
			continue
		}
		findings = append(findings, buildFinding(doc, p, sev))
	}

	if *narrate {
		narrateFindings(context.Background(), logger, repoPath, findings)
	}

	evidenceStore, evStorePath, err := openScanEvidenceStore(repoPath)
	if err != nil {
		logger.Warn("evidence.store.open.error", "err", err)
	}
	if evidenceStore != nil {
		defer evidenceStore.Close()
	}
	snapshot := fmt.Sprintf("scan:%s", repoPath)

	for i := range findings {
		f := &findings[i]
		plan, err := query.New(query.KindTaintProof, []query.Pattern{
			{NodeKind: "Function", FQN: f.Source},
			{NodeKind: "Function", FQN: f.Sink},
		}, query.DefaultBudget())
		if err != nil {
			continue
		}
		plan.PolicyID = f.Policy
		planHash := plan.Hash()

		if !*noCache {
			if _, hit := planCache.Get(planHash); hit {
				logger.Info("plan.cache.hit", "hash", planHash)
			} else {
				planCache.Put(planHash, true, int64(len(f.Path)))
			}
		}

		if evidenceStore == nil {
			continue
		}
		ev := evidence.Evidence{
			EvidenceID: evidence.NewID(),
			Kind:       evidence.KindTaintFlow,
			SnapshotID: snapshot,
			GraphRefs:  evidence.GraphRefs{NodeIDs: resolveNodeIDs(doc, f.Path)},
			RuleID:     f.Policy,
			PlanHash:   planHash,
		}
		if err := evidenceStore.Save(context.Background(), ev); err != nil {
			logger.Warn("evidence.save.error", "err", err)
			continue
		}
		f.EvidenceID = ev.EvidenceID
	}

	if evidenceStore != nil {
		logger.Info("evidence.store.path", "path", evStorePath)
	}

	if err := writeScanOutput(*outputFormat, *outputFile, findings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(scanExitError)
	}

	if *outputFormat == "text" && !globals.Quiet {
		if len(findings) > 0 {
			ui.Warningf("%d finding(s) at or above severity %q", len(findings), *severity)
		} else {
			ui.Success("No findings")
		}
	}

	if len(findings) > 0 {
		os.Exit(scanExitFindings)
	}
	os.Exit(scanExitClean)
}

// buildIR discovers source files under repoPath (honoring excludeGlobs
// and --no-path-verify) and runs them through the incremental driver at
// full tier, returning the resulting IR document.
func buildIR(ctx context.Context, logger *slog.Logger, repoPath string, excludeGlobs []string, skipPathVerify bool, globals GlobalFlags) (*ir.Document, error) {
	loader := ingestion.NewRepoLoader(logger)
	defer loader.Close()

	loaded, err := loader.LoadRepository(ingestion.RepoSource{
		Type:           "local_path",
		Value:          repoPath,
		SkipPathVerify: skipPathVerify,
	}, excludeGlobs, 5*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("load repository: %w", err)
	}

	bar := NewProgressBar(NewProgressConfig(globals), int64(len(loaded.Files)), phaseDescription("parsing"))
	var sources []incremental.Source
	for _, f := range loaded.Files {
		if bar != nil {
			_ = bar.Add(1)
		}
		lang, ok := parser.LanguageFromExtension(filepath.Ext(f.Path))
		if !ok {
			continue // no structural generator for this language yet
		}
		content, err := os.ReadFile(f.FullPath)
		if err != nil {
			logger.Warn("scan.file.read.error", "path", f.FullPath, "err", err)
			continue
		}
		sources = append(sources, incremental.Source{Path: f.Path, Content: content, Language: lang})
	}
	if bar != nil {
		_ = bar.Finish()
	}

	driver := incremental.NewDriver(repoPath, logger)
	statMTime := func(path string) time.Time {
		info, err := os.Stat(filepath.Join(repoPath, path))
		if err != nil {
			return time.Time{}
		}
		return info.ModTime()
	}
	if _, err := driver.Build(ctx, sources, incremental.TierFull, statMTime); err != nil {
		return nil, fmt.Errorf("build IR: %w", err)
	}
	return driver.Document(), nil
}

// compileRules loads and compiles the taint rules at policyPath, going
// through pkg/trcr's content-addressed compilation cache unless
// noCache is set. Caching is keyed on the raw bytes at policyPath when
// it is a single file; a directory policy is keyed on the concatenated
// rule id and severity of each flattened rule spec, a coarser key.
func compileRules(policyPath string, noCache bool) ([]trcr.TaintRuleExecutableIR, error) {
	specs, err := trcr.LoadAtomsYAML(policyPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	compiler := trcr.NewCompilerDefault()
	if noCache {
		return compiler.CompileSpecs(specs)
	}

	content, key := policyCacheKey(policyPath, specs)
	compileCache := trcr.NewCompilationCache(trcr.DefaultCacheConfig(), func() int64 { return time.Now().Unix() })
	if cached, ok := compileCache.Get(key, content); ok {
		return cached, nil
	}

	start := time.Now()
	compiled, err := compiler.CompileSpecs(specs)
	if err != nil {
		return nil, err
	}
	compileCache.Put(key, content, compiled, float64(time.Since(start).Milliseconds()))
	return compiled, nil
}

func policyCacheKey(policyPath string, specs []trcr.TaintRuleSpec) (content []byte, key string) {
	if raw, err := os.ReadFile(policyPath); err == nil {
		return raw, policyPath
	}
	var b strings.Builder
	for _, s := range specs {
		fmt.Fprintf(&b, "%s:%s;", s.RuleID, s.Severity)
	}
	return []byte(b.String()), policyPath
}

// scanFinding is the flattened, output-format-agnostic shape of one
// reported TaintPath.
type scanFinding struct {
	Policy     string
	Severity   string
	Source     string
	Sink       string
	Path       []string
	Confidence float64
	EvidenceID string
	Narrative  string
}

func buildFinding(doc *ir.Document, p trcr.TaintPath, severity string) scanFinding {
	f := scanFinding{
		Policy:     p.RuleID,
		Severity:   severity,
		Path:       p.Path,
		Confidence: p.Confidence,
	}
	if len(p.Path) > 0 {
		f.Source = p.Path[0]
		f.Sink = p.Path[len(p.Path)-1]
	}
	return f
}

// resolveNodeIDs maps a TaintPath's ordered node names to IR node ids
// where a match exists, falling back to the raw name when the IR has no
// node by that name (e.g. an external/unresolved callee).
func resolveNodeIDs(doc *ir.Document, names []string) []string {
	byName := make(map[string]string, len(names))
	for _, n := range doc.AllNodes() {
		if _, ok := byName[n.Name]; !ok {
			byName[n.Name] = n.ID
		}
		if _, ok := byName[n.FQN]; !ok {
			byName[n.FQN] = n.ID
		}
	}
	ids := make([]string, len(names))
	for i, name := range names {
		if id, ok := byName[name]; ok {
			ids[i] = id
		} else {
			ids[i] = name
		}
	}
	return ids
}

// narrateFindings fills in each finding's Narrative field with a
// one-line LLM explanation of its taint path, rate-limited so a large
// finding set never opens more than GlobalMaxConcurrent connections to
// the configured provider at once. Does nothing when llm.enabled is
// false, and only logs a warning when the repository's
// .cie/project.yaml cannot be loaded - --narrate
// is opt-in precisely because it is the one scan step that talks to a
// network collaborator.
func narrateFindings(ctx context.Context, logger *slog.Logger, repoPath string, findings []scanFinding) {
	cfg, err := LoadConfig(ConfigPath(repoPath))
	if err != nil || !cfg.LLM.Enabled {
		if err != nil {
			logger.Warn("narrate.config.unavailable", "err", err)
		}
		return
	}

	provider, err := llm.NewProvider(llm.ProviderConfig{
		Type:         cfg.LLM.Provider,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		DefaultModel: cfg.LLM.Model,
	})
	if err != nil {
		logger.Warn("narrate.provider.error", "err", err)
		return
	}

	limiter := ratelimit.New(ratelimit.DefaultConfig(), time.Now, time.Sleep)
	maxTokens := cfg.LLM.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}

	for i := range findings {
		f := &findings[i]
		release, err := limiter.Acquire(ctx, 1, "cie-scan", cfg.LLM.Model)
		if err != nil {
			logger.Warn("narrate.ratelimit.error", "err", err)
			return
		}
		resp, err := provider.Generate(ctx, llm.GenerateRequest{
			Prompt:    narrativePrompt(*f),
			Model:     cfg.LLM.Model,
			MaxTokens: maxTokens,
		})
		release()
		if err != nil {
			logger.Warn("narrate.generate.error", "rule", f.Policy, "err", err)
			continue
		}
		f.Narrative = strings.TrimSpace(resp.Text)
	}
}

func narrativePrompt(f scanFinding) string {
	return llm.CodePrompt{
		Task: fmt.Sprintf(
			"In one sentence, explain the security impact of tainted data flowing from %q to %q "+
				"(rule %s, severity %s). Path: %s",
			f.Source, f.Sink, f.Policy, f.Severity, strings.Join(f.Path, " -> ")),
	}.Build()
}

func openScanEvidenceStore(repoPath string) (*evidence.Store, string, error) {
	dir := filepath.Join(repoPath, ".cie")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", err
	}
	path := filepath.Join(dir, "evidence.db")
	store, err := evidence.Open(path)
	if err != nil {
		return nil, "", err
	}
	return store, path, nil
}

func writeScanOutput(format, outputFile string, findings []scanFinding) error {
	w := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		return writeScanOutputTo(f, format, findings)
	}
	return writeScanOutputTo(w, format, findings)
}

func writeScanOutputTo(w *os.File, format string, findings []scanFinding) error {
	switch format {
	case "json":
		type jsonFinding struct {
			Policy     string   `json:"policy"`
			Severity   string   `json:"severity"`
			Source     string   `json:"source"`
			Sink       string   `json:"sink"`
			SourceAtom string   `json:"source_atom"`
			SinkAtom   string   `json:"sink_atom"`
			Path       []string `json:"path"`
			EvidenceID string   `json:"evidence_id,omitempty"`
			Narrative  string   `json:"narrative,omitempty"`
		}
		out := make([]jsonFinding, len(findings))
		for i, f := range findings {
			out[i] = jsonFinding{
				Policy: f.Policy, Severity: f.Severity,
				Source: f.Source, Sink: f.Sink,
				SourceAtom: f.Policy, SinkAtom: f.Policy,
				Path: f.Path, EvidenceID: f.EvidenceID, Narrative: f.Narrative,
			}
		}
		return output.JSONTo(w, out)

	case "sarif":
		results := make([]output.SARIFResult, len(findings))
		for i, f := range findings {
			var related []output.SARIFLocation
			for _, step := range f.Path {
				related = append(related, output.SARIFLocation{
					PhysicalLocation: output.SARIFPhysicalLocation{
						ArtifactLocation: output.SARIFArtifactLocation{URI: step},
					},
				})
			}
			msg := fmt.Sprintf("Tainted data flows from %s to %s", f.Source, f.Sink)
			if f.Narrative != "" {
				msg = f.Narrative
			}
			results[i] = output.SARIFResult{
				RuleID: f.Policy,
				Level:  sarifLevel(f.Severity),
				Message: output.SARIFMessage{
					Text: msg,
				},
				Locations: []output.SARIFLocation{{
					PhysicalLocation: output.SARIFPhysicalLocation{
						ArtifactLocation: output.SARIFArtifactLocation{URI: f.Source},
					},
				}},
				RelatedLocations: related,
				Properties: output.SARIFResultProperties{
					EvidenceID: f.EvidenceID,
					Confidence: f.Confidence,
				},
			}
		}
		log := output.NewSARIFLog(output.SARIFRun{
			Tool: output.SARIFTool{Driver: output.SARIFDriver{
				Name:           "cie",
				InformationURI: "https://opencie.dev",
			}},
			Results: results,
		})
		return output.SARIF(w, log)

	default: // "text"
		if len(findings) == 0 {
			fmt.Fprintln(w, "No findings.")
			return nil
		}
		for _, f := range findings {
			fmt.Fprintf(w, "[%s] %s: %s -> %s (confidence %.2f)\n", strings.ToUpper(f.Severity), f.Policy, f.Source, f.Sink, f.Confidence)
			if f.EvidenceID != "" {
				fmt.Fprintf(w, "  evidence: %s\n", f.EvidenceID)
			}
			if f.Narrative != "" {
				fmt.Fprintf(w, "  %s\n", f.Narrative)
			}
		}
		fmt.Fprintf(w, "\n%d finding(s)\n", len(findings))
		return nil
	}
}

func sarifLevel(severity string) string {
	switch severity {
	case "critical", "high":
		return "error"
	case "medium":
		return "warning"
	default:
		return "note"
	}
}
