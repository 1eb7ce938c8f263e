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
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/opencie/cie/internal/ui"
	"github.com/opencie/cie/pkg/incremental"
	"github.com/opencie/cie/pkg/ingestion"
	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/ir/parser"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// runIndex executes the 'index' CLI command, building the structural/SSA
// intermediate representation for the repository and persisting it as a
// snapshot that `cie query` and `cie scan` load without re-parsing.
//
// Flags:
//   - --full: Force TierFull (SSA/DFG for every function, not just ones
//     under the incremental driver's size threshold)
//   - --debug: Enable debug logging (default: false)
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	cie index                  Incremental index (TierExtended)
//	cie index --full           Force TierFull, SSA for every function
func runIndex(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force TierFull: SSA/DFG for every function regardless of size")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cie index [options]

Builds the IR for the current repository using configuration from
.cie/project.yaml and writes a snapshot to ~/.cie/data/<project_id>/.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	tier := incremental.TierExtended
	if *full {
		tier = incremental.TierFull
	}

	if hasData, nodeCount, err := checkLocalData(cfg); err == nil && hasData {
		logger.Info("snapshot.exists", "nodes", nodeCount, "note", "re-indexing will overwrite it")
	}

	queue, err := NewIndexQueue(cfg.ProjectID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot set up index lock: %v\n", err)
		os.Exit(1)
	}
	acquired, err := queue.TryAcquireLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot acquire index lock: %v\n", err)
		os.Exit(1)
	}
	if !acquired {
		info, _ := queue.GetLockInfo()
		if info != nil {
			fmt.Fprintf(os.Stderr, "Error: another index run is already in progress (pid %d, started %s)\n", info.PID, FormatDuration(time.Since(info.StartedAt))+" ago")
		} else {
			fmt.Fprintln(os.Stderr, "Error: another index run is already in progress")
		}
		os.Exit(1)
	}
	defer queue.ReleaseLock()

	if err := runLocalIndex(ctx, logger, cfg, cwd, tier, globals); err != nil {
		fmt.Fprintf(os.Stderr, "Error: indexing failed: %v\n", err)
		os.Exit(1)
	}
}

// checkLocalData reports whether a snapshot already exists for cfg's
// project, and how many nodes it contains.
func checkLocalData(cfg *Config) (bool, int, error) {
	snapshotPath, err := snapshotPath(cfg)
	if err != nil {
		return false, 0, err
	}
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return false, 0, nil
	}
	doc, err := ir.LoadSnapshot(snapshotPath)
	if err != nil {
		return false, 0, err
	}
	return true, len(doc.AllNodes()), nil
}

func snapshotPath(cfg *Config) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cie", "data", cfg.ProjectID, "snapshot.json"), nil
}

// runLocalIndex discovers repository files, builds the IR through the
// incremental driver at the requested tier, and persists the resulting
// document as the project's queryable snapshot.
func runLocalIndex(ctx context.Context, logger *slog.Logger, cfg *Config, repoPath string, tier incremental.Tier, globals GlobalFlags) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	dataDir := filepath.Join(homeDir, ".cie", "data", cfg.ProjectID)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	loader := ingestion.NewRepoLoader(logger)
	defer loader.Close()

	loaded, err := loader.LoadRepository(ingestion.RepoSource{
		Type:  "local_path",
		Value: repoPath,
	}, cfg.Indexing.Exclude, cfg.Indexing.MaxFileSize)
	if err != nil {
		return fmt.Errorf("load repository: %w", err)
	}

	progressCfg := NewProgressConfig(globals)
	bar := NewProgressBar(progressCfg, int64(len(loaded.Files)), phaseDescription("parsing"))

	var sources []incremental.Source
	var parseErrors int
	for _, f := range loaded.Files {
		if bar != nil {
			_ = bar.Add(1)
		}
		lang, ok := parser.LanguageFromExtension(filepath.Ext(f.Path))
		if !ok {
			continue
		}
		content, err := os.ReadFile(f.FullPath)
		if err != nil {
			logger.Warn("index.file.read.error", "path", f.FullPath, "err", err)
			parseErrors++
			continue
		}
		sources = append(sources, incremental.Source{Path: f.Path, Content: content, Language: lang})
	}
	if bar != nil {
		_ = bar.Finish()
	}

	logger.Info("indexing.starting", "project_id", cfg.ProjectID, "repo_path", repoPath, "files", len(sources), "tier", tier)

	start := time.Now()
	driver := incremental.NewDriver(repoPath, logger)
	statMTime := func(path string) time.Time {
		info, err := os.Stat(filepath.Join(repoPath, path))
		if err != nil {
			return time.Time{}
		}
		return info.ModTime()
	}
	spinner := NewSpinner(progressCfg, phaseDescription("building_ir"))
	buildResult, err := driver.Build(ctx, sources, tier, statMTime)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		return fmt.Errorf("build IR: %w", err)
	}
	elapsed := time.Since(start)

	snapshotPath := filepath.Join(dataDir, "snapshot.json")
	if err := ir.SaveSnapshot(snapshotPath, driver.Document()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	printResult(cfg.ProjectID, loaded, driver.Document(), buildResult, parseErrors, elapsed, snapshotPath)
	return nil
}

// printResult prints the indexing result summary to stdout.
func printResult(projectID string, loaded *ingestion.LoadResult, doc *ir.Document, build *incremental.BuildResult, parseErrors int, elapsed time.Duration, snapshotPath string) {
	fmt.Println()
	ui.Header("Indexing Complete")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), projectID)
	fmt.Printf("%s %s\n", ui.Label("Files Processed:"), ui.CountText(loaded.FileCount))
	fmt.Printf("%s %s\n", ui.Label("Nodes:"), ui.CountText(len(doc.AllNodes())))
	fmt.Printf("%s %s\n", ui.Label("Edges:"), ui.CountText(len(doc.AllEdges())))
	fmt.Printf("%s %s\n", ui.Label("Tier:"), build.Tier)
	fmt.Printf("%s %s\n", ui.Label("Files Changed:"), ui.CountText(len(build.Changed)))
	fmt.Printf("%s %s\n", ui.Label("Affected Set:"), ui.CountText(len(build.AffectedSet)))

	if parseErrors > 0 {
		ui.Warningf("%d file(s) could not be read", parseErrors)
	}
	if len(loaded.SkipReasons) > 0 {
		fmt.Println("\nSkipped Files:")
		for reason, count := range loaded.SkipReasons {
			fmt.Printf("  %s: %d\n", reason, count)
		}
	}

	fmt.Printf("\nTotal: %s\n", elapsed)
	ui.Successf("Snapshot: %s", snapshotPath)
	fmt.Println()
}
