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
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/internal/ui"
	"github.com/opencie/cie/pkg/ir"
)

// StatusResult represents the project status for JSON output.
type StatusResult struct {
	ProjectID     string         `json:"project_id"`
	SnapshotPath  string         `json:"snapshot_path"`
	Indexed       bool           `json:"indexed"`
	Nodes         int            `json:"nodes"`
	Edges         int            `json:"edges"`
	NodesByKind   map[string]int `json:"nodes_by_kind,omitempty"`
	IndexRunning  bool           `json:"index_running"`
	IndexRunnerPID int           `json:"index_runner_pid,omitempty"`
	Error         string         `json:"error,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, displaying the IR
// snapshot's node/edge counts as written by the most recent `cie index`.
//
// Flags:
//   - --json: Output results as JSON (default: false)
//
// Examples:
//
//	cie status           Display formatted status
//	cie status --json    Output as JSON for programmatic use
func runStatus(args []string, configPath string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cie status [options]

Shows local project status.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		reportStatusError(*jsonOutput, "", err)
		os.Exit(1)
	}

	path, err := snapshotPath(cfg)
	if err != nil {
		reportStatusError(*jsonOutput, cfg.ProjectID, err)
		os.Exit(1)
	}

	result := &StatusResult{ProjectID: cfg.ProjectID, SnapshotPath: path, Timestamp: time.Now()}
	if queue, err := NewIndexQueue(cfg.ProjectID); err == nil {
		if info, _ := queue.GetLockInfo(); info != nil && !queue.IsLockStale() {
			result.IndexRunning = true
			result.IndexRunnerPID = info.PID
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		result.Indexed = false
		result.Error = "Project not indexed yet. Run 'cie index' first."
		if *jsonOutput {
			outputStatusJSON(result)
		} else {
			fmt.Printf("Project '%s' not indexed yet.\n", cfg.ProjectID)
			fmt.Println("Run 'cie index' to index the repository.")
		}
		os.Exit(0)
	}

	doc, err := ir.LoadSnapshot(path)
	if err != nil {
		result.Error = fmt.Sprintf("cannot load snapshot: %v", err)
		if *jsonOutput {
			outputStatusJSON(result)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	result.Indexed = true
	nodes := doc.AllNodes()
	result.Nodes = len(nodes)
	result.Edges = len(doc.AllEdges())
	result.NodesByKind = make(map[string]int)
	for _, n := range nodes {
		result.NodesByKind[string(n.Kind)]++
	}

	if *jsonOutput {
		outputStatusJSON(result)
	} else {
		printLocalStatus(result)
	}
}

func reportStatusError(jsonOutput bool, projectID string, err error) {
	if jsonOutput {
		outputStatusJSON(&StatusResult{ProjectID: projectID, Error: err.Error(), Timestamp: time.Now()})
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// outputStatusJSON writes the status result as formatted JSON to stdout.
func outputStatusJSON(result *StatusResult) {
	_ = output.JSON(result)
}

// printLocalStatus prints the status result as formatted text to stdout.
func printLocalStatus(result *StatusResult) {
	ui.Header("CIE Project Status (Local)")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), result.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Snapshot:"), ui.DimText(result.SnapshotPath))
	fmt.Println()

	ui.SubHeader("Graph:")
	fmt.Printf("  Nodes:         %s\n", ui.CountText(result.Nodes))
	fmt.Printf("  Edges:         %s\n", ui.CountText(result.Edges))
	for kind, count := range result.NodesByKind {
		fmt.Printf("    %-14s %s\n", kind+":", ui.CountText(count))
	}

	if result.IndexRunning {
		ui.Infof("An index run is in progress (pid %d).", result.IndexRunnerPID)
	}

	if result.Error != "" {
		ui.Warning(result.Error)
	}
}
