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

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/query"
)

// runQuery executes the 'query' CLI command: loads the project's IR
// snapshot (written by `cie index`) and runs a query.Plan against it.
//
// Usage: cie query --kind <Kind> [--fqn X] [--name-pattern RE]
//
//	[--file PATH] [--direction forward|backward] [--json]
func runQuery(args []string, configPath string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	kindFlag := fs.String("kind", "", "Plan kind: Slice, Dataflow, CallChain, DataDependency, ImpactAnalysis, TypeInference, Primitive")
	fqn := fs.String("fqn", "", "Match nodes with this fully-qualified name")
	namePattern := fs.String("name-pattern", "", "Match node names by this regular expression")
	nodeKind := fs.String("node-kind", "", "Match nodes of this kind (e.g. Function, Class, Variable)")
	filePath := fs.String("file", "", "Match nodes declared in this file")
	direction := fs.String("direction", "forward", "Slice direction: forward or backward")
	limit := fs.Int("limit", 0, "Limit the number of rows printed (0 = no limit)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cie query --kind <Kind> [options]

Runs a structural query against the local IR snapshot.

Examples:
  cie query --kind CallChain --fqn pkg.Handler
  cie query --kind ImpactAnalysis --fqn pkg.Query --json
  cie query --kind Slice --direction backward --name-pattern '(?i)password'

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *kindFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: --kind is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		reportQueryError(*jsonOutput, err)
		os.Exit(1)
	}

	snapshotPath, err := snapshotPath(cfg)
	if err != nil {
		reportQueryError(*jsonOutput, err)
		os.Exit(1)
	}
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		reportQueryError(*jsonOutput, fmt.Errorf("project %q not indexed yet. Run 'cie index' first", cfg.ProjectID))
		os.Exit(1)
	}

	doc, err := ir.LoadSnapshot(snapshotPath)
	if err != nil {
		reportQueryError(*jsonOutput, fmt.Errorf("load snapshot: %w", err))
		os.Exit(1)
	}

	sliceDir := query.SliceForward
	if strings.EqualFold(*direction, "backward") {
		sliceDir = query.SliceBackward
	}

	plan, err := query.New(query.Kind(*kindFlag), []query.Pattern{{
		NodeKind:    *nodeKind,
		FQN:         *fqn,
		NamePattern: *namePattern,
		FilePath:    *filePath,
	}}, query.DefaultBudget())
	if err != nil {
		reportQueryError(*jsonOutput, err)
		os.Exit(1)
	}
	plan.SliceDirection = sliceDir

	result, err := query.Execute(doc, plan)
	if err != nil {
		reportQueryError(*jsonOutput, err)
		os.Exit(1)
	}

	nodes := result.Nodes
	if *limit > 0 && len(nodes) > *limit {
		nodes = nodes[:*limit]
	}

	if *jsonOutput {
		outputQueryJSON(result, nodes)
	} else {
		printQueryResult(nodes, result)
	}
}

func reportQueryError(jsonOutput bool, err error) {
	if jsonOutput {
		output.JSONError(err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func outputQueryJSON(result query.Result, nodes []ir.Node) {
	out := map[string]any{
		"nodes":     nodes,
		"edges":     result.Edges,
		"count":     len(nodes),
		"truncated": result.Truncated,
	}
	output.JSON(out)
}

func printQueryResult(nodes []ir.Node, result query.Result) {
	if len(nodes) == 0 {
		fmt.Println("No results")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tFQN\tFILE")
	fmt.Fprintln(w, "----\t----\t---\t----")
	for _, n := range nodes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.Kind, n.Name, truncateCell(n.FQN), truncateCell(n.FilePath))
	}
	w.Flush()

	fmt.Printf("\n(%d nodes, %d edges)\n", len(nodes), len(result.Edges))
	if result.Truncated {
		fmt.Println("(result truncated by plan budget)")
	}
}

func truncateCell(s string) string {
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
