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

// Package main implements the CIE CLI for indexing repositories and querying
// the Code Intelligence Engine.
//
// Usage:
//
//	cie init                      Create .cie/project.yaml configuration
//	cie index                     Index the current repository
//	cie scan <path> --policy p    Scan path for taint-rule violations
//	cie status [--json]           Show project status
//	cie query --kind K [--json]   Run a structural query against the IR snapshot
//	cie --mcp                     Start as MCP server (JSON-RPC over stdio)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/opencie/cie/internal/ui"
)

// GlobalFlags carries the flags that affect CLI presentation across every
// subcommand: whether progress bars/spinners should render (NewProgressConfig),
// whether color is enabled (ui.InitColors), and the global --verbose level.
type GlobalFlags struct {
	// JSON indicates the active subcommand is producing machine-readable
	// output (e.g. scan --output json, status --json); progress bars must
	// stay off so they don't corrupt the stream.
	JSON bool

	// Quiet suppresses progress bars and spinners outright.
	Quiet bool

	// NoColor disables ANSI color in both progress bars and ui.* output.
	NoColor bool

	// Verbose holds the global --verbose level. No subcommand reads it:
	// scan takes its own --verbose flag and index its own --debug flag.
	Verbose int
}

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Global flags
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		mcpMode     = flag.Bool("mcp", false, "Start as MCP server (JSON-RPC over stdio)")
		configPath  = flag.String("config", "", "Path to .cie/project.yaml (default: ./.cie/project.yaml)")
		quiet       = flag.Bool("quiet", false, "Suppress progress bars and spinners")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		verbose     = flag.Int("verbose", 0, "Global verbosity level (unused; see scan --verbose, index --debug)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `CIE - Code Intelligence Engine CLI (Standalone)

Usage:
  cie <command> [options]

Commands:
  init          Create .cie/project.yaml configuration
  index         Index the current repository
  scan          Scan a path for taint-rule violations (exit 0/1/2)
  status        Show project status
  query         Run a structural query against the IR snapshot
  reset         Reset local project data (destructive!)
  install-hook  Install git post-commit hook for auto-indexing
  completion    Generate a shell completion script (bash, zsh, fish)

Global Options:
  --mcp         Start as MCP server (JSON-RPC over stdio)
  --config      Path to .cie/project.yaml
  --version     Show version and exit
  --quiet       Suppress progress bars and spinners
  --no-color    Disable colored output
  --verbose     Global verbosity level (unused; see scan --verbose, index --debug)

Examples:
  cie init                           Create configuration interactively
  cie index                          Index current repository
  cie index --full                   Force full re-index
  cie scan . --policy rules/         Scan current repo against rules/
  cie scan . --policy r.yaml --output sarif --output-file out.sarif
  cie status                         Show project status
  cie status --json                  Output as JSON (for MCP)
  cie query --kind CallChain --fqn pkg.Handler
  cie --mcp                          Start as MCP server

Data Storage:
  Data is stored locally in ~/.cie/data/<project_id>/

`)
	}

	flag.Parse()

	ui.InitColors(*noColor)
	globals := GlobalFlags{Quiet: *quiet, NoColor: *noColor, Verbose: *verbose}

	if *showVersion {
		fmt.Printf("cie version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	// MCP mode takes precedence
	if *mcpMode {
		runMCPServer(*configPath)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "index":
		runIndex(cmdArgs, *configPath, globals)
	case "scan":
		runScan(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, *configPath)
	case "query":
		runQuery(cmdArgs, *configPath)
	case "reset":
		runReset(cmdArgs, *configPath)
	case "install-hook":
		runInstallHook(cmdArgs, *configPath)
	case "completion":
		runCompletion(cmdArgs, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
