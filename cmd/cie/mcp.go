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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/opencie/cie/internal/output"
	"github.com/opencie/cie/pkg/ir"
	"github.com/opencie/cie/pkg/query"
)

// rpcRequest and rpcResponse implement the JSON-RPC 2.0 envelope the MCP
// (Model Context Protocol) stdio transport uses: one request per line,
// one response per line.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// runMCPServer serves CIE's two read tools (query, status) as JSON-RPC
// 2.0 requests read line-by-line from stdin, with one JSON response
// written per line to stdout - the framing Claude Desktop and other MCP
// clients use for a stdio-transport server.
func runMCPServer(configPath string) {
	reader := bufio.NewReader(os.Stdin)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			handleMCPLine(writer, configPath, line)
			writer.Flush()
		}
		if err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "mcp: read error: %v\n", err)
			}
			return
		}
	}
}

func handleMCPLine(w *bufio.Writer, configPath string, line []byte) {
	var req rpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		writeMCPResponse(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
		return
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "status":
		result, err := mcpStatus(configPath)
		if err != nil {
			resp.Error = &rpcError{Code: -32000, Message: err.Error()}
		} else {
			resp.Result = result
		}
	case "query":
		result, err := mcpQuery(configPath, req.Params)
		if err != nil {
			resp.Error = &rpcError{Code: -32000, Message: err.Error()}
		} else {
			resp.Result = result
		}
	default:
		resp.Error = &rpcError{Code: -32601, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
	writeMCPResponse(w, resp)
}

func writeMCPResponse(w *bufio.Writer, resp rpcResponse) {
	_ = output.JSONCompactTo(w, resp)
}

func mcpStatus(configPath string) (map[string]any, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	path, err := snapshotPath(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]any{"project_id": cfg.ProjectID, "indexed": false}, nil
	}
	doc, err := ir.LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"project_id": cfg.ProjectID,
		"indexed":    true,
		"nodes":      len(doc.AllNodes()),
		"edges":      len(doc.AllEdges()),
	}, nil
}

type mcpQueryParams struct {
	Kind        string `json:"kind"`
	FQN         string `json:"fqn"`
	NamePattern string `json:"name_pattern"`
	NodeKind    string `json:"node_kind"`
	FilePath    string `json:"file_path"`
}

func mcpQuery(configPath string, raw json.RawMessage) (map[string]any, error) {
	var params mcpQueryParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	if params.Kind == "" {
		return nil, fmt.Errorf("params.kind is required")
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	path, err := snapshotPath(cfg)
	if err != nil {
		return nil, err
	}
	doc, err := ir.LoadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("project %q not indexed yet: %w", cfg.ProjectID, err)
	}

	plan, err := query.New(query.Kind(params.Kind), []query.Pattern{{
		NodeKind:    params.NodeKind,
		FQN:         params.FQN,
		NamePattern: params.NamePattern,
		FilePath:    params.FilePath,
	}}, query.DefaultBudget())
	if err != nil {
		return nil, err
	}

	result, err := query.Execute(doc, plan)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"nodes":     result.Nodes,
		"edges":     result.Edges,
		"truncated": result.Truncated,
	}, nil
}
