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
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of .cie/project.yaml: the project identity
// plus the settings every subcommand needs (scan exclusions, remote hub
// addresses, optional narrative-generation LLM).
type Config struct {
	ProjectID string          `yaml:"project_id"`
	CIE       CIEConfig       `yaml:"cie"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
}

// CIEConfig names the remote collaborators a project can point at: an
// edge cache HTTP endpoint and a primary hub gRPC address.
type CIEConfig struct {
	EdgeCache  string `yaml:"edge_cache,omitempty"`
	PrimaryHub string `yaml:"primary_hub,omitempty"`
}

// IndexingConfig controls `cie index`/`cie scan`'s file discovery.
type IndexingConfig struct {
	Exclude     []string `yaml:"exclude,omitempty"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// EmbeddingConfig is retained for a future vector-index collaborator;
// `cie index` does not itself generate embeddings.
type EmbeddingConfig struct {
	Provider string `yaml:"provider,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// LLMConfig configures the LLM used to generate narrative explanations
// of scan findings.
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Provider  string `yaml:"provider,omitempty"` // ollama, openai, anthropic, mock
	BaseURL   string `yaml:"base_url,omitempty"`
	Model     string `yaml:"model,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
}

var defaultExcludeGlobs = []string{
	".git/**", ".cie/**", "node_modules/**", "vendor/**",
	"dist/**", "build/**", "*.min.js",
}

// DefaultConfig returns the configuration `cie init` writes for a fresh
// project named projectID.
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID: projectID,
		Indexing: IndexingConfig{
			Exclude:     append([]string(nil), defaultExcludeGlobs...),
			MaxFileSize: 2 << 20,
		},
		Embedding: EmbeddingConfig{Provider: "mock"},
	}
}

// ConfigDir returns the .cie directory under repoPath.
func ConfigDir(repoPath string) string {
	return filepath.Join(repoPath, ".cie")
}

// ConfigPath returns the project.yaml path under repoPath.
func ConfigPath(repoPath string) string {
	return filepath.Join(ConfigDir(repoPath), "project.yaml")
}

// LoadConfig reads and parses .cie/project.yaml. An empty configPath
// resolves relative to the current working directory.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve current directory: %w", err)
		}
		configPath = ConfigPath(cwd)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no configuration at %s - run 'cie init' first", configPath)
		}
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	if cfg.Indexing.MaxFileSize <= 0 {
		cfg.Indexing.MaxFileSize = 2 << 20
	}
	return &cfg, nil
}

// SaveConfig writes cfg as YAML to path.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
