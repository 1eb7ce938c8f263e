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

package trcr

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleAtoms = `
atoms:
  - id: src.http.query
    kind: source
    match:
      - call: "net/http.Request.FormValue"
    cwe: ["cwe-20"]
    severity: high
    tags: ["input"]
  - id: sink.exec.command
    kind: sink
    match:
      - call: "os/exec.Command"
    cwe: ["cwe-78"]
    severity: critical
  - id: sanitize.shellescape
    kind: sanitizer
    match:
      - call: "shellwords.Escape"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadAtomsYAMLSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "python.atoms.yaml", sampleAtoms)

	specs, err := LoadAtomsYAML(path)
	if err != nil {
		t.Fatalf("LoadAtomsYAML: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}
	if specs[0].Kind != KindSource || specs[0].RuleID != "src.http.query" {
		t.Fatalf("unexpected first spec: %+v", specs[0])
	}
}

func TestLoadAtomsYAMLMissingKindIsError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
atoms:
  - id: no.kind
    match:
      - call: "x"
`)
	_, err := LoadAtomsYAML(path)
	if err == nil {
		t.Fatal("expected an error for a missing 'kind' field")
	}
	loadErrs, ok := err.(*LoadErrors)
	if !ok {
		t.Fatalf("expected *LoadErrors, got %T", err)
	}
	if len(loadErrs.Errors) != 1 {
		t.Fatalf("expected exactly 1 load error, got %d", len(loadErrs.Errors))
	}
}

func TestLoadAtomsYAMLDirectoryDeduplicatesByID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sources.yaml", `
atoms:
  - id: dup.id
    kind: source
    match: [{call: "a"}]
`)
	sub := filepath.Join(dir, "sinks")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "sql.yaml", `
atoms:
  - id: dup.id
    kind: sink
    match: [{call: "b"}]
  - id: unique.sink
    kind: sink
    match: [{call: "c"}]
`)

	specs, err := LoadAtomsYAML(dir)
	if err != nil {
		t.Fatalf("LoadAtomsYAML(dir): %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs after de-duplication (dup.id kept once), got %d", len(specs))
	}
}

func TestLoadAtomsYAMLEmptyMatchIsError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
atoms:
  - id: empty.match
    kind: source
    match: []
`)
	_, err := LoadAtomsYAML(path)
	if err == nil {
		t.Fatal("expected an error for an empty match list")
	}
}

func TestLoadAtomsYAMLMissingMatcherFieldIsError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
atoms:
  - id: no.matcher
    kind: source
    match:
      - severity: high
`)
	_, err := LoadAtomsYAML(path)
	if err == nil {
		t.Fatal("expected an error for a clause with no matcher field")
	}
}
