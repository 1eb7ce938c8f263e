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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadError reports a rule document that could not be loaded or
// validated, one entry per offending atom so a caller can report all
// failures in one pass instead of stopping at the first.
type LoadError struct {
	File    string
	Index   int
	RuleID  string
	Message string
}

func (e LoadError) String() string {
	return fmt.Sprintf("%s[%d] (%s): %s", e.File, e.Index, e.RuleID, e.Message)
}

// LoadErrors is returned when one or more atoms in a document failed to
// load; it satisfies error so callers can treat a load as all-or-nothing
// unless they choose to inspect the individual entries.
type LoadErrors struct {
	Errors []LoadError
}

func (e *LoadErrors) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to load %d rule(s):", len(e.Errors))
	for _, le := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(le.String())
	}
	return b.String()
}

type atomsDocument struct {
	Atoms []map[string]any `yaml:"atoms"`
}

// LoadAtomsYAML loads rule specs from a single YAML file or, if path is
// a directory, recursively from every *.yaml file under it (skipping
// files whose basename starts with "_" or "."), deduplicating by
// rule_id across files: the first file in sorted path order wins and
// later duplicates are skipped with no warning or error - mirroring the two directory layouts (flat file, or a
// category tree of sources/sinks/sanitizers/propagators) the rule
// registry supports.
func LoadAtomsYAML(path string) ([]TaintRuleSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("trcr: path not found: %w", err)
	}
	if info.IsDir() {
		return loadAtomsDirectory(path)
	}
	return loadAtomsFile(path)
}

func loadAtomsDirectory(dir string) ([]TaintRuleSpec, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := filepath.Base(p)
		if strings.HasSuffix(p, ".yaml") && !strings.HasPrefix(base, "_") && !strings.HasPrefix(base, ".") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trcr: walk %s: %w", dir, err)
	}
	sort.Strings(files)

	var all []TaintRuleSpec
	seen := make(map[string]bool)
	var loadErrs []LoadError
	for _, f := range files {
		specs, err := loadAtomsFile(f)
		if err != nil {
			var le *LoadErrors
			if ok := asLoadErrors(err, &le); ok {
				loadErrs = append(loadErrs, le.Errors...)
				continue
			}
			loadErrs = append(loadErrs, LoadError{File: f, Message: err.Error()})
			continue
		}
		for _, s := range specs {
			if seen[s.RuleID] {
				continue // duplicate atom id across files: last-file-wins is surprising, skip-and-keep-first is not
			}
			seen[s.RuleID] = true
			all = append(all, s)
		}
	}
	if len(loadErrs) > 0 {
		return all, &LoadErrors{Errors: loadErrs}
	}
	return all, nil
}

func asLoadErrors(err error, target **LoadErrors) bool {
	le, ok := err.(*LoadErrors)
	if ok {
		*target = le
	}
	return ok
}

func loadAtomsFile(path string) ([]TaintRuleSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trcr: read %s: %w", path, err)
	}
	var doc atomsDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("trcr: invalid yaml in %s: %w", path, err)
	}
	if doc.Atoms == nil {
		return nil, fmt.Errorf("trcr: missing 'atoms' key in %s", path)
	}

	var specs []TaintRuleSpec
	var errs []LoadError
	for i, atom := range doc.Atoms {
		spec, err := parseAtom(atom, i, path)
		if err != nil {
			errs = append(errs, LoadError{File: path, Index: i, RuleID: atomRuleID(atom), Message: err.Error()})
			continue
		}
		specs = append(specs, spec)
	}
	if len(errs) > 0 {
		return specs, &LoadErrors{Errors: errs}
	}
	return specs, nil
}

func atomRuleID(atom map[string]any) string {
	if v, ok := atom["id"].(string); ok {
		return v
	}
	return "unknown"
}

func parseAtom(atom map[string]any, index int, file string) (TaintRuleSpec, error) {
	id, _ := atom["id"].(string)
	if id == "" {
		return TaintRuleSpec{}, fmt.Errorf("missing 'id' field")
	}
	kindRaw, _ := atom["kind"].(string)
	if kindRaw == "" {
		return TaintRuleSpec{}, fmt.Errorf("missing 'kind' field")
	}
	kind := RuleKind(kindRaw)
	if !kind.Valid() {
		return TaintRuleSpec{}, fmt.Errorf("invalid kind: %s", kindRaw)
	}

	matchRaw, ok := atom["match"].([]any)
	if !ok || len(matchRaw) == 0 {
		return TaintRuleSpec{}, fmt.Errorf("missing or empty 'match' field")
	}

	clauses := make([]MatchClauseSpec, 0, len(matchRaw))
	for j, cRaw := range matchRaw {
		cMap, ok := cRaw.(map[string]any)
		if !ok {
			return TaintRuleSpec{}, fmt.Errorf("match[%d]: not a mapping", j)
		}
		clause := parseMatchClause(cMap)
		if !clause.HasMatcher() {
			return TaintRuleSpec{}, fmt.Errorf("match[%d]: needs one of call, call_pattern, base_type, base_type_pattern, read", j)
		}
		clauses = append(clauses, clause)
	}

	spec := TaintRuleSpec{
		RuleID:       id,
		AtomID:       id,
		Kind:         kind,
		Match:        clauses,
		CWE:          stringSlice(atom["cwe"]),
		OWASP:        stringVal(atom["owasp"]),
		Frameworks:   stringSlice(atom["frameworks"]),
		Severity:     stringVal(atom["severity"]),
		Tags:         stringSlice(atom["tags"]),
		Description:  stringVal(atom["description"]),
		Scope:        stringVal(atom["scope"]),
		AtomPriority: orDefault(stringVal(atom["atom_priority"]), "normal"),
	}
	if spec.Severity != "" && !validSeverities[spec.Severity] {
		return TaintRuleSpec{}, fmt.Errorf("invalid severity: %s", spec.Severity)
	}
	if !idPattern.MatchString(spec.RuleID) {
		// Warning-grade in the original validator; a compiler-facing
		// loader has no side channel for warnings, so this is recorded
		// on the spec itself for the caller to surface if it wants to.
		spec.UserMetadata = map[string]string{"id_format_warning": "recommended pattern is lowercase, digits, dots, dashes"}
	}
	return spec, nil
}

func parseMatchClause(m map[string]any) MatchClauseSpec {
	c := MatchClauseSpec{
		Call:            stringVal(m["call"]),
		CallPattern:     stringVal(m["call_pattern"]),
		BaseType:        stringVal(m["base_type"]),
		BaseTypePattern: stringVal(m["base_type_pattern"]),
		Read:            stringVal(m["read"]),
		Type:            stringVal(m["type"]),
		ArgName:         stringVal(m["arg_name"]),
	}
	if v, ok := m["arg_index"].(int); ok {
		c.ArgIndex = &v
	}
	return c
}

func stringVal(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, stringVal(e))
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
