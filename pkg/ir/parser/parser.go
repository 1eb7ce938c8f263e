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

package parser

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	cieerrors "github.com/opencie/cie/internal/errors"
)

// Language is a recognized source language. The string value is also the
// Node.Language field stamped on every IR node produced from a file of
// that language.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
)

// ParseError reports that a file could not be parsed. The partial tree,
// when the grammar tolerates errors, is still returned to the caller
// alongside this error so structural IR generation can proceed over the
// non-error regions.
type ParseError struct {
	FilePath  string
	FirstSpan string // rendered Span of the first error node, if any
	Count     int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parser: %s: %d syntax error(s), first at %s", e.FilePath, e.Count, e.FirstSpan)
}

// AsUserError renders a ParseError as the structured CLI-facing error.
func (e *ParseError) AsUserError() *cieerrors.UserError {
	return cieerrors.NewParseError(
		fmt.Sprintf("Cannot parse %s", e.FilePath),
		fmt.Sprintf("%d syntax error(s), first at %s", e.Count, e.FirstSpan),
		"Fix the syntax error or add the file to --exclude",
		e,
	)
}

// Parser dispatches source bytes to the matching tree-sitter grammar and
// returns an indexed Tree. Grammars are not safe for concurrent use, so
// one *sitter.Parser is pooled per language.
type Parser struct {
	init sync.Once

	goPool sync.Pool
	pyPool sync.Pool
	jsPool sync.Pool
	tsPool sync.Pool
}

// New returns a ready-to-use Parser. Grammar pools are initialized lazily
// on first Parse call so constructing a Parser is always cheap.
func New() *Parser {
	return &Parser{}
}

func (p *Parser) initPools() {
	p.init.Do(func() {
		p.goPool.New = func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(golang.GetLanguage())
			return sp
		}
		p.pyPool.New = func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(python.GetLanguage())
			return sp
		}
		p.jsPool.New = func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(javascript.GetLanguage())
			return sp
		}
		p.tsPool.New = func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(typescript.GetLanguage())
			return sp
		}
	})
}

func (p *Parser) poolFor(lang Language) (*sync.Pool, error) {
	p.initPools()
	switch lang {
	case LangGo:
		return &p.goPool, nil
	case LangPython:
		return &p.pyPool, nil
	case LangJavaScript:
		return &p.jsPool, nil
	case LangTypeScript:
		return &p.tsPool, nil
	default:
		return nil, fmt.Errorf("parser: unsupported language %q", lang)
	}
}

// Parse parses content as lang and returns an indexed Tree. On a syntax
// error the grammar's own error tolerance decides whether a partial tree
// comes back alongside the returned *ParseError; callers should use the
// partial tree for structural IR generation over the non-error regions
// rather than discarding the file outright.
func (p *Parser) Parse(ctx context.Context, filePath string, lang Language, content []byte) (*Tree, error) {
	pool, err := p.poolFor(lang)
	if err != nil {
		return nil, err
	}
	sp := pool.Get().(*sitter.Parser)
	defer pool.Put(sp)

	raw, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w", filePath, err)
	}

	root := raw.RootNode()
	tree := newTree(filePath, lang, content, raw, root)

	if root.HasError() {
		count, first := countErrorsAndFirst(root)
		if count > 0 {
			return tree, &ParseError{FilePath: filePath, FirstSpan: spanString(first), Count: count}
		}
	}
	return tree, nil
}

// LanguageFromExtension maps a file extension (with or without the
// leading dot) to a Language, or false if the extension is unrecognized.
func LanguageFromExtension(ext string) (Language, bool) {
	switch ext {
	case ".go", "go":
		return LangGo, true
	case ".py", "py":
		return LangPython, true
	case ".js", "js", ".jsx", "jsx", ".mjs", "mjs":
		return LangJavaScript, true
	case ".ts", "ts", ".tsx", "tsx":
		return LangTypeScript, true
	default:
		return "", false
	}
}

func countErrorsAndFirst(n *sitter.Node) (int, *sitter.Node) {
	var count int
	var first *sitter.Node
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.IsError() || node.IsMissing() {
			count++
			if first == nil {
				first = node
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(n)
	return count, first
}

func spanString(n *sitter.Node) string {
	if n == nil {
		return "?"
	}
	start, end := n.StartPoint(), n.EndPoint()
	return fmt.Sprintf("%d:%d-%d:%d", start.Row+1, start.Column, end.Row+1, end.Column)
}
