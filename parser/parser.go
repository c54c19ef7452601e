// Package parser is the compile entrypoint's first stage: source text in,
// typed ast.Script out. It owns nothing about grammar mechanics or typed
// tree construction itself — both live in package grammar — it only wires
// the two together and turns a grammar.ParseError into an ast.Error.
package parser

import (
	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/grammar"
)

// Parse compiles source text under the given file name (used only for
// diagnostics) into a Script.
func Parse(source, file string) (*ast.Script, error) {
	g, err := grammar.TinderGrammar()
	if err != nil {
		return nil, err
	}
	root, err := grammar.NewEngine(g).Parse(source)
	if err != nil {
		if pe, ok := err.(*grammar.ParseError); ok {
			loc := ast.NewLocation(nil, file, pe.Row, pe.Col)
			return nil, ast.NewParseError(loc, "%s", pe.Rule)
		}
		return nil, err
	}
	return grammar.Build(root, file)
}
