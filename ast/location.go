// Package ast defines the typed tree produced by the grammar engine over the
// Tinder grammar: directives, statements and expressions.
package ast

import "fmt"

// Location records a position in Tinder source code.
type Location struct {
	Text []byte // the original text fragment from the source
	File string // the name of the source file (may be empty)
	Row  int    // 1-based line in the source
	Col  int    // 1-based column in the row
}

// NewLocation returns a new Location.
func NewLocation(text []byte, file string, row, col int) *Location {
	return &Location{Text: text, File: file, Row: row, Col: col}
}

// String renders the location as "file:row" or "row:col" if file is unset.
func (loc *Location) String() string {
	if loc == nil {
		return "<unknown location>"
	}
	if loc.File != "" {
		return fmt.Sprintf("%s:%d", loc.File, loc.Row)
	}
	return fmt.Sprintf("%d:%d", loc.Row, loc.Col)
}

// Format returns a string prefixed with the location info.
func (loc *Location) Format(f string, a ...interface{}) string {
	return fmt.Sprintf("%s: %s", loc, fmt.Sprintf(f, a...))
}

// Errorf returns an error with a message formatted to include location info.
func (loc *Location) Errorf(f string, a ...interface{}) error {
	return fmt.Errorf("%s", loc.Format(f, a...))
}
