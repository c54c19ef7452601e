package ast

import "fmt"

// Error is a parse or compile-time diagnostic carrying a source location.
// Grounded on the teacher's topdown.Error{Code, Message, Location} shape.
type Error struct {
	Code     string
	Message  string
	Location *Location
}

const (
	// ParseErr is a grammar-match failure.
	ParseErr = "parse_error"
	// CompileErr covers unresolved labels, duplicate constants and malformed
	// directives.
	CompileErr = "compile_error"
)

func (e *Error) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewParseError builds a ParseErr at loc.
func NewParseError(loc *Location, format string, args ...interface{}) *Error {
	return &Error{Code: ParseErr, Message: fmt.Sprintf(format, args...), Location: loc}
}

// NewCompileError builds a CompileErr at loc.
func NewCompileError(loc *Location, format string, args ...interface{}) *Error {
	return &Error{Code: CompileErr, Message: fmt.Sprintf(format, args...), Location: loc}
}

// Errors is a list of Error, implementing error so multiple diagnostics can
// be reported from a single compile.
type Errors []*Error

func (errs Errors) Error() string {
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	s := fmt.Sprintf("%d errors occurred:\n", len(errs))
	for _, e := range errs {
		s += "\t" + e.Error() + "\n"
	}
	return s
}
