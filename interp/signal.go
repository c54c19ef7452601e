// Package interp runs a compiled script against a Crucible: a flat
// fetch-decode-execute loop over ir.Instruction, producing one of four
// observable control signals at each boundary. Grounded on the teacher's
// topdown eval loop (a single step function called in a driving loop, with
// errors and control outcomes threaded back to the caller as typed values
// rather than panics) adapted from a rule-evaluation loop to a line-stepper.
package interp

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/value"
)

// SignalKind tags the reason Run stopped driving the instruction loop.
type SignalKind int

const (
	// SignalNone never escapes Run; it means "keep stepping".
	SignalNone SignalKind = iota
	// SignalImported means an Import instruction ran and the host should
	// resolve the request before the next Run call resumes execution.
	SignalImported
	// SignalYielded means a Yield instruction ran; the host may inspect the
	// Crucible and later resume by calling Run again.
	SignalYielded
	// SignalHalted means the script ran off the end of the line table or hit
	// an explicit Stop.
	SignalHalted
	// SignalBurn means an unrecovered fatal propagated to the host.
	SignalBurn
)

func (k SignalKind) String() string {
	switch k {
	case SignalImported:
		return "Imported"
	case SignalYielded:
		return "Yielded"
	case SignalHalted:
		return "Halted"
	case SignalBurn:
		return "TinderBurn"
	default:
		return "None"
	}
}

// Signal is what Run returns: which boundary was hit, and whatever value
// accompanies it (the yield carry, the import request, or nothing).
type Signal struct {
	Kind  SignalKind
	Value value.Value // Yielded: the carry expression's value, None if bare

	// RunID identifies which Machine produced this signal, so a host
	// multiplexing many script instances can correlate a resume with the
	// run it belongs to.
	RunID uuid.UUID

	// Imported payload.
	Library string
	Alias   string
	Symbols []string

	// Yielded-via-Input payload: the variable the host should fill with the
	// player's answer before calling Run again.
	InputTarget string

	Err *TinderError
}

// TinderError is a fatal's payload: the exception name the interrupt table
// is keyed by, a message, and the source location it was raised at. Every
// built-in fatal uses "TinderBurn" as its exception name; a library may
// raise any other name for a script to catch.
type TinderError struct {
	Exception string
	Message   string
	Location  *ast.Location
}

func (e *TinderError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Exception, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Exception, e.Message)
}
