// Package crucible implements the host-supplied nested variable environment
// a Tinder script reads and writes. Grounded on the teacher's topdown
// bindings chain (topdown/bindings.go): a small map plus a parent pointer,
// walked child-to-parent on lookup, adapted from term-keyed unification
// bindings to a name-keyed, mutable environment.
package crucible

import (
	"fmt"
	"strings"

	"github.com/tinderlang/tinder/value"
)

// Dunders is the fixed set of reserved interpreter-exposed names.
var Dunders = map[string]bool{
	"__LINE__":      true,
	"__CONDITION__": true,
	"__JUMPED__":    true,
	"__ITER__":      true,
	"__INDEX__":     true,
	"__LENGTH__":    true,
	"__STACK__":     true,
}

// IsDunder reports whether name is bracketed by double underscores.
func IsDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// Error is raised by Set/DefineConst violations: constant rewrite or a
// protected-entry write. The interpreter turns this into a TinderBurn.
type Error struct {
	Name    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("crucible: %s: %s", e.Name, e.Message)
}

// Crucible is a chain of name->Value frames with an optional parent.
type Crucible struct {
	parent    *Crucible
	vars      map[string]value.Value
	consts    map[string]bool
	protected map[string]bool
}

// New creates a root Crucible with no parent.
func New() *Crucible {
	return &Crucible{vars: make(map[string]value.Value)}
}

// Child creates a new frame whose parent is c.
func (c *Crucible) Child() *Crucible {
	return &Crucible{parent: c, vars: make(map[string]value.Value)}
}

// Parent returns the enclosing frame, or nil at the root.
func (c *Crucible) Parent() *Crucible { return c.parent }

// Get walks child->parent and returns the first binding found.
func (c *Crucible) Get(name string) (value.Value, bool) {
	for f := c; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Vars returns a copy of this frame's own bindings (parent frames are not
// included) — used by hosts that want to inspect or snapshot live state,
// such as replay.Session.Vars.
func (c *Crucible) Vars() map[string]value.Value {
	out := make(map[string]value.Value, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// Contains reports whether name is bound anywhere in the chain.
func (c *Crucible) Contains(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// frameOf returns the frame that already defines name, or nil if none does.
func (c *Crucible) frameOf(name string) *Crucible {
	for f := c; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			return f
		}
	}
	return nil
}

// Set writes name, honoring constant/protected rules: a write defaults
// to the nearest frame that already defines the name, else the innermost
// frame. Rewriting a constant or a protected entry is fatal.
func (c *Crucible) Set(name string, v value.Value) error {
	target := c.frameOf(name)
	if target == nil {
		target = c
	}
	if target.consts != nil && target.consts[name] {
		return &Error{Name: name, Message: "cannot rewrite constant"}
	}
	if target.protected != nil && target.protected[name] {
		return &Error{Name: name, Message: "cannot write protected entry"}
	}
	if target.vars == nil {
		target.vars = make(map[string]value.Value)
	}
	target.vars[name] = v
	return nil
}

// DefineConst writes an immutable entry in this frame; redeclaring a name
// already present anywhere in the chain is fatal.
func (c *Crucible) DefineConst(name string, v value.Value) error {
	if c.Contains(name) {
		return &Error{Name: name, Message: "constant already defined"}
	}
	if c.vars == nil {
		c.vars = make(map[string]value.Value)
	}
	if c.consts == nil {
		c.consts = make(map[string]bool)
	}
	c.vars[name] = v
	c.consts[name] = true
	return nil
}

// Protect flags name (in this frame) as host-protected: writeable only by
// the host bypassing Set, never by script instructions.
func (c *Crucible) Protect(name string) {
	if c.protected == nil {
		c.protected = make(map[string]bool)
	}
	if c.vars == nil {
		c.vars = make(map[string]value.Value)
	}
	if _, ok := c.vars[name]; !ok {
		c.vars[name] = value.Nothing
	}
	c.protected[name] = true
}

// ForceSet bypasses constant/protected rules — used by the host to inject
// library bindings after Imported, and by the interpreter to initialize
// and update dunders.
func (c *Crucible) ForceSet(name string, v value.Value) {
	if c.vars == nil {
		c.vars = make(map[string]value.Value)
	}
	c.vars[name] = v
}

// InitDunders sets the interpreter-entry dunder defaults. __CONDITION__ and
// __JUMPED__ are left unset: reading either before a conditional/jump has
// run is a missing-variable fault like any other unset variable, not an
// implicit false.
func (c *Crucible) InitDunders() {
	c.ForceSet("__LINE__", value.Int(0))
	c.ForceSet("__STACK__", value.NewArray())
}
