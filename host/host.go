// Package host gives a host program a place to register the opaque
// callables a Tinder script calls: the canvas/text/login/realm catalog §1
// describes as outside the core's concern. Grounded on the teacher's
// topdown.RegisterBuiltinFunc/builtinFunctions pattern (topdown/builtins.go)
// — a name-keyed registry a caller populates before running anything —
// adapted from a fixed built-in table to a per-host Library the core never
// looks inside.
package host

import (
	"fmt"

	"github.com/tinderlang/tinder/crucible"
	"github.com/tinderlang/tinder/value"
)

// Library is a named collection of host callables a script can `import`.
// The core never inspects a Library's contents directly; it only asks one
// for the bindings an Import/FromImport instruction requested.
type Library struct {
	Name      string
	callables map[string]*value.Callable
}

// NewLibrary returns an empty Library named name.
func NewLibrary(name string) *Library {
	return &Library{Name: name, callables: make(map[string]*value.Callable)}
}

// Register adds fn under name, marking it Pure when it is statically safe
// (no Crucible reads, no side effects, deterministic given its arguments).
// The compiler does not read the flag: calls are never constant-folded.
func (l *Library) Register(name string, pure bool, fn func(env value.Env, args []value.Value) (value.Value, error)) {
	l.callables[name] = &value.Callable{Name: l.Name + "." + name, Pure: pure, Invoke: fn}
}

// Lookup returns the callable bound to name, or false if this Library
// doesn't export it.
func (l *Library) Lookup(name string) (*value.Callable, bool) {
	c, ok := l.callables[name]
	return c, ok
}

// Symbols lists every name this Library exports, for a `from lib import *`
// style request or for diagnostics.
func (l *Library) Symbols() []string {
	out := make([]string, 0, len(l.callables))
	for name := range l.callables {
		out = append(out, name)
	}
	return out
}

// Catalog is the set of libraries a host makes available, keyed by the
// literal name a script's `import` statement names.
type Catalog struct {
	libs map[string]*Library
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{libs: make(map[string]*Library)}
}

// Add registers lib under its own Name, and also returns the Catalog for
// chaining: catalog.Add(canvas).Add(text).Add(login).
func (c *Catalog) Add(lib *Library) *Catalog {
	c.libs[lib.Name] = lib
	return c
}

// Resolve satisfies an Imported signal: it looks up the requested library
// and, if symbols is non-empty (a `from lib import a, b` request), returns
// only those bindings; an empty symbols list means "the whole library,
// bound under alias".
func (c *Catalog) Resolve(library string, symbols []string) (map[string]value.Value, error) {
	lib, ok := c.libs[library]
	if !ok {
		return nil, fmt.Errorf("no library registered for import %q", library)
	}
	if len(symbols) == 0 {
		out := make(map[string]value.Value, len(lib.callables))
		for name, fn := range lib.callables {
			out[name] = fn
		}
		return out, nil
	}
	out := make(map[string]value.Value, len(symbols))
	for _, sym := range symbols {
		fn, ok := lib.Lookup(sym)
		if !ok {
			return nil, fmt.Errorf("library %q has no symbol %q", library, sym)
		}
		out[sym] = fn
	}
	return out, nil
}

// Apply resolves an Imported signal's request and writes the bindings into
// cru: a whole-library import (no symbols requested) binds one table, named
// by alias or else by the library's own name, so `import math` followed by
// `math.sqrt(16)` resolves through an ordinary dot-chain step; a
// `from lib import a, b` request binds each symbol directly by name.
func (c *Catalog) Apply(cru *crucible.Crucible, library, alias string, symbols []string) error {
	bindings, err := c.Resolve(library, symbols)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		name := alias
		if name == "" {
			name = library
		}
		tbl := value.NewTable()
		for k, v := range bindings {
			tbl.Set(k, v)
		}
		cru.ForceSet(name, tbl)
		return nil
	}
	for name, v := range bindings {
		cru.ForceSet(name, v)
	}
	return nil
}
