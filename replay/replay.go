// Package replay is a line-at-a-time script driver: it drives an
// interp.Machine, printing whatever the script wrote to its output variable,
// reading input answers from the terminal and resolving imports against a
// host.Catalog. Grounded on
// the teacher's repl.REPL shape (repl/repl.go) — an io.Writer for output, a
// buffered read loop, a mutex guarding the underlying engine state — scaled
// down from a general expression-evaluation shell to a single compiled
// script's Yielded/Imported resume loop, and built on plain bufio rather
// than a line-editing library (terminal history/completion is out of
// scope).
package replay

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/tinderlang/tinder/host"
	"github.com/tinderlang/tinder/interp"
	"github.com/tinderlang/tinder/value"
)

// Session drives one Machine to completion (or until Stop), printing
// output and soliciting input from in, and resolving imports against
// catalog.
type Session struct {
	Machine *interp.Machine
	Catalog *host.Catalog

	out io.Writer
	in  *bufio.Scanner
	mtx sync.Mutex

	lastOutputLen int
}

// New builds a Session reading input answers from in and writing output to out.
func New(m *interp.Machine, catalog *host.Catalog, in io.Reader, out io.Writer) *Session {
	return &Session{Machine: m, Catalog: catalog, out: out, in: bufio.NewScanner(in)}
}

// Run drives the Machine until it halts or burns, flushing output and
// servicing Yielded/Imported signals along the way.
func (s *Session) Run() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for {
		sig := s.Machine.Run()
		s.flushOutput()

		switch sig.Kind {
		case interp.SignalHalted:
			return nil
		case interp.SignalBurn:
			return sig.Err
		case interp.SignalImported:
			if err := s.Catalog.Apply(s.Machine.Cru, sig.Library, sig.Alias, sig.Symbols); err != nil {
				return err
			}
		case interp.SignalYielded:
			if sig.InputTarget == "" {
				continue
			}
			if !s.in.Scan() {
				return io.EOF
			}
			if err := s.Machine.Cru.Set(sig.InputTarget, value.String(s.in.Text())); err != nil {
				return err
			}
		}
	}
}

// flushOutput prints whatever new text has landed in OUTPUT since the last
// flush.
func (s *Session) flushOutput() {
	cur, ok := s.Machine.Cru.Get(interp.OutputVar)
	if !ok {
		return
	}
	str, ok := cur.(value.String)
	if !ok {
		return
	}
	text := string(str)
	if len(text) <= s.lastOutputLen {
		return
	}
	fmt.Fprint(s.out, text[s.lastOutputLen:])
	s.lastOutputLen = len(text)
}

// Vars returns every name currently bound in the Machine's own Crucible
// frame, dunders included, for a host that wants to inspect live state.
// Run itself reads no inspector commands.
func (s *Session) Vars() map[string]value.Value {
	return s.Machine.Cru.Vars()
}
