package interp

import (
	"github.com/google/uuid"

	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/crucible"
	"github.com/tinderlang/tinder/ir"
	"github.com/tinderlang/tinder/metrics"
	"github.com/tinderlang/tinder/tinderlog"
	"github.com/tinderlang/tinder/value"
)

// OutputVar is the conventional (non-dunder) Crucible variable Write/Input
// append to when no explicit "to var" clause names another. Which variable
// backs the script's visible output is a host decision; this is simply the
// default every compiled script is given.
const OutputVar = "OUTPUT"

// ErrorVar is the conventional variable a caught fault's message is written
// to immediately before the interrupt table redirects the PC to the catch
// label — the "exception object... made available via a dunder" the
// propagation rules describe, resolved as a plain host-visible name rather
// than a new reserved dunder, the same way OutputVar resolves the default
// output sink.
const ErrorVar = "ERROR"

// Machine drives one CompiledScript against one Crucible. It is cheap to
// construct and safe to Run repeatedly across Yielded/Imported re-entries —
// all cursor and return-stack state lives in the Crucible itself or in the
// Machine's own fields, never on a call stack the host would need to keep
// alive.
type Machine struct {
	Script *ir.CompiledScript
	Cru    *crucible.Crucible
	PC     int

	// RunID tags every log line and Imported/Yielded signal payload, so a
	// host multiplexing many script instances can correlate a resume with
	// the run it belongs to.
	RunID uuid.UUID

	// Log receives structured diagnostics for signal transitions and catch
	// hits. Defaults to tinderlog.NoOp() so a Machine is usable with zero
	// setup.
	Log tinderlog.Logger

	// File names the source file for diagnostics only.
	File string
	// MaxSteps bounds the number of instructions a single Run call may
	// execute before raising TinderBurn. 0 means unbounded.
	MaxSteps int
	// MaxReturnDepth bounds __STACK__'s length; a Jump that would grow it
	// past this raises TinderBurn instead of pushing. 0 means unbounded.
	MaxReturnDepth int

	cache         *crucible.IndirectCache
	sourceToPC    map[int]int // first instruction index for a given source line
	steps         int
	arrivedByJump bool
	loopCursors   map[int]int // loop label instruction index -> last cursor served
}

// New builds a Machine ready to Run cs against cru from the top. Dunders are
// initialized on cru as a side effect.
func New(cs *ir.CompiledScript, cru *crucible.Crucible) *Machine {
	m := &Machine{
		Script:      cs,
		Cru:         cru,
		RunID:       uuid.New(),
		Log:         tinderlog.NoOp(),
		cache:       crucible.NewIndirectCache(256),
		sourceToPC:  make(map[int]int),
		loopCursors: make(map[int]int),
	}
	for i, src := range cs.SourceMap {
		if _, ok := m.sourceToPC[src]; !ok {
			m.sourceToPC[src] = i
		}
	}
	cru.InitDunders()
	return m
}

func (m *Machine) loc(src int) *ast.Location {
	return ast.NewLocation(nil, m.File, src, 1)
}

func (m *Machine) fatal(src int, format string, args ...interface{}) *TinderError {
	return &TinderError{Exception: "TinderBurn", Message: m.loc(src).Format(format, args...), Location: m.loc(src)}
}

// jumpTo moves the PC via an explicit transfer (as opposed to falling
// through to PC+1), marking the next LabelHit as jump-arrived so or-label
// fallthrough redirection is skipped for it.
func (m *Machine) jumpTo(idx int) {
	m.PC = idx
	m.arrivedByJump = true
}

// Run steps the instruction table until a boundary signal is produced:
// Imported, Yielded, Halted or TinderBurn. Call it again after handling the
// signal (injecting an import's bindings, delivering an input's carry) to
// resume exactly where execution left off.
func (m *Machine) Run() Signal {
	startSteps := m.steps
	for {
		if m.MaxSteps > 0 && m.steps-startSteps >= m.MaxSteps {
			metrics.ObserveBudgetExhausted()
			return m.finishRun(startSteps, Signal{Kind: SignalBurn, Err: m.fatal(m.curSource(), "instruction budget exhausted")})
		}
		if m.PC < 0 || m.PC >= len(m.Script.Lines) {
			return m.finishRun(startSteps, Signal{Kind: SignalHalted})
		}
		sig := m.step()
		if sig.Kind != SignalNone {
			return m.finishRun(startSteps, sig)
		}
	}
}

func (m *Machine) finishRun(startSteps int, sig Signal) Signal {
	sig.RunID = m.RunID
	metrics.ObserveRun(m.steps - startSteps)
	metrics.ObserveSignal(sig.Kind.String())
	m.Log.WithFields(tinderlog.SignalFields("interp", m.curSource(), sig.Kind.String())).
		WithField("run_id", m.RunID).Debug("run boundary")
	return sig
}

func (m *Machine) curSource() int {
	if m.PC >= 0 && m.PC < len(m.Script.SourceMap) {
		return m.Script.SourceMap[m.PC]
	}
	return 0
}

func (m *Machine) step() Signal {
	arrived := m.arrivedByJump
	m.arrivedByJump = false

	inst := m.Script.Lines[m.PC]
	src := m.Script.SourceMap[m.PC]
	m.steps++
	m.Cru.ForceSet("__LINE__", value.Int(int64(src)))

	run := true
	if inst.Condition != nil {
		condVal, err := m.evalIR(inst.Condition, src)
		if err != nil {
			return m.raise(err)
		}
		truthy := value.Truthy(condVal)
		m.Cru.Set("__CONDITION__", value.Bool(truthy))
		if inst.NegateCondition {
			run = !truthy
		} else {
			run = truthy
		}
	}

	if !run {
		m.PC++
		return Signal{}
	}

	advanced, sig, err := m.exec(inst, src, arrived)
	if err != nil {
		return m.raise(err)
	}
	if sig.Kind != SignalNone {
		return sig
	}
	if !advanced {
		if lineSig, jumped := m.checkLineJump(src); jumped {
			return lineSig
		}
		m.PC++
	}
	return Signal{}
}

// checkLineJump is the dynamic-jump primitive: writing __LINE__ (via an
// ordinary `set __LINE__ to expr`) redirects control to that source line's
// first instruction instead of falling through to PC+1. Instructions that
// transfer control themselves (Jump, Return, Import, Yield, Stop, a
// foreach header's exit jump) report advanced=true and never reach this
// check, so they can't be second-guessed by a __LINE__ that ForceSet itself
// wrote moments earlier at the top of step.
func (m *Machine) checkLineJump(src int) (Signal, bool) {
	cur, ok := m.Cru.Get("__LINE__")
	if !ok {
		return Signal{}, false
	}
	n, ok := cur.(value.Number)
	if !ok {
		return Signal{}, false
	}
	newSrc := int(n.Int64())
	if newSrc == src {
		return Signal{}, false
	}
	idx, ok := m.sourceToPC[newSrc]
	if !ok {
		return Signal{Kind: SignalBurn, Err: m.fatal(src, "__LINE__ set to unknown source line %d", newSrc)}, true
	}
	m.jumpTo(idx)
	return Signal{}, true
}

// raise consults the interrupt table for err.Exception: if a catch label is
// registered, the error becomes a plain jump inside the running Machine (the
// host never sees it) and execution continues; otherwise it propagates as
// SignalBurn.
func (m *Machine) raise(err *TinderError) Signal {
	if label, ok := m.Script.Interrupts[err.Exception]; ok {
		if lbl, ok2 := m.Script.Labels[label]; ok2 {
			metrics.ObserveCatch(err.Exception)
			m.Log.WithFields(tinderlog.LabelFields("interp", m.curSource(), label)).
				WithField("run_id", m.RunID).Debug("fault recovered by catch table")
			m.Cru.Set(ErrorVar, value.String(err.Message))
			m.jumpTo(lbl.Index)
			return Signal{}
		}
	}
	return Signal{Kind: SignalBurn, Err: err}
}
