package interp

import (
	"strings"
	"testing"

	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/crucible"
	"github.com/tinderlang/tinder/ir"
	"github.com/tinderlang/tinder/value"
)

func identExpr(name string) ast.Expr {
	return &ast.Ident{Name: &ast.Identifier{Segments: []string{name}}}
}

func tree(name string) ir.Expr {
	return ir.TreeExpr{Tree: identExpr(name)}
}

func cst(v value.Value) ir.Expr {
	return ir.ConstExpr{Value: v}
}

func newMachine(cs *ir.CompiledScript) *Machine {
	return New(cs, crucible.New())
}

func mustHalt(t *testing.T, m *Machine) Signal {
	t.Helper()
	sig := m.Run()
	if sig.Kind != SignalHalted {
		if sig.Err != nil {
			t.Fatalf("expected Halted, got %v: %s", sig.Kind, sig.Err.Message)
		}
		t.Fatalf("expected Halted, got %v", sig.Kind)
	}
	return sig
}

func TestSetAndWriteLinear(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"name"}, Values: []ir.Expr{cst(value.String("Abby"))}, Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpWrite, Values: []ir.Expr{tree("name")}, Source: 2})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 3})

	m := newMachine(cs)
	mustHalt(t, m)

	out, ok := m.Cru.Get(OutputVar)
	if !ok || out.String() != "Abby\n" {
		t.Fatalf("OUTPUT = %v, %v, want %q", out, ok, "Abby\n")
	}
}

func TestSetZipsValuesRepeatingLast(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"a", "b", "c"}, Values: []ir.Expr{cst(value.Int(1))}, Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 2})

	m := newMachine(cs)
	mustHalt(t, m)

	for _, name := range []string{"a", "b", "c"} {
		v, ok := m.Cru.Get(name)
		if !ok || !v.Equal(value.Int(1)) {
			t.Fatalf("%s = %v, %v, want 1, true", name, v, ok)
		}
	}
}

func TestSetFromUnpacksPositionallyWithMissingAsNone(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{
		Op:    ir.OpSet,
		Names: []string{"x", "y", "z"},
		From:  cst(value.NewArray(value.Int(1), value.Int(2))),
		Source: 1,
	})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 2})

	m := newMachine(cs)
	mustHalt(t, m)

	if v, _ := m.Cru.Get("x"); !v.Equal(value.Int(1)) {
		t.Fatalf("x = %v, want 1", v)
	}
	if v, _ := m.Cru.Get("y"); !v.Equal(value.Int(2)) {
		t.Fatalf("y = %v, want 2", v)
	}
	if v, _ := m.Cru.Get("z"); v != value.Nothing {
		t.Fatalf("z = %v, want none", v)
	}
}

func TestPutInsertsBeforeAndAfter(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"items"}, Values: []ir.Expr{cst(value.NewArray(value.String("a"), value.String("b")))}, Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpPut, Names: []string{"items"}, Values: []ir.Expr{cst(value.String("z"))}, Before: false, Source: 2})
	cs.Append(&ir.Instruction{Op: ir.OpPut, Names: []string{"items"}, Values: []ir.Expr{cst(value.String("y"))}, Before: true, Source: 3})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 4})

	m := newMachine(cs)
	mustHalt(t, m)

	v, _ := m.Cru.Get("items")
	arr := v.(*value.Array)
	want := []string{"y", "a", "b", "z"}
	if len(arr.Elems) != len(want) {
		t.Fatalf("items = %v, want %v", arr, want)
	}
	for i, w := range want {
		if arr.Elems[i].String() != w {
			t.Fatalf("items[%d] = %v, want %v", i, arr.Elems[i], w)
		}
	}
}

func TestSwapExchangesValues(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"a", "b"}, Values: []ir.Expr{cst(value.Int(1)), cst(value.Int(2))}, Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpSwap, Names: []string{"a", "b"}, Source: 2})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 3})

	m := newMachine(cs)
	mustHalt(t, m)

	a, _ := m.Cru.Get("a")
	b, _ := m.Cru.Get("b")
	if !a.Equal(value.Int(2)) || !b.Equal(value.Int(1)) {
		t.Fatalf("a, b = %v, %v, want 2, 1", a, b)
	}
}

func TestIncDecPreservesIntAndHonorsBy(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"n"}, Values: []ir.Expr{cst(value.Int(5))}, Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpInc, Names: []string{"n"}, Source: 2})
	cs.Append(&ir.Instruction{Op: ir.OpDec, Names: []string{"n"}, By: cst(value.Int(2)), Source: 3})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 4})

	m := newMachine(cs)
	mustHalt(t, m)

	n, _ := m.Cru.Get("n")
	nn := n.(value.Number)
	if !nn.IsInt || nn.Int64() != 4 {
		t.Fatalf("n = %v, want int 4", n)
	}
}

func TestJumpPushesReturnStackAndReturnResumes(t *testing.T) {
	cs := ir.NewCompiledScript()
	startLbl := &ir.Label{Name: "start", Index: 0}
	cs.Labels["start"] = startLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: startLbl, Source: 1}) // idx0

	cs.Append(&ir.Instruction{Op: ir.OpJump, Label: "sub", LabelID: 4, Structural: false, Source: 2}) // idx1
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"after"}, Values: []ir.Expr{cst(value.Bool(true))}, Source: 3}) // idx2
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 4}) // idx3

	subLbl := &ir.Label{Name: "sub", Index: 4}
	cs.Labels["sub"] = subLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: subLbl, Source: 5}) // idx4
	cs.Append(&ir.Instruction{Op: ir.OpReturn, Source: 6})                  // idx5

	m := newMachine(cs)
	mustHalt(t, m)

	after, ok := m.Cru.Get("after")
	if !ok || !after.Equal(value.Bool(true)) {
		t.Fatalf("expected the jump to resume after itself via return, got %v, %v", after, ok)
	}
	stackVal, _ := m.Cru.Get("__STACK__")
	if arr := stackVal.(*value.Array); len(arr.Elems) != 0 {
		t.Fatalf("__STACK__ should be empty again after the matching return, got %v", arr)
	}
	jumped, _ := m.Cru.Get("__JUMPED__")
	if !jumped.Equal(value.Bool(true)) {
		t.Fatalf("__JUMPED__ should be true after a non-structural jump, got %v", jumped)
	}
}

func TestStructuralJumpNeverTouchesReturnStack(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpJump, Label: "end", LabelID: 2, Structural: true, Source: 1}) // idx0
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"skipped"}, Values: []ir.Expr{cst(value.Bool(true))}, Source: 2}) // idx1
	endLbl := &ir.Label{Name: "end", Index: 2}
	cs.Labels["end"] = endLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: endLbl, Source: 3}) // idx2
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 4})                    // idx3

	m := newMachine(cs)
	mustHalt(t, m)

	if _, ok := m.Cru.Get("skipped"); ok {
		t.Fatalf("structural jump should have skipped the intervening instruction")
	}
	stackVal, _ := m.Cru.Get("__STACK__")
	if arr := stackVal.(*value.Array); len(arr.Elems) != 0 {
		t.Fatalf("a structural jump must never push the return stack, got %v", arr)
	}
	jumped, _ := m.Cru.Get("__JUMPED__")
	if value.Equal(jumped, value.Bool(true)) {
		t.Fatalf("a structural jump must never set __JUMPED__")
	}
}

func TestOrLabelFallthroughOnlyWhenNotArrivedByJump(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"seed"}, Values: []ir.Expr{cst(value.Bool(true))}, Source: 1}) // idx0

	aLbl := &ir.Label{Name: "A", Index: 1, FallthroughTarget: "C"}
	cs.Labels["A"] = aLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: aLbl, Source: 2}) // idx1

	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"via_seq"}, Values: []ir.Expr{cst(value.Bool(true))}, Source: 3}) // idx2
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 4})                                                                     // idx3

	cLbl := &ir.Label{Name: "C", Index: 4}
	cs.Labels["C"] = cLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: cLbl, Source: 5}) // idx4
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"via_c"}, Values: []ir.Expr{cst(value.Bool(true))}, Source: 6}) // idx5
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 7})                                                                   // idx6

	m := newMachine(cs)
	mustHalt(t, m)

	if _, ok := m.Cru.Get("via_seq"); ok {
		t.Fatalf("falling into an or-label should redirect away from the fallthrough body")
	}
	if v, ok := m.Cru.Get("via_c"); !ok || !v.Equal(value.Bool(true)) {
		t.Fatalf("expected fallthrough to reach C, got %v, %v", v, ok)
	}
}

func TestOrLabelFallthroughSuppressedWhenArrivedByJump(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpJump, Label: "A", LabelID: 1, Structural: true, Source: 1}) // idx0

	aLbl := &ir.Label{Name: "A", Index: 1, FallthroughTarget: "C"}
	cs.Labels["A"] = aLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: aLbl, Source: 2}) // idx1

	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"via_seq"}, Values: []ir.Expr{cst(value.Bool(true))}, Source: 3}) // idx2
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 4})                                                                     // idx3

	m := newMachine(cs)
	mustHalt(t, m)

	if v, ok := m.Cru.Get("via_seq"); !ok || !v.Equal(value.Bool(true)) {
		t.Fatalf("arriving at A by jump should not redirect to its fallthrough, got %v, %v", v, ok)
	}
}

func TestForeachLoopCursorAdvancesAndExits(t *testing.T) {
	cs := ir.NewCompiledScript()
	loop := &ir.LoopState{Kind: "foreach", Vars: []string{"item"}, Coll: cst(value.NewArray(value.String("a"), value.String("b"))), ExitLbl: "exit"}
	loopLbl := &ir.Label{Name: "loop", Index: 0, Loop: loop}
	cs.Labels["loop"] = loopLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: loopLbl, Source: 1}) // idx0

	cs.Append(&ir.Instruction{Op: ir.OpWrite, Values: []ir.Expr{tree("item")}, Source: 2}) // idx1
	cs.Append(&ir.Instruction{Op: ir.OpJump, Label: "loop", LabelID: 0, Structural: true, Source: 3}) // idx2

	exitLbl := &ir.Label{Name: "exit", Index: 3}
	cs.Labels["exit"] = exitLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: exitLbl, Source: 4}) // idx3
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 5})                     // idx4

	m := newMachine(cs)
	mustHalt(t, m)

	out, _ := m.Cru.Get(OutputVar)
	if out.String() != "a\nb\n" {
		t.Fatalf("OUTPUT = %q, want %q", out.String(), "a\nb\n")
	}
}

func TestCatchRecoversAndSetsErrorVar(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpCatch, Name: "TinderBurn", Label: "recover", Source: 1}) // idx0
	cs.Append(&ir.Instruction{Op: ir.OpInc, Names: []string{"missing"}, Source: 2})              // idx1, faults
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 3})                                         // idx2, skipped

	recoverLbl := &ir.Label{Name: "recover", Index: 3}
	cs.Labels["recover"] = recoverLbl
	cs.Append(&ir.Instruction{Op: ir.OpLabelHit, Marker: recoverLbl, Source: 4}) // idx3
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 5})                        // idx4

	m := newMachine(cs)
	mustHalt(t, m)

	errVal, ok := m.Cru.Get(ErrorVar)
	if !ok || !strings.Contains(errVal.String(), "missing") {
		t.Fatalf("ERROR = %v, %v, want a message mentioning the missing variable", errVal, ok)
	}
}

func TestUncaughtFaultBurns(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpInc, Names: []string{"missing"}, Source: 1})

	m := newMachine(cs)
	sig := m.Run()
	if sig.Kind != SignalBurn || sig.Err == nil {
		t.Fatalf("expected SignalBurn, got %v", sig.Kind)
	}
}

func TestLineWriteRedirectsControlFlow(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"__LINE__"}, Values: []ir.Expr{cst(value.Int(3))}, Source: 1}) // idx0
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"visited2"}, Values: []ir.Expr{cst(value.Bool(true))}, Source: 2}) // idx1
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"visited3"}, Values: []ir.Expr{cst(value.Bool(true))}, Source: 3}) // idx2
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 3}) // idx3

	m := newMachine(cs)
	mustHalt(t, m)

	if _, ok := m.Cru.Get("visited2"); ok {
		t.Fatalf("writing __LINE__ should have skipped the intervening source line")
	}
	if v, ok := m.Cru.Get("visited3"); !ok || !v.Equal(value.Bool(true)) {
		t.Fatalf("expected control to land on source line 3, got %v, %v", v, ok)
	}
}

func TestLineWriteToUnknownLineBurns(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpSet, Names: []string{"__LINE__"}, Values: []ir.Expr{cst(value.Int(999))}, Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 1})

	m := newMachine(cs)
	sig := m.Run()
	if sig.Kind != SignalBurn {
		t.Fatalf("expected SignalBurn jumping to an unknown line, got %v", sig.Kind)
	}
}

func TestYieldSignalsAndResumeContinues(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpYield, Values: []ir.Expr{cst(value.String("paused"))}, Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 2})

	m := newMachine(cs)
	sig := m.Run()
	if sig.Kind != SignalYielded || !sig.Value.Equal(value.String("paused")) {
		t.Fatalf("expected Yielded carrying \"paused\", got %v %v", sig.Kind, sig.Value)
	}
	mustHalt(t, m)
}

func TestInputYieldsAndFillsTarget(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpInput, Values: []ir.Expr{cst(value.String("name?"))}, To: "REPLY", Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpWrite, Values: []ir.Expr{tree("REPLY")}, Source: 2})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 3})

	m := newMachine(cs)
	sig := m.Run()
	if sig.Kind != SignalYielded || sig.InputTarget != "REPLY" {
		t.Fatalf("expected Yielded awaiting REPLY, got %v %q", sig.Kind, sig.InputTarget)
	}
	if err := m.Cru.Set("REPLY", value.String("Abby")); err != nil {
		t.Fatalf("Set REPLY failed: %v", err)
	}
	mustHalt(t, m)

	out, _ := m.Cru.Get(OutputVar)
	if out.String() != "name?\nAbby\n" {
		t.Fatalf("OUTPUT = %q, want %q", out.String(), "name?\nAbby\n")
	}
}

func TestImportSignalCarriesRequest(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpImport, Library: "math", Alias: "m", Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 2})

	m := newMachine(cs)
	sig := m.Run()
	if sig.Kind != SignalImported || sig.Library != "math" || sig.Alias != "m" {
		t.Fatalf("expected Imported math as m, got %+v", sig)
	}
	mustHalt(t, m)
}

func TestConditionGatesInstructionAndNegation(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{
		Op: ir.OpSet, Names: []string{"ran"}, Values: []ir.Expr{cst(value.Bool(true))},
		Condition: cst(value.Bool(false)), NegateCondition: true, Source: 1,
	})
	cs.Append(&ir.Instruction{
		Op: ir.OpSet, Names: []string{"skipped"}, Values: []ir.Expr{cst(value.Bool(true))},
		Condition: cst(value.Bool(false)), NegateCondition: false, Source: 2,
	})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 3})

	m := newMachine(cs)
	mustHalt(t, m)

	if v, ok := m.Cru.Get("ran"); !ok || !v.Equal(value.Bool(true)) {
		t.Fatalf("a negated false condition should have run the instruction, got %v, %v", v, ok)
	}
	if _, ok := m.Cru.Get("skipped"); ok {
		t.Fatalf("a plain false condition should have skipped the instruction")
	}
	cond, _ := m.Cru.Get("__CONDITION__")
	if !cond.Equal(value.Bool(false)) {
		t.Fatalf("__CONDITION__ should hold the raw unnegated condition, got %v", cond)
	}
}

func TestConstDefinesImmutableBinding(t *testing.T) {
	cs := ir.NewCompiledScript()
	cs.Append(&ir.Instruction{Op: ir.OpConst, Name: "MAX", Values: []ir.Expr{cst(value.Int(10))}, Source: 1})
	cs.Append(&ir.Instruction{Op: ir.OpStop, Source: 2})

	m := newMachine(cs)
	mustHalt(t, m)

	v, ok := m.Cru.Get("MAX")
	if !ok || !v.Equal(value.Int(10)) {
		t.Fatalf("MAX = %v, %v, want 10, true", v, ok)
	}
	if err := m.Cru.Set("MAX", value.Int(20)); err == nil {
		t.Fatalf("expected rewriting a const to fail")
	}
}
