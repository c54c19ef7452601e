package compiler

import (
	"testing"

	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/crucible"
	"github.com/tinderlang/tinder/interp"
	"github.com/tinderlang/tinder/ir"
	"github.com/tinderlang/tinder/value"
)

func ident(name string) *ast.Identifier {
	return &ast.Identifier{Segments: []string{name}}
}

func identExpr(name string) ast.Expr {
	return &ast.Ident{Name: ident(name)}
}

func lit(raw interface{}) ast.Expr {
	return &ast.Literal{Raw: raw}
}

func binary(op string, x, y ast.Expr) ast.Expr {
	return &ast.Binary{Op: op, X: x, Y: y}
}

// TestCompileLinearSetAndWrite builds "set a to 2" / "set b to a + 3" /
// "write b" directly as an ast.Script (bypassing the grammar entirely) and
// runs the compiled result end to end, matching literal scenario 1 from the
// testable-properties list: a linear set/write chain producing a single
// write.
func TestCompileLinearSetAndWrite(t *testing.T) {
	script := &ast.Script{Lines: []*ast.Line{
		{Node: &ast.Set{Names: []*ast.Identifier{ident("a")}, Values: []ast.Expr{lit(int64(2))}}, Source: 1},
		{Node: &ast.Set{Names: []*ast.Identifier{ident("b")}, Values: []ast.Expr{binary("+", identExpr("a"), lit(int64(3)))}}, Source: 2},
		{Node: &ast.Write{Value: identExpr("b")}, Source: 3},
	}}

	cs, err := Compile(script, "linear.tinder")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(cs.Lines) != 3 {
		t.Fatalf("expected 3 compiled instructions, got %d", len(cs.Lines))
	}
	if cs.Lines[0].Op != ir.OpSet || cs.Lines[2].Op != ir.OpWrite {
		t.Fatalf("unexpected opcodes: %v, %v", cs.Lines[0].Op, cs.Lines[2].Op)
	}

	m := interp.New(cs, crucible.New())
	sig := m.Run()
	if sig.Kind != interp.SignalHalted {
		if sig.Err != nil {
			t.Fatalf("expected Halted, got %v: %s", sig.Kind, sig.Err.Message)
		}
		t.Fatalf("expected Halted, got %v", sig.Kind)
	}

	out, ok := m.Cru.Get(interp.OutputVar)
	if !ok || out.String() != "5\n" {
		t.Fatalf("OUTPUT = %v, %v, want %q", out, ok, "5\n")
	}
}

// TestCompileConstRewriteFault mirrors literal scenario 5: a const followed
// by an attempted rewrite is fatal.
func TestCompileConstRewriteFault(t *testing.T) {
	script := &ast.Script{Lines: []*ast.Line{
		{Node: &ast.Const{Name: "MAX", Value: lit(int64(5))}, Source: 1},
		{Node: &ast.Set{Names: []*ast.Identifier{ident("MAX")}, Values: []ast.Expr{lit(int64(6))}}, Source: 2},
	}}

	cs, err := Compile(script, "const.tinder")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	m := interp.New(cs, crucible.New())
	sig := m.Run()
	if sig.Kind != interp.SignalBurn {
		t.Fatalf("expected a TinderBurn rewriting a constant, got %v", sig.Kind)
	}
}

// TestCompileConstRewriteRecoveredByCatch mirrors literal scenario 5's catch
// variant: the same fault, but with a preceding catch clause, redirects to
// the handler label instead of propagating.
func TestCompileConstRewriteRecoveredByCatch(t *testing.T) {
	script := &ast.Script{Lines: []*ast.Line{
		{Node: &ast.Catch{Exception: "TinderBurn", Label: "h"}, Source: 1},
		{Node: &ast.Const{Name: "MAX", Value: lit(int64(5))}, Source: 2},
		{Node: &ast.Set{Names: []*ast.Identifier{ident("MAX")}, Values: []ast.Expr{lit(int64(6))}}, Source: 3},
		{Node: &ast.Stop{}, Source: 4},
		{Node: &ast.Label{Name: "h"}, Source: 5},
		{Node: &ast.Set{Names: []*ast.Identifier{ident("recovered")}, Values: []ast.Expr{lit(true)}}, Source: 6},
	}}

	cs, err := Compile(script, "const_catch.tinder")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	m := interp.New(cs, crucible.New())
	sig := m.Run()
	if sig.Kind != interp.SignalHalted {
		if sig.Err != nil {
			t.Fatalf("expected Halted after recovery, got %v: %s", sig.Kind, sig.Err.Message)
		}
		t.Fatalf("expected Halted after recovery, got %v", sig.Kind)
	}
	v, ok := m.Cru.Get("recovered")
	if !ok || !v.Equal(value.Bool(true)) {
		t.Fatalf("expected the catch handler to have run, recovered = %v, %v", v, ok)
	}
}

// TestCompileConstRewriteFaultWhenCatchFollows checks that a catch clause
// does not protect a fault that occurs before the catch instruction itself
// has run: the catch table entry is installed by executing OpCatch, not by
// compiling it, so a catch placed after the faulting line never sees it.
func TestCompileConstRewriteFaultWhenCatchFollows(t *testing.T) {
	script := &ast.Script{Lines: []*ast.Line{
		{Node: &ast.Const{Name: "MAX", Value: lit(int64(5))}, Source: 1},
		{Node: &ast.Set{Names: []*ast.Identifier{ident("MAX")}, Values: []ast.Expr{lit(int64(6))}}, Source: 2},
		{Node: &ast.Catch{Exception: "TinderBurn", Label: "h"}, Source: 3},
		{Node: &ast.Stop{}, Source: 4},
		{Node: &ast.Label{Name: "h"}, Source: 5},
		{Node: &ast.Set{Names: []*ast.Identifier{ident("recovered")}, Values: []ast.Expr{lit(true)}}, Source: 6},
	}}

	cs, err := Compile(script, "const_catch_late.tinder")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	m := interp.New(cs, crucible.New())
	sig := m.Run()
	if sig.Kind != interp.SignalBurn {
		t.Fatalf("expected the fault to propagate uncaught since catch follows it, got %v", sig.Kind)
	}
}

// TestCompileOrLabelFallthrough mirrors literal scenario 4.
func TestCompileOrLabelFallthrough(t *testing.T) {
	script := &ast.Script{Lines: []*ast.Line{
		{Node: &ast.Label{Name: "end", Or: "retry"}, Source: 1},
		{Node: &ast.Stop{}, Source: 2},
		{Node: &ast.Label{Name: "retry"}, Source: 3},
		{Node: &ast.Write{Value: lit("again")}, Source: 4},
	}}

	cs, err := Compile(script, "orlabel.tinder")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	m := interp.New(cs, crucible.New())
	sig := m.Run()
	if sig.Kind != interp.SignalHalted {
		if sig.Err != nil {
			t.Fatalf("expected Halted, got %v: %s", sig.Kind, sig.Err.Message)
		}
		t.Fatalf("expected Halted, got %v", sig.Kind)
	}
	out, ok := m.Cru.Get(interp.OutputVar)
	if !ok || out.String() != "again\n" {
		t.Fatalf("OUTPUT = %v, %v, want %q", out, ok, "again\n")
	}
}

// TestCompileIfElseDesugaring exercises the if/else/endif lowering described
// for the compiler: only the taken branch's body executes.
func TestCompileIfElseDesugaring(t *testing.T) {
	script := &ast.Script{Lines: []*ast.Line{
		{Node: &ast.If{Cond: lit(false)}, Source: 1},
		{Node: &ast.Set{Names: []*ast.Identifier{ident("branch")}, Values: []ast.Expr{lit("then")}}, Source: 2},
		{Node: &ast.Else{}, Source: 3},
		{Node: &ast.Set{Names: []*ast.Identifier{ident("branch")}, Values: []ast.Expr{lit("else")}}, Source: 4},
		{Node: &ast.EndIf{}, Source: 5},
	}}

	cs, err := Compile(script, "ifelse.tinder")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	m := interp.New(cs, crucible.New())
	sig := m.Run()
	if sig.Kind != interp.SignalHalted {
		if sig.Err != nil {
			t.Fatalf("expected Halted, got %v: %s", sig.Kind, sig.Err.Message)
		}
		t.Fatalf("expected Halted, got %v", sig.Kind)
	}
	v, ok := m.Cru.Get("branch")
	if !ok || v.String() != "else" {
		t.Fatalf("branch = %v, %v, want %q", v, ok, "else")
	}
}
