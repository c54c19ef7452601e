// Package ir defines the executable artifact the compiler produces and the
// interpreter runs: a flat instruction list plus the label, interrupt and
// constant tables that give it meaning. Naming follows the teacher's own
// ir package (Policy/Block/Stmt/Local/Func as a small closed tagged-variant
// set) adapted from a basic-block IR to a flat line list, because Tinder
// has no block structure left by the time the compiler is done with it.
package ir

import "github.com/tinderlang/tinder/value"

// Op names the tagged variant an Instruction carries.
type Op int

const (
	OpWrite Op = iota
	OpCall
	OpSet
	OpInc
	OpDec
	OpPut
	OpSwap
	OpInput
	OpYield
	OpStop
	OpJump
	OpReturn
	OpImport
	OpConst
	OpCatch
	OpLabelHit
)

func (op Op) String() string {
	switch op {
	case OpWrite:
		return "Write"
	case OpCall:
		return "Call"
	case OpSet:
		return "Set"
	case OpInc:
		return "Inc"
	case OpDec:
		return "Dec"
	case OpPut:
		return "Put"
	case OpSwap:
		return "Swap"
	case OpInput:
		return "Input"
	case OpYield:
		return "Yield"
	case OpStop:
		return "Stop"
	case OpJump:
		return "Jump"
	case OpReturn:
		return "Return"
	case OpImport:
		return "Import"
	case OpConst:
		return "Const"
	case OpCatch:
		return "Catch"
	case OpLabelHit:
		return "LabelHit"
	default:
		return "?"
	}
}

// Instruction is one line of executable Tinder: a tagged variant plus an
// optional condition (the trailing `if expr` guard) and the source line it
// was compiled from.
type Instruction struct {
	Op        Op
	Condition Expr // nil if unconditional
	// NegateCondition flips how Condition gates this instruction: the
	// instruction runs when Condition is falsy instead of truthy. Used only
	// by the compiler's if/elseif and for-loop desugaring, where the raw user
	// condition is kept (and written to __CONDITION__ unnegated) while the
	// synthesized skip-jump itself needs the opposite sense.
	NegateCondition bool
	Source          int

	// Operands, populated according to Op. Only the fields relevant to Op
	// are meaningful; the rest are zero.
	Names   []string // Set targets, Swap operands, IncDec/Put name
	Values  []Expr   // Set values, ArgList-style operand lists
	From    Expr     // Set ... from
	Target  Expr     // Jump target, Write/Input "to" resolved at runtime isn't here
	To      string   // Write/Input "to" target name
	By      Expr     // Inc/Dec amount
	Before  bool     // Put position
	Alias   string   // Import alias
	Symbols []string // FromImport symbols
	Library string   // Import/FromImport literal library name, set when static
	Name    string   // Const name, Catch exception name
	Label   string   // Catch/LabelHit/Jump-to-label target label name
	LabelID int      // resolved instruction index, 0 until the compiler resolves labels
	Marker  *Label    // LabelHit's owning label, for fallthrough rewriting

	// Structural marks a Jump the compiler synthesized to desugar an
	// if/elseif/else/for/foreach block rather than a source-level jump
	// statement. Structural jumps move the PC only: they never push the
	// return stack and never touch __JUMPED__, since they have no bearing
	// on a script's own notion of "where did I jump from".
	Structural bool
}

// Expr is the compiled form of an expression: either a folded constant or an
// unevaluated ast-shaped tree the interpreter walks at run time. Folding
// happens once, at compile time, for expressions built entirely from
// literals — nothing that touches a Crucible name is ever foldable, since
// the compiler never has one to consult.
type Expr interface {
	exprIR()
}

// ConstExpr is a compile-time-folded literal.
type ConstExpr struct{ Value value.Value }

func (ConstExpr) exprIR() {}

// TreeExpr wraps an ast.Expr the interpreter evaluates at run time.
type TreeExpr struct{ Tree interface{} } // interface{} to avoid an ast import cycle; interp asserts to ast.Expr

func (TreeExpr) exprIR() {}

// Label names a compiled anchor. FallthroughTarget is the label name an
// `or` label falls through to when reached by execution falling off the
// previous line rather than an explicit jump; loop headers leave it empty.
type Label struct {
	Name              string
	Index             int
	FallthroughTarget string
	Loop              *LoopState
}

// LoopState carries the cursor bookkeeping a foreach/for header label needs
// to re-derive on each pass: the collection expression, the bound variable
// names, and the exit label to jump to once exhausted.
type LoopState struct {
	Kind    string // "for", "while", "foreach", "foreach-kv"
	Vars    []string
	Coll    Expr
	Cond    Expr
	Step    *Instruction
	ExitLbl string
}

// CompiledScript is the executable artifact a Crucible is run against.
// Everything is immutable after compile except Interrupts, which `catch`
// may redeclare at run time.
type CompiledScript struct {
	Lines      []*Instruction
	Labels     map[string]*Label
	Interrupts map[string]string // exception name -> label name
	Constants  []value.Value
	SourceMap  []int // 1:1 with Lines, the original source line number
}

// NewCompiledScript returns an empty script ready for the compiler to
// append to.
func NewCompiledScript() *CompiledScript {
	return &CompiledScript{
		Labels:     make(map[string]*Label),
		Interrupts: make(map[string]string),
	}
}

// Append adds inst to the line table and records its source line, returning
// its resolved index.
func (cs *CompiledScript) Append(inst *Instruction) int {
	idx := len(cs.Lines)
	cs.Lines = append(cs.Lines, inst)
	cs.SourceMap = append(cs.SourceMap, inst.Source)
	return idx
}

// AddConstant interns v into the constant pool and returns its index.
func (cs *CompiledScript) AddConstant(v value.Value) int {
	cs.Constants = append(cs.Constants, v)
	return len(cs.Constants) - 1
}
