package interp

import (
	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/ir"
	"github.com/tinderlang/tinder/value"
)

// exec runs one non-conditional, non-skipped instruction. It reports whether
// it already moved the PC itself (jumps, returns, loop-cursor exits) so step
// knows whether to fall through to PC++.
func (m *Machine) exec(inst *ir.Instruction, src int, arrived bool) (bool, Signal, *TinderError) {
	switch inst.Op {
	case ir.OpLabelHit:
		return m.execLabelHit(inst, src, arrived)
	case ir.OpSet:
		return m.execSet(inst, src)
	case ir.OpInc:
		return m.execIncDec(inst, false, src)
	case ir.OpDec:
		return m.execIncDec(inst, true, src)
	case ir.OpPut:
		return m.execPut(inst, src)
	case ir.OpSwap:
		return m.execSwap(inst, src)
	case ir.OpWrite:
		return m.execWrite(inst, src)
	case ir.OpInput:
		return m.execInput(inst, src)
	case ir.OpCall:
		_, err := m.evalIR(inst.Values[0], src)
		if err != nil {
			return false, Signal{}, err
		}
		return false, Signal{}, nil
	case ir.OpJump:
		return m.execJump(inst, src)
	case ir.OpReturn:
		return m.execReturn(src)
	case ir.OpImport:
		m.PC++
		return true, Signal{Kind: SignalImported, Library: inst.Library, Alias: inst.Alias, Symbols: inst.Symbols}, nil
	case ir.OpConst:
		return m.execConst(inst, src)
	case ir.OpCatch:
		m.Script.Interrupts[inst.Name] = inst.Label
		return false, Signal{}, nil
	case ir.OpYield:
		return m.execYield(inst, src)
	case ir.OpStop:
		return true, Signal{Kind: SignalHalted}, nil
	default:
		return false, Signal{}, m.fatal(src, "unsupported opcode %s", inst.Op)
	}
}

// execLabelHit runs a label anchor: a foreach header always advances its
// cursor (whether reached by fallthrough or by an explicit jump back to the
// top), while a plain or-label only redirects to its fallthrough target when
// execution fell into it rather than arriving by jump.
func (m *Machine) execLabelHit(inst *ir.Instruction, src int, arrived bool) (bool, Signal, *TinderError) {
	lbl := inst.Marker
	if lbl.Loop != nil {
		return m.execLoopCursor(lbl, src)
	}
	if lbl.FallthroughTarget != "" && !arrived {
		target, ok := m.Script.Labels[lbl.FallthroughTarget]
		if !ok {
			return false, Signal{}, m.fatal(src, "unresolved fallthrough target %q", lbl.FallthroughTarget)
		}
		m.jumpTo(target.Index)
		return true, Signal{}, nil
	}
	return false, Signal{}, nil
}

func (m *Machine) execLoopCursor(lbl *ir.Label, src int) (bool, Signal, *TinderError) {
	loop := lbl.Loop
	coll, err := m.evalIR(loop.Coll, src)
	if err != nil {
		return false, Signal{}, err
	}
	length := value.Len(coll)

	idx, seen := m.loopCursors[lbl.Index]
	if seen {
		idx++
	} else {
		idx = 0
	}

	if idx >= length {
		delete(m.loopCursors, lbl.Index)
		exit, ok := m.Script.Labels[loop.ExitLbl]
		if !ok {
			return false, Signal{}, m.fatal(src, "unresolved loop exit label %q", loop.ExitLbl)
		}
		m.jumpTo(exit.Index)
		return true, Signal{}, nil
	}

	key, elem, err := loopCursorKV(coll, idx, src, m)
	if err != nil {
		return false, Signal{}, err
	}

	m.loopCursors[lbl.Index] = idx
	m.Cru.ForceSet("__ITER__", coll)
	m.Cru.ForceSet("__INDEX__", value.Int(int64(idx)))
	m.Cru.ForceSet("__LENGTH__", value.Int(int64(length)))

	if len(loop.Vars) == 2 {
		if err := m.Cru.Set(loop.Vars[0], key); err != nil {
			return false, Signal{}, m.wrapCrucibleErr(err, src)
		}
		if err := m.Cru.Set(loop.Vars[1], elem); err != nil {
			return false, Signal{}, m.wrapCrucibleErr(err, src)
		}
	} else if len(loop.Vars) == 1 {
		if err := m.Cru.Set(loop.Vars[0], elem); err != nil {
			return false, Signal{}, m.wrapCrucibleErr(err, src)
		}
	}
	return false, Signal{}, nil
}

// loopCursorKV returns the (key, element) pair at idx for a foreach
// collection: array index/element, table insertion-order key/value, or
// string index/single-character substring.
func loopCursorKV(coll value.Value, idx int, src int, m *Machine) (value.Value, value.Value, *TinderError) {
	switch c := coll.(type) {
	case *value.Array:
		return value.Int(int64(idx)), c.Elems[idx], nil
	case *value.Table:
		keys := c.Keys()
		k := keys[idx]
		v, _ := c.Get(k)
		return value.String(k), v, nil
	case value.String:
		return value.Int(int64(idx)), value.String(string(c)[idx : idx+1]), nil
	default:
		return nil, nil, m.fatal(src, "foreach requires a sequence or mapping")
	}
}

// execSet implements both Set forms: names zipped with values (the last
// value repeats if there are fewer values than names), and Set ... from,
// which unpacks a sequence or mapping positionally/by name, with missing
// slots becoming none.
func (m *Machine) execSet(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	if inst.From != nil {
		return m.execSetFrom(inst, src)
	}
	vals := make([]value.Value, len(inst.Values))
	for i, ve := range inst.Values {
		v, err := m.evalIR(ve, src)
		if err != nil {
			return false, Signal{}, err
		}
		vals[i] = v
	}
	for i, name := range inst.Names {
		var v value.Value
		switch {
		case i < len(vals):
			v = vals[i]
		case len(vals) > 0:
			v = vals[len(vals)-1]
		default:
			v = value.Nothing
		}
		if err := m.Cru.Set(name, v); err != nil {
			return false, Signal{}, m.wrapCrucibleErr(err, src)
		}
	}
	return false, Signal{}, nil
}

func (m *Machine) execSetFrom(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	from, err := m.evalIR(inst.From, src)
	if err != nil {
		return false, Signal{}, err
	}
	for i, name := range inst.Names {
		var v value.Value
		switch c := from.(type) {
		case *value.Array:
			if i < len(c.Elems) {
				v = c.Elems[i]
			} else {
				v = value.Nothing
			}
		case *value.Table:
			if got, present := c.Get(name); present {
				v = got
			} else {
				v = value.Nothing
			}
		default:
			v = value.Nothing
		}
		if err := m.Cru.Set(name, v); err != nil {
			return false, Signal{}, m.wrapCrucibleErr(err, src)
		}
	}
	return false, Signal{}, nil
}

func (m *Machine) execIncDec(inst *ir.Instruction, dec bool, src int) (bool, Signal, *TinderError) {
	name := inst.Names[0]
	cur, ok := m.Cru.Get(name)
	if !ok {
		return false, Signal{}, m.fatal(src, "missing variable %q", name)
	}
	n, ok := cur.(value.Number)
	if !ok {
		return false, Signal{}, m.fatal(src, "inc/dec requires a number")
	}
	by := value.Int(1)
	if inst.By != nil {
		bv, err := m.evalIR(inst.By, src)
		if err != nil {
			return false, Signal{}, err
		}
		bn, ok := bv.(value.Number)
		if !ok {
			return false, Signal{}, m.fatal(src, "inc/dec amount must be a number")
		}
		by = bn
	}
	isInt := n.IsInt && by.IsInt
	var out value.Value
	if dec {
		if isInt {
			out = value.Int(n.Int64() - by.Int64())
		} else {
			out = value.Float(n.Float() - by.Float())
		}
	} else {
		if isInt {
			out = value.Int(n.Int64() + by.Int64())
		} else {
			out = value.Float(n.Float() + by.Float())
		}
	}
	if err := m.Cru.Set(name, out); err != nil {
		return false, Signal{}, m.wrapCrucibleErr(err, src)
	}
	return false, Signal{}, nil
}

// execPut inserts at the head (Before) or tail of the sequence named by
// inst.Names[0]. A non-sequence target is fatal.
func (m *Machine) execPut(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	name := inst.Names[0]
	v, err := m.evalIR(inst.Values[0], src)
	if err != nil {
		return false, Signal{}, err
	}
	cur, ok := m.Cru.Get(name)
	if !ok {
		return false, Signal{}, m.fatal(src, "missing variable %q", name)
	}
	arr, ok := cur.(*value.Array)
	if !ok {
		return false, Signal{}, m.fatal(src, "put requires %q to be a sequence", name)
	}
	var elems []value.Value
	if inst.Before {
		elems = make([]value.Value, 0, len(arr.Elems)+1)
		elems = append(elems, v)
		elems = append(elems, arr.Elems...)
	} else {
		elems = make([]value.Value, 0, len(arr.Elems)+1)
		elems = append(elems, arr.Elems...)
		elems = append(elems, v)
	}
	if cerr := m.Cru.Set(name, value.NewArray(elems...)); cerr != nil {
		return false, Signal{}, m.wrapCrucibleErr(cerr, src)
	}
	return false, Signal{}, nil
}

// execSwap exchanges the values of two variables atomically.
func (m *Machine) execSwap(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	a, b := inst.Names[0], inst.Names[1]
	av, aok := m.Cru.Get(a)
	if !aok {
		return false, Signal{}, m.fatal(src, "missing variable %q", a)
	}
	bv, bok := m.Cru.Get(b)
	if !bok {
		return false, Signal{}, m.fatal(src, "missing variable %q", b)
	}
	if err := m.Cru.Set(a, bv); err != nil {
		return false, Signal{}, m.wrapCrucibleErr(err, src)
	}
	if err := m.Cru.Set(b, av); err != nil {
		return false, Signal{}, m.wrapCrucibleErr(err, src)
	}
	return false, Signal{}, nil
}

func (m *Machine) writeTarget(to string) string {
	if to == "" {
		return OutputVar
	}
	return to
}

func (m *Machine) appendOutput(target string, s string, src int) *TinderError {
	cur, ok := m.Cru.Get(target)
	var base string
	if ok {
		if cs, ok := cur.(value.String); ok {
			base = string(cs)
		}
	}
	if err := m.Cru.Set(target, value.String(base+s+"\n")); err != nil {
		return m.wrapCrucibleErr(err, src)
	}
	return nil
}

func (m *Machine) execWrite(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	v, err := m.evalIR(inst.Values[0], src)
	if err != nil {
		return false, Signal{}, err
	}
	if werr := m.appendOutput(m.writeTarget(inst.To), coerceString(v), src); werr != nil {
		return false, Signal{}, werr
	}
	return false, Signal{}, nil
}

// execInput writes the prompt like Write, then yields with the target
// variable the host should fill in before the next Run call.
func (m *Machine) execInput(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	v, err := m.evalIR(inst.Values[0], src)
	if err != nil {
		return false, Signal{}, err
	}
	if werr := m.appendOutput(m.writeTarget(""), coerceString(v), src); werr != nil {
		return false, Signal{}, werr
	}
	target := inst.To
	if target == "" {
		target = OutputVar
	}
	m.PC++
	return true, Signal{Kind: SignalYielded, InputTarget: target}, nil
}

func (m *Machine) execYield(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	var v value.Value = value.Nothing
	if len(inst.Values) > 0 {
		var err *TinderError
		v, err = m.evalIR(inst.Values[0], src)
		if err != nil {
			return false, Signal{}, err
		}
	}
	m.PC++
	return true, Signal{Kind: SignalYielded, Value: v}, nil
}

func (m *Machine) execConst(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	v, err := m.evalIR(inst.Values[0], src)
	if err != nil {
		return false, Signal{}, err
	}
	if cerr := m.Cru.DefineConst(inst.Name, v); cerr != nil {
		return false, Signal{}, m.wrapCrucibleErr(cerr, src)
	}
	return false, Signal{}, nil
}

// execJump resolves a static or dynamic target and transfers control there.
// A Structural jump (compiler-synthesized if/loop desugaring) only moves the
// PC; a genuine user jump also pushes the resume point onto __STACK__ and
// sets __JUMPED__.
func (m *Machine) execJump(inst *ir.Instruction, src int) (bool, Signal, *TinderError) {
	var targetIdx int
	if inst.Label != "" {
		if inst.LabelID < 0 {
			return false, Signal{}, m.fatal(src, "jump to unresolved label %q", inst.Label)
		}
		targetIdx = inst.LabelID
	} else {
		idx, err := m.resolveJumpIR(inst.Target, src)
		if err != nil {
			return false, Signal{}, err
		}
		targetIdx = idx
	}
	if !inst.Structural {
		if err := m.pushReturn(m.PC+1, src); err != nil {
			return false, Signal{}, err
		}
		m.Cru.Set("__JUMPED__", value.Bool(true))
	}
	m.jumpTo(targetIdx)
	return true, Signal{}, nil
}

func (m *Machine) resolveJumpIR(e ir.Expr, src int) (int, *TinderError) {
	switch t := e.(type) {
	case ir.ConstExpr:
		return m.jumpTargetFromValue(t.Value, src)
	case ir.TreeExpr:
		return m.resolveJumpExpr(t.Tree.(ast.Expr), src)
	default:
		return 0, m.fatal(src, "malformed jump target")
	}
}

func (m *Machine) pushReturn(pc int, src int) *TinderError {
	cur, _ := m.Cru.Get("__STACK__")
	arr, ok := cur.(*value.Array)
	if !ok {
		arr = value.NewArray()
	}
	if m.MaxReturnDepth > 0 && len(arr.Elems) >= m.MaxReturnDepth {
		return m.fatal(src, "return stack overflow")
	}
	elems := make([]value.Value, 0, len(arr.Elems)+1)
	elems = append(elems, arr.Elems...)
	elems = append(elems, value.Int(int64(pc)))
	m.Cru.Set("__STACK__", value.NewArray(elems...))
	return nil
}

func (m *Machine) execReturn(src int) (bool, Signal, *TinderError) {
	cur, _ := m.Cru.Get("__STACK__")
	arr, ok := cur.(*value.Array)
	if !ok || len(arr.Elems) == 0 {
		return false, Signal{}, m.fatal(src, "return with an empty stack")
	}
	last, ok := arr.Elems[len(arr.Elems)-1].(value.Number)
	if !ok {
		return false, Signal{}, m.fatal(src, "corrupt return stack entry")
	}
	m.Cru.Set("__STACK__", value.NewArray(arr.Elems[:len(arr.Elems)-1]...))
	m.jumpTo(int(last.Int64()))
	return true, Signal{}, nil
}

// wrapCrucibleErr turns a constant-rewrite or protected-write failure into a
// TinderBurn.
func (m *Machine) wrapCrucibleErr(err error, src int) *TinderError {
	return &TinderError{Exception: "TinderBurn", Message: m.loc(src).Format("%s", err.Error()), Location: m.loc(src)}
}
