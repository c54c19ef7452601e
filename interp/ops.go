package interp

import (
	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/value"
)

func (m *Machine) evalBinary(n *ast.Binary, src int) (value.Value, *TinderError) {
	switch n.Op {
	case "and":
		x, err := m.eval(n.X, src)
		if err != nil {
			return nil, err
		}
		if !value.Truthy(x) {
			return x, nil
		}
		return m.eval(n.Y, src)

	case "or":
		x, err := m.eval(n.X, src)
		if err != nil {
			return nil, err
		}
		if value.Truthy(x) {
			return x, nil
		}
		return m.eval(n.Y, src)

	case "in", "at", "from":
		x, err := m.evalMemLHS(n.X, src)
		if err != nil {
			return nil, err
		}
		y, err := m.eval(n.Y, src)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "in":
			return value.In(x, y), nil
		case "at":
			return value.At(x, y), nil
		default:
			return value.From(x, y), nil
		}
	}

	x, err := m.eval(n.X, src)
	if err != nil {
		return nil, err
	}
	y, err := m.eval(n.Y, src)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "==":
		return value.Bool(value.Equal(x, y)), nil
	case "!=":
		return value.Bool(!value.Equal(x, y)), nil
	}

	xn, xok := x.(value.Number)
	yn, yok := y.(value.Number)
	if xok && yok {
		return m.evalNumeric(n.Op, xn, yn, src)
	}
	xs, xsok := x.(value.String)
	ys, ysok := y.(value.String)
	if n.Op == "+" {
		if xsok && ysok {
			return value.String(string(xs) + string(ys)), nil
		}
		return nil, m.fatal(src, "+ requires two numbers or two strings")
	}
	switch n.Op {
	case "<", "<=", ">", ">=":
		if xsok && ysok {
			return value.Bool(compareStrings(n.Op, string(xs), string(ys))), nil
		}
	}
	return nil, m.fatal(src, "operator %q is not defined for %s and %s", n.Op, x.Kind(), y.Kind())
}

func compareStrings(op, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func (m *Machine) evalNumeric(op string, x, y value.Number, src int) (value.Value, *TinderError) {
	isInt := x.IsInt && y.IsInt
	switch op {
	case "+":
		if isInt {
			return value.Int(x.Int64() + y.Int64()), nil
		}
		return value.Float(x.Float() + y.Float()), nil
	case "-":
		if isInt {
			return value.Int(x.Int64() - y.Int64()), nil
		}
		return value.Float(x.Float() - y.Float()), nil
	case "*":
		if isInt {
			return value.Int(x.Int64() * y.Int64()), nil
		}
		return value.Float(x.Float() * y.Float()), nil
	case "//":
		if y.Float() == 0 {
			return nil, m.fatal(src, "division by zero")
		}
		if isInt {
			return value.Int(x.Int64() / y.Int64()), nil
		}
		return value.Float(float64(int64(x.Float() / y.Float()))), nil
	case "%":
		if !isInt {
			return nil, m.fatal(src, "%% requires two integers")
		}
		if y.Int64() == 0 {
			return nil, m.fatal(src, "division by zero")
		}
		return value.Int(x.Int64() % y.Int64()), nil
	case "<":
		return value.Bool(x.Float() < y.Float()), nil
	case "<=":
		return value.Bool(x.Float() <= y.Float()), nil
	case ">":
		return value.Bool(x.Float() > y.Float()), nil
	case ">=":
		return value.Bool(x.Float() >= y.Float()), nil
	}
	return nil, m.fatal(src, "operator %q is not defined for numbers", op)
}

// resolveJumpExpr evaluates a Jump's runtime target expression to an
// instruction index. A bare top-level Indirect is resolved with its second
// lookup skipped: in jump position the indirect's inner value is used
// directly as the label name or line index, per the "in a jump position the
// resolved value is used as the jump target" rule.
func (m *Machine) resolveJumpExpr(e ast.Expr, src int) (int, *TinderError) {
	if ind, ok := e.(*ast.Indirect); ok {
		v, err := m.eval(ind.Inner, src)
		if err != nil {
			return 0, err
		}
		return m.jumpTargetFromValue(v, src)
	}
	v, err := m.eval(e, src)
	if err != nil {
		return 0, err
	}
	return m.jumpTargetFromValue(v, src)
}

func (m *Machine) jumpTargetFromValue(v value.Value, src int) (int, *TinderError) {
	switch t := v.(type) {
	case value.String:
		lbl, ok := m.Script.Labels[string(t)]
		if !ok {
			return 0, m.fatal(src, "jump to undefined label %q", string(t))
		}
		return lbl.Index, nil
	case value.Number:
		idx := int(t.Int64())
		if idx < 0 || idx >= len(m.Script.Lines) {
			return 0, m.fatal(src, "jump to out-of-range line %d", idx)
		}
		return idx, nil
	default:
		return 0, m.fatal(src, "malformed jump target (must resolve to a string or number)")
	}
}

func coerceString(v value.Value) string {
	if v == nil {
		return "none"
	}
	return v.String()
}
