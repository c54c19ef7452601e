package compiler

import (
	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/ir"
	"github.com/tinderlang/tinder/value"
)

// compileExpr lowers e to an ir.Expr, folding it to a ConstExpr when it is
// built entirely from literals (no identifiers, calls or indirects — those
// require a Crucible the compiler never sees).
func (c *compiler) compileExpr(e ast.Expr) ir.Expr {
	if v, ok := foldExpr(e); ok {
		return ir.ConstExpr{Value: v}
	}
	return ir.TreeExpr{Tree: e}
}

// foldExpr attempts to statically evaluate e. It only ever succeeds on a
// subtree made of Literals, Groups, array literals and Unary/Binary
// operators over such subtrees — anything touching a Crucible name, a call or an indirect is
// left for the interpreter.
func foldExpr(e ast.Expr) (value.Value, bool) {
	switch n := e.(type) {
	case *ast.Literal:
		return literalValue(n.Raw), true

	case *ast.Group:
		return foldExpr(n.X)

	case *ast.Unary:
		x, ok := foldExpr(n.X)
		if !ok {
			return nil, false
		}
		return foldUnary(n.Op, x)

	case *ast.Binary:
		x, ok := foldExpr(n.X)
		if !ok {
			return nil, false
		}
		y, ok := foldExpr(n.Y)
		if !ok {
			return nil, false
		}
		return foldBinary(n.Op, x, y)

	case *ast.ArrayLit:
		elems := make([]value.Value, len(n.Elems))
		for i, el := range n.Elems {
			v, ok := foldExpr(el)
			if !ok {
				return nil, false
			}
			elems[i] = v
		}
		return value.NewArray(elems...), true

	default:
		return nil, false
	}
}

func literalValue(raw interface{}) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Nothing
	case bool:
		return value.Bool(v)
	case int64:
		return value.Int(v)
	case float64:
		return value.Float(v)
	case string:
		return value.String(v)
	default:
		return value.Nothing
	}
}

func foldUnary(op string, x value.Value) (value.Value, bool) {
	switch op {
	case "!":
		return value.Bool(!value.Truthy(x)), true
	case "-":
		n, ok := x.(value.Number)
		if !ok {
			return nil, false
		}
		if n.IsInt {
			return value.Int(-n.Int64()), true
		}
		return value.Float(-n.F), true
	default:
		return nil, false
	}
}

func foldBinary(op string, x, y value.Value) (value.Value, bool) {
	switch op {
	case "and":
		if !value.Truthy(x) {
			return x, true
		}
		return y, true
	case "or":
		if value.Truthy(x) {
			return x, true
		}
		return y, true
	case "==":
		return value.Bool(x.Equal(y)), true
	case "!=":
		return value.Bool(!x.Equal(y)), true
	case "in":
		return value.In(x, y), true
	case "at":
		return value.At(x, y), true
	case "from":
		return value.From(x, y), true
	}

	xn, xok := x.(value.Number)
	yn, yok := y.(value.Number)
	if xok && yok {
		return foldNumeric(op, xn, yn)
	}
	xs, xsok := x.(value.String)
	ys, ysok := y.(value.String)
	if op == "+" && xsok && ysok {
		return value.String(string(xs) + string(ys)), true
	}
	switch op {
	case "<", "<=", ">", ">=":
		if xsok && ysok {
			return value.Bool(compareStrings(op, string(xs), string(ys))), true
		}
	}
	return nil, false
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

func foldNumeric(op string, x, y value.Number) (value.Value, bool) {
	isInt := x.IsInt && y.IsInt
	switch op {
	case "+":
		if isInt {
			return value.Int(x.Int64() + y.Int64()), true
		}
		return value.Float(x.Float() + y.Float()), true
	case "-":
		if isInt {
			return value.Int(x.Int64() - y.Int64()), true
		}
		return value.Float(x.Float() - y.Float()), true
	case "*":
		if isInt {
			return value.Int(x.Int64() * y.Int64()), true
		}
		return value.Float(x.Float() * y.Float()), true
	case "//":
		if y.Float() == 0 {
			return nil, false
		}
		if isInt {
			if y.Int64() == 0 {
				return nil, false
			}
			return value.Int(x.Int64() / y.Int64()), true
		}
		return value.Float(float64(int64(x.Float() / y.Float()))), true
	case "%":
		if isInt {
			if y.Int64() == 0 {
				return nil, false
			}
			return value.Int(x.Int64() % y.Int64()), true
		}
		return nil, false
	case "<":
		return value.Bool(x.Float() < y.Float()), true
	case "<=":
		return value.Bool(x.Float() <= y.Float()), true
	case ">":
		return value.Bool(x.Float() > y.Float()), true
	case ">=":
		return value.Bool(x.Float() >= y.Float()), true
	}
	return nil, false
}
