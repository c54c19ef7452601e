package interp

import (
	"strings"

	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/ir"
	"github.com/tinderlang/tinder/value"
)

// evalIR evaluates a compiled expression: a folded constant resolves
// immediately, an unevaluated tree is walked against the live Crucible.
func (m *Machine) evalIR(e ir.Expr, src int) (value.Value, *TinderError) {
	switch t := e.(type) {
	case nil:
		return value.Nothing, nil
	case ir.ConstExpr:
		return t.Value, nil
	case ir.TreeExpr:
		return m.eval(t.Tree.(ast.Expr), src)
	default:
		return nil, m.fatal(src, "unrecognized compiled expression")
	}
}

// eval walks an ast.Expr against the current Crucible. An Indirect always
// performs its full two-step resolution here — evaluate Inner to a name,
// then look that name up — except where a caller has already special-cased
// a bare top-level Indirect (membership operands, jump targets), where the
// surrounding operator supplies the second lookup instead of Crucible.
func (m *Machine) eval(e ast.Expr, src int) (value.Value, *TinderError) {
	switch n := e.(type) {
	case *ast.Literal:
		return literalValue(n.Raw), nil

	case *ast.Ident:
		name := n.Name.Segments[0]
		v, ok := m.Cru.Get(name)
		if !ok {
			return nil, m.fatal(src, "missing variable %q", name)
		}
		return v, nil

	case *ast.Indirect:
		inner, err := m.eval(n.Inner, src)
		if err != nil {
			return nil, err
		}
		return m.resolveIndirectName(inner, src)

	case *ast.Group:
		return m.eval(n.X, src)

	case *ast.Unary:
		x, err := m.eval(n.X, src)
		if err != nil {
			return nil, err
		}
		return m.evalUnary(n.Op, x, src)

	case *ast.Binary:
		return m.evalBinary(n, src)

	case *ast.DotChain:
		cur, err := m.eval(n.Base, src)
		if err != nil {
			return nil, err
		}
		for _, step := range n.Steps {
			if step.Index != nil {
				iv, err := m.eval(step.Index, src)
				if err != nil {
					return nil, err
				}
				num, ok := iv.(value.Number)
				if !ok {
					return nil, m.fatal(src, "dot-chain index must be a number")
				}
				v, _ := value.DotStep(cur, "", int(num.Int64()), true)
				cur = v
			} else {
				v, _ := value.DotStep(cur, step.Name, 0, false)
				cur = v
			}
		}
		return cur, nil

	case *ast.Call:
		return m.evalCall(n, src)

	case *ast.ArrayLit:
		elems := make([]value.Value, len(n.Elems))
		for i, el := range n.Elems {
			v, err := m.eval(el, src)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return value.NewArray(elems...), nil

	case *ast.TableLit:
		tbl := value.NewTable()
		for _, entry := range n.Entries {
			kv, err := m.eval(entry.Key, src)
			if err != nil {
				return nil, err
			}
			key, ok := kv.(value.String)
			if !ok {
				return nil, m.fatal(src, "table key must be a string")
			}
			vv, err := m.eval(entry.Value, src)
			if err != nil {
				return nil, err
			}
			tbl.Set(string(key), vv)
		}
		return tbl, nil

	case *ast.Interp:
		var sb strings.Builder
		for _, frag := range n.Fragments {
			if frag.Name == nil {
				sb.WriteString(frag.Literal)
				continue
			}
			v, ok := m.Cru.Get(frag.Name.Segments[0])
			if !ok {
				return nil, m.fatal(src, "missing variable %q", frag.Name.Segments[0])
			}
			for _, seg := range frag.Name.Segments[1:] {
				v, _ = value.DotStep(v, seg, 0, false)
			}
			if _, isNone := v.(value.None); !isNone && v != nil {
				sb.WriteString(v.String())
			}
		}
		return value.String(sb.String()), nil

	default:
		return nil, m.fatal(src, "unsupported expression %T", n)
	}
}

// evalMemLHS evaluates the left operand of a membership operator (in/at/
// from). A bare Indirect there only performs its first resolution — the
// membership operator itself is the "second lookup" the glossary's Indirect
// definition alludes to, not a further Crucible lookup.
func (m *Machine) evalMemLHS(e ast.Expr, src int) (value.Value, *TinderError) {
	if ind, ok := e.(*ast.Indirect); ok {
		return m.eval(ind.Inner, src)
	}
	return m.eval(e, src)
}

// resolveIndirectName performs the indirect's second lookup. The resolved
// name may itself be a dot-path (e.g. an indirect that names "npc.mood"),
// so the first segment is a Crucible lookup and the rest walk the result as
// an ordinary value dot-chain — the same split/cache IndirectCache exists
// for.
func (m *Machine) resolveIndirectName(v value.Value, src int) (value.Value, *TinderError) {
	name, ok := asIndirectName(v)
	if !ok {
		return nil, m.fatal(src, "indirect target must resolve to a string or number")
	}
	segs := m.cache.Segments(name)
	cur, found := m.Cru.Get(segs[0])
	if !found {
		return nil, m.fatal(src, "missing indirect target %q", segs[0])
	}
	for _, seg := range segs[1:] {
		cur, _ = value.DotStep(cur, seg, 0, false)
	}
	return cur, nil
}

func asIndirectName(v value.Value) (string, bool) {
	switch t := v.(type) {
	case value.String:
		return string(t), true
	case value.Number:
		return t.String(), true
	default:
		return "", false
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

func (m *Machine) evalUnary(op string, x value.Value, src int) (value.Value, *TinderError) {
	switch op {
	case "!":
		return value.Bool(!value.Truthy(x)), nil
	case "-":
		n, ok := x.(value.Number)
		if !ok {
			return nil, m.fatal(src, "unary - requires a number")
		}
		if n.IsInt {
			return value.Int(-n.Int64()), nil
		}
		return value.Float(-n.Float()), nil
	default:
		return nil, m.fatal(src, "unsupported unary operator %q", op)
	}
}

func (m *Machine) evalCall(n *ast.Call, src int) (value.Value, *TinderError) {
	callee, err := m.eval(n.Callee, src)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(*value.Callable)
	if !ok {
		return nil, m.fatal(src, "cannot call a non-callable value")
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := m.eval(a, src)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	out, callErr := fn.Invoke(m.Cru, args)
	if callErr != nil {
		if te, ok := callErr.(*TinderError); ok {
			return nil, te
		}
		return nil, &TinderError{Exception: "TinderBurn", Message: callErr.Error(), Location: m.loc(src)}
	}
	return out, nil
}
