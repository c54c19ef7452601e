// Package tfmt is the canonical pretty-printer for Tinder source: one
// statement per line, consistent spacing and indentation. Grounded on the
// teacher's gofmt-style `format` package shape (parse to a tree, walk it,
// emit canonical tokens) adapted from Rego's expression-tree printer to
// Tinder's line-oriented statement list — block indentation tracks the
// if/for/foreach nesting the compiler itself desugars away.
package tfmt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tinderlang/tinder/ast"
	"github.com/tinderlang/tinder/parser"
)

const indentUnit = "    "

// Format parses src and re-renders it in canonical form. A malformed source
// returns the underlying parse error unchanged.
func Format(src, file string) (string, error) {
	script, err := parser.Parse(src, file)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	depth := 0
	for _, line := range script.Lines {
		depth = writeLine(&b, line, depth)
	}
	return b.String(), nil
}

// writeLine renders one line at the current depth and returns the depth the
// following line should use (block openers increment after, closers/else
// variants dedent before printing their own line).
func writeLine(b *strings.Builder, line *ast.Line, depth int) int {
	switch line.Node.(type) {
	case *ast.ElseIf, *ast.Else:
		depth--
	case *ast.EndIf, *ast.EndFor:
		depth--
	}
	if depth < 0 {
		depth = 0
	}

	b.WriteString(strings.Repeat(indentUnit, depth))
	b.WriteString(stmtString(line.Node))
	if line.Condition != nil {
		b.WriteString(" if ")
		b.WriteString(exprString(line.Condition))
	}
	b.WriteByte('\n')

	switch line.Node.(type) {
	case *ast.If, *ast.ElseIf, *ast.Else, *ast.For, *ast.ForWhile, *ast.Foreach:
		depth++
	}
	return depth
}

func stmtString(n ast.Node) string {
	switch v := n.(type) {
	case *ast.Comment:
		return "`" + v.Text
	case *ast.Label:
		s := "# " + v.Name
		if v.Or != "" {
			s += " or " + v.Or
		}
		return s
	case *ast.Import:
		s := "import " + v.Library
		if v.Alias != "" {
			s += " as " + v.Alias
		}
		return s
	case *ast.FromImport:
		return fmt.Sprintf("from %s import %s", v.Library, strings.Join(v.Symbols, ", "))
	case *ast.Const:
		return fmt.Sprintf("const %s = %s", v.Name, exprString(v.Value))
	case *ast.Catch:
		return fmt.Sprintf("catch %q at %s", v.Exception, v.Label)
	case *ast.Set:
		names := make([]string, len(v.Names))
		for i, id := range v.Names {
			names[i] = id.String()
		}
		vals := make([]string, len(v.Values))
		for i, e := range v.Values {
			vals[i] = exprString(e)
		}
		s := fmt.Sprintf("set %s to %s", strings.Join(names, ", "), strings.Join(vals, ", "))
		if v.From != nil {
			s += " from " + exprString(v.From)
		}
		return s
	case *ast.IncDec:
		verb := "inc"
		if v.Dec {
			verb = "dec"
		}
		s := fmt.Sprintf("%s %s", verb, v.Name.String())
		if v.By != nil {
			s += " by " + exprString(v.By)
		}
		return s
	case *ast.Put:
		pos := "after"
		if v.Before {
			pos = "before"
		}
		return fmt.Sprintf("put %s %s %s", exprString(v.Value), pos, v.Name.String())
	case *ast.Swap:
		return fmt.Sprintf("swap %s, %s", v.A.String(), v.B.String())
	case *ast.Write:
		s := "write " + exprString(v.Value)
		if v.To != nil {
			s += " to " + v.To.String()
		}
		return s
	case *ast.Input:
		s := "input " + exprString(v.Prompt)
		if v.To != nil {
			s += " to " + v.To.String()
		}
		return s
	case *ast.CallStmt:
		return "call " + exprString(v.Expr)
	case *ast.Jump:
		return "jump " + exprString(v.Target)
	case *ast.Return:
		return "return"
	case *ast.Yield:
		if v.Value == nil {
			return "yield"
		}
		return "yield " + exprString(v.Value)
	case *ast.Stop:
		return "stop"
	case *ast.If:
		return "if " + exprString(v.Cond)
	case *ast.ElseIf:
		return "else if " + exprString(v.Cond)
	case *ast.Else:
		return "else"
	case *ast.EndIf:
		return "endif"
	case *ast.For:
		s := "for "
		if v.Init != nil {
			s += stmtString(v.Init) + "; "
		}
		if v.Cond != nil {
			s += exprString(v.Cond) + "; "
		}
		if v.Step != nil {
			s += stmtString(v.Step)
		}
		return strings.TrimSuffix(s, "; ")
	case *ast.ForWhile:
		return "for " + exprString(v.Cond)
	case *ast.Foreach:
		names := make([]string, len(v.Vars))
		for i, id := range v.Vars {
			names[i] = id.String()
		}
		return fmt.Sprintf("foreach %s in %s", strings.Join(names, ", "), exprString(v.Coll))
	case *ast.EndFor:
		return "endfor"
	case *ast.Break:
		return "break"
	case *ast.Continue:
		return "continue"
	default:
		return fmt.Sprintf("/* unsupported node %T */", v)
	}
}

func exprString(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Literal:
		return literalString(v.Raw)
	case *ast.Ident:
		return v.Name.String()
	case *ast.Indirect:
		return "@" + exprString(v.Inner)
	case *ast.Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = exprString(a)
		}
		return fmt.Sprintf("%s(%s)", exprString(v.Callee), strings.Join(args, ", "))
	case *ast.ArrayLit:
		elems := make([]string, len(v.Elems))
		for i, el := range v.Elems {
			elems[i] = exprString(el)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case *ast.TableLit:
		entries := make([]string, len(v.Entries))
		for i, ent := range v.Entries {
			entries[i] = fmt.Sprintf("%s: %s", exprString(ent.Key), exprString(ent.Value))
		}
		return "{" + strings.Join(entries, ", ") + "}"
	case *ast.Unary:
		if v.Op == "!" {
			return "not " + exprString(v.X)
		}
		return v.Op + exprString(v.X)
	case *ast.Binary:
		return fmt.Sprintf("%s %s %s", exprString(v.X), v.Op, exprString(v.Y))
	case *ast.DotChain:
		s := exprString(v.Base)
		for _, step := range v.Steps {
			if step.Index != nil {
				s += "." + exprString(step.Index)
			} else {
				s += "." + step.Name
			}
		}
		return s
	case *ast.Group:
		return "(" + exprString(v.X) + ")"
	case *ast.Interp:
		var sb strings.Builder
		sb.WriteByte('"')
		for _, frag := range v.Fragments {
			if frag.Name != nil {
				sb.WriteString("[[" + frag.Name.String() + "]]")
			} else {
				sb.WriteString(frag.Literal)
			}
		}
		sb.WriteByte('"')
		return sb.String()
	default:
		return fmt.Sprintf("/* unsupported expr %T */", v)
	}
}

func literalString(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return "none"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
