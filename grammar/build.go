package grammar

import (
	"strconv"
	"strings"

	"github.com/tinderlang/tinder/ast"
)

// Build walks a parse tree produced by (*Engine).Parse against TinderGrammar
// into the typed ast.Script the compiler consumes. It is the second half of
// Parse: the Engine only knows rule names and text spans, Build knows what a
// "Set" or a "Foreach" means.
func Build(root *Node, file string) (*ast.Script, error) {
	b := &builder{file: file}
	script := &ast.Script{}
	for _, lineNode := range root.Children {
		line, err := b.buildLine(lineNode)
		if err != nil {
			return nil, err
		}
		script.Lines = append(script.Lines, line)
	}
	return script, nil
}

type builder struct{ file string }

func (b *builder) loc(n *Node) *ast.Location {
	return ast.NewLocation([]byte(n.Text), b.file, n.Row, n.Col)
}

func findChild(n *Node, rule string) *Node {
	for _, c := range n.Children {
		if c.Rule == rule {
			return c
		}
	}
	return nil
}

func findChildren(n *Node, rule string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Rule == rule {
			out = append(out, c)
		}
	}
	return out
}

func (b *builder) buildLine(n *Node) (*ast.Line, error) {
	if len(n.Children) == 0 {
		return nil, ast.NewParseError(b.loc(n), "empty line node")
	}
	body := n.Children[0]
	node, err := b.buildNode(body)
	if err != nil {
		return nil, err
	}
	line := &ast.Line{Node: node, Source: n.Row}
	if len(n.Children) >= 3 {
		cond, err := b.buildExpr(n.Children[2])
		if err != nil {
			return nil, err
		}
		line.Condition = cond
	}
	return line, nil
}

func (b *builder) buildNode(n *Node) (ast.Node, error) {
	switch n.Rule {
	case "CommentLine":
		text := n.Text
		if len(text) > 0 {
			text = text[1:]
		}
		return &ast.Comment{Text: text}, nil

	case "LabelLine":
		idents := findChildren(n, "Ident")
		lbl := &ast.Label{Name: idents[0].Text}
		if len(idents) > 1 {
			lbl.Or = idents[1].Text
		}
		return lbl, nil

	case "ImportDir":
		imp := &ast.Import{}
		if lib := findChild(n, "DottedIdent"); lib != nil {
			imp.Library = identText(lib)
		}
		if alias := findChild(n, "Ident"); alias != nil {
			imp.Alias = alias.Text
		}
		return imp, nil

	case "FromImportDir":
		fi := &ast.FromImport{}
		if lib := findChild(n, "DottedIdent"); lib != nil {
			fi.Library = identText(lib)
		}
		if list := findChild(n, "IdentList"); list != nil {
			for _, id := range buildIdentifierList(list) {
				fi.Symbols = append(fi.Symbols, id.String())
			}
		}
		return fi, nil

	case "ConstDir":
		cd := &ast.Const{}
		if id := findChild(n, "Ident"); id != nil {
			cd.Name = id.Text
		}
		if e := findChild(n, "Expr"); e != nil {
			val, err := b.buildExpr(e)
			if err != nil {
				return nil, err
			}
			cd.Value = val
		}
		return cd, nil

	case "CatchDir":
		c := &ast.Catch{}
		if s := findChild(n, "StringLit"); s != nil {
			c.Exception = unquoteString(s.Text)
		}
		if l := findChild(n, "Ident"); l != nil {
			c.Label = l.Text
		}
		return c, nil

	case "IfHdr":
		cond, err := b.requireExpr(n)
		if err != nil {
			return nil, err
		}
		return &ast.If{Cond: cond}, nil

	case "ElseIfHdr":
		cond, err := b.requireExpr(n)
		if err != nil {
			return nil, err
		}
		return &ast.ElseIf{Cond: cond}, nil

	case "ElseHdr":
		return &ast.Else{}, nil

	case "EndIfHdr":
		return &ast.EndIf{}, nil

	case "ForHdr":
		init, step, condNode := b.forHdrParts(n)
		f := &ast.For{}
		if init != nil {
			stmt, err := b.buildNode(init)
			if err != nil {
				return nil, err
			}
			f.Init = stmt
		}
		if step != nil {
			stmt, err := b.buildNode(step)
			if err != nil {
				return nil, err
			}
			f.Step = stmt
		}
		if condNode != nil {
			cond, err := b.buildExpr(condNode)
			if err != nil {
				return nil, err
			}
			f.Cond = cond
		}
		return f, nil

	case "ForWhileHdr":
		cond, err := b.requireExpr(n)
		if err != nil {
			return nil, err
		}
		return &ast.ForWhile{Cond: cond}, nil

	case "EndForHdr":
		return &ast.EndFor{}, nil

	case "ForeachHdr":
		fe := &ast.Foreach{}
		if list := findChild(n, "IdentList"); list != nil {
			fe.Vars = buildIdentifierList(list)
		}
		coll, err := b.requireExpr(n)
		if err != nil {
			return nil, err
		}
		fe.Coll = coll
		return fe, nil

	case "BreakHdr":
		return &ast.Break{}, nil

	case "ContinueHdr":
		return &ast.Continue{}, nil

	case "SetStmt":
		s := &ast.Set{}
		if list := findChild(n, "IdentList"); list != nil {
			s.Names = buildIdentifierList(list)
		}
		if list := findChild(n, "ExprList"); list != nil {
			vals, err := b.buildExprListNode(list)
			if err != nil {
				return nil, err
			}
			s.Values = vals
		}
		if from := findChild(n, "Expr"); from != nil {
			fe, err := b.buildExpr(from)
			if err != nil {
				return nil, err
			}
			s.From = fe
		}
		return s, nil

	case "IncStmt", "DecStmt":
		id := &ast.IncDec{Dec: n.Rule == "DecStmt"}
		if di := findChild(n, "DottedIdent"); di != nil {
			id.Name = buildIdentifier(di)
		}
		if by := findChild(n, "Expr"); by != nil {
			expr, err := b.buildExpr(by)
			if err != nil {
				return nil, err
			}
			id.By = expr
		}
		return id, nil

	case "PutStmt":
		p := &ast.Put{}
		if e := findChild(n, "Expr"); e != nil {
			expr, err := b.buildExpr(e)
			if err != nil {
				return nil, err
			}
			p.Value = expr
		}
		if pos := findChild(n, "PutPos"); pos != nil {
			p.Before = pos.Text == "before"
		}
		if di := findChild(n, "DottedIdent"); di != nil {
			p.Name = buildIdentifier(di)
		}
		return p, nil

	case "SwapStmt":
		idents := findChildren(n, "DottedIdent")
		sw := &ast.Swap{}
		if len(idents) > 0 {
			sw.A = buildIdentifier(idents[0])
		}
		if len(idents) > 1 {
			sw.B = buildIdentifier(idents[1])
		}
		return sw, nil

	case "WriteStmt":
		w := &ast.Write{}
		if e := findChild(n, "Expr"); e != nil {
			expr, err := b.buildExpr(e)
			if err != nil {
				return nil, err
			}
			w.Value = expr
		}
		if di := findChild(n, "DottedIdent"); di != nil {
			w.To = buildIdentifier(di)
		}
		return w, nil

	case "InputStmt":
		in := &ast.Input{}
		if e := findChild(n, "Expr"); e != nil {
			expr, err := b.buildExpr(e)
			if err != nil {
				return nil, err
			}
			in.Prompt = expr
		}
		if di := findChild(n, "DottedIdent"); di != nil {
			in.To = buildIdentifier(di)
		}
		return in, nil

	case "CallStmt":
		expr, err := b.requireExpr(n)
		if err != nil {
			return nil, err
		}
		return &ast.CallStmt{Expr: expr}, nil

	case "JumpStmt":
		expr, err := b.requireExpr(n)
		if err != nil {
			return nil, err
		}
		return &ast.Jump{Target: expr}, nil

	case "ReturnStmt":
		return &ast.Return{}, nil

	case "YieldStmt":
		y := &ast.Yield{}
		if e := findChild(n, "Expr"); e != nil {
			expr, err := b.buildExpr(e)
			if err != nil {
				return nil, err
			}
			y.Value = expr
		}
		return y, nil

	case "StopStmt":
		return &ast.Stop{}, nil

	case "ImplicitWrite":
		if s := findChild(n, "StringLit"); s != nil {
			expr, err := b.buildStringLitExpr(s)
			if err != nil {
				return nil, err
			}
			return &ast.Write{Value: expr}, nil
		}
		return &ast.Write{Value: &ast.Literal{Raw: ""}}, nil

	default:
		return nil, ast.NewParseError(b.loc(n), "unrecognized line body %q", n.Rule)
	}
}

func (b *builder) requireExpr(n *Node) (ast.Expr, error) {
	e := findChild(n, "Expr")
	if e == nil {
		return nil, ast.NewParseError(b.loc(n), "missing expression in %s", n.Rule)
	}
	return b.buildExpr(e)
}

func (b *builder) forHdrParts(n *Node) (init, step, cond *Node) {
	var stmts []*Node
	for _, c := range n.Children {
		switch c.Rule {
		case "SetStmt", "IncStmt", "DecStmt":
			stmts = append(stmts, c)
		case "Expr":
			cond = c
		}
	}
	if len(stmts) > 0 {
		init = stmts[0]
	}
	if len(stmts) > 1 {
		step = stmts[1]
	}
	return
}

func (b *builder) buildExprListNode(n *Node) ([]ast.Expr, error) {
	var out []ast.Expr
	for _, c := range n.Children {
		e, err := b.buildExpr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// buildExpr dispatches on n.Rule through the whole precedence chain down to
// a Primary alternative, left-associatively folding each binary level.
func (b *builder) buildExpr(n *Node) (ast.Expr, error) {
	switch n.Rule {
	case "Expr":
		return b.buildExpr(n.Children[0])

	case "OrExpr":
		return b.buildBinaryChain(n, "OrOpNode")
	case "AndExpr":
		return b.buildBinaryChain(n, "AndOpNode")
	case "CmpExpr":
		return b.buildBinaryChain(n, "CmpOpNode")
	case "MemExpr":
		return b.buildBinaryChain(n, "MemOpNode")
	case "AddExpr":
		return b.buildBinaryChain(n, "AddOpNode")
	case "MulExpr":
		return b.buildBinaryChain(n, "MulOpNode")

	case "UnaryOp":
		opNode := findChild(n, "UnaryOpNode")
		operand := n.Children[len(n.Children)-1]
		x, err := b.buildExpr(operand)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: normalizeOp(opNode.Text), X: x}, nil

	case "Postfix":
		return b.buildPostfix(n)

	case "Group":
		inner, err := b.buildExpr(n.Children[0])
		if err != nil {
			return nil, err
		}
		return &ast.Group{X: inner}, nil

	case "IndirectExpr":
		inner, err := b.buildExpr(n.Children[0])
		if err != nil {
			return nil, err
		}
		return &ast.Indirect{Inner: inner}, nil

	case "ArrayLit":
		lit := &ast.ArrayLit{}
		if al := findChild(n, "ArgList"); al != nil {
			elems, err := b.buildExprListNode(al)
			if err != nil {
				return nil, err
			}
			lit.Elems = elems
		}
		return lit, nil

	case "TableLit":
		lit := &ast.TableLit{}
		if entries := findChild(n, "TableEntries"); entries != nil {
			for _, e := range entries.Children {
				entry, err := b.buildTableEntry(e)
				if err != nil {
					return nil, err
				}
				lit.Entries = append(lit.Entries, entry)
			}
		}
		return lit, nil

	case "StringLit":
		return b.buildStringLitExpr(n)

	case "NumberLit":
		return buildNumberLit(n), nil

	case "BoolLit":
		return &ast.Literal{Raw: n.Text == "true"}, nil

	case "NoneLit":
		return &ast.Literal{Raw: nil}, nil

	case "IdentExpr":
		name := n.Children[0]
		return &ast.Ident{Name: &ast.Identifier{Segments: []string{name.Text}, Loc: b.loc(name)}}, nil

	default:
		return nil, ast.NewParseError(b.loc(n), "unrecognized expression node %q", n.Rule)
	}
}

func (b *builder) buildBinaryChain(n *Node, opRule string) (ast.Expr, error) {
	if len(n.Children) == 0 {
		return nil, ast.NewParseError(b.loc(n), "empty %s", n.Rule)
	}
	left, err := b.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	i := 1
	for i < len(n.Children) {
		opNode := n.Children[i]
		if opNode.Rule != opRule {
			// An operand that itself produced a node named like the op rule
			// would be a grammar bug; defensively stop folding instead of
			// panicking on malformed input.
			break
		}
		i++
		if i >= len(n.Children) {
			return nil, ast.NewParseError(b.loc(n), "dangling operator in %s", n.Rule)
		}
		right, err := b.buildExpr(n.Children[i])
		if err != nil {
			return nil, err
		}
		i++
		left = &ast.Binary{Op: normalizeOp(opNode.Text), X: left, Y: right}
	}
	return left, nil
}

func (b *builder) buildPostfix(n *Node) (ast.Expr, error) {
	cur, err := b.buildExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	i := 1
	for i < len(n.Children) {
		c := n.Children[i]
		switch c.Rule {
		case "DotStep":
			var steps []ast.DotStep
			for i < len(n.Children) && n.Children[i].Rule == "DotStep" {
				steps = append(steps, buildDotStep(n.Children[i]))
				i++
			}
			cur = &ast.DotChain{Base: cur, Steps: steps}
		case "CallArgs":
			args, err := b.buildCallArgs(c)
			if err != nil {
				return nil, err
			}
			cur = &ast.Call{Callee: cur, Args: args}
			i++
		default:
			i++
		}
	}
	return cur, nil
}

func (b *builder) buildCallArgs(n *Node) ([]ast.Expr, error) {
	al := findChild(n, "ArgList")
	if al == nil {
		return nil, nil
	}
	return b.buildExprListNode(al)
}

func buildDotStep(n *Node) ast.DotStep {
	seg := n.Children[0]
	if isAllDigits(seg.Text) {
		v, _ := strconv.ParseInt(seg.Text, 10, 64)
		return ast.DotStep{Index: &ast.Literal{Raw: v}}
	}
	return ast.DotStep{Name: seg.Text}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (b *builder) buildTableEntry(n *Node) (ast.TableEntry, error) {
	if len(n.Children) == 1 {
		val, err := b.buildExpr(n.Children[0])
		if err != nil {
			return ast.TableEntry{}, err
		}
		return ast.TableEntry{Key: &ast.Literal{Raw: "_"}, Value: val}, nil
	}
	keyNode, valNode := n.Children[0], n.Children[1]
	var key ast.Expr
	if keyNode.Rule == "Ident" {
		key = &ast.Literal{Raw: keyNode.Text}
	} else {
		strKey, err := b.buildStringLitExpr(keyNode)
		if err != nil {
			return ast.TableEntry{}, err
		}
		key = strKey
	}
	val, err := b.buildExpr(valNode)
	if err != nil {
		return ast.TableEntry{}, err
	}
	return ast.TableEntry{Key: key, Value: val}, nil
}

func buildNumberLit(n *Node) ast.Expr {
	text := n.Text
	if !strings.ContainsAny(text, ".eE") {
		if iv, err := strconv.ParseInt(text, 10, 64); err == nil {
			return &ast.Literal{Raw: iv}
		}
	}
	fv, _ := strconv.ParseFloat(text, 64)
	return &ast.Literal{Raw: fv}
}

// buildStringLitExpr unescapes a quoted StringLit node and splits it into an
// Interp when it contains one or more `[[name]]` fragments, otherwise a
// plain Literal.
func (b *builder) buildStringLitExpr(n *Node) (ast.Expr, error) {
	raw := unquoteString(n.Text)
	if !strings.Contains(raw, "[[") {
		return &ast.Literal{Raw: raw}, nil
	}
	var frags []ast.InterpFragment
	rest := raw
	for {
		start := strings.Index(rest, "[[")
		if start < 0 {
			if rest != "" {
				frags = append(frags, ast.InterpFragment{Literal: rest})
			}
			break
		}
		if start > 0 {
			frags = append(frags, ast.InterpFragment{Literal: rest[:start]})
		}
		end := strings.Index(rest[start:], "]]")
		if end < 0 {
			frags = append(frags, ast.InterpFragment{Literal: rest[start:]})
			break
		}
		name := strings.TrimSpace(rest[start+2 : start+end])
		segs := strings.Split(name, ".")
		frags = append(frags, ast.InterpFragment{Name: &ast.Identifier{Segments: segs}})
		rest = rest[start+end+2:]
	}
	return &ast.Interp{Fragments: frags}, nil
}

func unquoteString(text string) string {
	if len(text) < 2 {
		return text
	}
	q := text[0]
	inner := text[1 : len(text)-1]
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '\'':
				sb.WriteByte('\'')
			default:
				sb.WriteByte(inner[i])
			}
			continue
		}
		sb.WriteByte(c)
	}
	_ = q
	return sb.String()
}

func identText(n *Node) string {
	if n.Rule == "DottedIdent" {
		var segs []string
		for _, c := range n.Children {
			segs = append(segs, c.Text)
		}
		return strings.Join(segs, ".")
	}
	return n.Text
}

func buildIdentifier(n *Node) *ast.Identifier {
	if n.Rule == "DottedIdent" {
		var segs []string
		for _, c := range n.Children {
			segs = append(segs, c.Text)
		}
		return &ast.Identifier{Segments: segs}
	}
	return &ast.Identifier{Segments: []string{n.Text}}
}

func buildIdentifierList(n *Node) []*ast.Identifier {
	var out []*ast.Identifier
	for _, c := range n.Children {
		out = append(out, buildIdentifier(c))
	}
	return out
}

// normalizeOp canonicalizes a matched operator span's English alias (or
// symbol) to the single canonical token the compiler and interpreter switch
// on.
func normalizeOp(text string) string {
	switch text {
	case "plus":
		return "+"
	case "is":
		return "=="
	case "is not":
		return "!="
	case "less than":
		return "<"
	case "greater than":
		return ">"
	case "times":
		return "*"
	case "div":
		return "//"
	case "mod":
		return "%"
	case "not":
		return "!"
	default:
		return text
	}
}
