package grammar

import "sync"

// tinderGrammarText is the declarative Tinder grammar, loaded at build time
// via Describe and evaluated by the
// generic Engine in peg.go. Every keyword token is written as a literal
// immediately followed by a negative lookahead on an identifier-continue
// character, so "at" doesn't swallow the first two letters of "atlas" and
// "to" doesn't swallow "total" — the same word-boundary trick pigeon- and
// peg.js-generated parsers emit for every keyword production.
const tinderGrammarText = `
Script <- Line (NL Line)*

NL -- ` + "`\\n+`" + `

Line <- LineBody IfGuard?

IfGuard -> KwIf Expr

LineBody -> CommentLine / LabelLine / DirectiveLine / BlockLine / StatementLine / ImplicitWrite

CommentLine <- "` + "`" + `" ` + "`[^\\n]*`" + `

LabelLine <- "#" Ident OrClause?
OrClause -> KwOr Ident

DirectiveLine -> ImportDir / FromImportDir / ConstDir / CatchDir

ImportDir <- KwImport DottedIdent AsClause?
AsClause -> KwAs Ident

FromImportDir <- KwFrom DottedIdent KwImport IdentList

ConstDir <- KwConst Ident "=" Expr

CatchDir <- KwCatch StringLit KwAt Ident

BlockLine -> IfHdr / ElseIfHdr / ElseHdr / EndIfHdr / ForHdr / ForWhileHdr / EndForHdr / ForeachHdr / BreakHdr / ContinueHdr

IfHdr <- KwIf Expr
ElseIfHdr <- KwElse KwIf Expr
ElseHdr <- KwElse
EndIfHdr <- KwEndif
ForHdr <- KwFor SimpleStmt ";" Expr ";" SimpleStmt
ForWhileHdr <- KwFor Expr
EndForHdr <- KwEndfor
ForeachHdr <- KwForeach IdentList KwIn Expr
BreakHdr <- KwBreak
ContinueHdr <- KwContinue

SimpleStmt -> SetStmt / IncStmt / DecStmt

StatementLine -> SetStmt / IncStmt / DecStmt / PutStmt / SwapStmt / WriteStmt / InputStmt / CallStmt / JumpStmt / ReturnStmt / YieldStmt / StopStmt

SetStmt <- KwSet IdentList KwTo ExprList FromClause?
FromClause -> KwFrom Expr

IncStmt <- KwInc DottedIdent ByClause?
DecStmt <- KwDec DottedIdent ByClause?
ByClause -> KwBy Expr

PutStmt <- KwPut Expr PutPos DottedIdent
PutPos <- KwBefore / KwAfter

SwapStmt <- KwSwap DottedIdent "," DottedIdent

WriteStmt <- KwWrite Expr ToClause?
ToClause -> KwTo DottedIdent

InputStmt <- KwInput Expr ToClause?

CallStmt <- KwCall Expr

JumpStmt <- KwJump Expr

ReturnStmt <- KwReturn

YieldStmt <- KwYield Expr?

StopStmt <- KwStop

ImplicitWrite <- StringLit

IdentList <- DottedIdent ("," DottedIdent)*
ExprList <- Expr ("," Expr)*

Expr <- OrExpr

OrExpr <- AndExpr (OrOpNode AndExpr)*
OrOpNode <- KwOr

AndExpr <- CmpExpr (AndOpNode CmpExpr)*
AndOpNode <- KwAnd

CmpExpr <- MemExpr (CmpOpNode MemExpr)*
CmpOpNode <- "==" / "!=" / "<=" / ">=" / "<" / ">" / KwIsNot / KwIs / KwLessThan / KwGreaterThan

MemExpr <- AddExpr (MemOpNode AddExpr)*
MemOpNode <- KwIn / KwFrom / KwAt

AddExpr <- MulExpr (AddOpNode MulExpr)*
AddOpNode <- "+" / "-" / KwPlus

MulExpr <- UnaryExpr (MulOpNode UnaryExpr)*
MulOpNode <- "*" / "//" / "%" / KwTimes / KwDiv / KwMod

UnaryExpr -> UnaryOp / Postfix
UnaryOp <- UnaryOpNode UnaryExpr
UnaryOpNode <- KwNot / "!" / "-"

Postfix <- Primary PostfixOp*
PostfixOp -> DotStep / CallArgs
DotStep <- "." DotSeg
DotSeg <- ` + "`[A-Za-z_][A-Za-z0-9_]*`" + ` / ` + "`[0-9]+`" + `
CallArgs <- "(" ArgList? ")"
ArgList <- Expr ("," Expr)*

Primary -> Group / IndirectExpr / ArrayLit / TableLit / StringLit / NumberLit / BoolLit / NoneLit / IdentExpr

Group <- "(" Expr ")"
IndirectExpr <- "@" Postfix
ArrayLit <- "[" ArgList? "]"
TableLit <- "{" TableEntries? "}"
TableEntries <- TableEntry ("," TableEntry)*
TableEntry <- TableKey ":" Expr
TableKey -> Ident / StringLit / "_"

IdentExpr <- Ident
DottedIdent <- Ident ("." DotSeg)*
Ident <- ` + "`[A-Za-z_][A-Za-z0-9_]*`" + `

NumberLit <- ` + "`-?[0-9]+(\\.[0-9]+)?`" + `
BoolLit <- KwTrue / KwFalse
NoneLit <- KwNone

StringLit <- ` + "`\"([^\"\\\\]|\\\\.)*\"`" + ` / ` + "`'([^'\\\\]|\\\\.)*'`" + `

IdCont -- ` + "`[A-Za-z0-9_]`" + `

KwSet <- "set" !IdCont
KwTo <- "to" !IdCont
KwFrom <- "from" !IdCont
KwInc <- "inc" !IdCont
KwDec <- "dec" !IdCont
KwBy <- "by" !IdCont
KwPut <- "put" !IdCont
KwBefore <- "before" !IdCont
KwAfter <- "after" !IdCont
KwSwap <- "swap" !IdCont
KwWrite <- "write" !IdCont
KwInput <- "input" !IdCont
KwCall <- "call" !IdCont
KwJump <- "jump" !IdCont
KwReturn <- "return" !IdCont
KwYield <- "yield" !IdCont
KwStop <- "stop" !IdCont
KwImport <- "import" !IdCont
KwAs <- "as" !IdCont
KwConst <- "const" !IdCont
KwCatch <- "catch" !IdCont
KwAt <- "at" !IdCont
KwIf <- "if" !IdCont
KwElse <- "else" !IdCont
KwEndif <- "endif" !IdCont
KwFor <- "for" !IdCont
KwEndfor <- "endfor" !IdCont
KwForeach <- "foreach" !IdCont
KwIn <- "in" !IdCont
KwBreak <- "break" !IdCont
KwContinue <- "continue" !IdCont
KwOr <- "or" !IdCont
KwAnd <- "and" !IdCont
KwNot <- "not" !IdCont
KwIsNot <- "is not" !IdCont
KwIs <- "is" !IdCont
KwLessThan <- "less than" !IdCont
KwGreaterThan <- "greater than" !IdCont
KwPlus <- "plus" !IdCont
KwTimes <- "times" !IdCont
KwDiv <- "div" !IdCont
KwMod <- "mod" !IdCont
KwTrue <- "true" !IdCont
KwFalse <- "false" !IdCont
KwNone <- "none" !IdCont
`

var (
	tinderGrammarOnce sync.Once
	tinderGrammar     *Grammar
	tinderGrammarErr  error
)

// TinderGrammar returns the compiled Tinder Grammar, building it once from
// tinderGrammarText. The grammar is fixed at build time; there is no
// runtime grammar-customization hook.
func TinderGrammar() (*Grammar, error) {
	tinderGrammarOnce.Do(func() {
		tinderGrammar, tinderGrammarErr = Describe(tinderGrammarText)
		if tinderGrammarErr == nil {
			tinderGrammar.Start = "Script"
		}
	})
	return tinderGrammar, tinderGrammarErr
}
