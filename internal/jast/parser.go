package jast

import (
	"fmt"
	"strings"
)

type parser struct {
	src  string
	toks []token
	pos  int
}

type bailout struct {
	err *ParseError
}

// Parse parses a Java compilation unit. Lambdas, method references, switch
// expressions, local classes and explicit generic method arguments are not
// supported and produce a *ParseError.
func Parse(src []byte) (unit *CompilationUnit, err error) {
	toks, err := lex(string(src))
	if err != nil {
		return nil, err
	}

	p := &parser{src: string(src), toks: toks}

	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}

			unit, err = nil, b.err
		}
	}()

	unit = p.compilationUnit()
	Relink(unit)

	return unit, nil
}

// ParseExpr parses a single expression.
func ParseExpr(src string) (e Expr, err error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, toks: toks}

	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}

			e, err = nil, b.err
		}
	}()

	e = p.expr()
	if p.tok().kind != tokEOF {
		p.failf("unexpected %q after expression", p.tok().text)
	}

	Relink(e)

	return e, nil
}

func (p *parser) tok() token { return p.peek(0) }

func (p *parser) peek(n int) token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}

	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.tok()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}

	return t
}

func (p *parser) is(text string) bool {
	t := p.tok()
	return (t.kind == tokOp || t.kind == tokIdent) && t.text == text
}

func (p *parser) peekIs(n int, text string) bool {
	t := p.peek(n)
	return (t.kind == tokOp || t.kind == tokIdent) && t.text == text
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}

	return false
}

func (p *parser) expect(text string) {
	if !p.accept(text) {
		p.failf("expected %q, found %q", text, p.describe())
	}
}

func (p *parser) describe() string {
	if p.tok().kind == tokEOF {
		return "EOF"
	}

	return p.tok().text
}

func (p *parser) failf(format string, args ...any) {
	line, col := position(p.src, p.tok().off)
	panic(bailout{err: &ParseError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}})
}

// adjacent reports whether token pos+n starts right where token pos+n-1 ends.
func (p *parser) adjacent(n int) bool {
	return p.peek(n).off == p.peek(n-1).end
}

func (p *parser) isIdent() bool {
	t := p.tok()
	return t.kind == tokIdent && !keywords[t.text]
}

func (p *parser) ident() string {
	if !p.isIdent() {
		p.failf("expected identifier, found %q", p.describe())
	}

	return p.next().text
}

// speculate runs fn and rewinds when it bails out.
func (p *parser) speculate(fn func()) (ok bool) {
	save := p.pos

	defer func() {
		if r := recover(); r != nil {
			if _, isBailout := r.(bailout); !isBailout {
				panic(r)
			}

			p.pos = save
			ok = false
		}
	}()

	fn()

	return true
}

func (p *parser) compilationUnit() *CompilationUnit {
	unit := &CompilationUnit{}

	if p.accept("package") {
		unit.Package = p.qualifiedName(false)
		p.expect(";")
	}

	for p.is("import") {
		p.next()

		imp := &Import{Static: p.accept("static")}
		imp.Path = p.qualifiedName(true)
		p.expect(";")
		unit.Imports = append(unit.Imports, imp)
	}

	for p.tok().kind != tokEOF {
		if p.accept(";") {
			continue
		}

		unit.Types = append(unit.Types, p.classDecl(p.modifiers()))
	}

	return unit
}

func (p *parser) qualifiedName(allowStar bool) string {
	parts := []string{p.ident()}

	for p.accept(".") {
		if allowStar && p.accept("*") {
			parts = append(parts, "*")
			break
		}

		parts = append(parts, p.ident())
	}

	return strings.Join(parts, ".")
}

var modifierWords = map[string]ModFlag{
	"public": ModPublic, "protected": ModProtected, "private": ModPrivate, "static": ModStatic,
	"final": ModFinal, "abstract": ModAbstract, "synchronized": ModSynchronized,
	"volatile": ModVolatile, "transient": ModTransient, "native": ModNative,
	"strictfp": ModStrictfp, "default": ModDefault,
}

func (p *parser) modifiers() Modifiers {
	var mods Modifiers

	for {
		switch {
		case p.is("@") && !p.peekIs(1, "interface"):
			mods.Annotations = append(mods.Annotations, p.annotation())
		case p.tok().kind == tokIdent && modifierWords[p.tok().text] != 0 && !p.isModifierUsedAsStatement():
			mods.Flags |= modifierWords[p.next().text]
		default:
			return mods
		}
	}
}

// isModifierUsedAsStatement catches "synchronized (x) {...}" and "default:".
func (p *parser) isModifierUsedAsStatement() bool {
	switch p.tok().text {
	case "synchronized":
		return p.peekIs(1, "(")
	case "default":
		return p.peekIs(1, ":") || p.peekIs(1, "->")
	case "static":
		return p.peekIs(1, "{")
	}

	return false
}

func (p *parser) annotation() *Annotation {
	p.expect("@")

	a := &Annotation{Name: p.qualifiedName(false)}

	if p.is("(") {
		a.HasArgs = true
		start := p.next().end
		depth := 1

		for depth > 0 {
			switch {
			case p.tok().kind == tokEOF:
				p.failf("unterminated annotation arguments")
			case p.is("("):
				depth++
			case p.is(")"):
				depth--
			}

			if depth == 0 {
				a.Args = strings.TrimSpace(p.src[start:p.tok().off])
			}

			p.next()
		}
	}

	return a
}

// typeParams captures a declaration's type parameter list as raw text.
func (p *parser) typeParams() string {
	if !p.is("<") {
		return ""
	}

	start := p.tok().off
	depth := 0

	for {
		switch {
		case p.tok().kind == tokEOF:
			p.failf("unterminated type parameters")
		case p.is("<"):
			depth++
		case p.is(">"):
			depth--
		}

		end := p.next().end
		if depth == 0 {
			return p.src[start:end]
		}
	}
}

//nolint:cyclop // declaration header grammar
func (p *parser) classDecl(mods Modifiers) *ClassDecl {
	c := &ClassDecl{Mods: mods}

	switch {
	case p.accept("class"):
		c.Kind = KindClass
	case p.accept("interface"):
		c.Kind = KindInterface
	case p.accept("enum"):
		c.Kind = KindEnum
	case p.is("@"):
		p.failf("annotation type declarations are not supported")
	default:
		p.failf("expected type declaration, found %q", p.describe())
	}

	c.Name = p.ident()
	c.TypeParams = p.typeParams()

	if p.accept("extends") {
		if c.Kind == KindInterface {
			c.Implements = p.typeList()
		} else {
			c.Extends = p.parseType(true)
		}
	}

	if p.accept("implements") {
		c.Implements = p.typeList()
	}

	p.expect("{")

	if c.Kind == KindEnum {
		p.enumConstants(c)
	}

	for !p.is("}") {
		if p.tok().kind == tokEOF {
			p.failf("unexpected EOF in body of %s", c.Name)
		}

		c.Members = append(c.Members, p.members(c.Name)...)
	}

	p.expect("}")

	return c
}

func (p *parser) enumConstants(c *ClassDecl) {
	for !p.is(";") && !p.is("}") {
		p.modifiers()

		ec := &EnumConstant{Name: p.ident()}
		if p.is("(") {
			ec.HasArgs = true
			ec.Args = p.arguments()
		}

		if p.is("{") {
			p.failf("enum constant bodies are not supported")
		}

		c.EnumConstants = append(c.EnumConstants, ec)

		if !p.accept(",") {
			break
		}
	}

	p.accept(";")
}

func (p *parser) typeList() []*TypeRef {
	list := []*TypeRef{p.parseType(true)}
	for p.accept(",") {
		list = append(list, p.parseType(true))
	}

	return list
}

//nolint:cyclop,funlen // member grammar
func (p *parser) members(className string) []Member {
	if p.accept(";") {
		return nil
	}

	if p.is("{") {
		return []Member{&Initializer{Body: p.block()}}
	}

	if p.is("static") && p.peekIs(1, "{") {
		p.next()
		return []Member{&Initializer{Static: true, Body: p.block()}}
	}

	mods := p.modifiers()

	if p.is("class") || p.is("interface") || p.is("enum") || p.is("@") {
		return []Member{p.classDecl(mods)}
	}

	typeParams := p.typeParams()

	if p.isIdent() && p.tok().text == className && p.peekIs(1, "(") {
		m := &MethodDecl{Mods: mods, TypeParams: typeParams, Name: p.ident(), IsConstructor: true}
		p.methodRest(m)

		return []Member{m}
	}

	result := p.parseType(true)
	name := p.ident()

	if p.is("(") {
		m := &MethodDecl{Mods: mods, TypeParams: typeParams, Result: result, Name: name}
		p.methodRest(m)

		return []Member{m}
	}

	var out []Member

	for {
		t := result.Clone()
		t.Dims += p.dims()

		f := &FieldDecl{Mods: cloneMods(mods), Type: t, Name: name}
		if p.accept("=") {
			f.Init = p.varInit()
		}

		out = append(out, f)

		if !p.accept(",") {
			break
		}

		name = p.ident()
	}

	p.expect(";")

	return out
}

func (p *parser) methodRest(m *MethodDecl) {
	p.expect("(")

	for !p.is(")") {
		param := &Param{Mods: p.modifiers(), Type: p.parseType(true)}
		param.Varargs = p.accept("...")
		param.Name = p.ident()
		param.Type.Dims += p.dims()
		m.Params = append(m.Params, param)

		if !p.accept(",") {
			break
		}
	}

	p.expect(")")

	if m.Result != nil {
		m.Result.Dims += p.dims()
	}

	if p.accept("throws") {
		m.Throws = p.typeList()
	}

	if p.is("{") {
		m.Body = p.block()
		return
	}

	p.expect(";")
}

func (p *parser) dims() int {
	n := 0
	for p.is("[") && p.peekIs(1, "]") {
		p.next()
		p.next()
		n++
	}

	return n
}

var primitiveWords = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true, "int": true,
	"long": true, "float": true, "double": true, "void": true,
}

func (p *parser) parseType(withDims bool) *TypeRef {
	t := &TypeRef{}

	switch {
	case p.tok().kind == tokIdent && primitiveWords[p.tok().text]:
		t.Name = p.next().text
	default:
		t.Name = p.ident()

		for p.is(".") && p.peek(1).kind == tokIdent && !keywords[p.peek(1).text] {
			p.next()
			t.Name += "." + p.next().text
		}

		if p.is("<") {
			p.next()

			if p.accept(">") {
				t.Diamond = true
			} else {
				for {
					t.Args = append(t.Args, p.typeArg())
					if !p.accept(",") {
						break
					}
				}

				p.expect(">")
			}
		}
	}

	if withDims {
		t.Dims = p.dims()
	}

	return t
}

func (p *parser) typeArg() *TypeRef {
	if !p.accept("?") {
		return p.parseType(true)
	}

	t := &TypeRef{Name: "?", Wildcard: WildcardAny}

	switch {
	case p.accept("extends"):
		t.Wildcard = WildcardExtends
		t.Bound = p.parseType(true)
	case p.accept("super"):
		t.Wildcard = WildcardSuper
		t.Bound = p.parseType(true)
	}

	return t
}

func (p *parser) block() *Block {
	p.expect("{")

	b := &Block{}
	for !p.is("}") {
		if p.tok().kind == tokEOF {
			p.failf("unexpected EOF in block")
		}

		b.Stmts = append(b.Stmts, p.blockStatement()...)
	}

	p.expect("}")

	return b
}

// isLocalVarDecl looks ahead for "Type name" followed by a declarator end.
func (p *parser) isLocalVarDecl() bool {
	save := p.pos
	found := false

	p.speculate(func() {
		p.modifiers()
		p.parseType(true)
		p.ident()

		switch {
		case p.is("="), p.is(";"), p.is(","), p.is("["), p.is(":"):
			found = true
		}
	})

	p.pos = save

	return found
}

func (p *parser) blockStatement() []Stmt {
	if p.is("class") || p.is("interface") || p.is("enum") {
		p.failf("local type declarations are not supported")
	}

	if p.isLocalVarDecl() {
		stmts := p.localVarDecl(p.modifiers())
		p.expect(";")

		return stmts
	}

	return []Stmt{p.statement()}
}

func (p *parser) localVarDecl(mods Modifiers) []Stmt {
	typ := p.parseType(true)

	var out []Stmt

	for {
		t := typ.Clone()
		name := p.ident()
		t.Dims += p.dims()

		v := &LocalVarStmt{Mods: cloneMods(mods), Type: t, Name: name}
		if p.accept("=") {
			v.Init = p.varInit()
		}

		out = append(out, v)

		if !p.accept(",") {
			break
		}
	}

	return out
}

func (p *parser) varInit() Expr {
	if p.is("{") {
		return p.arrayInit()
	}

	return p.expr()
}

func (p *parser) arrayInit() *ArrayInit {
	p.expect("{")

	a := &ArrayInit{Elems: []Expr{}}
	for !p.is("}") {
		a.Elems = append(a.Elems, p.varInit())
		if !p.accept(",") {
			break
		}
	}

	p.expect("}")

	return a
}

//nolint:cyclop,funlen,gocognit // statement grammar
func (p *parser) statement() Stmt {
	switch {
	case p.is("{"):
		return p.block()
	case p.accept(";"):
		return &EmptyStmt{}
	case p.accept("if"):
		s := &IfStmt{Cond: p.parenExpr(), Then: p.statement()}
		if p.accept("else") {
			s.Else = p.statement()
		}

		return s
	case p.accept("while"):
		return &WhileStmt{Cond: p.parenExpr(), Body: p.statement()}
	case p.accept("do"):
		s := &DoStmt{Body: p.statement()}
		p.expect("while")
		s.Cond = p.parenExpr()
		p.expect(";")

		return s
	case p.is("for"):
		return p.forStmt()
	case p.is("try"):
		return p.tryStmt()
	case p.is("switch"):
		return p.switchStmt()
	case p.accept("return"):
		s := &ReturnStmt{}
		if !p.is(";") {
			s.X = p.expr()
		}

		p.expect(";")

		return s
	case p.accept("break"):
		s := &BreakStmt{}
		if p.isIdent() {
			s.Label = p.ident()
		}

		p.expect(";")

		return s
	case p.accept("continue"):
		s := &ContinueStmt{}
		if p.isIdent() {
			s.Label = p.ident()
		}

		p.expect(";")

		return s
	case p.accept("throw"):
		s := &ThrowStmt{X: p.expr()}
		p.expect(";")

		return s
	case p.accept("synchronized"):
		return &SyncStmt{Lock: p.parenExpr(), Body: p.block()}
	case p.accept("assert"):
		s := &AssertStmt{Cond: p.expr()}
		if p.accept(":") {
			s.Msg = p.expr()
		}

		p.expect(";")

		return s
	case p.isIdent() && p.peekIs(1, ":"):
		label := p.ident()
		p.expect(":")

		return &LabeledStmt{Label: label, Body: p.statement()}
	}

	s := &ExprStmt{X: p.expr()}
	p.expect(";")

	return s
}

func (p *parser) parenExpr() Expr {
	p.expect("(")
	e := p.expr()
	p.expect(")")

	return e
}

func (p *parser) forStmt() Stmt {
	p.expect("for")
	p.expect("(")

	var init []Stmt

	if p.isLocalVarDecl() {
		save := p.pos
		mods := p.modifiers()
		typ := p.parseType(true)
		name := p.ident()

		if p.accept(":") {
			v := &LocalVarStmt{Mods: mods, Type: typ, Name: name}
			iter := p.expr()
			p.expect(")")

			return &ForEachStmt{Var: v, Iter: iter, Body: p.statement()}
		}

		p.pos = save
		init = p.localVarDecl(p.modifiers())
	} else if !p.is(";") {
		for _, e := range p.exprList() {
			init = append(init, &ExprStmt{X: e})
		}
	}

	p.expect(";")

	s := &ForStmt{Init: init}
	if !p.is(";") {
		s.Cond = p.expr()
	}

	p.expect(";")

	if !p.is(")") {
		s.Update = p.exprList()
	}

	p.expect(")")
	s.Body = p.statement()

	return s
}

func (p *parser) exprList() []Expr {
	list := []Expr{p.expr()}
	for p.accept(",") {
		list = append(list, p.expr())
	}

	return list
}

func (p *parser) tryStmt() Stmt {
	p.expect("try")

	s := &TryStmt{}

	if p.accept("(") {
		for !p.is(")") {
			if p.isLocalVarDecl() {
				s.Resources = append(s.Resources, p.localVarDecl(p.modifiers())...)
			} else {
				s.Resources = append(s.Resources, &ExprStmt{X: p.expr()})
			}

			if !p.accept(";") {
				break
			}
		}

		p.expect(")")
	}

	s.Body = p.block()

	for p.accept("catch") {
		p.expect("(")

		c := &CatchClause{Mods: p.modifiers()}

		c.Types = append(c.Types, p.parseType(true))
		for p.accept("|") {
			c.Types = append(c.Types, p.parseType(true))
		}

		c.Name = p.ident()
		p.expect(")")
		c.Body = p.block()
		s.Catches = append(s.Catches, c)
	}

	if p.accept("finally") {
		s.Finally = p.block()
	}

	if len(s.Catches) == 0 && s.Finally == nil && len(s.Resources) == 0 {
		p.failf("try without catch or finally")
	}

	return s
}

func (p *parser) switchStmt() Stmt {
	p.expect("switch")

	s := &SwitchStmt{Tag: p.parenExpr()}

	p.expect("{")

	for !p.is("}") {
		sc := &SwitchCase{}

		if !p.accept("default") {
			p.expect("case")
			sc.Labels = p.exprList()
		}

		if p.accept("->") {
			sc.Arrow = true

			switch {
			case p.is("{"), p.is("throw"):
				sc.Body = []Stmt{p.statement()}
			default:
				x := p.expr()
				p.expect(";")
				sc.Body = []Stmt{&ExprStmt{X: x}}
			}
		} else {
			p.expect(":")

			for !p.is("case") && !p.is("default") && !p.is("}") {
				if p.tok().kind == tokEOF {
					p.failf("unexpected EOF in switch")
				}

				sc.Body = append(sc.Body, p.blockStatement()...)
			}
		}

		s.Cases = append(s.Cases, sc)
	}

	p.expect("}")

	return s
}

func (p *parser) expr() Expr {
	return p.assignment()
}

var simpleAssignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true,
}

// assignOp returns the assignment operator at the cursor and how many tokens
// it spans.
func (p *parser) assignOp() (string, int) {
	t := p.tok()
	if t.kind == tokOp && simpleAssignOps[t.text] {
		return t.text, 1
	}

	if !p.is(">") || !p.peekIs(1, ">") || !p.adjacent(1) {
		return "", 0
	}

	if p.peekIs(2, "=") && p.adjacent(2) {
		return ">>=", 3
	}

	if p.peekIs(2, ">") && p.adjacent(2) && p.peekIs(3, "=") && p.adjacent(3) {
		return ">>>=", 4
	}

	return "", 0
}

func (p *parser) assignment() Expr {
	lhs := p.conditional()

	op, width := p.assignOp()
	if op == "" {
		return lhs
	}

	p.pos += width

	return &Assign{Op: op, Lhs: lhs, Rhs: p.assignment()}
}

func (p *parser) conditional() Expr {
	cond := p.binary(precOr)
	if !p.accept("?") {
		return cond
	}

	then := p.expr()
	p.expect(":")

	return &Conditional{Cond: cond, Then: then, Else: p.conditional()}
}

// Binary operator precedences, higher binds tighter.
const (
	precAssign = 1
	precCond   = 2
	precOr     = 3
	precAnd    = 4
	precBitOr  = 5
	precXor    = 6
	precBitAnd = 7
	precEq     = 8
	precRel    = 9
	precShift  = 10
	precAdd    = 11
	precMul    = 12
	precUnary  = 13
	precPost   = 14
	precAtom   = 15
)

var binaryPrec = map[string]int{
	"||": precOr, "&&": precAnd, "|": precBitOr, "^": precXor, "&": precBitAnd,
	"==": precEq, "!=": precEq,
	"<": precRel, ">": precRel, "<=": precRel, ">=": precRel, "instanceof": precRel,
	"<<": precShift, ">>": precShift, ">>>": precShift,
	"+": precAdd, "-": precAdd,
	"*": precMul, "/": precMul, "%": precMul,
}

// binaryOp returns the binary operator at the cursor and its token width.
func (p *parser) binaryOp() (string, int) {
	t := p.tok()

	if t.kind == tokIdent && t.text == "instanceof" {
		return t.text, 1
	}

	if t.kind != tokOp {
		return "", 0
	}

	if t.text != ">" {
		if _, ok := binaryPrec[t.text]; ok {
			return t.text, 1
		}

		return "", 0
	}

	if op, _ := p.assignOp(); op != "" {
		return "", 0
	}

	switch {
	case p.peekIs(1, ">") && p.adjacent(1) && p.peekIs(2, ">") && p.adjacent(2):
		return ">>>", 3
	case p.peekIs(1, ">") && p.adjacent(1):
		return ">>", 2
	case p.peekIs(1, "=") && p.adjacent(1):
		return ">=", 2
	}

	return ">", 1
}

func (p *parser) binary(minPrec int) Expr {
	x := p.unary()

	for {
		op, width := p.binaryOp()
		if op == "" || binaryPrec[op] < minPrec {
			return x
		}

		p.pos += width

		if op == "instanceof" {
			p.accept("final")

			io := &InstanceOf{X: x, Type: p.parseType(true)}
			if p.isIdent() {
				io.Binding = p.ident()
			}

			x = io

			continue
		}

		x = &Binary{Op: op, X: x, Y: p.binary(binaryPrec[op] + 1)}
	}
}

func (p *parser) unary() Expr {
	switch {
	case p.is("++"), p.is("--"), p.is("+"), p.is("-"), p.is("!"), p.is("~"):
		op := p.next().text
		return &Unary{Op: op, X: p.unary()}
	case p.is("(") && p.isCast():
		p.next()
		t := p.parseType(true)
		p.expect(")")

		return &Cast{Type: t, X: p.unary()}
	}

	return p.postfix(p.primary())
}

// isCast decides whether the parenthesis at the cursor opens a cast.
func (p *parser) isCast() bool {
	if p.peek(1).kind == tokIdent && primitiveWords[p.peek(1).text] {
		return true
	}

	save := p.pos
	cast := false

	p.speculate(func() {
		p.next()
		p.parseType(true)
		p.expect(")")

		t := p.tok()

		switch t.kind {
		case tokIdent:
			cast = !keywords[t.text] || t.text == "this" || t.text == "super" || t.text == "new" ||
				t.text == "true" || t.text == "false" || t.text == "null"
		case tokInt, tokLong, tokFloat, tokDouble, tokChar, tokString:
			cast = true
		case tokOp:
			cast = t.text == "(" || t.text == "!" || t.text == "~"
		}
	})

	p.pos = save

	return cast
}

//nolint:cyclop,funlen // primary expression grammar
func (p *parser) primary() Expr {
	t := p.tok()

	switch t.kind {
	case tokInt:
		p.next()
		return &Literal{Kind: LitInt, Value: t.text}
	case tokLong:
		p.next()
		return &Literal{Kind: LitLong, Value: t.text}
	case tokFloat:
		p.next()
		return &Literal{Kind: LitFloat, Value: t.text}
	case tokDouble:
		p.next()
		return &Literal{Kind: LitDouble, Value: t.text}
	case tokChar:
		p.next()
		return &Literal{Kind: LitChar, Value: t.text}
	case tokString:
		p.next()
		return &Literal{Kind: LitString, Value: t.text}
	case tokEOF:
		p.failf("unexpected EOF in expression")
	}

	switch {
	case p.is("true"), p.is("false"):
		p.next()
		return &Literal{Kind: LitBool, Value: t.text}
	case p.accept("null"):
		return &Literal{Kind: LitNull, Value: "null"}
	case p.accept("("):
		e := p.expr()
		p.expect(")")

		return e
	case p.accept("this"):
		if p.is("(") {
			return &Call{Name: "this", Args: p.arguments()}
		}

		return &This{}
	case p.accept("super"):
		if p.is("(") {
			return &Call{Name: "super", Args: p.arguments()}
		}

		p.expect(".")
		name := p.ident()

		if p.is("(") {
			return &Call{X: &Super{}, Name: name, Args: p.arguments()}
		}

		return &FieldAccess{X: &Super{}, Name: name}
	case p.is("new"):
		return p.creator()
	case p.is("switch"):
		p.failf("switch expressions are not supported")
	case p.tok().kind == tokIdent && primitiveWords[t.text]:
		typ := p.parseType(true)
		p.expect(".")
		p.expect("class")

		return &ClassLit{Type: typ}
	case p.isIdent():
		if p.peekIs(1, "(") {
			name := p.ident()
			return &Call{Name: name, Args: p.arguments()}
		}

		if p.peekIs(1, "[") && p.peekIs(2, "]") {
			typ := p.parseType(true)
			p.expect(".")
			p.expect("class")

			return &ClassLit{Type: typ}
		}

		return &Name{Name: p.ident()}
	}

	p.failf("unexpected %q in expression", p.describe())

	return nil
}

//nolint:cyclop // selector grammar
func (p *parser) postfix(x Expr) Expr {
	for {
		switch {
		case p.accept("."):
			switch {
			case p.accept("class"):
				name, ok := dottedName(x)
				if !ok {
					p.failf("invalid class literal")
				}

				x = &ClassLit{Type: &TypeRef{Name: name}}
			case p.accept("this"):
				name, ok := dottedName(x)
				if !ok {
					p.failf("invalid qualified this")
				}

				x = &This{Qualifier: name}
			case p.is("new"):
				p.failf("qualified instance creation is not supported")
			case p.is("<"):
				p.failf("explicit generic method arguments are not supported")
			default:
				name := p.ident()
				if p.is("(") {
					x = &Call{X: x, Name: name, Args: p.arguments()}
				} else {
					x = &FieldAccess{X: x, Name: name}
				}
			}
		case p.accept("["):
			idx := p.expr()
			p.expect("]")
			x = &ArrayAccess{X: x, Index: idx}
		case p.is("::"):
			p.failf("method references are not supported")
		default:
			for p.is("++") || p.is("--") {
				x = &Unary{Op: p.next().text, X: x, Postfix: true}
			}

			return x
		}
	}
}

// dottedName flattens a chain of names into "a.b.c".
func dottedName(e Expr) (string, bool) {
	switch e := e.(type) {
	case *Name:
		return e.Name, true
	case *FieldAccess:
		prefix, ok := dottedName(e.X)
		if !ok {
			return "", false
		}

		return prefix + "." + e.Name, true
	}

	return "", false
}

func (p *parser) creator() Expr {
	p.expect("new")

	typ := p.parseType(false)

	if p.is("[") {
		na := &NewArray{Type: typ}

		for p.accept("[") {
			if p.accept("]") {
				na.ExtraDims++
				continue
			}

			if na.ExtraDims > 0 {
				p.failf("array dimension after empty dimension")
			}

			na.Dims = append(na.Dims, p.expr())
			p.expect("]")
		}

		if p.is("{") {
			if len(na.Dims) > 0 {
				p.failf("array initializer with explicit dimensions")
			}

			na.Init = p.arrayInit()
		}

		return na
	}

	n := &New{Type: typ, Args: p.arguments()}

	if p.is("{") {
		p.next()

		n.Body = []Member{}
		for !p.is("}") {
			if p.tok().kind == tokEOF {
				p.failf("unexpected EOF in anonymous class")
			}

			n.Body = append(n.Body, p.members("")...)
		}

		p.expect("}")
	}

	return n
}

func (p *parser) arguments() []Expr {
	p.expect("(")

	args := []Expr{}
	if p.accept(")") {
		return args
	}

	args = append(args, p.exprList()...)
	p.expect(")")

	return args
}
