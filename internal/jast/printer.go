package jast

import (
	"io"
	"strings"
)

const indentUnit = "    "

type printer struct {
	sb     strings.Builder
	indent int
}

// Print writes n as Java source to w.
func Print(w io.Writer, n Node) error {
	_, err := io.WriteString(w, String(n))
	return err
}

// String renders n as Java source. Parentheses are emitted where operator
// precedence requires them.
func String(n Node) string {
	p := &printer{}
	p.node(n)

	return p.sb.String()
}

func (p *printer) w(s string) { p.sb.WriteString(s) }

func (p *printer) nl() {
	p.sb.WriteByte('\n')
	p.sb.WriteString(strings.Repeat(indentUnit, p.indent))
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case *CompilationUnit:
		p.unit(n)
	case *ClassDecl:
		p.class(n)
	case Member:
		p.member(n)
	case Stmt:
		p.stmt(n)
	case Expr:
		p.expr(n)
	case *Param:
		p.param(n)
	case *CatchClause:
		p.catchClause(n)
	case *SwitchCase:
		p.switchCase(n)
	case *EnumConstant:
		p.enumConstant(n)
	}
}

func (p *printer) unit(u *CompilationUnit) {
	if u.Package != "" {
		p.w("package " + u.Package + ";\n\n")
	}

	for _, imp := range u.Imports {
		p.w("import ")

		if imp.Static {
			p.w("static ")
		}

		p.w(imp.Path + ";\n")
	}

	if len(u.Imports) > 0 {
		p.w("\n")
	}

	for i, t := range u.Types {
		if i > 0 {
			p.w("\n\n")
		}

		p.class(t)
	}

	p.w("\n")
}

func (p *printer) annotations(m Modifiers, ownLine bool) {
	for _, a := range m.Annotations {
		p.w("@" + a.Name)

		if a.HasArgs {
			p.w("(" + a.Args + ")")
		}

		if ownLine {
			p.nl()
		} else {
			p.w(" ")
		}
	}
}

func (p *printer) mods(m Modifiers, annotationsOwnLine bool) {
	p.annotations(m, annotationsOwnLine)

	for _, mo := range modifierOrder {
		if m.Flags&mo.flag != 0 {
			p.w(mo.word + " ")
		}
	}
}

// TypeString renders a type reference.
func TypeString(t *TypeRef) string {
	if t == nil {
		return ""
	}

	var sb strings.Builder

	switch t.Wildcard {
	case WildcardAny:
		return "?"
	case WildcardExtends:
		return "? extends " + TypeString(t.Bound)
	case WildcardSuper:
		return "? super " + TypeString(t.Bound)
	}

	sb.WriteString(t.Name)

	switch {
	case t.Diamond:
		sb.WriteString("<>")
	case len(t.Args) > 0:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = TypeString(a)
		}

		sb.WriteString("<" + strings.Join(args, ", ") + ">")
	}

	sb.WriteString(strings.Repeat("[]", t.Dims))

	return sb.String()
}

func (p *printer) class(c *ClassDecl) {
	p.mods(c.Mods, true)

	switch c.Kind {
	case KindInterface:
		p.w("interface ")
	case KindEnum:
		p.w("enum ")
	default:
		p.w("class ")
	}

	p.w(c.Name + c.TypeParams)

	if c.Extends != nil {
		p.w(" extends " + TypeString(c.Extends))
	}

	if len(c.Implements) > 0 {
		word := " implements "
		if c.Kind == KindInterface {
			word = " extends "
		}

		names := make([]string, len(c.Implements))
		for i, t := range c.Implements {
			names[i] = TypeString(t)
		}

		p.w(word + strings.Join(names, ", "))
	}

	p.w(" {")
	p.indent++

	if c.Kind == KindEnum {
		p.nl()

		for i, ec := range c.EnumConstants {
			if i > 0 {
				p.w(", ")
			}

			p.enumConstant(ec)
		}

		p.w(";")
	}

	p.members(c.Members)
	p.indent--
	p.nl()
	p.w("}")
}

func (p *printer) enumConstant(ec *EnumConstant) {
	p.w(ec.Name)

	if ec.HasArgs {
		p.args(ec.Args)
	}
}

func (p *printer) members(ms []Member) {
	for i, m := range ms {
		_, isField := m.(*FieldDecl)
		prevField := false

		if i > 0 {
			_, prevField = ms[i-1].(*FieldDecl)
		}

		if i > 0 && !(isField && prevField) {
			p.sb.WriteByte('\n')
		}

		p.nl()
		p.member(m)
	}
}

func (p *printer) member(m Member) {
	switch m := m.(type) {
	case *ClassDecl:
		p.class(m)
	case *FieldDecl:
		p.mods(m.Mods, true)
		p.w(TypeString(m.Type) + " " + m.Name)

		if m.Init != nil {
			p.w(" = ")
			p.expr(m.Init)
		}

		p.w(";")
	case *MethodDecl:
		p.method(m)
	case *Initializer:
		if m.Static {
			p.w("static ")
		}

		p.block(m.Body)
	}
}

func (p *printer) method(m *MethodDecl) {
	p.mods(m.Mods, true)

	if m.TypeParams != "" {
		p.w(m.TypeParams + " ")
	}

	if !m.IsConstructor {
		p.w(TypeString(m.Result) + " ")
	}

	p.w(m.Name + "(")

	for i, param := range m.Params {
		if i > 0 {
			p.w(", ")
		}

		p.param(param)
	}

	p.w(")")

	if len(m.Throws) > 0 {
		names := make([]string, len(m.Throws))
		for i, t := range m.Throws {
			names[i] = TypeString(t)
		}

		p.w(" throws " + strings.Join(names, ", "))
	}

	if m.Body == nil {
		p.w(";")
		return
	}

	p.w(" ")
	p.block(m.Body)
}

func (p *printer) param(param *Param) {
	p.mods(param.Mods, false)
	p.w(TypeString(param.Type))

	if param.Varargs {
		p.w("...")
	}

	p.w(" " + param.Name)
}

func (p *printer) block(b *Block) {
	p.w("{")
	p.indent++

	for _, s := range b.Stmts {
		p.nl()
		p.stmt(s)
	}

	p.indent--
	p.nl()
	p.w("}")
}

// body prints a loop or branch body on the same line when it is a block and
// indented on the next line otherwise.
func (p *printer) body(s Stmt) {
	if b, ok := s.(*Block); ok {
		p.w(" ")
		p.block(b)

		return
	}

	p.indent++
	p.nl()
	p.stmt(s)
	p.indent--
}

func (p *printer) bracedBody(s Stmt) {
	if b, ok := s.(*Block); ok {
		p.w(" ")
		p.block(b)

		return
	}

	p.w(" {")
	p.indent++
	p.nl()
	p.stmt(s)
	p.indent--
	p.nl()
	p.w("}")
}

func (p *printer) local(v *LocalVarStmt) {
	p.mods(v.Mods, false)
	p.w(TypeString(v.Type) + " " + v.Name)

	if v.Init != nil {
		p.w(" = ")
		p.expr(v.Init)
	}
}

//nolint:cyclop,funlen // one case per statement type
func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *Block:
		p.block(s)
	case *LocalVarStmt:
		p.local(s)
		p.w(";")
	case *ExprStmt:
		p.expr(s.X)
		p.w(";")
	case *IfStmt:
		p.w("if (")
		p.expr(s.Cond)
		p.w(")")

		if s.Else == nil {
			p.body(s.Then)
			return
		}

		p.bracedBody(s.Then)
		p.w(" else")

		if elif, ok := s.Else.(*IfStmt); ok {
			p.w(" ")
			p.stmt(elif)

			return
		}

		p.bracedBody(s.Else)
	case *ForStmt:
		p.forStmt(s)
	case *ForEachStmt:
		p.w("for (")
		p.local(s.Var)
		p.w(" : ")
		p.expr(s.Iter)
		p.w(")")
		p.body(s.Body)
	case *WhileStmt:
		p.w("while (")
		p.expr(s.Cond)
		p.w(")")
		p.body(s.Body)
	case *DoStmt:
		p.w("do")
		p.bracedBody(s.Body)
		p.w(" while (")
		p.expr(s.Cond)
		p.w(");")
	case *SyncStmt:
		p.w("synchronized (")
		p.expr(s.Lock)
		p.w(") ")
		p.block(s.Body)
	case *TryStmt:
		p.tryStmt(s)
	case *ReturnStmt:
		p.w("return")

		if s.X != nil {
			p.w(" ")
			p.expr(s.X)
		}

		p.w(";")
	case *BreakStmt:
		p.jump("break", s.Label)
	case *ContinueStmt:
		p.jump("continue", s.Label)
	case *ThrowStmt:
		p.w("throw ")
		p.expr(s.X)
		p.w(";")
	case *AssertStmt:
		p.w("assert ")
		p.expr(s.Cond)

		if s.Msg != nil {
			p.w(" : ")
			p.expr(s.Msg)
		}

		p.w(";")
	case *SwitchStmt:
		p.w("switch (")
		p.expr(s.Tag)
		p.w(") {")

		for _, c := range s.Cases {
			p.nl()
			p.switchCase(c)
		}

		p.nl()
		p.w("}")
	case *LabeledStmt:
		p.w(s.Label + ": ")
		p.stmt(s.Body)
	case *EmptyStmt:
		p.w(";")
	}
}

func (p *printer) jump(word, label string) {
	p.w(word)

	if label != "" {
		p.w(" " + label)
	}

	p.w(";")
}

func (p *printer) forStmt(s *ForStmt) {
	p.w("for (")

	for i, init := range s.Init {
		switch init := init.(type) {
		case *LocalVarStmt:
			if i == 0 {
				p.local(init)
				break
			}

			p.w(", " + init.Name)

			if init.Init != nil {
				p.w(" = ")
				p.expr(init.Init)
			}
		case *ExprStmt:
			if i > 0 {
				p.w(", ")
			}

			p.expr(init.X)
		}
	}

	p.w(";")

	if s.Cond != nil {
		p.w(" ")
		p.expr(s.Cond)
	}

	p.w(";")

	for i, u := range s.Update {
		if i == 0 {
			p.w(" ")
		} else {
			p.w(", ")
		}

		p.expr(u)
	}

	p.w(")")
	p.body(s.Body)
}

func (p *printer) tryStmt(s *TryStmt) {
	p.w("try ")

	if len(s.Resources) > 0 {
		p.w("(")

		for i, r := range s.Resources {
			if i > 0 {
				p.w("; ")
			}

			switch r := r.(type) {
			case *LocalVarStmt:
				p.local(r)
			case *ExprStmt:
				p.expr(r.X)
			}
		}

		p.w(") ")
	}

	p.block(s.Body)

	for _, c := range s.Catches {
		p.w(" ")
		p.catchClause(c)
	}

	if s.Finally != nil {
		p.w(" finally ")
		p.block(s.Finally)
	}
}

func (p *printer) catchClause(c *CatchClause) {
	p.w("catch (")
	p.mods(c.Mods, false)

	names := make([]string, len(c.Types))
	for i, t := range c.Types {
		names[i] = TypeString(t)
	}

	p.w(strings.Join(names, " | ") + " " + c.Name + ") ")
	p.block(c.Body)
}

func (p *printer) switchCase(c *SwitchCase) {
	if c.Labels == nil {
		p.w("default")
	} else {
		p.w("case ")

		for i, l := range c.Labels {
			if i > 0 {
				p.w(", ")
			}

			p.expr(l)
		}
	}

	if c.Arrow {
		p.w(" -> ")

		if len(c.Body) == 1 {
			p.stmt(c.Body[0])
		} else {
			p.block(&Block{Stmts: c.Body})
		}

		return
	}

	p.w(":")
	p.indent++

	for _, s := range c.Body {
		p.nl()
		p.stmt(s)
	}

	p.indent--
}

// Precedence returns the binding strength of e; higher binds tighter.
func Precedence(e Expr) int {
	switch e := e.(type) {
	case *Assign:
		return precAssign
	case *Conditional:
		return precCond
	case *Binary:
		return binaryPrec[e.Op]
	case *InstanceOf:
		return precRel
	case *Cast:
		return precUnary
	case *Unary:
		if e.Postfix {
			return precPost
		}

		return precUnary
	}

	return precAtom
}

func (p *printer) operand(e Expr, minPrec int) {
	if Precedence(e) < minPrec {
		p.w("(")
		p.expr(e)
		p.w(")")

		return
	}

	p.expr(e)
}

func (p *printer) receiver(e Expr) {
	_, isNewArray := e.(*NewArray)
	if isNewArray || Precedence(e) < precAtom {
		p.w("(")
		p.expr(e)
		p.w(")")

		return
	}

	p.expr(e)
}

func (p *printer) args(args []Expr) {
	p.w("(")

	for i, a := range args {
		if i > 0 {
			p.w(", ")
		}

		p.expr(a)
	}

	p.w(")")
}

func isPrefixUnary(e Expr) bool {
	u, ok := e.(*Unary)
	return ok && !u.Postfix
}

//nolint:cyclop,funlen // one case per expression type
func (p *printer) expr(e Expr) {
	switch e := e.(type) {
	case *Literal:
		p.w(e.Value)
	case *Name:
		p.w(e.Name)
	case *FieldAccess:
		p.receiver(e.X)
		p.w("." + e.Name)
	case *ArrayAccess:
		p.receiver(e.X)
		p.w("[")
		p.expr(e.Index)
		p.w("]")
	case *Call:
		if e.X != nil {
			p.receiver(e.X)
			p.w(".")
		}

		p.w(e.Name)
		p.args(e.Args)
	case *New:
		p.w("new " + TypeString(e.Type))
		p.args(e.Args)

		if e.Body != nil {
			p.w(" {")
			p.indent++
			p.members(e.Body)
			p.indent--
			p.nl()
			p.w("}")
		}
	case *NewArray:
		p.w("new " + TypeString(e.Type))

		for _, d := range e.Dims {
			p.w("[")
			p.expr(d)
			p.w("]")
		}

		p.w(strings.Repeat("[]", e.ExtraDims))

		if e.Init != nil {
			p.w(" ")
			p.expr(e.Init)
		}
	case *ArrayInit:
		p.w("{")

		for i, el := range e.Elems {
			if i > 0 {
				p.w(", ")
			}

			p.expr(el)
		}

		p.w("}")
	case *Unary:
		if e.Postfix {
			p.operand(e.X, precPost)
			p.w(e.Op)

			return
		}

		p.w(e.Op)

		if isPrefixUnary(e.X) {
			p.w("(")
			p.expr(e.X)
			p.w(")")

			return
		}

		p.operand(e.X, precUnary)
	case *Binary:
		prec := binaryPrec[e.Op]
		p.operand(e.X, prec)
		p.w(" " + e.Op + " ")
		p.operand(e.Y, prec+1)
	case *InstanceOf:
		p.operand(e.X, precRel)
		p.w(" instanceof " + TypeString(e.Type))

		if e.Binding != "" {
			p.w(" " + e.Binding)
		}
	case *Assign:
		p.operand(e.Lhs, precPost)
		p.w(" " + e.Op + " ")
		p.operand(e.Rhs, precAssign)
	case *Conditional:
		p.operand(e.Cond, precOr)
		p.w(" ? ")
		p.operand(e.Then, precCond)
		p.w(" : ")
		p.operand(e.Else, precCond)
	case *Cast:
		p.w("(" + TypeString(e.Type) + ") ")

		if u, ok := e.X.(*Unary); ok && !u.Postfix && !IsPrimitive(e.Type) &&
			(u.Op == "+" || u.Op == "-" || u.Op == "++" || u.Op == "--") {
			p.w("(")
			p.expr(e.X)
			p.w(")")

			return
		}

		p.operand(e.X, precUnary)
	case *This:
		if e.Qualifier != "" {
			p.w(e.Qualifier + ".")
		}

		p.w("this")
	case *Super:
		p.w("super")
	case *ClassLit:
		p.w(TypeString(e.Type) + ".class")
	}
}
