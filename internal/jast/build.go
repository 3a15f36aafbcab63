package jast

import (
	"errors"
	"strconv"
)

var errEmpty = errors.New("no declaration found")

// Constructors for freshly generated nodes. Each returns a detached subtree
// whose internal parent links are already set.

func NewName(name string) *Name { return &Name{Name: name} }

func IntLit(v int) *Literal { return &Literal{Kind: LitInt, Value: strconv.Itoa(v)} }

func BoolLit(v bool) *Literal { return &Literal{Kind: LitBool, Value: strconv.FormatBool(v)} }

func StrLit(v string) *Literal { return &Literal{Kind: LitString, Value: strconv.Quote(v)} }

func NullLit() *Literal { return &Literal{Kind: LitNull, Value: "null"} }

func NewCall(x Expr, name string, args ...Expr) *Call {
	c := &Call{X: x, Name: name, Args: append([]Expr{}, args...)}
	Relink(c)

	return c
}

func NewField(x Expr, name string) *FieldAccess {
	f := &FieldAccess{X: x, Name: name}
	Relink(f)

	return f
}

func NewIndex(x, idx Expr) *ArrayAccess {
	a := &ArrayAccess{X: x, Index: idx}
	Relink(a)

	return a
}

func NewBinary(op string, x, y Expr) *Binary {
	b := &Binary{Op: op, X: x, Y: y}
	Relink(b)

	return b
}

func NewUnary(op string, x Expr) *Unary {
	u := &Unary{Op: op, X: x}
	Relink(u)

	return u
}

func NewPostfix(op string, x Expr) *Unary {
	u := &Unary{Op: op, X: x, Postfix: true}
	Relink(u)

	return u
}

func NewAssign(op string, lhs, rhs Expr) *Assign {
	a := &Assign{Op: op, Lhs: lhs, Rhs: rhs}
	Relink(a)

	return a
}

func NewCast(t *TypeRef, x Expr) *Cast {
	c := &Cast{Type: t, X: x}
	Relink(c)

	return c
}

func NewObject(t *TypeRef, args ...Expr) *New {
	n := &New{Type: t, Args: append([]Expr{}, args...)}
	Relink(n)

	return n
}

func NewBlock(stmts ...Stmt) *Block {
	b := &Block{Stmts: append([]Stmt{}, stmts...)}
	Relink(b)

	return b
}

func NewLocal(t *TypeRef, name string, init Expr) *LocalVarStmt {
	v := &LocalVarStmt{Type: t, Name: name, Init: init}
	Relink(v)

	return v
}

func NewExprStmt(x Expr) *ExprStmt {
	s := &ExprStmt{X: x}
	Relink(s)

	return s
}

// NewIf builds an if statement; els may be nil.
func NewIf(cond Expr, then, els Stmt) *IfStmt {
	s := &IfStmt{Cond: cond, Then: then, Else: els}
	Relink(s)

	return s
}

// NewCountedFor builds "for (int v = from; v < limit; v++) body".
func NewCountedFor(v string, from, limit Expr, body *Block) *ForStmt {
	s := &ForStmt{
		Init:   []Stmt{&LocalVarStmt{Type: PrimType("int"), Name: v, Init: from}},
		Cond:   &Binary{Op: "<", X: NewName(v), Y: limit},
		Update: []Expr{&Unary{Op: "++", X: NewName(v), Postfix: true}},
		Body:   body,
	}
	Relink(s)

	return s
}

func NewSync(lock Expr, body *Block) *SyncStmt {
	s := &SyncStmt{Lock: lock, Body: body}
	Relink(s)

	return s
}

// ParseStmt parses a single statement by wrapping it in a throwaway method.
func ParseStmt(src string) (Stmt, error) {
	unit, err := Parse([]byte("class _S { void _m() { " + src + " } }"))
	if err != nil {
		return nil, err
	}

	m, _ := unit.Types[0].Members[0].(*MethodDecl)
	if len(m.Body.Stmts) == 0 {
		return nil, errEmpty
	}

	if len(m.Body.Stmts) != 1 {
		return NewBlock(m.Body.Stmts...), nil
	}

	s := m.Body.Stmts[0]
	s.setParent(nil)

	return s, nil
}

// ParseMember parses a single class member declaration.
func ParseMember(src string) (Member, error) {
	unit, err := Parse([]byte("class _S { " + src + " }"))
	if err != nil {
		return nil, err
	}

	if len(unit.Types[0].Members) == 0 {
		return nil, errEmpty
	}

	m := unit.Types[0].Members[0]
	m.setParent(nil)

	return m, nil
}

// ParseClass parses a single type declaration.
func ParseClass(src string) (*ClassDecl, error) {
	unit, err := Parse([]byte(src))
	if err != nil {
		return nil, err
	}

	if len(unit.Types) == 0 {
		return nil, errEmpty
	}

	c := unit.Types[0]
	c.setParent(nil)

	return c, nil
}
