package jast

// Clone returns a deep copy of n. The copy is detached: its parent is nil and
// every node below it is linked to its new parent.
func Clone[T Node](n T) T {
	c, _ := cloneNode(n).(T)
	if !isNil(c) {
		Relink(c)
	}

	return c
}

// Clone returns a deep copy of t.
func (t *TypeRef) Clone() *TypeRef {
	if t == nil {
		return nil
	}

	c := *t
	c.Bound = t.Bound.Clone()

	if t.Args != nil {
		c.Args = make([]*TypeRef, len(t.Args))
		for i, a := range t.Args {
			c.Args[i] = a.Clone()
		}
	}

	return &c
}

func cloneTypes(ts []*TypeRef) []*TypeRef {
	if ts == nil {
		return nil
	}

	out := make([]*TypeRef, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}

	return out
}

func cloneMods(m Modifiers) Modifiers {
	out := Modifiers{Flags: m.Flags}
	for _, a := range m.Annotations {
		cp := *a
		out.Annotations = append(out.Annotations, &cp)
	}

	return out
}

func cloneExpr(e Expr) Expr {
	if e == nil {
		return nil
	}

	c, _ := cloneNode(e).(Expr)

	return c
}

func cloneExprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}

	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = cloneExpr(e)
	}

	return out
}

func cloneStmt(s Stmt) Stmt {
	if s == nil {
		return nil
	}

	c, _ := cloneNode(s).(Stmt)

	return c
}

func cloneStmts(ss []Stmt) []Stmt {
	if ss == nil {
		return nil
	}

	out := make([]Stmt, len(ss))
	for i, s := range ss {
		out[i] = cloneStmt(s)
	}

	return out
}

func cloneBlock(b *Block) *Block {
	if b == nil {
		return nil
	}

	return &Block{Stmts: cloneStmts(b.Stmts)}
}

func cloneMembers(ms []Member) []Member {
	if ms == nil {
		return nil
	}

	out := make([]Member, len(ms))
	for i, m := range ms {
		out[i], _ = cloneNode(m).(Member)
	}

	return out
}

func cloneLocal(v *LocalVarStmt) *LocalVarStmt {
	if v == nil {
		return nil
	}

	return &LocalVarStmt{Mods: cloneMods(v.Mods), Type: v.Type.Clone(), Name: v.Name, Init: cloneExpr(v.Init)}
}

func cloneArrayInit(a *ArrayInit) *ArrayInit {
	if a == nil {
		return nil
	}

	return &ArrayInit{Elems: cloneExprs(a.Elems)}
}

//nolint:cyclop,funlen // one case per node type
func cloneNode(n Node) Node {
	if isNil(n) {
		return nil
	}

	switch n := n.(type) {
	case *CompilationUnit:
		c := &CompilationUnit{Package: n.Package}
		for _, imp := range n.Imports {
			cp := *imp
			c.Imports = append(c.Imports, &cp)
		}

		for _, t := range n.Types {
			cd, _ := cloneNode(t).(*ClassDecl)
			c.Types = append(c.Types, cd)
		}

		return c
	case *ClassDecl:
		c := &ClassDecl{
			Mods:       cloneMods(n.Mods),
			Kind:       n.Kind,
			Name:       n.Name,
			TypeParams: n.TypeParams,
			Extends:    n.Extends.Clone(),
			Implements: cloneTypes(n.Implements),
			Members:    cloneMembers(n.Members),
		}
		for _, ec := range n.EnumConstants {
			c.EnumConstants = append(c.EnumConstants, &EnumConstant{Name: ec.Name, Args: cloneExprs(ec.Args), HasArgs: ec.HasArgs})
		}

		return c
	case *EnumConstant:
		return &EnumConstant{Name: n.Name, Args: cloneExprs(n.Args), HasArgs: n.HasArgs}
	case *FieldDecl:
		return &FieldDecl{Mods: cloneMods(n.Mods), Type: n.Type.Clone(), Name: n.Name, Init: cloneExpr(n.Init)}
	case *MethodDecl:
		c := &MethodDecl{
			Mods:          cloneMods(n.Mods),
			TypeParams:    n.TypeParams,
			Result:        n.Result.Clone(),
			Name:          n.Name,
			Throws:        cloneTypes(n.Throws),
			Body:          cloneBlock(n.Body),
			IsConstructor: n.IsConstructor,
		}
		for _, p := range n.Params {
			c.Params = append(c.Params, &Param{Mods: cloneMods(p.Mods), Type: p.Type.Clone(), Name: p.Name, Varargs: p.Varargs})
		}

		return c
	case *Param:
		return &Param{Mods: cloneMods(n.Mods), Type: n.Type.Clone(), Name: n.Name, Varargs: n.Varargs}
	case *Initializer:
		return &Initializer{Static: n.Static, Body: cloneBlock(n.Body)}
	case *Block:
		return cloneBlock(n)
	case *LocalVarStmt:
		return cloneLocal(n)
	case *ExprStmt:
		return &ExprStmt{X: cloneExpr(n.X)}
	case *IfStmt:
		return &IfStmt{Cond: cloneExpr(n.Cond), Then: cloneStmt(n.Then), Else: cloneStmt(n.Else)}
	case *ForStmt:
		return &ForStmt{Init: cloneStmts(n.Init), Cond: cloneExpr(n.Cond), Update: cloneExprs(n.Update), Body: cloneStmt(n.Body)}
	case *ForEachStmt:
		return &ForEachStmt{Var: cloneLocal(n.Var), Iter: cloneExpr(n.Iter), Body: cloneStmt(n.Body)}
	case *WhileStmt:
		return &WhileStmt{Cond: cloneExpr(n.Cond), Body: cloneStmt(n.Body)}
	case *DoStmt:
		return &DoStmt{Body: cloneStmt(n.Body), Cond: cloneExpr(n.Cond)}
	case *SyncStmt:
		return &SyncStmt{Lock: cloneExpr(n.Lock), Body: cloneBlock(n.Body)}
	case *TryStmt:
		c := &TryStmt{Resources: cloneStmts(n.Resources), Body: cloneBlock(n.Body), Finally: cloneBlock(n.Finally)}
		for _, cc := range n.Catches {
			c.Catches = append(c.Catches, &CatchClause{Mods: cloneMods(cc.Mods), Types: cloneTypes(cc.Types), Name: cc.Name, Body: cloneBlock(cc.Body)})
		}

		return c
	case *CatchClause:
		return &CatchClause{Mods: cloneMods(n.Mods), Types: cloneTypes(n.Types), Name: n.Name, Body: cloneBlock(n.Body)}
	case *ReturnStmt:
		return &ReturnStmt{X: cloneExpr(n.X)}
	case *BreakStmt:
		return &BreakStmt{Label: n.Label}
	case *ContinueStmt:
		return &ContinueStmt{Label: n.Label}
	case *ThrowStmt:
		return &ThrowStmt{X: cloneExpr(n.X)}
	case *AssertStmt:
		return &AssertStmt{Cond: cloneExpr(n.Cond), Msg: cloneExpr(n.Msg)}
	case *SwitchStmt:
		c := &SwitchStmt{Tag: cloneExpr(n.Tag)}
		for _, sc := range n.Cases {
			c.Cases = append(c.Cases, &SwitchCase{Labels: cloneExprs(sc.Labels), Body: cloneStmts(sc.Body), Arrow: sc.Arrow})
		}

		return c
	case *SwitchCase:
		return &SwitchCase{Labels: cloneExprs(n.Labels), Body: cloneStmts(n.Body), Arrow: n.Arrow}
	case *LabeledStmt:
		return &LabeledStmt{Label: n.Label, Body: cloneStmt(n.Body)}
	case *EmptyStmt:
		return &EmptyStmt{}
	case *Literal:
		return &Literal{Kind: n.Kind, Value: n.Value}
	case *Name:
		return &Name{Name: n.Name}
	case *FieldAccess:
		return &FieldAccess{X: cloneExpr(n.X), Name: n.Name}
	case *ArrayAccess:
		return &ArrayAccess{X: cloneExpr(n.X), Index: cloneExpr(n.Index)}
	case *Call:
		return &Call{X: cloneExpr(n.X), Name: n.Name, Args: cloneExprs(n.Args)}
	case *New:
		return &New{Type: n.Type.Clone(), Args: cloneExprs(n.Args), Body: cloneMembers(n.Body)}
	case *NewArray:
		return &NewArray{Type: n.Type.Clone(), Dims: cloneExprs(n.Dims), ExtraDims: n.ExtraDims, Init: cloneArrayInit(n.Init)}
	case *ArrayInit:
		return cloneArrayInit(n)
	case *Unary:
		return &Unary{Op: n.Op, X: cloneExpr(n.X), Postfix: n.Postfix}
	case *Binary:
		return &Binary{Op: n.Op, X: cloneExpr(n.X), Y: cloneExpr(n.Y)}
	case *InstanceOf:
		return &InstanceOf{X: cloneExpr(n.X), Type: n.Type.Clone(), Binding: n.Binding}
	case *Assign:
		return &Assign{Op: n.Op, Lhs: cloneExpr(n.Lhs), Rhs: cloneExpr(n.Rhs)}
	case *Conditional:
		return &Conditional{Cond: cloneExpr(n.Cond), Then: cloneExpr(n.Then), Else: cloneExpr(n.Else)}
	case *Cast:
		return &Cast{Type: n.Type.Clone(), X: cloneExpr(n.X)}
	case *This:
		return &This{Qualifier: n.Qualifier}
	case *Super:
		return &Super{}
	case *ClassLit:
		return &ClassLit{Type: n.Type.Clone()}
	}

	return nil
}
