package jast

// Replace puts nw where old is in old's parent. It reports false when old is
// detached or nw does not fit the slot old occupies.
//
//nolint:cyclop,funlen,gocognit // one case per node type
func Replace(old, nw Node) bool {
	parent := old.Parent()
	if parent == nil {
		return false
	}

	ok := false

	switch p := parent.(type) {
	case *CompilationUnit:
		for i, t := range p.Types {
			if Node(t) == old {
				if c, isClass := nw.(*ClassDecl); isClass {
					p.Types[i] = c
					ok = true
				}
			}
		}
	case *ClassDecl:
		ok = swapMembers(p.Members, old, nw)
	case *EnumConstant:
		ok = swapExprs(p.Args, old, nw)
	case *FieldDecl:
		ok = swapExpr(&p.Init, old, nw)
	case *MethodDecl:
		ok = swapBlock(&p.Body, old, nw)
	case *Initializer:
		ok = swapBlock(&p.Body, old, nw)
	case *Block:
		ok = swapStmts(p.Stmts, old, nw)
	case *LocalVarStmt:
		ok = swapExpr(&p.Init, old, nw)
	case *ExprStmt:
		ok = swapExpr(&p.X, old, nw)
	case *IfStmt:
		ok = swapExpr(&p.Cond, old, nw) || swapStmt(&p.Then, old, nw) || swapStmt(&p.Else, old, nw)
	case *ForStmt:
		ok = swapStmts(p.Init, old, nw) || swapExpr(&p.Cond, old, nw) ||
			swapExprs(p.Update, old, nw) || swapStmt(&p.Body, old, nw)
	case *ForEachStmt:
		ok = swapExpr(&p.Iter, old, nw) || swapStmt(&p.Body, old, nw)
	case *WhileStmt:
		ok = swapExpr(&p.Cond, old, nw) || swapStmt(&p.Body, old, nw)
	case *DoStmt:
		ok = swapStmt(&p.Body, old, nw) || swapExpr(&p.Cond, old, nw)
	case *SyncStmt:
		ok = swapExpr(&p.Lock, old, nw) || swapBlock(&p.Body, old, nw)
	case *TryStmt:
		ok = swapStmts(p.Resources, old, nw) || swapBlock(&p.Body, old, nw) || swapBlock(&p.Finally, old, nw)
	case *CatchClause:
		ok = swapBlock(&p.Body, old, nw)
	case *ReturnStmt:
		ok = swapExpr(&p.X, old, nw)
	case *ThrowStmt:
		ok = swapExpr(&p.X, old, nw)
	case *AssertStmt:
		ok = swapExpr(&p.Cond, old, nw) || swapExpr(&p.Msg, old, nw)
	case *SwitchStmt:
		ok = swapExpr(&p.Tag, old, nw)
	case *SwitchCase:
		ok = swapExprs(p.Labels, old, nw) || swapStmts(p.Body, old, nw)
	case *LabeledStmt:
		ok = swapStmt(&p.Body, old, nw)
	case *FieldAccess:
		ok = swapExpr(&p.X, old, nw)
	case *ArrayAccess:
		ok = swapExpr(&p.X, old, nw) || swapExpr(&p.Index, old, nw)
	case *Call:
		ok = swapExpr(&p.X, old, nw) || swapExprs(p.Args, old, nw)
	case *New:
		ok = swapExprs(p.Args, old, nw) || swapMembers(p.Body, old, nw)
	case *NewArray:
		ok = swapExprs(p.Dims, old, nw)
	case *ArrayInit:
		ok = swapExprs(p.Elems, old, nw)
	case *Unary:
		ok = swapExpr(&p.X, old, nw)
	case *Binary:
		ok = swapExpr(&p.X, old, nw) || swapExpr(&p.Y, old, nw)
	case *InstanceOf:
		ok = swapExpr(&p.X, old, nw)
	case *Assign:
		ok = swapExpr(&p.Lhs, old, nw) || swapExpr(&p.Rhs, old, nw)
	case *Conditional:
		ok = swapExpr(&p.Cond, old, nw) || swapExpr(&p.Then, old, nw) || swapExpr(&p.Else, old, nw)
	case *Cast:
		ok = swapExpr(&p.X, old, nw)
	}

	if ok {
		old.setParent(nil)
		Attach(parent, nw)
	}

	return ok
}

func swapExpr(slot *Expr, old, nw Node) bool {
	if *slot == nil || Node(*slot) != old {
		return false
	}

	e, ok := nw.(Expr)
	if !ok {
		return false
	}

	*slot = e

	return true
}

func swapExprs(list []Expr, old, nw Node) bool {
	for i := range list {
		if swapExpr(&list[i], old, nw) {
			return true
		}
	}

	return false
}

func swapStmt(slot *Stmt, old, nw Node) bool {
	if *slot == nil || Node(*slot) != old {
		return false
	}

	s, ok := nw.(Stmt)
	if !ok {
		return false
	}

	*slot = s

	return true
}

func swapStmts(list []Stmt, old, nw Node) bool {
	for i := range list {
		if swapStmt(&list[i], old, nw) {
			return true
		}
	}

	return false
}

func swapBlock(slot **Block, old, nw Node) bool {
	if *slot == nil || Node(*slot) != old {
		return false
	}

	b, ok := nw.(*Block)
	if !ok {
		return false
	}

	*slot = b

	return true
}

func swapMembers(list []Member, old, nw Node) bool {
	for i := range list {
		if Node(list[i]) != old {
			continue
		}

		m, ok := nw.(Member)
		if !ok {
			return false
		}

		list[i] = m

		return true
	}

	return false
}

// StmtList returns the statement list that directly holds s together with the
// index of s, or nil when s is not held by a block or a switch case.
func StmtList(s Stmt) (*[]Stmt, int) {
	var list *[]Stmt

	switch p := s.Parent().(type) {
	case *Block:
		list = &p.Stmts
	case *SwitchCase:
		list = &p.Body
	default:
		return nil, -1
	}

	for i, cur := range *list {
		if cur == s {
			return list, i
		}
	}

	return nil, -1
}

// InsertBefore inserts stmts immediately before s. When s is not held by a
// statement list (for example an unbraced if branch) s is first wrapped in a
// block.
func InsertBefore(s Stmt, stmts ...Stmt) bool {
	return insertAt(s, 0, stmts)
}

// InsertAfter inserts stmts immediately after s.
func InsertAfter(s Stmt, stmts ...Stmt) bool {
	return insertAt(s, 1, stmts)
}

func insertAt(s Stmt, offset int, stmts []Stmt) bool {
	if len(stmts) == 0 {
		return true
	}

	list, idx := StmtList(s)
	if list == nil {
		block := &Block{}
		if !Replace(s, block) {
			return false
		}

		block.Stmts = []Stmt{s}
		Attach(block, s)

		list, idx = &block.Stmts, 0
	}

	at := idx + offset
	next := make([]Stmt, 0, len(*list)+len(stmts))
	next = append(next, (*list)[:at]...)
	next = append(next, stmts...)
	next = append(next, (*list)[at:]...)
	*list = next

	holder := s.Parent()
	for _, st := range stmts {
		Attach(holder, st)
	}

	return true
}

// ReplaceStmt replaces s with the given statements. A single replacement is
// a plain Replace; several statements are spliced into the enclosing list or
// wrapped in a block.
func ReplaceStmt(s Stmt, stmts ...Stmt) bool {
	if len(stmts) == 1 {
		return Replace(s, stmts[0])
	}

	list, idx := StmtList(s)
	if list == nil {
		return Replace(s, &Block{Stmts: stmts})
	}

	holder := s.Parent()
	next := make([]Stmt, 0, len(*list)+len(stmts)-1)
	next = append(next, (*list)[:idx]...)
	next = append(next, stmts...)
	next = append(next, (*list)[idx+1:]...)
	*list = next

	s.setParent(nil)

	for _, st := range stmts {
		Attach(holder, st)
	}

	return true
}

// AddMember appends m to the class body.
func AddMember(c *ClassDecl, m Member) {
	c.Members = append(c.Members, m)
	Attach(c, m)
}
