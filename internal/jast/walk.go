package jast

// Children returns the direct child nodes of n in source order.
//
//nolint:cyclop,funlen // one case per node type
func Children(n Node) []Node {
	var out []Node

	add := func(c Node) {
		if !isNil(c) {
			out = append(out, c)
		}
	}

	switch n := n.(type) {
	case *CompilationUnit:
		for _, t := range n.Types {
			add(t)
		}
	case *ClassDecl:
		for _, c := range n.EnumConstants {
			add(c)
		}

		for _, m := range n.Members {
			add(m)
		}
	case *EnumConstant:
		for _, a := range n.Args {
			add(a)
		}
	case *FieldDecl:
		add(n.Init)
	case *MethodDecl:
		for _, p := range n.Params {
			add(p)
		}

		add(n.Body)
	case *Initializer:
		add(n.Body)
	case *Block:
		for _, s := range n.Stmts {
			add(s)
		}
	case *LocalVarStmt:
		add(n.Init)
	case *ExprStmt:
		add(n.X)
	case *IfStmt:
		add(n.Cond)
		add(n.Then)
		add(n.Else)
	case *ForStmt:
		for _, s := range n.Init {
			add(s)
		}

		add(n.Cond)

		for _, u := range n.Update {
			add(u)
		}

		add(n.Body)
	case *ForEachStmt:
		add(n.Var)
		add(n.Iter)
		add(n.Body)
	case *WhileStmt:
		add(n.Cond)
		add(n.Body)
	case *DoStmt:
		add(n.Body)
		add(n.Cond)
	case *SyncStmt:
		add(n.Lock)
		add(n.Body)
	case *TryStmt:
		for _, r := range n.Resources {
			add(r)
		}

		add(n.Body)

		for _, c := range n.Catches {
			add(c)
		}

		add(n.Finally)
	case *CatchClause:
		add(n.Body)
	case *ReturnStmt:
		add(n.X)
	case *ThrowStmt:
		add(n.X)
	case *AssertStmt:
		add(n.Cond)
		add(n.Msg)
	case *SwitchStmt:
		add(n.Tag)

		for _, c := range n.Cases {
			add(c)
		}
	case *SwitchCase:
		for _, l := range n.Labels {
			add(l)
		}

		for _, s := range n.Body {
			add(s)
		}
	case *LabeledStmt:
		add(n.Body)
	case *FieldAccess:
		add(n.X)
	case *ArrayAccess:
		add(n.X)
		add(n.Index)
	case *Call:
		add(n.X)

		for _, a := range n.Args {
			add(a)
		}
	case *New:
		for _, a := range n.Args {
			add(a)
		}

		for _, m := range n.Body {
			add(m)
		}
	case *NewArray:
		for _, d := range n.Dims {
			add(d)
		}

		add(n.Init)
	case *ArrayInit:
		for _, e := range n.Elems {
			add(e)
		}
	case *Unary:
		add(n.X)
	case *Binary:
		add(n.X)
		add(n.Y)
	case *InstanceOf:
		add(n.X)
	case *Assign:
		add(n.Lhs)
		add(n.Rhs)
	case *Conditional:
		add(n.Cond)
		add(n.Then)
		add(n.Else)
	case *Cast:
		add(n.X)
	}

	return out
}

// isNil reports whether n is nil or a typed nil pointer.
func isNil(n Node) bool {
	if n == nil {
		return true
	}

	switch v := n.(type) {
	case *Block:
		return v == nil
	case *LocalVarStmt:
		return v == nil
	case *ArrayInit:
		return v == nil
	}

	return false
}

// Inspect walks the tree rooted at n in depth-first order. When fn returns
// false the children of that node are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if isNil(n) || !fn(n) {
		return
	}

	for _, c := range Children(n) {
		Inspect(c, fn)
	}
}

// Find returns every node of type T below root (root included) in tree order.
func Find[T Node](root Node) []T {
	var out []T

	Inspect(root, func(n Node) bool {
		if t, ok := n.(T); ok {
			out = append(out, t)
		}

		return true
	})

	return out
}

// Enclosing returns the nearest strict ancestor of n with type T.
func Enclosing[T Node](n Node) (T, bool) {
	var zero T
	if isNil(n) {
		return zero, false
	}

	for p := n.Parent(); p != nil; p = p.Parent() {
		if t, ok := p.(T); ok {
			return t, true
		}
	}

	return zero, false
}

// Contains reports whether n is ancestor or n itself.
func Contains(ancestor, n Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur == ancestor {
			return true
		}
	}

	return false
}

// Root returns the topmost ancestor of n.
func Root(n Node) Node {
	for n != nil && n.Parent() != nil {
		n = n.Parent()
	}

	return n
}

// IsLoop reports whether n is a loop statement.
func IsLoop(n Node) bool {
	switch n.(type) {
	case *ForStmt, *ForEachStmt, *WhileStmt, *DoStmt:
		return true
	}

	return false
}

// LoopBody returns the body of a loop statement, or nil.
func LoopBody(n Node) Stmt {
	switch l := n.(type) {
	case *ForStmt:
		return l.Body
	case *ForEachStmt:
		return l.Body
	case *WhileStmt:
		return l.Body
	case *DoStmt:
		return l.Body
	}

	return nil
}

// Relink sets the parent of every node below root. The parent of root is left
// untouched.
func Relink(root Node) {
	for _, c := range Children(root) {
		c.setParent(root)
		Relink(c)
	}
}

// Attach links child under parent and relinks the subtree.
func Attach(parent, child Node) {
	if isNil(child) {
		return
	}

	child.setParent(parent)
	Relink(child)
}
