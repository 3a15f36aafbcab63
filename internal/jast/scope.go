package jast

import "strings"

// Resolve finds the declaration that the simple name refers to at node at:
// a *LocalVarStmt, *Param, *FieldDecl or *CatchClause. It returns nil when the
// name is not declared in the tree.
//
//nolint:cyclop,gocognit // scope rules per enclosing construct
func Resolve(at Node, name string) Node {
	cur := at

	for parent := at.Parent(); parent != nil; cur, parent = parent, parent.Parent() {
		switch p := parent.(type) {
		case *Block:
			if d := precedingLocal(p.Stmts, cur, name); d != nil {
				return d
			}
		case *SwitchCase:
			if d := precedingLocal(p.Body, cur, name); d != nil {
				return d
			}
		case *SwitchStmt:
			for _, c := range p.Cases {
				if Node(c) == cur {
					break
				}

				if d := precedingLocal(c.Body, nil, name); d != nil {
					return d
				}
			}
		case *ForStmt:
			if d := precedingLocal(p.Init, cur, name); d != nil {
				return d
			}
		case *ForEachStmt:
			if cur != Node(p.Var) && p.Var.Name == name {
				return p.Var
			}
		case *TryStmt:
			if d := precedingLocal(p.Resources, cur, name); d != nil {
				return d
			}
		case *CatchClause:
			if p.Name == name {
				return p
			}
		case *MethodDecl:
			for _, param := range p.Params {
				if param.Name == name {
					return param
				}
			}
		case *ClassDecl:
			if f := findField(p, name); f != nil {
				return f
			}
		case *New:
			for _, m := range p.Body {
				if f, ok := m.(*FieldDecl); ok && f.Name == name {
					return f
				}
			}
		}
	}

	return nil
}

// precedingLocal scans the statements before stop (all of them when stop is
// not in the list) backwards for a local declaration of name.
func precedingLocal(stmts []Stmt, stop Node, name string) Node {
	end := len(stmts)

	for i, s := range stmts {
		if Node(s) == stop {
			end = i

			break
		}
	}

	for i := end - 1; i >= 0; i-- {
		if v, ok := stmts[i].(*LocalVarStmt); ok && v.Name == name {
			return v
		}
	}

	return nil
}

// ResolveCall finds the method declared in the unit that call invokes. Calls
// are matched by name and arity; ties prefer declared parameter types that
// match the inferred argument types.
func ResolveCall(call *Call) *MethodDecl {
	if call.X == nil && (call.Name == "this" || call.Name == "super") {
		return nil
	}

	var best *MethodDecl

	bestScore := -1

	for _, c := range callTargets(call) {
		for _, m := range c.Members {
			md, ok := m.(*MethodDecl)
			if !ok || md.IsConstructor || md.Name != call.Name || len(md.Params) != len(call.Args) {
				continue
			}

			score := 0

			for i, arg := range call.Args {
				at := TypeOf(arg)
				if at != nil && TypeString(at) == TypeString(md.Params[i].Type) {
					score++
				}
			}

			if score > bestScore {
				best, bestScore = md, score
			}
		}

		if best != nil {
			return best
		}
	}

	return best
}

// callTargets lists the classes whose methods a call may bind to, innermost
// first.
func callTargets(call *Call) []*ClassDecl {
	unit := unitOf(call)

	switch x := call.X.(type) {
	case nil, *This:
		var out []*ClassDecl
		for n := Node(call); n != nil; n = n.Parent() {
			if c, ok := n.(*ClassDecl); ok {
				out = append(out, c)
			}
		}

		return out
	case *Name:
		if Resolve(x, x.Name) == nil {
			if c := FindClass(unit, x.Name); c != nil {
				return []*ClassDecl{c}
			}

			return nil
		}
	case *Super:
		return nil
	}

	if t := TypeOf(call.X); t != nil && t.Dims == 0 {
		if c := FindClass(unit, t.Name); c != nil {
			return []*ClassDecl{c}
		}
	}

	return nil
}

func unitOf(n Node) *CompilationUnit {
	u, _ := Root(n).(*CompilationUnit)
	return u
}

// EnclosingClass returns the innermost class declaration containing n.
func EnclosingClass(n Node) *ClassDecl {
	c, _ := Enclosing[*ClassDecl](n)
	return c
}

// EnclosingMethod returns the innermost method or constructor containing n.
func EnclosingMethod(n Node) *MethodDecl {
	m, _ := Enclosing[*MethodDecl](n)
	return m
}

// InStaticContext reports whether n is evaluated without an enclosing
// instance: inside a static method, static initializer or static field.
func InStaticContext(n Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch d := p.(type) {
		case *MethodDecl:
			return d.Mods.Has(ModStatic)
		case *Initializer:
			return d.Static
		case *FieldDecl:
			return d.Mods.Has(ModStatic)
		case *ClassDecl:
			return false
		}
	}

	return false
}

// Classes returns every class and enum declared in the unit, nested ones
// included, in tree order. Interfaces are skipped.
func Classes(unit *CompilationUnit) []*ClassDecl {
	var out []*ClassDecl

	for _, c := range Find[*ClassDecl](unit) {
		if c.Kind != KindInterface {
			out = append(out, c)
		}
	}

	return out
}

// FindClass returns the type declared in the unit under the simple, dotted or
// binary name.
func FindClass(unit *CompilationUnit, name string) *ClassDecl {
	if unit == nil || name == "" {
		return nil
	}

	for _, c := range Find[*ClassDecl](unit) {
		if c.Name == name || QualifiedName(c) == name || strings.HasSuffix(strings.ReplaceAll(QualifiedName(c), "$", "."), "."+name) {
			return c
		}
	}

	return nil
}

// QualifiedName returns the binary name of c: package, then outer classes
// joined with '$'.
func QualifiedName(c *ClassDecl) string {
	name := c.Name

	for p := c.Parent(); p != nil; p = p.Parent() {
		switch d := p.(type) {
		case *ClassDecl:
			name = d.Name + "$" + name
		case *CompilationUnit:
			if d.Package != "" {
				name = d.Package + "." + name
			}
		}
	}

	return name
}

// SimpleName strips the package and any outer class prefix from a binary
// class name.
func SimpleName(name string) string {
	if i := strings.LastIndexAny(name, ".$/"); i >= 0 {
		return name[i+1:]
	}

	return name
}

// DeclaredNames returns every identifier declared below root: locals,
// parameters, fields, methods and types.
func DeclaredNames(root Node) map[string]bool {
	names := map[string]bool{}

	Inspect(root, func(n Node) bool {
		switch d := n.(type) {
		case *LocalVarStmt:
			names[d.Name] = true
		case *Param:
			names[d.Name] = true
		case *FieldDecl:
			names[d.Name] = true
		case *MethodDecl:
			names[d.Name] = true
		case *ClassDecl:
			names[d.Name] = true
		case *CatchClause:
			names[d.Name] = true
		case *InstanceOf:
			if d.Binding != "" {
				names[d.Binding] = true
			}
		}

		return true
	})

	return names
}
