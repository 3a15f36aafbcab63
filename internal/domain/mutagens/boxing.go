package mutagens

import (
	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

// boxable reports whether e is a primitive-typed expression in a position
// where an object round-trip of the same value compiles to the same program:
// an assignment's right-hand side, an argument of a method declared in the
// unit, an operand, a returned value, or the operand of a non-mutating unary
// operator.
func boxable(e jast.Expr) bool {
	t := jast.TypeOf(e)
	if !jast.IsPrimitive(t) || inConstantContext(e) || !fitsTarget(e) {
		return false
	}

	switch p := e.Parent().(type) {
	case *jast.Assign:
		return p.Rhs == e
	case *jast.Call:
		return boxableArg(p, e)
	case *jast.Binary:
		if p.Op != "==" && p.Op != "!=" {
			return true
		}

		other := p.X
		if other == e {
			other = p.Y
		}

		return jast.IsPrimitive(jast.TypeOf(other))
	case *jast.ReturnStmt:
		return true
	case *jast.Unary:
		return p.Op != "++" && p.Op != "--"
	}

	return false
}

// inConstantContext reports whether e is part of an expression javac must
// fold: static final field initializers, enum constant arguments and case
// labels.
func inConstantContext(e jast.Expr) bool {
	var child jast.Node = e

	for p := e.Parent(); p != nil; child, p = p, p.Parent() {
		switch d := p.(type) {
		case *jast.FieldDecl:
			return d.Mods.Has(jast.ModStatic) && d.Mods.Has(jast.ModFinal)
		case *jast.EnumConstant:
			return true
		case *jast.SwitchCase:
			for _, l := range d.Labels {
				if l == child {
					return true
				}
			}

			return false
		case jast.Stmt, jast.Member:
			return false
		}
	}

	return false
}

// fitsTarget rejects expressions whose enclosing value flows into a final
// variable, where it may be a constant, or into a byte, short or char slot
// through implicit constant narrowing.
func fitsTarget(e jast.Expr) bool {
	root := e

	for {
		next := operandOf(root)
		if next == nil {
			break
		}

		root = next
	}

	var target *jast.TypeRef

	switch p := root.Parent().(type) {
	case *jast.LocalVarStmt:
		if p.Mods.Has(jast.ModFinal) {
			return false
		}

		target = p.Type
	case *jast.FieldDecl:
		if p.Mods.Has(jast.ModFinal) {
			return false
		}

		target = p.Type
	case *jast.Assign:
		if p.Op == "=" && p.Rhs == root {
			target = jast.TypeOf(p.Lhs)
		}
	case *jast.ReturnStmt:
		if md := jast.EnclosingMethod(p); md != nil {
			target = md.Result
		}
	}

	if target == nil || target.Dims > 0 {
		return true
	}

	switch target.Name {
	case "byte", "short", "char":
		rt := jast.TypeOf(root)
		return rt != nil && rt.Dims == 0 && rt.Name == target.Name
	}

	return true
}

// operandOf returns the operator expression e is a value operand of.
func operandOf(e jast.Expr) jast.Expr {
	switch p := e.Parent().(type) {
	case *jast.Binary:
		return p
	case *jast.Conditional:
		return p
	case *jast.Unary:
		if p.Op != "++" && p.Op != "--" {
			return p
		}
	}

	return nil
}

// boxableArg accepts arguments bound to a primitive parameter of a unit
// method whose overloads all take a primitive at that position, so that the
// boxed argument cannot select another overload.
func boxableArg(call *jast.Call, arg jast.Expr) bool {
	md := jast.ResolveCall(call)
	if md == nil {
		return false
	}

	idx := -1

	for i, a := range call.Args {
		if a == arg {
			idx = i
		}
	}

	if idx < 0 {
		return false
	}

	owner := jast.EnclosingClass(md)
	if owner == nil {
		return false
	}

	for _, mem := range owner.Members {
		other, ok := mem.(*jast.MethodDecl)
		if !ok || other.IsConstructor || other.Name != md.Name || len(other.Params) != len(call.Args) {
			continue
		}

		p := other.Params[idx]
		if p.Varargs || !jast.IsPrimitive(p.Type) {
			return false
		}
	}

	return true
}
