package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type intToLong struct{}

// NewIntToLongLoop widens the induction variable of an int counted loop to
// long, moving the loop onto C2's long counted loop path.
func NewIntToLongLoop() Mutator { return intToLong{} }

func (intToLong) Type() m.MutatorType { return m.IntToLongLoop }

func (intToLong) IsApplicable(ctx *Context) bool {
	return Exists(ctx, widenableLoop)
}

func (intToLong) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, widenableLoop)
	if len(candidates) == 0 {
		return skipped(ctx, "no int-indexed for loop to widen"), nil
	}

	loop := Pick(ctx, candidates)
	v, _ := loop.Init[0].(*jast.LocalVarStmt)

	v.Type = jast.PrimType("long")

	if lit, ok := v.Init.(*jast.Literal); ok && lit.Kind == jast.LitInt {
		if !jast.Replace(lit, &jast.Literal{Kind: jast.LitLong, Value: lit.Value + "L"}) {
			return m.MutationResult{}, fmt.Errorf("failed to widen initializer of %s", v.Name)
		}
	}

	return succeeded(ctx, "widened "+v.Name+" to long"), nil
}

// widenableLoop accepts a for loop declaring exactly one int variable whose
// every use still compiles when the variable is a long.
func widenableLoop(f *jast.ForStmt) bool {
	if len(f.Init) != 1 {
		return false
	}

	v, ok := f.Init[0].(*jast.LocalVarStmt)
	if !ok || v.Type.Name != "int" || v.Type.Dims != 0 {
		return false
	}

	for _, n := range usesOf(f, v) {
		if !acceptsLong(n, v.Name) {
			return false
		}
	}

	return true
}

// acceptsLong follows the value of e up through the operators that would
// widen with it and reports whether the context it lands in takes a long.
func acceptsLong(e jast.Expr, idx string) bool {
	for {
		switch p := e.Parent().(type) {
		case *jast.Binary:
			switch p.Op {
			case "==", "!=", "<", ">", "<=", ">=":
				return true
			case "<<", ">>", ">>>":
				if p.Y == e {
					return true
				}
			case "+":
				if jast.IsString(jast.TypeOf(p)) {
					return true
				}
			}

			e = p
		case *jast.Unary:
			e = p
		case *jast.Conditional:
			if p.Cond == e {
				return false
			}

			e = p
		case *jast.Cast:
			return jast.IsPrimitive(p.Type)
		case *jast.Assign:
			if p.Lhs == e {
				return isNameOf(e, idx)
			}

			return isNameOf(p.Lhs, idx) || (p.Op != "=" && jast.IsNumeric(jast.TypeOf(p.Lhs))) || wideType(jast.TypeOf(p.Lhs))
		case *jast.LocalVarStmt:
			return wideType(p.Type)
		case *jast.ExprStmt:
			return true
		case *jast.ForStmt:
			for _, u := range p.Update {
				if u == e {
					return true
				}
			}

			return false
		case *jast.ReturnStmt:
			md := jast.EnclosingMethod(p)
			return md != nil && wideType(md.Result)
		case *jast.Call:
			return longArg(p, e)
		default:
			return false
		}
	}
}

// wideType reports whether t is a primitive that holds a long without a
// cast. Reference targets are refused since they would box a Long where an
// Integer was stored before.
func wideType(t *jast.TypeRef) bool {
	if t == nil || t.Dims != 0 {
		return false
	}

	switch t.Name {
	case "long", "float", "double":
		return true
	}

	return false
}

// longArg accepts print calls and arguments bound to a wide parameter of a
// method declared in the unit.
func longArg(call *jast.Call, arg jast.Expr) bool {
	if call.Name == "println" || call.Name == "print" {
		return len(call.Args) == 1
	}

	md := jast.ResolveCall(call)
	if md == nil {
		return false
	}

	for i, a := range call.Args {
		if a == arg {
			return i < len(md.Params) && !md.Params[i].Varargs && wideType(md.Params[i].Type)
		}
	}

	return false
}
