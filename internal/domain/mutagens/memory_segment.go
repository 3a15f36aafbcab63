package mutagens

import (
	"fmt"
	"strconv"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type arrayToSegment struct{}

// NewArrayToMemorySegment replaces a method-local array with an arena-backed
// MemorySegment and rewrites every element access and length read.
func NewArrayToMemorySegment() Mutator { return arrayToSegment{} }

func (arrayToSegment) Type() m.MutatorType { return m.ArrayToMemorySegment }

func (arrayToSegment) IsApplicable(ctx *Context) bool {
	return Exists(ctx, segmentableArray)
}

func (arrayToSegment) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, segmentableArray)
	if len(candidates) == 0 {
		return skipped(ctx, "no local array with plain element accesses"), nil
	}

	decl := Pick(ctx, candidates)
	prim, boxed, _ := segmentComponent(decl.Type)
	scope := decl.Parent()
	uses := usesOf(scope, decl)

	arena := ctx.FreshName(decl.Name + "Arena")
	length := ctx.FreshName(decl.Name + "Len")
	elems := arrayElems(decl.Init)

	var lenExpr jast.Expr
	if na, ok := decl.Init.(*jast.NewArray); ok && len(na.Dims) == 1 {
		lenExpr = jast.Clone(na.Dims[0])
	} else {
		lenExpr = jast.IntLit(len(elems))
	}

	decls := []jast.Stmt{
		jast.NewLocal(foreignType("Arena"), arena, jast.NewCall(jast.NewName(foreignPkg+".Arena"), "ofConfined")),
		jast.NewLocal(jast.PrimType("int"), length, lenExpr),
		jast.NewLocal(foreignType("MemorySegment"), decl.Name,
			jast.NewCall(jast.NewName(arena), "allocate", layoutOf(prim), jast.NewCast(jast.PrimType("long"), jast.NewName(length)))),
	}

	for i, e := range elems {
		at := &jast.Literal{Kind: jast.LitLong, Value: strconv.Itoa(i) + "L"}
		decls = append(decls, segmentSet(decl.Name, prim, at, e))
	}

	// Innermost uses first, so that an outer access clones already rewritten
	// operands.
	for i := len(uses) - 1; i >= 0; i-- {
		if err := retargetUse(uses[i], length, prim, boxed); err != nil {
			return m.MutationResult{}, err
		}
	}

	if !jast.ReplaceStmt(decl, decls...) {
		return m.MutationResult{}, fmt.Errorf("failed to replace declaration of %s", decl.Name)
	}

	return succeeded(ctx, fmt.Sprintf("%s moved to a %s segment (%d uses)", decl.Name, layouts[prim], len(uses))), nil
}

func retargetUse(n *jast.Name, length, prim string, boxed bool) error {
	switch p := n.Parent().(type) {
	case *jast.FieldAccess:
		if !jast.Replace(p, jast.NewName(length)) {
			return fmt.Errorf("failed to rewrite %s.length", n.Name)
		}

		return nil
	case *jast.ArrayAccess:
		if a, ok := p.Parent().(*jast.Assign); ok && a.Lhs == jast.Expr(p) {
			set := segmentSet(n.Name, prim, p.Index, a.Rhs)
			if !jast.Replace(a, set.X) {
				return fmt.Errorf("failed to rewrite store to %s", n.Name)
			}

			return nil
		}

		var get jast.Expr = segmentGet(n.Name, prim, p.Index)
		if boxed {
			w, _ := jast.WrapperOf(prim)
			get = jast.NewCall(jast.NewName(w), "valueOf", get)
		}

		if !jast.Replace(p, get) {
			return fmt.Errorf("failed to rewrite load from %s", n.Name)
		}

		return nil
	}

	return fmt.Errorf("unsupported use of %s", n.Name)
}

func arrayElems(init jast.Expr) []jast.Expr {
	switch x := init.(type) {
	case *jast.ArrayInit:
		return x.Elems
	case *jast.NewArray:
		if x.Init != nil {
			return x.Init.Elems
		}
	}

	return nil
}

// segmentableArray accepts a one-dimensional primitive or wrapper local
// declared in a method block whose every use is an element access or a
// length read. Stores must be plain "a[i] = v;" statements. Wrapper arrays
// need an initializer listing non-null values.
func segmentableArray(decl *jast.LocalVarStmt) bool {
	_, boxed, ok := segmentComponent(decl.Type)
	if !ok || jast.EnclosingMethod(decl) == nil {
		return false
	}

	if _, inBlock := decl.Parent().(*jast.Block); !inBlock {
		return false
	}

	switch x := decl.Init.(type) {
	case *jast.ArrayInit:
	case *jast.NewArray:
		if x.Init == nil && (len(x.Dims) != 1 || boxed) {
			return false
		}
	default:
		return false
	}

	for _, e := range arrayElems(decl.Init) {
		if boxed && isNullLiteral(e) {
			return false
		}

		if _, nested := e.(*jast.ArrayInit); nested {
			return false
		}
	}

	for _, n := range usesOf(decl.Parent(), decl) {
		if !plainArrayUse(n, boxed) {
			return false
		}
	}

	return true
}

func plainArrayUse(n *jast.Name, boxed bool) bool {
	switch p := n.Parent().(type) {
	case *jast.FieldAccess:
		return p.Name == "length"
	case *jast.ArrayAccess:
		if p.X != jast.Expr(n) || !intLike(p.Index) {
			return false
		}

		switch pp := p.Parent().(type) {
		case *jast.Assign:
			if pp.Lhs != jast.Expr(p) {
				return true
			}

			_, stmt := pp.Parent().(*jast.ExprStmt)

			return stmt && pp.Op == "=" && !(boxed && isNullLiteral(pp.Rhs))
		case *jast.Unary:
			return pp.Op != "++" && pp.Op != "--"
		}

		return true
	}

	return false
}

func isNullLiteral(e jast.Expr) bool {
	l, ok := e.(*jast.Literal)
	return ok && l.Kind == jast.LitNull
}
