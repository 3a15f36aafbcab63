package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type arrayShadow struct{}

// NewArrayShadow views a local array through MemorySegment.ofArray and
// mirrors element stores and loads through the segment, so that heap
// segment accesses and plain array accesses alias the same memory.
func NewArrayShadow() Mutator { return arrayShadow{} }

func (arrayShadow) Type() m.MutatorType { return m.ArrayMemorySegmentShadow }

func (arrayShadow) IsApplicable(ctx *Context) bool {
	return Exists(ctx, shadowableArray)
}

func (arrayShadow) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, shadowableArray)
	if len(candidates) == 0 {
		return skipped(ctx, "no primitive local array to shadow"), nil
	}

	decl := Pick(ctx, candidates)
	prim := decl.Type.Name
	seg := ctx.FreshName(decl.Name + "Seg")
	length := ctx.FreshName(decl.Name + "Len")

	type mirror struct {
		anchor jast.Stmt
		stmt   jast.Stmt
	}

	var (
		mirrors []mirror
		lengths []*jast.FieldAccess
	)

	for _, n := range usesOf(decl.Parent(), decl) {
		switch p := n.Parent().(type) {
		case *jast.FieldAccess:
			if p.Name == "length" {
				lengths = append(lengths, p)
			}
		case *jast.ArrayAccess:
			if p.X != jast.Expr(n) {
				continue
			}

			if anchor, ok := storeAnchor(p); ok {
				value := jast.NewIndex(jast.NewName(decl.Name), jast.Clone(p.Index))
				mirrors = append(mirrors, mirror{anchor, segmentSet(seg, prim, p.Index, value)})

				continue
			}

			if anchor, ok := loadAnchor(p); ok {
				mirrors = append(mirrors, mirror{anchor, jast.NewExprStmt(segmentGet(seg, prim, p.Index))})
			}
		}
	}

	for _, mr := range mirrors {
		if !jast.InsertAfter(mr.anchor, mr.stmt) {
			return m.MutationResult{}, fmt.Errorf("failed to mirror access to %s", decl.Name)
		}
	}

	for _, fa := range lengths {
		if !jast.Replace(fa, jast.NewName(length)) {
			return m.MutationResult{}, fmt.Errorf("failed to rewrite %s.length", decl.Name)
		}
	}

	shadow := []jast.Stmt{
		jast.NewLocal(foreignType("MemorySegment"), seg,
			jast.NewCall(jast.NewName(foreignPkg+".MemorySegment"), "ofArray", jast.NewName(decl.Name))),
		jast.NewLocal(jast.PrimType("int"), length, jast.NewField(jast.NewName(decl.Name), "length")),
	}

	if !jast.InsertAfter(decl, shadow...) {
		return m.MutationResult{}, fmt.Errorf("failed to declare shadow of %s", decl.Name)
	}

	return succeeded(ctx, fmt.Sprintf("shadowed %s with %d mirrored accesses", decl.Name, len(mirrors))), nil
}

// shadowableArray accepts a one-dimensional primitive local created with new
// in a method block and never reassigned.
func shadowableArray(decl *jast.LocalVarStmt) bool {
	_, boxed, ok := segmentComponent(decl.Type)
	if !ok || boxed || jast.EnclosingMethod(decl) == nil {
		return false
	}

	if _, inBlock := decl.Parent().(*jast.Block); !inBlock {
		return false
	}

	if _, isNew := decl.Init.(*jast.NewArray); !isNew {
		return false
	}

	for _, n := range usesOf(decl.Parent(), decl) {
		if a, ok := n.Parent().(*jast.Assign); ok && a.Lhs == jast.Expr(n) {
			return false
		}
	}

	return true
}

// storeAnchor returns the statement "a[idx] = v;" that acc is the target of,
// when idx can be evaluated again after it.
func storeAnchor(acc *jast.ArrayAccess) (jast.Stmt, bool) {
	a, ok := acc.Parent().(*jast.Assign)
	if !ok || a.Lhs != jast.Expr(acc) {
		return nil, false
	}

	stmt, ok := a.Parent().(*jast.ExprStmt)
	if !ok || !inStmtList(stmt) || !replayableIndex(acc.Index, stmt) {
		return nil, false
	}

	return stmt, true
}

// loadAnchor returns the expression or declaration statement that always
// evaluates acc as a load, when idx can be evaluated again after it.
func loadAnchor(acc *jast.ArrayAccess) (jast.Stmt, bool) {
	if a, ok := acc.Parent().(*jast.Assign); ok && a.Lhs == jast.Expr(acc) {
		return nil, false
	}

	if u, ok := acc.Parent().(*jast.Unary); ok && (u.Op == "++" || u.Op == "--") {
		return nil, false
	}

	var child jast.Node = acc

	for p := acc.Parent(); p != nil; child, p = p, p.Parent() {
		switch x := p.(type) {
		case *jast.ExprStmt, *jast.LocalVarStmt:
			stmt := x.(jast.Stmt)
			if !inStmtList(stmt) || !replayableIndex(acc.Index, stmt) {
				return nil, false
			}

			return stmt, true
		case *jast.Binary:
			if (x.Op == "&&" || x.Op == "||") && x.Y == child {
				return nil, false
			}
		case *jast.Conditional:
			if x.Cond != child {
				return nil, false
			}
		case *jast.New:
			if x.Body != nil {
				return nil, false
			}
		case jast.Stmt, jast.Member:
			return nil, false
		}
	}

	return nil, false
}

func inStmtList(s jast.Stmt) bool {
	list, _ := jast.StmtList(s)
	return list != nil
}

// replayableIndex reports whether idx reads only literals and local
// variables that stmt does not assign, so it yields the same value after
// stmt completes.
func replayableIndex(idx jast.Expr, stmt jast.Stmt) bool {
	names := map[string]bool{}
	ok := true

	jast.Inspect(idx, func(n jast.Node) bool {
		switch x := n.(type) {
		case *jast.Literal:
		case *jast.Name:
			switch jast.Resolve(x, x.Name).(type) {
			case *jast.LocalVarStmt, *jast.Param:
				names[x.Name] = true
			default:
				ok = false
			}
		case *jast.Binary:
		case *jast.Unary:
			ok = ok && x.Op != "++" && x.Op != "--"
		default:
			ok = false
		}

		return ok
	})

	if !ok {
		return false
	}

	for _, a := range jast.Find[*jast.Assign](stmt) {
		if names[rootName(a.Lhs)] {
			return false
		}
	}

	for _, u := range jast.Find[*jast.Unary](stmt) {
		if (u.Op == "++" || u.Op == "--") && names[rootName(u.X)] {
			return false
		}
	}

	return true
}
