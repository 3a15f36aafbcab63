package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type rangeCheck struct{}

// NewRangeCheckPredication guards a counted loop that indexes one array with
// a length check hoisted in front of it, duplicating the loop into a checked
// fast path and a fallback.
func NewRangeCheckPredication() Mutator { return rangeCheck{} }

func (rangeCheck) Type() m.MutatorType { return m.RangeCheckPredication }

func (rangeCheck) IsApplicable(ctx *Context) bool {
	return Exists(ctx, predicableLoop)
}

func (rangeCheck) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, predicableLoop)
	if len(candidates) == 0 {
		return skipped(ctx, "no counted loop indexing a single array"), nil
	}

	loop := Pick(ctx, candidates)

	rc, ok := analyzeRangeLoop(loop)
	if !ok {
		return skipped(ctx, "loop shape changed during analysis"), nil
	}

	limit := jast.Clone(rc.bound)
	if rc.inclusive {
		limit = jast.NewBinary("+", limit, jast.IntLit(1))
	}

	if rc.maxOffset > 0 {
		limit = jast.NewBinary("+", limit, jast.IntLit(rc.maxOffset))
	}

	cond := jast.NewBinary("&&",
		jast.NewBinary("!=", jast.Clone(rc.array), jast.NullLit()),
		jast.NewBinary(">=", jast.NewField(jast.Clone(rc.array), "length"), limit),
	)

	guard := jast.NewIf(cond, jast.Clone(loop), jast.Clone(loop))
	if !jast.Replace(loop, guard) {
		return m.MutationResult{}, fmt.Errorf("failed to predicate loop over %s", jast.String(rc.array))
	}

	return succeeded(ctx, "predicated on "+jast.String(cond)), nil
}

type rangeLoop struct {
	array     jast.Expr
	bound     jast.Expr
	maxOffset int
	inclusive bool
}

func predicableLoop(f *jast.ForStmt) bool {
	if _, labeled := f.Parent().(*jast.LabeledStmt); labeled {
		return false
	}

	_, ok := analyzeRangeLoop(f)

	return ok
}

// analyzeRangeLoop matches for (int i = c; i < bound; i++) with c >= 0 and a
// body whose accesses indexed by i or i + k all read the same array.
func analyzeRangeLoop(f *jast.ForStmt) (rangeLoop, bool) {
	var rc rangeLoop

	if f.Body == nil || len(f.Init) != 1 || len(f.Update) != 1 {
		return rc, false
	}

	idx, ok := inductionVar(f.Init[0])
	if !ok || !isIncrement(f.Update[0], idx) {
		return rc, false
	}

	cond, ok := f.Cond.(*jast.Binary)
	if !ok || (cond.Op != "<" && cond.Op != "<=") || !isNameOf(cond.X, idx) {
		return rc, false
	}

	if mentions(cond.Y, idx) || !sideEffectFree(cond.Y) {
		return rc, false
	}

	rc.bound = cond.Y
	rc.inclusive = cond.Op == "<="
	rc.maxOffset = -1

	var target string

	for _, acc := range jast.Find[*jast.ArrayAccess](f.Body) {
		off, ok := indexOffset(acc.Index, idx)
		if !ok {
			continue
		}

		if t := jast.TypeOf(acc.X); t == nil || t.Dims == 0 || !stableArray(acc.X) {
			continue
		}

		src := jast.String(acc.X)
		if target == "" {
			target, rc.array = src, acc.X
		} else if target != src {
			return rc, false
		}

		rc.maxOffset = max(rc.maxOffset, off)
	}

	return rc, rc.array != nil
}

// inductionVar accepts "int i = c" or "i = c" on an int variable with a
// non-negative literal c.
func inductionVar(s jast.Stmt) (string, bool) {
	switch st := s.(type) {
	case *jast.LocalVarStmt:
		if st.Type.Name != "int" || st.Type.Dims != 0 {
			return "", false
		}

		if n, ok := intLiteral(st.Init); !ok || n < 0 {
			return "", false
		}

		return st.Name, true
	case *jast.ExprStmt:
		a, ok := st.X.(*jast.Assign)
		if !ok || a.Op != "=" {
			return "", false
		}

		name, ok := a.Lhs.(*jast.Name)
		if !ok {
			return "", false
		}

		if t := jast.TypeOf(name); t == nil || t.Name != "int" || t.Dims != 0 {
			return "", false
		}

		if n, ok := intLiteral(a.Rhs); !ok || n < 0 {
			return "", false
		}

		return name.Name, true
	}

	return "", false
}

func isIncrement(e jast.Expr, idx string) bool {
	switch x := e.(type) {
	case *jast.Unary:
		return x.Op == "++" && isNameOf(x.X, idx)
	case *jast.Assign:
		if !isNameOf(x.Lhs, idx) {
			return false
		}

		if x.Op == "+=" {
			n, ok := intLiteral(x.Rhs)
			return ok && n == 1
		}

		b, ok := x.Rhs.(*jast.Binary)
		if x.Op != "=" || !ok || b.Op != "+" {
			return false
		}

		if isNameOf(b.X, idx) {
			n, ok := intLiteral(b.Y)
			return ok && n == 1
		}

		n, ok := intLiteral(b.X)

		return ok && n == 1 && isNameOf(b.Y, idx)
	}

	return false
}

// indexOffset returns k for an index of the form i, i + k or k + i.
func indexOffset(e jast.Expr, idx string) (int, bool) {
	if isNameOf(e, idx) {
		return 0, true
	}

	b, ok := e.(*jast.Binary)
	if !ok || b.Op != "+" {
		return 0, false
	}

	if isNameOf(b.X, idx) {
		n, ok := intLiteral(b.Y)
		return n, ok && n >= 0
	}

	if isNameOf(b.Y, idx) {
		n, ok := intLiteral(b.X)
		return n, ok && n >= 0
	}

	return 0, false
}

func isNameOf(e jast.Expr, name string) bool {
	n, ok := e.(*jast.Name)
	return ok && n.Name == name
}

func mentions(e jast.Expr, name string) bool {
	for _, n := range jast.Find[*jast.Name](e) {
		if n.Name == name {
			return true
		}
	}

	return false
}

// stableArray accepts plain variable and field paths, which can be evaluated
// again in the guard without side effects.
func stableArray(e jast.Expr) bool {
	switch x := e.(type) {
	case *jast.Name, *jast.This:
		return true
	case *jast.FieldAccess:
		return stableArray(x.X)
	}

	return false
}
