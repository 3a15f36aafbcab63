package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type templatePredicate struct{}

// NewTemplatePredicate guards an array store with an opaque flag that picks
// either the original store or one to the next slot.
func NewTemplatePredicate() Mutator { return templatePredicate{} }

func (templatePredicate) Type() m.MutatorType { return m.TemplatePredicate }

func (templatePredicate) IsApplicable(ctx *Context) bool {
	return Exists(ctx, arrayStore)
}

func (templatePredicate) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, arrayStore)
	if len(candidates) == 0 {
		return skipped(ctx, "no array store"), nil
	}

	stmt := Pick(ctx, candidates)

	shifted := jast.Clone(stmt)
	access, _ := shifted.X.(*jast.Assign).Lhs.(*jast.ArrayAccess)

	// (idx + 1) % arr.length
	next := jast.NewBinary("%",
		jast.NewBinary("+", jast.Clone(access.Index), jast.IntLit(1)),
		jast.NewField(jast.Clone(access.X), "length"))
	jast.Replace(access.Index, next)

	flag := ctx.FreshName("predicateFlag")

	wrapper, err := fill(fmt.Sprintf(`{
	boolean %[1]s = %[2]s;
	if (%[1]s) {
		%[3]s;
	} else {
		%[4]s;
	}
}`, flag, toggleHole, fastHole, slowHole), map[string]jast.Node{
		toggleHole: OpaqueToggle(stmt),
		fastHole:   stmt,
		slowHole:   shifted,
	})
	if err != nil {
		return m.MutationResult{}, err
	}

	if !jast.Replace(stmt, wrapper) {
		return m.MutationResult{}, fmt.Errorf("failed to replace store %q", jast.String(stmt))
	}

	return succeeded(ctx, "predicated store "+jast.String(stmt.X)), nil
}

func arrayStore(s *jast.ExprStmt) bool {
	a, ok := s.X.(*jast.Assign)
	if !ok {
		return false
	}

	access, ok := a.Lhs.(*jast.ArrayAccess)
	if !ok || !sideEffectFree(access.X) || !sideEffectFree(access.Index) {
		return false
	}

	switch s.Parent().(type) {
	case *jast.Block, *jast.SwitchCase:
		return true
	}

	return false
}
