package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type splitIfStress struct{}

// NewSplitIfStress nests a copy of an if statement in both of its own arms,
// giving split-if a redundant condition to fold.
func NewSplitIfStress() Mutator { return splitIfStress{} }

func (splitIfStress) Type() m.MutatorType { return m.SplitIfStress }

func (splitIfStress) IsApplicable(ctx *Context) bool {
	return Exists(ctx, splittableIf)
}

func (splitIfStress) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, splittableIf)
	if len(candidates) == 0 {
		return skipped(ctx, "no if statement with two branches and a pure condition"), nil
	}

	s := Pick(ctx, candidates)

	split := jast.NewIf(
		jast.Clone(s.Cond),
		jast.NewBlock(jast.Clone(s)),
		jast.NewBlock(jast.Clone(s)),
	)

	if !jast.Replace(s, split) {
		return m.MutationResult{}, fmt.Errorf("failed to replace if statement %q", jast.String(s.Cond))
	}

	return succeeded(ctx, "split if on "+jast.String(s.Cond)), nil
}

func splittableIf(s *jast.IfStmt) bool {
	return s.Else != nil && sideEffectFree(s.Cond) && jast.EnclosingMethod(s) != nil
}
