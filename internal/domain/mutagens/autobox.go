package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type autobox struct{}

// NewAutobox boxes a primitive value through its wrapper's valueOf so that C2
// has a box to eliminate.
func NewAutobox() Mutator { return autobox{} }

func (autobox) Type() m.MutatorType { return m.AutoboxElimination }

func (autobox) IsApplicable(ctx *Context) bool {
	return Exists(ctx, boxable)
}

func (autobox) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, boxable)
	if len(candidates) == 0 {
		return skipped(ctx, "no boxable primitive expression"), nil
	}

	expr := Pick(ctx, candidates)
	prim := jast.TypeOf(expr).Name

	wrapper, ok := jast.WrapperOf(prim)
	if !ok {
		return skipped(ctx, "no wrapper class for "+prim), nil
	}

	boxed := jast.NewCall(jast.NewName(wrapper), "valueOf", jast.Clone(expr))
	before := jast.String(expr)

	if !jast.Replace(expr, boxed) {
		return m.MutationResult{}, fmt.Errorf("failed to box %q", before)
	}

	return succeeded(ctx, fmt.Sprintf("%s => %s", before, jast.String(boxed))), nil
}
