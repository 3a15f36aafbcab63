package mutagens

import (
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// Mutator is one mutation strategy.
type Mutator interface {
	Type() m.MutatorType
	// IsApplicable is a cheap probe: it draws no random numbers and never
	// changes the tree.
	IsApplicable(ctx *Context) bool
	// Mutate rewrites the unit of ctx. It returns a skipped result and leaves
	// the tree untouched when no candidate exists; errors signal defects.
	Mutate(ctx *Context) (m.MutationResult, error)
}

// Registry returns a fresh instance of every strategy keyed by its type.
func Registry() map[m.MutatorType]Mutator {
	all := []Mutator{
		NewLoopUnrolling(),
		NewInline(),
		NewRedundantStore(),
		NewAutobox(),
		NewEscapeAnalysis(),
		NewLoopPeeling(),
		NewLoopUnswitching(),
		NewDeoptimization(),
		NewLateZero(),
		NewSplitIfStress(),
		NewUnswitchScaffold(),
		NewSinkableMultiply(),
		NewTemplatePredicate(),
		NewAlgebraic(),
		NewDeadCode(),
		NewLockElimination(),
		NewLockCoarsening(),
		NewIntToLongLoop(),
		NewArrayToMemorySegment(),
		NewArrayShadow(),
		NewRangeCheckPredication(),
		NewReflectionCall(),
	}

	out := make(map[m.MutatorType]Mutator, len(all))
	for _, mut := range all {
		out[mut.Type()] = mut
	}

	return out
}

func skipped(ctx *Context, detail string) m.MutationResult {
	return m.Skipped(ctx.Launcher(), detail)
}

func succeeded(ctx *Context, detail string) m.MutationResult {
	return m.Succeeded(ctx.Launcher(), detail)
}
