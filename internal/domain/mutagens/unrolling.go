package mutagens

import (
	"fmt"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const unrollTrip = 32

// NewLoopUnrolling runs a statement in one iteration of a short counted loop
// that C2 unrolls.
func NewLoopUnrolling() Mutator {
	return &stmtWrapper{kind: m.LoopUnrolling, loops: 1, template: unrollingTemplate}
}

func unrollingTemplate(ctx *Context) string {
	limit, i := ctx.FreshName("unrollLimit"), ctx.FreshName("unrollIdx")
	k := ctx.Rand().Intn(unrollTrip)

	return fmt.Sprintf(`{
	int %[1]s = %[3]d;
	for (int %[2]s = 0; %[2]s < %[1]s; %[2]s++) {
		if (%[2]s == %[4]d) {
			%[5]s;
		}
	}
}`, limit, i, unrollTrip, k, stmtHole)
}
