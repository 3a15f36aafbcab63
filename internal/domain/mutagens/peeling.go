package mutagens

import (
	"fmt"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// NewLoopPeeling runs a statement in the first iteration of a loop. A flag
// replays it after the loop if the loop never ran.
func NewLoopPeeling() Mutator {
	return &stmtWrapper{kind: m.LoopPeeling, loops: 1, template: peelingTemplate}
}

func peelingTemplate(ctx *Context) string {
	flag, limit, i := ctx.FreshName("peelDone"), ctx.FreshName("peelLimit"), ctx.FreshName("peelIdx")

	return fmt.Sprintf(`{
	boolean %[1]s = false;
	int %[2]s = 32;
	for (int %[3]s = 0; %[3]s < %[2]s; %[3]s++) {
		if (%[3]s == 0) {
			%[4]s;
			%[1]s = true;
		}
	}
	if (!%[1]s) {
		%[4]s;
	}
}`, flag, limit, i, stmtHole)
}
