package mutagens

import (
	"fmt"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// NewDeoptimization trains a String type profile on a local and breaks it in
// the last iteration, where the statement runs.
func NewDeoptimization() Mutator {
	return &stmtWrapper{kind: m.Deoptimization, loops: 1, template: deoptTemplate}
}

func deoptTemplate(ctx *Context) string {
	limit, obj, i := ctx.FreshName("deoptLimit"), ctx.FreshName("deoptObj"), ctx.FreshName("deoptIdx")

	return fmt.Sprintf(`{
	final int %[1]s = 32;
	Object %[2]s = "hot";
	for (int %[3]s = 0; %[3]s < %[1]s; %[3]s++) {
		%[2]s.toString();
		if (%[3]s == %[1]s - 1) {
			%[2]s = Integer.valueOf(1);
			%[2]s.toString();
			%[4]s;
		}
	}
}`, limit, obj, i, stmtHole)
}
