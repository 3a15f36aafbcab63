package mutagens

import (
	"fmt"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// NewLateZero guards a statement with a value C2 only proves to be zero after
// loop optimizations. Both arms run the statement.
func NewLateZero() Mutator {
	return &stmtWrapper{kind: m.LateZero, loops: 2, template: lateZeroTemplate}
}

func lateZeroTemplate(ctx *Context) string {
	limit, zero, peel := ctx.FreshName("lateLimit"), ctx.FreshName("lateZero"), ctx.FreshName("latePeel")

	return "{" + lateZeroScaffold(limit, zero, peel) + fmt.Sprintf(`
	if (%[1]s == 0) {
		%[2]s;
	} else {
		%[2]s;
	}
}`, zero, stmtHole)
}

// lateZeroScaffold declares limit and zero. After it runs zero is 0, which
// C2 learns only once the first loop is fully analysed.
func lateZeroScaffold(limit, zero, peel string) string {
	return fmt.Sprintf(`
	int %[1]s = 2;
	for (; %[1]s < 4; %[1]s *= 2) {
	}
	int %[2]s = 34;
	for (int %[3]s = 2; %[3]s < %[1]s; %[3]s++) {
		%[2]s = 0;
	}`, limit, zero, peel)
}
