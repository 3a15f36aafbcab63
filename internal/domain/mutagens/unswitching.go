package mutagens

import (
	"fmt"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// NewLoopUnswitching runs a statement inside two nested loops whose inner
// body switches on the invariant outer index.
func NewLoopUnswitching() Mutator {
	return &stmtWrapper{kind: m.LoopUnswitching, loops: 2, template: unswitchingTemplate}
}

func unswitchingTemplate(ctx *Context) string {
	flag := ctx.FreshName("unswitchDone")
	outer, inner := ctx.FreshName("unswitchOuter"), ctx.FreshName("unswitchInner")
	i, j := ctx.FreshName("unswitchI"), ctx.FreshName("unswitchJ")

	return fmt.Sprintf(`{
	boolean %[1]s = false;
	int %[2]s = 4;
	int %[3]s = 8;
	for (int %[4]s = 0; %[4]s < %[2]s; %[4]s++) {
		for (int %[5]s = 0; %[5]s < %[3]s; %[5]s++) {
			switch (%[4]s) {
				case -1:
				case -2:
				case -3:
					break;
				case 0:
					if (%[5]s == 0) {
						%[6]s;
						%[1]s = true;
					}
					break;
				default:
					break;
			}
		}
	}
	if (!%[1]s) {
		%[6]s;
	}
}`, flag, outer, inner, i, j, stmtHole)
}
