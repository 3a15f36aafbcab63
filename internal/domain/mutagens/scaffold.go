package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const (
	toggleHole = "__toggle__"
	loopHole   = "__loop__"
	fastHole   = "__fast__"
	slowHole   = "__slow__"
)

type unswitchScaffold struct{}

// NewUnswitchScaffold splits a loop body into a fast and a slow copy selected
// by invariant conditions: an opaque flag and a late-proven zero.
func NewUnswitchScaffold() Mutator { return unswitchScaffold{} }

func (unswitchScaffold) Type() m.MutatorType { return m.UnswitchScaffold }

func (unswitchScaffold) IsApplicable(ctx *Context) bool {
	return Exists(ctx, scaffoldableLoop)
}

func (unswitchScaffold) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, scaffoldableLoop)
	if len(candidates) == 0 {
		return skipped(ctx, "no for loop to scaffold"), nil
	}

	loop := Pick(ctx, candidates)

	flag, mark := ctx.FreshName("scaffoldFlag"), ctx.FreshName("unswitchMark")
	limit, zero, peel := ctx.FreshName("scaffoldLimit"), ctx.FreshName("scaffoldZero"), ctx.FreshName("scaffoldPeel")

	body := loopBodyBlock(loop.Body)

	split, err := fill(fmt.Sprintf(`{
	if (%[1]s || %[2]s == 0) {
		%[4]s;
	} else {
		int %[3]s = 0;
		%[5]s;
	}
}`, flag, zero, mark, fastHole, slowHole), map[string]jast.Node{fastHole: body, slowHole: body})
	if err != nil {
		return m.MutationResult{}, err
	}

	wrapper, err := fill(fmt.Sprintf(`{
	boolean %[1]s = %[2]s;`, flag, toggleHole)+lateZeroScaffold(limit, zero, peel)+fmt.Sprintf(`
	%s;
}`, loopHole), map[string]jast.Node{toggleHole: OpaqueToggle(loop), loopHole: loop})
	if err != nil {
		return m.MutationResult{}, err
	}

	scaffolded, ok := wrapper.Stmts[len(wrapper.Stmts)-1].(*jast.ForStmt)
	if !ok {
		return m.MutationResult{}, fmt.Errorf("scaffold lost its loop")
	}

	scaffolded.Body = split
	jast.Attach(scaffolded, split)

	if !jast.Replace(loop, wrapper) {
		return m.MutationResult{}, fmt.Errorf("failed to replace loop")
	}

	return succeeded(ctx, "scaffolded loop on "+jast.String(loop.Cond)), nil
}

func scaffoldableLoop(f *jast.ForStmt) bool {
	if f.Cond == nil || f.Body == nil || jast.EnclosingMethod(f) == nil {
		return false
	}

	if _, labeled := f.Parent().(*jast.LabeledStmt); labeled {
		return false
	}

	return SafeToAddLoops(f, 1)
}

// loopBodyBlock returns the loop body as a block, wrapping single statements.
func loopBodyBlock(s jast.Stmt) *jast.Block {
	if b := asBlock(s); b != nil {
		return b
	}

	return jast.NewBlock(jast.Clone(s))
}
