package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type sinkableMultiply struct{}

// NewSinkableMultiply adds a multiplication to an inner loop whose result is
// only consumed after the loop, so C2 can sink it out.
func NewSinkableMultiply() Mutator { return sinkableMultiply{} }

func (sinkableMultiply) Type() m.MutatorType { return m.SinkableMultiply }

func (sinkableMultiply) IsApplicable(ctx *Context) bool {
	return Exists(ctx, sinkableLoop)
}

func (sinkableMultiply) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, sinkableLoop)
	if len(candidates) == 0 {
		return skipped(ctx, "no nested for loop"), nil
	}

	loop := Pick(ctx, candidates)
	y, sink, use := ctx.FreshName("sinkY"), ctx.FreshName("toSink"), ctx.FreshName("sinkUse")

	body := loopBodyBlock(loop.Body)

	newBody, err := fill(fmt.Sprintf(`{
	%[1]s++;
	%[3]s;
	%[2]s = 23 * (%[1]s - 1);
}`, y, sink, fastHole), map[string]jast.Node{fastHole: body})
	if err != nil {
		return m.MutationResult{}, err
	}

	wrapper, err := fill(fmt.Sprintf(`{
	int %[1]s = 0;
	int %[2]s = 0;
	%[4]s;
	int %[3]s = %[2]s;
}`, y, sink, use, loopHole), map[string]jast.Node{loopHole: loop})
	if err != nil {
		return m.MutationResult{}, err
	}

	sunk, ok := wrapper.Stmts[2].(*jast.ForStmt)
	if !ok {
		return m.MutationResult{}, fmt.Errorf("sink wrapper lost its loop")
	}

	sunk.Body = newBody
	jast.Attach(sunk, newBody)

	if !jast.Replace(loop, wrapper) {
		return m.MutationResult{}, fmt.Errorf("failed to replace loop")
	}

	return succeeded(ctx, "added sinkable multiply to loop on "+jast.String(loop.Cond)), nil
}

func sinkableLoop(f *jast.ForStmt) bool {
	if f.Body == nil || endsWithJump(f.Body) || endsWithJump(f) {
		return false
	}

	if _, labeled := f.Parent().(*jast.LabeledStmt); labeled {
		return false
	}

	return LoopDepth(f) > 0
}
