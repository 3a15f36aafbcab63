package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// stmtHole is the placeholder the wrapping templates use for the statement
// being wrapped.
const stmtHole = "__stmt__"

// stmtWrapper replaces a standalone assignment with a block of scaffolding
// that executes it exactly once.
type stmtWrapper struct {
	kind  m.MutatorType
	loops int
	// template returns the block source; the statement goes where stmtHole
	// appears.
	template func(ctx *Context) string
}

func (w *stmtWrapper) Type() m.MutatorType { return w.kind }

func (w *stmtWrapper) IsApplicable(ctx *Context) bool {
	return Exists(ctx, standaloneAssignments(w.loops))
}

func (w *stmtWrapper) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, standaloneAssignments(w.loops))
	if len(candidates) == 0 {
		return skipped(ctx, "no standalone assignment within the loop budget"), nil
	}

	stmt := Pick(ctx, candidates)

	block, err := fill(w.template(ctx), map[string]jast.Node{stmtHole: stmt})
	if err != nil {
		return m.MutationResult{}, err
	}

	if !jast.Replace(stmt, block) {
		return m.MutationResult{}, fmt.Errorf("failed to replace statement %q", jast.String(stmt))
	}

	return succeeded(ctx, fmt.Sprintf("wrapped %q", jast.String(stmt))), nil
}
