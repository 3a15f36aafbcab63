package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type deadCode struct{}

// NewDeadCode inserts a never-taken copy of an assignment before it. The
// guard is opaque to javac, which strips if (false) blocks, but C2 folds it.
func NewDeadCode() Mutator { return deadCode{} }

func (deadCode) Type() m.MutatorType { return m.DeadCodeElimination }

func (deadCode) IsApplicable(ctx *Context) bool {
	return Exists(ctx, standaloneAssignments(0))
}

func (deadCode) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, standaloneAssignments(0))
	if len(candidates) == 0 {
		return skipped(ctx, "no standalone assignment"), nil
	}

	stmt := Pick(ctx, candidates)

	dead, err := fill(fmt.Sprintf(`{
	if (System.currentTimeMillis() < 0) {
		%s;
	}
}`, stmtHole), map[string]jast.Node{stmtHole: stmt})
	if err != nil {
		return m.MutationResult{}, err
	}

	guard := dead.Stmts[0]
	if !jast.InsertBefore(stmt, guard) {
		return m.MutationResult{}, fmt.Errorf("failed to insert dead copy of %q", jast.String(stmt))
	}

	return succeeded(ctx, "dead copy of "+jast.String(stmt.X)), nil
}
