package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type redundantStore struct{}

// NewRedundantStore repeats an idempotent assignment so that the first store
// is dead.
func NewRedundantStore() Mutator { return redundantStore{} }

func (redundantStore) Type() m.MutatorType { return m.RedundantStoreElimination }

func (redundantStore) IsApplicable(ctx *Context) bool {
	return Exists(ctx, idempotentStore)
}

func (redundantStore) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, idempotentStore)
	if len(candidates) == 0 {
		return skipped(ctx, "no idempotent assignment"), nil
	}

	stmt := Pick(ctx, candidates)

	if !jast.InsertBefore(stmt, jast.Clone(stmt)) {
		return m.MutationResult{}, fmt.Errorf("failed to duplicate %q", jast.String(stmt))
	}

	return succeeded(ctx, "duplicated "+jast.String(stmt.X)), nil
}

// idempotentStore accepts "x = e;" where e has no side effects and does not
// read the stored variable, so running it twice changes nothing.
func idempotentStore(s *jast.ExprStmt) bool {
	if !isStandaloneAssignment(s) {
		return false
	}

	a, _ := s.X.(*jast.Assign)
	if a.Op != "=" || !sideEffectFree(a.Rhs) || !sideEffectFree(a.Lhs) {
		return false
	}

	stored := rootName(a.Lhs)
	reads := false

	jast.Inspect(a.Rhs, func(n jast.Node) bool {
		switch x := n.(type) {
		case *jast.Name:
			reads = reads || x.Name == stored
		case *jast.FieldAccess:
			reads = reads || x.Name == stored
		}

		return !reads
	})

	return stored != "" && !reads
}

// rootName returns the variable or field a store target ultimately names.
func rootName(e jast.Expr) string {
	switch x := e.(type) {
	case *jast.Name:
		return x.Name
	case *jast.FieldAccess:
		return x.Name
	case *jast.ArrayAccess:
		return rootName(x.X)
	}

	return ""
}
