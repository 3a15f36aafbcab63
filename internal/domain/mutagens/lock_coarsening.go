package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type lockCoarsening struct{}

// NewLockCoarsening splits a synchronized block into two adjacent ones on the
// same monitor, which C2 merges back.
func NewLockCoarsening() Mutator { return lockCoarsening{} }

func (lockCoarsening) Type() m.MutatorType { return m.LockCoarsening }

func (lockCoarsening) IsApplicable(ctx *Context) bool {
	return Exists(ctx, splittableSync)
}

func (lockCoarsening) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, splittableSync)
	if len(candidates) == 0 {
		return skipped(ctx, "no synchronized block with a safe split point"), nil
	}

	sync := Pick(ctx, candidates)
	at := Pick(ctx, splitPoints(sync.Body.Stmts))

	stmts := sync.Body.Stmts
	first := jast.NewSync(jast.Clone(sync.Lock), jast.NewBlock(stmts[:at]...))
	second := jast.NewSync(jast.Clone(sync.Lock), jast.NewBlock(stmts[at:]...))

	if !jast.ReplaceStmt(sync, first, second) {
		return m.MutationResult{}, fmt.Errorf("failed to split synchronized block on %s", jast.String(sync.Lock))
	}

	return succeeded(ctx, fmt.Sprintf("split synchronized block on %s at %d", jast.String(sync.Lock), at)), nil
}

func splittableSync(s *jast.SyncStmt) bool {
	stmts := s.Body.Stmts
	if len(stmts) < 2 || !stableLock(s) {
		return false
	}

	for _, st := range stmts {
		switch st.(type) {
		case *jast.ReturnStmt, *jast.BreakStmt, *jast.ContinueStmt, *jast.ThrowStmt:
			return false
		}
	}

	return len(splitPoints(stmts)) > 0
}

// stableLock accepts monitors that evaluate to the same object twice: this,
// a class literal, or names the block never assigns.
func stableLock(s *jast.SyncStmt) bool {
	switch s.Lock.(type) {
	case *jast.This, *jast.ClassLit:
		return true
	}

	if !sideEffectFree(s.Lock) {
		return false
	}

	locks := map[string]bool{}

	jast.Inspect(s.Lock, func(n jast.Node) bool {
		switch x := n.(type) {
		case *jast.Name:
			locks[x.Name] = true
		case *jast.FieldAccess:
			locks[x.Name] = true
		}

		return true
	})

	for _, a := range jast.Find[*jast.Assign](s.Body) {
		if locks[rootName(a.Lhs)] {
			return false
		}
	}

	return true
}

// splitPoints lists the indices k such that no local declared before k is
// used from k on.
func splitPoints(stmts []jast.Stmt) []int {
	var out []int

	for k := 1; k < len(stmts); k++ {
		if !localsCross(stmts[:k], stmts[k:]) {
			out = append(out, k)
		}
	}

	return out
}

func localsCross(before, after []jast.Stmt) bool {
	declared := map[string]bool{}

	for _, s := range before {
		if v, ok := s.(*jast.LocalVarStmt); ok {
			declared[v.Name] = true
		}
	}

	if len(declared) == 0 {
		return false
	}

	for _, s := range after {
		for _, n := range jast.Find[*jast.Name](s) {
			if declared[n.Name] {
				return true
			}
		}
	}

	return false
}
