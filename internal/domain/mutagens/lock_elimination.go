package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type lockElimination struct{}

// NewLockElimination wraps code in a synchronized block on a monitor that
// does not escape the compiled method's view, giving C2 a lock to elide.
func NewLockElimination() Mutator { return lockElimination{} }

func (lockElimination) Type() m.MutatorType { return m.LockElimination }

func (lockElimination) IsApplicable(ctx *Context) bool {
	return Exists(ctx, lockableStmt)
}

func (lockElimination) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, lockableStmt)
	if len(candidates) == 0 {
		return skipped(ctx, "no assignment statement to lock"), nil
	}

	stmt := Pick(ctx, candidates)
	lock := lockFor(stmt)

	if block, ok := stmt.Parent().(*jast.Block); ok && wrapWholeBlock(block) {
		body := jast.NewBlock(block.Stmts...)
		block.Stmts = []jast.Stmt{jast.NewSync(lock, body)}
		jast.Relink(block)

		return succeeded(ctx, fmt.Sprintf("locked block on %s", jast.String(lock))), nil
	}

	if !jast.Replace(stmt, jast.NewSync(lock, jast.NewBlock(jast.Clone(stmt)))) {
		return m.MutationResult{}, fmt.Errorf("failed to lock %q", jast.String(stmt))
	}

	return succeeded(ctx, fmt.Sprintf("locked %q on %s", jast.String(stmt.X), jast.String(lock))), nil
}

func lockableStmt(s *jast.ExprStmt) bool {
	if _, ok := s.X.(*jast.Assign); !ok {
		return false
	}

	switch s.Parent().(type) {
	case *jast.Block, *jast.SwitchCase:
	default:
		return false
	}

	if jast.EnclosingMethod(s) == nil {
		_, ok := jast.Enclosing[*jast.Initializer](s)
		return ok
	}

	return true
}

// lockFor returns "this" or, in a static context, the enclosing class literal.
func lockFor(n jast.Node) jast.Expr {
	class := jast.EnclosingClass(n)
	if jast.InStaticContext(n) && class != nil {
		return &jast.ClassLit{Type: &jast.TypeRef{Name: class.Name}}
	}

	return &jast.This{}
}

// wrapWholeBlock reports whether every statement of block can move into one
// synchronized block. Loop bodies and constructor bodies that start with an
// explicit constructor call keep their shape.
func wrapWholeBlock(block *jast.Block) bool {
	return !jast.IsLoop(block.Parent()) && !startsWithConstructorCall(block)
}
