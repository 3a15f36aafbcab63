package mutagens

import (
	"fmt"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

// fill parses src, a braced block, and substitutes its holes. A hole is a
// name listed in holes: "name;" statements take a clone of a jast.Stmt value,
// other uses take a clone of a jast.Expr value.
func fill(src string, holes map[string]jast.Node) (*jast.Block, error) {
	s, err := jast.ParseStmt(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	block, ok := s.(*jast.Block)
	if !ok {
		block = jast.NewBlock(s)
	}

	for _, name := range jast.Find[*jast.Name](block) {
		h, ok := holes[name.Name]
		if !ok {
			continue
		}

		if st, isStmt := h.(jast.Stmt); isStmt {
			es, ok := name.Parent().(*jast.ExprStmt)
			if !ok || !jast.Replace(es, jast.Clone(st)) {
				return nil, fmt.Errorf("failed to fill statement hole %s", name.Name)
			}

			continue
		}

		if !jast.Replace(name, jast.Clone(h)) {
			return nil, fmt.Errorf("failed to fill expression hole %s", name.Name)
		}
	}

	return block, nil
}

// isStandaloneAssignment accepts "x = e;" statements held directly by a
// statement list whose target may be written more than once.
func isStandaloneAssignment(s *jast.ExprStmt) bool {
	a, ok := s.X.(*jast.Assign)
	if !ok {
		return false
	}

	switch s.Parent().(type) {
	case *jast.Block, *jast.SwitchCase:
	default:
		return false
	}

	if jast.EnclosingMethod(s) == nil {
		if _, ok := jast.Enclosing[*jast.Initializer](s); !ok {
			return false
		}
	}

	return rewritableTarget(a.Lhs)
}

// rewritableTarget rejects assignments to final variables and to locals
// declared without an initializer, which would lose definite assignment
// once the store moves into a loop or branch.
func rewritableTarget(lhs jast.Expr) bool {
	var name string

	switch t := lhs.(type) {
	case *jast.Name:
		name = t.Name
	case *jast.FieldAccess:
		if _, ok := t.X.(*jast.This); !ok {
			return true
		}

		if c := jast.EnclosingClass(t); c != nil {
			for _, mem := range c.Members {
				if f, ok := mem.(*jast.FieldDecl); ok && f.Name == t.Name {
					return !f.Mods.Has(jast.ModFinal)
				}
			}
		}

		return true
	default:
		return true
	}

	switch d := jast.Resolve(lhs, name).(type) {
	case *jast.LocalVarStmt:
		return d.Init != nil && !d.Mods.Has(jast.ModFinal)
	case *jast.Param:
		return !d.Mods.Has(jast.ModFinal)
	case *jast.FieldDecl:
		return !d.Mods.Has(jast.ModFinal)
	case *jast.CatchClause:
		return !d.Mods.Has(jast.ModFinal)
	}

	return true
}

// standaloneAssignments is the candidate predicate shared by the statement
// wrapping strategies; loops > 0 adds the loop depth check.
func standaloneAssignments(loops int) func(*jast.ExprStmt) bool {
	return func(s *jast.ExprStmt) bool {
		return isStandaloneAssignment(s) && (loops == 0 || SafeToAddLoops(s, loops))
	}
}

// endsWithJump reports whether control may never fall off the end of s, so
// that a statement appended after it could be unreachable.
func endsWithJump(s jast.Stmt) bool {
	switch x := s.(type) {
	case *jast.Block:
		return len(x.Stmts) > 0 && endsWithJump(x.Stmts[len(x.Stmts)-1])
	case *jast.IfStmt:
		return x.Else != nil && endsWithJump(x.Then) && endsWithJump(x.Else)
	case *jast.ReturnStmt, *jast.BreakStmt, *jast.ContinueStmt, *jast.ThrowStmt:
		return true
	case *jast.WhileStmt:
		return isTrueLiteral(x.Cond)
	case *jast.ForStmt:
		return x.Cond == nil || isTrueLiteral(x.Cond)
	case *jast.DoStmt:
		return isTrueLiteral(x.Cond)
	case *jast.LabeledStmt:
		return endsWithJump(x.Body)
	case *jast.SyncStmt:
		return endsWithJump(x.Body)
	case *jast.TryStmt:
		return true
	case *jast.SwitchStmt:
		return true
	}

	return false
}

func isTrueLiteral(e jast.Expr) bool {
	l, ok := e.(*jast.Literal)
	return ok && l.Kind == jast.LitBool && l.Value == "true"
}

// hasJumps reports whether a return, throw, break or continue occurs below n
// outside nested class bodies.
func hasJumps(n jast.Node) bool {
	found := false

	jast.Inspect(n, func(c jast.Node) bool {
		switch c.(type) {
		case *jast.ReturnStmt, *jast.ThrowStmt, *jast.BreakStmt, *jast.ContinueStmt:
			found = true
		case *jast.New:
			return false
		}

		return !found
	})

	return found
}

// sideEffectFree accepts expressions made of literals, names, field and array
// reads and operators without assignments, increments, calls or allocations.
func sideEffectFree(e jast.Expr) bool {
	ok := true

	jast.Inspect(e, func(n jast.Node) bool {
		switch x := n.(type) {
		case *jast.Assign, *jast.Call, *jast.New, *jast.NewArray:
			ok = false
		case *jast.Unary:
			if x.Op == "++" || x.Op == "--" {
				ok = false
			}
		}

		return ok
	})

	return ok
}

func asBlock(s jast.Stmt) *jast.Block {
	if b, ok := s.(*jast.Block); ok {
		return b
	}

	return nil
}
