package mutagens

import (
	"fmt"
	"strconv"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type algebraic struct{}

// NewAlgebraic rewrites an operator on an assignment's right-hand side into a
// longer equivalent form that C2's algebraic simplifications fold back.
func NewAlgebraic() Mutator { return algebraic{} }

func (algebraic) Type() m.MutatorType { return m.AlgebraicSimplification }

func (algebraic) IsApplicable(ctx *Context) bool {
	return Exists(ctx, hasRewritableOperand)
}

func (algebraic) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, hasRewritableOperand)
	if len(candidates) == 0 {
		return skipped(ctx, "no assignment with a rewritable operator"), nil
	}

	assign := Pick(ctx, candidates)
	target := Pick(ctx, rewritableExprs(assign.Rhs))
	before := jast.String(target)

	repl := rewriteAlgebraic(ctx, target)
	if repl == nil || !jast.Replace(target, repl) {
		return m.MutationResult{}, fmt.Errorf("failed to rewrite %q", before)
	}

	return succeeded(ctx, fmt.Sprintf("%s => %s", before, jast.String(repl))), nil
}

func hasRewritableOperand(a *jast.Assign) bool {
	return len(rewritableExprs(a.Rhs)) > 0
}

func rewritableExprs(root jast.Expr) []jast.Expr {
	var out []jast.Expr

	jast.Inspect(root, func(n jast.Node) bool {
		switch e := n.(type) {
		case *jast.New:
			return false
		case *jast.Binary:
			if binaryRewritable(e) {
				out = append(out, e)
			}
		case *jast.InstanceOf:
			if e.Binding == "" {
				out = append(out, e)
			}
		}

		return true
	})

	return out
}

func binaryRewritable(b *jast.Binary) bool {
	switch b.Op {
	case "&&", "||", "==", "!=", "<", ">", "<=", ">=":
		return true
	case "&", "|", "^":
		return jast.IsBoolean(jast.TypeOf(b)) || integral(b)
	case "+", "-", "*", "/", "%":
		return integral(b)
	case "<<", ">>", ">>>":
		n, ok := intLiteral(b.Y)
		return ok && integral(b) && n >= 2 && n < shiftWidth(b)
	}

	return false
}

// integral reports whether b computes an int or a long.
func integral(b *jast.Binary) bool {
	t := jast.TypeOf(b)
	return t != nil && t.Dims == 0 && (t.Name == "int" || t.Name == "long")
}

func shiftWidth(b *jast.Binary) int {
	if t := jast.TypeOf(b); t != nil && t.Name == "long" {
		return 64
	}

	return 32
}

func intLiteral(e jast.Expr) (int, bool) {
	l, ok := e.(*jast.Literal)
	if !ok || l.Kind != jast.LitInt {
		return 0, false
	}

	n, err := strconv.Atoi(l.Value)

	return n, err == nil
}

func rewriteAlgebraic(ctx *Context, e jast.Expr) jast.Expr {
	if io, ok := e.(*jast.InstanceOf); ok {
		return doubleNegation(io)
	}

	b, ok := e.(*jast.Binary)
	if !ok {
		return nil
	}

	x, y := jast.Clone(b.X), jast.Clone(b.Y)
	not := func(e jast.Expr) jast.Expr { return jast.NewUnary("!", e) }
	inv := func(e jast.Expr) jast.Expr { return jast.NewUnary("~", e) }

	switch b.Op {
	case "&&":
		return not(jast.NewBinary("||", not(x), not(y)))
	case "||":
		return not(jast.NewBinary("&&", not(x), not(y)))
	case "&", "|", "^":
		neg := inv
		if jast.IsBoolean(jast.TypeOf(b)) {
			neg = not
		}

		switch b.Op {
		case "&":
			return neg(jast.NewBinary("|", neg(x), neg(y)))
		case "|":
			return neg(jast.NewBinary("&", neg(x), neg(y)))
		default:
			return neg(jast.NewBinary("^", neg(x), y))
		}
	case "==", "!=", "<", ">", "<=", ">=":
		return doubleNegation(b)
	case "+", "-", "*", "/", "%":
		k := jast.IntLit(1 + ctx.Rand().Intn(999))
		return jast.NewBinary("-", jast.NewBinary("+", jast.Clone(b), k), jast.Clone(k))
	case "<<", ">>", ">>>":
		n, _ := intLiteral(b.Y)
		return jast.NewBinary(b.Op, jast.NewBinary(b.Op, x, jast.IntLit(1)), jast.IntLit(n-1))
	}

	return nil
}

func doubleNegation(e jast.Expr) jast.Expr {
	return jast.NewUnary("!", jast.NewUnary("!", jast.Clone(e)))
}
