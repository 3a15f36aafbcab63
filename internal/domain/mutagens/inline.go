package mutagens

import (
	"fmt"
	"strconv"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type inline struct{}

// NewInline extracts a binary expression into a small private helper whose
// parameters are the expression's leaves, giving C2 a call to inline.
func NewInline() Mutator { return inline{} }

func (inline) Type() m.MutatorType { return m.Inline }

func (inline) IsApplicable(ctx *Context) bool {
	return Exists(ctx, inlinable)
}

func (inline) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, inlinable)
	if len(candidates) == 0 {
		return skipped(ctx, "no binary expression to extract"), nil
	}

	b := Pick(ctx, candidates)
	owner := jast.EnclosingClass(b)
	leaves := inlineLeaves(b)

	body := jast.Clone(b)
	params := make([]*jast.Param, len(leaves))
	args := make([]jast.Expr, len(leaves))

	for i, leaf := range inlineLeaves(body) {
		name := "p" + strconv.Itoa(i)
		params[i] = &jast.Param{Type: bareType(jast.TypeOf(leaves[i])), Name: name}
		args[i] = jast.Clone(leaves[i])

		if !jast.Replace(leaf, jast.NewName(name)) {
			return m.MutationResult{}, fmt.Errorf("failed to parameterize %q", jast.String(leaves[i]))
		}
	}

	flags := jast.ModPrivate
	if jast.InStaticContext(b) || inConstructorCall(b) {
		flags |= jast.ModStatic
	}

	helper := &jast.MethodDecl{
		Mods:   jast.Modifiers{Flags: flags},
		Result: bareType(jast.TypeOf(b)),
		Name:   ctx.FreshName("inlineHelper"),
		Params: params,
		Body:   jast.NewBlock(&jast.ReturnStmt{X: body}),
	}

	call := jast.NewCall(nil, helper.Name, args...)
	before := jast.String(b)

	if !jast.Replace(b, call) {
		return m.MutationResult{}, fmt.Errorf("failed to extract %q", before)
	}

	jast.AddMember(owner, helper)

	return succeeded(ctx, fmt.Sprintf("%s => %s", before, jast.String(call))), nil
}

// inlinable accepts a binary expression in a method body without
// short-circuit operators whose result and leaves have primitive, boxed or
// String types.
func inlinable(b *jast.Binary) bool {
	if jast.EnclosingMethod(b) == nil || jast.EnclosingClass(b) == nil {
		return false
	}

	if !inlineType(jast.TypeOf(b)) || inConstantContext(b) || !fitsTarget(b) {
		return false
	}

	shortCircuit := false

	jast.Inspect(b, func(n jast.Node) bool {
		if x, ok := n.(*jast.Binary); ok && (x.Op == "&&" || x.Op == "||") {
			shortCircuit = true
		}

		return !shortCircuit
	})

	if shortCircuit {
		return false
	}

	for _, leaf := range inlineLeaves(b) {
		if isNullLiteral(leaf) || !inlineType(jast.TypeOf(leaf)) {
			return false
		}
	}

	for p := b.Parent(); p != nil; p = p.Parent() {
		if n, ok := p.(*jast.New); ok && n.Body != nil {
			return false
		}
	}

	return true
}

// inlineLeaves lists the operands below the binary and non-mutating unary
// operators of e, left to right.
func inlineLeaves(e jast.Expr) []jast.Expr {
	switch x := e.(type) {
	case *jast.Binary:
		return append(inlineLeaves(x.X), inlineLeaves(x.Y)...)
	case *jast.Unary:
		if x.Op != "++" && x.Op != "--" {
			return inlineLeaves(x.X)
		}
	}

	return []jast.Expr{e}
}

func inlineType(t *jast.TypeRef) bool {
	if t == nil || t.Dims != 0 {
		return false
	}

	_, boxed := jast.PrimitiveOf(t.Name)

	return jast.IsPrimitive(t) || boxed || jast.IsString(t)
}

func bareType(t *jast.TypeRef) *jast.TypeRef {
	c := t.Clone()
	c.Args = nil

	return c
}

// inConstructorCall reports whether n is an argument of an explicit this(...)
// or super(...) call.
func inConstructorCall(n jast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch x := p.(type) {
		case *jast.Call:
			if x.X == nil && (x.Name == "this" || x.Name == "super") {
				return true
			}
		case jast.Stmt, jast.Member:
			return false
		}
	}

	return false
}
