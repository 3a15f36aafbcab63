package mutagens

import (
	"fmt"
	"strings"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const (
	carrierPrefix = "My"
	carrierField  = "value"
	carrierGetter = "v"
)

type escapeAnalysis struct{}

// NewEscapeAnalysis routes a primitive value through a fresh instance of a
// small nested carrier class that never escapes, so C2 can scalar-replace it.
func NewEscapeAnalysis() Mutator { return escapeAnalysis{} }

func (escapeAnalysis) Type() m.MutatorType { return m.EscapeAnalysis }

func (escapeAnalysis) IsApplicable(ctx *Context) bool {
	return Exists(ctx, escapable)
}

func (escapeAnalysis) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, escapable)
	if len(candidates) == 0 {
		return skipped(ctx, "no primitive expression to carry"), nil
	}

	expr := Pick(ctx, candidates)
	prim := jast.TypeOf(expr).Name
	owner := jast.EnclosingClass(expr)

	carrier, err := ensureCarrier(ctx, owner, prim)
	if err != nil {
		return m.MutationResult{}, err
	}

	repl := jast.NewCall(jast.NewObject(&jast.TypeRef{Name: carrier}, jast.Clone(expr)), carrierGetter)
	before := jast.String(expr)

	if !jast.Replace(expr, repl) {
		return m.MutationResult{}, fmt.Errorf("failed to carry %q", before)
	}

	return succeeded(ctx, fmt.Sprintf("%s => %s", before, jast.String(repl))), nil
}

func escapable(e jast.Expr) bool {
	if !boxable(e) {
		return false
	}

	for c := jast.EnclosingClass(e); c != nil; c = jast.EnclosingClass(c) {
		if isCarrierName(c.Name) {
			return false
		}
	}

	return jast.EnclosingClass(e) != nil
}

func carrierName(prim string) string {
	w, _ := jast.WrapperOf(prim)
	return carrierPrefix + w
}

// isCarrierName matches carrier names with or without the numeric suffix
// FreshName appends.
func isCarrierName(name string) bool {
	w, ok := strings.CutPrefix(name, carrierPrefix)
	if !ok {
		return false
	}

	w = strings.TrimRight(w, "0123456789")

	_, ok = jast.PrimitiveOf(w)

	return ok
}

// ensureCarrier returns the name of owner's nested carrier class for prim,
// declaring it first when owner has none. A member class that only shares the
// carrier name is left alone and the new carrier gets a fresh name.
func ensureCarrier(ctx *Context, owner *jast.ClassDecl, prim string) (string, error) {
	name := carrierName(prim)
	taken := false

	for _, mem := range owner.Members {
		c, ok := mem.(*jast.ClassDecl)
		if !ok || !strings.HasPrefix(c.Name, name) || !isCarrierName(c.Name) {
			continue
		}

		if carrierShaped(c, prim) {
			return c.Name, nil
		}

		taken = taken || c.Name == name
	}

	if taken {
		name = ctx.FreshName(name)
	}

	decl, err := jast.ParseClass(fmt.Sprintf(`static final class %[1]s {
	private final %[2]s %[3]s;

	%[1]s(%[2]s %[3]s) {
		this.%[3]s = %[3]s;
	}

	%[2]s %[4]s() {
		return %[3]s;
	}
}`, name, prim, carrierField, carrierGetter))
	if err != nil {
		return "", fmt.Errorf("failed to declare %s: %w", name, err)
	}

	jast.AddMember(owner, decl)

	return name, nil
}

// carrierShaped reports whether c is a static class holding one prim field,
// built from one prim and read back through a no-argument accessor.
func carrierShaped(c *jast.ClassDecl, prim string) bool {
	if c.Kind != jast.KindClass || c.TypeParams != "" || !c.Mods.Has(jast.ModStatic) || c.Mods.Has(jast.ModAbstract) {
		return false
	}

	var field, ctor, getter bool

	for _, mem := range c.Members {
		switch d := mem.(type) {
		case *jast.FieldDecl:
			if d.Name == carrierField && !d.Mods.Has(jast.ModStatic) && isPrim(d.Type, prim) {
				field = true
			}
		case *jast.MethodDecl:
			switch {
			case d.IsConstructor:
				if len(d.Params) == 1 && isPrim(d.Params[0].Type, prim) && !d.Params[0].Varargs {
					ctor = true
				}
			case d.Name == carrierGetter:
				if len(d.Params) != 0 || d.Mods.Has(jast.ModStatic) || !isPrim(d.Result, prim) {
					return false
				}

				getter = true
			}
		}
	}

	return field && ctor && getter
}

func isPrim(t *jast.TypeRef, prim string) bool {
	return t != nil && t.Name == prim && t.Dims == 0
}
