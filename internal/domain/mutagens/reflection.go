package mutagens

import (
	"fmt"
	"strings"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type reflectionCall struct{}

// NewReflectionCall replaces a direct call to a method declared in the unit
// with a Method.invoke through Class.forName, and wraps the enclosing block in
// a try that rethrows reflective failures unchecked.
func NewReflectionCall() Mutator { return reflectionCall{} }

func (reflectionCall) Type() m.MutatorType { return m.ReflectionCall }

func (reflectionCall) IsApplicable(ctx *Context) bool {
	return Exists(ctx, reflectableCall)
}

func (reflectionCall) Mutate(ctx *Context) (m.MutationResult, error) {
	if ctx == nil {
		return m.MutationResult{}, ErrNilContext
	}

	candidates := Resolve(ctx, reflectableCall)
	if len(candidates) == 0 {
		return skipped(ctx, "no call to a unit method"), nil
	}

	call := Pick(ctx, candidates)
	md := jast.ResolveCall(call)
	owner := jast.EnclosingClass(md)
	block, _ := jast.Enclosing[*jast.Block](call)

	guard, err := reflectiveTry(ctx)
	if err != nil {
		return m.MutationResult{}, err
	}

	repl := reflectiveInvoke(call, md, owner)
	before := jast.String(call)

	if !jast.Replace(call, repl) {
		return m.MutationResult{}, fmt.Errorf("failed to reflect %q", before)
	}

	keep := 0
	if startsWithConstructorCall(block) {
		keep = 1
	}

	guard.Body = jast.NewBlock(block.Stmts[keep:]...)
	jast.Attach(guard, guard.Body)

	block.Stmts = append(block.Stmts[:keep:keep], guard)
	jast.Relink(block)

	return succeeded(ctx, fmt.Sprintf("%s => %s", before, jast.String(repl))), nil
}

// reflectableCall accepts calls bound to the single method of that name in a
// non-generic class of the unit, made without a receiver, on this, or on a
// class name, and placed in a block outside explicit constructor calls and
// anonymous class bodies.
func reflectableCall(call *jast.Call) bool {
	switch x := call.X.(type) {
	case nil, *jast.This:
	case *jast.Name:
		if jast.Resolve(x, x.Name) != nil {
			return false
		}
	default:
		return false
	}

	md := jast.ResolveCall(call)
	if md == nil || md.TypeParams != "" || throwsChecked(md) {
		return false
	}

	owner := jast.EnclosingClass(md)
	if owner == nil || owner.Kind == jast.KindInterface || owner.TypeParams != "" || overloaded(owner, md.Name) {
		return false
	}

	for _, p := range md.Params {
		if p.Varargs {
			return false
		}
	}

	if !md.Mods.Has(jast.ModStatic) && jast.InStaticContext(call) {
		return false
	}

	if _, ok := jast.Enclosing[*jast.Block](call); !ok || inConstructorCall(call) {
		return false
	}

	for p := call.Parent(); p != nil; p = p.Parent() {
		if n, ok := p.(*jast.New); ok && n.Body != nil {
			return false
		}
	}

	return true
}

// uncheckedThrowables are the java.lang throwables a throws clause may name
// without obliging callers to catch them.
var uncheckedThrowables = map[string]bool{
	"RuntimeException":                true,
	"Error":                           true,
	"ArithmeticException":             true,
	"ArrayIndexOutOfBoundsException":  true,
	"ArrayStoreException":             true,
	"AssertionError":                  true,
	"ClassCastException":              true,
	"ConcurrentModificationException": true,
	"IllegalArgumentException":        true,
	"IllegalStateException":           true,
	"IndexOutOfBoundsException":       true,
	"NegativeArraySizeException":      true,
	"NullPointerException":            true,
	"NumberFormatException":           true,
	"OutOfMemoryError":                true,
	"StackOverflowError":              true,
	"StringIndexOutOfBoundsException": true,
	"UnsupportedOperationException":   true,
}

// throwsChecked reports whether the throws clause of md names a type that is
// not known to be unchecked. Method.invoke wraps such exceptions, so catch
// clauses around the original call would no longer compile.
func throwsChecked(md *jast.MethodDecl) bool {
	unit, _ := jast.Root(md).(*jast.CompilationUnit)

	for _, t := range md.Throws {
		if !unchecked(unit, t.Name) {
			return true
		}
	}

	return false
}

func unchecked(unit *jast.CompilationUnit, name string) bool {
	seen := make(map[*jast.ClassDecl]bool)

	for name != "" {
		simple := name
		if i := strings.LastIndexByte(simple, '.'); i >= 0 {
			simple = simple[i+1:]
		}

		c := jast.FindClass(unit, name)
		if c == nil || seen[c] {
			return c == nil && uncheckedThrowables[simple]
		}

		seen[c] = true

		if c.Extends == nil {
			return false
		}

		name = c.Extends.Name
	}

	return false
}

func overloaded(c *jast.ClassDecl, name string) bool {
	n := 0

	for _, mem := range c.Members {
		if md, ok := mem.(*jast.MethodDecl); ok && !md.IsConstructor && md.Name == name {
			n++
		}
	}

	return n > 1
}

// reflectiveInvoke builds
// ((R) Class.forName("Owner").getDeclaredMethod("m", P.class...).invoke(target, (Object) arg...)).
func reflectiveInvoke(call *jast.Call, md *jast.MethodDecl, owner *jast.ClassDecl) jast.Expr {
	lookup := []jast.Expr{jast.StrLit(md.Name)}
	for _, p := range md.Params {
		t := p.Type.Clone()
		t.Args = nil
		lookup = append(lookup, &jast.ClassLit{Type: t})
	}

	method := jast.NewCall(
		jast.NewCall(jast.NewName("Class"), "forName", jast.StrLit(jast.QualifiedName(owner))),
		"getDeclaredMethod", lookup...)

	args := []jast.Expr{reflectiveTarget(call, md, owner)}
	for _, a := range call.Args {
		args = append(args, jast.NewCast(&jast.TypeRef{Name: "Object"}, jast.Clone(a)))
	}

	invoke := jast.NewCall(method, "invoke", args...)

	if md.Result == nil || md.Result.Name == "void" {
		return invoke
	}

	return jast.NewCast(md.Result.Clone(), invoke)
}

func reflectiveTarget(call *jast.Call, md *jast.MethodDecl, owner *jast.ClassDecl) jast.Expr {
	if md.Mods.Has(jast.ModStatic) {
		return jast.NullLit()
	}

	if th, ok := call.X.(*jast.This); ok {
		return &jast.This{Qualifier: th.Qualifier}
	}

	if jast.EnclosingClass(call) != owner {
		return &jast.This{Qualifier: owner.Name}
	}

	return &jast.This{}
}

// reflectiveTry parses the try statement that guards a reflective call. Its
// body is left empty for the caller to fill.
func reflectiveTry(ctx *Context) (*jast.TryStmt, error) {
	invokeErr, lookupErr, cause := ctx.FreshName("invokeErr"), ctx.FreshName("lookupErr"), ctx.FreshName("invokeCause")

	s, err := jast.ParseStmt(fmt.Sprintf(`try {
} catch (java.lang.reflect.InvocationTargetException %[1]s) {
	Throwable %[3]s = %[1]s.getCause();
	if (%[3]s instanceof RuntimeException) {
		throw (RuntimeException) %[3]s;
	}
	if (%[3]s instanceof Error) {
		throw (Error) %[3]s;
	}
	throw new RuntimeException(%[3]s);
} catch (ReflectiveOperationException %[2]s) {
	throw new RuntimeException(%[2]s);
}`, invokeErr, lookupErr, cause))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reflective guard: %w", err)
	}

	t, ok := s.(*jast.TryStmt)
	if !ok {
		return nil, fmt.Errorf("reflective guard parsed as %T", s)
	}

	return t, nil
}

// startsWithConstructorCall reports whether b is a constructor body opening
// with this(...) or super(...).
func startsWithConstructorCall(b *jast.Block) bool {
	md, ok := b.Parent().(*jast.MethodDecl)
	if !ok || !md.IsConstructor || len(b.Stmts) == 0 {
		return false
	}

	es, ok := b.Stmts[0].(*jast.ExprStmt)
	if !ok {
		return false
	}

	call, ok := es.X.(*jast.Call)

	return ok && call.X == nil && (call.Name == "this" || call.Name == "super")
}
