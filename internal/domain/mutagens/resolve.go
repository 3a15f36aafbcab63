package mutagens

import (
	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

// exploreProbability is the chance that candidate search ignores the hot
// method and class and scans the whole unit.
const exploreProbability = 0.2

// Resolve collects the nodes of type T accepted by match. The search looks in
// the hot method, then the hot class, then the whole unit, and stops at the
// first scope with a match. With probability exploreProbability it scans the
// whole unit right away. When no hot class resolves, a random class stands in
// for it.
func Resolve[T jast.Node](ctx *Context, match func(T) bool) []T {
	if ctx == nil || ctx.Model() == nil {
		return nil
	}

	class, method := ctx.TargetClass(), ctx.TargetMethod()

	if class == nil {
		if classes := jast.Classes(ctx.Model()); len(classes) > 0 {
			class = classes[ctx.Rand().Intn(len(classes))]
			method = nil
		}
	}

	if ctx.Rand().Float64() < exploreProbability {
		return collect(ctx.Model(), match)
	}

	if method != nil && jast.EnclosingClass(method) == class {
		if out := collect(method, match); len(out) > 0 {
			return out
		}
	}

	if class != nil {
		if out := collect(class, match); len(out) > 0 {
			return out
		}
	}

	return collect(ctx.Model(), match)
}

// Exists reports whether any node accepted by match exists in the hot method,
// the hot class or the unit. It draws no random numbers.
func Exists[T jast.Node](ctx *Context, match func(T) bool) bool {
	if ctx == nil || ctx.Model() == nil {
		return false
	}

	for _, root := range []jast.Node{ctx.TargetMethod(), ctx.TargetClass(), ctx.Model()} {
		if root == nil || isNilNode(root) {
			continue
		}

		found := false

		jast.Inspect(root, func(n jast.Node) bool {
			if found {
				return false
			}

			if t, ok := n.(T); ok && match(t) {
				found = true
			}

			return !found
		})

		if found {
			return true
		}
	}

	return false
}

// Pick returns a uniformly chosen element of candidates.
func Pick[T any](ctx *Context, candidates []T) T {
	return candidates[ctx.Rand().Intn(len(candidates))]
}

func collect[T jast.Node](root jast.Node, match func(T) bool) []T {
	var out []T

	for _, n := range jast.Find[T](root) {
		if match(n) {
			out = append(out, n)
		}
	}

	return out
}

func isNilNode(n jast.Node) bool {
	switch v := n.(type) {
	case *jast.MethodDecl:
		return v == nil
	case *jast.ClassDecl:
		return v == nil
	case *jast.CompilationUnit:
		return v == nil
	}

	return false
}
