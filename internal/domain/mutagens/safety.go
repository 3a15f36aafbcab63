package mutagens

import (
	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

// MaxLoopDepth is the deepest loop nesting a mutation may produce, counting
// loops around call sites of the enclosing method.
const MaxLoopDepth = 3

// SafeToAddLoops reports whether wrapping loopsToAdd loops around anchor keeps
// the nesting within MaxLoopDepth. When anchor sits in a method, every call
// site of that method in the unit must pass the same check. The tree is not
// modified.
func SafeToAddLoops(anchor jast.Node, loopsToAdd int) bool {
	return safeToAddLoops(anchor, loopsToAdd, map[*jast.MethodDecl]bool{})
}

func safeToAddLoops(anchor jast.Node, loopsToAdd int, visited map[*jast.MethodDecl]bool) bool {
	if exceedsLoopDepth(anchor, loopsToAdd) {
		return false
	}

	if anchor == nil {
		return true
	}

	method := jast.EnclosingMethod(anchor)
	if method == nil || visited[method] {
		return true
	}

	visited[method] = true

	unit, ok := jast.Root(anchor).(*jast.CompilationUnit)
	if !ok {
		return true
	}

	for _, call := range jast.Find[*jast.Call](unit) {
		if jast.ResolveCall(call) != method {
			continue
		}

		if !safeToAddLoops(call, loopsToAdd, visited) {
			return false
		}
	}

	return true
}

func exceedsLoopDepth(anchor jast.Node, loopsToAdd int) bool {
	if anchor == nil {
		return loopsToAdd > 0
	}

	return LoopDepth(anchor)+max(loopsToAdd, 0) > MaxLoopDepth
}

// LoopDepth counts the loops strictly enclosing n.
func LoopDepth(n jast.Node) int {
	depth := 0

	for p := n.Parent(); p != nil; p = p.Parent() {
		if jast.IsLoop(p) {
			depth++
		}
	}

	return depth
}
