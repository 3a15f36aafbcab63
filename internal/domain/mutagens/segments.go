package mutagens

import (
	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

const foreignPkg = "java.lang.foreign"

var layouts = map[string]string{
	"byte":   "JAVA_BYTE",
	"short":  "JAVA_SHORT",
	"char":   "JAVA_CHAR",
	"int":    "JAVA_INT",
	"long":   "JAVA_LONG",
	"float":  "JAVA_FLOAT",
	"double": "JAVA_DOUBLE",
}

func foreignType(name string) *jast.TypeRef {
	return &jast.TypeRef{Name: foreignPkg + "." + name}
}

// layoutOf returns java.lang.foreign.ValueLayout.JAVA_X for a primitive.
func layoutOf(prim string) jast.Expr {
	return jast.NewField(jast.NewName(foreignPkg+".ValueLayout"), layouts[prim])
}

// segmentComponent returns the primitive stored by a one-dimensional array
// type and whether the component is boxed.
func segmentComponent(t *jast.TypeRef) (prim string, boxed, ok bool) {
	if t == nil || t.Dims != 1 {
		return "", false, false
	}

	prim = t.Name
	if p, isWrapper := jast.PrimitiveOf(t.Name); isWrapper {
		prim, boxed = p, true
	}

	_, ok = layouts[prim]

	return prim, boxed, ok
}

func intLike(e jast.Expr) bool {
	t := jast.TypeOf(e)
	if t == nil || t.Dims != 0 {
		return false
	}

	switch t.Name {
	case "int", "short", "byte", "char":
		return true
	}

	return false
}

func longIndex(idx jast.Expr) jast.Expr {
	return jast.NewCast(jast.PrimType("long"), jast.Clone(idx))
}

// segmentGet builds seg.getAtIndex(LAYOUT, (long) idx).
func segmentGet(seg, prim string, idx jast.Expr) jast.Expr {
	return jast.NewCall(jast.NewName(seg), "getAtIndex", layoutOf(prim), longIndex(idx))
}

// segmentSet builds seg.setAtIndex(LAYOUT, (long) idx, (prim) value).
func segmentSet(seg, prim string, idx, value jast.Expr) *jast.ExprStmt {
	return jast.NewExprStmt(jast.NewCall(jast.NewName(seg), "setAtIndex",
		layoutOf(prim), longIndex(idx), jast.NewCast(jast.PrimType(prim), jast.Clone(value))))
}

// usesOf returns the names below scope that resolve to decl, in tree order.
func usesOf(scope jast.Node, decl *jast.LocalVarStmt) []*jast.Name {
	var out []*jast.Name

	for _, n := range jast.Find[*jast.Name](scope) {
		if jast.Resolve(n, n.Name) == jast.Node(decl) {
			out = append(out, n)
		}
	}

	return out
}
