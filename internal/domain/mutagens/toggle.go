package mutagens

import (
	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

const (
	toggleField  = "_mutatorToggle"
	toggleMethod = "_mutatorFlip"
)

// OpaqueToggle returns a boolean expression the compiler cannot fold. Inside
// a class it calls a flip method backed by a volatile field, adding both to
// the class on first use.
func OpaqueToggle(anchor jast.Node) jast.Expr {
	class := jast.EnclosingClass(anchor)
	if class == nil || class.Kind == jast.KindInterface {
		return identityHashToggle()
	}

	if !hasMember(class, toggleField) {
		field := &jast.FieldDecl{
			Mods: jast.Modifiers{Flags: jast.ModPrivate | jast.ModStatic | jast.ModVolatile},
			Type: jast.PrimType("boolean"),
			Name: toggleField,
			Init: jast.BoolLit(false),
		}
		jast.AddMember(class, field)
	}

	if !hasMember(class, toggleMethod) {
		flip := &jast.MethodDecl{
			Mods:   jast.Modifiers{Flags: jast.ModPrivate | jast.ModStatic},
			Result: jast.PrimType("boolean"),
			Name:   toggleMethod,
			Body: jast.NewBlock(
				jast.NewExprStmt(jast.NewAssign("=", jast.NewName(toggleField), jast.NewUnary("!", jast.NewName(toggleField)))),
				&jast.ReturnStmt{X: jast.NewName(toggleField)},
			),
		}
		jast.AddMember(class, flip)
	}

	return jast.NewCall(nil, toggleMethod)
}

// ((System.identityHashCode(new Object()) & 1) == 0)
func identityHashToggle() jast.Expr {
	hash := jast.NewCall(jast.NewName("System"), "identityHashCode", jast.NewObject(&jast.TypeRef{Name: "Object"}))
	return jast.NewBinary("==", jast.NewBinary("&", hash, jast.IntLit(1)), jast.IntLit(0))
}

func hasMember(class *jast.ClassDecl, name string) bool {
	for _, mem := range class.Members {
		switch d := mem.(type) {
		case *jast.FieldDecl:
			if d.Name == name {
				return true
			}
		case *jast.MethodDecl:
			if d.Name == name && len(d.Params) == 0 {
				return true
			}
		}
	}

	return false
}
