package jast

import (
	"strconv"
	"strings"
)

// RenameClass renames the class declared as from to to, together with its
// constructors and every reference the unit makes to it: type references,
// class-name receivers, qualified this and string literals holding the simple
// or package-qualified name. It returns false when no class named from is
// declared in the unit.
func RenameClass(unit *CompilationUnit, from, to string) bool {
	if unit == nil || from == "" || to == "" || from == to {
		return false
	}

	found := false

	for _, c := range Find[*ClassDecl](unit) {
		if c.Name == from {
			found = true
			break
		}
	}

	if !found {
		return false
	}

	r := renamer{from: from, to: to}
	if unit.Package != "" {
		r.qualFrom, r.qualTo = unit.Package+"."+from, unit.Package+"."+to
	}

	Inspect(unit, func(n Node) bool {
		r.node(n)
		return true
	})

	return true
}

type renamer struct {
	from, to         string
	qualFrom, qualTo string
}

func (r renamer) node(n Node) {
	switch x := n.(type) {
	case *ClassDecl:
		if x.Name == r.from {
			x.Name = r.to
		}

		r.typ(x.Extends)
		r.types(x.Implements)
	case *FieldDecl:
		r.typ(x.Type)
	case *MethodDecl:
		if x.IsConstructor && x.Name == r.from {
			x.Name = r.to
		}

		r.typ(x.Result)
		r.types(x.Throws)
	case *Param:
		r.typ(x.Type)
	case *LocalVarStmt:
		r.typ(x.Type)
	case *CatchClause:
		r.types(x.Types)
	case *New:
		r.typ(x.Type)
	case *NewArray:
		r.typ(x.Type)
	case *InstanceOf:
		r.typ(x.Type)
	case *Cast:
		r.typ(x.Type)
	case *ClassLit:
		r.typ(x.Type)
	case *This:
		if x.Qualifier == r.from {
			x.Qualifier = r.to
		}
	case *Name:
		if x.Name == r.from && Resolve(x, r.from) == nil {
			x.Name = r.to
		}
	case *Literal:
		if x.Kind != LitString {
			return
		}

		switch x.Value {
		case strconv.Quote(r.from):
			x.Value = strconv.Quote(r.to)
		case strconv.Quote(r.qualFrom):
			if r.qualFrom != "" {
				x.Value = strconv.Quote(r.qualTo)
			}
		}
	}
}

func (r renamer) types(ts []*TypeRef) {
	for _, t := range ts {
		r.typ(t)
	}
}

func (r renamer) typ(t *TypeRef) {
	if t == nil {
		return
	}

	t.Name = r.name(t.Name)
	r.types(t.Args)
	r.typ(t.Bound)
}

func (r renamer) name(name string) string {
	for _, p := range [][2]string{{r.qualFrom, r.qualTo}, {r.from, r.to}} {
		if p[0] == "" {
			continue
		}

		if name == p[0] {
			return p[1]
		}

		if rest, ok := strings.CutPrefix(name, p[0]+"."); ok {
			return p[1] + "." + rest
		}
	}

	return name
}
