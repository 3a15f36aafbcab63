package jast

var wrappers = map[string]string{
	"boolean": "Boolean",
	"byte":    "Byte",
	"char":    "Character",
	"short":   "Short",
	"int":     "Integer",
	"long":    "Long",
	"float":   "Float",
	"double":  "Double",
}

var primitives = map[string]string{
	"Boolean":   "boolean",
	"Byte":      "byte",
	"Character": "char",
	"Short":     "short",
	"Integer":   "int",
	"Long":      "long",
	"Float":     "float",
	"Double":    "double",
}

// IsPrimitive reports whether t is a non-array primitive type.
func IsPrimitive(t *TypeRef) bool {
	if t == nil || t.Dims > 0 {
		return false
	}

	_, ok := wrappers[t.Name]

	return ok
}

// IsNumeric reports whether t is a non-array numeric primitive.
func IsNumeric(t *TypeRef) bool {
	return IsPrimitive(t) && t.Name != "boolean"
}

// IsBoolean reports whether t is boolean or Boolean.
func IsBoolean(t *TypeRef) bool {
	return t != nil && t.Dims == 0 && (t.Name == "boolean" || t.Name == "Boolean")
}

// IsString reports whether t is String.
func IsString(t *TypeRef) bool {
	return t != nil && t.Dims == 0 && (t.Name == "String" || t.Name == "java.lang.String")
}

// WrapperOf returns the boxed class name of a primitive type name.
func WrapperOf(primitive string) (string, bool) {
	w, ok := wrappers[primitive]
	return w, ok
}

// PrimitiveOf returns the primitive type name of a wrapper class name.
func PrimitiveOf(wrapper string) (string, bool) {
	p, ok := primitives[wrapper]
	return p, ok
}

// PrimType returns a fresh primitive or simple class type reference.
func PrimType(name string) *TypeRef {
	return &TypeRef{Name: name}
}

// unbox maps wrapper types to their primitive and leaves others unchanged.
func unbox(t *TypeRef) *TypeRef {
	if t == nil || t.Dims > 0 {
		return t
	}

	if p, ok := primitives[t.Name]; ok {
		return PrimType(p)
	}

	return t
}

var numericRank = map[string]int{"byte": 1, "short": 2, "char": 2, "int": 3, "long": 4, "float": 5, "double": 6}

// promote applies binary numeric promotion. It returns nil when either side is
// not numeric.
func promote(a, b *TypeRef) *TypeRef {
	a, b = unbox(a), unbox(b)
	if !IsNumeric(a) || !IsNumeric(b) {
		return nil
	}

	name := "int"

	for _, t := range []*TypeRef{a, b} {
		if numericRank[t.Name] > numericRank[name] {
			name = t.Name
		}
	}

	return PrimType(name)
}

func promoteUnary(t *TypeRef) *TypeRef {
	return promote(t, PrimType("int"))
}

var literalTypes = map[LitKind]string{
	LitInt:    "int",
	LitLong:   "long",
	LitFloat:  "float",
	LitDouble: "double",
	LitChar:   "char",
	LitString: "String",
	LitBool:   "boolean",
}

// TypeOf infers the static type of e from declarations visible in its tree.
// It returns nil when the type cannot be determined.
//
//nolint:cyclop,funlen // one case per expression type
func TypeOf(e Expr) *TypeRef {
	switch e := e.(type) {
	case *Literal:
		if name, ok := literalTypes[e.Kind]; ok {
			return PrimType(name)
		}
	case *Name:
		return declType(Resolve(e, e.Name))
	case *FieldAccess:
		return fieldAccessType(e)
	case *ArrayAccess:
		t := TypeOf(e.X)
		if t == nil || t.Dims == 0 {
			return nil
		}

		c := t.Clone()
		c.Dims--

		return c
	case *Call:
		if m := ResolveCall(e); m != nil {
			return m.Result.Clone()
		}
	case *New:
		c := e.Type.Clone()
		c.Diamond = false

		return c
	case *NewArray:
		c := e.Type.Clone()
		c.Dims += len(e.Dims) + e.ExtraDims

		return c
	case *Unary:
		switch e.Op {
		case "!":
			return PrimType("boolean")
		case "++", "--":
			return TypeOf(e.X)
		default:
			return promoteUnary(TypeOf(e.X))
		}
	case *Binary:
		return binaryType(e)
	case *InstanceOf:
		return PrimType("boolean")
	case *Assign:
		return TypeOf(e.Lhs)
	case *Conditional:
		then, els := TypeOf(e.Then), TypeOf(e.Else)
		if p := promote(then, els); p != nil && IsPrimitive(then) && IsPrimitive(els) {
			return p
		}

		if then != nil {
			return then
		}

		return els
	case *Cast:
		return e.Type.Clone()
	case *This:
		if c := EnclosingClass(e); c != nil {
			return &TypeRef{Name: c.Name}
		}
	case *ClassLit:
		return &TypeRef{Name: "Class", Args: []*TypeRef{{Name: "?", Wildcard: WildcardAny}}}
	}

	return nil
}

func binaryType(e *Binary) *TypeRef {
	switch e.Op {
	case "&&", "||", "==", "!=", "<", ">", "<=", ">=":
		return PrimType("boolean")
	}

	x, y := TypeOf(e.X), TypeOf(e.Y)

	switch e.Op {
	case "+":
		if IsString(x) || IsString(y) {
			return &TypeRef{Name: "String"}
		}

		return promote(x, y)
	case "<<", ">>", ">>>":
		return promoteUnary(x)
	case "&", "|", "^":
		if IsBoolean(x) && IsBoolean(y) {
			return PrimType("boolean")
		}

		return promote(x, y)
	}

	return promote(x, y)
}

func fieldAccessType(e *FieldAccess) *TypeRef {
	if _, ok := e.X.(*This); ok {
		if c := EnclosingClass(e); c != nil {
			return declType(findField(c, e.Name))
		}

		return nil
	}

	xt := TypeOf(e.X)

	if xt == nil {
		if name, ok := e.X.(*Name); ok {
			if c := FindClass(unitOf(e), name.Name); c != nil {
				return declType(findField(c, e.Name))
			}
		}

		return nil
	}

	if xt.Dims > 0 && e.Name == "length" {
		return PrimType("int")
	}

	if c := FindClass(unitOf(e), xt.Name); c != nil {
		return declType(findField(c, e.Name))
	}

	return nil
}

// declType returns the declared type of a declaration node found by Resolve.
func declType(n Node) *TypeRef {
	switch d := n.(type) {
	case *LocalVarStmt:
		if d != nil {
			return d.Type.Clone()
		}
	case *FieldDecl:
		if d != nil {
			return d.Type.Clone()
		}
	case *Param:
		if d == nil {
			return nil
		}

		t := d.Type.Clone()
		if d.Varargs {
			t.Dims++
		}

		return t
	case *CatchClause:
		if d == nil {
			return nil
		}

		if len(d.Types) == 1 {
			return d.Types[0].Clone()
		}

		return &TypeRef{Name: "Exception"}
	}

	return nil
}

func findField(c *ClassDecl, name string) *FieldDecl {
	for _, m := range c.Members {
		if f, ok := m.(*FieldDecl); ok && f.Name == name {
			return f
		}
	}

	return nil
}
