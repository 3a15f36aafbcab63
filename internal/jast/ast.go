// Package jast implements a small, mutable syntax tree for the subset of Java
// that fuzzing seeds are written in. It parses source into a tree, lets callers
// navigate and rewrite it through parent links, and prints it back to Java.
package jast

// Node is implemented by every tree node. Parent returns nil for the root.
type Node interface {
	Parent() Node
	setParent(p Node)
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Member is a class body declaration.
type Member interface {
	Node
	memberNode()
}

type base struct {
	parent Node
}

func (b *base) Parent() Node { return b.parent }

func (b *base) setParent(p Node) { b.parent = p }

// ModFlag is a bit set of Java modifiers.
type ModFlag uint16

// Modifier bits.
const (
	ModPublic ModFlag = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModFinal
	ModAbstract
	ModSynchronized
	ModVolatile
	ModTransient
	ModNative
	ModStrictfp
	ModDefault
)

var modifierOrder = []struct {
	flag ModFlag
	word string
}{
	{ModPublic, "public"},
	{ModProtected, "protected"},
	{ModPrivate, "private"},
	{ModAbstract, "abstract"},
	{ModDefault, "default"},
	{ModStatic, "static"},
	{ModFinal, "final"},
	{ModTransient, "transient"},
	{ModVolatile, "volatile"},
	{ModSynchronized, "synchronized"},
	{ModNative, "native"},
	{ModStrictfp, "strictfp"},
}

// Annotation is kept as raw text; annotation arguments are never mutated.
type Annotation struct {
	Name string
	Args string
	// HasArgs distinguishes @A() from @A.
	HasArgs bool
}

// Modifiers holds the modifier flags and annotations of a declaration.
type Modifiers struct {
	Flags       ModFlag
	Annotations []*Annotation
}

// Has reports whether every bit of f is set.
func (m Modifiers) Has(f ModFlag) bool { return m.Flags&f == f }

// Wildcard kinds for type arguments.
const (
	WildcardNone = iota
	WildcardAny
	WildcardExtends
	WildcardSuper
)

// TypeRef is a type as written in source. It is a value, not a tree node.
type TypeRef struct {
	Name     string
	Args     []*TypeRef
	Diamond  bool
	Dims     int
	Wildcard int
	Bound    *TypeRef
}

// ClassKind distinguishes the kinds of type declarations.
type ClassKind int

// Type declaration kinds.
const (
	KindClass ClassKind = iota
	KindInterface
	KindEnum
)

// Import is one import declaration.
type Import struct {
	Path   string
	Static bool
}

// CompilationUnit is the root of a parsed file.
type CompilationUnit struct {
	base
	Package string
	Imports []*Import
	Types   []*ClassDecl
}

// ClassDecl declares a class, interface or enum.
type ClassDecl struct {
	base
	Mods          Modifiers
	Kind          ClassKind
	Name          string
	TypeParams    string
	Extends       *TypeRef
	Implements    []*TypeRef
	EnumConstants []*EnumConstant
	Members       []Member
}

// EnumConstant is one constant of an enum declaration.
type EnumConstant struct {
	base
	Name    string
	Args    []Expr
	HasArgs bool
}

// FieldDecl declares a single field.
type FieldDecl struct {
	base
	Mods Modifiers
	Type *TypeRef
	Name string
	Init Expr
}

// MethodDecl declares a method or a constructor.
type MethodDecl struct {
	base
	Mods          Modifiers
	TypeParams    string
	Result        *TypeRef
	Name          string
	Params        []*Param
	Throws        []*TypeRef
	Body          *Block
	IsConstructor bool
}

// Param is a formal parameter.
type Param struct {
	base
	Mods    Modifiers
	Type    *TypeRef
	Name    string
	Varargs bool
}

// Initializer is an instance or static initializer block.
type Initializer struct {
	base
	Static bool
	Body   *Block
}

func (*ClassDecl) memberNode()   {}
func (*FieldDecl) memberNode()   {}
func (*MethodDecl) memberNode()  {}
func (*Initializer) memberNode() {}

// Statements.
type (
	Block struct {
		base
		Stmts []Stmt
	}

	// LocalVarStmt declares one local variable. Declarations such as
	// "int a, b;" are split into one statement per variable.
	LocalVarStmt struct {
		base
		Mods Modifiers
		Type *TypeRef
		Name string
		Init Expr
	}

	ExprStmt struct {
		base
		X Expr
	}

	IfStmt struct {
		base
		Cond Expr
		Then Stmt
		Else Stmt
	}

	// ForStmt is a basic for loop. Init holds LocalVarStmt or ExprStmt nodes.
	ForStmt struct {
		base
		Init   []Stmt
		Cond   Expr
		Update []Expr
		Body   Stmt
	}

	ForEachStmt struct {
		base
		Var  *LocalVarStmt
		Iter Expr
		Body Stmt
	}

	WhileStmt struct {
		base
		Cond Expr
		Body Stmt
	}

	DoStmt struct {
		base
		Body Stmt
		Cond Expr
	}

	SyncStmt struct {
		base
		Lock Expr
		Body *Block
	}

	// TryStmt holds resources as LocalVarStmt or ExprStmt nodes.
	TryStmt struct {
		base
		Resources []Stmt
		Body      *Block
		Catches   []*CatchClause
		Finally   *Block
	}

	CatchClause struct {
		base
		Mods  Modifiers
		Types []*TypeRef
		Name  string
		Body  *Block
	}

	ReturnStmt struct {
		base
		X Expr
	}

	BreakStmt struct {
		base
		Label string
	}

	ContinueStmt struct {
		base
		Label string
	}

	ThrowStmt struct {
		base
		X Expr
	}

	AssertStmt struct {
		base
		Cond Expr
		Msg  Expr
	}

	SwitchStmt struct {
		base
		Tag   Expr
		Cases []*SwitchCase
	}

	// SwitchCase is a case group. A nil Labels slice is the default case.
	SwitchCase struct {
		base
		Labels []Expr
		Body   []Stmt
		Arrow  bool
	}

	LabeledStmt struct {
		base
		Label string
		Body  Stmt
	}

	EmptyStmt struct {
		base
	}
)

func (*Block) stmtNode()        {}
func (*LocalVarStmt) stmtNode() {}
func (*ExprStmt) stmtNode()     {}
func (*IfStmt) stmtNode()       {}
func (*ForStmt) stmtNode()      {}
func (*ForEachStmt) stmtNode()  {}
func (*WhileStmt) stmtNode()    {}
func (*DoStmt) stmtNode()       {}
func (*SyncStmt) stmtNode()     {}
func (*TryStmt) stmtNode()      {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ThrowStmt) stmtNode()    {}
func (*AssertStmt) stmtNode()   {}
func (*SwitchStmt) stmtNode()   {}
func (*LabeledStmt) stmtNode()  {}
func (*EmptyStmt) stmtNode()    {}

// LitKind classifies literals.
type LitKind int

// Literal kinds.
const (
	LitInt LitKind = iota
	LitLong
	LitFloat
	LitDouble
	LitChar
	LitString
	LitBool
	LitNull
)

// Expressions.
type (
	// Literal keeps the literal exactly as written.
	Literal struct {
		base
		Kind  LitKind
		Value string
	}

	Name struct {
		base
		Name string
	}

	FieldAccess struct {
		base
		X    Expr
		Name string
	}

	ArrayAccess struct {
		base
		X     Expr
		Index Expr
	}

	// Call is a method invocation. X is nil for unqualified calls. Explicit
	// constructor invocations use the names "this" and "super".
	Call struct {
		base
		X    Expr
		Name string
		Args []Expr
	}

	// New is an instance creation. Body is non-nil for anonymous classes.
	New struct {
		base
		Type *TypeRef
		Args []Expr
		Body []Member
	}

	// NewArray creates an array. Type is the element type without dimensions.
	NewArray struct {
		base
		Type      *TypeRef
		Dims      []Expr
		ExtraDims int
		Init      *ArrayInit
	}

	ArrayInit struct {
		base
		Elems []Expr
	}

	Unary struct {
		base
		Op      string
		X       Expr
		Postfix bool
	}

	Binary struct {
		base
		Op string
		X  Expr
		Y  Expr
	}

	InstanceOf struct {
		base
		X       Expr
		Type    *TypeRef
		Binding string
	}

	Assign struct {
		base
		Op  string
		Lhs Expr
		Rhs Expr
	}

	Conditional struct {
		base
		Cond Expr
		Then Expr
		Else Expr
	}

	Cast struct {
		base
		Type *TypeRef
		X    Expr
	}

	This struct {
		base
		Qualifier string
	}

	Super struct {
		base
	}

	ClassLit struct {
		base
		Type *TypeRef
	}
)

func (*Literal) exprNode()     {}
func (*Name) exprNode()        {}
func (*FieldAccess) exprNode() {}
func (*ArrayAccess) exprNode() {}
func (*Call) exprNode()        {}
func (*New) exprNode()         {}
func (*NewArray) exprNode()    {}
func (*ArrayInit) exprNode()   {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*InstanceOf) exprNode()  {}
func (*Assign) exprNode()      {}
func (*Conditional) exprNode() {}
func (*Cast) exprNode()        {}
func (*This) exprNode()        {}
func (*Super) exprNode()       {}
func (*ClassLit) exprNode()    {}
