// Package typegraph is the resolved type abstraction the descriptor builder
// walks. A Resolver turns a Ref into a Type and answers member, declaration
// and name queries about it.
//
// Two resolvers exist: source.Resolver adapts go/types, and Graph is an
// in-memory map used by tests and tools.
package typegraph

import (
	"fmt"
	"go/ast"
	"go/token"
)

// Kind classifies a resolved type.
type Kind int

const (
	Object       Kind = iota // a type with its own members
	Intersection             // typeof.And
	Union                    // typeof.Or
	Opaque                   // any, empty interfaces, type parameters
)

func (k Kind) String() string {
	switch k {
	case Object:
		return "object"
	case Intersection:
		return "intersection"
	case Union:
		return "union"
	case Opaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Syntax is the category of a member's declared type.
type Syntax int

const (
	None Syntax = iota // no declared type
	FunctionDecl
	FunctionKeyword
	NullKeyword
	BooleanKeyword
	StringKeyword
	NumberKeyword
	ObjectKeyword
	ArrayType
	BigIntKeyword
	TypeReference // a named or alias type; TypeNode.Ref is set
	TypeLiteral   // an anonymous struct or interface; TypeNode.Ref is set
	Other
)

var syntaxNames = [...]string{
	None:            "none",
	FunctionDecl:    "function-decl",
	FunctionKeyword: "function",
	NullKeyword:     "null",
	BooleanKeyword:  "boolean",
	StringKeyword:   "string",
	NumberKeyword:   "number",
	ObjectKeyword:   "object",
	ArrayType:       "array",
	BigIntKeyword:   "bigint",
	TypeReference:   "type-reference",
	TypeLiteral:     "type-literal",
	Other:           "other",
}

func (s Syntax) String() string {
	if s >= 0 && int(s) < len(syntaxNames) {
		return syntaxNames[s]
	}
	return fmt.Sprintf("Syntax(%d)", int(s))
}

// Ref is a handle on a type that a Resolver can resolve.
// Refs must be comparable; the builder keys its cycle guard on them.
type Ref interface {
	String() string
}

// Type is a resolved type.
type Type struct {
	Kind Kind

	// Alias is the alias name when the type was reached through an alias
	// declaration (type A = B).
	Alias string

	// Symbol is the declared name of the type, empty for anonymous types.
	Symbol string

	// Members are the members of an Object type, in declaration order.
	Members []*Member

	// Parts are the operands of an Intersection or Union type.
	Parts []*Type
}

// String implements Ref so that a Type can stand for itself.
func (t *Type) String() string {
	switch {
	case t.Alias != "":
		return t.Alias
	case t.Symbol != "":
		return t.Symbol
	}
	return "<" + t.Kind.String() + ">"
}

// Member is one member of a type.
type Member struct {
	Name string

	// Decl is the member's originating declaration. It is nil for members
	// synthesized by combining types whose declarations disagree.
	Decl *Declaration
}

// Modifier is a marker carried by a declaration.
type Modifier int

const (
	ReadonlyKeyword Modifier = iota + 1
)

// Declaration is the source declaration of a type or member.
type Declaration struct {
	// Owner is the declaration of the enclosing named type, nil for
	// type declarations themselves.
	Owner *Declaration

	Name string

	// Type is the member's declared type, nil when there is none.
	Type *TypeNode

	Annotations []Annotation
	Modifiers   []Modifier

	// Question reports an explicit optional marker.
	Question bool

	Pos token.Position
}

// HasModifier reports whether d carries m.
func (d *Declaration) HasModifier(m Modifier) bool {
	if d == nil {
		return false
	}
	for _, mod := range d.Modifiers {
		if mod == m {
			return true
		}
	}
	return false
}

// TypeNode is a member's declared type.
type TypeNode struct {
	Syntax Syntax

	// Ref is the referenced type for TypeReference and TypeLiteral.
	Ref Ref
}

// Annotation is an annotation attached to a declaration. Expr is either the
// bare name or a call whose arguments are the annotation's arguments.
type Annotation struct {
	Expr ast.Expr
}

// Resolver answers queries about resolved types. Implementations only read
// the underlying program and must tolerate concurrent use.
type Resolver interface {
	ResolveType(ref Ref) (*Type, bool)
	MembersOf(t *Type) []*Member
	DeclarationOf(m *Member) *Declaration
	AliasNameOf(t *Type) string
	SymbolNameOf(t *Type) string
}

// Name is a Ref naming a type defined in a Graph.
type Name string

func (n Name) String() string { return string(n) }

// Graph is a map-backed Resolver.
//
//	g := typegraph.NewGraph()
//	g.Define("Foo", &typegraph.Type{Symbol: "Foo", Members: ...})
//	t, _ := g.ResolveType(g.Named("Foo"))
type Graph struct {
	Standard
	types map[Name]*Type
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{types: make(map[Name]*Type)}
}

// Define registers t under name and returns t. The type's Symbol defaults
// to name for Object types.
func (g *Graph) Define(name string, t *Type) *Type {
	if t.Kind == Object && t.Symbol == "" && t.Alias == "" {
		t.Symbol = name
	}
	g.types[Name(name)] = t
	return t
}

// Named returns a reference to the type registered under name.
func (g *Graph) Named(name string) Ref {
	return Name(name)
}

// ResolveType resolves a Name registered with Define, or a *Type standing
// for itself.
func (g *Graph) ResolveType(ref Ref) (*Type, bool) {
	switch r := ref.(type) {
	case Name:
		t, ok := g.types[r]
		return t, ok
	case *Type:
		return r, r != nil
	}
	return nil, false
}
