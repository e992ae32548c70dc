package source

import (
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	"github.com/broady/typeof/internal/typegraph"
)

// DefaultDirectivePrefix introduces annotation comments:
//
//	//typeof:Table("users")
//	type User struct {
//		//typeof:Column("user_name")
//		Name string
//		Age  int //typeof:Min(0)
//	}
const DefaultDirectivePrefix = "//typeof:"

// Warning is a non-fatal problem found while reading declarations.
type Warning struct {
	Pos     token.Position
	Message string
}

func (w Warning) String() string {
	if w.Pos.IsValid() {
		return w.Pos.String() + ": " + w.Message
	}
	return w.Message
}

// directives returns the annotations written as directive comments in the
// given comment groups, in source order. A directive that does not parse as
// an expression is kept as an annotation named "undefined" and reported
// through warn.
func directives(fset *token.FileSet, prefix string, warn func(Warning), groups ...*ast.CommentGroup) []typegraph.Annotation {
	var out []typegraph.Annotation
	for _, cg := range groups {
		if cg == nil {
			continue
		}
		for _, c := range cg.List {
			if !strings.HasPrefix(c.Text, prefix) {
				continue
			}
			text := strings.TrimSpace(strings.TrimPrefix(c.Text, prefix))
			if text == "" {
				continue
			}
			e, err := parser.ParseExpr(text)
			if err != nil {
				warn(Warning{
					Pos:     fset.Position(c.Pos()),
					Message: "invalid directive " + prefix + text + ": " + err.Error(),
				})
				e = &ast.BadExpr{From: c.Pos(), To: c.End()}
			}
			out = append(out, typegraph.Annotation{Expr: e})
		}
	}
	return out
}

// tagAnnotations turns the listed struct tag keys into annotations whose
// arguments are the comma-separated parts of the tag value.
func tagAnnotations(tag string, keys []string) []typegraph.Annotation {
	var out []typegraph.Annotation
	st := reflect.StructTag(tag)
	for _, key := range keys {
		value, ok := st.Lookup(key)
		if !ok {
			continue
		}
		call := &ast.CallExpr{Fun: ast.NewIdent(key)}
		if value != "" {
			for _, part := range strings.Split(value, ",") {
				call.Args = append(call.Args, &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(part)})
			}
		}
		out = append(out, typegraph.Annotation{Expr: call})
	}
	return out
}

// tagOptions reports the typeof tag options and json optionality of a field.
//
//	`typeof:"readonly"`           readonly
//	`typeof:"optional"`           optional
//	`json:"name,omitempty"`       optional
func tagOptions(tag string) (readonly, optional bool) {
	st := reflect.StructTag(tag)
	for _, opt := range strings.Split(st.Get("typeof"), ",") {
		switch strings.TrimSpace(opt) {
		case "readonly":
			readonly = true
		case "optional":
			optional = true
		}
	}
	if j, ok := st.Lookup("json"); ok {
		parts := strings.Split(j, ",")
		for _, opt := range parts[1:] {
			if opt == "omitempty" || opt == "omitzero" {
				optional = true
			}
		}
	}
	return readonly, optional
}

// tagName returns the member name given by the first option of the key
// tag. skip is true for "-".
func tagName(tag, key string) (name string, skip bool) {
	if key == "" {
		return "", false
	}
	value, ok := reflect.StructTag(tag).Lookup(key)
	if !ok {
		return "", false
	}
	if value == "-" {
		return "", true
	}
	name, _, _ = strings.Cut(value, ",")
	return name, false
}
