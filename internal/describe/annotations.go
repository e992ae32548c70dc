package describe

import (
	"go/ast"
	"go/token"
	"strconv"

	"github.com/broady/typeof/internal/typegraph"
	"github.com/broady/typeof/typeinfo"
)

// undefinedName is the annotation name used when no identifier can be found
// in an annotation expression.
const undefinedName = "undefined"

// Annotations returns the annotations attached to d. The result is never nil.
// When a name occurs more than once the last occurrence wins.
func Annotations(d *typegraph.Declaration) typeinfo.Annotations {
	out := typeinfo.Annotations{}
	if d == nil {
		return out
	}
	for _, a := range d.Annotations {
		args := []string{}
		if call, ok := a.Expr.(*ast.CallExpr); ok {
			for _, arg := range call.Args {
				if text, ok := LiteralText(arg); ok {
					args = append(args, text)
				}
			}
		}
		out[RootName(a.Expr)] = args
	}
	return out
}

// RootName returns the identifier at the root of an annotation expression,
// unwrapping calls, selectors, index expressions, parentheses and stars:
//
//	Column("id")        -> Column
//	validate.Min(3)     -> validate
//	Tag[string]("x")    -> Tag
//
// It returns "undefined" when there is no identifier.
func RootName(e ast.Expr) string {
	for {
		switch x := e.(type) {
		case *ast.Ident:
			return x.Name
		case *ast.CallExpr:
			e = x.Fun
		case *ast.SelectorExpr:
			e = x.X
		case *ast.IndexExpr:
			e = x.X
		case *ast.IndexListExpr:
			e = x.X
		case *ast.ParenExpr:
			e = x.X
		case *ast.StarExpr:
			e = x.X
		default:
			return undefinedName
		}
	}
}

// LiteralText returns the textual value of a simple literal argument.
// Strings are unquoted; numbers, including negated numbers, keep their
// source text; true, false and nil are kept by name. Any other expression
// is not a simple literal.
func LiteralText(e ast.Expr) (string, bool) {
	switch x := e.(type) {
	case *ast.BasicLit:
		switch x.Kind {
		case token.STRING, token.CHAR:
			s, err := strconv.Unquote(x.Value)
			if err != nil {
				return "", false
			}
			return s, true
		default:
			return x.Value, true
		}
	case *ast.UnaryExpr:
		lit, ok := x.X.(*ast.BasicLit)
		if !ok || (x.Op != token.SUB && x.Op != token.ADD) {
			return "", false
		}
		switch lit.Kind {
		case token.INT, token.FLOAT, token.IMAG:
			return x.Op.String() + lit.Value, true
		}
	case *ast.Ident:
		switch x.Name {
		case "true", "false", "nil":
			return x.Name, true
		}
	case *ast.ParenExpr:
		return LiteralText(x.X)
	}
	return "", false
}
