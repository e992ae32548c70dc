// Package describe builds type descriptors from a typegraph.Resolver.
package describe

import (
	"github.com/broady/typeof/internal/typegraph"
	"github.com/broady/typeof/typeinfo"
)

var basicBySyntax = map[typegraph.Syntax]typeinfo.Basic{
	typegraph.FunctionDecl:    typeinfo.Function,
	typegraph.FunctionKeyword: typeinfo.Function,
	typegraph.NullKeyword:     typeinfo.Null,
	typegraph.BooleanKeyword:  typeinfo.Boolean,
	typegraph.StringKeyword:   typeinfo.String,
	typegraph.NumberKeyword:   typeinfo.Number,
	typegraph.ObjectKeyword:   typeinfo.Object,
	typegraph.ArrayType:       typeinfo.Array,
	typegraph.BigIntKeyword:   typeinfo.BigInt,
}

// Classify maps a declared type category to its basic tag. None maps to
// Null and any category outside the table maps to Object.
func Classify(s typegraph.Syntax) typeinfo.Basic {
	if s == typegraph.None {
		return typeinfo.Null
	}
	if b, ok := basicBySyntax[s]; ok {
		return b
	}
	return typeinfo.Object
}
