// Package literal encodes descriptors as one-line Go composite literals
// with sorted keys.
package literal

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"sort"
	"strconv"

	"github.com/broady/typeof/typeinfo"
)

var basicIdent = map[typeinfo.Basic]string{
	typeinfo.String:   "String",
	typeinfo.Array:    "Array",
	typeinfo.Number:   "Number",
	typeinfo.Boolean:  "Boolean",
	typeinfo.BigInt:   "BigInt",
	typeinfo.Null:     "Null",
	typeinfo.Function: "Function",
	typeinfo.Object:   "Object",
}

// Source returns the composite literal for t. Identifiers from the typeinfo
// package are qualified with qualifier, or left bare when it is empty.
//
//	typeinfo.Type{Name: "Foo", Annotations: typeinfo.Annotations{}, Properties: typeinfo.Properties{...}}
//
// Map keys are written in sorted order. The zero Type is written as
// typeinfo.Type{}; otherwise empty maps are written as empty literals.
func Source(t typeinfo.Type, qualifier string) []byte {
	e := encoder{q: qualifier}
	if qualifier != "" {
		e.q += "."
	}
	if t.IsZero() {
		e.buf.WriteString(e.q + "Type{}")
		return e.buf.Bytes()
	}
	e.typ(t)
	return e.buf.Bytes()
}

// Expr parses the literal Source returns.
func Expr(t typeinfo.Type, qualifier string) (ast.Expr, error) {
	src := Source(t, qualifier)
	x, err := parser.ParseExpr(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse descriptor literal: %w", err)
	}
	return x, nil
}

type encoder struct {
	buf bytes.Buffer
	q   string
}

func (e *encoder) typ(t typeinfo.Type) {
	fmt.Fprintf(&e.buf, "%sType{Name: %s, Annotations: ", e.q, strconv.Quote(t.Name))
	e.annotations(t.Annotations)
	e.buf.WriteString(", Properties: ")
	e.properties(t.Properties)
	e.buf.WriteByte('}')
}

func (e *encoder) annotations(a typeinfo.Annotations) {
	e.buf.WriteString(e.q + "Annotations{")
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			e.buf.WriteString(", ")
		}
		e.buf.WriteString(strconv.Quote(name))
		e.buf.WriteString(": {")
		for j, arg := range a[name] {
			if j > 0 {
				e.buf.WriteString(", ")
			}
			e.buf.WriteString(strconv.Quote(arg))
		}
		e.buf.WriteByte('}')
	}
	e.buf.WriteByte('}')
}

func (e *encoder) properties(p typeinfo.Properties) {
	e.buf.WriteString(e.q + "Properties{")
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			e.buf.WriteString(", ")
		}
		prop := p[name]
		e.buf.WriteString(strconv.Quote(name))
		e.buf.WriteString(": {Type: ")
		e.elem(prop.Type)
		e.buf.WriteString(", Annotations: ")
		e.annotations(prop.Annotations)
		e.buf.WriteString(", Modifiers: ")
		e.modifiers(prop.Modifiers)
		e.buf.WriteByte('}')
	}
	e.buf.WriteByte('}')
}

func (e *encoder) elem(el typeinfo.Elem) {
	if el.Desc != nil {
		e.buf.WriteString(e.q + "Elem{Desc: &")
		e.typ(*el.Desc)
		e.buf.WriteByte('}')
		return
	}
	ident, ok := basicIdent[el.Basic]
	if !ok {
		ident = basicIdent[typeinfo.Null]
	}
	e.buf.WriteString(e.q + "Elem{Basic: " + e.q + ident + "}")
}

func (e *encoder) modifiers(m typeinfo.Modifiers) {
	e.buf.WriteString(e.q + "Modifiers{")
	switch {
	case m.Readonly && m.Optional:
		e.buf.WriteString("Readonly: true, Optional: true")
	case m.Readonly:
		e.buf.WriteString("Readonly: true")
	case m.Optional:
		e.buf.WriteString("Optional: true")
	}
	e.buf.WriteByte('}')
}
