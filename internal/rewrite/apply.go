package rewrite

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/broady/typeof"
)

// TypeinfoPath is the import path of the descriptor package.
const TypeinfoPath = typeof.PackagePath + "/typeinfo"

// Apply returns src with plan applied. fset must hold the file src was
// parsed from. A plan without changes returns src itself.
func Apply(fset *token.FileSet, filename string, src []byte, plan []Edit, qualifier string) ([]byte, error) {
	if !Changes(plan) {
		return src, nil
	}

	var replaces []Edit
	var erases []*ast.ImportSpec
	for _, e := range plan {
		switch e.Action {
		case Replace:
			replaces = append(replaces, e)
		case Erase:
			if spec, ok := e.Node.(*ast.ImportSpec); ok {
				erases = append(erases, spec)
			}
		}
	}
	sort.Slice(replaces, func(i, j int) bool { return replaces[i].Node.Pos() < replaces[j].Node.Pos() })

	spliced, err := splice(fset, src, replaces)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	nfset := token.NewFileSet()
	f, err := parser.ParseFile(nfset, filename, spliced, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse rewritten %s: %w", filename, err)
	}

	for _, spec := range erases {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		}
		astutil.DeleteNamedImport(nfset, f, name, path)
	}

	if len(replaces) > 0 && qualifier != "" && !hasImport(f, qualifier) {
		if qualifier == "typeinfo" {
			astutil.AddImport(nfset, f, TypeinfoPath)
		} else {
			astutil.AddNamedImport(nfset, f, qualifier, TypeinfoPath)
		}
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, nfset, f); err != nil {
		return nil, fmt.Errorf("format %s: %w", filename, err)
	}
	return buf.Bytes(), nil
}

// splice substitutes the literals of replaces, sorted by position, for the
// text of their nodes.
func splice(fset *token.FileSet, src []byte, replaces []Edit) ([]byte, error) {
	if len(replaces) == 0 {
		return src, nil
	}
	tf := fset.File(replaces[0].Node.Pos())
	if tf == nil {
		return nil, fmt.Errorf("edit position not in file set")
	}
	if tf.Size() != len(src) {
		return nil, fmt.Errorf("source changed since it was loaded (%d bytes, was %d)", len(src), tf.Size())
	}

	var out bytes.Buffer
	last := 0
	for _, e := range replaces {
		start, end := tf.Offset(e.Node.Pos()), tf.Offset(e.Node.End())
		if start < last {
			return nil, fmt.Errorf("overlapping edits at offset %d", start)
		}
		out.Write(src[last:start])
		out.Write(e.Literal)
		last = end
	}
	out.Write(src[last:])
	return out.Bytes(), nil
}

// hasImport reports whether f imports TypeinfoPath under qualifier.
func hasImport(f *ast.File, qualifier string) bool {
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil || path != TypeinfoPath {
			continue
		}
		if spec.Name == nil {
			if qualifier == "typeinfo" {
				return true
			}
			continue
		}
		if spec.Name.Name == qualifier {
			return true
		}
	}
	return false
}

// Qualifier returns the name under which rewritten literals refer to the
// typeinfo package in f: the name of an existing import, "" for a dot
// import, or a fresh name starting with "typeinfo" that collides with
// nothing in f or in scope.
func Qualifier(f *ast.File, scope *types.Scope) string {
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil || path != TypeinfoPath {
			continue
		}
		switch {
		case spec.Name == nil:
			return "typeinfo"
		case spec.Name.Name == ".":
			return ""
		case spec.Name.Name != "_":
			return spec.Name.Name
		}
	}

	taken := make(map[string]bool)
	ast.Inspect(f, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			taken[id.Name] = true
		}
		return true
	})
	for _, spec := range f.Imports {
		if spec.Name != nil {
			taken[spec.Name.Name] = true
		}
	}

	name := "typeinfo"
	for i := 2; taken[name] || (scope != nil && scope.Lookup(name) != nil); i++ {
		name = "typeinfo" + strconv.Itoa(i)
	}
	return name
}
