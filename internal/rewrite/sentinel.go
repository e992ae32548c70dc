// Package rewrite replaces typeof.Of calls with descriptor literals.
//
// Rewriting runs in two phases over a type-checked file. Plan classifies
// the sentinel imports and calls of the file into edits without touching
// the tree; Apply splices the literals into the source text, re-parses it,
// fixes the imports and formats the result.
package rewrite

import (
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/broady/typeof"
)

// Sentinel names the function whose calls are rewritten.
type Sentinel struct {
	// PkgPath is the import path of the declaring package.
	PkgPath string

	// Func is the function name.
	Func string

	// File is the base name of the declaring file.
	File string

	// Dir is the directory of the declaring package, used to match
	// relative imports. It may be empty.
	Dir string
}

// DefaultSentinel returns the Sentinel for typeof.Of, declared in dir.
func DefaultSentinel(dir string) Sentinel {
	return Sentinel{
		PkgPath: typeof.PackagePath,
		Func:    typeof.FuncName,
		File:    typeof.SentinelFile,
		Dir:     dir,
	}
}

// Matcher identifies sentinel imports and calls in one file. Every failure
// to resolve a path or declaration is a non-match.
type Matcher struct {
	Sentinel Sentinel
	Info     *types.Info
	Fset     *token.FileSet

	// Filename is the path of the file being matched.
	Filename string
}

// IsSentinelImport reports whether spec imports the sentinel package.
// Relative import paths are resolved against the directory of the file.
func (m *Matcher) IsSentinelImport(spec *ast.ImportSpec) bool {
	if spec == nil || spec.Path == nil {
		return false
	}
	path, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		return false
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		if m.Sentinel.Dir == "" || m.Filename == "" {
			return false
		}
		abs := filepath.Join(filepath.Dir(m.Filename), path)
		return filepath.Clean(abs) == filepath.Clean(m.Sentinel.Dir)
	}
	if m.Info == nil {
		return false
	}
	pkgName := m.Info.PkgNameOf(spec)
	if pkgName == nil || pkgName.Imported() == nil {
		return false
	}
	return pkgName.Imported().Path() == m.Sentinel.PkgPath
}

// SentinelCall reports whether call invokes the sentinel function. typeArg
// is the explicit type argument, or nil when there is none.
func (m *Matcher) SentinelCall(call *ast.CallExpr) (typeArg ast.Expr, ok bool) {
	if call == nil || m.Info == nil {
		return nil, false
	}
	fun := ast.Unparen(call.Fun)
	switch f := fun.(type) {
	case *ast.IndexExpr:
		typeArg, fun = f.Index, ast.Unparen(f.X)
	case *ast.IndexListExpr:
		typeArg, fun = f.Indices[0], ast.Unparen(f.X)
	}

	var id *ast.Ident
	switch f := fun.(type) {
	case *ast.Ident:
		id = f
	case *ast.SelectorExpr:
		id = f.Sel
	default:
		return nil, false
	}

	fn, isFunc := m.Info.Uses[id].(*types.Func)
	if !isFunc || !m.isSentinelFunc(fn) {
		return nil, false
	}
	return typeArg, true
}

func (m *Matcher) isSentinelFunc(fn *types.Func) bool {
	if !fn.Pos().IsValid() || fn.Name() != m.Sentinel.Func {
		return false
	}
	if sig, ok := fn.Type().(*types.Signature); !ok || sig.Recv() != nil {
		return false
	}
	if fn.Pkg() == nil || fn.Pkg().Path() != m.Sentinel.PkgPath {
		return false
	}
	if m.Fset == nil {
		return false
	}
	pos := m.Fset.Position(fn.Pos())
	return pos.Filename != "" && filepath.Base(pos.Filename) == m.Sentinel.File
}

// TypeOf returns the type denoted by a call's type argument, or nil.
func (m *Matcher) TypeOf(typeArg ast.Expr) types.Type {
	if typeArg == nil || m.Info == nil {
		return nil
	}
	if tv, ok := m.Info.Types[typeArg]; ok && tv.IsType() {
		return tv.Type
	}
	return nil
}

// references reports the identifiers in f that refer to the sentinel
// package: qualified identifiers through the import, and names imported
// with a dot import.
func (m *Matcher) references(f *ast.File) []*ast.Ident {
	if m.Info == nil {
		return nil
	}
	var refs []*ast.Ident
	ast.Inspect(f, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.ImportSpec:
			return false
		case *ast.Ident:
			switch obj := m.Info.Uses[n].(type) {
			case nil:
			case *types.PkgName:
				if obj.Imported().Path() == m.Sentinel.PkgPath {
					refs = append(refs, n)
				}
			default:
				if pkg := obj.Pkg(); pkg != nil && pkg.Path() == m.Sentinel.PkgPath && obj.Parent() == pkg.Scope() {
					refs = append(refs, n)
				}
			}
		}
		return true
	})
	return refs
}
