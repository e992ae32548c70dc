// Package source adapts type-checked Go packages to the typegraph
// abstraction.
//
// Load type-checks packages with golang.org/x/tools/go/packages, and
// Resolver answers typegraph queries over the result.
package source

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// LoadMode is the go/packages mode used by Load.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedModule

// LoadConfig configures Load.
type LoadConfig struct {
	// Dir is the working directory for pattern resolution. Empty means the
	// current directory.
	Dir string

	// Patterns follow go command semantics ("./...", import paths).
	Patterns []string

	// Tests includes test files and test packages.
	Tests bool

	// BuildFlags are passed to the build system, e.g. "-tags=integration".
	BuildFlags []string

	// Env is the environment of the build system. Nil means os.Environ().
	Env []string

	// Overlay maps absolute file paths to contents that replace them.
	Overlay map[string][]byte

	Logger *slog.Logger
}

// Program is a set of loaded packages.
type Program struct {
	Fset *token.FileSet

	// Roots are the packages matched by the patterns.
	Roots []*packages.Package

	// Errors are the non-fatal errors reported for root packages. Calls of
	// typeof.Of without a type argument do not type-check, so type errors
	// are expected and never stop a rewrite.
	Errors []packages.Error

	byPath  map[string]*packages.Package
	overlay map[string][]byte
}

// File is one Go source file of a root package.
type File struct {
	Pkg    *packages.Package
	Path   string
	Syntax *ast.File
}

// Load loads and type-checks the packages matching cfg.Patterns, with all
// their dependencies.
func Load(ctx context.Context, cfg LoadConfig) (*Program, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	fset := token.NewFileSet()
	pcfg := &packages.Config{
		Context:    ctx,
		Mode:       LoadMode,
		Dir:        cfg.Dir,
		Env:        cfg.Env,
		BuildFlags: cfg.BuildFlags,
		Tests:      cfg.Tests,
		Fset:       fset,
		Overlay:    cfg.Overlay,
	}

	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", strings.Join(patterns, " "))
	}

	prog := &Program{
		Fset:    fset,
		byPath:  make(map[string]*packages.Package),
		overlay: cfg.Overlay,
	}
	for _, pkg := range pkgs {
		for _, perr := range pkg.Errors {
			if perr.Kind == packages.ListError {
				return nil, fmt.Errorf("package %s: %v", pkg.ID, perr)
			}
		}
		if isTestMain(pkg) {
			continue
		}
		prog.Roots = append(prog.Roots, pkg)
		for _, perr := range pkg.Errors {
			logger.Warn("typeof: package error", "package", pkg.ID, "error", perr.Msg, "pos", perr.Pos)
			prog.Errors = append(prog.Errors, perr)
		}
	}

	// Plain packages sort ahead of their test variants so that Files
	// attributes shared files to the plain package.
	sort.SliceStable(prog.Roots, func(i, j int) bool {
		return !isTestVariant(prog.Roots[i]) && isTestVariant(prog.Roots[j])
	})

	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		if _, ok := prog.byPath[pkg.PkgPath]; !ok || !isTestVariant(pkg) {
			prog.byPath[pkg.PkgPath] = pkg
		}
	})

	logger.Debug("typeof: loaded packages", "roots", len(prog.Roots), "total", len(prog.byPath))
	return prog, nil
}

func isTestVariant(pkg *packages.Package) bool {
	return strings.Contains(pkg.ID, " [") || strings.HasSuffix(pkg.PkgPath, "_test")
}

func isTestMain(pkg *packages.Package) bool {
	return strings.HasSuffix(pkg.ID, ".test") && pkg.Name == "main"
}

// Files returns every Go source file of the root packages once. A file that
// belongs to several variants of a package is reported for the first.
// Generated cgo files are skipped.
func (p *Program) Files() []File {
	var files []File
	seen := make(map[string]bool)
	for _, pkg := range p.Roots {
		goFiles := make(map[string]bool, len(pkg.GoFiles))
		for _, f := range pkg.GoFiles {
			goFiles[f] = true
		}
		for i, syntax := range pkg.Syntax {
			if i >= len(pkg.CompiledGoFiles) {
				break
			}
			path := pkg.CompiledGoFiles[i]
			if !goFiles[path] || seen[path] {
				continue
			}
			seen[path] = true
			files = append(files, File{Pkg: pkg, Path: path, Syntax: syntax})
		}
	}
	return files
}

// Package returns the loaded package with the given import path, searching
// roots and dependencies.
func (p *Program) Package(path string) *packages.Package {
	return p.byPath[path]
}

// Packages calls fn for every loaded package.
func (p *Program) Packages(fn func(*packages.Package)) {
	paths := make([]string, 0, len(p.byPath))
	for path := range p.byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fn(p.byPath[path])
	}
}

// Sentinel returns the directory of the package with import path pkgPath
// when it is part of the program.
func (p *Program) Sentinel(pkgPath string) (dir string, ok bool) {
	pkg := p.byPath[pkgPath]
	if pkg == nil || len(pkg.GoFiles) == 0 {
		return "", false
	}
	return filepath.Dir(pkg.GoFiles[0]), true
}

// Source returns the text of the file at path as it was loaded.
func (p *Program) Source(path string) ([]byte, error) {
	if src, ok := p.overlay[path]; ok {
		return src, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return src, nil
}
