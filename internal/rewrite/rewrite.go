package rewrite

import (
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
)

// Input is one type-checked file.
type Input struct {
	Fset *token.FileSet
	Info *types.Info

	// Pkg is the package of the file. It may be nil.
	Pkg *types.Package

	Path   string
	Syntax *ast.File

	// Src is the text Syntax was parsed from.
	Src []byte
}

// FileResult is the outcome of rewriting one file.
type FileResult struct {
	Path    string
	Content []byte

	// Changed is false when Content is the input source unchanged.
	Changed bool

	// Calls is the number of replaced calls.
	Calls int

	// Erased is the number of removed imports.
	Erased int
}

// Rewriter rewrites the sentinel calls of files. A Rewriter may be used
// from several goroutines as long as its Describer can; each file is
// rewritten by a single goroutine.
type Rewriter struct {
	Sentinel  Sentinel
	Describer Describer
	Logger    *slog.Logger
}

func (rw *Rewriter) logger() *slog.Logger {
	if rw.Logger == nil {
		return slog.Default()
	}
	return rw.Logger
}

// File rewrites in. A file without sentinel sites is returned unchanged,
// byte for byte.
func (rw *Rewriter) File(in Input) (FileResult, error) {
	res := FileResult{Path: in.Path, Content: in.Src}

	m := &Matcher{
		Sentinel: rw.Sentinel,
		Info:     in.Info,
		Fset:     in.Fset,
		Filename: in.Path,
	}
	var scope *types.Scope
	if in.Pkg != nil {
		scope = in.Pkg.Scope()
	}
	qualifier := Qualifier(in.Syntax, scope)

	plan := Plan(m, in.Syntax, rw.Describer, qualifier)
	if !Changes(plan) {
		return res, nil
	}
	for _, e := range plan {
		switch e.Action {
		case Replace:
			res.Calls++
		case Erase:
			res.Erased++
		}
	}

	out, err := Apply(in.Fset, in.Path, in.Src, plan, qualifier)
	if err != nil {
		return res, err
	}
	rw.logger().Debug("typeof: rewrote file", "path", in.Path, "calls", res.Calls, "erased_imports", res.Erased)

	res.Content = out
	res.Changed = true
	return res, nil
}
