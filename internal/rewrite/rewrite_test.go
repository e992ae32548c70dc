package rewrite

import (
	"bytes"
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/broady/typeof"
	"github.com/broady/typeof/internal/describe"
	"github.com/broady/typeof/internal/literal"
	"github.com/broady/typeof/internal/source"
	"github.com/broady/typeof/typeinfo"
)

const (
	appPkg   = "github.com/broady/typeof/internal/rewrite/testdata/app"
	clashPkg = "github.com/broady/typeof/internal/rewrite/testdata/clash"
)

func load(t *testing.T, pkg string, overlay map[string][]byte) *source.Program {
	t.Helper()
	t.Setenv("GOWORK", "off")
	prog, err := source.Load(context.Background(), source.LoadConfig{
		Patterns: []string{pkg},
		Overlay:  overlay,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return prog
}

func newRewriter(t *testing.T, prog *source.Program) *Rewriter {
	t.Helper()
	dir, ok := prog.Sentinel(typeof.PackagePath)
	if !ok {
		t.Fatal("sentinel package not loaded")
	}
	r := source.NewResolver(prog, source.Options{ExportedOnly: true, SentinelPath: typeof.PackagePath})
	b := &describe.Builder{Resolver: r}
	return &Rewriter{
		Sentinel: DefaultSentinel(dir),
		Describer: DescriberFunc(func(t types.Type) typeinfo.Type {
			if t == nil {
				return describe.Empty()
			}
			return b.Build(source.NewRef(t))
		}),
	}
}

func rewriteAll(t *testing.T, prog *source.Program) map[string]FileResult {
	t.Helper()
	rw := newRewriter(t, prog)
	results := make(map[string]FileResult)
	for _, f := range prog.Files() {
		src, err := prog.Source(f.Path)
		if err != nil {
			t.Fatal(err)
		}
		res, err := rw.File(Input{
			Fset:   prog.Fset,
			Info:   f.Pkg.TypesInfo,
			Pkg:    f.Pkg.Types,
			Path:   f.Path,
			Syntax: f.Syntax,
			Src:    src,
		})
		if err != nil {
			t.Fatalf("File(%s): %v", f.Path, err)
		}
		results[filepath.Base(f.Path)] = res
	}
	return results
}

func imports(t *testing.T, src []byte) map[string]string {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.ImportsOnly)
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, src)
	}
	m := make(map[string]string)
	for _, spec := range f.Imports {
		path, _ := strconv.Unquote(spec.Path.Value)
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		}
		m[path] = name
	}
	return m
}

func fooDesc() typeinfo.Type {
	return typeinfo.Type{
		Name:        "Foo",
		Annotations: typeinfo.Annotations{},
		Properties: typeinfo.Properties{
			"Foo": {Type: typeinfo.Elem{Basic: typeinfo.String}, Annotations: typeinfo.Annotations{}, Modifiers: typeinfo.Modifiers{}},
		},
	}
}

func TestRewriteFiles(t *testing.T) {
	prog := load(t, appPkg, nil)
	results := rewriteAll(t, prog)

	tests := []struct {
		file       string
		changed    bool
		calls      int
		erased     int
		contains   []string
		absent     []string
		wantImport map[string]string
		noImport   []string
	}{
		{
			file:    "calls.go",
			changed: true,
			calls:   2,
			erased:  1,
			contains: []string{
				"var FooInfo = " + string(literal.Source(fooDesc(), "typeinfo")),
				`fmt.Sprint(typeinfo.Type{Name: "", `,
				`"Baz": {Type: typeinfo.Elem{Basic: typeinfo.Number}`,
			},
			absent:     []string{"typeof."},
			wantImport: map[string]string{TypeinfoPath: "", "fmt": ""},
			noImport:   []string{typeof.PackagePath},
		},
		{
			file:       "keep.go",
			changed:    true,
			calls:      1,
			contains:   []string{"type Either = typeof.Or[Foo, BarBaz]", `var EitherInfo = typeinfo.Type{Name: "Either"`},
			wantImport: map[string]string{typeof.PackagePath: "", TypeinfoPath: ""},
		},
		{
			file:       "empty.go",
			changed:    true,
			calls:      1,
			erased:     1,
			contains:   []string{"var Untyped = typeinfo.Type{}"},
			wantImport: map[string]string{TypeinfoPath: ""},
			noImport:   []string{typeof.PackagePath},
		},
		{
			file:       "dot.go",
			changed:    true,
			calls:      1,
			erased:     1,
			contains:   []string{"var DotInfo = " + string(literal.Source(fooDesc(), "typeinfo"))},
			absent:     []string{"Of["},
			wantImport: map[string]string{TypeinfoPath: ""},
			noImport:   []string{typeof.PackagePath},
		},
		{
			file:       "named.go",
			changed:    true,
			calls:      1,
			erased:     1,
			contains:   []string{`var Named ti.Type = ti.Type{Name: "BarBaz"`, `"Bar": {Type: ti.Elem{Basic: ti.Function}`, `"Baz": {Type: ti.Elem{Basic: ti.Number}`},
			absent:     []string{"typeinfo.", "typeof."},
			wantImport: map[string]string{TypeinfoPath: "ti"},
			noImport:   []string{typeof.PackagePath},
		},
		{
			file:       "multiline.go",
			changed:    true,
			calls:      1,
			erased:     1,
			contains:   []string{`var Multi = typeinfo.Type{Name: "BarBaz"`, "func After() int { return len(Multi.Properties) }"},
			absent:     []string{"typeof.", "BarBaz,\n"},
			wantImport: map[string]string{TypeinfoPath: ""},
			noImport:   []string{typeof.PackagePath},
		},
		{
			file: "plain.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			res, ok := results[tt.file]
			if !ok {
				t.Fatalf("no result for %s", tt.file)
			}
			if res.Changed != tt.changed || res.Calls != tt.calls || res.Erased != tt.erased {
				t.Errorf("Changed, Calls, Erased = %v, %d, %d; want %v, %d, %d",
					res.Changed, res.Calls, res.Erased, tt.changed, tt.calls, tt.erased)
			}
			out := string(res.Content)
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(out, s) {
					t.Errorf("output contains %q:\n%s", s, out)
				}
			}
			got := imports(t, res.Content)
			for path, name := range tt.wantImport {
				if n, ok := got[path]; !ok || n != name {
					t.Errorf("import %q = %q, %v; want %q", path, n, ok, name)
				}
			}
			for _, path := range tt.noImport {
				if _, ok := got[path]; ok {
					t.Errorf("import %q not erased", path)
				}
			}
		})
	}
}

func TestRewriteUnchangedIsIdentical(t *testing.T) {
	prog := load(t, appPkg, nil)
	results := rewriteAll(t, prog)

	res := results["plain.go"]
	src, err := prog.Source(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(res.Content, src) {
		t.Errorf("plain.go changed:\n%s", res.Content)
	}
}

func TestRewriteOutputTypeChecksAndIsIdempotent(t *testing.T) {
	prog := load(t, appPkg, nil)
	overlay := make(map[string][]byte)
	for _, res := range rewriteAll(t, prog) {
		if res.Changed {
			overlay[res.Path] = res.Content
		}
	}

	again := load(t, appPkg, overlay)
	if len(again.Errors) != 0 {
		t.Fatalf("rewritten package has errors: %v", again.Errors)
	}
	for name, res := range rewriteAll(t, again) {
		if res.Changed {
			t.Errorf("%s changed on second rewrite:\n%s", name, res.Content)
		}
	}
}

func TestRewriteQualifierClash(t *testing.T) {
	prog := load(t, clashPkg, nil)
	res := rewriteAll(t, prog)["clash.go"]

	if !res.Changed || res.Calls != 1 {
		t.Fatalf("Changed, Calls = %v, %d", res.Changed, res.Calls)
	}
	out := string(res.Content)
	if want := "var Info = " + string(literal.Source(fooDesc(), "typeinfo2")); !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
	if got := imports(t, res.Content)[TypeinfoPath]; got != "typeinfo2" {
		t.Errorf("typeinfo import name = %q, want typeinfo2", got)
	}
	if !strings.Contains(out, `var typeinfo = "shadowed"`) {
		t.Errorf("local declaration lost:\n%s", out)
	}

	again := load(t, clashPkg, map[string][]byte{res.Path: res.Content})
	if len(again.Errors) != 0 {
		t.Fatalf("rewritten package has errors: %v", again.Errors)
	}
}

func TestQualifier(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		scope []string
		want  string
	}{
		{"plain", `package p`, nil, "typeinfo"},
		{"existing", `package p; import "github.com/broady/typeof/typeinfo"`, nil, "typeinfo"},
		{"renamed", `package p; import x "github.com/broady/typeof/typeinfo"`, nil, "x"},
		{"dot", `package p; import . "github.com/broady/typeof/typeinfo"`, nil, ""},
		{"blank", `package p; import _ "github.com/broady/typeof/typeinfo"`, nil, "typeinfo"},
		{"local", `package p; func f() { typeinfo := 1; _ = typeinfo }`, nil, "typeinfo2"},
		{"import name", `package p; import typeinfo "fmt"`, nil, "typeinfo2"},
		{"scope", `package p`, []string{"typeinfo", "typeinfo2"}, "typeinfo3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parser.ParseFile(token.NewFileSet(), "p.go", tt.src, 0)
			if err != nil {
				t.Fatal(err)
			}
			scope := types.NewScope(nil, token.NoPos, token.NoPos, "p")
			for _, name := range tt.scope {
				scope.Insert(types.NewVar(token.NoPos, nil, name, types.Typ[types.Int]))
			}
			if got := Qualifier(f, scope); got != tt.want {
				t.Errorf("Qualifier = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatcher(t *testing.T) {
	prog := load(t, appPkg, nil)
	dir, _ := prog.Sentinel(typeof.PackagePath)

	var calls, nonCalls int
	for _, f := range prog.Files() {
		m := &Matcher{Sentinel: DefaultSentinel(dir), Info: f.Pkg.TypesInfo, Fset: prog.Fset, Filename: f.Path}
		ast.Inspect(f.Syntax, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			if _, ok := m.SentinelCall(call); ok {
				calls++
			} else {
				nonCalls++
			}
			return true
		})
	}
	// calls.go has two sentinel calls and fmt.Sprint; the rest have one each.
	if calls != 7 {
		t.Errorf("sentinel calls = %d, want 7", calls)
	}
	if nonCalls != 1 {
		t.Errorf("other calls = %d, want 1", nonCalls)
	}

	wrongFile := DefaultSentinel(dir)
	wrongFile.File = "other.go"
	for _, f := range prog.Files() {
		m := &Matcher{Sentinel: wrongFile, Info: f.Pkg.TypesInfo, Fset: prog.Fset, Filename: f.Path}
		ast.Inspect(f.Syntax, func(n ast.Node) bool {
			if call, ok := n.(*ast.CallExpr); ok {
				if _, ok := m.SentinelCall(call); ok {
					t.Errorf("%s: matched call declared in another file", filepath.Base(f.Path))
				}
			}
			return true
		})
	}
}

func TestMatcherRelativeImport(t *testing.T) {
	dir := filepath.Join(string(filepath.Separator), "work", "typeof")
	m := &Matcher{
		Sentinel: DefaultSentinel(dir),
		Filename: filepath.Join(string(filepath.Separator), "work", "app", "main.go"),
	}
	f, err := parser.ParseFile(token.NewFileSet(), "main.go", `package main; import ("../typeof"; "./typeof")`, parser.ImportsOnly)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsSentinelImport(f.Imports[0]) {
		t.Error(`"../typeof" not matched`)
	}
	if m.IsSentinelImport(f.Imports[1]) {
		t.Error(`"./typeof" matched`)
	}
}

func TestApplyStaleSource(t *testing.T) {
	fset := token.NewFileSet()
	src := []byte("package p\n\nvar x = f()\n")
	f, err := parser.ParseFile(fset, "p.go", src, 0)
	if err != nil {
		t.Fatal(err)
	}
	call := f.Decls[0].(*ast.GenDecl).Specs[0].(*ast.ValueSpec).Values[0]
	plan := []Edit{{Action: Replace, Node: call, Literal: []byte("typeinfo.Type{}")}}

	if _, err := Apply(fset, "p.go", append(src, '\n'), plan, "typeinfo"); err == nil {
		t.Error("Apply with changed source succeeded")
	}
	out, err := Apply(fset, "p.go", src, plan, "typeinfo")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "var x = typeinfo.Type{}") {
		t.Errorf("output:\n%s", out)
	}
	if name, ok := imports(t, out)[TypeinfoPath]; !ok || name != "" {
		t.Errorf("typeinfo import missing:\n%s", out)
	}
}

func TestActionString(t *testing.T) {
	for a, want := range map[Action]string{Keep: "keep", Erase: "erase", Replace: "replace", Action(9): "unknown"} {
		if got := a.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", a, got, want)
		}
	}
}
