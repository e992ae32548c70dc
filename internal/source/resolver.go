package source

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"golang.org/x/tools/go/packages"

	"github.com/broady/typeof/internal/typegraph"
)

// Options configures a Resolver.
type Options struct {
	// ExportedOnly limits members to exported fields and methods.
	ExportedOnly bool

	// NameTag is a struct tag key whose first option renames a member.
	// A value of "-" drops the member.
	NameTag string

	// TagAnnotations are struct tag keys turned into annotations.
	TagAnnotations []string

	// DirectivePrefix introduces annotation comments. Empty means
	// DefaultDirectivePrefix.
	DirectivePrefix string

	// SentinelPath is the import path of the package declaring the And and
	// Or markers.
	SentinelPath string

	Logger *slog.Logger
}

// Ref is a typegraph.Ref for a go/types type.
type Ref struct {
	T types.Type
}

// NewRef returns the reference describing t. Pointers describe as their
// element, so they are stripped and *T and T refer to the same type.
func NewRef(t types.Type) Ref {
	for {
		p, ok := t.(*types.Pointer)
		if !ok {
			return Ref{T: t}
		}
		t = p.Elem()
	}
}

func (r Ref) String() string {
	if r.T == nil {
		return "<nil>"
	}
	return types.TypeString(r.T, nil)
}

// Resolver implements typegraph.Resolver over a loaded Program. It is safe
// for concurrent use.
type Resolver struct {
	typegraph.Standard

	prog   *Program
	opts   Options
	logger *slog.Logger

	indexOnce sync.Once
	index     map[token.Pos]syntaxNode

	mu        sync.Mutex
	types     map[types.Type]*typegraph.Type
	fields    map[*types.Var]*typegraph.Declaration
	methods   map[*types.Func]*typegraph.Declaration
	typeDecls map[*types.TypeName]*typegraph.Declaration

	wmu      sync.Mutex
	warnings []Warning
}

// syntaxNode is the declaring syntax of a field, method or type.
type syntaxNode struct {
	field *ast.Field
	spec  *ast.TypeSpec
	gen   *ast.GenDecl
}

// NewResolver returns a Resolver over prog.
func NewResolver(prog *Program, opts Options) *Resolver {
	if opts.DirectivePrefix == "" {
		opts.DirectivePrefix = DefaultDirectivePrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		prog:      prog,
		opts:      opts,
		logger:    logger,
		types:     make(map[types.Type]*typegraph.Type),
		fields:    make(map[*types.Var]*typegraph.Declaration),
		methods:   make(map[*types.Func]*typegraph.Declaration),
		typeDecls: make(map[*types.TypeName]*typegraph.Declaration),
	}
}

// Lookup returns a reference to the package-level type name in the package
// with import path pkgPath.
func (r *Resolver) Lookup(pkgPath, name string) (typegraph.Ref, error) {
	pkg := r.prog.Package(pkgPath)
	if pkg == nil || pkg.Types == nil {
		return nil, fmt.Errorf("package %s not loaded", pkgPath)
	}
	obj := pkg.Types.Scope().Lookup(name)
	if obj == nil {
		return nil, fmt.Errorf("%s.%s not found", pkgPath, name)
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%s.%s is not a type", pkgPath, name)
	}
	return Ref{T: tn.Type()}, nil
}

// Warnings returns the warnings reported so far.
func (r *Resolver) Warnings() []Warning {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	return slices.Clone(r.warnings)
}

func (r *Resolver) warn(w Warning) {
	r.logger.Warn("typeof: "+w.Message, "pos", w.Pos.String())
	r.wmu.Lock()
	r.warnings = append(r.warnings, w)
	r.wmu.Unlock()
}

// ResolveType resolves a Ref.
func (r *Resolver) ResolveType(ref typegraph.Ref) (*typegraph.Type, bool) {
	sr, ok := ref.(Ref)
	if !ok || sr.T == nil {
		return nil, false
	}
	if b, ok := sr.T.(*types.Basic); ok && b.Kind() == types.Invalid {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(sr.T), true
}

// resolve must be called with r.mu held.
func (r *Resolver) resolve(t types.Type) *typegraph.Type {
	if rt, ok := r.types[t]; ok {
		return rt
	}
	rt := &typegraph.Type{}
	r.types[t] = rt
	r.fill(rt, t)
	return rt
}

func (r *Resolver) fill(rt *typegraph.Type, t types.Type) {
	switch tt := t.(type) {
	case *types.Alias:
		base := r.resolve(types.Unalias(tt))
		*rt = *base
		if base.Kind != typegraph.Opaque {
			rt.Alias = tt.Obj().Name()
		}
	case *types.Pointer:
		*rt = *r.resolve(tt.Elem())
	case *types.Named:
		if kind, ok := r.combination(tt); ok {
			rt.Kind = kind
			args := tt.TypeArgs()
			for i := range args.Len() {
				rt.Parts = append(rt.Parts, r.resolve(args.At(i)))
			}
			return
		}
		if iface, ok := tt.Underlying().(*types.Interface); ok && iface.Empty() {
			rt.Kind = typegraph.Opaque
			return
		}
		rt.Symbol = tt.Obj().Name()
		owner := r.typeDecl(tt.Obj())
		switch u := tt.Underlying().(type) {
		case *types.Struct:
			rt.Members = r.structMembers(u, owner)
		case *types.Interface:
			rt.Members = r.methodMembers(u, owner)
		}
	case *types.TypeParam:
		rt.Kind = typegraph.Opaque
	case *types.Interface:
		if tt.Empty() {
			rt.Kind = typegraph.Opaque
			return
		}
		rt.Members = r.methodMembers(tt, nil)
	case *types.Struct:
		rt.Members = r.structMembers(tt, nil)
	case *types.Basic:
		rt.Symbol = tt.Name()
	default:
		r.logger.Debug("typeof: type without members", "type", t.String())
	}
}

// combination reports whether named instantiates the And or Or marker.
func (r *Resolver) combination(named *types.Named) (typegraph.Kind, bool) {
	obj := named.Origin().Obj()
	if obj.Pkg() == nil || obj.Pkg().Path() != r.opts.SentinelPath || named.TypeArgs().Len() != 2 {
		return 0, false
	}
	switch obj.Name() {
	case "And":
		return typegraph.Intersection, true
	case "Or":
		return typegraph.Union, true
	}
	return 0, false
}

type fieldCandidate struct {
	name  string
	index []int
	v     *types.Var
	tag   string
	owner *typegraph.Declaration
}

// structMembers returns the fields of st with Go promotion rules: fields of
// embedded structs are promoted, a shallower name hides deeper ones, and
// names ambiguous at one depth are dropped. Members are in declaration
// order, with promoted fields at the position of their embedding field.
func (r *Resolver) structMembers(root *types.Struct, rootOwner *typegraph.Declaration) []*typegraph.Member {
	type level struct {
		st    *types.Struct
		index []int
		owner *typegraph.Declaration
	}

	var out []fieldCandidate
	hidden := make(map[string]bool)
	visited := make(map[*types.Struct]bool)
	current := []level{{st: root, owner: rootOwner}}

	for len(current) > 0 {
		var next []level
		var found []fieldCandidate
		count := make(map[string]int)

		for _, lv := range current {
			if visited[lv.st] {
				continue
			}
			visited[lv.st] = true
			for i := range lv.st.NumFields() {
				f := lv.st.Field(i)
				tag := lv.st.Tag(i)
				index := append(slices.Clone(lv.index), i)

				name, skip := tagName(tag, r.opts.NameTag)
				if skip {
					continue
				}
				if f.Embedded() && name == "" {
					if est, owner, ok := r.embeddedStruct(f.Type()); ok {
						next = append(next, level{st: est, index: index, owner: owner})
						continue
					}
				}
				if r.opts.ExportedOnly && !f.Exported() {
					continue
				}
				if name == "" {
					name = f.Name()
				}
				found = append(found, fieldCandidate{name: name, index: index, v: f, tag: tag, owner: lv.owner})
				count[name]++
			}
		}

		for _, c := range found {
			if hidden[c.name] || count[c.name] > 1 {
				continue
			}
			out = append(out, c)
		}
		for name := range count {
			hidden[name] = true
		}
		current = next
	}

	sort.Slice(out, func(i, j int) bool {
		return slices.Compare(out[i].index, out[j].index) < 0
	})

	members := make([]*typegraph.Member, 0, len(out))
	for _, c := range out {
		members = append(members, &typegraph.Member{Name: c.name, Decl: r.fieldDecl(c)})
	}
	return members
}

// embeddedStruct returns the struct promoted through an embedded field of
// type t.
func (r *Resolver) embeddedStruct(t types.Type) (*types.Struct, *typegraph.Declaration, bool) {
	if p, ok := types.Unalias(t).(*types.Pointer); ok {
		t = p.Elem()
	}
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return nil, nil, false
	}
	if _, ok := r.combination(named); ok {
		return nil, nil, false
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil, nil, false
	}
	return st, r.typeDecl(named.Obj()), true
}

func (r *Resolver) methodMembers(iface *types.Interface, owner *typegraph.Declaration) []*typegraph.Member {
	var members []*typegraph.Member
	for i := range iface.NumMethods() {
		m := iface.Method(i)
		if r.opts.ExportedOnly && !m.Exported() {
			continue
		}
		members = append(members, &typegraph.Member{Name: m.Name(), Decl: r.methodDecl(m, owner)})
	}
	return members
}

func (r *Resolver) fieldDecl(c fieldCandidate) *typegraph.Declaration {
	if d, ok := r.fields[c.v]; ok {
		return d
	}
	d := &typegraph.Declaration{
		Owner: c.owner,
		Name:  c.name,
		Type:  r.typeNode(c.v.Type()),
		Pos:   r.prog.Fset.Position(c.v.Pos()),
	}
	readonly, optional := tagOptions(c.tag)
	if readonly {
		d.Modifiers = append(d.Modifiers, typegraph.ReadonlyKeyword)
	}
	d.Question = optional
	if n := r.lookup(c.v.Pos()); n.field != nil {
		d.Annotations = directives(r.prog.Fset, r.opts.DirectivePrefix, r.warn, n.field.Doc, n.field.Comment)
	}
	d.Annotations = append(d.Annotations, tagAnnotations(c.tag, r.opts.TagAnnotations)...)
	r.fields[c.v] = d
	return d
}

func (r *Resolver) methodDecl(m *types.Func, owner *typegraph.Declaration) *typegraph.Declaration {
	if d, ok := r.methods[m]; ok {
		return d
	}
	d := &typegraph.Declaration{
		Owner: owner,
		Name:  m.Name(),
		Type:  &typegraph.TypeNode{Syntax: typegraph.FunctionDecl},
		Pos:   r.prog.Fset.Position(m.Pos()),
	}
	if n := r.lookup(m.Pos()); n.field != nil {
		d.Annotations = directives(r.prog.Fset, r.opts.DirectivePrefix, r.warn, n.field.Doc, n.field.Comment)
	}
	r.methods[m] = d
	return d
}

func (r *Resolver) typeDecl(obj *types.TypeName) *typegraph.Declaration {
	if d, ok := r.typeDecls[obj]; ok {
		return d
	}
	d := &typegraph.Declaration{
		Name: obj.Name(),
		Pos:  r.prog.Fset.Position(obj.Pos()),
	}
	if n := r.lookup(obj.Pos()); n.spec != nil {
		groups := []*ast.CommentGroup{n.spec.Doc, n.spec.Comment}
		if n.gen != nil && !n.gen.Lparen.IsValid() {
			groups = append([]*ast.CommentGroup{n.gen.Doc}, groups...)
		}
		d.Annotations = directives(r.prog.Fset, r.opts.DirectivePrefix, r.warn, groups...)
	}
	r.typeDecls[obj] = d
	return d
}

// typeNode classifies a member's declared type. Pointers classify as their
// element.
func (r *Resolver) typeNode(t types.Type) *typegraph.TypeNode {
	t = NewRef(t).T
	syntax := func(s typegraph.Syntax) *typegraph.TypeNode {
		return &typegraph.TypeNode{Syntax: s}
	}
	switch tt := t.(type) {
	case *types.Alias:
		if tt.Obj().Pkg() == nil {
			return r.typeNode(types.Unalias(tt))
		}
		if isBigInt(types.Unalias(tt)) {
			return syntax(typegraph.BigIntKeyword)
		}
		return &typegraph.TypeNode{Syntax: typegraph.TypeReference, Ref: Ref{T: t}}
	case *types.Named:
		if isBigInt(tt) {
			return syntax(typegraph.BigIntKeyword)
		}
		return &typegraph.TypeNode{Syntax: typegraph.TypeReference, Ref: Ref{T: t}}
	case *types.TypeParam:
		return &typegraph.TypeNode{Syntax: typegraph.TypeReference, Ref: Ref{T: t}}
	case *types.Basic:
		info := tt.Info()
		switch {
		case tt.Kind() == types.Invalid:
			return nil
		case tt.Kind() == types.UntypedNil:
			return syntax(typegraph.NullKeyword)
		case info&types.IsBoolean != 0:
			return syntax(typegraph.BooleanKeyword)
		case info&types.IsString != 0:
			return syntax(typegraph.StringKeyword)
		case info&types.IsNumeric != 0:
			return syntax(typegraph.NumberKeyword)
		}
	case *types.Slice, *types.Array:
		return syntax(typegraph.ArrayType)
	case *types.Map:
		return syntax(typegraph.ObjectKeyword)
	case *types.Signature:
		return syntax(typegraph.FunctionKeyword)
	case *types.Interface:
		if tt.Empty() {
			return syntax(typegraph.ObjectKeyword)
		}
		return &typegraph.TypeNode{Syntax: typegraph.TypeLiteral, Ref: Ref{T: t}}
	case *types.Struct:
		return &typegraph.TypeNode{Syntax: typegraph.TypeLiteral, Ref: Ref{T: t}}
	}
	return syntax(typegraph.Other)
}

func isBigInt(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "math/big" && obj.Name() == "Int"
}

func (r *Resolver) lookup(pos token.Pos) syntaxNode {
	r.indexOnce.Do(r.buildIndex)
	return r.index[pos]
}

// buildIndex maps the positions of declared names to their syntax, for
// every file of every loaded package.
func (r *Resolver) buildIndex() {
	r.index = make(map[token.Pos]syntaxNode)
	packages.Visit(r.prog.Roots, nil, func(pkg *packages.Package) {
		for _, f := range pkg.Syntax {
			r.indexFile(f)
		}
	})
}

func (r *Resolver) indexFile(f *ast.File) {
	var gen *ast.GenDecl
	ast.Inspect(f, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.GenDecl:
			gen = n
		case *ast.TypeSpec:
			r.index[n.Name.Pos()] = syntaxNode{spec: n, gen: gen}
		case *ast.Field:
			if len(n.Names) == 0 {
				if id := embeddedIdent(n.Type); id != nil {
					r.index[id.Pos()] = syntaxNode{field: n}
				}
			}
			for _, name := range n.Names {
				r.index[name.Pos()] = syntaxNode{field: n}
			}
		}
		return true
	})
}

// embeddedIdent returns the type name identifier of an embedded field,
// which carries the field's position.
func embeddedIdent(e ast.Expr) *ast.Ident {
	for {
		switch x := e.(type) {
		case *ast.Ident:
			return x
		case *ast.StarExpr:
			e = x.X
		case *ast.SelectorExpr:
			return x.Sel
		case *ast.IndexExpr:
			e = x.X
		case *ast.IndexListExpr:
			e = x.X
		case *ast.ParenExpr:
			e = x.X
		default:
			return nil
		}
	}
}
