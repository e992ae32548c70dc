package describe

import (
	"fmt"
	"log/slog"

	"github.com/broady/typeof/internal/typegraph"
	"github.com/broady/typeof/typeinfo"
)

// DefaultMaxDepth bounds the nesting of descriptors when Builder.MaxDepth is zero.
const DefaultMaxDepth = 32

// Builder builds descriptors from a Resolver.
//
// Build never fails. Unresolvable references produce the empty descriptor,
// and a reference that is already being built, or that lies deeper than
// MaxDepth, produces a stub carrying only its name. Each fallback is logged
// at debug level.
type Builder struct {
	Resolver typegraph.Resolver
	Logger   *slog.Logger
	MaxDepth int
}

// Empty returns the descriptor of a type with no name, annotations or members.
func Empty() typeinfo.Type {
	return typeinfo.Type{Annotations: typeinfo.Annotations{}, Properties: typeinfo.Properties{}}
}

// Build returns a freshly constructed descriptor of the type ref refers to.
func (b *Builder) Build(ref typegraph.Ref) (desc typeinfo.Type) {
	defer func() {
		if r := recover(); r != nil {
			b.logger().Warn("typeof: resolver fault", "ref", refString(ref), "panic", fmt.Sprint(r))
			desc = Empty()
		}
	}()
	w := &walk{Builder: b, active: make(map[typegraph.Ref]bool)}
	return w.build(ref, 0)
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

func (b *Builder) maxDepth() int {
	if b.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return b.MaxDepth
}

// walk is the state of one Build call.
type walk struct {
	*Builder
	active map[typegraph.Ref]bool
}

func (w *walk) build(ref typegraph.Ref, depth int) typeinfo.Type {
	if ref == nil {
		w.logger().Debug("typeof: nil type reference")
		return Empty()
	}
	r := w.Resolver
	t, ok := r.ResolveType(ref)
	if !ok || t == nil {
		w.logger().Debug("typeof: unresolved type", "ref", ref.String())
		return Empty()
	}

	desc := Empty()
	desc.Name = r.AliasNameOf(t)
	if desc.Name == "" {
		desc.Name = r.SymbolNameOf(t)
	}

	if w.active[ref] {
		w.logger().Debug("typeof: recursive type", "ref", ref.String())
		return desc
	}
	if depth >= w.maxDepth() {
		w.logger().Debug("typeof: max depth reached", "ref", ref.String(), "depth", depth)
		return desc
	}
	w.active[ref] = true
	defer delete(w.active, ref)

	members := r.MembersOf(t)
	if len(members) > 0 {
		if d := r.DeclarationOf(members[0]); d != nil {
			desc.Annotations = Annotations(d.Owner)
		}
	}
	for _, m := range members {
		d := r.DeclarationOf(m)
		desc.Properties[m.Name] = typeinfo.Property{
			Type:        w.elem(m, d, depth),
			Annotations: Annotations(d),
			Modifiers:   Modifiers(d),
		}
	}
	return desc
}

func (w *walk) elem(m *typegraph.Member, d *typegraph.Declaration, depth int) typeinfo.Elem {
	if d == nil || d.Type == nil {
		w.logger().Debug("typeof: member without declared type", "member", m.Name)
		return typeinfo.Elem{Basic: typeinfo.Null}
	}
	if d.Type.Syntax == typegraph.TypeReference && d.Type.Ref != nil {
		nested := w.build(d.Type.Ref, depth+1)
		return typeinfo.Elem{Desc: &nested}
	}
	return typeinfo.Elem{Basic: Classify(d.Type.Syntax)}
}

func refString(ref typegraph.Ref) string {
	if ref == nil {
		return "<nil>"
	}
	return ref.String()
}
