package typegraph

// Standard implements the member and name queries of Resolver over Type
// values, applying the combination policies for Intersection and Union
// types. Resolvers embed it and supply ResolveType.
//
// Intersection merge keeps every member name of every part, in order of
// first appearance. Union reduction keeps only the names present in every
// part. When the parts disagree on a member's declaration the member is
// synthesized without one. Any opaque part, at any depth, leaves the
// combination with no members.
type Standard struct{}

// MembersOf returns the members of t.
func (s Standard) MembersOf(t *Type) []*Member {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case Object:
		return t.Members
	case Intersection:
		if IsOpaque(t) {
			return nil
		}
		return s.merge(t.Parts)
	case Union:
		if IsOpaque(t) {
			return nil
		}
		return s.reduce(t.Parts)
	}
	return nil
}

// DeclarationOf returns the originating declaration of m, or nil.
func (Standard) DeclarationOf(m *Member) *Declaration {
	if m == nil {
		return nil
	}
	return m.Decl
}

// AliasNameOf returns the alias t was reached through. Opaque
// combinations have no alias.
func (Standard) AliasNameOf(t *Type) string {
	if t == nil || IsOpaque(t) {
		return ""
	}
	return t.Alias
}

// SymbolNameOf returns the declared name of an Object type.
func (Standard) SymbolNameOf(t *Type) string {
	if t == nil || t.Kind != Object {
		return ""
	}
	return t.Symbol
}

// IsOpaque reports whether t is opaque or combines an opaque part.
func IsOpaque(t *Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case Opaque:
		return true
	case Intersection, Union:
		for _, p := range t.Parts {
			if IsOpaque(p) {
				return true
			}
		}
	}
	return false
}

func (s Standard) merge(parts []*Type) []*Member {
	var order []string
	byName := make(map[string]*Member)
	for _, p := range parts {
		for _, m := range s.MembersOf(p) {
			prev, ok := byName[m.Name]
			if !ok {
				order = append(order, m.Name)
				byName[m.Name] = m
				continue
			}
			if prev.Decl != m.Decl {
				byName[m.Name] = &Member{Name: m.Name}
			}
		}
	}
	out := make([]*Member, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func (s Standard) reduce(parts []*Type) []*Member {
	if len(parts) == 0 {
		return nil
	}
	sets := make([]map[string]*Member, len(parts))
	for i, p := range parts {
		set := make(map[string]*Member)
		for _, m := range s.MembersOf(p) {
			set[m.Name] = m
		}
		sets[i] = set
	}

	var out []*Member
	for _, m := range s.MembersOf(parts[0]) {
		shared := m.Decl
		common := true
		for _, set := range sets[1:] {
			other, ok := set[m.Name]
			if !ok {
				common = false
				break
			}
			if other.Decl != shared {
				shared = nil
			}
		}
		if !common {
			continue
		}
		if shared == m.Decl && shared != nil {
			out = append(out, m)
		} else {
			out = append(out, &Member{Name: m.Name})
		}
	}
	return out
}
