// Package export renders descriptors in other schema languages.
package export

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/broady/typeof/typeinfo"
)

// Extension keys carrying descriptor data OpenAPI has no field for.
const (
	AnnotationsExtension = "x-annotations"
	BasicExtension       = "x-typeof-basic"
)

// Schema returns the OpenAPI schema of t with nested descriptors inlined.
// Required lists the properties that are not optional.
func Schema(t typeinfo.Type) *openapi3.Schema {
	c := &converter{}
	return c.object(t)
}

// Document returns an OpenAPI document whose components hold t and every
// named descriptor nested in it, referenced by name. Different descriptors
// sharing a name, such as two instances of one generic type, are numbered:
// Tree, Tree2. A name-only descriptor refers to the first of its name.
func Document(t typeinfo.Type) *openapi3.T {
	c := &converter{comps: openapi3.Schemas{}, descs: map[string]typeinfo.Type{}}
	base := ComponentName(t.Name)
	if base == "" {
		base = "Type"
	}
	name := c.component(base, t)

	comps := openapi3.NewComponents()
	comps.Schemas = c.comps
	return &openapi3.T{
		OpenAPI:    "3.0.3",
		Info:       &openapi3.Info{Title: name, Version: "typeof"},
		Paths:      openapi3.Paths{},
		Components: comps,
	}
}

// ComponentName maps a type name to a valid component key by replacing
// every character outside [A-Za-z0-9._-] with an underscore.
func ComponentName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

type converter struct {
	// comps is nil when nested descriptors are inlined.
	comps openapi3.Schemas

	// descs holds the descriptor each component was built from.
	descs map[string]typeinfo.Type
}

// component returns the component name of t below base, registering t
// when no component describes it yet.
func (c *converter) component(base string, t typeinfo.Type) string {
	for i := 1; ; i++ {
		name := base
		if i > 1 {
			name = base + strconv.Itoa(i)
		}
		prev, ok := c.descs[name]
		if !ok {
			c.register(name, t)
			return name
		}
		if isStub(t) || reflect.DeepEqual(prev, t) {
			return name
		}
	}
}

func (c *converter) register(name string, t typeinfo.Type) {
	// Reserve the name first so a recursive reference stops here.
	c.descs[name] = t
	ref := openapi3.NewSchemaRef("", nil)
	c.comps[name] = ref
	ref.Value = c.object(t)
}

// isStub reports whether t carries only a name, as recursive and depth
// limited references do.
func isStub(t typeinfo.Type) bool {
	return len(t.Annotations) == 0 && len(t.Properties) == 0
}

func (c *converter) object(t typeinfo.Type) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Title = t.Name
	if len(t.Annotations) > 0 {
		s.Extensions = map[string]interface{}{AnnotationsExtension: t.Annotations}
	}
	for _, name := range t.PropertyNames() {
		p := t.Properties[name]
		s.Properties[name] = c.property(p)
		if !p.Modifiers.Optional {
			s.Required = append(s.Required, name)
		}
	}
	return s
}

func (c *converter) property(p typeinfo.Property) *openapi3.SchemaRef {
	var ref *openapi3.SchemaRef
	if p.Type.Desc != nil {
		ref = c.nested(*p.Type.Desc)
	} else {
		ref = openapi3.NewSchemaRef("", basic(p.Type.Basic))
	}

	if !p.Modifiers.Readonly && len(p.Annotations) == 0 {
		return ref
	}
	if ref.Ref != "" {
		// $ref siblings are ignored, so wrap the reference.
		w := openapi3.NewSchema()
		w.AllOf = openapi3.SchemaRefs{ref}
		ref = openapi3.NewSchemaRef("", w)
	}
	ref.Value.ReadOnly = p.Modifiers.Readonly
	if len(p.Annotations) > 0 {
		if ref.Value.Extensions == nil {
			ref.Value.Extensions = map[string]interface{}{}
		}
		ref.Value.Extensions[AnnotationsExtension] = p.Annotations
	}
	return ref
}

func (c *converter) nested(t typeinfo.Type) *openapi3.SchemaRef {
	name := ComponentName(t.Name)
	if c.comps == nil || name == "" {
		return openapi3.NewSchemaRef("", c.object(t))
	}
	name = c.component(name, t)
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func basic(b typeinfo.Basic) *openapi3.Schema {
	var s *openapi3.Schema
	switch b {
	case typeinfo.String:
		return openapi3.NewStringSchema()
	case typeinfo.Number:
		return openapi3.NewFloat64Schema()
	case typeinfo.Boolean:
		return openapi3.NewBoolSchema()
	case typeinfo.Array:
		s = openapi3.NewArraySchema()
		s.Items = openapi3.NewSchemaRef("", openapi3.NewSchema())
		return s
	case typeinfo.BigInt:
		s = openapi3.NewIntegerSchema()
	case typeinfo.Null:
		s = openapi3.NewSchema()
		s.Nullable = true
	case typeinfo.Function:
		s = openapi3.NewSchema()
	default:
		return openapi3.NewObjectSchema()
	}
	s.Extensions = map[string]interface{}{BasicExtension: string(b)}
	return s
}
