// Package typeinfo defines the descriptors produced for typeof.Of call sites.
//
// A descriptor is a plain value. The typeof tool writes it into the rewritten
// program as a composite literal, so nothing in this package is computed at
// run time:
//
//	desc := typeof.Of[User]()
//	desc.Name                          // "User"
//	desc.Properties["Email"].Modifiers // {Readonly: false, Optional: true}
//
// The JSON encoding of a Type is the wire form of the descriptor:
//
//	{"name":"User","annotations":{},"properties":{"Email":{"type":"string",...}}}
package typeinfo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gorilla/schema"
)

// Basic is the tag of a property whose declared type is not a reference to
// another named type.
type Basic string

const (
	String   Basic = "string"
	Array    Basic = "array"
	Number   Basic = "number"
	Boolean  Basic = "boolean"
	BigInt   Basic = "bigint"
	Null     Basic = "null"
	Function Basic = "function"
	Object   Basic = "object"
)

// Valid reports whether b is one of the fixed basic tags.
func (b Basic) Valid() bool {
	switch b {
	case String, Array, Number, Boolean, BigInt, Null, Function, Object:
		return true
	}
	return false
}

// Type describes the shape of one type.
type Type struct {
	// Name is the declared name of the type. It is empty for anonymous types,
	// And/Or combinations and opaque types.
	Name string `json:"name" yaml:"name"`

	// Annotations are the annotations attached to the type's declaration.
	Annotations Annotations `json:"annotations" yaml:"annotations"`

	// Properties maps member names to their descriptors.
	Properties Properties `json:"properties" yaml:"properties"`
}

// IsZero reports whether t is the empty literal produced for a call that
// supplied no type argument.
func (t Type) IsZero() bool {
	return t.Name == "" && t.Annotations == nil && t.Properties == nil
}

// PropertyNames returns the property names of t in sorted order.
func (t Type) PropertyNames() []string {
	names := make([]string, 0, len(t.Properties))
	for name := range t.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Properties maps member names to property descriptors.
type Properties map[string]Property

// Property describes one member of a type.
type Property struct {
	Type        Elem        `json:"type" yaml:"type"`
	Annotations Annotations `json:"annotations" yaml:"annotations"`
	Modifiers   Modifiers   `json:"modifiers" yaml:"modifiers"`
}

// Modifiers are the structural modifiers of a property.
type Modifiers struct {
	Readonly bool `json:"readonly" yaml:"readonly"`
	Optional bool `json:"optional" yaml:"optional"`
}

// Elem is the type of a property: either a basic tag or a nested descriptor.
// Exactly one of Basic and Desc is set.
type Elem struct {
	Basic Basic
	Desc  *Type
}

// IsNested reports whether e holds a nested descriptor.
func (e Elem) IsNested() bool {
	return e.Desc != nil
}

// String returns the basic tag, or the nested descriptor's name in angle
// brackets.
func (e Elem) String() string {
	if e.Desc != nil {
		return "<" + e.Desc.Name + ">"
	}
	return string(e.Basic)
}

// MarshalJSON encodes a basic tag as a JSON string and a nested descriptor
// as an object.
func (e Elem) MarshalJSON() ([]byte, error) {
	if e.Desc != nil {
		return json.Marshal(e.Desc)
	}
	return json.Marshal(string(e.Basic))
}

// UnmarshalJSON accepts either form written by MarshalJSON.
func (e *Elem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if !Basic(s).Valid() {
			return fmt.Errorf("unknown basic type %q", s)
		}
		*e = Elem{Basic: Basic(s)}
		return nil
	}
	var t Type
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("nested type: %w", err)
	}
	*e = Elem{Desc: &t}
	return nil
}

// MarshalYAML encodes e in the same shape as MarshalJSON.
func (e Elem) MarshalYAML() (any, error) {
	if e.Desc != nil {
		return e.Desc, nil
	}
	return string(e.Basic), nil
}

// UnmarshalYAML accepts either form written by MarshalYAML.
func (e *Elem) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		if !Basic(s).Valid() {
			return fmt.Errorf("unknown basic type %q", s)
		}
		*e = Elem{Basic: Basic(s)}
		return nil
	}
	var t Type
	if err := unmarshal(&t); err != nil {
		return fmt.Errorf("nested type: %w", err)
	}
	*e = Elem{Desc: &t}
	return nil
}

// Annotations maps annotation names to their literal arguments, in source order.
type Annotations map[string][]string

// Has reports whether the annotation name is present.
func (a Annotations) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Get returns the arguments of the named annotation, or nil.
func (a Annotations) Get(name string) []string {
	return a[name]
}

// Decorator is the list form of an annotation.
type Decorator struct {
	Name      string   `json:"name"`
	Arguments []string `json:"arguments"`
}

// Decorators returns the annotations as a list sorted by name.
func (a Annotations) Decorators() []Decorator {
	out := make([]Decorator, 0, len(a))
	for name, args := range a {
		out = append(out, Decorator{Name: name, Arguments: args})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("annotation")
	d.IgnoreUnknownKeys(true)
	return d
}()

// Decode fills dst, a pointer to a struct, from the annotation arguments.
// Fields are matched by their `annotation` struct tag, falling back to the
// field name:
//
//	var col struct {
//		Column []string `annotation:"Column"`
//		Index  bool     `annotation:"Index"`
//	}
//	err := desc.Properties["Name"].Annotations.Decode(&col)
func (a Annotations) Decode(dst any) error {
	if err := decoder.Decode(dst, map[string][]string(a)); err != nil {
		return fmt.Errorf("decode annotations: %w", err)
	}
	return nil
}
