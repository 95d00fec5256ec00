package schema

import (
	"idfstore/src/helpers"
)

type FieldSpec struct {
	// Name is the schema field name (snake_case, e.g. "x_origin").
	Name string

	// Index is the positional index of the field within its class,
	// or within its extensible group.
	Index int

	// Type is the declared field type
	// string, number, choice, reference, object-list
	Type string

	// Default is the schema default value, nil when the field has none.
	Default interface{}

	// IsReference marks fields whose value names another object
	// instance. These fields feed the reference graph.
	IsReference bool

	// ObjectList names the object-list this reference draws from,
	// empty for non-reference fields.
	ObjectList string
}

// ExtensibleGroup is a repeating tuple of trailing fields (e.g. the
// vertex coordinates of a surface, or the layers of a construction).
type ExtensibleGroup struct {
	// Name is the group key used in the epJSON encoding.
	Name string

	// Fields is one repetition of the group pattern.
	Fields []FieldSpec
}

type ClassSpec struct {
	// Name is the canonical class name (e.g. "BuildingSurface:Detailed").
	Name string

	// HasName is true when instances carry a name field. Nameless
	// classes (Version, GlobalGeometryRules) get synthesized keys.
	HasName bool

	// Fields is the fixed field prefix in positional order.
	Fields []FieldSpec

	// Extensible is the repeating trailing group, nil for fixed-arity
	// classes.
	Extensible *ExtensibleGroup

	// MinFields is the minimum number of field values an instance
	// must carry.
	MinFields int

	// ProvidesLists names the object-lists that instances of this
	// class provide their names to.
	ProvidesLists []string

	index map[string]int
}

// NumFixed returns the size of the fixed field prefix.
func (c *ClassSpec) NumFixed() int {
	return len(c.Fields)
}

// GroupSize returns the extensible group arity, 0 for fixed classes.
func (c *ClassSpec) GroupSize() int {
	if c.Extensible == nil {
		return 0
	}
	return len(c.Extensible.Fields)
}

// MaxFields returns the field capacity for fixed-arity classes and
// -1 (unbounded) for extensible ones.
func (c *ClassSpec) MaxFields() int {
	if c.Extensible != nil {
		return -1
	}
	return len(c.Fields)
}

// FieldAt resolves the FieldSpec governing position i, replicating
// the extensible group pattern beyond the fixed prefix. Returns nil
// when i is out of range.
func (c *ClassSpec) FieldAt(i int) *FieldSpec {
	if i < 0 {
		return nil
	}
	if i < len(c.Fields) {
		return &c.Fields[i]
	}
	if c.Extensible == nil || len(c.Extensible.Fields) == 0 {
		return nil
	}
	return &c.Extensible.Fields[(i-len(c.Fields))%len(c.Extensible.Fields)]
}

// FieldNameAt returns the schema name of the field at position i,
// or "" when out of range.
func (c *ClassSpec) FieldNameAt(i int) string {
	f := c.FieldAt(i)
	if f == nil {
		return ""
	}
	return f.Name
}

// IsReferenceAt reports whether the field at position i is a
// reference field.
func (c *ClassSpec) IsReferenceAt(i int) bool {
	f := c.FieldAt(i)
	return f != nil && f.IsReference
}

// DefaultAt returns the schema default for position i, nil when the
// field has none or i is out of range.
func (c *ClassSpec) DefaultAt(i int) interface{} {
	f := c.FieldAt(i)
	if f == nil {
		return nil
	}
	return f.Default
}

// FieldIndex resolves a field name to its positional index. Group
// field names resolve to their position in the first repetition.
func (c *ClassSpec) FieldIndex(field string) (int, error) {
	i, ok := c.index[helpers.NormalizeName(field)]
	if !ok {
		return 0, &UnknownFieldError{Class: c.Name, Field: field}
	}
	return i, nil
}

// buildIndex populates the field name lookup table. Called once at
// registry load; the spec is immutable afterwards.
func (c *ClassSpec) buildIndex() {
	c.index = make(map[string]int, len(c.Fields)+c.GroupSize())
	for i := range c.Fields {
		c.index[helpers.NormalizeName(c.Fields[i].Name)] = i
	}
	if c.Extensible != nil {
		for i := range c.Extensible.Fields {
			c.index[helpers.NormalizeName(c.Extensible.Fields[i].Name)] = len(c.Fields) + i
		}
	}
}

// Registry holds the full class catalog for one schema version.
// Immutable after Load; shared by every document built against it.
type Registry struct {
	// Version is the schema release this registry was loaded from.
	Version Version

	classes    map[string]*ClassSpec
	classOrder []string
}

// Class resolves a class name case-insensitively.
func (r *Registry) Class(name string) (*ClassSpec, error) {
	spec, ok := r.classes[helpers.NormalizeName(name)]
	if !ok {
		return nil, &UnknownClassError{Class: name}
	}
	return spec, nil
}

// HasClass reports whether the schema defines the class.
func (r *Registry) HasClass(name string) bool {
	_, ok := r.classes[helpers.NormalizeName(name)]
	return ok
}

// ClassOrder returns canonical class names in schema declaration
// order. The serializers use this for stable output ordering.
func (r *Registry) ClassOrder() []string {
	return r.classOrder
}

// FieldNames returns the ordered names of the fixed field prefix.
// Extensible group fields are not included; parsers replicate the
// group pattern to match the input.
func (r *Registry) FieldNames(class string) ([]string, error) {
	spec, err := r.Class(class)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(spec.Fields))
	for i := range spec.Fields {
		names[i] = spec.Fields[i].Name
	}
	return names, nil
}

// FieldDefault returns the schema default for a field, with a second
// result reporting whether the field declares one.
func (r *Registry) FieldDefault(class, field string) (interface{}, bool, error) {
	spec, err := r.Class(class)
	if err != nil {
		return nil, false, err
	}
	i, err := spec.FieldIndex(field)
	if err != nil {
		return nil, false, err
	}
	def := spec.DefaultAt(i)
	return def, def != nil, nil
}

// IsReferenceField reports whether a field carries a reference to
// another object instance.
func (r *Registry) IsReferenceField(class, field string) (bool, error) {
	spec, err := r.Class(class)
	if err != nil {
		return false, err
	}
	i, err := spec.FieldIndex(field)
	if err != nil {
		return false, err
	}
	return spec.IsReferenceAt(i), nil
}

// FieldIndex resolves a field name to its positional index within
// the class.
func (r *Registry) FieldIndex(class, field string) (int, error) {
	spec, err := r.Class(class)
	if err != nil {
		return 0, err
	}
	return spec.FieldIndex(field)
}
