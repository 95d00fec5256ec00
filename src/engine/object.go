package engine

import (
	"idfstore/src/helpers"
	"idfstore/src/schema"
)

func newObject(spec *schema.ClassSpec, name, documentID string) *Object {
	return &Object{
		Class:      spec.Name,
		Name:       name,
		DocumentID: documentID,
		spec:       spec,
	}
}

// ID returns the case-normalized identity of the object.
func (o *Object) ID() ObjectID {
	return ObjectID{Class: o.Class, Name: helpers.NormalizeName(o.Name)}
}

// Spec returns the class specification the object was built against.
func (o *Object) Spec() *schema.ClassSpec {
	return o.spec
}

// NumFields returns the number of field positions with stored values,
// including unset gaps below the highest set position.
func (o *Object) NumFields() int {
	return len(o.values)
}

// IsSet reports whether position i holds an explicit value rather
// than falling back to the schema default.
func (o *Object) IsSet(i int) bool {
	return i >= 0 && i < len(o.values) && o.values[i] != nil
}

// Field returns the value at position i. Unset positions resolve to
// the schema default (nil when the field has none).
func (o *Object) Field(i int) interface{} {
	if o.IsSet(i) {
		return o.values[i]
	}
	return o.spec.DefaultAt(i)
}

// FieldByName resolves a field by schema name ("x_origin") and
// returns its value with default fallback.
func (o *Object) FieldByName(name string) (interface{}, error) {
	i, err := o.spec.FieldIndex(name)
	if err != nil {
		return nil, err
	}
	return o.Field(i), nil
}

// FieldNameAt returns the schema name of the field at position i.
func (o *Object) FieldNameAt(i int) string {
	return o.spec.FieldNameAt(i)
}

// Extras returns lenient-mode overflow values beyond the schema
// field count.
func (o *Object) Extras() []interface{} {
	return o.extras
}

// UnknownFields returns lenient-mode epJSON fields the schema does
// not define.
func (o *Object) UnknownFields() map[string]interface{} {
	return o.unknown
}

// lastSetIndex returns the highest position holding an explicit
// value, -1 when none is set.
func (o *Object) lastSetIndex() int {
	for i := len(o.values) - 1; i >= 0; i-- {
		if o.values[i] != nil {
			return i
		}
	}
	return -1
}

// setValue stores an explicit value at position i, growing the value
// slice as needed. nil clears the position back to its default.
func (o *Object) setValue(i int, v interface{}) {
	if i < 0 {
		return
	}
	for len(o.values) <= i {
		o.values = append(o.values, nil)
	}
	o.values[i] = v
}

// refString returns the reference value at position i as a string,
// "" when unset or not a string.
func (o *Object) refString(i int) string {
	if !o.IsSet(i) {
		return ""
	}
	s, _ := o.values[i].(string)
	return s
}

// clone duplicates field values for Document.CopyObject. Incoming
// references are not part of object state and are not copied.
func (o *Object) clone(name string) *Object {
	dup := newObject(o.spec, name, o.DocumentID)
	dup.values = append([]interface{}(nil), o.values...)
	dup.extras = append([]interface{}(nil), o.extras...)
	if o.unknown != nil {
		dup.unknown = make(map[string]interface{}, len(o.unknown))
		for k, v := range o.unknown {
			dup.unknown[k] = v
		}
	}
	return dup
}
