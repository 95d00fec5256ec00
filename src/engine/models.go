package engine

import (
	"sync"

	"idfstore/src/schema"
)

// ObjectID uniquely identifies an object within a document. The name
// component is normalized for case-insensitive comparison.
type ObjectID struct {
	Class string
	Name  string
}

type Object struct {
	// Class is the canonical class name from the schema.
	Class string

	// Name is the instance name in its original case. Identity is
	// case-insensitive; Name preserves what the input said.
	Name string

	// DocumentID is the ID of the owning document. It is an opaque
	// handle, never a pointer, so objects cannot keep a document
	// alive or mutate it.
	DocumentID string

	spec *schema.ClassSpec

	// values is position aligned to the class field order. A nil
	// entry means unset: reads fall back to the schema default.
	values []interface{}

	// extras holds lenient-mode overflow values beyond what the
	// schema defines. They round-trip verbatim through the text
	// format.
	extras []interface{}

	// unknown holds lenient-mode epJSON fields whose names the
	// schema does not define. Preserved for re-serialization.
	unknown map[string]interface{}
}

type TypeCollection struct {
	// Class is the canonical class name of every member.
	Class string

	// byName maps normalized instance names to objects.
	byName map[string]*Object

	// order is the insertion order of normalized names, for
	// deterministic iteration and serialization.
	order []string
}

type Document struct {
	// DocumentID is the unique identifier for the document.
	DocumentID string

	// Version is the schema version the document was built against.
	Version schema.Version

	// Schema is the registry handle; shared and immutable.
	Schema *schema.Registry

	// collections maps normalized class names to their collections.
	collections map[string]*TypeCollection

	// classOrder is the insertion order of normalized class names.
	classOrder []string

	refs *ReferenceGraph

	// mu serializes mutation against reads. Mutations take the
	// write lock; queries and iteration take the read lock.
	mu sync.RWMutex
}
