package schema

import (
	"fmt"
	"strings"
)

// SchemaNotFoundError is returned when no embedded schema resource
// matches the requested version.
type SchemaNotFoundError struct {
	Version  Version
	Searched []string
}

func (e *SchemaNotFoundError) Error() string {
	msg := fmt.Sprintf("no schema resource found for version %s", e.Version.Label())
	if len(e.Searched) > 0 {
		msg += fmt.Sprintf(" (searched: %s)", strings.Join(e.Searched, ", "))
	}
	return msg
}

// UnknownClassError is returned when a class name is not defined by
// the schema.
type UnknownClassError struct {
	Class string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("unknown class %q", e.Class)
}

// UnknownFieldError is returned when a field name is not defined for
// a class.
type UnknownFieldError struct {
	Class string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q for class %q", e.Field, e.Class)
}
