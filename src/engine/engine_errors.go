package engine

import "fmt"

// ParseError reports a parse failure with positional context: a line
// number for IDF text input, a JSON path for epJSON input.
type ParseError struct {
	// Line is the 1-based input line, 0 for JSON input.
	Line int
	// Path is the JSON path ("Class.Name.field"), empty for text input.
	Path string
	// Reason describes what went wrong.
	Reason string

	Err error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldCountMismatchError is returned when an instance's field count
// cannot be reconciled with the schema, e.g. an extensible class
// whose trailing values are not a whole number of group repetitions.
type FieldCountMismatchError struct {
	Class     string
	Name      string
	Got       int
	Fixed     int
	GroupSize int
}

func (e *FieldCountMismatchError) Error() string {
	if e.GroupSize > 0 {
		return fmt.Sprintf("%s %q has %d field values; %d beyond the fixed %d are not a multiple of the group size %d",
			e.Class, e.Name, e.Got, e.Got-e.Fixed, e.Fixed, e.GroupSize)
	}
	return fmt.Sprintf("%s %q has %d field values, schema allows at most %d",
		e.Class, e.Name, e.Got, e.Fixed)
}

// DuplicateNameError is returned when adding an object whose
// (class, name) already exists, case-insensitively.
type DuplicateNameError struct {
	Class string
	Name  string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s object with name %q", e.Class, e.Name)
}

// NameCollisionError is returned when a rename target already exists
// in the class.
type NameCollisionError struct {
	Class string
	Name  string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("a %s object named %q already exists", e.Class, e.Name)
}

// ReferencedObjectError is returned when removing an object that
// other objects still reference and force was not given.
type ReferencedObjectError struct {
	Class    string
	Name     string
	RefCount int
}

func (e *ReferencedObjectError) Error() string {
	return fmt.Sprintf("cannot remove %s %q: referenced by %d object(s)", e.Class, e.Name, e.RefCount)
}

// VersionNotFoundError is returned when no schema version can be
// detected in the input and none was supplied.
type VersionNotFoundError struct {
	Source string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("could not detect schema version in %s", e.Source)
}

// DanglingReferenceError describes a reference field whose value
// names no existing object.
type DanglingReferenceError struct {
	Class  string
	Name   string
	Field  string
	Target string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s %q field %q references non-existent object %q",
		e.Class, e.Name, e.Field, e.Target)
}
