package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"idfstore/src/helpers"
)

// IDFWriter serializes a document back to the structured-text
// format. Output order is stable: classes in schema declaration
// order, objects in insertion order within each class. Trailing
// default-valued fields are omitted to keep output compact.
type IDFWriter struct {
	logger *zap.SugaredLogger
}

func NewIDFWriter(logger *zap.SugaredLogger) *IDFWriter {
	return &IDFWriter{logger: logger}
}

// WriteString serializes the whole document to IDF text.
func (w *IDFWriter) WriteString(doc *Document) (string, error) {
	var b strings.Builder

	// The Version statement is synthesized from the document; it is
	// never stored as an object.
	b.WriteString("Version,\n")
	writeIDFFieldLabeled(&b, doc.Version.Label(), true, "Version Identifier")
	b.WriteString("\n")

	for _, className := range doc.Schema.ClassOrder() {
		if helpers.NormalizeName(className) == "VERSION" {
			continue
		}
		coll, ok := doc.Collection(className)
		if !ok {
			continue
		}
		for _, obj := range coll.Objects() {
			w.writeObject(&b, obj)
		}
	}

	return b.String(), nil
}

func (w *IDFWriter) writeObject(b *strings.Builder, obj *Object) {
	spec := obj.Spec()

	// Emit up to the highest explicitly set position, then any
	// lenient-mode extras.
	last := obj.lastSetIndex()
	extras := obj.Extras()

	type fieldLine struct {
		value string
		label string
	}
	var lines []fieldLine

	if spec.HasName {
		lines = append(lines, fieldLine{value: obj.Name, label: "Name"})
	}
	for i := 0; i <= last; i++ {
		label := ""
		if name := spec.FieldNameAt(i); name != "" {
			label = helpers.HumanizeFieldName(name)
		}
		lines = append(lines, fieldLine{value: formatIDFValue(obj.values[i]), label: label})
	}
	for _, v := range extras {
		lines = append(lines, fieldLine{value: formatIDFValue(v)})
	}

	if len(lines) == 0 {
		fmt.Fprintf(b, "%s;\n\n", obj.Class)
		return
	}

	fmt.Fprintf(b, "%s,\n", obj.Class)
	for i, line := range lines {
		writeIDFFieldLabeled(b, line.value, i == len(lines)-1, line.label)
	}
	b.WriteString("\n")
}

func writeIDFFieldLabeled(b *strings.Builder, value string, terminal bool, label string) {
	delim := ","
	if terminal {
		delim = ";"
	}
	if label == "" {
		fmt.Fprintf(b, "  %s%s\n", value, delim)
		return
	}
	fmt.Fprintf(b, "  %-26s!- %s\n", value+delim, label)
}

// formatIDFValue renders a stored value as an IDF token. nil (an
// unset gap below a set position) renders blank.
func formatIDFValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
