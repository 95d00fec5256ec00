package engine

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"idfstore/src/helpers"
)

// EPJSONWriter serializes a document to the JSON model format.
// encoding/json writes map keys sorted, so output is deterministic
// and stable under repeated round-trips. Fields resolved from
// defaults are never emitted.
type EPJSONWriter struct {
	logger *zap.SugaredLogger
}

func NewEPJSONWriter(logger *zap.SugaredLogger) *EPJSONWriter {
	return &EPJSONWriter{logger: logger}
}

// WriteBytes serializes the whole document to epJSON.
func (w *EPJSONWriter) WriteBytes(doc *Document) ([]byte, error) {
	top := make(map[string]interface{})

	top["Version"] = map[string]interface{}{
		"Version 1": map[string]interface{}{
			"version_identifier": doc.Version.Label(),
		},
	}

	for _, className := range doc.Schema.ClassOrder() {
		if helpers.NormalizeName(className) == "VERSION" {
			continue
		}
		coll, ok := doc.Collection(className)
		if !ok || coll.Len() == 0 {
			continue
		}

		instances := make(map[string]interface{}, coll.Len())
		for _, obj := range coll.Objects() {
			instances[obj.Name] = w.encodeObject(obj)
		}
		top[className] = instances
	}

	data, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding epJSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteString serializes the whole document to epJSON text.
func (w *EPJSONWriter) WriteString(doc *Document) (string, error) {
	data, err := w.WriteBytes(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *EPJSONWriter) encodeObject(obj *Object) map[string]interface{} {
	spec := obj.Spec()
	fields := make(map[string]interface{})

	limit := obj.NumFields()
	if spec.Extensible == nil && limit > spec.NumFixed() {
		limit = spec.NumFixed()
	}
	fixedLimit := limit
	if fixedLimit > spec.NumFixed() {
		fixedLimit = spec.NumFixed()
	}

	for i := 0; i < fixedLimit; i++ {
		if obj.IsSet(i) {
			fields[spec.Fields[i].Name] = obj.Field(i)
		}
	}

	if spec.Extensible != nil && limit > spec.NumFixed() {
		size := spec.GroupSize()
		count := (limit - spec.NumFixed() + size - 1) / size

		var groups []interface{}
		for g := 0; g < count; g++ {
			entry := make(map[string]interface{}, size)
			for k := 0; k < size; k++ {
				i := spec.NumFixed() + g*size + k
				if obj.IsSet(i) {
					entry[spec.Extensible.Fields[k].Name] = obj.Field(i)
				}
			}
			if len(entry) > 0 {
				groups = append(groups, entry)
			}
		}
		if len(groups) > 0 {
			fields[spec.Extensible.Name] = groups
		}
	}

	// Lenient-mode unknown fields round-trip verbatim.
	for k, v := range obj.UnknownFields() {
		fields[k] = v
	}

	if len(obj.Extras()) > 0 {
		w.logger.Debugf("%s %q: %d extra text-format values have no epJSON encoding",
			obj.Class, obj.Name, len(obj.Extras()))
	}

	return fields
}
