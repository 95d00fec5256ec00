package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"idfstore/src/helpers"
	"idfstore/src/schema"
)

// EPJSONParser parses the JSON model format: objects grouped by
// class name, then by instance name, fields as flat name → value
// pairs, extensible groups as an array of field maps.
type EPJSONParser struct {
	opts     ParseOptions
	logger   *zap.SugaredLogger
	warnings error
}

func NewEPJSONParser(opts ParseOptions, logger *zap.SugaredLogger) *EPJSONParser {
	return &EPJSONParser{opts: opts, logger: logger}
}

// Warnings returns the lenient-mode problems of the last Parse.
func (p *EPJSONParser) Warnings() error {
	return p.warnings
}

// Parse parses epJSON bytes into a document. JSON loses object
// order, so instances are added in sorted order to keep document
// iteration deterministic.
func (p *EPJSONParser) Parse(data []byte) (*Document, error) {
	p.warnings = nil

	var top map[string]map[string]map[string]interface{}
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &ParseError{Path: "$", Reason: err.Error(), Err: err}
	}

	version, err := p.resolveVersion(top)
	if err != nil {
		return nil, err
	}
	reg, err := schema.Load(version)
	if err != nil {
		return nil, err
	}

	doc := NewDocument(reg)
	doc.Version = version

	for _, className := range orderedClassNames(top, reg) {
		spec, err := reg.Class(className)
		if err != nil {
			if p.opts.Strict {
				return nil, &ParseError{Path: className, Reason: fmt.Sprintf("unknown class %q", className), Err: err}
			}
			p.warn(className, "skipping unknown class")
			continue
		}

		instances := top[className]
		names := make([]string, 0, len(instances))
		for name := range instances {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := p.addInstance(doc, spec, className, name, instances[name]); err != nil {
				return nil, err
			}
		}
	}

	p.logger.Debugf("parsed %d objects (%d reference edges) from epJSON input",
		doc.Len(), doc.RefStats()["total_references"])
	return doc, nil
}

func (p *EPJSONParser) resolveVersion(top map[string]map[string]map[string]interface{}) (schema.Version, error) {
	if p.opts.Version != nil {
		return *p.opts.Version, nil
	}
	for className, instances := range top {
		if helpers.NormalizeName(className) != "VERSION" {
			continue
		}
		for _, fields := range instances {
			if s, ok := fields["version_identifier"].(string); ok && s != "" {
				version, err := schema.ParseVersion(s)
				if err != nil {
					return schema.Version{}, &ParseError{Path: className, Reason: err.Error(), Err: err}
				}
				return version, nil
			}
		}
	}
	return schema.Version{}, &VersionNotFoundError{Source: "epJSON input"}
}

func (p *EPJSONParser) addInstance(doc *Document, spec *schema.ClassSpec, className, name string, fields map[string]interface{}) error {
	obj := newObject(spec, name, doc.DocumentID)

	fieldNames := make([]string, 0, len(fields))
	for fieldName := range fields {
		fieldNames = append(fieldNames, fieldName)
	}
	sort.Strings(fieldNames)

	for _, fieldName := range fieldNames {
		value := fields[fieldName]
		path := fmt.Sprintf("%s.%s.%s", className, name, fieldName)

		if spec.Extensible != nil && helpers.NormalizeName(fieldName) == helpers.NormalizeName(spec.Extensible.Name) {
			if err := p.addGroups(obj, spec, path, value); err != nil {
				return err
			}
			continue
		}

		i, err := spec.FieldIndex(fieldName)
		if err != nil {
			if p.opts.Strict {
				return &ParseError{Path: path, Reason: fmt.Sprintf("unknown field %q", fieldName), Err: err}
			}
			if obj.unknown == nil {
				obj.unknown = make(map[string]interface{})
			}
			obj.unknown[fieldName] = value
			p.warn(path, "preserving unknown field")
			continue
		}
		if value != nil {
			obj.setValue(i, value)
		}
	}

	if err := doc.addParsed(obj); err != nil {
		path := fmt.Sprintf("%s.%s", className, name)
		if p.opts.Strict {
			return &ParseError{Path: path, Reason: err.Error(), Err: err}
		}
		p.warn(path, "skipping duplicate object")
	}
	return nil
}

// addGroups replicates the extensible group pattern for each entry
// of the group array.
func (p *EPJSONParser) addGroups(obj *Object, spec *schema.ClassSpec, path string, value interface{}) error {
	entries, ok := value.([]interface{})
	if !ok {
		return &ParseError{Path: path, Reason: "extensible group value is not an array"}
	}

	for g, raw := range entries {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return &ParseError{Path: fmt.Sprintf("%s[%d]", path, g), Reason: "group entry is not an object"}
		}
		for fieldName, fieldValue := range entry {
			entryPath := fmt.Sprintf("%s[%d].%s", path, g, fieldName)
			i, err := spec.FieldIndex(fieldName)
			if err != nil || i < spec.NumFixed() {
				if p.opts.Strict {
					return &ParseError{Path: entryPath, Reason: fmt.Sprintf("unknown group field %q", fieldName), Err: err}
				}
				p.warn(entryPath, "dropping unknown group field")
				continue
			}
			if fieldValue != nil {
				offset := i - spec.NumFixed()
				obj.setValue(spec.NumFixed()+g*spec.GroupSize()+offset, fieldValue)
			}
		}
	}
	return nil
}

// orderedClassNames yields the input's class names in schema
// declaration order, then any classes the schema does not know,
// sorted. Version is handled separately and skipped here.
func orderedClassNames(top map[string]map[string]map[string]interface{}, reg *schema.Registry) []string {
	present := make(map[string]string, len(top)) // normalized -> as written
	for className := range top {
		key := helpers.NormalizeName(className)
		if key == "VERSION" {
			continue
		}
		present[key] = className
	}

	var ordered []string
	for _, className := range reg.ClassOrder() {
		key := helpers.NormalizeName(className)
		if written, ok := present[key]; ok {
			ordered = append(ordered, written)
			delete(present, key)
		}
	}

	var leftover []string
	for _, written := range present {
		leftover = append(leftover, written)
	}
	sort.Strings(leftover)
	return append(ordered, leftover...)
}

func (p *EPJSONParser) warn(path, msg string) {
	p.logger.Warnf("%s: %s", path, msg)
	p.warnings = multierr.Append(p.warnings, fmt.Errorf("%s: %s", path, msg))
}
