package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"idfstore/src/helpers"
)

//go:embed resources/*.json
var resourceFS embed.FS

// Field type names accepted by schema resources.
const (
	TypeString     = "string"
	TypeNumber     = "number"
	TypeChoice     = "choice"
	TypeReference  = "reference"
	TypeObjectList = "object-list"
)

var (
	cacheMu sync.Mutex
	cache   = make(map[string]*Registry)
)

// Load resolves the schema registry for a version. Resources are
// matched on major.minor; loaded registries are cached process-wide
// and shared (they are immutable).
func Load(version Version) (*Registry, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	key := version.Label()
	if reg, ok := cache[key]; ok {
		return reg, nil
	}

	entries, err := resourceFS.ReadDir("resources")
	if err != nil {
		return nil, fmt.Errorf("error reading schema resources: %w", err)
	}

	searched := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		searched = append(searched, name)

		fileVersion, err := ParseVersion(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		if fileVersion.Major != version.Major || fileVersion.Minor != version.Minor {
			continue
		}

		data, err := resourceFS.ReadFile(path.Join("resources", name))
		if err != nil {
			return nil, fmt.Errorf("error reading schema resource %s: %w", name, err)
		}
		reg, err := parseResource(data)
		if err != nil {
			return nil, fmt.Errorf("corrupt schema resource %s: %w", name, err)
		}
		reg.Version = fileVersion

		cache[key] = reg
		return reg, nil
	}

	return nil, &SchemaNotFoundError{Version: version, Searched: searched}
}

// rawSchema mirrors the on-disk resource layout.
type rawSchema struct {
	Version    string              `json:"version"`
	ClassOrder []string            `json:"class_order"`
	Classes    map[string]rawClass `json:"classes"`
}

type rawClass struct {
	Name       bool      `json:"name"`
	MinFields  int       `json:"min_fields"`
	Provides   []string  `json:"provides"`
	Fields     []rawField `json:"fields"`
	Extensible *rawGroup `json:"extensible"`
}

type rawField struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Default    interface{} `json:"default"`
	ObjectList string      `json:"object_list"`
}

type rawGroup struct {
	Name   string     `json:"name"`
	Fields []rawField `json:"fields"`
}

func parseResource(data []byte) (*Registry, error) {
	var raw rawSchema
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Classes) == 0 {
		return nil, fmt.Errorf("resource defines no classes")
	}

	reg := &Registry{
		classes:    make(map[string]*ClassSpec, len(raw.Classes)),
		classOrder: make([]string, 0, len(raw.Classes)),
	}

	// class_order carries the declaration order JSON maps lose.
	for _, className := range raw.ClassOrder {
		rc, ok := raw.Classes[className]
		if !ok {
			return nil, fmt.Errorf("class_order names undefined class %q", className)
		}
		spec, err := buildClassSpec(className, rc)
		if err != nil {
			return nil, err
		}
		reg.classes[helpers.NormalizeName(className)] = spec
		reg.classOrder = append(reg.classOrder, className)
	}

	if len(reg.classOrder) != len(raw.Classes) {
		return nil, fmt.Errorf("class_order lists %d classes, resource defines %d",
			len(reg.classOrder), len(raw.Classes))
	}

	return reg, nil
}

func buildClassSpec(className string, rc rawClass) (*ClassSpec, error) {
	spec := &ClassSpec{
		Name:          className,
		HasName:       rc.Name,
		MinFields:     rc.MinFields,
		ProvidesLists: rc.Provides,
		Fields:        make([]FieldSpec, 0, len(rc.Fields)),
	}

	for i, rf := range rc.Fields {
		f, err := buildFieldSpec(className, rf, i)
		if err != nil {
			return nil, err
		}
		spec.Fields = append(spec.Fields, f)
	}

	if rc.Extensible != nil {
		if len(rc.Extensible.Fields) == 0 {
			return nil, fmt.Errorf("class %q declares an empty extensible group", className)
		}
		group := &ExtensibleGroup{Name: rc.Extensible.Name}
		for i, rf := range rc.Extensible.Fields {
			f, err := buildFieldSpec(className, rf, i)
			if err != nil {
				return nil, err
			}
			group.Fields = append(group.Fields, f)
		}
		spec.Extensible = group
	}

	spec.buildIndex()
	return spec, nil
}

func buildFieldSpec(className string, rf rawField, index int) (FieldSpec, error) {
	if rf.Name == "" {
		return FieldSpec{}, fmt.Errorf("class %q field %d has no name", className, index)
	}
	switch rf.Type {
	case TypeString, TypeNumber, TypeChoice, TypeReference, TypeObjectList:
	default:
		return FieldSpec{}, fmt.Errorf("class %q field %q has unknown type %q",
			className, rf.Name, rf.Type)
	}

	return FieldSpec{
		Name:        rf.Name,
		Index:       index,
		Type:        rf.Type,
		Default:     rf.Default,
		IsReference: rf.Type == TypeReference || rf.Type == TypeObjectList,
		ObjectList:  rf.ObjectList,
	}, nil
}
