package engine

import (
	"sort"

	"idfstore/src/helpers"
)

// refEdge is one outgoing reference: the normalized target name and
// the field position holding it.
type refEdge struct {
	name  string
	field int
}

// objEdge is one incoming reference: the referencing object and the
// field position in it.
type objEdge struct {
	obj   *Object
	field int
}

// ReferenceGraph is a derived index over a document answering "who
// points at this name" and "what does this object point at" in
// O(1)/O(degree). It indexes reference-field string values as they
// are, whether or not a target object exists, so dangling references
// stay queryable.
//
// The graph is built in one pass at load and maintained edge by edge
// on every mutation; it is never rebuilt by rescanning on the hot
// path. It is not safe for concurrent use on its own; the owning
// Document's lock covers it.
type ReferenceGraph struct {
	// referencedBy maps normalized names to the edges pointing at them.
	referencedBy map[string]map[objEdge]struct{}

	// references maps objects to their outgoing edges.
	references map[*Object]map[refEdge]struct{}

	// objectLists maps normalized object-list names to the classes
	// that provide instance names for them.
	objectLists map[string]map[string]struct{}
}

func NewReferenceGraph() *ReferenceGraph {
	return &ReferenceGraph{
		referencedBy: make(map[string]map[objEdge]struct{}),
		references:   make(map[*Object]map[refEdge]struct{}),
		objectLists:  make(map[string]map[string]struct{}),
	}
}

// RegisterObjectList records that a class provides instance names for
// an object-list. Providers are class-level and are never
// unregistered; individual instances come and go underneath them.
func (g *ReferenceGraph) RegisterObjectList(list, class string) {
	key := helpers.NormalizeName(list)
	providers, ok := g.objectLists[key]
	if !ok {
		providers = make(map[string]struct{})
		g.objectLists[key] = providers
	}
	providers[class] = struct{}{}
}

// ObjectListProviders returns the classes providing names for an
// object-list, sorted. An unknown list yields an empty result.
func (g *ReferenceGraph) ObjectListProviders(list string) []string {
	providers := g.objectLists[helpers.NormalizeName(list)]
	if len(providers) == 0 {
		return nil
	}
	classes := make([]string, 0, len(providers))
	for class := range providers {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

// Register records that obj's field at position i references name.
// Empty names are ignored.
func (g *ReferenceGraph) Register(obj *Object, field int, name string) {
	if name == "" {
		return
	}
	key := helpers.NormalizeName(name)

	in, ok := g.referencedBy[key]
	if !ok {
		in = make(map[objEdge]struct{})
		g.referencedBy[key] = in
	}
	in[objEdge{obj: obj, field: field}] = struct{}{}

	out, ok := g.references[obj]
	if !ok {
		out = make(map[refEdge]struct{})
		g.references[obj] = out
	}
	out[refEdge{name: key, field: field}] = struct{}{}
}

// UnregisterField removes the single edge from obj's field at
// position i to name. No-op when the edge is absent.
func (g *ReferenceGraph) UnregisterField(obj *Object, field int, name string) {
	if name == "" {
		return
	}
	key := helpers.NormalizeName(name)

	if in, ok := g.referencedBy[key]; ok {
		delete(in, objEdge{obj: obj, field: field})
		if len(in) == 0 {
			delete(g.referencedBy, key)
		}
	}
	if out, ok := g.references[obj]; ok {
		delete(out, refEdge{name: key, field: field})
		if len(out) == 0 {
			delete(g.references, obj)
		}
	}
}

// Unregister removes every outgoing edge of obj. Incoming edges are
// other objects' field values and stay indexed; a force-removed
// target simply becomes a dangling name.
func (g *ReferenceGraph) Unregister(obj *Object) {
	out, ok := g.references[obj]
	if !ok {
		return
	}
	for edge := range out {
		if in, exists := g.referencedBy[edge.name]; exists {
			delete(in, objEdge{obj: obj, field: edge.field})
			if len(in) == 0 {
				delete(g.referencedBy, edge.name)
			}
		}
	}
	delete(g.references, obj)
}

// GetReferencing returns the objects whose reference fields hold
// name, sorted for determinism. Unreferenced names yield an empty
// slice, not an error.
func (g *ReferenceGraph) GetReferencing(name string) []*Object {
	in := g.referencedBy[helpers.NormalizeName(name)]
	if len(in) == 0 {
		return nil
	}
	seen := make(map[*Object]struct{}, len(in))
	objs := make([]*Object, 0, len(in))
	for edge := range in {
		if _, dup := seen[edge.obj]; dup {
			continue
		}
		seen[edge.obj] = struct{}{}
		objs = append(objs, edge.obj)
	}
	sortObjects(objs)
	return objs
}

// ReferencingField pairs a referencing object with the field holding
// the reference.
type ReferencingField struct {
	Object *Object
	Field  string
}

// GetReferencingWithFields returns (object, field name) pairs whose
// field value equals name.
func (g *ReferenceGraph) GetReferencingWithFields(name string) []ReferencingField {
	in := g.referencedBy[helpers.NormalizeName(name)]
	if len(in) == 0 {
		return nil
	}
	pairs := make([]ReferencingField, 0, len(in))
	for edge := range in {
		pairs = append(pairs, ReferencingField{
			Object: edge.obj,
			Field:  edge.obj.FieldNameAt(edge.field),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.Object != b.Object {
			return lessObjects(a.Object, b.Object)
		}
		return a.Field < b.Field
	})
	return pairs
}

// GetReferences returns the normalized names obj references, sorted.
func (g *ReferenceGraph) GetReferences(obj *Object) []string {
	out := g.references[obj]
	if len(out) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(out))
	names := make([]string, 0, len(out))
	for edge := range out {
		if _, dup := seen[edge.name]; dup {
			continue
		}
		seen[edge.name] = struct{}{}
		names = append(names, edge.name)
	}
	sort.Strings(names)
	return names
}

// IsReferenced reports whether any object references name.
func (g *ReferenceGraph) IsReferenced(name string) bool {
	return len(g.referencedBy[helpers.NormalizeName(name)]) > 0
}

// incomingEdges snapshots the edges pointing at name. Rename needs a
// copy because it mutates the index while walking.
func (g *ReferenceGraph) incomingEdges(name string) []objEdge {
	in := g.referencedBy[helpers.NormalizeName(name)]
	if len(in) == 0 {
		return nil
	}
	edges := make([]objEdge, 0, len(in))
	for edge := range in {
		edges = append(edges, edge)
	}
	return edges
}

// Len returns the total number of tracked edges.
func (g *ReferenceGraph) Len() int {
	n := 0
	for _, out := range g.references {
		n += len(out)
	}
	return n
}

// Stats returns counters describing the graph.
func (g *ReferenceGraph) Stats() map[string]int {
	return map[string]int{
		"total_references":        g.Len(),
		"objects_with_references": len(g.references),
		"names_referenced":        len(g.referencedBy),
		"object_lists":            len(g.objectLists),
	}
}

func lessObjects(a, b *Object) bool {
	if a.Class != b.Class {
		return a.Class < b.Class
	}
	return helpers.NormalizeName(a.Name) < helpers.NormalizeName(b.Name)
}

func sortObjects(objs []*Object) {
	sort.Slice(objs, func(i, j int) bool { return lessObjects(objs[i], objs[j]) })
}
