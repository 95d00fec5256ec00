package engine

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"idfstore/src/helpers"
	"idfstore/src/schema"
)

// NewDocument creates an empty document bound to a schema registry.
// The registry handle is explicit; there is no process-wide default.
func NewDocument(reg *schema.Registry) *Document {
	return &Document{
		DocumentID:  helpers.GenerateUUID(),
		Version:     reg.Version,
		Schema:      reg,
		collections: make(map[string]*TypeCollection),
		refs:        NewReferenceGraph(),
	}
}

// Add creates an object from a field-name → value map. Fails with
// UnknownClassError or DuplicateNameError (or UnknownFieldError for
// a bad field name) leaving the document unchanged. Reference fields
// are indexed in the reference graph on success.
func (d *Document) Add(class, name string, fields map[string]interface{}) (*Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	spec, err := d.Schema.Class(class)
	if err != nil {
		return nil, err
	}

	// Validate everything before touching any state.
	positioned := make(map[int]interface{}, len(fields))
	for fieldName, value := range fields {
		i, err := spec.FieldIndex(fieldName)
		if err != nil {
			return nil, err
		}
		positioned[i] = value
	}

	if name == "" {
		name = d.synthesizeName(spec)
	}
	if coll, ok := d.collections[helpers.NormalizeName(spec.Name)]; ok {
		if _, exists := coll.Get(name); exists {
			return nil, &DuplicateNameError{Class: spec.Name, Name: name}
		}
	}

	obj := newObject(spec, name, d.DocumentID)
	for i, value := range positioned {
		obj.setValue(i, value)
	}

	d.insert(obj)
	return obj, nil
}

// Remove deletes an object. Without force it refuses with
// ReferencedObjectError while other objects still reference the
// name. With force the object goes away and referencing fields keep
// their now-dangling string values, which the format permits.
func (d *Document) Remove(obj *Object, force bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	coll, ok := d.collections[helpers.NormalizeName(obj.Class)]
	if !ok {
		return fmt.Errorf("no %s object named %q in document", obj.Class, obj.Name)
	}
	current, ok := coll.Get(obj.Name)
	if !ok || current != obj {
		return fmt.Errorf("no %s object named %q in document", obj.Class, obj.Name)
	}

	if !force {
		if referencing := d.refs.GetReferencing(obj.Name); len(referencing) > 0 {
			return &ReferencedObjectError{
				Class:    obj.Class,
				Name:     obj.Name,
				RefCount: len(referencing),
			}
		}
	}

	d.refs.Unregister(obj)
	coll.remove(obj.Name)
	return nil
}

// Rename changes an object's instance name and cascades: every
// reference field anywhere in the document whose value equals the
// old name, case-insensitively, is rewritten to the new name and
// re-indexed. Returns the number of rewritten fields. Fails with
// NameCollisionError leaving the document unchanged.
func (d *Document) Rename(class, oldName, newName string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	spec, err := d.Schema.Class(class)
	if err != nil {
		return 0, err
	}
	coll, ok := d.collections[helpers.NormalizeName(spec.Name)]
	if !ok {
		return 0, fmt.Errorf("no %s object named %q in document", spec.Name, oldName)
	}
	obj, ok := coll.Get(oldName)
	if !ok {
		return 0, fmt.Errorf("no %s object named %q in document", spec.Name, oldName)
	}

	oldKey := helpers.NormalizeName(oldName)
	newKey := helpers.NormalizeName(newName)
	if oldKey != newKey {
		if _, exists := coll.Get(newName); exists {
			return 0, &NameCollisionError{Class: spec.Name, Name: newName}
		}
	}

	obj.Name = newName
	coll.rekey(oldName, newName)

	// Rewrite the referencing fields via the reverse index, never by
	// scanning the document.
	count := 0
	for _, edge := range d.refs.incomingEdges(oldKey) {
		d.refs.UnregisterField(edge.obj, edge.field, oldKey)
		edge.obj.setValue(edge.field, newName)
		d.refs.Register(edge.obj, edge.field, newName)
		count++
	}
	return count, nil
}

// CopyObject duplicates an object under a new name. Field values and
// outgoing references are copied; incoming references are not, so
// the copy starts unreferenced.
func (d *Document) CopyObject(obj *Object, newName string) (*Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if coll, ok := d.collections[helpers.NormalizeName(obj.Class)]; ok {
		if _, exists := coll.Get(newName); exists {
			return nil, &DuplicateNameError{Class: obj.Class, Name: newName}
		}
	}

	dup := obj.clone(newName)
	d.insert(dup)
	return dup, nil
}

// SetField sets a field by schema name. Setting nil clears the field
// back to its default. Reference fields have their graph edges
// swapped atomically with the value.
func (d *Document) SetField(obj *Object, fieldName string, value interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, err := obj.spec.FieldIndex(fieldName)
	if err != nil {
		return err
	}

	if obj.spec.IsReferenceAt(i) {
		d.refs.UnregisterField(obj, i, obj.refString(i))
		obj.setValue(i, value)
		if s, ok := value.(string); ok {
			d.refs.Register(obj, i, s)
		}
		return nil
	}

	obj.setValue(i, value)
	return nil
}

// Get looks up an object in O(1). The boolean distinguishes a
// missing object from one that exists with only default fields.
func (d *Document) Get(class, name string) (*Object, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	coll, ok := d.collections[helpers.NormalizeName(class)]
	if !ok {
		return nil, false
	}
	return coll.Get(name)
}

// Collection returns the type collection for a class, if any object
// of that class exists.
func (d *Document) Collection(class string) (*TypeCollection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	coll, ok := d.collections[helpers.NormalizeName(class)]
	return coll, ok
}

// AllObjects returns every object in a stable order: classes in
// document insertion order, objects in insertion order within each
// class. The snapshot is safe to re-iterate.
func (d *Document) AllObjects() []*Object {
	d.mu.RLock()
	defer d.mu.RUnlock()

	objs := make([]*Object, 0, d.lenLocked())
	for _, classKey := range d.classOrder {
		objs = append(objs, d.collections[classKey].Objects()...)
	}
	return objs
}

// Len returns the total object count.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lenLocked()
}

// GetReferencing returns the objects whose reference fields hold
// name. An unreferenced name yields an empty result, not an error.
func (d *Document) GetReferencing(name string) []*Object {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refs.GetReferencing(name)
}

// GetReferencingWithFields returns (object, field) pairs referencing
// name.
func (d *Document) GetReferencingWithFields(name string) []ReferencingField {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refs.GetReferencingWithFields(name)
}

// GetReferences returns the names obj references.
func (d *Document) GetReferences(obj *Object) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refs.GetReferences(obj)
}

// IsReferenced reports whether any object references name.
func (d *Document) IsReferenced(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refs.IsReferenced(name)
}

// RefStats returns reference graph counters.
func (d *Document) RefStats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refs.Stats()
}

// ObjectListProviders returns the classes whose instances provide
// names for an object-list, sorted.
func (d *Document) ObjectListProviders(list string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refs.ObjectListProviders(list)
}

// UsedSchedules returns every schedule-class object reachable from a
// non-schedule object through reference chains: equipment → year
// schedule → week schedules → day schedules. Traversal is
// breadth-first with a visited set, so cycles cannot loop it, and
// the result is sorted so the answer is deterministic.
func (d *Document) UsedSchedules() []*Object {
	d.mu.RLock()
	defer d.mu.RUnlock()

	visited := make(map[*Object]struct{})
	var queue []*Object

	// Root set: schedule names referenced from non-schedule objects.
	for _, classKey := range d.classOrder {
		coll := d.collections[classKey]
		if isScheduleClass(coll.Class) {
			continue
		}
		for _, obj := range coll.Objects() {
			for _, name := range d.refs.GetReferences(obj) {
				for _, sched := range d.schedulesNamed(name) {
					if _, seen := visited[sched]; !seen {
						visited[sched] = struct{}{}
						queue = append(queue, sched)
					}
				}
			}
		}
	}

	var used []*Object
	for len(queue) > 0 {
		sched := queue[0]
		queue = queue[1:]
		used = append(used, sched)

		for _, name := range d.refs.GetReferences(sched) {
			for _, next := range d.schedulesNamed(name) {
				if _, seen := visited[next]; !seen {
					visited[next] = struct{}{}
					queue = append(queue, next)
				}
			}
		}
	}

	sortObjects(used)
	return used
}

// DanglingReferences scans for reference fields naming objects that
// do not exist. Fields bound to an object-list resolve against the
// list's provider classes only; a name that exists in an unrelated
// class does not satisfy them. Fields without a list, and lists with
// no registered provider, resolve against the whole document.
func (d *Document) DanglingReferences() []*DanglingReferenceError {
	d.mu.RLock()
	defer d.mu.RUnlock()

	valid := make(map[string]struct{})
	for _, coll := range d.collections {
		for _, key := range coll.order {
			valid[key] = struct{}{}
		}
	}

	var dangling []*DanglingReferenceError
	for _, classKey := range d.classOrder {
		for _, obj := range d.collections[classKey].Objects() {
			for edge := range d.refs.references[obj] {
				if d.resolvesLocked(obj, edge, valid) {
					continue
				}
				dangling = append(dangling, &DanglingReferenceError{
					Class:  obj.Class,
					Name:   obj.Name,
					Field:  obj.FieldNameAt(edge.field),
					Target: edge.name,
				})
			}
		}
	}
	sortDangling(dangling)
	return dangling
}

// resolvesLocked reports whether a reference edge names an existing
// object, scoped to the object-list providers when the field has a
// list with registered providers.
func (d *Document) resolvesLocked(obj *Object, edge refEdge, valid map[string]struct{}) bool {
	if f := obj.spec.FieldAt(edge.field); f != nil && f.ObjectList != "" {
		if providers := d.refs.ObjectListProviders(f.ObjectList); len(providers) > 0 {
			for _, class := range providers {
				if coll, ok := d.collections[helpers.NormalizeName(class)]; ok {
					if _, exists := coll.Get(edge.name); exists {
						return true
					}
				}
			}
			return false
		}
	}
	_, ok := valid[edge.name]
	return ok
}

// CheckReferences combines every dangling reference into one error,
// nil when the document is fully resolvable.
func (d *Document) CheckReferences() error {
	var err error
	for _, dref := range d.DanglingReferences() {
		err = multierr.Append(err, dref)
	}
	return err
}

// addParsed inserts a parser-built object after duplicate checking.
// An empty name is synthesized for nameless classes.
func (d *Document) addParsed(obj *Object) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if obj.Name == "" {
		obj.Name = d.synthesizeName(obj.spec)
	}
	if coll, ok := d.collections[helpers.NormalizeName(obj.Class)]; ok {
		if _, exists := coll.Get(obj.Name); exists {
			return &DuplicateNameError{Class: obj.Class, Name: obj.Name}
		}
	}
	d.insert(obj)
	return nil
}

// insert adds a fully built object and indexes its reference fields.
// Callers hold the write lock and have already checked for
// duplicates.
func (d *Document) insert(obj *Object) {
	classKey := helpers.NormalizeName(obj.Class)
	coll, ok := d.collections[classKey]
	if !ok {
		coll = newTypeCollection(obj.Class)
		d.collections[classKey] = coll
		d.classOrder = append(d.classOrder, classKey)
	}
	// Duplicate checks happened up front; add cannot fail here.
	_ = coll.add(obj)

	for _, list := range obj.spec.ProvidesLists {
		d.refs.RegisterObjectList(list, obj.Class)
	}
	for i := 0; i < len(obj.values); i++ {
		if obj.spec.IsReferenceAt(i) {
			d.refs.Register(obj, i, obj.refString(i))
		}
	}
}

func (d *Document) lenLocked() int {
	n := 0
	for _, coll := range d.collections {
		n += coll.Len()
	}
	return n
}

// synthesizeName keys instances of nameless classes (Version,
// GlobalGeometryRules) the way epJSON does: "Class N". Removals can
// leave gaps, so the suffix is probed until it is free.
func (d *Document) synthesizeName(spec *schema.ClassSpec) string {
	coll, ok := d.collections[helpers.NormalizeName(spec.Name)]
	n := 1
	if ok {
		n = coll.Len() + 1
	}
	for {
		name := fmt.Sprintf("%s %d", spec.Name, n)
		if !ok {
			return name
		}
		if _, exists := coll.Get(name); !exists {
			return name
		}
		n++
	}
}

// schedulesNamed resolves a normalized name against the schedule
// classes only. The schedule class list is small, so this stays
// cheap.
func (d *Document) schedulesNamed(name string) []*Object {
	var found []*Object
	for _, classKey := range d.classOrder {
		coll := d.collections[classKey]
		if !isScheduleClass(coll.Class) {
			continue
		}
		if obj, ok := coll.Get(name); ok {
			found = append(found, obj)
		}
	}
	return found
}

func isScheduleClass(class string) bool {
	key := helpers.NormalizeName(class)
	return key == "SCHEDULE" || strings.HasPrefix(key, "SCHEDULE:")
}

func sortDangling(refs []*DanglingReferenceError) {
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.Target < b.Target
	})
}
