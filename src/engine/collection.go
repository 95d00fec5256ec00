package engine

import "idfstore/src/helpers"

func newTypeCollection(class string) *TypeCollection {
	return &TypeCollection{
		Class:  class,
		byName: make(map[string]*Object),
	}
}

// Get looks up an object by instance name, case-insensitively.
func (c *TypeCollection) Get(name string) (*Object, bool) {
	obj, ok := c.byName[helpers.NormalizeName(name)]
	return obj, ok
}

// Len returns the number of objects in the collection.
func (c *TypeCollection) Len() int {
	return len(c.byName)
}

// Objects returns the members in insertion order.
func (c *TypeCollection) Objects() []*Object {
	objs := make([]*Object, 0, len(c.order))
	for _, key := range c.order {
		objs = append(objs, c.byName[key])
	}
	return objs
}

// Names returns the original-case instance names in insertion order.
func (c *TypeCollection) Names() []string {
	names := make([]string, 0, len(c.order))
	for _, key := range c.order {
		names = append(names, c.byName[key].Name)
	}
	return names
}

func (c *TypeCollection) add(obj *Object) error {
	key := helpers.NormalizeName(obj.Name)
	if _, exists := c.byName[key]; exists {
		return &DuplicateNameError{Class: c.Class, Name: obj.Name}
	}
	c.byName[key] = obj
	c.order = append(c.order, key)
	return nil
}

func (c *TypeCollection) remove(name string) {
	key := helpers.NormalizeName(name)
	if _, exists := c.byName[key]; !exists {
		return
	}
	delete(c.byName, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// rekey moves an object to a new map key, keeping its insertion
// order slot. Used by Document.Rename.
func (c *TypeCollection) rekey(oldName, newName string) {
	oldKey := helpers.NormalizeName(oldName)
	newKey := helpers.NormalizeName(newName)
	if oldKey == newKey {
		return
	}
	obj, ok := c.byName[oldKey]
	if !ok {
		return
	}
	delete(c.byName, oldKey)
	c.byName[newKey] = obj
	for i, k := range c.order {
		if k == oldKey {
			c.order[i] = newKey
			break
		}
	}
}
