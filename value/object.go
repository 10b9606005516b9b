// SPDX-License-Identifier: Apache-2.0
package value

import "strings"

// Object is an insertion-ordered text->Value mapping. A plain Go map cannot
// preserve insertion order (spec.md §4.1 requires Object builders to), so
// Object keeps the key order alongside the lookup map explicitly - the same
// trade the teacher repo's index package makes when it needs ordered
// iteration over something backed by a map (index.Namespace.Children).
type Object struct {
	keys   []string
	values map[string]Value
}

func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// ObjectOf builds an Object from ordered key/value pairs.
func ObjectOf(pairs ...struct {
	Key   string
	Value Value
}) *Object {
	o := NewObject()
	for _, p := range pairs {
		o.Set(p.Key, p.Value)
	}
	return o
}

// Set inserts or overwrites key, preserving its original position on
// overwrite and appending on first insertion.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get reads key. A missing key reads as Undefined, per spec.md §4.3.
func (o *Object) Get(key string) Value {
	if v, ok := o.values[key]; ok {
		return v
	}
	return Undefined
}

func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Len() int { return len(o.keys) }

func (o *Object) Kind() Kind { return KindObject }

func (o *Object) String() string {
	parts := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		parts = append(parts, k+":"+o.values[k].String())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (o *Object) Equal(other Value) bool {
	oo, ok := other.(*Object)
	if !ok || oo.Len() != o.Len() {
		return false
	}
	for _, k := range o.keys {
		ov, ok := oo.values[k]
		if !ok || !o.values[k].Equal(ov) {
			return false
		}
	}
	return true
}

func (o *Object) Clone() Value {
	out := NewObject()
	for _, k := range o.keys {
		out.Set(k, o.values[k].Clone())
	}
	return out
}

// WithSet returns a copy of o with key set to v, leaving o untouched.
func (o *Object) WithSet(key string, v Value) *Object {
	out := o.Clone().(*Object)
	out.Set(key, v)
	return out
}
