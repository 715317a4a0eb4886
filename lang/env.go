package lang

import (
	"iter"
	"maps"
	"slices"
)

// returnSlot is the binding a function body stores its result in.
const returnSlot = "__return__"

// Env is one execution context: a mapping from names to values with an
// optional parent frame consulted on lookup misses.
type Env struct {
	vars   map[string]Value
	parent *Env
}

// NewEnv returns an empty frame whose lookups fall back to parent.
func NewEnv(parent *Env) *Env {
	return &Env{vars: map[string]Value{}, parent: parent}
}

// Lookup finds name in this frame or the nearest enclosing one.
func (e *Env) Lookup(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// Set binds name in this frame.
func (e *Env) Set(name string, v Value) { e.vars[name] = v }

// Delete unbinds name from this frame and reports whether it was bound.
func (e *Env) Delete(name string) bool {
	_, ok := e.vars[name]
	delete(e.vars, name)

	return ok
}

// local returns the binding of name in this frame only.
func (e *Env) local(name string) (Value, bool) {
	v, ok := e.vars[name]

	return v, ok
}

// clone returns a single frame holding every binding visible from e.
// Containers are shared, not copied.
func (e *Env) clone() *Env {
	c := NewEnv(nil)

	var chain []*Env
	for f := e; f != nil; f = f.parent {
		chain = append(chain, f)
	}

	for _, f := range slices.Backward(chain) {
		maps.Copy(c.vars, f.vars)
	}

	return c
}

// Names returns the visible names in sorted order, excluding the return
// slot.
func (e *Env) Names() []string {
	seen := map[string]bool{}

	for f := e; f != nil; f = f.parent {
		for name := range f.vars {
			if name != returnSlot {
				seen[name] = true
			}
		}
	}

	return slices.Sorted(maps.Keys(seen))
}

// All iterates over the visible bindings in name order.
func (e *Env) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, name := range e.Names() {
			v, _ := e.Lookup(name)
			if !yield(name, v) {
				return
			}
		}
	}
}
