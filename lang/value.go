package lang

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Value is a guest-language value. The dynamic type is one of nil (None),
// bool, int64, float64, string, [*List], [*Dict], [*Set], [*Range],
// [*Function], [*Builtin], or the [Unset] marker.
type Value = any

type unset struct{}

// Unset is the value of a name that was never bound, of a missing index or
// key, and of an unknown attribute. It displays as None and is falsy.
var Unset Value = unset{}

// IsNone reports whether v is None or [Unset].
func IsNone(v Value) bool {
	switch v.(type) {
	case nil, unset:
		return true
	}

	return false
}

// List is a mutable list, or an immutable tuple when Tuple is set.
type List struct {
	Items []Value
	Tuple bool
}

// NewList returns a list holding items.
func NewList(items ...Value) *List { return &List{Items: items} }

// NewTuple returns a tuple holding items.
func NewTuple(items ...Value) *List { return &List{Items: items, Tuple: true} }

// Len returns the number of items.
func (l *List) Len() int { return len(l.Items) }

// pair is one entry of a [Dict] or [Set]. Key keeps the value as first
// inserted; equal keys of other types (1, 1.0, True) update the entry.
type pair struct {
	key Value
	val Value
}

// Dict is an insertion-ordered mapping.
type Dict struct {
	m *linkedhashmap.Map
}

// NewDict returns an empty dict.
func NewDict() *Dict { return &Dict{m: linkedhashmap.New()} }

// Len returns the number of entries.
func (d *Dict) Len() int { return d.m.Size() }

// Get returns the value stored under key.
func (d *Dict) Get(key Value) (Value, bool, error) {
	h, err := hashKey(key)
	if err != nil {
		return nil, false, err
	}

	e, ok := d.m.Get(h)
	if !ok {
		return nil, false, nil
	}

	return e.(pair).val, true, nil
}

// Set stores val under key.
func (d *Dict) Set(key, val Value) error {
	h, err := hashKey(key)
	if err != nil {
		return err
	}

	if e, ok := d.m.Get(h); ok {
		key = e.(pair).key
	}

	d.m.Put(h, pair{key: key, val: val})

	return nil
}

// Delete removes key and returns its value.
func (d *Dict) Delete(key Value) (Value, bool, error) {
	h, err := hashKey(key)
	if err != nil {
		return nil, false, err
	}

	e, ok := d.m.Get(h)
	if !ok {
		return nil, false, nil
	}

	d.m.Remove(h)

	return e.(pair).val, true, nil
}

// All iterates over the entries in insertion order.
func (d *Dict) All() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		it := d.m.Iterator()
		for it.Next() {
			e := it.Value().(pair)
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	keys := make([]Value, 0, d.Len())
	for k := range d.All() {
		keys = append(keys, k)
	}

	return keys
}

// Values returns the values in insertion order.
func (d *Dict) Values() []Value {
	vals := make([]Value, 0, d.Len())
	for _, v := range d.All() {
		vals = append(vals, v)
	}

	return vals
}

// Copy returns a shallow copy.
func (d *Dict) Copy() *Dict {
	c := NewDict()
	for k, v := range d.All() {
		_ = c.Set(k, v)
	}

	return c
}

// Clear removes all entries.
func (d *Dict) Clear() { d.m.Clear() }

// Set is an insertion-ordered set.
type Set struct {
	m *linkedhashmap.Map
}

// NewSet returns a set holding the distinct items.
func NewSet(items ...Value) (*Set, error) {
	s := &Set{m: linkedhashmap.New()}

	for _, v := range items {
		if err := s.Add(v); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Len returns the number of members.
func (s *Set) Len() int { return s.m.Size() }

// Add inserts v if not already present.
func (s *Set) Add(v Value) error {
	h, err := hashKey(v)
	if err != nil {
		return err
	}

	if _, ok := s.m.Get(h); !ok {
		s.m.Put(h, v)
	}

	return nil
}

// Has reports whether v is a member.
func (s *Set) Has(v Value) (bool, error) {
	h, err := hashKey(v)
	if err != nil {
		return false, err
	}

	_, ok := s.m.Get(h)

	return ok, nil
}

// Remove deletes v and reports whether it was present.
func (s *Set) Remove(v Value) (bool, error) {
	h, err := hashKey(v)
	if err != nil {
		return false, err
	}

	_, ok := s.m.Get(h)
	if ok {
		s.m.Remove(h)
	}

	return ok, nil
}

// Items returns the members in insertion order.
func (s *Set) Items() []Value {
	items := make([]Value, 0, s.Len())

	it := s.m.Iterator()
	for it.Next() {
		items = append(items, it.Value())
	}

	return items
}

// Copy returns a shallow copy.
func (s *Set) Copy() *Set {
	c, _ := NewSet(s.Items()...)

	return c
}

// Clear removes all members.
func (s *Set) Clear() { s.m.Clear() }

// Range is the lazy integer sequence produced by range().
type Range struct {
	Start, Stop, Step int64
}

// Len returns the number of elements.
func (r *Range) Len() int {
	var n int64

	switch {
	case r.Step > 0 && r.Start < r.Stop:
		n = (r.Stop - r.Start + r.Step - 1) / r.Step
	case r.Step < 0 && r.Start > r.Stop:
		n = (r.Start - r.Stop - r.Step - 1) / -r.Step
	}

	return int(n)
}

// At returns the i'th element.
func (r *Range) At(i int) int64 { return r.Start + int64(i)*r.Step }

// All iterates over the elements.
func (r *Range) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for i := range r.Len() {
			if !yield(r.At(i)) {
				return
			}
		}
	}
}

// Function is a user-defined function or lambda.
type Function struct {
	Name   string
	Params []Param
	Body   Suite // def body
	Expr   Expr  // lambda body; nil for def
	prog   *Program
	env    *Env // defining frame
}

// Builtin is a host-provided function.
type Builtin struct {
	Name string
	Doc  string // signature shown by the interactive shell
	fn   builtinFunc
}

// builtinFunc implements a built-in. Keyword arguments arrive in kw, which
// may be nil.
type builtinFunc func(in *interp, args []Value, kw map[string]Value) (Value, error)

// TypeName returns the guest type name of v, as used in type() and in
// error messages.
func TypeName(v Value) string {
	switch x := v.(type) {
	case nil, unset:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case *List:
		if x.Tuple {
			return "tuple"
		}

		return "list"
	case *Dict:
		return "dict"
	case *Set:
		return "set"
	case *Range:
		return "range"
	case *Function:
		return "function"
	case *Builtin:
		return "builtin_function_or_method"
	}

	return fmt.Sprintf("%T", v)
}

// Truthy reports the truth value of v: None, False, zero and empty
// containers are false.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil, unset:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case *List:
		return len(x.Items) > 0
	case *Dict:
		return x.Len() > 0
	case *Set:
		return x.Len() > 0
	case *Range:
		return x.Len() > 0
	}

	return true
}

type (
	noneKey  struct{}
	tupleKey string
)

// hashKey maps a value to a comparable Go key such that values equal under
// guest equality share a key. Mutable containers are unhashable.
func hashKey(v Value) (any, error) {
	switch x := v.(type) {
	case nil, unset:
		return noneKey{}, nil
	case bool:
		if x {
			return int64(1), nil
		}

		return int64(0), nil
	case int64, string:
		return x, nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<63 {
			return int64(x), nil
		}

		return x, nil
	case *List:
		if !x.Tuple {
			break
		}

		var b strings.Builder

		for _, it := range x.Items {
			k, err := hashKey(it)
			if err != nil {
				return nil, err
			}

			fmt.Fprintf(&b, "%T=%#v;", k, k)
		}

		return tupleKey(b.String()), nil
	case *Dict, *Set:
	default:
		return v, nil
	}

	return nil, ErrType.raise(fmt.Sprintf("unhashable type: '%s'", TypeName(v)))
}

// iterate returns the elements produced by iterating v: characters of a
// string, items of a list, keys of a dict, members of a set and the numbers
// of a range. Lists are iterated over a snapshot.
func iterate(v Value) (iter.Seq[Value], bool) {
	switch x := v.(type) {
	case string:
		return func(yield func(Value) bool) {
			for _, r := range x {
				if !yield(string(r)) {
					return
				}
			}
		}, true
	case *List:
		return slices.Values(slices.Clone(x.Items)), true
	case *Dict:
		return slices.Values(x.Keys()), true
	case *Set:
		return slices.Values(x.Items()), true
	case *Range:
		return x.All(), true
	}

	return nil, false
}

// toSlice materializes an iterable value.
func toSlice(v Value) ([]Value, error) {
	if l, ok := v.(*List); ok {
		return slices.Clone(l.Items), nil
	}

	seq, ok := iterate(v)
	if !ok {
		return nil, ErrType.raise(fmt.Sprintf("'%s' object is not iterable", TypeName(v)))
	}

	return slices.Collect(seq), nil
}

// length returns len(v).
func length(v Value) (int, error) {
	switch x := v.(type) {
	case string:
		return utf8.RuneCountInString(x), nil
	case *List:
		return len(x.Items), nil
	case *Dict:
		return x.Len(), nil
	case *Set:
		return x.Len(), nil
	case *Range:
		return x.Len(), nil
	}

	return 0, ErrType.raise(fmt.Sprintf("object of type '%s' has no len()", TypeName(v)))
}
