package lang

// Built-in functions available to every program. The table is built once
// per process on first use and shared read-only by all runs.
//
// Built-in names can be shadowed by bindings of the same name, except in
// call position, where built-ins resolve first.

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Private singleton table.
//
//nolint:gochecknoglobals
var (
	builtinOnce  sync.Once
	builtinTable map[string]*Builtin
)

// builtins returns the process-scoped built-in table.
func builtins() map[string]*Builtin {
	builtinOnce.Do(func() {
		builtinTable = map[string]*Builtin{}

		for _, b := range []*Builtin{
			{Name: "print", Doc: "print(*values, sep=' ', end='\\n')", fn: builtinPrint},
			{Name: "input", Doc: "input(prompt='')", fn: builtinInput},
			{Name: "len", Doc: "len(obj)", fn: builtinLen},
			{Name: "int", Doc: "int(x=0, base=10)", fn: builtinInt},
			{Name: "float", Doc: "float(x=0.0)", fn: builtinFloat},
			{Name: "str", Doc: "str(obj='')", fn: builtinStr},
			{Name: "bool", Doc: "bool(x=False)", fn: builtinBool},
			{Name: "repr", Doc: "repr(obj)", fn: builtinRepr},
			{Name: "format", Doc: "format(value, format_spec='')", fn: builtinFormat},
			{Name: "abs", Doc: "abs(x)", fn: builtinAbs},
			{Name: "max", Doc: "max(iterable, *, key=None, default) or max(a, b, *rest, key=None)", fn: extremum(">")},
			{Name: "min", Doc: "min(iterable, *, key=None, default) or min(a, b, *rest, key=None)", fn: extremum("<")},
			{Name: "sum", Doc: "sum(iterable, start=0)", fn: builtinSum},
			{Name: "range", Doc: "range(stop) or range(start, stop, step=1)", fn: builtinRange},
			{Name: "type", Doc: "type(obj)", fn: builtinType},
			{Name: "round", Doc: "round(number, ndigits=None)", fn: builtinRound},
			{Name: "sorted", Doc: "sorted(iterable, *, key=None, reverse=False)", fn: builtinSorted},
			{Name: "reversed", Doc: "reversed(sequence)", fn: builtinReversed},
			{Name: "list", Doc: "list(iterable=())", fn: builtinList},
			{Name: "tuple", Doc: "tuple(iterable=())", fn: builtinTuple},
			{Name: "set", Doc: "set(iterable=())", fn: builtinSet},
			{Name: "dict", Doc: "dict(mapping_or_pairs=(), **kwargs)", fn: builtinDict},
			{Name: "enumerate", Doc: "enumerate(iterable, start=0)", fn: builtinEnumerate},
			{Name: "zip", Doc: "zip(*iterables)", fn: builtinZip},
			{Name: "map", Doc: "map(function, iterable, *iterables)", fn: builtinMap},
			{Name: "filter", Doc: "filter(function, iterable)", fn: builtinFilter},
			{Name: "isinstance", Doc: "isinstance(obj, class_or_tuple)", fn: builtinIsInstance},
			{Name: "callable", Doc: "callable(obj)", fn: builtinCallable},
			{Name: "any", Doc: "any(iterable)", fn: builtinAny},
			{Name: "all", Doc: "all(iterable)", fn: builtinAll},
			{Name: "chr", Doc: "chr(i)", fn: builtinChr},
			{Name: "ord", Doc: "ord(c)", fn: builtinOrd},
			{Name: "hex", Doc: "hex(number)", fn: radix("0x", 16)},
			{Name: "bin", Doc: "bin(number)", fn: radix("0b", 2)},
			{Name: "oct", Doc: "oct(number)", fn: radix("0o", 8)},
			{Name: "pow", Doc: "pow(base, exp, mod=None)", fn: builtinPow},
			{Name: "divmod", Doc: "divmod(a, b)", fn: builtinDivmod},
		} {
			builtinTable[b.Name] = b
		}
	})

	return builtinTable
}

// Builtins returns the names of the built-in functions in sorted order.
func Builtins() []string {
	return slices.Sorted(maps.Keys(builtins()))
}

// BuiltinDoc returns the signature of a built-in function.
func BuiltinDoc(name string) (string, bool) {
	b, ok := builtins()[name]
	if !ok {
		return "", false
	}

	return b.Doc, true
}

// arity checks the positional argument count of a call.
func arity(name string, args []Value, lo, hi int) error {
	n := len(args)
	if n >= lo && (hi < 0 || n <= hi) {
		return nil
	}

	var want string

	switch {
	case lo == hi && lo == 1:
		want = "exactly one argument"
	case lo == hi:
		want = fmt.Sprintf("exactly %d arguments", lo)
	case n < lo:
		want = fmt.Sprintf("at least %d arguments", lo)
	default:
		want = fmt.Sprintf("at most %d arguments", hi)
	}

	return ErrType.raise(fmt.Sprintf("%s() takes %s (%d given)", name, want, n))
}

// arg returns args[i], the keyword argument name, or def.
func arg(args []Value, kw map[string]Value, i int, name string, def Value) Value {
	if i < len(args) {
		return args[i]
	}

	if v, ok := kw[name]; ok {
		return v
	}

	return def
}

// intArg converts an argument that must be an integer.
func intArg(v Value) (int64, error) {
	n, ok := toInt(v)
	if !ok {
		return 0, ErrType.raise(fmt.Sprintf(
			"'%s' object cannot be interpreted as an integer", TypeName(v)))
	}

	return n, nil
}

func builtinPrint(in *interp, args []Value, kw map[string]Value) (Value, error) {
	sep, end := " ", "\n"

	if v, ok := kw["sep"]; ok && !IsNone(v) {
		sep = Str(v)
	}

	if v, ok := kw["end"]; ok && !IsNone(v) {
		end = Str(v)
	}

	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Str(a)
	}

	in.out.Write(strings.Join(parts, sep) + end)

	return nil, nil
}

func builtinInput(in *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("input", args, 0, 1); err != nil {
		return nil, err
	}

	prompt := ""
	if p := arg(args, kw, 0, "prompt", nil); !IsNone(p) {
		prompt = Str(p)
	}

	line, err := in.cfg.prompter.Prompt(in.ctx, prompt)
	if err != nil {
		return nil, ErrRead.Wrap(err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func builtinLen(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}

	n, err := length(args[0])
	if err != nil {
		return nil, err
	}

	return int64(n), nil
}

func builtinInt(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("int", args, 0, 2); err != nil {
		return nil, err
	}

	x := arg(args, kw, 0, "x", int64(0))

	base, err := intArg(arg(args, kw, 1, "base", int64(10)))
	if err != nil {
		return nil, err
	}

	switch v := x.(type) {
	case bool, int64:
		n, _ := toInt(v)

		return n, nil

	case float64:
		if math.IsInf(v, 0) {
			return nil, ErrOverflow.raise("cannot convert float infinity to integer")
		}

		if math.IsNaN(v) {
			return nil, ErrValue.raise("cannot convert float NaN to integer")
		}

		t := math.Trunc(v)
		if math.Abs(t) >= 1<<63 {
			return t, nil
		}

		return int64(t), nil

	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), "_", "")

		n, err := strconv.ParseInt(s, int(base), 64)
		if base == 0 || base == 16 || base == 8 || base == 2 {
			if err != nil {
				n, err = strconv.ParseInt(s, 0, 64)
			}
		}

		if err != nil {
			return nil, ErrValue.raise(fmt.Sprintf(
				"invalid literal for int() with base %d: %s", base, quote(v)))
		}

		return n, nil
	}

	return nil, ErrType.raise(fmt.Sprintf(
		"int() argument must be a string or a real number, not '%s'", TypeName(x)))
}

func builtinFloat(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("float", args, 0, 1); err != nil {
		return nil, err
	}

	x := arg(args, kw, 0, "x", 0.0)

	if f, ok := toFloat(x); ok {
		return f, nil
	}

	s, ok := x.(string)
	if !ok {
		return nil, ErrType.raise(fmt.Sprintf(
			"float() argument must be a string or a real number, not '%s'", TypeName(x)))
	}

	t := strings.ToLower(strings.TrimSpace(s))

	switch strings.TrimLeft(t, "+-") {
	case "inf", "infinity", "nan":
		f, _ := strconv.ParseFloat(t, 64)

		return f, nil
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(t, "_", ""), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, ErrValue.raise("could not convert string to float: " + quote(s))
	}

	return f, nil
}

func builtinStr(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("str", args, 0, 1); err != nil {
		return nil, err
	}

	return Str(arg(args, kw, 0, "object", "")), nil
}

func builtinRepr(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("repr", args, 1, 1); err != nil {
		return nil, err
	}

	return Repr(args[0]), nil
}

func builtinFormat(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("format", args, 1, 2); err != nil {
		return nil, err
	}

	spec := arg(args, kw, 1, "format_spec", "")

	s, ok := spec.(string)
	if !ok {
		return nil, ErrType.raise(fmt.Sprintf(
			"format() argument 2 must be str, not %s", TypeName(spec)))
	}

	return FormatValue(args[0], s)
}

func builtinBool(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("bool", args, 0, 1); err != nil {
		return nil, err
	}

	return len(args) == 1 && Truthy(args[0]), nil
}

func builtinAbs(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}

	switch v := args[0].(type) {
	case bool, int64:
		n, _ := toInt(v)
		if n == math.MinInt64 {
			return -float64(n), nil
		}

		return absInt(n), nil
	case float64:
		return math.Abs(v), nil
	}

	return nil, ErrType.raise(fmt.Sprintf("bad operand type for abs(): '%s'", TypeName(args[0])))
}

// keyed applies an optional key function to each item.
func (in *interp) keyed(items []Value, key Value) ([]Value, error) {
	if IsNone(key) {
		return items, nil
	}

	keys := make([]Value, len(items))

	for i, it := range items {
		k, err := in.callValue(key, []Value{it}, nil, in.env)
		if err != nil {
			return nil, err
		}

		keys[i] = k
	}

	return keys, nil
}

// extremum implements max (op ">") and min (op "<").
func extremum(op string) builtinFunc {
	name := map[string]string{">": "max", "<": "min"}[op]

	return func(in *interp, args []Value, kw map[string]Value) (Value, error) {
		if err := arity(name, args, 1, -1); err != nil {
			return nil, err
		}

		items := args
		if len(args) == 1 {
			var err error
			if items, err = toSlice(args[0]); err != nil {
				return nil, err
			}
		}

		if len(items) == 0 {
			if d, ok := kw["default"]; ok {
				return d, nil
			}

			return nil, ErrValue.raise(name + "() arg is an empty sequence")
		}

		keys, err := in.keyed(items, kw["key"])
		if err != nil {
			return nil, err
		}

		best := 0

		for i := 1; i < len(items); i++ {
			better, err := compareOp(op, keys[i], keys[best])
			if err != nil {
				return nil, err
			}

			if better {
				best = i
			}
		}

		return items[best], nil
	}
}

func builtinSum(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("sum", args, 1, 2); err != nil {
		return nil, err
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	total := arg(args, kw, 1, "start", int64(0))

	for _, it := range items {
		if total, err = binaryOp("+", total, it); err != nil {
			return nil, err
		}
	}

	return total, nil
}

func builtinRange(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}

	n := make([]int64, len(args))

	for i, a := range args {
		v, err := intArg(a)
		if err != nil {
			return nil, err
		}

		n[i] = v
	}

	r := &Range{Step: 1}

	switch len(n) {
	case 1:
		r.Stop = n[0]
	case 2:
		r.Start, r.Stop = n[0], n[1]
	default:
		r.Start, r.Stop, r.Step = n[0], n[1], n[2]
	}

	if r.Step == 0 {
		return nil, ErrValue.raise("range() arg 3 must not be zero")
	}

	return r, nil
}

func builtinType(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("type", args, 1, 1); err != nil {
		return nil, err
	}

	return fmt.Sprintf("<class '%s'>", TypeName(args[0])), nil
}

func builtinRound(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("round", args, 1, 2); err != nil {
		return nil, err
	}

	x := args[0]
	nd := arg(args, kw, 1, "ndigits", nil)

	if _, ok := asNumber(x); !ok {
		return nil, ErrType.raise(fmt.Sprintf(
			"type %s doesn't define __round__ method", TypeName(x)))
	}

	if IsNone(nd) {
		if n, ok := toInt(x); ok {
			return n, nil
		}

		f, _ := toFloat(x)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, ErrOverflow.raise("cannot convert float infinity to integer")
		}

		return int64(math.RoundToEven(f)), nil
	}

	digits, err := intArg(nd)
	if err != nil {
		return nil, err
	}

	if n, ok := toInt(x); ok {
		if digits >= 0 {
			return n, nil
		}

		if digits < -18 {
			return int64(0), nil
		}

		p := int64(math.Pow10(int(-digits)))
		q, r := floorDiv(n, p), floorMod(n, p)

		switch {
		case 2*r > p, 2*r == p && q%2 != 0:
			q++
		}

		return q * p, nil
	}

	f, _ := toFloat(x)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f, nil
	}

	if digits >= 0 {
		// decimal formatting rounds the exact binary value half to even
		r, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', int(min(digits, 340)), 64), 64)

		return r, nil
	}

	p := math.Pow10(int(-digits))

	return math.RoundToEven(f/p) * p, nil
}

// sortValues sorts items in place, stable, by their keys.
func (in *interp) sortValues(items []Value, key Value, reverse bool) error {
	keys, err := in.keyed(items, key)
	if err != nil {
		return err
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}

	var cmpErr error

	slices.SortStableFunc(idx, func(a, b int) int {
		if cmpErr != nil {
			return 0
		}

		c, err := compare("<", keys[a], keys[b])
		if err != nil {
			cmpErr = err

			return 0
		}

		if c == 2 {
			c = 0
		}

		if reverse {
			return -c
		}

		return c
	})

	if cmpErr != nil {
		return cmpErr
	}

	sorted := make([]Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}

	copy(items, sorted)

	return nil
}

func builtinSorted(in *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("sorted", args, 1, 1); err != nil {
		return nil, err
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	if err := in.sortValues(items, kw["key"], Truthy(kw["reverse"])); err != nil {
		return nil, err
	}

	return NewList(items...), nil
}

func builtinReversed(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("reversed", args, 1, 1); err != nil {
		return nil, err
	}

	if _, ok := args[0].(*Set); ok {
		return nil, ErrType.raise("'set' object is not reversible")
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	slices.Reverse(items)

	return NewList(items...), nil
}

func builtinList(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("list", args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return NewList(), nil
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	return NewList(items...), nil
}

func builtinTuple(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("tuple", args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return NewTuple(), nil
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	return NewTuple(items...), nil
}

func builtinSet(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("set", args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return NewSet()
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	return NewSet(items...)
}

func builtinDict(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("dict", args, 0, 1); err != nil {
		return nil, err
	}

	d := NewDict()

	if len(args) == 1 {
		if err := update(d, args[0]); err != nil {
			return nil, err
		}
	}

	for _, k := range slices.Sorted(maps.Keys(kw)) {
		_ = d.Set(k, kw[k])
	}

	return d, nil
}

// update merges a mapping or an iterable of key/value pairs into d.
func update(d *Dict, src Value) error {
	if m, ok := src.(*Dict); ok {
		for k, v := range m.All() {
			if err := d.Set(k, v); err != nil {
				return err
			}
		}

		return nil
	}

	pairs, err := toSlice(src)
	if err != nil {
		return err
	}

	for i, p := range pairs {
		kv, err := toSlice(p)
		if err != nil || len(kv) != 2 {
			return ErrValue.raise(fmt.Sprintf(
				"dictionary update sequence element #%d has the wrong length", i))
		}

		if err := d.Set(kv[0], kv[1]); err != nil {
			return err
		}
	}

	return nil
}

func builtinEnumerate(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("enumerate", args, 1, 2); err != nil {
		return nil, err
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	start, err := intArg(arg(args, kw, 1, "start", int64(0)))
	if err != nil {
		return nil, err
	}

	pairs := make([]Value, len(items))
	for i, it := range items {
		pairs[i] = NewList(start+int64(i), it)
	}

	return NewList(pairs...), nil
}

func builtinZip(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	cols := make([][]Value, len(args))
	n := -1

	for i, a := range args {
		items, err := toSlice(a)
		if err != nil {
			return nil, err
		}

		cols[i] = items
		if n < 0 || len(items) < n {
			n = len(items)
		}
	}

	rows := make([]Value, 0, max(n, 0))

	for r := 0; r < n; r++ {
		row := make([]Value, len(cols))
		for c := range cols {
			row[c] = cols[c][r]
		}

		rows = append(rows, NewList(row...))
	}

	return NewList(rows...), nil
}

func builtinMap(in *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("map", args, 2, -1); err != nil {
		return nil, err
	}

	z, err := builtinZip(in, args[1:], nil)
	if err != nil {
		return nil, err
	}

	rows := z.(*List).Items
	out := make([]Value, len(rows))

	for i, row := range rows {
		if out[i], err = in.callValue(args[0], row.(*List).Items, nil, in.env); err != nil {
			return nil, err
		}
	}

	return NewList(out...), nil
}

func builtinFilter(in *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("filter", args, 2, 2); err != nil {
		return nil, err
	}

	items, err := toSlice(args[1])
	if err != nil {
		return nil, err
	}

	out := items[:0]

	for _, it := range items {
		keep := it

		if !IsNone(args[0]) {
			if keep, err = in.callValue(args[0], []Value{it}, nil, in.env); err != nil {
				return nil, err
			}
		}

		if Truthy(keep) {
			out = append(out, it)
		}
	}

	return NewList(out...), nil
}

// instanceOf reports whether v is an instance of the type named by a
// built-in constructor or a "<class 'T'>" / "T" string.
func instanceOf(v, class Value) bool {
	var name string

	switch c := class.(type) {
	case *Builtin:
		name = c.Name
	case string:
		name = strings.TrimSuffix(strings.TrimPrefix(c, "<class '"), "'>")
	default:
		return false
	}

	t := TypeName(v)

	switch {
	case t == name:
		return true
	case name == "int" && t == "bool":
		return true
	}

	return false
}

func builtinIsInstance(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("isinstance", args, 2, 2); err != nil {
		return nil, err
	}

	if t, ok := args[1].(*List); ok && t.Tuple {
		for _, c := range t.Items {
			if instanceOf(args[0], c) {
				return true, nil
			}
		}

		return false, nil
	}

	return instanceOf(args[0], args[1]), nil
}

func builtinCallable(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("callable", args, 1, 1); err != nil {
		return nil, err
	}

	return callable(args[0]), nil
}

func builtinAny(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("any", args, 1, 1); err != nil {
		return nil, err
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	return slices.ContainsFunc(items, Truthy), nil
}

func builtinAll(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("all", args, 1, 1); err != nil {
		return nil, err
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	return !slices.ContainsFunc(items, func(v Value) bool { return !Truthy(v) }), nil
}

func builtinChr(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("chr", args, 1, 1); err != nil {
		return nil, err
	}

	n, err := intArg(args[0])
	if err != nil {
		return nil, err
	}

	if n < 0 || n > utf8.MaxRune {
		return nil, ErrValue.raise("chr() arg not in range(0x110000)")
	}

	return string(rune(n)), nil
}

func builtinOrd(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("ord", args, 1, 1); err != nil {
		return nil, err
	}

	s, ok := args[0].(string)
	if !ok {
		return nil, ErrType.raise(fmt.Sprintf(
			"ord() expected string of length 1, but %s found", TypeName(args[0])))
	}

	if n := utf8.RuneCountInString(s); n != 1 {
		return nil, ErrType.raise(fmt.Sprintf(
			"ord() expected a character, but string of length %d found", n))
	}

	r, _ := utf8.DecodeRuneInString(s)

	return int64(r), nil
}

// radix implements hex, bin and oct.
func radix(prefix string, base int) builtinFunc {
	name := map[int]string{16: "hex", 2: "bin", 8: "oct"}[base]

	return func(_ *interp, args []Value, _ map[string]Value) (Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}

		n, err := intArg(args[0])
		if err != nil {
			return nil, err
		}

		if n < 0 {
			return "-" + prefix + strconv.FormatUint(uint64(-n), base), nil
		}

		return prefix + strconv.FormatInt(n, base), nil
	}
}

func builtinPow(_ *interp, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("pow", args, 2, 3); err != nil {
		return nil, err
	}

	mod := arg(args, kw, 2, "mod", nil)
	if IsNone(mod) {
		return binaryOp("**", args[0], args[1])
	}

	b, okB := toInt(args[0])
	e, okE := toInt(args[1])
	m, okM := toInt(mod)

	if !okB || !okE || !okM {
		return nil, ErrType.raise("pow() 3rd argument not allowed unless all arguments are integers")
	}

	if m == 0 {
		return nil, ErrValue.raise("pow() 3rd argument cannot be 0")
	}

	if e < 0 {
		return nil, ErrValue.raise("base is not invertible for the given modulus")
	}

	result := floorMod(1, m)
	b = floorMod(b, m)

	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			result = mulMod(result, b, m)
		}

		b = mulMod(b, b, m)
	}

	return result, nil
}

// mulMod returns a*b mod m without overflow for |a|, |b| < |m|.
func mulMod(a, b, m int64) int64 {
	if p, ok := mulInt(a, b); ok {
		return floorMod(p, m)
	}

	var r int64

	for a = floorMod(a, m); b > 0; b >>= 1 {
		if b&1 == 1 {
			r = floorMod(r+a, m)
		}

		a = floorMod(a+a, m)
	}

	return r
}

func builtinDivmod(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("divmod", args, 2, 2); err != nil {
		return nil, err
	}

	q, err := binaryOp("//", args[0], args[1])
	if err != nil {
		return nil, err
	}

	r, err := binaryOp("%", args[0], args[1])
	if err != nil {
		return nil, err
	}

	return NewList(q, r), nil
}
