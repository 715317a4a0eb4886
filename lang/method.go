package lang

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// methodFunc implements a method of a built-in type.
type methodFunc func(in *interp, recv Value, args []Value, kw map[string]Value) (Value, error)

type method struct {
	Doc string
	fn  methodFunc
}

//nolint:gochecknoglobals
var (
	methodOnce  sync.Once
	methodTable map[string]map[string]method // type name -> method name
)

func methods() map[string]map[string]method {
	methodOnce.Do(func() {
		str := map[string]method{
			"upper":      {"upper()", strMap(strings.ToUpper)},
			"lower":      {"lower()", strMap(strings.ToLower)},
			"title":      {"title()", strMap(title)},
			"capitalize": {"capitalize()", strMap(capitalize)},
			"swapcase":   {"swapcase()", strMap(swapcase)},
			"strip":      {"strip(chars=None)", strTrim(strings.Trim, strings.TrimSpace)},
			"lstrip":     {"lstrip(chars=None)", strTrim(strings.TrimLeft, trimLeftSpace)},
			"rstrip":     {"rstrip(chars=None)", strTrim(strings.TrimRight, trimRightSpace)},
			"split":      {"split(sep=None, maxsplit=-1)", strSplit},
			"splitlines": {"splitlines()", strSplitlines},
			"join":       {"join(iterable)", strJoin},
			"replace":    {"replace(old, new, count=-1)", strReplace},
			"startswith": {"startswith(prefix)", strAffix(strings.HasPrefix)},
			"endswith":   {"endswith(suffix)", strAffix(strings.HasSuffix)},
			"find":       {"find(sub)", strFind(false)},
			"index":      {"index(sub)", strFind(true)},
			"count":      {"count(sub)", strCount},
			"isdigit":    {"isdigit()", strIs(unicode.IsDigit)},
			"isalpha":    {"isalpha()", strIs(unicode.IsLetter)},
			"isalnum":    {"isalnum()", strIs(func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) })},
			"isspace":    {"isspace()", strIs(unicode.IsSpace)},
			"isupper":    {"isupper()", strCased(unicode.IsUpper, unicode.IsLower)},
			"islower":    {"islower()", strCased(unicode.IsLower, unicode.IsUpper)},
			"format":     {"format(*args, **kwargs)", strFormatMethod},
			"center":     {"center(width, fillchar=' ')", strPad('^')},
			"ljust":      {"ljust(width, fillchar=' ')", strPad('<')},
			"rjust":      {"rjust(width, fillchar=' ')", strPad('>')},
			"zfill":      {"zfill(width)", strZfill},
		}

		tuple := map[string]method{
			"index": {"index(value)", listIndex},
			"count": {"count(value)", listCount},
		}

		list := maps.Clone(tuple)
		maps.Copy(list, map[string]method{
			"append":  {"append(object)", listAppend},
			"pop":     {"pop(index=-1)", listPop},
			"insert":  {"insert(index, object)", listInsert},
			"remove":  {"remove(value)", listRemove},
			"sort":    {"sort(*, key=None, reverse=False)", listSort},
			"reverse": {"reverse()", listReverse},
			"extend":  {"extend(iterable)", listExtend},
			"copy":    {"copy()", listCopy},
			"clear":   {"clear()", listClear},
		})

		dict := map[string]method{
			"keys":       {"keys()", dictKeys},
			"values":     {"values()", dictValues},
			"items":      {"items()", dictItems},
			"get":        {"get(key, default=None)", dictGet},
			"update":     {"update(other=(), **kwargs)", dictUpdate},
			"pop":        {"pop(key, default)", dictPop},
			"setdefault": {"setdefault(key, default=None)", dictSetdefault},
			"copy":       {"copy()", dictCopy},
			"clear":      {"clear()", dictClear},
		}

		set := map[string]method{
			"add":          {"add(elem)", setAdd},
			"discard":      {"discard(elem)", setDiscard(false)},
			"remove":       {"remove(elem)", setDiscard(true)},
			"union":        {"union(*others)", setCombine("|")},
			"intersection": {"intersection(*others)", setCombine("&")},
			"difference":   {"difference(*others)", setCombine("-")},
			"copy":         {"copy()", setCopy},
			"clear":        {"clear()", setClear},
		}

		methodTable = map[string]map[string]method{
			"str":   str,
			"list":  list,
			"tuple": tuple,
			"dict":  dict,
			"set":   set,
		}
	})

	return methodTable
}

// findMethod looks up a method of recv's type.
func findMethod(recv Value, name string) (method, bool) {
	m, ok := methods()[TypeName(recv)][name]

	return m, ok
}

// Methods returns the method names of v's type in sorted order.
func Methods(v Value) []string {
	return slices.Sorted(maps.Keys(methods()[TypeName(v)]))
}

// MethodDoc returns the signature of a method of v's type.
func MethodDoc(v Value, name string) (string, bool) {
	m, ok := findMethod(v, name)

	return m.Doc, ok
}

func strArg(method string, v Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", ErrType.raise(fmt.Sprintf(
			"%s() argument must be str, not %s", method, TypeName(v)))
	}

	return s, nil
}

func strMap(f func(string) string) methodFunc {
	return func(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
		return f(recv.(string)), nil
	}
}

// title upper-cases the first letter of each word. A Caser keeps state, so
// each call gets its own.
func title(s string) string { return cases.Title(language.Und).String(s) }

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}

	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func swapcase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		}

		return r
	}, s)
}

func trimLeftSpace(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}

func trimRightSpace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

func strTrim(chars func(string, string) string, space func(string) string) methodFunc {
	return func(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
		s := recv.(string)
		if len(args) == 0 || IsNone(args[0]) {
			return space(s), nil
		}

		cut, err := strArg("strip", args[0])
		if err != nil {
			return nil, err
		}

		return chars(s, cut), nil
	}
}

func strSplit(_ *interp, recv Value, args []Value, kw map[string]Value) (Value, error) {
	s := recv.(string)

	limit, err := intArg(arg(args, kw, 1, "maxsplit", int64(-1)))
	if err != nil {
		return nil, err
	}

	var parts []string

	sep := arg(args, kw, 0, "sep", nil)
	if IsNone(sep) {
		parts = strings.Fields(s)
		if limit >= 0 && int64(len(parts)) > limit+1 {
			// re-split keeping the remainder intact
			rest := s
			parts = parts[:0]

			for range limit {
				rest = trimLeftSpace(rest)
				i := strings.IndexFunc(rest, unicode.IsSpace)
				parts = append(parts, rest[:i])
				rest = rest[i:]
			}

			parts = append(parts, trimLeftSpace(rest))
		}
	} else {
		sp, err := strArg("split", sep)
		if err != nil {
			return nil, err
		}

		if sp == "" {
			return nil, ErrValue.raise("empty separator")
		}

		n := -1
		if limit >= 0 {
			n = int(limit) + 1
		}

		parts = strings.SplitN(s, sp, n)
	}

	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = p
	}

	return NewList(items...), nil
}

func strSplitlines(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	s := strings.ReplaceAll(recv.(string), "\r\n", "\n")

	var items []Value

	for line := range strings.Lines(s) {
		items = append(items, strings.TrimRight(line, "\r\n"))
	}

	return NewList(items...), nil
}

func strJoin(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("join", args, 1, 1); err != nil {
		return nil, err
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	parts := make([]string, len(items))

	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, ErrType.raise(fmt.Sprintf(
				"sequence item %d: expected str instance, %s found", i, TypeName(it)))
		}

		parts[i] = s
	}

	return strings.Join(parts, recv.(string)), nil
}

func strReplace(_ *interp, recv Value, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("replace", args, 2, 3); err != nil {
		return nil, err
	}

	old, err := strArg("replace", args[0])
	if err != nil {
		return nil, err
	}

	repl, err := strArg("replace", args[1])
	if err != nil {
		return nil, err
	}

	n, err := intArg(arg(args, kw, 2, "count", int64(-1)))
	if err != nil {
		return nil, err
	}

	return strings.Replace(recv.(string), old, repl, int(n)), nil
}

func strAffix(test func(string, string) bool) methodFunc {
	return func(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
		if err := arity("startswith", args, 1, 1); err != nil {
			return nil, err
		}

		s := recv.(string)

		if t, ok := args[0].(*List); ok && t.Tuple {
			for _, it := range t.Items {
				if a, ok := it.(string); ok && test(s, a) {
					return true, nil
				}
			}

			return false, nil
		}

		a, err := strArg("startswith", args[0])
		if err != nil {
			return nil, err
		}

		return test(s, a), nil
	}
}

// strFind returns the rune index of the first occurrence of the argument,
// or -1. With strict set a miss raises ValueError.
func strFind(strict bool) methodFunc {
	return func(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
		if err := arity("find", args, 1, 1); err != nil {
			return nil, err
		}

		sub, err := strArg("find", args[0])
		if err != nil {
			return nil, err
		}

		s := recv.(string)

		i := strings.Index(s, sub)
		if i < 0 {
			if strict {
				return nil, ErrValue.raise("substring not found")
			}

			return int64(-1), nil
		}

		return int64(utf8.RuneCountInString(s[:i])), nil
	}
}

func strCount(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("count", args, 1, 1); err != nil {
		return nil, err
	}

	sub, err := strArg("count", args[0])
	if err != nil {
		return nil, err
	}

	s := recv.(string)
	if sub == "" {
		return int64(utf8.RuneCountInString(s) + 1), nil
	}

	return int64(strings.Count(s, sub)), nil
}

func strIs(class func(rune) bool) methodFunc {
	return func(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
		s := recv.(string)

		return s != "" && strings.IndexFunc(s, func(r rune) bool { return !class(r) }) < 0, nil
	}
}

// strCased reports whether every cased rune is of one case and there is at
// least one cased rune.
func strCased(is, not func(rune) bool) methodFunc {
	return func(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
		s := recv.(string)

		return strings.IndexFunc(s, is) >= 0 && strings.IndexFunc(s, not) < 0, nil
	}
}

func strFormatMethod(_ *interp, recv Value, args []Value, kw map[string]Value) (Value, error) {
	return strFormat(recv.(string), args, kw)
}

func strPad(align byte) methodFunc {
	return func(_ *interp, recv Value, args []Value, kw map[string]Value) (Value, error) {
		if err := arity("center", args, 1, 2); err != nil {
			return nil, err
		}

		width, err := intArg(args[0])
		if err != nil {
			return nil, err
		}

		fill, err := strArg("center", arg(args, kw, 1, "fillchar", " "))
		if err != nil {
			return nil, err
		}

		if utf8.RuneCountInString(fill) != 1 {
			return nil, ErrType.raise("The fill character must be exactly one character long")
		}

		s := recv.(string)

		marg := int(width) - utf8.RuneCountInString(s)
		if marg <= 0 {
			return s, nil
		}

		var left int

		switch align {
		case '>':
			left = marg
		case '^':
			left = marg/2 + (marg & int(width) & 1)
		}

		return strings.Repeat(fill, left) + s + strings.Repeat(fill, marg-left), nil
	}
}

func strZfill(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("zfill", args, 1, 1); err != nil {
		return nil, err
	}

	width, err := intArg(args[0])
	if err != nil {
		return nil, err
	}

	s := recv.(string)

	marg := int(width) - utf8.RuneCountInString(s)
	if marg <= 0 {
		return s, nil
	}

	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}

	return sign + strings.Repeat("0", marg) + s, nil
}

func listIndex(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("index", args, 1, 1); err != nil {
		return nil, err
	}

	i := slices.IndexFunc(recv.(*List).Items, func(v Value) bool { return Equal(v, args[0]) })

	return int64(i), nil
}

func listCount(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("count", args, 1, 1); err != nil {
		return nil, err
	}

	var n int64

	for _, v := range recv.(*List).Items {
		if Equal(v, args[0]) {
			n++
		}
	}

	return n, nil
}

func listAppend(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("append", args, 1, 1); err != nil {
		return nil, err
	}

	l := recv.(*List)
	l.Items = append(l.Items, args[0])

	return nil, nil
}

// listPop removes and returns an item. Popping an empty list or a missing
// index yields [Unset].
func listPop(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("pop", args, 0, 1); err != nil {
		return nil, err
	}

	l := recv.(*List)

	key := Value(int64(-1))
	if len(args) == 1 {
		key = args[0]
	}

	i, ok, err := index(key, len(l.Items), "list")
	if err != nil || !ok {
		return Unset, err
	}

	v := l.Items[i]
	l.Items = slices.Delete(l.Items, i, i+1)

	return v, nil
}

func listInsert(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("insert", args, 2, 2); err != nil {
		return nil, err
	}

	l := recv.(*List)

	i, err := intArg(args[0])
	if err != nil {
		return nil, err
	}

	n := int64(len(l.Items))
	if i < 0 {
		i = max(0, i+n)
	}

	l.Items = slices.Insert(l.Items, int(min(i, n)), args[1])

	return nil, nil
}

// listRemove deletes the first item equal to the argument, if any.
func listRemove(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("remove", args, 1, 1); err != nil {
		return nil, err
	}

	l := recv.(*List)
	if i := slices.IndexFunc(l.Items, func(v Value) bool { return Equal(v, args[0]) }); i >= 0 {
		l.Items = slices.Delete(l.Items, i, i+1)
	}

	return nil, nil
}

func listSort(in *interp, recv Value, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("sort", args, 0, 0); err != nil {
		return nil, err
	}

	return nil, in.sortValues(recv.(*List).Items, kw["key"], Truthy(kw["reverse"]))
}

func listReverse(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	slices.Reverse(recv.(*List).Items)

	return nil, nil
}

func listExtend(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("extend", args, 1, 1); err != nil {
		return nil, err
	}

	items, err := toSlice(args[0])
	if err != nil {
		return nil, err
	}

	l := recv.(*List)
	l.Items = append(l.Items, items...)

	return nil, nil
}

func listCopy(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	return NewList(slices.Clone(recv.(*List).Items)...), nil
}

func listClear(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	recv.(*List).Items = nil

	return nil, nil
}

func dictKeys(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	return NewList(recv.(*Dict).Keys()...), nil
}

func dictValues(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	return NewList(recv.(*Dict).Values()...), nil
}

func dictItems(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	d := recv.(*Dict)
	items := make([]Value, 0, d.Len())

	for k, v := range d.All() {
		items = append(items, NewTuple(k, v))
	}

	return NewList(items...), nil
}

func dictGet(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("get", args, 1, 2); err != nil {
		return nil, err
	}

	v, ok, err := recv.(*Dict).Get(args[0])
	if err != nil {
		return nil, err
	}

	if !ok {
		return arg(args, nil, 1, "", nil), nil
	}

	return v, nil
}

func dictUpdate(_ *interp, recv Value, args []Value, kw map[string]Value) (Value, error) {
	if err := arity("update", args, 0, 1); err != nil {
		return nil, err
	}

	d := recv.(*Dict)

	if len(args) == 1 {
		if err := update(d, args[0]); err != nil {
			return nil, err
		}
	}

	for _, k := range slices.Sorted(maps.Keys(kw)) {
		_ = d.Set(k, kw[k])
	}

	return nil, nil
}

// dictPop removes a key and returns its value, the default, or [Unset].
func dictPop(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("pop", args, 1, 2); err != nil {
		return nil, err
	}

	v, ok, err := recv.(*Dict).Delete(args[0])
	if err != nil {
		return nil, err
	}

	if !ok {
		return arg(args, nil, 1, "", Unset), nil
	}

	return v, nil
}

func dictSetdefault(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("setdefault", args, 1, 2); err != nil {
		return nil, err
	}

	d := recv.(*Dict)

	v, ok, err := d.Get(args[0])
	if err != nil {
		return nil, err
	}

	if ok {
		return v, nil
	}

	def := arg(args, nil, 1, "", nil)

	return def, d.Set(args[0], def)
}

func dictCopy(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	return recv.(*Dict).Copy(), nil
}

func dictClear(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	recv.(*Dict).Clear()

	return nil, nil
}

func setAdd(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("add", args, 1, 1); err != nil {
		return nil, err
	}

	return nil, recv.(*Set).Add(args[0])
}

func setDiscard(strict bool) methodFunc {
	return func(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
		if err := arity("discard", args, 1, 1); err != nil {
			return nil, err
		}

		ok, err := recv.(*Set).Remove(args[0])
		if err != nil {
			return nil, err
		}

		if !ok && strict {
			return nil, ErrKey.raise(Repr(args[0]))
		}

		return nil, nil
	}
}

func setCombine(op string) methodFunc {
	return func(_ *interp, recv Value, args []Value, _ map[string]Value) (Value, error) {
		var acc Value = recv.(*Set).Copy()

		for _, a := range args {
			other, ok := a.(*Set)
			if !ok {
				items, err := toSlice(a)
				if err != nil {
					return nil, err
				}

				if other, err = NewSet(items...); err != nil {
					return nil, err
				}
			}

			var err error
			if acc, err = setOp(op, acc.(*Set), other); err != nil {
				return nil, err
			}
		}

		return acc, nil
	}
}

func setCopy(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	return recv.(*Set).Copy(), nil
}

func setClear(_ *interp, recv Value, _ []Value, _ map[string]Value) (Value, error) {
	recv.(*Set).Clear()

	return nil, nil
}
