package lang_test

import (
	"slices"
	"testing"

	"github.com/ardnew/pyplay/lang"
)

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"len", `print(len("héllo"), len([1, 2]), len({"a": 1}), len(range(4)))`, "5 2 1 4"},
		{"abs", "print(abs(-3), abs(2.5))", "3 2.5"},
		{"max min", "print(max([1, 5, 2]), min(4, 2, 8), max(\"b\", \"a\"))", "5 2 b"},
		{"sum", "print(sum([1, 2, 3]), sum([0.5, 0.25]), sum([]))", "6 0.75 0"},
		{"coercions", `print(int("42") + 1, float("2.5"), str(10) + "!", bool(""), int(3.9), int(-3.9))`, "43 2.5 10! False 3 -3"},
		{"int base", `print(int("ff", 16), int("0b101", 0), int(" 7 "))`, "255 5 7"},
		{"type", `print(type(1), type("s"), type([]), type(None))`, "<class 'int'> <class 'str'> <class 'list'> <class 'NoneType'>"},
		{"round", "print(round(2.5), round(3.5), round(3.14159, 2), round(7))", "2 4 3.14 7"},
		{"sorted", `print(sorted(["bb", "a", "ccc"], key=len), sorted([3, 1, 2]))`, "['a', 'bb', 'ccc'] [1, 2, 3]"},
		{"reversed", "print(reversed([1, 2, 3]), list(reversed(\"ab\")))", "[3, 2, 1] ['b', 'a']"},
		{"list tuple set", "print(list(\"ab\"), tuple([1]), len(set([3, 1, 3])))", "['a', 'b'] (1,) 2"},
		{"dict", "print(dict(a=1), dict([(\"k\", 2)]))", "{'a': 1} {'k': 2}"},
		{"enumerate", `print(list(enumerate("xy")))`, "[[0, 'x'], [1, 'y']]"},
		{"enumerate start", `print(enumerate(["a", "b"], 1))`, "[[1, 'a'], [2, 'b']]"},
		{"zip", `print(list(zip([1, 2, 3], "ab")))`, "[[1, 'a'], [2, 'b']]"},
		{"dict from zip", `print(dict(zip("ab", [1, 2])))`, "{'a': 1, 'b': 2}"},
		{"map filter", "print(map(str, [1, 2]), filter(None, [0, 1, 2]))", "['1', '2'] [1, 2]"},
		{"isinstance", `print(isinstance(1, int), isinstance(True, int), isinstance("s", (int, float)), isinstance([], list))`, "True True False True"},
		{"callable", "print(callable(len), callable(5), callable(lambda: 1))", "True False True"},
		{"any all", "print(any([0, 1]), all([]), any([]), all([1, 0]))", "True True False False"},
		{"chr ord", `print(chr(65), ord("a"))`, "A 97"},
		{"radix", "print(hex(255), bin(5), oct(8), hex(-1))", "0xff 0b101 0o10 -0x1"},
		{"pow", "print(pow(2, 10), pow(2, 10, 1000), pow(2, -1))", "1024 24 0.5"},
		{"divmod", "print(divmod(17, 5), divmod(-7, 2))", "[3, 2] [-4, 1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertOutput(t, run(t, tt.src), []string{tt.want})
		})
	}
}

func TestMethods(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "string case",
			src:  `print("hello world".title(), "aBc".swapcase(), "hello".capitalize(), "X".lower())`,
			want: []string{"Hello World AbC Hello x"},
		},
		{
			name: "string trim and split",
			src:  lines(`s = "  Hello World  "`, `print(s.strip().upper(), s.split(), "-".join(["a", "b"]))`),
			want: []string{"HELLO WORLD ['Hello', 'World'] a-b"},
		},
		{
			name: "string split with separator",
			src:  `print("a,b,,c".split(","), "a b c".split(" ", 1), "xxhixx".strip("x"))`,
			want: []string{"['a', 'b', '', 'c'] ['a', 'b c'] hi"},
		},
		{
			name: "string search",
			src:  `print("banana".find("n"), "banana".count("a"), "banana".replace("a", "o"), "x".find("y"), "banana".index("na"))`,
			want: []string{"2 3 bonono -1 2"},
		},
		{
			name: "string predicates",
			src:  `print("123".isdigit(), "abc".isalpha(), "a1".isalpha(), "pre_x".startswith("pre"), "x.py".endswith(".py"))`,
			want: []string{"True True False True True"},
		},
		{
			name: "string padding",
			src:  `print("abc".center(7, "*"), "42".zfill(5), "-42".zfill(5))`,
			want: []string{"**abc** 00042 -0042"},
		},
		{
			name: "string format",
			src:  `print("{} + {} = {total}".format(1, 2, total=3), "{0}{1}{0}".format("a", "b"))`,
			want: []string{"1 + 2 = 3 aba"},
		},
		{
			name: "list mutation",
			src: lines(
				"a = [3, 1, 2]",
				"a.append(4)",
				"a.insert(0, 9)",
				"a.remove(1)",
				"print(a)",
				"print(a.pop(), a.pop(0), a.index(2), a.index(7), a.count(3))",
				"a.extend([5, 0])",
				"a.sort()",
				"print(a)",
				"a.reverse()",
				"print(a, a.copy() == a)",
				"a.clear()",
				"print(a, a.pop())",
			),
			want: []string{
				"[9, 3, 2, 4]",
				"4 9 1 -1 1",
				"[0, 2, 3, 5]",
				"[5, 3, 2, 0] True",
				"[] None",
			},
		},
		{
			name: "list sort options",
			src:  lines(`w = ["bb", "a", "ccc"]`, "w.sort(key=len, reverse=True)", "print(w)"),
			want: []string{"['ccc', 'bb', 'a']"},
		},
		{
			name: "copy is shallow",
			src:  lines("a = [[1]]", "b = a.copy()", "b[0].append(2)", "b.append(3)", "print(a, b)"),
			want: []string{"[[1, 2]] [[1, 2], 3]"},
		},
		{
			name: "mapping views",
			src: lines(
				`d = {"x": 1, "y": 2}`,
				"print(d.keys(), d.values(), d.items())",
				`print(d.pop("x"), d.pop("zz", 0), d)`,
			),
			want: []string{
				"['x', 'y'] [1, 2] [('x', 1), ('y', 2)]",
				"1 0 {'y': 2}",
			},
		},
		{
			name: "sets",
			src: lines(
				"s = {1, 2}",
				"s.add(3)",
				"s.discard(1)",
				"print(sorted(s), 2 in s, sorted(s | {9}), sorted(s & {3, 4}))",
			),
			want: []string{"[2, 3] True [2, 3, 9] [3]"},
		},
		{
			name: "tuple methods",
			src:  "print((1, 2, 1).count(1), (5, 6).index(6))",
			want: []string{"2 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertOutput(t, run(t, tt.src), tt.want)
		})
	}
}

func TestBuiltinTable(t *testing.T) {
	names := lang.Builtins()

	if !slices.IsSorted(names) {
		t.Errorf("Builtins() not sorted: %q", names)
	}

	for _, want := range []string{"print", "input", "len", "range", "sorted", "divmod"} {
		if !slices.Contains(names, want) {
			t.Errorf("Builtins() missing %q", want)
		}

		if doc, ok := lang.BuiltinDoc(want); !ok || doc == "" {
			t.Errorf("BuiltinDoc(%q) = %q, %v", want, doc, ok)
		}
	}

	if _, ok := lang.BuiltinDoc("nope"); ok {
		t.Error("BuiltinDoc(nope) found")
	}
}

func TestMethodTable(t *testing.T) {
	tests := []struct {
		recv lang.Value
		want []string
	}{
		{"s", []string{"upper", "split", "join", "format", "index", "zfill"}},
		{lang.NewList(), []string{"append", "pop", "sort", "copy", "clear"}},
		{lang.NewDict(), []string{"keys", "values", "items", "get", "update", "pop"}},
	}

	for _, tt := range tests {
		names := lang.Methods(tt.recv)

		for _, want := range tt.want {
			if !slices.Contains(names, want) {
				t.Errorf("Methods(%s) missing %q", lang.TypeName(tt.recv), want)
			}

			if doc, ok := lang.MethodDoc(tt.recv, want); !ok || doc == "" {
				t.Errorf("MethodDoc(%s, %q) = %q, %v", lang.TypeName(tt.recv), want, doc, ok)
			}
		}
	}

	if got := lang.Methods(int64(1)); len(got) != 0 {
		t.Errorf("Methods(int) = %q, want none", got)
	}
}
