package lang

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxReprDepth bounds container nesting when rendering and comparing.
const maxReprDepth = 200

// Str renders v in display mode, as print shows it: strings are unquoted.
func Str(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}

	return Repr(v)
}

// Repr renders v in representation mode: strings are quoted, and container
// elements are always rendered in representation mode. A container that
// contains itself renders the inner reference as [...] or {...}.
func Repr(v Value) string {
	var b strings.Builder

	writeRepr(&b, v, map[any]bool{})

	return b.String()
}

func writeRepr(b *strings.Builder, v Value, seen map[any]bool) {
	switch x := v.(type) {
	case nil, unset:
		b.WriteString("None")

	case bool:
		if x {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}

	case int64:
		b.WriteString(strconv.FormatInt(x, 10))

	case float64:
		b.WriteString(formatFloat(x))

	case string:
		b.WriteString(quote(x))

	case *List:
		if seen[x] || len(seen) > maxReprDepth {
			b.WriteString(map[bool]string{false: "[...]", true: "(...)"}[x.Tuple])

			return
		}

		seen[x] = true
		defer delete(seen, x)

		open, close := "[", "]"
		if x.Tuple {
			open, close = "(", ")"
		}

		b.WriteString(open)

		for i, it := range x.Items {
			if i > 0 {
				b.WriteString(", ")
			}

			writeRepr(b, it, seen)
		}

		if x.Tuple && len(x.Items) == 1 {
			b.WriteByte(',')
		}

		b.WriteString(close)

	case *Dict:
		if seen[x] || len(seen) > maxReprDepth {
			b.WriteString("{...}")

			return
		}

		seen[x] = true
		defer delete(seen, x)

		b.WriteByte('{')

		i := 0
		for k, val := range x.All() {
			if i > 0 {
				b.WriteString(", ")
			}

			writeRepr(b, k, seen)
			b.WriteString(": ")
			writeRepr(b, val, seen)

			i++
		}

		b.WriteByte('}')

	case *Set:
		if x.Len() == 0 {
			b.WriteString("set()")

			return
		}

		b.WriteByte('{')

		for i, it := range x.Items() {
			if i > 0 {
				b.WriteString(", ")
			}

			writeRepr(b, it, seen)
		}

		b.WriteByte('}')

	case *Range:
		b.WriteByte('[')

		for i := range x.Len() {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteString(strconv.FormatInt(x.At(i), 10))
		}

		b.WriteByte(']')

	case *Function:
		fmt.Fprintf(b, "<function %s>", x.Name)

	case *Builtin:
		fmt.Fprintf(b, "<built-in function %s>", x.Name)

	default:
		fmt.Fprint(b, x)
	}
}

// quote renders s as a string literal, preferring single quotes.
func quote(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}

	var b strings.Builder

	b.Grow(len(s) + 2)
	b.WriteByte(q)

	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == utf8.RuneError:
			b.WriteString(`�`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case !unicode.IsPrint(r) && r != ' ':
			if r > 0xffff {
				fmt.Fprintf(&b, `\U%08x`, r)
			} else {
				fmt.Fprintf(&b, `\u%04x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte(q)

	return b.String()
}

// formatFloat renders f the way the guest language prints floats: the
// shortest round-trip digits, fixed notation for exponents in [-4, 16) with
// at least one fractional digit, scientific notation otherwise.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	e := strconv.FormatFloat(f, 'e', -1, 64)

	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return e
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}

	return s
}

// fmtSpec is a parsed format specification:
//
//	[[fill]align][sign][#][0][width][,|_][.precision][type]
type fmtSpec struct {
	fill  rune
	align byte
	sign  byte
	alt   bool
	zero  bool
	width int
	group byte
	prec  int
	typ   byte
}

func invalidSpec(spec string) error {
	return ErrValue.raise(fmt.Sprintf("Invalid format specifier '%s'", spec))
}

func parseSpec(spec string) (fmtSpec, error) {
	fs := fmtSpec{fill: ' ', prec: -1}
	s := spec

	if r, size := utf8.DecodeRuneInString(s); size > 0 && size < len(s) &&
		strings.IndexByte("<>^=", s[size]) >= 0 {
		fs.fill, fs.align = r, s[size]
		s = s[size+1:]
	} else if s != "" && strings.IndexByte("<>^=", s[0]) >= 0 {
		fs.align = s[0]
		s = s[1:]
	}

	if s != "" && strings.IndexByte("+- ", s[0]) >= 0 {
		fs.sign = s[0]
		s = s[1:]
	}

	if s != "" && s[0] == '#' {
		fs.alt = true
		s = s[1:]
	}

	if s != "" && s[0] == '0' {
		fs.zero = true
		s = s[1:]
	}

	n := 0
	for n < len(s) && isDigit(rune(s[n])) {
		n++
	}

	if n > 0 {
		fs.width, _ = strconv.Atoi(s[:n])
		s = s[n:]
	}

	if s != "" && (s[0] == ',' || s[0] == '_') {
		fs.group = s[0]
		s = s[1:]
	}

	if s != "" && s[0] == '.' {
		n = 1
		for n < len(s) && isDigit(rune(s[n])) {
			n++
		}

		if n == 1 {
			return fs, ErrValue.raise("Format specifier missing precision")
		}

		fs.prec, _ = strconv.Atoi(s[1:n])
		s = s[n:]
	}

	switch len(s) {
	case 0:
	case 1:
		fs.typ = s[0]
	default:
		return fs, invalidSpec(spec)
	}

	if fs.zero && fs.align == 0 {
		fs.fill, fs.align = '0', '='
	}

	return fs, nil
}

// FormatValue applies a format spec to v, as format(v, spec) and f-string
// replacement fields do. Strings are converted to numbers for numeric
// presentation types.
func FormatValue(v Value, spec string) (string, error) {
	if spec == "" {
		return Str(v), nil
	}

	fs, err := parseSpec(spec)
	if err != nil {
		return "", err
	}

	if IsNone(v) {
		v = "None"
	}

	if s, ok := v.(string); ok && fs.typ != 0 && fs.typ != 's' {
		n, err := numericString(s, fs.typ)
		if err != nil {
			return "", err
		}

		v = n
	}

	var body, sign string

	switch x := v.(type) {
	case string:
		body = x
		if fs.prec >= 0 && utf8.RuneCountInString(body) > fs.prec {
			body = string([]rune(body)[:fs.prec])
		}

		if fs.align == 0 {
			fs.align = '<'
		}

	case bool, int64, float64:
		if fs.typ == 's' {
			body = Str(x)

			break
		}

		body, sign, err = formatNumber(x, fs)
		if err != nil {
			return "", err
		}

		if fs.align == 0 {
			fs.align = '>'
		}

	default:
		body = Str(x)

		if fs.align == 0 {
			fs.align = '<'
		}
	}

	return pad(sign, body, fs), nil
}

// numericString converts s for a numeric presentation type.
func numericString(s string, typ byte) (Value, error) {
	t := strings.TrimSpace(s)

	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return n, nil
	}

	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f, nil
	}

	return nil, ErrValue.raise(fmt.Sprintf(
		"Unknown format code '%c' for object of type 'str'", typ))
}

var groupPrinter = message.NewPrinter(language.English)

// formatNumber renders a number without padding, returning the digits and
// the sign separately so that '=' alignment can pad between them.
func formatNumber(v Value, fs fmtSpec) (body, sign string, err error) {
	n, _ := asNumber(v)
	i, isInt := n.(int64)
	f, _ := toFloat(n)

	neg := f < 0 || (f == 0 && math.Signbit(f))
	if neg {
		sign = "-"
		f, i = -f, -i
	} else if fs.sign == '+' || fs.sign == ' ' {
		sign = string(fs.sign)
	}

	typ := fs.typ
	if typ == 0 {
		switch {
		case isInt:
			typ = 'd'
		case fs.prec >= 0:
			typ = 'g'
		}
	}

	prec := fs.prec

	switch typ {
	case 'd', 'n':
		if !isInt {
			// floats are floored before integer presentation
			fl := math.Floor(f)
			if neg {
				fl = math.Ceil(f)
			}

			i = int64(fl)
		}

		body = strconv.FormatInt(i, 10)
		if fs.group != 0 {
			body = group(groupPrinter.Sprintf("%d", i), fs.group)
		}

	case 'x', 'X', 'o', 'b', 'c':
		if !isInt {
			return "", "", ErrValue.raise(fmt.Sprintf(
				"Unknown format code '%c' for object of type 'float'", typ))
		}

		switch typ {
		case 'c':
			return string(rune(i)), "", nil
		case 'x', 'X':
			body = strconv.FormatInt(i, 16)
		case 'o':
			body = strconv.FormatInt(i, 8)
		case 'b':
			body = strconv.FormatInt(i, 2)
		}

		if fs.alt {
			body = "0" + string(typ|0x20) + body
		}

		if typ == 'X' {
			body = strings.ToUpper(body)
		}

	case 'f', 'F', '%':
		if prec < 0 {
			prec = 6
		}

		if typ == '%' {
			f *= 100
		}

		body = strconv.FormatFloat(f, 'f', prec, 64)
		if fs.group != 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
			body = group(groupPrinter.Sprintf("%.*f", prec, f), fs.group)
		}

		if fs.alt && prec == 0 {
			body += "."
		}

		if typ == '%' {
			body += "%"
		}

	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}

		body = strconv.FormatFloat(f, 'e', prec, 64)

	case 'g', 'G':
		if prec < 0 {
			prec = 6
		}

		body = strconv.FormatFloat(f, 'g', max(prec, 1), 64)

	case 0:
		body = formatFloat(f)

	default:
		return "", "", ErrValue.raise(fmt.Sprintf(
			"Unknown format code '%c' for object of type '%s'", typ, TypeName(v)))
	}

	switch {
	case math.IsInf(f, 0):
		body = "inf"
	case math.IsNaN(f):
		body = "nan"
	}

	if typ == 'F' || typ == 'E' || typ == 'G' {
		body = strings.ToUpper(body)
	}

	return body, sign, nil
}

// group swaps the locale thousands separator for sep.
func group(s string, sep byte) string {
	if sep == ',' {
		return s
	}

	return strings.ReplaceAll(s, ",", string(sep))
}

// pad aligns sign+body within the spec width.
func pad(sign, body string, fs fmtSpec) string {
	n := fs.width - utf8.RuneCountInString(sign) - utf8.RuneCountInString(body)
	if n <= 0 {
		return sign + body
	}

	fill := strings.Repeat(string(fs.fill), n)

	switch fs.align {
	case '<':
		return sign + body + fill
	case '^':
		left := strings.Repeat(string(fs.fill), n/2)
		right := strings.Repeat(string(fs.fill), n-n/2)

		return left + sign + body + right
	case '=':
		return sign + fill + body
	}

	return fill + sign + body
}

// percentFormat implements "format % args".
func percentFormat(format string, args Value) (string, error) {
	var (
		items []Value
		dict  *Dict
	)

	switch a := args.(type) {
	case *List:
		if a.Tuple {
			items = a.Items
		} else {
			items = []Value{a}
		}
	case *Dict:
		dict = a
		items = []Value{a}
	default:
		items = []Value{a}
	}

	var b strings.Builder

	next := 0

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)

			continue
		}

		i++
		if i >= len(format) {
			return "", ErrValue.raise("incomplete format")
		}

		if format[i] == '%' {
			b.WriteByte('%')

			continue
		}

		var arg Value

		named := false

		if format[i] == '(' {
			end := strings.IndexByte(format[i:], ')')
			if end < 0 || dict == nil {
				return "", ErrType.raise("format requires a mapping")
			}

			key := format[i+1 : i+end]

			v, ok, _ := dict.Get(key)
			if !ok {
				return "", ErrKey.raise(quote(key))
			}

			arg, named = v, true
			i += end + 1
		}

		start := i
		for i < len(format) && strings.IndexByte("-+ #0123456789.", format[i]) >= 0 {
			i++
		}

		if i >= len(format) {
			return "", ErrValue.raise("incomplete format")
		}

		flags, conv := format[start:i], format[i]

		if !named {
			if next >= len(items) {
				return "", ErrType.raise("not enough arguments for format string")
			}

			arg = items[next]
			next++
		}

		s, err := percentConv(arg, flags, conv)
		if err != nil {
			return "", err
		}

		b.WriteString(s)
	}

	if dict == nil && next < len(items) {
		return "", ErrType.raise("not all arguments converted during string formatting")
	}

	return b.String(), nil
}

// percentConv renders one printf-style conversion by translating it to a
// format spec.
func percentConv(arg Value, flags string, conv byte) (string, error) {
	var spec strings.Builder

	left := strings.Contains(flags, "-")
	digits := strings.TrimLeft(flags, "-+ #0")

	switch {
	case left:
		spec.WriteByte('<')
	case strings.Contains(flags, "0") && strings.IndexByte("dioxXeEfFgG", conv) >= 0 &&
		strings.Index(flags, "0") < len(flags)-len(digits):
		spec.WriteString("0=")
	default:
		spec.WriteByte('>')
	}

	for _, f := range "+ #" {
		if strings.ContainsRune(flags[:len(flags)-len(digits)], f) {
			spec.WriteRune(f)
		}
	}

	spec.WriteString(digits)

	switch conv {
	case 's':
		return FormatValue(Str(arg), spec.String())
	case 'r', 'a':
		return FormatValue(Repr(arg), spec.String())
	case 'i', 'u':
		conv = 'd'
	}

	if strings.IndexByte("dxXofFeEgGc", conv) < 0 {
		return "", ErrValue.raise(fmt.Sprintf(
			"unsupported format character '%c' (0x%x)", conv, conv))
	}

	if _, ok := asNumber(arg); !ok {
		if _, ok := arg.(string); !ok || conv != 'c' {
			return "", ErrType.raise(fmt.Sprintf(
				"%%%c format: a real number is required, not %s", conv, TypeName(arg)))
		}

		return FormatValue(arg, spec.String())
	}

	if conv == 'd' {
		if f, ok := arg.(float64); ok {
			arg = int64(math.Trunc(f))
		}
	}

	spec.WriteByte(conv)

	return FormatValue(arg, spec.String())
}

// strFormat implements str.format: {} and {n} positional fields, {name}
// keyword fields, optional [index] lookups, !r/!s conversions and :spec,
// which may itself contain nested fields.
func strFormat(format string, args []Value, kw map[string]Value) (string, error) {
	var b strings.Builder

	auto := 0

	for i := 0; i < len(format); i++ {
		c := format[i]

		switch {
		case c == '{' && strings.HasPrefix(format[i:], "{{"):
			b.WriteByte('{')
			i++

			continue
		case c == '}' && strings.HasPrefix(format[i:], "}}"):
			b.WriteByte('}')
			i++

			continue
		case c != '{':
			b.WriteByte(c)

			continue
		}

		f, ok := scanField(format, i+1)
		if !ok {
			return "", ErrValue.raise("Single '{' encountered in format string")
		}

		name := format[i+1 : f.exprEnd]

		v, err := formatField(name, args, kw, &auto)
		if err != nil {
			return "", err
		}

		switch f.conv {
		case 'r', 'a':
			v = Repr(v)
		case 's':
			v = Str(v)
		}

		spec := ""
		if f.specStart >= 0 {
			if spec, err = strFormat(format[f.specStart:f.close], args, kw); err != nil {
				return "", err
			}
		}

		s, err := FormatValue(v, spec)
		if err != nil {
			return "", err
		}

		b.WriteString(s)

		i = f.close
	}

	return b.String(), nil
}

// formatField resolves the field name of one str.format replacement field.
func formatField(name string, args []Value, kw map[string]Value, auto *int) (Value, error) {
	head, rest := name, ""
	if k := strings.IndexAny(name, ".["); k >= 0 {
		head, rest = name[:k], name[k:]
	}

	var v Value

	switch n, err := strconv.Atoi(head); {
	case head == "":
		if *auto >= len(args) {
			return nil, ErrIndex.raise(fmt.Sprintf(
				"Replacement index %d out of range for positional args tuple", *auto))
		}

		v = args[*auto]
		*auto++
	case err == nil:
		if n >= len(args) {
			return nil, ErrIndex.raise(fmt.Sprintf(
				"Replacement index %d out of range for positional args tuple", n))
		}

		v = args[n]
	default:
		kv, ok := kw[head]
		if !ok {
			return nil, ErrKey.raise(quote(head))
		}

		v = kv
	}

	for rest != "" {
		if rest[0] != '[' {
			// attribute lookups have nothing to resolve against
			return Unset, nil
		}

		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, ErrValue.raise("Missing ']' in format string")
		}

		key := rest[1:end]
		rest = rest[end+1:]

		var k Value = key
		if n, err := strconv.ParseInt(key, 10, 64); err == nil {
			k = n
		}

		var err error
		if v, err = subscript(v, k); err != nil {
			return nil, err
		}
	}

	return v, nil
}
