package lang

import (
	"fmt"
	"math"
	"math/bits"
	"slices"
	"strconv"
	"strings"
)

// asNumber returns v as int64 or float64 when it is a number or bool.
func asNumber(v Value) (Value, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1), true
		}

		return int64(0), true
	case int64, float64:
		return x, true
	}

	return nil, false
}

// toFloat converts a number or bool to float64.
func toFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}

		return 0, true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}

	return 0, false
}

// toInt converts an int or bool to int64.
func toInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}

		return 0, true
	case int64:
		return x, true
	}

	return 0, false
}

func addInt(a, b int64) (int64, bool) {
	s := a + b

	return s, (s > a) == (b > 0)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}

	hi, lo := bits.Mul64(uint64(absInt(a)), uint64(absInt(b)))
	if hi != 0 || lo > math.MaxInt64 || a == math.MinInt64 || b == math.MinInt64 {
		return 0, false
	}

	p := int64(lo)
	if (a < 0) != (b < 0) {
		p = -p
	}

	return p, true
}

func absInt(a int64) int64 {
	if a < 0 {
		return -a
	}

	return a
}

// floorDiv and floorMod follow the sign of the divisor.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}

	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}

	return m
}

func floatMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}

	return m
}

func divZero() error { return ErrZeroDivision.raise("division by zero") }

func unsupported(op string, a, b Value) error {
	return ErrType.raise(fmt.Sprintf(
		"unsupported operand type(s) for %s: '%s' and '%s'",
		op, TypeName(a), TypeName(b),
	))
}

// binaryOp applies an arithmetic or bitwise operator.
func binaryOp(op string, a, b Value) (Value, error) {
	switch op {
	case "+":
		return add(a, b)
	case "*":
		if v, ok, err := repeat(a, b); ok || err != nil {
			return v, err
		}
	case "%":
		if s, ok := a.(string); ok {
			r, err := percentFormat(s, b)
			if err != nil {
				return nil, err
			}

			return r, nil
		}
	case "-", "&", "|", "^":
		if sa, ok := a.(*Set); ok {
			if sb, ok := b.(*Set); ok {
				return setOp(op, sa, sb)
			}
		}
	}

	x, okA := asNumber(a)
	y, okB := asNumber(b)

	if !okA || !okB {
		return nil, unsupported(op, a, b)
	}

	ia, intA := x.(int64)
	ib, intB := y.(int64)

	if intA && intB {
		return intOp(op, ia, ib)
	}

	switch op {
	case "&", "|", "^", "<<", ">>":
		return nil, unsupported(op, a, b)
	}

	fa, _ := toFloat(x)
	fb, _ := toFloat(y)

	return floatOp(op, fa, fb)
}

func add(a, b Value) (Value, error) {
	_, strA := a.(string)
	_, strB := b.(string)

	if strA || strB {
		return Str(a) + Str(b), nil
	}

	if la, ok := a.(*List); ok {
		if lb, ok := b.(*List); ok && la.Tuple == lb.Tuple {
			items := make([]Value, 0, len(la.Items)+len(lb.Items))
			items = append(items, la.Items...)
			items = append(items, lb.Items...)

			return &List{Items: items, Tuple: la.Tuple}, nil
		}

		return nil, unsupported("+", a, b)
	}

	x, okA := asNumber(a)
	y, okB := asNumber(b)

	if !okA || !okB {
		return nil, unsupported("+", a, b)
	}

	if ia, ok := x.(int64); ok {
		if ib, ok := y.(int64); ok {
			if s, ok := addInt(ia, ib); ok {
				return s, nil
			}
		}
	}

	fa, _ := toFloat(x)
	fb, _ := toFloat(y)

	return fa + fb, nil
}

// maxSeqLen bounds the size of a sequence built by repetition.
const maxSeqLen = 1 << 26

func seqLen(v Value) (int, bool) {
	switch s := v.(type) {
	case string:
		return len(s), true
	case *List:
		return len(s.Items), true
	}

	return 0, false
}

// repeat handles str*n, n*str, list*n and n*list. A negative count yields
// an empty result.
func repeat(a, b Value) (Value, bool, error) {
	seq, count := a, b
	if _, ok := toInt(a); ok {
		seq, count = b, a
	}

	n, ok := toInt(count)

	if size, isSeq := seqLen(seq); isSeq && ok && n > 0 && size > 0 && n > maxSeqLen/int64(size) {
		return nil, true, ErrOverflow.raise("repeated sequence is too long")
	}

	switch s := seq.(type) {
	case string:
		if !ok {
			return nil, true, ErrType.raise(fmt.Sprintf(
				"can't multiply sequence by non-int of type '%s'", TypeName(count)))
		}

		return strings.Repeat(s, int(max(0, n))), true, nil

	case *List:
		if !ok {
			return nil, true, ErrType.raise(fmt.Sprintf(
				"can't multiply sequence by non-int of type '%s'", TypeName(count)))
		}

		items := make([]Value, 0, len(s.Items)*int(max(0, n)))
		for range max(0, n) {
			items = append(items, s.Items...)
		}

		return &List{Items: items, Tuple: s.Tuple}, true, nil
	}

	return nil, false, nil
}

func intOp(op string, a, b int64) (Value, error) {
	switch op {
	case "-":
		if b != math.MinInt64 {
			if s, ok := addInt(a, -b); ok {
				return s, nil
			}
		}

		return float64(a) - float64(b), nil
	case "*":
		if p, ok := mulInt(a, b); ok {
			return p, nil
		}

		return float64(a) * float64(b), nil
	case "/":
		if b == 0 {
			return nil, divZero()
		}

		return float64(a) / float64(b), nil
	case "//":
		if b == 0 {
			return nil, divZero()
		}

		if a == math.MinInt64 && b == -1 {
			return -float64(a), nil
		}

		return floorDiv(a, b), nil
	case "%":
		if b == 0 {
			return nil, divZero()
		}

		if b == -1 {
			return int64(0), nil
		}

		return floorMod(a, b), nil
	case "**":
		return intPow(a, b)
	case "&":
		return a & b, nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "<<":
		if b < 0 {
			return nil, ErrValue.raise("negative shift count")
		}

		if b >= 63 || a<<b>>b != a {
			return float64(a) * math.Pow(2, float64(b)), nil
		}

		return a << b, nil
	case ">>":
		if b < 0 {
			return nil, ErrValue.raise("negative shift count")
		}

		return a >> min(b, 63), nil
	}

	return nil, unsupported(op, a, b)
}

func intPow(a, b int64) (Value, error) {
	if b < 0 {
		if a == 0 {
			return nil, ErrZeroDivision.raise("0.0 cannot be raised to a negative power")
		}

		return math.Pow(float64(a), float64(b)), nil
	}

	result, base := int64(1), a

	for e := b; e > 0; e >>= 1 {
		var ok bool

		if e&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return math.Pow(float64(a), float64(b)), nil
			}
		}

		if e > 1 {
			if base, ok = mulInt(base, base); !ok {
				return math.Pow(float64(a), float64(b)), nil
			}
		}
	}

	return result, nil
}

func floatOp(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, divZero()
		}

		return a / b, nil
	case "//":
		if b == 0 {
			return nil, divZero()
		}

		return math.Floor(a / b), nil
	case "%":
		if b == 0 {
			return nil, divZero()
		}

		return floatMod(a, b), nil
	case "**":
		if a == 0 && b < 0 {
			return nil, ErrZeroDivision.raise("0.0 cannot be raised to a negative power")
		}

		return math.Pow(a, b), nil
	}

	return nil, unsupported(op, a, b)
}

func setOp(op string, a, b *Set) (Value, error) {
	out, _ := NewSet()

	switch op {
	case "|":
		for _, v := range slices.Concat(a.Items(), b.Items()) {
			_ = out.Add(v)
		}
	case "&":
		for _, v := range a.Items() {
			if ok, _ := b.Has(v); ok {
				_ = out.Add(v)
			}
		}
	case "-":
		for _, v := range a.Items() {
			if ok, _ := b.Has(v); !ok {
				_ = out.Add(v)
			}
		}
	case "^":
		for _, v := range a.Items() {
			if ok, _ := b.Has(v); !ok {
				_ = out.Add(v)
			}
		}

		for _, v := range b.Items() {
			if ok, _ := a.Has(v); !ok {
				_ = out.Add(v)
			}
		}
	}

	return out, nil
}

// unaryOp applies a prefix operator.
func unaryOp(op string, v Value) (Value, error) {
	if op == "not" {
		return !Truthy(v), nil
	}

	n, ok := asNumber(v)
	if !ok {
		return nil, ErrType.raise(fmt.Sprintf(
			"bad operand type for unary %s: '%s'", op, TypeName(v)))
	}

	switch x := n.(type) {
	case int64:
		switch op {
		case "-":
			if x == math.MinInt64 {
				return -float64(x), nil
			}

			return -x, nil
		case "~":
			return ^x, nil
		}

		return x, nil
	case float64:
		switch op {
		case "-":
			return -x, nil
		case "~":
			return nil, ErrType.raise("bad operand type for unary ~: 'float'")
		}

		return x, nil
	}

	return v, nil
}

// Equal reports loose equality: numbers compare by value, a number equals a
// string holding the same number, and containers compare structurally.
// Lists never equal tuples.
func Equal(a, b Value) bool {
	return equal(a, b, 0)
}

func equal(a, b Value, depth int) bool {
	if depth > maxReprDepth {
		return false
	}

	if IsNone(a) || IsNone(b) {
		return IsNone(a) && IsNone(b)
	}

	if fa, ok := toFloat(a); ok {
		if ia, ok := toInt(a); ok {
			if ib, ok := toInt(b); ok {
				return ia == ib
			}
		}

		if fb, ok := toFloat(b); ok {
			return fa == fb
		}

		if s, ok := b.(string); ok {
			fb, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

			return err == nil && fa == fb
		}

		return false
	}

	switch x := a.(type) {
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case bool, int64, float64:
			return equal(b, a, depth)
		}

		return false

	case *List:
		y, ok := b.(*List)
		if !ok || x.Tuple != y.Tuple || len(x.Items) != len(y.Items) {
			return false
		}

		for i := range x.Items {
			if !equal(x.Items[i], y.Items[i], depth+1) {
				return false
			}
		}

		return true

	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}

		for k, v := range x.All() {
			w, found, err := y.Get(k)
			if err != nil || !found || !equal(v, w, depth+1) {
				return false
			}
		}

		return true

	case *Set:
		y, ok := b.(*Set)
		if !ok || x.Len() != y.Len() {
			return false
		}

		for _, v := range x.Items() {
			if has, _ := y.Has(v); !has {
				return false
			}
		}

		return true

	case *Range:
		y, ok := b.(*Range)
		if !ok || x.Len() != y.Len() {
			return false
		}

		return x.Len() == 0 || (x.Start == y.Start && (x.Len() == 1 || x.Step == y.Step))
	}

	return a == b
}

// compare orders a and b, returning -1, 0 or 1. Mixed types raise a
// TypeError naming op.
func compare(op string, a, b Value) (int, error) {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			ia, intA := toInt(a)
			ib, intB := toInt(b)

			switch {
			case intA && intB:
				return cmpInt(ia, ib), nil
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}

			return 0, nil
		}
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}

	case *List:
		if y, ok := b.(*List); ok && x.Tuple == y.Tuple {
			for i := range min(len(x.Items), len(y.Items)) {
				if equal(x.Items[i], y.Items[i], 0) {
					continue
				}

				return compare(op, x.Items[i], y.Items[i])
			}

			return cmpInt(int64(len(x.Items)), int64(len(y.Items))), nil
		}

	case *Set:
		if y, ok := b.(*Set); ok {
			return compareSets(x, y), nil
		}
	}

	return 0, ErrType.raise(fmt.Sprintf(
		"'%s' not supported between instances of '%s' and '%s'",
		op, TypeName(a), TypeName(b),
	))
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

// compareSets orders sets by inclusion; incomparable sets report 2.
func compareSets(a, b *Set) int {
	sub := func(x, y *Set) bool {
		for _, v := range x.Items() {
			if ok, _ := y.Has(v); !ok {
				return false
			}
		}

		return true
	}

	switch ab, ba := sub(a, b), sub(b, a); {
	case ab && ba:
		return 0
	case ab:
		return -1
	case ba:
		return 1
	}

	return 2
}

// compareOp evaluates one comparison operator.
func compareOp(op string, a, b Value) (bool, error) {
	switch op {
	case "==":
		return Equal(a, b), nil
	case "!=":
		return !Equal(a, b), nil
	case "in":
		return contains(b, a)
	case "not in":
		ok, err := contains(b, a)

		return !ok, err
	case "is":
		return identical(a, b), nil
	case "is not":
		return !identical(a, b), nil
	}

	c, err := compare(op, a, b)
	if err != nil {
		return false, err
	}

	if c == 2 {
		return false, nil
	}

	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}

	return false, unsupported(op, a, b)
}

// identical implements "is".
func identical(a, b Value) bool {
	if IsNone(a) || IsNone(b) {
		return IsNone(a) && IsNone(b)
	}

	return a == b
}

// contains implements "item in container".
func contains(container, item Value) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, ErrType.raise(fmt.Sprintf(
				"'in <string>' requires string as left operand, not %s", TypeName(item)))
		}

		return strings.Contains(c, s), nil

	case *List:
		return slices.ContainsFunc(c.Items, func(v Value) bool { return Equal(v, item) }), nil

	case *Dict:
		_, ok, err := c.Get(item)

		return ok, err

	case *Set:
		return c.Has(item)

	case *Range:
		n, ok := toInt(item)
		if !ok {
			f, isNum := item.(float64)
			if !isNum || f != math.Trunc(f) {
				return false, nil
			}

			n = int64(f)
		}

		if c.Len() == 0 || (n-c.Start)%c.Step != 0 {
			return false, nil
		}

		i := (n - c.Start) / c.Step

		return i >= 0 && i < int64(c.Len()), nil
	}

	return false, ErrType.raise(fmt.Sprintf(
		"argument of type '%s' is not iterable", TypeName(container)))
}
