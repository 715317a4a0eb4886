package lang

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// interp is the state of one run: the global frame, the function registry
// and the output buffer, plus bookkeeping for call depth and cancellation.
type interp struct {
	cfg     config
	ctx     context.Context
	globals *Env
	funcs   map[string]*Function
	out     *Output
	env     *Env // frame of the innermost builtin call
	depth   int
	steps   uint
}

func newInterp(cfg config) *interp {
	return &interp{
		cfg:     cfg,
		ctx:     context.Background(),
		globals: NewEnv(nil),
		funcs:   map[string]*Function{},
		out:     &Output{},
	}
}

// tick polls for cancellation every so often.
func (in *interp) tick() error {
	in.steps++
	if in.steps%1024 != 1 {
		return nil
	}

	if err := in.ctx.Err(); err != nil {
		return ErrCanceled.Wrap(context.Cause(in.ctx))
	}

	return nil
}

func (in *interp) eval(e Expr, env *Env) (Value, error) {
	switch x := e.(type) {
	case nil:
		return nil, nil

	case *Const:
		return x.Value, nil

	case *Name:
		return in.lookup(x.ID, env), nil

	case *Raw:
		return strings.TrimSpace(x.Text), nil

	case *FString:
		return in.fstring(x, env)

	case *ListExpr:
		items, err := in.elements(x.Elts, env)
		if err != nil {
			return nil, err
		}

		return NewList(items...), nil

	case *TupleExpr:
		items, err := in.elements(x.Elts, env)
		if err != nil {
			return nil, err
		}

		return NewTuple(items...), nil

	case *SetExpr:
		items, err := in.elements(x.Elts, env)
		if err != nil {
			return nil, err
		}

		return NewSet(items...)

	case *DictExpr:
		return in.dict(x, env)

	case *Comp:
		return in.comprehension(x, env)

	case *BinOp:
		l, err := in.eval(x.L, env)
		if err != nil {
			return nil, err
		}

		r, err := in.eval(x.R, env)
		if err != nil {
			return nil, err
		}

		return binaryOp(x.Op, l, r)

	case *Unary:
		v, err := in.eval(x.X, env)
		if err != nil {
			return nil, err
		}

		return unaryOp(x.Op, v)

	case *BoolOp:
		l, err := in.eval(x.L, env)
		if err != nil {
			return nil, err
		}

		if Truthy(l) == (x.Op == "or") {
			return l, nil
		}

		r, err := in.eval(x.R, env)
		if err != nil {
			return nil, err
		}

		// or without a truthy operand is False, not the last operand
		if x.Op == "or" && !Truthy(r) {
			return false, nil
		}

		return r, nil

	case *Compare:
		return in.compare(x, env)

	case *IfExp:
		c, err := in.eval(x.Cond, env)
		if err != nil {
			return nil, err
		}

		if Truthy(c) {
			return in.eval(x.Then, env)
		}

		return in.eval(x.Else, env)

	case *Call:
		return in.evalCall(x, env)

	case *Attr:
		recv, err := in.eval(x.X, env)
		if err != nil {
			return nil, err
		}

		return in.attribute(recv, x.Name), nil

	case *Index:
		recv, err := in.eval(x.X, env)
		if err != nil {
			return nil, err
		}

		if sl, ok := x.Key.(*SliceExpr); ok {
			lo, hi, step, err := in.sliceArgs(sl, env)
			if err != nil {
				return nil, err
			}

			return slice(recv, lo, hi, step)
		}

		key, err := in.eval(x.Key, env)
		if err != nil {
			return nil, err
		}

		return subscript(recv, key)

	case *Lambda:
		return &Function{Name: "<lambda>", Params: x.Params, Expr: x.Body, env: env}, nil

	case *Starred:
		return in.eval(x.X, env)
	}

	return Unset, nil
}

// lookup resolves a bare name: bindings first, then built-ins, then the
// function registry. Unbound names evaluate to [Unset].
func (in *interp) lookup(name string, env *Env) Value {
	if v, ok := env.Lookup(name); ok {
		return v
	}

	if b, ok := builtins()[name]; ok {
		return b
	}

	if fn, ok := in.funcs[name]; ok {
		return fn
	}

	in.cfg.logger.Debug("unbound name", slog.String("name", name))

	return Unset
}

// resolve finds the callee of NAME(...): built-ins, then a callable
// binding, then the function registry.
func (in *interp) resolve(name string, env *Env) Value {
	if b, ok := builtins()[name]; ok {
		return b
	}

	if v, ok := env.Lookup(name); ok && callable(v) {
		return v
	}

	if fn, ok := in.funcs[name]; ok {
		return fn
	}

	return in.lookup(name, env)
}

func callable(v Value) bool {
	switch v.(type) {
	case *Function, *Builtin:
		return true
	}

	return false
}

// elements evaluates list, tuple and set displays, expanding *starred items.
func (in *interp) elements(elts []Expr, env *Env) ([]Value, error) {
	items := make([]Value, 0, len(elts))

	for _, e := range elts {
		v, err := in.eval(e, env)
		if err != nil {
			return nil, err
		}

		if _, ok := e.(*Starred); ok {
			more, err := toSlice(v)
			if err != nil {
				return nil, err
			}

			items = append(items, more...)

			continue
		}

		items = append(items, v)
	}

	return items, nil
}

func (in *interp) dict(x *DictExpr, env *Env) (Value, error) {
	d := NewDict()

	for i, ke := range x.Keys {
		v, err := in.eval(x.Values[i], env)
		if err != nil {
			return nil, err
		}

		if ke == nil {
			src, ok := v.(*Dict)
			if !ok {
				return nil, ErrType.raise(fmt.Sprintf(
					"'%s' object is not a mapping", TypeName(v)))
			}

			for k, val := range src.All() {
				_ = d.Set(k, val)
			}

			continue
		}

		k, err := in.eval(ke, env)
		if err != nil {
			return nil, err
		}

		if err := d.Set(k, v); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// comprehension evaluates list, set, dict and generator comprehensions.
// Loop variables live in a frame of their own and do not leak.
func (in *interp) comprehension(c *Comp, env *Env) (Value, error) {
	frame := NewEnv(env)

	var (
		items []Value
		dict  *Dict
	)

	if c.Kind == CompDict {
		dict = NewDict()
	}

	err := in.compFor(c, 0, frame, func() error {
		k, err := in.eval(c.Elt, frame)
		if err != nil {
			return err
		}

		if dict == nil {
			items = append(items, k)

			return nil
		}

		v, err := in.eval(c.Val, frame)
		if err != nil {
			return err
		}

		return dict.Set(k, v)
	})
	if err != nil {
		return nil, err
	}

	switch c.Kind {
	case CompDict:
		return dict, nil
	case CompSet:
		return NewSet(items...)
	}

	return NewList(items...), nil
}

func (in *interp) compFor(c *Comp, i int, frame *Env, emit func() error) error {
	if i == len(c.Clauses) {
		return emit()
	}

	cl := c.Clauses[i]

	src, err := in.eval(cl.Iter, frame)
	if err != nil {
		return err
	}

	seq, ok := iterate(src)
	if !ok {
		return notIterable(src)
	}

next:
	for v := range seq {
		if err := in.tick(); err != nil {
			return err
		}

		if err := in.bindLoop(cl.Target, v, frame); err != nil {
			return err
		}

		for _, cond := range cl.Ifs {
			ok, err := in.eval(cond, frame)
			if err != nil {
				return err
			}

			if !Truthy(ok) {
				continue next
			}
		}

		if err := in.compFor(c, i+1, frame, emit); err != nil {
			return err
		}
	}

	return nil
}

func notIterable(v Value) error {
	return ErrType.raise(fmt.Sprintf("'%s' object is not iterable", TypeName(v)))
}

func (in *interp) compare(x *Compare, env *Env) (Value, error) {
	left, err := in.eval(x.First, env)
	if err != nil {
		return nil, err
	}

	for i, op := range x.Ops {
		right, err := in.eval(x.Rest[i], env)
		if err != nil {
			return nil, err
		}

		ok, err := compareOp(op, left, right)
		if err != nil {
			return nil, err
		}

		if !ok {
			return false, nil
		}

		left = right
	}

	return true, nil
}

// fstring renders an f-string. A field with a nested format spec renders
// the spec first, so {x:{w}} works.
func (in *interp) fstring(f *FString, env *Env) (Value, error) {
	var b strings.Builder

	for _, p := range f.Parts {
		if p.Expr == nil {
			b.WriteString(p.Lit)

			continue
		}

		b.WriteString(p.Lit)

		v, err := in.eval(p.Expr, env)
		if err != nil {
			return nil, err
		}

		switch p.Conv {
		case 'r', 'a':
			v = Repr(v)
		case 's':
			v = Str(v)
		}

		spec := ""

		if p.Spec != nil {
			sv, err := in.fstring(p.Spec, env)
			if err != nil {
				return nil, err
			}

			spec = sv.(string)
		}

		s, err := FormatValue(v, spec)
		if err != nil {
			return nil, err
		}

		b.WriteString(s)
	}

	return b.String(), nil
}

func (in *interp) evalCall(c *Call, env *Env) (Value, error) {
	if a, ok := c.Fn.(*Attr); ok {
		recv, err := in.eval(a.X, env)
		if err != nil {
			return nil, err
		}

		args, kw, err := in.arguments(c.Args, env)
		if err != nil {
			return nil, err
		}

		return in.callMethod(recv, a.Name, args, kw, env)
	}

	var (
		fn  Value
		err error
	)

	if n, ok := c.Fn.(*Name); ok {
		fn = in.resolve(n.ID, env)
	} else if fn, err = in.eval(c.Fn, env); err != nil {
		return nil, err
	}

	args, kw, err := in.arguments(c.Args, env)
	if err != nil {
		return nil, err
	}

	return in.callValue(fn, args, kw, env)
}

// arguments evaluates call arguments, expanding *iterable and **mapping.
func (in *interp) arguments(list []Arg, env *Env) ([]Value, map[string]Value, error) {
	var (
		args []Value
		kw   map[string]Value
	)

	for _, a := range list {
		v, err := in.eval(a.Value, env)
		if err != nil {
			return nil, nil, err
		}

		switch {
		case a.Star == 1:
			more, err := toSlice(v)
			if err != nil {
				return nil, nil, err
			}

			args = append(args, more...)

		case a.Star == 2:
			d, ok := v.(*Dict)
			if !ok {
				return nil, nil, ErrType.raise(fmt.Sprintf(
					"argument after ** must be a mapping, not %s", TypeName(v)))
			}

			for k, val := range d.All() {
				ks, ok := k.(string)
				if !ok {
					return nil, nil, ErrType.raise("keywords must be strings")
				}

				if kw == nil {
					kw = map[string]Value{}
				}

				kw[ks] = val
			}

		case a.Name != "":
			if kw == nil {
				kw = map[string]Value{}
			}

			kw[a.Name] = v

		default:
			args = append(args, v)
		}
	}

	return args, kw, nil
}

// callValue invokes a built-in or user function. Calling an unbound name is
// a no-op that yields [Unset]; calling any other value is a TypeError.
func (in *interp) callValue(fn Value, args []Value, kw map[string]Value, env *Env) (Value, error) {
	switch f := fn.(type) {
	case *Builtin:
		prev := in.env
		in.env = env

		defer func() { in.env = prev }()

		return f.fn(in, args, kw)

	case *Function:
		return in.callFunction(f, args, kw, env)

	case unset:
		in.cfg.logger.Debug("call of unbound name")

		return Unset, nil
	}

	return nil, ErrType.raise(fmt.Sprintf("'%s' object is not callable", TypeName(fn)))
}

// callFunction runs a user function. Under [ScopeCopy] the body executes in
// a flattened copy of the caller's bindings and defaults are evaluated in
// the caller; under [ScopeLexical] the frame's parent is the defining frame.
func (in *interp) callFunction(fn *Function, args []Value, kw map[string]Value, caller *Env) (Value, error) {
	if in.depth >= in.cfg.maxDepth {
		return nil, ErrRecursion.raise("maximum recursion depth exceeded")
	}

	in.depth++
	defer func() { in.depth-- }()

	var frame, defaults *Env

	switch {
	case in.cfg.scope == ScopeLexical || fn.Expr != nil:
		frame, defaults = NewEnv(fn.env), fn.env
	default:
		frame, defaults = caller.clone(), caller
		frame.Delete(returnSlot)
	}

	if err := in.bind(fn, frame, defaults, args, kw); err != nil {
		return nil, err
	}

	in.cfg.logger.TraceContext(in.ctx, "call",
		slog.String("function", fn.Name),
		slog.Int("args", len(args)),
		slog.Int("depth", in.depth),
	)

	if fn.Expr != nil {
		return in.eval(fn.Expr, frame)
	}

	if _, err := in.execSuite(fn.prog, fn.Body, frame); err != nil {
		return nil, err
	}

	if v, ok := frame.local(returnSlot); ok {
		return v, nil
	}

	return nil, nil
}

// bind assigns call arguments to parameters. Missing arguments take their
// default, or [Unset] when there is none; surplus positional arguments are
// dropped unless a *args parameter collects them.
func (in *interp) bind(fn *Function, frame, defaults *Env, args []Value, kw map[string]Value) error {
	used := 0

	for _, p := range fn.Params {
		switch p.Star {
		case 1:
			frame.Set(p.Name, NewTuple(slices.Clone(args[min(used, len(args)):])...))
			used = len(args)

			continue

		case 2:
			d := NewDict()

			for _, k := range slices.Sorted(maps.Keys(kw)) {
				_ = d.Set(k, kw[k])
			}

			kw = nil

			frame.Set(p.Name, d)

			continue
		}

		if v, ok := kw[p.Name]; ok {
			frame.Set(p.Name, v)
			delete(kw, p.Name)

			continue
		}

		if used < len(args) {
			frame.Set(p.Name, args[used])
			used++

			continue
		}

		if p.Default == nil {
			frame.Set(p.Name, Unset)

			continue
		}

		v, err := in.eval(p.Default, defaults)
		if err != nil {
			return err
		}

		frame.Set(p.Name, v)
	}

	for k := range kw {
		return ErrType.raise(fmt.Sprintf(
			"%s() got an unexpected keyword argument '%s'", fn.Name, k))
	}

	return nil
}

// attribute returns a bound method, or [Unset] for unknown attributes.
func (in *interp) attribute(recv Value, name string) Value {
	m, ok := findMethod(recv, name)
	if !ok {
		in.cfg.logger.Debug("unknown attribute",
			slog.String("type", TypeName(recv)),
			slog.String("name", name),
		)

		return Unset
	}

	return &Builtin{
		Name: name,
		Doc:  m.Doc,
		fn: func(in *interp, args []Value, kw map[string]Value) (Value, error) {
			return m.fn(in, recv, args, kw)
		},
	}
}

// callMethod invokes recv.name(args). Unknown methods yield [Unset].
func (in *interp) callMethod(recv Value, name string, args []Value, kw map[string]Value, env *Env) (Value, error) {
	m, ok := findMethod(recv, name)
	if !ok {
		in.cfg.logger.Debug("unknown method",
			slog.String("type", TypeName(recv)),
			slog.String("name", name),
		)

		return Unset, nil
	}

	prev := in.env
	in.env = env

	defer func() { in.env = prev }()

	return m.fn(in, recv, args, kw)
}

func (in *interp) sliceArgs(sl *SliceExpr, env *Env) (lo, hi, step Value, err error) {
	if lo, err = in.eval(sl.Lo, env); err != nil {
		return
	}

	if hi, err = in.eval(sl.Hi, env); err != nil {
		return
	}

	step, err = in.eval(sl.Step, env)

	return
}

// index normalizes a possibly negative index against n.
func index(key Value, n int, what string) (int, bool, error) {
	i, ok := toInt(key)
	if !ok {
		return 0, false, ErrType.raise(fmt.Sprintf(
			"%s indices must be integers or slices, not %s", what, TypeName(key)))
	}

	if i < 0 {
		i += int64(n)
	}

	if i < 0 || i >= int64(n) {
		return 0, false, nil
	}

	return int(i), true, nil
}

// subscript returns v[key]. Missing keys and out-of-range indices yield
// [Unset].
func subscript(v, key Value) (Value, error) {
	switch x := v.(type) {
	case *Dict:
		val, ok, err := x.Get(key)
		if err != nil || !ok {
			return Unset, err
		}

		return val, nil

	case string:
		runes := []rune(x)

		i, ok, err := index(key, len(runes), "string")
		if err != nil || !ok {
			return Unset, err
		}

		return string(runes[i]), nil

	case *List:
		what := "list"
		if x.Tuple {
			what = "tuple"
		}

		i, ok, err := index(key, len(x.Items), what)
		if err != nil || !ok {
			return Unset, err
		}

		return x.Items[i], nil

	case *Range:
		i, ok, err := index(key, x.Len(), "range object")
		if err != nil || !ok {
			return Unset, err
		}

		return x.At(i), nil
	}

	return nil, ErrType.raise(fmt.Sprintf("'%s' object is not subscriptable", TypeName(v)))
}

// sliceIndices returns the positions selected by lo:hi:step over a sequence
// of length n.
func sliceIndices(n int, lo, hi, step Value) ([]int, error) {
	st := int64(1)

	for _, b := range []Value{lo, hi, step} {
		if _, ok := toInt(b); !ok && !IsNone(b) {
			return nil, ErrType.raise("slice indices must be integers or None")
		}
	}

	if !IsNone(step) {
		st, _ = toInt(step)
		if st == 0 {
			return nil, ErrValue.raise("slice step cannot be zero")
		}
	}

	clamp := func(v Value, def int64) int64 {
		if IsNone(v) {
			return def
		}

		i, _ := toInt(v)
		if i < 0 {
			i += int64(n)
			if i < 0 {
				i = 0
				if st < 0 {
					i = -1
				}
			}
		} else if i >= int64(n) {
			i = int64(n)
			if st < 0 {
				i = int64(n) - 1
			}
		}

		return i
	}

	var start, stop int64
	if st > 0 {
		start, stop = clamp(lo, 0), clamp(hi, int64(n))
	} else {
		start, stop = clamp(lo, int64(n)-1), clamp(hi, -1)
		if IsNone(hi) {
			stop = -1
		}
	}

	var idx []int

	for i := start; (st > 0 && i < stop) || (st < 0 && i > stop); i += st {
		idx = append(idx, int(i))
	}

	return idx, nil
}

// slice returns v[lo:hi:step] for strings, lists, tuples and ranges.
func slice(v, lo, hi, step Value) (Value, error) {
	switch x := v.(type) {
	case string:
		runes := []rune(x)

		idx, err := sliceIndices(len(runes), lo, hi, step)
		if err != nil {
			return nil, err
		}

		out := make([]rune, len(idx))
		for j, i := range idx {
			out[j] = runes[i]
		}

		return string(out), nil

	case *List:
		idx, err := sliceIndices(len(x.Items), lo, hi, step)
		if err != nil {
			return nil, err
		}

		items := make([]Value, len(idx))
		for j, i := range idx {
			items[j] = x.Items[i]
		}

		return &List{Items: items, Tuple: x.Tuple}, nil

	case *Range:
		idx, err := sliceIndices(x.Len(), lo, hi, step)
		if err != nil {
			return nil, err
		}

		items := make([]Value, len(idx))
		for j, i := range idx {
			items[j] = x.At(i)
		}

		return NewList(items...), nil
	}

	return nil, ErrType.raise(fmt.Sprintf("'%s' object is not subscriptable", TypeName(v)))
}
