package lang

import (
	"fmt"
	"log/slog"
)

// Diagnostics appended when a loop exceeds the iteration cap.
const (
	WhileLimitMessage = "⚠️ Infinite loop detected"
	ForLimitMessage   = "⚠️ Execution limit reached"
)

// flow is how a statement left its suite.
type flow uint8

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// execSuite runs the statements of s in order until one transfers control.
func (in *interp) execSuite(prog *Program, s Suite, env *Env) (flow, error) {
	for _, i := range s {
		st := prog.Stmt(i)

		fl, err := in.exec(prog, st, env)
		if err != nil {
			return flowNext, atLine(err, st.Line)
		}

		if fl != flowNext {
			return fl, nil
		}
	}

	return flowNext, nil
}

func (in *interp) exec(prog *Program, st *Stmt, env *Env) (flow, error) {
	if err := in.tick(); err != nil {
		return flowNext, err
	}

	switch st.Kind {
	case StmtExpr:
		v, err := in.eval(st.Value, env)
		if err != nil {
			return flowNext, err
		}

		if in.cfg.echo && in.depth == 0 && !IsNone(v) {
			in.out.Write(Repr(v) + "\n")
		}

	case StmtAssign:
		v, err := in.eval(st.Value, env)
		if err != nil {
			return flowNext, err
		}

		for _, t := range st.Targets {
			if err := in.assign(t, v, env); err != nil {
				return flowNext, err
			}
		}

	case StmtAugAssign:
		return flowNext, in.augAssign(st, env)

	case StmtDef:
		in.funcs[st.Name] = &Function{
			Name:   st.Name,
			Params: st.Params,
			Body:   st.Body,
			prog:   prog,
			env:    env,
		}

		in.cfg.logger.TraceContext(in.ctx, "define",
			slog.String("function", st.Name),
			slog.Int("params", len(st.Params)),
			slog.Int("line", st.Line),
		)

	case StmtIf:
		for _, br := range st.Branches {
			c, err := in.eval(br.Cond, env)
			if err != nil {
				return flowNext, err
			}

			if Truthy(c) {
				return in.execSuite(prog, br.Body, env)
			}
		}

		return in.execSuite(prog, st.Else, env)

	case StmtFor:
		return in.execFor(prog, st, env)

	case StmtWhile:
		return in.execWhile(prog, st, env)

	case StmtReturn:
		var v Value

		if st.Value != nil {
			var err error
			if v, err = in.eval(st.Value, env); err != nil {
				return flowNext, err
			}
		}

		env.Set(returnSlot, v)

		return flowReturn, nil

	case StmtBreak:
		return flowBreak, nil

	case StmtContinue:
		return flowContinue, nil

	case StmtDel:
		for _, t := range st.Targets {
			if err := in.del(t, env); err != nil {
				return flowNext, err
			}
		}

	case StmtRaw:
		in.cfg.logger.Debug("skipped statement",
			slog.Int("line", st.Line),
			slog.String("source", st.Source),
		)
	}

	return flowNext, nil
}

// loopBody runs one iteration and reports whether the loop must stop, and
// with which flow when it does.
func (in *interp) loopBody(prog *Program, st *Stmt, env *Env) (stop bool, fl flow, err error) {
	fl, err = in.execSuite(prog, st.Body, env)

	switch {
	case err != nil:
		return true, flowNext, err
	case fl == flowBreak:
		return true, flowBreak, nil
	case fl == flowReturn:
		return true, flowReturn, nil
	}

	return false, flowNext, nil
}

// limit records a loop that exceeded the iteration cap.
func (in *interp) limit(st *Stmt, msg string) {
	in.out.Diagnostic(msg)

	in.cfg.logger.TraceContext(in.ctx, "loop stopped",
		slog.Any("error", ErrLimit.With(
			slog.String("loop", st.Kind.String()),
			slog.Int("line", st.Line),
			slog.Int("cap", in.cfg.maxIter),
		)),
	)
}

func (in *interp) execFor(prog *Program, st *Stmt, env *Env) (flow, error) {
	src, err := in.eval(st.Value, env)
	if err != nil {
		return flowNext, err
	}

	seq, ok := iterate(src)
	if !ok {
		in.cfg.logger.TraceContext(in.ctx, "loop skipped",
			slog.Int("line", st.Line),
			slog.String("type", TypeName(src)),
		)

		return flowNext, nil
	}

	n := 0

	for v := range seq {
		if n++; n > in.cfg.maxIter {
			in.limit(st, ForLimitMessage)

			return flowNext, nil
		}

		if err := in.bindLoop(st.Targets[0], v, env); err != nil {
			return flowNext, err
		}

		stop, fl, err := in.loopBody(prog, st, env)
		if stop {
			if fl == flowBreak {
				fl = flowNext
			}

			return fl, err
		}
	}

	return in.execSuite(prog, st.Else, env)
}

func (in *interp) execWhile(prog *Program, st *Stmt, env *Env) (flow, error) {
	for n := 1; ; n++ {
		c, err := in.eval(st.Value, env)
		if err != nil {
			return flowNext, err
		}

		if !Truthy(c) {
			break
		}

		if n > in.cfg.maxIter {
			in.limit(st, WhileLimitMessage)

			return flowNext, nil
		}

		stop, fl, err := in.loopBody(prog, st, env)
		if stop {
			if fl == flowBreak {
				fl = flowNext
			}

			return fl, err
		}
	}

	return in.execSuite(prog, st.Else, env)
}

// bindLoop binds a for-loop or comprehension target. A tuple target given
// a value that is not a sequence binds the value to its first name only.
func (in *interp) bindLoop(target Expr, v Value, env *Env) error {
	var elts []Expr

	switch t := target.(type) {
	case *TupleExpr:
		elts = t.Elts
	case *ListExpr:
		elts = t.Elts
	default:
		return in.assign(target, v, env)
	}

	// the remaining names keep whatever they were bound to
	if _, ok := iterate(v); !ok && len(elts) > 0 {
		return in.assign(elts[0], v, env)
	}

	return in.assign(target, v, env)
}

// assign binds v to a target: a name, a subscript, or a tuple or list of
// targets with at most one starred entry.
func (in *interp) assign(target Expr, v Value, env *Env) error {
	switch t := target.(type) {
	case *Name:
		env.Set(t.ID, v)

		return nil

	case *TupleExpr:
		return in.unpack(t.Elts, v, env)

	case *ListExpr:
		return in.unpack(t.Elts, v, env)

	case *Starred:
		return in.assign(t.X, v, env)

	case *Index:
		recv, err := in.eval(t.X, env)
		if err != nil {
			return err
		}

		if sl, ok := t.Key.(*SliceExpr); ok {
			lo, hi, step, err := in.sliceArgs(sl, env)
			if err != nil {
				return err
			}

			return setSlice(recv, lo, hi, step, v)
		}

		key, err := in.eval(t.Key, env)
		if err != nil {
			return err
		}

		return setItem(recv, key, v)
	}

	in.cfg.logger.Debug("ignored assignment target",
		slog.String("target", fmt.Sprintf("%T", target)))

	return nil
}

// unpack binds the items of v to a tuple or list of targets. Missing items
// bind [Unset] and surplus items are dropped; a value that is not iterable
// binds nothing.
func (in *interp) unpack(elts []Expr, v Value, env *Env) error {
	items, err := toSlice(v)
	if err != nil {
		in.cfg.logger.DebugContext(in.ctx, "ignored unpack",
			slog.String("type", TypeName(v)))

		return nil
	}

	star := -1

	for i, e := range elts {
		if _, ok := e.(*Starred); ok {
			star = i
		}
	}

	if star < 0 {
		for i, e := range elts {
			item := Unset
			if i < len(items) {
				item = items[i]
			}

			if err := in.assign(e, item, env); err != nil {
				return err
			}
		}

		return nil
	}

	after := len(elts) - star - 1
	for len(items) < star+after {
		items = append(items, Unset)
	}

	for i := range star {
		if err := in.assign(elts[i], items[i], env); err != nil {
			return err
		}
	}

	rest := items[star : len(items)-after]
	if err := in.assign(elts[star], NewList(append([]Value(nil), rest...)...), env); err != nil {
		return err
	}

	for i := range after {
		if err := in.assign(elts[star+1+i], items[len(items)-after+i], env); err != nil {
			return err
		}
	}

	return nil
}

// augAssign applies x op= v. An unbound name or missing item counts as 0,
// and list += iterable extends the list in place.
func (in *interp) augAssign(st *Stmt, env *Env) error {
	v, err := in.eval(st.Value, env)
	if err != nil {
		return err
	}

	var (
		cur   Value
		store func(Value) error
	)

	switch t := st.Targets[0].(type) {
	case *Name:
		var ok bool
		if cur, ok = env.Lookup(t.ID); !ok {
			cur = int64(0)
		}

		store = func(r Value) error {
			env.Set(t.ID, r)

			return nil
		}

	case *Index:
		recv, err := in.eval(t.X, env)
		if err != nil {
			return err
		}

		key, err := in.eval(t.Key, env)
		if err != nil {
			return err
		}

		if cur, err = subscript(recv, key); err != nil {
			return err
		}

		store = func(r Value) error { return setItem(recv, key, r) }

	default:
		return in.assign(st.Targets[0], v, env)
	}

	if _, ok := cur.(unset); ok {
		cur = int64(0)
	}

	if l, ok := cur.(*List); ok && !l.Tuple && st.Op == "+" {
		more, err := toSlice(v)
		if err != nil {
			return err
		}

		l.Items = append(l.Items, more...)

		return store(l)
	}

	r, err := binaryOp(st.Op, cur, v)
	if err != nil {
		return err
	}

	return store(r)
}

func (in *interp) del(target Expr, env *Env) error {
	switch t := target.(type) {
	case *Name:
		env.Delete(t.ID)

	case *TupleExpr:
		for _, e := range t.Elts {
			if err := in.del(e, env); err != nil {
				return err
			}
		}

	case *Index:
		recv, err := in.eval(t.X, env)
		if err != nil {
			return err
		}

		if sl, ok := t.Key.(*SliceExpr); ok {
			lo, hi, step, err := in.sliceArgs(sl, env)
			if err != nil {
				return err
			}

			return delSlice(recv, lo, hi, step)
		}

		key, err := in.eval(t.Key, env)
		if err != nil {
			return err
		}

		return delItem(recv, key)
	}

	return nil
}

func immutable(v Value, what string) error {
	return ErrType.raise(fmt.Sprintf(
		"'%s' object does not support item %s", TypeName(v), what))
}

// setItem implements container[key] = v.
func setItem(recv, key, v Value) error {
	switch x := recv.(type) {
	case *Dict:
		return x.Set(key, v)

	case *List:
		if x.Tuple {
			return immutable(recv, "assignment")
		}

		i, ok, err := index(key, len(x.Items), "list")
		if err != nil {
			return err
		}

		if !ok {
			return ErrIndex.raise("list assignment index out of range")
		}

		x.Items[i] = v

		return nil
	}

	return immutable(recv, "assignment")
}

// setSlice implements list[lo:hi:step] = iterable.
func setSlice(recv, lo, hi, step, v Value) error {
	l, ok := recv.(*List)
	if !ok || l.Tuple {
		return immutable(recv, "assignment")
	}

	items, err := toSlice(v)
	if err != nil {
		return ErrType.raise("can only assign an iterable")
	}

	idx, err := sliceIndices(len(l.Items), lo, hi, step)
	if err != nil {
		return err
	}

	if st, _ := toInt(step); !IsNone(step) && st != 1 {
		if len(idx) != len(items) {
			return ErrValue.raise(fmt.Sprintf(
				"attempt to assign sequence of size %d to extended slice of size %d",
				len(items), len(idx)))
		}

		for j, i := range idx {
			l.Items[i] = items[j]
		}

		return nil
	}

	start, stop := 0, 0
	if len(idx) > 0 {
		start, stop = idx[0], idx[len(idx)-1]+1
	} else {
		s, _ := sliceIndices(len(l.Items), lo, nil, nil)
		start = len(l.Items)
		if len(s) > 0 {
			start = s[0]
		}

		stop = start
	}

	out := make([]Value, 0, len(l.Items)-(stop-start)+len(items))
	out = append(out, l.Items[:start]...)
	out = append(out, items...)
	out = append(out, l.Items[stop:]...)
	l.Items = out

	return nil
}

// delItem implements del container[key]. Missing keys are ignored.
func delItem(recv, key Value) error {
	switch x := recv.(type) {
	case *Dict:
		_, _, err := x.Delete(key)

		return err

	case *List:
		if x.Tuple {
			return immutable(recv, "deletion")
		}

		i, ok, err := index(key, len(x.Items), "list")
		if err != nil || !ok {
			return err
		}

		x.Items = append(x.Items[:i], x.Items[i+1:]...)

		return nil
	}

	return immutable(recv, "deletion")
}

func delSlice(recv, lo, hi, step Value) error {
	l, ok := recv.(*List)
	if !ok || l.Tuple {
		return immutable(recv, "deletion")
	}

	idx, err := sliceIndices(len(l.Items), lo, hi, step)
	if err != nil {
		return err
	}

	drop := make(map[int]bool, len(idx))
	for _, i := range idx {
		drop[i] = true
	}

	out := l.Items[:0]

	for i, it := range l.Items {
		if !drop[i] {
			out = append(out, it)
		}
	}

	clear(l.Items[len(out):])
	l.Items = out

	return nil
}
