package lang

import "iter"

// StmtKind identifies the form of a statement node.
type StmtKind uint8

// Statement kinds.
const (
	StmtExpr      StmtKind = iota // expr
	StmtAssign                    // assign
	StmtAugAssign                 // augassign
	StmtDef                       // def
	StmtIf                        // if
	StmtFor                       // for
	StmtWhile                     // while
	StmtReturn                    // return
	StmtBreak                     // break
	StmtContinue                  // continue
	StmtPass                      // pass
	StmtDel                       // del
	StmtRaw                       // raw
)

var stmtKindNames = [...]string{
	StmtExpr:      "expr",
	StmtAssign:    "assign",
	StmtAugAssign: "augassign",
	StmtDef:       "def",
	StmtIf:        "if",
	StmtFor:       "for",
	StmtWhile:     "while",
	StmtReturn:    "return",
	StmtBreak:     "break",
	StmtContinue:  "continue",
	StmtPass:      "pass",
	StmtDel:       "del",
	StmtRaw:       "raw",
}

// String returns the lowercase statement kind name.
func (k StmtKind) String() string {
	if int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}

	return "unknown"
}

// Suite is an ordered list of statement indices into [Program.Stmts].
type Suite []int

// Program is a parsed source: a flat arena of statements plus the top-level
// suite. Compound statements refer to their bodies by arena index, so
// executing a loop revisits nodes instead of re-reading source text.
type Program struct {
	Source string   // original source text
	Lines  []string // physical source lines
	Stmts  []Stmt   // statement arena
	Body   Suite    // top-level statements
}

// Stmt is one statement node.
//
// Field use by kind:
//
//	Expr       Value
//	Assign     Targets (one per "="), Value
//	AugAssign  Targets[0], Op, Value
//	Def        Name, Params, Body
//	If         Branches (if and elif), Else
//	For        Targets[0], Value (iterable), Body, Else
//	While      Value (condition), Body, Else
//	Return     Value (nil for a bare return)
//	Del        Targets
//	Raw        Source; Body holds the skipped block, if any
type Stmt struct {
	Kind     StmtKind
	Line     int    // 1-based first physical line
	Indent   int    // indentation column of the header
	Source   string // trimmed logical line text
	Targets  []Expr
	Op       string
	Value    Expr
	Name     string
	Params   []Param
	Branches []Branch
	Body     Suite
	Else     Suite
}

// Branch is one conditional arm of an if statement.
type Branch struct {
	Cond Expr
	Body Suite
}

// Param is a function or lambda parameter.
type Param struct {
	Name    string
	Default Expr // nil when the parameter has no default
	Star    int  // 1 for *args, 2 for **kwargs
}

// Stmt returns the statement at arena index i.
func (p *Program) Stmt(i int) *Stmt { return &p.Stmts[i] }

// All returns an iterator over the statements of a suite, depth first,
// yielding each statement with its nesting depth.
func (p *Program) All() iter.Seq2[int, *Stmt] {
	return func(yield func(int, *Stmt) bool) {
		p.walk(p.Body, 0, yield)
	}
}

func (p *Program) walk(s Suite, depth int, yield func(int, *Stmt) bool) bool {
	for _, i := range s {
		st := &p.Stmts[i]
		if !yield(depth, st) {
			return false
		}

		for _, br := range st.Branches {
			if !p.walk(br.Body, depth+1, yield) {
				return false
			}
		}

		if !p.walk(st.Body, depth+1, yield) || !p.walk(st.Else, depth+1, yield) {
			return false
		}
	}

	return true
}

// Expr is an expression node.
type Expr interface{ exprNode() }

type (
	// Const is a literal None, bool, int, float or string.
	Const struct{ Value Value }

	// Name is an identifier reference.
	Name struct{ ID string }

	// Raw is text that did not parse as an expression. It evaluates to
	// itself as a string.
	Raw struct{ Text string }

	// FString is an f-string literal.
	FString struct{ Parts []FPart }

	// ListExpr is a list display.
	ListExpr struct{ Elts []Expr }

	// TupleExpr is a tuple display or a bare comma list.
	TupleExpr struct{ Elts []Expr }

	// SetExpr is a set display.
	SetExpr struct{ Elts []Expr }

	// DictExpr is a dict display. A nil key marks a **mapping splat.
	DictExpr struct{ Keys, Values []Expr }

	// Comp is a list, set or dict comprehension or a generator expression.
	Comp struct {
		Kind    CompKind
		Elt     Expr // element, or key for dict comprehensions
		Val     Expr // value for dict comprehensions
		Clauses []CompFor
	}

	// BinOp is an arithmetic or bitwise binary operation.
	BinOp struct {
		Op   string
		L, R Expr
	}

	// Unary is a prefix operation: "-", "+", "~" or "not".
	Unary struct {
		Op string
		X  Expr
	}

	// BoolOp is a short-circuit "and" or "or".
	BoolOp struct {
		Op   string
		L, R Expr
	}

	// Compare is a comparison chain: First Ops[0] Rest[0] Ops[1] Rest[1] ...
	Compare struct {
		First Expr
		Ops   []string
		Rest  []Expr
	}

	// IfExp is a conditional expression.
	IfExp struct{ Cond, Then, Else Expr }

	// Call is a call expression.
	Call struct {
		Fn   Expr
		Args []Arg
	}

	// Attr is attribute access: X.Name.
	Attr struct {
		X    Expr
		Name string
	}

	// Index is a subscript: X[Key]. Key is a *SliceExpr for slicing.
	Index struct{ X, Key Expr }

	// SliceExpr is lo:hi:step inside a subscript. Missing parts are nil.
	SliceExpr struct{ Lo, Hi, Step Expr }

	// Lambda is an anonymous function.
	Lambda struct {
		Params []Param
		Body   Expr
	}

	// Starred is *X in a call argument list, display or assignment target.
	Starred struct{ X Expr }
)

// FPart is one segment of an f-string: literal text, or a replacement field
// with an optional conversion ('r', 's' or 'a') and format spec.
type FPart struct {
	Lit  string
	Expr Expr
	Conv byte
	Spec *FString
}

// Arg is a call argument. Name is set for keyword arguments; Star is 1 for
// *iterable and 2 for **mapping.
type Arg struct {
	Name  string
	Value Expr
	Star  int
}

// CompFor is one "for TARGET in ITER [if COND]..." clause.
type CompFor struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

// CompKind distinguishes comprehension forms.
type CompKind uint8

// Comprehension kinds.
const (
	CompList CompKind = iota
	CompSet
	CompDict
	CompGen
)

func (*Const) exprNode()     {}
func (*Name) exprNode()      {}
func (*Raw) exprNode()       {}
func (*FString) exprNode()   {}
func (*ListExpr) exprNode()  {}
func (*TupleExpr) exprNode() {}
func (*SetExpr) exprNode()   {}
func (*DictExpr) exprNode()  {}
func (*Comp) exprNode()      {}
func (*BinOp) exprNode()     {}
func (*Unary) exprNode()     {}
func (*BoolOp) exprNode()    {}
func (*Compare) exprNode()   {}
func (*IfExp) exprNode()     {}
func (*Call) exprNode()      {}
func (*Attr) exprNode()      {}
func (*Index) exprNode()     {}
func (*SliceExpr) exprNode() {}
func (*Lambda) exprNode()    {}
func (*Starred) exprNode()   {}
