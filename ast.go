// ast.go — the parser boundary.
//
// The engine does not tokenize or parse phrasal source; an external parser
// hands it a well-formed Program built from the node types below. The engine
// trusts the tree's shape (it never re-validates grammar) but owns every
// runtime judgement about it: name resolution, arity, coercions, control flow.
//
// Two invocation statements share one evaluation path: WriteStmt prints the
// resulting value, CallStmt discards it. Everything else about them is
// identical, which is what makes the Write/Call alias property structural
// rather than tested-for.

package poh

// Program is an ordered sequence of statements, executed left to right.
type Program struct {
	Stmts []Stmt
}

// Stmt is a statement node. Statements execute for effect.
type Stmt interface{ stmt() }

// Expr is an expression node. Expressions evaluate to exactly one Value.
type Expr interface{ expr() }

// ---- statements -----------------------------------------------------------

// SetStmt declares or assigns a variable ("Set x to 5").
type SetStmt struct {
	Name  string
	Value Expr
}

// WriteStmt evaluates Expr and prints its rendering plus a newline.
type WriteStmt struct {
	Expr Expr
}

// CallStmt evaluates Expr for effect and discards the value.
type CallStmt struct {
	Expr Expr
}

// AskStmt reads one line from standard input and Set-binds it as Text.
type AskStmt struct {
	Name string
}

// IfStmt runs Then when Cond is truthy, otherwise Else (which may be nil).
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// WhileStmt runs Body while Cond stays truthy.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

// RepeatStmt runs Body Count times (numeric count, truncated toward zero).
type RepeatStmt struct {
	Count Expr
	Body  []Stmt
}

// FuncDefStmt binds a function value under Name in the current scope.
// Redefinition under the same name replaces the binding. Parameters with a
// default must trail every required parameter.
type FuncDefStmt struct {
	Name   string
	Params []Param
	Body   []Stmt
}

// Param is one declared parameter. Default is nil for required parameters.
type Param struct {
	Name    string
	Default Expr
}

// ReturnStmt leaves the current function with Value (Nothing when nil).
// At top level it ends the program.
type ReturnStmt struct {
	Value Expr
}

func (*SetStmt) stmt()     {}
func (*WriteStmt) stmt()   {}
func (*CallStmt) stmt()    {}
func (*AskStmt) stmt()     {}
func (*IfStmt) stmt()      {}
func (*WhileStmt) stmt()   {}
func (*RepeatStmt) stmt()  {}
func (*FuncDefStmt) stmt() {}
func (*ReturnStmt) stmt()  {}

// ---- expressions ----------------------------------------------------------

// NumberLit is a 64-bit float literal.
type NumberLit struct {
	Value float64
}

// TextLit is a string literal.
type TextLit struct {
	Value string
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

// NothingLit is the absence literal.
type NothingLit struct{}

// Ident resolves a name through the scope chain, innermost first.
type Ident struct {
	Name string
}

// BinOp enumerates the arithmetic operators.
type BinOp int

const (
	OpPlus BinOp = iota
	OpMinus
	OpTimes
	OpDividedBy
)

// BinExpr applies an arithmetic operator.
type BinExpr struct {
	Op          BinOp
	Left, Right Expr
}

// CmpOp enumerates the comparison operators.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// CmpExpr applies a comparison, yielding a Boolean.
type CmpExpr struct {
	Op          CmpOp
	Left, Right Expr
}

// AndExpr and OrExpr short-circuit on the left operand's truthiness and
// yield a Boolean.
type AndExpr struct {
	Left, Right Expr
}

type OrExpr struct {
	Left, Right Expr
}

// NotExpr negates its operand's truthiness.
type NotExpr struct {
	Operand Expr
}

// NegExpr is numeric negation.
type NegExpr struct {
	Operand Expr
}

// CallExpr invokes the function bound under Name with Args evaluated left
// to right in the caller's environment.
type CallExpr struct {
	Name string
	Args []Expr
}

// BuiltinExpr invokes a phrase-derived builtin ("count of", "join with", …)
// through the bridge table.
type BuiltinExpr struct {
	Name string
	Args []Expr
}

// ListLit builds a List from its element expressions.
type ListLit struct {
	Items []Expr
}

// DictEntry is one key/value pair of a dictionary literal. Keys are Text.
type DictEntry struct {
	Key   string
	Value Expr
}

// DictLit builds a Dictionary preserving entry order.
type DictLit struct {
	Entries []DictEntry
}

// IndexExpr reads Target[Key]: List by 0-based Number, Dictionary by Text.
type IndexExpr struct {
	Target Expr
	Key    Expr
}

func (*NumberLit) expr()   {}
func (*TextLit) expr()     {}
func (*BoolLit) expr()     {}
func (*NothingLit) expr()  {}
func (*Ident) expr()       {}
func (*BinExpr) expr()     {}
func (*CmpExpr) expr()     {}
func (*AndExpr) expr()     {}
func (*OrExpr) expr()      {}
func (*NotExpr) expr()     {}
func (*NegExpr) expr()     {}
func (*CallExpr) expr()    {}
func (*BuiltinExpr) expr() {}
func (*ListLit) expr()     {}
func (*DictLit) expr()     {}
func (*IndexExpr) expr()   {}

// ---- shared local pre-scan -------------------------------------------------
//
// Both execution strategies derive a function's local set from the same scan,
// so the compiler's static slot assignment and the interpreter's dynamic
// pre-binding cannot disagree. A name is local to a function if it is a
// parameter or the target of a Set/Ask anywhere in the body, nested function
// bodies excluded (a nested FuncDef's *name* is a local; its body scans
// separately when that function is compiled or called).

func collectLocals(params []Param, body []Stmt) []string {
	seen := make(map[string]bool, len(params))
	order := make([]string, 0, len(params))
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	for _, p := range params {
		add(p.Name)
	}
	var walk func(stmts []Stmt)
	walk = func(stmts []Stmt) {
		for _, st := range stmts {
			switch s := st.(type) {
			case *SetStmt:
				add(s.Name)
			case *AskStmt:
				add(s.Name)
			case *FuncDefStmt:
				add(s.Name) // the binding, not the body
			case *IfStmt:
				walk(s.Then)
				walk(s.Else)
			case *WhileStmt:
				walk(s.Body)
			case *RepeatStmt:
				walk(s.Body)
			}
		}
	}
	walk(body)
	return order
}
