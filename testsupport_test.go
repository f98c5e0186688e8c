package poh

import (
	"bytes"
	"strings"
	"testing"
)

// AST shorthand used across the test files.

func num(f float64) Expr  { return &NumberLit{Value: f} }
func txt(s string) Expr   { return &TextLit{Value: s} }
func boolLit(b bool) Expr { return &BoolLit{Value: b} }
func ident(n string) Expr { return &Ident{Name: n} }
func nothing() Expr       { return &NothingLit{} }

func bin(op BinOp, l, r Expr) Expr { return &BinExpr{Op: op, Left: l, Right: r} }
func cmp(op CmpOp, l, r Expr) Expr { return &CmpExpr{Op: op, Left: l, Right: r} }
func call(name string, args ...Expr) Expr {
	return &CallExpr{Name: name, Args: args}
}
func builtin(name string, args ...Expr) Expr {
	return &BuiltinExpr{Name: name, Args: args}
}
func list(items ...Expr) Expr { return &ListLit{Items: items} }

func set(name string, v Expr) Stmt { return &SetStmt{Name: name, Value: v} }
func write(e Expr) Stmt            { return &WriteStmt{Expr: e} }
func callStmt(e Expr) Stmt         { return &CallStmt{Expr: e} }
func ret(v Expr) Stmt              { return &ReturnStmt{Value: v} }

func ifElse(cond Expr, then, els []Stmt) Stmt {
	return &IfStmt{Cond: cond, Then: then, Else: els}
}
func while(cond Expr, body ...Stmt) Stmt {
	return &WhileStmt{Cond: cond, Body: body}
}
func repeat(count Expr, body ...Stmt) Stmt {
	return &RepeatStmt{Count: count, Body: body}
}

func par(name string) Param            { return Param{Name: name} }
func parDef(name string, d Expr) Param { return Param{Name: name, Default: d} }

func fdef(name string, params []Param, body ...Stmt) Stmt {
	return &FuncDefStmt{Name: name, Params: params, Body: body}
}

func prog(stmts ...Stmt) *Program { return &Program{Stmts: stmts} }

// runWalker executes via the tree walker, returning stdout and the error.
func runWalker(p *Program, input string) (string, error) {
	ip := NewInterpreter()
	var out bytes.Buffer
	ip.Stdout = &out
	ip.SetInput(strings.NewReader(input))
	err := ip.Execute(p)
	return out.String(), err
}

// runVM compiles and executes, returning stdout and the error.
func runVM(p *Program, input string) (string, error) {
	ip := NewInterpreter()
	var out bytes.Buffer
	ip.Stdout = &out
	ip.SetInput(strings.NewReader(input))
	main, err := Compile(p)
	if err != nil {
		return out.String(), err
	}
	err = NewVM(ip).Run(main)
	return out.String(), err
}

func wantOut(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("stdout = %q, want %q", got, want)
	}
}

func wantNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func wantErr(t *testing.T, err error, kind ErrKind, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", substr)
	}
	ee, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if ee.Kind != kind {
		t.Fatalf("error kind = %v, want %v (msg %q)", ee.Kind, kind, ee.Msg)
	}
	if !strings.Contains(ee.Msg, substr) {
		t.Fatalf("error %q does not contain %q", ee.Msg, substr)
	}
}
