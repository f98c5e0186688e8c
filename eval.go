// eval.go — the tree-walking strategy and the shared call protocol.
//
// Statements execute for effect against an Environment, expressions evaluate
// to one Value. Scoping is function-granular: If/While/Repeat bodies run in
// the enclosing environment, and callFunction pre-binds the callee's scanned
// local set so that dynamic lookup agrees with the compiler's static slot
// classification on every program.

package poh

import "math"

// returnSig unwinds a function body. Carried by panic, caught at the call
// boundary and at top level.
type returnSig struct{ val Value }

func (ip *Interpreter) execBlock(stmts []Stmt, env *Env) {
	for _, st := range stmts {
		ip.execStmt(st, env)
	}
}

func (ip *Interpreter) execStmt(st Stmt, env *Env) {
	switch s := st.(type) {
	case *SetStmt:
		ip.bind(env, s.Name, ip.evalExpr(s.Value, env))
	case *AskStmt:
		ip.bind(env, s.Name, ip.Builtins.InvokeByName(ip, "ask", nil))
	case *WriteStmt:
		ip.writeLine(ip.evalExpr(s.Expr, env))
	case *CallStmt:
		ip.evalExpr(s.Expr, env)
	case *IfStmt:
		if truthy(ip.evalExpr(s.Cond, env)) {
			ip.execBlock(s.Then, env)
		} else {
			ip.execBlock(s.Else, env)
		}
	case *WhileStmt:
		for truthy(ip.evalExpr(s.Cond, env)) {
			ip.execBlock(s.Body, env)
		}
	case *RepeatStmt:
		n := ip.evalExpr(s.Count, env)
		if n.Tag != VTNum {
			failType("repeat count must be a number, not %s", tagName(n.Tag))
		}
		count := math.Trunc(n.Data.(float64))
		for i := float64(0); i < count; i++ {
			ip.execBlock(s.Body, env)
		}
	case *FuncDefStmt:
		checkParams(s.Name, s.Params)
		ip.bind(env, s.Name, FunVal(&Fun{
			Name:   s.Name,
			Params: s.Params,
			Body:   s.Body,
			Env:    env,
		}))
	case *ReturnStmt:
		v := Nothing
		if s.Value != nil {
			v = ip.evalExpr(s.Value, env)
		}
		panic(returnSig{v})
	}
}

// bind assigns the nearest owning scope, declaring in the innermost one when
// no scope owns the name. Inside a function every Set/Ask target is a
// pre-bound local, so only top-level code ever reaches the declare branch.
func (ip *Interpreter) bind(env *Env, name string, v Value) {
	if !env.Assign(name, v) {
		env.Define(name, v)
	}
}

// checkParams rejects a required parameter after a defaulted one.
func checkParams(fname string, params []Param) {
	seenDefault := false
	for _, p := range params {
		if p.Default != nil {
			seenDefault = true
		} else if seenDefault {
			failType("required parameter '%s' follows a defaulted parameter in function '%s'", p.Name, fname)
		}
	}
}

func (ip *Interpreter) evalExpr(e Expr, env *Env) Value {
	switch x := e.(type) {
	case *NumberLit:
		return Num(x.Value)
	case *TextLit:
		return Text(x.Value)
	case *BoolLit:
		return Bool(x.Value)
	case *NothingLit:
		return Nothing
	case *Ident:
		v, ok := env.Lookup(x.Name)
		if !ok {
			failUndefined(x.Name)
		}
		return v
	case *BinExpr:
		return arith(x.Op, ip.evalExpr(x.Left, env), ip.evalExpr(x.Right, env))
	case *CmpExpr:
		return compare(x.Op, ip.evalExpr(x.Left, env), ip.evalExpr(x.Right, env))
	case *AndExpr:
		if !truthy(ip.evalExpr(x.Left, env)) {
			return Bool(false)
		}
		return Bool(truthy(ip.evalExpr(x.Right, env)))
	case *OrExpr:
		if truthy(ip.evalExpr(x.Left, env)) {
			return Bool(true)
		}
		return Bool(truthy(ip.evalExpr(x.Right, env)))
	case *NotExpr:
		return Bool(!truthy(ip.evalExpr(x.Operand, env)))
	case *NegExpr:
		return negate(ip.evalExpr(x.Operand, env))
	case *CallExpr:
		fn := ip.resolveCallee(x.Name, env)
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			args[i] = ip.evalExpr(a, env)
		}
		return ip.callFunction(fn, x.Name, args)
	case *BuiltinExpr:
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			args[i] = ip.evalExpr(a, env)
		}
		return ip.Builtins.InvokeByName(ip, x.Name, args)
	case *ListLit:
		xs := make([]Value, len(x.Items))
		for i, it := range x.Items {
			xs[i] = ip.evalExpr(it, env)
		}
		return List(xs)
	case *DictLit:
		d := NewDict()
		for _, ent := range x.Entries {
			d.Set(ent.Key, ip.evalExpr(ent.Value, env))
		}
		return Dict(d)
	case *IndexExpr:
		return index(ip.evalExpr(x.Target, env), ip.evalExpr(x.Key, env))
	default:
		failType("unsupported expression")
		return Nothing
	}
}

// resolveCallee looks a callee name up and requires a function value. A
// bound non-function reports the same way as a missing binding.
func (ip *Interpreter) resolveCallee(name string, env *Env) *Fun {
	v, ok := env.Lookup(name)
	if !ok || v.Tag != VTFun {
		failNotDefined(name)
	}
	return v.Data.(*Fun)
}

// callFunction is the shared invocation protocol. Arguments are already
// evaluated in the caller's environment; name is the call-site spelling used
// in arity messages.
func (ip *Interpreter) callFunction(fn *Fun, name string, args []Value) Value {
	if fn.Proto != nil {
		return NewVM(ip).callClosure(fn, name, args)
	}
	declared := len(fn.Params)
	required := fn.Required()
	if len(args) < required {
		failArity(name, required, len(args))
	}
	if len(args) > declared {
		failArity(name, declared, len(args))
	}

	env := NewEnv(fn.Env)
	for _, local := range collectLocals(fn.Params, fn.Body) {
		env.Define(local, unbound)
	}
	for i, p := range fn.Params {
		if i < len(args) {
			env.Define(p.Name, args[i])
		} else {
			// Defaults run in the call scope: earlier parameters are
			// visible, later ones are still unbound.
			env.Define(p.Name, ip.evalExpr(p.Default, env))
		}
	}

	return ip.runBody(fn.Body, env)
}

// runBody executes a function body and converts a return signal into the
// function's value. Falling off the end yields Nothing.
func (ip *Interpreter) runBody(body []Stmt, env *Env) (result Value) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(returnSig)
			if !ok {
				panic(r)
			}
			result = sig.val
		}
	}()
	ip.execBlock(body, env)
	return Nothing
}
