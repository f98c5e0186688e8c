// compiler.go — AST to bytecode lowering.
//
// One funcCompiler per function body (plus one for top level). Every name
// reference is classified statically as local slot, enclosing capture, or
// global; the classification mirrors the interpreter's dynamic walk because
// both start from the same collectLocals scan and scoping is
// function-granular. Defaulted parameters compile to a prelude in the
// function's own chunk (bound-check, jump, default expression, store), so
// defaults run in the callee frame with earlier parameters visible, exactly
// as the tree path binds them.

package poh

// Limits inherited from the instruction encoding: slots and capture indexes
// ride in one byte, name constants in two.
const (
	maxLocals = 256
	maxConsts = 1 << 16
)

// Compile lowers a program into an executable prototype for the VM.
func Compile(p *Program) (main *CompiledFun, err error) {
	defer recoverEngine(&err)
	fc := newFuncCompiler(nil, "", true)
	for _, st := range p.Stmts {
		fc.stmt(st)
	}
	fc.emit(OpConst, fc.k(Nothing))
	fc.emit(OpReturn, 0)
	return fc.finish(0, 0), nil
}

type capture struct {
	name string
	ref  CaptureRef
}

type funcCompiler struct {
	parent   *funcCompiler
	top      bool
	name     string
	chunk    *Chunk
	locals   []string // slot -> name ("" for synthetic slots)
	slot     map[string]int
	captures []capture
	builtins *BuiltinTable
}

func newFuncCompiler(parent *funcCompiler, name string, top bool) *funcCompiler {
	builtins := StandardBuiltins()
	if parent != nil {
		builtins = parent.builtins
	}
	return &funcCompiler{
		parent:   parent,
		top:      top,
		name:     name,
		chunk:    &Chunk{},
		slot:     map[string]int{},
		builtins: builtins,
	}
}

func (fc *funcCompiler) finish(numParams, required int) *CompiledFun {
	refs := make([]CaptureRef, len(fc.captures))
	for i, c := range fc.captures {
		refs[i] = c.ref
	}
	return &CompiledFun{
		Name:      fc.name,
		NumParams: numParams,
		Required:  required,
		NumLocals: len(fc.locals),
		Captures:  refs,
		Chunk:     fc.chunk,
	}
}

// ---- emitter ---------------------------------------------------------------

func (fc *funcCompiler) emit(op Opcode, imm int) int {
	fc.chunk.Code = append(fc.chunk.Code, pack(op, imm))
	return len(fc.chunk.Code) - 1
}

func (fc *funcCompiler) here() int { return len(fc.chunk.Code) }

// patch points a previously emitted jump at the current position.
func (fc *funcCompiler) patch(at int) {
	fc.chunk.Code[at] = pack(uop(fc.chunk.Code[at]), fc.here())
}

// k interns a constant, deduplicating by structural equality.
func (fc *funcCompiler) k(v Value) int {
	for i, c := range fc.chunk.Consts {
		if c.Tag == v.Tag && deepEqual(c, v) {
			return i
		}
	}
	if len(fc.chunk.Consts) >= maxConsts {
		fail(ErrCompile, "too many constants in function '%s'", fc.name)
	}
	fc.chunk.Consts = append(fc.chunk.Consts, v)
	return len(fc.chunk.Consts) - 1
}

func (fc *funcCompiler) nameIdx(name string) int { return fc.k(Text(name)) }

// ---- name classification ---------------------------------------------------

func (fc *funcCompiler) addLocal(name string) int {
	if len(fc.locals) >= maxLocals {
		fail(ErrCompile, "too many locals in function '%s'", fc.name)
	}
	idx := len(fc.locals)
	fc.locals = append(fc.locals, name)
	if name != "" {
		fc.slot[name] = idx
	}
	return idx
}

func (fc *funcCompiler) resolveLocal(name string) (int, bool) {
	i, ok := fc.slot[name]
	return i, ok
}

// resolveCapture classifies name against enclosing functions, threading a
// capture cell through every intermediate closure. Top-level names are not
// captures; they stay global lookups.
func (fc *funcCompiler) resolveCapture(name string) (int, bool) {
	for i, c := range fc.captures {
		if c.name == name {
			return i, true
		}
	}
	if fc.parent == nil || fc.parent.top {
		return 0, false
	}
	if slot, ok := fc.parent.resolveLocal(name); ok {
		return fc.addCapture(name, CaptureRef{FromLocal: true, Index: slot}), true
	}
	if idx, ok := fc.parent.resolveCapture(name); ok {
		return fc.addCapture(name, CaptureRef{FromLocal: false, Index: idx}), true
	}
	return 0, false
}

func (fc *funcCompiler) addCapture(name string, ref CaptureRef) int {
	if len(fc.captures) >= maxLocals {
		fail(ErrCompile, "too many captures in function '%s'", fc.name)
	}
	fc.captures = append(fc.captures, capture{name: name, ref: ref})
	return len(fc.captures) - 1
}

// ---- statements ------------------------------------------------------------

func (fc *funcCompiler) stmt(st Stmt) {
	switch s := st.(type) {
	case *SetStmt:
		fc.expr(s.Value)
		fc.store(s.Name)
	case *AskStmt:
		id, _ := fc.builtins.ID("ask")
		fc.emit(OpBuiltin, id<<8)
		fc.store(s.Name)
	case *WriteStmt:
		fc.expr(s.Expr)
		fc.emit(OpPrint, 0)
	case *CallStmt:
		fc.expr(s.Expr)
		fc.emit(OpPop, 0)
	case *IfStmt:
		fc.expr(s.Cond)
		jElse := fc.emit(OpJumpIfFalse, 0)
		for _, t := range s.Then {
			fc.stmt(t)
		}
		jEnd := fc.emit(OpJump, 0)
		fc.patch(jElse)
		for _, t := range s.Else {
			fc.stmt(t)
		}
		fc.patch(jEnd)
	case *WhileStmt:
		start := fc.here()
		fc.expr(s.Cond)
		jEnd := fc.emit(OpJumpIfFalse, 0)
		for _, t := range s.Body {
			fc.stmt(t)
		}
		fc.emit(OpJump, start)
		fc.patch(jEnd)
	case *RepeatStmt:
		counter := fc.addLocal("")
		fc.expr(s.Count)
		fc.emit(OpTrunc, 0)
		fc.emit(OpStoreLocal, counter)
		start := fc.here()
		fc.emit(OpLoadLocal, fc.nameIdx("")<<8|counter)
		fc.emit(OpConst, fc.k(Num(0)))
		fc.emit(OpGt, 0)
		jEnd := fc.emit(OpJumpIfFalse, 0)
		for _, t := range s.Body {
			fc.stmt(t)
		}
		fc.emit(OpLoadLocal, fc.nameIdx("")<<8|counter)
		fc.emit(OpConst, fc.k(Num(1)))
		fc.emit(OpSub, 0)
		fc.emit(OpStoreLocal, counter)
		fc.emit(OpJump, start)
		fc.patch(jEnd)
	case *FuncDefStmt:
		checkParams(s.Name, s.Params)
		proto := fc.compileFunction(s.Name, s.Params, s.Body)
		fc.chunk.Protos = append(fc.chunk.Protos, proto)
		fc.emit(OpClosure, len(fc.chunk.Protos)-1)
		fc.store(s.Name)
	case *ReturnStmt:
		if s.Value != nil {
			fc.expr(s.Value)
		} else {
			fc.emit(OpConst, fc.k(Nothing))
		}
		fc.emit(OpReturn, 0)
	}
}

// store targets the pre-assigned local slot inside a function and the
// global table at top level; the local set is closed before the body
// compiles, so a missing slot here is a compiler bug.
func (fc *funcCompiler) store(name string) {
	if fc.top {
		fc.emit(OpStoreGlobal, fc.nameIdx(name))
		return
	}
	slot, ok := fc.resolveLocal(name)
	if !ok {
		fail(ErrCompile, "name '%s' not classified as a local of function '%s'", name, fc.name)
	}
	fc.emit(OpStoreLocal, slot)
}

func (fc *funcCompiler) compileFunction(name string, params []Param, body []Stmt) *CompiledFun {
	sub := newFuncCompiler(fc, name, false)
	for _, local := range collectLocals(params, body) {
		sub.addLocal(local)
	}
	// Defaults prelude: fill each unbound trailing parameter in order.
	for i, p := range params {
		if p.Default == nil {
			continue
		}
		sub.emit(OpLocalBound, i)
		jBound := sub.emit(OpJumpIfTrue, 0)
		sub.expr(p.Default)
		sub.emit(OpStoreLocal, i)
		sub.patch(jBound)
	}
	for _, st := range body {
		sub.stmt(st)
	}
	sub.emit(OpConst, sub.k(Nothing))
	sub.emit(OpReturn, 0)

	required := 0
	for _, p := range params {
		if p.Default == nil {
			required++
		}
	}
	return sub.finish(len(params), required)
}

// ---- expressions -----------------------------------------------------------

func (fc *funcCompiler) expr(e Expr) {
	switch x := e.(type) {
	case *NumberLit:
		fc.emit(OpConst, fc.k(Num(x.Value)))
	case *TextLit:
		fc.emit(OpConst, fc.k(Text(x.Value)))
	case *BoolLit:
		fc.emit(OpConst, fc.k(Bool(x.Value)))
	case *NothingLit:
		fc.emit(OpConst, fc.k(Nothing))
	case *Ident:
		fc.load(x.Name)
	case *BinExpr:
		fc.expr(x.Left)
		fc.expr(x.Right)
		switch x.Op {
		case OpPlus:
			fc.emit(OpAdd, 0)
		case OpMinus:
			fc.emit(OpSub, 0)
		case OpTimes:
			fc.emit(OpMul, 0)
		case OpDividedBy:
			fc.emit(OpDiv, 0)
		}
	case *CmpExpr:
		fc.expr(x.Left)
		fc.expr(x.Right)
		switch x.Op {
		case CmpEq:
			fc.emit(OpEq, 0)
		case CmpNe:
			fc.emit(OpNe, 0)
		case CmpLt:
			fc.emit(OpLt, 0)
		case CmpLe:
			fc.emit(OpLe, 0)
		case CmpGt:
			fc.emit(OpGt, 0)
		case CmpGe:
			fc.emit(OpGe, 0)
		}
	case *AndExpr:
		fc.expr(x.Left)
		jShort := fc.emit(OpJumpIfFalse, 0)
		fc.expr(x.Right)
		fc.emit(OpTruthy, 0)
		jEnd := fc.emit(OpJump, 0)
		fc.patch(jShort)
		fc.emit(OpConst, fc.k(Bool(false)))
		fc.patch(jEnd)
	case *OrExpr:
		fc.expr(x.Left)
		jShort := fc.emit(OpJumpIfTrue, 0)
		fc.expr(x.Right)
		fc.emit(OpTruthy, 0)
		jEnd := fc.emit(OpJump, 0)
		fc.patch(jShort)
		fc.emit(OpConst, fc.k(Bool(true)))
		fc.patch(jEnd)
	case *NotExpr:
		fc.expr(x.Operand)
		fc.emit(OpNot, 0)
	case *NegExpr:
		fc.expr(x.Operand)
		fc.emit(OpNeg, 0)
	case *CallExpr:
		fc.callee(x.Name)
		for _, a := range x.Args {
			fc.expr(a)
		}
		// The call site's spelling rides along for arity messages: a
		// function re-bound under another name reports the alias.
		fc.emit(OpCall, fc.nameIdx(x.Name)<<8|len(x.Args))
	case *BuiltinExpr:
		id, ok := fc.builtins.ID(x.Name)
		if !ok {
			failNotDefined(x.Name)
		}
		for _, a := range x.Args {
			fc.expr(a)
		}
		fc.emit(OpBuiltin, id<<8|len(x.Args))
	case *ListLit:
		for _, it := range x.Items {
			fc.expr(it)
		}
		fc.emit(OpList, len(x.Items))
	case *DictLit:
		for _, ent := range x.Entries {
			fc.emit(OpConst, fc.k(Text(ent.Key)))
			fc.expr(ent.Value)
		}
		fc.emit(OpDict, len(x.Entries))
	case *IndexExpr:
		fc.expr(x.Target)
		fc.expr(x.Key)
		fc.emit(OpIndex, 0)
	default:
		fail(ErrCompile, "unsupported expression in function '%s'", fc.name)
	}
}

func (fc *funcCompiler) load(name string) {
	if slot, ok := fc.resolveLocal(name); ok {
		fc.emit(OpLoadLocal, fc.nameIdx(name)<<8|slot)
		return
	}
	if idx, ok := fc.resolveCapture(name); ok {
		fc.emit(OpLoadCapture, fc.nameIdx(name)<<8|idx)
		return
	}
	fc.emit(OpLoadGlobal, fc.nameIdx(name))
}

// callee emits the resolving load for a call target; the callee opcodes
// report a missing or non-function binding as an undefined function.
func (fc *funcCompiler) callee(name string) {
	if slot, ok := fc.resolveLocal(name); ok {
		fc.emit(OpCalleeLocal, fc.nameIdx(name)<<8|slot)
		return
	}
	if idx, ok := fc.resolveCapture(name); ok {
		fc.emit(OpCalleeCapture, fc.nameIdx(name)<<8|idx)
		return
	}
	fc.emit(OpCalleeGlobal, fc.nameIdx(name))
}
