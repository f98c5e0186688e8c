// vm.go — the bytecode machine.
//
// Instructions are packed uint32s: opcode in the top byte, a 24-bit
// immediate below. Name-bearing loads split the immediate 16/8 into a
// constant-pool index for the name (error reporting) and a slot or capture
// index. Locals live in per-frame cells ([]*Value) so a closure can capture
// an enclosing local by reference: OpClosure copies cell pointers, not
// values, which is what makes assign-after-capture visible through the
// closure exactly as it is through the interpreter's shared Env chain.
//
// Calls do not recurse in Go: OpCall pushes a frame and the single loop in
// run keeps going. The one exception is a tree-built closure reaching
// OpCall, which is delegated back to the interpreter's protocol.

package poh

import (
	"fmt"
	"math"
	"strings"
)

type Opcode uint8

const (
	OpConst Opcode = iota // push consts[imm]
	OpPop                 // drop top of stack

	OpLoadLocal   // imm = nameIdx<<8 | slot; push *cells[slot]
	OpStoreLocal  // imm = slot; pop into *cells[slot]
	OpLoadCapture // imm = nameIdx<<8 | capture index
	OpLoadGlobal  // imm = nameIdx
	OpStoreGlobal // imm = nameIdx; declare-or-assign

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpNot    // push Bool(!truthy(pop))
	OpNeg    // numeric negate
	OpTruthy // push Bool(truthy(pop))
	OpTrunc  // truncate a number toward zero (loop counters)

	OpJump        // pc = imm
	OpJumpIfFalse // pop; pc = imm when falsy
	OpJumpIfTrue  // pop; pc = imm when truthy

	OpCalleeLocal   // imm = nameIdx<<8 | slot; push callee or fail FunctionNotDefined
	OpCalleeCapture // imm = nameIdx<<8 | capture index
	OpCalleeGlobal  // imm = nameIdx
	OpCall          // imm = nameIdx<<8 | argc; stack: callee, args...
	OpReturn        // pop result, pop frame
	OpClosure       // imm = proto index; build a Fun with captured cells
	OpLocalBound    // imm = slot; push Bool(cell is bound) — default-parameter prelude

	OpBuiltin // imm = id<<8 | argc
	OpPrint   // pop and write one rendered line

	OpList  // imm = n; pop n elements
	OpDict  // imm = n; pop n key/value pairs
	OpIndex // pop key, pop target
)

func pack(op Opcode, imm int) uint32 { return uint32(op)<<24 | uint32(imm)&0xFFFFFF }
func uop(ins uint32) Opcode          { return Opcode(ins >> 24) }
func uimm(ins uint32) int            { return int(ins & 0xFFFFFF) }

// Chunk is one compiled code unit: instructions, a constant pool, and the
// nested function prototypes OpClosure references.
type Chunk struct {
	Code   []uint32
	Consts []Value
	Protos []*CompiledFun
}

// CompiledFun is an immutable function prototype. Captures describes, per
// captured cell, where the closure-building site finds it: an enclosing
// frame local (FromLocal) or the enclosing closure's own capture list.
type CompiledFun struct {
	Name      string
	NumParams int
	Required  int
	NumLocals int
	Captures  []CaptureRef
	Chunk     *Chunk
}

type CaptureRef struct {
	FromLocal bool
	Index     int
}

type frame struct {
	fn    *Fun
	chunk *Chunk
	pc    int
	base  int // operand-stack watermark at entry
	cells []*Value
}

// VM executes compiled chunks against an Interpreter's globals, builtins,
// and streams.
type VM struct {
	ip     *Interpreter
	stack  []Value
	frames []frame
}

func NewVM(ip *Interpreter) *VM {
	return &VM{ip: ip}
}

// Run executes a compiled program. Observable behavior matches
// Interpreter.Execute on the same source program.
func (vm *VM) Run(main *CompiledFun) (err error) {
	defer recoverEngine(&err)
	vm.callClosure(&Fun{Name: main.Name, Proto: main}, main.Name, nil)
	return nil
}

// callClosure applies the shared call protocol to a compiled closure and
// runs it to completion, returning its value. name is the call-site
// spelling, used in arity messages. Defaults are filled by the chunk's own
// prelude, so missing trailing arguments just stay unbound here.
func (vm *VM) callClosure(fn *Fun, name string, args []Value) Value {
	vm.pushFrame(fn, name, args)
	return vm.run(len(vm.frames) - 1)
}

func (vm *VM) pushFrame(fn *Fun, name string, args []Value) {
	p := fn.Proto
	if len(args) < p.Required {
		failArity(name, p.Required, len(args))
	}
	if len(args) > p.NumParams {
		failArity(name, p.NumParams, len(args))
	}
	cells := make([]*Value, p.NumLocals)
	for i := range cells {
		v := unbound
		cells[i] = &v
	}
	for i, a := range args {
		*cells[i] = a
	}
	vm.frames = append(vm.frames, frame{
		fn:    fn,
		chunk: p.Chunk,
		base:  len(vm.stack),
		cells: cells,
	})
}

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) popN(n int) []Value {
	out := make([]Value, n)
	copy(out, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	return out
}

// run executes frames until the frame stack shrinks back to stopDepth,
// returning the value of the frame that started there.
func (vm *VM) run(stopDepth int) Value {
	for {
		f := &vm.frames[len(vm.frames)-1]
		ins := f.chunk.Code[f.pc]
		f.pc++
		op, imm := uop(ins), uimm(ins)

		switch op {
		case OpConst:
			vm.push(f.chunk.Consts[imm])
		case OpPop:
			vm.pop()

		case OpLoadLocal:
			v := *f.cells[imm&0xFF]
			if v.Tag == vtUnbound {
				failUndefined(constText(f.chunk, imm>>8))
			}
			vm.push(v)
		case OpStoreLocal:
			*f.cells[imm] = vm.pop()
		case OpLoadCapture:
			v := *f.fn.Cells[imm&0xFF]
			if v.Tag == vtUnbound {
				failUndefined(constText(f.chunk, imm>>8))
			}
			vm.push(v)
		case OpLoadGlobal:
			name := constText(f.chunk, imm)
			v, ok := vm.ip.Globals.Lookup(name)
			if !ok {
				failUndefined(name)
			}
			vm.push(v)
		case OpStoreGlobal:
			name := constText(f.chunk, imm)
			v := vm.pop()
			if !vm.ip.Globals.Assign(name, v) {
				vm.ip.Globals.Define(name, v)
			}

		case OpAdd:
			b := vm.pop()
			vm.push(arith(OpPlus, vm.pop(), b))
		case OpSub:
			b := vm.pop()
			vm.push(arith(OpMinus, vm.pop(), b))
		case OpMul:
			b := vm.pop()
			vm.push(arith(OpTimes, vm.pop(), b))
		case OpDiv:
			b := vm.pop()
			vm.push(arith(OpDividedBy, vm.pop(), b))
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			b := vm.pop()
			vm.push(compare(cmpOpFor(op), vm.pop(), b))
		case OpNot:
			vm.push(Bool(!truthy(vm.pop())))
		case OpNeg:
			vm.push(negate(vm.pop()))
		case OpTruthy:
			vm.push(Bool(truthy(vm.pop())))
		case OpTrunc:
			v := vm.pop()
			if v.Tag != VTNum {
				failType("repeat count must be a number, not %s", tagName(v.Tag))
			}
			vm.push(Num(math.Trunc(v.Data.(float64))))

		case OpJump:
			f.pc = imm
		case OpJumpIfFalse:
			if !truthy(vm.pop()) {
				f.pc = imm
			}
		case OpJumpIfTrue:
			if truthy(vm.pop()) {
				f.pc = imm
			}

		case OpCalleeLocal:
			v := *f.cells[imm&0xFF]
			if v.Tag != VTFun {
				failNotDefined(constText(f.chunk, imm>>8))
			}
			vm.push(v)
		case OpCalleeCapture:
			v := *f.fn.Cells[imm&0xFF]
			if v.Tag != VTFun {
				failNotDefined(constText(f.chunk, imm>>8))
			}
			vm.push(v)
		case OpCalleeGlobal:
			name := constText(f.chunk, imm)
			v, ok := vm.ip.Globals.Lookup(name)
			if !ok || v.Tag != VTFun {
				failNotDefined(name)
			}
			vm.push(v)
		case OpCall:
			name := constText(f.chunk, imm>>8)
			args := vm.popN(imm & 0xFF)
			callee := vm.pop().Data.(*Fun)
			if callee.Proto == nil {
				vm.push(vm.ip.callFunction(callee, name, args))
			} else {
				vm.pushFrame(callee, name, args)
			}
		case OpReturn:
			result := vm.pop()
			vm.stack = vm.stack[:f.base]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == stopDepth {
				return result
			}
			vm.push(result)
		case OpClosure:
			proto := f.chunk.Protos[imm]
			cells := make([]*Value, len(proto.Captures))
			for i, ref := range proto.Captures {
				if ref.FromLocal {
					cells[i] = f.cells[ref.Index]
				} else {
					cells[i] = f.fn.Cells[ref.Index]
				}
			}
			vm.push(FunVal(&Fun{Name: proto.Name, Proto: proto, Cells: cells}))
		case OpLocalBound:
			vm.push(Bool(f.cells[imm].Tag != vtUnbound))

		case OpBuiltin:
			args := vm.popN(imm & 0xFF)
			vm.push(vm.ip.Builtins.Invoke(vm.ip, imm>>8, args))
		case OpPrint:
			vm.ip.writeLine(vm.pop())

		case OpList:
			vm.push(List(vm.popN(imm)))
		case OpDict:
			flat := vm.popN(imm * 2)
			d := NewDict()
			for i := 0; i < len(flat); i += 2 {
				d.Set(flat[i].Data.(string), flat[i+1])
			}
			vm.push(Dict(d))
		case OpIndex:
			key := vm.pop()
			vm.push(index(vm.pop(), key))

		default:
			fail(ErrCompile, "unknown opcode %d", op)
		}
	}
}

func constText(c *Chunk, idx int) string {
	return c.Consts[idx].Data.(string)
}

func cmpOpFor(op Opcode) CmpOp {
	switch op {
	case OpEq:
		return CmpEq
	case OpNe:
		return CmpNe
	case OpLt:
		return CmpLt
	case OpLe:
		return CmpLe
	case OpGt:
		return CmpGt
	default:
		return CmpGe
	}
}

// ---- disassembler ----------------------------------------------------------

var opNames = map[Opcode]string{
	OpConst: "CONST", OpPop: "POP",
	OpLoadLocal: "LOAD_LOCAL", OpStoreLocal: "STORE_LOCAL",
	OpLoadCapture: "LOAD_CAPTURE", OpLoadGlobal: "LOAD_GLOBAL",
	OpStoreGlobal: "STORE_GLOBAL",
	OpAdd:         "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV",
	OpEq: "EQ", OpNe: "NE", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE",
	OpNot: "NOT", OpNeg: "NEG", OpTruthy: "TRUTHY", OpTrunc: "TRUNC",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE",
	OpCalleeLocal: "CALLEE_LOCAL", OpCalleeCapture: "CALLEE_CAPTURE",
	OpCalleeGlobal: "CALLEE_GLOBAL", OpCall: "CALL", OpReturn: "RETURN",
	OpClosure: "CLOSURE", OpLocalBound: "LOCAL_BOUND",
	OpBuiltin: "BUILTIN", OpPrint: "PRINT",
	OpList: "LIST", OpDict: "DICT", OpIndex: "INDEX",
}

// Disassemble renders a prototype and its nested prototypes as a listing.
func Disassemble(fn *CompiledFun) string {
	var b strings.Builder
	disasmFun(&b, fn, "")
	return b.String()
}

func disasmFun(b *strings.Builder, fn *CompiledFun, indent string) {
	name := fn.Name
	if name == "" {
		name = "<main>"
	}
	fmt.Fprintf(b, "%s== %s (params=%d required=%d locals=%d captures=%d) ==\n",
		indent, name, fn.NumParams, fn.Required, fn.NumLocals, len(fn.Captures))
	for pc, ins := range fn.Chunk.Code {
		op, imm := uop(ins), uimm(ins)
		fmt.Fprintf(b, "%s%04d %-15s %d", indent, pc, opNames[op], imm)
		switch op {
		case OpConst:
			fmt.Fprintf(b, "  ; %s", Render(fn.Chunk.Consts[imm]))
		case OpLoadGlobal, OpStoreGlobal, OpCalleeGlobal:
			fmt.Fprintf(b, "  ; %s", constText(fn.Chunk, imm))
		case OpLoadLocal, OpLoadCapture, OpCalleeLocal, OpCalleeCapture:
			fmt.Fprintf(b, "  ; %s @%d", constText(fn.Chunk, imm>>8), imm&0xFF)
		case OpCall:
			fmt.Fprintf(b, "  ; %s argc=%d", constText(fn.Chunk, imm>>8), imm&0xFF)
		case OpBuiltin:
			fmt.Fprintf(b, "  ; id=%d argc=%d", imm>>8, imm&0xFF)
		case OpClosure:
			fmt.Fprintf(b, "  ; %s", fn.Chunk.Protos[imm].Name)
		}
		b.WriteByte('\n')
	}
	for _, p := range fn.Chunk.Protos {
		disasmFun(b, p, indent+"  ")
	}
}
