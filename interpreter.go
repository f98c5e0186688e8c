// interpreter.go — the public engine surface.
//
// An Interpreter owns the global environment, the builtin bridge, and the
// process streams. Both execution strategies hang off it: Execute walks the
// tree, while Compile plus NewVM(ip).Run executes bytecode against the same
// globals, builtins, and streams.

package poh

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Version is the engine version reported by the host process.
const Version = "0.3.0"

type Interpreter struct {
	Globals  *Env
	Builtins *BuiltinTable
	Stdout   io.Writer

	stdin *bufio.Reader
}

// NewInterpreter builds an engine wired to the process streams and the
// standard builtin table.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		Globals:  NewEnv(nil),
		Builtins: StandardBuiltins(),
		Stdout:   os.Stdout,
		stdin:    bufio.NewReader(os.Stdin),
	}
}

// SetInput redirects the "ask" builtin's input stream.
func (ip *Interpreter) SetInput(r io.Reader) {
	ip.stdin = bufio.NewReader(r)
}

// readLine blocks for one line of input, without the trailing newline.
// End of input yields whatever was read.
func (ip *Interpreter) readLine() string {
	line, _ := ip.stdin.ReadString('\n')
	line = strings.TrimRight(line, "\n")
	return strings.TrimRight(line, "\r")
}

// writeLine prints one rendered value plus a newline.
func (ip *Interpreter) writeLine(v Value) {
	io.WriteString(ip.Stdout, Render(v)+"\n")
}

// Execute runs a program by tree-walking against the global environment.
// A top-level Return ends the run normally.
func (ip *Interpreter) Execute(p *Program) (err error) {
	defer recoverEngine(&err)
	func() {
		defer catchReturn()
		ip.execBlock(p.Stmts, ip.Globals)
	}()
	return nil
}

// EvalExpr evaluates one expression against the global environment. It is
// the REPL's expression path.
func (ip *Interpreter) EvalExpr(e Expr) (v Value, err error) {
	defer recoverEngine(&err)
	v = ip.evalExpr(e, ip.Globals)
	return v, nil
}

// catchReturn swallows a top-level return signal.
func catchReturn() {
	if r := recover(); r != nil {
		if _, ok := r.(returnSig); ok {
			return
		}
		panic(r)
	}
}
