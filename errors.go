// errors.go — the runtime error taxonomy and the panic discipline.
//
// Internal helpers never thread error returns through the hot paths; they
// panic an engineErr and the public entry points (Interpreter.Execute,
// Compile, VM.Run) recover it into a typed *Error. Anything else escaping a
// recover is a bug and is re-panicked.

package poh

import "fmt"

// ErrKind classifies a runtime failure.
type ErrKind int

const (
	ErrUndefinedVariable ErrKind = iota
	ErrFunctionNotDefined
	ErrArityMismatch
	ErrTypeMismatch
	ErrCompile
)

func (k ErrKind) String() string {
	switch k {
	case ErrUndefinedVariable:
		return "UndefinedVariable"
	case ErrFunctionNotDefined:
		return "FunctionNotDefined"
	case ErrArityMismatch:
		return "ArityMismatch"
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrCompile:
		return "CompileError"
	default:
		return "UnknownError"
	}
}

// Error is the single error type the engine returns. Msg is the contract
// text; several messages are matched by substring downstream, so each is
// built verbatim in exactly one place.
type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// engineErr is the panic payload for internal failures.
type engineErr struct{ err *Error }

func fail(kind ErrKind, format string, args ...interface{}) {
	panic(engineErr{&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}})
}

func failUndefined(name string) {
	fail(ErrUndefinedVariable, "Undefined variable '%s'", name)
}

func failNotDefined(name string) {
	fail(ErrFunctionNotDefined, "Function '%s' is not defined", name)
}

// failArity reports an arity violation. expected is the required count when
// too few arguments were supplied and the declared count when too many.
func failArity(name string, expected, got int) {
	fail(ErrArityMismatch, "Function '%s' expects %d arguments, got %d", name, expected, got)
}

func failType(format string, args ...interface{}) {
	fail(ErrTypeMismatch, format, args...)
}

// recoverEngine converts an in-flight engineErr panic into *errp. Deferred
// at every public surface.
func recoverEngine(errp *error) {
	if r := recover(); r != nil {
		ee, ok := r.(engineErr)
		if !ok {
			panic(r)
		}
		*errp = ee.err
	}
}
