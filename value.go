// value.go — the runtime value model and the lexical environment chain.
//
// Value is a closed tagged union; every operation site switches exhaustively
// on Tag so a new kind cannot be half-supported. Both execution strategies
// (eval.go and vm.go) build on exactly the types in this file, and every
// textual rendering the engine ever emits goes through Render/formatNumber,
// which is what makes cross-strategy output byte-identical by construction
// rather than by test.

package poh

import (
	"math"
	"strconv"
	"strings"
)

// ValueTag enumerates the runtime kinds a Value may hold.
type ValueTag int

const (
	VTNothing ValueTag = iota // absence (no payload)
	VTBool                    // bool
	VTNum                     // float64
	VTText                    // string
	VTList                    // []Value
	VTDict                    // *DictObject (insertion-ordered)
	VTFun                     // *Fun (closure)
)

// Value is the universal runtime carrier. Tag determines which Go type Data
// holds (see ValueTag).
type Value struct {
	Tag  ValueTag
	Data interface{}
}

// Nothing is the singleton absence value.
var Nothing = Value{Tag: VTNothing}

// Primitive constructors.
func Bool(b bool) Value        { return Value{Tag: VTBool, Data: b} }
func Num(f float64) Value      { return Value{Tag: VTNum, Data: f} }
func Text(s string) Value      { return Value{Tag: VTText, Data: s} }
func List(xs []Value) Value    { return Value{Tag: VTList, Data: xs} }
func FunVal(f *Fun) Value      { return Value{Tag: VTFun, Data: f} }
func Dict(d *DictObject) Value { return Value{Tag: VTDict, Data: d} }

// unbound marks a pre-scanned local before its first Set executes. It never
// escapes the engine: lookups translate it to UndefinedVariable.
const vtUnbound ValueTag = -1

var unbound = Value{Tag: vtUnbound}

// DictObject is an ordered string-keyed map: Keys records insertion order.
type DictObject struct {
	Entries map[string]Value
	Keys    []string
}

// NewDict returns an empty ordered dictionary.
func NewDict() *DictObject {
	return &DictObject{Entries: map[string]Value{}}
}

// Set inserts or updates a key, appending to the order on first insert.
func (d *DictObject) Set(key string, v Value) {
	if _, ok := d.Entries[key]; !ok {
		d.Keys = append(d.Keys, key)
	}
	d.Entries[key] = v
}

// Get reports the value for key and whether it is present.
func (d *DictObject) Get(key string) (Value, bool) {
	v, ok := d.Entries[key]
	return v, ok
}

// Fun is a function value: the immutable definition plus the environment
// captured live at the point of definition. The tree path calls through
// Params/Body/Env; the compiled path through Proto/Cells. A Fun produced by
// the compiler carries both shapes so either strategy can invoke it.
type Fun struct {
	Name   string
	Params []Param
	Body   []Stmt
	Env    *Env // captured by reference, not snapshot

	Proto *CompiledFun // non-nil for VM-built closures
	Cells []*Value     // captured cells, parallel to Proto.Captures
}

// Required counts the parameters without a default.
func (f *Fun) Required() int {
	n := 0
	for _, p := range f.Params {
		if p.Default == nil {
			n++
		}
	}
	return n
}

// ---- environment ----------------------------------------------------------

// Env is one scope frame with a parent link; the chain is a tree rooted at
// the global scope (the only frame with a nil parent). Lookup walks
// parent-ward. Closures hold live references into this chain, so a frame
// lives as long as its longest-lived holder.
type Env struct {
	parent *Env
	table  map[string]Value
}

// NewEnv creates a scope frame under parent (nil for the global scope).
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: make(map[string]Value)}
}

// Define binds name in this frame, shadowing any outer binding.
func (e *Env) Define(name string, v Value) {
	e.table[name] = v
}

// Lookup resolves name innermost-first. The second result is false when the
// chain is exhausted or the binding is still unbound.
func (e *Env) Lookup(name string) (Value, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.table[name]; ok {
			if v.Tag == vtUnbound {
				return Value{}, false
			}
			return v, true
		}
	}
	return Value{}, false
}

// Assign mutates the nearest frame owning name; it reports false instead of
// creating a binding (only Define declares).
func (e *Env) Assign(name string, v Value) bool {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.table[name]; ok {
			s.table[name] = v
			return true
		}
	}
	return false
}

// ---- truthiness, equality, rendering --------------------------------------

// truthy is the single condition policy: Nothing and False are false,
// numbers are true iff non-zero, Text/List/Dict are true iff non-empty.
func truthy(v Value) bool {
	switch v.Tag {
	case VTNothing:
		return false
	case VTBool:
		return v.Data.(bool)
	case VTNum:
		return v.Data.(float64) != 0
	case VTText:
		return v.Data.(string) != ""
	case VTList:
		return len(v.Data.([]Value)) > 0
	case VTDict:
		return len(v.Data.(*DictObject).Keys) > 0
	case VTFun:
		return true
	default:
		return false
	}
}

// deepEqual is structural equality. Different tags compare unequal except
// through each variant's own rules; functions compare by identity.
func deepEqual(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case VTNothing:
		return true
	case VTBool:
		return a.Data.(bool) == b.Data.(bool)
	case VTNum:
		return a.Data.(float64) == b.Data.(float64)
	case VTText:
		return a.Data.(string) == b.Data.(string)
	case VTList:
		xs, ys := a.Data.([]Value), b.Data.([]Value)
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !deepEqual(xs[i], ys[i]) {
				return false
			}
		}
		return true
	case VTDict:
		da, db := a.Data.(*DictObject), b.Data.(*DictObject)
		if len(da.Keys) != len(db.Keys) {
			return false
		}
		for k, va := range da.Entries {
			vb, ok := db.Entries[k]
			if !ok || !deepEqual(va, vb) {
				return false
			}
		}
		return true
	case VTFun:
		return a.Data.(*Fun) == b.Data.(*Fun)
	default:
		return false
	}
}

// formatNumber is the canonical decimal text form: integral values within
// the float64-exact range render without a fraction, everything else in
// shortest round-trip form.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Render produces the user-facing textual form of a value: what Write prints
// and what Text coercion produces.
func Render(v Value) string {
	switch v.Tag {
	case VTNothing:
		return "Nothing"
	case VTBool:
		if v.Data.(bool) {
			return "True"
		}
		return "False"
	case VTNum:
		return formatNumber(v.Data.(float64))
	case VTText:
		return v.Data.(string)
	case VTList:
		xs := v.Data.([]Value)
		parts := make([]string, len(xs))
		for i, x := range xs {
			parts[i] = Render(x)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case VTDict:
		d := v.Data.(*DictObject)
		parts := make([]string, 0, len(d.Keys))
		for _, k := range d.Keys {
			parts = append(parts, "\""+k+"\": "+Render(d.Entries[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case VTFun:
		return "<function " + v.Data.(*Fun).Name + ">"
	default:
		return "<unbound>"
	}
}

// tagName names a variant for error messages.
func tagName(t ValueTag) string {
	switch t {
	case VTNothing:
		return "nothing"
	case VTBool:
		return "a boolean"
	case VTNum:
		return "a number"
	case VTText:
		return "text"
	case VTList:
		return "a list"
	case VTDict:
		return "a dictionary"
	case VTFun:
		return "a function"
	default:
		return "an unbound value"
	}
}
