// builtins.go — the builtin bridge.
//
// One immutable table, built once at engine construction, dispatched by name
// from the tree walker and by index from the VM. Arity violations report
// through the same message shape as user-function calls; shape violations
// name the builtin.

package poh

import (
	"math"
	"strings"
)

// BuiltinFn is a native operation over Values. Builtins that touch process
// streams reach them through the interpreter.
type BuiltinFn func(ip *Interpreter, args []Value) Value

// Builtin is one bridge entry.
type Builtin struct {
	Name  string
	Arity int
	Fn    BuiltinFn
}

// BuiltinTable is the fixed dispatch table. Indexes are stable for the life
// of the table, so compiled chunks may embed them.
type BuiltinTable struct {
	entries []Builtin
	byName  map[string]int
}

// NewBuiltinTable builds a table from entries; the table never grows after
// construction.
func NewBuiltinTable(entries []Builtin) *BuiltinTable {
	t := &BuiltinTable{entries: entries, byName: make(map[string]int, len(entries))}
	for i, b := range entries {
		t.byName[b.Name] = i
	}
	return t
}

// ID returns the stable index of a builtin name.
func (t *BuiltinTable) ID(name string) (int, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// At returns the entry at a stable index.
func (t *BuiltinTable) At(id int) Builtin { return t.entries[id] }

// Len reports the number of entries.
func (t *BuiltinTable) Len() int { return len(t.entries) }

// Invoke checks arity and runs the builtin at id.
func (t *BuiltinTable) Invoke(ip *Interpreter, id int, args []Value) Value {
	b := t.entries[id]
	if len(args) != b.Arity {
		failArity(b.Name, b.Arity, len(args))
	}
	return b.Fn(ip, args)
}

// InvokeByName resolves name and invokes; unknown names fail as undefined
// functions, same as a user call to a missing name.
func (t *BuiltinTable) InvokeByName(ip *Interpreter, name string, args []Value) Value {
	id, ok := t.byName[name]
	if !ok {
		failNotDefined(name)
	}
	return t.Invoke(ip, id, args)
}

// StandardBuiltins is the phrase-derived builtin set.
func StandardBuiltins() *BuiltinTable {
	return NewBuiltinTable([]Builtin{
		{"count of", 1, biCountOf},
		{"total of", 1, biTotalOf},
		{"smallest in", 1, biSmallestIn},
		{"largest in", 1, biLargestIn},
		{"absolute value of", 1, biAbs},
		{"round", 1, biRound},
		{"round down", 1, biRoundDown},
		{"round up", 1, biRoundUp},
		{"make uppercase", 1, biUpper},
		{"make lowercase", 1, biLower},
		{"trim spaces", 1, biTrim},
		{"first in", 1, biFirstIn},
		{"last in", 1, biLastIn},
		{"reverse of", 1, biReverseOf},
		{"join with", 2, biJoinWith},
		{"split by", 2, biSplitBy},
		{"contains", 2, biContains},
		{"keys of", 1, biKeysOf},
		{"values of", 1, biValuesOf},
		{"ask", 0, biAsk},
	})
}

func biCountOf(_ *Interpreter, args []Value) Value {
	switch v := args[0]; v.Tag {
	case VTText:
		return Num(float64(len([]rune(v.Data.(string)))))
	case VTList:
		return Num(float64(len(v.Data.([]Value))))
	case VTDict:
		return Num(float64(len(v.Data.(*DictObject).Keys)))
	default:
		failType("count of expects text, a list, or a dictionary, not %s", tagName(v.Tag))
		return Nothing
	}
}

func numList(name string, v Value) []float64 {
	if v.Tag != VTList {
		failType("%s expects a list, not %s", name, tagName(v.Tag))
	}
	xs := v.Data.([]Value)
	out := make([]float64, len(xs))
	for i, x := range xs {
		if x.Tag != VTNum {
			failType("%s expects a list of numbers", name)
		}
		out[i] = x.Data.(float64)
	}
	return out
}

func biTotalOf(_ *Interpreter, args []Value) Value {
	sum := 0.0
	for _, x := range numList("total of", args[0]) {
		sum += x
	}
	return Num(sum)
}

func biSmallestIn(_ *Interpreter, args []Value) Value {
	xs := numList("smallest in", args[0])
	if len(xs) == 0 {
		failType("smallest in expects a non-empty list")
	}
	min := xs[0]
	for _, x := range xs[1:] {
		if x < min {
			min = x
		}
	}
	return Num(min)
}

func biLargestIn(_ *Interpreter, args []Value) Value {
	xs := numList("largest in", args[0])
	if len(xs) == 0 {
		failType("largest in expects a non-empty list")
	}
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	return Num(max)
}

func wantNum(name string, v Value) float64 {
	if v.Tag != VTNum {
		failType("%s expects a number, not %s", name, tagName(v.Tag))
	}
	return v.Data.(float64)
}

func wantText(name string, v Value) string {
	if v.Tag != VTText {
		failType("%s expects text, not %s", name, tagName(v.Tag))
	}
	return v.Data.(string)
}

func biAbs(_ *Interpreter, args []Value) Value {
	return Num(math.Abs(wantNum("absolute value of", args[0])))
}

// math.Round is half away from zero, which is the contract here.
func biRound(_ *Interpreter, args []Value) Value {
	return Num(math.Round(wantNum("round", args[0])))
}

func biRoundDown(_ *Interpreter, args []Value) Value {
	return Num(math.Floor(wantNum("round down", args[0])))
}

func biRoundUp(_ *Interpreter, args []Value) Value {
	return Num(math.Ceil(wantNum("round up", args[0])))
}

func biUpper(_ *Interpreter, args []Value) Value {
	return Text(strings.ToUpper(wantText("make uppercase", args[0])))
}

func biLower(_ *Interpreter, args []Value) Value {
	return Text(strings.ToLower(wantText("make lowercase", args[0])))
}

func biTrim(_ *Interpreter, args []Value) Value {
	return Text(strings.TrimSpace(wantText("trim spaces", args[0])))
}

func biFirstIn(_ *Interpreter, args []Value) Value {
	switch v := args[0]; v.Tag {
	case VTText:
		rs := []rune(v.Data.(string))
		if len(rs) == 0 {
			return Nothing
		}
		return Text(string(rs[0]))
	case VTList:
		xs := v.Data.([]Value)
		if len(xs) == 0 {
			return Nothing
		}
		return xs[0]
	default:
		failType("first in expects text or a list, not %s", tagName(v.Tag))
		return Nothing
	}
}

func biLastIn(_ *Interpreter, args []Value) Value {
	switch v := args[0]; v.Tag {
	case VTText:
		rs := []rune(v.Data.(string))
		if len(rs) == 0 {
			return Nothing
		}
		return Text(string(rs[len(rs)-1]))
	case VTList:
		xs := v.Data.([]Value)
		if len(xs) == 0 {
			return Nothing
		}
		return xs[len(xs)-1]
	default:
		failType("last in expects text or a list, not %s", tagName(v.Tag))
		return Nothing
	}
}

func biReverseOf(_ *Interpreter, args []Value) Value {
	switch v := args[0]; v.Tag {
	case VTText:
		rs := []rune(v.Data.(string))
		for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
			rs[i], rs[j] = rs[j], rs[i]
		}
		return Text(string(rs))
	case VTList:
		xs := v.Data.([]Value)
		out := make([]Value, len(xs))
		for i, x := range xs {
			out[len(xs)-1-i] = x
		}
		return List(out)
	default:
		failType("reverse of expects text or a list, not %s", tagName(v.Tag))
		return Nothing
	}
}

func biJoinWith(_ *Interpreter, args []Value) Value {
	if args[0].Tag != VTList {
		failType("join with expects a list, not %s", tagName(args[0].Tag))
	}
	sep := wantText("join with", args[1])
	xs := args[0].Data.([]Value)
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = Render(x)
	}
	return Text(strings.Join(parts, sep))
}

func biSplitBy(_ *Interpreter, args []Value) Value {
	s := wantText("split by", args[0])
	sep := wantText("split by", args[1])
	var parts []string
	if sep == "" {
		for _, r := range s {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s, sep)
	}
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = Text(p)
	}
	return List(out)
}

func biContains(_ *Interpreter, args []Value) Value {
	haystack, needle := args[0], args[1]
	switch haystack.Tag {
	case VTText:
		if needle.Tag != VTText {
			failType("contains on text expects a text needle, not %s", tagName(needle.Tag))
		}
		return Bool(strings.Contains(haystack.Data.(string), needle.Data.(string)))
	case VTList:
		for _, x := range haystack.Data.([]Value) {
			if deepEqual(x, needle) {
				return Bool(true)
			}
		}
		return Bool(false)
	case VTDict:
		if needle.Tag != VTText {
			failType("contains on a dictionary expects a text key, not %s", tagName(needle.Tag))
		}
		_, ok := haystack.Data.(*DictObject).Get(needle.Data.(string))
		return Bool(ok)
	default:
		failType("contains expects text, a list, or a dictionary, not %s", tagName(haystack.Tag))
		return Nothing
	}
}

func biKeysOf(_ *Interpreter, args []Value) Value {
	if args[0].Tag != VTDict {
		failType("keys of expects a dictionary, not %s", tagName(args[0].Tag))
	}
	d := args[0].Data.(*DictObject)
	out := make([]Value, len(d.Keys))
	for i, k := range d.Keys {
		out[i] = Text(k)
	}
	return List(out)
}

func biValuesOf(_ *Interpreter, args []Value) Value {
	if args[0].Tag != VTDict {
		failType("values of expects a dictionary, not %s", tagName(args[0].Tag))
	}
	d := args[0].Data.(*DictObject)
	out := make([]Value, len(d.Keys))
	for i, k := range d.Keys {
		out[i] = d.Entries[k]
	}
	return List(out)
}

func biAsk(ip *Interpreter, _ []Value) Value {
	return Text(ip.readLine())
}
