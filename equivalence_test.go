package poh

import "testing"

// The differential harness: every corpus program runs through the tree
// walker and through compile+VM, and both the stdout bytes and the error
// text must match exactly. The corpus covers every statement and expression
// form plus the failure paths whose messages are contractual.

type corpusCase struct {
	name  string
	prog  *Program
	input string
}

func equivalenceCorpus() []corpusCase {
	return []corpusCase{
		{
			name: "add function",
			prog: prog(
				fdef("add", []Param{par("x"), par("y")}, ret(bin(OpPlus, ident("x"), ident("y")))),
				write(call("add", num(2), num(3))),
			),
		},
		{
			name: "greet with default",
			prog: prog(
				fdef("greet", []Param{parDef("name", txt("World"))},
					ret(bin(OpPlus, txt("Hello "), ident("name")))),
				write(call("greet")),
				write(call("greet", txt("Ada"))),
			),
		},
		{
			name: "global read from function",
			prog: prog(
				set("base", num(10)),
				fdef("makeAdder", []Param{par("y")}, ret(bin(OpPlus, ident("base"), ident("y")))),
				write(call("makeAdder", num(5))),
			),
		},
		{
			name: "arity too few",
			prog: prog(
				fdef("pair", []Param{par("a"), par("b")}, ret(bin(OpPlus, ident("a"), ident("b")))),
				write(call("pair", num(1))),
			),
		},
		{
			name: "undefined function",
			prog: prog(write(call("nope", num(1)))),
		},
		{
			name: "aliased callee arity message",
			prog: prog(
				fdef("f", []Param{par("a"), par("b")}, ret(bin(OpPlus, ident("a"), ident("b")))),
				set("g", ident("f")),
				write(call("g", num(1))),
			),
		},
		{
			name: "aliased callee call",
			prog: prog(
				fdef("f", []Param{par("a"), par("b")}, ret(bin(OpPlus, ident("a"), ident("b")))),
				set("g", ident("f")),
				write(call("g", num(2), num(3))),
			),
		},
		{
			name: "capture after definition",
			prog: prog(
				set("v", num(1)),
				fdef("get", nil, ret(ident("v"))),
				set("v", num(2)),
				write(call("get")),
			),
		},
		{
			name: "enclosing local capture",
			prog: prog(
				fdef("make", []Param{par("n")},
					fdef("get", nil, ret(ident("n"))),
					ret(call("get"))),
				write(call("make", num(7))),
			),
		},
		{
			name: "closure escapes defining call",
			prog: prog(
				fdef("make", []Param{par("n")},
					fdef("get", nil, ret(ident("n"))),
					ret(ident("get"))),
				set("a", call("make", num(1))),
				set("b", call("make", num(2))),
				write(call("a")),
				write(call("b")),
			),
		},
		{
			name: "closure sees later enclosing set",
			prog: prog(
				fdef("make", nil,
					set("n", num(1)),
					fdef("get", nil, ret(ident("n"))),
					set("n", num(2)),
					ret(call("get"))),
				write(call("make")),
			),
		},
		{
			name: "function local shadows global",
			prog: prog(
				set("x", num(1)),
				fdef("f", nil, set("x", num(99)), ret(ident("x"))),
				write(call("f")),
				write(ident("x")),
			),
		},
		{
			name: "read before first set",
			prog: prog(
				set("x", num(1)),
				fdef("f", nil, write(ident("x")), set("x", num(2))),
				callStmt(call("f")),
			),
		},
		{
			name: "default uses earlier parameter",
			prog: prog(
				fdef("f", []Param{par("a"), parDef("b", bin(OpPlus, ident("a"), num(1)))},
					ret(bin(OpPlus, ident("a"), ident("b")))),
				write(call("f", num(10))),
				write(call("f", num(10), num(0))),
			),
		},
		{
			name: "default references later parameter",
			prog: prog(
				fdef("f", []Param{parDef("a", ident("b")), parDef("b", num(1))}, ret(ident("a"))),
				write(call("f")),
			),
		},
		{
			name: "write call alias",
			prog: prog(
				fdef("v", nil, ret(num(3))),
				write(call("v")),
				callStmt(call("v")),
			),
		},
		{
			name: "while countdown",
			prog: prog(
				set("i", num(3)),
				while(cmp(CmpGt, ident("i"), num(0)),
					write(ident("i")),
					set("i", bin(OpMinus, ident("i"), num(1)))),
			),
		},
		{
			name: "repeat with fractional count",
			prog: prog(repeat(num(2.7), write(txt("tick")))),
		},
		{
			name: "if else truthiness ladder",
			prog: prog(
				ifElse(txt(""), []Stmt{write(txt("a"))}, []Stmt{write(txt("b"))}),
				ifElse(list(num(1)), []Stmt{write(txt("c"))}, []Stmt{write(txt("d"))}),
				ifElse(nothing(), []Stmt{write(txt("e"))}, []Stmt{write(txt("f"))}),
			),
		},
		{
			name: "and or not short circuit",
			prog: prog(
				write(&AndExpr{Left: boolLit(false), Right: call("boom")}),
				write(&OrExpr{Left: num(2), Right: call("boom")}),
				write(&AndExpr{Left: txt("x"), Right: num(0)}),
				write(&NotExpr{Operand: nothing()}),
				write(&NegExpr{Operand: num(4)}),
			),
		},
		{
			name: "text and list plus coercions",
			prog: prog(
				write(bin(OpPlus, txt("n="), num(2.5))),
				write(bin(OpPlus, num(1), txt("st"))),
				write(bin(OpPlus, list(num(1)), list(num(2)))),
			),
		},
		{
			name: "division by zero",
			prog: prog(
				write(txt("before")),
				write(bin(OpDividedBy, num(1), num(0))),
				write(txt("after")),
			),
		},
		{
			name: "ordering type mismatch",
			prog: prog(write(cmp(CmpLt, num(1), txt("a")))),
		},
		{
			name: "comparisons",
			prog: prog(
				write(cmp(CmpEq, list(num(1), txt("a")), list(num(1), txt("a")))),
				write(cmp(CmpNe, num(1), txt("1"))),
				write(cmp(CmpLe, txt("a"), txt("b"))),
				write(cmp(CmpGe, num(2), num(2))),
			),
		},
		{
			name: "list index out of range",
			prog: prog(
				set("xs", list(num(10), num(20))),
				write(&IndexExpr{Target: ident("xs"), Key: num(1)}),
				write(&IndexExpr{Target: ident("xs"), Key: num(5)}),
			),
		},
		{
			name: "dict literal index and miss",
			prog: prog(
				set("d", &DictLit{Entries: []DictEntry{
					{Key: "a", Value: num(1)},
					{Key: "b", Value: num(2)},
				}}),
				write(ident("d")),
				write(&IndexExpr{Target: ident("d"), Key: txt("b")}),
				write(&IndexExpr{Target: ident("d"), Key: txt("z")}),
			),
		},
		{
			name: "builtins over aggregates",
			prog: prog(
				set("xs", list(num(3), num(1), num(2))),
				write(builtin("count of", ident("xs"))),
				write(builtin("total of", ident("xs"))),
				write(builtin("smallest in", ident("xs"))),
				write(builtin("largest in", ident("xs"))),
				write(builtin("reverse of", ident("xs"))),
				write(builtin("join with", ident("xs"), txt(","))),
				write(builtin("split by", txt("a-b-c"), txt("-"))),
				write(builtin("contains", ident("xs"), num(2))),
			),
		},
		{
			name: "builtin arity failure",
			prog: prog(write(builtin("round", num(1), num(2)))),
		},
		{
			name: "builtin shape failure",
			prog: prog(write(builtin("total of", txt("nope")))),
		},
		{
			name: "dict builtins",
			prog: prog(
				set("d", &DictLit{Entries: []DictEntry{
					{Key: "k1", Value: num(1)},
					{Key: "k2", Value: num(2)},
				}}),
				write(builtin("keys of", ident("d"))),
				write(builtin("values of", ident("d"))),
				write(builtin("contains", ident("d"), txt("k1"))),
			),
		},
		{
			name: "recursion",
			prog: prog(
				fdef("fact", []Param{par("n")},
					ifElse(cmp(CmpLe, ident("n"), num(1)),
						[]Stmt{ret(num(1))}, nil),
					ret(bin(OpTimes, ident("n"), call("fact", bin(OpMinus, ident("n"), num(1)))))),
				write(call("fact", num(10))),
			),
		},
		{
			name: "redefinition replaces",
			prog: prog(
				fdef("f", nil, ret(num(1))),
				fdef("f", nil, ret(num(2))),
				write(call("f")),
			),
		},
		{
			name: "top level return",
			prog: prog(write(num(1)), ret(nil), write(num(2))),
		},
		{
			name:  "ask twice",
			input: "Ada\nLovelace\n",
			prog: prog(
				&AskStmt{Name: "first"},
				&AskStmt{Name: "last"},
				write(bin(OpPlus, ident("first"), bin(OpPlus, txt(" "), ident("last")))),
			),
		},
		{
			name: "function value rendering",
			prog: prog(
				fdef("f", nil, ret(nothing())),
				write(ident("f")),
			),
		},
		{
			name: "undefined variable stops after output",
			prog: prog(write(num(1)), write(ident("ghost"))),
		},
	}
}

func TestInterpreterVMEquivalence(t *testing.T) {
	for _, tc := range equivalenceCorpus() {
		t.Run(tc.name, func(t *testing.T) {
			wOut, wErr := runWalker(tc.prog, tc.input)
			vOut, vErr := runVM(tc.prog, tc.input)

			if wOut != vOut {
				t.Errorf("stdout diverged:\nwalker: %q\nvm:     %q", wOut, vOut)
			}
			switch {
			case wErr == nil && vErr != nil:
				t.Errorf("walker succeeded, vm failed: %v", vErr)
			case wErr != nil && vErr == nil:
				t.Errorf("walker failed (%v), vm succeeded", wErr)
			case wErr != nil && vErr != nil && wErr.Error() != vErr.Error():
				t.Errorf("error text diverged:\nwalker: %q\nvm:     %q", wErr, vErr)
			}
		})
	}
}

// The wire format must carry every corpus program without changing its
// behavior, so a round-tripped program is re-run through both strategies.
func TestEquivalenceSurvivesWireRoundTrip(t *testing.T) {
	for _, tc := range equivalenceCorpus() {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeProgram(tc.prog)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := DecodeProgram(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			origOut, origErr := runWalker(tc.prog, tc.input)
			rtOut, rtErr := runVM(decoded, tc.input)
			if origOut != rtOut {
				t.Errorf("stdout diverged after round trip:\noriginal: %q\nround-trip: %q", origOut, rtOut)
			}
			if (origErr == nil) != (rtErr == nil) ||
				(origErr != nil && origErr.Error() != rtErr.Error()) {
				t.Errorf("error diverged after round trip: %v vs %v", origErr, rtErr)
			}
		})
	}
}
