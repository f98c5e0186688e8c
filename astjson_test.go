package poh

import (
	"strings"
	"testing"
)

const wireProgram = `{
  "stmts": [
    {"type": "set", "name": "base", "value": {"type": "num", "value": 10}},
    {"type": "func", "name": "addBase",
     "params": [{"name": "y", "default": {"type": "num", "value": 1}}],
     "body": [
       {"type": "return", "value":
         {"type": "bin", "op": "plus",
          "left": {"type": "ident", "name": "base"},
          "right": {"type": "ident", "name": "y"}}}
     ]},
    {"type": "write", "expr": {"type": "callexpr", "name": "addBase", "args": []}},
    {"type": "write", "expr":
      {"type": "callexpr", "name": "addBase",
       "args": [{"type": "num", "value": 5}]}},
    {"type": "if",
     "cond": {"type": "cmp", "op": "gt",
              "left": {"type": "ident", "name": "base"},
              "right": {"type": "num", "value": 5}},
     "then": [{"type": "write", "expr": {"type": "text", "value": "big"}}],
     "else": [{"type": "write", "expr": {"type": "text", "value": "small"}}]},
    {"type": "write", "expr":
      {"type": "builtin", "name": "join with",
       "args": [
         {"type": "list", "items": [
           {"type": "num", "value": 1},
           {"type": "bool", "value": true},
           {"type": "nothing"}]},
         {"type": "text", "value": "|"}]}}
  ]
}`

func TestDecodeProgramExecutes(t *testing.T) {
	p, err := DecodeProgram([]byte(wireProgram))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := runWalker(p, "")
	wantNoErr(t, err)
	wantOut(t, out, "11\n15\nbig\n1|True|Nothing\n")
}

func TestDecodeExprForms(t *testing.T) {
	cases := []struct {
		doc  string
		want string
	}{
		{`{"type": "num", "value": 2.5}`, "2.5"},
		{`{"type": "neg", "operand": {"type": "num", "value": 3}}`, "-3"},
		{`{"type": "not", "operand": {"type": "bool", "value": false}}`, "True"},
		{`{"type": "and", "left": {"type": "num", "value": 1}, "right": {"type": "text", "value": "x"}}`, "True"},
		{`{"type": "or", "left": {"type": "bool", "value": false}, "right": {"type": "nothing"}}`, "False"},
		{`{"type": "index", "target": {"type": "dict", "entries": [{"key": "k", "value": {"type": "num", "value": 7}}]}, "key": {"type": "text", "value": "k"}}`, "7"},
	}
	ip := NewInterpreter()
	for _, c := range cases {
		e, err := DecodeExpr([]byte(c.doc))
		if err != nil {
			t.Fatalf("decode %s: %v", c.doc, err)
		}
		v, err := ip.EvalExpr(e)
		wantNoErr(t, err)
		if Render(v) != c.want {
			t.Errorf("%s = %s, want %s", c.doc, Render(v), c.want)
		}
	}
}

func TestDecodeRejectsUnknownTypes(t *testing.T) {
	if _, err := DecodeProgram([]byte(`{"stmts": [{"type": "teleport"}]}`)); err == nil ||
		!strings.Contains(err.Error(), "teleport") {
		t.Errorf("unknown statement type: err = %v", err)
	}
	if _, err := DecodeExpr([]byte(`{"type": "bin", "op": "modulo", "left": {"type": "num", "value": 1}, "right": {"type": "num", "value": 2}}`)); err == nil ||
		!strings.Contains(err.Error(), "modulo") {
		t.Errorf("unknown operator: err = %v", err)
	}
}

func TestDecodeRejectsMissingPieces(t *testing.T) {
	if _, err := DecodeProgram([]byte(`not json`)); err == nil {
		t.Error("malformed document accepted")
	}
	if _, err := DecodeExpr([]byte(`{"type": "bin", "op": "plus"}`)); err == nil {
		t.Error("binary op without operands accepted")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p, err := DecodeProgram([]byte(wireProgram))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, err := EncodeProgram(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p2, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	out1, _ := runWalker(p, "")
	out2, _ := runWalker(p2, "")
	wantOut(t, out2, out1)
}
