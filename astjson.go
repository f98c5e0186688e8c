// astjson.go — the wire format the external parser speaks.
//
// Programs arrive as JSON documents of {"type": ...} envelopes, one per
// node. Decoding is staged: each envelope is first split into its type tag
// and raw fields, then the fields decode recursively. Encoding exists for
// tooling that round-trips programs (tests, the REPL's echo mode).

package poh

import (
	"encoding/json"
	"fmt"
)

// DecodeProgram parses a JSON program document.
func DecodeProgram(data []byte) (*Program, error) {
	var doc struct {
		Stmts []json.RawMessage `json:"stmts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("program document: %w", err)
	}
	stmts, err := decodeStmts(doc.Stmts)
	if err != nil {
		return nil, err
	}
	return &Program{Stmts: stmts}, nil
}

// DecodeExpr parses a single JSON expression document (the REPL line form).
func DecodeExpr(data []byte) (Expr, error) {
	return decodeExpr(json.RawMessage(data))
}

func decodeStmts(raw []json.RawMessage) ([]Stmt, error) {
	out := make([]Stmt, 0, len(raw))
	for _, r := range raw {
		st, err := decodeStmt(r)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func decodeStmt(raw json.RawMessage) (Stmt, error) {
	var env struct {
		Type   string            `json:"type"`
		Name   string            `json:"name"`
		Value  json.RawMessage   `json:"value"`
		Expr   json.RawMessage   `json:"expr"`
		Cond   json.RawMessage   `json:"cond"`
		Count  json.RawMessage   `json:"count"`
		Then   []json.RawMessage `json:"then"`
		Else   []json.RawMessage `json:"else"`
		Body   []json.RawMessage `json:"body"`
		Params []struct {
			Name    string          `json:"name"`
			Default json.RawMessage `json:"default"`
		} `json:"params"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("statement envelope: %w", err)
	}
	switch env.Type {
	case "set":
		v, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}
		return &SetStmt{Name: env.Name, Value: v}, nil
	case "write":
		e, err := decodeExpr(env.Expr)
		if err != nil {
			return nil, err
		}
		return &WriteStmt{Expr: e}, nil
	case "call":
		e, err := decodeExpr(env.Expr)
		if err != nil {
			return nil, err
		}
		return &CallStmt{Expr: e}, nil
	case "ask":
		return &AskStmt{Name: env.Name}, nil
	case "if":
		cond, err := decodeExpr(env.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeStmts(env.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeStmts(env.Else)
		if err != nil {
			return nil, err
		}
		return &IfStmt{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := decodeExpr(env.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body}, nil
	case "repeat":
		count, err := decodeExpr(env.Count)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}
		return &RepeatStmt{Count: count, Body: body}, nil
	case "func":
		params := make([]Param, len(env.Params))
		for i, p := range env.Params {
			params[i] = Param{Name: p.Name}
			if len(p.Default) > 0 {
				d, err := decodeExpr(p.Default)
				if err != nil {
					return nil, err
				}
				params[i].Default = d
			}
		}
		body, err := decodeStmts(env.Body)
		if err != nil {
			return nil, err
		}
		return &FuncDefStmt{Name: env.Name, Params: params, Body: body}, nil
	case "return":
		if len(env.Value) == 0 {
			return &ReturnStmt{}, nil
		}
		v, err := decodeExpr(env.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Value: v}, nil
	default:
		return nil, fmt.Errorf("unknown statement type %q", env.Type)
	}
}

var binOps = map[string]BinOp{
	"plus": OpPlus, "minus": OpMinus, "times": OpTimes, "divided_by": OpDividedBy,
}

var cmpOps = map[string]CmpOp{
	"eq": CmpEq, "ne": CmpNe, "lt": CmpLt, "le": CmpLe, "gt": CmpGt, "ge": CmpGe,
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing expression")
	}
	var env struct {
		Type    string            `json:"type"`
		Value   json.RawMessage   `json:"value"`
		Name    string            `json:"name"`
		Op      string            `json:"op"`
		Left    json.RawMessage   `json:"left"`
		Right   json.RawMessage   `json:"right"`
		Operand json.RawMessage   `json:"operand"`
		Args    []json.RawMessage `json:"args"`
		Items   []json.RawMessage `json:"items"`
		Target  json.RawMessage   `json:"target"`
		Key     json.RawMessage   `json:"key"`
		Entries []struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("expression envelope: %w", err)
	}
	switch env.Type {
	case "num":
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return nil, fmt.Errorf("num literal: %w", err)
		}
		return &NumberLit{Value: f}, nil
	case "text":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, fmt.Errorf("text literal: %w", err)
		}
		return &TextLit{Value: s}, nil
	case "bool":
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return nil, fmt.Errorf("bool literal: %w", err)
		}
		return &BoolLit{Value: b}, nil
	case "nothing":
		return &NothingLit{}, nil
	case "ident":
		return &Ident{Name: env.Name}, nil
	case "bin":
		op, ok := binOps[env.Op]
		if !ok {
			return nil, fmt.Errorf("unknown arithmetic op %q", env.Op)
		}
		l, err := decodeExpr(env.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(env.Right)
		if err != nil {
			return nil, err
		}
		return &BinExpr{Op: op, Left: l, Right: r}, nil
	case "cmp":
		op, ok := cmpOps[env.Op]
		if !ok {
			return nil, fmt.Errorf("unknown comparison op %q", env.Op)
		}
		l, err := decodeExpr(env.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(env.Right)
		if err != nil {
			return nil, err
		}
		return &CmpExpr{Op: op, Left: l, Right: r}, nil
	case "and", "or":
		l, err := decodeExpr(env.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(env.Right)
		if err != nil {
			return nil, err
		}
		if env.Type == "and" {
			return &AndExpr{Left: l, Right: r}, nil
		}
		return &OrExpr{Left: l, Right: r}, nil
	case "not":
		o, err := decodeExpr(env.Operand)
		if err != nil {
			return nil, err
		}
		return &NotExpr{Operand: o}, nil
	case "neg":
		o, err := decodeExpr(env.Operand)
		if err != nil {
			return nil, err
		}
		return &NegExpr{Operand: o}, nil
	case "callexpr":
		args, err := decodeExprs(env.Args)
		if err != nil {
			return nil, err
		}
		return &CallExpr{Name: env.Name, Args: args}, nil
	case "builtin":
		args, err := decodeExprs(env.Args)
		if err != nil {
			return nil, err
		}
		return &BuiltinExpr{Name: env.Name, Args: args}, nil
	case "list":
		items, err := decodeExprs(env.Items)
		if err != nil {
			return nil, err
		}
		return &ListLit{Items: items}, nil
	case "dict":
		entries := make([]DictEntry, len(env.Entries))
		for i, e := range env.Entries {
			v, err := decodeExpr(e.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = DictEntry{Key: e.Key, Value: v}
		}
		return &DictLit{Entries: entries}, nil
	case "index":
		t, err := decodeExpr(env.Target)
		if err != nil {
			return nil, err
		}
		k, err := decodeExpr(env.Key)
		if err != nil {
			return nil, err
		}
		return &IndexExpr{Target: t, Key: k}, nil
	default:
		return nil, fmt.Errorf("unknown expression type %q", env.Type)
	}
}

func decodeExprs(raw []json.RawMessage) ([]Expr, error) {
	out := make([]Expr, 0, len(raw))
	for _, r := range raw {
		e, err := decodeExpr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ---- encoding --------------------------------------------------------------

// EncodeProgram renders a program back into the wire format.
func EncodeProgram(p *Program) ([]byte, error) {
	stmts := make([]interface{}, len(p.Stmts))
	for i, st := range p.Stmts {
		stmts[i] = encodeStmt(st)
	}
	return json.Marshal(map[string]interface{}{"stmts": stmts})
}

func encodeStmts(stmts []Stmt) []interface{} {
	out := make([]interface{}, len(stmts))
	for i, st := range stmts {
		out[i] = encodeStmt(st)
	}
	return out
}

func encodeStmt(st Stmt) interface{} {
	switch s := st.(type) {
	case *SetStmt:
		return map[string]interface{}{"type": "set", "name": s.Name, "value": encodeExpr(s.Value)}
	case *WriteStmt:
		return map[string]interface{}{"type": "write", "expr": encodeExpr(s.Expr)}
	case *CallStmt:
		return map[string]interface{}{"type": "call", "expr": encodeExpr(s.Expr)}
	case *AskStmt:
		return map[string]interface{}{"type": "ask", "name": s.Name}
	case *IfStmt:
		return map[string]interface{}{
			"type": "if", "cond": encodeExpr(s.Cond),
			"then": encodeStmts(s.Then), "else": encodeStmts(s.Else),
		}
	case *WhileStmt:
		return map[string]interface{}{"type": "while", "cond": encodeExpr(s.Cond), "body": encodeStmts(s.Body)}
	case *RepeatStmt:
		return map[string]interface{}{"type": "repeat", "count": encodeExpr(s.Count), "body": encodeStmts(s.Body)}
	case *FuncDefStmt:
		params := make([]interface{}, len(s.Params))
		for i, p := range s.Params {
			m := map[string]interface{}{"name": p.Name}
			if p.Default != nil {
				m["default"] = encodeExpr(p.Default)
			}
			params[i] = m
		}
		return map[string]interface{}{
			"type": "func", "name": s.Name, "params": params, "body": encodeStmts(s.Body),
		}
	case *ReturnStmt:
		m := map[string]interface{}{"type": "return"}
		if s.Value != nil {
			m["value"] = encodeExpr(s.Value)
		}
		return m
	default:
		return nil
	}
}

func encodeExprs(exprs []Expr) []interface{} {
	out := make([]interface{}, len(exprs))
	for i, e := range exprs {
		out[i] = encodeExpr(e)
	}
	return out
}

func encodeExpr(e Expr) interface{} {
	switch x := e.(type) {
	case *NumberLit:
		return map[string]interface{}{"type": "num", "value": x.Value}
	case *TextLit:
		return map[string]interface{}{"type": "text", "value": x.Value}
	case *BoolLit:
		return map[string]interface{}{"type": "bool", "value": x.Value}
	case *NothingLit:
		return map[string]interface{}{"type": "nothing"}
	case *Ident:
		return map[string]interface{}{"type": "ident", "name": x.Name}
	case *BinExpr:
		return map[string]interface{}{
			"type": "bin", "op": binOpName(x.Op),
			"left": encodeExpr(x.Left), "right": encodeExpr(x.Right),
		}
	case *CmpExpr:
		return map[string]interface{}{
			"type": "cmp", "op": cmpOpName(x.Op),
			"left": encodeExpr(x.Left), "right": encodeExpr(x.Right),
		}
	case *AndExpr:
		return map[string]interface{}{"type": "and", "left": encodeExpr(x.Left), "right": encodeExpr(x.Right)}
	case *OrExpr:
		return map[string]interface{}{"type": "or", "left": encodeExpr(x.Left), "right": encodeExpr(x.Right)}
	case *NotExpr:
		return map[string]interface{}{"type": "not", "operand": encodeExpr(x.Operand)}
	case *NegExpr:
		return map[string]interface{}{"type": "neg", "operand": encodeExpr(x.Operand)}
	case *CallExpr:
		return map[string]interface{}{"type": "callexpr", "name": x.Name, "args": encodeExprs(x.Args)}
	case *BuiltinExpr:
		return map[string]interface{}{"type": "builtin", "name": x.Name, "args": encodeExprs(x.Args)}
	case *ListLit:
		return map[string]interface{}{"type": "list", "items": encodeExprs(x.Items)}
	case *DictLit:
		entries := make([]interface{}, len(x.Entries))
		for i, ent := range x.Entries {
			entries[i] = map[string]interface{}{"key": ent.Key, "value": encodeExpr(ent.Value)}
		}
		return map[string]interface{}{"type": "dict", "entries": entries}
	case *IndexExpr:
		return map[string]interface{}{"type": "index", "target": encodeExpr(x.Target), "key": encodeExpr(x.Key)}
	default:
		return nil
	}
}

func binOpName(op BinOp) string {
	switch op {
	case OpPlus:
		return "plus"
	case OpMinus:
		return "minus"
	case OpTimes:
		return "times"
	default:
		return "divided_by"
	}
}

func cmpOpName(op CmpOp) string {
	switch op {
	case CmpEq:
		return "eq"
	case CmpNe:
		return "ne"
	case CmpLt:
		return "lt"
	case CmpLe:
		return "le"
	case CmpGt:
		return "gt"
	default:
		return "ge"
	}
}
