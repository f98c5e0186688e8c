// ops.go — operator semantics shared by both execution strategies.
//
// eval.go and vm.go both funnel every arithmetic, comparison, and index
// operation through these helpers, so a coercion rule cannot exist in one
// strategy and not the other.

package poh

// arith applies an arithmetic operator with the "plus" coercions: Number
// arithmetic, Text concatenation when either plus operand is Text, and List
// concatenation for plus on two Lists.
func arith(op BinOp, a, b Value) Value {
	if op == OpPlus {
		if a.Tag == VTText || b.Tag == VTText {
			return Text(Render(a) + Render(b))
		}
		if a.Tag == VTList && b.Tag == VTList {
			xs := a.Data.([]Value)
			ys := b.Data.([]Value)
			out := make([]Value, 0, len(xs)+len(ys))
			out = append(out, xs...)
			out = append(out, ys...)
			return List(out)
		}
	}
	if a.Tag != VTNum || b.Tag != VTNum {
		failType("cannot apply '%s' to %s and %s", opName(op), tagName(a.Tag), tagName(b.Tag))
	}
	x, y := a.Data.(float64), b.Data.(float64)
	switch op {
	case OpPlus:
		return Num(x + y)
	case OpMinus:
		return Num(x - y)
	case OpTimes:
		return Num(x * y)
	case OpDividedBy:
		if y == 0 {
			failType("division by zero")
		}
		return Num(x / y)
	}
	return Nothing
}

// compare applies a comparison operator. Equality is total; ordering is
// defined for Number/Number and Text/Text only.
func compare(op CmpOp, a, b Value) Value {
	switch op {
	case CmpEq:
		return Bool(deepEqual(a, b))
	case CmpNe:
		return Bool(!deepEqual(a, b))
	}
	if a.Tag == VTNum && b.Tag == VTNum {
		x, y := a.Data.(float64), b.Data.(float64)
		switch op {
		case CmpLt:
			return Bool(x < y)
		case CmpLe:
			return Bool(x <= y)
		case CmpGt:
			return Bool(x > y)
		case CmpGe:
			return Bool(x >= y)
		}
	}
	if a.Tag == VTText && b.Tag == VTText {
		x, y := a.Data.(string), b.Data.(string)
		switch op {
		case CmpLt:
			return Bool(x < y)
		case CmpLe:
			return Bool(x <= y)
		case CmpGt:
			return Bool(x > y)
		case CmpGe:
			return Bool(x >= y)
		}
	}
	failType("cannot order %s and %s", tagName(a.Tag), tagName(b.Tag))
	return Nothing
}

// negate is unary numeric minus.
func negate(v Value) Value {
	if v.Tag != VTNum {
		failType("cannot negate %s", tagName(v.Tag))
	}
	return Num(-v.Data.(float64))
}

// index reads target[key]: a List by 0-based Number, a Dictionary by Text.
func index(target, key Value) Value {
	switch target.Tag {
	case VTList:
		if key.Tag != VTNum {
			failType("list index must be a number, not %s", tagName(key.Tag))
		}
		xs := target.Data.([]Value)
		i := int(key.Data.(float64))
		if i < 0 || i >= len(xs) {
			failType("Index %s is out of range for the list.", formatNumber(key.Data.(float64)))
		}
		return xs[i]
	case VTDict:
		if key.Tag != VTText {
			failType("dictionary key must be text, not %s", tagName(key.Tag))
		}
		k := key.Data.(string)
		v, ok := target.Data.(*DictObject).Get(k)
		if !ok {
			failType("Key %s was not found in the dictionary.", k)
		}
		return v
	default:
		failType("cannot index into %s", tagName(target.Tag))
		return Nothing
	}
}

func opName(op BinOp) string {
	switch op {
	case OpPlus:
		return "plus"
	case OpMinus:
		return "minus"
	case OpTimes:
		return "times"
	case OpDividedBy:
		return "divided by"
	default:
		return "?"
	}
}
