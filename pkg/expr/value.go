package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// number normalizes Go numeric values to int64 or float64. ok is false for
// non-numeric values.
func number(v any) (n any, ok bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint:
		return unsigned(uint64(x)), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return unsigned(x), true
	case float32:
		return float64(x), true
	}
	return nil, false
}

// unsigned converts x to int64, or to float64 past math.MaxInt64
func unsigned(x uint64) any {
	if x > math.MaxInt64 {
		return float64(x)
	}
	return int64(x)
}

func isNumber(v any) bool {
	_, ok := number(v)
	return ok
}

func asFloat(n any) float64 {
	switch x := n.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return math.NaN()
}

// ToNumber converts a value to a number the way unary plus does: numbers pass
// through, booleans become 0/1, nil becomes 0, numeric strings parse, and
// anything else is NaN.
func ToNumber(v any) any {
	if n, ok := number(v); ok {
		return n
	}
	switch x := v.(type) {
	case nil:
		return int64(0)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return int64(0)
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// Truthy reports whether v counts as true in a condition. nil, false, 0,
// NaN and the empty string are false; everything else is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if n, ok := number(v); ok {
		f := asFloat(n)
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// Stringify renders a value for text content. nil renders as the empty
// string, whole floats without a fractional part, and slices as their
// comma-joined elements.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	if n, ok := number(v); ok {
		return formatNumber(n)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Func:
		return "[function]"
	case reflect.Map, reflect.Struct:
		return "[object]"
	}
	if _, ok := v.(Callable); ok {
		return "[function]"
	}
	return fmt.Sprint(v)
}

func formatNumber(n any) string {
	switch x := n.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		switch {
		case math.IsNaN(x):
			return "NaN"
		case math.IsInf(x, 1):
			return "Infinity"
		case math.IsInf(x, -1):
			return "-Infinity"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

func isCallableValue(v any) bool {
	_, ok := AsCallable(v)
	return ok
}

// arith applies a binary arithmetic operator.
func arith(op string, l, r any) (any, error) {
	if isCallableValue(l) || isCallableValue(r) {
		return nil, fmt.Errorf("%w: operator %s applied to a function", ErrType, op)
	}
	if op == "+" {
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			return Stringify(l) + Stringify(r), nil
		}
	}
	ln, err := arithOperand(op, l)
	if err != nil {
		return nil, err
	}
	rn, err := arithOperand(op, r)
	if err != nil {
		return nil, err
	}

	li, lInt := ln.(int64)
	ri, rInt := rn.(int64)
	if lInt && rInt {
		if n, ok := intArith(op, li, ri); ok {
			return n, nil
		}
	}
	lf, rf := asFloat(ln), asFloat(rn)
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		return lf / rf, nil
	case "%":
		return math.Mod(lf, rf), nil
	}
	return nil, fmt.Errorf("%w: unknown operator %s", ErrSyntax, op)
}

func arithOperand(op string, v any) (any, error) {
	switch v.(type) {
	case nil, bool, string:
		return ToNumber(v), nil
	}
	if n, ok := number(v); ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: operator %s applied to %T", ErrType, op, v)
}

// intArith applies op to int64 operands. ok is false when the result does
// not fit or op has no integer form, and the caller falls back to float64.
func intArith(op string, l, r int64) (n int64, ok bool) {
	switch op {
	case "+":
		n = l + r
		return n, (l^n)&(r^n) >= 0
	case "-":
		n = l - r
		return n, (l^r)&(l^n) >= 0
	case "*":
		if l == 0 || r == 0 {
			return 0, true
		}
		n = l * r
		if n/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return 0, false
		}
		return n, true
	case "%":
		if r == 0 {
			return 0, false
		}
		if r == -1 {
			return 0, true
		}
		return l % r, true
	}
	return 0, false
}
