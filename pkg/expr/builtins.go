package expr

import (
	"fmt"
	"reflect"
)

// builtins are the global functions available to every expression. The
// context shadows them.
var builtins = map[string]Callable{
	"len": Func(func(_ Context, args []any) (any, error) {
		if len(args) == 0 || args[0] == nil {
			return int64(0), nil
		}
		return member(args[0], "length")
	}),
	"append": Func(func(_ Context, args []any) (any, error) {
		if len(args) == 0 {
			return []any{}, nil
		}
		list, err := toList(args[0])
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(list)+len(args)-1)
		out = append(out, list...)
		return append(out, args[1:]...), nil
	}),
	"remove": Func(func(_ Context, args []any) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: remove(list, index) takes two arguments", ErrType)
		}
		list, err := toList(args[0])
		if err != nil {
			return nil, err
		}
		i, ok := ToNumber(args[1]).(int64)
		if !ok || i < 0 || int(i) >= len(list) {
			return list, nil
		}
		out := make([]any, 0, len(list)-1)
		out = append(out, list[:i]...)
		return append(out, list[i+1:]...), nil
	}),
	"String": Func(func(_ Context, args []any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return Stringify(args[0]), nil
	}),
	"Number": Func(func(_ Context, args []any) (any, error) {
		if len(args) == 0 {
			return int64(0), nil
		}
		return ToNumber(args[0]), nil
	}),
}

// toList copies any slice or array into a []any. nil is the empty list.
func toList(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if l, ok := v.([]any); ok {
		return l, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %T is not a list", ErrType, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// ToList reports whether v is a list and returns its elements.
func ToList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	l, err := toList(v)
	return l, err == nil
}
