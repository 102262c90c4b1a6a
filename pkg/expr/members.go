package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/expr-lang/expr/vm/runtime"
)

// maxFractionDigits bounds the precision accepted by toFixed
const maxFractionDigits = 100

// method is a builtin method bound to its receiver value
type method struct {
	name string
	recv any
	fn   func(recv any, args []any) (any, error)
}

func (m method) Call(_ Context, args []any) (any, error) {
	return m.fn(m.recv, args)
}

func argString(args []any, i int) string {
	if i < len(args) {
		return Stringify(args[i])
	}
	return ""
}

var stringMethods = map[string]func(recv any, args []any) (any, error){
	"toUpperCase": func(r any, _ []any) (any, error) { return strings.ToUpper(r.(string)), nil },
	"toLowerCase": func(r any, _ []any) (any, error) { return strings.ToLower(r.(string)), nil },
	"trim":        func(r any, _ []any) (any, error) { return strings.TrimSpace(r.(string)), nil },
	"includes": func(r any, args []any) (any, error) {
		return strings.Contains(r.(string), argString(args, 0)), nil
	},
	"startsWith": func(r any, args []any) (any, error) {
		return strings.HasPrefix(r.(string), argString(args, 0)), nil
	},
	"endsWith": func(r any, args []any) (any, error) {
		return strings.HasSuffix(r.(string), argString(args, 0)), nil
	},
	"indexOf": func(r any, args []any) (any, error) {
		return int64(strings.Index(r.(string), argString(args, 0))), nil
	},
	"split": func(r any, args []any) (any, error) {
		parts := strings.Split(r.(string), argString(args, 0))
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	},
	"toString": func(r any, _ []any) (any, error) { return r, nil },
}

var sliceMethods = map[string]func(recv any, args []any) (any, error){
	"includes": func(r any, args []any) (any, error) {
		return sliceIndex(r, args) >= 0, nil
	},
	"indexOf": func(r any, args []any) (any, error) {
		return int64(sliceIndex(r, args)), nil
	},
	"join": func(r any, args []any) (any, error) {
		sep := ","
		if len(args) > 0 {
			sep = Stringify(args[0])
		}
		rv := reflect.ValueOf(r)
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, sep), nil
	},
}

var numberMethods = map[string]func(recv any, args []any) (any, error){
	"toFixed": func(r any, args []any) (any, error) {
		digits := 0.0
		if len(args) > 0 {
			if d := asFloat(ToNumber(args[0])); !math.IsNaN(d) {
				digits = math.Trunc(d)
			}
		}
		if digits < 0 || digits > maxFractionDigits {
			return nil, fmt.Errorf("%w: toFixed() digits must be between 0 and %d", ErrType, maxFractionDigits)
		}
		return strconv.FormatFloat(asFloat(r), 'f', int(digits), 64), nil
	},
	"toString": func(r any, _ []any) (any, error) { return formatNumber(r), nil },
}

func sliceIndex(r any, args []any) int {
	var needle any
	if len(args) > 0 {
		needle = args[0]
	}
	rv := reflect.ValueOf(r)
	for i := 0; i < rv.Len(); i++ {
		if runtime.Equal(rv.Index(i).Interface(), needle) {
			return i
		}
	}
	return -1
}

// readMember reads obj[key] for a member expression. An optional read of
// nil yields nil.
func readMember(obj, key any, optional bool) (any, error) {
	if obj == nil && optional {
		return nil, nil
	}
	return index(obj, key)
}

// callMethod calls obj[key] with args. A callable read from a Context is
// called with that Context as receiver; anything else gets ctx.
func callMethod(ctx Context, obj, key any, optional bool, args []any) (any, error) {
	if obj == nil && optional {
		return nil, nil
	}
	fn, err := index(obj, key)
	if err != nil {
		return nil, err
	}
	if fn == nil && optional {
		return nil, nil
	}
	this := ctx
	if c, ok := obj.(Context); ok {
		this = c
	}
	callable, ok := AsCallable(fn)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCallable, Stringify(key), typeName(fn))
	}
	return call(callable, this, args)
}

// member reads obj.name. Missing members yield nil; reading from nil is a
// type error.
func member(obj any, name string) (any, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: cannot read property %q of null", ErrType, name)
	}
	if g, ok := obj.(Getter); ok {
		if v, ok := g.Get(name); ok {
			return v, nil
		}
	}
	switch x := obj.(type) {
	case string:
		if name == "length" {
			return int64(utf8.RuneCountInString(x)), nil
		}
		if fn, ok := stringMethods[name]; ok {
			return method{name: name, recv: x, fn: fn}, nil
		}
		return nil, nil
	case Getter:
		return nil, nil
	}
	if n, ok := number(obj); ok {
		if fn, ok := numberMethods[name]; ok {
			return method{name: name, recv: n, fn: fn}, nil
		}
		return nil, nil
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: cannot read property %q of null", ErrType, name)
		}
		if m := methodByName(rv, name); m.IsValid() {
			return m.Interface(), nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if name == "length" {
			return int64(rv.Len()), nil
		}
		if fn, ok := sliceMethods[name]; ok {
			return method{name: name, recv: rv.Interface(), fn: fn}, nil
		}
	case reflect.Map:
		if name == "length" && rv.Type().Key().Kind() != reflect.String {
			return int64(rv.Len()), nil
		}
		if rv.Type().Key().Kind() == reflect.String {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if v.IsValid() {
				return v.Interface(), nil
			}
		}
	case reflect.Struct:
		if f := fieldByName(rv, name); f.IsValid() {
			return f.Interface(), nil
		}
		if m := methodByName(rv, name); m.IsValid() {
			return m.Interface(), nil
		}
	}
	return nil, nil
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

func fieldByName(rv reflect.Value, name string) reflect.Value {
	for _, n := range []string{name, exported(name)} {
		sf, ok := rv.Type().FieldByName(n)
		if ok && sf.IsExported() {
			return rv.FieldByIndex(sf.Index)
		}
	}
	return reflect.Value{}
}

func methodByName(rv reflect.Value, name string) reflect.Value {
	if name == "" {
		return reflect.Value{}
	}
	return rv.MethodByName(exported(name))
}

// index reads obj[key]
func index(obj, key any) (any, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: cannot index null", ErrType)
	}
	if n, ok := number(key); ok {
		if _, isGetter := obj.(Getter); !isGetter {
			f := asFloat(n)
			if f != math.Trunc(f) {
				return nil, nil
			}
			i := int(f)
			if s, ok := obj.(string); ok {
				runes := []rune(s)
				if i < 0 || i >= len(runes) {
					return nil, nil
				}
				return string(runes[i]), nil
			}
			rv := reflect.ValueOf(obj)
			for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
				rv = rv.Elem()
			}
			if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
				if i < 0 || i >= rv.Len() {
					return nil, nil
				}
				return rv.Index(i).Interface(), nil
			}
		}
	}
	return member(obj, Stringify(key))
}

// setMember writes obj.name = v
func setMember(obj any, name string, v any) error {
	if obj == nil {
		return fmt.Errorf("%w: cannot set property %q of null", ErrType, name)
	}
	if c, ok := obj.(Context); ok {
		c.Set(name, v)
		return nil
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			break
		}
		val, err := convertArg(v, rv.Type().Elem())
		if err != nil {
			return err
		}
		rv.SetMapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()), val)
		return nil
	case reflect.Pointer:
		if rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			break
		}
		f := fieldByName(rv.Elem(), name)
		if !f.IsValid() || !f.CanSet() {
			break
		}
		val, err := convertArg(v, f.Type())
		if err != nil {
			return err
		}
		f.Set(val)
		return nil
	}
	return fmt.Errorf("%w: cannot set property %q of %T", ErrType, name, obj)
}

// setIndex writes obj[key] = v
func setIndex(obj, key, v any) error {
	if n, ok := number(key); ok {
		rv := reflect.ValueOf(obj)
		for rv.Kind() == reflect.Interface {
			rv = rv.Elem()
		}
		if rv.Kind() == reflect.Slice {
			i := int(asFloat(n))
			if i < 0 || i >= rv.Len() {
				return fmt.Errorf("%w: index %d out of range", ErrType, i)
			}
			val, err := convertArg(v, rv.Type().Elem())
			if err != nil {
				return err
			}
			rv.Index(i).Set(val)
			return nil
		}
	}
	return setMember(obj, Stringify(key), v)
}
