package expr

import (
	"fmt"
	"reflect"
)

// Callable is a value that can be invoked from an expression. this is the
// receiver: the context (or record) the callable was looked up in.
type Callable interface {
	Call(this Context, args []any) (any, error)
}

// Func adapts a function to Callable. It is the usual way to put handlers
// and computed getters into a state record.
type Func func(this Context, args []any) (any, error)

// Call invokes f
func (f Func) Call(this Context, args []any) (any, error) {
	return f(this, args)
}

// Getter0 adapts a zero-argument function of the receiver, the common shape
// of computed properties.
func Getter0(fn func(this Context) any) Func {
	return func(this Context, _ []any) (any, error) {
		return fn(this), nil
	}
}

// AsCallable reports whether v can be called and returns it as a Callable.
// Ordinary Go funcs are adapted through reflection; they do not receive
// the receiver.
func AsCallable(v any) (Callable, bool) {
	switch f := v.(type) {
	case nil:
		return nil, false
	case Callable:
		return f, true
	case func(Context, []any) (any, error):
		return Func(f), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, false
	}
	return reflectFunc{rv}, true
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// reflectFunc calls an arbitrary Go func, converting arguments to the
// parameter types. Missing arguments become zero values and extra
// arguments are dropped.
type reflectFunc struct {
	fn reflect.Value
}

func (f reflectFunc) Call(_ Context, args []any) (any, error) {
	ft := f.fn.Type()
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
	}
	in := make([]reflect.Value, 0, len(args))
	for i := 0; i < fixed; i++ {
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		v, err := convertArg(arg, ft.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, v)
	}
	if ft.IsVariadic() {
		elem := ft.In(fixed).Elem()
		for i := fixed; i < len(args); i++ {
			v, err := convertArg(args[i], elem)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			in = append(in, v)
		}
	}

	out := f.fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			err, _ := out[0].Interface().(error)
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		last := out[len(out)-1]
		if ft.Out(len(out)-1) == errorType && !last.IsNil() {
			return nil, last.Interface().(error)
		}
		return out[0].Interface(), nil
	}
}

func convertArg(arg any, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(pt), nil
	}
	av := reflect.ValueOf(arg)
	if av.Type().AssignableTo(pt) {
		return av, nil
	}
	if isNumber(arg) && isNumericKind(pt.Kind()) {
		return av.Convert(pt), nil
	}
	if pt.Kind() == reflect.String {
		return reflect.ValueOf(Stringify(arg)).Convert(pt), nil
	}
	if pt.Kind() == reflect.Bool {
		return reflect.ValueOf(Truthy(arg)).Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot use %T as %s", ErrType, arg, pt)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// call invokes fn and converts panics into errors.
func call(fn Callable, this Context, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn.Call(this, args)
}

// resolve looks an identifier up in the context, then in the builtins
func resolve(ctx Getter, name string) (any, error) {
	if ctx != nil {
		if v, ok := ctx.Get(name); ok {
			return v, nil
		}
	}
	if b, ok := builtins[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrReference, name)
}

// callByName calls the callable stored under name with ctx as receiver
func callByName(ctx Context, name string, args []any) (any, error) {
	v, err := resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	fn, ok := AsCallable(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCallable, name, typeName(v))
	}
	return call(fn, ctx, args)
}

// invoke calls a computed callee value with ctx as receiver
func invoke(ctx Context, v any, args []any) (any, error) {
	fn, ok := AsCallable(v)
	if !ok {
		return nil, fmt.Errorf("%w: expression is %s", ErrNotCallable, typeName(v))
	}
	return call(fn, ctx, args)
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// Invoke calls fn with receiver this. Panics raised by fn are returned as
// errors wrapping ErrPanic.
func Invoke(fn Callable, this Context, args ...any) (any, error) {
	return call(fn, this, args)
}
