package expr

// Getter is implemented by values whose members can be read by name.
type Getter interface {
	Get(key string) (any, bool)
}

// Context is the capability an expression is evaluated against: keyed reads,
// keyed writes, and callable lookup through Lookup.
type Context interface {
	Getter
	Set(key string, value any)
}

// Record is a map-backed Context. It is the usual state record: values are
// shared, never copied, so writes through any holder are visible to all.
type Record map[string]any

// Get returns the value stored under key
func (r Record) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// Set stores value under key
func (r Record) Set(key string, value any) {
	r[key] = value
}

// Overlay layers local bindings over a parent context. Local keys shadow the
// parent; writes to keys that are not local go to the parent.
type Overlay struct {
	Locals Record
	Parent Context
}

// NewOverlay creates an overlay of locals over parent
func NewOverlay(parent Context, locals Record) *Overlay {
	if locals == nil {
		locals = Record{}
	}
	return &Overlay{Locals: locals, Parent: parent}
}

// Get looks the key up in the locals, then in the parent
func (o *Overlay) Get(key string) (any, bool) {
	if v, ok := o.Locals[key]; ok {
		return v, true
	}
	if o.Parent == nil {
		return nil, false
	}
	return o.Parent.Get(key)
}

// Set writes a local key in place, anything else to the parent
func (o *Overlay) Set(key string, value any) {
	if _, ok := o.Locals[key]; ok || o.Parent == nil {
		o.Locals[key] = value
		return
	}
	o.Parent.Set(key, value)
}

// Lookup returns the callable stored under key, if any.
func Lookup(ctx Getter, key string) (Callable, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Get(key)
	if !ok {
		return nil, false
	}
	return AsCallable(v)
}
