package expr

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type profile struct {
	Name string
	Age  int
}

func (p profile) Initials() string { return p.Name[:1] }

func testState() Record {
	return Record{
		"count": 3,
		"name":  "Ada",
		"items": []any{"a", "b", "c"},
		"user":  map[string]any{"first": "Ada", "age": 36},
		"p":     profile{Name: "Grace", Age: 85},
		"total": Getter0(func(Context) any { return 5 }),
		"add":   func(a, b int) int { return a + b },
		"hello": Func(func(this Context, _ []any) (any, error) {
			v, _ := this.Get("name")
			return "hi " + Stringify(v), nil
		}),
		"person": Record{
			"name": "Bob",
			"hello": Func(func(this Context, _ []any) (any, error) {
				v, _ := this.Get("name")
				return "hi " + Stringify(v), nil
			}),
		},
		"boom":  func() int { panic("kaboom") },
		"big":   int64(math.MaxInt64),
		"huge":  uint64(math.MaxUint64),
		"upper": Func(func(_ Context, args []any) (any, error) { return "shadowed", nil }),
	}
}

func TestEvaluator_Eval(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"identifier", "count", "3"},
		{"addition", "count + 1", "4"},
		{"float multiply", "count * 2.5", "7.5"},
		{"division", "count / 2", "1.5"},
		{"whole division", "count / 3", "1"},
		{"string concat", "name + '!'", "Ada!"},
		{"slice length", "items.length", "3"},
		{"slice index", "items[1]", "b"},
		{"index out of range", "items[7]", ""},
		{"map member", "user.first", "Ada"},
		{"missing member", "user.missing", ""},
		{"struct field lower case", "p.name", "Grace"},
		{"struct method", "p.initials()", "G"},
		{"logical and", "count > 2 && name == 'Ada'", "true"},
		{"logical or is boolean", "'' || name", "true"},
		{"nil coalescing", "user.missing ?? 'none'", "none"},
		{"optional chain", "user.missing?.deeper.still", ""},
		{"ternary", "count > 5 ? 'big' : 'small'", "small"},
		{"not", "!count", "false"},
		{"negate", "-count", "-3"},
		{"root call", "total()", "5"},
		{"getter shorthand", "total", "5"},
		{"go func call", "add(count, 4)", "7"},
		{"nested calls in arguments", "add(add(1, 2), total())", "8"},
		{"string method", "name.toUpperCase()", "ADA"},
		{"slice join", "items.join('-')", "a-b-c"},
		{"slice includes", "items.includes('b')", "true"},
		{"builtin len", "len(items)", "3"},
		{"toFixed", "(0.1 * 3).toFixed(2)", "0.30"},
		{"null equality", "null == undefined", "true"},
		{"numeric kinds compare equal", "count == 3.0", "true"},
		{"no string coercion in equality", "'3' == count", "false"},
		{"slice includes number", "[1, 2, 3].includes(count)", "true"},
		{"builtin", "lower(name)", "ada"},
		{"context shadows builtin", "upper(name)", "shadowed"},
		{"predicate builtin", "len(filter(items, # != 'b'))", "2"},
		{"let binding", "let n = count * 2; n + 1", "7"},
		{"toFixed zero digits", "(2.6).toFixed(0)", "3"},
		{"toFixed max digits", "len((1).toFixed(100))", "102"},
		{"int64 overflow falls back to float", "big + 1", "9223372036854776000"},
		{"int64 multiply overflow", "big * 2", "18446744073709552000"},
		{"uint64 above int64 range", "huge - 0", "18446744073709552000"},
		{"array literal", "[1, 2].length", "2"},
		{"object literal", "{a: 1, 'b': 2}.b", "2"},
		{"receiver is context", "hello()", "hi Ada"},
		{"receiver is owning record", "person.hello()", "hi Bob"},
		{"empty", "", ""},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Eval(tt.code, testState())
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.code, err)
			}
			if s := Stringify(got); s != tt.want {
				t.Errorf("Eval(%q) = %q, want %q", tt.code, s, tt.want)
			}
		})
	}
}

func TestEvaluator_EvalErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"arithmetic on function", "total + 1", ErrType},
		{"undefined identifier", "missing", ErrReference},
		{"syntax", "count +", ErrSyntax},
		{"unterminated string", "'abc", ErrSyntax},
		{"call non-callable", "count()", ErrNotCallable},
		{"member of null", "user.missing.deeper", ErrType},
		{"panicking callable", "boom()", ErrPanic},
		{"arabic-indic digit", "٣", ErrReference},
		{"fullwidth digit", "１+1", ErrReference},
		{"invalid utf-8", "\xff", ErrSyntax},
		{"statement separator", ";x", ErrSyntax},
		{"toFixed above range", "(1).toFixed(101)", ErrType},
		{"toFixed below range", "(1).toFixed(-1)", ErrType},
		{"mixed comparison", "name < 3", ErrType},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Eval(tt.code, testState())
			if !errors.Is(err, tt.want) {
				t.Errorf("Eval(%q) error = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestCompile_ErrorPosition(t *testing.T) {
	_, err := Compile("count + )")
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("Compile() error = %v, want ErrSyntax", err)
	}
	if !strings.Contains(err.Error(), "1:9:") {
		t.Errorf("Compile() error = %q, want column 1:9", err)
	}

	_, err = CompileStatements("count = 1; total = )")
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("CompileStatements() error = %v, want ErrSyntax", err)
	}
	if !strings.Contains(err.Error(), "1:20:") {
		t.Errorf("CompileStatements() error = %q, want column 1:20", err)
	}
}

func TestCompile_ReturnsOnUnicodeInput(t *testing.T) {
	for _, src := range []string{"٣", "１+1", "\xff", "'a", "{{ 'a", "x = ٣", "a[", "٣٣٣ + ١"} {
		done := make(chan error, 2)
		go func() {
			_, err := Compile(src)
			done <- err
			_, err = CompileStatements(src)
			done <- err
		}()
		for i := 0; i < 2; i++ {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("compiling %q did not return", src)
			}
		}
	}
}

func TestEvaluator_EvaluateLogsAndDegrades(t *testing.T) {
	var buf bytes.Buffer
	ev := NewEvaluator(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	if got := ev.Evaluate("total + 1", testState()); got != "" {
		t.Errorf("Evaluate() = %v, want empty string", got)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `expr="total + 1"`) {
		t.Errorf("log output = %q, want warn with expr attribute", out)
	}
	if ev.Condition("missing", testState()) {
		t.Error("Condition() on failing expression = true, want false")
	}
}

func TestEvaluator_Interpolate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"single", "Hello {{ name }}", "Hello Ada"},
		{"multiple", "{{count}} of {{ items.length }} items", "3 of 3 items"},
		{"no markers", "plain text", "plain text"},
		{"failing marker", "[{{ missing }}]", "[]"},
		{"unmatched braces", "{{ count", "{{ count"},
		{"call", "Total: {{ total() }}", "Total: 5"},
		{"unterminated string", "{{ 'a", "{{ 'a"},
		{"unterminated string in marker", "[{{ 'a }}]", "[]"},
		{"fullwidth digit", "[{{ １ }}]", "[]"},
	}

	ev := NewEvaluator(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Interpolate(tt.text, testState()); got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestEvaluator_Exec(t *testing.T) {
	state := Record{
		"count": 1,
		"todos": []any{},
		"user":  map[string]any{"name": "x"},
		"p":     &profile{Name: "Grace"},
	}
	ev := NewEvaluator()

	_, err := ev.Exec("count += 2; count = count * 10; todos = append(todos, 'milk'); user.name = 'y'; p.age = 85", state)
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if state["count"] != int64(30) {
		t.Errorf("count = %v, want 30", state["count"])
	}
	if diff := cmp.Diff([]any{"milk"}, state["todos"]); diff != "" {
		t.Errorf("todos mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"name": "y"}, state["user"]); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%s", diff)
	}
	if got := state["p"].(*profile).Age; got != 85 {
		t.Errorf("p.Age = %d, want 85", got)
	}

	if _, err := ev.Exec("count -= 1; todos[0] = 'eggs'; todos = remove(todos, 5)", state); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if diff := cmp.Diff([]any{"eggs"}, state["todos"]); diff != "" {
		t.Errorf("todos mismatch (-want +got):\n%s", diff)
	}
	if state["count"] != int64(29) {
		t.Errorf("count = %v, want 29", state["count"])
	}
}

func TestEvaluator_ExecErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"call target", "f() = 1", ErrSyntax},
		{"missing value", "count =", ErrSyntax},
		{"chained assignment", "a = b = 1", ErrSyntax},
		{"unknown in value", "count = missing", ErrReference},
		{"compound on function", "total += 1", ErrType},
		{"member of null", "user.missing.x = 1", ErrType},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Exec(tt.src, testState())
			if !errors.Is(err, tt.want) {
				t.Errorf("Exec(%q) error = %v, want %v", tt.src, err, tt.want)
			}
		})
	}
}

func TestEvaluator_StatementsAndExpressionsCacheSeparately(t *testing.T) {
	ev := NewEvaluator()
	state := Record{"x": 1}
	if _, err := ev.Exec("x", state); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if _, err := ev.Eval(";x", state); !errors.Is(err, ErrSyntax) {
		t.Errorf("Eval(\";x\") error = %v, want ErrSyntax", err)
	}
	v, err := ev.Eval("x", state)
	if err != nil || v != 1 {
		t.Errorf("Eval(\"x\") = %v, %v, want 1", v, err)
	}
	if got := ev.Cache().GetStats().Entries; got != 3 {
		t.Errorf("Entries = %d, want 3", got)
	}
}

func TestArith_Overflow(t *testing.T) {
	tests := []struct {
		op   string
		l, r any
		want any
	}{
		{"+", int64(math.MaxInt64), int64(1), float64(math.MaxInt64) + 1},
		{"-", int64(math.MinInt64), int64(1), float64(math.MinInt64) - 1},
		{"*", int64(math.MaxInt64), int64(2), float64(math.MaxInt64) * 2},
		{"*", int64(-1), int64(math.MinInt64), -float64(math.MinInt64)},
		{"%", int64(math.MinInt64), int64(-1), int64(0)},
		{"+", uint64(math.MaxUint64), 0, float64(math.MaxUint64)},
		{"+", int64(2), int64(3), int64(5)},
		{"*", int64(-4), int64(3), int64(-12)},
	}
	for _, tt := range tests {
		got, err := arith(tt.op, tt.l, tt.r)
		if err != nil {
			t.Fatalf("arith(%q, %v, %v) error = %v", tt.op, tt.l, tt.r, err)
		}
		if got != tt.want {
			t.Errorf("arith(%q, %v, %v) = %#v, want %#v", tt.op, tt.l, tt.r, got, tt.want)
		}
	}
}

func TestEvaluator_ExecOverlay(t *testing.T) {
	state := Record{"selected": ""}
	scope := NewOverlay(state, Record{"item": "b", "index": 1})
	ev := NewEvaluator()

	if _, err := ev.Exec("selected = item; index = 7", scope); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if state["selected"] != "b" {
		t.Errorf("selected = %v, want b", state["selected"])
	}
	if _, ok := state["index"]; ok {
		t.Error("local index leaked into parent")
	}
	if scope.Locals["index"] != int64(7) {
		t.Errorf("local index = %v, want 7", scope.Locals["index"])
	}
}

func TestCache_Eviction(t *testing.T) {
	c := NewCache(2)
	for _, src := range []string{"a", "b", "a", "c", "b"} {
		if _, err := c.compile(src, false); err != nil {
			t.Fatalf("compile(%q) error = %v", src, err)
		}
	}

	want := Stats{Hits: 1, Misses: 4, Evictions: 2, Entries: 2}
	if diff := cmp.Diff(want, c.GetStats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	_, err := c.compile("1 +", false)
	_, err2 := c.compile("1 +", false)
	if !errors.Is(err, ErrSyntax) || !errors.Is(err2, ErrSyntax) {
		t.Errorf("cached compile error = %v, %v, want ErrSyntax", err, err2)
	}

	c.Clear()
	if got := c.GetStats().Entries; got != 0 {
		t.Errorf("Entries after Clear() = %d, want 0", got)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{0, false},
		{int64(0), false},
		{0.0, false},
		{"", false},
		{"0", true},
		{1, true},
		{[]any{}, true},
		{Record{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
