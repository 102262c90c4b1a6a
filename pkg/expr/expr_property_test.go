//go:build property

package expr

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestEvaluatorProperties checks the evaluator against Go's own semantics
func TestEvaluatorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	ev := NewEvaluator()

	properties.Property("integer arithmetic matches Go", prop.ForAll(
		func(a, b int32) bool {
			state := Record{"a": a, "b": b}
			sum, err := ev.Eval("a + b * 2 - a", state)
			if err != nil {
				return false
			}
			return sum == int64(b)*2
		},
		gen.Int32(), gen.Int32(),
	))

	properties.Property("text without markers interpolates to itself", prop.ForAll(
		func(s string) bool {
			if strings.Contains(s, "{{") {
				return true
			}
			return ev.Interpolate(s, Record{}) == s
		},
		gen.AnyString(),
	))

	properties.Property("string literals round trip", prop.ForAll(
		func(s string) bool {
			quoted := "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
			v, err := ev.Eval(quoted, Record{})
			return err == nil && v == s
		},
		gen.AlphaString(),
	))

	properties.Property("comparison agrees with Go", prop.ForAll(
		func(a, b int32) bool {
			v, err := ev.Eval("a < b", Record{"a": a, "b": b})
			return err == nil && v == (a < b)
		},
		gen.Int32(), gen.Int32(),
	))

	properties.Property("compiling any text returns", prop.ForAll(
		func(s string) bool {
			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = Compile(s)
				_, _ = CompileStatements(s)
				_ = ev.Interpolate("{{ "+s+" }}", Record{})
			}()
			select {
			case <-done:
				return true
			case <-time.After(2 * time.Second):
				return false
			}
		},
		gen.OneGenOf(
			gen.AnyString(),
			gen.UnicodeString(unicode.Nd).Map(func(s string) string { return s + "+1" }),
			gen.UnicodeString(unicode.Nd).Map(func(s string) string { return "x = " + s }),
		),
	))

	properties.TestingRun(t)
}
