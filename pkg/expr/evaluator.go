package expr

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/expr-lang/expr/parser/utils"
)

var interpolation = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// HasInterpolation reports whether text contains a {{ … }} marker
func HasInterpolation(text string) bool {
	return interpolation.MatchString(text)
}

// Evaluator compiles and evaluates expressions. It never fails outward:
// Evaluate logs the error and yields the empty string.
type Evaluator struct {
	logger *slog.Logger
	cache  *Cache
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithLogger sets the logger used for evaluation diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCache shares a program cache between evaluators
func WithCache(c *Cache) Option {
	return func(e *Evaluator) {
		if c != nil {
			e.cache = c
		}
	}
}

// NewEvaluator creates an evaluator with its own cache
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewCache(0)
	}
	return e
}

// Cache returns the evaluator's program cache
func (e *Evaluator) Cache() *Cache {
	return e.cache
}

// Eval evaluates code against ctx and returns the error instead of logging
// it. Resolution is tiered: a root call of a callable identifier is invoked
// with ctx as receiver, a bare callable identifier is invoked with no
// arguments, and anything else is evaluated as an expression.
func (e *Evaluator) Eval(code string, ctx Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	prog, err := e.cache.compile(strings.TrimSpace(code), false)
	if err != nil {
		return nil, err
	}
	return prog.eval(ctx)
}

// Evaluate evaluates code against ctx. Failures are logged at warn level
// and produce the empty string.
func (e *Evaluator) Evaluate(code string, ctx Context) any {
	v, err := e.Eval(code, ctx)
	if err != nil {
		e.logger.Warn("expression evaluation failed", "expr", code, "err", err)
		return ""
	}
	return v
}

// Condition evaluates code as a boolean. Failures count as false.
func (e *Evaluator) Condition(code string, ctx Context) bool {
	return Truthy(e.Evaluate(code, ctx))
}

// Interpolate replaces every {{ expr }} marker in text with the stringified
// value of expr.
func (e *Evaluator) Interpolate(text string, ctx Context) string {
	return interpolation.ReplaceAllStringFunc(text, func(m string) string {
		code := interpolation.FindStringSubmatch(m)[1]
		return Stringify(e.Evaluate(strings.TrimSpace(code), ctx))
	})
}

// Exec runs a ';'-separated statement list against ctx and returns the value
// of the last statement.
func (e *Evaluator) Exec(src string, ctx Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	prog, err := e.cache.compile(strings.TrimSpace(src), true)
	if err != nil {
		return nil, err
	}
	for _, stmt := range prog.stmts {
		if result, err = stmt.exec(ctx); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// IsIdentifier reports whether s is a single identifier
func IsIdentifier(s string) bool {
	return utils.IsValidIdentifier(s)
}
