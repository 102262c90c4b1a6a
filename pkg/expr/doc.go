// Package expr evaluates the expression language used by template
// directives. Expressions are parsed and compiled by expr-lang; a patch pass
// rewrites the tree so identifiers resolve through a Context, calls receive
// their owning record as receiver, and strings, slices and numbers carry
// the usual member methods (toUpperCase, includes, toFixed and so on).
//
// The Evaluator resolves code in three tiers: a root call of a callable
// identifier is invoked with the context as receiver, a bare callable
// identifier is invoked as a zero-argument getter, and anything else is
// evaluated as a general expression.
//
// Event handlers may also be statement lists. Exec splits them on ';' and
// runs assignments (=, += and -=) to identifiers, members and indexes.
//
// Nothing here executes host code other than the Go callables the caller
// places in the context.
package expr
