package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// Names introduced by the patcher. '@' is not a valid source character, so
// expressions cannot refer to them.
const (
	thisName = "@this"
	fnIdent  = "@ident"
	fnCall   = "@call"
	fnInvoke = "@invoke"
	fnMethod = "@method"
	fnMember = "@member"
	fnArith  = "@arith"
	fnTruthy = "@truthy"
	fnHas    = "@has"
)

// Program is a compiled expression or statement list
type Program struct {
	Source string

	prog   *vm.Program
	getter string
	stmts  []*statement
}

// Compile compiles a single expression. The empty expression evaluates to
// nil.
func Compile(src string) (*Program, error) {
	return compileExpr(src, 0)
}

// compileExpr compiles src, which starts offset runes into the line it was
// cut from.
func compileExpr(src string, offset int) (*Program, error) {
	p := &Program{Source: src}
	if strings.TrimSpace(src) == "" {
		return p, nil
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, syntaxError(src, offset, err)
	}
	if id, ok := tree.Node.(*ast.IdentifierNode); ok && !isNull(id.Value) {
		p.getter = id.Value
	}
	locals := declarations{}
	ast.Walk(&tree.Node, locals)

	opts := make([]expr.Option, 0, len(functions)+1)
	opts = append(opts, functions...)
	opts = append(opts, expr.Patch(&patcher{locals: locals}))
	if p.prog, err = expr.Compile(src, opts...); err != nil {
		return nil, syntaxError(src, offset, err)
	}
	return p, nil
}

func syntaxError(src string, offset int, err error) error {
	var fe *file.Error
	if !errors.As(err, &fe) {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	fe.Bind(file.NewSource(src))
	col := fe.Column + 1
	if fe.Line == 1 {
		col += offset
	}
	return fmt.Errorf("%w: %d:%d: %s", ErrSyntax, fe.Line, col, fe.Message)
}

// eval resolves the program in tiers: a bare identifier naming a callable
// is invoked as a getter with ctx as receiver. Root calls bind ctx through
// the call function, so everything else is a plain run.
func (p *Program) eval(ctx Context) (any, error) {
	if p.getter != "" && ctx != nil {
		if fn, ok := Lookup(ctx, p.getter); ok {
			return call(fn, ctx, nil)
		}
	}
	return p.run(ctx)
}

// run executes the program with ctx bound as the receiver
func (p *Program) run(ctx Context) (any, error) {
	if p.prog == nil {
		return nil, nil
	}
	out, err := vm.Run(p.prog, map[string]any{thisName: ctx})
	if err != nil {
		return nil, runtimeError(err)
	}
	return out, nil
}

// hostError carries an error returned by a function the program called, so
// it can be told apart from errors raised by the VM itself.
type hostError struct {
	err error
}

func (e hostError) Error() string { return e.err.Error() }
func (e hostError) Unwrap() error { return e.err }

func host(v any, err error) (any, error) {
	if err != nil {
		return nil, hostError{err}
	}
	return v, nil
}

func runtimeError(err error) error {
	var fe *file.Error
	if !errors.As(err, &fe) {
		return fmt.Errorf("%w: %v", ErrType, err)
	}
	var he hostError
	if errors.As(fe.Prev, &he) {
		return he.err
	}
	return fmt.Errorf("%w: %s", ErrType, fe.Message)
}

func isNull(name string) bool {
	return name == "null" || name == "undefined"
}

// declarations collects the names bound by let
type declarations map[string]bool

func (d declarations) Visit(node *ast.Node) {
	if v, ok := (*node).(*ast.VariableDeclaratorNode); ok {
		d[v.Name] = true
	}
}

// patcher rewrites the parsed tree so that identifiers resolve through the
// context, calls bind their receiver, and operators follow the binding
// language: arithmetic coerces, conditions test truthiness.
type patcher struct {
	locals declarations
}

func (p *patcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		switch {
		case isNull(n.Value):
			ast.Patch(node, &ast.NilNode{})
		case strings.HasPrefix(n.Value, "@"), n.Value == "$env", p.locals[n.Value]:
		default:
			ast.Patch(node, callNode(fnIdent, this(), str(n.Value)))
		}
	case *ast.IntegerNode:
		ast.Patch(node, &ast.ConstantNode{Value: int64(n.Value)})
	case *ast.UnaryNode:
		if n.Operator == "!" || n.Operator == "not" {
			n.Node = callNode(fnTruthy, n.Node)
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "&&", "||", "and", "or":
			n.Left = callNode(fnTruthy, n.Left)
			n.Right = callNode(fnTruthy, n.Right)
		case "+", "-", "*", "/", "%":
			ast.Patch(node, callNode(fnArith, str(n.Operator), n.Left, n.Right))
		}
	case *ast.ConditionalNode:
		n.Cond = callNode(fnTruthy, n.Cond)
	case *ast.MemberNode:
		if !n.Method {
			ast.Patch(node, callNode(fnMember, n.Node, n.Property, boolean(n.Optional || optional(n.Node))))
		}
	case *ast.CallNode:
		p.call(node, n)
	case *ast.BuiltinNode:
		for _, a := range n.Arguments {
			if _, ok := a.(*ast.PredicateNode); ok {
				return
			}
		}
		// a callable in the context shadows the builtin
		ast.Patch(node, &ast.ConditionalNode{
			Ternary: true,
			Cond:    callNode(fnHas, this(), str(n.Name)),
			Exp1:    callNode(fnCall, append([]ast.Node{this(), str(n.Name)}, n.Arguments...)...),
			Exp2:    n,
		})
	}
}

func (p *patcher) call(node *ast.Node, n *ast.CallNode) {
	if m, ok := n.Callee.(*ast.MemberNode); ok {
		args := []ast.Node{this(), m.Node, m.Property, boolean(m.Optional || optional(m.Node))}
		ast.Patch(node, callNode(fnMethod, append(args, n.Arguments...)...))
		return
	}
	if name, ok := identName(n.Callee); ok {
		ast.Patch(node, callNode(fnCall, append([]ast.Node{this(), str(name)}, n.Arguments...)...))
		return
	}
	if id, ok := n.Callee.(*ast.IdentifierNode); ok && strings.HasPrefix(id.Value, "@") {
		return
	}
	ast.Patch(node, callNode(fnInvoke, append([]ast.Node{this(), n.Callee}, n.Arguments...)...))
}

// identName reports the name behind an identifier the patcher has already
// turned into a context lookup
func identName(n ast.Node) (string, bool) {
	c, ok := n.(*ast.CallNode)
	if !ok || !isFn(c, fnIdent) || len(c.Arguments) != 2 {
		return "", false
	}
	s, ok := c.Arguments[1].(*ast.StringNode)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// optional reports whether n is a member read or method call that was
// already optional, which makes the rest of the chain optional too
func optional(n ast.Node) bool {
	c, ok := n.(*ast.CallNode)
	if !ok {
		return false
	}
	var flag ast.Node
	switch {
	case isFn(c, fnMember) && len(c.Arguments) == 3:
		flag = c.Arguments[2]
	case isFn(c, fnMethod) && len(c.Arguments) >= 4:
		flag = c.Arguments[3]
	default:
		return false
	}
	b, ok := flag.(*ast.BoolNode)
	return ok && b.Value
}

func isFn(c *ast.CallNode, name string) bool {
	id, ok := c.Callee.(*ast.IdentifierNode)
	return ok && id.Value == name
}

func callNode(name string, args ...ast.Node) ast.Node {
	return &ast.CallNode{Callee: &ast.IdentifierNode{Value: name}, Arguments: args}
}

func this() ast.Node          { return &ast.IdentifierNode{Value: thisName} }
func str(s string) ast.Node   { return &ast.StringNode{Value: s} }
func boolean(b bool) ast.Node { return &ast.BoolNode{Value: b} }

// functions are the compile options shared by every program
var functions = []expr.Option{
	expr.DisableBuiltin("len"),
	expr.Function(fnIdent, func(params ...any) (any, error) {
		return host(resolve(receiver(params), params[1].(string)))
	}),
	expr.Function(fnCall, func(params ...any) (any, error) {
		return host(callByName(receiver(params), params[1].(string), tail(params, 2)))
	}),
	expr.Function(fnInvoke, func(params ...any) (any, error) {
		return host(invoke(receiver(params), params[1], tail(params, 2)))
	}),
	expr.Function(fnMethod, func(params ...any) (any, error) {
		return host(callMethod(receiver(params), params[1], params[2], params[3].(bool), tail(params, 4)))
	}),
	expr.Function(fnMember, func(params ...any) (any, error) {
		return host(readMember(params[0], params[1], params[2].(bool)))
	}),
	expr.Function(fnArith, func(params ...any) (any, error) {
		return host(arith(params[0].(string), params[1], params[2]))
	}),
	expr.Function(fnTruthy, func(params ...any) (any, error) {
		return Truthy(params[0]), nil
	}),
	expr.Function(fnHas, func(params ...any) (any, error) {
		_, ok := Lookup(receiver(params), params[1].(string))
		return ok, nil
	}),
}

func receiver(params []any) Context {
	c, _ := params[0].(Context)
	return c
}

// tail copies params[n:]. The VM reuses its argument buffer between calls.
func tail(params []any, n int) []any {
	out := make([]any, len(params)-n)
	copy(out, params[n:])
	return out
}
