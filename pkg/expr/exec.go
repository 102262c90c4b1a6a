package expr

import (
	"fmt"

	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/parser/lexer"
)

// statement is one entry of a statement list: a bare expression, or an
// assignment to an identifier, a member or an index.
type statement struct {
	op    string // "", "=", "+=" or "-="
	value *Program

	name   string   // identifier target
	object *Program // member and index targets
	field  string
	key    *Program
	target *Program // current value, for compound assignment
}

// CompileStatements compiles a ';'-separated list of statements. A
// statement is an assignment (=, += or -=) or an expression.
func CompileStatements(src string) (*Program, error) {
	toks, err := lexer.Lex(file.NewSource(src))
	if err != nil {
		return nil, syntaxError(src, 0, err)
	}
	if n := len(toks); n > 0 && toks[n-1].Is(lexer.EOF) {
		toks = toks[:n-1]
	}
	runes := []rune(src)
	prog := &Program{Source: src}
	for _, seg := range splitStatements(toks) {
		stmt, err := compileStatement(runes, seg)
		if err != nil {
			return nil, err
		}
		prog.stmts = append(prog.stmts, stmt)
	}
	return prog, nil
}

// splitStatements cuts toks at every ';' outside brackets. Empty statements
// are dropped.
func splitStatements(toks []lexer.Token) [][]lexer.Token {
	var out [][]lexer.Token
	depth, start := 0, 0
	for i, t := range toks {
		switch {
		case t.Is(lexer.Bracket, "(", "[", "{"):
			depth++
		case t.Is(lexer.Bracket, ")", "]", "}"):
			depth--
		case depth == 0 && t.Is(lexer.Operator, ";"):
			if i > start {
				out = append(out, toks[start:i])
			}
			start = i + 1
		}
	}
	if start < len(toks) {
		out = append(out, toks[start:])
	}
	return out
}

func compileStatement(runes []rune, seg []lexer.Token) (*statement, error) {
	eq := -1
	depth := 0
	for i, t := range seg {
		switch {
		case t.Is(lexer.Bracket, "(", "[", "{"):
			depth++
		case t.Is(lexer.Bracket, ")", "]", "}"):
			depth--
		case depth == 0 && t.Is(lexer.Operator, "="):
			eq = i
		}
		if eq >= 0 {
			break
		}
	}
	if eq < 0 {
		value, err := compileSpan(runes, seg)
		if err != nil {
			return nil, err
		}
		return &statement{value: value}, nil
	}

	stmt := &statement{op: "="}
	lhs := seg[:eq]
	if n := len(lhs); n > 0 {
		last := lhs[n-1]
		if (last.Is(lexer.Operator, "+") || last.Is(lexer.Operator, "-")) && last.To == seg[eq].From {
			stmt.op = last.Value + "="
			lhs = lhs[:n-1]
		}
	}
	rhs := seg[eq+1:]
	if len(lhs) == 0 || len(rhs) == 0 {
		return nil, fmt.Errorf("%w: 1:%d: incomplete assignment", ErrSyntax, seg[eq].From+1)
	}
	if err := stmt.bindTarget(runes, lhs); err != nil {
		return nil, err
	}
	var err error
	if stmt.op != "=" {
		if stmt.target, err = compileSpan(runes, lhs); err != nil {
			return nil, err
		}
	}
	if stmt.value, err = compileSpan(runes, rhs); err != nil {
		return nil, err
	}
	return stmt, nil
}

// bindTarget resolves the left-hand side of an assignment
func (s *statement) bindTarget(runes []rune, lhs []lexer.Token) error {
	n := len(lhs)
	last := lhs[n-1]
	var err error
	switch {
	case n == 1 && last.Is(lexer.Identifier):
		s.name = last.Value
		return nil
	case n >= 3 && last.Is(lexer.Identifier) && lhs[n-2].Is(lexer.Operator, "."):
		s.field = last.Value
		s.object, err = compileSpan(runes, lhs[:n-2])
		return err
	case n >= 4 && last.Is(lexer.Bracket, "]"):
		open := matchingOpen(lhs)
		if open <= 0 || open == n-2 {
			break
		}
		if s.object, err = compileSpan(runes, lhs[:open]); err != nil {
			return err
		}
		s.key, err = compileSpan(runes, lhs[open+1:n-1])
		return err
	}
	return fmt.Errorf("%w: 1:%d: invalid assignment target", ErrSyntax, lhs[0].From+1)
}

// matchingOpen returns the index of the '[' closing at the end of toks
func matchingOpen(toks []lexer.Token) int {
	depth := 0
	for i := len(toks) - 1; i >= 0; i-- {
		switch {
		case toks[i].Is(lexer.Bracket, "]"):
			depth++
		case toks[i].Is(lexer.Bracket, "["):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// compileSpan compiles the source text covered by toks
func compileSpan(runes []rune, toks []lexer.Token) (*Program, error) {
	from, to := toks[0].From, toks[len(toks)-1].To
	return compileExpr(string(runes[from:to]), from)
}

// exec runs the statement. Assignments return the assigned value.
func (s *statement) exec(ctx Context) (any, error) {
	if s.op == "" {
		return s.value.eval(ctx)
	}
	v, err := s.value.run(ctx)
	if err != nil {
		return nil, err
	}
	if s.op != "=" {
		cur, err := s.target.run(ctx)
		if err != nil {
			return nil, err
		}
		if v, err = arith(s.op[:1], cur, v); err != nil {
			return nil, err
		}
	}

	if s.name != "" {
		if ctx == nil {
			return nil, fmt.Errorf("%w: %s", ErrReference, s.name)
		}
		ctx.Set(s.name, v)
		return v, nil
	}
	obj, err := s.object.run(ctx)
	if err != nil {
		return nil, err
	}
	if s.key == nil {
		err = setMember(obj, s.field, v)
	} else {
		var key any
		if key, err = s.key.run(ctx); err == nil {
			err = setIndex(obj, key, v)
		}
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
