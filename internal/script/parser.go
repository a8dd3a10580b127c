package script

import (
	"fmt"
	"strconv"
	"text/scanner"

	"github.com/roach88/clafer/internal/ir"
)

// ParseError reports malformed script text.
type ParseError struct {
	Name    string
	Pos     Pos
	Message string
}

func (e *ParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%s: %s", e.Name, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Parse reads a fixture script. It stops at the first syntax error.
func Parse(name, src string) (*Script, error) {
	toks, err := tokenize(name, src)
	if err != nil {
		return nil, err
	}
	p := &parser{name: name, toks: toks}

	s := &Script{Name: name}
	for p.peek().kind != scanner.EOF {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		s.Statements = append(s.Statements, stmt)
	}
	return s, nil
}

// ParseExpr reads a single constraint expression. Clafer references are
// returned as written.
func ParseExpr(src string) (ir.Expr, error) {
	toks, err := tokenize("", src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expr(nil)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != scanner.EOF {
		return nil, p.errorf(tok, "unexpected %s after expression", tok)
	}
	return e, nil
}

type parser struct {
	name string
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	tok := p.toks[p.i]
	if tok.kind != scanner.EOF {
		p.i++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &ParseError{Name: p.name, Pos: tok.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind rune) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %s, found %s", describe(kind), tok)
	}
	return tok, nil
}

func describe(kind rune) string {
	switch kind {
	case scanner.Ident:
		return "identifier"
	case scanner.Int:
		return "integer"
	case scanner.String:
		return "string"
	default:
		return fmt.Sprintf("%q", string(kind))
	}
}

func (p *parser) ident() (string, error) {
	tok, err := p.expect(scanner.Ident)
	return tok.text, err
}

func (p *parser) str() (string, error) {
	tok, err := p.expect(scanner.String)
	if err != nil {
		return "", err
	}
	s, err := strconv.Unquote(tok.text)
	if err != nil {
		return "", p.errorf(tok, "invalid string %s", tok.text)
	}
	return s, nil
}

func (p *parser) integer() (int, error) {
	neg := false
	if p.peek().kind == '-' {
		p.next()
		neg = true
	}
	tok, err := p.expect(scanner.Int)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil {
		return 0, p.errorf(tok, "invalid integer %s", tok.text)
	}
	if neg {
		n = -n
	}
	return n, nil
}

// intArgs parses "(" n, ... ")" with between min and max integer arguments.
func (p *parser) intArgs(min, max int) ([]int, error) {
	open, err := p.expect('(')
	if err != nil {
		return nil, err
	}
	var args []int
	for p.peek().kind != ')' {
		if len(args) > 0 {
			if _, err := p.expect(','); err != nil {
				return nil, err
			}
		}
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}
	p.next()
	if len(args) < min || len(args) > max {
		return nil, p.errorf(open, "expected %s, got %d", arity(min, max), len(args))
	}
	return args, nil
}

func arity(min, max int) string {
	if min == max {
		return fmt.Sprintf("%d argument(s)", min)
	}
	return fmt.Sprintf("%d to %d arguments", min, max)
}

func (p *parser) end() error {
	_, err := p.expect(';')
	return err
}

func (p *parser) statement() (Statement, error) {
	tok := p.peek()
	if tok.kind != scanner.Ident {
		p.next()
		return Statement{}, p.errorf(tok, "expected statement, found %s", tok)
	}

	var (
		stmt Statement
		err  error
	)
	switch {
	case p.peekAt(1).kind == '=':
		stmt, err = p.declaration()
	case p.peekAt(1).kind == '.':
		stmt, err = p.method()
	case p.peekAt(1).kind == '(':
		stmt, err = p.call()
	default:
		p.next()
		return Statement{}, p.errorf(tok, "expected '=', '.' or '(' after %s", tok.text)
	}
	if err != nil {
		return Statement{}, err
	}
	stmt.Pos = tok.pos
	return stmt, p.end()
}

// declaration parses ident = Clafer("n") | Abstract("n") | parent.addChild("n"),
// followed by chained modifiers.
func (p *parser) declaration() (Statement, error) {
	ident := p.next().text
	p.next() // '='

	head, err := p.expect(scanner.Ident)
	if err != nil {
		return Statement{}, err
	}

	stmt := Statement{Ident: ident}
	switch {
	case (head.text == "Clafer" || head.text == "Abstract") && p.peek().kind == '(':
		stmt.Kind = StmtClafer
		stmt.Abstract = head.text == "Abstract"
	case p.peek().kind == '.' && p.peekAt(1).text == "addChild":
		p.next()
		p.next()
		stmt.Kind = StmtAddChild
		stmt.Receiver = head.text
	default:
		return Statement{}, p.errorf(head, "expected Clafer, Abstract or addChild, found %s", head)
	}

	if _, err := p.expect('('); err != nil {
		return Statement{}, err
	}
	if stmt.Name, err = p.str(); err != nil {
		return Statement{}, err
	}
	if _, err := p.expect(')'); err != nil {
		return Statement{}, err
	}

	stmt.Mods, err = p.modifiers()
	return stmt, err
}

// modifiers parses a possibly empty chain of .withCard(...) and .extending(x).
func (p *parser) modifiers() ([]Modifier, error) {
	var mods []Modifier
	for p.peek().kind == '.' {
		p.next()
		name, err := p.expect(scanner.Ident)
		if err != nil {
			return nil, err
		}
		mod, err := p.modifier(name)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

func (p *parser) modifier(name token) (Modifier, error) {
	switch name.text {
	case "withCard":
		args, err := p.intArgs(1, 2)
		if err != nil {
			return Modifier{}, err
		}
		mod := Modifier{Method: "withCard", Low: args[0], High: ir.Unbounded}
		if len(args) == 2 {
			mod.High = args[1]
			mod.Bounded = true
		}
		return mod, nil
	case "extending":
		if _, err := p.expect('('); err != nil {
			return Modifier{}, err
		}
		super, err := p.ident()
		if err != nil {
			return Modifier{}, err
		}
		if _, err := p.expect(')'); err != nil {
			return Modifier{}, err
		}
		return Modifier{Method: "extending", Super: super}, nil
	default:
		return Modifier{}, p.errorf(name, "unknown method %s", name.text)
	}
}

// method parses statements led by an identifier receiver: refTo, refToUnique,
// addConstraint, or bare modifiers.
func (p *parser) method() (Statement, error) {
	recv := p.next().text
	p.next() // '.'

	name, err := p.expect(scanner.Ident)
	if err != nil {
		return Statement{}, err
	}

	switch name.text {
	case "refTo", "refToUnique":
		if _, err := p.expect('('); err != nil {
			return Statement{}, err
		}
		target, err := p.ident()
		if err != nil {
			return Statement{}, err
		}
		if _, err := p.expect(')'); err != nil {
			return Statement{}, err
		}
		return Statement{Kind: StmtRef, Receiver: recv, Target: target, Unique: name.text == "refToUnique"}, nil

	case "addConstraint":
		e, err := p.callExpr()
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: StmtAddConstraint, Receiver: recv, Expr: e}, nil

	case "addChild":
		return Statement{}, p.errorf(name, "addChild must be assigned to an identifier")

	default:
		first, err := p.modifier(name)
		if err != nil {
			return Statement{}, err
		}
		rest, err := p.modifiers()
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: StmtModify, Receiver: recv, Mods: append([]Modifier{first}, rest...)}, nil
	}
}

// call parses the function-call statements: scope, defaultScope, intRange,
// stringLength and Constraint.
func (p *parser) call() (Statement, error) {
	name := p.next()
	switch name.text {
	case "scope":
		bounds, err := p.scopeObject()
		return Statement{Kind: StmtScope, Bounds: bounds}, err
	case "defaultScope":
		args, err := p.intArgs(1, 1)
		return Statement{Kind: StmtDefaultScope, Args: args}, err
	case "intRange":
		args, err := p.intArgs(2, 2)
		return Statement{Kind: StmtIntRange, Args: args}, err
	case "stringLength":
		args, err := p.intArgs(1, 1)
		return Statement{Kind: StmtStringLength, Args: args}, err
	case "Constraint":
		e, err := p.callExpr()
		return Statement{Kind: StmtConstraint, Expr: e}, err
	case "Clafer", "Abstract":
		return Statement{}, p.errorf(name, "%s must be assigned to an identifier", name.text)
	default:
		return Statement{}, p.errorf(name, "unknown statement %s", name.text)
	}
}

// scopeObject parses ({name: n, "name": n, ...}).
func (p *parser) scopeObject() ([]Bound, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	if _, err := p.expect('{'); err != nil {
		return nil, err
	}
	var bounds []Bound
	for p.peek().kind != '}' {
		if len(bounds) > 0 {
			if _, err := p.expect(','); err != nil {
				return nil, err
			}
		}
		var (
			key string
			err error
		)
		if p.peek().kind == scanner.String {
			key, err = p.str()
		} else {
			key, err = p.ident()
		}
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(':'); err != nil {
			return nil, err
		}
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		bounds = append(bounds, Bound{Name: key, Value: n})
	}
	p.next()
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	return bounds, nil
}

func (p *parser) callExpr() (ir.Expr, error) {
	if _, err := p.expect('('); err != nil {
		return nil, err
	}
	e, err := p.expr(nil)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	return e, nil
}

// scope maps identifiers bound by enclosing declarations to local names.
type scope struct {
	outer  *scope
	locals map[string]string
}

func (s *scope) lookup(ident string) (string, bool) {
	for ; s != nil; s = s.outer {
		if name, ok := s.locals[ident]; ok {
			return name, true
		}
	}
	return "", false
}

// expr parses one expression. Unbound bare identifiers become locals of the
// same name so validation can report them.
func (p *parser) expr(env *scope) (ir.Expr, error) {
	tok, err := p.expect(scanner.Ident)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != '(' {
		if name, ok := env.lookup(tok.text); ok {
			return ir.Local(name), nil
		}
		return ir.Local(tok.text), nil
	}
	p.next() // '('

	var e ir.Expr
	switch tok.text {
	case "all", "some":
		e, err = p.quant(tok.text, env)
	case "equal", "notEqual":
		e, err = p.compare(tok.text, env)
	case "join":
		e, err = p.join(env)
	case "joinRef":
		var operand ir.Expr
		if operand, err = p.expr(env); err == nil {
			e = ir.JoinRef(operand)
		}
	case "$this":
		e = ir.This()
	case "local":
		var name string
		if name, err = p.str(); err == nil {
			e = ir.Local(name)
		}
	case "global":
		var clafer string
		if clafer, err = p.ident(); err == nil {
			e = ir.Global(clafer)
		}
	default:
		return nil, p.errorf(tok, "unknown expression %s", tok.text)
	}
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(')'); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) quant(kind string, env *scope) (ir.Expr, error) {
	if _, err := p.expect('['); err != nil {
		return nil, err
	}
	inner := &scope{outer: env, locals: map[string]string{}}
	var decls []ir.Decl
	for p.peek().kind != ']' {
		if len(decls) > 0 {
			if _, err := p.expect(','); err != nil {
				return nil, err
			}
		}
		d, err := p.decl(inner)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	p.next()
	if _, err := p.expect(','); err != nil {
		return nil, err
	}
	body, err := p.expr(inner)
	if err != nil {
		return nil, err
	}
	if kind == "all" {
		return ir.All(decls, body), nil
	}
	return ir.Some(decls, body), nil
}

// decl parses decl([x = local("x"), ...], source) or disjDecl(...). The
// source sees locals bound by earlier declarations only.
func (p *parser) decl(env *scope) (ir.Decl, error) {
	head, err := p.expect(scanner.Ident)
	if err != nil {
		return ir.Decl{}, err
	}
	if head.text != "decl" && head.text != "disjDecl" {
		return ir.Decl{}, p.errorf(head, "expected decl or disjDecl, found %s", head)
	}
	if _, err := p.expect('('); err != nil {
		return ir.Decl{}, err
	}
	if _, err := p.expect('['); err != nil {
		return ir.Decl{}, err
	}

	type binding struct{ ident, name string }
	var bindings []binding
	for p.peek().kind != ']' {
		if len(bindings) > 0 {
			if _, err := p.expect(','); err != nil {
				return ir.Decl{}, err
			}
		}
		ident, err := p.ident()
		if err != nil {
			return ir.Decl{}, err
		}
		if _, err := p.expect('='); err != nil {
			return ir.Decl{}, err
		}
		if fn, err := p.expect(scanner.Ident); err != nil {
			return ir.Decl{}, err
		} else if fn.text != "local" {
			return ir.Decl{}, p.errorf(fn, "expected local, found %s", fn)
		}
		if _, err := p.expect('('); err != nil {
			return ir.Decl{}, err
		}
		name, err := p.str()
		if err != nil {
			return ir.Decl{}, err
		}
		if _, err := p.expect(')'); err != nil {
			return ir.Decl{}, err
		}
		bindings = append(bindings, binding{ident, name})
	}
	p.next()
	if _, err := p.expect(','); err != nil {
		return ir.Decl{}, err
	}
	source, err := p.expr(env)
	if err != nil {
		return ir.Decl{}, err
	}
	if _, err := p.expect(')'); err != nil {
		return ir.Decl{}, err
	}

	d := ir.Decl{Disjoint: head.text == "disjDecl", Source: source}
	for _, b := range bindings {
		env.locals[b.ident] = b.name
		d.Locals = append(d.Locals, b.name)
	}
	return d, nil
}

func (p *parser) compare(op string, env *scope) (ir.Expr, error) {
	left, err := p.expr(env)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(','); err != nil {
		return nil, err
	}
	right, err := p.expr(env)
	if err != nil {
		return nil, err
	}
	if op == "equal" {
		return ir.Equal(left, right), nil
	}
	return ir.NotEqual(left, right), nil
}

func (p *parser) join(env *scope) (ir.Expr, error) {
	left, err := p.expr(env)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(','); err != nil {
		return nil, err
	}
	rel, err := p.ident()
	if err != nil {
		return nil, err
	}
	return ir.Join(left, rel), nil
}
