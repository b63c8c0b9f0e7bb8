package sss

import "fmt"

// SyntacticAnalyzer is the statement source consumed by the Checker. The
// Parser is the canonical implementation; tests substitute buffered mocks.
type SyntacticAnalyzer interface {
	Do()
	Get() Expr
	GetFilename() string
}

// typeNames are the base types a TypeSpec may name; [] suffixes any of them.
var typeNames = map[string]bool{
	"num":  true,
	"str":  true,
	"pipe": true,
}

// Parser builds statements from a token stream. It attempts no recovery: the
// first malformed token produces a BadExpr and ends the stream, failing the
// whole script.
type Parser struct {
	filename  string
	tokenizer Tokenizer
	output    chan Expr
	buf       *Token
}

func NewParser(tokenizer Tokenizer) *Parser {
	return &Parser{
		tokenizer: tokenizer,
		filename:  tokenizer.GetFilename(),
		output:    make(chan Expr, 2),
	}
}

func (p *Parser) Get() Expr {
	return <-p.Chan()
}

func (p *Parser) Chan() chan Expr {
	return p.output
}

func (p *Parser) GetFilename() string {
	return p.filename
}

func (p *Parser) Do() {
	go p.tokenizer.Do()

	for p.peek().Typ != TokenEOF {
		stmt := p.statement()
		p.output <- stmt

		if _, bad := stmt.(*BadExpr); bad {
			break
		}
	}

	p.output <- &EOS{}
	close(p.output)
}

func (p *Parser) Run() *AST {
	go p.tokenizer.Do()

	ast := &AST{Filename: p.filename}

	for p.peek().Typ != TokenEOF {
		stmt := p.statement()
		ast.Statements = append(ast.Statements, stmt)

		if _, bad := stmt.(*BadExpr); bad {
			break
		}
	}

	return ast
}

func (p *Parser) peek() Token {
	if p.buf == nil {
		temp := p.next()
		p.buf = &temp
	}

	return *p.buf
}

func (p *Parser) next() Token {
	if p.buf != nil {
		if !p.buf.isValid() {
			// If an invalid token is buffered, don't try to get more tokens
			return *p.buf
		}

		temp := p.buf
		p.buf = nil

		return *temp
	}

	tok := p.tokenizer.Get()
	if !tok.isValid() {
		// If a token is invalid (such as Error or EOF) keep it buffered since no more valid tokens are expected
		p.buf = &tok
	}

	if tok.isComment() {
		return p.next()
	}

	return tok
}

func (p *Parser) expect(typ TokenType) *Token {
	tok := p.next()
	if tok.Typ != typ {
		return nil
	}

	return &tok
}

func (p *Parser) check(typ TokenType) bool {
	return p.peek().Typ == typ
}

func (p *Parser) consume(typ TokenType) bool {
	return p.next().Typ == typ
}

func (p *Parser) errorf(l *Location, format string, args ...interface{}) Expr {
	return &BadExpr{l, fmt.Sprintf(format, args...)}
}

func (p *Parser) statement() Expr {
	switch tok := p.peek(); tok.Typ {
	case TokenFun:
		return p.funcDecl()
	default:
		return p.programLine()
	}
}

// programLine is a declaration, an assignment, or a bare expression, always
// terminated by a semicolon.
func (p *Parser) programLine() Expr {
	var stmt Expr

	switch tok := p.peek(); tok.Typ {
	case TokenVar, TokenConst:
		stmt = p.declaration()
	default:
		stmt = p.expr()

		if id, isIdent := stmt.(*Identifier); isIdent && p.check(TokenAssign) {
			p.next() // Skip =
			stmt = &Assignment{
				Location: id.Location,
				Name:     id.Name,
				Value:    p.expr(),
			}
		}
	}

	if _, bad := stmt.(*BadExpr); bad {
		return stmt
	}

	if tok := p.expect(TokenSemicolon); tok == nil {
		return p.errorf(stmt.GetLocation(), "expected ';' after program line")
	}

	return stmt
}

func (p *Parser) declaration() Expr {
	kw := p.next() // var or const

	name := p.expect(TokenIdentifier)
	if name == nil {
		return p.errorf(kw.Loc, "expected name in declaration")
	}

	if !p.consume(TokenColon) {
		return p.errorf(kw.Loc, "expected ':' and type in declaration of '%s'", name.Value)
	}

	typ := p.typeSpec()
	if typ == nil {
		return p.errorf(kw.Loc, "expected type in declaration of '%s'", name.Value)
	}

	if !p.consume(TokenAssign) {
		return p.errorf(kw.Loc, "declaration of '%s' requires an initial value", name.Value)
	}

	return &VariableDecl{
		Location: kw.Loc,
		Name:     name.Value,
		Const:    kw.Typ == TokenConst,
		Type:     typ,
		Value:    p.expr(),
	}
}

func (p *Parser) typeSpec() *TypeSpec {
	name := p.expect(TokenIdentifier)
	if name == nil || !typeNames[name.Value] {
		return nil
	}

	spec := &TypeSpec{
		Location: name.Loc,
		Name:     name.Value,
	}

	if p.check(TokenOpenBracket) {
		p.next()
		if !p.consume(TokenCloseBracket) {
			return nil
		}

		spec.Array = true
	}

	return spec
}

// funcDecl parses `fun name ( params? ) ( -> type )? { program_line+ }`.
func (p *Parser) funcDecl() Expr {
	start := p.next().Loc // fun keyword

	name := p.expect(TokenIdentifier)
	if name == nil {
		return p.errorf(start, "expected function name")
	}

	if !p.consume(TokenOpenParentheses) {
		return p.errorf(start, "expected parameter list for '%s'", name.Value)
	}

	var params []*Param
	for !p.check(TokenCloseParentheses) {
		param := p.param()
		if param == nil {
			return p.errorf(start, "bad parameter in declaration of '%s'", name.Value)
		}

		params = append(params, param)

		if !p.check(TokenComma) {
			break
		}

		p.next() // Skip the comma
	}

	if !p.consume(TokenCloseParentheses) {
		return p.errorf(start, "unclosed parameter list for '%s'", name.Value)
	}

	var ret *TypeSpec
	if p.check(TokenArrow) {
		p.next()

		if ret = p.typeSpec(); ret == nil {
			return p.errorf(start, "expected return type for '%s'", name.Value)
		}
	}

	return &FuncDecl{
		Location: start,
		Name:     name.Value,
		Params:   params,
		Return:   ret,
		Body:     p.blockStmt(),
	}
}

func (p *Parser) param() *Param {
	name := p.expect(TokenIdentifier)
	if name == nil {
		return nil
	}

	if !p.consume(TokenColon) {
		return nil
	}

	typ := p.typeSpec()
	if typ == nil {
		return nil
	}

	return &Param{
		Name: name.Value,
		Type: typ,
	}
}

func (p *Parser) blockStmt() []Expr {
	if tok := p.expect(TokenOpenCurly); tok == nil {
		return []Expr{p.errorf(nil, "invalid block statement")}
	}

	var exprs []Expr
	for tok := p.peek(); tok.isValid() && tok.Typ != TokenCloseCurly; tok = p.peek() {
		stmt := p.statement()
		exprs = append(exprs, stmt)

		if _, bad := stmt.(*BadExpr); bad {
			return exprs
		}
	}

	switch closer := p.next(); closer.Typ {
	case TokenCloseCurly:
		return exprs
	case TokenError:
		return append(exprs, p.errorf(closer.Loc, "invalid block statement"))
	case TokenEOF:
		return append(exprs, p.errorf(closer.Loc, "unclosed block statement"))
	default:
		return append(exprs, p.errorf(closer.Loc, "unexpected token in block statement"))
	}
}

// expr parses a flat `primary (bin_op primary)*` chain. All five operators
// share a single level and bind left-to-right, so `a + b * c` nests as
// `(a + b) * c`.
func (p *Parser) expr() Expr {
	lhs := p.primary()

	for {
		tok := p.peek()
		op, isOp := binaryOps[tok.Typ]
		if !isOp {
			return lhs
		}

		p.next() // Skip the operator

		lhs = &BinaryExpr{
			Operation: op,
			Op1:       lhs,
			Op2:       p.primary(),
		}
	}
}

var binaryOps = map[TokenType]BinaryOp{
	TokenPlus:  BinaryAddition,
	TokenMinus: BinarySubtraction,
	TokenMulti: BinaryMultiplication,
	TokenDiv:   BinaryDivision,
	TokenMod:   BinaryModulo,
}

func (p *Parser) primary() Expr {
	switch tok := p.peek(); tok.Typ {
	case TokenOpenParentheses:
		return p.parenthesisedExpression()
	case TokenIdentifier:
		return p.chain(p.identifier())
	}

	return p.literal()
}

// chain parses the postfix part of a primary: an optional call on the base
// identifier, then any number of `.segment` links. A segment with parentheses
// is a method call; one without is field access.
func (p *Parser) chain(base Expr) Expr {
	if _, bad := base.(*BadExpr); bad {
		return base
	}

	if id, isIdent := base.(*Identifier); isIdent && p.check(TokenOpenParentheses) {
		base = p.funcCall(id)
	}

	for p.check(TokenDot) {
		dot := p.next() // Skip the dot

		name := p.expect(TokenIdentifier)
		if name == nil {
			return p.errorf(dot.Loc, "expected method or field name after '.'")
		}

		if !p.check(TokenOpenParentheses) {
			base = &Selector{
				Location: name.Loc,
				Recv:     base,
				Name:     name.Value,
			}

			continue
		}

		args, bad := p.callArgs(name.Value)
		if bad != nil {
			return bad
		}

		base = &MethodCall{
			Location: name.Loc,
			Recv:     base,
			Name:     name.Value,
			Args:     args,
		}
	}

	return base
}

func (p *Parser) funcCall(id *Identifier) Expr {
	args, bad := p.callArgs(id.Name)
	if bad != nil {
		return bad
	}

	return &FuncCall{
		Location: id.Location,
		Name:     id.Name,
		Args:     args,
	}
}

// callArgs parses a parenthesised argument list. A list that never closes is
// an error at the offending token, not at whatever follows the call.
func (p *Parser) callArgs(callee string) ([]Expr, Expr) {
	if open := p.next(); open.Typ != TokenOpenParentheses {
		return nil, p.errorf(open.Loc, "expected '(' in call of '%s'", callee)
	}

	var args []Expr
	for tok := p.peek(); tok.isValid() && tok.Typ != TokenCloseParentheses; tok = p.peek() {
		args = append(args, p.expr())

		if !p.check(TokenComma) {
			break
		}

		p.next() // Skip the comma
	}

	if closer := p.next(); closer.Typ != TokenCloseParentheses {
		return nil, p.errorf(closer.Loc, "unclosed argument list in call of '%s'", callee)
	}

	return args, nil
}

func (p *Parser) parenthesisedExpression() Expr {
	if tok := p.next(); tok.Typ != TokenOpenParentheses {
		return p.errorf(tok.Loc, "expected opening parenthesis")
	}

	exp := p.expr()

	if tok := p.next(); tok.Typ != TokenCloseParentheses {
		return p.errorf(tok.Loc, "expected closing parenthesis")
	}

	return exp
}

func (p *Parser) identifier() Expr {
	tok := p.next()
	if tok.Typ != TokenIdentifier {
		return p.errorf(tok.Loc, "expected an identifier")
	}

	return &Identifier{
		Location: tok.Loc,
		Name:     tok.Value,
	}
}

func (p *Parser) literal() Expr {
	switch tok := p.peek(); tok.Typ {
	case TokenNumber:
		next := p.next()
		return &LiteralExpr{
			Location: next.Loc,
			Typ:      LiteralNumber,
			Value:    next.Value,
		}
	case TokenString:
		next := p.next()
		return &LiteralExpr{
			Location: next.Loc,
			Typ:      LiteralString,
			Value:    next.Value,
		}
	default:
		p.next() // Skip errored token
		return p.errorf(tok.Loc, "invalid symbol '%s'", tok.Value)
	}
}
