package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// parser is the internal recursive-descent parser. Use the exported Parse
// function as the public entry point.
type parser struct {
	lexer *Lexer
	cur   Token
}

// Parse parses a single SQL statement from input.
func Parse(input string) (Statement, error) {
	p := &parser{lexer: NewLexer(input)}
	p.next()

	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	// Allow an optional trailing semicolon.
	if p.cur.Type == TokenSemicolon {
		p.next()
	}
	if p.cur.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %q after statement at position %d",
			p.cur.Literal, p.cur.Pos)
	}
	return stmt, nil
}

// ParseAll parses a semicolon-separated statement sequence, as arrives in a
// simple-protocol Query message. Empty statements (stray semicolons) are
// skipped; all-whitespace input yields an empty slice.
func ParseAll(input string) ([]Statement, error) {
	p := &parser{lexer: NewLexer(input)}
	p.next()

	var stmts []Statement
	for {
		for p.cur.Type == TokenSemicolon {
			p.next()
		}
		if p.cur.Type == TokenEOF {
			return stmts, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.cur.Type != TokenSemicolon && p.cur.Type != TokenEOF {
			return nil, p.unexpected()
		}
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func (p *parser) next() {
	p.cur = p.lexer.NextToken()
}

func (p *parser) expect(t TokenType) (Token, error) {
	tok := p.cur
	if tok.Type != t {
		return tok, fmt.Errorf("expected %s, got %q at position %d",
			t, tok.Literal, tok.Pos)
	}
	p.next()
	return tok, nil
}

func (p *parser) unexpected() error {
	if p.cur.Type == TokenEOF {
		return fmt.Errorf("unexpected end of input")
	}
	return fmt.Errorf("unexpected %q at position %d", p.cur.Literal, p.cur.Pos)
}

// skipToStatementEnd consumes tokens up to (not including) the next
// semicolon or EOF. Used for statements we acknowledge without executing.
func (p *parser) skipToStatementEnd() {
	for p.cur.Type != TokenSemicolon && p.cur.Type != TokenEOF {
		p.next()
	}
}

// -------------------------------------------------------------------------
// Statement parsing
// -------------------------------------------------------------------------

func (p *parser) parseStatement() (Statement, error) {
	switch p.cur.Type {
	case TokenSelect:
		return p.parseSelectChain()
	case TokenBegin:
		p.next()
		if p.cur.Type == TokenTransaction {
			p.next()
		}
		return &BeginStmt{}, nil
	case TokenStart:
		p.next()
		if _, err := p.expect(TokenTransaction); err != nil {
			return nil, err
		}
		return &BeginStmt{}, nil
	case TokenCommit, TokenEnd:
		p.next()
		if p.cur.Type == TokenTransaction {
			p.next()
		}
		return &CommitStmt{}, nil
	case TokenRollback:
		p.next()
		if p.cur.Type == TokenTransaction {
			p.next()
		}
		return &RollbackStmt{}, nil
	case TokenSet:
		p.next()
		p.skipToStatementEnd()
		return &SetStmt{}, nil
	case TokenDeallocate:
		p.next()
		p.skipToStatementEnd()
		return &DeallocateStmt{}, nil
	default:
		return nil, p.unexpected()
	}
}

// parseSelectChain parses a SELECT and any UNION ALL continuations,
// linking branches in written order.
func (p *parser) parseSelectChain() (*SelectStmt, error) {
	head, err := p.parseSelect()
	if err != nil {
		return nil, err
	}

	tail := head
	for p.cur.Type == TokenUnion {
		p.next() // consume UNION
		if p.cur.Type != TokenAll {
			return nil, fmt.Errorf("only UNION ALL is supported at position %d", p.cur.Pos)
		}
		p.next() // consume ALL
		if _, err := p.expect(TokenSelect); err != nil {
			return nil, err
		}
		branch, err := p.parseSelectBody()
		if err != nil {
			return nil, err
		}
		tail.Union = branch
		tail = branch
	}
	return head, nil
}

func (p *parser) parseSelect() (*SelectStmt, error) {
	p.next() // skip SELECT
	return p.parseSelectBody()
}

// parseSelectBody parses the remainder of a SELECT after the keyword:
// column list, optional FROM, optional WHERE.
func (p *parser) parseSelectBody() (*SelectStmt, error) {
	var columns []Expr
	for {
		if p.cur.Type == TokenStar {
			columns = append(columns, &StarExpr{})
			p.next()
		} else {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.cur.Type == TokenAs {
				p.next() // consume AS
				alias, err := p.expect(TokenIdent)
				if err != nil {
					return nil, err
				}
				expr = &AliasExpr{Expr: expr, Alias: alias.Literal}
			}
			columns = append(columns, expr)
		}
		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}

	var from TableRef
	var err error
	if p.cur.Type == TokenFrom {
		p.next() // consume FROM
		from, err = p.parseTableRef()
		if err != nil {
			return nil, err
		}
	}

	var where Expr
	if p.cur.Type == TokenWhere {
		p.next()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	return &SelectStmt{Columns: columns, From: from, Where: where}, nil
}

func (p *parser) parseTableRef() (TableRef, error) {
	name, err := p.expect(TokenIdent)
	if err != nil {
		return TableRef{}, err
	}
	if p.cur.Type == TokenDot {
		p.next() // skip dot
		second, err := p.expect(TokenIdent)
		if err != nil {
			return TableRef{}, err
		}
		return TableRef{Schema: name.Literal, Name: second.Literal}, nil
	}
	return TableRef{Name: name.Literal}, nil
}

// -------------------------------------------------------------------------
// Expression parsing (precedence: OR < AND < NOT < comparison < additive
// < multiplicative < unary < postfix cast)
// -------------------------------------------------------------------------

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: "OR", Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: "AND", Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.cur.Type == TokenNot {
		p.next()
		expr, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: expr}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if p.cur.Type == TokenIs {
		p.next()
		not := false
		if p.cur.Type == TokenNot {
			not = true
			p.next()
		}
		if _, err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		return &IsNullExpr{Expr: left, Not: not}, nil
	}

	var op string
	switch p.cur.Type {
	case TokenEq:
		op = "="
	case TokenNotEq:
		op = "!="
	case TokenLt:
		op = "<"
	case TokenGt:
		op = ">"
	case TokenLtEq:
		op = "<="
	case TokenGtEq:
		op = ">="
	default:
		return left, nil
	}

	p.next()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Left: left, Op: op, Right: right}, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus || p.cur.Type == TokenConcat {
		var op string
		switch p.cur.Type {
		case TokenPlus:
			op = "+"
		case TokenMinus:
			op = "-"
		case TokenConcat:
			op = "||"
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenStar || p.cur.Type == TokenSlash || p.cur.Type == TokenPercent {
		var op string
		switch p.cur.Type {
		case TokenStar:
			op = "*"
		case TokenSlash:
			op = "/"
		case TokenPercent:
			op = "%"
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur.Type == TokenMinus {
		p.next()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Expr: expr}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles ::type casts, which bind tighter than any operator.
func (p *parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenDoubleColon {
		p.next() // consume ::
		name, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		expr = &CastExpr{Expr: expr, Type: strings.ToLower(name.Literal)}
	}
	return expr, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.cur.Type {
	case TokenIntLit:
		val, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", p.cur.Literal, err)
		}
		p.next()
		return &IntegerLit{Value: val}, nil
	case TokenFloatLit:
		val, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p.cur.Literal, err)
		}
		p.next()
		return &FloatLit{Value: val}, nil
	case TokenStrLit:
		val := p.cur.Literal
		p.next()
		return &StringLit{Value: val}, nil
	case TokenParam:
		ord, err := strconv.Atoi(p.cur.Literal)
		if err != nil || ord < 1 {
			return nil, fmt.Errorf("invalid parameter $%s at position %d", p.cur.Literal, p.cur.Pos)
		}
		p.next()
		return &ParamRef{Ordinal: ord}, nil
	case TokenTrue:
		p.next()
		return &BoolLit{Value: true}, nil
	case TokenFalse:
		p.next()
		return &BoolLit{Value: false}, nil
	case TokenNull:
		p.next()
		return &NullLit{}, nil
	case TokenCurrentTimestamp:
		p.next()
		return &FunctionCallExpr{Name: "CURRENT_TIMESTAMP"}, nil
	case TokenIdent:
		name := p.cur.Literal
		p.next()
		// Qualified name: table.column.
		if p.cur.Type == TokenDot {
			p.next() // consume dot
			second, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			if p.cur.Type == TokenLParen {
				return nil, fmt.Errorf("qualified function calls are not supported at position %d", p.cur.Pos)
			}
			return &ColumnRef{Table: name, Name: second.Literal}, nil
		}
		if p.cur.Type != TokenLParen {
			return &ColumnRef{Name: name}, nil
		}
		// function call: NAME(arg, ...)
		p.next() // consume (
		var args []Expr
		if p.cur.Type != TokenRParen {
			for {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.cur.Type != TokenComma {
					break
				}
				p.next()
			}
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return &FunctionCallExpr{Name: strings.ToUpper(name), Args: args}, nil
	case TokenLParen:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.unexpected()
	}
}
