package executor

import (
	"fmt"

	"pgwired/parser"
)

// PreparedStatement is a parsed statement held by a connection between
// Parse and Execute. Columns is nil for statements that return no rows.
type PreparedStatement struct {
	Name      string
	SQL       string
	Stmt      parser.Statement
	ParamOIDs []int32
	Columns   []Column
}

// Prepare parses sql and resolves its parameter types. declaredOIDs carries
// the types the client sent in the Parse message (0 = unspecified); casts in
// the statement fill the gaps ($1::text makes $1 text), and anything still
// unknown defaults to text.
func (e *Executor) Prepare(name, sql string, declaredOIDs []int32) (*PreparedStatement, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, &QueryError{Code: CodeSyntaxError, Message: err.Error()}
	}

	n := maxParamOrdinal(stmt)
	if len(declaredOIDs) > n {
		n = len(declaredOIDs)
	}

	inferred := inferParamOIDs(stmt, n)
	oids := make([]int32, n)
	for i := range oids {
		switch {
		case i < len(declaredOIDs) && declaredOIDs[i] != 0:
			oids[i] = declaredOIDs[i]
		case inferred[i] != 0:
			oids[i] = inferred[i]
		default:
			oids[i] = OIDText
		}
	}

	columns, err := e.describe(stmt, n)
	if err != nil {
		return nil, err
	}

	return &PreparedStatement{
		Name:      name,
		SQL:       sql,
		Stmt:      stmt,
		ParamOIDs: oids,
		Columns:   columns,
	}, nil
}

// BindParams decodes the raw parameter values of a Bind message into typed
// values, per statement parameter OID and per-value wire format.
func (e *Executor) BindParams(ps *PreparedStatement, formats []int16, raw [][]byte) ([]any, error) {
	if len(raw) != len(ps.ParamOIDs) {
		return nil, &QueryError{
			Code: CodeProtocolViolation,
			Message: fmt.Sprintf("bind message supplies %d parameters, but prepared statement %q requires %d",
				len(raw), ps.Name, len(ps.ParamOIDs)),
		}
	}

	params := make([]any, len(raw))
	for i, data := range raw {
		if data == nil {
			continue // NULL
		}
		var format int16
		switch len(formats) {
		case 0:
			format = 0
		case 1:
			format = formats[0]
		default:
			if i >= len(formats) {
				return nil, &QueryError{Code: CodeProtocolViolation, Message: "bind message has wrong number of parameter formats"}
			}
			format = formats[i]
		}
		val, err := DecodeParam(ps.ParamOIDs[i], format, data)
		if err != nil {
			return nil, err
		}
		params[i] = val
	}
	return params, nil
}

// ExecutePrepared runs a prepared statement with bound parameter values.
func (e *Executor) ExecutePrepared(ps *PreparedStatement, params []any) (*Result, error) {
	return e.execStmt(ps.Stmt, params)
}

// -------------------------------------------------------------------------
// Parameter discovery
// -------------------------------------------------------------------------

// maxParamOrdinal returns the highest $n ordinal referenced by the statement.
func maxParamOrdinal(stmt parser.Statement) int {
	max := 0
	walkStatement(stmt, func(e parser.Expr) {
		if p, ok := e.(*parser.ParamRef); ok && p.Ordinal > max {
			max = p.Ordinal
		}
	})
	return max
}

// inferParamOIDs derives parameter types from direct casts ($1::text).
// Entries stay 0 where no cast pins the type.
func inferParamOIDs(stmt parser.Statement, n int) []int32 {
	oids := make([]int32, n)
	walkStatement(stmt, func(e parser.Expr) {
		cast, ok := e.(*parser.CastExpr)
		if !ok {
			return
		}
		p, ok := cast.Expr.(*parser.ParamRef)
		if !ok || p.Ordinal > n {
			return
		}
		if _, col, err := castValue(nil, cast.Type); err == nil {
			oids[p.Ordinal-1] = col.TypeOID
		}
	})
	return oids
}

// walkStatement calls fn for every expression node in the statement.
func walkStatement(stmt parser.Statement, fn func(parser.Expr)) {
	s, ok := stmt.(*parser.SelectStmt)
	if !ok {
		return
	}
	for branch := s; branch != nil; branch = branch.Union {
		for _, c := range branch.Columns {
			walkExpr(c, fn)
		}
		if branch.Where != nil {
			walkExpr(branch.Where, fn)
		}
	}
}

func walkExpr(expr parser.Expr, fn func(parser.Expr)) {
	fn(expr)
	switch e := expr.(type) {
	case *parser.CastExpr:
		walkExpr(e.Expr, fn)
	case *parser.AliasExpr:
		walkExpr(e.Expr, fn)
	case *parser.UnaryExpr:
		walkExpr(e.Expr, fn)
	case *parser.NotExpr:
		walkExpr(e.Expr, fn)
	case *parser.IsNullExpr:
		walkExpr(e.Expr, fn)
	case *parser.BinaryExpr:
		walkExpr(e.Left, fn)
		walkExpr(e.Right, fn)
	case *parser.FunctionCallExpr:
		for _, a := range e.Args {
			walkExpr(a, fn)
		}
	}
}
