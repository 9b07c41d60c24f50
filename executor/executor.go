package executor

import (
	"fmt"

	"pgwired/parser"
)

// Executor evaluates parsed SQL statements and returns Results suitable for
// the wire protocol. There is no storage behind it: every query is a
// constant expression over literals, parameters and scalar functions, and
// transaction commands only produce their acknowledgement tags (the
// session-level state machine lives in the server).
type Executor struct{}

// New creates an Executor.
func New() *Executor {
	return &Executor{}
}

// Execute parses and runs a single SQL statement.
func (e *Executor) Execute(sql string) (*Result, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, &QueryError{Code: CodeSyntaxError, Message: err.Error()}
	}
	return e.execStmt(stmt, nil)
}

// ExecuteStatement runs an already-parsed statement without parameters.
// The simple protocol parses a whole query batch up front and feeds the
// statements through here one at a time.
func (e *Executor) ExecuteStatement(stmt parser.Statement) (*Result, error) {
	return e.execStmt(stmt, nil)
}

func (e *Executor) execStmt(stmt parser.Statement, params []any) (*Result, error) {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return e.execSelect(s, params)
	case *parser.BeginStmt:
		return &Result{Tag: "BEGIN"}, nil
	case *parser.CommitStmt:
		return &Result{Tag: "COMMIT"}, nil
	case *parser.RollbackStmt:
		return &Result{Tag: "ROLLBACK"}, nil
	case *parser.SetStmt:
		return &Result{Tag: "SET"}, nil
	case *parser.DeallocateStmt:
		// Nothing to release; per-connection statements go away on their own.
		return &Result{Tag: "DEALLOCATE ALL"}, nil
	default:
		return nil, &QueryError{Code: CodeSyntaxError, Message: fmt.Sprintf("unsupported statement type %T", stmt)}
	}
}

// execSelect evaluates a SELECT and its UNION ALL branches in written order.
// A branch whose WHERE predicate is not definitely true contributes no row;
// the result set shape always comes from the first branch.
func (e *Executor) execSelect(s *parser.SelectStmt, params []any) (*Result, error) {
	var columns []Column
	var rows [][]any

	for branch, first := s, true; branch != nil; branch, first = branch.Union, false {
		if !branch.From.IsEmpty() {
			return nil, &QueryError{
				Code:    CodeUndefinedTable,
				Message: fmt.Sprintf("relation %q does not exist", branch.From.String()),
			}
		}

		row := make([]any, len(branch.Columns))
		cols := make([]Column, len(branch.Columns))
		for i, expr := range branch.Columns {
			val, col, err := evalExpr(expr, params)
			if err != nil {
				return nil, err
			}
			row[i] = val
			cols[i] = col
		}

		if first {
			columns = cols
		} else if len(cols) != len(columns) {
			return nil, &QueryError{
				Code:    CodeSyntaxError,
				Message: "each UNION ALL query must have the same number of columns",
			}
		}

		include := true
		if branch.Where != nil {
			val, _, err := evalExpr(branch.Where, params)
			if err != nil {
				return nil, err
			}
			b, err := toBoolOrNull(val, "WHERE")
			if err != nil {
				return nil, err
			}
			// Three-valued logic: only definite TRUE passes the filter.
			include = b != nil && *b
		}
		if include {
			rows = append(rows, row)
		}
	}

	return &Result{
		Columns: columns,
		Rows:    rows,
		Tag:     fmt.Sprintf("SELECT %d", len(rows)),
	}, nil
}

// describe computes the result shape of a statement without executing it
// for a client. Parameters are treated as NULL; type metadata flows through
// structurally. Returns nil columns for statements that produce no rows.
func (e *Executor) describe(stmt parser.Statement, paramCount int) ([]Column, error) {
	s, ok := stmt.(*parser.SelectStmt)
	if !ok {
		return nil, nil
	}
	if !s.From.IsEmpty() {
		return nil, &QueryError{
			Code:    CodeUndefinedTable,
			Message: fmt.Sprintf("relation %q does not exist", s.From.String()),
		}
	}
	params := make([]any, paramCount)
	columns := make([]Column, len(s.Columns))
	for i, expr := range s.Columns {
		_, col, err := evalExpr(expr, params)
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}
	return columns, nil
}
