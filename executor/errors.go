package executor

// QueryError is an execution error carrying a SQLSTATE code for the wire
// protocol's ErrorResponse.
type QueryError struct {
	Code    string // five-character SQLSTATE, e.g. "42601"
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

// SQLSTATE codes used across the executor and server.
const (
	CodeSyntaxError        = "42601"
	CodeUndefinedFunction  = "42883"
	CodeUndefinedTable     = "42P01"
	CodeUndefinedColumn    = "42703"
	CodeUndefinedObject    = "42704"
	CodeDatatypeMismatch   = "42804"
	CodeInvalidTextRepr    = "22P02"
	CodeDivisionByZero     = "22012"
	CodeNumericOutOfRange  = "22003"
	CodeFailedTransaction  = "25P02"
	CodeProtocolViolation  = "08P01"
	CodeInvalidSQLStmtName = "26000"
	CodeInvalidCursorName  = "34000"
	CodeDuplicateStatement = "42P05"
)
