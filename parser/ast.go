package parser

// Statement is the interface implemented by all SQL statement AST nodes.
// The unexported marker method restricts implementations to this package.
type Statement interface {
	statementNode()
}

// Expr is the interface implemented by all expression AST nodes.
type Expr interface {
	exprNode()
}

// ---------------------------------------------------------------------------
// Table references
// ---------------------------------------------------------------------------

// TableRef is a possibly schema-qualified table name (e.g. "pg_catalog.pg_type").
type TableRef struct {
	Schema string // "" when unqualified
	Name   string
}

// String returns "schema.name" for qualified refs, or just "name".
func (r TableRef) String() string {
	if r.Schema != "" {
		return r.Schema + "." + r.Name
	}
	return r.Name
}

// IsEmpty reports whether the table ref has no name set (SELECT without FROM).
func (r TableRef) IsEmpty() bool {
	return r.Name == ""
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// SelectStmt: SELECT <exprs> [FROM <table>] [WHERE <expr>] [UNION ALL <select>]
// Union chains further branches in written order; every branch must project
// the same number of columns.
type SelectStmt struct {
	Columns []Expr
	From    TableRef
	Where   Expr        // nil when no WHERE clause
	Union   *SelectStmt // nil when not a UNION ALL chain
}

// BeginStmt: BEGIN or START TRANSACTION.
type BeginStmt struct{}

// CommitStmt: COMMIT or END.
type CommitStmt struct{}

// RollbackStmt: ROLLBACK.
type RollbackStmt struct{}

// SetStmt: SET <anything>. Accepted and acknowledged without effect so
// client startup sequences keep working.
type SetStmt struct{}

// DeallocateStmt: DEALLOCATE [PREPARE] <name>|ALL. Acknowledged without
// effect; prepared statement cleanup happens per connection anyway.
type DeallocateStmt struct{}

func (*SelectStmt) statementNode()     {}
func (*BeginStmt) statementNode()      {}
func (*CommitStmt) statementNode()     {}
func (*RollbackStmt) statementNode()   {}
func (*SetStmt) statementNode()        {}
func (*DeallocateStmt) statementNode() {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ColumnRef references a column by name.
type ColumnRef struct {
	Table string // "" when unqualified
	Name  string
}

// StarExpr represents * in a SELECT column list.
type StarExpr struct{}

// IntegerLit is an integer literal.
type IntegerLit struct {
	Value int64
}

// FloatLit is a floating point literal.
type FloatLit struct {
	Value float64
}

// StringLit is a single-quoted string literal.
type StringLit struct {
	Value string
}

// BoolLit is TRUE or FALSE.
type BoolLit struct {
	Value bool
}

// NullLit represents the NULL literal.
type NullLit struct{}

// ParamRef is a positional parameter: $1, $2, ...
type ParamRef struct {
	Ordinal int // 1-based
}

// CastExpr represents expr::type.
type CastExpr struct {
	Expr Expr
	Type string // lowercased type name, e.g. "text", "int4"
}

// UnaryExpr is a unary operation (e.g. -expr).
type UnaryExpr struct {
	Op   string // "-"
	Expr Expr
}

// BinaryExpr is a binary operation: left op right.
// Op is one of: "=", "!=", "<", ">", "<=", ">=", "AND", "OR", "+", "-", "*", "/", "%", "||".
type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

// FunctionCallExpr represents a function call such as version() or length(s).
type FunctionCallExpr struct {
	Name string // uppercased
	Args []Expr
}

// AliasExpr wraps an expression with a column alias (e.g. 1 AS one).
type AliasExpr struct {
	Expr  Expr
	Alias string
}

// IsNullExpr represents IS NULL or IS NOT NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool // true for IS NOT NULL
}

// NotExpr represents NOT <expr>.
type NotExpr struct {
	Expr Expr
}

func (*ColumnRef) exprNode()        {}
func (*StarExpr) exprNode()         {}
func (*IntegerLit) exprNode()       {}
func (*FloatLit) exprNode()         {}
func (*StringLit) exprNode()        {}
func (*BoolLit) exprNode()          {}
func (*NullLit) exprNode()          {}
func (*ParamRef) exprNode()         {}
func (*CastExpr) exprNode()         {}
func (*UnaryExpr) exprNode()        {}
func (*BinaryExpr) exprNode()       {}
func (*FunctionCallExpr) exprNode() {}
func (*AliasExpr) exprNode()        {}
func (*IsNullExpr) exprNode()       {}
func (*NotExpr) exprNode()          {}
