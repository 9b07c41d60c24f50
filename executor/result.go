package executor

// Column describes a column in a query result.
type Column struct {
	Name     string
	TypeOID  int32 // PostgreSQL type OID for wire protocol
	TypeSize int16 // type size in bytes (-1 for variable length)
}

// Result is the outcome of executing a single SQL statement.
type Result struct {
	// Columns is set for SELECT results. nil for non-SELECT.
	Columns []Column

	// Rows holds the result data for SELECT. Each row is a slice of typed
	// values (nil = SQL NULL); the wire layer encodes them per the format
	// requested for each column. Outer slice = rows, inner slice = columns.
	Rows [][]any

	// Tag is the CommandComplete tag, e.g. "SELECT 2", "BEGIN".
	Tag string
}

// PostgreSQL type OIDs for the supported value types.
const (
	OIDBool        int32 = 16
	OIDInt8        int32 = 20
	OIDInt4        int32 = 23
	OIDText        int32 = 25
	OIDUnknown     int32 = 705
	OIDFloat8      int32 = 701
	OIDVarchar     int32 = 1043
	OIDTimestampTZ int32 = 1184
)
