package executor

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func exec(t *testing.T, e *Executor, sql string) *Result {
	t.Helper()
	res, err := e.Execute(sql)
	if err != nil {
		t.Fatalf("Execute(%q): %v", sql, err)
	}
	return res
}

func execErr(t *testing.T, e *Executor, sql string) *QueryError {
	t.Helper()
	_, err := e.Execute(sql)
	if err == nil {
		t.Fatalf("Execute(%q): expected error", sql)
	}
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Execute(%q): expected QueryError, got %T: %v", sql, err, err)
	}
	return qe
}

func TestSelectIntegerLiteral(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1")
	if len(res.Rows) != 1 || len(res.Rows[0]) != 1 {
		t.Fatalf("expected 1x1 result, got %d rows", len(res.Rows))
	}
	if res.Rows[0][0] != int64(1) {
		t.Errorf("expected int64 1, got %#v", res.Rows[0][0])
	}
	if res.Columns[0].Name != "?column?" || res.Columns[0].TypeOID != OIDInt8 {
		t.Errorf("unexpected column %+v", res.Columns[0])
	}
	if res.Tag != "SELECT 1" {
		t.Errorf("expected tag SELECT 1, got %q", res.Tag)
	}
}

func TestSelectStringLiteral(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 'hello'")
	if res.Rows[0][0] != "hello" {
		t.Errorf("expected hello, got %#v", res.Rows[0][0])
	}
	if res.Columns[0].TypeOID != OIDText {
		t.Errorf("expected text OID, got %d", res.Columns[0].TypeOID)
	}
}

func TestSelectMultipleColumns(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1, 'two', 3.5, TRUE, NULL")
	row := res.Rows[0]
	if row[0] != int64(1) || row[1] != "two" || row[2] != 3.5 || row[3] != true || row[4] != nil {
		t.Errorf("unexpected row %#v", row)
	}
	if res.Columns[4].TypeOID != OIDUnknown {
		t.Errorf("NULL column: expected unknown OID, got %d", res.Columns[4].TypeOID)
	}
}

func TestSelectAlias(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1 AS one, 'x' AS label")
	if res.Columns[0].Name != "one" || res.Columns[1].Name != "label" {
		t.Errorf("unexpected column names %q, %q", res.Columns[0].Name, res.Columns[1].Name)
	}
}

func TestUnionAllPreservesOrder(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1, 'first' UNION ALL SELECT 2, 'second'")
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if res.Rows[0][0] != int64(1) || res.Rows[0][1] != "first" {
		t.Errorf("row 0: got %#v", res.Rows[0])
	}
	if res.Rows[1][0] != int64(2) || res.Rows[1][1] != "second" {
		t.Errorf("row 1: got %#v", res.Rows[1])
	}
	if res.Tag != "SELECT 2" {
		t.Errorf("expected tag SELECT 2, got %q", res.Tag)
	}
}

func TestUnionAllColumnCountMismatch(t *testing.T) {
	e := New()
	qe := execErr(t, e, "SELECT 1 UNION ALL SELECT 1, 2")
	if qe.Code != CodeSyntaxError {
		t.Errorf("expected 42601, got %s", qe.Code)
	}
}

func TestWhereFalseYieldsEmptyResult(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1 WHERE 1 = 0")
	if len(res.Rows) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(res.Rows))
	}
	// Shape survives even with no rows.
	if len(res.Columns) != 1 || res.Columns[0].TypeOID != OIDInt8 {
		t.Errorf("unexpected columns %+v", res.Columns)
	}
	if res.Tag != "SELECT 0" {
		t.Errorf("expected tag SELECT 0, got %q", res.Tag)
	}
}

func TestWhereNullExcludesRow(t *testing.T) {
	e := New()
	// NULL = NULL is unknown, and unknown does not pass the filter.
	res := exec(t, e, "SELECT 1 WHERE NULL = NULL")
	if len(res.Rows) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(res.Rows))
	}
}

func TestWhereIsNullIsDefinite(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1 WHERE NULL IS NULL")
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
	res = exec(t, e, "SELECT 1 WHERE 'x' IS NOT NULL")
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
}

func TestWherePerUnionBranch(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1 WHERE FALSE UNION ALL SELECT 2 WHERE TRUE")
	if len(res.Rows) != 1 || res.Rows[0][0] != int64(2) {
		t.Fatalf("expected single row 2, got %#v", res.Rows)
	}
}

func TestThreeValuedLogic(t *testing.T) {
	e := New()
	tests := []struct {
		where string
		rows  int
	}{
		{"FALSE AND NULL", 0}, // definite false
		{"TRUE AND NULL", 0},  // unknown
		{"TRUE OR NULL", 1},   // definite true
		{"FALSE OR NULL", 0},  // unknown
		{"NOT NULL", 0},       // unknown
	}
	for _, tt := range tests {
		res := exec(t, e, "SELECT 1 WHERE "+tt.where)
		if len(res.Rows) != tt.rows {
			t.Errorf("WHERE %s: expected %d rows, got %d", tt.where, tt.rows, len(res.Rows))
		}
	}
}

func TestWhereNonBooleanRejected(t *testing.T) {
	e := New()
	qe := execErr(t, e, "SELECT 1 WHERE 42")
	if qe.Code != CodeDatatypeMismatch {
		t.Errorf("expected 42804, got %s", qe.Code)
	}
}

func TestArithmetic(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1 + 2 * 3, 10 / 3, 10 % 3, -5")
	row := res.Rows[0]
	if row[0] != int64(7) || row[1] != int64(3) || row[2] != int64(1) || row[3] != int64(-5) {
		t.Errorf("unexpected row %#v", row)
	}
}

func TestFloatPromotion(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 1 + 0.5")
	if res.Rows[0][0] != 1.5 {
		t.Errorf("expected 1.5, got %#v", res.Rows[0][0])
	}
	if res.Columns[0].TypeOID != OIDFloat8 {
		t.Errorf("expected float8 OID, got %d", res.Columns[0].TypeOID)
	}
}

func TestDivisionByZero(t *testing.T) {
	e := New()
	qe := execErr(t, e, "SELECT 1 / 0")
	if qe.Code != CodeDivisionByZero {
		t.Errorf("expected 22012, got %s", qe.Code)
	}
}

func TestStringConcatOperator(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT 'foo' || 'bar'")
	if res.Rows[0][0] != "foobar" {
		t.Errorf("expected foobar, got %#v", res.Rows[0][0])
	}
	// || with NULL is NULL, unlike concat().
	res = exec(t, e, "SELECT 'foo' || NULL")
	if res.Rows[0][0] != nil {
		t.Errorf("expected NULL, got %#v", res.Rows[0][0])
	}
}

func TestCastLiteral(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT '42'::int4, 1::text, 'true'::bool")
	row := res.Rows[0]
	if row[0] != int64(42) || row[1] != "1" || row[2] != true {
		t.Errorf("unexpected row %#v", row)
	}
	if res.Columns[0].TypeOID != OIDInt4 || res.Columns[0].Name != "int4" {
		t.Errorf("unexpected cast column %+v", res.Columns[0])
	}
}

func TestCastInvalidText(t *testing.T) {
	e := New()
	qe := execErr(t, e, "SELECT 'abc'::int4")
	if qe.Code != CodeInvalidTextRepr {
		t.Errorf("expected 22P02, got %s", qe.Code)
	}
}

func TestCastInt4OutOfRange(t *testing.T) {
	e := New()
	// Both formats must agree: int4 values outside 32 bits fail at the cast.
	qe := execErr(t, e, "SELECT 5000000000::int4")
	if qe.Code != CodeNumericOutOfRange {
		t.Errorf("expected 22003, got %s", qe.Code)
	}
	qe = execErr(t, e, "SELECT -5000000000::int4")
	if qe.Code != CodeNumericOutOfRange {
		t.Errorf("negative: expected 22003, got %s", qe.Code)
	}
	// The same value is fine as int8.
	res := exec(t, e, "SELECT 5000000000::int8")
	if res.Rows[0][0] != int64(5000000000) {
		t.Errorf("int8: got %#v", res.Rows[0][0])
	}
}

func TestCastUnknownType(t *testing.T) {
	e := New()
	qe := execErr(t, e, "SELECT 1::nosuchtype")
	if qe.Code != CodeUndefinedObject {
		t.Errorf("expected 42704, got %s", qe.Code)
	}
}

func TestVersionFunction(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT version()")
	s, ok := res.Rows[0][0].(string)
	if !ok || !strings.HasPrefix(s, "PostgreSQL ") {
		t.Errorf("expected PostgreSQL version string, got %#v", res.Rows[0][0])
	}
	if res.Columns[0].Name != "version" {
		t.Errorf("expected column version, got %q", res.Columns[0].Name)
	}
}

func TestCurrentTimestamp(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT CURRENT_TIMESTAMP")
	ts, ok := res.Rows[0][0].(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %#v", res.Rows[0][0])
	}
	if d := time.Since(ts); d < 0 || d > time.Minute {
		t.Errorf("timestamp not close to now: %v", ts)
	}
	if res.Columns[0].TypeOID != OIDTimestampTZ {
		t.Errorf("expected timestamptz OID, got %d", res.Columns[0].TypeOID)
	}
}

func TestUndefinedFunction(t *testing.T) {
	e := New()
	qe := execErr(t, e, "SELECT nosuch()")
	if qe.Code != CodeUndefinedFunction {
		t.Errorf("expected 42883, got %s", qe.Code)
	}
}

func TestSelectFromTableRejected(t *testing.T) {
	e := New()
	qe := execErr(t, e, "SELECT * FROM users")
	if qe.Code != CodeUndefinedTable {
		t.Errorf("expected 42P01, got %s", qe.Code)
	}
	if !strings.Contains(qe.Message, "users") {
		t.Errorf("expected table name in message, got %q", qe.Message)
	}
}

func TestSyntaxError(t *testing.T) {
	e := New()
	qe := execErr(t, e, "SELEC 1")
	if qe.Code != CodeSyntaxError {
		t.Errorf("expected 42601, got %s", qe.Code)
	}
}

func TestTransactionTags(t *testing.T) {
	e := New()
	tests := []struct {
		sql string
		tag string
	}{
		{"BEGIN", "BEGIN"},
		{"START TRANSACTION", "BEGIN"},
		{"COMMIT", "COMMIT"},
		{"END", "COMMIT"},
		{"ROLLBACK", "ROLLBACK"},
		{"SET client_encoding TO 'UTF8'", "SET"},
		{"DEALLOCATE ALL", "DEALLOCATE ALL"},
	}
	for _, tt := range tests {
		res := exec(t, e, tt.sql)
		if res.Tag != tt.tag {
			t.Errorf("%q: expected tag %q, got %q", tt.sql, tt.tag, res.Tag)
		}
		if res.Columns != nil || res.Rows != nil {
			t.Errorf("%q: expected no result set", tt.sql)
		}
	}
}

func TestConcatFunction(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT concat('a', NULL, 'b', 1)")
	if res.Rows[0][0] != "ab1" {
		t.Errorf("expected ab1, got %#v", res.Rows[0][0])
	}
}

func TestLengthFunctions(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT length('héllo'), octet_length('héllo')")
	if res.Rows[0][0] != int64(5) {
		t.Errorf("length: expected 5, got %#v", res.Rows[0][0])
	}
	if res.Rows[0][1] != int64(6) {
		t.Errorf("octet_length: expected 6, got %#v", res.Rows[0][1])
	}
}

func TestAbsAndMod(t *testing.T) {
	e := New()
	res := exec(t, e, "SELECT abs(-3), mod(10, 3)")
	if res.Rows[0][0] != int64(3) || res.Rows[0][1] != int64(1) {
		t.Errorf("unexpected row %#v", res.Rows[0])
	}
}
