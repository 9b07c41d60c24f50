package executor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pgwired/parser"
)

// evalExpr evaluates an expression against the bound parameters (nil when
// executing over the simple protocol). There is never a row context; every
// expression is constant apart from parameters and volatile functions.
// The returned Column carries type metadata even when the value is NULL so
// a statement can be described without parameter values.
func evalExpr(expr parser.Expr, params []any) (any, Column, error) {
	switch e := expr.(type) {
	case *parser.IntegerLit:
		return e.Value, Column{Name: "?column?", TypeOID: OIDInt8, TypeSize: 8}, nil
	case *parser.FloatLit:
		return e.Value, Column{Name: "?column?", TypeOID: OIDFloat8, TypeSize: 8}, nil
	case *parser.StringLit:
		return e.Value, Column{Name: "?column?", TypeOID: OIDText, TypeSize: -1}, nil
	case *parser.BoolLit:
		return e.Value, Column{Name: "?column?", TypeOID: OIDBool, TypeSize: 1}, nil
	case *parser.NullLit:
		return nil, Column{Name: "?column?", TypeOID: OIDUnknown, TypeSize: -1}, nil
	case *parser.ParamRef:
		if e.Ordinal > len(params) {
			return nil, Column{}, &QueryError{
				Code:    CodeProtocolViolation,
				Message: fmt.Sprintf("there is no parameter $%d", e.Ordinal),
			}
		}
		v := params[e.Ordinal-1]
		return v, valueColumn(v), nil
	case *parser.CastExpr:
		val, _, err := evalExpr(e.Expr, params)
		if err != nil {
			return nil, Column{}, err
		}
		return castValue(val, e.Type)
	case *parser.AliasExpr:
		val, col, err := evalExpr(e.Expr, params)
		if err != nil {
			return nil, Column{}, err
		}
		col.Name = e.Alias
		return val, col, nil
	case *parser.UnaryExpr:
		return evalUnary(e, params)
	case *parser.BinaryExpr:
		return evalBinary(e, params)
	case *parser.NotExpr:
		val, _, err := evalExpr(e.Expr, params)
		if err != nil {
			return nil, Column{}, err
		}
		b, err := toBoolOrNull(val, "NOT")
		if err != nil {
			return nil, Column{}, err
		}
		if b == nil {
			return nil, boolColumn(), nil
		}
		return !*b, boolColumn(), nil
	case *parser.IsNullExpr:
		val, _, err := evalExpr(e.Expr, params)
		if err != nil {
			return nil, Column{}, err
		}
		// IS NULL / IS NOT NULL always yield a definite boolean.
		if e.Not {
			return val != nil, boolColumn(), nil
		}
		return val == nil, boolColumn(), nil
	case *parser.FunctionCallExpr:
		return evalScalarFunction(e, params)
	case *parser.ColumnRef:
		return nil, Column{}, &QueryError{
			Code:    CodeUndefinedColumn,
			Message: fmt.Sprintf("column %q does not exist", e.Name),
		}
	case *parser.StarExpr:
		return nil, Column{}, &QueryError{
			Code:    CodeSyntaxError,
			Message: "SELECT * with no tables specified is not valid",
		}
	default:
		return nil, Column{}, &QueryError{
			Code:    CodeSyntaxError,
			Message: fmt.Sprintf("unsupported expression %T", expr),
		}
	}
}

func evalUnary(e *parser.UnaryExpr, params []any) (any, Column, error) {
	val, col, err := evalExpr(e.Expr, params)
	if err != nil {
		return nil, Column{}, err
	}
	if val == nil {
		return nil, col, nil
	}
	switch v := val.(type) {
	case int64:
		return -v, Column{Name: "?column?", TypeOID: OIDInt8, TypeSize: 8}, nil
	case float64:
		return -v, Column{Name: "?column?", TypeOID: OIDFloat8, TypeSize: 8}, nil
	default:
		return nil, Column{}, &QueryError{
			Code:    CodeUndefinedFunction,
			Message: fmt.Sprintf("operator does not exist: - %s", typeName(col.TypeOID)),
		}
	}
}

func evalBinary(e *parser.BinaryExpr, params []any) (any, Column, error) {
	switch e.Op {
	case "AND", "OR":
		return evalLogic(e, params)
	}

	lv, lcol, err := evalExpr(e.Left, params)
	if err != nil {
		return nil, Column{}, err
	}
	rv, rcol, err := evalExpr(e.Right, params)
	if err != nil {
		return nil, Column{}, err
	}

	switch e.Op {
	case "||":
		if lv == nil || rv == nil {
			return nil, Column{Name: "?column?", TypeOID: OIDText, TypeSize: -1}, nil
		}
		return asString(lv) + asString(rv), Column{Name: "?column?", TypeOID: OIDText, TypeSize: -1}, nil
	case "+", "-", "*", "/", "%":
		return evalArith(e.Op, lv, lcol, rv, rcol)
	case "=", "!=", "<", ">", "<=", ">=":
		// Comparison with NULL is NULL under three-valued logic.
		if lv == nil || rv == nil {
			return nil, boolColumn(), nil
		}
		cmp, err := compareValues(lv, lcol, rv, rcol)
		if err != nil {
			return nil, Column{}, err
		}
		var result bool
		switch e.Op {
		case "=":
			result = cmp == 0
		case "!=":
			result = cmp != 0
		case "<":
			result = cmp < 0
		case ">":
			result = cmp > 0
		case "<=":
			result = cmp <= 0
		case ">=":
			result = cmp >= 0
		}
		return result, boolColumn(), nil
	default:
		return nil, Column{}, &QueryError{
			Code:    CodeSyntaxError,
			Message: fmt.Sprintf("unsupported operator %q", e.Op),
		}
	}
}

func evalArith(op string, lv any, lcol Column, rv any, rcol Column) (any, Column, error) {
	col := Column{Name: "?column?", TypeOID: OIDInt8, TypeSize: 8}
	if lcol.TypeOID == OIDFloat8 || rcol.TypeOID == OIDFloat8 {
		col = Column{Name: "?column?", TypeOID: OIDFloat8, TypeSize: 8}
	}
	if lv == nil || rv == nil {
		return nil, col, nil
	}

	li, lIsInt := lv.(int64)
	ri, rIsInt := rv.(int64)
	if lIsInt && rIsInt {
		switch op {
		case "+":
			return li + ri, col, nil
		case "-":
			return li - ri, col, nil
		case "*":
			return li * ri, col, nil
		case "/":
			if ri == 0 {
				return nil, Column{}, &QueryError{Code: CodeDivisionByZero, Message: "division by zero"}
			}
			return li / ri, col, nil
		case "%":
			if ri == 0 {
				return nil, Column{}, &QueryError{Code: CodeDivisionByZero, Message: "division by zero"}
			}
			return li % ri, col, nil
		}
	}

	lf, lok := toFloat64(lv)
	rf, rok := toFloat64(rv)
	if !lok || !rok {
		return nil, Column{}, &QueryError{
			Code: CodeUndefinedFunction,
			Message: fmt.Sprintf("operator does not exist: %s %s %s",
				typeName(lcol.TypeOID), op, typeName(rcol.TypeOID)),
		}
	}
	col = Column{Name: "?column?", TypeOID: OIDFloat8, TypeSize: 8}
	switch op {
	case "+":
		return lf + rf, col, nil
	case "-":
		return lf - rf, col, nil
	case "*":
		return lf * rf, col, nil
	case "/":
		if rf == 0 {
			return nil, Column{}, &QueryError{Code: CodeDivisionByZero, Message: "division by zero"}
		}
		return lf / rf, col, nil
	case "%":
		if rf == 0 {
			return nil, Column{}, &QueryError{Code: CodeDivisionByZero, Message: "division by zero"}
		}
		return math.Mod(lf, rf), col, nil
	}
	return nil, Column{}, &QueryError{Code: CodeSyntaxError, Message: fmt.Sprintf("unsupported operator %q", op)}
}

// evalLogic implements three-valued AND/OR: NULL is unknown, so
// FALSE AND NULL = FALSE, TRUE OR NULL = TRUE, otherwise NULL propagates.
func evalLogic(e *parser.BinaryExpr, params []any) (any, Column, error) {
	lv, _, err := evalExpr(e.Left, params)
	if err != nil {
		return nil, Column{}, err
	}
	lb, err := toBoolOrNull(lv, e.Op)
	if err != nil {
		return nil, Column{}, err
	}
	rv, _, err := evalExpr(e.Right, params)
	if err != nil {
		return nil, Column{}, err
	}
	rb, err := toBoolOrNull(rv, e.Op)
	if err != nil {
		return nil, Column{}, err
	}

	if e.Op == "AND" {
		if (lb != nil && !*lb) || (rb != nil && !*rb) {
			return false, boolColumn(), nil
		}
		if lb == nil || rb == nil {
			return nil, boolColumn(), nil
		}
		return true, boolColumn(), nil
	}
	// OR
	if (lb != nil && *lb) || (rb != nil && *rb) {
		return true, boolColumn(), nil
	}
	if lb == nil || rb == nil {
		return nil, boolColumn(), nil
	}
	return false, boolColumn(), nil
}

// compareValues orders two non-NULL values, promoting int to float for
// mixed numeric comparison. Returns <0, 0 or >0.
func compareValues(lv any, lcol Column, rv any, rcol Column) (int, error) {
	if lf, lok := toFloat64(lv); lok {
		if rf, rok := toFloat64(rv); rok {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if ls, ok := lv.(string); ok {
		if rs, ok := rv.(string); ok {
			return strings.Compare(ls, rs), nil
		}
	}
	if lb, ok := lv.(bool); ok {
		if rb, ok := rv.(bool); ok {
			switch {
			case lb == rb:
				return 0, nil
			case !lb:
				return -1, nil
			default:
				return 1, nil
			}
		}
	}
	if lt, ok := lv.(time.Time); ok {
		if rt, ok := rv.(time.Time); ok {
			return lt.Compare(rt), nil
		}
	}
	return 0, &QueryError{
		Code: CodeUndefinedFunction,
		Message: fmt.Sprintf("operator does not exist: %s = %s",
			typeName(lcol.TypeOID), typeName(rcol.TypeOID)),
	}
}

// castValue converts a value to the named SQL type, returning the cast
// column descriptor. The column is named after the type, as Postgres does.
func castValue(val any, typ string) (any, Column, error) {
	var col Column
	switch typ {
	case "text":
		col = Column{Name: typ, TypeOID: OIDText, TypeSize: -1}
	case "varchar":
		col = Column{Name: typ, TypeOID: OIDVarchar, TypeSize: -1}
	case "int4", "int", "integer":
		col = Column{Name: typ, TypeOID: OIDInt4, TypeSize: 4}
	case "int8", "bigint":
		col = Column{Name: typ, TypeOID: OIDInt8, TypeSize: 8}
	case "float8", "float", "double":
		col = Column{Name: typ, TypeOID: OIDFloat8, TypeSize: 8}
	case "bool", "boolean":
		col = Column{Name: typ, TypeOID: OIDBool, TypeSize: 1}
	case "timestamptz":
		col = Column{Name: typ, TypeOID: OIDTimestampTZ, TypeSize: 8}
	default:
		return nil, Column{}, &QueryError{
			Code:    CodeUndefinedObject,
			Message: fmt.Sprintf("type %q does not exist", typ),
		}
	}
	if val == nil {
		return nil, col, nil
	}

	switch col.TypeOID {
	case OIDText, OIDVarchar:
		return asString(val), col, nil
	case OIDInt4, OIDInt8:
		var n int64
		switch v := val.(type) {
		case int64:
			n = v
		case float64:
			if v != math.Trunc(v) {
				return nil, Column{}, castError(val, typ)
			}
			n = int64(v)
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, Column{}, castError(v, typ)
			}
			n = parsed
		default:
			return nil, Column{}, castError(val, typ)
		}
		if col.TypeOID == OIDInt4 && (n > math.MaxInt32 || n < math.MinInt32) {
			return nil, Column{}, &QueryError{Code: CodeNumericOutOfRange, Message: "integer out of range"}
		}
		return n, col, nil
	case OIDFloat8:
		switch v := val.(type) {
		case float64:
			return v, col, nil
		case int64:
			return float64(v), col, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, Column{}, castError(v, typ)
			}
			return f, col, nil
		}
	case OIDBool:
		switch v := val.(type) {
		case bool:
			return v, col, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "t", "true", "1", "yes", "on":
				return true, col, nil
			case "f", "false", "0", "no", "off":
				return false, col, nil
			}
			return nil, Column{}, castError(v, typ)
		}
	case OIDTimestampTZ:
		switch v := val.(type) {
		case time.Time:
			return v, col, nil
		case string:
			t, err := parseTimestamp(v)
			if err != nil {
				return nil, Column{}, castError(v, typ)
			}
			return t, col, nil
		}
	}
	return nil, Column{}, castError(val, typ)
}

func castError(val any, typ string) *QueryError {
	return &QueryError{
		Code:    CodeInvalidTextRepr,
		Message: fmt.Sprintf("invalid input syntax for type %s: %q", typ, fmt.Sprint(val)),
	}
}

// parseTimestamp accepts the text formats clients commonly produce for
// timestamptz values.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// -------------------------------------------------------------------------
// Value helpers
// -------------------------------------------------------------------------

func boolColumn() Column {
	return Column{Name: "?column?", TypeOID: OIDBool, TypeSize: 1}
}

// valueColumn derives column metadata from a runtime value. Used for bare
// parameters, whose type is whatever the client bound.
func valueColumn(v any) Column {
	switch v.(type) {
	case int64:
		return Column{Name: "?column?", TypeOID: OIDInt8, TypeSize: 8}
	case float64:
		return Column{Name: "?column?", TypeOID: OIDFloat8, TypeSize: 8}
	case bool:
		return Column{Name: "?column?", TypeOID: OIDBool, TypeSize: 1}
	case time.Time:
		return Column{Name: "?column?", TypeOID: OIDTimestampTZ, TypeSize: 8}
	default:
		return Column{Name: "?column?", TypeOID: OIDText, TypeSize: -1}
	}
}

// toBoolOrNull interprets a value in boolean context. nil stays nil
// (unknown); non-boolean values are a type error.
func toBoolOrNull(v any, ctx string) (*bool, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.(bool); ok {
		return &b, nil
	}
	return nil, &QueryError{
		Code:    CodeDatatypeMismatch,
		Message: fmt.Sprintf("argument of %s must be type boolean", ctx),
	}
}

// toFloat64 converts a numeric value to float64.
// Returns the float64 value and true on success.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// asString renders a value the way it would appear in a text-format result.
func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return string(FormatText(v))
}

func typeName(oid int32) string {
	switch oid {
	case OIDBool:
		return "boolean"
	case OIDInt4:
		return "integer"
	case OIDInt8:
		return "bigint"
	case OIDFloat8:
		return "double precision"
	case OIDText:
		return "text"
	case OIDVarchar:
		return "character varying"
	case OIDTimestampTZ:
		return "timestamp with time zone"
	default:
		return "unknown"
	}
}
