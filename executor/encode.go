package executor

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Binary timestamps count microseconds from the PostgreSQL epoch.
var pgEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// FormatText renders a value in the text result format. nil means NULL.
func FormatText(v any) []byte {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case int64:
		return []byte(strconv.FormatInt(val, 10))
	case float64:
		return []byte(strconv.FormatFloat(val, 'g', -1, 64))
	case string:
		return []byte(val)
	case bool:
		if val {
			return []byte("t")
		}
		return []byte("f")
	case time.Time:
		return []byte(val.UTC().Format("2006-01-02 15:04:05.999999-07"))
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}

// EncodeValue encodes a value for a DataRow field in the requested format
// (0 = text, 1 = binary). nil stays nil (NULL).
func EncodeValue(v any, oid int32, format int16) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	if format == 0 {
		return FormatText(v), nil
	}
	return encodeBinary(v, oid)
}

func encodeBinary(v any, oid int32) ([]byte, error) {
	switch oid {
	case OIDInt4:
		n, ok := v.(int64)
		if !ok {
			return nil, binaryTypeError(v, oid)
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return nil, &QueryError{Code: CodeNumericOutOfRange, Message: fmt.Sprintf("integer out of range: %d", n)}
		}
		return binary.BigEndian.AppendUint32(nil, uint32(int32(n))), nil
	case OIDInt8:
		n, ok := v.(int64)
		if !ok {
			return nil, binaryTypeError(v, oid)
		}
		return binary.BigEndian.AppendUint64(nil, uint64(n)), nil
	case OIDFloat8:
		f, ok := toFloat64(v)
		if !ok {
			return nil, binaryTypeError(v, oid)
		}
		return binary.BigEndian.AppendUint64(nil, math.Float64bits(f)), nil
	case OIDBool:
		b, ok := v.(bool)
		if !ok {
			return nil, binaryTypeError(v, oid)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case OIDTimestampTZ:
		t, ok := v.(time.Time)
		if !ok {
			return nil, binaryTypeError(v, oid)
		}
		micros := t.Sub(pgEpoch).Microseconds()
		return binary.BigEndian.AppendUint64(nil, uint64(micros)), nil
	case OIDText, OIDVarchar, OIDUnknown:
		// Text types are identical in both formats.
		return []byte(asString(v)), nil
	default:
		return nil, &QueryError{
			Code:    CodeProtocolViolation,
			Message: fmt.Sprintf("binary format not supported for type %s", typeName(oid)),
		}
	}
}

func binaryTypeError(v any, oid int32) *QueryError {
	return &QueryError{
		Code:    CodeProtocolViolation,
		Message: fmt.Sprintf("cannot encode %T as %s", v, typeName(oid)),
	}
}

// DecodeParam decodes one bound parameter value according to its declared
// type OID and wire format. The caller handles NULL (absent) parameters.
func DecodeParam(oid int32, format int16, data []byte) (any, error) {
	if format == 0 {
		return decodeTextParam(oid, string(data))
	}
	return decodeBinaryParam(oid, data)
}

func decodeTextParam(oid int32, s string) (any, error) {
	switch oid {
	case OIDInt4, OIDInt8:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, &QueryError{Code: CodeInvalidTextRepr, Message: fmt.Sprintf("invalid input syntax for type %s: %q", typeName(oid), s)}
		}
		return n, nil
	case OIDFloat8:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, &QueryError{Code: CodeInvalidTextRepr, Message: fmt.Sprintf("invalid input syntax for type double precision: %q", s)}
		}
		return f, nil
	case OIDBool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "t", "true", "1":
			return true, nil
		case "f", "false", "0":
			return false, nil
		}
		return nil, &QueryError{Code: CodeInvalidTextRepr, Message: fmt.Sprintf("invalid input syntax for type boolean: %q", s)}
	case OIDTimestampTZ:
		t, err := parseTimestamp(s)
		if err != nil {
			return nil, &QueryError{Code: CodeInvalidTextRepr, Message: fmt.Sprintf("invalid input syntax for type timestamptz: %q", s)}
		}
		return t, nil
	default:
		// Text, varchar and unspecified parameters pass through byte for byte.
		return s, nil
	}
}

func decodeBinaryParam(oid int32, data []byte) (any, error) {
	switch oid {
	case OIDInt4:
		if len(data) != 4 {
			return nil, binaryLengthError(oid, len(data))
		}
		return int64(int32(binary.BigEndian.Uint32(data))), nil
	case OIDInt8:
		if len(data) != 8 {
			return nil, binaryLengthError(oid, len(data))
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	case OIDFloat8:
		if len(data) != 8 {
			return nil, binaryLengthError(oid, len(data))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	case OIDBool:
		if len(data) != 1 {
			return nil, binaryLengthError(oid, len(data))
		}
		return data[0] != 0, nil
	case OIDTimestampTZ:
		if len(data) != 8 {
			return nil, binaryLengthError(oid, len(data))
		}
		micros := int64(binary.BigEndian.Uint64(data))
		return pgEpoch.Add(time.Duration(micros) * time.Microsecond), nil
	case OIDText, OIDVarchar, OIDUnknown:
		return string(data), nil
	default:
		return nil, &QueryError{
			Code:    CodeProtocolViolation,
			Message: fmt.Sprintf("binary format not supported for parameter type %s", typeName(oid)),
		}
	}
}

func binaryLengthError(oid int32, n int) *QueryError {
	return &QueryError{
		Code:    CodeProtocolViolation,
		Message: fmt.Sprintf("invalid binary length %d for type %s", n, typeName(oid)),
	}
}
