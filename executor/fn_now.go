package executor

import "time"

func init() {
	RegisterScalar("NOW", fnNow)
	// CURRENT_TIMESTAMP is a keyword in the parser but evaluates the same.
	RegisterScalar("CURRENT_TIMESTAMP", fnCurrentTimestamp)
}

func fnNow(args []any) (any, Column, error) {
	if len(args) != 0 {
		return nil, Column{}, &QueryError{Code: CodeUndefinedFunction, Message: "NOW() takes no arguments"}
	}
	return time.Now().UTC(), Column{Name: "now", TypeOID: OIDTimestampTZ, TypeSize: 8}, nil
}

func fnCurrentTimestamp(args []any) (any, Column, error) {
	val, _, err := fnNow(args)
	return val, Column{Name: "current_timestamp", TypeOID: OIDTimestampTZ, TypeSize: 8}, err
}
