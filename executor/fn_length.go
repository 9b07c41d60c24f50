package executor

import "unicode/utf8"

func init() {
	RegisterScalar("LENGTH", fnLength)
	RegisterScalar("OCTET_LENGTH", fnOctetLength)
}

// fnLength returns the number of characters in a string (not bytes).
func fnLength(args []any) (any, Column, error) {
	col := Column{Name: "length", TypeOID: OIDInt4, TypeSize: 4}
	if len(args) != 1 {
		return nil, Column{}, &QueryError{Code: CodeUndefinedFunction, Message: "LENGTH() takes exactly one argument"}
	}
	if args[0] == nil {
		return nil, col, nil
	}
	s, ok := args[0].(string)
	if !ok {
		s = asString(args[0])
	}
	return int64(utf8.RuneCountInString(s)), col, nil
}

// fnOctetLength returns the number of bytes in a string.
func fnOctetLength(args []any) (any, Column, error) {
	col := Column{Name: "octet_length", TypeOID: OIDInt4, TypeSize: 4}
	if len(args) != 1 {
		return nil, Column{}, &QueryError{Code: CodeUndefinedFunction, Message: "OCTET_LENGTH() takes exactly one argument"}
	}
	if args[0] == nil {
		return nil, col, nil
	}
	s, ok := args[0].(string)
	if !ok {
		s = asString(args[0])
	}
	return int64(len(s)), col, nil
}
