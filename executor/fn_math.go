package executor

import "math"

func init() {
	RegisterScalar("ABS", fnAbs)
	RegisterScalar("MOD", fnMod)
}

func fnAbs(args []any) (any, Column, error) {
	if len(args) != 1 {
		return nil, Column{}, &QueryError{Code: CodeUndefinedFunction, Message: "ABS() takes exactly one argument"}
	}
	switch v := args[0].(type) {
	case nil:
		return nil, Column{Name: "abs", TypeOID: OIDInt8, TypeSize: 8}, nil
	case int64:
		if v < 0 {
			v = -v
		}
		return v, Column{Name: "abs", TypeOID: OIDInt8, TypeSize: 8}, nil
	case float64:
		return math.Abs(v), Column{Name: "abs", TypeOID: OIDFloat8, TypeSize: 8}, nil
	}
	return nil, Column{}, &QueryError{Code: CodeUndefinedFunction, Message: "ABS() requires a numeric argument"}
}

func fnMod(args []any) (any, Column, error) {
	col := Column{Name: "mod", TypeOID: OIDInt8, TypeSize: 8}
	if len(args) != 2 {
		return nil, Column{}, &QueryError{Code: CodeUndefinedFunction, Message: "MOD() takes exactly two arguments"}
	}
	if args[0] == nil || args[1] == nil {
		return nil, col, nil
	}
	a, aok := args[0].(int64)
	b, bok := args[1].(int64)
	if !aok || !bok {
		return nil, Column{}, &QueryError{Code: CodeUndefinedFunction, Message: "MOD() requires integer arguments"}
	}
	if b == 0 {
		return nil, Column{}, &QueryError{Code: CodeDivisionByZero, Message: "division by zero"}
	}
	return a % b, col, nil
}
