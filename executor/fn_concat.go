package executor

import "strings"

func init() {
	RegisterScalar("CONCAT", fnConcat)
}

// fnConcat joins any number of arguments as text. Unlike the || operator,
// NULL arguments are treated as empty strings.
func fnConcat(args []any) (any, Column, error) {
	var b strings.Builder
	for _, a := range args {
		if a == nil {
			continue
		}
		b.WriteString(asString(a))
	}
	return b.String(), Column{Name: "concat", TypeOID: OIDText, TypeSize: -1}, nil
}
