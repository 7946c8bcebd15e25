package filter

import (
	"fmt"
)

// compileFieldCond compiles a single leaf predicate into a boolean
// SQL expression, binding any operand values through st.
func compileFieldCond(st *state, c FieldCond) (string, error) {
	if !validIdentifier(c.Column) {
		return "", newFilterError(CodeInvalidColumn, fmt.Sprintf("invalid column identifier %q", c.Column))
	}
	if !c.Op.valid() {
		return "", newFilterError(CodeUnsupportedOperator, fmt.Sprintf("unsupported operator %q", c.Op))
	}
	col := quoteIdentifier(c.Column)

	switch c.Op {
	case OpEq:
		if c.Operand == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + st.bind(c.Operand), nil
	case OpNe, OpNeq:
		if c.Operand == nil {
			return col + " IS NOT NULL", nil
		}
		return col + " != " + st.bind(c.Operand), nil
	case OpGt:
		return col + " > " + st.bind(c.Operand), nil
	case OpGte:
		return col + " >= " + st.bind(c.Operand), nil
	case OpLt:
		return col + " < " + st.bind(c.Operand), nil
	case OpLte:
		return col + " <= " + st.bind(c.Operand), nil
	case OpLike:
		return col + " LIKE " + st.bind(c.Operand), nil
	case OpNlike:
		return col + " NOT LIKE " + st.bind(c.Operand), nil
	case OpIlike:
		return col + " ILIKE " + st.bind(c.Operand), nil
	case OpNilike:
		return col + " NOT ILIKE " + st.bind(c.Operand), nil
	case OpRegex:
		pattern, err := regexOperand(c.Operand)
		if err != nil {
			return "", err
		}
		return col + " ~ " + st.bind(pattern), nil
	case OpNregex:
		pattern, err := regexOperand(c.Operand)
		if err != nil {
			return "", err
		}
		return col + " !~ " + st.bind(pattern), nil
	case OpIn:
		return compileInList(st, col, c.Operand, false)
	case OpNin:
		return compileInList(st, col, c.Operand, true)
	case OpAny:
		return compileArrayOverlap(st, col, c.Operand, false)
	case OpNany:
		return compileArrayOverlap(st, col, c.Operand, true)
	case OpAll:
		return compileArrayContains(st, col, c.Operand, false)
	case OpNall:
		return compileArrayContains(st, col, c.Operand, true)
	case OpSize:
		return compileSize(st, col, c.Operand)
	case OpBetween:
		return compileBetween(st, col, c.Operand)
	case OpFind:
		return col + " @> " + st.bind(c.Operand) + "::jsonb", nil
	case OpText:
		return "to_tsvector(" + col + ") @@ plainto_tsquery(" + st.bind(c.Operand) + ")", nil
	case OpExists:
		want, ok := c.Operand.(bool)
		if !ok {
			return "", errInvalidOperatorData(c.Op, "operand must be a boolean")
		}
		if want {
			return col + " IS NOT NULL", nil
		}
		return col + " IS NULL", nil
	case OpNull:
		want, ok := c.Operand.(bool)
		if !ok {
			return "", errInvalidOperatorData(c.Op, "operand must be a boolean")
		}
		if want {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	default:
		return "", newFilterError(CodeUnsupportedOperator, fmt.Sprintf("unsupported operator %q", c.Op))
	}
}

// regexOperand rejects any attempt to supply regex flags (spec §9:
// reject flags unless the host environment documents a definition —
// this implementation documents none, so flags are always rejected).
func regexOperand(operand any) (string, error) {
	switch v := operand.(type) {
	case string:
		return v, nil
	default:
		return "", newFilterError(CodeRegexFlagsRejected, "regex flags are not supported; operand must be a plain pattern string")
	}
}

func toSlice(operand any) ([]any, bool) {
	switch v := operand.(type) {
	case []any:
		return v, true
	default:
		return nil, false
	}
}

func compileInList(st *state, col string, operand any, negate bool) (string, error) {
	items, ok := toSlice(operand)
	if !ok {
		return "", errInvalidOperatorData(OpIn, "operand must be an array")
	}
	if len(items) == 0 {
		if negate {
			return "1=1", nil
		}
		return "1=0", nil
	}
	placeholders := make([]string, 0, len(items))
	for _, item := range items {
		placeholders = append(placeholders, st.bind(item))
	}
	expr := col + " IN (" + joinPlaceholders(placeholders, ", ") + ")"
	if negate {
		return col + " NOT IN (" + joinPlaceholders(placeholders, ", ") + ")", nil
	}
	return expr, nil
}

func compileArrayOverlap(st *state, col string, operand any, negate bool) (string, error) {
	op := OpAny
	if negate {
		op = OpNany
	}
	items, ok := toSlice(operand)
	if !ok {
		return "", errInvalidOperatorData(op, "operand must be an array")
	}
	if len(items) == 0 {
		// Overlapping with zero given values is vacuously false, so
		// $nany over an empty array (its negation) is vacuously true —
		// same reasoning as $in/$nin on an empty array.
		if negate {
			return "1=1", nil
		}
		return "1=0", nil
	}
	placeholders := make([]string, 0, len(items))
	for _, item := range items {
		placeholders = append(placeholders, st.bind(item))
	}
	expr := col + " && ARRAY[" + joinPlaceholders(placeholders, ", ") + "]"
	if negate {
		return "NOT (" + expr + ")", nil
	}
	return expr, nil
}

func compileArrayContains(st *state, col string, operand any, negate bool) (string, error) {
	op := OpAll
	if negate {
		op = OpNall
	}
	items, ok := toSlice(operand)
	if !ok {
		return "", errInvalidOperatorData(op, "operand must be an array")
	}
	if len(items) == 0 {
		// $nall over an empty array is the negation of $all over an
		// empty array (1=0, matching $any's empty-array handling), so
		// $nall is vacuously true — same reasoning as $in/$nin.
		if negate {
			return "1=1", nil
		}
		return "1=0", nil
	}
	placeholders := make([]string, 0, len(items))
	for _, item := range items {
		placeholders = append(placeholders, st.bind(item))
	}
	expr := col + " @> ARRAY[" + joinPlaceholders(placeholders, ", ") + "]"
	if negate {
		return "NOT (" + expr + ")", nil
	}
	return expr, nil
}

// compileSize compares the first-dimension length of an array column.
// operand is either a bare number (equality) or a {"op": cmp,
// "value": n} map for other comparisons.
func compileSize(st *state, col string, operand any) (string, error) {
	lengthExpr := "array_length(" + col + ", 1)"
	switch v := operand.(type) {
	case map[string]any:
		cmpOp, _ := v["op"].(string)
		value, hasValue := v["value"]
		if cmpOp == "" || !hasValue {
			return "", errInvalidOperatorData(OpSize, `object operand requires "op" and "value"`)
		}
		sqlOp, err := comparisonSQL(cmpOp)
		if err != nil {
			return "", err
		}
		return lengthExpr + " " + sqlOp + " " + st.bind(value), nil
	case nil:
		return "", errInvalidOperatorData(OpSize, "operand is required")
	default:
		return lengthExpr + " = " + st.bind(v), nil
	}
}

func comparisonSQL(op string) (string, error) {
	switch Operator(op) {
	case OpEq:
		return "=", nil
	case OpNe, OpNeq:
		return "!=", nil
	case OpGt:
		return ">", nil
	case OpGte:
		return ">=", nil
	case OpLt:
		return "<", nil
	case OpLte:
		return "<=", nil
	default:
		return "", errInvalidOperatorData(OpSize, fmt.Sprintf("unsupported comparison %q", op))
	}
}

// compileBetween requires exactly two operands and preserves input
// order (no swap), per spec §4.1.
func compileBetween(st *state, col string, operand any) (string, error) {
	items, ok := toSlice(operand)
	if !ok || len(items) != 2 {
		return "", errInvalidOperatorData(OpBetween, "operand must be a 2-element array")
	}
	lo := st.bind(items[0])
	hi := st.bind(items[1])
	return col + " BETWEEN " + lo + " AND " + hi, nil
}
