package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// state threads the positional-parameter counter and accumulated
// params through a single compile call. It holds no state across
// calls (spec §9): a fresh state is created per Compiler method
// invocation.
type state struct {
	nextIndex int
	params    []any
}

func newState(startingParamIndex int) *state {
	idx := startingParamIndex
	if idx < 1 {
		idx = 1
	}
	return &state{nextIndex: idx}
}

// bind appends v as a new parameter and returns its placeholder.
func (s *state) bind(v any) string {
	placeholder := "$" + strconv.Itoa(s.nextIndex)
	s.params = append(s.params, v)
	s.nextIndex++
	return placeholder
}

func joinPlaceholders(placeholders []string, sep string) string {
	return strings.Join(placeholders, sep)
}

func wrapParen(sql string) string {
	return "(" + sql + ")"
}

func errInvalidOperatorData(op Operator, detail string) error {
	return newFilterError(CodeInvalidOperatorData, fmt.Sprintf("operator %s: %s", op, detail))
}
