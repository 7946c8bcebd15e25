package filter

import "fmt"

// compileNode dispatches on node kind, preserving document order for
// every group's children (spec §4.1: "the order in which logical
// operands appear in the output mirrors their order in the input
// document").
func compileNode(st *state, n Node) (string, error) {
	switch v := n.(type) {
	case FieldCond:
		return compileFieldCond(st, v)
	case LogicalGroup:
		return compileGroup(st, v)
	default:
		return "", newFilterError(CodeInvalidOperatorData, fmt.Sprintf("unknown node type %T", n))
	}
}

func compileGroup(st *state, g LogicalGroup) (string, error) {
	switch g.Kind {
	case GroupAnd:
		return compileConjunction(st, g.Children, "AND")
	case GroupOr:
		return compileConjunction(st, g.Children, "OR")
	case GroupNand:
		inner, err := compileConjunction(st, g.Children, "AND")
		if err != nil {
			return "", err
		}
		return "NOT " + wrapParen(inner), nil
	case GroupNor:
		inner, err := compileConjunction(st, g.Children, "OR")
		if err != nil {
			return "", err
		}
		return "NOT " + wrapParen(inner), nil
	case GroupNot:
		if len(g.Children) != 1 {
			return "", errInvalidOperatorData(Operator(GroupNot), "$not requires exactly one child")
		}
		inner, err := compileNode(st, g.Children[0])
		if err != nil {
			return "", err
		}
		return "NOT " + wrapParen(inner), nil
	default:
		return "", newFilterError(CodeUnsupportedOperator, fmt.Sprintf("unsupported logical group %q", g.Kind))
	}
}

func compileConjunction(st *state, children []Node, joiner string) (string, error) {
	if len(children) == 0 {
		return "", errInvalidOperatorData(Operator(joiner), "logical group requires a non-empty array of subtrees")
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		part, err := compileNode(st, child)
		if err != nil {
			return "", err
		}
		if _, isGroup := child.(LogicalGroup); isGroup && len(children) > 1 {
			part = wrapParen(part)
		}
		parts = append(parts, part)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	sep := " " + joiner + " "
	out := parts[0]
	for _, p := range parts[1:] {
		out += sep + p
	}
	return out, nil
}
