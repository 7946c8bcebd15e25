package filter

import (
	"fmt"
	"sort"
	"strings"
)

// Compiler compiles Data documents into parameterized SQL. It is a
// pure function of its inputs plus a monotonically advancing
// parameter index; it holds no state across calls (spec §9).
type Compiler struct{}

// NewCompiler returns a Compiler. It carries no configuration because
// the language it compiles is fully closed (spec §4.1).
func NewCompiler() *Compiler { return &Compiler{} }

// CompileSelect produces a full SELECT statement for table.
func (c *Compiler) CompileSelect(table string, d Data, startingParamIndex int) (Result, error) {
	if !validIdentifier(table) {
		return Result{}, newFilterError(CodeInvalidTable, fmt.Sprintf("invalid table identifier %q", table))
	}
	projection, err := compileProjection(d.Select)
	if err != nil {
		return Result{}, err
	}

	st := newState(startingParamIndex)
	whereExpr, err := compileWhereExpr(st, d)
	if err != nil {
		return Result{}, err
	}

	orderSQL, err := compileOrder(d.Order)
	if err != nil {
		return Result{}, err
	}

	sql := "SELECT " + projection + " FROM " + quoteIdentifier(table) + " WHERE " + whereExpr
	if orderSQL != "" {
		sql += " " + orderSQL
	}

	limitOffsetSQL, err := compileLimitOffset(st, d)
	if err != nil {
		return Result{}, err
	}
	if limitOffsetSQL != "" {
		sql += " " + limitOffsetSQL
	}

	return Result{SQL: sql, Params: st.params, NextParamIndex: st.nextIndex}, nil
}

// CompileWhere produces just the boolean WHERE expression, for
// splicing into an outer query (e.g. ring 2's ACL predicate
// injection).
func (c *Compiler) CompileWhere(table string, d Data, startingParamIndex int) (Result, error) {
	if !validIdentifier(table) {
		return Result{}, newFilterError(CodeInvalidTable, fmt.Sprintf("invalid table identifier %q", table))
	}
	st := newState(startingParamIndex)
	whereExpr, err := compileWhereExpr(st, d)
	if err != nil {
		return Result{}, err
	}
	return Result{SQL: whereExpr, Params: st.params, NextParamIndex: st.nextIndex}, nil
}

// CompileCount produces a SELECT COUNT(*) statement, ignoring
// Select/Order/Limit/Offset.
func (c *Compiler) CompileCount(table string, d Data, startingParamIndex int) (Result, error) {
	if !validIdentifier(table) {
		return Result{}, newFilterError(CodeInvalidTable, fmt.Sprintf("invalid table identifier %q", table))
	}
	st := newState(startingParamIndex)
	whereExpr, err := compileWhereExpr(st, d)
	if err != nil {
		return Result{}, err
	}
	sql := "SELECT COUNT(*) FROM " + quoteIdentifier(table) + " WHERE " + whereExpr
	return Result{SQL: sql, Params: st.params, NextParamIndex: st.nextIndex}, nil
}

// CompileModifyPlan combines a validated WHERE with caller-supplied
// column assignments into an UPDATE statement. Assignment columns are
// emitted in sorted order so the output is deterministic regardless
// of map iteration order.
func (c *Compiler) CompileModifyPlan(table string, assignments map[string]any, d Data, startingParamIndex int) (Result, error) {
	if !validIdentifier(table) {
		return Result{}, newFilterError(CodeInvalidTable, fmt.Sprintf("invalid table identifier %q", table))
	}
	if len(assignments) == 0 {
		return Result{}, newFilterError(CodeInvalidOperatorData, "modify plan requires at least one assignment")
	}

	cols := make([]string, 0, len(assignments))
	for col := range assignments {
		if !validIdentifier(col) {
			return Result{}, newFilterError(CodeInvalidColumn, fmt.Sprintf("invalid column identifier %q", col))
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	st := newState(startingParamIndex)
	setParts := make([]string, 0, len(cols))
	for _, col := range cols {
		setParts = append(setParts, quoteIdentifier(col)+"="+st.bind(assignments[col]))
	}

	whereExpr, err := compileWhereExpr(st, d)
	if err != nil {
		return Result{}, err
	}

	sql := "UPDATE " + quoteIdentifier(table) + " SET " + strings.Join(setParts, ",") + " WHERE " + whereExpr
	return Result{SQL: sql, Params: st.params, NextParamIndex: st.nextIndex}, nil
}

// CompileInsertPlan builds an INSERT statement from a validated set of
// column assignments. Columns are emitted in sorted order so the
// output is deterministic regardless of map iteration order, exactly
// like CompileModifyPlan.
func (c *Compiler) CompileInsertPlan(table string, fields map[string]any, startingParamIndex int) (Result, error) {
	if !validIdentifier(table) {
		return Result{}, newFilterError(CodeInvalidTable, fmt.Sprintf("invalid table identifier %q", table))
	}
	if len(fields) == 0 {
		return Result{}, newFilterError(CodeInvalidOperatorData, "insert plan requires at least one field")
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !validIdentifier(col) {
			return Result{}, newFilterError(CodeInvalidColumn, fmt.Sprintf("invalid column identifier %q", col))
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	st := newState(startingParamIndex)
	quotedCols := make([]string, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	for _, col := range cols {
		quotedCols = append(quotedCols, quoteIdentifier(col))
		placeholders = append(placeholders, st.bind(fields[col]))
	}

	sql := "INSERT INTO " + quoteIdentifier(table) + " (" + strings.Join(quotedCols, ",") + ") VALUES (" + strings.Join(placeholders, ",") + ")"
	return Result{SQL: sql, Params: st.params, NextParamIndex: st.nextIndex}, nil
}

// compileWhereExpr builds the boolean expression shared by every
// compile entrypoint: the user predicate (if any) conjoined with the
// soft-delete guards, unless individually suppressed (spec §4.1).
func compileWhereExpr(st *state, d Data) (string, error) {
	guards := make([]string, 0, 2)
	if !d.IncludeTrashed {
		guards = append(guards, `"trashed_at" IS NULL`)
	}
	if !d.IncludeDeleted {
		guards = append(guards, `"deleted_at" IS NULL`)
	}

	if d.Where == nil {
		if len(guards) == 0 {
			return "1=1", nil
		}
		return strings.Join(guards, " AND "), nil
	}

	userExpr, err := compileNode(st, d.Where)
	if err != nil {
		return "", err
	}
	// $and/$nand/$nor/$not already compile to a single atom (either a
	// bare "AND" chain, which conjoins losslessly with the guards, or
	// a self-wrapped "NOT (...)"). Only a top-level $or with more than
	// one child compiles to a bare "a OR b" whose OR binds looser than
	// the guards' AND, so it must be parenthesized before conjoining.
	// Single-child $and/$or wrappers compile to their child unchanged,
	// so they are looked through first.
	top := d.Where
	for {
		g, isGroup := top.(LogicalGroup)
		if !isGroup || len(g.Children) != 1 || (g.Kind != GroupAnd && g.Kind != GroupOr) {
			break
		}
		top = g.Children[0]
	}
	if g, isGroup := top.(LogicalGroup); isGroup && g.Kind == GroupOr && len(g.Children) > 1 {
		userExpr = wrapParen(userExpr)
	}
	if len(guards) == 0 {
		return userExpr, nil
	}
	return userExpr + " AND " + strings.Join(guards, " AND "), nil
}

func compileProjection(sel []string) (string, error) {
	if len(sel) == 0 {
		return "*", nil
	}
	cols := make([]string, 0, len(sel))
	for _, col := range sel {
		if !validIdentifier(col) {
			return "", newFilterError(CodeInvalidColumn, fmt.Sprintf("invalid column identifier %q", col))
		}
		cols = append(cols, quoteIdentifier(col))
	}
	return strings.Join(cols, ", "), nil
}

func compileOrder(order []OrderClause) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(order))
	for _, o := range order {
		if !validIdentifier(o.Column) {
			return "", newFilterError(CodeInvalidOrderColumn, fmt.Sprintf("invalid order column %q", o.Column))
		}
		switch o.Direction {
		case Asc, Desc:
		default:
			return "", newFilterError(CodeInvalidOrderDir, fmt.Sprintf("invalid order direction %q", o.Direction))
		}
		parts = append(parts, quoteIdentifier(o.Column)+" "+string(o.Direction))
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

func compileLimitOffset(st *state, d Data) (string, error) {
	var sql string
	if d.Limit != nil {
		if *d.Limit < 0 {
			return "", newFilterError(CodeInvalidLimit, "limit must be non-negative")
		}
		sql += "LIMIT " + st.bind(*d.Limit)
	}
	if d.Offset != nil {
		if *d.Offset < 0 {
			return "", newFilterError(CodeInvalidOffset, "offset must be non-negative")
		}
		if sql != "" {
			sql += " "
		}
		sql += "OFFSET " + st.bind(*d.Offset)
	}
	return sql, nil
}
