package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSelect_EmptyFilterYieldsGuardsOnly(t *testing.T) {
	c := NewCompiler()
	res, err := c.CompileSelect("account", Data{}, 1)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "account" WHERE "trashed_at" IS NULL AND "deleted_at" IS NULL`, res.SQL)
	assert.Empty(t, res.Params)
}

func TestCompileSelect_BothGuardsSuppressedWithNoPredicateIsLiteralTrue(t *testing.T) {
	c := NewCompiler()
	res, err := c.CompileSelect("account", Data{IncludeTrashed: true, IncludeDeleted: true}, 1)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "account" WHERE 1=1`, res.SQL)
}

func TestCompileSelect_UserPredicateConjoinsSoftDeleteGuards(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "status", Op: OpEq, Operand: "active"}}
	res, err := c.CompileSelect("account", d, 1)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "account" WHERE "status" = $1 AND "trashed_at" IS NULL AND "deleted_at" IS NULL`, res.SQL)
	assert.Equal(t, []any{"active"}, res.Params)
}

func TestCompileSelect_EmptyInCompilesToConstantFalse(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "id", Op: OpIn, Operand: []any{}}}
	res, err := c.CompileSelect("account", d, 1)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "account" WHERE 1=0 AND "trashed_at" IS NULL AND "deleted_at" IS NULL`, res.SQL)
	assert.Empty(t, res.Params)
}

func TestCompileSelect_EqWithNilOperandIsNull(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "archived_at", Op: OpEq, Operand: nil}}
	res, err := c.CompileSelect("account", d, 1)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `"archived_at" IS NULL`)
}

func TestCompileSelect_ACLInjectionExample(t *testing.T) {
	c := NewCompiler()
	acl := LogicalGroup{Kind: GroupOr, Children: []Node{
		FieldCond{Column: "access_read", Op: OpAny, Operand: []any{"P"}},
		FieldCond{Column: "access_edit", Op: OpAny, Operand: []any{"P"}},
		FieldCond{Column: "access_full", Op: OpAny, Operand: []any{"P"}},
	}}
	d := Data{Where: LogicalGroup{Kind: GroupAnd, Children: []Node{
		FieldCond{Column: "status", Op: OpEq, Operand: "active"},
		acl,
	}}}
	res, err := c.CompileWhere("account", d, 1)
	require.NoError(t, err)
	assert.Equal(t,
		`"status" = $1 AND ("access_read" && ARRAY[$2] OR "access_edit" && ARRAY[$3] OR "access_full" && ARRAY[$4]) AND "trashed_at" IS NULL AND "deleted_at" IS NULL`,
		res.SQL)
	assert.Equal(t, []any{"active", "P", "P", "P"}, res.Params)
}

func TestCompileWhere_BareTopLevelOrGroupIsParenthesizedBeforeGuards(t *testing.T) {
	c := NewCompiler()
	aclOnly := LogicalGroup{Kind: GroupOr, Children: []Node{
		FieldCond{Column: "access_read", Op: OpAny, Operand: []any{"P"}},
		FieldCond{Column: "access_edit", Op: OpAny, Operand: []any{"P"}},
		FieldCond{Column: "access_full", Op: OpAny, Operand: []any{"P"}},
	}}
	d := Data{Where: aclOnly}
	res, err := c.CompileWhere("account", d, 1)
	require.NoError(t, err)
	assert.Equal(t,
		`("access_read" && ARRAY[$1] OR "access_edit" && ARRAY[$2] OR "access_full" && ARRAY[$3]) AND "trashed_at" IS NULL AND "deleted_at" IS NULL`,
		res.SQL)
}

func TestCompileSelect_EmptyNanyCompilesToConstantTrue(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "tags", Op: OpNany, Operand: []any{}}}
	res, err := c.CompileSelect("account", d, 1)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "account" WHERE 1=1 AND "trashed_at" IS NULL AND "deleted_at" IS NULL`, res.SQL)
}

func TestCompileSelect_EmptyNallCompilesToConstantTrue(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "tags", Op: OpNall, Operand: []any{}}}
	res, err := c.CompileSelect("account", d, 1)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "account" WHERE 1=1 AND "trashed_at" IS NULL AND "deleted_at" IS NULL`, res.SQL)
}

func TestCompileSelect_BetweenPreservesOrder(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "age", Op: OpBetween, Operand: []any{18, 65}}}
	res, err := c.CompileSelect("account", d, 1)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `"age" BETWEEN $1 AND $2`)
	assert.Equal(t, []any{18, 65}, res.Params)
}

func TestCompileSelect_UnknownOperatorFails(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "age", Op: "$bogus", Operand: 1}}
	_, err := c.CompileSelect("account", d, 1)
	require.Error(t, err)
}

func TestCompileSelect_InvalidIdentifierFails(t *testing.T) {
	c := NewCompiler()
	_, err := c.CompileSelect("bad; drop table", Data{}, 1)
	require.Error(t, err)

	d := Data{Where: FieldCond{Column: "bad col", Op: OpEq, Operand: 1}}
	_, err = c.CompileSelect("account", d, 1)
	require.Error(t, err)
}

func TestCompileSelect_NegativeLimitFails(t *testing.T) {
	c := NewCompiler()
	bad := -1
	_, err := c.CompileSelect("account", Data{Limit: &bad}, 1)
	require.Error(t, err)
}

func TestCompileSelect_LimitZeroIsValid(t *testing.T) {
	c := NewCompiler()
	zero := 0
	res, err := c.CompileSelect("account", Data{Limit: &zero}, 1)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "LIMIT $1")
}

func TestCompileSelect_RegexFlagsRejected(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "name", Op: OpRegex, Operand: map[string]any{"pattern": "^a", "flags": "i"}}}
	_, err := c.CompileSelect("account", d, 1)
	require.Error(t, err)
}

func TestCompileSelect_StartingParamIndexSplices(t *testing.T) {
	c := NewCompiler()
	d := Data{Where: FieldCond{Column: "status", Op: OpEq, Operand: "active"}}
	res, err := c.CompileWhere("account", d, 5)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "$5")
	assert.Equal(t, 6, res.NextParamIndex) // one param bound starting at 5
}

func TestCompileModifyPlan_SortsAssignmentsDeterministically(t *testing.T) {
	c := NewCompiler()
	res, err := c.CompileModifyPlan("account", map[string]any{"updated_at": "now", "name": "new"}, Data{
		Where: FieldCond{Column: "id", Op: OpEq, Operand: "U"},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "account" SET "name"=$1,"updated_at"=$2 WHERE "id" = $3 AND "trashed_at" IS NULL AND "deleted_at" IS NULL`, res.SQL)
	assert.Equal(t, []any{"new", "now", "U"}, res.Params)
}

func TestCompileInsertPlan_SortsColumnsDeterministically(t *testing.T) {
	c := NewCompiler()
	res, err := c.CompileInsertPlan("account", map[string]any{"name": "alice", "status": "active"}, 1)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "account" ("name","status") VALUES ($1,$2)`, res.SQL)
	assert.Equal(t, []any{"alice", "active"}, res.Params)
}

func TestCompileInsertPlan_RejectsEmptyFieldSet(t *testing.T) {
	c := NewCompiler()
	_, err := c.CompileInsertPlan("account", map[string]any{}, 1)
	require.Error(t, err)
}

func TestCompileInsertPlan_RejectsInvalidColumnIdentifier(t *testing.T) {
	c := NewCompiler()
	_, err := c.CompileInsertPlan("account", map[string]any{"bad col": "x"}, 1)
	require.Error(t, err)
}

func TestCompileSelect_NorderedAndLimit(t *testing.T) {
	c := NewCompiler()
	limit := 10
	d := Data{Order: []OrderClause{{Column: "created_at", Direction: Desc}}, Limit: &limit}
	res, err := c.CompileSelect("account", d, 1)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `ORDER BY "created_at" DESC`)
	assert.Contains(t, res.SQL, "LIMIT $1")
}
