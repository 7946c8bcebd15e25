// Package filter implements the dynamic query engine: a structured
// JSON-shaped predicate/order/projection document compiled into
// parameterized SQL, with mandatory soft-delete guards and an
// access-control injection point (spec §4.1).
package filter

// Direction is the closed set of ORDER BY directions.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderClause is one (column, direction) pair from the order list.
type OrderClause struct {
	Column    string
	Direction Direction
}

// Data is the structured input document a caller supplies to shape a
// read (spec §3, FilterData).
type Data struct {
	// Select is the projection list; nil or empty means "*".
	Select []string
	// Where is the predicate tree; nil means "no caller predicate".
	Where Node
	Order []OrderClause
	Limit *int
	Offset *int

	// IncludeTrashed and IncludeDeleted suppress the respective
	// soft-delete guard when true. Both default false.
	IncludeTrashed bool
	IncludeDeleted bool
}

// NodeKind distinguishes the two AST node shapes.
type NodeKind string

const (
	KindFieldCond    NodeKind = "field"
	KindLogicalGroup NodeKind = "group"
)

// Node is a predicate-tree element: either a FieldCond or a
// LogicalGroup (spec §3, Filter AST).
type Node interface {
	nodeKind() NodeKind
}

// FieldCond is a leaf predicate: column OP operand.
type FieldCond struct {
	Column  string
	Op      Operator
	Operand any
}

func (FieldCond) nodeKind() NodeKind { return KindFieldCond }

// GroupKind is the closed set of logical combinators.
type GroupKind string

const (
	GroupAnd  GroupKind = "$and"
	GroupOr   GroupKind = "$or"
	GroupNand GroupKind = "$nand"
	GroupNor  GroupKind = "$nor"
	GroupNot  GroupKind = "$not"
)

// LogicalGroup combines child nodes. GroupNot expects exactly one
// child; the others take an arbitrary non-empty slice, in document
// order (order is preserved verbatim in the emitted SQL — spec §4.1
// forbids reordering).
type LogicalGroup struct {
	Kind     GroupKind
	Children []Node
}

func (LogicalGroup) nodeKind() NodeKind { return KindLogicalGroup }

// Operator is the closed set of field-condition operators (spec §3).
type Operator string

const (
	OpEq     Operator = "$eq"
	OpNe     Operator = "$ne"
	OpNeq    Operator = "$neq"
	OpGt     Operator = "$gt"
	OpGte    Operator = "$gte"
	OpLt     Operator = "$lt"
	OpLte    Operator = "$lte"
	OpLike   Operator = "$like"
	OpNlike  Operator = "$nlike"
	OpIlike  Operator = "$ilike"
	OpNilike Operator = "$nilike"
	OpRegex  Operator = "$regex"
	OpNregex Operator = "$nregex"
	OpIn     Operator = "$in"
	OpNin    Operator = "$nin"
	OpAny    Operator = "$any"
	OpAll    Operator = "$all"
	OpNany   Operator = "$nany"
	OpNall   Operator = "$nall"
	OpSize   Operator = "$size"
	OpBetween Operator = "$between"
	OpFind   Operator = "$find"
	OpText   Operator = "$text"
	OpExists Operator = "$exists"
	OpNull   Operator = "$null"
)

func (op Operator) valid() bool {
	switch op {
	case OpEq, OpNe, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpNlike, OpIlike, OpNilike,
		OpRegex, OpNregex, OpIn, OpNin, OpAny, OpAll, OpNany, OpNall, OpSize, OpBetween,
		OpFind, OpText, OpExists, OpNull:
		return true
	default:
		return false
	}
}

// Result is a compiled SQL fragment: the statement (or subclause) text
// and its positional parameters, bound in order.
type Result struct {
	SQL    string
	Params []any
	// NextParamIndex is the first unused placeholder index, so callers
	// can splice this result into an outer query that already has
	// parameters.
	NextParamIndex int
}
