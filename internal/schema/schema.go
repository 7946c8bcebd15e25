// Package schema defines the narrow contract the pipeline uses to
// resolve a tenant schema name to its column metadata. DDL generation
// and per-tenant provisioning live outside the core (spec §1).
package schema

import "context"

// ColumnKind distinguishes columns the Filter Compiler and built-in
// observers must treat specially.
type ColumnKind string

const (
	KindScalar ColumnKind = "scalar"
	KindArray  ColumnKind = "array"
)

// Column describes one column of a resolved schema.
type Column struct {
	Name     string
	Kind     ColumnKind
	System   bool // id, timestamps, ACL arrays — excluded from payload validation
	Required bool
}

// SystemColumns is the fixed set of columns the pipeline treats as
// opaque infrastructure rather than caller-owned payload fields (spec
// §6).
var SystemColumns = []string{
	"id", "created_at", "updated_at", "trashed_at", "deleted_at",
	"access_read", "access_edit", "access_full", "access_deny",
}

// Definition is a resolved schema: its table name and column
// metadata, partitioned for quick lookup by the Filter Compiler and
// SchemaValidator observer.
type Definition struct {
	Name    string
	Table   string
	Columns []Column
}

// Column returns the column metadata for name, if declared.
func (d Definition) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsArrayColumn reports whether name is declared as an array column
// (needed by the Filter Compiler's $any/$all/$size operators).
func (d Definition) IsArrayColumn(name string) bool {
	c, ok := d.Column(name)
	return ok && c.Kind == KindArray
}

// PayloadColumns returns every non-system column — the set a Create
// payload or an Update diff may legally touch.
func (d Definition) PayloadColumns() []Column {
	out := make([]Column, 0, len(d.Columns))
	for _, c := range d.Columns {
		if !c.System {
			out = append(out, c)
		}
	}
	return out
}

// Provider resolves a schema name to its validated Definition. It is
// consumed, not implemented, by the pipeline core; the concrete
// implementation backs it with the schema_catalog system table.
type Provider interface {
	Resolve(ctx context.Context, schemaName string) (Definition, error)
}
