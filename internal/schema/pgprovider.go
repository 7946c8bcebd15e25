package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	pkgerrors "ringstore.io/platform/internal/pkg/errors"
)

// catalogTable is the system table PgProvider reads from:
// schema_catalog(tenant, name, definition jsonb, system_columns text[],
// array_columns text[], updated_at).
const catalogTable = "schema_catalog"

// catalogRow is the JSON shape stored in schema_catalog.definition: the
// payload-owned columns only. System columns are re-derived from
// schema.SystemColumns plus the array_columns list rather than
// duplicated in the JSON, so a catalog edit can't drift the two apart.
type catalogRow struct {
	Columns []catalogColumn `json:"columns"`
}

type catalogColumn struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// PgProvider resolves schema definitions from the schema_catalog table
// via a direct pool query — catalog reads never need a transaction, so
// this bypasses the StoreHandle contract the tenant data path uses.
type PgProvider struct {
	pool *pgxpool.Pool
}

// NewPgProvider wraps an already-opened pool.
func NewPgProvider(pool *pgxpool.Pool) *PgProvider {
	return &PgProvider{pool: pool}
}

// Resolve reads schemaName's catalog row and assembles its Definition:
// the declared payload columns plus the fixed SystemColumns set, with
// array-kind columns taken from the catalog's array_columns list.
func (p *PgProvider) Resolve(ctx context.Context, schemaName string) (Definition, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT name, definition, array_columns FROM `+catalogTable+` WHERE name = $1`,
		schemaName,
	)

	var (
		name         string
		definition   []byte
		arrayColumns []string
	)
	if err := row.Scan(&name, &definition, &arrayColumns); err != nil {
		return Definition{}, pkgerrors.NotFound(pkgerrors.CodeSchemaNotFound, fmt.Sprintf("schema %q is not registered in the catalog", schemaName))
	}

	var parsed catalogRow
	if err := json.Unmarshal(definition, &parsed); err != nil {
		return Definition{}, pkgerrors.System(pkgerrors.CodeMalformedSchema, fmt.Sprintf("malformed schema_catalog definition for %q", schemaName))
	}

	isArray := make(map[string]bool, len(arrayColumns))
	for _, c := range arrayColumns {
		isArray[c] = true
	}

	columns := make([]Column, 0, len(SystemColumns)+len(parsed.Columns))
	for _, sc := range SystemColumns {
		kind := KindScalar
		if isArray[sc] {
			kind = KindArray
		}
		columns = append(columns, Column{Name: sc, Kind: kind, System: true})
	}
	for _, c := range parsed.Columns {
		kind := KindScalar
		if isArray[c.Name] {
			kind = KindArray
		}
		columns = append(columns, Column{Name: c.Name, Kind: kind, Required: c.Required})
	}

	return Definition{Name: name, Table: name, Columns: columns}, nil
}
