package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgerrors "ringstore.io/platform/internal/pkg/errors"
)

// PgTenantStore is the pgx-backed TenantStore over one pool.
// cmd/server wires a single instance over the shared pool from
// infrastructure.NewDatabaseClients.
type PgTenantStore struct {
	pool *pgxpool.Pool
}

// NewPgTenantStore wraps an already-opened pool. Pool lifecycle
// (creation, AfterConnect timezone pinning, Ping) is the caller's
// responsibility; see infrastructure.NewDatabaseClients.
func NewPgTenantStore(pool *pgxpool.Pool) *PgTenantStore {
	return &PgTenantStore{pool: pool}
}

// Begin opens a READ COMMITTED write transaction. Ring 0's preload and
// ring 5's write share the returned Handle, so both run inside that one
// transaction (spec §5); each statement sees the rows committed before
// it started.
func (s *PgTenantStore) Begin(ctx context.Context) (Handle, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, pkgerrors.Store(pkgerrors.CodeStoreFailure, "could not open a transaction", err)
	}
	return &pgHandle{tx: tx}, nil
}

// ReadOnly opens a pooled, non-transactional Handle for Select
// invocations, which never need to roll back.
func (s *PgTenantStore) ReadOnly(ctx context.Context) (Handle, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Store(pkgerrors.CodeStoreFailure, "could not acquire a connection", err)
	}
	return &pgHandle{conn: conn}, nil
}

type pgHandle struct {
	tx   pgx.Tx
	conn *pgxpool.Conn
}

// pgxQuerier is the subset of pgx.Tx and *pgxpool.Conn this handle
// needs; both satisfy it with identical signatures.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (h *pgHandle) querier() pgxQuerier {
	if h.tx != nil {
		return h.tx
	}
	return h.conn
}

func (h *pgHandle) Execute(ctx context.Context, sql string, params []any) (int64, error) {
	tag, err := h.querier().Exec(ctx, sql, params...)
	if err != nil {
		return 0, pkgerrors.Store(pkgerrors.CodeStoreFailure, "write failed", err)
	}
	return tag.RowsAffected(), nil
}

func (h *pgHandle) ExecuteReturning(ctx context.Context, sql string, params []any) ([]Row, error) {
	rows, err := h.querier().Query(ctx, sql, params...)
	if err != nil {
		return nil, pkgerrors.Store(pkgerrors.CodeStoreFailure, "write failed", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (h *pgHandle) Query(ctx context.Context, sql string, params []any) ([]Row, error) {
	rows, err := h.querier().Query(ctx, sql, params...)
	if err != nil {
		return nil, pkgerrors.Store(pkgerrors.CodeStoreFailure, "read failed", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (h *pgHandle) Commit(ctx context.Context) error {
	if h.tx == nil {
		// read-only handles have nothing to commit; return the connection
		if h.conn != nil {
			h.conn.Release()
		}
		return nil
	}
	if err := h.tx.Commit(ctx); err != nil {
		return pkgerrors.Store(pkgerrors.CodeStoreFailure, "commit failed", err)
	}
	return nil
}

func (h *pgHandle) Rollback(ctx context.Context) error {
	if h.tx != nil {
		if err := h.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return pkgerrors.Store(pkgerrors.CodeStoreFailure, "rollback failed", err)
		}
		return nil
	}
	if h.conn != nil {
		h.conn.Release()
	}
	return nil
}

// scanRows builds generic field-name to value rows. Column names are
// opaque to the pipeline (spec §6) so there is no fixed destination
// struct to scan into.
func scanRows(rows pgx.Rows) ([]Row, error) {
	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, pkgerrors.Store(pkgerrors.CodeStoreFailure, "could not read row", err)
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Store(pkgerrors.CodeStoreFailure, "row iteration failed", err)
	}
	return out, nil
}
