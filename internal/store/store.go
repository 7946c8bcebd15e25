// Package store defines the narrow transactional contract the
// pipeline needs from a tenant's database, and a pgx-backed
// implementation of it (spec §6, StoreHandle).
package store

import "context"

// Row is a single result row as a field-name to value mapping. The
// pipeline treats column names as opaque strings (spec §6) except for
// the small set of system columns it names directly.
type Row map[string]any

// Handle is a scoped transaction (or, for read-only work, a pooled
// connection) on a tenant store. Ring 0's preload and ring 5's write
// MUST be issued on the same Handle for a mutating call, so they
// observe a consistent transactional view (spec §5).
type Handle interface {
	// Execute runs a data-modifying statement and returns the number
	// of rows affected.
	Execute(ctx context.Context, sql string, params []any) (rowsAffected int64, err error)
	// ExecuteReturning runs a data-modifying statement that returns
	// rows (e.g. INSERT ... RETURNING *), used by SqlExecutor so ring 5
	// can materialize the post-write record in one round trip.
	ExecuteReturning(ctx context.Context, sql string, params []any) ([]Row, error)
	// Query runs a read-only statement and returns its result rows.
	Query(ctx context.Context, sql string, params []any) ([]Row, error)
	// Commit finalizes the transaction. Only meaningful for a
	// transactional Handle opened via a TenantStore's Begin.
	Commit(ctx context.Context) error
	// Rollback aborts the transaction.
	Rollback(ctx context.Context) error
}

// TenantStore opens scoped Handles against one tenant's database. The
// pipeline invocation owns the Handle for its duration; observers only
// borrow it (spec §5).
type TenantStore interface {
	// Begin opens a new write transaction. Ring 0's preload and ring
	// 5's write share this Handle.
	Begin(ctx context.Context) (Handle, error)
	// ReadOnly opens a pooled, non-transactional Handle suitable for a
	// Select invocation, which never needs to roll back.
	ReadOnly(ctx context.Context) (Handle, error)
}
