// Package audit writes append-only records of pipeline activity: one
// row per observed record per async dispatch, through the same
// store.Handle contract the rest of the pipeline uses.
//
// Audit rows are append-only; nothing in this package ever updates or
// deletes one.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ringstore.io/platform/internal/clock"
	"ringstore.io/platform/internal/filter"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/pkg/logger"
	"ringstore.io/platform/internal/store"
)

// Table is the system table audit rows are appended to:
// pipeline_audit(id, schema, operation, record_id, ring, observer,
// detail jsonb, created_at). Reached through store.Handle like any
// other table — no direct driver access from observers.
const Table = "pipeline_audit"

// Logger writes audit rows through a tenant store.Handle.
type Logger struct {
	compiler *filter.Compiler
	clock    clock.Clock
}

// NewLogger builds an audit Logger stamping rows with clk.
func NewLogger(clk clock.Clock) *Logger {
	return &Logger{compiler: filter.NewCompiler(), clock: clk}
}

// LogRingDispatch appends one audit row for a single record an async
// ring observed. detail is marshaled to JSON text.
func (l *Logger) LogRingDispatch(ctx context.Context, h store.Handle, schemaName, op, recordID, ringName, observerName string, detail map[string]any) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	fields := map[string]any{
		"id":         generateAuditID(),
		"schema":     schemaName,
		"operation":  op,
		"record_id":  recordID,
		"ring":       ringName,
		"observer":   observerName,
		"detail":     string(detailJSON),
		"created_at": l.clock.Now().UTC(),
	}
	result, err := l.compiler.CompileInsertPlan(Table, fields, 1)
	if err != nil {
		return fmt.Errorf("compile audit insert: %w", err)
	}

	if _, err := h.Execute(ctx, result.SQL, result.Params); err != nil {
		logger.Error("failed to write audit row",
			zap.String("schema", schemaName),
			zap.String("operation", op),
			zap.String("record_id", recordID),
			zap.Error(err),
		)
		return pkgerrors.Store(pkgerrors.CodeStoreFailure, "could not write audit row", err)
	}
	return nil
}

func generateAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return fmt.Sprintf("audit-%s", id.String())
}
