package async

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	"ringstore.io/platform/internal/pkg/logger"
	"ringstore.io/platform/internal/record"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/schema"
)

// recordPayload is the serializable projection of a StatefulRecord a
// River job carries. The typed metadata bag never crosses this
// boundary: Bag values are arbitrary Go types keyed by reflect.Type,
// which do not survive a JSON round trip, so a River-dispatched async
// observer only sees record state and Metadata, never bag contents a
// sync-ring observer may have stashed.
type recordPayload struct {
	ID       string            `json:"id"`
	Original map[string]any    `json:"original"`
	Modified map[string]any    `json:"modified"`
	State    operation.RecordState `json:"state"`
	Metadata record.Metadata   `json:"metadata"`
}

// RingJobArgs is the River job payload for one async-ring dispatch.
type RingJobArgs struct {
	Ring          ring.Ring             `json:"ring"`
	Operation     operation.Operation   `json:"operation"`
	SchemaName    string                `json:"schema_name"`
	SchemaTable   string                `json:"schema_table"`
	Records       []recordPayload       `json:"records"`
	PipelineStart time.Time             `json:"pipeline_start"`
}

// Kind returns the River job kind, fixed regardless of which ring the
// args carry: a single worker type dispatches into whichever ring's
// observers are registered, keyed by the Ring field.
func (RingJobArgs) Kind() string { return "pipeline_async_ring" }

// RiverExecutor enqueues one job per Dispatch call onto the configured
// queue, giving rings 7-9 durability across a process restart. A
// RingWorker, registered against the same river.Client, re-dispatches
// the job into the observer registry it was built with.
type RiverExecutor struct {
	client *river.Client[pgx.Tx]
	queue  string
}

// NewRiverExecutor wraps an initialized river.Client.
func NewRiverExecutor(client *river.Client[pgx.Tx], queue string) *RiverExecutor {
	return &RiverExecutor{client: client, queue: queue}
}

func (e *RiverExecutor) Dispatch(ctx context.Context, r ring.Ring, observers []observer.AsyncObserver, snap observer.Snapshot) error {
	if len(observers) == 0 {
		return nil
	}
	payloads := make([]recordPayload, len(snap.Records))
	for i := range snap.Records {
		rec := &snap.Records[i]
		id, _ := rec.ID()
		payloads[i] = recordPayload{
			ID:       id,
			Original: rec.OriginalSnapshot(),
			Modified: rec.ModifiedSnapshot(),
			State:    rec.State(),
			Metadata: rec.Metadata,
		}
	}

	args := RingJobArgs{
		Ring:          r,
		Operation:     snap.Operation,
		SchemaName:    snap.Schema.Name,
		SchemaTable:   snap.Schema.Table,
		Records:       payloads,
		PipelineStart: snap.PipelineStart,
	}

	_, err := e.client.Insert(ctx, args, &river.InsertOpts{Queue: e.queue})
	if err != nil {
		logger.Error("failed to enqueue async ring job",
			zap.String("ring", r.String()), zap.Error(err))
		return fmt.Errorf("enqueue async ring job: %w", err)
	}
	return nil
}

// RingWorker executes a RingJobArgs job by replaying it against a
// fixed registry/ring pair it was constructed for. One RingWorker
// instance is registered per async ring on the river.Client's Workers
// set.
type RingWorker struct {
	river.WorkerDefaults[RingJobArgs]
	targetRing ring.Ring
	observers  []observer.AsyncObserver
	schemas    schema.Provider
}

// NewRingWorker builds a worker bound to one ring's frozen observer list.
func NewRingWorker(targetRing ring.Ring, observers []observer.AsyncObserver, schemas schema.Provider) *RingWorker {
	return &RingWorker{targetRing: targetRing, observers: observers, schemas: schemas}
}

func (w *RingWorker) Work(ctx context.Context, job *river.Job[RingJobArgs]) error {
	args := job.Args
	if args.Ring != w.targetRing {
		return nil // stale job from a prior registry generation; not an error
	}

	schemaDef, err := w.schemas.Resolve(ctx, args.SchemaName)
	if err != nil {
		return fmt.Errorf("resolve schema %q: %w", args.SchemaName, err)
	}

	records := make([]record.StatefulRecord, len(args.Records))
	for i, p := range args.Records {
		rec := record.FromRow(p.Modified, args.PipelineStart)
		rec.SeedOriginal(p.Original)
		rec.SetState(p.State)
		if p.ID != "" {
			rec.SetID(p.ID)
		}
		rec.Metadata = p.Metadata
		records[i] = *rec
	}

	snap := observer.NewSnapshot(
		args.Operation,
		schema.Definition{Name: args.SchemaName, Table: args.SchemaTable, Columns: schemaDef.Columns},
		records,
		args.PipelineStart,
	)

	for _, obs := range w.observers {
		runCtx, cancel := context.WithTimeout(ctx, obs.Timeout())
		err := obs.RunAsync(runCtx, snap)
		cancel()
		if err != nil {
			logger.Warn("async ring worker observer failed",
				zap.String("ring", w.targetRing.String()),
				zap.String("observer", obs.Name()),
				zap.Error(err),
			)
		}
	}
	return nil
}
