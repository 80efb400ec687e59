package tools

import (
	"context"
	"fmt"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
)

// MaxListResults caps every list operation.
const MaxListResults = 10

// Layer exposes the object store as model-callable operations. No method
// returns a Go error; failures come back as Result.Err text.
type Layer struct {
	store ports.ObjectStore
	log   *logger.Logger
}

func NewLayer(store ports.ObjectStore, log *logger.Logger) *Layer {
	return &Layer{store: store, log: log}
}

func (l *Layer) ListKinds(ctx context.Context) Result {
	return ok(map[string]interface{}{"kinds": l.store.Kinds()})
}

func (l *Layer) DescribeKind(ctx context.Context, kind string) Result {
	if kind == "" {
		return failf("kind is required")
	}
	sch, err := l.store.Describe(kind)
	if err != nil {
		return fail(err)
	}
	return ok(sch)
}

func (l *Layer) ListRecords(ctx context.Context, kind string, filters map[string]interface{}) Result {
	if kind == "" {
		return failf("kind is required")
	}
	records, err := l.store.List(ctx, kind, filters, MaxListResults)
	if err != nil {
		l.log.Warnw("tool_list_records_failed", "kind", kind, "error", err)
		return fail(err)
	}
	if len(records) > MaxListResults {
		records = records[:MaxListResults]
	}
	if records == nil {
		records = []domain.Record{}
	}
	return ok(map[string]interface{}{
		"kind":    kind,
		"count":   len(records),
		"records": records,
	})
}

func (l *Layer) GetRecord(ctx context.Context, kind, id string) Result {
	if kind == "" {
		return failf("kind is required")
	}
	if id == "" {
		return failf("id is required")
	}
	record, err := l.store.Get(ctx, kind, id)
	if err != nil {
		return fail(err)
	}
	return ok(record)
}

func (l *Layer) CreateRecord(ctx context.Context, kind string, values map[string]interface{}) Result {
	if kind == "" {
		return failf("kind is required")
	}
	if len(values) == 0 {
		return failf("values are required")
	}
	record, err := l.store.Create(ctx, kind, values)
	if err != nil {
		l.log.Warnw("tool_create_record_failed", "kind", kind, "error", err)
		return fail(err)
	}
	l.log.Infow("tool_create_record_ok", "kind", kind, "id", record["id"])
	return ok(record)
}

func (l *Layer) UpdateRecord(ctx context.Context, kind, id string, values map[string]interface{}) Result {
	if kind == "" {
		return failf("kind is required")
	}
	if id == "" {
		return failf("id is required")
	}
	if len(values) == 0 {
		return failf("values are required")
	}
	record, err := l.store.Update(ctx, kind, id, values)
	if err != nil {
		l.log.Warnw("tool_update_record_failed", "kind", kind, "id", id, "error", err)
		return fail(err)
	}
	l.log.Infow("tool_update_record_ok", "kind", kind, "id", id)
	return ok(record)
}

func (l *Layer) DeleteRecord(ctx context.Context, kind, id string) Result {
	if kind == "" {
		return failf("kind is required")
	}
	if id == "" {
		return failf("id is required")
	}
	if err := l.store.Delete(ctx, kind, id); err != nil {
		l.log.Warnw("tool_delete_record_failed", "kind", kind, "id", id, "error", err)
		return fail(err)
	}
	l.log.Infow("tool_delete_record_ok", "kind", kind, "id", id)
	return ok(map[string]interface{}{
		"deleted": true,
		"message": fmt.Sprintf("%s %s deleted", kind, id),
	})
}
