package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
)

// Description writes the task's markup report.
type Description struct {
	deps      Deps
	reports   ports.ReportRepository
	publisher ports.ReportPublisher
	now       func() time.Time
}

// NewDescription builds the stage. publisher may be nil.
func NewDescription(deps Deps, reports ports.ReportRepository, publisher ports.ReportPublisher) *Description {
	return &Description{deps: deps, reports: reports, publisher: publisher, now: time.Now}
}

func (d *Description) Name() string { return domain.AgentDescription }

func (d *Description) Run(ctx context.Context, task *domain.TaskRecord) (Signal, error) {
	text, err := d.deps.ask(ctx, d.Name(), PromptKeyDescription, nil, reviewContext(task))
	if err != nil {
		return SignalFailed, err
	}

	content := strings.TrimSpace(text)
	if body, found := fencedBlock(content, "html"); found && strings.HasPrefix(content, "```") {
		content = body
	}
	if content == "" {
		return failed(d.Name(), domain.KindValidation, "empty report", nil)
	}

	report := &domain.Report{
		TaskID:  task.ID,
		Slug:    ReportSlug(task.ID, d.now()),
		Content: content,
	}
	if err := d.reports.Create(ctx, report); err != nil {
		return failed(d.Name(), domain.KindExternalCall, "save report", err)
	}

	if d.publisher != nil {
		url, err := d.publisher.Publish(ctx, report)
		if err != nil {
			d.deps.Log.Warnw("description_publish_failed", "task_id", task.ID, "slug", report.Slug, "error", err)
		} else {
			d.deps.Log.Infow("description_publish_ok", "task_id", task.ID, "slug", report.Slug, "url", url)
		}
	}
	return SignalReported, nil
}

// ReportSlug derives a unique slug from the task id and creation instant.
func ReportSlug(taskID uint, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("task-%d-%s-%s", taskID, at.UTC().Format("20060102-150405"), suffix)
}
