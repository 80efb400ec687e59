package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTaskService(h *harness, orch ports.Orchestrator) *TaskService {
	return NewTaskService(TaskServiceConfig{
		Tasks:        h.tasks,
		Reports:      h.reports,
		Events:       h.events,
		Orchestrator: orch,
		Logger:       h.log,
	})
}

func TestTaskService_SubmitRunsPipeline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.model.script(reply(`{"decision":"dialog_only","reasoning":"question","user_response":"We open at 9."}`))
	svc := newTaskService(h, h.orchestrator(0, h.stages()))

	task, err := svc.Submit(ctx, "  When do you open?  ")
	require.NoError(t, err)
	assert.Equal(t, "When do you open?", task.UserRequest)
	assert.Equal(t, domain.TaskStatusPending, task.Status)

	svc.Wait()

	got, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, "We open at 9.", got.ResultSummary)

	events, err := svc.GetEvents(ctx, task.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestTaskService_SubmitValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newTaskService(h, h.orchestrator(0, h.stages()))

	_, err := svc.Submit(ctx, "   ")
	assert.ErrorIs(t, err, ErrRequestEmpty)

	_, err = svc.Submit(ctx, strings.Repeat("я", MaxRequestLength+1))
	assert.ErrorIs(t, err, ErrRequestTooLong)

	task, err := svc.Create(ctx, strings.Repeat("я", MaxRequestLength))
	require.NoError(t, err)
	assert.NotZero(t, task.ID)

	tasks, err := svc.ListTasks(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskService_ListTasksSnippets(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newTaskService(h, nil)

	_, err := svc.Create(ctx, "short request")
	require.NoError(t, err)
	_, err = svc.Create(ctx, strings.Repeat("a", 60))
	require.NoError(t, err)

	tasks, err := svc.ListTasks(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, strings.Repeat("a", 50)+"...", tasks[0].UserRequestSnippet)
	assert.Equal(t, "short request", tasks[1].UserRequestSnippet)
	assert.Equal(t, domain.TaskStatusPending, tasks[1].Status)

	page, err := svc.ListTasks(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, tasks[1].ID, page[0].ID)
}

func TestTaskService_ChatHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newTaskService(h, nil)

	first, err := svc.Create(ctx, "hello")
	require.NoError(t, err)
	first.Status = domain.TaskStatusCompleted
	first.ResultSummary = "hi"
	require.NoError(t, h.tasks.Update(ctx, first))

	second, err := svc.Create(ctx, "delete everything")
	require.NoError(t, err)
	second.Status = domain.TaskStatusFailed
	second.ErrorMessage = "AnalysisAgent: unknown decision"
	require.NoError(t, h.tasks.Update(ctx, second))

	_, err = svc.Create(ctx, "still waiting")
	require.NoError(t, err)

	history, err := svc.ChatHistory(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []ports.Message{
		{Role: ports.RoleUser, Content: "hello"},
		{Role: ports.RoleAssistant, Content: "hi"},
		{Role: ports.RoleUser, Content: "delete everything"},
		{Role: ports.RoleAssistant, Content: "Error: AnalysisAgent: unknown decision"},
		{Role: ports.RoleUser, Content: "still waiting"},
	}, history)
}

func TestTaskService_Details(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newTaskService(h, nil)

	task, err := svc.Create(ctx, "publish news")
	require.NoError(t, err)

	details, err := svc.GetTaskDetails(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, details.ReportSlug)
	assert.Equal(t, "publish news", details.UserRequest)

	require.NoError(t, h.reports.Create(ctx, &domain.Report{TaskID: task.ID, Slug: "task-1-x", Content: "<p/>"}))

	details, err = svc.GetTaskDetails(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, details.ReportSlug)
	assert.Equal(t, "task-1-x", *details.ReportSlug)

	report, err := svc.GetReport(ctx, "task-1-x")
	require.NoError(t, err)
	assert.Equal(t, "<p/>", report.Content)

	_, err = svc.GetTaskDetails(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = svc.GetEvents(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	_, err = svc.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestTaskService_FailInterrupted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	svc := newTaskService(h, nil)

	pending, err := svc.Create(ctx, "waiting")
	require.NoError(t, err)

	stuck, err := svc.Create(ctx, "stuck")
	require.NoError(t, err)
	claimed, err := h.tasks.Claim(ctx, stuck.ID, domain.TaskStatusExecuting, domain.AgentAdmin)
	require.NoError(t, err)
	require.True(t, claimed)

	n, err := svc.FailInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.GetTask(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "interrupted")
	assert.Contains(t, got.ErrorMessage, domain.AgentAdmin)

	events, err := svc.GetEvents(ctx, stuck.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeTaskFailed, events[0].Type)

	got, err = svc.GetTask(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
}

type brokenEvents struct {
	ports.TaskEventRepository
}

func (brokenEvents) Create(context.Context, *domain.TaskEvent) error {
	return errors.New("disk full")
}

func TestTaskService_FailInterruptedLogsEventFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewTaskService(TaskServiceConfig{
		Tasks:   h.tasks,
		Reports: h.reports,
		Events:  brokenEvents{},
		Logger:  logger.Wrap(zap.New(core)),
	})

	stuck, err := svc.Create(ctx, "stuck")
	require.NoError(t, err)
	claimed, err := h.tasks.Claim(ctx, stuck.ID, domain.TaskStatusVerifying, domain.AgentControl)
	require.NoError(t, err)
	require.True(t, claimed)

	n, err := svc.FailInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	failures := logs.FilterMessage("task_service_event_failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "disk full", failures[0].ContextMap()["error"])
}
