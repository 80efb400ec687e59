package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/db"
	"github.com/vetclinic/aiadmin/internal/infrastructure/db/dbtest"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"go.uber.org/zap/zaptest"
)

func TestTaskRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := db.NewTaskRepository(dbtest.New(t), logger.Wrap(zaptest.NewLogger(t)))

	task := &domain.TaskRecord{UserRequest: "Add a news item"}
	require.NoError(t, repo.Create(ctx, task))
	require.NotZero(t, task.ID)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.Equal(t, "Add a news item", got.UserRequest)

	_, err = repo.GetByID(ctx, task.ID+100)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskRepository_UpdateClearsFields(t *testing.T) {
	ctx := context.Background()
	repo := db.NewTaskRepository(dbtest.New(t), logger.Wrap(zaptest.NewLogger(t)))

	task := &domain.TaskRecord{UserRequest: "x", ResultSummary: "old", ErrorMessage: "boom"}
	require.NoError(t, repo.Create(ctx, task))

	task.Status = domain.TaskStatusExecuting
	task.CurrentAgent = domain.AgentAdmin
	task.ResultSummary = ""
	task.ErrorMessage = ""
	require.NoError(t, repo.Update(ctx, task))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusExecuting, got.Status)
	assert.Equal(t, domain.AgentAdmin, got.CurrentAgent)
	assert.Empty(t, got.ResultSummary)
	assert.Empty(t, got.ErrorMessage)

	missing := &domain.TaskRecord{ID: 999, Status: domain.TaskStatusFailed}
	assert.ErrorIs(t, repo.Update(ctx, missing), domain.ErrTaskNotFound)
}

func TestTaskRepository_Claim(t *testing.T) {
	ctx := context.Background()
	repo := db.NewTaskRepository(dbtest.New(t), logger.Wrap(zaptest.NewLogger(t)))

	task := &domain.TaskRecord{UserRequest: "x"}
	require.NoError(t, repo.Create(ctx, task))

	ok, err := repo.Claim(ctx, task.ID, domain.TaskStatusAnalyzing, domain.AgentAnalysis)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Claim(ctx, task.ID, domain.TaskStatusAnalyzing, domain.AgentAnalysis)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusAnalyzing, got.Status)
	assert.Equal(t, domain.AgentAnalysis, got.CurrentAgent)

	_, err = repo.Claim(ctx, 4242, domain.TaskStatusAnalyzing, domain.AgentAnalysis)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskRepository_TransitionKeepsFailedTerminal(t *testing.T) {
	ctx := context.Background()
	repo := db.NewTaskRepository(dbtest.New(t), logger.Wrap(zaptest.NewLogger(t)))

	task := &domain.TaskRecord{UserRequest: "x", Status: domain.TaskStatusExecuting, CurrentAgent: domain.AgentAdmin}
	require.NoError(t, repo.Create(ctx, task))

	sweep := *task
	sweep.Status = domain.TaskStatusFailed
	sweep.ErrorMessage = "interrupted"
	require.NoError(t, repo.Transition(ctx, &sweep, domain.TaskStatusExecuting))

	task.Status = domain.TaskStatusVerifying
	task.CurrentAgent = domain.AgentControl
	assert.ErrorIs(t, repo.Transition(ctx, task, domain.TaskStatusExecuting), domain.ErrTaskMoved)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, "interrupted", got.ErrorMessage)

	missing := &domain.TaskRecord{ID: 999, Status: domain.TaskStatusFailed}
	assert.ErrorIs(t, repo.Transition(ctx, missing, domain.TaskStatusExecuting), domain.ErrTaskNotFound)
}

func TestTaskRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := db.NewTaskRepository(dbtest.New(t), logger.Wrap(zaptest.NewLogger(t)))

	for _, req := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &domain.TaskRecord{UserRequest: req}))
	}

	tasks, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "third", tasks[0].UserRequest)
	assert.Equal(t, "second", tasks[1].UserRequest)

	tasks, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "first", tasks[0].UserRequest)
}

func TestReportRepository(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	log := logger.Wrap(zaptest.NewLogger(t))
	tasks := db.NewTaskRepository(gdb, log)
	reports := db.NewReportRepository(gdb, log)

	task := &domain.TaskRecord{UserRequest: "x"}
	require.NoError(t, tasks.Create(ctx, task))

	report := &domain.Report{TaskID: task.ID, Slug: "task-1-abc", Content: "<h1>ok</h1>"}
	require.NoError(t, reports.Create(ctx, report))

	got, err := reports.GetBySlug(ctx, "task-1-abc")
	require.NoError(t, err)
	assert.Equal(t, "<h1>ok</h1>", got.Content)

	got, err = reports.GetByTaskID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "task-1-abc", got.Slug)

	_, err = reports.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)

	dup := &domain.Report{TaskID: task.ID, Slug: "task-1-other", Content: "again"}
	assert.Error(t, reports.Create(ctx, dup), "one report per task")
}

func TestTaskEventRepository_OrderedByTask(t *testing.T) {
	ctx := context.Background()
	repo := db.NewTaskEventRepository(dbtest.New(t), logger.Wrap(zaptest.NewLogger(t)))

	require.NoError(t, repo.Create(ctx, &domain.TaskEvent{TaskID: 1, Type: domain.EventTypeStageStart, Stage: domain.AgentAnalysis}))
	require.NoError(t, repo.Create(ctx, &domain.TaskEvent{TaskID: 2, Type: domain.EventTypeStageStart, Stage: domain.AgentAnalysis}))
	require.NoError(t, repo.Create(ctx, &domain.TaskEvent{TaskID: 1, Type: domain.EventTypeStageResult, Stage: domain.AgentAnalysis, Signal: "proceed"}))

	events, err := repo.GetByTask(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventTypeStageStart, events[0].Type)
	assert.Equal(t, "proceed", events[1].Signal)
}

func TestSystemSettingRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := db.NewSystemSettingRepository(dbtest.New(t), logger.Wrap(zaptest.NewLogger(t)))

	got, err := repo.Get(ctx, "prompt.admin.system")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Set(ctx, &domain.SystemSetting{Key: "prompt.admin.system", Value: "v1", Type: "string", Category: "prompts"}))
	require.NoError(t, repo.Set(ctx, &domain.SystemSetting{Key: "prompt.admin.system", Value: "v2", Type: "string", Category: "prompts"}))

	got, err = repo.Get(ctx, "prompt.admin.system")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v2", got.Value)

	all, err := repo.GetByCategory(ctx, "prompts")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, "prompt.admin.system"))
	got, err = repo.Get(ctx, "prompt.admin.system")
	require.NoError(t, err)
	assert.Nil(t, got)
}
