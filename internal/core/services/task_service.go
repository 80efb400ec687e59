package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
)

const (
	MaxRequestLength = 2000
	snippetLength    = 50
	defaultPageSize  = 10
	maxPageSize      = 100
)

type TaskServiceConfig struct {
	Tasks        ports.TaskRepository
	Reports      ports.ReportRepository
	Events       ports.TaskEventRepository
	Orchestrator ports.Orchestrator
	Logger       *logger.Logger
}

// TaskService accepts requests and answers queries about them. Pipeline runs
// started by Submit are tracked so shutdown can wait for them.
type TaskService struct {
	tasks        ports.TaskRepository
	reports      ports.ReportRepository
	events       ports.TaskEventRepository
	orchestrator ports.Orchestrator
	logger       *logger.Logger
	wg           sync.WaitGroup
}

var _ ports.TaskService = (*TaskService)(nil)

func NewTaskService(cfg TaskServiceConfig) *TaskService {
	return &TaskService{
		tasks:        cfg.Tasks,
		reports:      cfg.Reports,
		events:       cfg.Events,
		orchestrator: cfg.Orchestrator,
		logger:       cfg.Logger,
	}
}

// ==================== Submission ====================

// Submit stores a pending record and starts its pipeline in the background.
func (s *TaskService) Submit(ctx context.Context, userRequest string) (*domain.TaskRecord, error) {
	task, err := s.Create(ctx, userRequest)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func(id uint) {
		defer s.wg.Done()
		if err := s.orchestrator.Run(context.Background(), id); err != nil {
			s.logger.Errorw("task_service_run_failed", "task_id", id, "error", err)
		}
	}(task.ID)

	return task, nil
}

// Create stores a pending record without running it.
func (s *TaskService) Create(ctx context.Context, userRequest string) (*domain.TaskRecord, error) {
	userRequest = strings.TrimSpace(userRequest)
	if userRequest == "" {
		return nil, ErrRequestEmpty
	}
	if utf8.RuneCountInString(userRequest) > MaxRequestLength {
		return nil, fmt.Errorf("%w: limit is %d characters", ErrRequestTooLong, MaxRequestLength)
	}

	task := &domain.TaskRecord{
		UserRequest: userRequest,
		Status:      domain.TaskStatusPending,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Infow("task_service_submitted", "task_id", task.ID)
	return task, nil
}

// Wait blocks until every run started by Submit has returned.
func (s *TaskService) Wait() {
	s.wg.Wait()
}

// ==================== Queries ====================

func (s *TaskService) GetTask(ctx context.Context, id uint) (*domain.TaskRecord, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *TaskService) GetTaskDetails(ctx context.Context, id uint) (*ports.TaskDetails, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &ports.TaskDetails{
		ID:            task.ID,
		CreatedAt:     task.CreatedAt.Format(time.RFC3339),
		Status:        task.Status,
		UserRequest:   task.UserRequest,
		ResultSummary: task.ResultSummary,
		ErrorMessage:  task.ErrorMessage,
		CurrentAgent:  task.CurrentAgent,
	}

	report, err := s.reports.GetByTaskID(ctx, id)
	switch {
	case err == nil:
		details.ReportSlug = &report.Slug
	case !errors.Is(err, domain.ErrReportNotFound):
		return nil, err
	}
	return details, nil
}

func (s *TaskService) ListTasks(ctx context.Context, limit, offset int) ([]ports.TaskSummary, error) {
	tasks, err := s.tasks.List(ctx, pageSize(limit), max(offset, 0))
	if err != nil {
		return nil, err
	}

	out := make([]ports.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ports.TaskSummary{
			ID:                 t.ID,
			CreatedAt:          t.CreatedAt.Format(time.RFC3339),
			Status:             t.Status,
			UserRequestSnippet: snippet(t.UserRequest),
		})
	}
	return out, nil
}

// ChatHistory replays recent tasks as a conversation, oldest first.
func (s *TaskService) ChatHistory(ctx context.Context, limit, offset int) ([]ports.Message, error) {
	tasks, err := s.tasks.List(ctx, pageSize(limit), max(offset, 0))
	if err != nil {
		return nil, err
	}

	history := make([]ports.Message, 0, len(tasks)*2)
	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		history = append(history, ports.Message{Role: ports.RoleUser, Content: t.UserRequest})
		switch {
		case t.ResultSummary != "":
			history = append(history, ports.Message{Role: ports.RoleAssistant, Content: t.ResultSummary})
		case t.ErrorMessage != "":
			history = append(history, ports.Message{Role: ports.RoleAssistant, Content: "Error: " + t.ErrorMessage})
		}
	}
	return history, nil
}

func (s *TaskService) GetEvents(ctx context.Context, id uint) ([]domain.TaskEvent, error) {
	if _, err := s.tasks.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.events.GetByTask(ctx, id)
}

func (s *TaskService) GetReport(ctx context.Context, slug string) (*domain.Report, error) {
	return s.reports.GetBySlug(ctx, slug)
}

// ==================== Recovery ====================

// FailInterrupted marks records a crashed process left mid-pipeline as
// failed. Pending records are left alone so they can still be run. A run
// still alive elsewhere loses its next write and stops, so failed stays
// terminal.
func (s *TaskService) FailInterrupted(ctx context.Context) (int, error) {
	stuck, err := s.tasks.ListByStatus(ctx,
		domain.TaskStatusAnalyzing,
		domain.TaskStatusExecuting,
		domain.TaskStatusDialogOnly,
		domain.TaskStatusVerifying,
		domain.TaskStatusReporting,
	)
	if err != nil {
		return 0, err
	}

	failed := 0
	for i := range stuck {
		t := &stuck[i]
		from := t.Status
		t.ErrorMessage = fmt.Sprintf("interrupted: process stopped while %s held the task in status %s", t.CurrentAgent, t.Status)
		t.Status = domain.TaskStatusFailed
		if err := s.tasks.Transition(ctx, t, from); err != nil {
			if errors.Is(err, domain.ErrTaskMoved) || errors.Is(err, domain.ErrTaskNotFound) {
				continue
			}
			return failed, err
		}
		failed++
		if s.events != nil {
			if err := s.events.Create(ctx, &domain.TaskEvent{
				TaskID:  t.ID,
				Type:    domain.EventTypeTaskFailed,
				Stage:   t.CurrentAgent,
				Status:  t.Status,
				Signal:  "failed",
				Message: t.ErrorMessage,
			}); err != nil {
				s.logger.Warnw("task_service_event_failed", "task_id", t.ID, "type", domain.EventTypeTaskFailed, "error", err)
			}
		}
		s.logger.Warnw("task_service_interrupted_failed", "task_id", t.ID, "agent", t.CurrentAgent)
	}
	return failed, nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return min(limit, maxPageSize)
}

func snippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetLength {
		return s
	}
	return string([]rune(s)[:snippetLength]) + "..."
}
