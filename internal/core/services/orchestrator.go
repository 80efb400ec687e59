package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vetclinic/aiadmin/internal/core/agents"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
)

const SectionVerificationFeedback = "Verification Feedback"

// Stages are the five pipeline stages in their fixed order.
type Stages struct {
	Analysis    agents.PipelineStage
	Admin       agents.PipelineStage
	Control     agents.PipelineStage
	Description agents.PipelineStage
	Response    agents.PipelineStage
}

type OrchestratorConfig struct {
	Tasks   ports.TaskRepository
	Events  ports.TaskEventRepository
	Stages  Stages
	Metrics ports.PipelineMetrics
	Logger  *logger.Logger
	// ControlRetryLimit is how many extra Admin passes a Control retry may
	// trigger. Zero turns the first retry into a failure.
	ControlRetryLimit int
}

// stageDescriptor is one fixed step: the status the record carries while the
// stage runs and the signal that lets the run continue.
type stageDescriptor struct {
	stage   agents.PipelineStage
	entry   domain.TaskStatus
	advance agents.Signal
}

const (
	stepAnalysis = iota
	stepAdmin
	stepControl
	stepDescription
	stepResponse
)

type orchestrator struct {
	tasks      ports.TaskRepository
	events     ports.TaskEventRepository
	metrics    ports.PipelineMetrics
	logger     *logger.Logger
	retryLimit int
	pipeline   [5]stageDescriptor

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewOrchestrator(cfg OrchestratorConfig) ports.Orchestrator {
	return &orchestrator{
		tasks:      cfg.Tasks,
		events:     cfg.Events,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		retryLimit: cfg.ControlRetryLimit,
		pipeline: [5]stageDescriptor{
			stepAnalysis:    {stage: cfg.Stages.Analysis, entry: domain.TaskStatusAnalyzing, advance: agents.SignalProceed},
			stepAdmin:       {stage: cfg.Stages.Admin, entry: domain.TaskStatusExecuting, advance: agents.SignalExecuted},
			stepControl:     {stage: cfg.Stages.Control, entry: domain.TaskStatusVerifying, advance: agents.SignalVerified},
			stepDescription: {stage: cfg.Stages.Description, entry: domain.TaskStatusReporting, advance: agents.SignalReported},
			stepResponse:    {stage: cfg.Stages.Response, entry: domain.TaskStatusReporting, advance: agents.SignalResponded},
		},
		locks: make(map[uint]*sync.Mutex),
	}
}

// tryLockTask takes the in-process lock for one record without waiting.
func (o *orchestrator) tryLockTask(id uint) (func(), bool) {
	o.mu.Lock()
	m := o.locks[id]
	if m == nil {
		m = &sync.Mutex{}
		o.locks[id] = m
	}
	o.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return func() {
		o.mu.Lock()
		delete(o.locks, id)
		o.mu.Unlock()
		m.Unlock()
	}, true
}

// Run drives one pending record through the pipeline. Stage failures are
// recorded on the record and do not surface here; the returned error means
// the run could not start or could not be persisted.
func (o *orchestrator) Run(ctx context.Context, taskID uint) error {
	unlock, ok := o.tryLockTask(taskID)
	if !ok {
		o.logger.Warnw("orchestrator_run_rejected", "task_id", taskID, "reason", "already running")
		return domain.ErrTaskNotRunnable
	}
	defer unlock()

	task, err := o.tasks.GetByID(ctx, taskID)
	if err != nil {
		o.logger.Errorw("orchestrator_load_failed", "task_id", taskID, "error", err)
		return err
	}
	if task.Status != domain.TaskStatusPending {
		o.logger.Warnw("orchestrator_run_rejected", "task_id", taskID, "status", task.Status)
		return domain.ErrTaskNotRunnable
	}

	first := o.pipeline[stepAnalysis]
	claimed, err := o.tasks.Claim(ctx, taskID, first.entry, first.stage.Name())
	if err != nil {
		o.logger.Errorw("orchestrator_claim_failed", "task_id", taskID, "error", err)
		return err
	}
	if !claimed {
		return domain.ErrTaskNotRunnable
	}
	task.Status = first.entry
	task.CurrentAgent = first.stage.Name()
	held := first.entry

	// Writes after this point must land even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	o.logger.Infow("orchestrator_run_start", "task_id", taskID)

	retries := 0
	for step := stepAnalysis; step < len(o.pipeline); step++ {
		d := o.pipeline[step]
		if step != stepAnalysis {
			task.Status = d.entry
			task.CurrentAgent = d.stage.Name()
			if err := o.save(ctx, task, &held); err != nil {
				return err
			}
		}
		o.record(ctx, task, domain.EventTypeStageStart, d.stage.Name(), "", "")

		signal, stageErr := o.dispatch(ctx, d.stage, task)
		o.record(ctx, task, domain.EventTypeStageResult, d.stage.Name(), signal, errText(stageErr))

		switch {
		case stageErr == nil && signal == d.advance:
			if step == stepResponse {
				return o.finish(ctx, task, &held)
			}
			if err := o.save(ctx, task, &held); err != nil {
				return err
			}

		case step == stepAnalysis && stageErr == nil && signal == agents.SignalDialogOnly:
			if err := o.save(ctx, task, &held); err != nil {
				return err
			}
			return o.finish(ctx, task, &held)

		case step == stepControl && signal == agents.SignalRetry && retries < o.retryLimit:
			retries++
			task.AppendSection(SectionVerificationFeedback, feedback(stageErr))
			o.logger.Infow("orchestrator_control_retry", "task_id", taskID, "attempt", retries, "limit", o.retryLimit)
			step = stepAdmin - 1

		default:
			if stageErr == nil {
				stageErr = domain.NewStageError(d.stage.Name(), domain.KindValidation, fmt.Sprintf("unexpected signal %q", signal), nil)
			}
			return o.fail(ctx, task, &held, stageErr)
		}
	}
	return o.finish(ctx, task, &held)
}

// dispatch runs one stage, converting panics and contract violations into a
// StageError.
func (o *orchestrator) dispatch(ctx context.Context, stage agents.PipelineStage, task *domain.TaskRecord) (signal agents.Signal, err error) {
	start := time.Now()
	o.logger.Infow("orchestrator_stage_start", "task_id", task.ID, "stage", stage.Name())

	defer func() {
		if r := recover(); r != nil {
			signal = agents.SignalFailed
			err = domain.NewStageError(stage.Name(), domain.KindExternalCall, fmt.Sprintf("stage panicked: %v", r), nil)
		}
		var se *domain.StageError
		if err != nil && !errors.As(err, &se) {
			err = domain.NewStageError(stage.Name(), domain.KindExternalCall, "", err)
		}
		elapsed := time.Since(start)
		o.metrics.StageFinished(stage.Name(), string(signal), elapsed)
		o.logger.Infow("orchestrator_stage_done", "task_id", task.ID, "stage", stage.Name(), "signal", signal, "elapsed", elapsed, "error", errText(err))
	}()

	return stage.Run(ctx, task)
}

// save persists the record only while it still holds the status this run
// last wrote. Losing that race ends the run without further writes.
func (o *orchestrator) save(ctx context.Context, task *domain.TaskRecord, held *domain.TaskStatus) error {
	if err := o.tasks.Transition(ctx, task, *held); err != nil {
		if errors.Is(err, domain.ErrTaskMoved) {
			o.logger.Warnw("orchestrator_task_moved", "task_id", task.ID, "held", *held, "status", task.Status)
		} else {
			o.logger.Errorw("orchestrator_persist_failed", "task_id", task.ID, "status", task.Status, "error", err)
		}
		return fmt.Errorf("persist task %d: %w", task.ID, err)
	}
	*held = task.Status
	return nil
}

// fail is the single place a stage error becomes a persisted failure.
func (o *orchestrator) fail(ctx context.Context, task *domain.TaskRecord, held *domain.TaskStatus, cause error) error {
	task.Status = domain.TaskStatusFailed
	task.ErrorMessage = cause.Error()
	o.logger.Warnw("orchestrator_run_failed", "task_id", task.ID, "stage", task.CurrentAgent, "kind", domain.KindOf(cause), "error", cause)

	if err := o.save(ctx, task, held); err != nil {
		return err
	}
	o.record(ctx, task, domain.EventTypeTaskFailed, task.CurrentAgent, agents.SignalFailed, task.ErrorMessage)
	o.metrics.RunFinished(task.Status)
	return nil
}

func (o *orchestrator) finish(ctx context.Context, task *domain.TaskRecord, held *domain.TaskStatus) error {
	task.Status = domain.TaskStatusCompleted
	task.CurrentAgent = domain.AgentCompleted
	task.ErrorMessage = ""
	if err := o.save(ctx, task, held); err != nil {
		return err
	}
	o.record(ctx, task, domain.EventTypeTaskDone, "", "", "")
	o.metrics.RunFinished(task.Status)
	o.logger.Infow("orchestrator_run_completed", "task_id", task.ID)
	return nil
}

// record appends a timeline event. The event log is supplementary, so a
// failed write is logged and the run goes on.
func (o *orchestrator) record(ctx context.Context, task *domain.TaskRecord, eventType, stage string, signal agents.Signal, message string) {
	if o.events == nil {
		return
	}
	event := &domain.TaskEvent{
		TaskID:  task.ID,
		Type:    eventType,
		Stage:   stage,
		Status:  task.Status,
		Signal:  string(signal),
		Message: message,
	}
	if err := o.events.Create(ctx, event); err != nil {
		o.logger.Warnw("orchestrator_event_failed", "task_id", task.ID, "type", eventType, "error", err)
	}
}

func feedback(err error) string {
	var se *domain.StageError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return errText(err)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
