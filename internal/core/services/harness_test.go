package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/vetclinic/aiadmin/internal/core/agents"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/core/tools"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/db"
	"github.com/vetclinic/aiadmin/internal/infrastructure/db/dbtest"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"github.com/vetclinic/aiadmin/internal/infrastructure/metrics"
	"github.com/vetclinic/aiadmin/internal/infrastructure/prompts"
	"go.uber.org/zap/zaptest"
)

// turn scripts one model invocation. It may call tools before answering.
type turn func(ctx context.Context, tools ports.ToolSet, history []ports.Message) (string, error)

func reply(text string) turn {
	return func(context.Context, ports.ToolSet, []ports.Message) (string, error) { return text, nil }
}

type turnModel struct {
	mu           sync.Mutex
	turns        []turn
	instructions []string
	histories    [][]ports.Message
	toolResults  []string
}

func (m *turnModel) script(turns ...turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turns...)
}

func (m *turnModel) Invoke(ctx context.Context, instruction string, ts ports.ToolSet, history []ports.Message) (string, error) {
	m.mu.Lock()
	m.instructions = append(m.instructions, instruction)
	m.histories = append(m.histories, history)
	if len(m.turns) == 0 {
		m.mu.Unlock()
		return "", errors.New("script exhausted")
	}
	next := m.turns[0]
	m.turns = m.turns[1:]
	m.mu.Unlock()
	return next(ctx, ts, history)
}

func (m *turnModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instructions)
}

// callTool scripts a turn that runs one tool and then answers with answer
// followed by the raw tool output.
func (m *turnModel) callTool(name, args, answer string) turn {
	return func(ctx context.Context, ts ports.ToolSet, _ []ports.Message) (string, error) {
		out := ts.Call(ctx, name, args)
		m.mu.Lock()
		m.toolResults = append(m.toolResults, out)
		m.mu.Unlock()
		return answer + "\n" + out, nil
	}
}

type harness struct {
	tasks   ports.TaskRepository
	reports ports.ReportRepository
	events  ports.TaskEventRepository
	store   ports.ObjectStore
	model   *turnModel
	metrics *metrics.Metrics
	log     *logger.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb := dbtest.New(t)
	log := logger.Wrap(zaptest.NewLogger(t))
	store, err := db.NewObjectStore(gdb, log, domain.ContentKinds())
	require.NoError(t, err)

	return &harness{
		tasks:   db.NewTaskRepository(gdb, log),
		reports: db.NewReportRepository(gdb, log),
		events:  db.NewTaskEventRepository(gdb, log),
		store:   store,
		model:   &turnModel{},
		metrics: metrics.New(prometheus.NewRegistry()),
		log:     log,
	}
}

func (h *harness) stages() Stages {
	deps := agents.Deps{Model: h.model, Prompts: prompts.NewStore("", h.log), Log: h.log}
	layer := tools.NewLayer(h.store, h.log)
	return Stages{
		Analysis:    agents.NewAnalysis(deps),
		Admin:       agents.NewAdmin(deps, tools.FullAccess(layer, h.metrics)),
		Control:     agents.NewControl(deps, tools.ReadOnly(layer, h.metrics)),
		Description: agents.NewDescription(deps, h.reports, nil),
		Response:    agents.NewResponse(deps),
	}
}

func (h *harness) orchestrator(retryLimit int, stages Stages) ports.Orchestrator {
	return NewOrchestrator(OrchestratorConfig{
		Tasks:             h.tasks,
		Events:            h.events,
		Stages:            stages,
		Metrics:           h.metrics,
		Logger:            h.log,
		ControlRetryLimit: retryLimit,
	})
}

func (h *harness) pending(t *testing.T, request string) *domain.TaskRecord {
	t.Helper()
	task := &domain.TaskRecord{UserRequest: request, Status: domain.TaskStatusPending}
	require.NoError(t, h.tasks.Create(context.Background(), task))
	return task
}

// funcStage is a stand-in stage for orchestrator-only tests.
type funcStage struct {
	name string
	run  func(ctx context.Context, task *domain.TaskRecord) (agents.Signal, error)
}

func (s funcStage) Name() string { return s.name }

func (s funcStage) Run(ctx context.Context, task *domain.TaskRecord) (agents.Signal, error) {
	return s.run(ctx, task)
}
