// Package factory assembles the pipeline from configuration.
package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vetclinic/aiadmin/internal/config"
	"github.com/vetclinic/aiadmin/internal/core/agents"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/core/services"
	"github.com/vetclinic/aiadmin/internal/core/tools"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/db"
	"github.com/vetclinic/aiadmin/internal/infrastructure/llm"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"github.com/vetclinic/aiadmin/internal/infrastructure/metrics"
	"github.com/vetclinic/aiadmin/internal/infrastructure/prompts"
	"github.com/vetclinic/aiadmin/internal/infrastructure/remote"
	"gorm.io/gorm"
)

// Pipeline is every long-lived component one process needs.
type Pipeline struct {
	Tasks    ports.TaskRepository
	Reports  ports.ReportRepository
	Events   ports.TaskEventRepository
	Settings ports.SystemSettingRepository
	Store    ports.ObjectStore

	Metrics      *metrics.Metrics
	Prompts      *services.PromptService
	Orchestrator ports.Orchestrator
	TaskService  *services.TaskService
}

type Options struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *logger.Logger
	Registry prometheus.Registerer
	// Model replaces the configured language model client when set.
	Model ports.LanguageModel
	// DeferModel postpones building the model client until a stage first
	// invokes it, so query-only callers need no model credentials.
	DeferModel bool
}

func NewPipeline(opts Options) (*Pipeline, error) {
	cfg, log := opts.Config, opts.Logger

	p := &Pipeline{
		Tasks:    db.NewTaskRepository(opts.DB, log),
		Reports:  db.NewReportRepository(opts.DB, log),
		Events:   db.NewTaskEventRepository(opts.DB, log),
		Settings: db.NewSystemSettingRepository(opts.DB, log),
		Metrics:  metrics.New(opts.Registry),
	}

	store, err := db.NewObjectStore(opts.DB, log.Named("store"), domain.ContentKinds())
	if err != nil {
		return nil, fmt.Errorf("build object store: %w", err)
	}
	p.Store = store

	p.Prompts = services.NewPromptService(services.PromptServiceConfig{
		Settings: p.Settings,
		Fallback: prompts.NewStore(cfg.Prompts.Dir, log.Named("prompts")),
		Agents:   prompts.Agents(),
		Logger:   log.Named("prompts"),
	})

	model := opts.Model
	if model == nil {
		build := func() (ports.LanguageModel, error) {
			return llm.New(cfg.LLM, p.Metrics, log.Named("llm"))
		}
		if opts.DeferModel {
			model = &deferredModel{build: build}
		} else {
			client, err := build()
			if err != nil {
				return nil, err
			}
			model = client
		}
	}

	var publisher ports.ReportPublisher
	if cfg.Publish.Enabled {
		publisher = remote.NewSFTPPublisher(cfg.Publish, log.Named("publish"))
	}

	deps := agents.Deps{Model: model, Prompts: p.Prompts, Log: log.Named("agents")}
	layer := tools.NewLayer(store, log.Named("tools"))

	p.Orchestrator = services.NewOrchestrator(services.OrchestratorConfig{
		Tasks:  p.Tasks,
		Events: p.Events,
		Stages: services.Stages{
			Analysis:    agents.NewAnalysis(deps),
			Admin:       agents.NewAdmin(deps, tools.FullAccess(layer, p.Metrics)),
			Control:     agents.NewControl(deps, tools.ReadOnly(layer, p.Metrics)),
			Description: agents.NewDescription(deps, p.Reports, publisher),
			Response:    agents.NewResponse(deps),
		},
		Metrics:           p.Metrics,
		Logger:            log.Named("orchestrator"),
		ControlRetryLimit: cfg.Pipeline.ControlRetryLimit,
	})

	p.TaskService = services.NewTaskService(services.TaskServiceConfig{
		Tasks:        p.Tasks,
		Reports:      p.Reports,
		Events:       p.Events,
		Orchestrator: p.Orchestrator,
		Logger:       log.Named("tasks"),
	})

	return p, nil
}

// deferredModel builds the real client on the first Invoke and reports the
// build error on every call after a failure.
type deferredModel struct {
	build func() (ports.LanguageModel, error)

	once  sync.Once
	model ports.LanguageModel
	err   error
}

func (d *deferredModel) Invoke(ctx context.Context, instruction string, tools ports.ToolSet, history []ports.Message) (string, error) {
	d.once.Do(func() { d.model, d.err = d.build() })
	if d.err != nil {
		return "", d.err
	}
	return d.model.Invoke(ctx, instruction, tools, history)
}
