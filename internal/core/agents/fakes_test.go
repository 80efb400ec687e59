package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
)

type modelCall struct {
	instruction string
	tools       []string
	history     []ports.Message
}

// scriptedModel replies from a fixed queue.
type scriptedModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []modelCall
}

func (m *scriptedModel) Invoke(_ context.Context, instruction string, tools ports.ToolSet, history []ports.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := modelCall{instruction: instruction, history: history}
	if tools != nil {
		for _, d := range tools.Definitions() {
			call.tools = append(call.tools, d.Name)
		}
	}
	m.calls = append(m.calls, call)

	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

type staticPrompts struct {
	err error
}

func (p staticPrompts) Lookup(_ context.Context, agent, name string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("instruction:%s/%s", agent, name), nil
}

type memReports struct {
	mu      sync.Mutex
	reports []*domain.Report
	err     error
}

func (r *memReports) Create(_ context.Context, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	report.ID = uint(len(r.reports) + 1)
	r.reports = append(r.reports, report)
	return nil
}

func (r *memReports) GetBySlug(_ context.Context, slug string) (*domain.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.Slug == slug {
			return rep, nil
		}
	}
	return nil, domain.ErrReportNotFound
}

func (r *memReports) GetByTaskID(_ context.Context, taskID uint) (*domain.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.TaskID == taskID {
			return rep, nil
		}
	}
	return nil, domain.ErrReportNotFound
}

type fakePublisher struct {
	err       error
	published []string
}

func (p *fakePublisher) Publish(_ context.Context, report *domain.Report) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, report.Slug)
	return "https://reports.example/" + report.Slug + ".html", nil
}

type namedTools struct {
	names []string
}

func (n namedTools) Definitions() []ports.ToolDefinition {
	defs := make([]ports.ToolDefinition, 0, len(n.names))
	for _, name := range n.names {
		defs = append(defs, ports.ToolDefinition{Name: name})
	}
	return defs
}

func (n namedTools) Call(context.Context, string, string) string { return "{}" }
