package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/vetclinic/aiadmin/internal/config"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"github.com/vetclinic/aiadmin/internal/infrastructure/metrics"
	"go.uber.org/zap/zaptest"
)

type fakeModel struct {
	responses []*llms.ContentResponse
	err       error
	seen      [][]llms.MessageContent
	opts      []llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.seen = append(f.seen, append([]llms.MessageContent(nil), messages...))
	// -1 marks a temperature the client never set.
	opts := llms.CallOptions{Temperature: -1}
	for _, o := range options {
		o(&opts)
	}
	f.opts = append(f.opts, opts)

	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &llms.ContentResponse{}, nil
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func text(s string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s}}}
}

func toolCall(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:           id,
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
		}},
	}}}
}

type echoTools struct {
	calls []string
}

func (e *echoTools) Definitions() []ports.ToolDefinition {
	return []ports.ToolDefinition{{
		Name:        "list_kinds",
		Description: "List kinds",
		Parameters:  map[string]interface{}{"type": "object"},
	}}
}

func (e *echoTools) Call(_ context.Context, name, arguments string) string {
	e.calls = append(e.calls, name+" "+arguments)
	return `["news.news"]`
}

func newClient(t *testing.T, model llms.Model, cfg config.LLMConfig) (*Client, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return NewWithModel(model, cfg, m, logger.Wrap(zaptest.NewLogger(t))), m
}

func TestInvoke_PlainReply(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{text("hello")}}
	c, m := newClient(t, model, config.LLMConfig{Temperature: 0.2, MaxTokens: 512})

	out, err := c.Invoke(context.Background(), "be brief", nil, []ports.Message{
		{Role: ports.RoleUser, Content: "hi"},
		{Role: ports.RoleAssistant, Content: "earlier answer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Len(t, model.seen, 1)
	msgs := model.seen[0]
	require.Len(t, msgs, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
	assert.Equal(t, llms.TextContent{Text: "be brief"}, msgs[0].Parts[0])
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[2].Role)

	assert.Empty(t, model.opts[0].Tools)
	assert.Equal(t, 0.2, model.opts[0].Temperature)
	assert.Equal(t, 512, model.opts[0].MaxTokens)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("ok")))
}

func TestInvoke_SendsZeroTemperature(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{text("ok")}}
	c, _ := newClient(t, model, config.LLMConfig{Temperature: 0})

	_, err := c.Invoke(context.Background(), "sys", nil, []ports.Message{{Role: ports.RoleUser, Content: "hi"}})
	require.NoError(t, err)

	require.Len(t, model.opts, 1)
	assert.Equal(t, 0.0, model.opts[0].Temperature)
}

func TestInvoke_ToolRoundTrip(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCall("call_1", "list_kinds", "{}"),
		text("There is one kind: news.news"),
	}}
	c, _ := newClient(t, model, config.LLMConfig{})
	tools := &echoTools{}

	out, err := c.Invoke(context.Background(), "sys", tools, []ports.Message{{Role: ports.RoleUser, Content: "what kinds?"}})
	require.NoError(t, err)
	assert.Equal(t, "There is one kind: news.news", out)
	assert.Equal(t, []string{"list_kinds {}"}, tools.calls)

	require.Len(t, model.opts[0].Tools, 1)
	assert.Equal(t, "list_kinds", model.opts[0].Tools[0].Function.Name)

	require.Len(t, model.seen, 2)
	second := model.seen[1]
	require.Len(t, second, 4)
	assert.Equal(t, llms.ChatMessageTypeAI, second[2].Role)
	assert.Equal(t, llms.ChatMessageTypeTool, second[3].Role)
	resp, ok := second[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Equal(t, `["news.news"]`, resp.Content)
}

func TestInvoke_IterationLimit(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCall("a", "list_kinds", "{}"),
		toolCall("b", "list_kinds", "{}"),
		toolCall("c", "list_kinds", "{}"),
	}}
	c, _ := newClient(t, model, config.LLMConfig{MaxIterations: 2})

	_, err := c.Invoke(context.Background(), "sys", &echoTools{}, nil)
	assert.ErrorIs(t, err, ErrIterationLimit)
	assert.Len(t, model.seen, 2)
}

func TestInvoke_ToolCallWithoutTools(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCall("a", "delete_record", `{"kind":"news.news","id":"1"}`),
		text("ok"),
	}}
	c, _ := newClient(t, model, config.LLMConfig{})

	out, err := c.Invoke(context.Background(), "sys", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	resp := model.seen[1][2].Parts[0].(llms.ToolCallResponse)
	assert.Contains(t, resp.Content, "no tools are available")
}

func TestInvoke_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	c, m := newClient(t, &fakeModel{err: boom}, config.LLMConfig{})

	_, err := c.Invoke(context.Background(), "sys", nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("error")))

	c, _ = newClient(t, &fakeModel{}, config.LLMConfig{})
	_, err = c.Invoke(context.Background(), "sys", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestInvoke_RateLimitHonoursContext(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{text("one"), text("two")}}
	c, _ := newClient(t, model, config.LLMConfig{RequestsPerMinute: 1})

	_, err := c.Invoke(context.Background(), "sys", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Invoke(ctx, "sys", nil, nil)
	assert.Error(t, err)
	assert.Len(t, model.seen, 1)
}
