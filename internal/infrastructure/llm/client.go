// Package llm adapts an OpenAI-compatible chat endpoint to ports.LanguageModel.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/vetclinic/aiadmin/internal/config"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"golang.org/x/time/rate"
)

const defaultMaxIterations = 10

var (
	ErrIterationLimit = errors.New("llm: tool-call iteration limit reached")
	ErrEmptyResponse  = errors.New("llm: response has no choices")
)

// Client runs one instruction to completion, answering the model's tool
// calls until it replies with plain text.
type Client struct {
	model         llms.Model
	temperature   float64
	maxTokens     int
	maxIterations int
	limiter       *rate.Limiter
	metrics       ports.PipelineMetrics
	log           *logger.Logger
}

var _ ports.LanguageModel = (*Client)(nil)

// New dials the configured OpenAI-compatible endpoint.
func New(cfg config.LLMConfig, metrics ports.PipelineMetrics, log *logger.Logger) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return NewWithModel(model, cfg, metrics, log), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, cfg config.LLMConfig, metrics ports.PipelineMetrics, log *logger.Logger) *Client {
	c := &Client{
		model:         model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		maxIterations: cfg.MaxIterations,
		metrics:       metrics,
		log:           log,
	}
	if c.maxIterations <= 0 {
		c.maxIterations = defaultMaxIterations
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1)
	}
	return c
}

func (c *Client) Invoke(ctx context.Context, instruction string, tools ports.ToolSet, history []ports.Message) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, instruction))
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == ports.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, m.Content))
	}

	opts := c.callOptions(tools)
	for i := 0; i < c.maxIterations; i++ {
		choice, err := c.generate(ctx, messages, opts)
		if err != nil {
			return "", err
		}
		if len(choice.ToolCalls) == 0 {
			return choice.Content, nil
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, call := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		messages = append(messages, assistant)

		for _, call := range choice.ToolCalls {
			messages = append(messages, c.answer(ctx, tools, call))
		}
	}

	c.log.Warnw("llm_iteration_limit", "limit", c.maxIterations)
	return "", fmt.Errorf("%w (%d)", ErrIterationLimit, c.maxIterations)
}

func (c *Client) callOptions(tools ports.ToolSet) []llms.CallOption {
	// Temperature is always sent; zero is a deliberate setting, not "unset".
	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	if tools == nil {
		return opts
	}

	defs := tools.Definitions()
	if len(defs) == 0 {
		return opts
	}
	converted := make([]llms.Tool, 0, len(defs))
	for _, d := range defs {
		converted = append(converted, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return append(opts, llms.WithTools(converted))
}

func (c *Client) generate(ctx context.Context, messages []llms.MessageContent, opts []llms.CallOption) (*llms.ContentChoice, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.ModelRequest("error")
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		c.metrics.ModelRequest("error")
		c.log.Errorw("llm_request_failed", "error", err)
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		c.metrics.ModelRequest("error")
		return nil, ErrEmptyResponse
	}
	c.metrics.ModelRequest("ok")
	return resp.Choices[0], nil
}

// answer runs one requested tool and wraps its output for the next turn.
func (c *Client) answer(ctx context.Context, tools ports.ToolSet, call llms.ToolCall) llms.MessageContent {
	var name, args string
	if call.FunctionCall != nil {
		name = call.FunctionCall.Name
		args = call.FunctionCall.Arguments
	}

	out := "Error: no tools are available in this step"
	if tools != nil {
		out = tools.Call(ctx, name, args)
	}
	c.log.Debugw("llm_tool_call", "tool", name, "call_id", call.ID)

	return llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{llms.ToolCallResponse{
			ToolCallID: call.ID,
			Name:       name,
			Content:    out,
		}},
	}
}
