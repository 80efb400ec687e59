package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
)

const promptCategory = "prompts"

// Prompt sources reported by Effective.
const (
	PromptSourceOverride = "override"
	PromptSourceDefault  = "default"
)

type PromptServiceConfig struct {
	Settings ports.SystemSettingRepository
	// Fallback answers lookups that have no stored override, usually the
	// file-backed prompt store.
	Fallback ports.PromptRepository
	Agents   []string
	Logger   *logger.Logger
}

// PromptService layers operator overrides stored as system settings over the
// file and built-in prompts.
type PromptService struct {
	settings ports.SystemSettingRepository
	fallback ports.PromptRepository
	agents   map[string]bool
	logger   *logger.Logger
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
}

var _ ports.PromptRepository = (*PromptService)(nil)

func NewPromptService(cfg PromptServiceConfig) *PromptService {
	agents := make(map[string]bool, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agents[a] = true
	}
	return &PromptService{
		settings: cfg.Settings,
		fallback: cfg.Fallback,
		agents:   agents,
		logger:   cfg.Logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *PromptService) lockKeys(keys ...string) func() {
	if len(keys) == 0 {
		return func() {}
	}
	sort.Strings(keys)
	s.mu.Lock()
	acquired := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		m := s.locks[k]
		if m == nil {
			m = &sync.Mutex{}
			s.locks[k] = m
		}
		acquired = append(acquired, m)
	}
	s.mu.Unlock()
	for _, m := range acquired {
		m.Lock()
	}
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}

func promptKey(agent, name string) string {
	return fmt.Sprintf("prompt.%s.%s", agent, name)
}

func (s *PromptService) Lookup(ctx context.Context, agent, name string) (string, error) {
	text, _, err := s.Effective(ctx, agent, name)
	return text, err
}

// Effective returns the prompt a stage would load now and where it came from.
func (s *PromptService) Effective(ctx context.Context, agent, name string) (string, string, error) {
	setting, err := s.settings.Get(ctx, promptKey(agent, name))
	if err != nil {
		return "", "", err
	}
	if setting != nil && strings.TrimSpace(setting.Value) != "" {
		return setting.Value, PromptSourceOverride, nil
	}

	text, err := s.fallback.Lookup(ctx, agent, name)
	if err != nil {
		return "", "", err
	}
	return text, PromptSourceDefault, nil
}

// Set stores an override for one agent prompt.
func (s *PromptService) Set(ctx context.Context, agent, name, text string) error {
	if !s.agents[agent] {
		return fmt.Errorf("%w: %s", ErrPromptUnknownAgent, agent)
	}
	text = strings.TrimSpace(text)
	if text == "" || strings.TrimSpace(name) == "" {
		return ErrPromptEmpty
	}

	key := promptKey(agent, name)
	unlock := s.lockKeys("setting:" + key)
	defer unlock()

	err := s.settings.Set(ctx, &domain.SystemSetting{
		Key:      key,
		Value:    text,
		Type:     "string",
		Category: promptCategory,
	})
	if err != nil {
		s.logger.Errorw("prompt_override_set_failed", "key", key, "error", err)
		return err
	}
	s.logger.Infow("prompt_override_set_ok", "key", key)
	return nil
}

// Reset removes an override so the default applies again.
func (s *PromptService) Reset(ctx context.Context, agent, name string) error {
	if !s.agents[agent] {
		return fmt.Errorf("%w: %s", ErrPromptUnknownAgent, agent)
	}
	key := promptKey(agent, name)
	unlock := s.lockKeys("setting:" + key)
	defer unlock()
	return s.settings.Delete(ctx, key)
}

// Overrides returns every stored override keyed by setting key.
func (s *PromptService) Overrides(ctx context.Context) (map[string]string, error) {
	settings, err := s.settings.GetByCategory(ctx, promptCategory)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for _, st := range settings {
		out[st.Key] = st.Value
	}
	return out, nil
}
